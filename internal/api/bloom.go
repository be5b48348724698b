package api

import (
	"context"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/redis/go-redis/v9"
)

// 文档注释：计算布隆过滤器位置
// 参数：data 为参与哈希的字节序列，m 为位图大小，k 为哈希次数（控制误判率与写入开销）。
// 背景：xxhash 结合索引前缀生成 k 个位置，用于 GetBit/SetBit；适配短周期去重场景。
func bloomPositions(data []byte, m uint32, k int) []int64 {
	pos := make([]int64, k)
	buf := make([]byte, 0, len(data)+1)
	for i := 0; i < k; i++ {
		buf = append(buf[:0], byte(i))
		buf = append(buf, data...)
		pos[i] = int64(xxhash.Sum64(buf) % uint64(m))
	}
	return pos
}

// 文档注释：检查并写入布隆过滤器位图
// 背景：同一访客短时间内重复的同一查询只计一次统计，降低统计写库压力。
// 返回：true 表示首次见到（已写入位图）；false 表示已存在。
// 异常：Redis 交互错误时返回 error；当 rc 为 nil 时视为“首次见到”，避免阻断主流程。
func bloomCheckAndSet(ctx context.Context, rc *redis.Client, key string, positions []int64, ttl time.Duration) (bool, error) {
	if rc == nil {
		return true, nil
	}
	seen := true
	for _, p := range positions {
		b, err := rc.GetBit(ctx, key, p).Result()
		if err != nil {
			return true, err
		}
		if b == 0 {
			seen = false
		}
	}
	if !seen {
		for _, p := range positions {
			_, _ = rc.SetBit(ctx, key, p, 1).Result()
		}
		_ = rc.Expire(ctx, key, ttl).Err()
		return true, nil
	}
	return false, nil
}
