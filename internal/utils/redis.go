package utils

import (
	"net"

	"github.com/redis/go-redis/v9"

	"sky-htm/internal/logger"
)

// 文档注释：由环境变量构造 Redis 选项
// 背景：REDIS_ADDR 优先，否则 REDIS_HOST:REDIS_PORT；REDIS_DB 非法或为负时使用 0。
// 约束：REDIS_ENABLED=false 时返回 nil，调用方据此跳过远端缓存与布隆去重。
func RedisOptionsFromEnv() *redis.Options {
	if !EnvBool("REDIS_ENABLED", true) {
		return nil
	}
	addr := EnvString("REDIS_ADDR", "")
	if addr == "" {
		addr = net.JoinHostPort(EnvString("REDIS_HOST", "127.0.0.1"), EnvString("REDIS_PORT", "6379"))
	}
	db := EnvInt("REDIS_DB", 0)
	if db < 0 {
		db = 0
	}
	return &redis.Options{
		Addr:         addr,
		Password:     EnvString("REDIS_PASS", ""),
		DB:           db,
		DialTimeout:  EnvSeconds("REDIS_DIAL_TIMEOUT_S", 0),
		ReadTimeout:  EnvSeconds("REDIS_READ_TIMEOUT_S", 0),
		WriteTimeout: EnvSeconds("REDIS_WRITE_TIMEOUT_S", 0),
	}
}

// OpenRedisFromEnv 按 RedisOptionsFromEnv 打开客户端；禁用时返回 nil
func OpenRedisFromEnv() *redis.Client {
	opts := RedisOptionsFromEnv()
	if opts == nil {
		return nil
	}
	logger.L().Debug("redis_env", "addr", opts.Addr, "db", opts.DB)
	return redis.NewClient(opts)
}
