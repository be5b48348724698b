package catalog

import (
	"context"
	"sync/atomic"

	"github.com/pkg/errors"

	"sky-htm/internal/htmrange"
	"sky-htm/internal/logger"
)

// ErrNoSource 没有可用的数据源
var ErrNoSource = errors.New("catalog: no source available")

// 文档注释：动态数据源包装器
// 背景：通过 atomic.Value 无锁切换当前数据源（如从数据库切换到分片文件），读路径不阻塞。
// 约束：Set(nil) 会让后续查询返回 ErrNoSource。
type Dynamic struct {
	v atomic.Value
}

type sourceBox struct{ s Source }

func (d *Dynamic) ObjectsInRanges(ctx context.Context, ivs []htmrange.Interval) ([]Object, error) {
	x, _ := d.v.Load().(sourceBox)
	if x.s == nil {
		return nil, ErrNoSource
	}
	return x.s.ObjectsInRanges(ctx, ivs)
}

// Set 切换当前数据源，写入后对后续查询立即生效
func (d *Dynamic) Set(s Source) { d.v.Store(sourceBox{s: s}) }

// Chain 按顺序尝试各数据源，首个无错误的结果即返回
type Chain struct {
	list []Source
}

func NewChain(list ...Source) *Chain { return &Chain{list: list} }

func (c *Chain) ObjectsInRanges(ctx context.Context, ivs []htmrange.Interval) ([]Object, error) {
	last := ErrNoSource
	for i, s := range c.list {
		if s == nil {
			continue
		}
		objs, err := s.ObjectsInRanges(ctx, ivs)
		if err == nil {
			return objs, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		logger.L().Warn("catalog_source_failed", "index", i, "err", err)
		last = err
	}
	return nil, last
}
