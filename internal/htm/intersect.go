package htm

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"sky-htm/internal/htmrange"
	"sky-htm/internal/logger"
	"sky-htm/internal/spatial"
)

// Stats 一次求交的遍历统计
type Stats struct {
	Nodes        int
	FullNodes    int
	PartialCells int
}

func (s *Stats) add(o Stats) {
	s.Nodes += o.Nodes
	s.FullNodes += o.FullNodes
	s.PartialCells += o.PartialCells
}

// 文档注释：求交结果
// 背景：Full 中的叶子完全落在区域内，Partial 中的叶子只与区域边界相交，需要逐个对象精确判定。
type Result struct {
	Full    *htmrange.Range
	Partial *htmrange.Range
	Stats   Stats
}

func newResult() *Result {
	return &Result{Full: htmrange.New(), Partial: htmrange.New()}
}

// Merged 完全与部分覆盖合并后的叶子区间
func (r *Result) Merged() *htmrange.Range {
	out := r.Full.Clone()
	out.Union(r.Partial)
	return out
}

// Lookup 区域对应的叶子区间集合
func (x *Index) Lookup(ctx context.Context, c *spatial.Convex) (*htmrange.Range, error) {
	res, err := x.Intersect(ctx, c)
	if err != nil {
		return nil, err
	}
	return res.Merged(), nil
}

// 文档注释：凸区域求交
// 背景：从八个根三角形出发逐层分类；Reject 剪枝，Full 直接写入其叶子区间，Partial 继续下降，
//
//	到达索引层级仍为 Partial 的叶子写入 Partial。
//
// 约束：会先化简 c；空区域得到空结果，无约束区域得到覆盖全部叶子的单一区间；
//
//	每层递归前检查 ctx，取消时返回 ctx.Err()。
func (x *Index) Intersect(ctx context.Context, c *spatial.Convex) (*Result, error) {
	start := time.Now()
	res := newResult()
	c.Simplify()
	switch {
	case c.Empty():
		return res, nil
	case c.Whole():
		lo := x.LeafCount()
		res.Full.Merge(lo, 2*lo-1)
		return res, nil
	}
	for root := 0; root < 8; root++ {
		v0, v1, v2 := rootVertices(root)
		if err := x.walk(ctx, c, res, uint64(8+root), 0, v0, v1, v2, -1, 0); err != nil {
			return nil, err
		}
	}
	logger.L().Debug("htm_intersect_done",
		"level", x.level,
		"nodes", res.Stats.Nodes,
		"full", res.Full.Len(),
		"partial", res.Partial.Len(),
		"duration_ms", time.Since(start).Milliseconds())
	return res, nil
}

// walk 处理节点 id；known 为调用方已算出的分类（-1 表示未知），pPrev 为父节点的部分覆盖子节点数
func (x *Index) walk(ctx context.Context, c *spatial.Convex, res *Result, id uint64, lvl int,
	v0, v1, v2 spatial.Vector, known spatial.Markup, pPrev int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m := known
	if m < 0 {
		m = c.Classify(v0, v1, v2)
		res.Stats.Nodes++
	}
	switch m {
	case spatial.Reject:
		return nil
	case spatial.Full:
		lo, hi := leafRange(id, x.level-lvl)
		res.Full.Merge(lo, hi)
		res.Stats.FullNodes++
		return nil
	}
	if lvl == x.level {
		res.Partial.Merge(id, id)
		res.Stats.PartialCells++
		return nil
	}

	ch := children(v0, v1, v2)
	var marks [4]spatial.Markup
	var f, p int
	for k := range ch {
		marks[k] = c.Classify(ch[k][0], ch[k][1], ch[k][2])
		res.Stats.Nodes++
		switch marks[k] {
		case spatial.Full:
			f++
		case spatial.Partial:
			p++
		}
	}
	if x.coarsening && (p == 4 || f >= 2 || (p == 3 && f == 1) || (p > 1 && pPrev == 3)) {
		lo, hi := leafRange(id, x.level-lvl)
		res.Partial.Merge(lo, hi)
		res.Stats.PartialCells++
		return nil
	}
	for k := range ch {
		if err := x.walk(ctx, c, res, id<<2|uint64(k), lvl+1, ch[k][0], ch[k][1], ch[k][2], marks[k], p); err != nil {
			return err
		}
	}
	return nil
}

// 文档注释：多凸区域并集求交
// 背景：每个凸区域在独立的结果上并行求交，最后按区间合并；任一失败或 ctx 取消即整体返回错误。
// 约束：同一叶子可能同时出现在 Full 与 Partial 中，调用方以 Full 为准。
func (x *Index) IntersectDomain(ctx context.Context, d *spatial.Domain) (*Result, error) {
	cs := d.Convexes()
	parts := make([]*Result, len(cs))
	g, gctx := errgroup.WithContext(ctx)
	for i, c := range cs {
		i, c := i, c
		g.Go(func() error {
			r, err := x.Intersect(gctx, c)
			if err != nil {
				return err
			}
			parts[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	out := newResult()
	for _, r := range parts {
		out.Full.Union(r.Full)
		out.Partial.Union(r.Partial)
		out.Stats.add(r.Stats)
	}
	return out, nil
}
