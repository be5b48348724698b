// 包 catalog：天体目录，按 HTM 叶子 id 组织对象，并把求交结果还原为对象列表
package catalog

import (
	"context"
	"sync"

	"github.com/google/btree"

	"sky-htm/internal/htm"
	"sky-htm/internal/htmrange"
	"sky-htm/internal/logger"
	"sky-htm/internal/spatial"
)

// Object 目录中的一个天体
type Object struct {
	ID   uint64  `json:"id"`
	Name string  `json:"name"`
	RA   float64 `json:"ra"`
	Dec  float64 `json:"dec"`
	Mag  float64 `json:"mag"`
	Kind string  `json:"kind"`
	Leaf uint64  `json:"htm_id"`
}

func (o Object) Vector() spatial.Vector { return spatial.NewVectorRaDec(o.RA, o.Dec) }

// Source 按叶子区间取对象的数据源（内存、分片文件、数据库）
type Source interface {
	ObjectsInRanges(ctx context.Context, ivs []htmrange.Interval) ([]Object, error)
}

// Region 精确的点包含判定；*spatial.Convex 与 *spatial.Domain 均满足
type Region interface {
	Contains(v spatial.Vector) bool
}

func lessObject(a, b *Object) bool {
	if a.Leaf != b.Leaf {
		return a.Leaf < b.Leaf
	}
	return a.ID < b.ID
}

// 文档注释：内存目录
// 背景：B 树按 (叶子 id, 对象 id) 排序，叶子区间查询即一次有序区间遍历；名称另建映射。
// 约束：读写由 RWMutex 保护；Add 时按索引层级计算叶子 id，覆盖调用方传入的 Leaf。
type Catalog struct {
	mu     sync.RWMutex
	idx    *htm.Index
	tree   *btree.BTreeG[*Object]
	byName map[string]*Object
	byID   map[uint64]*Object
	nextID uint64

	kd      *kdNode
	kdDirty bool
}

func New(idx *htm.Index) *Catalog {
	return &Catalog{
		idx:    idx,
		tree:   btree.NewG[*Object](32, lessObject),
		byName: make(map[string]*Object),
		byID:   make(map[uint64]*Object),
		nextID: 1,
	}
}

func (c *Catalog) Index() *htm.Index { return c.idx }

// Add 加入对象；ID 为 0 时自动分配，同 ID 或同名的旧对象被替换
func (c *Catalog) Add(o Object) Object {
	c.mu.Lock()
	defer c.mu.Unlock()
	if o.ID == 0 {
		o.ID = c.nextID
	}
	if o.ID >= c.nextID {
		c.nextID = o.ID + 1
	}
	if old, ok := c.byID[o.ID]; ok {
		c.tree.Delete(old)
		delete(c.byName, old.Name)
	}
	if old, ok := c.byName[o.Name]; ok && o.Name != "" {
		c.tree.Delete(old)
		delete(c.byID, old.ID)
	}
	o.Leaf = c.idx.IDByRaDec(o.RA, o.Dec)
	c.kdDirty = true
	p := &o
	c.tree.ReplaceOrInsert(p)
	c.byID[o.ID] = p
	if o.Name != "" {
		c.byName[o.Name] = p
	}
	return o
}

func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tree.Len()
}

// ByName 按名称查找
func (c *Catalog) ByName(name string) (Object, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.byName[name]
	if !ok {
		return Object{}, false
	}
	return *p, true
}

// ObjectsInLeaf 某个叶子中的全部对象
func (c *Catalog) ObjectsInLeaf(leaf uint64) []Object {
	out, _ := c.ObjectsInRanges(context.Background(), []htmrange.Interval{{Lo: leaf, Hi: leaf}})
	return out
}

// ObjectsInRanges 叶子 id 落在任一区间内的对象，按 (叶子, id) 升序
func (c *Catalog) ObjectsInRanges(ctx context.Context, ivs []htmrange.Interval) ([]Object, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []Object
	var err error
	for _, iv := range ivs {
		c.tree.AscendGreaterOrEqual(&Object{Leaf: iv.Lo}, func(p *Object) bool {
			if p.Leaf > iv.Hi {
				return false
			}
			if len(out)%1024 == 0 {
				if err = ctx.Err(); err != nil {
					return false
				}
			}
			out = append(out, *p)
			return true
		})
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Each 按叶子顺序遍历全部对象，fn 返回 false 时停止
func (c *Catalog) Each(fn func(Object) bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	c.tree.Ascend(func(p *Object) bool { return fn(*p) })
}

// 文档注释：把求交结果还原为对象
// 背景：完全覆盖叶子中的对象直接收录；部分覆盖叶子中的对象逐个用 region 精确判定。
// 约束：同一叶子同时出现在 Full 与 Partial 时以 Full 为准；结果按 (叶子, id) 升序。
func Resolve(ctx context.Context, src Source, res *htm.Result, region Region) ([]Object, error) {
	objs, err := src.ObjectsInRanges(ctx, res.Merged().Intervals())
	if err != nil {
		return nil, err
	}
	out := objs[:0]
	tested := 0
	for _, o := range objs {
		if res.Full.IsIn(o.Leaf) {
			out = append(out, o)
			continue
		}
		tested++
		if region.Contains(o.Vector()) {
			out = append(out, o)
		}
	}
	logger.L().Debug("catalog_resolve_done", "candidates", len(objs), "tested", tested, "matched", len(out))
	return out, nil
}

// InsertObjects 批量加入，供导入器直接写入内存目录
func (c *Catalog) InsertObjects(_ context.Context, objs []Object) error {
	for _, o := range objs {
		if o.Name != "" {
			if old, ok := c.ByName(o.Name); ok {
				o.ID = old.ID
			}
		}
		c.Add(o)
	}
	return nil
}

func (c *Catalog) CountObjects(context.Context) (int64, error) { return int64(c.Len()), nil }

// ObjectByName 与 store 同形的名称查找，未命中返回 nil
func (c *Catalog) ObjectByName(_ context.Context, name string) (*Object, error) {
	o, ok := c.ByName(name)
	if !ok {
		return nil, nil
	}
	return &o, nil
}
