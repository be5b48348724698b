package htm

import (
	"context"
	"strconv"
	"strings"

	"sky-htm/internal/htmrange"
	"sky-htm/internal/spatial"
)

// MaxRanges 命令接口返回的区间数上限，超出时按最佳缺口合并
const MaxRanges = 100

// Reply 命令执行结果：点与名称查询填写 ID/Name，区域查询填写 Ranges
type Reply struct {
	ID     uint64              `json:"id,omitempty"`
	Name   string              `json:"name,omitempty"`
	Ranges []htmrange.Interval `json:"ranges,omitempty"`
}

// 文档注释：文本命令接口
// 背景：一行一条命令，关键字 J2000 / CARTESIAN / NAME / ID / DOMAIN；层级在命令内给出，
//
//	每条命令使用独立的 Index。
//
// 约束：解析错误与层级超限均返回 *InterfaceError。
type Interface struct {
	opts      []Option
	maxRanges int
}

func NewInterface(opts ...Option) *Interface {
	return &Interface{opts: opts, maxRanges: MaxRanges}
}

func (h *Interface) index(depth int) (*Index, error) {
	return NewIndex(depth, h.opts...)
}

// LookupID 点所在叶子
func (h *Interface) LookupID(depth int, v spatial.Vector) (uint64, error) {
	x, err := h.index(depth)
	if err != nil {
		return 0, err
	}
	return x.IDByPoint(v), nil
}

// LookupName 点所在叶子的名称
func (h *Interface) LookupName(depth int, v spatial.Vector) (string, error) {
	id, err := h.LookupID(depth, v)
	if err != nil {
		return "", err
	}
	return NameByID(id)
}

// CircleRegion 以角分为半径的圆形区域
func (h *Interface) CircleRegion(ctx context.Context, depth int, center spatial.Vector, arcmin float64) ([]htmrange.Interval, error) {
	c := spatial.NewConvex(spatial.NewConstraint(center, cosArcmin(arcmin)))
	return h.Domain(ctx, depth, spatial.NewDomain(c))
}

// ConvexHull 角点凸包区域
func (h *Interface) ConvexHull(ctx context.Context, depth int, corners []spatial.Vector) ([]htmrange.Interval, error) {
	c, err := spatial.NewHullConvex(corners)
	if err != nil {
		return nil, err
	}
	return h.Domain(ctx, depth, spatial.NewDomain(c))
}

// Domain 求交并把区间数压到上限以内
func (h *Interface) Domain(ctx context.Context, depth int, d *spatial.Domain) ([]htmrange.Interval, error) {
	x, err := h.index(depth)
	if err != nil {
		return nil, err
	}
	d.Simplify()
	res, err := x.IntersectDomain(ctx, d)
	if err != nil {
		return nil, err
	}
	r := res.Merged()
	r.Defrag(r.BestGap(h.maxRanges))
	return r.Intervals(), nil
}

// 文档注释：执行一条文本命令
func (h *Interface) Exec(ctx context.Context, cmd string) (*Reply, error) {
	t := &tokens{cmd: cmd, f: strings.Fields(cmd)}
	kw, ok := t.next()
	if !ok {
		return nil, t.fail("empty command", nil)
	}
	switch strings.ToUpper(kw) {
	case "NAME":
		name, ok := t.next()
		if !ok {
			return nil, t.fail("expected name", nil)
		}
		id, err := IDByName(name)
		if err != nil {
			return nil, t.fail("bad name", err)
		}
		return &Reply{ID: id, Name: name}, nil
	case "ID":
		s, ok := t.next()
		if !ok {
			return nil, t.fail("expected id", nil)
		}
		id, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return nil, t.fail("bad id", err)
		}
		name, err := NameByID(id)
		if err != nil {
			return nil, t.fail("bad id", err)
		}
		return &Reply{ID: id, Name: name}, nil
	case "J2000":
		return h.execVectors(ctx, t, 2)
	case "CARTESIAN":
		return h.execVectors(ctx, t, 3)
	case "DOMAIN":
		return h.execDomain(ctx, t)
	}
	return nil, t.fail("unknown keyword "+kw, nil)
}

// execVectors 按数字个数区分点（1 个向量）、圆（向量 + 角分）与凸包（至少 3 个向量）
func (h *Interface) execVectors(ctx context.Context, t *tokens, dim int) (*Reply, error) {
	depth, err := t.depth()
	if err != nil {
		return nil, err
	}
	nums, err := t.floats()
	if err != nil {
		return nil, err
	}
	vec := func(i int) spatial.Vector {
		if dim == 2 {
			return spatial.NewVectorRaDec(nums[i], nums[i+1])
		}
		return spatial.NewVector(nums[i], nums[i+1], nums[i+2])
	}
	switch {
	case len(nums) == dim:
		id, err := h.LookupID(depth, vec(0))
		if err != nil {
			return nil, t.fail("lookup", err)
		}
		name, _ := NameByID(id)
		return &Reply{ID: id, Name: name}, nil
	case len(nums) == dim+1:
		rs, err := h.CircleRegion(ctx, depth, vec(0), nums[dim])
		if err != nil {
			return nil, t.fail("circle", err)
		}
		return &Reply{Ranges: rs}, nil
	case len(nums) >= 3*dim && len(nums)%dim == 0:
		pts := make([]spatial.Vector, 0, len(nums)/dim)
		for i := 0; i < len(nums); i += dim {
			pts = append(pts, vec(i))
		}
		rs, err := h.ConvexHull(ctx, depth, pts)
		if err != nil {
			return nil, t.fail("convex hull", err)
		}
		return &Reply{Ranges: rs}, nil
	}
	return nil, t.fail("expected vector, circle or polygon", nil)
}

func (h *Interface) execDomain(ctx context.Context, t *tokens) (*Reply, error) {
	depth, d, err := t.domain()
	if err != nil {
		return nil, err
	}
	rs, err := h.Domain(ctx, depth, d)
	if err != nil {
		return nil, t.fail("domain", err)
	}
	return &Reply{Ranges: rs}, nil
}

// ParseDomain 解析 "DOMAIN depth nx (nc (x y z d){nc}){nx}" 文本，返回层级与区域
func ParseDomain(cmd string) (int, *spatial.Domain, error) {
	t := &tokens{cmd: cmd, f: strings.Fields(cmd)}
	if kw, ok := t.next(); !ok || !strings.EqualFold(kw, "DOMAIN") {
		return 0, nil, t.fail("expected DOMAIN", nil)
	}
	return t.domain()
}

func (t *tokens) domain() (int, *spatial.Domain, error) {
	depth, err := t.depth()
	if err != nil {
		return 0, nil, err
	}
	nx, err := t.integer()
	if err != nil {
		return 0, nil, err
	}
	d := spatial.NewDomain()
	for i := 0; i < nx; i++ {
		nc, err := t.integer()
		if err != nil {
			return 0, nil, err
		}
		c := spatial.NewConvex()
		for j := 0; j < nc; j++ {
			var q [4]float64
			for k := range q {
				if q[k], err = t.float(); err != nil {
					return 0, nil, err
				}
			}
			c.Add(spatial.NewConstraint(spatial.NewVector(q[0], q[1], q[2]), q[3]))
		}
		d.Add(c)
	}
	if _, ok := t.next(); ok {
		return 0, nil, t.fail("trailing tokens", nil)
	}
	return depth, d, nil
}

type tokens struct {
	cmd string
	f   []string
	pos int
}

func (t *tokens) next() (string, bool) {
	if t.pos >= len(t.f) {
		return "", false
	}
	t.pos++
	return t.f[t.pos-1], true
}

func (t *tokens) fail(msg string, err error) *InterfaceError {
	return &InterfaceError{Cmd: t.cmd, Msg: msg, Err: err}
}

func (t *tokens) integer() (int, error) {
	s, ok := t.next()
	if !ok {
		return 0, t.fail("expected integer", nil)
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, t.fail("bad integer "+s, err)
	}
	return n, nil
}

func (t *tokens) depth() (int, error) {
	n, err := t.integer()
	if err != nil {
		return 0, err
	}
	if n > MaxDepth {
		return 0, t.fail("depth too large", ErrDepth)
	}
	return n, nil
}

func (t *tokens) float() (float64, error) {
	s, ok := t.next()
	if !ok {
		return 0, t.fail("expected number", nil)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, t.fail("bad number "+s, err)
	}
	return v, nil
}

// floats 读取剩余全部数字
func (t *tokens) floats() ([]float64, error) {
	var out []float64
	for t.pos < len(t.f) {
		v, err := t.float()
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}
