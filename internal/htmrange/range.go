// 包 htmrange：HTM id 闭区间集合
package htmrange

import (
	"bufio"
	"io"
	"math"
	"slices"
	"strconv"

	"sky-htm/internal/skiplist"
)

// Classification id 相对区间集合的位置
type Classification int

const (
	Outside Classification = iota
	Inside
	// ClashesAtLo id 恰为某区间下界
	ClashesAtLo
	// ClashesAtHi id 恰为某区间上界
	ClashesAtHi
)

func (c Classification) String() string {
	switch c {
	case Inside:
		return "inside"
	case ClashesAtLo:
		return "clashes_at_lo"
	case ClashesAtHi:
		return "clashes_at_hi"
	}
	return "outside"
}

// Interval 闭区间 [Lo, Hi]
type Interval struct {
	Lo uint64 `json:"lo"`
	Hi uint64 `json:"hi"`
}

// 文档注释：区间集合
// 背景：下界与上界分存两个跳表 los/his，第 k 小的下界与第 k 小的上界成对构成一个区间。
// 约束：区间两两不相交且不相邻（Merge 会合并首尾相接的整数区间）；GetNext 游标与数据分离，
//
//	Reset 只回卷游标。非并发安全。
type Range struct {
	los, his *skiplist.List
	cursor   uint64
	done     bool
}

func New() *Range {
	return &Range{los: skiplist.New(), his: skiplist.New()}
}

// NewFrom 由若干区间构造
func NewFrom(ivs ...Interval) *Range {
	r := New()
	for _, iv := range ivs {
		r.Merge(iv.Lo, iv.Hi)
	}
	return r
}

// Len 区间个数
func (r *Range) Len() int { return r.los.Len() }

func (r *Range) Empty() bool { return r.los.Len() == 0 }

// 文档注释：并入闭区间 [lo, hi]
// 背景：左侧取 lo 之前最近区间，若与 lo 重叠或相邻则以其下界为新下界；右侧同理；
//
//	两端之间的旧端点全部释放。
//
// 约束：幂等；lo > hi 时交换。
func (r *Range) Merge(lo, hi uint64) {
	if lo > hi {
		lo, hi = hi, lo
	}
	if sl, ok := r.los.FindMax(lo); ok {
		if e, _ := r.his.FindMin(sl); e >= hi {
			return
		}
	}

	start, end := lo, hi
	if sl, ok := r.los.FindMax(lo); ok {
		if e, _ := r.his.FindMin(sl); e >= lo || e+1 == lo {
			start = sl
		}
	}
	if gh, ok := r.his.FindMin(hi); ok {
		if s, _ := r.los.FindMax(gh); s <= hi || (hi != math.MaxUint64 && s == hi+1) {
			end = gh
		}
	}

	r.los.FreeRange(start, end)
	r.his.FreeRange(start, end)
	if start != end {
		r.his.Delete(start)
		r.los.Delete(end)
	}
	r.los.Insert(start)
	r.his.Insert(end)
}

// Classify 判断 id 相对集合的位置
func (r *Range) Classify(id uint64) Classification {
	if r.los.Has(id) {
		return ClashesAtLo
	}
	if r.his.Has(id) {
		return ClashesAtHi
	}
	sl, ok := r.los.FindMax(id)
	if !ok {
		return Outside
	}
	if sh, ok := r.his.FindMax(id); ok && sh >= sl {
		return Outside
	}
	return Inside
}

// IsIn id 是否被某个区间覆盖（含端点）
func (r *Range) IsIn(id uint64) bool { return r.Classify(id) != Outside }

// GetNext 按升序返回下一个区间；遍历结束后 ok 为 false，直到 Reset
func (r *Range) GetNext() (lo, hi uint64, ok bool) {
	if r.done {
		return 0, 0, false
	}
	lo, ok = r.los.FindMin(r.cursor)
	if !ok {
		r.done = true
		return 0, 0, false
	}
	hi, _ = r.his.FindMin(lo)
	if hi == math.MaxUint64 {
		r.done = true
	} else {
		r.cursor = hi + 1
	}
	return lo, hi, true
}

// Reset 回卷 GetNext 游标，不影响数据
func (r *Range) Reset() {
	r.cursor = 0
	r.done = false
}

// Purge 清空全部区间并回卷游标
func (r *Range) Purge() {
	r.los.Clear()
	r.his.Clear()
	r.Reset()
}

// Intervals 全部区间快照（升序）
func (r *Range) Intervals() []Interval {
	los, his := r.los.Keys(), r.his.Keys()
	out := make([]Interval, len(los))
	for i := range los {
		out[i] = Interval{Lo: los[i], Hi: his[i]}
	}
	return out
}

// Count 覆盖的 id 总数
func (r *Range) Count() uint64 {
	var n uint64
	for _, iv := range r.Intervals() {
		n += iv.Hi - iv.Lo + 1
	}
	return n
}

// Union 并入另一个集合
func (r *Range) Union(o *Range) {
	if o == nil {
		return
	}
	for _, iv := range o.Intervals() {
		r.Merge(iv.Lo, iv.Hi)
	}
}

func (r *Range) Clone() *Range {
	c := New()
	c.Union(r)
	return c
}

func (r *Range) gaps() []uint64 {
	ivs := r.Intervals()
	if len(ivs) < 2 {
		return nil
	}
	gs := make([]uint64, 0, len(ivs)-1)
	for i := 1; i < len(ivs); i++ {
		gs = append(gs, ivs[i].Lo-ivs[i-1].Hi-1)
	}
	return gs
}

// BestGap 使 Defrag 之后区间数不超过 limit 的最小缺口宽度
func (r *Range) BestGap(limit int) uint64 {
	limit = max(limit, 1)
	gs := r.gaps()
	n := len(gs) + 1
	if len(gs) == 0 || n <= limit {
		return 0
	}
	slices.Sort(gs)
	return gs[n-limit-1]
}

// Defrag 合并缺口宽度不超过 gap 的相邻区间
func (r *Range) Defrag(gap uint64) {
	ivs := r.Intervals()
	if len(ivs) < 2 {
		return
	}
	for i := 1; i < len(ivs); i++ {
		if ivs[i].Lo-ivs[i-1].Hi-1 <= gap {
			r.Merge(ivs[i-1].Hi, ivs[i].Lo)
		}
	}
}

// Format 每行输出 "lo hi"；fn 为空时按十进制输出
func (r *Range) Format(w io.Writer, fn func(uint64) string) error {
	if fn == nil {
		fn = func(id uint64) string { return strconv.FormatUint(id, 10) }
	}
	bw := bufio.NewWriter(w)
	for _, iv := range r.Intervals() {
		bw.WriteString(fn(iv.Lo))
		bw.WriteByte(' ')
		bw.WriteString(fn(iv.Hi))
		bw.WriteByte('\n')
	}
	return bw.Flush()
}
