package catalog

import (
	"math"

	"github.com/golang/geo/s1"

	"sky-htm/internal/spatial"
)

// 文档注释：最近对象查询用的 KD 树（三维单位向量）
// 背景：对象方向向量按 x/y/z 轮换中位数分割；弦长与角距单调对应，最近弦长即最近角距。
// 约束：树在目录变更后的首次查询时重建；只支持最近一个对象。
type kdNode struct {
	o    Object
	p    [3]float64
	ax   int
	l, r *kdNode
}

type kdItem struct {
	o Object
	p [3]float64
}

func buildKD(items []kdItem, depth int) *kdNode {
	if len(items) == 0 {
		return nil
	}
	ax := depth % 3
	mid := len(items) / 2
	selectNth(items, mid, ax)
	n := &kdNode{o: items[mid].o, p: items[mid].p, ax: ax}
	n.l = buildKD(items[:mid], depth+1)
	n.r = buildKD(items[mid+1:], depth+1)
	return n
}

// selectNth 原地选第 n 小（按轴 ax）
func selectNth(a []kdItem, n, ax int) {
	lo, hi := 0, len(a)-1
	for lo < hi {
		p := partition(a, lo, hi, (lo+hi)/2, ax)
		if p == n {
			return
		}
		if n < p {
			hi = p - 1
		} else {
			lo = p + 1
		}
	}
}

func partition(a []kdItem, lo, hi, pivot, ax int) int {
	pv := a[pivot].p[ax]
	a[pivot], a[hi] = a[hi], a[pivot]
	i := lo
	for j := lo; j < hi; j++ {
		if a[j].p[ax] < pv {
			a[i], a[j] = a[j], a[i]
			i++
		}
	}
	a[i], a[hi] = a[hi], a[i]
	return i
}

func chord2(a, b [3]float64) float64 {
	dx, dy, dz := a[0]-b[0], a[1]-b[1], a[2]-b[2]
	return dx*dx + dy*dy + dz*dz
}

// nearestKD 返回最近节点与弦长平方
func nearestKD(root *kdNode, q [3]float64) (*kdNode, float64) {
	var best *kdNode
	bestD := math.MaxFloat64
	var dfs func(n *kdNode)
	dfs = func(n *kdNode) {
		if n == nil {
			return
		}
		if d := chord2(q, n.p); d < bestD {
			bestD, best = d, n
		}
		diff := q[n.ax] - n.p[n.ax]
		first, second := n.l, n.r
		if diff > 0 {
			first, second = n.r, n.l
		}
		dfs(first)
		// 分割平面到查询点的距离小于当前最优距离时才遍历另一侧
		if diff*diff < bestD {
			dfs(second)
		}
	}
	dfs(root)
	return best, bestD
}

func point3(v spatial.Vector) [3]float64 { return [3]float64{v.X(), v.Y(), v.Z()} }

// 文档注释：最近对象
// 背景：返回与 v 角距最小的对象及角距；maxRadius>0 时超出半径视为未命中。
// 约束：首次调用或目录变更后重建 KD 树（持写锁）。
func (c *Catalog) Nearest(v spatial.Vector, maxRadius s1.Angle) (Object, s1.Angle, bool) {
	c.mu.Lock()
	if c.kdDirty {
		items := make([]kdItem, 0, c.tree.Len())
		c.tree.Ascend(func(p *Object) bool {
			items = append(items, kdItem{o: *p, p: point3(p.Vector())})
			return true
		})
		c.kd = buildKD(items, 0)
		c.kdDirty = false
	}
	root := c.kd
	c.mu.Unlock()
	n, d2 := nearestKD(root, point3(v.Normalize()))
	if n == nil {
		return Object{}, 0, false
	}
	ang := s1.Angle(2 * math.Asin(math.Min(1, math.Sqrt(d2)/2)))
	if maxRadius > 0 && ang > maxRadius {
		return Object{}, ang, false
	}
	return n.o, ang, true
}
