package spatial

import (
	"math"
	"slices"

	"github.com/golang/geo/s1"
)

// Markup 三角形相对凸区域的分类结果
type Markup int

const (
	// Reject 与区域不相交
	Reject Markup = iota
	// Partial 部分相交或无法判定
	Partial
	// Full 完全位于区域内
	Full
	// dontKnow 内部中间态，对外一律折算为 Partial
	dontKnow
)

func (m Markup) String() string {
	switch m {
	case Reject:
		return "reject"
	case Partial:
		return "partial"
	case Full:
		return "full"
	}
	return "dontknow"
}

// 文档注释：凸区域（约束的交集）
// 背景：约束按开角升序保存，索引 0 恒为最小球冠，分类流程依赖这一顺序；
//
//	全部为大圆约束（Zero）时额外维护按逆时针排列的角点与外接圆。
//
// 约束：没有约束即整个天球；Simplify 发现矛盾后 Empty 返回 true，Contains 恒为 false。
type Convex struct {
	constraints []Constraint
	corners     []Vector
	bc          Constraint
	sign        Sign
	empty       bool
}

// NewConvex 由若干约束构造（未化简）
func NewConvex(cs ...Constraint) *Convex {
	c := &Convex{}
	for _, x := range cs {
		c.Add(x)
	}
	return c
}

// NewTriangleConvex 由三个角点构造；三点共线时不产生任何约束
func NewTriangleConvex(v1, v2, v3 Vector) *Convex {
	c := &Convex{}
	a1 := v2.Cross(v3)
	a2 := v3.Cross(v1)
	a3 := v1.Cross(v2)
	s1 := a1.Dot(v1)
	s2 := a2.Dot(v2)
	s3 := a3.Dot(v3)
	if s1*s2*s3 != 0 {
		if s1 < 0 {
			a1 = a1.Neg()
		}
		if s2 < 0 {
			a2 = a2.Neg()
		}
		if s3 < 0 {
			a3 = a3.Neg()
		}
		c.Add(NewConstraint(a1, 0))
		c.Add(NewConstraint(a2, 0))
		c.Add(NewConstraint(a3, 0))
	}
	return c
}

// 文档注释：由四个角点（任意顺序）构造四边形区域
// 背景：六条候选大圆中，另外两个角点同侧者即为边；其中一点落在另三点三角形内时只得到三条边。
// 约束：三点共线时补齐第三条边；四点共线不产生约束。
func NewRectangleConvex(v1, v2, v3, v4 Vector) *Convex {
	c := &Convex{}
	v := [4]Vector{v1, v2, v3, v4}
	var d [6]Vector
	var s [6][2]float64
	k := 0
	for i := 0; i < 4; i++ {
		for j := i + 1; j < 4; j++ {
			d[k] = v[i].Cross(v[j]).Normalize()
			m := 0
			for l := 0; l < 4; l++ {
				if l != i && l != j {
					s[k][m] = d[k].Dot(v[l])
					m++
				}
			}
			k++
		}
	}
	for i := 0; i < 6; i++ {
		if s[i][0]*s[i][1] > 0 {
			dir := d[i]
			if s[i][0] < 0 {
				dir = dir.Neg()
			}
			c.Add(NewConstraint(dir, 0))
		}
	}
	if len(c.constraints) == 2 {
		for i := 0; i < 6; i++ {
			if s[i][0] == 0 || s[i][1] == 0 {
				dir := d[i]
				if s[i][0]+s[i][1] < 0 {
					dir = dir.Neg()
				}
				c.Add(NewConstraint(dir, 0))
				break
			}
		}
	}
	return c
}

// Add 追加约束并维持开角升序与整体符号
func (c *Convex) Add(x Constraint) {
	i, _ := slices.BinarySearchFunc(c.constraints, x.s, func(e Constraint, s float64) int {
		if e.s <= s {
			return -1
		}
		return 1
	})
	c.constraints = slices.Insert(c.constraints, i, x)
	if len(c.constraints) == 1 {
		c.sign = x.sign
		return
	}
	switch c.sign {
	case Neg:
		if x.sign == Pos {
			c.sign = Mixed
		}
	case Pos:
		if x.sign == Neg {
			c.sign = Mixed
		}
	case Zero:
		c.sign = x.sign
	}
}

func (c *Convex) Constraints() []Constraint { return slices.Clone(c.constraints) }

// Corners 大圆区域化简后的角点（逆时针）
func (c *Convex) Corners() []Vector { return slices.Clone(c.corners) }

func (c *Convex) Sign() Sign { return c.sign }

func (c *Convex) Len() int { return len(c.constraints) }

// Empty 区域经化简判定为空
func (c *Convex) Empty() bool { return c.empty }

// Whole 没有任何约束，覆盖整个天球
func (c *Convex) Whole() bool { return !c.empty && len(c.constraints) == 0 }

// Contains 向量是否满足全部约束
func (c *Convex) Contains(v Vector) bool {
	if c.empty {
		return false
	}
	for _, x := range c.constraints {
		if !x.Contains(v) {
			return false
		}
	}
	return true
}

func (c *Convex) setEmpty() {
	c.empty = true
	c.constraints = nil
	c.corners = nil
}

func (c *Convex) remove(i int) {
	c.constraints = slices.Delete(c.constraints, i, i+1)
}

func (c *Convex) resign() {
	cs := c.constraints
	c.constraints = nil
	for _, x := range cs {
		c.Add(x)
	}
}

// testConstraints 两约束的球冠关系：-1 不相交，1 表示 j 在 i 内，2 表示 i 在 j 内，0 相交
func testConstraints(ci, cj Constraint) int {
	phi := ci.dir.Dot(cj.dir)
	if ci.sign == Neg {
		phi = -phi
	}
	if cj.sign == Neg {
		phi = -phi
	}
	phi = Acos(phi)
	a1, a2 := ci.s, cj.s
	if ci.sign == Neg {
		a1 = math.Pi - a1
	}
	if cj.sign == Neg {
		a2 = math.Pi - a2
	}
	switch {
	case phi > a1+a2:
		return -1
	case a1 > phi+a2:
		return 1
	case a2 > phi+a1:
		return 2
	}
	return 0
}

// 文档注释：化简
// 背景：两两比较约束：互斥的正冠使区域为空，嵌套的冠去掉冗余者，负冠（洞）完全包住正冠时区域为空；
//
//	全大圆区域转入角点计算。
//
// 约束：可重复调用；空区域不再变化。
func (c *Convex) Simplify() {
	if c.empty {
		return
	}
	if c.sign == Zero {
		c.simplify0()
		return
	}
	for changed := true; changed; {
		changed = false
	scan:
		for i := 0; i < len(c.constraints); i++ {
			for j := i + 1; j < len(c.constraints); j++ {
				ci, cj := c.constraints[i], c.constraints[j]
				if ci.sign == Zero && cj.sign == Zero {
					continue
				}
				test := testConstraints(ci, cj)
				switch {
				case ci.sign != Neg && cj.sign != Neg:
					switch test {
					case -1:
						c.setEmpty()
						return
					case 1:
						c.remove(i)
					case 2:
						c.remove(j)
					default:
						continue
					}
				case ci.sign == Neg && cj.sign == Neg:
					switch test {
					case 1:
						c.remove(j)
					case 2:
						c.remove(i)
					default:
						continue
					}
				default:
					neg, posInNeg := i, test == 1
					if cj.sign == Neg {
						neg, posInNeg = j, test == 2
					}
					switch {
					case test == -1:
						c.remove(neg)
					case posInNeg:
						c.setEmpty()
						return
					default:
						continue
					}
				}
				changed = true
				break scan
			}
		}
	}
	c.resign()
	if c.sign == Zero {
		c.simplify0()
		return
	}
	c.bc = c.constraints[0]
}

// 文档注释：全大圆区域化简
// 背景：两两大圆交于 ±(a_i × a_j)，落在其余全部半球内的交点即角点；不在任何角点上的约束冗余。
// 约束：角点少于三个时区域要么退化（按空处理）要么是两条大圆围成的月牙形。
func (c *Convex) simplify0() {
	c.corners = nil
	switch len(c.constraints) {
	case 0:
		return
	case 1:
		c.bc = c.constraints[0]
		return
	}

	// 相同约束去重，相反约束使区域退化为大圆
	for i := 0; i < len(c.constraints); i++ {
		for j := len(c.constraints) - 1; j > i; j-- {
			ai, aj := c.constraints[i].dir, c.constraints[j].dir
			if ai.Approx(aj, Epsilon) {
				c.remove(j)
				continue
			}
			if ai.Approx(aj.Neg(), Epsilon) {
				c.setEmpty()
				return
			}
		}
	}

	switch len(c.constraints) {
	case 1:
		c.bc = c.constraints[0]
		return
	case 2:
		c.bc = NewConstraint(c.constraints[0].dir.Add(c.constraints[1].dir), 0)
		return
	}

	n := len(c.constraints)
	onCorner := make([]bool, n)
	var corners []Vector
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			x := c.constraints[i].dir.Cross(c.constraints[j].dir).Normalize()
			if x.IsZero() {
				continue
			}
			for _, v := range [2]Vector{x, x.Neg()} {
				ok := true
				for k := 0; k < n && ok; k++ {
					if k != i && k != j && v.Dot(c.constraints[k].dir) < -Epsilon {
						ok = false
					}
				}
				if !ok {
					continue
				}
				onCorner[i], onCorner[j] = true, true
				if !slices.ContainsFunc(corners, func(w Vector) bool { return w.Approx(v, 1e-12) }) {
					corners = append(corners, v)
				}
			}
		}
	}

	switch {
	case len(corners) == 2 && corners[0].Approx(corners[1].Neg(), 1e-12):
		c.reduceLune(corners[0])
		return
	case len(corners) < 3:
		c.setEmpty()
		return
	}

	kept := c.constraints[:0]
	for i, x := range c.constraints {
		if onCorner[i] {
			kept = append(kept, x)
		}
	}
	c.constraints = kept

	center := Vector{}
	for _, v := range corners {
		center = center.Add(v)
	}
	center = center.Normalize()
	e1, e2 := tangentFrame(center)
	slices.SortFunc(corners, func(a, b Vector) int {
		pa := math.Atan2(a.Dot(e2), a.Dot(e1))
		pb := math.Atan2(b.Dot(e2), b.Dot(e1))
		switch {
		case pa < pb:
			return -1
		case pa > pb:
			return 1
		}
		return 0
	})
	c.corners = corners

	var radius s1.Angle
	for _, v := range corners {
		radius = max(radius, center.Angle(v))
	}
	if center.IsZero() || radius.Radians() >= math.Pi/2-1e-9 {
		c.bc = c.constraints[0]
		return
	}
	c.bc = NewCap(center, radius)
}

// reduceLune 角点只有一对对径点 ±v 时，全部约束的边界都经过 v，区域是两条子午大圆间的月牙
func (c *Convex) reduceLune(v Vector) {
	e1, e2 := tangentFrame(v)
	theta0 := math.Atan2(c.constraints[0].dir.Dot(e2), c.constraints[0].dir.Dot(e1))
	lo, hi := -math.Pi/2, math.Pi/2
	loIdx, hiIdx := 0, 0
	for k, x := range c.constraints {
		d := math.Atan2(x.dir.Dot(e2), x.dir.Dot(e1)) - theta0
		for d <= -math.Pi {
			d += 2 * math.Pi
		}
		for d > math.Pi {
			d -= 2 * math.Pi
		}
		if d-math.Pi/2 > lo {
			lo, loIdx = d-math.Pi/2, k
		}
		if d+math.Pi/2 < hi {
			hi, hiIdx = d+math.Pi/2, k
		}
	}
	if hi-lo <= 1e-12 || loIdx == hiIdx {
		c.setEmpty()
		return
	}
	a, b := c.constraints[loIdx], c.constraints[hiIdx]
	c.constraints = []Constraint{a, b}
	c.resign()
	c.bc = NewConstraint(a.dir.Add(b.dir), 0)
}

// tangentFrame 与 n 正交的右手基 (e1, e2)，满足 e1×e2 = n
func tangentFrame(n Vector) (Vector, Vector) {
	ref := NewVector(1, 0, 0)
	if math.Abs(n.X()) > 0.9 {
		ref = NewVector(0, 1, 0)
	}
	e1 := ref.Cross(n).Normalize()
	e2 := n.Cross(e1).Normalize()
	return e1, e2
}

// 文档注释：三角形分类
// 背景：先数顶点落在区域内的个数；三点全在时检查洞与负冠边界，全不在时依次用外接圆、
//
//	边与圆交、最小球冠中心等测试排除。
//
// 约束：顶点需逆时针排列；无法判定一律返回 Partial，边界相切同样视为 Partial。
func (c *Convex) Classify(v0, v1, v2 Vector) Markup {
	if c.empty {
		return Reject
	}
	m := c.classify(v0, v1, v2)
	if m == dontKnow {
		return Partial
	}
	return m
}

func (c *Convex) classify(v0, v1, v2 Vector) Markup {
	vsum := 0
	for _, v := range [3]Vector{v0, v1, v2} {
		if c.Contains(v) {
			vsum++
		}
	}
	switch vsum {
	case 1, 2:
		return Partial
	case 3:
		if c.sign == Pos || c.sign == Zero {
			return Full
		}
		if c.testHole(v0, v1, v2) || c.testEdge(v0, v1, v2) {
			return Partial
		}
		return Full
	}

	if !c.testBoundingCircle(v0, v1, v2) {
		return Reject
	}

	if c.sign == Pos || c.sign == Mixed || (c.sign == Zero && len(c.constraints) <= 2) {
		if c.testEdgeConstraint(v0, v1, v2, 0) {
			if k := c.testOtherPosNone(v0, v1, v2); k > 0 {
				if testVectorInside(v0, v1, v2, c.constraints[k].dir) {
					return Partial
				}
				if c.constraints[k].Contains(v0) {
					return Partial
				}
				return Reject
			}
			if c.sign == Pos || c.sign == Zero {
				return Partial
			}
			return dontKnow
		}
		if c.sign == Pos || c.sign == Zero {
			if testVectorInside(v0, v1, v2, c.constraints[0].dir) {
				return Partial
			}
			return Reject
		}
		return dontKnow
	}
	if c.sign == Zero {
		if len(c.corners) > 0 && c.testEdge0(v0, v1, v2) {
			return Partial
		}
		return Reject
	}
	return Partial
}

// testHole 负约束的洞心落在三角形内
func (c *Convex) testHole(v0, v1, v2 Vector) bool {
	for _, x := range c.constraints {
		if x.sign != Neg {
			continue
		}
		if v0.Cross(v1).Dot(x.dir) > 0 || v1.Cross(v2).Dot(x.dir) > 0 || v2.Cross(v0).Dot(x.dir) > 0 {
			continue
		}
		return true
	}
	return false
}

func (c *Convex) testEdge(v0, v1, v2 Vector) bool {
	for i, x := range c.constraints {
		if x.sign == Neg && c.testEdgeConstraint(v0, v1, v2, i) {
			return true
		}
	}
	return false
}

func (c *Convex) testEdgeConstraint(v0, v1, v2 Vector, i int) bool {
	x := c.constraints[i]
	return arcCrossesCircle(v0, v1, x) || arcCrossesCircle(v1, v2, x) || arcCrossesCircle(v2, v0, x)
}

func (c *Convex) testOtherPosNone(v0, v1, v2 Vector) int {
	for i := 1; i < len(c.constraints) && c.constraints[i].sign == Pos; i++ {
		if !c.testEdgeConstraint(v0, v1, v2, i) {
			return i
		}
	}
	return 0
}

// testBoundingCircle 三角形外接圆与区域（或其外接圆）是否可能相交
func (c *Convex) testBoundingCircle(v0, v1, v2 Vector) bool {
	center := v1.Sub(v0).Cross(v2.Sub(v1)).Normalize()
	d := s1.Angle(Acos(center.Dot(v0)))
	if c.sign == Zero {
		return center.Angle(c.bc.dir) <= d+s1.Angle(c.bc.s)
	}
	for _, x := range c.constraints {
		if center.Angle(x.dir) > d+s1.Angle(x.s) {
			return false
		}
	}
	return true
}

// 文档注释：大圆区域的边与三角形的边是否相交
// 约束：无交点时再看区域第一个角点是否落在三角形内。
func (c *Convex) testEdge0(v0, v1, v2 Vector) bool {
	tri := [3][2]Vector{{v0, v1}, {v1, v2}, {v2, v0}}
	for i := range c.corners {
		p, q := c.corners[i], c.corners[(i+1)%len(c.corners)]
		side := p.Cross(q)
		for _, e := range tri {
			x := e[0].Cross(e[1]).Cross(side).Normalize()
			if x.IsZero() {
				continue
			}
			for _, y := range [2]Vector{x, x.Neg()} {
				if onArc(p, q, y) && onArc(e[0], e[1], y) {
					return true
				}
			}
		}
	}
	return testVectorInside(v0, v1, v2, c.corners[0])
}

// onArc y 是否落在劣弧 p→q 上（含端点容差）
func onArc(p, q, y Vector) bool {
	n := p.Cross(q)
	return p.Cross(y).Dot(n) >= -Epsilon && y.Cross(q).Dot(n) >= -Epsilon
}

func testVectorInside(v0, v1, v2, v Vector) bool {
	return v0.Cross(v1).Dot(v) >= 0 && v1.Cross(v2).Dot(v) >= 0 && v2.Cross(v0).Dot(v) >= 0
}

// 文档注释：劣弧 p→q 是否穿过约束的边界圆
// 背景：沿弧的点积 v·a 是正弦曲线，取两端与弧内极值（a 在弧所在平面上的投影方向及其反向）得到取值区间，
//
//	边界值 d 落在区间内即相交。
//
// 约束：弧退化为一点时视为不相交。
func arcCrossesCircle(p, q Vector, x Constraint) bool {
	n := p.Cross(q).Normalize()
	if n.IsZero() {
		return false
	}
	dp, dq := p.Dot(x.dir), q.Dot(x.dir)
	lo, hi := min(dp, dq), max(dp, dq)
	t := x.dir.Sub(n.Mul(x.dir.Dot(n)))
	if r := t.Length(); r > 0 {
		th := t.Mul(1 / r)
		if onArc(p, q, th) {
			hi = max(hi, r)
		}
		if onArc(p, q, th.Neg()) {
			lo = min(lo, -r)
		}
	}
	return lo <= x.d && x.d <= hi
}
