package spatial

import (
	"errors"
	"fmt"

	"github.com/golang/geo/s2"
)

var (
	// ErrHullDegenerate 角点共线或不足三个
	ErrHullDegenerate = errors.New("empty hull: points on one line")
	// ErrHullHemisphere 角点不在同一半球内，凸包无法用大圆约束表示
	ErrHullHemisphere = errors.New("hull exceeds a hemisphere")
)

// 文档注释：由角点集合构造凸包区域
// 背景：凸包顶点逆时针排列，相邻顶点叉积即指向区域内侧的大圆约束。
// 约束：重复点自动去除；结果已化简。
func NewHullConvex(points []Vector) (*Convex, error) {
	q := s2.NewConvexHullQuery()
	n := 0
	for _, p := range points {
		if p.IsZero() {
			continue
		}
		q.AddPoint(s2.PointFromCoords(p.X(), p.Y(), p.Z()))
		n++
	}
	if n < 3 {
		return nil, fmt.Errorf("hull of %d points: %w", n, ErrHullDegenerate)
	}
	loop := q.ConvexHull()
	if loop.IsFull() {
		return nil, ErrHullHemisphere
	}
	if loop.IsEmpty() || loop.NumVertices() < 3 {
		return nil, ErrHullDegenerate
	}

	vs := make([]Vector, 0, loop.NumVertices())
	for _, p := range loop.Vertices() {
		vs = append(vs, fromR3(p.Vector))
	}
	c := &Convex{}
	for i := range vs {
		a := vs[i].Cross(vs[(i+1)%len(vs)])
		if a.Length() < Epsilon {
			continue
		}
		c.Add(NewConstraint(a, 0))
	}
	if c.Len() < 3 {
		return nil, ErrHullDegenerate
	}
	// 全部顶点都落在某条边的大圆上说明凸包没有面积
	for _, x := range c.constraints {
		flat := true
		for _, v := range vs {
			if v.Dot(x.dir) > 1e-12 {
				flat = false
				break
			}
		}
		if flat {
			return nil, ErrHullDegenerate
		}
	}
	c.Simplify()
	if c.Empty() {
		return nil, ErrHullDegenerate
	}
	return c, nil
}

// NewHullConvexRaDec 由赤经/赤纬（度）交替排列的列表构造凸包
func NewHullConvexRaDec(radec []float64) (*Convex, error) {
	if len(radec)%2 != 0 {
		return nil, fmt.Errorf("ra and dec list are not equal size: %w", ErrHullDegenerate)
	}
	pts := make([]Vector, 0, len(radec)/2)
	for i := 0; i+1 < len(radec); i += 2 {
		pts = append(pts, NewVectorRaDec(radec[i], radec[i+1]))
	}
	return NewHullConvex(pts)
}
