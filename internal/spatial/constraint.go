package spatial

import (
	"math"

	"github.com/golang/geo/s1"
)

// Sign 约束（或凸区域）的开口类型
type Sign int

const (
	// Zero 大圆（半球，d=0）
	Zero Sign = iota
	// Pos 小于半球的球冠
	Pos
	// Neg 大于半球的球冠（补集为“洞”）
	Neg
	// Mixed 同时含 Pos 与 Neg 约束的凸区域
	Mixed
)

func (s Sign) String() string {
	switch s {
	case Zero:
		return "zero"
	case Pos:
		return "pos"
	case Neg:
		return "neg"
	case Mixed:
		return "mixed"
	}
	return "unknown"
}

// 文档注释：半空间约束（球冠）
// 背景：方向向量 dir 与距离 d=cos(半开角) 定义球冠；向量 v 满足 v·dir - d >= 0 即在冠内。
// 约束：dir 构造时归一化；s 为开角（弧度）缓存，d 超出 [-1,1] 时按钳制后计算。
type Constraint struct {
	dir  Vector
	d    float64
	s    float64
	sign Sign
}

// NewConstraint 以方向与距离构造约束
func NewConstraint(dir Vector, d float64) Constraint {
	c := Constraint{dir: dir.Normalize(), d: d}
	c.s = Acos(d)
	switch {
	case d <= -Epsilon:
		c.sign = Neg
	case d >= Epsilon:
		c.sign = Pos
	default:
		c.sign = Zero
	}
	return c
}

// NewCap 以中心与角半径构造球冠
func NewCap(center Vector, radius s1.Angle) Constraint {
	return NewConstraint(center, math.Cos(radius.Radians()))
}

// NewCapArcmin 以赤经/赤纬（度）与角半径（角分）构造球冠
func NewCapArcmin(ra, dec, arcmin float64) Constraint {
	return NewConstraint(NewVectorRaDec(ra, dec), math.Cos(math.Pi*arcmin/10800.0))
}

func (c Constraint) Dir() Vector { return c.dir }

func (c Constraint) D() float64 { return c.d }

// Angle 球冠开角
func (c Constraint) Angle() s1.Angle { return s1.Angle(c.s) }

func (c Constraint) Sign() Sign { return c.sign }

// 文档注释：向量是否在此半空间内
// 约束：边界放宽 Epsilon，零半径球冠的中心点在舍入后仍判为冠内。
func (c Constraint) Contains(v Vector) bool {
	return v.Dot(c.dir)-c.d >= -Epsilon
}

// Invert 取补集（方向与距离同时取反）
func (c Constraint) Invert() Constraint {
	return NewConstraint(c.dir.Neg(), -c.d)
}
