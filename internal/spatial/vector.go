// 包 spatial：天球上的单位向量、半空间约束与凸区域，作为 HTM 索引的几何基础
package spatial

import (
	"math"
	"strconv"

	"github.com/golang/geo/r3"
	"github.com/golang/geo/s1"
)

// Epsilon 几何判定容差，与索引下降、约束符号判定共用
const Epsilon = 1.0e-15

// 文档注释：天球单位向量
// 背景：以笛卡尔三元组存储，赤经/赤纬按需计算，避免两种表示不同步。
// 约束：构造与 Set 之后始终为单位长度；零向量归一化后保持 (0,0,0)，调用方需用 IsZero 守卫。
type Vector struct {
	v r3.Vector
}

// NewVector 由 (x,y,z) 构造并归一化
func NewVector(x, y, z float64) Vector {
	return Vector{v: r3.Vector{X: x, Y: y, Z: z}.Normalize()}
}

// NewVectorRaDec 由赤经/赤纬（度）构造
func NewVectorRaDec(ra, dec float64) Vector {
	var v Vector
	v.SetRaDec(ra, dec)
	return v
}

func fromR3(v r3.Vector) Vector { return Vector{v: v} }

func (a Vector) X() float64 { return a.v.X }
func (a Vector) Y() float64 { return a.v.Y }
func (a Vector) Z() float64 { return a.v.Z }

// R3 返回底层向量，供需要原始分量的调用方使用
func (a Vector) R3() r3.Vector { return a.v }

// Set 重设分量并重新归一化
func (a *Vector) Set(x, y, z float64) {
	a.v = r3.Vector{X: x, Y: y, Z: z}.Normalize()
}

// SetRaDec 以赤经/赤纬（度）重设
func (a *Vector) SetRaDec(ra, dec float64) {
	r := (s1.Angle(ra) * s1.Degree).Radians()
	d := (s1.Angle(dec) * s1.Degree).Radians()
	cd := math.Cos(d)
	a.v = r3.Vector{X: math.Cos(r) * cd, Y: math.Sin(r) * cd, Z: math.Sin(d)}
}

// RA 赤经（度），范围 [0,360)
func (a Vector) RA() float64 {
	if a.v.X == 0 && a.v.Y == 0 {
		return 0
	}
	ra := s1.Angle(math.Atan2(a.v.Y, a.v.X)).Degrees()
	if ra < 0 {
		ra += 360
	}
	if ra >= 360 {
		ra -= 360
	}
	return ra
}

// Dec 赤纬（度），范围 [-90,90]
func (a Vector) Dec() float64 {
	return s1.Angle(math.Asin(clamp(a.v.Z))).Degrees()
}

func (a Vector) IsZero() bool { return a.v.X == 0 && a.v.Y == 0 && a.v.Z == 0 }

func (a Vector) Length() float64 { return a.v.Norm() }

// Normalize 返回单位化副本；运算得到的中间向量（和、差、叉积）需显式归一化
func (a Vector) Normalize() Vector { return fromR3(a.v.Normalize()) }

func (a Vector) Dot(b Vector) float64 { return a.v.Dot(b.v) }

// Cross 叉积，结果不归一化
func (a Vector) Cross(b Vector) Vector { return fromR3(a.v.Cross(b.v)) }

func (a Vector) Add(b Vector) Vector { return fromR3(a.v.Add(b.v)) }

func (a Vector) Sub(b Vector) Vector { return fromR3(a.v.Sub(b.v)) }

func (a Vector) Mul(m float64) Vector { return fromR3(a.v.Mul(m)) }

func (a Vector) Neg() Vector { return fromR3(a.v.Mul(-1)) }

// Mid 两点所在大圆弧的中点
func (a Vector) Mid(b Vector) Vector { return fromR3(a.v.Add(b.v).Normalize()) }

// 文档注释：角距离
// 约束：点积先钳制到 [-1,1] 再取反余弦，浮点舍入不会产生 NaN。
func (a Vector) Angle(b Vector) s1.Angle {
	return s1.Angle(math.Acos(clamp(a.Dot(b))))
}

// Approx 各分量差均不超过 eps
func (a Vector) Approx(b Vector, eps float64) bool {
	return math.Abs(a.v.X-b.v.X) <= eps && math.Abs(a.v.Y-b.v.Y) <= eps && math.Abs(a.v.Z-b.v.Z) <= eps
}

func (a Vector) String() string {
	return strconv.FormatFloat(a.v.X, 'g', 17, 64) + " " +
		strconv.FormatFloat(a.v.Y, 'g', 17, 64) + " " +
		strconv.FormatFloat(a.v.Z, 'g', 17, 64)
}

func clamp(x float64) float64 {
	if x > 1 {
		return 1
	}
	if x < -1 {
		return -1
	}
	return x
}

// Acos 钳制后的反余弦
func Acos(x float64) float64 { return math.Acos(clamp(x)) }
