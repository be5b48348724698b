package spatial

import (
	"math"
	"math/rand"
	"testing"

	"github.com/golang/geo/s1"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	vx = NewVector(1, 0, 0)
	vy = NewVector(0, 1, 0)
	vz = NewVector(0, 0, 1)
)

// 北半球第一个根三角形 (v1, v0, v4)
func rootN0() (Vector, Vector, Vector) {
	return vx, vz, vy.Neg()
}

func n0Center() Vector {
	a, b, c := rootN0()
	return a.Add(b).Add(c).Normalize()
}

func TestConstraintSign(t *testing.T) {
	assert.Equal(t, Pos, NewCap(vz, 10*s1.Degree).Sign())
	assert.Equal(t, Zero, NewConstraint(vz, 0).Sign())
	assert.Equal(t, Neg, NewCap(vz, 100*s1.Degree).Sign())
	assert.Equal(t, "mixed", Mixed.String())
}

func TestCapArcmin(t *testing.T) {
	c := NewCapArcmin(10, 20, 60)
	assert.InDelta(t, 1.0, c.Angle().Degrees(), 1e-9)
	assert.True(t, c.Contains(NewVectorRaDec(10, 20.5)))
	assert.False(t, c.Contains(NewVectorRaDec(10, 21.5)))
}

func TestConstraintInvert(t *testing.T) {
	c := NewCap(vz, 10*s1.Degree)
	h := c.Invert()
	assert.Equal(t, Neg, h.Sign())
	assert.False(t, h.Contains(vz))
	assert.True(t, h.Contains(vz.Neg()))
}

func TestZeroCapContainsCenter(t *testing.T) {
	rnd := rand.New(rand.NewSource(7))
	for i := 0; i < 5000; i++ {
		p := NewVectorRaDec(rnd.Float64()*360, (rnd.Float64()*2-1)*90)
		c := NewCap(p, 0)
		require.True(t, c.Contains(p), "center %v", p)
		step := 0.001
		if p.Dec() > 0 {
			step = -step
		}
		assert.False(t, c.Contains(NewVectorRaDec(p.RA(), p.Dec()+step)))
	}
}

func TestConvexAddKeepsOrder(t *testing.T) {
	c := NewConvex(
		NewCap(vz, 30*s1.Degree),
		NewCap(vz, 5*s1.Degree),
		NewConstraint(vx, 0),
		NewCap(vz, 10*s1.Degree),
	)
	cs := c.Constraints()
	require.Len(t, cs, 4)
	for i := 1; i < len(cs); i++ {
		assert.LessOrEqual(t, cs[i-1].Angle(), cs[i].Angle())
	}
	assert.Equal(t, Pos, c.Sign())

	m := NewConvex(NewCap(vz, 10*s1.Degree), NewCap(vx, 120*s1.Degree))
	assert.Equal(t, Mixed, m.Sign())
}

func TestConvexSimplify(t *testing.T) {
	t.Run("disjoint caps", func(t *testing.T) {
		c := NewConvex(NewCapArcmin(0, 0, 300), NewCapArcmin(90, 0, 300))
		c.Simplify()
		assert.True(t, c.Empty())
		assert.False(t, c.Contains(NewVectorRaDec(0, 0)))
	})
	t.Run("nested caps", func(t *testing.T) {
		c := NewConvex(NewCap(vz, 10*s1.Degree), NewCap(vz, 5*s1.Degree))
		c.Simplify()
		require.Equal(t, 1, c.Len())
		assert.InDelta(t, 5, c.Constraints()[0].Angle().Degrees(), 1e-9)
	})
	t.Run("cap inside hole", func(t *testing.T) {
		cen := n0Center()
		c := NewConvex(NewCap(cen, 10*s1.Degree), NewCap(cen, 20*s1.Degree).Invert())
		c.Simplify()
		assert.True(t, c.Empty())
	})
	t.Run("hole outside cap is dropped", func(t *testing.T) {
		c := NewConvex(NewCap(vz, 10*s1.Degree), NewCap(vx, 10*s1.Degree).Invert())
		c.Simplify()
		require.Equal(t, 1, c.Len())
		assert.Equal(t, Pos, c.Sign())
	})
	t.Run("opposite hemispheres", func(t *testing.T) {
		c := NewConvex(NewConstraint(vz, 0), NewConstraint(vz.Neg(), 0))
		c.Simplify()
		assert.True(t, c.Empty())
	})
	t.Run("lune with redundant hemisphere", func(t *testing.T) {
		c := NewConvex(NewConstraint(vz, 0), NewConstraint(vy, 0), NewConstraint(vy.Add(vz), 0))
		c.Simplify()
		require.False(t, c.Empty())
		assert.Equal(t, 2, c.Len())
		assert.True(t, c.Contains(NewVector(0, 1, 1)))
	})
	t.Run("coplanar normals leave no area", func(t *testing.T) {
		c := NewConvex(
			NewConstraint(vx, 0),
			NewConstraint(NewVector(math.Cos(2*math.Pi/3), math.Sin(2*math.Pi/3), 0), 0),
			NewConstraint(NewVector(math.Cos(4*math.Pi/3), math.Sin(4*math.Pi/3), 0), 0),
		)
		c.Simplify()
		assert.True(t, c.Empty())
	})
	t.Run("triangle corners", func(t *testing.T) {
		c := NewTriangleConvex(NewVectorRaDec(0, 0), NewVectorRaDec(10, 0), NewVectorRaDec(5, 10))
		c.Simplify()
		require.Len(t, c.Corners(), 3)
		assert.True(t, c.Contains(NewVectorRaDec(5, 3)))
		assert.False(t, c.Contains(NewVectorRaDec(5, 11)))
	})
}

func TestTriangleConvexCollinear(t *testing.T) {
	c := NewTriangleConvex(NewVectorRaDec(0, 0), NewVectorRaDec(10, 0), NewVectorRaDec(20, 0))
	assert.Equal(t, 0, c.Len())
}

func TestRectangleConvex(t *testing.T) {
	// 角点顺序打乱
	c := NewRectangleConvex(
		NewVectorRaDec(10, 10), NewVectorRaDec(20, 20),
		NewVectorRaDec(20, 10), NewVectorRaDec(10, 20),
	)
	assert.Equal(t, 4, c.Len())
	c.Simplify()
	assert.True(t, c.Contains(NewVectorRaDec(15, 15)))
	assert.False(t, c.Contains(NewVectorRaDec(25, 15)))
	assert.Len(t, c.Corners(), 4)
}

func TestClassify(t *testing.T) {
	v0, v1, v2 := rootN0()
	cen := n0Center()
	far0, far1, far2 := vx.Neg(), vz.Neg(), vy.Neg()

	cases := []struct {
		name   string
		convex *Convex
		tri    [3]Vector
		want   Markup
	}{
		{"whole sphere", NewConvex(), [3]Vector{v0, v1, v2}, Full},
		{"big cap covers", NewConvex(NewCap(cen, 80*s1.Degree)), [3]Vector{v0, v1, v2}, Full},
		{"small cap inside", NewConvex(NewCap(cen, 10*s1.Degree)), [3]Vector{v0, v1, v2}, Partial},
		{"small cap far away", NewConvex(NewCap(cen, 10*s1.Degree)), [3]Vector{far0, far1, far2}, Reject},
		{"cap on a vertex", NewConvex(NewCap(vz, 5*s1.Degree)), [3]Vector{v0, v1, v2}, Partial},
		{"hole in triangle", NewConvex(NewCap(cen, 10*s1.Degree).Invert()), [3]Vector{v0, v1, v2}, Partial},
		{"hole elsewhere", NewConvex(NewCap(vx.Neg(), 10*s1.Degree).Invert()), [3]Vector{v0, v1, v2}, Full},
		{"hemisphere", NewConvex(NewConstraint(vz, 0)), [3]Vector{v0, v1, v2}, Full},
		{"opposite hemisphere", NewConvex(NewConstraint(vy, 0)), [3]Vector{v0, v1, v2}, Partial},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			c.convex.Simplify()
			assert.Equal(t, c.want, c.convex.Classify(c.tri[0], c.tri[1], c.tri[2]))
		})
	}
}

func TestClassifyZeroConvex(t *testing.T) {
	c := NewTriangleConvex(NewVectorRaDec(0, 0), NewVectorRaDec(40, 0), NewVectorRaDec(20, 40))
	c.Simplify()

	// 完全在内
	in := [3]Vector{NewVectorRaDec(15, 5), NewVectorRaDec(25, 5), NewVectorRaDec(20, 15)}
	assert.Equal(t, Full, c.Classify(in[0], in[1], in[2]))

	// 远离
	far := [3]Vector{NewVectorRaDec(180, -10), NewVectorRaDec(200, -10), NewVectorRaDec(190, -30)}
	assert.Equal(t, Reject, c.Classify(far[0], far[1], far[2]))

	// 细长三角形横穿区域，顶点全在外
	thin := [3]Vector{NewVectorRaDec(20, -20), NewVectorRaDec(25, -20), NewVectorRaDec(22.5, 80)}
	assert.Equal(t, Partial, c.Classify(thin[0], thin[1], thin[2]))
}

func TestEmptyConvexRejects(t *testing.T) {
	c := NewConvex(NewCapArcmin(0, 0, 60), NewCapArcmin(180, 0, 60))
	c.Simplify()
	v0, v1, v2 := rootN0()
	assert.Equal(t, Reject, c.Classify(v0, v1, v2))
}

func TestDomainContains(t *testing.T) {
	a := NewConvex(NewCapArcmin(0, 0, 60))
	b := NewConvex(NewCapArcmin(90, 0, 60))
	e := NewConvex(NewCapArcmin(0, 0, 60), NewCapArcmin(180, 0, 60))
	d := NewDomain(a, b, e)
	d.Simplify()
	assert.Equal(t, 2, d.Len())
	assert.True(t, d.Contains(NewVectorRaDec(0, 0.5)))
	assert.True(t, d.Contains(NewVectorRaDec(90, -0.5)))
	assert.False(t, d.Contains(NewVectorRaDec(45, 0)))
}
