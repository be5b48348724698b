package spatial

import (
	"math"
	"testing"

	"github.com/golang/geo/s1"
	"github.com/stretchr/testify/assert"
)

func TestVectorRaDecRoundTrip(t *testing.T) {
	cases := []struct{ ra, dec float64 }{
		{0, 0}, {90, 0}, {180, 45}, {359.5, -30}, {12.25, 89}, {271, -89.5},
	}
	for _, c := range cases {
		v := NewVectorRaDec(c.ra, c.dec)
		assert.InDelta(t, 1, v.Length(), 1e-15)
		assert.InDelta(t, c.ra, v.RA(), 1e-9)
		assert.InDelta(t, c.dec, v.Dec(), 1e-9)
	}
}

func TestVectorPoles(t *testing.T) {
	v := NewVectorRaDec(123, 90)
	assert.InDelta(t, 90, v.Dec(), 1e-12)
	assert.InDelta(t, 1, v.Z(), 1e-15)
}

func TestVectorNormalize(t *testing.T) {
	v := NewVector(3, 0, 4)
	assert.InDelta(t, 0.6, v.X(), 1e-15)
	assert.InDelta(t, 0.8, v.Z(), 1e-15)

	z := NewVector(0, 0, 0)
	assert.True(t, z.IsZero())
}

func TestVectorAngleClamped(t *testing.T) {
	a := NewVector(1, 0, 0)
	assert.Equal(t, s1.Angle(0), a.Angle(a))
	assert.InDelta(t, math.Pi, a.Angle(a.Neg()).Radians(), 1e-15)
	assert.InDelta(t, math.Pi/2, a.Angle(NewVector(0, 1, 0)).Radians(), 1e-15)
	assert.False(t, math.IsNaN(a.Mul(1+1e-15).Angle(a).Radians()))
}

func TestVectorCrossAndMid(t *testing.T) {
	x, y := NewVector(1, 0, 0), NewVector(0, 1, 0)
	assert.True(t, x.Cross(y).Approx(NewVector(0, 0, 1), 1e-15))
	m := x.Mid(y)
	assert.InDelta(t, math.Sqrt2/2, m.X(), 1e-15)
	assert.InDelta(t, math.Sqrt2/2, m.Y(), 1e-15)
}

func TestVectorSetRecomputes(t *testing.T) {
	var v Vector
	v.SetRaDec(10, 20)
	v.Set(0, 2, 0)
	assert.InDelta(t, 90, v.RA(), 1e-12)
	assert.InDelta(t, 0, v.Dec(), 1e-12)
	assert.Equal(t, "0 1 0", v.String())
}
