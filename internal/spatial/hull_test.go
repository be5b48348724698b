package spatial

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHullConvex(t *testing.T) {
	// 内部点与重复点不影响凸包
	c, err := NewHullConvexRaDec([]float64{
		10, 10,
		20, 10,
		20, 20,
		10, 20,
		15, 15,
		10, 10,
	})
	require.NoError(t, err)
	assert.Equal(t, Zero, c.Sign())
	assert.Equal(t, 4, c.Len())
	assert.True(t, c.Contains(NewVectorRaDec(15, 15)))
	assert.True(t, c.Contains(NewVectorRaDec(11, 19)))
	assert.False(t, c.Contains(NewVectorRaDec(25, 15)))
	assert.False(t, c.Contains(NewVectorRaDec(15, 25)))
}

func TestHullConvexErrors(t *testing.T) {
	_, err := NewHullConvexRaDec([]float64{1, 2, 3})
	assert.ErrorIs(t, err, ErrHullDegenerate)

	_, err = NewHullConvexRaDec([]float64{0, 0, 10, 0})
	assert.ErrorIs(t, err, ErrHullDegenerate)

	_, err = NewHullConvexRaDec([]float64{0, 0, 10, 0, 20, 0})
	assert.ErrorIs(t, err, ErrHullDegenerate)
}
