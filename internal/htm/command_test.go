package htm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecLookup(t *testing.T) {
	h := NewInterface()
	ctx := context.Background()

	r, err := h.Exec(ctx, "J2000 5 10 20")
	require.NoError(t, err)
	assert.Equal(t, uint64(16092), r.ID)
	assert.Equal(t, "N323130", r.Name)

	r, err = h.Exec(ctx, "CARTESIAN 0 1 0 0")
	require.NoError(t, err)
	assert.Equal(t, uint64(8), r.ID)

	r, err = h.Exec(ctx, "NAME N323130")
	require.NoError(t, err)
	assert.Equal(t, uint64(16092), r.ID)

	r, err = h.Exec(ctx, "ID 16092")
	require.NoError(t, err)
	assert.Equal(t, "N323130", r.Name)
}

func TestExecRegions(t *testing.T) {
	h := NewInterface()
	ctx := context.Background()

	r, err := h.Exec(ctx, "J2000 6 10 20 60")
	require.NoError(t, err)
	require.NotEmpty(t, r.Ranges)
	assert.LessOrEqual(t, len(r.Ranges), MaxRanges)

	x := mustIndex(t, 6)
	leaf := x.IDByRaDec(10, 20)
	found := false
	for _, iv := range r.Ranges {
		if iv.Lo <= leaf && leaf <= iv.Hi {
			found = true
		}
	}
	assert.True(t, found)

	r, err = h.Exec(ctx, "J2000 6 10 10 20 10 20 20 10 20")
	require.NoError(t, err)
	assert.NotEmpty(t, r.Ranges)

	r, err = h.Exec(ctx, "DOMAIN 4 2 1 0 0 1 0.9 1 1 0 0 0.9")
	require.NoError(t, err)
	assert.NotEmpty(t, r.Ranges)

	// 空凸区域（无约束）覆盖整个天球
	r, err = h.Exec(ctx, "DOMAIN 2 1 0")
	require.NoError(t, err)
	require.Len(t, r.Ranges, 1)
	assert.Equal(t, uint64(128), r.Ranges[0].Lo)
	assert.Equal(t, uint64(255), r.Ranges[0].Hi)
}

func TestExecMaxRangesDefrag(t *testing.T) {
	h := NewInterface()
	h.maxRanges = 3
	r, err := h.Exec(context.Background(), "J2000 8 120 -30 240")
	require.NoError(t, err)
	assert.LessOrEqual(t, len(r.Ranges), 3)
}

func TestExecErrors(t *testing.T) {
	h := NewInterface()
	ctx := context.Background()
	for _, cmd := range []string{
		"",
		"FOO 1 2",
		"J2000",
		"J2000 x 1 2",
		"J2000 26 10 20",
		"J2000 5 10",
		"J2000 5 10 20 30 40",
		"J2000 5 0 0 10 0 20 0",
		"NAME",
		"NAME Q12",
		"ID abc",
		"ID 5",
		"DOMAIN 3 1 1 0 0 1",
		"DOMAIN 3 1 0 extra",
	} {
		_, err := h.Exec(ctx, cmd)
		var ie *InterfaceError
		assert.True(t, errors.As(err, &ie), "command %q: %v", cmd, err)
	}
	_, err := h.Exec(ctx, "J2000 26 10 20")
	assert.ErrorIs(t, err, ErrDepth)
}

func TestParseDomain(t *testing.T) {
	depth, d, err := ParseDomain("domain 4 2 1 0 0 1 0.5 0")
	require.NoError(t, err)
	assert.Equal(t, 4, depth)
	require.Equal(t, 2, d.Len())
	assert.Equal(t, 1, d.Convexes()[0].Len())
	assert.True(t, d.Convexes()[1].Whole())

	for _, cmd := range []string{"", "J2000 4 1 2", "DOMAIN 4 1 1 0 0", "DOMAIN 30 0"} {
		_, _, err := ParseDomain(cmd)
		var ie *InterfaceError
		assert.True(t, errors.As(err, &ie), "command %q", cmd)
	}
}
