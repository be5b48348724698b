package htmrange

import (
	"bytes"
	"math"
	"math/rand"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collect(r *Range) []Interval {
	r.Reset()
	var out []Interval
	for {
		lo, hi, ok := r.GetNext()
		if !ok {
			return out
		}
		out = append(out, Interval{lo, hi})
	}
}

func TestMergeCoalesces(t *testing.T) {
	tests := []struct {
		name string
		in   []Interval
		want []Interval
	}{
		{"touching", []Interval{{0, 10}, {10, 20}}, []Interval{{0, 20}}},
		{"adjacent", []Interval{{0, 10}, {11, 20}}, []Interval{{0, 20}}},
		{"disjoint", []Interval{{0, 5}, {8, 9}}, []Interval{{0, 5}, {8, 9}}},
		{"contained", []Interval{{0, 100}, {10, 20}}, []Interval{{0, 100}}},
		{"covering", []Interval{{10, 20}, {30, 40}, {0, 100}}, []Interval{{0, 100}}},
		{"bridge", []Interval{{0, 5}, {20, 25}, {6, 19}}, []Interval{{0, 25}}},
		{"left overlap", []Interval{{10, 20}, {5, 12}}, []Interval{{5, 20}}},
		{"right overlap", []Interval{{10, 20}, {15, 30}}, []Interval{{10, 30}}},
		{"points", []Interval{{3, 3}, {5, 5}, {4, 4}}, []Interval{{3, 5}}},
		{"reversed bounds", []Interval{{20, 10}}, []Interval{{10, 20}}},
		{"top of range", []Interval{{math.MaxUint64 - 1, math.MaxUint64}, {0, math.MaxUint64 - 2}}, []Interval{{0, math.MaxUint64}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewFrom(tt.in...)
			assert.Equal(t, tt.want, collect(r))
			assert.Equal(t, tt.want, r.Intervals())
		})
	}
}

func TestMergeIdempotent(t *testing.T) {
	r := NewFrom(Interval{0, 5}, Interval{8, 9})
	before := r.Intervals()
	r.Merge(0, 5)
	r.Merge(8, 9)
	r.Merge(1, 4)
	assert.Equal(t, before, r.Intervals())
}

func TestMergeMatchesBruteForce(t *testing.T) {
	rnd := rand.New(rand.NewSource(7))
	for trial := 0; trial < 300; trial++ {
		r := New()
		ref := map[uint64]bool{}
		for i := 0; i < 1+rnd.Intn(12); i++ {
			a := uint64(rnd.Intn(60))
			b := a + uint64(rnd.Intn(10))
			r.Merge(a, b)
			for x := a; x <= b; x++ {
				ref[x] = true
			}
		}
		for x := uint64(0); x < 80; x++ {
			require.Equal(t, ref[x], r.IsIn(x), "trial %d id %d", trial, x)
		}
		ivs := r.Intervals()
		for i := 1; i < len(ivs); i++ {
			require.Greater(t, ivs[i].Lo, ivs[i-1].Hi+1)
		}
	}
}

func TestClassify(t *testing.T) {
	r := NewFrom(Interval{10, 20}, Interval{30, 30})
	tests := []struct {
		id   uint64
		want Classification
	}{
		{5, Outside},
		{10, ClashesAtLo},
		{15, Inside},
		{20, ClashesAtHi},
		{25, Outside},
		{30, ClashesAtLo},
		{31, Outside},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, r.Classify(tt.id), "id %d", tt.id)
	}
	assert.Equal(t, Outside, New().Classify(0))
}

func TestGetNextExhaustion(t *testing.T) {
	r := NewFrom(Interval{1, 2}, Interval{5, 6})
	lo, hi, ok := r.GetNext()
	require.True(t, ok)
	assert.Equal(t, uint64(1), lo)
	assert.Equal(t, uint64(2), hi)
	_, _, ok = r.GetNext()
	require.True(t, ok)
	_, _, ok = r.GetNext()
	assert.False(t, ok)
	_, _, ok = r.GetNext()
	assert.False(t, ok)

	// Reset 只回卷游标
	r.Reset()
	lo, _, ok = r.GetNext()
	assert.True(t, ok)
	assert.Equal(t, uint64(1), lo)
	assert.Equal(t, 2, r.Len())

	full := NewFrom(Interval{0, math.MaxUint64})
	_, hi, ok = full.GetNext()
	require.True(t, ok)
	assert.Equal(t, uint64(math.MaxUint64), hi)
	_, _, ok = full.GetNext()
	assert.False(t, ok)
}

func TestPurge(t *testing.T) {
	r := NewFrom(Interval{1, 2})
	r.Purge()
	assert.True(t, r.Empty())
	_, _, ok := r.GetNext()
	assert.False(t, ok)
}

func TestCountUnionClone(t *testing.T) {
	a := NewFrom(Interval{0, 9})
	b := NewFrom(Interval{10, 14}, Interval{100, 100})
	c := a.Clone()
	c.Union(b)
	c.Union(nil)
	assert.Equal(t, []Interval{{0, 14}, {100, 100}}, c.Intervals())
	assert.Equal(t, uint64(16), c.Count())
	assert.Equal(t, []Interval{{0, 9}}, a.Intervals())
}

func TestBestGapDefrag(t *testing.T) {
	r := NewFrom(Interval{0, 1}, Interval{4, 5}, Interval{20, 21}, Interval{23, 24})
	// 缺口：2, 14, 1
	assert.Equal(t, uint64(0), r.BestGap(4))
	assert.Equal(t, uint64(1), r.BestGap(3))
	assert.Equal(t, uint64(2), r.BestGap(2))
	assert.Equal(t, uint64(14), r.BestGap(1))

	g := r.BestGap(2)
	r.Defrag(g)
	assert.Equal(t, []Interval{{0, 5}, {20, 24}}, r.Intervals())
	r.Defrag(r.BestGap(0))
	assert.Equal(t, []Interval{{0, 24}}, r.Intervals())
}

func TestFormat(t *testing.T) {
	r := NewFrom(Interval{8, 9}, Interval{12, 12})
	var buf bytes.Buffer
	require.NoError(t, r.Format(&buf, nil))
	assert.Equal(t, "8 9\n12 12\n", buf.String())

	buf.Reset()
	require.NoError(t, r.Format(&buf, func(id uint64) string { return "#" + strconv.FormatUint(id, 16) }))
	assert.Equal(t, "#8 #9\n#c #c\n", buf.String())
}
