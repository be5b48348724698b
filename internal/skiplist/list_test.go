package skiplist

import (
	"math"
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmptyList(t *testing.T) {
	l := New()
	assert.Equal(t, 0, l.Len())
	assert.False(t, l.Has(0))
	_, ok := l.FindMax(math.MaxUint64)
	assert.False(t, ok)
	_, ok = l.FindMin(0)
	assert.False(t, ok)
	_, ok = l.Min()
	assert.False(t, ok)
	_, ok = l.Max()
	assert.False(t, ok)
	assert.False(t, l.IterAtStart().Valid())
}

func TestInsertHasDelete(t *testing.T) {
	l := NewWithSeed(1)
	for _, k := range []uint64{50, 10, 30, 20, 40} {
		assert.True(t, l.Insert(k))
	}
	assert.False(t, l.Insert(30))
	assert.Equal(t, 5, l.Len())
	assert.Equal(t, []uint64{10, 20, 30, 40, 50}, l.Keys())

	assert.True(t, l.Delete(30))
	assert.False(t, l.Delete(30))
	assert.False(t, l.Has(30))
	assert.Equal(t, []uint64{10, 20, 40, 50}, l.Keys())

	mx, ok := l.Max()
	require.True(t, ok)
	assert.Equal(t, uint64(50), mx)
	assert.True(t, l.Delete(50))
	mx, _ = l.Max()
	assert.Equal(t, uint64(40), mx)
}

func TestFindMinMax(t *testing.T) {
	l := NewWithSeed(2)
	for _, k := range []uint64{10, 20, 30} {
		l.Insert(k)
	}
	tests := []struct {
		x     uint64
		max   uint64
		maxOK bool
		min   uint64
		minOK bool
	}{
		{5, 0, false, 10, true},
		{10, 10, true, 10, true},
		{15, 10, true, 20, true},
		{30, 30, true, 30, true},
		{31, 30, true, 0, false},
	}
	for _, tt := range tests {
		mx, ok := l.FindMax(tt.x)
		assert.Equal(t, tt.maxOK, ok, "FindMax(%d)", tt.x)
		assert.Equal(t, tt.max, mx, "FindMax(%d)", tt.x)
		mn, ok := l.FindMin(tt.x)
		assert.Equal(t, tt.minOK, ok, "FindMin(%d)", tt.x)
		assert.Equal(t, tt.min, mn, "FindMin(%d)", tt.x)
	}
}

func TestFreeRange(t *testing.T) {
	l := NewWithSeed(3)
	for k := uint64(0); k < 20; k++ {
		l.Insert(k)
	}
	assert.Equal(t, 9, l.FreeRange(5, 15))
	assert.Equal(t, []uint64{0, 1, 2, 3, 4, 5, 15, 16, 17, 18, 19}, l.Keys())
	assert.Equal(t, 0, l.FreeRange(5, 6))
	assert.Equal(t, 0, l.FreeRange(15, 15))
	assert.Equal(t, 4, l.FreeRange(15, math.MaxUint64))
}

func TestClearReuse(t *testing.T) {
	l := NewWithSeed(4)
	for k := uint64(0); k < 100; k++ {
		l.Insert(k * 3)
	}
	l.Clear()
	assert.Equal(t, 0, l.Len())
	assert.Empty(t, l.Keys())
	l.Insert(7)
	assert.Equal(t, []uint64{7}, l.Keys())
}

func TestIterAt(t *testing.T) {
	l := NewWithSeed(5)
	for _, k := range []uint64{2, 4, 6} {
		l.Insert(k)
	}
	var got []uint64
	for it := l.IterAt(3); it.Valid(); it.Next() {
		got = append(got, it.Key())
	}
	assert.Equal(t, []uint64{4, 6}, got)
}

func TestRandomAgainstMap(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	l := NewWithSeed(42)
	ref := map[uint64]bool{}
	for i := 0; i < 5000; i++ {
		k := uint64(r.Intn(1000))
		if r.Intn(3) == 0 {
			assert.Equal(t, ref[k], l.Delete(k))
			delete(ref, k)
		} else {
			assert.Equal(t, !ref[k], l.Insert(k))
			ref[k] = true
		}
	}
	want := make([]uint64, 0, len(ref))
	for k := range ref {
		want = append(want, k)
	}
	sort.Slice(want, func(i, j int) bool { return want[i] < want[j] })
	assert.Equal(t, want, l.Keys())
	assert.Equal(t, len(want), l.Len())
	// 删除的槽位被复用
	assert.LessOrEqual(t, len(l.nodes), 1001)
}
