package catalog

import (
	"context"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sky-htm/internal/htmrange"
)

func allObjects(c *Catalog) []Object {
	var out []Object
	c.Each(func(o Object) bool {
		out = append(out, o)
		return true
	})
	return out
}

func TestFaceCacheRoundTrip(t *testing.T) {
	idx := newIndex(t, 4)
	c := randomCatalog(t, idx, 500, 5)
	dir := t.TempDir()
	require.NoError(t, BuildFaceFiles(dir, 4, allObjects(c)))
	for root := uint64(8); root <= 15; root++ {
		_, err := os.Stat(faceFile(dir, root))
		assert.NoError(t, err, "face %d", root)
	}

	fc, err := NewFaceCache(dir, 4)
	require.NoError(t, err)
	ivs := []htmrange.Interval{{Lo: 2048, Hi: 2600}, {Lo: 3000, Hi: 4095}}
	want, err := c.ObjectsInRanges(context.Background(), ivs)
	require.NoError(t, err)
	got, err := fc.ObjectsInRanges(context.Background(), ivs)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestFaceCacheLevelMismatch(t *testing.T) {
	idx := newIndex(t, 2)
	c := New(idx)
	c.Add(Object{RA: 10, Dec: 20, Name: "x"})
	dir := t.TempDir()
	require.NoError(t, BuildFaceFiles(dir, 2, allObjects(c)))
	fc, err := NewFaceCache(dir, 3)
	require.NoError(t, err)
	_, err = fc.ObjectsInRanges(context.Background(), []htmrange.Interval{{Lo: 512, Hi: 1023}})
	assert.Error(t, err)
}

func TestFaceCacheCorruptFallsBack(t *testing.T) {
	idx := newIndex(t, 2)
	c := New(idx)
	c.Add(Object{RA: 10, Dec: 20, Name: "x"})
	dir := t.TempDir()
	require.NoError(t, BuildFaceFiles(dir, 2, allObjects(c)))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "face-15.bin"), []byte("garbage"), 0o644))
	fc, err := NewFaceCache(dir, 2)
	require.NoError(t, err)
	ivs := []htmrange.Interval{{Lo: 240, Hi: 255}}
	_, err = fc.ObjectsInRanges(context.Background(), ivs)
	require.Error(t, err)

	got, err := NewChain(fc, c).ObjectsInRanges(context.Background(), ivs)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestDecodeShardRejectsOversizedCount(t *testing.T) {
	data := make([]byte, 12+minRecordSize)
	copy(data, faceMagic)
	binary.BigEndian.PutUint32(data[4:], 2)
	binary.BigEndian.PutUint32(data[8:], 0xFFFFFFFF)
	_, err := decodeShard(data, 2)
	assert.ErrorIs(t, err, errShardCorrupt)

	binary.BigEndian.PutUint32(data[8:], 1)
	got, err := decodeShard(data, 2)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestFaceCacheMissingShard(t *testing.T) {
	dir := t.TempDir()
	fc, err := NewFaceCache(dir, 2)
	require.NoError(t, err)
	got, err := fc.ObjectsInRanges(context.Background(), []htmrange.Interval{{Lo: 128, Hi: 255}})
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = NewFaceCache(filepath.Join(dir, "missing"), 2)
	assert.Error(t, err)
}

func TestBuildFaceFilesRejectsWrongLevel(t *testing.T) {
	err := BuildFaceFiles(t.TempDir(), 3, []Object{{ID: 1, Leaf: 8}})
	assert.Error(t, err)
}
