package store

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"sky-htm/internal/htmrange"
)

func TestRangeQuery(t *testing.T) {
	q, args := rangeQuery(6, []htmrange.Interval{{Lo: 32768, Hi: 32800}, {Lo: 40000, Hi: 40000}})
	assert.Equal(t, "SELECT id, name, ra, dec, mag, kind, htm_id FROM _sky_objects WHERE htm_level=$1 AND ("+
		"htm_id BETWEEN $2 AND $3 OR htm_id BETWEEN $4 AND $5) ORDER BY htm_id, id", q)
	assert.Equal(t, []any{6, int64(32768), int64(32800), int64(40000), int64(40000)}, args)
}

func TestRangeQuerySingle(t *testing.T) {
	q, args := rangeQuery(0, []htmrange.Interval{{Lo: 8, Hi: 15}})
	assert.Contains(t, q, "(htm_id BETWEEN $2 AND $3)")
	assert.Len(t, args, 3)
}

func TestAttachLevel(t *testing.T) {
	s := AttachDB(nil, 9)
	assert.Equal(t, 9, s.Level())
	assert.Nil(t, s.DB())
}
