package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sky-htm/internal/htm"
)

func TestRun(t *testing.T) {
	in := strings.NewReader(`# comment
J2000 5 10 20
NAME N32

DOMAIN 2 1 0
BOGUS
`)
	var out bytes.Buffer
	failed, err := run(context.Background(), htm.NewInterface(), in, &out)
	require.NoError(t, err)
	assert.Equal(t, 1, failed)
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "16092 N323130", lines[0])
	assert.Equal(t, "62 N32", lines[1])
	assert.Equal(t, "128 255", lines[2])
	assert.True(t, strings.HasPrefix(lines[3], "error: "))
}
