package migrate

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSchemaStatementsIdempotent(t *testing.T) {
	for i, s := range schemaStatements {
		s = strings.TrimSpace(s)
		ok := strings.Contains(s, "IF NOT EXISTS") || strings.Contains(s, "ON CONFLICT")
		assert.True(t, ok, "statement %d is not idempotent: %s", i, s)
	}
}

func TestSchemaHasHTMIndex(t *testing.T) {
	joined := strings.Join(schemaStatements, "\n")
	assert.Contains(t, joined, "htm_id BIGINT NOT NULL")
	assert.Contains(t, joined, "ON _sky_objects(htm_level, htm_id)")
}
