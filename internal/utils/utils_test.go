package utils

import (
	"crypto/x509"
	"encoding/pem"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvHelpers(t *testing.T) {
	t.Setenv("X_INT", "12")
	t.Setenv("X_BAD", "abc")
	t.Setenv("X_BOOL", "1")
	t.Setenv("X_SEC", "30")
	assert.Equal(t, 12, EnvInt("X_INT", 3))
	assert.Equal(t, 3, EnvInt("X_BAD", 3))
	assert.Equal(t, 3, EnvInt("X_UNSET_INT", 3))
	assert.True(t, EnvBool("X_BOOL", false))
	assert.True(t, EnvBool("X_BAD", true))
	assert.Equal(t, "abc", EnvString("X_BAD", "d"))
	assert.Equal(t, "d", EnvString("X_UNSET_STR", "d"))
	assert.Equal(t, 30*time.Second, EnvSeconds("X_SEC", time.Minute))
	assert.Equal(t, time.Minute, EnvSeconds("X_UNSET_SEC", time.Minute))
}

func TestBuildPostgresDSNFromEnv(t *testing.T) {
	t.Setenv("PG_HOST", "db")
	t.Setenv("PG_PORT", "")
	t.Setenv("PG_USER", "sky")
	t.Setenv("PG_PASSWORD", "pw")
	t.Setenv("PG_DB", "")
	t.Setenv("PG_SSLMODE", "")
	t.Setenv("PG_DSN", "")
	assert.Equal(t, "postgres://sky:pw@db:5432/skyhtm?sslmode=disable", BuildPostgresDSNFromEnv())

	t.Setenv("PG_PASSWORD", "p@ss/w")
	assert.Equal(t, "postgres://sky:p%40ss%2Fw@db:5432/skyhtm?sslmode=disable", BuildPostgresDSNFromEnv())

	t.Setenv("PG_PASSWORD", "")
	t.Setenv("PG_SSLMODE", "require")
	assert.Equal(t, "postgres://sky@db:5432/skyhtm?sslmode=require", BuildPostgresDSNFromEnv())

	t.Setenv("PG_DSN", "postgres://override")
	assert.Equal(t, "postgres://override", BuildPostgresDSNFromEnv())
}

func TestRedisOptionsFromEnv(t *testing.T) {
	t.Setenv("REDIS_ENABLED", "false")
	assert.Nil(t, RedisOptionsFromEnv())
	assert.Nil(t, OpenRedisFromEnv())

	t.Setenv("REDIS_ENABLED", "")
	t.Setenv("REDIS_ADDR", "")
	t.Setenv("REDIS_HOST", "cache")
	t.Setenv("REDIS_PORT", "")
	t.Setenv("REDIS_DB", "-2")
	t.Setenv("REDIS_READ_TIMEOUT_S", "3")
	opts := RedisOptionsFromEnv()
	require.NotNil(t, opts)
	assert.Equal(t, "cache:6379", opts.Addr)
	assert.Equal(t, 0, opts.DB)
	assert.Equal(t, 3*time.Second, opts.ReadTimeout)

	t.Setenv("REDIS_ADDR", "10.0.0.9:7000")
	t.Setenv("REDIS_DB", "4")
	opts = RedisOptionsFromEnv()
	assert.Equal(t, "10.0.0.9:7000", opts.Addr)
	assert.Equal(t, 4, opts.DB)
}

func TestEnsureSelfSignedCert(t *testing.T) {
	dir := t.TempDir()
	cert := filepath.Join(dir, "c", "server.crt")
	key := filepath.Join(dir, "k", "server.key")
	require.NoError(t, EnsureSelfSignedCert(cert, key, "sky-htm.local"))
	st1, err := os.Stat(cert)
	require.NoError(t, err)
	// 已存在时不重写
	require.NoError(t, EnsureSelfSignedCert(cert, key, "sky-htm.local"))
	st2, err := os.Stat(cert)
	require.NoError(t, err)
	assert.Equal(t, st1.ModTime(), st2.ModTime())
}

func TestSelfSignedCertHosts(t *testing.T) {
	dir := t.TempDir()
	cert := filepath.Join(dir, "server.crt")
	require.NoError(t, EnsureSelfSignedCert(cert, filepath.Join(dir, "server.key"), "sky", "10.0.0.5", "sky.example"))
	b, err := os.ReadFile(cert)
	require.NoError(t, err)
	blk, _ := pem.Decode(b)
	require.NotNil(t, blk)
	c, err := x509.ParseCertificate(blk.Bytes)
	require.NoError(t, err)
	assert.Contains(t, c.DNSNames, "sky.example")
	assert.Len(t, c.IPAddresses, 3)
}
