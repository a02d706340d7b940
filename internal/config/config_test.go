package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aman-churiwal/quota-gate/internal/ratelimit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `{
		"server": {"port": "9090", "environment": "production"},
		"redis": {"host": "redis", "port": "6379", "db": 1},
		"postgres": {"host": "db", "port": "5432", "user": "u", "password": "p", "dbname": "d", "sslmode": "disable"},
		"auth": {"jwt_secret": "file-secret", "expiry_hours": 12},
		"rate_limit": {
			"namespace": "qg",
			"cache_invalidate_ttl": 600,
			"plans": {
				"free": {"limits": [[1, 2]]},
				"starter": {"limits": [[1, 5], [86400, 20000, 3600]]}
			}
		}
	}`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "redis:6379", cfg.Redis.GetRedisAddr())
	assert.Contains(t, cfg.Postgres.DSN(), "host=db")
	assert.Equal(t, 12, cfg.Auth.ExpiryHours)
	assert.Equal(t, "qg", cfg.RateLimit.Namespace)
	assert.Equal(t, 10*time.Minute, cfg.RateLimit.CacheTTL())

	starter := cfg.RateLimit.Plans["starter"]
	require.Len(t, starter.Limits, 2)
	assert.Equal(t, ratelimit.Tier{Duration: 86400, Threshold: 20000, Precision: 3600}, starter.Limits[1])
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, `{"rate_limit": {"namespace": "qg"}}`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 24, cfg.Auth.ExpiryHours)
	assert.Equal(t, time.Hour, cfg.RateLimit.CacheTTL(), "omitted TTL defaults to 3600s")
}

func TestCacheTTLDisabled(t *testing.T) {
	path := writeConfig(t, `{"rate_limit": {"cache_invalidate_ttl": -1}}`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, time.Duration(0), cfg.RateLimit.CacheTTL())

	path = writeConfig(t, `{"rate_limit": {"cache_invalidate_ttl": 0}}`)
	cfg, err = Load(path)
	require.NoError(t, err)
	assert.Equal(t, time.Duration(0), cfg.RateLimit.CacheTTL())
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "env-secret")
	t.Setenv("REDIS_PASSWORD", "env-redis")

	path := writeConfig(t, `{"auth": {"jwt_secret": "file-secret"}, "redis": {"password": "file-redis"}}`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "env-secret", cfg.Auth.JWTSecret)
	assert.Equal(t, "env-redis", cfg.Redis.Password)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}
