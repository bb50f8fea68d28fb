package wynk

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "wynk.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, DefaultConfig(), cfg)
	assert.False(t, cfg.IsProduction())
	assert.Equal(t, ":8080", cfg.Addr())
}

func TestLoadConfig_File(t *testing.T) {
	path := writeConfig(t, `
env: production
server:
  host: 127.0.0.1
  port: 9000
  adapter: gin
  shutdown_timeout: 5s
  global_prefix: /api
compression:
  threshold: 256
  encodings: [br, gzip]
validation:
  formatter: nest
cache:
  ttl: 90s
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.True(t, cfg.IsProduction())
	assert.Equal(t, "127.0.0.1:9000", cfg.Addr())
	assert.Equal(t, "gin", cfg.Server.Adapter)
	assert.Equal(t, 5*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "/api", cfg.Server.GlobalPrefix)
	assert.Equal(t, 256, cfg.Compression.Threshold)
	assert.Equal(t, []string{"br", "gzip"}, cfg.Compression.Encodings)
	assert.True(t, cfg.Compression.Enabled, "unset keys keep their defaults")
	assert.Equal(t, "nest", cfg.Validation.Formatter)
	assert.Equal(t, 90*time.Second, cfg.Cache.TTL)
	assert.Equal(t, 20, cfg.RateLimit.Burst)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	path := writeConfig(t, "server:\n  port: 9000\n")
	t.Setenv("WYNK_SERVER_PORT", "7000")
	t.Setenv("WYNK_AUTH_JWT_SECRET", "s3cret")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 7000, cfg.Server.Port)
	assert.Equal(t, "s3cret", cfg.Auth.JWTSecret)
}

func TestLoadConfig_Errors(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err, "an explicit file must exist")

	_, err = LoadConfig(writeConfig(t, "server:\n  adapter: iris\n"))
	assert.ErrorIs(t, err, ErrConfiguration)

	_, err = LoadConfig(writeConfig(t, "server: [not, a, map\n"))
	assert.Error(t, err)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"valid", func(*Config) {}, ""},
		{"adapter case-insensitive", func(c *Config) { c.Server.Adapter = "Fiber" }, ""},
		{"unknown adapter", func(c *Config) { c.Server.Adapter = "iris" }, "server.adapter"},
		{"relative prefix", func(c *Config) { c.Server.GlobalPrefix = "api" }, "global_prefix"},
		{"unknown formatter", func(c *Config) { c.Validation.Formatter = "weird" }, "unknown validation formatter"},
		{"negative threshold", func(c *Config) { c.Compression.Threshold = -1 }, "threshold"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.errMsg == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, ErrConfiguration)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}
