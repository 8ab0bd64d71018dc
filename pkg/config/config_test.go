package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/scrcr/scrcr-server/pkg/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("SCRCR_ENV", EnvTest)
	t.Setenv("SCRCR_POSTGRES_URL", "postgres://localhost/scrcr_test")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "9090", cfg.Server.HealthPort)
	assert.Equal(t, 24*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, 5, cfg.Auth.LockoutThreshold)
	assert.Equal(t, 30*time.Minute, cfg.Auth.LockoutDuration)
	assert.False(t, cfg.IsProduction())
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("SCRCR_ENV", EnvTest)
	t.Setenv("SCRCR_POSTGRES_URL", "postgres://localhost/scrcr_test")
	t.Setenv("SCRCR_PORT", "8888")
	t.Setenv("SCRCR_LOCKOUT_THRESHOLD", "3")
	t.Setenv("SCRCR_TOKEN_TTL", "1h")
	t.Setenv("SCRCR_LOG_LEVEL", "debug")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "8888", cfg.Server.Port)
	assert.Equal(t, 3, cfg.Auth.LockoutThreshold)
	assert.Equal(t, time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, observability.DebugLevel, cfg.Observability.LogLevel)
}

func TestLoadConfig_SecretRequiredOutsideTest(t *testing.T) {
	t.Setenv("SCRCR_ENV", EnvProduction)
	t.Setenv("SCRCR_POSTGRES_URL", "postgres://localhost/scrcr")
	t.Setenv("SCRCR_AUTH_SECRET", "")

	_, err := LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SCRCR_AUTH_SECRET")

	t.Setenv("SCRCR_AUTH_SECRET", "a-real-secret")
	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.True(t, cfg.IsProduction())
}

func TestLoadConfig_YAMLOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := []byte(`
environment: test
server:
  port: "7070"
database:
  url: postgres://localhost/scrcr_yaml
auth:
  lockout_threshold: 7
  lockout_duration: 10m
`)
	require.NoError(t, os.WriteFile(path, body, 0o600))

	t.Setenv("SCRCR_CONFIG_FILE", path)

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "7070", cfg.Server.Port)
	assert.Equal(t, "postgres://localhost/scrcr_yaml", cfg.Database.URL)
	assert.Equal(t, 7, cfg.Auth.LockoutThreshold)
	assert.Equal(t, 10*time.Minute, cfg.Auth.LockoutDuration)
}

func TestLoadConfig_EnvBeatsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("environment: test\nserver:\n  port: \"7070\"\ndatabase:\n  url: postgres://file\n"), 0o600))

	t.Setenv("SCRCR_CONFIG_FILE", path)
	t.Setenv("SCRCR_PORT", "6060")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "6060", cfg.Server.Port)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"same ports", func(c *Config) { c.Server.HealthPort = c.Server.Port }, "must be different"},
		{"missing db url", func(c *Config) { c.Database.URL = "" }, "postgres URL"},
		{"bad environment", func(c *Config) { c.Environment = "staging" }, "invalid environment"},
		{"zero threshold", func(c *Config) { c.Auth.LockoutThreshold = 0 }, "lockout threshold"},
		{"negative ttl", func(c *Config) { c.Auth.TokenTTL = -time.Hour }, "token TTL"},
		{"otel without endpoint", func(c *Config) {
			c.Observability.OTelEnabled = true
			c.Observability.OTelEndpoint = ""
		}, "OpenTelemetry endpoint"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			cfg.Environment = EnvTest
			cfg.Database.URL = "postgres://localhost/scrcr_test"
			tt.mutate(cfg)

			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
