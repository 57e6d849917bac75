package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"expediente/internal/expediente/chain"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.False(t, cfg.Server.TrustProxy)

	policy, err := cfg.ReturnPolicy()
	require.NoError(t, err)
	assert.Equal(t, chain.AllowPingPong, policy)

	asOf, err := cfg.AsOf()
	require.NoError(t, err)
	assert.True(t, asOf.IsZero())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{name: "valid default config", modify: func(*Config) {}},
		{name: "missing addr", modify: func(c *Config) { c.Server.Addr = "" }, wantErr: true},
		{name: "unknown level", modify: func(c *Config) { c.Log.Level = "verbose" }, wantErr: true},
		{name: "unknown format", modify: func(c *Config) { c.Log.Format = "xml" }, wantErr: true},
		{name: "unknown policy", modify: func(c *Config) { c.Analysis.ReturnPolicy = "sometimes" }, wantErr: true},
		{name: "day-first as_of", modify: func(c *Config) { c.Analysis.AsOf = "31/12/2022" }, wantErr: true},
		{name: "relative metrics path", modify: func(c *Config) { c.Metrics.Path = "metrics" }, wantErr: true},
		{name: "zero rate", modify: func(c *Config) { c.RateLimit.RPS = 0 }, wantErr: true},
		{name: "rate limit disabled ignores rps", modify: func(c *Config) {
			c.RateLimit.Enabled = false
			c.RateLimit.RPS = 0
		}},
		{name: "metrics disabled ignores path", modify: func(c *Config) {
			c.Metrics.Enabled = false
			c.Metrics.Path = ""
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "expediente.yaml")
	content := `
server:
  addr: ":9090"
  shutdown_timeout: 30s
log:
  format: json
analysis:
  return_policy: reject-ping-pong
  as_of: "2023-01-01"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, 30*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, 5*time.Second, cfg.Server.ReadHeaderTimeout, "unset keys keep defaults")
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "info", cfg.Log.Level)

	policy, err := cfg.ReturnPolicy()
	require.NoError(t, err)
	assert.Equal(t, chain.RejectPingPong, policy)

	asOf, err := cfg.AsOf()
	require.NoError(t, err)
	assert.Equal(t, time.Date(2023, time.January, 1, 0, 0, 0, 0, time.UTC), asOf)

	_, err = LoadFromFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"EXPEDIENTE_ADDR":            ":7000",
		"EXPEDIENTE_LOG_LEVEL":       "debug",
		"EXPEDIENTE_RETURN_POLICY":   " reject-ping-pong ",
		"EXPEDIENTE_AS_OF":           "",
		"EXPEDIENTE_METRICS_ENABLED": "false",
		"EXPEDIENTE_RATE_LIMIT_RPS":  "2.5",
		"EXPEDIENTE_TRUST_PROXY":     "TRUE",
	}
	lookup := func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}

	cfg := Default()
	cfg.applyEnv(lookup)

	assert.Equal(t, ":7000", cfg.Server.Addr)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "reject-ping-pong", cfg.Analysis.ReturnPolicy)
	assert.Empty(t, cfg.Analysis.AsOf, "blank values do not override")
	assert.False(t, cfg.Metrics.Enabled)
	assert.InDelta(t, 2.5, cfg.RateLimit.RPS, 1e-9)
	assert.True(t, cfg.RateLimit.Enabled)
	assert.True(t, cfg.Server.TrustProxy)
}

func TestLoadUsesEnvironment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "expediente.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log:\n  level: warn\n"), 0o644))
	t.Setenv("EXPEDIENTE_CONFIG", path)
	t.Setenv("EXPEDIENTE_LOG_FORMAT", "json")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)

	t.Setenv("EXPEDIENTE_LOG_LEVEL", "loud")
	_, err = Load("")
	assert.Error(t, err)
}
