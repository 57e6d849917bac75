package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"expediente/internal/expediente/chain"
)

// Config is the process configuration shared by the server and the CLI.
type Config struct {
	Server    Server    `yaml:"server"`
	Log       Log       `yaml:"log"`
	Analysis  Analysis  `yaml:"analysis"`
	Metrics   Metrics   `yaml:"metrics"`
	RateLimit RateLimit `yaml:"rate_limit"`
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr              string        `yaml:"addr"`
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `yaml:"shutdown_timeout"`
	// TrustProxy reads the client address from forwarding headers.
	TrustProxy bool `yaml:"trust_proxy"`
}

// Log selects the slog handler.
type Log struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level"`
	// Format is text or json.
	Format string `yaml:"format"`
}

// Analysis holds defaults applied when a request does not set them.
type Analysis struct {
	ReturnPolicy string `yaml:"return_policy"`
	// AsOf pins the reference date (YYYY-MM-DD); empty means "today".
	AsOf string `yaml:"as_of"`
}

// Metrics controls the Prometheus endpoint.
type Metrics struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// RateLimit bounds requests per client IP on the HTTP server.
type RateLimit struct {
	Enabled bool    `yaml:"enabled"`
	RPS     float64 `yaml:"rps"`
	Burst   int     `yaml:"burst"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Server: Server{
			Addr:              ":8080",
			ReadHeaderTimeout: 5 * time.Second,
			ShutdownTimeout:   10 * time.Second,
		},
		Log: Log{Level: "info", Format: "text"},
		Analysis: Analysis{
			ReturnPolicy: string(chain.AllowPingPong),
		},
		Metrics:   Metrics{Enabled: true, Path: "/metrics"},
		RateLimit: RateLimit{Enabled: true, RPS: 5, Burst: 10},
	}
}

// Load builds the configuration: defaults, then the YAML file named by
// EXPEDIENTE_CONFIG (or path when non-empty), then environment overrides.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("EXPEDIENTE_CONFIG")
	}
	cfg := Default()
	if path != "" {
		fromFile, err := LoadFromFile(path)
		if err != nil {
			return nil, err
		}
		cfg = fromFile
	}
	cfg.applyEnv(os.LookupEnv)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromFile reads a YAML file on top of the defaults.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) {
	set := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	set("EXPEDIENTE_ADDR", &c.Server.Addr)
	set("EXPEDIENTE_LOG_LEVEL", &c.Log.Level)
	set("EXPEDIENTE_LOG_FORMAT", &c.Log.Format)
	set("EXPEDIENTE_RETURN_POLICY", &c.Analysis.ReturnPolicy)
	set("EXPEDIENTE_AS_OF", &c.Analysis.AsOf)
	if v, ok := lookup("EXPEDIENTE_METRICS_ENABLED"); ok {
		c.Metrics.Enabled = strings.EqualFold(strings.TrimSpace(v), "true")
	}
	if v, ok := lookup("EXPEDIENTE_TRUST_PROXY"); ok {
		c.Server.TrustProxy = strings.EqualFold(strings.TrimSpace(v), "true")
	}
	if v, ok := lookup("EXPEDIENTE_RATE_LIMIT_ENABLED"); ok {
		c.RateLimit.Enabled = strings.EqualFold(strings.TrimSpace(v), "true")
	}
	if v, ok := lookup("EXPEDIENTE_RATE_LIMIT_RPS"); ok {
		if rps, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			c.RateLimit.RPS = rps
		}
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be one of debug, info, warn, error")
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json")
	}
	if _, err := c.ReturnPolicy(); err != nil {
		return fmt.Errorf("analysis.return_policy: %w", err)
	}
	if _, err := c.AsOf(); err != nil {
		return err
	}
	if c.Metrics.Enabled && !strings.HasPrefix(c.Metrics.Path, "/") {
		return fmt.Errorf("metrics.path must start with /")
	}
	if c.RateLimit.Enabled && (c.RateLimit.RPS <= 0 || c.RateLimit.Burst < 1) {
		return fmt.Errorf("rate_limit.rps must be positive and rate_limit.burst at least 1")
	}
	return nil
}

// ReturnPolicy parses the configured chain return policy.
func (c *Config) ReturnPolicy() (chain.ReturnPolicy, error) {
	return chain.ParseReturnPolicy(c.Analysis.ReturnPolicy)
}

// AsOf parses the pinned reference date. The zero time means "today".
func (c *Config) AsOf() (time.Time, error) {
	if c.Analysis.AsOf == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.DateOnly, c.Analysis.AsOf)
	if err != nil {
		return time.Time{}, fmt.Errorf("analysis.as_of must be YYYY-MM-DD: %w", err)
	}
	return t, nil
}
