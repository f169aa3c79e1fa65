package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/c360/llmbridge/lm"
	"github.com/c360/llmbridge/pkg/retry"
	"github.com/c360/llmbridge/pkg/security"
)

// Worker mode constants.
const (
	ModeStandalone = "standalone"
	ModePoolWorker = "pool-worker"
)

// Config is the complete worker configuration: identity, backend defaults,
// signature behavior, logging, and the optional metrics endpoint.
type Config struct {
	Version    string          `json:"version,omitempty"`
	Worker     WorkerConfig    `json:"worker"`
	LM         LMConfig        `json:"lm"`
	Signatures SignatureConfig `json:"signatures"`
	Logging    LoggingConfig   `json:"logging"`
	Metrics    MetricsConfig   `json:"metrics"`
	Security   security.Config `json:"security,omitempty"`
}

// WorkerConfig identifies the process to its host.
type WorkerConfig struct {
	Mode     string `json:"mode"`
	WorkerID string `json:"worker_id,omitempty"`
}

// LMConfig carries backend defaults applied at startup plus the operational
// knobs the configure_lm command cannot change (timeouts, retries, rate
// limits). A worker with no APIKey and no GEMINI_API_KEY in the environment
// starts unconfigured and reports backend_available=false until a
// configure_lm command arrives.
type LMConfig struct {
	Provider       string        `json:"provider,omitempty"`
	Model          string        `json:"model,omitempty"`
	APIKey         string        `json:"api_key,omitempty"`
	BaseURL        string        `json:"base_url,omitempty"`
	Temperature    float64       `json:"temperature"`
	RequestTimeout time.Duration `json:"request_timeout,omitempty"`
	MaxRetries     int           `json:"max_retries,omitempty"`
	RateLimit      float64       `json:"rate_limit,omitempty"`
	RateBurst      int           `json:"rate_burst,omitempty"`
}

// SignatureConfig controls signature compilation.
type SignatureConfig struct {
	// DynamicEnabled allows compiled per-definition signatures. Disabled,
	// every program runs on the question/answer fallback shape.
	DynamicEnabled bool `json:"dynamic_enabled"`
}

// LoggingConfig selects log level, output format, and the optional debug
// trace file mirrored alongside stderr.
type LoggingConfig struct {
	Level     string `json:"level,omitempty"`
	Format    string `json:"format,omitempty"`
	DebugFile string `json:"debug_file,omitempty"`
}

// MetricsConfig controls the Prometheus endpoint. Disabled by default; the
// stdio protocol is the worker's primary surface.
type MetricsConfig struct {
	Enabled bool   `json:"enabled"`
	Bind    string `json:"bind,omitempty"`
	Port    int    `json:"port,omitempty"`
	Path    string `json:"path,omitempty"`
}

// Default returns the configuration a worker runs with when no file and no
// environment overrides are present.
func Default() *Config {
	return &Config{
		Version: "1.0.0",
		Worker: WorkerConfig{
			Mode: ModeStandalone,
		},
		LM: LMConfig{
			Provider:       "google",
			Model:          lm.DefaultModel,
			Temperature:    lm.DefaultTemperature,
			RequestTimeout: lm.DefaultRequestTimeout,
			MaxRetries:     retry.DefaultConfig().MaxAttempts,
		},
		Signatures: SignatureConfig{
			DynamicEnabled: true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Bind: "127.0.0.1",
			Port: 9090,
			Path: "/metrics",
		},
	}
}

// Clone creates a deep copy of the configuration.
func (c *Config) Clone() *Config {
	if c == nil {
		return &Config{}
	}

	data, err := json.Marshal(c)
	if err != nil {
		copied := *c
		return &copied
	}

	var clone Config
	if err := json.Unmarshal(data, &clone); err != nil {
		copied := *c
		return &copied
	}

	return &clone
}

// Redacted returns a deep copy with credentials masked. Use it anywhere the
// configuration is rendered into logs or diagnostics.
func (c *Config) Redacted() *Config {
	clone := c.Clone()
	if clone.LM.APIKey != "" {
		clone.LM.APIKey = "[redacted]"
	}
	return clone
}

// String renders the redacted configuration as indented JSON.
func (c *Config) String() string {
	data, _ := json.MarshalIndent(c.Redacted(), "", "  ")
	return string(data)
}

// Validate checks the configuration and normalizes the worker mode.
func (c *Config) Validate() error {
	c.Worker.Mode = strings.ToLower(strings.TrimSpace(c.Worker.Mode))
	switch c.Worker.Mode {
	case "", ModeStandalone, ModePoolWorker:
	default:
		return fmt.Errorf("worker.mode %q is not valid (must be %q or %q)",
			c.Worker.Mode, ModeStandalone, ModePoolWorker)
	}

	if c.LM.Temperature < 0 || c.LM.Temperature > 2 {
		return fmt.Errorf("lm.temperature %v out of range [0, 2]", c.LM.Temperature)
	}
	if c.LM.RequestTimeout < 0 {
		return errors.New("lm.request_timeout cannot be negative")
	}
	if c.LM.MaxRetries < 0 {
		return errors.New("lm.max_retries cannot be negative")
	}
	if c.LM.RateLimit < 0 {
		return errors.New("lm.rate_limit cannot be negative")
	}

	switch c.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level %q is not valid", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "", "json", "text":
	default:
		return fmt.Errorf("logging.format %q is not valid", c.Logging.Format)
	}

	if c.Metrics.Enabled {
		if c.Metrics.Port < 0 || c.Metrics.Port > 65535 {
			return fmt.Errorf("metrics.port %d out of range", c.Metrics.Port)
		}
		if c.Metrics.Path != "" && !strings.HasPrefix(c.Metrics.Path, "/") {
			return fmt.Errorf("metrics.path %q must start with /", c.Metrics.Path)
		}
	}

	if err := c.validateSecurity(); err != nil {
		return fmt.Errorf("security configuration: %w", err)
	}

	return nil
}

// validateSecurity validates the TLS configuration.
func (c *Config) validateSecurity() error {
	if c.Security.TLS.Server.Enabled {
		if c.Security.TLS.Server.CertFile == "" {
			return errors.New("tls.server.cert_file is required when TLS is enabled")
		}
		if c.Security.TLS.Server.KeyFile == "" {
			return errors.New("tls.server.key_file is required when TLS is enabled")
		}
		if _, err := os.Stat(c.Security.TLS.Server.CertFile); err != nil {
			return fmt.Errorf("tls.server.cert_file: %w", err)
		}
		if _, err := os.Stat(c.Security.TLS.Server.KeyFile); err != nil {
			return fmt.Errorf("tls.server.key_file: %w", err)
		}
		if c.Security.TLS.Server.MinVersion != "" {
			if err := validateTLSVersion(c.Security.TLS.Server.MinVersion); err != nil {
				return fmt.Errorf("tls.server.min_version: %w", err)
			}
		}
	}

	for i, caFile := range c.Security.TLS.Client.CAFiles {
		if _, err := os.Stat(caFile); err != nil {
			return fmt.Errorf("tls.client.ca_files[%d]: %w", i, err)
		}
	}

	if c.Security.TLS.Client.InsecureSkipVerify {
		_, _ = fmt.Fprintf(
			os.Stderr,
			"WARNING: TLS certificate verification is disabled (insecure_skip_verify=true). This should only be used in development/testing!\n",
		)
	}

	if c.Security.TLS.Client.MinVersion != "" {
		if err := validateTLSVersion(c.Security.TLS.Client.MinVersion); err != nil {
			return fmt.Errorf("tls.client.min_version: %w", err)
		}
	}

	return nil
}

// validateTLSVersion checks if a TLS version string is valid.
func validateTLSVersion(version string) error {
	switch version {
	case "1.2", "1.3":
		return nil
	default:
		return fmt.Errorf("invalid TLS version %q (must be \"1.2\" or \"1.3\")", version)
	}
}

// UnmarshalJSON accepts request_timeout as either a duration string ("30s")
// or a nanosecond count.
func (c *LMConfig) UnmarshalJSON(data []byte) error {
	type Alias LMConfig
	aux := &struct {
		RequestTimeout any `json:"request_timeout"`
		*Alias
	}{
		Alias: (*Alias)(c),
	}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	switch v := aux.RequestTimeout.(type) {
	case string:
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("lm.request_timeout: %w", err)
		}
		c.RequestTimeout = d
	case float64:
		c.RequestTimeout = time.Duration(v)
	case nil:
	}

	return nil
}

// LMSettings maps the operational knobs onto the backend manager's settings.
func (c *Config) LMSettings() lm.Settings {
	retryCfg := retry.DefaultConfig()
	retryCfg.MaxAttempts = c.LM.MaxRetries

	return lm.Settings{
		RequestTimeout: c.LM.RequestTimeout,
		RateLimit:      c.LM.RateLimit,
		RateBurst:      c.LM.RateBurst,
		Retry:          retryCfg,
		TLS:            c.Security.TLS.Client,
	}
}

// StartupLM returns the lm configuration to apply at boot, or false when no
// credential is configured and the backend should stay unconfigured until a
// configure_lm command arrives.
func (c *Config) StartupLM() (lm.Config, bool) {
	if c.LM.APIKey == "" {
		return lm.Config{}, false
	}
	return lm.Config{
		Provider:    c.LM.Provider,
		Model:       c.LM.Model,
		APIKey:      c.LM.APIKey,
		Temperature: c.LM.Temperature,
		BaseURL:     c.LM.BaseURL,
	}, true
}

// SafeConfig provides thread-safe access to configuration.
type SafeConfig struct {
	mu     sync.RWMutex
	config *Config
}

// NewSafeConfig creates a new thread-safe config wrapper.
func NewSafeConfig(cfg *Config) *SafeConfig {
	if cfg == nil {
		cfg = &Config{}
	}
	return &SafeConfig{
		config: cfg,
	}
}

// Get returns a deep copy of the current configuration.
func (sc *SafeConfig) Get() *Config {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.config.Clone()
}

// Update atomically replaces the configuration after validation.
func (sc *SafeConfig) Update(cfg *Config) error {
	if cfg == nil {
		return errors.New("config cannot be nil")
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.config = cfg
	return nil
}
