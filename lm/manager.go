package lm

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/c360/llmbridge/errors"
	"github.com/c360/llmbridge/pkg/retry"
	"github.com/c360/llmbridge/pkg/security"
)

// EnvGeminiAPIKey names the environment variable consulted for the
// implicit default configuration.
const EnvGeminiAPIKey = "GEMINI_API_KEY"

// DefaultModel is the model used when nothing else is specified.
const DefaultModel = "gemini-1.5-flash"

// DefaultTemperature applies when a configure request omits one.
const DefaultTemperature = 0.7

// Config is one language-model configuration as supplied by the host.
type Config struct {
	Provider    string  `json:"provider"`
	Model       string  `json:"model"`
	APIKey      string  `json:"api_key"`
	Temperature float64 `json:"temperature"`
	BaseURL     string  `json:"base_url,omitempty"`
}

// Settings carries the operational knobs that come from the process
// configuration rather than from configure requests.
type Settings struct {
	RequestTimeout time.Duration
	RateLimit      float64
	RateBurst      int
	Retry          retry.Config
	TLS            security.ClientTLSConfig
}

// AttemptFailure records one configuration strategy that did not produce a
// working client.
type AttemptFailure struct {
	Strategy string
	Err      error
}

// ConfigureResult reports a successful configuration, including which
// strategy produced the client.
type ConfigureResult struct {
	Strategy    string
	Model       string
	Provider    string
	Temperature float64
}

// strategy is one way of turning a Config into a client. Strategies are
// tried in order; the first successful build wins.
type strategy struct {
	name  string
	build func() (Client, error)
}

// Manager owns the active language-model client. Configuration replaces the
// client atomically; readers see either the previous client or the new one.
type Manager struct {
	mu         sync.RWMutex
	client     Client
	current    Config
	configured bool

	// envClient is the lazily built client for Gemini programs when no
	// explicit configuration exists.
	envClient Client

	settings Settings
	logger   *slog.Logger

	// lookupEnv is swappable for tests.
	lookupEnv func(string) string
}

// NewManager returns an unconfigured Manager.
func NewManager(settings Settings, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		settings:  settings,
		logger:    logger,
		lookupEnv: os.Getenv,
	}
}

// Configure validates cfg, tries each strategy in order, and installs the
// first client that builds. Total failure returns a backend-class error
// naming every attempt.
func (m *Manager) Configure(cfg Config) (*ConfigureResult, error) {
	if cfg.Model == "" {
		return nil, errors.Validation(errors.ErrMissingModel, "Model name is required")
	}
	if cfg.APIKey == "" {
		return nil, errors.Validation(errors.ErrMissingAPIKey, "API key is required")
	}
	if cfg.Provider == "" {
		cfg.Provider = "google"
	}

	if cfg.Provider != "google" || !strings.HasPrefix(cfg.Model, "gemini") {
		return nil, errors.Validation(errors.ErrUnsupportedModel,
			fmt.Sprintf("Unsupported provider/model combination: %s/%s", cfg.Provider, cfg.Model))
	}

	var failures []AttemptFailure
	for _, s := range m.googleStrategies(cfg) {
		client, err := s.build()
		if err != nil {
			m.logger.Debug("configure strategy failed", "strategy", s.name, "error", err)
			failures = append(failures, AttemptFailure{Strategy: s.name, Err: err})
			continue
		}

		m.mu.Lock()
		m.client = client
		m.current = cfg
		m.configured = true
		m.mu.Unlock()

		m.logger.Info("language model configured",
			"model", cfg.Model,
			"provider", cfg.Provider,
			"strategy", s.name)

		return &ConfigureResult{
			Strategy:    s.name,
			Model:       cfg.Model,
			Provider:    cfg.Provider,
			Temperature: cfg.Temperature,
		}, nil
	}

	return nil, errors.Backend(errors.ErrBackendUnavailable, configureFailureMessage(failures))
}

// googleStrategies lists the model-id formats accepted for Gemini models,
// most specific first: the Google AI Studio compatibility endpoint with a
// normalized id, the id exactly as given, and a provider-prefixed id for
// gateway-style endpoints.
func (m *Manager) googleStrategies(cfg Config) []strategy {
	base := cfg.BaseURL
	if base == "" {
		base = GoogleOpenAIBaseURL
	}

	newClient := func(model string) (Client, error) {
		return NewChatClient(ChatConfig{
			BaseURL:     base,
			Model:       model,
			APIKey:      cfg.APIKey,
			Temperature: cfg.Temperature,
			Timeout:     m.settings.RequestTimeout,
			RateLimit:   m.settings.RateLimit,
			RateBurst:   m.settings.RateBurst,
			Retry:       m.settings.Retry,
			TLS:         m.settings.TLS,
			Logger:      m.logger,
		})
	}

	return []strategy{
		{
			name: "gemini-normalized",
			build: func() (Client, error) {
				return newClient(strings.TrimPrefix(cfg.Model, "gemini/"))
			},
		},
		{
			name: "bare-model",
			build: func() (Client, error) {
				return newClient(cfg.Model)
			},
		},
		{
			name: "google-prefixed",
			build: func() (Client, error) {
				return newClient("google/" + cfg.Model)
			},
		},
	}
}

func configureFailureMessage(failures []AttemptFailure) string {
	parts := make([]string, 0, len(failures))
	for _, f := range failures {
		parts = append(parts, fmt.Sprintf("%s: %v", f.Strategy, f.Err))
	}
	return fmt.Sprintf("Failed to configure Gemini model with any format. Errors: %s",
		strings.Join(parts, ", "))
}

// Install replaces the active client directly, bypassing the strategy list.
// Used by tests and embedded setups that construct their own Client.
func (m *Manager) Install(client Client, cfg Config) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.client = client
	m.current = cfg
	m.configured = client != nil
}

// Configured reports whether a client is installed.
func (m *Manager) Configured() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.configured
}

// Available reports whether the backend can serve calls: either a client is
// installed or the environment carries a key to build one implicitly.
func (m *Manager) Available() bool {
	return m.Configured() || m.lookupEnv(EnvGeminiAPIKey) != ""
}

// Current returns the active configuration, if any.
func (m *Manager) Current() (Config, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current, m.configured
}

// Client returns the active client or a backend-class error when none is
// configured.
func (m *Manager) Client() (Client, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.configured {
		return nil, errors.Backend(errors.ErrNoLanguageModel, "No LM is loaded.")
	}
	return m.client, nil
}

// EnsureConfigured installs the implicit default configuration from the
// environment when nothing is configured yet. Execution paths call this
// before touching the backend.
func (m *Manager) EnsureConfigured() error {
	if m.Configured() {
		return nil
	}

	key := m.lookupEnv(EnvGeminiAPIKey)
	if key == "" {
		return errors.Backend(errors.ErrNoLanguageModel, "No LM is loaded.")
	}

	m.logger.Info("configuring default language model from environment", "model", DefaultModel)
	_, err := m.Configure(Config{
		Provider:    "google",
		Model:       DefaultModel,
		APIKey:      key,
		Temperature: DefaultTemperature,
	})
	return err
}

// GeminiAvailable reports whether Gemini-backed programs can run: either a
// Google-provider client is configured or the environment carries a key to
// build one.
func (m *Manager) GeminiAvailable() bool {
	if cfg, ok := m.Current(); ok && cfg.Provider == "google" {
		return true
	}
	return m.lookupEnv(EnvGeminiAPIKey) != ""
}

// GeminiClient returns a client suitable for Gemini-style programs: the
// configured one when its provider is google, otherwise a lazily built
// client from the environment key. The lazy client is kept so its rate
// limiter spans calls.
func (m *Manager) GeminiClient() (Client, error) {
	if cfg, ok := m.Current(); ok && cfg.Provider == "google" {
		return m.Client()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.envClient != nil {
		return m.envClient, nil
	}

	key := m.lookupEnv(EnvGeminiAPIKey)
	if key == "" {
		return nil, errors.Backend(errors.ErrBackendUnavailable,
			"Gemini not available - cannot create Gemini programs")
	}
	client, err := NewChatClient(ChatConfig{
		BaseURL:     GoogleOpenAIBaseURL,
		Model:       DefaultModel,
		APIKey:      key,
		Temperature: DefaultTemperature,
		Timeout:     m.settings.RequestTimeout,
		RateLimit:   m.settings.RateLimit,
		RateBurst:   m.settings.RateBurst,
		Retry:       m.settings.Retry,
		TLS:         m.settings.TLS,
		Logger:      m.logger,
	})
	if err != nil {
		return nil, err
	}
	m.envClient = client
	return client, nil
}

// DefaultFromEnv returns the implicit configuration built from the
// environment, without installing it. The boolean is false when no key is
// present.
func DefaultFromEnv() (Config, bool) {
	key := os.Getenv(EnvGeminiAPIKey)
	if key == "" {
		return Config{}, false
	}
	return Config{
		Provider:    "google",
		Model:       DefaultModel,
		APIKey:      key,
		Temperature: DefaultTemperature,
	}, true
}
