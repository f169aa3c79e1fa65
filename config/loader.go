package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvPrefix namespaces the environment variables the loader honors.
const EnvPrefix = "LLMBRIDGE"

// Loader handles configuration loading with layers and overrides. Layers are
// merged in order over the defaults; environment variables override last.
type Loader struct {
	layers     []string
	validation bool
	envPrefix  string
}

// NewLoader creates a new configuration loader.
func NewLoader() *Loader {
	return &Loader{
		layers:    []string{},
		envPrefix: EnvPrefix,
	}
}

// AddLayer adds a configuration file layer. JSON and YAML files are accepted,
// selected by extension.
func (l *Loader) AddLayer(path string) {
	l.layers = append(l.layers, path)
}

// EnableValidation enables or disables configuration validation.
func (l *Loader) EnableValidation(enable bool) {
	l.validation = enable
}

// LoadFile loads configuration from a single file.
func (l *Loader) LoadFile(path string) (*Config, error) {
	l.layers = []string{path}
	return l.Load()
}

// Load loads and merges all configuration layers.
func (l *Loader) Load() (*Config, error) {
	cfg := Default()

	for _, path := range l.layers {
		raw, err := l.loadRaw(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", path, err)
		}
		cfg = l.mergeFromMap(cfg, raw)
	}

	l.applyEnvOverrides(cfg)

	if l.validation {
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// loadRaw loads one configuration file into a raw map. JSON gets a depth
// check before decoding; YAML decodes through yaml.v3 and rides the same
// merge path.
func (l *Loader) loadRaw(path string) (map[string]any, error) {
	data, err := safeReadFile(path)
	if err != nil {
		return nil, err
	}

	var raw map[string]any
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("invalid YAML: %w", err)
		}
	default:
		if err := validateJSONDepth(data); err != nil {
			return nil, fmt.Errorf("invalid JSON structure: %w", err)
		}
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, err
		}
	}

	return raw, nil
}

// mergeFromMap merges a raw layer over base, only overriding keys present in
// the layer.
func (l *Loader) mergeFromMap(base *Config, override map[string]any) *Config {
	if override == nil {
		return base
	}

	baseJSON, err := json.Marshal(base)
	if err != nil {
		return base
	}

	var baseMap map[string]any
	if err := json.Unmarshal(baseJSON, &baseMap); err != nil {
		return base
	}

	mergedMap := l.deepMergeMaps(baseMap, override)

	mergedJSON, err := json.Marshal(mergedMap)
	if err != nil {
		return base
	}

	var merged Config
	if err := json.Unmarshal(mergedJSON, &merged); err != nil {
		return base
	}

	return &merged
}

// deepMergeMaps recursively merges two maps, with override taking precedence.
func (l *Loader) deepMergeMaps(base, override map[string]any) map[string]any {
	result := make(map[string]any)

	for k, v := range base {
		result[k] = v
	}

	for k, v := range override {
		if v == nil {
			continue
		}

		if baseMap, baseOk := base[k].(map[string]any); baseOk {
			if overrideMap, overrideOk := v.(map[string]any); overrideOk {
				result[k] = l.deepMergeMaps(baseMap, overrideMap)
				continue
			}
		}

		result[k] = v
	}

	return result
}

// env returns the value of a namespaced environment variable, or "" when it
// is unset or fails basic validation.
func (l *Loader) env(suffix string) string {
	key := l.envPrefix + "_" + suffix
	val := os.Getenv(key)
	if err := validateEnvVar(key, val); err != nil {
		return ""
	}
	return val
}

// applyEnvOverrides applies environment variable overrides.
func (l *Loader) applyEnvOverrides(cfg *Config) {
	if val := l.env("MODE"); val != "" {
		cfg.Worker.Mode = val
	}
	if val := l.env("WORKER_ID"); val != "" {
		cfg.Worker.WorkerID = val
	}

	if val := l.env("LM_PROVIDER"); val != "" {
		cfg.LM.Provider = val
	}
	if val := l.env("LM_MODEL"); val != "" {
		cfg.LM.Model = val
	}
	if val := l.env("LM_API_KEY"); val != "" {
		cfg.LM.APIKey = val
	}
	if val := l.env("LM_BASE_URL"); val != "" {
		cfg.LM.BaseURL = val
	}
	if val := l.env("LM_TEMPERATURE"); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			cfg.LM.Temperature = f
		}
	}
	if val := l.env("LM_REQUEST_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.LM.RequestTimeout = d
		}
	}

	if val := l.env("DYNAMIC_SIGNATURES"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Signatures.DynamicEnabled = b
		}
	}

	if val := l.env("LOG_LEVEL"); val != "" {
		cfg.Logging.Level = val
	}
	if val := l.env("LOG_FORMAT"); val != "" {
		cfg.Logging.Format = val
	}
	if val := l.env("DEBUG_LOG_FILE"); val != "" {
		cfg.Logging.DebugFile = val
	}

	if val := l.env("METRICS_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Metrics.Enabled = b
		}
	}
	if val := l.env("METRICS_PORT"); val != "" {
		if p, err := strconv.Atoi(val); err == nil {
			cfg.Metrics.Port = p
		}
	}
	if val := l.env("METRICS_PATH"); val != "" {
		cfg.Metrics.Path = val
	}
}
