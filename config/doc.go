// Package config provides configuration management for the bridge worker.
//
// This package handles loading and validation of worker configuration from
// JSON or YAML files and environment variables. Configuration is resolved
// once at startup; the running worker is reconfigured only through the
// configure_lm command on the wire.
//
// # Core Components
//
// Config: the complete worker configuration containing worker identity
// (mode, worker id), language-model backend defaults and operational limits,
// signature compilation settings, logging, and the optional metrics
// endpoint.
//
// SafeConfig: thread-safe wrapper using RWMutex and deep cloning to prevent
// concurrent access issues and accidental mutations.
//
// Loader: loads configuration with layer merging (base + overrides) and
// environment variable substitution for flexible deployment scenarios.
//
// # Basic Usage
//
// Loading configuration from files with layer merging:
//
//	loader := config.NewLoader()
//	loader.AddLayer("config/base.json")
//	loader.AddLayer("config/production.yaml") // Overrides base
//	loader.EnableValidation(true)
//
//	cfg, err := loader.Load()
//	if err != nil {
//		log.Fatal(err)
//	}
//
// # Environment Variable Overrides
//
// Values can be overridden with LLMBRIDGE_-prefixed environment variables,
// applied after all file layers:
//
//	# Run as a pool worker
//	export LLMBRIDGE_MODE="pool-worker"
//	export LLMBRIDGE_WORKER_ID="worker-3"
//
//	# Disable compiled signatures globally
//	export LLMBRIDGE_DYNAMIC_SIGNATURES="false"
//
//	# Backend credential and model
//	export LLMBRIDGE_LM_API_KEY="..."
//	export LLMBRIDGE_LM_MODEL="gemini-1.5-pro"
//
// GEMINI_API_KEY is read separately by the lm package as the implicit
// credential when no configure_lm command has arrived.
//
// # Layer Merging
//
// Configuration layers are merged with last-wins semantics:
//
//	base.json:
//	  {"worker": {"mode": "standalone"}, "logging": {"level": "debug"}}
//
//	production.yaml:
//	  worker:
//	    mode: pool-worker
//
//	Result:
//	  {"worker": {"mode": "pool-worker"}, "logging": {"level": "debug"}}
//
// # Security
//
// The package includes security validation:
//   - File size limits (10MB max) to prevent memory exhaustion
//   - JSON depth validation (100 levels max) to prevent DoS attacks
//   - Path validation to prevent directory traversal
//   - Regular file checks (no symlinks or device files)
//   - Credential redaction in String output
package config
