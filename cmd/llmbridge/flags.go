package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/c360/llmbridge/config"
)

// CLIConfig holds command-line configuration. Empty string and zero values
// mean "inherit from the config file / defaults".
type CLIConfig struct {
	ConfigPath      string
	Mode            string
	WorkerID        string
	LogLevel        string
	LogFormat       string
	DebugLogFile    string
	MetricsPort     int
	ShutdownTimeout time.Duration
	ShowVersion     bool
	ShowHelp        bool
	Validate        bool
}

func parseFlags() *CLIConfig {
	cfg := &CLIConfig{}

	// Define flags with environment variable fallback
	flag.StringVar(&cfg.ConfigPath, "config",
		getEnv("LLMBRIDGE_CONFIG", ""),
		"Path to configuration file, JSON or YAML (env: LLMBRIDGE_CONFIG)")

	flag.StringVar(&cfg.ConfigPath, "c",
		getEnv("LLMBRIDGE_CONFIG", ""),
		"Path to configuration file, JSON or YAML (env: LLMBRIDGE_CONFIG)")

	flag.StringVar(&cfg.Mode, "mode",
		getEnv("LLMBRIDGE_MODE", ""),
		"Worker mode: standalone, pool-worker (env: LLMBRIDGE_MODE)")

	flag.StringVar(&cfg.WorkerID, "worker-id",
		getEnv("LLMBRIDGE_WORKER_ID", ""),
		"Worker ID for pool-worker mode, generated when empty (env: LLMBRIDGE_WORKER_ID)")

	flag.StringVar(&cfg.LogLevel, "log-level",
		getEnv("LLMBRIDGE_LOG_LEVEL", ""),
		"Log level: debug, info, warn, error (env: LLMBRIDGE_LOG_LEVEL)")

	flag.StringVar(&cfg.LogFormat, "log-format",
		getEnv("LLMBRIDGE_LOG_FORMAT", ""),
		"Log format: json, text (env: LLMBRIDGE_LOG_FORMAT)")

	flag.StringVar(&cfg.DebugLogFile, "debug-log-file",
		getEnv("LLMBRIDGE_DEBUG_LOG_FILE", ""),
		"Mirror log records to this file (env: LLMBRIDGE_DEBUG_LOG_FILE)")

	flag.IntVar(&cfg.MetricsPort, "metrics-port",
		getEnvInt("LLMBRIDGE_METRICS_PORT", 0),
		"Expose Prometheus metrics on this port, 0 to disable (env: LLMBRIDGE_METRICS_PORT)")

	flag.DurationVar(&cfg.ShutdownTimeout, "shutdown-timeout",
		getEnvDuration("LLMBRIDGE_SHUTDOWN_TIMEOUT", 5*time.Second),
		"Graceful shutdown timeout (env: LLMBRIDGE_SHUTDOWN_TIMEOUT)")

	flag.BoolVar(&cfg.ShowVersion, "version", false, "Show version information")
	flag.BoolVar(&cfg.ShowVersion, "v", false, "Show version information")
	flag.BoolVar(&cfg.ShowHelp, "help", false, "Show help information")
	flag.BoolVar(&cfg.ShowHelp, "h", false, "Show help information")
	flag.BoolVar(&cfg.Validate, "validate", false, "Validate configuration and exit")

	flag.Usage = func() {
		printDetailedHelp()
	}

	flag.Parse()

	return cfg
}

func validateFlags(cfg *CLIConfig) error {
	// Skip validation for special flags
	if cfg.ShowVersion || cfg.ShowHelp {
		return nil
	}

	if cfg.ConfigPath != "" {
		if _, err := os.Stat(cfg.ConfigPath); err != nil {
			return fmt.Errorf("config file not found: %s", cfg.ConfigPath)
		}
	}

	validModes := []string{"", config.ModeStandalone, config.ModePoolWorker}
	if !contains(validModes, cfg.Mode) {
		return fmt.Errorf("invalid mode: %s", cfg.Mode)
	}

	validLevels := []string{"", "debug", "info", "warn", "error"}
	if !contains(validLevels, cfg.LogLevel) {
		return fmt.Errorf("invalid log level: %s", cfg.LogLevel)
	}

	validFormats := []string{"", "json", "text"}
	if !contains(validFormats, cfg.LogFormat) {
		return fmt.Errorf("invalid log format: %s", cfg.LogFormat)
	}

	if cfg.MetricsPort < 0 || cfg.MetricsPort > 65535 {
		return fmt.Errorf("invalid metrics port: %d", cfg.MetricsPort)
	}

	if cfg.ShutdownTimeout <= 0 {
		return fmt.Errorf("invalid shutdown timeout: %s", cfg.ShutdownTimeout)
	}

	return nil
}

func printDetailedHelp() {
	_, _ = fmt.Fprintf(os.Stderr, `%s - language-model program worker

Speaks a length-prefixed JSON protocol on stdin/stdout; all diagnostics go
to stderr.

Usage: %s [options]

Options:
`, appName, os.Args[0])
	flag.PrintDefaults()
	_, _ = fmt.Fprintf(os.Stderr, `
Examples:
  # Run standalone with an explicit config
  %s --config=/etc/llmbridge/config.json

  # Run as a pool worker
  %s --mode=pool-worker --worker-id=worker-3

  # Debug a session, mirroring logs to a file
  %s --log-level=debug --log-format=text --debug-log-file=/tmp/llmbridge.log

  # Validate configuration only
  %s --config=config.yaml --validate

Version: %s
Build: %s
`, os.Args[0], os.Args[0], os.Args[0], os.Args[0], Version, BuildTime)
}

// Environment variable helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// Utility function to check if slice contains string
func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
