// Package main implements the entry point for the llmbridge worker, a
// subprocess that executes language-model programs on behalf of a host
// orchestrator. The host speaks a length-prefixed JSON protocol on the
// worker's stdin/stdout; logs and diagnostics go to stderr.
package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/c360/llmbridge/bridge"
	"github.com/c360/llmbridge/config"
	"github.com/c360/llmbridge/health"
	"github.com/c360/llmbridge/lm"
	"github.com/c360/llmbridge/metric"
	"github.com/c360/llmbridge/protocol"
	"github.com/c360/llmbridge/registry"
	"github.com/c360/llmbridge/session"
	"github.com/c360/llmbridge/signature"
)

// Build information constants
const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "llmbridge"
)

func main() {
	// Add panic recovery
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := run(); err != nil {
		slog.Error("Worker failed", "error", err, "exit_code", 1)
		os.Exit(1)
	}
}

func run() error {
	cliCfg, shouldExit, err := initializeCLI()
	if shouldExit || err != nil {
		return err
	}

	cfg, err := resolveConfiguration(cliCfg)
	if err != nil {
		return err
	}

	if cliCfg.Validate {
		slog.Info("Configuration is valid")
		return nil
	}

	logger, closeLogs := finalizeLogger(cfg)
	defer closeLogs()

	worker, metricsServer, err := buildWorker(cfg, logger)
	if err != nil {
		return err
	}

	return runWorker(worker, metricsServer, cliCfg.ShutdownTimeout)
}

// initializeCLI parses flags and sets up the bootstrap logger.
func initializeCLI() (*CLIConfig, bool, error) {
	cliCfg := parseFlags()
	if err := validateFlags(cliCfg); err != nil {
		return nil, false, fmt.Errorf("invalid flags: %w", err)
	}

	if cliCfg.ShowVersion {
		fmt.Printf("%s version %s\n", appName, Version)
		return nil, true, nil
	}

	if cliCfg.ShowHelp {
		printDetailedHelp()
		return nil, true, nil
	}

	// Bootstrap logger so config loading failures are reported sanely;
	// rebuilt once the full configuration is known.
	slog.SetDefault(setupLogger(cliCfg.LogLevel, cliCfg.LogFormat, nil))

	slog.Info("Starting llmbridge worker",
		"version", Version,
		"build_time", BuildTime,
		"config_path", cliCfg.ConfigPath)

	return cliCfg, false, nil
}

// resolveConfiguration loads config layers and applies CLI overrides.
func resolveConfiguration(cliCfg *CLIConfig) (*config.Config, error) {
	loader := config.NewLoader()
	if cliCfg.ConfigPath != "" {
		loader.AddLayer(cliCfg.ConfigPath)
	}

	cfg, err := loader.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	// CLI flags win over the file and the environment.
	if cliCfg.Mode != "" {
		cfg.Worker.Mode = cliCfg.Mode
	}
	if cliCfg.WorkerID != "" {
		cfg.Worker.WorkerID = cliCfg.WorkerID
	}
	if cliCfg.LogLevel != "" {
		cfg.Logging.Level = cliCfg.LogLevel
	}
	if cliCfg.LogFormat != "" {
		cfg.Logging.Format = cliCfg.LogFormat
	}
	if cliCfg.DebugLogFile != "" {
		cfg.Logging.DebugFile = cliCfg.DebugLogFile
	}
	if cliCfg.MetricsPort > 0 {
		cfg.Metrics.Enabled = true
		cfg.Metrics.Port = cliCfg.MetricsPort
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	// Pool hosts address workers by id; make one up when none was given so
	// log lines and ping replies stay attributable.
	if cfg.Worker.Mode == config.ModePoolWorker && cfg.Worker.WorkerID == "" {
		cfg.Worker.WorkerID = "worker-" + uuid.New().String()[:8]
		slog.Info("Generated worker id", "worker_id", cfg.Worker.WorkerID)
	}

	return cfg, nil
}

// finalizeLogger rebuilds the process logger from the resolved
// configuration, wiring in the debug trace file when one is configured.
func finalizeLogger(cfg *config.Config) (*slog.Logger, func()) {
	var extra io.Writer
	closeLogs := func() {}

	if cfg.Logging.DebugFile != "" {
		f, err := openDebugLog(cfg.Logging.DebugFile)
		if err != nil {
			slog.Warn("Cannot open debug log file, continuing without it",
				"path", cfg.Logging.DebugFile, "error", err)
		} else {
			extra = f
			closeLogs = func() { _ = f.Close() }
		}
	}

	logger := setupLogger(cfg.Logging.Level, cfg.Logging.Format, extra).
		With("mode", cfg.Worker.Mode)
	if cfg.Worker.WorkerID != "" {
		logger = logger.With("worker_id", cfg.Worker.WorkerID)
	}
	slog.SetDefault(logger)

	return logger, closeLogs
}

// buildWorker wires the dispatcher and, when enabled, the metrics sidecar.
func buildWorker(cfg *config.Config, logger *slog.Logger) (*bridge.Bridge, *metric.Server, error) {
	monitor := health.NewMonitor()
	compiler := signature.NewCompiler(logger)

	manager := lm.NewManager(cfg.LMSettings(), logger)
	if lmCfg, ok := cfg.StartupLM(); ok {
		if _, err := manager.Configure(lmCfg); err != nil {
			logger.Warn("Startup language-model configuration failed, worker starts unconfigured",
				"error", err)
		}
	}

	var (
		bridgeMetrics *metric.BridgeMetrics
		metricsServer *metric.Server
	)
	if cfg.Metrics.Enabled {
		metricsRegistry := metric.NewMetricsRegistry()
		bm, err := metric.NewBridgeMetrics(metricsRegistry)
		if err != nil {
			return nil, nil, fmt.Errorf("create metrics: %w", err)
		}
		bridgeMetrics = bm
		metricsServer = metric.NewServer(cfg.Metrics.Bind, cfg.Metrics.Port, cfg.Metrics.Path,
			metricsRegistry, monitor, cfg.Security)
	}

	worker, err := bridge.New(bridge.Config{
		Mode:       session.Mode(cfg.Worker.Mode),
		WorkerID:   cfg.Worker.WorkerID,
		UseDynamic: cfg.Signatures.DynamicEnabled,
	}, bridge.Dependencies{
		Framer:   protocol.NewFramer(os.Stdin, bufio.NewWriter(os.Stdout)),
		Registry: registry.NewRegistry(compiler, manager, logger),
		Compiler: compiler,
		LM:       manager,
		Metrics:  bridgeMetrics,
		Health:   monitor,
		Logger:   logger,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("create bridge: %w", err)
	}

	return worker, metricsServer, nil
}

// runWorker runs the command loop until end of stream, a shutdown command,
// or a termination signal, then stops the metrics sidecar.
func runWorker(worker *bridge.Bridge, metricsServer *metric.Server, shutdownTimeout time.Duration) error {
	signalCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if metricsServer != nil {
		go func() {
			if err := metricsServer.Start(); err != nil {
				slog.Error("Metrics server failed", "error", err)
			}
		}()
	}

	serveDone := make(chan error, 1)
	go func() { serveDone <- worker.Serve(signalCtx) }()

	var serveErr error
	select {
	case serveErr = <-serveDone:
	case <-signalCtx.Done():
		slog.Info("Received shutdown signal")
		select {
		case serveErr = <-serveDone:
		case <-time.After(shutdownTimeout):
			// A loop blocked reading stdin cannot observe the context.
			slog.Warn("Command loop still blocked on stdin, abandoning it",
				"timeout", shutdownTimeout)
		}
	}

	if metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := metricsServer.Stop(shutdownCtx); err != nil {
			slog.Error("Error stopping metrics server", "error", err)
		}
	}

	if serveErr != nil {
		return fmt.Errorf("command loop: %w", serveErr)
	}

	slog.Info("Worker shutdown complete")
	return nil
}
