// Package main provides the E2E scenario runner for the llmbridge worker.
// It spawns a real worker binary and drives it over the stdio frame
// protocol, standing in for the host orchestrator.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/c360/llmbridge/test/e2e/scenarios"
)

var (
	// Version information (set by build)
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	flags := parseCommandLineFlags()

	if handleVersionCommand(flags.showVersion) {
		return
	}
	if handleListCommand(flags.listScenarios) {
		return
	}

	logger := setupLogger(flags.verbose)
	ctx := setupSignalContext(logger)

	os.Exit(runScenarios(ctx, logger, flags))
}

// cliFlags holds parsed command-line flags
type cliFlags struct {
	scenarioName  string
	workerBinary  string
	timeout       time.Duration
	verbose       bool
	showVersion   bool
	listScenarios bool
}

// parseCommandLineFlags parses and returns command-line flags
func parseCommandLineFlags() *cliFlags {
	flags := &cliFlags{}

	flag.StringVar(&flags.scenarioName, "scenario", "",
		"Run specific scenario (worker-health, program-lifecycle, pool-session, or 'all')")
	flag.StringVar(&flags.workerBinary, "worker-bin", "./llmbridge",
		"Path to the worker binary under test")
	flag.DurationVar(&flags.timeout, "timeout", 60*time.Second,
		"Per-scenario timeout")
	flag.BoolVar(&flags.verbose, "verbose", false, "Enable verbose logging")
	flag.BoolVar(&flags.showVersion, "version", false, "Show version information")
	flag.BoolVar(&flags.listScenarios, "list", false, "List available scenarios")

	// Environment override for CI pipelines.
	if envBin := os.Getenv("LLMBRIDGE_E2E_BIN"); envBin != "" {
		flags.workerBinary = envBin
	}

	flag.Parse()
	return flags
}

// handleVersionCommand shows version information and returns true if version flag is set
func handleVersionCommand(showVersion bool) bool {
	if !showVersion {
		return false
	}

	fmt.Printf("llmbridge E2E Scenario Runner\n")
	fmt.Printf("Version: %s\n", version)
	fmt.Printf("Commit:  %s\n", commit)
	fmt.Printf("Date:    %s\n", date)
	return true
}

// handleListCommand shows available scenarios and returns true if list flag is set
func handleListCommand(listScenarios bool) bool {
	if !listScenarios {
		return false
	}

	fmt.Println("Available scenarios:")
	fmt.Printf("  worker-health      - Ping, stats and session introspection on a standalone worker\n")
	fmt.Printf("  program-lifecycle  - Create, list, inspect, execute and delete one program\n")
	fmt.Printf("  pool-session       - Session routing, snapshot execution and shutdown on a pool worker\n")
	fmt.Printf("  all                - Runs every scenario\n")
	fmt.Println()
	fmt.Println("Scenarios needing a language model set GEMINI_API_KEY; without it they")
	fmt.Println("assert the worker's structured backend-unavailable failures instead.")
	return true
}

// setupLogger creates and configures the logger
func setupLogger(verbose bool) *slog.Logger {
	logLevel := slog.LevelInfo
	if verbose {
		logLevel = slog.LevelDebug
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)
	return logger
}

// setupSignalContext cancels the run on interrupt so spawned workers are
// reaped rather than orphaned.
func setupSignalContext(logger *slog.Logger) context.Context {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("Received interrupt signal, shutting down...")
		cancel()
	}()

	return ctx
}

// runScenarios runs the appropriate scenarios based on flags
func runScenarios(ctx context.Context, logger *slog.Logger, flags *cliFlags) int {
	logger.Info("Driving worker binary", "path", flags.workerBinary)

	if flags.scenarioName == "" || flags.scenarioName == "all" {
		logger.Info("Running all scenarios...")
		return runAllScenarios(ctx, logger, flags)
	}

	scenario := createScenario(flags.scenarioName, flags.workerBinary)
	if scenario == nil {
		logger.Error("Unknown scenario", "name", flags.scenarioName)
		fmt.Println("\nAvailable scenarios:")
		fmt.Println("  worker-health      - Standalone worker introspection")
		fmt.Println("  program-lifecycle  - Full program lifecycle")
		fmt.Println("  pool-session       - Pool-worker session contract")
		return 1
	}

	logger.Info("Running scenario", "name", flags.scenarioName)
	return runScenario(ctx, logger, scenario, flags.timeout)
}

// createScenario creates a specific scenario by name
func createScenario(name, workerBinary string) scenarios.Scenario {
	switch name {
	case "worker-health", "health":
		return scenarios.NewWorkerHealthScenario(workerBinary, nil)
	case "program-lifecycle", "lifecycle":
		return scenarios.NewProgramLifecycleScenario(workerBinary, nil)
	case "pool-session", "pool":
		return scenarios.NewPoolSessionScenario(workerBinary, nil)
	default:
		return nil
	}
}

// runScenario executes a single scenario
func runScenario(ctx context.Context, logger *slog.Logger, scenario scenarios.Scenario, timeout time.Duration) int {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	logger.Info("Setting up scenario", "name", scenario.Name())
	if err := scenario.Setup(ctx); err != nil {
		logger.Error("Scenario setup failed", "error", err)
		return 1
	}

	logger.Info("Executing scenario", "name", scenario.Name())
	result, err := scenario.Execute(ctx)

	// Always reap the worker.
	logger.Info("Tearing down scenario", "name", scenario.Name())
	if teardownErr := scenario.Teardown(ctx); teardownErr != nil {
		logger.Warn("Teardown failed", "error", teardownErr)
	}

	if err != nil {
		logger.Error("Scenario failed", "error", err)
		return 1
	}

	for _, warning := range result.Warnings {
		logger.Warn("Scenario warning", "name", scenario.Name(), "warning", warning)
	}

	if !result.Success {
		logger.Error("Scenario completed with failure",
			"error", result.Error,
			"duration", result.Duration)
		return 1
	}

	logger.Info("Scenario completed successfully",
		"duration", result.Duration,
		"metrics", result.Metrics)

	return 0
}

// runAllScenarios executes every scenario in sequence
func runAllScenarios(ctx context.Context, logger *slog.Logger, flags *cliFlags) int {
	tests := []scenarios.Scenario{
		scenarios.NewWorkerHealthScenario(flags.workerBinary, nil),
		scenarios.NewProgramLifecycleScenario(flags.workerBinary, nil),
		scenarios.NewPoolSessionScenario(flags.workerBinary, nil),
	}

	passed := 0
	failed := 0

	for _, scenario := range tests {
		logger.Info("Running scenario", "name", scenario.Name())
		exitCode := runScenario(ctx, logger, scenario, flags.timeout)

		if exitCode == 0 {
			passed++
			logger.Info("Scenario PASSED", "name", scenario.Name())
		} else {
			failed++
			logger.Error("Scenario FAILED", "name", scenario.Name())
		}
	}

	logger.Info("Scenario suite complete",
		"passed", passed,
		"failed", failed,
		"total", len(tests))

	if failed > 0 {
		return 1
	}
	return 0
}
