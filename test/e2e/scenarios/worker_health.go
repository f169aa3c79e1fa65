package scenarios

import (
	"context"
	"fmt"

	"github.com/c360/llmbridge/test/e2e/client"
)

// WorkerHealthScenario proves a freshly spawned standalone worker answers
// its introspection commands with sane values.
type WorkerHealthScenario struct {
	name        string
	description string
	binary      string
	config      *WorkerHealthConfig
	worker      *client.WorkerClient
}

// WorkerHealthConfig tunes the health checks.
type WorkerHealthConfig struct {
	// RequireBackend fails the scenario when no language model backend is
	// configured. Off by default so the scenario runs without credentials.
	RequireBackend bool `json:"require_backend"`
}

// DefaultWorkerHealthConfig returns the credential-free defaults.
func DefaultWorkerHealthConfig() *WorkerHealthConfig {
	return &WorkerHealthConfig{RequireBackend: false}
}

// NewWorkerHealthScenario builds the scenario around a worker binary path.
func NewWorkerHealthScenario(binary string, config *WorkerHealthConfig) *WorkerHealthScenario {
	if config == nil {
		config = DefaultWorkerHealthConfig()
	}
	return &WorkerHealthScenario{
		name:        "worker-health",
		description: "Validates ping, get_stats and session introspection on a standalone worker",
		binary:      binary,
		config:      config,
	}
}

// Name returns the scenario name.
func (s *WorkerHealthScenario) Name() string { return s.name }

// Description returns the scenario description.
func (s *WorkerHealthScenario) Description() string { return s.description }

// Setup spawns the standalone worker.
func (s *WorkerHealthScenario) Setup(ctx context.Context) error {
	worker, err := client.Spawn(ctx, client.Options{
		Binary: s.binary,
		Mode:   "standalone",
	})
	if err != nil {
		return err
	}
	s.worker = worker
	return nil
}

// Execute runs the health stages.
func (s *WorkerHealthScenario) Execute(ctx context.Context) (*Result, error) {
	result := newResult(s.name)
	return runStages(ctx, result, []stage{
		{"ping", s.executePing},
		{"stats", s.executeStats},
		{"session-introspection", s.executeSessionIntrospection},
	}), nil
}

// Teardown reaps the worker. Standalone workers exit on stdin EOF.
func (s *WorkerHealthScenario) Teardown(_ context.Context) error {
	if s.worker == nil {
		return nil
	}
	return s.worker.Close()
}

func (s *WorkerHealthScenario) executePing(_ context.Context, result *Result) error {
	pong, err := s.worker.CallResult("ping", nil)
	if err != nil {
		return err
	}
	result.Details["ping"] = pong

	if pong["status"] != "ok" {
		return fmt.Errorf("ping status = %v, want ok", pong["status"])
	}
	if pong["mode"] != "standalone" {
		return fmt.Errorf("ping mode = %v, want standalone", pong["mode"])
	}

	available, ok := pong["backend_available"].(bool)
	if !ok {
		return fmt.Errorf("ping backend_available = %v, want bool", pong["backend_available"])
	}
	result.Metrics["backend_available"] = available
	if s.config.RequireBackend && !available {
		return fmt.Errorf("backend required but not available")
	}
	if !available {
		result.Warnings = append(result.Warnings,
			"no language model backend configured; execution paths untested")
	}
	return nil
}

func (s *WorkerHealthScenario) executeStats(_ context.Context, result *Result) error {
	stats, err := s.worker.CallResult("get_stats", nil)
	if err != nil {
		return err
	}
	result.Details["stats"] = stats

	if count, ok := stats["programs_count"].(float64); !ok || count != 0 {
		return fmt.Errorf("programs_count = %v, want 0", stats["programs_count"])
	}
	if size, ok := stats["signature_cache_size"].(float64); !ok || size != 0 {
		return fmt.Errorf("signature_cache_size = %v, want 0", stats["signature_cache_size"])
	}
	// The ping above and this call itself are already counted.
	commands, ok := stats["command_count"].(float64)
	if !ok || commands < 2 {
		return fmt.Errorf("command_count = %v, want >= 2", stats["command_count"])
	}
	result.Metrics["command_count"] = commands
	return nil
}

func (s *WorkerHealthScenario) executeSessionIntrospection(_ context.Context, result *Result) error {
	data, err := s.worker.CallResult("get_session_data", map[string]any{"session_id": "probe"})
	if err != nil {
		return err
	}
	result.Details["session_data"] = data

	if data["status"] != "not_stored_locally" {
		return fmt.Errorf("get_session_data status = %v, want not_stored_locally", data["status"])
	}
	return nil
}
