package bridge

import (
	"context"
	"fmt"
	"runtime"

	"github.com/c360/llmbridge/errors"
	"github.com/c360/llmbridge/health"
	"github.com/c360/llmbridge/lm"
	"github.com/c360/llmbridge/pkg/timestamp"
	"github.com/c360/llmbridge/registry"
	"github.com/c360/llmbridge/session"
)

// handlePing answers liveness probes with availability and uptime.
func (b *Bridge) handlePing(_ context.Context, _ map[string]any) (any, error) {
	result := map[string]any{
		"status":            "ok",
		"timestamp":         timestamp.Now(),
		"backend_available": b.lm.Available(),
		"gemini_available":  b.lm.GeminiAvailable(),
		"uptime":            timestamp.Uptime(b.startTime),
		"mode":              string(b.router.Mode()),
	}
	if b.cfg.WorkerID != "" {
		result["worker_id"] = b.cfg.WorkerID
	}
	return result, nil
}

// handleConfigureLM installs a language-model client from request
// arguments. Temperature defaults to lm.DefaultTemperature only when the
// argument is absent; an explicit zero is honored.
func (b *Bridge) handleConfigureLM(_ context.Context, args map[string]any) (any, error) {
	res, err := b.lm.Configure(lm.Config{
		Provider:    stringArg(args, "provider"),
		Model:       stringArg(args, "model"),
		APIKey:      stringArg(args, "api_key"),
		Temperature: floatArgDefault(args, "temperature", lm.DefaultTemperature),
		BaseURL:     stringArg(args, "base_url"),
	})
	if err != nil {
		if errors.IsBackend(err) {
			b.health.Update("lm", health.DegradedFromError("lm", err))
			b.metrics.SetBackendConfigured(false)
		}
		return nil, err
	}

	b.health.UpdateHealthy("lm",
		fmt.Sprintf("configured %s/%s via %s", res.Provider, res.Model, res.Strategy))
	b.metrics.SetBackendConfigured(true)

	return map[string]any{
		"status":      "configured",
		"model":       res.Model,
		"provider":    res.Provider,
		"temperature": res.Temperature,
		"strategy":    res.Strategy,
	}, nil
}

// handleCreateProgram builds a predict program. In pool-worker mode the
// record is only stored locally for the anonymous session; for named
// sessions the host owns the program and the worker just acknowledges.
func (b *Bridge) handleCreateProgram(_ context.Context, args map[string]any) (any, error) {
	programID := stringArg(args, "id")
	if programID == "" {
		return nil, errors.Validation(errors.ErrMissingProgramID, "Program ID is required")
	}
	sessionID := stringArg(args, "session_id")
	if err := b.router.RequireSession(sessionID); err != nil {
		return nil, err
	}

	return b.registry.Create(registry.CreateParams{
		ID:            programID,
		RawDefinition: mapArg(args, "signature"),
		ProgramType:   stringArg(args, "program_type"),
		UseDynamic:    boolArgDefault(args, "use_dynamic_signature", b.cfg.UseDynamic),
		Persist:       b.router.UsesLocal(sessionID),
	})
}

// handleCreateGeminiProgram builds a Gemini program. These always live in
// the local store; the host never snapshots them.
func (b *Bridge) handleCreateGeminiProgram(_ context.Context, args map[string]any) (any, error) {
	return b.registry.CreateGemini(registry.GeminiCreateParams{
		ID:            stringArg(args, "id"),
		RawDefinition: mapArg(args, "signature"),
		ModelName:     stringArg(args, "model"),
	})
}

// handleExecuteProgram runs a program against the configured backend.
func (b *Bridge) handleExecuteProgram(ctx context.Context, args map[string]any) (any, error) {
	programID := stringArg(args, "program_id")
	if programID == "" {
		return nil, errors.Validation(errors.ErrMissingProgramID, "Program ID is required")
	}

	rec, err := b.resolveRecord(programID, stringArg(args, "session_id"), args)
	if err != nil {
		return nil, err
	}

	result, err := b.registry.Execute(ctx, rec, mapArg(args, "inputs"))
	b.recordExecution(rec, err)
	return result, err
}

// resolveRecord finds the record to execute: the local store for local
// scope, a transient rebuild from the request's program_data snapshot for
// host-owned sessions.
func (b *Bridge) resolveRecord(programID, sessionID string, args map[string]any) (*registry.Record, error) {
	if b.router.UsesLocal(sessionID) {
		return b.registry.Get(programID)
	}

	snapshot := mapArg(args, "program_data")
	if len(snapshot) == 0 {
		return nil, errors.NotFound(errors.ErrProgramNotFound,
			fmt.Sprintf("Program not found: %s (no program data provided)", programID))
	}
	return b.registry.Recreate(programID, session.ParseSnapshot(snapshot)), nil
}

// handleExecuteGeminiProgram runs a Gemini program from the local store.
func (b *Bridge) handleExecuteGeminiProgram(ctx context.Context, args map[string]any) (any, error) {
	rec, err := b.registry.Get(stringArg(args, "program_id"))
	if err != nil {
		return nil, err
	}

	result, err := b.registry.ExecuteGemini(ctx, rec, mapArg(args, "inputs"))
	b.recordExecution(rec, err)
	return result, err
}

func (b *Bridge) recordExecution(rec *registry.Record, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	b.metrics.RecordExecution(string(rec.Kind), status)
}

// handleListPrograms renders the local store. Pool workers keep no
// listing for host-owned sessions, so those come back empty.
func (b *Bridge) handleListPrograms(_ context.Context, _ map[string]any) (any, error) {
	if b.router.PoolWorker() {
		return map[string]any{
			"programs":    []any{},
			"total_count": 0,
		}, nil
	}
	return b.registry.List(), nil
}

// handleDeleteProgram removes a program from the local store. Named pool
// sessions are host-owned; the worker has no session record to delete
// from, so those report the session as unknown.
func (b *Bridge) handleDeleteProgram(_ context.Context, args map[string]any) (any, error) {
	programID := stringArg(args, "program_id")
	if programID == "" {
		return nil, errors.Validation(errors.ErrMissingProgramID, "Program ID is required")
	}
	sessionID := stringArg(args, "session_id")
	if err := b.router.RequireSession(sessionID); err != nil {
		return nil, err
	}

	if !b.router.UsesLocal(sessionID) {
		return nil, errors.NotFound(errors.ErrSessionNotFound,
			fmt.Sprintf("Session not found: %s", sessionID))
	}
	return b.registry.Delete(programID)
}

// handleGetProgramInfo reports stored metadata for one program.
func (b *Bridge) handleGetProgramInfo(_ context.Context, args map[string]any) (any, error) {
	return b.registry.Info(stringArg(args, "program_id"))
}

// handleGetStats reports counters, memory and availability.
func (b *Bridge) handleGetStats(_ context.Context, _ map[string]any) (any, error) {
	commands, errs := b.counts()
	return map[string]any{
		"programs_count":       b.registry.Count(),
		"command_count":        commands,
		"error_count":          errs,
		"uptime":               timestamp.Uptime(b.startTime),
		"memory_usage":         memoryUsage(),
		"backend_available":    b.lm.Available(),
		"gemini_available":     b.lm.GeminiAvailable(),
		"signature_cache_size": b.compiler.CacheSize(),
		"mode":                 string(b.router.Mode()),
	}, nil
}

func memoryUsage() map[string]any {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	return map[string]any{
		"heap_alloc": ms.HeapAlloc,
		"heap_sys":   ms.HeapSys,
		"num_gc":     ms.NumGC,
		"goroutines": runtime.NumGoroutine(),
	}
}

// handleCleanup drops every stored program.
func (b *Bridge) handleCleanup(_ context.Context, _ map[string]any) (any, error) {
	removed := b.registry.Cleanup()
	b.logger.Info("cleanup", "programs_removed", removed)
	return map[string]any{
		"status":           "cleaned",
		"programs_removed": removed,
	}, nil
}

// handleResetState drops programs, the signature cache and both dispatch
// counters. The reported commands_reset includes the reset_state call
// itself, which was counted before the handler ran.
func (b *Bridge) handleResetState(_ context.Context, _ map[string]any) (any, error) {
	cleared := b.registry.Reset()
	commands, errs := b.resetCounts()
	b.logger.Info("state reset",
		"programs_cleared", cleared,
		"commands_reset", commands,
		"errors_reset", errs)
	return map[string]any{
		"status":           "reset",
		"programs_cleared": cleared,
		"commands_reset":   commands,
		"errors_reset":     errs,
	}, nil
}

// handleCleanupSession releases per-session state. Only the anonymous
// session keeps programs in this process; named sessions are host-owned
// and report zero removals.
func (b *Bridge) handleCleanupSession(_ context.Context, args map[string]any) (any, error) {
	if !b.router.PoolWorker() {
		return map[string]any{
			"status": "not_applicable",
			"mode":   string(b.router.Mode()),
		}, nil
	}

	sessionID := stringArg(args, "session_id")
	if sessionID == "" {
		return nil, errors.Validation(errors.ErrMissingSessionID, "Session ID required for cleanup")
	}

	removed := 0
	if b.router.UsesLocal(sessionID) {
		removed = b.registry.Cleanup()
	}
	b.logger.Debug("session cleanup", "session_id", sessionID, "programs_removed", removed)

	return map[string]any{
		"status":           "cleaned",
		"session_id":       sessionID,
		"programs_removed": removed,
	}, nil
}

// handleShutdown acknowledges a graceful stop. The serve loop terminates
// after this response is flushed. Standalone processes clear their
// program store; pool workers leave host-owned state alone.
func (b *Bridge) handleShutdown(_ context.Context, _ map[string]any) (any, error) {
	b.shuttingDown.Store(true)

	if !b.router.PoolWorker() {
		b.registry.Cleanup()
	}
	b.logger.Info("shutdown requested",
		"mode", b.router.Mode(),
		"worker_id", b.cfg.WorkerID)

	return map[string]any{
		"status":           "shutting_down",
		"worker_id":        b.cfg.WorkerID,
		"mode":             string(b.router.Mode()),
		"sessions_cleaned": 0,
	}, nil
}

// handleGetSessionData answers host queries about session state. Workers
// never store session data, so the answer is always a referral back to
// the central store.
func (b *Bridge) handleGetSessionData(_ context.Context, args map[string]any) (any, error) {
	sessionID := stringArg(args, "session_id")
	if sessionID == "" {
		return nil, errors.Validation(errors.ErrMissingSessionID, "session_id is required")
	}
	return map[string]any{
		"session_id": sessionID,
		"status":     "not_stored_locally",
		"message":    "Session data is managed centrally",
	}, nil
}

// handleUpdateSessionData acknowledges a session-change notification
// without storing anything.
func (b *Bridge) handleUpdateSessionData(_ context.Context, args map[string]any) (any, error) {
	sessionID := stringArg(args, "session_id")
	if sessionID == "" {
		return nil, errors.Validation(errors.ErrMissingSessionID, "session_id is required")
	}
	b.logger.Debug("session update acknowledged",
		"session_id", sessionID,
		"operation", stringArg(args, "operation"))
	return map[string]any{
		"session_id": sessionID,
		"status":     "acknowledged",
		"message":    "Update acknowledged - session data managed centrally",
	}, nil
}
