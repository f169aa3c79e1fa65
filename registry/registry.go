package registry

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/c360/llmbridge/errors"
	"github.com/c360/llmbridge/lm"
	"github.com/c360/llmbridge/session"
	"github.com/c360/llmbridge/signature"
)

// Registry owns the local program store. The command loop is single
// threaded, but the lock keeps list/stats reads safe from the metrics
// side and keeps administrative access honest.
type Registry struct {
	mu       sync.RWMutex
	programs map[string]*Record

	compiler *signature.Compiler
	lm       *lm.Manager
	logger   *slog.Logger
}

// NewRegistry builds an empty registry sharing the given compiler and
// language-model manager.
func NewRegistry(compiler *signature.Compiler, manager *lm.Manager, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		programs: make(map[string]*Record),
		compiler: compiler,
		lm:       manager,
		logger:   logger,
	}
}

// CreateParams carries the resolved create_program arguments. UseDynamic
// already folds the per-request flag over the configured default. Persist
// is false when the session router decided the host owns the program and
// the worker only acknowledges creation.
type CreateParams struct {
	ID            string
	RawDefinition map[string]any
	ProgramType   string
	UseDynamic    bool
	Persist       bool
}

// Create builds a program record. A complete definition under the dynamic
// flag is compiled; compilation failure is not surfaced, the record falls
// back to the default question→answer signature and is flagged.
func (r *Registry) Create(p CreateParams) (map[string]any, error) {
	if p.ID == "" {
		return nil, errors.Validation(errors.ErrMissingProgramID, "Program ID is required")
	}

	raw := p.RawDefinition
	if raw == nil {
		raw = map[string]any{}
	}
	programType := p.ProgramType
	if programType == "" {
		programType = "predict"
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if p.Persist {
		if _, exists := r.programs[p.ID]; exists {
			return nil, errors.Validation(errors.ErrDuplicateProgram,
				fmt.Sprintf("Program with ID '%s' already exists", p.ID))
		}
	}

	rec := &Record{
		ID:            p.ID,
		Kind:          KindPredict,
		ProgramType:   programType,
		RawDefinition: raw,
		CreatedAt:     time.Now(),
	}

	if p.UseDynamic && signature.Complete(raw) {
		def, err := signature.ParseDefinition(raw)
		if err == nil {
			var compiled *signature.Compiled
			var mapping signature.FieldMapping
			compiled, mapping, err = r.compiler.Compile(def)
			if err == nil {
				rec.Definition = def
				rec.Compiled = compiled
				rec.FieldMapping = mapping
			}
		}
		if err != nil {
			rec.FallbackUsed = true
			r.logger.Warn("dynamic signature failed, falling back to question-answer",
				"program_id", p.ID,
				"error", err)
		}
	}

	if p.Persist {
		r.programs[p.ID] = rec
	}

	return map[string]any{
		"program_id":   p.ID,
		"status":       "created",
		"signature":    raw,
		"program_type": programType,
	}, nil
}

// Get resolves a stored record by id.
func (r *Registry) Get(id string) (*Record, error) {
	if id == "" {
		return nil, errors.Validation(errors.ErrMissingProgramID, "Program ID is required")
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.programs[id]
	if !ok {
		return nil, errors.NotFound(errors.ErrProgramNotFound,
			fmt.Sprintf("Program not found: %s", id))
	}
	return rec, nil
}

// Delete removes a stored record.
func (r *Registry) Delete(id string) (map[string]any, error) {
	if id == "" {
		return nil, errors.Validation(errors.ErrMissingProgramID, "Program ID is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.programs[id]; !ok {
		return nil, errors.NotFound(errors.ErrProgramNotFound,
			fmt.Sprintf("Program not found: %s", id))
	}
	delete(r.programs, id)

	return map[string]any{
		"program_id": id,
		"status":     "deleted",
	}, nil
}

// List renders every stored record, ordered by id for stable output.
func (r *Registry) List() map[string]any {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.programs))
	for id := range r.programs {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	entries := make([]any, 0, len(ids))
	for _, id := range ids {
		entries = append(entries, r.programs[id].listEntry())
	}

	return map[string]any{
		"programs":    entries,
		"total_count": len(entries),
	}
}

// Info renders one record for get_program_info.
func (r *Registry) Info(id string) (map[string]any, error) {
	if id == "" {
		return nil, errors.Validation(errors.ErrMissingProgramID, "Program ID is required")
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.programs[id]
	if !ok {
		return nil, errors.NotFound(errors.ErrProgramNotFound,
			fmt.Sprintf("Program not found: %s", id))
	}
	return rec.infoPayload(), nil
}

// Cleanup drops every stored record and reports how many were removed.
func (r *Registry) Cleanup() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := len(r.programs)
	clear(r.programs)
	return removed
}

// Count returns the number of stored records.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.programs)
}

// Reset drops all records and the compiled-signature cache.
func (r *Registry) Reset() int {
	removed := r.Cleanup()
	r.compiler.Reset()
	return removed
}

// Recreate rebuilds a transient record from a host-carried snapshot. The
// result is never stored: stateless executes must not leak state into the
// local scope. Compilation reruns through the shared cache and falls back
// exactly as creation does; snapshots without a usable definition come
// back as flagged legacy records.
func (r *Registry) Recreate(id string, snap session.Snapshot) *Record {
	raw := snap.SignatureDef
	if raw == nil {
		raw = map[string]any{}
	}

	rec := &Record{
		ID:             id,
		Kind:           KindPredict,
		ProgramType:    "predict",
		RawDefinition:  raw,
		FieldMapping:   snap.FieldMapping,
		FallbackUsed:   snap.FallbackUsed,
		CreatedAt:      snap.CreatedAt,
		ExecutionCount: snap.ExecutionCount,
		LastExecuted:   snap.LastExecuted,
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}

	if snap.Dynamic() {
		def, err := signature.ParseDefinition(raw)
		if err == nil {
			var compiled *signature.Compiled
			var mapping signature.FieldMapping
			compiled, mapping, err = r.compiler.Compile(def)
			if err == nil {
				rec.Definition = def
				rec.Compiled = compiled
				rec.FieldMapping = mapping
			}
		}
		if err != nil {
			rec.FallbackUsed = true
			rec.FieldMapping = nil
			r.logger.Warn("snapshot recompilation failed, falling back to question-answer",
				"program_id", id,
				"error", err)
		}
	} else {
		rec.FallbackUsed = true
		rec.FieldMapping = nil
	}

	return rec
}

// touch bumps execution statistics after a successful run.
func (r *Registry) touch(rec *Record) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec.ExecutionCount++
	now := time.Now()
	rec.LastExecuted = &now
}
