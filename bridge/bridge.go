package bridge

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/c360/llmbridge/errors"
	"github.com/c360/llmbridge/health"
	"github.com/c360/llmbridge/lm"
	"github.com/c360/llmbridge/metric"
	"github.com/c360/llmbridge/protocol"
	"github.com/c360/llmbridge/registry"
	"github.com/c360/llmbridge/session"
	"github.com/c360/llmbridge/signature"
)

// DefaultIdleBackoff is how long a pool worker sleeps after end-of-stream
// before polling the channel again for a reattached host.
const DefaultIdleBackoff = 100 * time.Millisecond

// Config carries the bridge's operational settings.
type Config struct {
	// Mode selects standalone or pool-worker session routing. Empty
	// defaults to standalone.
	Mode session.Mode

	// WorkerID identifies this process to the host. Pool workers always
	// carry one; standalone processes usually run without.
	WorkerID string

	// UseDynamic is the default for create_program's use_dynamic_signature
	// argument when a request leaves it unset.
	UseDynamic bool

	// IdleBackoff overrides DefaultIdleBackoff for pool workers.
	IdleBackoff time.Duration
}

// DefaultConfig returns the standalone defaults: dynamic signatures
// enabled, standard idle backoff.
func DefaultConfig() Config {
	return Config{
		Mode:        session.Standalone,
		UseDynamic:  true,
		IdleBackoff: DefaultIdleBackoff,
	}
}

// Dependencies carries the collaborators the bridge dispatches into.
// Framer, Registry, Compiler and LM are required. Logger defaults to
// slog.Default, Health to a fresh monitor; Metrics may stay nil.
type Dependencies struct {
	Framer   *protocol.Framer
	Registry *registry.Registry
	Compiler *signature.Compiler
	LM       *lm.Manager
	Metrics  *metric.BridgeMetrics
	Health   *health.Monitor
	Logger   *slog.Logger
}

type handlerFunc func(ctx context.Context, args map[string]any) (any, error)

// Bridge is the command dispatcher. It owns the handler table, the
// request counters and the serve loop that ties the framed channel to the
// program registry and the language-model manager. All command processing
// is single threaded; the mutex only keeps the counters honest for
// observers outside the loop.
type Bridge struct {
	cfg    Config
	router *session.Router

	framer   *protocol.Framer
	registry *registry.Registry
	compiler *signature.Compiler
	lm       *lm.Manager

	metrics *metric.BridgeMetrics
	health  *health.Monitor
	logger  *slog.Logger

	handlers map[string]handlerFunc

	startTime time.Time

	mu           sync.Mutex
	commandCount int64
	errorCount   int64

	shuttingDown atomic.Bool
}

// New validates the dependencies and builds a ready-to-serve Bridge.
func New(cfg Config, deps Dependencies) (*Bridge, error) {
	mode, err := session.ParseMode(string(cfg.Mode))
	if err != nil {
		return nil, errors.WrapValidation(err, "Bridge", "New", "validate mode")
	}
	cfg.Mode = mode
	if cfg.IdleBackoff <= 0 {
		cfg.IdleBackoff = DefaultIdleBackoff
	}

	if deps.Framer == nil {
		return nil, errors.WrapValidation(fmt.Errorf("framer is required"),
			"Bridge", "New", "validate dependencies")
	}
	if deps.Registry == nil {
		return nil, errors.WrapValidation(fmt.Errorf("registry is required"),
			"Bridge", "New", "validate dependencies")
	}
	if deps.Compiler == nil {
		return nil, errors.WrapValidation(fmt.Errorf("signature compiler is required"),
			"Bridge", "New", "validate dependencies")
	}
	if deps.LM == nil {
		return nil, errors.WrapValidation(fmt.Errorf("language-model manager is required"),
			"Bridge", "New", "validate dependencies")
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Health == nil {
		deps.Health = health.NewMonitor()
	}

	b := &Bridge{
		cfg:       cfg,
		router:    session.NewRouter(mode),
		framer:    deps.Framer,
		registry:  deps.Registry,
		compiler:  deps.Compiler,
		lm:        deps.LM,
		metrics:   deps.Metrics,
		health:    deps.Health,
		logger:    deps.Logger,
		startTime: time.Now(),
	}

	b.handlers = map[string]handlerFunc{
		"ping":                   b.handlePing,
		"configure_lm":           b.handleConfigureLM,
		"create_program":         b.handleCreateProgram,
		"create_gemini_program":  b.handleCreateGeminiProgram,
		"execute_program":        b.handleExecuteProgram,
		"execute_gemini_program": b.handleExecuteGeminiProgram,
		"list_programs":          b.handleListPrograms,
		"delete_program":         b.handleDeleteProgram,
		"get_program_info":       b.handleGetProgramInfo,
		"get_stats":              b.handleGetStats,
		"cleanup":                b.handleCleanup,
		"reset_state":            b.handleResetState,
		"cleanup_session":        b.handleCleanupSession,
		"shutdown":               b.handleShutdown,
		"get_session_data":       b.handleGetSessionData,
		"update_session_data":    b.handleUpdateSessionData,
	}

	b.health.UpdateHealthy("bridge", fmt.Sprintf("started in %s mode", mode))
	b.health.UpdateHealthy("registry", "empty")
	if deps.LM.Available() {
		b.health.UpdateHealthy("lm", "backend available")
	} else {
		b.health.UpdateDegraded("lm", "no language model configured")
	}

	return b, nil
}

// Mode returns the session-routing mode the bridge runs in.
func (b *Bridge) Mode() session.Mode {
	return b.router.Mode()
}

// WorkerID returns the identity assigned by the host, if any.
func (b *Bridge) WorkerID() string {
	return b.cfg.WorkerID
}

// Dispatch runs one decoded request through its handler and renders the
// response envelope. Every dispatch counts; failures and unknown commands
// additionally bump the error counter. Handler panics become execution
// failures so a single bad request never kills the loop.
func (b *Bridge) Dispatch(ctx context.Context, req *protocol.Request) *protocol.Response {
	started := time.Now()

	b.mu.Lock()
	b.commandCount++
	b.mu.Unlock()

	result, err := b.dispatch(ctx, req)

	status := "success"
	if err != nil {
		status = "error"
		b.mu.Lock()
		b.errorCount++
		b.mu.Unlock()
	}
	b.metrics.RecordCommand(req.Command, status, time.Since(started))
	b.observe()

	if err != nil {
		b.logger.Error("command failed",
			"command", req.Command,
			"request_id", req.ID,
			"class", errors.Classify(err).String(),
			"error", err)
		return protocol.NewFailure(req.ID, err)
	}
	return protocol.NewSuccess(req.ID, result)
}

func (b *Bridge) dispatch(ctx context.Context, req *protocol.Request) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("handler panic recovered",
				"command", req.Command,
				"request_id", req.ID,
				"panic", r,
				"stack", string(debug.Stack()))
			err = errors.Execution(fmt.Errorf("panic: %v", r),
				fmt.Sprintf("Command handler panicked: %v", r))
		}
	}()

	handler, ok := b.handlers[req.Command]
	if !ok {
		return nil, errors.NotFound(errors.ErrUnknownCommand,
			fmt.Sprintf("Unknown command: %s", req.Command))
	}
	return handler(ctx, req.Args)
}

// observe refreshes the health statuses and state gauges after each
// dispatch. Gauge values mirror registry and compiler state so the
// metrics endpoint never has to reach into either under its own lock.
func (b *Bridge) observe() {
	commands, errs := b.counts()
	msg := "serving"
	if b.shuttingDown.Load() {
		msg = "shutting down"
	}
	b.health.Update("bridge", health.NewHealthy("bridge", msg).WithMetrics(&health.Metrics{
		Uptime:            time.Since(b.startTime),
		ErrorCount:        errs,
		CommandsProcessed: commands,
		LastActivity:      time.Now(),
	}))
	b.health.UpdateHealthy("registry", fmt.Sprintf("%d programs stored", b.registry.Count()))

	if b.metrics == nil {
		return
	}
	b.metrics.SetActivePrograms(b.registry.Count())
	hits, misses := b.compiler.CacheStats()
	b.metrics.SetSignatureCache(b.compiler.CacheSize(), hits, misses)
}

// counts returns the dispatch counters.
func (b *Bridge) counts() (commands, errs int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.commandCount, b.errorCount
}

// resetCounts zeroes the dispatch counters and returns the values they
// held, so reset_state can report what it cleared.
func (b *Bridge) resetCounts() (commands, errs int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	commands, errs = b.commandCount, b.errorCount
	b.commandCount, b.errorCount = 0, 0
	return commands, errs
}
