package session

import (
	"fmt"

	"github.com/c360/llmbridge/errors"
)

// Mode selects how the process relates to its peer: a single dedicated
// client, or a pooled worker serving a sequence of unrelated sessions.
type Mode string

const (
	Standalone Mode = "standalone"
	PoolWorker Mode = "pool-worker"
)

// AnonymousSession is the sentinel session id whose programs live in the
// worker's own memory even in pool-worker mode.
const AnonymousSession = "anonymous"

// ParseMode validates a mode string. Empty defaults to Standalone.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "", string(Standalone):
		return Standalone, nil
	case string(PoolWorker):
		return PoolWorker, nil
	default:
		return "", fmt.Errorf("invalid mode %q (valid: %s, %s)", s, Standalone, PoolWorker)
	}
}

// Router answers where program state for a given session lives and which
// session rules apply for the process mode.
type Router struct {
	mode Mode
}

// NewRouter returns a Router for the given mode.
func NewRouter(mode Mode) *Router {
	return &Router{mode: mode}
}

// Mode returns the process mode.
func (r *Router) Mode() Mode {
	return r.mode
}

// PoolWorker reports whether the process serves pooled sessions.
func (r *Router) PoolWorker() bool {
	return r.mode == PoolWorker
}

// UsesLocal reports whether programs for sessionID live in this process.
// Standalone keeps everything local. Pool workers keep only the anonymous
// session local; named sessions are owned by the host and travel with the
// request.
func (r *Router) UsesLocal(sessionID string) bool {
	if r.mode != PoolWorker {
		return true
	}
	return sessionID == "" || sessionID == AnonymousSession
}

// RequireSession enforces the pool-worker rule that mutating commands name
// a session. Standalone never requires one.
func (r *Router) RequireSession(sessionID string) error {
	if r.mode == PoolWorker && sessionID == "" {
		return errors.Validation(errors.ErrMissingSessionID,
			"Session ID required in pool-worker mode")
	}
	return nil
}
