// Package llmbridge implements a subprocess worker that executes
// language-model programs on behalf of a host orchestrator.
//
// # Philosophy: A Worker, Not A Service
//
// llmbridge is the low half of a two-process design. The host process owns
// orchestration: it spawns workers, balances sessions across them, stores
// canonical program state, and decides retry and supervision policy. The
// worker owns execution: it compiles signatures, holds per-process program
// state, and talks to the language-model backend.
//
// The worker therefore has no listening socket for its primary protocol, no
// persistence, and no background jobs. It reads one command at a time from
// stdin, executes it synchronously, and writes one response to stdout. If
// the worker dies, the host recreates everything it needs on a fresh one
// from its own records.
//
// llmbridge MUST NOT contain:
//   - Orchestration logic (pooling, load balancing, supervision)
//   - Canonical session storage (the host owns session data)
//   - Concurrent command execution (ordering is the protocol's contract)
//
// # Architecture
//
//	                        host orchestrator
//	                               │
//	                 4-byte big-endian length + JSON
//	                               │
//	┌──────────────────────────────┼────────────────────────────────┐
//	│  worker                      ↓                                │
//	│  ┌─────────────┐      ┌─────────────┐      ┌──────────────┐   │
//	│  │   protocol  │  →   │    bridge   │  →   │   registry   │   │
//	│  │ framer +    │      │ dispatcher  │      │ program      │   │
//	│  │ envelopes   │  ←   │ + serve loop│  ←   │ lifecycle    │   │
//	│  └─────────────┘      └──────┬──────┘      └──────┬───────┘   │
//	│                              │                    │           │
//	│                       ┌──────┴──────┐      ┌──────┴───────┐   │
//	│                       │   session   │      │  signature   │   │
//	│                       │ mode router │      │ compiler +   │   │
//	│                       └─────────────┘      │ cache        │   │
//	│                                            └──────┬───────┘   │
//	│                                                   │           │
//	│                                            ┌──────┴───────┐   │
//	│                                            │      lm      │   │
//	│                                            │ backend mgr  │→ HTTPS
//	│                                            └──────────────┘   │
//	└───────────────────────────────────────────────────────────────┘
//
// Every inbound frame decodes to {id, command, args}; every outbound frame
// is {id, success, result | error, timestamp}. The id is the host's
// correlation handle and is echoed untouched.
//
// # Modes
//
// Standalone mode serves one host for the worker's lifetime. Programs are
// stored locally; end of stream on stdin ends the process.
//
// Pool-worker mode serves a host that multiplexes many logical sessions
// over one worker. Commands carry a session_id; named sessions keep their
// program state on the host and replay it into each execute call
// (program_data snapshots), so any worker can serve any session. The
// "anonymous" session is the exception: its programs live in the worker's
// local store. End of stream means "no client attached right now" and the
// loop idles until the host returns.
//
// # Error Taxonomy
//
// Failures carry one of six classes (errors package): protocol (malformed
// frame, dropped), validation (bad arguments, answered), not-found
// (unknown program/session/command, answered), backend (no language model
// configured, answered), execution (the program raised, answered), and
// disconnected (peer gone, recovered or exits the loop). Signature
// compilation failure is deliberately NOT an error: creation falls back to
// the question/answer shape and records fallback_used.
//
// # Package Map
//
//   - protocol: length-prefixed framing and request/response envelopes
//   - bridge: command dispatcher, handler table, serve loop
//   - registry: program records, create/execute/list/delete/info
//   - signature: definition parsing, schema validation, compiled cache
//   - session: mode parsing and session routing rules
//   - lm: language-model manager, OpenAI-compatible chat client, fakes
//   - config: layered file/env configuration
//   - health, metric: component health and the Prometheus sidecar
//   - errors: classified errors shared by every package
//   - pkg/retry, pkg/security, pkg/tlsutil, pkg/timestamp: support kit
//   - cmd/llmbridge: the worker binary
//
// # Wire Example
//
// Create and run a question-answering program:
//
//	→ {"id": 1, "command": "create_program",
//	   "args": {"id": "qa", "signature": {
//	       "inputs":  [{"name": "question", "description": "the question"}],
//	       "outputs": [{"name": "answer",   "description": "the answer"}]}}}
//	← {"id": 1, "success": true,
//	   "result": {"program_id": "qa", "status": "created", ...}}
//
//	→ {"id": 2, "command": "execute_program",
//	   "args": {"program_id": "qa", "inputs": {"question": "2+2?"}}}
//	← {"id": 2, "success": true,
//	   "result": {"program_id": "qa", "outputs": {"answer": "4"},
//	              "execution_time": 0.41}}
//
// The worker never reorders: the response to command N is on the wire
// before the request for command N+1 is read.
package llmbridge
