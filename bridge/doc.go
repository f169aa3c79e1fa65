// Package bridge ties the framed channel to the program registry and
// language-model manager as a single-threaded command dispatcher.
//
// The serve loop reads one frame, decodes it, dispatches exactly one
// command to completion, writes exactly one response frame, then reads the
// next. There is no pipelining and no concurrent command execution; a
// coarse mutex keeps the command and error counters honest for observers
// outside the loop (the metrics HTTP server and tests).
//
// Error policy follows the channel's failure classes: undecodable frames
// are logged and skipped, handler failures and panics come back to the
// peer as failure envelopes, end-of-stream ends a standalone process
// cleanly while a pool worker treats it as "no client currently attached"
// and keeps waiting, and a peer vanishing mid-write never kills a pool
// worker. Only unresynchronizable stream corruption stops the loop with an
// error.
package bridge
