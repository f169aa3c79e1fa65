// Package protocol implements the framed wire protocol between the bridge
// worker and its host orchestrator.
//
// The transport is a single long-lived duplex stream (the worker's stdin and
// stdout). Each direction carries frames:
//
//	[4-byte unsigned big-endian length][length bytes of UTF-8 JSON]
//
// Inbound frames hold a Request envelope {"id", "command", "args"}; outbound
// frames hold a Response envelope {"id", "success", "result"|"error",
// "timestamp"}. Every inbound envelope with a recoverable id and command is
// answered by exactly one outbound envelope with the same id.
//
// The Framer owns framing only and is payload-agnostic; envelope.go owns the
// JSON codec. Failure classes are split deliberately: a malformed or
// truncated frame is a protocol error (logged, dropped, loop continues),
// end-of-stream at a frame boundary is a clean EndOfStream, and a write
// failing because the peer closed its read end is a recoverable disconnect
// so a pooled worker can outlive its current peer.
package protocol
