package bridge

import (
	"context"
	"time"

	"github.com/c360/llmbridge/errors"
	"github.com/c360/llmbridge/protocol"
)

// Serve runs the read→dispatch→write loop until the inbound stream ends
// (standalone), the context is canceled, or a shutdown command has been
// acknowledged. Command processing is strictly synchronous: one frame in,
// one frame out, no pipelining.
//
// Pool workers treat end-of-stream as "no client currently attached":
// they back off briefly and keep reading so the same process can serve a
// sequence of unrelated sessions. Unrecoverable stream corruption ends
// the loop in both modes with the underlying error.
func (b *Bridge) Serve(ctx context.Context) error {
	b.logger.Info("bridge serving",
		"mode", b.router.Mode(),
		"worker_id", b.cfg.WorkerID)
	defer b.logger.Info("bridge stopped")

	for {
		if ctx.Err() != nil {
			return nil
		}

		payload, err := b.framer.ReadFrame()
		if err != nil {
			cont, err := b.recoverRead(ctx, err)
			if !cont {
				return err
			}
			continue
		}
		b.metrics.RecordFrameRead(len(payload))

		req, err := protocol.DecodeRequest(payload)
		if err != nil {
			// No id or command is recoverable, so there is nothing to
			// answer. Skip the frame and keep serving.
			b.logger.Warn("skipping undecodable frame", "error", err)
			continue
		}

		resp := b.Dispatch(ctx, req)
		if err := b.writeResponse(resp); err != nil {
			if !errors.IsDisconnected(err) {
				return err
			}
			if b.router.PoolWorker() {
				b.logger.Warn("peer gone before response, continuing",
					"request_id", req.ID,
					"error", err)
				continue
			}
			b.logger.Info("peer closed, exiting", "request_id", req.ID)
			return nil
		}

		if b.shuttingDown.Load() {
			// The shutdown acknowledgment is on the wire; stop reading.
			b.logger.Info("shutdown acknowledged, stopping")
			return nil
		}
	}
}

// recoverRead decides whether the loop survives a frame-read failure.
// Clean end-of-stream and peer loss are mode-dependent: standalone exits,
// pool workers idle and retry. Framing corruption (truncation, oversized
// header) cannot be resynchronized and ends the loop in both modes.
func (b *Bridge) recoverRead(ctx context.Context, err error) (bool, error) {
	if errors.IsDisconnected(err) {
		if !b.router.PoolWorker() {
			b.logger.Info("end of stream, exiting")
			return false, nil
		}
		b.logger.Debug("no client attached, idling", "backoff", b.cfg.IdleBackoff)
		return b.idle(ctx), nil
	}

	b.logger.Error("unrecoverable stream failure",
		"class", errors.Classify(err).String(),
		"error", err)
	return false, err
}

// idle sleeps one backoff interval, honoring cancellation. Returns false
// when the context ended during the sleep.
func (b *Bridge) idle(ctx context.Context) bool {
	timer := time.NewTimer(b.cfg.IdleBackoff)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// writeResponse encodes and flushes one response frame.
func (b *Bridge) writeResponse(resp *protocol.Response) error {
	payload, err := protocol.EncodeResponse(resp)
	if err != nil {
		return errors.Wrap(err, "Bridge", "writeResponse", "encode response")
	}
	if err := b.framer.WriteFrame(payload); err != nil {
		return err
	}
	b.metrics.RecordFrameWritten(len(payload))
	return nil
}
