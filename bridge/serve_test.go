package bridge_test

import (
	"context"
	"encoding/json"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/llmbridge/bridge"
	"github.com/c360/llmbridge/lm"
	"github.com/c360/llmbridge/protocol"
	"github.com/c360/llmbridge/registry"
	"github.com/c360/llmbridge/signature"
)

// wire runs a bridge's serve loop over in-memory pipes and plays the host
// on the other end.
type wire struct {
	t      *testing.T
	host   *protocol.Framer
	inW    *io.PipeWriter
	outR   *io.PipeReader
	done   chan error
	cancel context.CancelFunc
}

func startServe(t *testing.T, cfg bridge.Config) *wire {
	t.Helper()

	inR, inW := io.Pipe()
	outR, outW := io.Pipe()

	compiler := signature.NewCompiler(nil)
	manager := lm.NewTestManager(&lm.FakeClient{Text: "answer: 4"})
	b, err := bridge.New(cfg, bridge.Dependencies{
		Framer:   protocol.NewFramer(inR, outW),
		Registry: registry.NewRegistry(compiler, manager, nil),
		Compiler: compiler,
		LM:       manager,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- b.Serve(ctx) }()

	t.Cleanup(func() {
		cancel()
		inW.Close()
		outR.Close()
	})

	return &wire{
		t:      t,
		host:   protocol.NewFramer(outR, inW),
		inW:    inW,
		outR:   outR,
		done:   done,
		cancel: cancel,
	}
}

func (w *wire) send(id int64, command string, args map[string]any) {
	w.t.Helper()
	payload, err := json.Marshal(map[string]any{
		"id":      id,
		"command": command,
		"args":    args,
	})
	require.NoError(w.t, err)
	require.NoError(w.t, w.host.WriteFrame(payload))
}

func (w *wire) recv() *protocol.Response {
	w.t.Helper()
	payload, err := w.host.ReadFrame()
	require.NoError(w.t, err)
	resp, err := protocol.DecodeResponse(payload)
	require.NoError(w.t, err)
	return resp
}

func (w *wire) roundTrip(id int64, command string, args map[string]any) *protocol.Response {
	w.t.Helper()
	w.send(id, command, args)
	return w.recv()
}

// waitDone expects the serve loop to stop and returns its error.
func (w *wire) waitDone() error {
	w.t.Helper()
	select {
	case err := <-w.done:
		return err
	case <-time.After(2 * time.Second):
		w.t.Fatal("serve loop did not stop")
		return nil
	}
}

// stillServing asserts the loop has not stopped within the grace window.
func (w *wire) stillServing(grace time.Duration) {
	w.t.Helper()
	select {
	case err := <-w.done:
		w.t.Fatalf("serve loop stopped early: %v", err)
	case <-time.After(grace):
	}
}

func TestServeRoundTrip(t *testing.T) {
	w := startServe(t, bridge.DefaultConfig())

	pong := w.roundTrip(1, "ping", nil)
	require.True(t, pong.Success)
	assert.Equal(t, int64(1), pong.ID)
	result := pong.Result.(map[string]any)
	assert.Equal(t, "ok", result["status"])
	assert.Equal(t, "standalone", result["mode"])

	created := w.roundTrip(2, "create_program", map[string]any{
		"id":        "p1",
		"signature": qaDefinition(),
	})
	require.True(t, created.Success)

	executed := w.roundTrip(3, "execute_program", map[string]any{
		"program_id": "p1",
		"inputs":     map[string]any{"question": "2+2?"},
	})
	require.True(t, executed.Success)
	outputs := executed.Result.(map[string]any)["outputs"].(map[string]any)
	assert.Equal(t, "4", outputs["answer"])

	failed := w.roundTrip(4, "execute_program", map[string]any{})
	require.False(t, failed.Success)
	assert.Equal(t, int64(4), failed.ID)
	assert.Equal(t, "Program ID is required", failed.Error)
	assert.Greater(t, failed.Timestamp, 0.0)
}

func TestServeSkipsUndecodableFrames(t *testing.T) {
	w := startServe(t, bridge.DefaultConfig())

	require.NoError(t, w.host.WriteFrame([]byte("{not json")))
	require.NoError(t, w.host.WriteFrame([]byte(`{"id": 7}`)))

	pong := w.roundTrip(2, "ping", nil)
	assert.Equal(t, int64(2), pong.ID, "skipped frames must not be answered")
}

func TestServeStandaloneExitsOnEOF(t *testing.T) {
	w := startServe(t, bridge.DefaultConfig())

	w.roundTrip(1, "ping", nil)
	require.NoError(t, w.inW.Close())

	require.NoError(t, w.waitDone())
}

func TestServeShutdownCommandStopsLoop(t *testing.T) {
	w := startServe(t, bridge.DefaultConfig())

	resp := w.roundTrip(1, "shutdown", nil)
	require.True(t, resp.Success)
	assert.Equal(t, "shutting_down", resp.Result.(map[string]any)["status"])

	require.NoError(t, w.waitDone())
}

func TestServePoolWorkerIdlesOnEOF(t *testing.T) {
	cfg := poolConfig()
	cfg.IdleBackoff = 5 * time.Millisecond
	w := startServe(t, cfg)

	w.roundTrip(1, "ping", nil)
	require.NoError(t, w.inW.Close())

	w.stillServing(30 * time.Millisecond)

	w.cancel()
	require.NoError(t, w.waitDone())
}

func TestServePoolWorkerSurvivesPeerLossOnWrite(t *testing.T) {
	cfg := poolConfig()
	cfg.IdleBackoff = 5 * time.Millisecond
	w := startServe(t, cfg)

	require.NoError(t, w.outR.Close())
	w.send(1, "ping", nil)

	w.stillServing(30 * time.Millisecond)

	require.NoError(t, w.inW.Close())
	w.cancel()
	require.NoError(t, w.waitDone())
}

func TestServeStandaloneExitsOnPeerLossDuringWrite(t *testing.T) {
	w := startServe(t, bridge.DefaultConfig())

	require.NoError(t, w.outR.Close())
	w.send(1, "ping", nil)

	require.NoError(t, w.waitDone())
}

func TestServeStopsOnOversizedLengthPrefix(t *testing.T) {
	w := startServe(t, bridge.DefaultConfig())

	_, err := w.inW.Write([]byte{0xff, 0xff, 0xff, 0xff})
	require.NoError(t, err)

	err = w.waitDone()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "frame exceeds maximum size")
}

func TestServeStopsOnTruncatedFrame(t *testing.T) {
	w := startServe(t, bridge.DefaultConfig())

	_, err := w.inW.Write([]byte{0x00, 0x00, 0x00, 0x0a})
	require.NoError(t, err)
	_, err = w.inW.Write([]byte("abc"))
	require.NoError(t, err)
	require.NoError(t, w.inW.Close())

	err = w.waitDone()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "truncated frame")
}

func TestServeStopsWhenContextAlreadyCanceled(t *testing.T) {
	inR, inW := io.Pipe()
	_, outW := io.Pipe()
	t.Cleanup(func() { inW.Close() })

	compiler := signature.NewCompiler(nil)
	manager := lm.NewTestManager(&lm.FakeClient{})
	b, err := bridge.New(poolConfig(), bridge.Dependencies{
		Framer:   protocol.NewFramer(inR, outW),
		Registry: registry.NewRegistry(compiler, manager, nil),
		Compiler: compiler,
		LM:       manager,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, b.Serve(ctx))
}

func TestServePoolWorkerMode(t *testing.T) {
	cfg := poolConfig()
	w := startServe(t, cfg)

	pong := w.roundTrip(1, "ping", nil)
	result := pong.Result.(map[string]any)
	assert.Equal(t, "pool-worker", result["mode"])
	assert.Equal(t, "w1", result["worker_id"])

	resp := w.roundTrip(2, "create_program", map[string]any{
		"id":        "p1",
		"signature": qaDefinition(),
	})
	require.False(t, resp.Success)
	assert.Equal(t, "Session ID required in pool-worker mode", resp.Error)
}
