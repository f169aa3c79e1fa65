// Package client provides a process-spawning client for llmbridge E2E
// scenarios. It drives a real worker binary over the stdio frame protocol,
// the same way a host orchestrator would.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync/atomic"
	"time"

	"github.com/c360/llmbridge/protocol"
)

// reapTimeout bounds how long Close waits for the worker to exit before
// killing it.
const reapTimeout = 5 * time.Second

// Options configure the spawned worker.
type Options struct {
	// Binary is the path to the worker executable.
	Binary string

	// Mode selects standalone or pool-worker. Empty means the binary's
	// default.
	Mode string

	// WorkerID names the worker in pool-worker mode.
	WorkerID string

	// Env is appended to the inherited environment.
	Env []string
}

// WorkerClient owns one spawned worker process and the frame conversation
// with it. Calls are strictly sequential, matching the protocol's
// one-command-at-a-time contract.
type WorkerClient struct {
	cmd    *exec.Cmd
	framer *protocol.Framer
	stdin  io.WriteCloser
	nextID atomic.Int64
}

// Spawn starts the worker binary and wires its stdio. The worker's stderr
// passes through so its logs land in the harness output. Canceling ctx
// kills the process.
func Spawn(ctx context.Context, opts Options) (*WorkerClient, error) {
	if opts.Binary == "" {
		return nil, fmt.Errorf("spawn worker: binary path is required")
	}

	var args []string
	if opts.Mode != "" {
		args = append(args, "-mode", opts.Mode)
	}
	if opts.WorkerID != "" {
		args = append(args, "-worker-id", opts.WorkerID)
	}

	cmd := exec.CommandContext(ctx, opts.Binary, args...)
	cmd.Env = append(os.Environ(), opts.Env...)
	cmd.Stderr = os.Stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("spawn worker: stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("spawn worker: stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("spawn worker %s: %w", opts.Binary, err)
	}

	return &WorkerClient{
		cmd:    cmd,
		framer: protocol.NewFramer(stdout, stdin),
		stdin:  stdin,
	}, nil
}

// Call sends one command and blocks for its response. IDs are assigned
// sequentially and checked against the reply.
func (c *WorkerClient) Call(command string, args map[string]any) (*protocol.Response, error) {
	id := c.nextID.Add(1)

	payload, err := json.Marshal(map[string]any{
		"id":      id,
		"command": command,
		"args":    args,
	})
	if err != nil {
		return nil, fmt.Errorf("encode %s request: %w", command, err)
	}

	if err := c.framer.WriteFrame(payload); err != nil {
		return nil, fmt.Errorf("send %s: %w", command, err)
	}
	raw, err := c.framer.ReadFrame()
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w", command, err)
	}
	resp, err := protocol.DecodeResponse(raw)
	if err != nil {
		return nil, fmt.Errorf("decode %s response: %w", command, err)
	}
	if resp.ID != id {
		return nil, fmt.Errorf("%s response carries id %d, want %d", command, resp.ID, id)
	}
	return resp, nil
}

// CallResult is Call plus the expectation that the command succeeded and
// produced a map result.
func (c *WorkerClient) CallResult(command string, args map[string]any) (map[string]any, error) {
	resp, err := c.Call(command, args)
	if err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, fmt.Errorf("%s failed: %s", command, resp.Error)
	}
	result, ok := resp.Result.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%s result is %T, want object", command, resp.Result)
	}
	return result, nil
}

// Close ends the conversation and reaps the worker. Standalone workers
// exit on stdin EOF; a worker still running after the grace period is
// killed.
func (c *WorkerClient) Close() error {
	_ = c.stdin.Close()

	done := make(chan error, 1)
	go func() { done <- c.cmd.Wait() }()

	select {
	case err := <-done:
		return err
	case <-time.After(reapTimeout):
		_ = c.cmd.Process.Kill()
		return <-done
	}
}
