// In-package test doubles for the completion backend.
package lm

import (
	"context"
	"sync"
)

// FakeClient is a scripted Client for tests. Respond, when set, computes
// the reply per request; otherwise Text/Err are returned as-is. Every
// request is recorded.
type FakeClient struct {
	mu      sync.Mutex
	calls   []Request
	Respond func(Request) (*Result, error)
	Text    string
	Err     error
}

// Complete implements Client.
func (f *FakeClient) Complete(_ context.Context, req Request) (*Result, error) {
	f.mu.Lock()
	f.calls = append(f.calls, req)
	f.mu.Unlock()

	if f.Respond != nil {
		return f.Respond(req)
	}
	if f.Err != nil {
		return nil, f.Err
	}
	return &Result{Text: f.Text}, nil
}

// Calls returns a copy of every request seen so far.
func (f *FakeClient) Calls() []Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Request, len(f.calls))
	copy(out, f.calls)
	return out
}

// LastCall returns the most recent request, or a zero Request when none
// were made.
func (f *FakeClient) LastCall() Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.calls) == 0 {
		return Request{}
	}
	return f.calls[len(f.calls)-1]
}

// NewTestManager returns a Manager with client pre-installed under a
// google/gemini configuration, and the environment lookup stubbed out.
func NewTestManager(client Client) *Manager {
	m := NewManager(Settings{}, nil)
	m.lookupEnv = func(string) string { return "" }
	m.Install(client, Config{
		Provider:    "google",
		Model:       DefaultModel,
		Temperature: DefaultTemperature,
	})
	return m
}

// NewEmptyTestManager returns an unconfigured Manager whose environment
// lookup is stubbed out, for exercising unavailable-backend paths.
func NewEmptyTestManager() *Manager {
	m := NewManager(Settings{}, nil)
	m.lookupEnv = func(string) string { return "" }
	return m
}
