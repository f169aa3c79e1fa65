package session_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/llmbridge/errors"
	"github.com/c360/llmbridge/session"
)

func TestParseMode(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    session.Mode
		wantErr bool
	}{
		{name: "empty defaults to standalone", input: "", want: session.Standalone},
		{name: "standalone", input: "standalone", want: session.Standalone},
		{name: "pool-worker", input: "pool-worker", want: session.PoolWorker},
		{name: "unknown mode", input: "worker", wantErr: true},
		{name: "case sensitive", input: "Standalone", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mode, err := session.ParseMode(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "invalid mode")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, mode)
		})
	}
}

func TestRouterUsesLocal(t *testing.T) {
	tests := []struct {
		name      string
		mode      session.Mode
		sessionID string
		want      bool
	}{
		{name: "standalone empty id", mode: session.Standalone, sessionID: "", want: true},
		{name: "standalone named id", mode: session.Standalone, sessionID: "sess-1", want: true},
		{name: "pool worker empty id", mode: session.PoolWorker, sessionID: "", want: true},
		{name: "pool worker anonymous", mode: session.PoolWorker, sessionID: "anonymous", want: true},
		{name: "pool worker named id", mode: session.PoolWorker, sessionID: "sess-1", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := session.NewRouter(tt.mode)
			assert.Equal(t, tt.want, router.UsesLocal(tt.sessionID))
		})
	}
}

func TestRouterRequireSession(t *testing.T) {
	t.Run("standalone never requires", func(t *testing.T) {
		router := session.NewRouter(session.Standalone)
		assert.NoError(t, router.RequireSession(""))
		assert.NoError(t, router.RequireSession("sess-1"))
	})

	t.Run("pool worker requires session id", func(t *testing.T) {
		router := session.NewRouter(session.PoolWorker)
		err := router.RequireSession("")
		require.Error(t, err)
		assert.True(t, errors.IsValidation(err))
		assert.ErrorIs(t, err, errors.ErrMissingSessionID)
		assert.Equal(t, "Session ID required in pool-worker mode", err.Error())
	})

	t.Run("pool worker accepts named session", func(t *testing.T) {
		router := session.NewRouter(session.PoolWorker)
		assert.NoError(t, router.RequireSession("sess-1"))
	})
}

func TestRouterMode(t *testing.T) {
	standalone := session.NewRouter(session.Standalone)
	assert.Equal(t, session.Standalone, standalone.Mode())
	assert.False(t, standalone.PoolWorker())

	pooled := session.NewRouter(session.PoolWorker)
	assert.Equal(t, session.PoolWorker, pooled.Mode())
	assert.True(t, pooled.PoolWorker())
}
