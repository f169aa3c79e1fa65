package protocol_test

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/llmbridge/errors"
	"github.com/c360/llmbridge/pkg/timestamp"
	"github.com/c360/llmbridge/protocol"
)

func TestDecodeRequest(t *testing.T) {
	payload := []byte(`{"id":7,"command":"execute_program","args":{"program_id":"abc","inputs":{"question":"hi"}}}`)

	req, err := protocol.DecodeRequest(payload)
	require.NoError(t, err)

	assert.Equal(t, int64(7), req.ID)
	assert.Equal(t, "execute_program", req.Command)

	want := map[string]any{
		"program_id": "abc",
		"inputs":     map[string]any{"question": "hi"},
	}
	if diff := cmp.Diff(want, req.Args); diff != "" {
		t.Errorf("args mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeRequestDefaultsArgs(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{"args absent", `{"id":1,"command":"ping"}`},
		{"args null", `{"id":1,"command":"ping","args":null}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := protocol.DecodeRequest([]byte(tt.payload))
			require.NoError(t, err)
			assert.NotNil(t, req.Args)
			assert.Empty(t, req.Args)
		})
	}
}

func TestDecodeRequestZeroID(t *testing.T) {
	// Zero is a legitimate id; only absence and null are rejected.
	req, err := protocol.DecodeRequest([]byte(`{"id":0,"command":"ping"}`))
	require.NoError(t, err)
	assert.Equal(t, int64(0), req.ID)
}

func TestDecodeRequestErrors(t *testing.T) {
	tests := []struct {
		name    string
		payload []byte
		wantErr error
	}{
		{"invalid utf8", []byte{0xff, 0xfe, '{', '}'}, errors.ErrInvalidEncoding},
		{"invalid json", []byte(`{"id":1,`), nil},
		{"not an object", []byte(`[1,2,3]`), nil},
		{"missing id", []byte(`{"command":"ping","args":{}}`), errors.ErrMissingID},
		{"null id", []byte(`{"id":null,"command":"ping"}`), errors.ErrMissingID},
		{"missing command", []byte(`{"id":3,"args":{}}`), errors.ErrMissingCommand},
		{"null command", []byte(`{"id":3,"command":null}`), errors.ErrMissingCommand},
		{"empty command", []byte(`{"id":3,"command":""}`), errors.ErrMissingCommand},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := protocol.DecodeRequest(tt.payload)
			require.Error(t, err)
			assert.True(t, errors.IsProtocol(err), "expected protocol class, got: %v", err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestEncodeResponseSuccessShape(t *testing.T) {
	payload, err := protocol.EncodeResponse(protocol.NewSuccess(12, map[string]any{"status": "ok"}))
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(payload, &got))

	ts, ok := got["timestamp"].(float64)
	require.True(t, ok, "timestamp must be a JSON number")
	assert.Greater(t, ts, float64(0))
	delete(got, "timestamp")

	want := map[string]any{
		"id":      float64(12),
		"success": true,
		"result":  map[string]any{"status": "ok"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("success envelope mismatch (-want +got):\n%s", diff)
	}
}

func TestEncodeResponseFailureShape(t *testing.T) {
	resp := protocol.NewFailure(13, errors.ErrNoLanguageModel)
	payload, err := protocol.EncodeResponse(resp)
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(payload, &got))

	_, hasResult := got["result"]
	assert.False(t, hasResult, "failure envelope must not carry a result field")
	delete(got, "timestamp")

	want := map[string]any{
		"id":      float64(13),
		"success": false,
		"error":   "No LM is loaded.",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("failure envelope mismatch (-want +got):\n%s", diff)
	}
}

func TestEncodeResponseNullResult(t *testing.T) {
	// A success with a nil result still serializes the result key.
	payload, err := protocol.EncodeResponse(protocol.NewSuccess(1, nil))
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(payload, &got))

	_, hasResult := got["result"]
	assert.True(t, hasResult)
	_, hasError := got["error"]
	assert.False(t, hasError, "success envelope must not carry an error field")
}

func TestResponseRoundTrip(t *testing.T) {
	before := timestamp.Now()
	resp := protocol.NewSuccess(99, map[string]any{"count": float64(3)})
	after := timestamp.Now()

	payload, err := protocol.EncodeResponse(resp)
	require.NoError(t, err)

	decoded, err := protocol.DecodeResponse(payload)
	require.NoError(t, err)

	assert.Equal(t, int64(99), decoded.ID)
	assert.True(t, decoded.Success)
	assert.Empty(t, decoded.Error)
	assert.GreaterOrEqual(t, decoded.Timestamp, before)
	assert.LessOrEqual(t, decoded.Timestamp, after)

	want := map[string]any{"count": float64(3)}
	if diff := cmp.Diff(want, decoded.Result); diff != "" {
		t.Errorf("result mismatch (-want +got):\n%s", diff)
	}
}

func TestNewFailureNilError(t *testing.T) {
	resp := protocol.NewFailure(4, nil)
	assert.False(t, resp.Success)
	assert.Equal(t, "unknown error", resp.Error)
}

func TestDecodeResponseRejectsPartial(t *testing.T) {
	_, err := protocol.DecodeResponse([]byte(`{"result":"x"}`))
	require.Error(t, err)
	assert.True(t, errors.IsProtocol(err))
}
