package protocol

import (
	"encoding/json"
	"unicode/utf8"

	"github.com/c360/llmbridge/errors"
	"github.com/c360/llmbridge/pkg/timestamp"
)

// Request is the decoded inbound envelope: one command invocation keyed by a
// caller-chosen correlation id.
type Request struct {
	ID      int64
	Command string
	Args    map[string]any
}

// Response is the outbound envelope answering exactly one Request by id.
// Success carries Result; failure carries Error. Timestamp is epoch seconds.
type Response struct {
	ID        int64
	Success   bool
	Result    any
	Error     string
	Timestamp float64
}

// rawRequest separates "absent" from "zero" for the required fields.
type rawRequest struct {
	ID      *int64         `json:"id"`
	Command *string        `json:"command"`
	Args    map[string]any `json:"args"`
}

type successEnvelope struct {
	ID        int64   `json:"id"`
	Success   bool    `json:"success"`
	Result    any     `json:"result"`
	Timestamp float64 `json:"timestamp"`
}

type failureEnvelope struct {
	ID        int64   `json:"id"`
	Success   bool    `json:"success"`
	Error     string  `json:"error"`
	Timestamp float64 `json:"timestamp"`
}

// DecodeRequest parses a frame payload into a Request. All failures are
// protocol-class errors: the caller logs and skips the frame without
// answering, because either no id is recoverable (charset/syntax/missing id)
// or the envelope names no command to answer for.
func DecodeRequest(payload []byte) (*Request, error) {
	if !utf8.Valid(payload) {
		return nil, errors.WrapProtocol(errors.ErrInvalidEncoding,
			"Codec", "DecodeRequest", "validate UTF-8")
	}

	var raw rawRequest
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, errors.WrapProtocol(err, "Codec", "DecodeRequest", "parse envelope")
	}

	if raw.ID == nil {
		return nil, errors.WrapProtocol(errors.ErrMissingID,
			"Codec", "DecodeRequest", "validate envelope")
	}
	if raw.Command == nil || *raw.Command == "" {
		return nil, errors.WrapProtocol(errors.ErrMissingCommand,
			"Codec", "DecodeRequest", "validate envelope")
	}

	args := raw.Args
	if args == nil {
		args = map[string]any{}
	}

	return &Request{
		ID:      *raw.ID,
		Command: *raw.Command,
		Args:    args,
	}, nil
}

// EncodeResponse serializes a Response into a frame payload. The success and
// failure shapes are disjoint on the wire: result and error never co-occur.
func EncodeResponse(resp *Response) ([]byte, error) {
	ts := resp.Timestamp
	if ts == 0 {
		ts = timestamp.Now()
	}

	if resp.Success {
		return json.Marshal(successEnvelope{
			ID:        resp.ID,
			Success:   true,
			Result:    resp.Result,
			Timestamp: ts,
		})
	}
	return json.Marshal(failureEnvelope{
		ID:        resp.ID,
		Success:   false,
		Error:     resp.Error,
		Timestamp: ts,
	})
}

// DecodeResponse parses an outbound envelope back into a Response. The
// worker itself never reads responses; tests and host-side tooling do.
func DecodeResponse(payload []byte) (*Response, error) {
	var raw struct {
		ID        *int64  `json:"id"`
		Success   *bool   `json:"success"`
		Result    any     `json:"result"`
		Error     string  `json:"error"`
		Timestamp float64 `json:"timestamp"`
	}
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, errors.WrapProtocol(err, "Codec", "DecodeResponse", "parse envelope")
	}
	if raw.ID == nil || raw.Success == nil {
		return nil, errors.WrapProtocol(errors.ErrMissingID,
			"Codec", "DecodeResponse", "validate envelope")
	}

	return &Response{
		ID:        *raw.ID,
		Success:   *raw.Success,
		Result:    raw.Result,
		Error:     raw.Error,
		Timestamp: raw.Timestamp,
	}, nil
}

// NewSuccess builds a success Response for the given request id.
func NewSuccess(id int64, result any) *Response {
	return &Response{
		ID:        id,
		Success:   true,
		Result:    result,
		Timestamp: timestamp.Now(),
	}
}

// NewFailure builds a failure Response carrying the error's message.
func NewFailure(id int64, err error) *Response {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	return &Response{
		ID:        id,
		Success:   false,
		Error:     msg,
		Timestamp: timestamp.Now(),
	}
}
