package protocol

import (
	"bufio"
	"encoding/binary"
	stderrors "errors"
	"fmt"
	"io"
	"sync"
	"syscall"

	"github.com/c360/llmbridge/errors"
)

// MaxFrameSize caps a single frame's payload. A length prefix past this is
// treated as stream corruption, not a real frame.
const MaxFrameSize = 64 << 20

// Framer reads and writes length-prefixed frames over a duplex byte stream.
// The wire format is a 4-byte unsigned big-endian length followed by exactly
// that many payload bytes. The framer is payload-agnostic; this system
// carries UTF-8 JSON envelopes.
type Framer struct {
	r     *bufio.Reader
	w     io.Writer
	flush func() error

	// Serializes writes so a response frame is never interleaved.
	writeMu sync.Mutex
}

// NewFramer creates a Framer over the given streams. If w implements
// Flush (a *bufio.Writer does), every WriteFrame flushes synchronously so
// the peer can read the full frame without buffering ambiguity.
func NewFramer(r io.Reader, w io.Writer) *Framer {
	f := &Framer{
		r: bufio.NewReader(r),
		w: w,
	}
	if fl, ok := w.(interface{ Flush() error }); ok {
		f.flush = fl.Flush
	}
	return f
}

// ReadFrame blocks until a complete frame is read and returns its payload.
// End-of-stream at a frame boundary returns errors.ErrEndOfStream; a short
// read anywhere past byte offset 0 of the frame is a protocol error
// (truncated frame). A zero length prefix yields an empty payload.
func (f *Framer) ReadFrame() ([]byte, error) {
	var header [4]byte
	if _, err := io.ReadFull(f.r, header[:]); err != nil {
		if stderrors.Is(err, io.EOF) {
			return nil, errors.ErrEndOfStream
		}
		if stderrors.Is(err, io.ErrUnexpectedEOF) {
			return nil, errors.WrapProtocol(errors.ErrFrameTruncated,
				"Framer", "ReadFrame", "read length header")
		}
		return nil, f.wrapReadError(err)
	}

	length := binary.BigEndian.Uint32(header[:])
	if length > MaxFrameSize {
		return nil, errors.WrapProtocol(errors.ErrFrameTooLarge,
			"Framer", "ReadFrame", fmt.Sprintf("length prefix %d", length))
	}
	if length == 0 {
		return []byte{}, nil
	}

	payload := make([]byte, length)
	if _, err := io.ReadFull(f.r, payload); err != nil {
		// The header was consumed, so any shortfall here is mid-frame.
		if stderrors.Is(err, io.EOF) || stderrors.Is(err, io.ErrUnexpectedEOF) {
			return nil, errors.WrapProtocol(errors.ErrFrameTruncated,
				"Framer", "ReadFrame", fmt.Sprintf("read %d payload bytes", length))
		}
		return nil, f.wrapReadError(err)
	}

	return payload, nil
}

// WriteFrame writes one length-prefixed frame and flushes synchronously.
// A failure because the peer closed its read end returns a
// peer-disconnected error rather than a fatal one; a pooled worker keeps
// serving after its current peer goes away.
func (f *Framer) WriteFrame(payload []byte) error {
	if len(payload) > MaxFrameSize {
		return errors.WrapProtocol(errors.ErrFrameTooLarge,
			"Framer", "WriteFrame", fmt.Sprintf("payload size %d", len(payload)))
	}

	f.writeMu.Lock()
	defer f.writeMu.Unlock()

	var header [4]byte
	binary.BigEndian.PutUint32(header[:], uint32(len(payload)))

	if _, err := f.w.Write(header[:]); err != nil {
		return f.wrapWriteError(err)
	}
	if _, err := f.w.Write(payload); err != nil {
		return f.wrapWriteError(err)
	}
	if f.flush != nil {
		if err := f.flush(); err != nil {
			return f.wrapWriteError(err)
		}
	}

	return nil
}

func (f *Framer) wrapReadError(err error) error {
	if isPeerGone(err) || errors.IsDisconnected(err) {
		return errors.WrapDisconnected(errors.ErrPeerClosed, "Framer", "ReadFrame", "read stream")
	}
	return errors.WrapProtocol(err, "Framer", "ReadFrame", "read stream")
}

func (f *Framer) wrapWriteError(err error) error {
	if isPeerGone(err) || errors.IsDisconnected(err) {
		return errors.WrapDisconnected(errors.ErrPeerClosed, "Framer", "WriteFrame", "write stream")
	}
	return errors.WrapDisconnected(err, "Framer", "WriteFrame", "write stream")
}

// isPeerGone matches the OS-level signatures of a peer that closed its end.
func isPeerGone(err error) bool {
	return stderrors.Is(err, syscall.EPIPE) ||
		stderrors.Is(err, syscall.ECONNRESET) ||
		stderrors.Is(err, io.ErrClosedPipe) ||
		stderrors.Is(err, io.EOF)
}
