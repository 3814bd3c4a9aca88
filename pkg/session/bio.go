package session

import (
	"errors"
	"io"
	"syscall"

	"github.com/wraptls/wraptls-go/pkg/engine"
	"github.com/wraptls/wraptls-go/pkg/stream"
)

// transportBIO bridges the engine's byte-oriented send/receive needs
// to the underlying stream. It is invoked only by the engine, never by
// the caller, and buffers nothing itself: the engine manages its own
// record buffers.
//
// Transport failures cross the integer-result boundary two ways:
// OS-level errors travel as negated errnos inside the reserved
// passthrough band, and everything else is stashed here for the error
// translator to recover, signalled as CodeTransportFailed.
type transportBIO struct {
	stream stream.Stream
	err    error
}

// Send writes engine record bytes to the transport. Would-block maps
// to CodeWantWrite.
func (b *transportBIO) Send(p []byte) int {
	n, err := b.stream.Write(p)
	if err != nil {
		if stream.IsWouldBlock(err) {
			return engine.CodeWantWrite
		}
		return b.fail(err)
	}
	return n
}

// Recv reads transport bytes for the engine. Would-block maps to
// CodeWantRead; a transport at end-of-stream reads as zero bytes.
func (b *transportBIO) Recv(p []byte) int {
	n, err := b.stream.Read(p)
	if err != nil {
		if stream.IsWouldBlock(err) {
			return engine.CodeWantRead
		}
		if errors.Is(err, io.EOF) {
			return 0
		}
		return b.fail(err)
	}
	return n
}

func (b *transportBIO) fail(err error) int {
	var errno syscall.Errno
	if errors.As(err, &errno) && errno > 0 && int(errno) <= 255 {
		// Negate so the code survives the engine passthrough and
		// the translator can restore the original error domain.
		return -int(errno)
	}
	b.err = err
	return engine.CodeTransportFailed
}

// takeErr returns and clears the stashed transport error.
func (b *transportBIO) takeErr() error {
	err := b.err
	b.err = nil
	return err
}

// Compile-time interface satisfaction checks.
var (
	_ engine.Sender   = (*transportBIO)(nil)
	_ engine.Receiver = (*transportBIO)(nil)
)
