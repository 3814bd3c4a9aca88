// Package memstream provides an in-memory non-blocking duplex stream
// pair for exercising the TLS adapter without sockets.
//
// Each end implements stream.Stream, stream.Pollable and
// stream.Nonblocker. Would-block behavior is scriptable: tests can
// block a direction outright, block every Nth operation to simulate a
// slow transport, cap per-operation transfer sizes to force partial
// progress, limit buffering to make writes back up, and inject
// transport errors.
package memstream

import (
	"io"

	"github.com/wraptls/wraptls-go/pkg/stream"
)

// pipe is one direction of the pair.
type pipe struct {
	data   []byte
	limit  int // max buffered bytes; 0 = unlimited
	closed bool
}

// Stream is one end of an in-memory duplex pair.
type Stream struct {
	rd *pipe
	wr *pipe

	chunk            int
	blockReads       bool
	blockWrites      bool
	blockReadsEvery  int
	blockWritesEvery int
	readOps          int
	writeOps         int
	readErr          error
	writeErr         error
	pollErr          error
	pollCalls        int
	nonblock         bool
	written          []byte
}

// NewPair returns two connected ends. Bytes written to one end are
// read from the other.
func NewPair() (*Stream, *Stream) {
	ab := &pipe{}
	ba := &pipe{}
	a := &Stream{rd: ba, wr: ab}
	b := &Stream{rd: ab, wr: ba}
	return a, b
}

// Read transfers buffered bytes, honoring the scripted would-block
// knobs. A drained pipe whose writer closed reads as io.EOF.
func (s *Stream) Read(p []byte) (int, error) {
	if s.readErr != nil {
		return 0, s.readErr
	}
	s.readOps++
	if s.blockReads {
		return 0, stream.ErrWouldBlock
	}
	if s.blockReadsEvery > 0 && s.readOps%s.blockReadsEvery == 0 {
		return 0, stream.ErrWouldBlock
	}
	if len(s.rd.data) == 0 {
		if s.rd.closed {
			return 0, io.EOF
		}
		return 0, stream.ErrWouldBlock
	}
	n := len(s.rd.data)
	if s.chunk > 0 && n > s.chunk {
		n = s.chunk
	}
	n = copy(p, s.rd.data[:n])
	s.rd.data = s.rd.data[n:]
	return n, nil
}

// Write buffers bytes toward the peer, honoring the scripted
// would-block knobs and the peer-side buffer limit.
func (s *Stream) Write(p []byte) (int, error) {
	if s.writeErr != nil {
		return 0, s.writeErr
	}
	if s.wr.closed {
		return 0, io.ErrClosedPipe
	}
	s.writeOps++
	if s.blockWrites {
		return 0, stream.ErrWouldBlock
	}
	if s.blockWritesEvery > 0 && s.writeOps%s.blockWritesEvery == 0 {
		return 0, stream.ErrWouldBlock
	}
	n := len(p)
	if s.wr.limit > 0 {
		space := s.wr.limit - len(s.wr.data)
		if space <= 0 {
			return 0, stream.ErrWouldBlock
		}
		if n > space {
			n = space
		}
	}
	if s.chunk > 0 && n > s.chunk {
		n = s.chunk
	}
	if n == 0 {
		return 0, nil
	}
	s.wr.data = append(s.wr.data, p[:n]...)
	s.written = append(s.written, p[:n]...)
	return n, nil
}

// Poll reports transport readiness: readable when bytes are buffered
// (or the peer closed), writable when buffer space remains.
func (s *Stream) Poll(interest stream.Ready) (stream.Ready, error) {
	s.pollCalls++
	if s.pollErr != nil {
		return 0, s.pollErr
	}
	var ready stream.Ready
	if !s.blockReads && (len(s.rd.data) > 0 || s.rd.closed) {
		ready |= stream.ReadyRead
	}
	if !s.blockWrites && !s.wr.closed &&
		(s.wr.limit == 0 || len(s.wr.data) < s.wr.limit) {
		ready |= stream.ReadyWrite
	}
	return ready & interest, nil
}

// SetNonblock records the requested mode. The pair is always
// non-blocking; the recorded value lets tests assert delegation.
func (s *Stream) SetNonblock(enable bool) error {
	s.nonblock = enable
	return nil
}

// Close half-closes the outgoing direction: the peer reads io.EOF
// once it drains the buffer.
func (s *Stream) Close() error {
	s.wr.closed = true
	return nil
}

// Scripting knobs.

// SetChunk caps the byte count any single Read or Write transfers.
func (s *Stream) SetChunk(n int) { s.chunk = n }

// BlockReads blocks all reads until released.
func (s *Stream) BlockReads(block bool) { s.blockReads = block }

// BlockWrites blocks all writes until released.
func (s *Stream) BlockWrites(block bool) { s.blockWrites = block }

// BlockReadsEvery makes every nth read would-block. Zero disables.
func (s *Stream) BlockReadsEvery(n int) { s.blockReadsEvery = n }

// BlockWritesEvery makes every nth write would-block. Zero disables.
func (s *Stream) BlockWritesEvery(n int) { s.blockWritesEvery = n }

// SetWriteLimit caps the bytes buffered toward the peer. Zero means
// unlimited.
func (s *Stream) SetWriteLimit(n int) { s.wr.limit = n }

// FailReads makes reads fail with err. Nil restores normal behavior.
func (s *Stream) FailReads(err error) { s.readErr = err }

// FailWrites makes writes fail with err. Nil restores normal behavior.
func (s *Stream) FailWrites(err error) { s.writeErr = err }

// FailPolls makes readiness queries fail with err.
func (s *Stream) FailPolls(err error) { s.pollErr = err }

// Inspection.

// PollCalls reports how many times the transport was polled.
func (s *Stream) PollCalls() int { return s.pollCalls }

// Buffered reports bytes waiting to be read from this end.
func (s *Stream) Buffered() int { return len(s.rd.data) }

// Nonblock reports the last SetNonblock value.
func (s *Stream) Nonblock() bool { return s.nonblock }

// Written returns every byte this end ever wrote to the transport,
// in order. Useful for wire-level equivalence assertions.
func (s *Stream) Written() []byte { return s.written }

// Compile-time interface satisfaction checks.
var (
	_ stream.Stream     = (*Stream)(nil)
	_ stream.Pollable   = (*Stream)(nil)
	_ stream.Nonblocker = (*Stream)(nil)
)
