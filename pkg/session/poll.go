package session

import (
	"github.com/wraptls/wraptls-go/pkg/stream"
)

// Poll reports which of the requested directions are ready on the
// secured stream. It overlays protocol-level knowledge on the
// transport's own readiness query:
//
//   - Decrypted bytes already buffered in the engine make the stream
//     read-ready regardless of transport state.
//   - When the caller polls only for read-interest but the engine's
//     pending need is a write (or the symmetric case), the transport
//     is probed for both directions and readiness in the needed
//     direction is reported as readiness in the requested one. The
//     next Read (or Write) call performs the pending opposite-side
//     work itself.
//   - Otherwise the query passes through to the transport.
func (s *Session) Poll(interest stream.Ready) (stream.Ready, error) {
	if s.closed {
		return 0, ErrClosed
	}

	var ready stream.Ready

	// If the last read returned everything asked for there may be
	// more in the engine's record buffer, so find out. (There is no
	// equivalent issue with writes.)
	if interest.CanRead() && s.preferRead && s.eng.BytesBuffered() > 0 {
		ready |= stream.ReadyRead
		if interest == stream.ReadyRead {
			// Fully answered from the engine's buffer; the
			// transport's state is irrelevant.
			return ready, nil
		}
	}

	switch {
	case interest.CanRead() && !interest.CanWrite() && s.readNeedsWrite:
		// Polling to read, but the engine previously said it needs
		// a write in order to read. Probe both directions and
		// report transport writability as read-readiness, so the
		// caller issues the Read that lets the engine perform its
		// pending write. Never report write-ready here: the caller
		// did not ask for it.
		r, err := s.pollable.Poll(interest | stream.ReadyWrite)
		if err != nil {
			return 0, err
		}
		ready |= r
		if ready.CanWrite() {
			ready |= stream.ReadyRead
			ready &^= stream.ReadyWrite
		}
		return ready, nil

	case interest.CanWrite() && !interest.CanRead() && s.writeNeedsRead:
		// Same logic flipped around for write.
		r, err := s.pollable.Poll(interest | stream.ReadyRead)
		if err != nil {
			return 0, err
		}
		ready |= r
		if ready.CanRead() {
			ready |= stream.ReadyWrite
			ready &^= stream.ReadyRead
		}
		return ready, nil
	}

	// Pass down to the underlying transport.
	r, err := s.pollable.Poll(interest)
	if err != nil {
		return 0, err
	}
	return ready | r, nil
}
