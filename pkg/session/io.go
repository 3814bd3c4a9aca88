package session

import (
	"io"

	"github.com/wraptls/wraptls-go/pkg/engine"
	"github.com/wraptls/wraptls-go/pkg/log"
	"github.com/wraptls/wraptls-go/pkg/stream"
)

// Read decrypts up to len(p) application bytes into p.
//
// A clean peer-initiated closure returns io.EOF, repeatably. A
// would-block outcome returns stream.ErrWouldBlock; when the engine
// needs a transport write before the read can proceed (handshake or
// renegotiation), the session additionally records that need for Poll.
func (s *Session) Read(p []byte) (int, error) {
	if s.closed {
		return 0, ErrClosed
	}

	s.readNeedsWrite = false
	rc := s.eng.Read(p)
	switch {
	case rc == engine.CodePeerClosed:
		// End of stream, not a failure.
		s.logIO(log.DirectionIn, &log.IOEvent{Requested: len(p), EndOfStream: true})
		return 0, io.EOF
	case rc >= 0:
		// If we got all we asked for there may be more already
		// decrypted in the engine's record buffer; have the next
		// poll probe it first.
		s.preferRead = rc == len(p)
		s.logIO(log.DirectionIn, &log.IOEvent{Requested: len(p), Transferred: rc})
		return rc, nil
	case rc == engine.CodeWantRead:
		s.logIO(log.DirectionIn, &log.IOEvent{Requested: len(p), WouldBlock: true})
		return 0, stream.ErrWouldBlock
	case rc == engine.CodeWantWrite:
		// A read attempt may require the engine to write the next
		// handshake or renegotiation message first.
		s.readNeedsWrite = true
		s.logIO(log.DirectionIn, &log.IOEvent{Requested: len(p), WouldBlock: true, NeedsOpposite: true})
		return 0, stream.ErrWouldBlock
	default:
		err := s.translate(rc)
		s.logError(rc, err)
		return 0, err
	}
}

// Write encrypts bytes from p onto the transport and returns the
// count consumed, which may be less than len(p); the caller retries
// the remainder. A would-block outcome returns stream.ErrWouldBlock;
// when the engine needs a transport read before the write can proceed
// the session records that need for Poll.
func (s *Session) Write(p []byte) (int, error) {
	if s.closed {
		return 0, ErrClosed
	}

	s.writeNeedsRead = false
	rc := s.eng.Write(p)
	switch {
	case rc >= 0:
		s.logIO(log.DirectionOut, &log.IOEvent{Requested: len(p), Transferred: rc})
		return rc, nil
	case rc == engine.CodeWantWrite:
		s.logIO(log.DirectionOut, &log.IOEvent{Requested: len(p), WouldBlock: true})
		return 0, stream.ErrWouldBlock
	case rc == engine.CodeWantRead:
		// A write attempt may require the engine to read the next
		// handshake or renegotiation message first.
		s.writeNeedsRead = true
		s.logIO(log.DirectionOut, &log.IOEvent{Requested: len(p), WouldBlock: true, NeedsOpposite: true})
		return 0, stream.ErrWouldBlock
	default:
		err := s.translate(rc)
		s.logError(rc, err)
		return 0, err
	}
}
