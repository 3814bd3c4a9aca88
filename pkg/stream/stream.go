// Package stream defines the transport contracts the TLS adapter is
// layered on top of.
//
// A transport is any bidirectional byte stream with non-blocking
// semantics: operations either complete immediately or fail with
// ErrWouldBlock. Readiness is discovered through the Pollable
// capability, never by blocking inside the transport.
package stream

import (
	"errors"
	"syscall"
)

// ErrWouldBlock reports that a non-blocking operation cannot proceed
// right now. It is a control-flow signal, not a failure: the caller is
// expected to wait for readiness and retry the identical operation.
var ErrWouldBlock = errors.New("operation would block")

// Ready is a bitmask of readiness directions.
type Ready uint8

// Readiness directions.
const (
	// ReadyRead indicates a read would make progress.
	ReadyRead Ready = 1 << iota

	// ReadyWrite indicates a write would make progress.
	ReadyWrite
)

// CanRead reports whether the read bit is set.
func (r Ready) CanRead() bool { return r&ReadyRead != 0 }

// CanWrite reports whether the write bit is set.
func (r Ready) CanWrite() bool { return r&ReadyWrite != 0 }

// String returns the readiness set name.
func (r Ready) String() string {
	switch r {
	case 0:
		return "NONE"
	case ReadyRead:
		return "READ"
	case ReadyWrite:
		return "WRITE"
	case ReadyRead | ReadyWrite:
		return "READ|WRITE"
	default:
		return "INVALID"
	}
}

// Stream is a bidirectional byte stream with non-blocking semantics.
//
// Read and Write transfer up to len(p) bytes and return the count
// actually transferred. When no progress is possible they return an
// error matched by IsWouldBlock. Read returns io.EOF after the peer
// has closed the transport and all buffered bytes are drained.
type Stream interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
}

// Pollable answers readiness queries without performing I/O.
// The TLS adapter requires its transport to implement Pollable.
type Pollable interface {
	// Poll reports which of the requested directions are currently
	// ready. The result is a subset of interest.
	Poll(interest Ready) (Ready, error)
}

// Nonblocker is an optional transport capability for toggling
// blocking mode. The adapter delegates SetNonblock verbatim.
type Nonblocker interface {
	SetNonblock(enable bool) error
}

// IsWouldBlock reports whether err is a would-block condition, either
// the package sentinel or an OS-level EAGAIN/EWOULDBLOCK produced by a
// raw file descriptor transport.
func IsWouldBlock(err error) bool {
	return errors.Is(err, ErrWouldBlock) ||
		errors.Is(err, syscall.EAGAIN) ||
		errors.Is(err, syscall.EWOULDBLOCK)
}
