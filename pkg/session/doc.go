// Package session implements the non-blocking TLS stream adapter.
//
// A Session turns a caller-supplied non-blocking byte stream into a
// TLS-secured stream by driving an opaque engine's handshake and
// record layer over the stream's read, write and poll operations. The
// adapter reconciles three state machines without blocking the caller:
// the engine's WANT_READ/WANT_WRITE needs during handshake or
// renegotiation, the transport's own would-block semantics, and an
// external readiness-polling event loop.
//
// # Model
//
// Every operation either completes synchronously or reports
// stream.ErrWouldBlock. There is no internal suspension, no background
// goroutine and no locking: a Session is single-threaded and the
// caller provides any cross-goroutine synchronization. On would-block
// the caller waits on Poll and retries the identical operation; no
// engine state is lost across the retry.
//
// # Cross-direction needs
//
// Mid-handshake the engine may need a transport write before a read
// can proceed (and vice versa). The session records these needs and
// Poll translates them: a caller polling only for read-interest is
// reported read-ready when the transport is write-ready and the
// pending need is a write, because the next Read call will perform
// that write itself. Without this translation a single-direction
// poller can stall forever.
package session
