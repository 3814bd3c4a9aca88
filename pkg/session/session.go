package session

import (
	"crypto/x509"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/wraptls/wraptls-go/pkg/cert"
	"github.com/wraptls/wraptls-go/pkg/engine"
	"github.com/wraptls/wraptls-go/pkg/engine/box"
	"github.com/wraptls/wraptls-go/pkg/log"
	"github.com/wraptls/wraptls-go/pkg/rand"
	"github.com/wraptls/wraptls-go/pkg/stream"
)

// Construction and lifecycle errors.
var (
	// ErrNilTransport indicates Wrap was called without a transport.
	ErrNilTransport = errors.New("transport is required")

	// ErrNotPollable indicates the transport lacks the readiness
	// query capability the adapter depends on.
	ErrNotPollable = errors.New("transport does not support readiness queries")

	// ErrMismatchedCredentials indicates only one of key and cert
	// was supplied.
	ErrMismatchedCredentials = errors.New("key and cert must be supplied together")

	// ErrHostnameOnServer indicates a server hostname was supplied
	// for a server-side session.
	ErrHostnameOnServer = errors.New("server_hostname is only meaningful for client sessions")

	// ErrNonblockUnsupported indicates the transport cannot toggle
	// blocking mode.
	ErrNonblockUnsupported = errors.New("transport does not support setting blocking mode")

	// ErrClosed indicates the session has been closed.
	ErrClosed = errors.New("session is closed")

	// ErrResources indicates an allocation or seeding failure while
	// setting up or driving the engine.
	ErrResources = errors.New("engine resources exhausted")
)

// Session lifecycle states, used in log events.
const (
	stateCreated     = "CREATED"
	stateHandshaking = "HANDSHAKING"
	stateEstablished = "ESTABLISHED"
	stateFailed      = "FAILED"
	stateClosed      = "CLOSED"
)

// Session is a TLS-secured view of an underlying non-blocking stream.
//
// The session owns its engine, credentials and randomness source. It
// references, but does not own, the transport: closing the session
// never closes the transport. Not safe for concurrent use without
// external synchronization.
type Session struct {
	id        string
	transport stream.Stream
	pollable  stream.Pollable
	eng       engine.Engine
	creds     *cert.Credentials
	rnd       rand.Provider
	logger    log.Logger
	bio       *transportBIO
	role      engine.Role

	// Cross-direction need flags. Operation-scoped: a flag set by a
	// read is only ever cleared by a subsequent read, never by a
	// write (and vice versa).
	readNeedsWrite bool
	writeNeedsRead bool

	// preferRead is set after a read fills the caller's buffer
	// completely; the next poll probes the engine's record buffer
	// before consulting the transport.
	preferRead bool

	established bool
	closed      bool
}

// Wrap layers a TLS session over a non-blocking transport.
//
// The transport must implement stream.Pollable in addition to
// Read/Write; Wrap fails with ErrNotPollable otherwise. When
// opts.DoHandshake is set the full handshake runs before Wrap
// returns. Every failure path releases all partially-initialized
// session resources before returning.
func Wrap(t stream.Stream, opts Options) (*Session, error) {
	if t == nil {
		return nil, ErrNilTransport
	}
	pollable, ok := t.(stream.Pollable)
	if !ok {
		return nil, ErrNotPollable
	}
	if (opts.Key == nil) != (opts.Cert == nil) {
		return nil, ErrMismatchedCredentials
	}
	if opts.ServerSide && opts.ServerHostname != "" {
		return nil, ErrHostnameOnServer
	}

	rnd := opts.Rand
	if rnd == nil {
		var err error
		rnd, err = rand.NewSeeded([]byte("wraptls"))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrResources, err)
		}
	}

	role := engine.RoleClient
	if opts.ServerSide {
		role = engine.RoleServer
	}

	s := &Session{
		id:        uuid.New().String(),
		transport: t,
		pollable:  pollable,
		rnd:       rnd,
		logger:    opts.Logger,
		role:      role,
	}
	s.bio = &transportBIO{stream: t}

	var creds *cert.Credentials
	if opts.Key != nil {
		var err error
		creds, err = cert.New(opts.Key, opts.Cert)
		if err != nil {
			// Distinct invalid-key / invalid-cert conditions;
			// nothing else has been allocated yet.
			return nil, err
		}
	}
	s.creds = creds

	caPool, err := caPoolFrom(opts.CA)
	if err != nil {
		return nil, err
	}

	factory := opts.Engine
	if factory == nil {
		factory = box.New
	}
	eng, err := factory(engine.Config{
		Role:        role,
		Rand:        rnd,
		Credentials: creds,
		CAs:         caPool,
		ServerName:  opts.ServerHostname,
		VerifyPeer:  opts.VerifyPeer,
		Sender:      s.bio,
		Receiver:    s.bio,
	})
	if err != nil {
		return nil, err
	}
	s.eng = eng
	s.logState(stateCreated, stateHandshaking, "")

	if opts.DoHandshake {
		for {
			rc := eng.Handshake()
			if rc == 0 {
				break
			}
			if rc == engine.CodeWantRead || rc == engine.CodeWantWrite {
				// Assumes the transport's would-block resolves
				// promptly; see Options.DoHandshake.
				continue
			}
			err := s.translate(rc)
			s.logState(stateHandshaking, stateFailed, err.Error())
			eng.Close()
			return nil, err
		}
		s.established = true
		s.logState(stateHandshaking, stateEstablished, "")
	}

	return s, nil
}

func caPoolFrom(ca []byte) (*x509.CertPool, error) {
	if ca == nil {
		return nil, nil
	}
	return cert.NewCAPool(ca)
}

// Handshake advances a deferred handshake by one step.
//
// It returns nil once the handshake is complete,
// stream.ErrWouldBlock when the engine needs transport readiness, and
// a translated error on failure. Both cross-direction need flags are
// operation-scoped to the handshake: they are cleared on entry and
// set according to the direction the engine asks for, so Poll keeps
// working for single-direction callers mid-handshake.
func (s *Session) Handshake() error {
	if s.closed {
		return ErrClosed
	}
	s.readNeedsWrite = false
	s.writeNeedsRead = false
	rc := s.eng.Handshake()
	switch rc {
	case 0:
		if !s.established {
			s.established = true
			s.logState(stateHandshaking, stateEstablished, "")
		}
		return nil
	case engine.CodeWantRead:
		// A caller waiting to write must wait for readability.
		s.writeNeedsRead = true
		return stream.ErrWouldBlock
	case engine.CodeWantWrite:
		// A caller waiting to read must wait for writability.
		s.readNeedsWrite = true
		return stream.ErrWouldBlock
	default:
		return s.translate(rc)
	}
}

// PeerCertificate returns the raw DER encoding of the peer's leaf
// certificate, or nil when the handshake has not completed or the
// peer presented none. Callers wanting a decoded form parse the bytes
// with the cert package.
func (s *Session) PeerCertificate() []byte {
	if s.closed {
		return nil
	}
	return s.eng.PeerCertificate()
}

// SetNonblock delegates blocking-mode control verbatim to the
// underlying transport. Fails with ErrNonblockUnsupported when the
// transport lacks the capability.
func (s *Session) SetNonblock(enable bool) error {
	if s.closed {
		return ErrClosed
	}
	nb, ok := s.transport.(stream.Nonblocker)
	if !ok {
		return ErrNonblockUnsupported
	}
	return nb.SetNonblock(enable)
}

// ID returns the session's unique identifier, as used in log events.
func (s *Session) ID() string { return s.id }

// Close releases the engine, credentials and randomness source. The
// underlying transport is left untouched and remains usable. Close is
// idempotent; all other operations fail with ErrClosed afterwards.
func (s *Session) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.eng.Close()
	s.creds = nil
	s.rnd = nil
	s.logState(stateEstablished, stateClosed, "")
	return nil
}

func (s *Session) logState(oldState, newState, reason string) {
	if s.logger == nil {
		return
	}
	s.logger.Log(log.Event{
		Timestamp: time.Now(),
		SessionID: s.id,
		Category:  log.CategoryState,
		Role:      s.role.String(),
		StateChange: &log.StateChangeEvent{
			OldState: oldState,
			NewState: newState,
			Reason:   reason,
		},
	})
}

func (s *Session) logIO(dir log.Direction, io *log.IOEvent) {
	if s.logger == nil {
		return
	}
	s.logger.Log(log.Event{
		Timestamp: time.Now(),
		SessionID: s.id,
		Direction: dir,
		Category:  log.CategoryIO,
		Role:      s.role.String(),
		IO:        io,
	})
}

func (s *Session) logError(code int, err error) {
	if s.logger == nil {
		return
	}
	s.logger.Log(log.Event{
		Timestamp: time.Now(),
		SessionID: s.id,
		Category:  log.CategoryError,
		Role:      s.role.String(),
		Error: &log.ErrorEventData{
			Code:    code,
			Message: err.Error(),
		},
	})
}
