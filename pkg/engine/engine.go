// Package engine defines the boundary between the stream adapter and
// an opaque TLS engine.
//
// The adapter never looks inside the engine: it drives Handshake, Read
// and Write, and the engine pulls wire bytes through the Sender and
// Receiver pair it was constructed with. All engine operations use the
// integer result convention described on Code.
package engine

import (
	"crypto/x509"
	"errors"

	"github.com/wraptls/wraptls-go/pkg/cert"
	"github.com/wraptls/wraptls-go/pkg/rand"
)

// ErrConfig indicates an engine factory rejected its configuration.
var ErrConfig = errors.New("invalid engine configuration")

// Role selects which side of the handshake the engine plays.
type Role uint8

// Handshake roles.
const (
	// RoleClient initiates the handshake.
	RoleClient Role = iota

	// RoleServer responds to the handshake.
	RoleServer
)

// String returns the role name.
func (r Role) String() string {
	switch r {
	case RoleClient:
		return "CLIENT"
	case RoleServer:
		return "SERVER"
	default:
		return "UNKNOWN"
	}
}

// Sender pushes engine-produced wire bytes to the transport.
// Send writes up to len(p) bytes and returns the count written,
// CodeWantWrite when the transport would block, or another negative
// code for a transport failure.
type Sender interface {
	Send(p []byte) int
}

// Receiver pulls wire bytes from the transport into the engine.
// Recv fills up to len(p) bytes and returns the count read,
// CodeWantRead when the transport would block, zero at transport
// end-of-stream, or another negative code for a transport failure.
type Receiver interface {
	Recv(p []byte) int
}

// Config carries everything an engine needs at construction. The
// Sender/Receiver pair replaces the traditional callback-plus-context
// registration: the transport binding is fixed for the engine's
// lifetime and checked at compile time.
type Config struct {
	// Role selects client or server behavior.
	Role Role

	// Rand is the session-owned randomness source.
	Rand rand.Provider

	// Credentials is this endpoint's certificate chain and key.
	// Optional for clients; servers must present one.
	Credentials *cert.Credentials

	// CAs is the pool of trusted CA certificates for peer
	// verification. Ignored unless VerifyPeer is set.
	CAs *x509.CertPool

	// ServerName is the name a client sends for server name
	// indication and verifies the server certificate against.
	ServerName string

	// VerifyPeer enables peer certificate verification. Off by
	// default: the adapter historically accepts unauthenticated
	// peers unless the caller opts in.
	VerifyPeer bool

	// Sender and Receiver bind the engine to the transport.
	Sender   Sender
	Receiver Receiver
}

// Engine is an opaque TLS protocol implementation.
//
// Operations return either a non-negative byte count (or zero for a
// completed handshake step) or a negative Code. Engines must retain
// partial progress across CodeWantRead/CodeWantWrite results so that
// retrying the identical operation loses no data.
type Engine interface {
	// Handshake advances the handshake, returning 0 when complete.
	Handshake() int

	// Read decrypts application bytes into p.
	Read(p []byte) int

	// Write encrypts bytes from p onto the transport. The count
	// returned may be less than len(p); the caller retries the
	// remainder.
	Write(p []byte) int

	// BytesBuffered reports decrypted bytes already received and
	// waiting to be Read, without touching the transport.
	BytesBuffered() int

	// PeerCertificate returns the raw DER encoding of the peer's
	// leaf certificate, or nil if the handshake has not produced
	// one.
	PeerCertificate() []byte

	// Close releases all engine resources. The transport is not
	// touched. Close is idempotent.
	Close()
}

// Factory builds an engine from a configuration. Sessions are
// engine-agnostic: any factory satisfying this signature can back a
// session.
type Factory func(Config) (Engine, error)
