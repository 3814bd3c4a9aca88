package session

import (
	"github.com/wraptls/wraptls-go/pkg/engine"
	"github.com/wraptls/wraptls-go/pkg/log"
	"github.com/wraptls/wraptls-go/pkg/rand"
)

// Options configures session construction. The zero value is not
// usable directly; start from DefaultOptions.
type Options struct {
	// Key and Cert are this endpoint's PEM- or DER-encoded private
	// key and certificate chain. Either both are present or both
	// are absent.
	Key  []byte
	Cert []byte

	// CA is an optional PEM- or DER-encoded trusted-CA bundle.
	CA []byte

	// ServerSide selects the server role for the handshake.
	ServerSide bool

	// ServerHostname is the server name a client sends for server
	// name indication. Client role only.
	ServerHostname string

	// DoHandshake runs the full handshake synchronously during
	// Wrap, looping over WANT_READ/WANT_WRITE. This path assumes a
	// transport whose would-block resolves promptly; with a
	// transport that stays blocked the loop spins on the caller's
	// thread. Set false to defer the handshake to Handshake or the
	// first Read/Write.
	DoHandshake bool

	// VerifyPeer enables peer certificate verification against CA.
	// Off by default: the adapter deliberately does not reject
	// unauthenticated peers unless the caller opts in.
	VerifyPeer bool

	// Engine selects the TLS engine implementation. Nil selects the
	// in-tree box engine.
	Engine engine.Factory

	// Rand overrides the session's randomness source. Nil seeds a
	// fresh provider during Wrap.
	Rand rand.Provider

	// Logger receives adapter events. Nil disables logging.
	Logger log.Logger
}

// DefaultOptions returns options matching the historical defaults:
// client role, synchronous handshake, no credentials, no peer
// verification, no logging.
func DefaultOptions() Options {
	return Options{DoHandshake: true}
}
