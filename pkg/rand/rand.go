// Package rand provides the randomness source owned by a TLS session.
//
// Sessions seed a provider exactly once at construction. Tests need
// reproducible handshakes, hence the abstraction.
package rand

import (
	crand "crypto/rand"
	"fmt"
	mrand "math/rand/v2"
)

// Provider supplies random bytes to the engine. Read never returns a
// short count without an error.
type Provider interface {
	Read(p []byte) (int, error)
}

type cryptoProvider struct{}

func (cryptoProvider) Read(p []byte) (int, error) { return crand.Read(p) }

// Crypto returns a Provider backed directly by the operating system's
// randomness source.
func Crypto() Provider { return cryptoProvider{} }

type seededProvider struct {
	src *mrand.ChaCha8
}

func (s *seededProvider) Read(p []byte) (int, error) { return s.src.Read(p) }

// NewSeeded returns a deterministic-stream provider seeded once from
// the OS randomness source mixed with a personalization string. This
// mirrors a DRBG seeded at session construction: after the single seed
// read, the provider never touches the OS source again.
func NewSeeded(personalization []byte) (Provider, error) {
	var seed [32]byte
	if _, err := crand.Read(seed[:]); err != nil {
		return nil, fmt.Errorf("seeding random provider: %w", err)
	}
	for i, b := range personalization {
		seed[i%len(seed)] ^= b
	}
	return &seededProvider{src: mrand.NewChaCha8(seed)}, nil
}

type fixedProvider struct {
	src *mrand.ChaCha8
}

func (f *fixedProvider) Read(p []byte) (int, error) { return f.src.Read(p) }

// Fixed returns a provider with a constant seed. Handshakes and record
// nonces derived from it are fully reproducible. Tests only.
func Fixed() Provider {
	var seed [32]byte
	for i := range seed {
		seed[i] = byte(i)
	}
	return &fixedProvider{src: mrand.NewChaCha8(seed)}
}
