// Package mock provides scripted engine and logger implementations
// for testing the adapter's I/O path and readiness multiplexer
// without real cryptography.
package mock

import (
	"sync"

	"github.com/wraptls/wraptls-go/pkg/engine"
	"github.com/wraptls/wraptls-go/pkg/log"
)

// ReadStep scripts one Engine.Read outcome. A negative Code is
// returned as-is; otherwise Data is copied into the caller's buffer.
type ReadStep struct {
	Code int
	Data []byte
}

// Engine is a scripted engine.Engine. Each operation consumes the
// next entry of its script; an exhausted script yields the default
// (success for Handshake, WANT_READ for Read, full consumption for
// Write).
type Engine struct {
	HandshakeScript []int
	ReadScript      []ReadStep
	WriteScript     []int

	Buffered int
	PeerCert []byte

	// Config captures the engine.Config passed to Factory.
	Config engine.Config

	HandshakeCalls int
	ReadCalls      int
	WriteCalls     int
	CloseCalls     int
}

// Handshake pops the next scripted handshake result.
func (e *Engine) Handshake() int {
	e.HandshakeCalls++
	if len(e.HandshakeScript) == 0 {
		return 0
	}
	rc := e.HandshakeScript[0]
	e.HandshakeScript = e.HandshakeScript[1:]
	return rc
}

// Read pops the next scripted read outcome.
func (e *Engine) Read(p []byte) int {
	e.ReadCalls++
	if len(e.ReadScript) == 0 {
		return engine.CodeWantRead
	}
	step := e.ReadScript[0]
	e.ReadScript = e.ReadScript[1:]
	if step.Code < 0 {
		return step.Code
	}
	return copy(p, step.Data)
}

// Write pops the next scripted write result.
func (e *Engine) Write(p []byte) int {
	e.WriteCalls++
	if len(e.WriteScript) == 0 {
		return len(p)
	}
	rc := e.WriteScript[0]
	e.WriteScript = e.WriteScript[1:]
	if rc >= 0 && rc > len(p) {
		rc = len(p)
	}
	return rc
}

// BytesBuffered reports the scripted buffer size.
func (e *Engine) BytesBuffered() int { return e.Buffered }

// PeerCertificate returns the scripted peer certificate.
func (e *Engine) PeerCertificate() []byte { return e.PeerCert }

// Close counts teardown calls so tests can assert resource release.
func (e *Engine) Close() { e.CloseCalls++ }

// Factory returns an engine.Factory yielding this mock and capturing
// the configuration it was built with.
func (e *Engine) Factory() engine.Factory {
	return func(cfg engine.Config) (engine.Engine, error) {
		e.Config = cfg
		return e, nil
	}
}

var _ engine.Engine = (*Engine)(nil)

// Recorder is a log.Logger that captures events for assertions.
type Recorder struct {
	mu     sync.Mutex
	events []log.Event
}

// Log appends the event.
func (r *Recorder) Log(event log.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

// Events returns a snapshot of captured events.
func (r *Recorder) Events() []log.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]log.Event, len(r.events))
	copy(out, r.events)
	return out
}

// Compile-time interface satisfaction check.
var _ log.Logger = (*Recorder)(nil)
