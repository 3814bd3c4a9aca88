package session

import (
	"fmt"
	"syscall"

	"github.com/wraptls/wraptls-go/pkg/cert"
	"github.com/wraptls/wraptls-go/pkg/engine"
)

// ProtocolError is a generic engine failure carrying the numeric
// engine code and, when the engine's string table knows it, a short
// description.
type ProtocolError struct {
	Code int
	Desc string
}

// Error renders the code and description.
func (e *ProtocolError) Error() string {
	if e.Desc != "" {
		return fmt.Sprintf("engine error %d: %s", e.Code, e.Desc)
	}
	return fmt.Sprintf("engine error %d", e.Code)
}

// translate maps a negative engine code to the session error
// taxonomy. WANT_READ/WANT_WRITE never reach this function; the I/O
// path consumes them as control signals.
func (s *Session) translate(code int) error {
	switch {
	case code == engine.CodeTransportFailed:
		if err := s.bio.takeErr(); err != nil {
			// Transport-origin failure: surface the original
			// error, not a protocol failure.
			return err
		}
		return &ProtocolError{Code: code, Desc: engine.Strerror(code)}
	case engine.IsTransportCode(code):
		// Negated errno forwarded through the engine; restore the
		// OS error it really is.
		return syscall.Errno(-code)
	}

	switch code {
	case engine.CodeAllocFailed:
		return ErrResources
	case engine.CodeBadKey:
		return cert.ErrInvalidKey
	case engine.CodeBadCert:
		return cert.ErrInvalidCert
	}
	return &ProtocolError{Code: code, Desc: engine.Strerror(code)}
}
