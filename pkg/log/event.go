package log

import (
	"time"
)

// Event represents an adapter log event captured on a session.
// CBOR encoding uses integer keys for compactness.
type Event struct {
	// Timestamp when the event occurred (nanosecond precision).
	Timestamp time.Time `cbor:"1,keyasint"`

	// SessionID uniquely identifies the session (UUID).
	SessionID string `cbor:"2,keyasint"`

	// Direction indicates data flow for I/O events.
	Direction Direction `cbor:"3,keyasint"`

	// Category classifies the event type.
	Category Category `cbor:"4,keyasint"`

	// Role indicates whether the session is the client or server
	// side of the handshake.
	Role string `cbor:"5,keyasint,omitempty"`

	// Type-specific payload (one of these will be set).
	IO          *IOEvent          `cbor:"10,keyasint,omitempty"` // Read/write outcomes
	StateChange *StateChangeEvent `cbor:"11,keyasint,omitempty"` // Session lifecycle
	Error       *ErrorEventData   `cbor:"12,keyasint,omitempty"` // Translated failures
}

// Direction indicates the direction of data flow.
type Direction uint8

const (
	// DirectionIn indicates bytes read from the peer.
	DirectionIn Direction = 0
	// DirectionOut indicates bytes written toward the peer.
	DirectionOut Direction = 1
)

// String returns the direction name.
func (d Direction) String() string {
	switch d {
	case DirectionIn:
		return "IN"
	case DirectionOut:
		return "OUT"
	default:
		return "UNKNOWN"
	}
}

// Category classifies adapter events.
type Category uint8

const (
	// CategoryHandshake covers handshake progress and completion.
	CategoryHandshake Category = 0
	// CategoryIO covers read and write outcomes.
	CategoryIO Category = 1
	// CategoryState covers session lifecycle transitions.
	CategoryState Category = 2
	// CategoryError covers translated failures.
	CategoryError Category = 3
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryHandshake:
		return "HANDSHAKE"
	case CategoryIO:
		return "IO"
	case CategoryState:
		return "STATE"
	case CategoryError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// IOEvent describes the outcome of a read or write call.
type IOEvent struct {
	// Requested is the caller's buffer length.
	Requested int `cbor:"1,keyasint"`

	// Transferred is the byte count actually moved.
	Transferred int `cbor:"2,keyasint"`

	// WouldBlock is set when the call surfaced a would-block
	// outcome instead of data.
	WouldBlock bool `cbor:"3,keyasint,omitempty"`

	// NeedsOpposite is set when the engine asked for the opposite
	// transport direction before this operation can proceed.
	NeedsOpposite bool `cbor:"4,keyasint,omitempty"`

	// EndOfStream is set on a clean peer-initiated closure.
	EndOfStream bool `cbor:"5,keyasint,omitempty"`
}

// StateChangeEvent describes a session lifecycle transition.
type StateChangeEvent struct {
	// OldState is the state before the transition.
	OldState string `cbor:"1,keyasint"`

	// NewState is the state after the transition.
	NewState string `cbor:"2,keyasint"`

	// Reason optionally explains the transition.
	Reason string `cbor:"3,keyasint,omitempty"`
}

// ErrorEventData describes a translated failure.
type ErrorEventData struct {
	// Code is the numeric engine code, when the failure originated
	// in the engine.
	Code int `cbor:"1,keyasint,omitempty"`

	// Message is the rendered error text.
	Message string `cbor:"2,keyasint"`
}
