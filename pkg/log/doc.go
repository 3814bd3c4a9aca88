// Package log provides opt-in event logging for the TLS stream
// adapter.
//
// Sessions accept a Logger at construction. When none is supplied no
// events are produced and the I/O path pays no logging cost. Events
// cover handshake progress, read/write outcomes (including would-block
// and cross-direction need signals), lifecycle transitions and
// translated failures.
//
// Events are encoded as CBOR with integer keys, so captured log files
// stay compact enough to leave enabled on constrained targets. Use
// FileLogger to capture, Reader to analyze, and SlogAdapter to mirror
// events onto a standard slog logger during development.
package log
