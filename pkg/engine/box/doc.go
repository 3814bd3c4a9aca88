// Package box implements a compact authenticated-stream engine behind
// the engine.Engine boundary.
//
// It is not TLS on the wire. It borrows TLS's shape - a two-flight
// hello exchange followed by an encrypted record layer - while staying
// small enough to read in one sitting:
//
//   - X25519 key agreement, with fresh keys per session
//   - HKDF-SHA256 key schedule over both hello randoms
//   - ChaCha20-Poly1305 record protection with counter nonces
//   - optional X.509 certificate presentation; a presented
//     certificate always signs the handshake transcript
//
// Peer certificate verification is off by default, matching the
// adapter's historical permissive default; enable it with
// Config.VerifyPeer and a CA pool.
//
// The engine never blocks: every operation pumps the bound
// Sender/Receiver pair and returns CodeWantRead or CodeWantWrite when
// the transport would block, retaining all partial handshake and
// record progress for the retry.
package box
