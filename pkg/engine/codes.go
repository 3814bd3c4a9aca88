package engine

// Code is a negative engine result. Non-negative results are byte
// counts (or success, for handshake steps).
//
// Two negative ranges are reserved:
//
//   - -1 .. -255 is the transport passthrough band. A Sender or
//     Receiver that hits an OS-level transport failure returns the
//     negated errno so the error translator can restore the original
//     error domain.
//   - All named codes below sit outside that band.
type Code = int

// Engine result codes.
const (
	// CodeWantRead asks the caller to retry after the transport
	// becomes readable.
	CodeWantRead Code = -0x3100

	// CodeWantWrite asks the caller to retry after the transport
	// becomes writable.
	CodeWantWrite Code = -0x3200

	// CodePeerClosed reports a clean, peer-initiated closure of the
	// secured stream. Not a failure.
	CodePeerClosed Code = -0x3300

	// CodeTransportFailed reports a transport failure that carries
	// no errno. The transport adapter stashes the original error
	// for the translator.
	CodeTransportFailed Code = -0x3400

	// CodeAllocFailed reports an engine allocation failure.
	CodeAllocFailed Code = -0x4100

	// CodeBadKey reports an unparsable private key.
	CodeBadKey Code = -0x4200

	// CodeBadCert reports an unparsable certificate.
	CodeBadCert Code = -0x4300

	// CodeBadRecord reports a malformed or unauthenticated record.
	CodeBadRecord Code = -0x5100

	// CodeBadSignature reports a handshake transcript signature
	// that failed to verify.
	CodeBadSignature Code = -0x5200

	// CodeCertVerifyFailed reports that peer certificate
	// verification was enabled and the presented chain did not
	// verify.
	CodeCertVerifyFailed Code = -0x5300

	// CodeBadVersion reports a handshake version mismatch.
	CodeBadVersion Code = -0x5400

	// CodeUnexpectedEOF reports that the transport ended
	// mid-record or mid-handshake.
	CodeUnexpectedEOF Code = -0x5500

	// CodeInternal reports an unclassified engine failure.
	CodeInternal Code = -0x7100
)

// transportBandMin bounds the negated-errno passthrough band.
const transportBandMin = -255

// IsTransportCode reports whether code is a negated errno forwarded
// from the transport.
func IsTransportCode(code int) bool {
	return code < 0 && code >= transportBandMin
}

var codeText = map[int]string{
	CodeWantRead:         "engine wants a transport read",
	CodeWantWrite:        "engine wants a transport write",
	CodePeerClosed:       "peer closed the secured stream",
	CodeTransportFailed:  "transport operation failed",
	CodeAllocFailed:      "engine allocation failed",
	CodeBadKey:           "invalid private key",
	CodeBadCert:          "invalid certificate",
	CodeBadRecord:        "malformed or unauthenticated record",
	CodeBadSignature:     "handshake signature verification failed",
	CodeCertVerifyFailed: "peer certificate verification failed",
	CodeBadVersion:       "handshake version mismatch",
	CodeUnexpectedEOF:    "transport closed mid-record",
}

// Strerror returns a short description of an engine code, or the
// empty string when none exists.
func Strerror(code int) string {
	return codeText[code]
}
