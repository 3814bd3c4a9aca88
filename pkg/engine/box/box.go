package box

import (
	"crypto/cipher"
	"crypto/ecdsa"
	"fmt"

	"github.com/wraptls/wraptls-go/pkg/engine"
)

// Engine is a box protocol engine. Construct with New; the zero value
// is not usable.
type Engine struct {
	cfg      engine.Config
	sender   engine.Sender
	receiver engine.Receiver

	// Handshake state.
	helloBuilt  bool
	helloSent   bool
	peerHello   *hello
	localRandom [32]byte
	privKey     [32]byte
	pubKey      [32]byte
	hsDone      bool
	peerCert    []byte

	// Record protection, populated once the handshake completes.
	sealer  cipher.AEAD
	opener  cipher.AEAD
	sendSeq uint64
	recvSeq uint64

	// Wire buffers. out holds framed bytes not yet accepted by the
	// transport; pendingWrite is the plaintext length those bytes
	// represent, for retry accounting.
	out          []byte
	pendingWrite int
	inHdr        [recordHeaderLen]byte
	inHdrN       int
	inBody       []byte
	inBodyN      int

	// Decrypted application bytes awaiting Read.
	plain []byte

	closeQueued bool
	peerClosed  bool
	fatal       int
	closed      bool
}

// New builds a box engine from the configuration. Servers must
// present credentials; peer verification requires a CA pool.
func New(cfg engine.Config) (engine.Engine, error) {
	if cfg.Sender == nil || cfg.Receiver == nil {
		return nil, fmt.Errorf("%w: transport binding is required", engine.ErrConfig)
	}
	if cfg.Rand == nil {
		return nil, fmt.Errorf("%w: randomness source is required", engine.ErrConfig)
	}
	if cfg.Role == engine.RoleServer && cfg.Credentials == nil {
		return nil, fmt.Errorf("%w: server role requires credentials", engine.ErrConfig)
	}
	if cfg.Credentials != nil {
		if _, ok := cfg.Credentials.Signer.(*ecdsa.PrivateKey); !ok {
			return nil, fmt.Errorf("%w: box engine signs with ECDSA keys only", engine.ErrConfig)
		}
	}
	if cfg.VerifyPeer && cfg.CAs == nil {
		return nil, fmt.Errorf("%w: peer verification requires a CA pool", engine.ErrConfig)
	}
	return &Engine{
		cfg:      cfg,
		sender:   cfg.Sender,
		receiver: cfg.Receiver,
	}, nil
}

// Handshake advances the hello exchange, returning 0 once keys are
// established. WANT results leave all progress intact for the retry.
func (e *Engine) Handshake() int {
	if e.closed {
		return engine.CodeInternal
	}
	if e.fatal != 0 {
		return e.fatal
	}
	if e.hsDone {
		return 0
	}
	var rc int
	if e.cfg.Role == engine.RoleClient {
		rc = e.handshakeClient()
	} else {
		rc = e.handshakeServer()
	}
	if rc < 0 && rc != engine.CodeWantRead && rc != engine.CodeWantWrite {
		e.fatal = rc
	}
	return rc
}

// handshakeClient: send hello, await the server's, then derive keys.
func (e *Engine) handshakeClient() int {
	if !e.helloSent {
		if !e.helloBuilt {
			if rc := e.buildHello(); rc != 0 {
				return rc
			}
		}
		if rc := e.flush(); rc != 0 {
			return rc
		}
		e.helloSent = true
	}
	typ, body, rc := e.readRecord()
	if rc != 0 {
		return rc
	}
	if typ != recordHandshake {
		return engine.CodeBadRecord
	}
	if rc := e.acceptPeerHello(body); rc != 0 {
		return rc
	}
	return e.deriveKeys()
}

// handshakeServer: await the client hello, answer it, then derive
// keys. The answering flush may block after the hello was already
// read; re-entry resumes at the flush.
func (e *Engine) handshakeServer() int {
	if e.peerHello == nil {
		typ, body, rc := e.readRecord()
		if rc != 0 {
			return rc
		}
		if typ != recordHandshake {
			return engine.CodeBadRecord
		}
		if rc := e.acceptPeerHello(body); rc != 0 {
			return rc
		}
		if rc := e.buildHello(); rc != 0 {
			return rc
		}
	}
	if rc := e.flush(); rc != 0 {
		return rc
	}
	return e.deriveKeys()
}

// Read decrypts application bytes into p, running the handshake first
// when needed. A read may therefore surface CodeWantWrite.
func (e *Engine) Read(p []byte) int {
	if e.closed {
		return engine.CodeInternal
	}
	if e.fatal != 0 {
		return e.fatal
	}
	if !e.hsDone {
		if rc := e.Handshake(); rc != 0 {
			return rc
		}
	}
	for len(e.plain) == 0 {
		if e.peerClosed {
			return engine.CodePeerClosed
		}
		typ, body, rc := e.readRecord()
		if rc != 0 {
			if rc != engine.CodeWantRead && rc != engine.CodeWantWrite {
				e.fatal = rc
			}
			return rc
		}
		plaintext, rc := e.openRecord(typ, body)
		if rc != 0 {
			e.fatal = rc
			return rc
		}
		switch typ {
		case recordData:
			e.plain = plaintext
		case recordClose:
			e.peerClosed = true
			return engine.CodePeerClosed
		default:
			e.fatal = engine.CodeBadRecord
			return e.fatal
		}
	}
	n := copy(p, e.plain)
	e.plain = e.plain[n:]
	if len(e.plain) == 0 {
		e.plain = nil
	}
	return n
}

// Write encrypts bytes from p onto the transport, running the
// handshake first when needed; a write may therefore surface
// CodeWantRead. At most one record's worth of p is consumed per call.
// After a WANT result the caller retries with the same bytes; the
// retry flushes the already-sealed record and reports its plaintext
// length consumed, so nothing is duplicated or dropped.
func (e *Engine) Write(p []byte) int {
	if e.closed {
		return engine.CodeInternal
	}
	if e.fatal != 0 {
		return e.fatal
	}
	if !e.hsDone {
		if rc := e.Handshake(); rc != 0 {
			return rc
		}
	}
	if e.pendingWrite > 0 {
		if rc := e.flush(); rc != 0 {
			return rc
		}
		n := e.pendingWrite
		e.pendingWrite = 0
		return n
	}
	if len(p) == 0 {
		return 0
	}
	chunk := p
	if len(chunk) > maxPlaintext {
		chunk = chunk[:maxPlaintext]
	}
	e.sealRecord(recordData, chunk)
	e.pendingWrite = len(chunk)
	if rc := e.flush(); rc != 0 {
		return rc
	}
	e.pendingWrite = 0
	return len(chunk)
}

// BytesBuffered reports decrypted bytes waiting to be Read.
func (e *Engine) BytesBuffered() int {
	return len(e.plain)
}

// PeerCertificate returns the peer's raw DER leaf certificate, or nil.
func (e *Engine) PeerCertificate() []byte {
	return e.peerCert
}

// CloseNotify queues an authenticated close record and flushes it.
// Returns CodeWantWrite if the transport blocks; retry to finish.
// Not part of the engine.Engine contract: teardown never writes, so
// callers wanting a clean closure invoke this explicitly first.
func (e *Engine) CloseNotify() int {
	if e.closed {
		return engine.CodeInternal
	}
	if !e.hsDone {
		return engine.CodeInternal
	}
	if !e.closeQueued {
		e.sealRecord(recordClose, nil)
		e.closeQueued = true
	}
	return e.flush()
}

// Close releases all engine state. The transport is untouched.
func (e *Engine) Close() {
	if e.closed {
		return
	}
	e.closed = true
	for i := range e.privKey {
		e.privKey[i] = 0
	}
	e.sealer = nil
	e.opener = nil
	e.plain = nil
	e.out = nil
	e.inBody = nil
	e.peerHello = nil
}

// Compile-time interface satisfaction check.
var _ engine.Engine = (*Engine)(nil)
