package box

import (
	"crypto/ecdsa"
	"crypto/sha256"
	"crypto/x509"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/curve25519"
	"golang.org/x/crypto/hkdf"

	"github.com/wraptls/wraptls-go/pkg/engine"
)

// protocolVersion is the single wire version this engine speaks.
const protocolVersion = 1

const (
	keyInfo        = "wraptls box v1 keys"
	clientSigLabel = "wraptls box v1 client sig"
	serverSigLabel = "wraptls box v1 server sig"
)

// hello is one handshake flight. Layout:
//
//	version(1) random(32) pub(32)
//	sni_len(2) sni cert_len(2) cert sig_len(2) sig
type hello struct {
	version    byte
	random     [32]byte
	pub        [32]byte
	serverName string
	cert       []byte
	sig        []byte
}

// buildHello generates this side's key share and queues the framed
// hello record. Servers bind the client's random into their
// signature, so the server hello is built only after the client's
// arrived.
func (e *Engine) buildHello() int {
	if _, err := io.ReadFull(e.cfg.Rand, e.localRandom[:]); err != nil {
		return engine.CodeInternal
	}
	if _, err := io.ReadFull(e.cfg.Rand, e.privKey[:]); err != nil {
		return engine.CodeInternal
	}
	pub, err := curve25519.X25519(e.privKey[:], curve25519.Basepoint)
	if err != nil {
		return engine.CodeInternal
	}
	copy(e.pubKey[:], pub)

	var sni string
	if e.cfg.Role == engine.RoleClient {
		sni = e.cfg.ServerName
	}
	var certDER []byte
	if leaf := e.cfg.Credentials.Leaf(); leaf != nil {
		certDER = leaf.Raw
	}

	var sig []byte
	if e.cfg.Credentials != nil {
		digest := e.sigDigest(e.cfg.Role, e.localRandom, e.pubKey, sni, certDER)
		key := e.cfg.Credentials.Signer.(*ecdsa.PrivateKey)
		sig, err = ecdsa.SignASN1(e.cfg.Rand, key, digest)
		if err != nil {
			return engine.CodeInternal
		}
	}

	body := append([]byte{protocolVersion}, append(e.localRandom[:], e.pubKey[:]...)...)
	body = appendUint16(body, len(sni))
	body = append(body, sni...)
	body = appendUint16(body, len(certDER))
	body = append(body, certDER...)
	body = appendUint16(body, len(sig))
	body = append(body, sig...)

	e.appendRecord(recordHandshake, body)
	e.helloBuilt = true
	return 0
}

// acceptPeerHello parses and authenticates the peer's flight.
func (e *Engine) acceptPeerHello(body []byte) int {
	h, ok := parseHello(body)
	if !ok {
		return engine.CodeBadRecord
	}
	if h.version != protocolVersion {
		return engine.CodeBadVersion
	}

	if len(h.cert) > 0 {
		peerCert, err := x509.ParseCertificate(h.cert)
		if err != nil {
			return engine.CodeCertVerifyFailed
		}
		pub, ok := peerCert.PublicKey.(*ecdsa.PublicKey)
		if !ok {
			return engine.CodeBadSignature
		}
		peerRole := engine.RoleServer
		if e.cfg.Role == engine.RoleServer {
			peerRole = engine.RoleClient
		}
		digest := e.sigDigest(peerRole, h.random, h.pub, h.serverName, h.cert)
		if !ecdsa.VerifyASN1(pub, digest, h.sig) {
			return engine.CodeBadSignature
		}
		if e.cfg.VerifyPeer {
			if rc := e.verifyChain(peerCert); rc != 0 {
				return rc
			}
		}
		e.peerCert = h.cert
	} else if e.cfg.VerifyPeer {
		// Verification demanded but the peer is anonymous.
		return engine.CodeCertVerifyFailed
	}

	e.peerHello = h
	return 0
}

func (e *Engine) verifyChain(peerCert *x509.Certificate) int {
	opts := x509.VerifyOptions{Roots: e.cfg.CAs}
	if e.cfg.Role == engine.RoleClient && e.cfg.ServerName != "" {
		opts.DNSName = e.cfg.ServerName
	}
	if _, err := peerCert.Verify(opts); err != nil {
		return engine.CodeCertVerifyFailed
	}
	return 0
}

// sigDigest computes the transcript digest a flight from the given
// role must sign. Server signatures additionally bind the client's
// random, so a recorded server flight cannot be replayed.
func (e *Engine) sigDigest(role engine.Role, random, pub [32]byte, sni string, certDER []byte) []byte {
	hash := sha256.New()
	if role == engine.RoleClient {
		hash.Write([]byte(clientSigLabel))
	} else {
		hash.Write([]byte(serverSigLabel))
		if e.cfg.Role == engine.RoleServer {
			hash.Write(e.peerHello.random[:])
		} else {
			hash.Write(e.localRandom[:])
		}
	}
	hash.Write(random[:])
	hash.Write(pub[:])
	var lenBuf [2]byte
	lenBuf[0], lenBuf[1] = byte(len(sni)>>8), byte(len(sni))
	hash.Write(lenBuf[:])
	hash.Write([]byte(sni))
	lenBuf[0], lenBuf[1] = byte(len(certDER)>>8), byte(len(certDER))
	hash.Write(lenBuf[:])
	hash.Write(certDER)
	return hash.Sum(nil)
}

// deriveKeys runs the key schedule once both flights are in.
func (e *Engine) deriveKeys() int {
	shared, err := curve25519.X25519(e.privKey[:], e.peerHello.pub[:])
	if err != nil {
		return engine.CodeBadRecord
	}

	var clientRandom, serverRandom [32]byte
	if e.cfg.Role == engine.RoleClient {
		clientRandom, serverRandom = e.localRandom, e.peerHello.random
	} else {
		clientRandom, serverRandom = e.peerHello.random, e.localRandom
	}
	salt := append(clientRandom[:], serverRandom[:]...)

	kdf := hkdf.New(sha256.New, shared, salt, []byte(keyInfo))
	var clientKey, serverKey [chacha20poly1305.KeySize]byte
	if _, err := io.ReadFull(kdf, clientKey[:]); err != nil {
		return engine.CodeInternal
	}
	if _, err := io.ReadFull(kdf, serverKey[:]); err != nil {
		return engine.CodeInternal
	}

	clientAEAD, err := chacha20poly1305.New(clientKey[:])
	if err != nil {
		return engine.CodeInternal
	}
	serverAEAD, err := chacha20poly1305.New(serverKey[:])
	if err != nil {
		return engine.CodeInternal
	}
	if e.cfg.Role == engine.RoleClient {
		e.sealer, e.opener = clientAEAD, serverAEAD
	} else {
		e.sealer, e.opener = serverAEAD, clientAEAD
	}

	for i := range e.privKey {
		e.privKey[i] = 0
	}
	e.hsDone = true
	return 0
}

func parseHello(body []byte) (*hello, bool) {
	h := &hello{}
	if len(body) < 1+32+32 {
		return nil, false
	}
	h.version = body[0]
	copy(h.random[:], body[1:33])
	copy(h.pub[:], body[33:65])
	rest := body[65:]

	sni, rest, ok := readUint16Chunk(rest)
	if !ok {
		return nil, false
	}
	h.serverName = string(sni)

	h.cert, rest, ok = readUint16Chunk(rest)
	if !ok {
		return nil, false
	}
	h.sig, rest, ok = readUint16Chunk(rest)
	if !ok || len(rest) != 0 {
		return nil, false
	}
	if len(h.cert) > 0 && len(h.sig) == 0 {
		// A presented certificate must sign the transcript.
		return nil, false
	}
	return h, true
}

func appendUint16(b []byte, v int) []byte {
	return append(b, byte(v>>8), byte(v))
}

func readUint16Chunk(b []byte) ([]byte, []byte, bool) {
	if len(b) < 2 {
		return nil, nil, false
	}
	n := int(b[0])<<8 | int(b[1])
	b = b[2:]
	if len(b) < n {
		return nil, nil, false
	}
	return b[:n], b[n:], true
}
