package box_test

import (
	"bytes"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	crand "crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"errors"
	"io"
	"math/big"
	"testing"
	"time"

	"github.com/wraptls/wraptls-go/internal/testharness/memstream"
	"github.com/wraptls/wraptls-go/pkg/cert"
	"github.com/wraptls/wraptls-go/pkg/engine"
	"github.com/wraptls/wraptls-go/pkg/engine/box"
	"github.com/wraptls/wraptls-go/pkg/rand"
	"github.com/wraptls/wraptls-go/pkg/stream"
)

// bioEnd adapts one memstream end to the engine's transport binding.
type bioEnd struct {
	s *memstream.Stream
}

func (b bioEnd) Send(p []byte) int {
	n, err := b.s.Write(p)
	if err != nil {
		if stream.IsWouldBlock(err) {
			return engine.CodeWantWrite
		}
		return engine.CodeTransportFailed
	}
	return n
}

func (b bioEnd) Recv(p []byte) int {
	n, err := b.s.Read(p)
	if err != nil {
		if stream.IsWouldBlock(err) {
			return engine.CodeWantRead
		}
		if errors.Is(err, io.EOF) {
			return 0
		}
		return engine.CodeTransportFailed
	}
	return n
}

// corruptingReceiver flips one byte of the incoming stream at an
// absolute offset, for tamper-detection tests. A negative offset
// passes everything through untouched until armed.
type corruptingReceiver struct {
	inner  engine.Receiver
	offset int
	seen   int
}

func (c *corruptingReceiver) Recv(p []byte) int {
	n := c.inner.Recv(p)
	if n > 0 {
		if c.offset >= c.seen && c.offset < c.seen+n {
			p[c.offset-c.seen] ^= 0xff
		}
		c.seen += n
	}
	return n
}

// armAt schedules corruption of the byte k positions past everything
// received so far.
func (c *corruptingReceiver) armAt(k int) {
	c.offset = c.seen + k
}

// newCreds generates ECDSA credentials with a self-signed certificate.
func newCreds(t *testing.T, cn string) (*cert.Credentials, *x509.Certificate) {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), crand.Reader)
	if err != nil {
		t.Fatalf("GenerateKey() error = %v", err)
	}
	tmpl := &x509.Certificate{
		SerialNumber:          big.NewInt(time.Now().UnixNano()),
		Subject:               pkix.Name{CommonName: cn},
		DNSNames:              []string{cn},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(time.Hour),
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign,
		BasicConstraintsValid: true,
		IsCA:                  true,
	}
	der, err := x509.CreateCertificate(crand.Reader, tmpl, tmpl, &key.PublicKey, key)
	if err != nil {
		t.Fatalf("CreateCertificate() error = %v", err)
	}
	parsed, err := x509.ParseCertificate(der)
	if err != nil {
		t.Fatalf("ParseCertificate() error = %v", err)
	}
	return &cert.Credentials{Chain: []*x509.Certificate{parsed}, Signer: key}, parsed
}

// testPair holds two engines bound to the ends of a memstream pair.
type testPair struct {
	client, server       engine.Engine
	clientEnd, serverEnd *memstream.Stream
	serverLeaf           *x509.Certificate
}

func newTestPair(t *testing.T, mutateClient, mutateServer func(*engine.Config)) *testPair {
	t.Helper()

	serverCreds, serverLeaf := newCreds(t, "box.test")
	clientEnd, serverEnd := memstream.NewPair()

	clientCfg := engine.Config{
		Role:       engine.RoleClient,
		Rand:       rand.Fixed(),
		ServerName: "box.test",
		Sender:     bioEnd{clientEnd},
		Receiver:   bioEnd{clientEnd},
	}
	serverCfg := engine.Config{
		Role:        engine.RoleServer,
		Rand:        rand.Crypto(),
		Credentials: serverCreds,
		Sender:      bioEnd{serverEnd},
		Receiver:    bioEnd{serverEnd},
	}
	if mutateClient != nil {
		mutateClient(&clientCfg)
	}
	if mutateServer != nil {
		mutateServer(&serverCfg)
	}

	client, err := box.New(clientCfg)
	if err != nil {
		t.Fatalf("box.New(client) error = %v", err)
	}
	server, err := box.New(serverCfg)
	if err != nil {
		t.Fatalf("box.New(server) error = %v", err)
	}
	return &testPair{
		client:     client,
		server:     server,
		clientEnd:  clientEnd,
		serverEnd:  serverEnd,
		serverLeaf: serverLeaf,
	}
}

// pump drives both handshakes until completion, tolerating WANT
// results from either side.
func pump(t *testing.T, client, server engine.Engine) {
	t.Helper()

	clientDone, serverDone := false, false
	for steps := 0; !clientDone || !serverDone; steps++ {
		if steps > 10000 {
			t.Fatal("handshake made no progress")
		}
		if !clientDone {
			switch rc := client.Handshake(); rc {
			case 0:
				clientDone = true
			case engine.CodeWantRead, engine.CodeWantWrite:
			default:
				t.Fatalf("client Handshake() = %d", rc)
			}
		}
		if !serverDone {
			switch rc := server.Handshake(); rc {
			case 0:
				serverDone = true
			case engine.CodeWantRead, engine.CodeWantWrite:
			default:
				t.Fatalf("server Handshake() = %d", rc)
			}
		}
	}
}

// transfer pushes msg through from and reads it back out of to,
// riding out WANT results on both sides.
func transfer(t *testing.T, from, to engine.Engine, msg []byte) []byte {
	t.Helper()

	sent := 0
	var got []byte
	buf := make([]byte, 1024)
	for steps := 0; sent < len(msg) || len(got) < len(msg); steps++ {
		if steps > 100000 {
			t.Fatalf("transfer stalled: sent %d/%d, got %d", sent, len(msg), len(got))
		}
		if sent < len(msg) {
			rc := from.Write(msg[sent:])
			if rc > 0 {
				sent += rc
			} else if rc != engine.CodeWantRead && rc != engine.CodeWantWrite && rc != 0 {
				t.Fatalf("Write() = %d", rc)
			}
		}
		if len(got) < len(msg) {
			rc := to.Read(buf)
			if rc > 0 {
				got = append(got, buf[:rc]...)
			} else if rc != engine.CodeWantRead && rc != engine.CodeWantWrite {
				t.Fatalf("Read() = %d", rc)
			}
		}
	}
	return got
}

func TestHandshakeAndRoundtrip(t *testing.T) {
	p := newTestPair(t, nil, nil)
	pump(t, p.client, p.server)

	msg := []byte("application data through the box")
	if got := transfer(t, p.client, p.server, msg); !bytes.Equal(got, msg) {
		t.Errorf("client->server = %q, want %q", got, msg)
	}
	reply := []byte("and back again")
	if got := transfer(t, p.server, p.client, reply); !bytes.Equal(got, reply) {
		t.Errorf("server->client = %q, want %q", got, reply)
	}

	if !bytes.Equal(p.client.PeerCertificate(), p.serverLeaf.Raw) {
		t.Error("client PeerCertificate() does not match server leaf")
	}
	// Anonymous client presents nothing.
	if p.server.PeerCertificate() != nil {
		t.Error("server PeerCertificate() = non-nil for anonymous client")
	}
}

func TestHandshakeSingleByteTransport(t *testing.T) {
	p := newTestPair(t, nil, nil)
	p.clientEnd.SetChunk(1)
	p.serverEnd.SetChunk(1)

	pump(t, p.client, p.server)

	msg := []byte("fragmented but intact")
	if got := transfer(t, p.client, p.server, msg); !bytes.Equal(got, msg) {
		t.Errorf("roundtrip = %q, want %q", got, msg)
	}
}

func TestMutualCertificates(t *testing.T) {
	clientCreds, clientLeaf := newCreds(t, "client.test")
	p := newTestPair(t, func(cfg *engine.Config) {
		cfg.Credentials = clientCreds
	}, nil)
	pump(t, p.client, p.server)

	if !bytes.Equal(p.server.PeerCertificate(), clientLeaf.Raw) {
		t.Error("server PeerCertificate() does not match client leaf")
	}
}

func TestWriteRetryAfterBlock(t *testing.T) {
	p := newTestPair(t, nil, nil)
	pump(t, p.client, p.server)

	p.clientEnd.BlockWrites(true)
	msg := []byte("retried exactly once")
	if rc := p.client.Write(msg); rc != engine.CodeWantWrite {
		t.Fatalf("blocked Write() = %d, want CodeWantWrite", rc)
	}

	p.clientEnd.BlockWrites(false)
	if rc := p.client.Write(msg); rc != len(msg) {
		t.Fatalf("retried Write() = %d, want %d", rc, len(msg))
	}

	buf := make([]byte, 64)
	rc := p.server.Read(buf)
	if rc != len(msg) || !bytes.Equal(buf[:rc], msg) {
		t.Fatalf("Read() = %d %q", rc, buf[:rc])
	}
	// The sealed record was flushed once; nothing further arrives.
	if rc := p.server.Read(buf); rc != engine.CodeWantRead {
		t.Errorf("Read() after drain = %d, want CodeWantRead", rc)
	}
}

func TestBytesBuffered(t *testing.T) {
	p := newTestPair(t, nil, nil)
	pump(t, p.client, p.server)

	msg := []byte("0123456789")
	if rc := p.client.Write(msg); rc != len(msg) {
		t.Fatalf("Write() = %d", rc)
	}

	buf := make([]byte, 4)
	if rc := p.server.Read(buf); rc != 4 {
		t.Fatalf("partial Read() = %d", rc)
	}
	if got := p.server.BytesBuffered(); got != 6 {
		t.Errorf("BytesBuffered() = %d, want 6", got)
	}
	if rc := p.server.Read(make([]byte, 16)); rc != 6 {
		t.Errorf("drain Read() = %d, want 6", rc)
	}
	if got := p.server.BytesBuffered(); got != 0 {
		t.Errorf("BytesBuffered() after drain = %d, want 0", got)
	}
}

func TestCloseNotify(t *testing.T) {
	p := newTestPair(t, nil, nil)
	pump(t, p.client, p.server)

	boxClient := p.client.(*box.Engine)
	if rc := boxClient.CloseNotify(); rc != 0 {
		t.Fatalf("CloseNotify() = %d", rc)
	}

	buf := make([]byte, 16)
	if rc := p.server.Read(buf); rc != engine.CodePeerClosed {
		t.Fatalf("Read() after close = %d, want CodePeerClosed", rc)
	}
	// Repeatable, like io.EOF.
	if rc := p.server.Read(buf); rc != engine.CodePeerClosed {
		t.Errorf("second Read() after close = %d, want CodePeerClosed", rc)
	}
}

func TestTamperedHandshakeSignature(t *testing.T) {
	p := newTestPair(t, nil, nil)

	// Flip a byte of the server hello's random, invalidating the
	// transcript signature. Offset 4 = header(3) + version(1).
	corrupted := &corruptingReceiver{inner: bioEnd{p.clientEnd}, offset: 4}

	client, err := box.New(engine.Config{
		Role:       engine.RoleClient,
		Rand:       rand.Fixed(),
		ServerName: "box.test",
		Sender:     bioEnd{p.clientEnd},
		Receiver:   corrupted,
	})
	if err != nil {
		t.Fatalf("box.New() error = %v", err)
	}

	// Client sends, server answers, client chokes on the tampered
	// reply.
	if rc := client.Handshake(); rc != engine.CodeWantRead {
		t.Fatalf("first client Handshake() = %d, want CodeWantRead", rc)
	}
	if rc := p.server.Handshake(); rc != 0 {
		t.Fatalf("server Handshake() = %d", rc)
	}
	if rc := client.Handshake(); rc != engine.CodeBadSignature {
		t.Fatalf("tampered Handshake() = %d, want CodeBadSignature", rc)
	}
	// Failure latches.
	if rc := client.Handshake(); rc != engine.CodeBadSignature {
		t.Errorf("repeat Handshake() = %d, want latched CodeBadSignature", rc)
	}
}

func TestTamperedDataRecord(t *testing.T) {
	serverCreds, _ := newCreds(t, "box.test")
	clientEnd, serverEnd := memstream.NewPair()
	corrupted := &corruptingReceiver{inner: bioEnd{serverEnd}, offset: -1}

	server, err := box.New(engine.Config{
		Role:        engine.RoleServer,
		Rand:        rand.Crypto(),
		Credentials: serverCreds,
		Sender:      bioEnd{serverEnd},
		Receiver:    corrupted,
	})
	if err != nil {
		t.Fatalf("box.New(server) error = %v", err)
	}
	client, err := box.New(engine.Config{
		Role:       engine.RoleClient,
		Rand:       rand.Fixed(),
		ServerName: "box.test",
		Sender:     bioEnd{clientEnd},
		Receiver:   bioEnd{clientEnd},
	})
	if err != nil {
		t.Fatalf("box.New(client) error = %v", err)
	}
	pump(t, client, server)

	if rc := client.Write([]byte("secret")); rc != 6 {
		t.Fatalf("Write() = %d", rc)
	}

	// Flip a byte inside the sealed body of the next record. The
	// AEAD open must reject it.
	corrupted.armAt(recordTestHeaderLen + 2)
	if rc := server.Read(make([]byte, 16)); rc != engine.CodeBadRecord {
		t.Fatalf("tampered Read() = %d, want CodeBadRecord", rc)
	}
	// Failure latches.
	if rc := server.Read(make([]byte, 16)); rc != engine.CodeBadRecord {
		t.Errorf("repeat Read() = %d, want latched CodeBadRecord", rc)
	}
}

// recordTestHeaderLen mirrors the engine's record header size.
const recordTestHeaderLen = 3

func TestVerifyPeerAgainstCA(t *testing.T) {
	p := newTestPair(t, nil, nil)
	pool := x509.NewCertPool()
	pool.AddCert(p.serverLeaf)
	// The pair's own client goes unused; verification needs a
	// client built with the server's trust anchor.
	client, err := box.New(engine.Config{
		Role:       engine.RoleClient,
		Rand:       rand.Fixed(),
		ServerName: "box.test",
		VerifyPeer: true,
		CAs:        pool,
		Sender:     bioEnd{p.clientEnd},
		Receiver:   bioEnd{p.clientEnd},
	})
	if err != nil {
		t.Fatalf("box.New() error = %v", err)
	}
	pump(t, client, p.server)
}

func TestVerifyPeerWrongCA(t *testing.T) {
	p := newTestPair(t, nil, nil)
	_, otherCA := newCreds(t, "other.test")
	pool := x509.NewCertPool()
	pool.AddCert(otherCA)

	client, err := box.New(engine.Config{
		Role:       engine.RoleClient,
		Rand:       rand.Fixed(),
		ServerName: "box.test",
		VerifyPeer: true,
		CAs:        pool,
		Sender:     bioEnd{p.clientEnd},
		Receiver:   bioEnd{p.clientEnd},
	})
	if err != nil {
		t.Fatalf("box.New() error = %v", err)
	}

	if rc := client.Handshake(); rc != engine.CodeWantRead {
		t.Fatalf("first Handshake() = %d, want CodeWantRead", rc)
	}
	if rc := p.server.Handshake(); rc != 0 {
		t.Fatalf("server Handshake() = %d", rc)
	}
	if rc := client.Handshake(); rc != engine.CodeCertVerifyFailed {
		t.Fatalf("Handshake() = %d, want CodeCertVerifyFailed", rc)
	}
}

func TestVerifyPeerRejectsAnonymous(t *testing.T) {
	// The server demands a client certificate; the client presents
	// none.
	_, someCA := newCreds(t, "trust.test")
	pool := x509.NewCertPool()
	pool.AddCert(someCA)

	p := newTestPair(t, nil, func(cfg *engine.Config) {
		cfg.VerifyPeer = true
		cfg.CAs = pool
	})

	if rc := p.client.Handshake(); rc != engine.CodeWantRead {
		t.Fatalf("client Handshake() = %d, want CodeWantRead", rc)
	}
	if rc := p.server.Handshake(); rc != engine.CodeCertVerifyFailed {
		t.Fatalf("server Handshake() = %d, want CodeCertVerifyFailed", rc)
	}
}

func TestConfigValidation(t *testing.T) {
	end, _ := memstream.NewPair()
	bio := bioEnd{end}
	creds, _ := newCreds(t, "cfg.test")

	tests := []struct {
		name string
		cfg  engine.Config
	}{
		{"missing transport", engine.Config{Role: engine.RoleClient, Rand: rand.Fixed()}},
		{"missing rand", engine.Config{Role: engine.RoleClient, Sender: bio, Receiver: bio}},
		{"server without credentials", engine.Config{
			Role: engine.RoleServer, Rand: rand.Fixed(), Sender: bio, Receiver: bio,
		}},
		{"verify without CA pool", engine.Config{
			Role: engine.RoleClient, Rand: rand.Fixed(), VerifyPeer: true,
			Sender: bio, Receiver: bio,
		}},
		{"non-ECDSA key", engine.Config{
			Role: engine.RoleClient, Rand: rand.Fixed(), Sender: bio, Receiver: bio,
			Credentials: &cert.Credentials{
				Chain:  creds.Chain,
				Signer: ed25519.PrivateKey(make([]byte, ed25519.PrivateKeySize)),
			},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := box.New(tt.cfg); !errors.Is(err, engine.ErrConfig) {
				t.Errorf("box.New() error = %v, want ErrConfig", err)
			}
		})
	}
}

func TestReadDrivesHandshake(t *testing.T) {
	p := newTestPair(t, nil, nil)

	// A read before the handshake pushes the client hello out and
	// then waits for the reply.
	buf := make([]byte, 16)
	if rc := p.client.Read(buf); rc != engine.CodeWantRead {
		t.Fatalf("pre-handshake Read() = %d, want CodeWantRead", rc)
	}
	if rc := p.server.Handshake(); rc != 0 {
		t.Fatalf("server Handshake() = %d", rc)
	}
	// The next read completes the handshake, then waits for data.
	if rc := p.client.Read(buf); rc != engine.CodeWantRead {
		t.Fatalf("post-hello Read() = %d, want CodeWantRead", rc)
	}

	if rc := p.server.Write([]byte("hi")); rc != 2 {
		t.Fatalf("server Write() = %d", rc)
	}
	if rc := p.client.Read(buf); rc != 2 || string(buf[:2]) != "hi" {
		t.Fatalf("Read() = %d %q", rc, buf[:2])
	}
}

func TestCloseReleasesState(t *testing.T) {
	p := newTestPair(t, nil, nil)
	pump(t, p.client, p.server)

	p.client.Close()
	p.client.Close() // idempotent
	if rc := p.client.Read(make([]byte, 4)); rc != engine.CodeInternal {
		t.Errorf("Read() after Close() = %d, want CodeInternal", rc)
	}
	if rc := p.client.Handshake(); rc != engine.CodeInternal {
		t.Errorf("Handshake() after Close() = %d, want CodeInternal", rc)
	}
}
