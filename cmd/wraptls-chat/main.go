// Command wraptls-chat is an interactive loopback demo for the adapter.
//
// It wraps both ends of an in-memory stream pair, drives the non-blocking
// handshake to completion, and then echoes lines typed at the prompt
// through the encrypted channel. The transport can be throttled to watch
// the adapter ride out partial transfers and would-block conditions.
//
// Usage:
//
//	wraptls-chat [flags]
//
// Flags:
//
//	-chunk int          Cap bytes moved per transport call (0 = unlimited)
//	-block-every int    Make every Nth transport call would-block
//	-protocol-log path  Write adapter events to a CBOR log file
//	-verify             Verify the server certificate against its own CA
//
// Examples:
//
//	# Plain echo session
//	wraptls-chat
//
//	# Fragmented transport with a protocol log for wraptls-log
//	wraptls-chat -chunk 5 -block-every 3 -protocol-log chat.wlog
package main

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"flag"
	"fmt"
	"math/big"
	"os"
	"strings"
	"time"

	"github.com/chzyer/readline"

	"github.com/wraptls/wraptls-go/internal/testharness/memstream"
	"github.com/wraptls/wraptls-go/pkg/cert"
	"github.com/wraptls/wraptls-go/pkg/log"
	"github.com/wraptls/wraptls-go/pkg/session"
	"github.com/wraptls/wraptls-go/pkg/stream"
)

const serverName = "chat.local"

// maxPumpSteps bounds handshake and echo retry loops so a transport
// misconfiguration fails loudly instead of spinning.
const maxPumpSteps = 100000

func main() {
	chunk := flag.Int("chunk", 0, "Cap bytes moved per transport call (0 = unlimited)")
	blockEvery := flag.Int("block-every", 0, "Make every Nth transport call would-block")
	protocolLog := flag.String("protocol-log", "", "Write adapter events to a CBOR log file")
	verify := flag.Bool("verify", false, "Verify the server certificate against its own CA")
	flag.Parse()

	if err := run(*chunk, *blockEvery, *protocolLog, *verify); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(chunk, blockEvery int, protocolLog string, verify bool) error {
	keyPEM, certPEM, err := selfSigned(serverName)
	if err != nil {
		return fmt.Errorf("failed to generate server credentials: %w", err)
	}

	var logger log.Logger = log.NoopLogger{}
	if protocolLog != "" {
		fl, err := log.NewFileLogger(protocolLog)
		if err != nil {
			return fmt.Errorf("failed to open protocol log: %w", err)
		}
		defer fl.Close()
		logger = fl
	}

	clientEnd, serverEnd := memstream.NewPair()
	for _, end := range []*memstream.Stream{clientEnd, serverEnd} {
		end.SetChunk(chunk)
		end.BlockReadsEvery(blockEvery)
		end.BlockWritesEvery(blockEvery)
	}

	serverOpts := session.DefaultOptions()
	serverOpts.ServerSide = true
	serverOpts.Key = keyPEM
	serverOpts.Cert = certPEM
	serverOpts.DoHandshake = false
	serverOpts.Logger = logger

	clientOpts := session.DefaultOptions()
	clientOpts.ServerHostname = serverName
	clientOpts.DoHandshake = false
	clientOpts.Logger = logger
	if verify {
		// The demo cert is its own trust anchor.
		clientOpts.CA = certPEM
		clientOpts.VerifyPeer = true
	}

	server, err := session.Wrap(serverEnd, serverOpts)
	if err != nil {
		return fmt.Errorf("failed to wrap server end: %w", err)
	}
	defer server.Close()

	client, err := session.Wrap(clientEnd, clientOpts)
	if err != nil {
		return fmt.Errorf("failed to wrap client end: %w", err)
	}
	defer client.Close()

	if err := pumpHandshake(client, server); err != nil {
		return err
	}

	fmt.Printf("Handshake complete. Sessions %s <-> %s\n",
		shortID(client.ID()), shortID(server.ID()))
	if peer := client.PeerCertificate(); peer != nil {
		if parsed, err := x509.ParseCertificate(peer); err == nil {
			fmt.Printf("Server certificate: %s\n", parsed.Subject.CommonName)
		}
	}
	fmt.Println("Type a line to echo it through the encrypted channel. Ctrl-D exits.")

	return chatLoop(client, server)
}

// pumpHandshake alternates handshake steps on both ends until each
// reports completion.
func pumpHandshake(client, server *session.Session) error {
	clientDone, serverDone := false, false
	for steps := 0; !clientDone || !serverDone; steps++ {
		if steps > maxPumpSteps {
			return fmt.Errorf("handshake made no progress after %d steps", maxPumpSteps)
		}
		if !clientDone {
			switch err := client.Handshake(); {
			case err == nil:
				clientDone = true
			case stream.IsWouldBlock(err):
			default:
				return fmt.Errorf("client handshake failed: %w", err)
			}
		}
		if !serverDone {
			switch err := server.Handshake(); {
			case err == nil:
				serverDone = true
			case stream.IsWouldBlock(err):
			default:
				return fmt.Errorf("server handshake failed: %w", err)
			}
		}
	}
	return nil
}

func chatLoop(client, server *session.Session) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "chat> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return fmt.Errorf("failed to create readline: %w", err)
	}
	defer rl.Close()

	for {
		line, err := rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				continue
			}
			fmt.Fprintln(rl.Stdout(), "Exiting...")
			return nil
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}
		if input == "exit" || input == "quit" {
			return nil
		}

		reply, err := echo(client, server, []byte(input))
		if err != nil {
			return err
		}
		fmt.Fprintf(rl.Stdout(), "echo: %s\n", reply)
	}
}

// echo sends msg from the client, relays it through the server, and
// returns what the client read back. Every would-block outcome is
// retried, which is where the fragmented transport earns its keep.
func echo(client, server *session.Session, msg []byte) ([]byte, error) {
	if err := pumpWrite(client, msg); err != nil {
		return nil, fmt.Errorf("client write: %w", err)
	}

	relay, err := pumpRead(server, len(msg))
	if err != nil {
		return nil, fmt.Errorf("server read: %w", err)
	}

	if err := pumpWrite(server, relay); err != nil {
		return nil, fmt.Errorf("server write: %w", err)
	}

	reply, err := pumpRead(client, len(relay))
	if err != nil {
		return nil, fmt.Errorf("client read: %w", err)
	}
	return reply, nil
}

func pumpWrite(s *session.Session, p []byte) error {
	for steps := 0; len(p) > 0; steps++ {
		if steps > maxPumpSteps {
			return fmt.Errorf("write made no progress after %d steps", maxPumpSteps)
		}
		n, err := s.Write(p)
		if err != nil && !stream.IsWouldBlock(err) {
			return err
		}
		p = p[n:]
	}
	return nil
}

func pumpRead(s *session.Session, want int) ([]byte, error) {
	buf := make([]byte, want)
	got := 0
	for steps := 0; got < want; steps++ {
		if steps > maxPumpSteps {
			return nil, fmt.Errorf("read made no progress after %d steps", maxPumpSteps)
		}
		n, err := s.Read(buf[got:])
		if err != nil && !stream.IsWouldBlock(err) {
			return nil, err
		}
		got += n
	}
	return buf, nil
}

// selfSigned generates an ephemeral ECDSA key and certificate for the
// demo server.
func selfSigned(name string) (keyPEM, certPEM []byte, err error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, nil, err
	}

	tmpl := &x509.Certificate{
		SerialNumber:          big.NewInt(time.Now().UnixNano()),
		Subject:               pkix.Name{CommonName: name},
		DNSNames:              []string{name},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(24 * time.Hour),
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign,
		BasicConstraintsValid: true,
		IsCA:                  true,
	}

	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	if err != nil {
		return nil, nil, err
	}
	parsed, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, nil, err
	}

	keyPEM, err = cert.EncodeKeyPEM(key)
	if err != nil {
		return nil, nil, err
	}
	return keyPEM, cert.EncodeCertPEM(parsed), nil
}

func shortID(id string) string {
	if len(id) >= 8 {
		return id[:8]
	}
	return id
}
