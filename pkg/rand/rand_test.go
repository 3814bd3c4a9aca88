package rand

import (
	"bytes"
	"testing"
)

func TestCryptoReads(t *testing.T) {
	p := Crypto()
	buf := make([]byte, 64)
	n, err := p.Read(buf)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if n != len(buf) {
		t.Errorf("Read() = %d bytes, want %d", n, len(buf))
	}
	if bytes.Equal(buf, make([]byte, 64)) {
		t.Error("Read() returned all zeros")
	}
}

func TestFixedIsReproducible(t *testing.T) {
	a, b := Fixed(), Fixed()
	bufA, bufB := make([]byte, 128), make([]byte, 128)
	if _, err := a.Read(bufA); err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if _, err := b.Read(bufB); err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if !bytes.Equal(bufA, bufB) {
		t.Error("two Fixed() providers produced different streams")
	}
}

func TestNewSeededDiverges(t *testing.T) {
	a, err := NewSeeded([]byte("one"))
	if err != nil {
		t.Fatalf("NewSeeded() error = %v", err)
	}
	b, err := NewSeeded([]byte("one"))
	if err != nil {
		t.Fatalf("NewSeeded() error = %v", err)
	}

	bufA, bufB := make([]byte, 64), make([]byte, 64)
	if _, err := a.Read(bufA); err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if _, err := b.Read(bufB); err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	// Each provider mixes fresh OS entropy, so identical
	// personalization still yields distinct streams.
	if bytes.Equal(bufA, bufB) {
		t.Error("two seeded providers produced identical streams")
	}
}

func TestSeededFillsLargeBuffers(t *testing.T) {
	p, err := NewSeeded(nil)
	if err != nil {
		t.Fatalf("NewSeeded() error = %v", err)
	}
	buf := make([]byte, 4096)
	n, err := p.Read(buf)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if n != len(buf) {
		t.Errorf("Read() = %d bytes, want %d", n, len(buf))
	}
}
