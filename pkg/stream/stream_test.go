package stream

import (
	"errors"
	"fmt"
	"io"
	"syscall"
	"testing"
)

func TestReadyBits(t *testing.T) {
	tests := []struct {
		ready     Ready
		canRead   bool
		canWrite  bool
		wantLabel string
	}{
		{0, false, false, "NONE"},
		{ReadyRead, true, false, "READ"},
		{ReadyWrite, false, true, "WRITE"},
		{ReadyRead | ReadyWrite, true, true, "READ|WRITE"},
	}

	for _, tt := range tests {
		if got := tt.ready.CanRead(); got != tt.canRead {
			t.Errorf("Ready(%d).CanRead() = %v, want %v", tt.ready, got, tt.canRead)
		}
		if got := tt.ready.CanWrite(); got != tt.canWrite {
			t.Errorf("Ready(%d).CanWrite() = %v, want %v", tt.ready, got, tt.canWrite)
		}
		if got := tt.ready.String(); got != tt.wantLabel {
			t.Errorf("Ready(%d).String() = %q, want %q", tt.ready, got, tt.wantLabel)
		}
	}
}

func TestIsWouldBlock(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"sentinel", ErrWouldBlock, true},
		{"wrapped sentinel", fmt.Errorf("read: %w", ErrWouldBlock), true},
		{"EAGAIN", syscall.EAGAIN, true},
		{"wrapped EAGAIN", fmt.Errorf("fd: %w", syscall.EAGAIN), true},
		{"EWOULDBLOCK", syscall.EWOULDBLOCK, true},
		{"nil", nil, false},
		{"EOF", io.EOF, false},
		{"other errno", syscall.EPIPE, false},
		{"plain error", errors.New("boom"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsWouldBlock(tt.err); got != tt.want {
				t.Errorf("IsWouldBlock(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
