package log

import (
	"bytes"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func sampleEvent() Event {
	return Event{
		Timestamp: time.Date(2026, 8, 20, 9, 30, 0, 123456789, time.UTC),
		SessionID: "11111111-2222-3333-4444-555555555555",
		Direction: DirectionOut,
		Category:  CategoryIO,
		Role:      "CLIENT",
		IO: &IOEvent{
			Requested:   256,
			Transferred: 128,
		},
	}
}

func TestEncodeDecodeEvent(t *testing.T) {
	event := sampleEvent()

	data, err := EncodeEvent(event)
	if err != nil {
		t.Fatalf("EncodeEvent() error = %v", err)
	}

	decoded, err := DecodeEvent(data)
	if err != nil {
		t.Fatalf("DecodeEvent() error = %v", err)
	}

	if decoded.SessionID != event.SessionID {
		t.Errorf("SessionID = %q, want %q", decoded.SessionID, event.SessionID)
	}
	if decoded.Direction != event.Direction || decoded.Category != event.Category {
		t.Errorf("Direction/Category = %v/%v", decoded.Direction, decoded.Category)
	}
	if decoded.Role != "CLIENT" {
		t.Errorf("Role = %q", decoded.Role)
	}
	if decoded.IO == nil {
		t.Fatal("IO payload lost")
	}
	if decoded.IO.Requested != 256 || decoded.IO.Transferred != 128 {
		t.Errorf("IO = %+v", decoded.IO)
	}
	if !decoded.Timestamp.Equal(event.Timestamp) {
		t.Errorf("Timestamp = %v, want %v", decoded.Timestamp, event.Timestamp)
	}
}

func TestEncodeDeterministic(t *testing.T) {
	event := sampleEvent()
	a, err := EncodeEvent(event)
	if err != nil {
		t.Fatalf("EncodeEvent() error = %v", err)
	}
	b, err := EncodeEvent(event)
	if err != nil {
		t.Fatalf("EncodeEvent() error = %v", err)
	}
	if !bytes.Equal(a, b) {
		t.Error("identical events encoded differently")
	}
}

func TestDecodeEventInvalid(t *testing.T) {
	if _, err := DecodeEvent([]byte{0xff, 0x00}); err == nil {
		t.Error("DecodeEvent(garbage) succeeded")
	}
}

func TestFileLoggerAndReader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.wlog")

	logger, err := NewFileLogger(path)
	if err != nil {
		t.Fatalf("NewFileLogger() error = %v", err)
	}

	base := time.Date(2026, 8, 20, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		dir := DirectionIn
		if i%2 == 0 {
			dir = DirectionOut
		}
		logger.Log(Event{
			Timestamp: base.Add(time.Duration(i) * time.Second),
			SessionID: "sess-1",
			Direction: dir,
			Category:  CategoryIO,
			IO:        &IOEvent{Requested: i, Transferred: i},
		})
	}
	if err := logger.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	// Logging after close is a silent no-op.
	logger.Log(sampleEvent())
	if err := logger.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}

	reader, err := NewReader(path)
	if err != nil {
		t.Fatalf("NewReader() error = %v", err)
	}
	defer reader.Close()

	events, err := reader.All()
	if err != nil {
		t.Fatalf("All() error = %v", err)
	}
	if len(events) != 5 {
		t.Fatalf("All() = %d events, want 5", len(events))
	}
	for i, event := range events {
		if event.IO == nil || event.IO.Requested != i {
			t.Errorf("event %d out of order: %+v", i, event.IO)
		}
	}
}

func TestReaderFilter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "filter.wlog")
	logger, err := NewFileLogger(path)
	if err != nil {
		t.Fatalf("NewFileLogger() error = %v", err)
	}

	base := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)
	logger.Log(Event{Timestamp: base, SessionID: "a", Direction: DirectionIn, Category: CategoryIO})
	logger.Log(Event{Timestamp: base.Add(time.Second), SessionID: "b", Direction: DirectionOut, Category: CategoryIO})
	logger.Log(Event{Timestamp: base.Add(2 * time.Second), SessionID: "a", Category: CategoryState,
		StateChange: &StateChangeEvent{OldState: "CREATED", NewState: "HANDSHAKING"}})
	logger.Close()

	t.Run("BySession", func(t *testing.T) {
		reader, err := NewFilteredReader(path, Filter{SessionID: "a"})
		if err != nil {
			t.Fatalf("NewFilteredReader() error = %v", err)
		}
		defer reader.Close()
		events, _ := reader.All()
		if len(events) != 2 {
			t.Errorf("session filter = %d events, want 2", len(events))
		}
	})

	t.Run("ByCategory", func(t *testing.T) {
		cat := CategoryState
		reader, err := NewFilteredReader(path, Filter{Category: &cat})
		if err != nil {
			t.Fatalf("NewFilteredReader() error = %v", err)
		}
		defer reader.Close()
		events, _ := reader.All()
		if len(events) != 1 || events[0].StateChange == nil {
			t.Errorf("category filter = %d events", len(events))
		}
	})

	t.Run("ByTimeWindow", func(t *testing.T) {
		start := base.Add(time.Second)
		end := base.Add(2 * time.Second)
		reader, err := NewFilteredReader(path, Filter{TimeStart: &start, TimeEnd: &end})
		if err != nil {
			t.Fatalf("NewFilteredReader() error = %v", err)
		}
		defer reader.Close()
		events, _ := reader.All()
		if len(events) != 1 || events[0].SessionID != "b" {
			t.Errorf("time filter = %d events", len(events))
		}
	})

	t.Run("NextExhausts", func(t *testing.T) {
		reader, err := NewReader(path)
		if err != nil {
			t.Fatalf("NewReader() error = %v", err)
		}
		defer reader.Close()
		for i := 0; i < 3; i++ {
			if _, err := reader.Next(); err != nil {
				t.Fatalf("Next() %d error = %v", i, err)
			}
		}
		if _, err := reader.Next(); err != io.EOF {
			t.Errorf("Next() after exhaustion = %v, want io.EOF", err)
		}
	})
}

func TestMultiLogger(t *testing.T) {
	var a, b capture
	m := NewMultiLogger(&a, nil, &b)
	m.Log(sampleEvent())
	if a.count != 1 || b.count != 1 {
		t.Errorf("fan-out counts = %d, %d, want 1, 1", a.count, b.count)
	}
}

type capture struct{ count int }

func (c *capture) Log(Event) { c.count++ }

func TestNoopLogger(t *testing.T) {
	// Must not panic, including as a zero value.
	var l NoopLogger
	l.Log(sampleEvent())
}

func TestSlogAdapter(t *testing.T) {
	var buf bytes.Buffer
	handler := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	adapter := NewSlogAdapter(slog.New(handler))

	adapter.Log(sampleEvent())
	out := buf.String()
	if !strings.Contains(out, "session_id=11111111") {
		t.Errorf("missing session attribute: %s", out)
	}
	if !strings.Contains(out, "transferred=128") {
		t.Errorf("missing transfer attribute: %s", out)
	}

	buf.Reset()
	adapter.Log(Event{
		Timestamp: time.Now(),
		SessionID: "x",
		Category:  CategoryError,
		Error:     &ErrorEventData{Code: -0x5100, Message: "bad record"},
	})
	if !strings.Contains(buf.String(), "bad record") {
		t.Errorf("missing error attribute: %s", buf.String())
	}
}

func TestDirectionCategoryStrings(t *testing.T) {
	if DirectionIn.String() != "IN" || DirectionOut.String() != "OUT" {
		t.Error("direction strings wrong")
	}
	if Direction(9).String() != "UNKNOWN" {
		t.Error("unknown direction string wrong")
	}
	for cat, want := range map[Category]string{
		CategoryHandshake: "HANDSHAKE",
		CategoryIO:        "IO",
		CategoryState:     "STATE",
		CategoryError:     "ERROR",
	} {
		if cat.String() != want {
			t.Errorf("Category(%d).String() = %q, want %q", cat, cat.String(), want)
		}
	}
}
