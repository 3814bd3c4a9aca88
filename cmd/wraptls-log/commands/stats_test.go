package commands

import (
	"bytes"
	"strings"
	"testing"
)

func TestRunStats(t *testing.T) {
	path := writeTestLog(t)

	var buf bytes.Buffer
	if err := RunStats(path, &buf); err != nil {
		t.Fatalf("RunStats: %v", err)
	}

	output := buf.String()
	if !strings.Contains(output, "Total Events: 3") {
		t.Errorf("expected total event count, got: %s", output)
	}
	if !strings.Contains(output, "Sessions: 2") {
		t.Errorf("expected 2 sessions, got: %s", output)
	}
	if !strings.Contains(output, "Bytes Out:    100") {
		t.Errorf("expected outbound byte count, got: %s", output)
	}
	if !strings.Contains(output, "Would-blocks: 1") {
		t.Errorf("expected would-block count, got: %s", output)
	}
	if !strings.Contains(output, "Role: client") {
		t.Errorf("expected session role, got: %s", output)
	}
}

func TestRunStatsMissingFile(t *testing.T) {
	var buf bytes.Buffer
	if err := RunStats("does-not-exist.wlog", &buf); err == nil {
		t.Fatal("expected error for missing file")
	}
}
