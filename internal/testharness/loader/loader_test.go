package loader_test

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/wraptls/wraptls-go/internal/testharness/loader"
)

// TestParseSuiteBasic tests basic YAML suite parsing.
func TestParseSuiteBasic(t *testing.T) {
	yaml := `
name: basic
description: A simple suite
scenarios:
  - name: smooth
    description: nothing blocks
  - name: fragmented
    chunk: 3
    max_steps: 100
`
	s, err := loader.ParseSuite([]byte(yaml))
	if err != nil {
		t.Fatalf("Failed to parse suite: %v", err)
	}

	if s.Name != "basic" {
		t.Errorf("Name mismatch: expected basic, got %s", s.Name)
	}
	if len(s.Scenarios) != 2 {
		t.Fatalf("Expected 2 scenarios, got %d", len(s.Scenarios))
	}
	if s.Scenarios[1].Chunk != 3 {
		t.Errorf("Chunk mismatch: expected 3, got %d", s.Scenarios[1].Chunk)
	}
	if s.Scenarios[1].MaxSteps != 100 {
		t.Errorf("MaxSteps mismatch: expected 100, got %d", s.Scenarios[1].MaxSteps)
	}
}

// TestParseSuiteErrors tests rejection of malformed suites.
func TestParseSuiteErrors(t *testing.T) {
	cases := []struct {
		name string
		yaml string
	}{
		{"empty", `name: empty`},
		{"missing name", "scenarios:\n  - chunk: 3\n"},
		{"duplicate name", "scenarios:\n  - name: a\n  - name: a\n"},
		{"negative chunk", "scenarios:\n  - name: a\n    chunk: -1\n"},
		{"block every call", "scenarios:\n  - name: a\n    block_reads_every: 1\n"},
		{"negative limit", "scenarios:\n  - name: a\n    write_limit: -4\n"},
		{"not yaml", `{{{`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := loader.ParseSuite([]byte(tc.yaml))
			if err == nil {
				t.Fatal("Expected parse error, got nil")
			}
			var le *loader.LoadError
			if !errors.As(err, &le) {
				t.Errorf("Expected *LoadError, got %T", err)
			}
		})
	}
}

// TestLoadSuiteFromFile tests loading the shipped schedule file.
func TestLoadSuiteFromFile(t *testing.T) {
	s, err := loader.LoadSuite(filepath.Join("testdata", "schedules.yaml"))
	if err != nil {
		t.Fatalf("Failed to load suite: %v", err)
	}

	if s.Name != "transport-schedules" {
		t.Errorf("Name mismatch: got %s", s.Name)
	}
	if len(s.Scenarios) < 4 {
		t.Fatalf("Expected at least 4 scenarios, got %d", len(s.Scenarios))
	}

	names := make(map[string]*loader.Scenario)
	for _, sc := range s.Scenarios {
		names[sc.Name] = sc
	}
	sc, ok := names["congested"]
	if !ok {
		t.Fatal("Missing congested scenario")
	}
	if sc.WriteLimit != 64 {
		t.Errorf("congested write_limit: expected 64, got %d", sc.WriteLimit)
	}
	if sc.BlockReadsEvery != 4 || sc.BlockWritesEvery != 5 {
		t.Errorf("congested block intervals: got %d/%d", sc.BlockReadsEvery, sc.BlockWritesEvery)
	}
}

// TestLoadSuiteMissingFile tests the error path for missing files.
func TestLoadSuiteMissingFile(t *testing.T) {
	_, err := loader.LoadSuite(filepath.Join("testdata", "does-not-exist.yaml"))
	if err == nil {
		t.Fatal("Expected error for missing file")
	}
	var le *loader.LoadError
	if !errors.As(err, &le) {
		t.Fatalf("Expected *LoadError, got %T", err)
	}
	if le.File == "" {
		t.Error("LoadError.File should name the missing file")
	}
}

// TestLoadDirectory tests loading all suites from testdata.
func TestLoadDirectory(t *testing.T) {
	suites, err := loader.LoadDirectory("testdata")
	if err != nil {
		t.Fatalf("Failed to load directory: %v", err)
	}
	if len(suites) == 0 {
		t.Fatal("Expected at least one suite")
	}
}
