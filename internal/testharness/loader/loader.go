package loader

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ParseSuite parses a scenario suite from YAML bytes.
func ParseSuite(data []byte) (*Suite, error) {
	var s Suite
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, &LoadError{
			Message: "failed to parse YAML",
			Cause:   err,
		}
	}

	if len(s.Scenarios) == 0 {
		return nil, &LoadError{
			Message: "suite must have at least one scenario",
		}
	}

	seen := make(map[string]bool)
	for i, sc := range s.Scenarios {
		if sc.Name == "" {
			return nil, &LoadError{
				Message: fmt.Sprintf("scenario %d: name is required", i),
			}
		}
		if seen[sc.Name] {
			return nil, &LoadError{
				Message: fmt.Sprintf("duplicate scenario name %q", sc.Name),
			}
		}
		seen[sc.Name] = true

		if err := validateScenario(sc); err != nil {
			return nil, err
		}
	}

	return &s, nil
}

// validateScenario rejects schedules that cannot make progress.
func validateScenario(sc *Scenario) error {
	if sc.Chunk < 0 {
		return &LoadError{
			Message: fmt.Sprintf("scenario %q: chunk must not be negative", sc.Name),
		}
	}
	if sc.BlockReadsEvery < 0 || sc.BlockWritesEvery < 0 {
		return &LoadError{
			Message: fmt.Sprintf("scenario %q: block intervals must not be negative", sc.Name),
		}
	}
	// Every call blocking means no byte ever moves.
	if sc.BlockReadsEvery == 1 || sc.BlockWritesEvery == 1 {
		return &LoadError{
			Message: fmt.Sprintf("scenario %q: block interval of 1 never makes progress", sc.Name),
		}
	}
	if sc.WriteLimit < 0 {
		return &LoadError{
			Message: fmt.Sprintf("scenario %q: write_limit must not be negative", sc.Name),
		}
	}
	if sc.MaxSteps < 0 {
		return &LoadError{
			Message: fmt.Sprintf("scenario %q: max_steps must not be negative", sc.Name),
		}
	}
	return nil
}

// LoadSuite loads a scenario suite from a file.
func LoadSuite(path string) (*Suite, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{
			File:    path,
			Message: "failed to read file",
			Cause:   err,
		}
	}

	s, err := ParseSuite(data)
	if err != nil {
		if le, ok := err.(*LoadError); ok {
			le.File = path
			return nil, le
		}
		return nil, &LoadError{
			File:    path,
			Message: err.Error(),
		}
	}

	// Use filename as suite name if not set.
	if s.Name == "" {
		s.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}

	return s, nil
}

// LoadDirectory loads all scenario suites from a directory.
// Only files with .yaml or .yml extensions are loaded.
func LoadDirectory(dir string) ([]*Suite, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, &LoadError{
			File:    dir,
			Message: "failed to read directory",
			Cause:   err,
		}
	}

	var suites []*Suite
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext != ".yaml" && ext != ".yml" {
			continue
		}

		s, err := LoadSuite(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		suites = append(suites, s)
	}

	return suites, nil
}
