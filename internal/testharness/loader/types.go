// Package loader provides YAML scenario loading for the wraptls test harness.
//
// A scenario describes a transport schedule: how an in-memory stream pair
// fragments, limits, and blocks reads and writes while a session runs on
// top of it. Scenario suites let the same session test body run against
// many transport behaviors without hand-writing each combination.
package loader

// Scenario describes one transport schedule for a harness stream.
type Scenario struct {
	// Name is the unique scenario identifier (e.g., "tiny-chunks").
	Name string `yaml:"name"`

	// Description explains what transport behavior the scenario models.
	Description string `yaml:"description"`

	// Chunk caps the number of bytes moved per Read or Write call.
	// Zero means unlimited.
	Chunk int `yaml:"chunk,omitempty"`

	// BlockReadsEvery makes every Nth read return would-block.
	// Zero disables periodic read blocking.
	BlockReadsEvery int `yaml:"block_reads_every,omitempty"`

	// BlockWritesEvery makes every Nth write return would-block.
	// Zero disables periodic write blocking.
	BlockWritesEvery int `yaml:"block_writes_every,omitempty"`

	// WriteLimit bounds the buffered bytes before writes block,
	// modeling a full kernel socket buffer. Zero means unbounded.
	WriteLimit int `yaml:"write_limit,omitempty"`

	// MaxSteps bounds the retry loop for tests driving the scenario,
	// so a scheduling bug fails the test instead of hanging it.
	MaxSteps int `yaml:"max_steps,omitempty"`

	// Tags for categorizing scenarios.
	Tags []string `yaml:"tags,omitempty"`
}

// Suite is a named collection of scenarios loaded from one YAML file.
type Suite struct {
	// Name of the scenario suite.
	Name string `yaml:"name"`

	// Description of what transport behaviors this suite covers.
	Description string `yaml:"description"`

	// Scenarios are the schedules in this suite.
	Scenarios []*Scenario `yaml:"scenarios"`
}

// LoadError provides details about a scenario loading error.
type LoadError struct {
	// File is the path to the file that failed to load.
	File string

	// Message describes the error.
	Message string

	// Cause is the underlying error, if any.
	Cause error
}

func (e *LoadError) Error() string {
	if e.File != "" {
		return e.File + ": " + e.Message
	}
	return e.Message
}

func (e *LoadError) Unwrap() error {
	return e.Cause
}
