// Package manifest provides loading and validation of harvester job manifests.
//
// A job manifest is a YAML or JSON file describing one batch harvest run:
// what to fetch (an organism query or an explicit accession list), how to
// run it, and where the results go.
//
// Manifests are validated against a JSON Schema to ensure correctness before
// execution. The schema enforces strict typing and disallows unknown properties.
//
// Example manifest (YAML):
//
//	version: "1.0"
//	job:
//	  organism: "Escherichia coli"
//	  keywords:
//	    - "complete genome"
//	  filters:
//	    assembly_level:
//	      - "Complete Genome"
//	    source_db_preference: RefSeq
//	  limit: 20
//	run:
//	  concurrency: 6
//	output:
//	  destination: stdout
//	  format: jsonl
package manifest

import (
	"github.com/vihaankulkarni29/NCBI-MetadataHarvester/pkg/jobstore"
)

// Manifest represents a validated job manifest.
//
// Required fields are Version and Job. Run and Output are optional with
// sensible defaults.
type Manifest struct {
	// Schema is an optional JSON Schema reference for editor support.
	Schema string `json:"$schema,omitempty" yaml:"$schema,omitempty"`

	// Version is the manifest schema version. Must be "1.0".
	Version string `json:"version" yaml:"version"`

	// Job is the harvest request: exactly one of job.organism or
	// job.accessions must be set.
	Job jobstore.Input `json:"job" yaml:"job"`

	// Run configures pipeline behavior (optional).
	Run RunConfig `json:"run,omitempty" yaml:"run,omitempty"`

	// Output configures output destination and format (optional).
	Output OutputConfig `json:"output,omitempty" yaml:"output,omitempty"`
}

// RunConfig configures pipeline behavior.
//
// All fields are optional with defaults applied during loading.
type RunConfig struct {
	// Concurrency is the number of concurrent resolution calls.
	// Range: 1-32. Default: 6.
	Concurrency int `json:"concurrency,omitempty" yaml:"concurrency,omitempty"`

	// BatchSize is the number of sequence ids per efetch call.
	// Range: 1-100. Default: 20.
	BatchSize int `json:"batch_size,omitempty" yaml:"batch_size,omitempty"`

	// RateLimit overrides the configured requests-per-second budget
	// (0 = use the service configuration).
	RateLimit float64 `json:"rate_limit,omitempty" yaml:"rate_limit,omitempty"`
}

// OutputConfig configures output destination and format.
type OutputConfig struct {
	// Destination is the output target.
	// Values: "stdout" or "file:/path/to/output".
	// Default: "stdout".
	Destination string `json:"destination,omitempty" yaml:"destination,omitempty"`

	// Format selects the result encoding: "jsonl" or "csv".
	// Default: "jsonl".
	Format string `json:"format,omitempty" yaml:"format,omitempty"`
}

// Default values for optional configuration fields.
const (
	// DefaultVersion is the current manifest schema version.
	DefaultVersion = "1.0"

	// DefaultConcurrency is the default number of concurrent resolution calls.
	DefaultConcurrency = 6

	// DefaultBatchSize is the default number of sequence ids per efetch call.
	DefaultBatchSize = 20

	// DefaultDestination is the default output destination.
	DefaultDestination = "stdout"

	// DefaultFormat is the default result encoding.
	DefaultFormat = "jsonl"

	// FormatJSONL selects newline-delimited JSON envelopes.
	FormatJSONL = "jsonl"

	// FormatCSV selects flattened CSV rows.
	FormatCSV = "csv"
)

// ApplyDefaults fills in default values for optional fields.
//
// This should be called after loading and validating the manifest to ensure
// all optional fields have sensible values.
func (m *Manifest) ApplyDefaults() {
	if m.Run.Concurrency == 0 {
		m.Run.Concurrency = DefaultConcurrency
	}
	if m.Run.BatchSize == 0 {
		m.Run.BatchSize = DefaultBatchSize
	}
	// RateLimit: 0 is a valid value (use service configuration)

	if m.Output.Destination == "" {
		m.Output.Destination = DefaultDestination
	}
	if m.Output.Format == "" {
		m.Output.Format = DefaultFormat
	}
}

// IsAccessionJob reports whether the manifest submits an explicit
// accession list rather than an organism query.
func (m *Manifest) IsAccessionJob() bool {
	return len(m.Job.Accessions) > 0
}
