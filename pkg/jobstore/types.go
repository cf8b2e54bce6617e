package jobstore

import (
	"time"

	"github.com/vihaankulkarni29/NCBI-MetadataHarvester/pkg/genbank"
)

// Status is the lifecycle state of a harvest job.
//
// NOTE: These values appear in API responses and are part of the
// stable client contract.
type Status string

const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"

	// StatusCanceled is reserved for a future cancellation feature.
	// No transition produces it today.
	StatusCanceled Status = "canceled"
)

// Terminal reports whether no further transition may leave s.
func (s Status) Terminal() bool {
	return s == StatusSucceeded || s == StatusFailed || s == StatusCanceled
}

// Progress tracks per-item completion counters for a job.
//
// Total is fixed once the pipeline knows its fan-out; Completed and
// Errors only ever grow, and always equal len(Results) and len(Errors)
// respectively.
type Progress struct {
	Total     int `json:"total"`
	Completed int `json:"completed"`
	Errors    int `json:"errors"`
}

// QueryFilters narrow a genome query.
type QueryFilters struct {
	// AssemblyLevel filters by level ("Complete Genome", "Chromosome",
	// "Scaffold", "Contig"). Only the first entry is applied to the
	// search term; the assembly database accepts one level clause.
	AssemblyLevel []string `json:"assembly_level,omitempty" yaml:"assembly_level"`

	// SourceDBPreference selects RefSeq (GCF_) or GenBank (GCA_)
	// assemblies, or "Either". Default preference is RefSeq.
	SourceDBPreference string `json:"source_db_preference,omitempty" yaml:"source_db_preference"`

	// LatestOnly restricts results to latest assembly versions.
	LatestOnly *bool `json:"latest_only,omitempty" yaml:"latest_only"`
}

// Input is the immutable submission payload of a job. Exactly one of
// Organism or Accessions is set.
type Input struct {
	Organism   string       `json:"organism,omitempty" yaml:"organism"`
	Keywords   []string     `json:"keywords,omitempty" yaml:"keywords"`
	Accessions []string     `json:"accessions,omitempty" yaml:"accessions"`
	Filters    QueryFilters `json:"filters" yaml:"filters"`
	Limit      int          `json:"limit,omitempty" yaml:"limit"`
}

// Assembly is the summary metadata merged into each result record.
type Assembly struct {
	Accession      string `json:"accession"`
	Name           string `json:"name"`
	Level          string `json:"level"`
	RefSeqCategory string `json:"refseq_category,omitempty"`
	Submitter      string `json:"submitter,omitempty"`
	Date           string `json:"date,omitempty"`
}

// Result is one enriched record in a job's results list: the parsed
// GenBank metadata plus the assembly it was resolved through (nil for
// direct sequence accessions).
type Result struct {
	*genbank.Record
	Assembly *Assembly `json:"assembly"`
}

// Job is the unit of trackable work for one submitted batch request.
//
// Jobs are exclusively owned by the Store; the pipeline mutates them
// only through Store methods and never holds a Job reference across a
// blocking call.
type Job struct {
	ID          string    `json:"job_id"`
	Status      Status    `json:"status"`
	Progress    Progress  `json:"progress"`
	SubmittedAt time.Time `json:"submitted_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	Input       Input     `json:"input"`
	Results     []Result  `json:"results"`
	Errors      []string  `json:"errors"`
}
