package export

import (
	"encoding/json"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/vihaankulkarni29/NCBI-MetadataHarvester/pkg/jobstore"
)

// Record type constants define the envelope types for JSONL output.
// These follow the pattern: harvester.<type>.v<version>
const (
	// TypeResult identifies enriched record envelopes.
	TypeResult = "harvester.result.v1"

	// TypeError identifies per-item error envelopes.
	TypeError = "harvester.error.v1"

	// TypeSummary identifies the final job summary envelope.
	TypeSummary = "harvester.summary.v1"
)

// Envelope is the wrapper for all JSONL output. Each line is a
// self-contained JSON object that can be parsed independently.
type Envelope struct {
	Type  string          `json:"type"`
	TS    time.Time       `json:"ts"`
	JobID string          `json:"job_id"`
	Data  json.RawMessage `json:"data"`
}

// ErrorRecord is the data payload for per-item errors.
type ErrorRecord struct {
	Message string `json:"message"`
}

// SummaryRecord is the data payload for the final job summary.
type SummaryRecord struct {
	Status    string `json:"status"`
	Total     int    `json:"total"`
	Completed int    `json:"completed"`
	Errors    int    `json:"errors"`
}

// JSONLWriter writes envelopes as newline-delimited JSON.
//
// JSONLWriter is safe for concurrent use; writes are serialized so
// lines never interleave.
type JSONLWriter struct {
	w     io.Writer
	jobID string
	mu    sync.Mutex

	closed bool
}

// NewJSONLWriter creates a writer emitting envelopes tagged with jobID.
func NewJSONLWriter(w io.Writer, jobID string) *JSONLWriter {
	return &JSONLWriter{w: w, jobID: jobID}
}

// WriteResult emits one enriched record envelope.
func (jw *JSONLWriter) WriteResult(res jobstore.Result) error {
	return jw.write(TypeResult, res)
}

// WriteError emits one error envelope.
func (jw *JSONLWriter) WriteError(message string) error {
	return jw.write(TypeError, ErrorRecord{Message: message})
}

// WriteSummary emits the final summary envelope.
func (jw *JSONLWriter) WriteSummary(sum SummaryRecord) error {
	return jw.write(TypeSummary, sum)
}

// Close marks the writer closed. Further writes fail.
func (jw *JSONLWriter) Close() error {
	jw.mu.Lock()
	defer jw.mu.Unlock()
	jw.closed = true
	return nil
}

func (jw *JSONLWriter) write(envType string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}
	line, err := json.Marshal(Envelope{
		Type:  envType,
		TS:    time.Now().UTC(),
		JobID: jw.jobID,
		Data:  payload,
	})
	if err != nil {
		return err
	}

	jw.mu.Lock()
	defer jw.mu.Unlock()
	if jw.closed {
		return errors.New("writer is closed")
	}
	if _, err := jw.w.Write(append(line, '\n')); err != nil {
		return err
	}
	return nil
}
