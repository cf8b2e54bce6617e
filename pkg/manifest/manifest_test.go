package manifest

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// validQueryYAML returns a minimal valid organism-query manifest in YAML.
func validQueryYAML() string {
	return `version: "1.0"
job:
  organism: "Escherichia coli"
`
}

// validAccessionsJSON returns a minimal valid accession-list manifest in JSON.
func validAccessionsJSON() string {
	return `{
  "version": "1.0",
  "job": {
    "accessions": ["NC_000913.3", "GCF_000005845.2"]
  }
}`
}

// fullManifestYAML returns a complete manifest with all optional fields.
func fullManifestYAML() string {
	return `version: "1.0"
job:
  organism: "Escherichia coli"
  keywords:
    - "complete genome"
    - "K-12"
  filters:
    assembly_level:
      - "Complete Genome"
      - "Chromosome"
    source_db_preference: GenBank
    latest_only: false
  limit: 50
run:
  concurrency: 8
  batch_size: 10
  rate_limit: 10
output:
  destination: file:/tmp/results.csv
  format: csv
`
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name        string
		content     string
		filename    string
		wantErr     bool
		errContains string
		validate    func(t *testing.T, m *Manifest)
	}{
		{
			name:     "valid query manifest YAML",
			content:  validQueryYAML(),
			filename: "manifest.yaml",
			wantErr:  false,
			validate: func(t *testing.T, m *Manifest) {
				assert.Equal(t, "1.0", m.Version)
				assert.Equal(t, "Escherichia coli", m.Job.Organism)
				assert.False(t, m.IsAccessionJob())
				// Check defaults were applied
				assert.Equal(t, DefaultConcurrency, m.Run.Concurrency)
				assert.Equal(t, DefaultBatchSize, m.Run.BatchSize)
				assert.Equal(t, DefaultDestination, m.Output.Destination)
				assert.Equal(t, DefaultFormat, m.Output.Format)
			},
		},
		{
			name:     "valid accession manifest JSON",
			content:  validAccessionsJSON(),
			filename: "manifest.json",
			wantErr:  false,
			validate: func(t *testing.T, m *Manifest) {
				assert.Equal(t, "1.0", m.Version)
				assert.Equal(t, []string{"NC_000913.3", "GCF_000005845.2"}, m.Job.Accessions)
				assert.True(t, m.IsAccessionJob())
			},
		},
		{
			name:     "full manifest with all options",
			content:  fullManifestYAML(),
			filename: "full.yaml",
			wantErr:  false,
			validate: func(t *testing.T, m *Manifest) {
				assert.Equal(t, []string{"complete genome", "K-12"}, m.Job.Keywords)
				assert.Equal(t, []string{"Complete Genome", "Chromosome"}, m.Job.Filters.AssemblyLevel)
				assert.Equal(t, "GenBank", m.Job.Filters.SourceDBPreference)
				require.NotNil(t, m.Job.Filters.LatestOnly)
				assert.False(t, *m.Job.Filters.LatestOnly)
				assert.Equal(t, 50, m.Job.Limit)
				assert.Equal(t, 8, m.Run.Concurrency)
				assert.Equal(t, 10, m.Run.BatchSize)
				assert.Equal(t, 10.0, m.Run.RateLimit)
				assert.Equal(t, "file:/tmp/results.csv", m.Output.Destination)
				assert.Equal(t, FormatCSV, m.Output.Format)
			},
		},
		{
			name:        "missing version",
			content:     "job:\n  organism: test\n",
			filename:    "noversion.yaml",
			wantErr:     true,
			errContains: "version",
		},
		{
			name:        "missing job",
			content:     "version: \"1.0\"\n",
			filename:    "nojob.yaml",
			wantErr:     true,
			errContains: "job",
		},
		{
			name: "both organism and accessions",
			content: `version: "1.0"
job:
  organism: "Escherichia coli"
  accessions:
    - NC_000913.3
`,
			filename: "both.yaml",
			wantErr:  true,
		},
		{
			name: "neither organism nor accessions",
			content: `version: "1.0"
job:
  limit: 5
`,
			filename: "neither.yaml",
			wantErr:  true,
		},
		{
			name: "unknown top-level field",
			content: `version: "1.0"
job:
  organism: test
bogus: true
`,
			filename: "unknown.yaml",
			wantErr:  true,
		},
		{
			name: "limit over maximum",
			content: `version: "1.0"
job:
  organism: test
  limit: 500
`,
			filename: "limit.yaml",
			wantErr:  true,
		},
		{
			name: "bad source preference",
			content: `version: "1.0"
job:
  organism: test
  filters:
    source_db_preference: ENA
`,
			filename: "badpref.yaml",
			wantErr:  true,
		},
		{
			name: "bad output format",
			content: `version: "1.0"
job:
  organism: test
output:
  format: xml
`,
			filename: "badformat.yaml",
			wantErr:  true,
		},
		{
			name:        "invalid YAML",
			content:     "version: [unclosed",
			filename:    "broken.yaml",
			wantErr:     true,
			errContains: "invalid YAML",
		},
		{
			name:        "empty file",
			content:     "",
			filename:    "empty.yaml",
			wantErr:     true,
			errContains: "empty",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			path := filepath.Join(dir, tt.filename)
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o644))

			m, err := Load(path)
			if tt.wantErr {
				require.Error(t, err)
				if tt.errContains != "" {
					assert.Contains(t, strings.ToLower(err.Error()), strings.ToLower(tt.errContains))
				}
				return
			}
			require.NoError(t, err)
			require.NotNil(t, m)
			if tt.validate != nil {
				tt.validate(t, m)
			}
		})
	}
}

func TestLoad_FileNotFound(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestLoadFromBytes_UnknownExtensionFallsBackToYAML(t *testing.T) {
	m, err := LoadFromBytes([]byte(validQueryYAML()), "manifest")
	require.NoError(t, err)
	assert.Equal(t, "Escherichia coli", m.Job.Organism)
}

func TestValidate_StructRoundTrip(t *testing.T) {
	m, err := LoadFromBytes([]byte(fullManifestYAML()), "full.yaml")
	require.NoError(t, err)
	assert.NoError(t, Validate(m))
}

func TestValidate_ValidationErrorsUnwrap(t *testing.T) {
	err := ValidateRaw([]byte(`{"version":"2.0","job":{"organism":"x"}}`))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrValidationFailed))

	var verrs ValidationErrors
	require.True(t, errors.As(err, &verrs))
	assert.NotEmpty(t, verrs)
}

func TestApplyDefaults_DoesNotOverrideSetValues(t *testing.T) {
	m := &Manifest{
		Version: DefaultVersion,
		Run:     RunConfig{Concurrency: 2, BatchSize: 5},
		Output:  OutputConfig{Destination: "file:/tmp/out.jsonl", Format: FormatCSV},
	}
	m.ApplyDefaults()

	assert.Equal(t, 2, m.Run.Concurrency)
	assert.Equal(t, 5, m.Run.BatchSize)
	assert.Equal(t, "file:/tmp/out.jsonl", m.Output.Destination)
	assert.Equal(t, FormatCSV, m.Output.Format)
}
