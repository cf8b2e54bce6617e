package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vihaankulkarni29/NCBI-MetadataHarvester/pkg/genbank"
	"github.com/vihaankulkarni29/NCBI-MetadataHarvester/pkg/jobstore"
)

func sampleResult() jobstore.Result {
	return jobstore.Result{
		Record: &genbank.Record{
			Locus:      "NC_000913",
			Definition: "Escherichia coli str. K-12 substr. MG1655, complete genome.",
			Accession:  "NC_000913",
			Version:    "NC_000913.3",
			DBLink:     genbank.DBLink{BioSample: "SAMN02604091", BioProject: "PRJNA57779"},
			Keywords:   []string{"RefSeq"},
			Source:     "Escherichia coli str. K-12 substr. MG1655",
			Organism:   "Escherichia coli str. K-12 substr. MG1655",
			Taxonomy:   []string{"Bacteria", "Escherichia"},
			References: []genbank.Reference{
				{Authors: "Blattner,F.R.", Title: "The complete genome sequence", Journal: "Science", PubMed: "9278503"},
				{Authors: "Riley,M.", Title: "second reference is not exported"},
			},
		},
		Assembly: &jobstore.Assembly{
			Accession:      "GCF_000005845.2",
			Name:           "ASM584v2",
			Level:          "Complete Genome",
			RefSeqCategory: "reference genome",
		},
	}
}

func TestWriteCSV_FlattensRecord(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, []jobstore.Result{sampleResult()}))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)

	header, row := rows[0], rows[1]
	byCol := map[string]string{}
	for i, col := range header {
		byCol[col] = row[i]
	}

	assert.Equal(t, "NC_000913", byCol["accession"])
	assert.Equal(t, "NC_000913.3", byCol["version"])
	assert.Equal(t, "SAMN02604091", byCol["biosample"])
	assert.Equal(t, "PRJNA57779", byCol["bioproject"])
	assert.Equal(t, "Bacteria; Escherichia", byCol["taxonomy"])
	assert.Equal(t, "GCF_000005845.2", byCol["assembly_accession"])
	assert.Equal(t, "reference genome", byCol["refseq_category"])
	assert.Equal(t, "Blattner,F.R.", byCol["ref_authors"])
	assert.Equal(t, "9278503", byCol["ref_pubmed"])
}

func TestWriteCSV_NoAssemblyNoReferences(t *testing.T) {
	res := jobstore.Result{Record: &genbank.Record{Accession: "NC_1", Version: "NC_1.1"}}

	out, err := CSVString([]jobstore.Result{res})
	require.NoError(t, err)

	rows, err := csv.NewReader(strings.NewReader(out)).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Len(t, rows[1], len(rows[0]), "row width must match header despite missing sections")
}

func TestCSVString_EmptyResults(t *testing.T) {
	out, err := CSVString(nil)
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(strings.TrimSpace(out), "\n")+1, "header only")
}

func TestJSONLWriter_EnvelopesAndOrder(t *testing.T) {
	var buf bytes.Buffer
	w := NewJSONLWriter(&buf, "job-1")

	require.NoError(t, w.WriteResult(sampleResult()))
	require.NoError(t, w.WriteError("No nuccore link for GCF_X"))
	require.NoError(t, w.WriteSummary(SummaryRecord{Status: "succeeded", Total: 2, Completed: 1, Errors: 1}))
	require.NoError(t, w.Close())

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)

	var envelopes []Envelope
	for _, line := range lines {
		var env Envelope
		require.NoError(t, json.Unmarshal([]byte(line), &env))
		assert.Equal(t, "job-1", env.JobID)
		assert.False(t, env.TS.IsZero())
		envelopes = append(envelopes, env)
	}
	assert.Equal(t, TypeResult, envelopes[0].Type)
	assert.Equal(t, TypeError, envelopes[1].Type)
	assert.Equal(t, TypeSummary, envelopes[2].Type)

	var sum SummaryRecord
	require.NoError(t, json.Unmarshal(envelopes[2].Data, &sum))
	assert.Equal(t, "succeeded", sum.Status)
	assert.Equal(t, 1, sum.Completed)
}

func TestJSONLWriter_ClosedWriterFails(t *testing.T) {
	w := NewJSONLWriter(&bytes.Buffer{}, "job-1")
	require.NoError(t, w.Close())
	assert.Error(t, w.WriteError("too late"))
}
