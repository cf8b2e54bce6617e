// Package export serializes harvested records for delivery: CSV for
// spreadsheet consumers and JSONL envelopes for streaming CLI output.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/vihaankulkarni29/NCBI-MetadataHarvester/pkg/jobstore"
)

// csvHeader is the flattened column set. Nested structures collapse to
// scalar columns; list fields join with "; "; only the first reference
// is exported.
var csvHeader = []string{
	"accession", "version", "locus", "definition", "organism", "source",
	"biosample", "bioproject", "keywords", "taxonomy",
	"assembly_accession", "assembly_name", "assembly_level", "refseq_category",
	"ref_authors", "ref_title", "ref_journal", "ref_pubmed",
}

// WriteCSV flattens results to CSV.
func WriteCSV(w io.Writer, results []jobstore.Result) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, res := range results {
		if err := cw.Write(flatten(res)); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// CSVString renders results as a CSV document.
func CSVString(results []jobstore.Result) (string, error) {
	var sb strings.Builder
	if err := WriteCSV(&sb, results); err != nil {
		return "", err
	}
	return sb.String(), nil
}

func flatten(res jobstore.Result) []string {
	rec := res.Record

	var assemblyAcc, assemblyName, assemblyLevel, refseqCategory string
	if res.Assembly != nil {
		assemblyAcc = res.Assembly.Accession
		assemblyName = res.Assembly.Name
		assemblyLevel = res.Assembly.Level
		refseqCategory = res.Assembly.RefSeqCategory
	}

	var refAuthors, refTitle, refJournal, refPubMed string
	if len(rec.References) > 0 {
		first := rec.References[0]
		refAuthors = first.Authors
		refTitle = first.Title
		refJournal = first.Journal
		refPubMed = first.PubMed
	}

	return []string{
		rec.Accession,
		rec.Version,
		rec.Locus,
		rec.Definition,
		rec.Organism,
		rec.Source,
		rec.DBLink.BioSample,
		rec.DBLink.BioProject,
		strings.Join(rec.Keywords, "; "),
		strings.Join(rec.Taxonomy, "; "),
		assemblyAcc,
		assemblyName,
		assemblyLevel,
		refseqCategory,
		refAuthors,
		refTitle,
		refJournal,
		refPubMed,
	}
}
