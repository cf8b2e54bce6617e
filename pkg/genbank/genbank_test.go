package genbank

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const ecoliRecord = `LOCUS       NC_000913            4641652 bp    DNA     circular CON 09-MAR-2022
DEFINITION  Escherichia coli str. K-12 substr. MG1655, complete genome.
ACCESSION   NC_000913
VERSION     NC_000913.3
DBLINK      BioProject: PRJNA57779
            BioSample: SAMN02604091
KEYWORDS    RefSeq.
SOURCE      Escherichia coli str. K-12 substr. MG1655
  ORGANISM  Escherichia coli str. K-12 substr. MG1655
            Bacteria; Pseudomonadota; Gammaproteobacteria; Enterobacterales;
            Enterobacteriaceae; Escherichia.
REFERENCE   1  (bases 1 to 4641652)
  AUTHORS   Blattner,F.R., Plunkett,G. III, Bloch,C.A. and Shao,Y.
  TITLE     The complete genome sequence of Escherichia coli K-12
  JOURNAL   Science 277 (5331), 1453-1462 (1997)
   PUBMED   9278503
REFERENCE   2  (bases 1 to 4641652)
  AUTHORS   Riley,M. and Serres,M.H.
  TITLE     Escherichia coli K-12: a cooperatively developed annotation
            snapshot - 2005
  JOURNAL   Nucleic Acids Res. 34 (1), 1-9 (2006)
   PUBMED   16397293
  REMARK    Publication Status: Online-Only
FEATURES             Location/Qualifiers
     source          1..4641652
ORIGIN
        1 agcttttcat tctgactgca
//
`

func TestParseRecord_ExtractsHeaderFields(t *testing.T) {
	rec, err := ParseRecord(ecoliRecord)
	require.NoError(t, err)

	assert.Equal(t, "NC_000913", rec.Locus)
	assert.Equal(t, "Escherichia coli str. K-12 substr. MG1655, complete genome.", rec.Definition)
	assert.Equal(t, "NC_000913", rec.Accession)
	assert.Equal(t, "NC_000913.3", rec.Version)
	assert.Equal(t, "SAMN02604091", rec.DBLink.BioSample)
	assert.Equal(t, "PRJNA57779", rec.DBLink.BioProject)
	assert.Equal(t, []string{"RefSeq"}, rec.Keywords)
	assert.Equal(t, "Escherichia coli str. K-12 substr. MG1655", rec.Source)
	assert.Equal(t, "Escherichia coli str. K-12 substr. MG1655", rec.Organism)
	assert.Equal(t, []string{
		"Bacteria", "Pseudomonadota", "Gammaproteobacteria",
		"Enterobacterales", "Enterobacteriaceae", "Escherichia",
	}, rec.Taxonomy)
}

func TestParseRecord_References(t *testing.T) {
	rec, err := ParseRecord(ecoliRecord)
	require.NoError(t, err)

	require.Len(t, rec.References, 2)

	first := rec.References[0]
	assert.Contains(t, first.Authors, "Blattner,F.R.")
	assert.Equal(t, "The complete genome sequence of Escherichia coli K-12", first.Title)
	assert.Equal(t, "Science 277 (5331), 1453-1462 (1997)", first.Journal)
	assert.Equal(t, "9278503", first.PubMed)
	assert.Empty(t, first.Remark)

	second := rec.References[1]
	assert.Equal(t, "Escherichia coli K-12: a cooperatively developed annotation snapshot - 2005", second.Title)
	assert.Equal(t, "16397293", second.PubMed)
	assert.Equal(t, "Publication Status: Online-Only", second.Remark)
}

func TestParseRecord_VersionFallbackForAccession(t *testing.T) {
	rec, err := ParseRecord("LOCUS       XYZ\nVERSION     NZ_CP000001.1\n")
	require.NoError(t, err)
	assert.Equal(t, "NZ_CP000001", rec.Accession)
}

func TestParseRecord_RejectsGarbage(t *testing.T) {
	_, err := ParseRecord("this is not a genbank record\nat all\n")
	assert.Error(t, err)
}

func TestParseRecord_EmptyKeywordsLine(t *testing.T) {
	rec, err := ParseRecord("LOCUS       ABC\nKEYWORDS    .\n")
	require.NoError(t, err)
	assert.Empty(t, rec.Keywords)
}

func TestParseBatch_SplitsOnTerminator(t *testing.T) {
	batch := ecoliRecord + "LOCUS       NC_000964            4215606 bp\nACCESSION   NC_000964\nVERSION     NC_000964.3\n//\n"
	records := ParseBatch(batch)
	require.Len(t, records, 2)
	assert.Equal(t, "NC_000913", records[0].Accession)
	assert.Equal(t, "NC_000964", records[1].Accession)
}

func TestParseBatch_SkipsUnparseableChunk(t *testing.T) {
	batch := "garbage without structure\n//\n" + ecoliRecord
	records := ParseBatch(batch)
	require.Len(t, records, 1)
	assert.Equal(t, "NC_000913", records[0].Accession)
}

func TestParseBatch_EmptyInput(t *testing.T) {
	assert.Empty(t, ParseBatch(""))
	assert.Empty(t, ParseBatch("\n//\n"))
}
