// Package genbank extracts metadata from GenBank flat-file records.
//
// Only the header sections the harvester serves are parsed (LOCUS
// through REFERENCE); the feature table and sequence data are skipped.
// Records in a batch are terminated by a "//" line.
package genbank

import (
	"fmt"
	"strings"
)

// Reference is one bibliographic reference block.
type Reference struct {
	Authors string `json:"authors"`
	Title   string `json:"title"`
	Journal string `json:"journal"`
	PubMed  string `json:"pubmed,omitempty"`
	Remark  string `json:"remark,omitempty"`
}

// DBLink carries the cross-references the harvester exports.
type DBLink struct {
	BioSample  string `json:"biosample,omitempty"`
	BioProject string `json:"bioproject,omitempty"`
}

// Record is the parsed metadata of one GenBank entry.
type Record struct {
	Locus      string      `json:"locus"`
	Definition string      `json:"definition"`
	Accession  string      `json:"accession"`
	Version    string      `json:"version"`
	DBLink     DBLink      `json:"dblink"`
	Keywords   []string    `json:"keywords"`
	Source     string      `json:"source"`
	Organism   string      `json:"organism"`
	Taxonomy   []string    `json:"taxonomy"`
	References []Reference `json:"references"`
}

// The keyword field occupies the first 12 columns of a header line.
const keywordWidth = 12

// ParseRecord parses a single GenBank record.
func ParseRecord(text string) (*Record, error) {
	rec := &Record{Keywords: []string{}, Taxonomy: []string{}, References: []Reference{}}

	var (
		keyword    string // current top-level section
		subKeyword string // current REFERENCE sub-field
		organismHd bool   // still reading the ORGANISM name line(s)
		ref        *Reference
		defn       []string
		source     []string
		keywords   []string
		taxonomy   []string
	)

	flushRef := func() {
		if ref != nil {
			rec.References = append(rec.References, *ref)
			ref = nil
		}
	}

	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimRight(line, "\r")
		if trimmed == "//" || strings.TrimSpace(trimmed) == "" {
			continue
		}

		head := trimmed
		if len(head) > keywordWidth {
			head = head[:keywordWidth]
		}
		value := ""
		if len(trimmed) > keywordWidth {
			value = strings.TrimSpace(trimmed[keywordWidth:])
		}

		switch {
		case !strings.HasPrefix(trimmed, " "):
			keyword = strings.TrimSpace(head)
			subKeyword = ""
			switch keyword {
			case "LOCUS":
				fields := strings.Fields(value)
				if len(fields) > 0 {
					rec.Locus = fields[0]
				}
			case "DEFINITION":
				defn = append(defn, value)
			case "ACCESSION":
				fields := strings.Fields(value)
				if len(fields) > 0 {
					rec.Accession = fields[0]
				}
			case "VERSION":
				fields := strings.Fields(value)
				if len(fields) > 0 {
					rec.Version = fields[0]
				}
			case "DBLINK":
				parseDBLink(value, &rec.DBLink)
			case "KEYWORDS":
				keywords = append(keywords, value)
			case "SOURCE":
				source = append(source, value)
			case "REFERENCE":
				flushRef()
				ref = &Reference{}
			case "FEATURES", "ORIGIN", "CONTIG":
				flushRef()
				keyword = "" // nothing below the header matters
			}

		case keyword == "SOURCE" && strings.HasPrefix(strings.TrimSpace(head), "ORGANISM"):
			organismHd = true
			rec.Organism = value

		case keyword == "SOURCE" && organismHd:
			// Lineage continuation under ORGANISM.
			taxonomy = append(taxonomy, value)

		case keyword == "REFERENCE":
			sub := strings.TrimSpace(head)
			if sub != "" {
				subKeyword = sub
			}
			if ref == nil {
				continue
			}
			switch subKeyword {
			case "AUTHORS":
				ref.Authors = joinField(ref.Authors, value)
			case "TITLE":
				ref.Title = joinField(ref.Title, value)
			case "JOURNAL":
				ref.Journal = joinField(ref.Journal, value)
			case "PUBMED":
				ref.PubMed = joinField(ref.PubMed, value)
			case "REMARK":
				ref.Remark = joinField(ref.Remark, value)
			}

		default:
			// Continuation of the current top-level section.
			switch keyword {
			case "DEFINITION":
				defn = append(defn, value)
			case "DBLINK":
				parseDBLink(value, &rec.DBLink)
			case "KEYWORDS":
				keywords = append(keywords, value)
			case "SOURCE":
				source = append(source, value)
			}
		}
	}
	flushRef()

	rec.Definition = strings.Join(defn, " ")
	rec.Source = strings.Join(source, " ")
	rec.Keywords = splitList(strings.Join(keywords, " "))
	rec.Taxonomy = splitList(strings.Join(taxonomy, " "))

	if rec.Locus == "" && rec.Accession == "" {
		return nil, fmt.Errorf("not a GenBank record: no LOCUS or ACCESSION line")
	}
	if rec.Accession == "" && rec.Version != "" {
		rec.Accession = strings.SplitN(rec.Version, ".", 2)[0]
	}
	return rec, nil
}

// ParseBatch parses concatenated GenBank records in encounter order.
// Records that fail to parse are skipped; a batch never fails as a
// whole.
func ParseBatch(text string) []*Record {
	var records []*Record
	for _, chunk := range splitRecords(text) {
		rec, err := ParseRecord(chunk)
		if err != nil {
			continue
		}
		records = append(records, rec)
	}
	return records
}

// splitRecords splits on the "//" terminator line.
func splitRecords(text string) []string {
	var (
		chunks  []string
		current []string
	)
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimRight(line, "\r") == "//" {
			if len(current) > 0 {
				chunks = append(chunks, strings.Join(current, "\n"))
				current = nil
			}
			continue
		}
		current = append(current, line)
	}
	if len(current) > 0 && strings.TrimSpace(strings.Join(current, "")) != "" {
		chunks = append(chunks, strings.Join(current, "\n"))
	}
	return chunks
}

func parseDBLink(value string, link *DBLink) {
	key, val, ok := strings.Cut(value, ":")
	if !ok {
		return
	}
	val = strings.TrimSpace(val)
	switch strings.TrimSpace(key) {
	case "BioSample":
		link.BioSample = val
	case "BioProject":
		link.BioProject = val
	}
}

// splitList splits a "; "-separated GenBank list, dropping the
// trailing period.
func splitList(joined string) []string {
	joined = strings.TrimSuffix(strings.TrimSpace(joined), ".")
	if joined == "" {
		return []string{}
	}
	parts := strings.Split(joined, ";")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func joinField(existing, addition string) string {
	if existing == "" {
		return addition
	}
	if addition == "" {
		return existing
	}
	return existing + " " + addition
}
