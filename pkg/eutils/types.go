package eutils

import "encoding/json"

// SummaryDoc is the subset of an assembly esummary document the
// harvester consumes.
type SummaryDoc struct {
	AssemblyAccession string `json:"assemblyaccession"`
	AssemblyName      string `json:"assemblyname"`
	AssemblyStatus    string `json:"assemblystatus"`
	RefSeqCategory    string `json:"refseq_category"`
	Submitter         string `json:"submitter"`
	SeqReleaseDate    string `json:"seqreleasedate"`
}

// IsRefSeq reports whether the summary describes a RefSeq assembly.
// RefSeq vs GenBank is carried by the accession prefix (GCF_ vs GCA_);
// the assembly database has no native filter for it.
func (d SummaryDoc) IsRefSeq() bool {
	return len(d.AssemblyAccession) >= 4 && d.AssemblyAccession[:4] == "GCF_"
}

type esearchResponse struct {
	ESearchResult struct {
		Count  string   `json:"count"`
		IDList []string `json:"idlist"`
	} `json:"esearchresult"`
}

type esummaryResponse struct {
	Result map[string]json.RawMessage `json:"result"`
}

type elinkResponse struct {
	LinkSets []struct {
		IDs        []string `json:"ids"`
		LinkSetDBs []struct {
			DBTo     string   `json:"dbto"`
			LinkName string   `json:"linkname"`
			Links    []string `json:"links"`
		} `json:"linksetdbs"`
	} `json:"linksets"`
}
