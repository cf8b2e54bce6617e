package harvest

import (
	"context"
	"fmt"
	"strings"

	"github.com/vihaankulkarni29/NCBI-MetadataHarvester/pkg/eutils"
	"github.com/vihaankulkarni29/NCBI-MetadataHarvester/pkg/jobstore"
)

// IsAssemblyAccession reports whether an accession names an assembly
// container (GCF_/GCA_ prefix) that must be resolved to a sequence id,
// as opposed to a directly fetchable nuccore accession (NC_, NZ_, CP_,
// and the rest).
func IsAssemblyAccession(accession string) bool {
	return strings.HasPrefix(accession, "GCF_") || strings.HasPrefix(accession, "GCA_")
}

// processAccessions resolves a literal accession list. Assembly
// accessions take the search+summarize+link chain; sequence accessions
// go straight to the fetch stage.
func (p *Pipeline) processAccessions(ctx context.Context, jobID string, input jobstore.Input) error {
	accessions := input.Accessions
	p.store.SetProgressTotal(jobID, len(accessions))

	items := p.resolveAll(ctx, len(accessions), func(ctx context.Context, idx int) *resolvedItem {
		return p.resolveAccession(ctx, jobID, accessions[idx])
	})
	if len(items) == 0 {
		return nil
	}
	return p.fetchBatches(ctx, jobID, items)
}

// resolveAccession turns one accession into a fetchable item. Failures
// append a job error and drop the item; they never fail the job.
func (p *Pipeline) resolveAccession(ctx context.Context, jobID, accession string) *resolvedItem {
	if !IsAssemblyAccession(accession) {
		return &resolvedItem{fetchID: accession}
	}

	ids, err := p.gateway.ESearch(ctx, eutils.DBAssembly, fmt.Sprintf("%s[Assembly Accession]", accession), 1)
	if err != nil {
		p.store.AppendError(jobID, fmt.Sprintf("Error resolving %s: %v", accession, err))
		return nil
	}
	if len(ids) == 0 {
		p.store.AppendError(jobID, fmt.Sprintf("Assembly not found: %s", accession))
		return nil
	}
	uid := ids[0]

	docs, err := p.gateway.ESummary(ctx, eutils.DBAssembly, []string{uid})
	if err != nil {
		p.store.AppendError(jobID, fmt.Sprintf("Error resolving %s: %v", accession, err))
		return nil
	}
	doc, ok := docs[uid]
	if !ok {
		doc = eutils.SummaryDoc{AssemblyAccession: accession}
	}

	return p.linkToNuccore(ctx, jobID, uid, &doc)
}
