package harvest

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/vihaankulkarni29/NCBI-MetadataHarvester/pkg/eutils"
	"github.com/vihaankulkarni29/NCBI-MetadataHarvester/pkg/jobstore"
)

// Source database preferences. RefSeq assemblies carry the GCF_
// accession prefix, GenBank ones GCA_; the assembly database has no
// native filter for this, so the pipeline post-filters summaries.
const (
	PreferRefSeq  = "RefSeq"
	PreferGenBank = "GenBank"
	PreferEither  = "Either"
)

// BuildSearchTerm assembles the boolean assembly-database query for an
// organism submission.
func BuildSearchTerm(input jobstore.Input) string {
	terms := []string{fmt.Sprintf("%s[Organism]", input.Organism)}
	for _, kw := range input.Keywords {
		if kw = strings.TrimSpace(kw); kw != "" {
			terms = append(terms, fmt.Sprintf("%s[All Fields]", kw))
		}
	}
	if levels := input.Filters.AssemblyLevel; len(levels) > 0 {
		terms = append(terms, fmt.Sprintf("%q[Assembly Level]", levels[0]))
	}
	if input.Filters.LatestOnly == nil || *input.Filters.LatestOnly {
		terms = append(terms, "latest[filter]")
	}
	return strings.Join(terms, " AND ")
}

// EffectiveLimit resolves a requested result limit against the
// configured default and cap. Callers creating a query job use it as
// the provisional progress total before the post-filter count is known.
func (p *Pipeline) EffectiveLimit(requested int) int {
	if requested <= 0 {
		requested = p.cfg.DefaultLimit
	}
	if requested > p.cfg.MaxLimit {
		requested = p.cfg.MaxLimit
	}
	return requested
}

func (p *Pipeline) limitFor(input jobstore.Input) int {
	return p.EffectiveLimit(input.Limit)
}

// matchesPreference applies the RefSeq/GenBank post-filter.
func matchesPreference(doc eutils.SummaryDoc, preference string) bool {
	switch preference {
	case PreferRefSeq, "":
		return doc.IsRefSeq()
	case PreferGenBank:
		return strings.HasPrefix(doc.AssemblyAccession, "GCA_")
	default:
		return true
	}
}

// processQuery expands an organism query into assembly candidates,
// post-filters them, resolves each to its representative sequence, and
// batch-fetches the records. An empty candidate set is a success with
// one explanatory error, not a failure.
func (p *Pipeline) processQuery(ctx context.Context, jobID string, input jobstore.Input) error {
	limit := p.limitFor(input)
	term := BuildSearchTerm(input)
	p.log.Debug("query expansion", zap.String("job_id", jobID), zap.String("term", term), zap.Int("limit", limit))

	ids, err := p.gateway.ESearch(ctx, eutils.DBAssembly, term, limit)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		p.store.AppendError(jobID, "No assemblies found matching criteria")
		return nil
	}

	docs, err := p.gateway.ESummary(ctx, eutils.DBAssembly, ids)
	if err != nil {
		return err
	}

	preference := input.Filters.SourceDBPreference
	var candidates []string // uids in relevance order
	for _, uid := range ids {
		doc, ok := docs[uid]
		if !ok || !matchesPreference(doc, preference) {
			continue
		}
		candidates = append(candidates, uid)
		if len(candidates) >= limit {
			break
		}
	}
	if len(candidates) == 0 {
		p.store.AppendError(jobID, "No assemblies found after filtering")
		return nil
	}

	// Fan-out is known now; fix the denominator before any per-item work.
	p.store.SetProgressTotal(jobID, len(candidates))

	items := p.resolveAll(ctx, len(candidates), func(ctx context.Context, idx int) *resolvedItem {
		uid := candidates[idx]
		doc := docs[uid]
		return p.linkToNuccore(ctx, jobID, uid, &doc)
	})
	if len(items) == 0 {
		return nil
	}
	return p.fetchBatches(ctx, jobID, items)
}

// linkToNuccore resolves an assembly uid to its representative RefSeq
// sequence id. On failure it appends a job error and drops the item.
func (p *Pipeline) linkToNuccore(ctx context.Context, jobID, uid string, doc *eutils.SummaryDoc) *resolvedItem {
	accession := doc.AssemblyAccession
	links, err := p.gateway.ELink(ctx, eutils.DBAssembly, eutils.DBNuccore, []string{uid}, eutils.LinkAssemblyNuccoreRefSeq)
	if err != nil {
		p.store.AppendError(jobID, fmt.Sprintf("Error linking assembly %s: %v", accession, err))
		return nil
	}
	related := links[uid]
	if len(related) == 0 {
		p.store.AppendError(jobID, fmt.Sprintf("No nuccore link for %s", accession))
		return nil
	}
	return &resolvedItem{fetchID: related[0], doc: doc}
}
