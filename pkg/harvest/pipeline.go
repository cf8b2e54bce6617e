// Package harvest implements the bounded resolution/fetch/parse
// pipeline that turns a submitted job into enriched GenBank records.
//
// The pipeline coordinates three phases:
//   - Expand: turn the submission into a worklist (search+summarize for
//     organism queries, classification for accession lists)
//   - Resolve: map each worklist entry to a fetchable nuccore id
//     (bounded concurrency; per-item failures become job errors)
//   - Batch-fetch: retrieve and parse records batch-by-batch, merging
//     in assembly metadata and appending results to the job
//
// Per-item failures never abort a job; only a fault that invalidates
// the whole run marks it Failed.
package harvest

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/vihaankulkarni29/NCBI-MetadataHarvester/pkg/eutils"
	"github.com/vihaankulkarni29/NCBI-MetadataHarvester/pkg/genbank"
	"github.com/vihaankulkarni29/NCBI-MetadataHarvester/pkg/jobstore"
)

// Config configures pipeline behavior.
type Config struct {
	// Concurrency bounds simultaneous in-flight resolutions.
	// Default: 6
	Concurrency int

	// BatchSize is the number of ids retrieved per efetch call.
	// Default: 20
	BatchSize int

	// DefaultLimit is the query result cap when the submission does
	// not set one. Default: 20
	DefaultLimit int

	// MaxLimit caps the query result limit. Default: 100
	MaxLimit int
}

// DefaultConfig returns the default pipeline configuration.
func DefaultConfig() Config {
	return Config{
		Concurrency:  6,
		BatchSize:    20,
		DefaultLimit: 20,
		MaxLimit:     100,
	}
}

// Pipeline executes harvest jobs against the NCBI gateway.
//
// One Pipeline instance serves all jobs; per-run state (worklist,
// record cache) lives on the stack of each Run call.
type Pipeline struct {
	gateway eutils.Gateway
	store   *jobstore.Store
	log     *zap.Logger
	cfg     Config

	// parseBatch is the external GenBank batch parser; swapped in tests.
	parseBatch func(text string) []*genbank.Record
}

// New creates a pipeline. Zero config fields take defaults.
func New(gateway eutils.Gateway, store *jobstore.Store, log *zap.Logger, cfg Config) *Pipeline {
	def := DefaultConfig()
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = def.Concurrency
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = def.BatchSize
	}
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = def.DefaultLimit
	}
	if cfg.MaxLimit <= 0 {
		cfg.MaxLimit = def.MaxLimit
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Pipeline{
		gateway:    gateway,
		store:      store,
		log:        log,
		cfg:        cfg,
		parseBatch: genbank.ParseBatch,
	}
}

// resolvedItem pairs a fetchable nuccore id with the assembly summary
// it was resolved through (nil for direct sequence accessions). It
// exists only for the duration of one run.
type resolvedItem struct {
	fetchID string
	doc     *eutils.SummaryDoc
}

// RunQueryJob executes an organism-query job to completion.
func (p *Pipeline) RunQueryJob(ctx context.Context, jobID string, input jobstore.Input) {
	p.run(ctx, jobID, input, p.processQuery)
}

// RunAccessionJob executes an accession-list job to completion.
func (p *Pipeline) RunAccessionJob(ctx context.Context, jobID string, input jobstore.Input) {
	p.run(ctx, jobID, input, p.processAccessions)
}

// run drives the state machine around a job processor: Queued ->
// Running -> Succeeded, or Failed when a fault escapes the stages.
func (p *Pipeline) run(ctx context.Context, jobID string, input jobstore.Input, process func(context.Context, string, jobstore.Input) error) {
	p.store.SetStatus(jobID, jobstore.StatusRunning)
	p.log.Info("job started", zap.String("job_id", jobID))

	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("panic: %v", r)
			}
		}()
		return process(ctx, jobID, input)
	}()

	if err != nil {
		p.store.AppendError(jobID, fmt.Sprintf("Job failed: %v", err))
		p.store.SetStatus(jobID, jobstore.StatusFailed)
		p.log.Warn("job failed", zap.String("job_id", jobID), zap.Error(err))
		return
	}

	p.store.SetStatus(jobID, jobstore.StatusSucceeded)

	job, _ := p.store.Get(jobID)
	p.log.Info("job succeeded",
		zap.String("job_id", jobID),
		zap.Int("results", job.Progress.Completed),
		zap.Int("errors", job.Progress.Errors))
}

// resolveAll runs resolve over every entry with bounded concurrency,
// preserving input-order correlation. Entries whose resolve returns
// nil (after appending its own job error) are dropped.
func (p *Pipeline) resolveAll(ctx context.Context, n int, resolve func(ctx context.Context, index int) *resolvedItem) []resolvedItem {
	resolved := make([]*resolvedItem, n)

	sem := make(chan struct{}, p.cfg.Concurrency)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		select {
		case <-ctx.Done():
		case sem <- struct{}{}:
		}
		if ctx.Err() != nil {
			break
		}

		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			defer func() { <-sem }()
			resolved[idx] = resolve(ctx, idx)
		}(i)
	}
	wg.Wait()

	items := make([]resolvedItem, 0, n)
	for _, item := range resolved {
		if item != nil {
			items = append(items, *item)
		}
	}
	return items
}

// fetchBatches retrieves and parses records for the resolved worklist,
// batch by batch. Batch N+1 does not start until batch N's results and
// errors are appended, keeping result order close to input order. The
// per-job cache guarantees one fetch per distinct id even when two
// inputs resolve to the same representative sequence.
func (p *Pipeline) fetchBatches(ctx context.Context, jobID string, items []resolvedItem) error {
	cache := make(map[string]*genbank.Record)

	for start := 0; start < len(items); start += p.cfg.BatchSize {
		end := start + p.cfg.BatchSize
		if end > len(items) {
			end = len(items)
		}
		batch := items[start:end]

		var toFetch []string
		seen := make(map[string]bool)
		for _, item := range batch {
			if _, cached := cache[item.fetchID]; !cached && !seen[item.fetchID] {
				seen[item.fetchID] = true
				toFetch = append(toFetch, item.fetchID)
			}
		}

		if len(toFetch) > 0 {
			text, err := p.gateway.EFetch(ctx, eutils.DBNuccore, toFetch, "gb", "text")
			if err != nil {
				return fmt.Errorf("efetch batch of %d: %w", len(toFetch), err)
			}
			parsed := p.parseBatch(text)
			// Records come back in request order; a short response
			// leaves trailing ids uncached and reported below.
			for i, id := range toFetch {
				if i < len(parsed) && parsed[i] != nil {
					cache[id] = parsed[i]
				}
			}
			p.log.Debug("batch fetched",
				zap.String("job_id", jobID),
				zap.Int("requested", len(toFetch)),
				zap.Int("parsed", len(parsed)))
		}

		for _, item := range batch {
			rec, ok := cache[item.fetchID]
			if !ok {
				p.store.AppendError(jobID, fmt.Sprintf("Failed to parse GenBank record for %s", item.fetchID))
				continue
			}
			p.store.AppendResult(jobID, jobstore.Result{
				Record:   rec,
				Assembly: assemblyOf(item.doc),
			})
		}
	}
	return nil
}

func assemblyOf(doc *eutils.SummaryDoc) *jobstore.Assembly {
	if doc == nil {
		return nil
	}
	return &jobstore.Assembly{
		Accession:      doc.AssemblyAccession,
		Name:           doc.AssemblyName,
		Level:          doc.AssemblyStatus,
		RefSeqCategory: doc.RefSeqCategory,
		Submitter:      doc.Submitter,
		Date:           doc.SeqReleaseDate,
	}
}
