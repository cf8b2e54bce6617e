package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vihaankulkarni29/NCBI-MetadataHarvester/internal/observability"
	"github.com/vihaankulkarni29/NCBI-MetadataHarvester/pkg/export"
	"github.com/vihaankulkarni29/NCBI-MetadataHarvester/pkg/harvest"
	"github.com/vihaankulkarni29/NCBI-MetadataHarvester/pkg/jobstore"
	"github.com/vihaankulkarni29/NCBI-MetadataHarvester/pkg/manifest"
)

var harvestCmd = &cobra.Command{
	Use:   "harvest",
	Short: "Run a harvest job from a manifest",
	Long: `Run a one-shot harvest job as defined in a YAML or JSON manifest file.

The manifest specifies the query or accession list, pipeline behavior,
and output configuration.

Example:
  harvester harvest --job ecoli.yaml
  harvester harvest --job ecoli.yaml --output file:results.jsonl
  harvester harvest --job ecoli.yaml --format csv
  harvester harvest --job ecoli.yaml --dry-run`,
	RunE: runHarvest,
}

var (
	harvestJobPath string
	harvestOutput  string
	harvestFormat  string
	harvestDryRun  bool
	harvestPlan    bool
)

func init() {
	rootCmd.AddCommand(harvestCmd)

	harvestCmd.Flags().StringVarP(&harvestJobPath, "job", "j", "", "Path to job manifest (required)")
	harvestCmd.Flags().StringVarP(&harvestOutput, "output", "o", "", "Override output destination")
	harvestCmd.Flags().StringVar(&harvestFormat, "format", "", "Override output format (jsonl|csv)")
	harvestCmd.Flags().BoolVar(&harvestDryRun, "dry-run", false, "Validate manifest and show plan without executing")
	harvestCmd.Flags().BoolVar(&harvestPlan, "plan", false, "Alias for --dry-run")

	_ = harvestCmd.MarkFlagRequired("job")
}

func runHarvest(cmd *cobra.Command, args []string) error {
	m, err := manifest.Load(harvestJobPath)
	if err != nil {
		observability.CLILogger.Error("Failed to load manifest",
			zap.String("path", harvestJobPath),
			zap.Error(err))
		return exitError(foundry.ExitInvalidArgument, "Invalid manifest", err)
	}

	observability.CLILogger.Debug("Loaded manifest",
		zap.String("path", harvestJobPath),
		zap.String("organism", m.Job.Organism),
		zap.Int("accessions", len(m.Job.Accessions)))

	if harvestOutput != "" {
		m.Output.Destination = harvestOutput
	}
	if harvestFormat != "" {
		switch harvestFormat {
		case manifest.FormatJSONL, manifest.FormatCSV:
			m.Output.Format = harvestFormat
		default:
			return exitError(foundry.ExitInvalidArgument, "Invalid --format value",
				fmt.Errorf("unsupported format: %s", harvestFormat))
		}
	}

	if harvestPlan || harvestDryRun {
		return showHarvestPlan(m)
	}

	return executeHarvest(cmd.Context(), m)
}

// showHarvestPlan displays what would be harvested without executing.
func showHarvestPlan(m *manifest.Manifest) error {
	fmt.Println("=== Harvest Plan (dry-run) ===")
	fmt.Println()
	if m.IsAccessionJob() {
		direct, assemblies := 0, 0
		for _, acc := range m.Job.Accessions {
			if harvest.IsAssemblyAccession(acc) {
				assemblies++
			} else {
				direct++
			}
		}
		fmt.Printf("Accessions:  %d (%d assemblies, %d direct sequences)\n",
			len(m.Job.Accessions), assemblies, direct)
	} else {
		fmt.Printf("Search term: %s\n", harvest.BuildSearchTerm(m.Job))
		if m.Job.Limit > 0 {
			fmt.Printf("Limit:       %d\n", m.Job.Limit)
		}
	}
	if pref := m.Job.Filters.SourceDBPreference; pref != "" {
		fmt.Printf("Source DB:   %s\n", pref)
	}
	fmt.Printf("Concurrency: %d\n", m.Run.Concurrency)
	fmt.Printf("Batch size:  %d\n", m.Run.BatchSize)
	if m.Run.RateLimit > 0 {
		fmt.Printf("Rate limit:  %.1f req/s\n", m.Run.RateLimit)
	}
	fmt.Printf("Output:      %s (%s)\n", m.Output.Destination, m.Output.Format)
	fmt.Println()
	fmt.Println("Manifest validated successfully. Remove --dry-run to execute.")
	return nil
}

// executeHarvest runs the job synchronously and writes its output.
func executeHarvest(ctx context.Context, m *manifest.Manifest) error {
	cfg, err := loadConfig()
	if err != nil {
		observability.CLILogger.Error("Failed to load configuration", zap.Error(err))
		return exitError(foundry.ExitInvalidArgument, "Invalid configuration", err)
	}

	store := jobstore.NewStore()
	gateway := buildGateway(cfg, m.Run.RateLimit)
	pipeline := harvest.New(gateway, store, observability.CLILogger, harvest.Config{
		Concurrency:  m.Run.Concurrency,
		BatchSize:    m.Run.BatchSize,
		DefaultLimit: cfg.Harvest.DefaultLimit,
		MaxLimit:     cfg.Harvest.MaxLimit,
	})

	var job jobstore.Job
	if m.IsAccessionJob() {
		job = store.Create(m.Job, len(m.Job.Accessions))
		observability.CLILogger.Info("Starting harvest",
			zap.String("job_id", job.ID),
			zap.Int("accessions", len(m.Job.Accessions)))
		pipeline.RunAccessionJob(ctx, job.ID, m.Job)
	} else {
		job = store.Create(m.Job, pipeline.EffectiveLimit(m.Job.Limit))
		observability.CLILogger.Info("Starting harvest",
			zap.String("job_id", job.ID),
			zap.String("organism", m.Job.Organism))
		pipeline.RunQueryJob(ctx, job.ID, m.Job)
	}

	done, _ := store.Get(job.ID)

	out, cleanup, err := openOutput(m.Output.Destination)
	if err != nil {
		observability.CLILogger.Error("Failed to create output", zap.Error(err))
		return exitError(foundry.ExitFileWriteError, "Failed to create output", err)
	}
	defer cleanup()

	if err := writeHarvestOutput(out, m.Output.Format, done); err != nil {
		observability.CLILogger.Error("Failed to write results", zap.Error(err))
		return exitError(foundry.ExitFileWriteError, "Failed to write results", err)
	}

	observability.CLILogger.Info("Harvest completed",
		zap.String("job_id", done.ID),
		zap.String("status", string(done.Status)),
		zap.Int("results", done.Progress.Completed),
		zap.Int("errors", done.Progress.Errors))

	if done.Status == jobstore.StatusFailed {
		if ctx.Err() != nil {
			return exitError(foundry.ExitSignalInt, "Harvest cancelled", ctx.Err())
		}
		return exitError(foundry.ExitExternalServiceUnavailable, "Harvest failed",
			fmt.Errorf("job %s failed with %d errors", done.ID, done.Progress.Errors))
	}
	return nil
}

// openOutput resolves the manifest destination to a writer.
// Returns the writer, a cleanup function, and any error.
func openOutput(dest string) (io.Writer, func(), error) {
	if dest == "" || dest == "stdout" {
		return os.Stdout, func() {}, nil
	}

	path := strings.TrimPrefix(dest, "file:")
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output file %s: %w", path, err)
	}
	return f, func() { _ = f.Close() }, nil
}

// writeHarvestOutput encodes the finished job in the requested format.
func writeHarvestOutput(out io.Writer, format string, job jobstore.Job) error {
	if format == manifest.FormatCSV {
		return export.WriteCSV(out, job.Results)
	}

	w := export.NewJSONLWriter(out, job.ID)
	for _, res := range job.Results {
		if err := w.WriteResult(res); err != nil {
			return err
		}
	}
	for _, msg := range job.Errors {
		if err := w.WriteError(msg); err != nil {
			return err
		}
	}
	if err := w.WriteSummary(export.SummaryRecord{
		Status:    string(job.Status),
		Total:     job.Progress.Total,
		Completed: job.Progress.Completed,
		Errors:    job.Progress.Errors,
	}); err != nil {
		return err
	}
	return w.Close()
}
