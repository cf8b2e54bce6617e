// Package cmd implements the harvester CLI: a long-running API server
// (serve) and a manifest-driven one-shot batch run (harvest).
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vihaankulkarni29/NCBI-MetadataHarvester/internal/config"
	"github.com/vihaankulkarni29/NCBI-MetadataHarvester/internal/observability"
)

var rootCmd = &cobra.Command{
	Use:   "harvester",
	Short: "Batch metadata harvester for NCBI genome records",
	Long: `harvester retrieves genome metadata from the NCBI E-utilities API.

Submit an organism query or an explicit accession list; the harvester
resolves assemblies to their representative sequences, fetches GenBank
records in rate-limited batches, and returns the parsed metadata.

Run it as an HTTP API (harvester serve) or as a one-shot batch job
driven by a YAML manifest (harvester harvest --job job.yaml).`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		observability.InitCLILogger("harvester", rootVerbose)
	},
}

var (
	rootConfigFile string
	rootVerbose    bool
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&rootConfigFile, "config", "c", "", "Path to config file (default: ./harvester.yaml if present)")
	rootCmd.PersistentFlags().BoolVarP(&rootVerbose, "verbose", "v", false, "Enable debug logging")
}

// versionInfo holds build metadata injected by the linker via main.
var versionInfo = struct {
	Version   string
	Commit    string
	BuildDate string
}{
	Version:   "dev",
	Commit:    "HEAD",
	BuildDate: "unknown",
}

// SetVersionInfo records build metadata for the version command and
// the /version endpoint.
func SetVersionInfo(version, commit, buildDate string) {
	versionInfo.Version = version
	versionInfo.Commit = commit
	versionInfo.BuildDate = buildDate
}

// codedError carries a process exit code alongside the failure.
type codedError struct {
	code    int
	message string
	err     error
}

func (e *codedError) Error() string {
	return fmt.Sprintf("%s: %v (exit code %d)", e.message, e.err, e.code)
}

func (e *codedError) Unwrap() error {
	return e.err
}

// exitError creates an error that will cause the CLI to exit with the given code.
func exitError(code int, message string, err error) error {
	return &codedError{code: code, message: message, err: err}
}

// loadConfig resolves the service configuration honoring --config.
func loadConfig() (*config.Config, error) {
	return config.Load(rootConfigFile)
}

// Execute runs the CLI and returns the process exit code.
func Execute(ctx context.Context) int {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		var coded *codedError
		if errors.As(err, &coded) {
			fmt.Fprintln(os.Stderr, "Error:", coded.Error())
			return coded.code
		}
		fmt.Fprintln(os.Stderr, "Error:", err)
		return 1
	}
	return 0
}
