package cmd

import (
	"os/signal"
	"syscall"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vihaankulkarni29/NCBI-MetadataHarvester/internal/config"
	"github.com/vihaankulkarni29/NCBI-MetadataHarvester/internal/observability"
	"github.com/vihaankulkarni29/NCBI-MetadataHarvester/internal/server"
	"github.com/vihaankulkarni29/NCBI-MetadataHarvester/internal/server/handlers"
	"github.com/vihaankulkarni29/NCBI-MetadataHarvester/internal/server/middleware"
	"github.com/vihaankulkarni29/NCBI-MetadataHarvester/pkg/eutils"
	"github.com/vihaankulkarni29/NCBI-MetadataHarvester/pkg/harvest"
	"github.com/vihaankulkarni29/NCBI-MetadataHarvester/pkg/httpretry"
	"github.com/vihaankulkarni29/NCBI-MetadataHarvester/pkg/jobstore"
	"github.com/vihaankulkarni29/NCBI-MetadataHarvester/pkg/ratelimit"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the harvester HTTP API",
	Long: `Run the harvester as a long-running HTTP API.

Jobs are submitted over REST and executed asynchronously; poll the job
endpoint for progress and fetch results as JSON or CSV once succeeded.

Example:
  harvester serve
  harvester serve --port 9000
  HARVESTER_NCBI_API_KEY=... harvester serve`,
	RunE: runServe,
}

var (
	serveHost string
	servePort int
)

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveHost, "host", "", "Override listen host")
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Override listen port")
}

// buildGateway assembles the rate-limited, retrying E-utilities client
// from configuration. rateOverride, when positive, replaces the
// configured requests-per-second budget.
func buildGateway(cfg *config.Config, rateOverride float64) *eutils.Client {
	rate := cfg.NCBI.RateLimit
	if rateOverride > 0 {
		rate = rateOverride
	}
	rps := ratelimit.EffectiveRate(rate, cfg.NCBI.APIKey != "")

	burst := cfg.Harvest.Concurrency
	if burst < 1 {
		burst = 1
	}
	limiter := ratelimit.New(rps, burst)

	transport := httpretry.New(httpretry.Config{
		MaxRetries: cfg.NCBI.MaxRetries,
		BaseDelay:  cfg.NCBI.RetryBaseDelay,
		MaxDelay:   cfg.NCBI.RetryMaxDelay,
		Timeout:    cfg.NCBI.RequestTimeout,
	})

	return eutils.New(eutils.Config{
		BaseURL: cfg.NCBI.BaseURL,
		Tool:    cfg.NCBI.Tool,
		Email:   cfg.NCBI.Email,
		APIKey:  cfg.NCBI.APIKey,
	}, limiter, transport)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		observability.CLILogger.Error("Failed to load configuration", zap.Error(err))
		return exitError(foundry.ExitInvalidArgument, "Invalid configuration", err)
	}

	if serveHost != "" {
		cfg.Server.Host = serveHost
	}
	if servePort != 0 {
		cfg.Server.Port = servePort
	}

	log, err := observability.NewServiceLogger(cfg.Logging.Level, cfg.Logging.Profile)
	if err != nil {
		observability.CLILogger.Error("Failed to build service logger", zap.Error(err))
		return exitError(foundry.ExitInvalidArgument, "Invalid logging configuration", err)
	}
	defer func() { _ = log.Sync() }()
	middleware.SetLogger(log)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store := jobstore.NewStore()
	gateway := buildGateway(cfg, 0)
	pipeline := harvest.New(gateway, store, log, harvest.Config{
		Concurrency:  cfg.Harvest.Concurrency,
		BatchSize:    cfg.Harvest.BatchSize,
		DefaultLimit: cfg.Harvest.DefaultLimit,
		MaxLimit:     cfg.Harvest.MaxLimit,
	})

	handlers.InitHealthManager(versionInfo.Version)

	srv := server.New(cfg.Server.Host, cfg.Server.Port,
		server.WithLogger(log),
		server.WithJobs(ctx, store, pipeline),
		server.WithVersion(server.VersionInfo{
			Version:   versionInfo.Version,
			Commit:    versionInfo.Commit,
			BuildDate: versionInfo.BuildDate,
		}),
		server.WithTimeouts(server.Timeouts{
			Read:     cfg.Server.ReadTimeout,
			Write:    cfg.Server.WriteTimeout,
			Idle:     cfg.Server.IdleTimeout,
			Shutdown: cfg.Server.ShutdownTimeout,
		}),
	)

	log.Info("starting harvester API",
		zap.String("addr", cfg.Server.Addr()),
		zap.String("version", versionInfo.Version),
		zap.Float64("rate_limit", ratelimit.EffectiveRate(cfg.NCBI.RateLimit, cfg.NCBI.APIKey != "")))

	if err := srv.Start(ctx); err != nil {
		log.Error("server exited with error", zap.Error(err))
		return exitError(foundry.ExitExternalServiceUnavailable, "Server failed", err)
	}
	return nil
}
