package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/vvka-141/pgingest/internal/config"
	"github.com/vvka-141/pgingest/internal/db"
	"github.com/vvka-141/pgingest/internal/fetch"
	"github.com/vvka-141/pgingest/internal/logging"
	"github.com/vvka-141/pgingest/internal/services"
	"github.com/vvka-141/pgingest/internal/storage"
	"github.com/vvka-141/pgingest/internal/tracing"
	"github.com/vvka-141/pgingest/internal/tui"
	"github.com/vvka-141/pgingest/pkg/pgingest"
)

const tracingShutdownTimeout = 5 * time.Second

// stageComponents holds the components of the requested stages only.
type stageComponents struct {
	fetcher  pgingest.DatasetFetcher
	uploader pgingest.ObjectUploader
	loader   pgingest.DatabaseLoader
}

// componentFactory builds stage components. Tests replace it with fakes.
type componentFactory func(ctx context.Context, cfg *pgingest.Config, runID string, logger pgingest.Logger, stages []services.Stage) (stageComponents, error)

var buildComponents componentFactory = defaultComponents

// newStageRunner picks progress output. Tests replace it to force plain output.
var newStageRunner = func(logger pgingest.Logger) pgingest.StageRunner {
	return tui.NewStageRunner(tui.DetectMode(), os.Stderr, logger)
}

func defaultComponents(ctx context.Context, cfg *pgingest.Config, runID string, logger pgingest.Logger, stages []services.Stage) (stageComponents, error) {
	var c stageComponents
	for _, stage := range stages {
		switch stage {
		case services.StageDownload:
			c.fetcher = fetch.NewFromConfig(cfg, logger)
		case services.StageUploadS3:
			uploader, err := storage.NewFromConfig(ctx, cfg.Storage, runID, logger)
			if err != nil {
				return c, err
			}
			c.uploader = uploader
		case services.StageUploadDB:
			sessions := services.NewSessionManager(func(connConfig *pgingest.ConnectionConfig) (pgingest.Connector, error) {
				return db.NewConnector(connConfig, logger)
			}, logger)
			c.loader = services.NewImportService(sessions, services.NewImporter(logger), logger)
		}
	}
	return c, nil
}

// loadConfig resolves the run configuration: flags override the
// environment, which overrides pgingest.yaml.
func loadConfig(cmd *cobra.Command) (*pgingest.Config, error) {
	if err := config.LoadEnvFiles(globalFlags.envFiles...); err != nil {
		return nil, fmt.Errorf("%w: %w", pgingest.ErrConfig, err)
	}

	file, err := config.LoadOptional(globalFlags.configPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", pgingest.ErrConfig, err)
	}

	cfg, err := config.Build(os.Getenv, file)
	if err != nil {
		return nil, err
	}

	if globalFlags.tenant != "" {
		cfg.TenantID = globalFlags.tenant
	}
	if globalFlags.sourceURL != "" {
		cfg.SourceURL = globalFlags.sourceURL
	}
	if globalFlags.datasetFile != "" {
		cfg.DatasetFile = globalFlags.datasetFile
	}
	if globalFlags.table != "" {
		cfg.Table = globalFlags.table
	}
	if cmd.Flags().Changed("timeout") {
		if globalFlags.timeout <= 0 {
			return nil, fmt.Errorf("--timeout must be positive: %w", pgingest.ErrConfig)
		}
		cfg.Timeout = globalFlags.timeout
	}
	if err := cfg.ValidateRun(); err != nil {
		return nil, err
	}
	cfg.Verbose = getVerboseFlag(cmd)

	return cfg, nil
}

// runStages executes the requested stages in order under one run ID.
func runStages(cmd *cobra.Command, stages ...services.Stage) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	runID := uuid.NewString()
	logger := logging.NewConsoleLogger(cfg.Verbose)
	cfg.Connection.AppName = pgingest.AppName + "/" + runID[:8]

	// Setup context with timeout and signal handling for graceful shutdown
	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Timeout)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case <-sigChan:
			fmt.Fprintln(os.Stderr, "\n[INTERRUPT] Received interrupt signal, cancelling run...")
			cancel()
		case <-ctx.Done():
		}
	}()

	v, _, _ := resolveVersionInfo()
	tracer, err := tracing.New(ctx, tracing.ConfigFromEnv(pgingest.AppName, v, runID))
	if err != nil {
		logger.Error("Tracing disabled: %v", err)
	} else {
		defer func() {
			// The run context may already be done; give the exporter its own budget.
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), tracingShutdownTimeout)
			defer shutdownCancel()
			if err := tracer.Shutdown(shutdownCtx); err != nil {
				logger.Verbose("Tracer shutdown: %v", err)
			}
		}()
	}

	logger.Verbose("Run %s: tenant=%q stages=%v", runID, cfg.TenantID, stages)

	components, err := buildComponents(ctx, cfg, runID, logger, stages)
	if err != nil {
		return err
	}

	pipeline := services.NewPipeline(cfg, runID, services.PipelineDeps{
		Fetcher:  components.fetcher,
		Uploader: components.uploader,
		Loader:   components.loader,
		Runner:   newStageRunner(logger),
		Logger:   logger,
	})

	if _, err := pipeline.Run(ctx, stages...); err != nil {
		return err
	}

	logger.Verbose("Run %s completed", runID)
	return nil
}
