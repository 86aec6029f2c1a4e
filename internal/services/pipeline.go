package services

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vvka-141/pgingest/pkg/pgingest"
)

const tracerName = "github.com/vvka-141/pgingest/internal/services"

// Stage names one step of an ingestion run. The values double as CLI
// subcommand names.
type Stage string

const (
	StageDownload Stage = "download"
	StageUploadS3 Stage = "upload_s3"
	StageUploadDB Stage = "upload_db"
)

// AllStages is the order of a full run.
var AllStages = []Stage{StageDownload, StageUploadS3, StageUploadDB}

// Report collects the results of the stages that ran.
type Report struct {
	RunID  string
	Fetch  *pgingest.FetchResult
	Upload *pgingest.UploadResult
	Import *pgingest.ImportResult
}

// Pipeline runs the ingestion stages in order and stops at the first failure.
// Components for stages that are never requested may be nil.
//
// Thread-Safety: NOT safe for concurrent Run() calls on the same instance.
type Pipeline struct {
	cfg      *pgingest.Config
	runID    string
	fetcher  pgingest.DatasetFetcher
	uploader pgingest.ObjectUploader
	loader   pgingest.DatabaseLoader
	runner   pgingest.StageRunner
	logger   pgingest.Logger
	tracer   trace.Tracer
}

// PipelineDeps are the stage components of a Pipeline.
type PipelineDeps struct {
	Fetcher  pgingest.DatasetFetcher
	Uploader pgingest.ObjectUploader
	Loader   pgingest.DatabaseLoader
	Runner   pgingest.StageRunner
	Logger   pgingest.Logger
}

// NewPipeline creates a Pipeline for cfg.
//
// Panics if cfg, Runner or Logger is nil.
func NewPipeline(cfg *pgingest.Config, runID string, deps PipelineDeps) *Pipeline {
	if cfg == nil {
		panic("cfg cannot be nil")
	}
	if deps.Runner == nil {
		panic("runner cannot be nil")
	}
	if deps.Logger == nil {
		panic("logger cannot be nil")
	}

	return &Pipeline{
		cfg:      cfg,
		runID:    runID,
		fetcher:  deps.Fetcher,
		uploader: deps.Uploader,
		loader:   deps.Loader,
		runner:   deps.Runner,
		logger:   deps.Logger,
		tracer:   otel.Tracer(tracerName),
	}
}

// Run executes stages in the given order. All requested stages are validated
// before the first one starts, so a configuration error has no side effects.
func (p *Pipeline) Run(ctx context.Context, stages ...Stage) (*Report, error) {
	if len(stages) == 0 {
		stages = AllStages
	}

	report := &Report{RunID: p.runID}

	if err := p.validate(stages); err != nil {
		return report, err
	}

	ctx, span := p.tracer.Start(ctx, "pgingest.run", trace.WithAttributes(
		attribute.String("pgingest.run_id", p.runID),
		attribute.String("pgingest.tenant", p.cfg.TenantID),
	))
	defer span.End()

	for _, stage := range stages {
		if err := p.runStage(ctx, stage, report); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, string(stage))
			return report, err
		}
	}

	return report, nil
}

func (p *Pipeline) validate(stages []Stage) error {
	var errs []error
	for _, stage := range stages {
		switch stage {
		case StageDownload:
			if p.fetcher == nil {
				panic("fetcher cannot be nil for stage download")
			}
			errs = append(errs, p.cfg.ValidateFetch())
		case StageUploadS3:
			if p.uploader == nil {
				panic("uploader cannot be nil for stage upload_s3")
			}
			errs = append(errs, p.cfg.ValidateUpload())
		case StageUploadDB:
			if p.loader == nil {
				panic("loader cannot be nil for stage upload_db")
			}
			errs = append(errs, p.cfg.ValidateImport())
		default:
			errs = append(errs, fmt.Errorf("unknown stage %q: %w", stage, pgingest.ErrConfig))
		}
	}
	return errors.Join(errs...)
}

func (p *Pipeline) runStage(ctx context.Context, stage Stage, report *Report) error {
	ctx, span := p.tracer.Start(ctx, "pgingest."+string(stage))
	defer span.End()

	var err error
	switch stage {
	case StageDownload:
		err = p.runner.RunStage(ctx, "Downloading dataset", func(ctx context.Context) (string, error) {
			result, err := p.fetcher.Fetch(ctx)
			if err != nil {
				return "", err
			}
			report.Fetch = &result
			span.SetAttributes(attribute.Int("pgingest.rows", result.Rows))
			return fmt.Sprintf("Wrote %d rows to %s", result.Rows, result.Path), nil
		})

	case StageUploadS3:
		key := p.cfg.ObjectKey()
		span.SetAttributes(attribute.String("pgingest.object_key", key))
		err = p.runner.RunStage(ctx, "Uploading to object store", func(ctx context.Context) (string, error) {
			result, err := p.uploader.Upload(ctx, p.cfg.DatasetFile, key)
			if err != nil {
				return "", err
			}
			if err := p.uploader.WaitUntilVisible(ctx, key); err != nil {
				return "", err
			}
			report.Upload = &result
			span.SetAttributes(attribute.Int64("pgingest.bytes", result.Bytes))
			return fmt.Sprintf("Uploaded %d bytes to s3://%s/%s", result.Bytes, result.Bucket, result.Key), nil
		})

	case StageUploadDB:
		span.SetAttributes(attribute.String("pgingest.table", p.cfg.TenantID+"."+p.cfg.Table))
		err = p.runner.RunStage(ctx, "Importing into database", func(ctx context.Context) (string, error) {
			result, err := p.loader.Load(ctx, p.cfg)
			if err != nil {
				return "", err
			}
			report.Import = &result
			span.SetAttributes(attribute.Int64("pgingest.rows", result.Rows))
			return fmt.Sprintf("Imported %d rows into %s", result.Rows, result.Table), nil
		})
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}
