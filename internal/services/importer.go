package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/vvka-141/pgingest/pkg/pgingest"
)

// Importer loads an uploaded object into the tenant table through
// aws_s3.table_import_from_s3.
type Importer struct {
	logger pgingest.Logger
}

// NewImporter creates a new Importer.
//
// Panics if logger is nil.
func NewImporter(logger pgingest.Logger) *Importer {
	if logger == nil {
		panic("logger cannot be nil")
	}
	return &Importer{logger: logger}
}

// Import recreates the contents of req.Table from the remote object.
//
// Inside a single transaction it takes a per-table advisory lock, creates the
// table if missing, truncates it with identity reset, runs the server-side
// import and counts the result. Any failure rolls the whole sequence back and
// returns ErrImport, so readers see either the previous rows or the new ones.
func (i *Importer) Import(ctx context.Context, session pgingest.ScopedSession, req pgingest.ImportRequest) (pgingest.ImportResult, error) {
	if err := validateRequest(req); err != nil {
		return pgingest.ImportResult{}, err
	}
	if req.Options == "" {
		req.Options = pgingest.DefaultImportOptions
	}

	table := pgx.Identifier{req.Table}.Sanitize()
	lockName := session.Schema() + "." + req.Table
	result := pgingest.ImportResult{Table: lockName}

	err := session.InTx(ctx, func(q pgingest.Querier) error {
		i.logger.Verbose("Acquiring import lock for %s", lockName)
		if _, err := q.Exec(ctx, queryAdvisoryLock, lockName); err != nil {
			return fmt.Errorf("lock %s: %w", lockName, err)
		}

		if _, err := q.Exec(ctx, fmt.Sprintf(queryCreateTable, table)); err != nil {
			return fmt.Errorf("create table %s: %w", table, err)
		}

		if _, err := q.Exec(ctx, fmt.Sprintf(queryTruncateTable, table)); err != nil {
			return fmt.Errorf("truncate %s: %w", table, err)
		}

		i.logger.Verbose("Importing s3://%s/%s (%s) into %s", req.Bucket, req.Key, req.Region, lockName)
		var message *string
		if err := q.QueryRow(ctx, queryImportFromS3, req.Table, req.Options, req.Bucket, req.Key, req.Region).Scan(&message); err != nil {
			return fmt.Errorf("aws_s3.table_import_from_s3: %w", err)
		}
		if message != nil {
			result.Message = *message
		}

		if err := q.QueryRow(ctx, fmt.Sprintf(queryCountRows, table)).Scan(&result.Rows); err != nil {
			return fmt.Errorf("count rows in %s: %w", table, err)
		}
		return nil
	})
	if err != nil {
		return pgingest.ImportResult{}, fmt.Errorf("%w: %s: %w", pgingest.ErrImport, lockName, err)
	}

	i.logger.Verbose("Imported %d rows into %s", result.Rows, lockName)
	return result, nil
}

func validateRequest(req pgingest.ImportRequest) error {
	errs := []error{pgingest.ValidateIdentifier("table", req.Table)}
	if req.Bucket == "" {
		errs = append(errs, fmt.Errorf("bucket is required: %w", pgingest.ErrConfig))
	}
	if req.Key == "" {
		errs = append(errs, fmt.Errorf("object key is required: %w", pgingest.ErrConfig))
	}
	if req.Region == "" {
		errs = append(errs, fmt.Errorf("region is required: %w", pgingest.ErrConfig))
	}
	return errors.Join(errs...)
}
