package services

import (
	"context"

	"github.com/vvka-141/pgingest/pkg/pgingest"
)

// closableSession is a scoped session that owns its connection.
type closableSession interface {
	pgingest.ScopedSession
	Close() error
}

type openSessionFunc func(ctx context.Context, connConfig *pgingest.ConnectionConfig, tenant string) (closableSession, error)

// ImportService implements pgingest.DatabaseLoader: it opens a tenant session,
// runs the bulk import and closes the session on every path.
type ImportService struct {
	openSession openSessionFunc
	importer    pgingest.BulkImporter
	logger      pgingest.Logger
}

// NewImportService creates a new ImportService.
//
// Panics if any dependency is nil.
func NewImportService(sessions *SessionManager, importer pgingest.BulkImporter, logger pgingest.Logger) *ImportService {
	if sessions == nil {
		panic("sessions cannot be nil")
	}
	if importer == nil {
		panic("importer cannot be nil")
	}
	if logger == nil {
		panic("logger cannot be nil")
	}

	return &ImportService{
		openSession: func(ctx context.Context, connConfig *pgingest.ConnectionConfig, tenant string) (closableSession, error) {
			session, err := sessions.Open(ctx, connConfig, tenant)
			if err != nil {
				return nil, err
			}
			return session, nil
		},
		importer: importer,
		logger:   logger,
	}
}

// Load imports the tenant's remote object into the configured table.
func (s *ImportService) Load(ctx context.Context, cfg *pgingest.Config) (pgingest.ImportResult, error) {
	if err := cfg.ValidateImport(); err != nil {
		return pgingest.ImportResult{}, err
	}

	session, err := s.openSession(ctx, &cfg.Connection, cfg.TenantID)
	if err != nil {
		return pgingest.ImportResult{}, err
	}
	defer func() {
		if err := session.Close(); err != nil {
			s.logger.Error("Failed to close session: %v", err)
		}
	}()

	return s.importer.Import(ctx, session, pgingest.ImportRequest{
		Table:   cfg.Table,
		Bucket:  cfg.Storage.Bucket,
		Key:     cfg.ObjectKey(),
		Region:  cfg.Storage.Region,
		Options: pgingest.DefaultImportOptions,
	})
}

var _ pgingest.DatabaseLoader = (*ImportService)(nil)
