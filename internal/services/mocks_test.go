package services

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vvka-141/pgingest/pkg/pgingest"
)

type mockLogger struct {
	mu       sync.Mutex
	verbose  []string
	info     []string
	errorMsg []string
}

func (m *mockLogger) Verbose(format string, args ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.verbose = append(m.verbose, fmt.Sprintf(format, args...))
}

func (m *mockLogger) Info(format string, args ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.info = append(m.info, fmt.Sprintf(format, args...))
}

func (m *mockLogger) Error(format string, args ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errorMsg = append(m.errorMsg, fmt.Sprintf(format, args...))
}

type mockConnector struct {
	pool  *pgxpool.Pool
	err   error
	calls int
}

func (m *mockConnector) Connect(_ context.Context) (*pgxpool.Pool, error) {
	m.calls++
	return m.pool, m.err
}

// statement is one call recorded by mockSession.
type statement struct {
	sql  string
	args []any
}

// mockRow scans a fixed list of values into the destinations.
type mockRow struct {
	values []any
	err    error
}

func (r mockRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	for i, d := range dest {
		if i >= len(r.values) {
			return fmt.Errorf("no value for column %d", i)
		}
		switch target := d.(type) {
		case **string:
			s, _ := r.values[i].(string)
			*target = &s
		case *string:
			*target, _ = r.values[i].(string)
		case *int64:
			*target, _ = r.values[i].(int64)
		default:
			return fmt.Errorf("unsupported scan target %T", d)
		}
	}
	return nil
}

// mockSession records statements and fails the first one containing failOn.
type mockSession struct {
	schema     string
	failOn     string
	failErr    error
	rows       map[string]mockRow
	statements []statement
	txEvents   []string
	closed     int
}

func newMockSession(schema string) *mockSession {
	return &mockSession{
		schema: schema,
		rows: map[string]mockRow{
			"aws_s3.table_import_from_s3": {values: []any{"2 rows imported into relation \"mall_customers\""}},
			"count(*)":                    {values: []any{int64(2)}},
		},
	}
}

func (m *mockSession) fail(sql string) error {
	if m.failOn != "" && strings.Contains(sql, m.failOn) {
		if m.failErr != nil {
			return m.failErr
		}
		return &pgconn.PgError{Code: "42501", Message: "permission denied"}
	}
	return nil
}

func (m *mockSession) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	m.statements = append(m.statements, statement{sql: sql, args: args})
	if err := m.fail(sql); err != nil {
		return pgconn.CommandTag{}, err
	}
	return pgconn.NewCommandTag("OK"), nil
}

func (m *mockSession) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	m.statements = append(m.statements, statement{sql: sql, args: args})
	if err := m.fail(sql); err != nil {
		return mockRow{err: err}
	}
	for fragment, row := range m.rows {
		if strings.Contains(sql, fragment) {
			return row
		}
	}
	return mockRow{err: pgx.ErrNoRows}
}

func (m *mockSession) Schema() string {
	return m.schema
}

func (m *mockSession) InTx(ctx context.Context, fn func(q pgingest.Querier) error) error {
	m.txEvents = append(m.txEvents, "BEGIN")
	if err := fn(m); err != nil {
		m.txEvents = append(m.txEvents, "ROLLBACK")
		return err
	}
	m.txEvents = append(m.txEvents, "COMMIT")
	return nil
}

func (m *mockSession) Close() error {
	m.closed++
	return nil
}

type mockFetcher struct {
	result pgingest.FetchResult
	err    error
	calls  int
}

func (m *mockFetcher) Fetch(_ context.Context) (pgingest.FetchResult, error) {
	m.calls++
	return m.result, m.err
}

type mockUploader struct {
	uploadErr error
	waitErr   error
	uploads   []string
	waits     []string
}

func (m *mockUploader) Upload(_ context.Context, localPath, key string) (pgingest.UploadResult, error) {
	m.uploads = append(m.uploads, localPath+" -> "+key)
	if m.uploadErr != nil {
		return pgingest.UploadResult{}, m.uploadErr
	}
	return pgingest.UploadResult{Bucket: "bucket", Key: key, Bytes: 32}, nil
}

func (m *mockUploader) WaitUntilVisible(_ context.Context, key string) error {
	m.waits = append(m.waits, key)
	return m.waitErr
}

type mockLoader struct {
	result pgingest.ImportResult
	err    error
	calls  int
}

func (m *mockLoader) Load(_ context.Context, _ *pgingest.Config) (pgingest.ImportResult, error) {
	m.calls++
	return m.result, m.err
}

type mockImporter struct {
	req     pgingest.ImportRequest
	session pgingest.ScopedSession
	result  pgingest.ImportResult
	err     error
	calls   int
}

func (m *mockImporter) Import(_ context.Context, session pgingest.ScopedSession, req pgingest.ImportRequest) (pgingest.ImportResult, error) {
	m.calls++
	m.session = session
	m.req = req
	return m.result, m.err
}

// recordingRunner runs stages inline and records their titles and summaries.
type recordingRunner struct {
	titles    []string
	summaries []string
}

func (r *recordingRunner) RunStage(ctx context.Context, title string, fn func(ctx context.Context) (string, error)) error {
	r.titles = append(r.titles, title)
	summary, err := fn(ctx)
	if err != nil {
		return err
	}
	r.summaries = append(r.summaries, summary)
	return nil
}
