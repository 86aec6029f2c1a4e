package services

import (
	"context"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vvka-141/pgingest/internal/db"
	"github.com/vvka-141/pgingest/internal/logging"
	testhelpers "github.com/vvka-141/pgingest/internal/testing"
	"github.com/vvka-141/pgingest/pkg/pgingest"
)

const twoCustomers = "1,Male,19,15,39\n2,Female,21,15,81\n"

type importEnv struct {
	cfg    *pgingest.Config
	admin  *pgxpool.Pool
	loader *ImportService
}

func newImportEnv(t *testing.T, dbName string) *importEnv {
	t.Helper()

	connString := testhelpers.RequireDatabase(t)
	connConfig := testhelpers.CreateTestDB(t, connString, dbName)
	admin := testhelpers.GetTestPool(t, connConfig)
	testhelpers.InstallS3ImportStub(t, admin)

	logger := logging.NewNullLogger()
	sessions := NewSessionManager(func(c *pgingest.ConnectionConfig) (pgingest.Connector, error) {
		return db.NewConnector(c, logger)
	}, logger)

	cfg := &pgingest.Config{
		TenantID:    "tenant_a",
		DatasetFile: pgingest.DefaultDatasetFile,
		Table:       pgingest.DefaultTable,
		Connection:  *connConfig,
		Storage:     pgingest.StorageConfig{Bucket: "ingest-bucket", Region: "eu-west-1"},
	}

	return &importEnv{
		cfg:    cfg,
		admin:  admin,
		loader: NewImportService(sessions, NewImporter(logger), logger),
	}
}

func (e *importEnv) customerIDs(t *testing.T) []int32 {
	t.Helper()

	rows, err := e.admin.Query(context.Background(),
		fmt.Sprintf(`SELECT customer_id FROM %s.%s ORDER BY customer_id`, e.cfg.TenantID, e.cfg.Table))
	require.NoError(t, err)
	defer rows.Close()

	var ids []int32
	for rows.Next() {
		var id int32
		require.NoError(t, rows.Scan(&id))
		ids = append(ids, id)
	}
	require.NoError(t, rows.Err())
	return ids
}

func TestImportIntegration_RepeatedRunsAreIdempotent(t *testing.T) {
	env := newImportEnv(t, "pgingest_itest_idempotent")
	testhelpers.PutFixtureObject(t, env.admin, "ingest-bucket", env.cfg.ObjectKey(), twoCustomers)
	ctx := context.Background()

	first, err := env.loader.Load(ctx, env.cfg)
	require.NoError(t, err)
	second, err := env.loader.Load(ctx, env.cfg)
	require.NoError(t, err)

	assert.Equal(t, int64(2), first.Rows)
	assert.Equal(t, int64(2), second.Rows)
	assert.Equal(t, "tenant_a.mall_customers", second.Table)
	assert.Contains(t, second.Message, "2 rows imported")
	assert.Equal(t, []int32{1, 2}, env.customerIDs(t))

	var gender string
	var age, income, score int16
	err = env.admin.QueryRow(ctx, `SELECT gender, age, annual_income, spending_score FROM tenant_a.mall_customers WHERE customer_id = 2`).
		Scan(&gender, &age, &income, &score)
	require.NoError(t, err)
	assert.Equal(t, "Female", gender)
	assert.Equal(t, []int16{21, 15, 81}, []int16{age, income, score})
}

func TestImportIntegration_SourceShrinksBetweenRuns(t *testing.T) {
	env := newImportEnv(t, "pgingest_itest_shrink")
	ctx := context.Background()

	testhelpers.PutFixtureObject(t, env.admin, "ingest-bucket", env.cfg.ObjectKey(), twoCustomers+"3,Male,20,16,6\n")
	_, err := env.loader.Load(ctx, env.cfg)
	require.NoError(t, err)

	testhelpers.PutFixtureObject(t, env.admin, "ingest-bucket", env.cfg.ObjectKey(), "7,Female,35,18,6\n")
	result, err := env.loader.Load(ctx, env.cfg)
	require.NoError(t, err)

	assert.Equal(t, int64(1), result.Rows)
	assert.Equal(t, []int32{7}, env.customerIDs(t), "no stale rows may survive a re-import")
}

func TestImportIntegration_FailedImportKeepsPreviousRows(t *testing.T) {
	env := newImportEnv(t, "pgingest_itest_rollback")
	ctx := context.Background()

	testhelpers.PutFixtureObject(t, env.admin, "ingest-bucket", env.cfg.ObjectKey(), twoCustomers)
	_, err := env.loader.Load(ctx, env.cfg)
	require.NoError(t, err)

	testhelpers.DeleteFixtureObject(t, env.admin, "ingest-bucket", env.cfg.ObjectKey())
	_, err = env.loader.Load(ctx, env.cfg)

	require.Error(t, err)
	assert.ErrorIs(t, err, pgingest.ErrImport)
	assert.Equal(t, []int32{1, 2}, env.customerIDs(t), "truncate must roll back with the failed import")
}

func TestImportIntegration_DuplicateKeysInObjectFail(t *testing.T) {
	env := newImportEnv(t, "pgingest_itest_dupes")
	testhelpers.PutFixtureObject(t, env.admin, "ingest-bucket", env.cfg.ObjectKey(), "1,Male,19,15,39\n1,Male,19,15,39\n")

	_, err := env.loader.Load(context.Background(), env.cfg)

	assert.ErrorIs(t, err, pgingest.ErrImport)
}

func TestSessionIntegration_SchemaAndSearchPath(t *testing.T) {
	env := newImportEnv(t, "pgingest_itest_session")
	logger := logging.NewNullLogger()
	sessions := NewSessionManager(func(c *pgingest.ConnectionConfig) (pgingest.Connector, error) {
		return db.NewConnector(c, logger)
	}, logger)
	ctx := context.Background()

	session, err := sessions.Open(ctx, &env.cfg.Connection, "tenant_b")
	require.NoError(t, err)

	var current string
	require.NoError(t, session.QueryRow(ctx, "SELECT current_schema()").Scan(&current))
	assert.Equal(t, "tenant_b", current)
	assert.Equal(t, "tenant_b", session.Schema())

	// Opening again is a no-op for the schema.
	again, err := sessions.Open(ctx, &env.cfg.Connection, "tenant_b")
	require.NoError(t, err)
	require.NoError(t, again.Close())

	require.NoError(t, session.Close())
	require.NoError(t, session.Close(), "Close must be idempotent")
}

func TestSessionIntegration_InvalidTenantIssuesNoDDL(t *testing.T) {
	env := newImportEnv(t, "pgingest_itest_badtenant")
	logger := logging.NewNullLogger()
	sessions := NewSessionManager(func(c *pgingest.ConnectionConfig) (pgingest.Connector, error) {
		return db.NewConnector(c, logger)
	}, logger)
	ctx := context.Background()

	countSchemas := func() int {
		var n int
		require.NoError(t, env.admin.QueryRow(ctx, `SELECT count(*) FROM pg_namespace`).Scan(&n))
		return n
	}
	before := countSchemas()

	_, err := sessions.Open(ctx, &env.cfg.Connection, "evil; DROP SCHEMA public CASCADE")

	assert.ErrorIs(t, err, pgingest.ErrConfig)
	assert.Equal(t, before, countSchemas())
}

func TestSessionIntegration_WrongPassword(t *testing.T) {
	env := newImportEnv(t, "pgingest_itest_badpass")
	logger := logging.NewNullLogger()
	sessions := NewSessionManager(func(c *pgingest.ConnectionConfig) (pgingest.Connector, error) {
		return db.NewConnector(c, logger)
	}, logger)

	badConfig := env.cfg.Connection
	badConfig.Password = "definitely-wrong"

	session, err := sessions.Open(context.Background(), &badConfig, "tenant_a")

	assert.Nil(t, session)
	assert.ErrorIs(t, err, pgingest.ErrSession)
}
