package pgingest_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vvka-141/pgingest/pkg/pgingest"
)

func validConfig() *pgingest.Config {
	return &pgingest.Config{
		TenantID:    "bg200320",
		SourceURL:   "https://example.com/data.csv",
		DatasetFile: "Mall_Customers.csv",
		Table:       pgingest.DefaultTable,
		Timeout:     pgingest.DefaultTimeout,
		Connection: pgingest.ConnectionConfig{
			Host:     "localhost",
			Port:     5432,
			Database: "postgres",
			Username: "postgres",
		},
		Storage: pgingest.StorageConfig{
			Bucket: "datasets",
			Region: "us-east-1",
		},
	}
}

func TestConfig_Validate_OK(t *testing.T) {
	cfg := validConfig()
	require.NoError(t, cfg.ValidateRun())
	require.NoError(t, cfg.ValidateFetch())
	require.NoError(t, cfg.ValidateUpload())
	require.NoError(t, cfg.ValidateImport())
}

func TestConfig_ValidateRun_RejectsNonPositiveTimeout(t *testing.T) {
	for _, timeout := range []time.Duration{0, -time.Second} {
		cfg := validConfig()
		cfg.Timeout = timeout

		err := cfg.ValidateRun()
		require.Error(t, err, "timeout %s", timeout)
		assert.True(t, errors.Is(err, pgingest.ErrConfig))
	}
}

func TestConfig_ObjectKey(t *testing.T) {
	cfg := validConfig()
	cfg.DatasetFile = "/tmp/work/Mall_Customers.csv"
	assert.Equal(t, "bg200320/Mall_Customers.csv", cfg.ObjectKey())
}

func TestConfig_Validate_CollectsAllErrors(t *testing.T) {
	cfg := validConfig()
	cfg.TenantID = "bad;tenant"
	cfg.Storage.Bucket = ""
	cfg.Connection.Host = ""

	err := cfg.ValidateImport()
	require.Error(t, err)
	assert.True(t, errors.Is(err, pgingest.ErrConfig))
	assert.Contains(t, err.Error(), "tenant")
	assert.Contains(t, err.Error(), "AWS_BUCKET")
	assert.Contains(t, err.Error(), "DB_HOST")
}

func TestConfig_ValidateFetch_IgnoresDatabase(t *testing.T) {
	cfg := validConfig()
	cfg.Connection = pgingest.ConnectionConfig{}
	cfg.TenantID = ""
	assert.NoError(t, cfg.ValidateFetch())
}

func TestStorageConfig_Validate_KeyPair(t *testing.T) {
	s := pgingest.StorageConfig{Bucket: "b", Region: "r", AccessKeyID: "AKIA"}
	err := s.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "AWS_SECRET")
}

func TestConnectionConfig_Validate_IAMNeedsRegion(t *testing.T) {
	c := validConfig().Connection
	c.AuthMethod = pgingest.AuthMethodAWSIAM
	err := c.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, pgingest.ErrConfig))

	c.AWSRegion = "us-east-1"
	assert.NoError(t, c.Validate())
}

func TestParseAuthMethod(t *testing.T) {
	m, err := pgingest.ParseAuthMethod("")
	require.NoError(t, err)
	assert.Equal(t, pgingest.AuthMethodStandard, m)

	m, err = pgingest.ParseAuthMethod("aws-iam")
	require.NoError(t, err)
	assert.Equal(t, pgingest.AuthMethodAWSIAM, m)
	assert.Equal(t, "AWS IAM", m.String())

	_, err = pgingest.ParseAuthMethod("kerberos")
	assert.True(t, errors.Is(err, pgingest.ErrConfig))
}
