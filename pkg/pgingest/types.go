package pgingest

import (
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"time"
)

// Config is the complete configuration of an ingestion run.
// It is built once at process start and passed to every stage.
type Config struct {
	// TenantID scopes the database schema and the object key prefix.
	TenantID string

	// SourceURL is the HTTP location of the CSV dataset.
	SourceURL string

	// DatasetFile is the local path the fetcher writes and the uploader reads.
	DatasetFile string

	// Table is the target table inside the tenant schema.
	Table string

	// Timeout bounds the whole run.
	Timeout time.Duration

	// Verbose enables detailed logging
	Verbose bool

	Connection ConnectionConfig
	Storage    StorageConfig
}

// ObjectKey returns the store key of the dataset: {tenant}/{file name}.
func (c *Config) ObjectKey() string {
	return path.Join(c.TenantID, filepath.Base(c.DatasetFile))
}

// ValidateFetch checks the fields the fetch stage needs.
func (c *Config) ValidateFetch() error {
	var errs []error
	if c.SourceURL == "" {
		errs = append(errs, fmt.Errorf("source URL is required: %w", ErrConfig))
	}
	if c.DatasetFile == "" {
		errs = append(errs, fmt.Errorf("dataset file is required: %w", ErrConfig))
	}
	return errors.Join(errs...)
}

// ValidateUpload checks the fields the upload stage needs.
func (c *Config) ValidateUpload() error {
	var errs []error
	if err := ValidateIdentifier("tenant", c.TenantID); err != nil {
		errs = append(errs, err)
	}
	if c.DatasetFile == "" {
		errs = append(errs, fmt.Errorf("dataset file is required: %w", ErrConfig))
	}
	if err := c.Storage.Validate(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// ValidateImport checks the fields the database import stage needs.
func (c *Config) ValidateImport() error {
	var errs []error
	if err := ValidateIdentifier("tenant", c.TenantID); err != nil {
		errs = append(errs, err)
	}
	if err := ValidateIdentifier("table", c.Table); err != nil {
		errs = append(errs, err)
	}
	if c.DatasetFile == "" {
		errs = append(errs, fmt.Errorf("dataset file is required: %w", ErrConfig))
	}
	if c.Storage.Bucket == "" {
		errs = append(errs, fmt.Errorf("AWS_BUCKET is required: %w", ErrConfig))
	}
	if c.Storage.Region == "" {
		errs = append(errs, fmt.Errorf("AWS_REGION is required: %w", ErrConfig))
	}
	if err := c.Connection.Validate(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// ValidateRun checks the settings that apply to every run regardless of the
// requested stages.
func (c *Config) ValidateRun() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout %s must be positive: %w", c.Timeout, ErrConfig)
	}
	return nil
}

type StorageConfig struct {
	Bucket string
	Region string

	// AccessKeyID and SecretAccessKey are optional; when both are empty the
	// default AWS credential chain is used.
	AccessKeyID     string
	SecretAccessKey string

	// Endpoint overrides the S3 endpoint (S3-compatible stores). Path-style
	// addressing is used when set.
	Endpoint string

	// VisibilityAttempts bounds the post-upload existence poll.
	VisibilityAttempts int
}

// Validate checks the storage fields.
func (s *StorageConfig) Validate() error {
	var errs []error
	if s.Bucket == "" {
		errs = append(errs, fmt.Errorf("AWS_BUCKET is required: %w", ErrConfig))
	}
	if s.Region == "" {
		errs = append(errs, fmt.Errorf("AWS_REGION is required: %w", ErrConfig))
	}
	if (s.AccessKeyID == "") != (s.SecretAccessKey == "") {
		errs = append(errs, fmt.Errorf("AWS_KEY and AWS_SECRET must be set together: %w", ErrConfig))
	}
	if s.VisibilityAttempts < 0 {
		errs = append(errs, fmt.Errorf("visibility attempts cannot be negative: %w", ErrConfig))
	}
	return errors.Join(errs...)
}

// ConnectionConfig represents database connection parameters.
type ConnectionConfig struct {
	Host     string
	Port     int
	Database string
	Username string
	Password string
	SSLMode  string

	// AuthMethod indicates the authentication mechanism to use
	AuthMethod AuthMethod

	// AWSRegion is the RDS region used to sign IAM tokens (AuthMethodAWSIAM).
	AWSRegion string

	AppName          string
	ConnectTimeout   time.Duration
	AdditionalParams map[string]string
}

// Validate checks the connection fields.
func (c *ConnectionConfig) Validate() error {
	var errs []error
	if c.Host == "" {
		errs = append(errs, fmt.Errorf("DB_HOST is required: %w", ErrConfig))
	}
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("DB_PORT %d is out of range: %w", c.Port, ErrConfig))
	}
	if c.Database == "" {
		errs = append(errs, fmt.Errorf("DB_NAME is required: %w", ErrConfig))
	}
	if c.Username == "" {
		errs = append(errs, fmt.Errorf("DB_USER is required: %w", ErrConfig))
	}
	if !c.AuthMethod.IsValid() {
		errs = append(errs, fmt.Errorf("unsupported auth method %v: %w", c.AuthMethod, ErrConfig))
	}
	if c.AuthMethod == AuthMethodAWSIAM && c.AWSRegion == "" {
		errs = append(errs, fmt.Errorf("AWS IAM auth requires AWS_REGION: %w", ErrConfig))
	}
	return errors.Join(errs...)
}

// AuthMethod represents the type of database authentication to use.
type AuthMethod int

const (
	AuthMethodStandard AuthMethod = iota // Username/Password
	AuthMethodAWSIAM                     // RDS IAM Database Authentication
)

// String returns a human-readable string representation of the AuthMethod.
func (a AuthMethod) String() string {
	switch a {
	case AuthMethodStandard:
		return "Standard"
	case AuthMethodAWSIAM:
		return "AWS IAM"
	default:
		return fmt.Sprintf("Unknown(%d)", a)
	}
}

// IsValid returns true if the AuthMethod is a valid, defined value.
func (a AuthMethod) IsValid() bool {
	return a >= AuthMethodStandard && a <= AuthMethodAWSIAM
}

// ParseAuthMethod maps the DB_AUTH value to an AuthMethod.
// An empty value selects standard password authentication.
func ParseAuthMethod(s string) (AuthMethod, error) {
	switch s {
	case "", "standard", "password":
		return AuthMethodStandard, nil
	case "aws-iam", "aws":
		return AuthMethodAWSIAM, nil
	default:
		return AuthMethodStandard, fmt.Errorf("unknown auth method %q (expected standard or aws-iam): %w", s, ErrConfig)
	}
}

// FetchResult describes a completed download.
type FetchResult struct {
	Path string
	Rows int
}

// UploadResult describes a completed upload.
type UploadResult struct {
	Bucket string
	Key    string
	ETag   string
	SHA256 string
	Bytes  int64
}

// ImportResult describes a completed bulk import.
type ImportResult struct {
	Table   string
	Rows    int64
	Message string
}
