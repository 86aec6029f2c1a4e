// Package config builds the run configuration from pgingest.yaml, .env files
// and the process environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/vvka-141/pgingest/pkg/pgingest"
)

// ErrConfigNotFound is returned when the config file does not exist.
// Callers can check for this with errors.Is(err, config.ErrConfigNotFound).
var ErrConfigNotFound = errors.New("config file not found")

// ConfigFileName is the project file looked up in the working directory.
const ConfigFileName = "pgingest.yaml"

// DatabaseConfig holds the non-secret database defaults of pgingest.yaml.
type DatabaseConfig struct {
	Host    string `yaml:"host"`
	Port    int    `yaml:"port"`
	Name    string `yaml:"name"`
	User    string `yaml:"user"`
	SSLMode string `yaml:"sslmode,omitempty"`
	Auth    string `yaml:"auth,omitempty"`
}

// StorageConfig holds the non-secret object store defaults of pgingest.yaml.
type StorageConfig struct {
	Bucket             string `yaml:"bucket"`
	Region             string `yaml:"region"`
	Endpoint           string `yaml:"endpoint,omitempty"`
	VisibilityAttempts int    `yaml:"visibility_attempts,omitempty"`
}

// FileConfig is the parsed pgingest.yaml. Secrets (DB_PASSWORD, AWS_KEY,
// AWS_SECRET) are only read from the environment.
type FileConfig struct {
	TenantID    string         `yaml:"tenant_id,omitempty"`
	SourceURL   string         `yaml:"source_url,omitempty"`
	DatasetFile string         `yaml:"dataset_file,omitempty"`
	Table       string         `yaml:"table,omitempty"`
	Timeout     string         `yaml:"timeout,omitempty"`
	Database    DatabaseConfig `yaml:"database"`
	Storage     StorageConfig  `yaml:"storage"`
}

// Load reads and parses the config file at path.
func Load(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	var cfg FileConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &cfg, nil
}

// LoadOptional behaves like Load but returns nil, nil when the file is missing.
func LoadOptional(path string) (*FileConfig, error) {
	cfg, err := Load(path)
	if errors.Is(err, ErrConfigNotFound) {
		return nil, nil
	}
	return cfg, err
}

// LoadEnvFiles loads .env files into the process environment without
// overriding variables that are already set. With no arguments it loads
// ./.env if present; explicitly named files must exist.
func LoadEnvFiles(files ...string) error {
	if len(files) == 0 {
		if _, err := os.Stat(".env"); err != nil {
			return nil
		}
		return godotenv.Load()
	}
	if err := godotenv.Load(files...); err != nil {
		return fmt.Errorf("load env files %s: %w", strings.Join(files, ", "), err)
	}
	return nil
}

// Lookup returns the value of an environment variable.
type Lookup func(key string) string

// Build resolves the run configuration.
//
// Precedence for each value (highest first):
//  1. Environment variable
//  2. pgingest.yaml
//  3. Built-in default
//
// file may be nil. Only malformed values are reported here; required
// values are checked later by the stage-specific Validate methods.
func Build(env Lookup, file *FileConfig) (*pgingest.Config, error) {
	if env == nil {
		env = os.Getenv
	}
	if file == nil {
		file = &FileConfig{}
	}

	var errs []error

	cfg := &pgingest.Config{
		TenantID:    first(env("CANDIDATE_ID"), file.TenantID),
		SourceURL:   first(env("INGEST_SOURCE_URL"), file.SourceURL, pgingest.DefaultSourceURL),
		DatasetFile: first(env("INGEST_FILE"), file.DatasetFile, pgingest.DefaultDatasetFile),
		Table:       first(env("INGEST_TABLE"), file.Table, pgingest.DefaultTable),
		Timeout:     pgingest.DefaultTimeout,
	}

	if raw := first(env("INGEST_TIMEOUT"), file.Timeout); raw != "" {
		timeout, err := time.ParseDuration(raw)
		switch {
		case err != nil:
			errs = append(errs, fmt.Errorf("invalid timeout %q: %w", raw, pgingest.ErrConfig))
		case timeout <= 0:
			errs = append(errs, fmt.Errorf("timeout %q must be positive: %w", raw, pgingest.ErrConfig))
		default:
			cfg.Timeout = timeout
		}
	}

	authMethod, err := pgingest.ParseAuthMethod(first(env("DB_AUTH"), file.Database.Auth))
	if err != nil {
		errs = append(errs, err)
	}

	cfg.Connection = pgingest.ConnectionConfig{
		Host:             first(env("DB_HOST"), file.Database.Host),
		Port:             pgingest.DefaultPort,
		Database:         first(env("DB_NAME"), file.Database.Name),
		Username:         first(env("DB_USER"), file.Database.User),
		Password:         env("DB_PASSWORD"),
		SSLMode:          first(env("DB_SSLMODE"), file.Database.SSLMode, pgingest.DefaultSSLMode),
		AuthMethod:       authMethod,
		AppName:          pgingest.AppName,
		AdditionalParams: make(map[string]string),
	}
	if raw := env("DB_PORT"); raw != "" {
		port, err := strconv.Atoi(raw)
		if err != nil {
			errs = append(errs, fmt.Errorf("invalid DB_PORT value '%s': must be an integer: %w", raw, pgingest.ErrConfig))
		} else {
			cfg.Connection.Port = port
		}
	} else if file.Database.Port != 0 {
		cfg.Connection.Port = file.Database.Port
	}

	cfg.Storage = pgingest.StorageConfig{
		Bucket:             first(env("AWS_BUCKET"), file.Storage.Bucket),
		Region:             first(env("AWS_REGION"), file.Storage.Region),
		AccessKeyID:        env("AWS_KEY"),
		SecretAccessKey:    env("AWS_SECRET"),
		Endpoint:           first(env("AWS_ENDPOINT"), file.Storage.Endpoint),
		VisibilityAttempts: pgingest.DefaultVisibilityAttempts,
	}
	if file.Storage.VisibilityAttempts > 0 {
		cfg.Storage.VisibilityAttempts = file.Storage.VisibilityAttempts
	}
	cfg.Connection.AWSRegion = cfg.Storage.Region

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return cfg, nil
}

func first(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
