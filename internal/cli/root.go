package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/vvka-141/pgingest/internal/config"
	"github.com/vvka-141/pgingest/internal/services"
)

var rootCmd = &cobra.Command{
	Use:   "pgingest",
	Short: "Load a CSV dataset into a tenant-scoped PostgreSQL table via S3",
	Long: `pgingest downloads the Mall Customers dataset, uploads it to S3 under the
tenant prefix and triggers aws_s3.table_import_from_s3 on an RDS PostgreSQL
instance, loading it into a table inside the tenant's own schema.

Without a subcommand all three stages run in order, stopping at the first
failure. Every stage is safe to repeat.

Configuration is read from the environment (optionally from .env files) and
pgingest.yaml; flags override both.

Environment:
  CANDIDATE_ID                 tenant identifier (schema and key prefix)
  DB_HOST DB_PORT DB_NAME      database location
  DB_USER DB_PASSWORD          database credentials
  DB_SSLMODE DB_AUTH           sslmode, and "aws-iam" for RDS IAM tokens
  AWS_BUCKET AWS_REGION        target bucket and region
  AWS_KEY AWS_SECRET           static credentials (default chain otherwise)
  AWS_ENDPOINT                 S3-compatible endpoint override
  INGEST_SOURCE_URL INGEST_FILE INGEST_TABLE INGEST_TIMEOUT

Exit Codes:
  0  - Success
  1  - General error
  2  - CLI usage error (invalid arguments or flags)
  3  - Panic or unexpected system error
  10 - Invalid configuration (missing value or invalid identifier)
  11 - Database session setup failed
  12 - Dataset download failed
  13 - Object store upload failed
  14 - Table setup or bulk import failed`,
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStages(cmd, services.AllStages...)
	},
}

// runFlags are the persistent flags shared by every stage command.
type runFlags struct {
	configPath  string
	envFiles    []string
	timeout     time.Duration
	tenant      string
	sourceURL   string
	datasetFile string
	table       string
}

var globalFlags runFlags

// Execute runs the root command
func Execute() error {
	if len(os.Args) > 1 && os.Args[1] == "--version" {
		printVersionInfo(os.Stdout)
		return nil
	}
	return rootCmd.Execute()
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.BoolP("verbose", "v", false, "Enable verbose output for all commands")
	flags.StringVar(&globalFlags.configPath, "config", config.ConfigFileName, "Path to the optional pgingest.yaml")
	flags.StringSliceVar(&globalFlags.envFiles, "env-file", nil, "Load environment from these files instead of ./.env (repeatable)")
	flags.DurationVar(&globalFlags.timeout, "timeout", 0,
		fmt.Sprintf("Abort the run after this duration (default %s, or INGEST_TIMEOUT)", "10m"))
	flags.StringVar(&globalFlags.tenant, "tenant", "", "Tenant identifier (overrides CANDIDATE_ID)")
	flags.StringVar(&globalFlags.sourceURL, "source-url", "", "Dataset URL (overrides INGEST_SOURCE_URL)")
	flags.StringVar(&globalFlags.datasetFile, "file", "", "Local dataset file (overrides INGEST_FILE)")
	flags.StringVar(&globalFlags.table, "table", "", "Target table (overrides INGEST_TABLE)")
}

// getVerboseFlag safely retrieves the verbose flag value
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Failed to get verbose flag: %v\n", err)
		return false
	}
	return verbose
}
