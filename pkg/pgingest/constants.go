package pgingest

import "time"

// Exit codes for semantic error classification.
// These follow Unix/GNU conventions:
//   - 0: Success
//   - 1: General error
//   - 2: CLI usage error (misuse of command line)
//   - 3+: Application-specific errors
const (
	ExitSuccess      = 0  // All requested stages completed
	ExitGeneralError = 1  // Unknown or unclassified error
	ExitUsageError   = 2  // CLI usage error (unknown command, invalid flags)
	ExitPanic        = 3  // Internal panic (unexpected crash)
	ExitConfigError  = 10 // Missing environment value or invalid identifier
	ExitSessionError = 11 // Database connection or schema setup failed
	ExitFetchFailed  = 12 // Source dataset download failed
	ExitUploadFailed = 13 // Object store upload failed
	ExitImportFailed = 14 // Table setup or bulk import failed
)

const (
	// DefaultSourceURL is the public location of the Mall Customers dataset.
	DefaultSourceURL = "https://raw.githubusercontent.com/SteffiPeTaffy/machineLearningAZ" +
		"/master/Machine%20Learning%20A-Z%20Template%20Folder/Part%204%20-" +
		"%20Clustering/Section%2025%20-%20Hierarchical%20Clustering/Mall_C" +
		"ustomers.csv"

	// DefaultDatasetFile is the local file the fetcher writes and the uploader reads.
	DefaultDatasetFile = "Mall_Customers.csv"

	// DefaultTable is the target table created inside the tenant schema.
	DefaultTable = "mall_customers"

	// DefaultImportOptions is passed to aws_s3.table_import_from_s3.
	// The dataset file is written without a header row.
	DefaultImportOptions = "(format csv)"

	// DefaultTimeout bounds a complete run, including all three stages.
	DefaultTimeout = 10 * time.Minute

	// DefaultRetryInitialDelay is the default initial delay before the first retry attempt.
	DefaultRetryInitialDelay = 100 * time.Millisecond

	// DefaultRetryMaxDelay is the default maximum delay between retry attempts.
	DefaultRetryMaxDelay = 1 * time.Minute

	// DefaultRetryMaxAttempts is the default maximum number of connection retry attempts.
	DefaultRetryMaxAttempts = 3

	// DefaultVisibilityAttempts bounds the object visibility poll after an upload.
	DefaultVisibilityAttempts = 8

	// DefaultVisibilityInitialDelay is the first delay of the visibility poll.
	DefaultVisibilityInitialDelay = 250 * time.Millisecond

	// DefaultVisibilityMaxDelay caps a single wait of the visibility poll.
	DefaultVisibilityMaxDelay = 5 * time.Second

	// MaxIdentifierLength is PostgreSQL's NAMEDATALEN minus the terminator.
	MaxIdentifierLength = 63

	// DefaultPort is the PostgreSQL port used when DB_PORT is unset.
	DefaultPort = 5432

	// DefaultSSLMode is used when DB_SSLMODE is unset.
	DefaultSSLMode = "prefer"

	// AppName is reported to PostgreSQL as application_name.
	AppName = "pgingest"
)
