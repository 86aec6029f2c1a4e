package pgingest

import (
	"errors"
	"strings"
)

// Sentinel errors for the failure classes of an ingestion run.
// Every stage wraps one of these so callers can use errors.Is().
//
// Example usage:
//
//	_, err := fetcher.Fetch(ctx)
//	if errors.Is(err, pgingest.ErrFetch) {
//	    // the source could not be downloaded
//	}
var (
	// ErrConfig indicates a missing or invalid configuration value,
	// including identifiers that fail validation.
	ErrConfig = errors.New("invalid configuration")

	// ErrFetch indicates the source dataset could not be downloaded or written locally.
	ErrFetch = errors.New("fetch failed")

	// ErrUpload indicates the object store rejected or failed the upload.
	ErrUpload = errors.New("upload failed")

	// ErrSession indicates the database connection or schema setup failed.
	ErrSession = errors.New("session setup failed")

	// ErrImport indicates a SQL statement failed during table setup or bulk import.
	ErrImport = errors.New("import failed")
)

// usageErrorPatterns are the prefixes cobra uses for command-line misuse.
var usageErrorPatterns = []string{
	"unknown command",
	"unknown flag",
	"unknown shorthand flag",
	"accepts ",
	"invalid argument",
	"required flag",
	"flag needs an argument",
}

// ExitCodeForError returns the appropriate exit code for an error.
// Returns ExitSuccess (0) for nil errors, semantic codes for known errors,
// and ExitGeneralError (1) for unclassified errors.
func ExitCodeForError(err error) int {
	if err == nil {
		return ExitSuccess
	}

	switch {
	case errors.Is(err, ErrConfig):
		return ExitConfigError
	case errors.Is(err, ErrSession):
		return ExitSessionError
	case errors.Is(err, ErrFetch):
		return ExitFetchFailed
	case errors.Is(err, ErrUpload):
		return ExitUploadFailed
	case errors.Is(err, ErrImport):
		return ExitImportFailed
	}

	errStr := err.Error()
	for _, pattern := range usageErrorPatterns {
		if strings.HasPrefix(errStr, pattern) {
			return ExitUsageError
		}
	}

	if strings.Contains(errStr, "failed to connect") ||
		strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "no such host") {
		return ExitSessionError
	}

	return ExitGeneralError
}
