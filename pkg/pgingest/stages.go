package pgingest

import "context"

// DatasetFetcher downloads the source dataset into the local dataset file.
type DatasetFetcher interface {
	Fetch(ctx context.Context) (FetchResult, error)
}

// ObjectUploader pushes a local file to the object store.
type ObjectUploader interface {
	// Upload replaces the object at key with the contents of localPath.
	Upload(ctx context.Context, localPath, key string) (UploadResult, error)

	// WaitUntilVisible blocks until the object at key can be read back,
	// polling with bounded retries.
	WaitUntilVisible(ctx context.Context, key string) error
}

// ImportRequest names the table to load and the object to load it from.
type ImportRequest struct {
	Table   string
	Bucket  string
	Key     string
	Region  string
	Options string
}

// BulkImporter loads an uploaded object into a table through an open session.
type BulkImporter interface {
	Import(ctx context.Context, session ScopedSession, req ImportRequest) (ImportResult, error)
}

// DatabaseLoader opens a namespace-scoped session, runs the bulk import and
// closes the session again.
type DatabaseLoader interface {
	Load(ctx context.Context, cfg *Config) (ImportResult, error)
}

// StageRunner presents the progress of a single pipeline stage.
// fn returns a one-line summary shown when the stage succeeds.
type StageRunner interface {
	RunStage(ctx context.Context, title string, fn func(ctx context.Context) (string, error)) error
}
