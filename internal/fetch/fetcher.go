package fetch

import (
	"bufio"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/vvka-141/pgingest/internal/logging"
	"github.com/vvka-141/pgingest/pkg/pgingest"
)

// maxLineSize bounds a single source line.
const maxLineSize = 1 << 20

// Fetcher downloads a CSV resource and persists it as the dataset file.
type Fetcher struct {
	sourceURL string
	path      string
	client    *http.Client
	logger    pgingest.Logger
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithHTTPClient replaces the default instrumented client.
func WithHTTPClient(client *http.Client) Option {
	return func(f *Fetcher) {
		f.client = client
	}
}

// WithLogger sets the logger used for progress messages.
func WithLogger(logger pgingest.Logger) Option {
	return func(f *Fetcher) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// New creates a Fetcher that downloads sourceURL into path.
// The default client traces requests through the global OpenTelemetry provider.
func New(sourceURL, path string, opts ...Option) *Fetcher {
	f := &Fetcher{
		sourceURL: sourceURL,
		path:      path,
		client:    &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
		logger:    logging.NewNullLogger(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// NewFromConfig creates a Fetcher for the configured source and dataset file.
func NewFromConfig(cfg *pgingest.Config, logger pgingest.Logger) *Fetcher {
	return New(cfg.SourceURL, cfg.DatasetFile, WithLogger(logger))
}

// Fetch downloads the source and rewrites the dataset file. The first line is
// dropped as a header and blank lines are skipped. An empty body produces an
// empty file.
func (f *Fetcher) Fetch(ctx context.Context) (pgingest.FetchResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.sourceURL, nil)
	if err != nil {
		return pgingest.FetchResult{}, fmt.Errorf("invalid source URL %q: %v: %w", f.sourceURL, err, pgingest.ErrFetch)
	}
	req.Header.Set("Accept", "text/csv, text/plain;q=0.9, */*;q=0.5")
	req.Header.Set("User-Agent", pgingest.AppName)

	f.logger.Verbose("GET %s", f.sourceURL)

	resp, err := f.client.Do(req)
	if err != nil {
		return pgingest.FetchResult{}, fmt.Errorf("request to %s failed: %v: %w", f.sourceURL, err, pgingest.ErrFetch)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return pgingest.FetchResult{}, fmt.Errorf("source returned %s: %w", resp.Status, pgingest.ErrFetch)
	}

	rows, err := f.writeDataset(bodyDecoder(resp.Body, resp.Header.Get("Content-Type")))
	if err != nil {
		return pgingest.FetchResult{}, err
	}

	f.logger.Verbose("Wrote %d rows to %s", rows, f.path)
	return pgingest.FetchResult{Path: f.path, Rows: rows}, nil
}

// writeDataset streams body into a temporary file next to the dataset file and
// renames it into place, so a failed download never leaves a truncated file.
func (f *Fetcher) writeDataset(body io.Reader) (rows int, err error) {
	dir := filepath.Dir(f.path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(f.path)+".*")
	if err != nil {
		return 0, fmt.Errorf("failed to create dataset file in %s: %v: %w", dir, err, pgingest.ErrFetch)
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	rows, err = copyRows(body, tmp)
	if err != nil {
		return 0, err
	}

	if err = tmp.Close(); err != nil {
		return 0, fmt.Errorf("failed to close dataset file: %v: %w", err, pgingest.ErrFetch)
	}
	if err = os.Chmod(tmp.Name(), 0o644); err != nil {
		return 0, fmt.Errorf("failed to set dataset file mode: %v: %w", err, pgingest.ErrFetch)
	}
	if err = os.Rename(tmp.Name(), f.path); err != nil {
		return 0, fmt.Errorf("failed to replace %s: %v: %w", f.path, err, pgingest.ErrFetch)
	}
	return rows, nil
}

// copyRows reads body line by line and writes every line after the first as a
// CSV record.
func copyRows(body io.Reader, out io.Writer) (int, error) {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	scanner.Split(scanLines)

	writer := csv.NewWriter(out)
	rows := 0
	header := true

	for scanner.Scan() {
		if header {
			header = false
			continue
		}

		line := toUTF8(scanner.Text())
		if strings.TrimSpace(line) == "" {
			continue
		}

		record, err := parseRecord(line)
		if err != nil {
			return 0, fmt.Errorf("line %d: %v: %w", rows+2, err, pgingest.ErrFetch)
		}
		if err := writer.Write(record); err != nil {
			return 0, fmt.Errorf("failed to write row: %v: %w", err, pgingest.ErrFetch)
		}
		rows++
	}
	if err := scanner.Err(); err != nil {
		return 0, fmt.Errorf("failed to read response body: %v: %w", err, pgingest.ErrFetch)
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return 0, fmt.Errorf("failed to write dataset file: %v: %w", err, pgingest.ErrFetch)
	}
	return rows, nil
}

// parseRecord splits a single line into fields. Quoted fields may contain
// commas; a quoted field spanning lines is not supported.
func parseRecord(line string) ([]string, error) {
	r := csv.NewReader(strings.NewReader(line))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	return r.Read()
}
