package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/vvka-141/pgingest/internal/checksum"
	"github.com/vvka-141/pgingest/internal/logging"
	"github.com/vvka-141/pgingest/internal/retry"
	"github.com/vvka-141/pgingest/pkg/pgingest"
)

const (
	// MetadataRunID is the user metadata key that carries the run ID.
	MetadataRunID = "pgingest-run-id"

	// MetadataSHA256 is the user metadata key that carries the hex digest of the body.
	MetadataSHA256 = "pgingest-sha256"
)

// Uploader puts the dataset file into a bucket.
type Uploader struct {
	client     S3API
	bucket     string
	runID      string
	logger     pgingest.Logger
	visibility pgingest.BackoffStrategy
}

// Option configures an Uploader.
type Option func(*Uploader)

// WithRunID tags uploaded objects with the run ID.
func WithRunID(runID string) Option {
	return func(u *Uploader) {
		u.runID = runID
	}
}

// WithLogger sets the logger used for progress messages.
func WithLogger(logger pgingest.Logger) Option {
	return func(u *Uploader) {
		if logger != nil {
			u.logger = logger
		}
	}
}

// WithVisibilityBackoff replaces the backoff of the post-upload existence poll.
func WithVisibilityBackoff(strategy pgingest.BackoffStrategy) Option {
	return func(u *Uploader) {
		u.visibility = strategy
	}
}

// NewUploader creates an Uploader for bucket using client.
func NewUploader(client S3API, bucket string, opts ...Option) *Uploader {
	u := &Uploader{
		client:     client,
		bucket:     bucket,
		logger:     logging.NewNullLogger(),
		visibility: visibilityBackoff(pgingest.DefaultVisibilityAttempts),
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// NewFromConfig builds the S3 client and an Uploader for the configured bucket.
func NewFromConfig(ctx context.Context, cfg pgingest.StorageConfig, runID string, logger pgingest.Logger) (*Uploader, error) {
	client, err := NewS3Client(ctx, cfg)
	if err != nil {
		return nil, err
	}

	attempts := cfg.VisibilityAttempts
	if attempts <= 0 {
		attempts = pgingest.DefaultVisibilityAttempts
	}

	return NewUploader(client, cfg.Bucket,
		WithRunID(runID),
		WithLogger(logger),
		WithVisibilityBackoff(visibilityBackoff(attempts)),
	), nil
}

// visibilityBackoff polls attempts times in total: one initial check plus
// attempts-1 retries.
func visibilityBackoff(attempts int) *retry.ExponentialBackoff {
	return retry.NewExponentialBackoff(attempts-1,
		retry.WithInitialDelay(pgingest.DefaultVisibilityInitialDelay),
		retry.WithMaxDelay(pgingest.DefaultVisibilityMaxDelay),
	)
}

// Bucket returns the target bucket.
func (u *Uploader) Bucket() string {
	return u.bucket
}

// Upload puts the whole file at localPath under key, replacing any existing
// object. Any SDK error or non-success response is reported as ErrUpload.
func (u *Uploader) Upload(ctx context.Context, localPath, key string) (pgingest.UploadResult, error) {
	file, err := os.Open(localPath)
	if err != nil {
		return pgingest.UploadResult{}, fmt.Errorf("failed to open %s: %v: %w", localPath, err, pgingest.ErrUpload)
	}
	defer file.Close()

	digest, err := checksum.New().Seeker(file)
	if err != nil {
		return pgingest.UploadResult{}, fmt.Errorf("failed to read %s: %v: %w", localPath, err, pgingest.ErrUpload)
	}

	input := &s3.PutObjectInput{
		Bucket:         aws.String(u.bucket),
		Key:            aws.String(key),
		Body:           file,
		ContentLength:  aws.Int64(digest.Size),
		ContentType:    aws.String("text/csv; charset=utf-8"),
		ChecksumSHA256: aws.String(digest.Base64()),
		Metadata:       map[string]string{MetadataSHA256: digest.Hex()},
	}
	if u.runID != "" {
		input.Metadata[MetadataRunID] = u.runID
	}

	u.logger.Verbose("PUT s3://%s/%s (%d bytes, sha256 %s)", u.bucket, key, digest.Size, digest.Hex())

	out, err := u.client.PutObject(ctx, input)
	if err != nil {
		return pgingest.UploadResult{}, fmt.Errorf("put s3://%s/%s: %s: %w", u.bucket, key, describeError(err), pgingest.ErrUpload)
	}
	if out == nil {
		return pgingest.UploadResult{}, fmt.Errorf("put s3://%s/%s: empty response: %w", u.bucket, key, pgingest.ErrUpload)
	}

	return pgingest.UploadResult{
		Bucket: u.bucket,
		Key:    key,
		ETag:   aws.ToString(out.ETag),
		SHA256: digest.Hex(),
		Bytes:  digest.Size,
	}, nil
}

// WaitUntilVisible polls HeadObject until the object exists. A missing object
// is retried with backoff; any other error stops the poll.
func (u *Uploader) WaitUntilVisible(ctx context.Context, key string) error {
	executor := retry.NewExecutor(retry.ClassifierFunc(isNotFound), u.visibility).
		WithOnRetry(func(attempt int, err error, delay time.Duration) {
			u.logger.Verbose("s3://%s/%s not visible yet, checking again in %v", u.bucket, key, delay)
		})

	err := executor.Execute(ctx, func(ctx context.Context) error {
		_, err := u.client.HeadObject(ctx, &s3.HeadObjectInput{
			Bucket: aws.String(u.bucket),
			Key:    aws.String(key),
		})
		return err
	})
	if err != nil {
		if isNotFound(err) {
			return fmt.Errorf("s3://%s/%s is not visible after %d checks: %w", u.bucket, key, u.visibility.MaxAttempts()+1, pgingest.ErrUpload)
		}
		return fmt.Errorf("head s3://%s/%s: %s: %w", u.bucket, key, describeError(err), pgingest.ErrUpload)
	}

	return nil
}

// isNotFound reports whether err means the object does not exist (yet).
func isNotFound(err error) bool {
	var notFound *types.NotFound
	if errors.As(err, &notFound) {
		return true
	}
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &noSuchKey) {
		return true
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NotFound", "NoSuchKey":
			return true
		}
	}

	var respErr *awshttp.ResponseError
	if errors.As(err, &respErr) {
		return respErr.HTTPStatusCode() == 404
	}
	return false
}

// describeError renders an SDK error with its HTTP status and service code
// when available.
func describeError(err error) string {
	var respErr *awshttp.ResponseError
	if errors.As(err, &respErr) {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) {
			return fmt.Sprintf("status %d %s: %s", respErr.HTTPStatusCode(), apiErr.ErrorCode(), apiErr.ErrorMessage())
		}
		return fmt.Sprintf("status %d: %v", respErr.HTTPStatusCode(), respErr.Err)
	}
	return err.Error()
}
