package checksum

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
)

// Digest is the SHA-256 sum of some content together with its length.
type Digest struct {
	Sum  [sha256.Size]byte
	Size int64
}

// Hex returns the lowercase hex encoding used in logs and object metadata.
func (d Digest) Hex() string {
	return hex.EncodeToString(d.Sum[:])
}

// Base64 returns the standard base64 encoding S3 expects in
// x-amz-checksum-sha256.
func (d Digest) Base64() string {
	return base64.StdEncoding.EncodeToString(d.Sum[:])
}

// SHA256 computes SHA-256 digests.
//
// SHA256 is a zero-size type and is safe for concurrent use by multiple goroutines.
// Using value semantics (pass by value) eliminates heap allocations.
type SHA256 struct{}

// New creates a new SHA-256 based calculator.
func New() SHA256 {
	return SHA256{}
}

// Reader hashes everything read from r until EOF.
func (c SHA256) Reader(r io.Reader) (Digest, error) {
	h := sha256.New()
	n, err := io.Copy(h, r)
	if err != nil {
		return Digest{}, fmt.Errorf("hash content: %w", err)
	}

	var d Digest
	copy(d.Sum[:], h.Sum(nil))
	d.Size = n
	return d, nil
}

// Seeker hashes rs from its start and rewinds it, so the same handle can be
// streamed again afterwards.
func (c SHA256) Seeker(rs io.ReadSeeker) (Digest, error) {
	if _, err := rs.Seek(0, io.SeekStart); err != nil {
		return Digest{}, fmt.Errorf("rewind: %w", err)
	}
	d, err := c.Reader(rs)
	if err != nil {
		return Digest{}, err
	}
	if _, err := rs.Seek(0, io.SeekStart); err != nil {
		return Digest{}, fmt.Errorf("rewind: %w", err)
	}
	return d, nil
}
