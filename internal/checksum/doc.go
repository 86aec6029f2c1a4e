// Package checksum hashes dataset files before they leave the machine.
//
// The SHA-256 digest of the dataset file is sent with the upload so the
// object store rejects a body that was corrupted in transit, and it is kept
// in object metadata so an imported object can be traced back to the exact
// file a run produced.
//
// # Example Usage
//
//	digest, err := checksum.New().Seeker(file)
//	if err != nil {
//		return err
//	}
//	input.ChecksumSHA256 = aws.String(digest.Base64())
//
// # Thread Safety
//
// SHA256 is safe for concurrent use by multiple goroutines.
package checksum
