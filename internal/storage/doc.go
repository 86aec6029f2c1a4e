// Package storage uploads the dataset file to an S3 bucket and waits until
// the object can be read back.
package storage
