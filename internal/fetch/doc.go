// Package fetch downloads the source dataset over HTTP and writes it to the
// local dataset file as header-less CSV.
package fetch
