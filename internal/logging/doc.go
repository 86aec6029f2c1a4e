// Package logging provides concrete implementations of the pgingest.Logger interface.
//
// Available implementations:
//   - ConsoleLogger: writes prefixed lines to stderr (or any io.Writer)
//   - NullLogger: discards all messages (useful for testing)
package logging
