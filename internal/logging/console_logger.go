package logging

import (
	"fmt"
	"io"
	"os"
	"sync"
)

// ConsoleLogger writes log messages to stderr.
// Safe for concurrent use by multiple goroutines; loggers derived with
// WithStage share the parent's lock and writer.
type ConsoleLogger struct {
	out     io.Writer
	verbose bool
	stage   string
	mu      *sync.Mutex
}

// NewConsoleLogger creates a ConsoleLogger writing to stderr.
// If verbose is false, Verbose() calls are no-ops.
func NewConsoleLogger(verbose bool) *ConsoleLogger {
	return NewWriterLogger(os.Stderr, verbose)
}

// NewWriterLogger creates a ConsoleLogger writing to w.
func NewWriterLogger(w io.Writer, verbose bool) *ConsoleLogger {
	return &ConsoleLogger{
		out:     w,
		verbose: verbose,
		mu:      &sync.Mutex{},
	}
}

// WithStage returns a logger that tags every line with the stage name.
func (l *ConsoleLogger) WithStage(stage string) *ConsoleLogger {
	clone := *l
	clone.stage = stage
	return &clone
}

// Verbose logs detailed diagnostic information if verbose mode is enabled.
func (l *ConsoleLogger) Verbose(format string, args ...interface{}) {
	if !l.verbose {
		return
	}
	l.write("[VERBOSE] ", format, args)
}

// Info logs informational messages about normal operations.
func (l *ConsoleLogger) Info(format string, args ...interface{}) {
	l.write("", format, args)
}

// Error logs error messages.
func (l *ConsoleLogger) Error(format string, args ...interface{}) {
	l.write("[ERROR] ", format, args)
}

func (l *ConsoleLogger) write(level, format string, args []interface{}) {
	msg := format
	if len(args) > 0 {
		msg = fmt.Sprintf(format, args...)
	}
	if l.stage != "" {
		msg = "[" + l.stage + "] " + msg
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprint(l.out, level+msg+"\n")
}
