package tui

import (
	"os"

	"golang.org/x/term"
)

// Mode represents the interaction mode for pgingest.
type Mode int

const (
	// ModeNonInteractive is used for CI/CD pipelines, scripts, and redirected output.
	ModeNonInteractive Mode = iota
	// ModeInteractive is used when a human is at the terminal.
	ModeInteractive
)

// NonInteractiveEnv forces plain output when set to "1".
const NonInteractiveEnv = "PGINGEST_NON_INTERACTIVE"

// DetectMode determines whether pgingest should animate stage progress.
//
// Returns ModeNonInteractive if:
//   - PGINGEST_NON_INTERACTIVE=1 is set
//   - CI is set (common CI/CD convention)
//   - NO_COLOR is set (accessibility/automation indicator)
//   - stdin or stderr is not a terminal
//
// Returns ModeInteractive otherwise.
func DetectMode() Mode {
	if os.Getenv(NonInteractiveEnv) == "1" {
		return ModeNonInteractive
	}
	if os.Getenv("CI") != "" {
		return ModeNonInteractive
	}
	if os.Getenv("NO_COLOR") != "" {
		return ModeNonInteractive
	}

	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return ModeNonInteractive
	}

	// Progress is rendered on stderr so stdout stays clean for scripts.
	if !term.IsTerminal(int(os.Stderr.Fd())) {
		return ModeNonInteractive
	}

	return ModeInteractive
}

// IsInteractive is a convenience function that returns true if running in interactive mode.
func IsInteractive() bool {
	return DetectMode() == ModeInteractive
}
