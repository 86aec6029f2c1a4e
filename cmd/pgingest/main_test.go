package main

import (
	"errors"
	"os"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vvka-141/pgingest/pkg/pgingest"
)

const subprocessEnv = "PGINGEST_MAIN_SUBPROCESS"

// runMain re-executes the test binary so main() can call os.Exit.
func runMain(t *testing.T, env []string, args ...string) int {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping subprocess test in short mode")
	}

	cmd := exec.Command(os.Args[0], "-test.run=^TestMainSubprocess$")
	cmd.Env = append(os.Environ(), subprocessEnv+"=1")
	cmd.Env = append(cmd.Env, env...)
	if len(args) > 0 {
		cmd.Env = append(cmd.Env, "PGINGEST_MAIN_ARG="+args[0])
	}

	err := cmd.Run()
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	require.True(t, errors.As(err, &exitErr), "unexpected error: %v", err)
	return exitErr.ExitCode()
}

func TestMainSubprocess(t *testing.T) {
	if os.Getenv(subprocessEnv) != "1" {
		t.Skip("only runs as a subprocess")
	}
	os.Args = []string{"pgingest"}
	if arg := os.Getenv("PGINGEST_MAIN_ARG"); arg != "" {
		os.Args = append(os.Args, arg)
	}
	main()
}

func TestMain_PanicExitCode(t *testing.T) {
	code := runMain(t, []string{"PGINGEST_TEST_PANIC=1"})
	assert.Equal(t, pgingest.ExitPanic, code)
}

func TestMain_UsageExitCode(t *testing.T) {
	code := runMain(t, nil, "no-such-command")
	assert.Equal(t, pgingest.ExitUsageError, code)
}

func TestMain_VersionShortcut(t *testing.T) {
	code := runMain(t, nil, "--version")
	assert.Equal(t, pgingest.ExitSuccess, code)
}
