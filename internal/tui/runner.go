package tui

import (
	"context"
	"errors"
	"fmt"
	"io"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/vvka-141/pgingest/pkg/pgingest"
)

// NewStageRunner returns a spinner runner in interactive mode and a plain
// line logger otherwise.
func NewStageRunner(mode Mode, out io.Writer, logger pgingest.Logger) pgingest.StageRunner {
	if mode == ModeInteractive {
		return NewSpinnerRunner(out)
	}
	return NewPlainRunner(logger)
}

// PlainRunner reports stages as log lines.
type PlainRunner struct {
	logger pgingest.Logger
}

// NewPlainRunner creates a PlainRunner.
func NewPlainRunner(logger pgingest.Logger) *PlainRunner {
	return &PlainRunner{logger: logger}
}

// RunStage runs fn and logs its start and outcome.
func (r *PlainRunner) RunStage(ctx context.Context, title string, fn func(ctx context.Context) (string, error)) error {
	r.logger.Info("%s %s...", SymbolArrowRight, title)
	summary, err := fn(ctx)
	if err != nil {
		r.logger.Error("%s %s: %v", SymbolCross, title, err)
		return err
	}
	r.logger.Info("%s %s", SymbolCheck, summary)
	return nil
}

// SpinnerRunner shows an animated spinner while a stage runs.
type SpinnerRunner struct {
	out io.Writer
}

// NewSpinnerRunner creates a SpinnerRunner rendering to out.
func NewSpinnerRunner(out io.Writer) *SpinnerRunner {
	return &SpinnerRunner{out: out}
}

// RunStage runs fn behind a spinner. The program exits when fn returns, so
// fn must honor ctx for cancellation to take effect.
func (r *SpinnerRunner) RunStage(ctx context.Context, title string, fn func(ctx context.Context) (string, error)) error {
	model := newStageModel(title, func() (string, error) {
		return fn(ctx)
	})

	// Interrupts are handled by the caller cancelling ctx.
	program := tea.NewProgram(model, tea.WithOutput(r.out), tea.WithInput(nil), tea.WithoutSignalHandler())
	final, err := program.Run()
	if err != nil {
		return fmt.Errorf("progress display failed: %w", err)
	}

	result, ok := final.(stageModel)
	if !ok || !result.done {
		return errors.New("stage ended without a result")
	}
	return result.err
}
