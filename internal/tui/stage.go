package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

// stageModel animates one running stage until its work function returns.
type stageModel struct {
	spinner spinner.Model
	title   string
	started time.Time
	run     func() (string, error)

	done    bool
	summary string
	err     error
}

// stageDoneMsg carries the outcome of the work function.
type stageDoneMsg struct {
	summary string
	err     error
}

func newStageModel(title string, run func() (string, error)) stageModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = SpinnerStyle

	return stageModel{
		spinner: s,
		title:   title,
		started: time.Now(),
		run:     run,
	}
}

// Init implements tea.Model.
func (m stageModel) Init() tea.Cmd {
	run := m.run
	return tea.Batch(m.spinner.Tick, func() tea.Msg {
		summary, err := run()
		return stageDoneMsg{summary: summary, err: err}
	})
}

// Update implements tea.Model.
func (m stageModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case stageDoneMsg:
		m.done = true
		m.summary = msg.summary
		m.err = msg.err
		return m, tea.Quit
	case spinner.TickMsg:
		if m.done {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

// View implements tea.Model.
func (m stageModel) View() string {
	if m.done {
		if m.err != nil {
			return ErrorStyle.Render(SymbolCross+" "+m.title+": "+m.err.Error()) + "\n"
		}
		elapsed := MutedStyle.Render("(" + time.Since(m.started).Round(time.Millisecond).String() + ")")
		return SuccessStyle.Render(SymbolCheck+" "+m.summary) + " " + elapsed + "\n"
	}
	return m.spinner.View() + " " + MessageStyle.Render(m.title) + "\n"
}
