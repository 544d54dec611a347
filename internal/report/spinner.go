package report

import (
	"context"
	"io"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

// doneMsg carries the outcome of the background work.
type doneMsg struct{ err error }

type spinnerModel struct {
	spinner  spinner.Model
	label    string
	cancel   context.CancelFunc
	err      error
	finished bool
}

func newSpinnerModel(label string, cancel context.CancelFunc) spinnerModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = titleStyle
	return spinnerModel{spinner: s, label: label, cancel: cancel}
}

func (m spinnerModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m spinnerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case doneMsg:
		m.err = msg.err
		m.finished = true
		return m, tea.Quit

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			// Keep running until the work notices the cancellation and
			// reports back through doneMsg.
			m.cancel()
			m.label = "canceling"
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m spinnerModel) View() string {
	if m.finished {
		return ""
	}
	return m.spinner.View() + " " + mutedStyle.Render(m.label+"...") + "\n"
}

// RunWithSpinner runs fn while an animated spinner labeled label is drawn
// on out. Pressing q, esc or ctrl+c cancels the context passed to fn. The
// spinner is cleared before RunWithSpinner returns fn's result.
func RunWithSpinner[T any](ctx context.Context, out io.Writer, label string, fn func(ctx context.Context) (T, error)) (T, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(newSpinnerModel(label, cancel), tea.WithOutput(out))

	var result T
	var fnErr error
	done := make(chan struct{})
	go func() {
		defer close(done)
		result, fnErr = fn(ctx)
		p.Send(doneMsg{err: fnErr})
	}()

	_, runErr := p.Run()
	// If the program stopped on its own, fn must still be told to stop.
	cancel()
	<-done

	if fnErr != nil {
		return result, fnErr
	}
	return result, runErr
}
