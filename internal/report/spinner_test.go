package report

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

func TestSpinnerModel(t *testing.T) {
	t.Run("view shows label", func(t *testing.T) {
		m := newSpinnerModel("running stress", func() {})
		if !strings.Contains(m.View(), "running stress...") {
			t.Errorf("View() = %q", m.View())
		}
	})

	t.Run("done quits with error", func(t *testing.T) {
		m := newSpinnerModel("x", func() {})
		boom := errors.New("boom")

		next, cmd := m.Update(doneMsg{err: boom})
		sm := next.(spinnerModel)
		if !sm.finished || !errors.Is(sm.err, boom) {
			t.Errorf("model after doneMsg = %+v", sm)
		}
		if cmd == nil {
			t.Fatal("doneMsg should return a quit command")
		}
		if _, ok := cmd().(tea.QuitMsg); !ok {
			t.Error("doneMsg command is not tea.Quit")
		}
		if sm.View() != "" {
			t.Errorf("finished View() = %q, want empty", sm.View())
		}
	})

	t.Run("ctrl+c cancels", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		m := newSpinnerModel("x", cancel)

		next, _ := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
		if ctx.Err() == nil {
			t.Error("ctrl+c did not cancel the context")
		}
		if next.(spinnerModel).finished {
			t.Error("model finished before the work reported back")
		}
	})

	t.Run("tick advances", func(t *testing.T) {
		m := newSpinnerModel("x", func() {})
		_, cmd := m.Update(m.spinner.Tick())
		if cmd == nil {
			t.Error("tick should schedule the next frame")
		}
	})

	t.Run("init ticks", func(t *testing.T) {
		m := newSpinnerModel("x", func() {})
		if m.Init() == nil {
			t.Error("Init() returned nil")
		}
	})
}
