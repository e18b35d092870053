package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/samaelod/spy/engine"
)

func (m Model) Init() tea.Cmd {
	return tea.Batch(waitForBacklog(m.backlog), tick())
}

// Run shows the dumps collected in backlog while eng runs. Quitting the
// viewer cancels every session.
func Run(ctx context.Context, eng *engine.Engine, backlog *engine.Backlog) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(New(eng, backlog, cancel), tea.WithAltScreen())

	done := make(chan error, 1)
	go func() {
		err := eng.Run(ctx)
		done <- err
		p.Send(engineDoneMsg{err: err})
	}()

	_, err := p.Run()
	cancel()
	runErr := <-done
	backlog.Close()

	if err != nil {
		return err
	}
	return runErr
}
