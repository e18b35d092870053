package tui

import (
	"context"

	"github.com/charmbracelet/bubbles/viewport"

	"github.com/samaelod/spy/engine"
)

type Model struct {
	engine  *engine.Engine
	backlog *engine.Backlog
	cancel  context.CancelFunc

	viewport viewport.Model
	ready    bool
	follow   bool // keep the newest dump in view

	width  int
	height int

	done bool // every session has ended
	err  error
}

const (
	minWindowWidth  = 80
	minWindowHeight = 12
	footerHeight    = 1
)

func New(eng *engine.Engine, backlog *engine.Backlog, cancel context.CancelFunc) Model {
	return Model{
		engine:  eng,
		backlog: backlog,
		cancel:  cancel,
		follow:  true,
	}
}

// headerHeight is the title line plus one line per session and a spacer.
func (m Model) headerHeight() int {
	return 2 + len(m.engine.Sessions())
}
