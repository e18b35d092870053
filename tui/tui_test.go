package tui

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samaelod/spy/engine"
	"github.com/samaelod/spy/types"
)

func newTestModel(t *testing.T) (Model, *engine.Backlog, *bool) {
	t.Helper()
	eps := []types.Endpoint{
		{Host: "moxa", Port: "4001", Label: types.LabelRX, Color: types.ColorRed},
		{Host: "moxa", Port: "4002", Label: types.LabelTX, Color: types.ColorGreen},
	}
	backlog := engine.NewBacklog(100)
	eng := engine.New(eps, engine.NewRenderer(backlog, false), engine.SessionOptions{})

	cancelled := false
	m := New(eng, backlog, func() { cancelled = true })
	return m, backlog, &cancelled
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	nm, ok := next.(Model)
	require.True(t, ok)
	return nm, cmd
}

func TestViewShowsSessions(t *testing.T) {
	m, _, _ := newTestModel(t)
	assert.Equal(t, "Starting...", m.View())

	m, _ = update(t, m, tea.WindowSizeMsg{Width: 120, Height: 30})
	view := m.View()
	assert.Contains(t, view, "SPY")
	assert.Contains(t, view, "moxa:4001")
	assert.Contains(t, view, "moxa:4002")
	assert.Contains(t, view, "idle")
}

func TestViewTooSmall(t *testing.T) {
	m, _, _ := newTestModel(t)
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 40, Height: 10})
	assert.Contains(t, m.View(), "too small")
}

func TestBacklogMessageRefreshesViewport(t *testing.T) {
	m, backlog, _ := newTestModel(t)
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 120, Height: 30})

	for i := 0; i < 50; i++ {
		fmt.Fprintf(backlog, "dump line %d\n", i)
	}
	m, cmd := update(t, m, backlogMsg{})
	assert.NotNil(t, cmd)
	assert.True(t, m.viewport.AtBottom())
	assert.Contains(t, m.viewport.View(), "dump line 49")
}

func TestFollowToggle(t *testing.T) {
	m, _, _ := newTestModel(t)
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 120, Height: 30})
	require.True(t, m.follow)

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("f")})
	assert.False(t, m.follow)
	assert.True(t, strings.Contains(m.View(), "off"))

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("G")})
	assert.True(t, m.follow)
}

func TestQuitCancelsSessions(t *testing.T) {
	m, _, cancelled := newTestModel(t)
	_, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	require.NotNil(t, cmd)
	assert.True(t, *cancelled)
	assert.Equal(t, tea.Quit(), cmd())
}

func TestEngineDone(t *testing.T) {
	m, _, _ := newTestModel(t)
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 120, Height: 30})
	m, _ = update(t, m, engineDoneMsg{err: errors.New("boom")})
	assert.True(t, m.done)
	assert.Contains(t, m.View(), "all sessions ended")
}

func TestWaitForClosedBacklog(t *testing.T) {
	b := engine.NewBacklog(1)
	b.Close()
	assert.Nil(t, waitForBacklog(b)())
}

func TestLabelColor(t *testing.T) {
	assert.Equal(t, "1", fmt.Sprint(labelColor(types.ColorRed)))
	assert.Equal(t, "6", fmt.Sprint(labelColor(types.ColorCyan)))
	assert.Equal(t, colorText, labelColor(0))
}
