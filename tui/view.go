package tui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/samaelod/spy/engine"
	"github.com/samaelod/spy/types"
)

func renderScrollbar(vp viewport.Model, height int) string {
	total := vp.TotalLineCount()
	visible := vp.VisibleLineCount()

	if total <= visible {
		return strings.Repeat(" \n", height)
	}

	trackHeight := height
	if trackHeight < 1 {
		trackHeight = visible
	}

	thumbPos := int(float64(trackHeight-1) * vp.ScrollPercent())
	if thumbPos < 0 {
		thumbPos = 0
	}
	if thumbPos > trackHeight-1 {
		thumbPos = trackHeight - 1
	}

	var sb strings.Builder
	for i := 0; i < trackHeight; i++ {
		if i == thumbPos {
			sb.WriteString(scrollbarThumb.Render("█"))
		} else {
			sb.WriteString(scrollbarTrack.Render("│"))
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

// labelColor maps an ANSI foreground code (30-37) onto the terminal palette.
func labelColor(code int) lipgloss.TerminalColor {
	if code >= 30 && code <= 37 {
		return lipgloss.Color(strconv.Itoa(code - 30))
	}
	return colorText
}

func renderSession(s *engine.Session) string {
	ep := s.Endpoint()
	st := s.Stats()

	label := lipgloss.NewStyle().Foreground(labelColor(ep.Color)).Bold(true).Render(ep.Label)

	status := s.Status()
	statusStyle := styleStatus.Foreground(colorSubtext)
	switch status {
	case types.StatusRunning:
		statusStyle = styleStatus.Foreground(colorSuccess)
	case types.StatusError:
		statusStyle = styleStatus.Foreground(colorError)
	}

	stats := fmt.Sprintf("%d reads, %s", st.Reads, humanize.Bytes(st.Bytes))
	if ep.KeepAlive {
		stats += fmt.Sprintf(", %d probes", st.Probes)
	}
	if !st.LastRead.IsZero() {
		stats += ", last " + humanize.Time(st.LastRead)
	}

	line := label + " " + styleAddress.Render(ep.Address()) + statusStyle.Render(status.String()) + styleSubtle.Render(stats)
	if err := s.Err(); err != nil && status == types.StatusError {
		line += " " + lipgloss.NewStyle().Foreground(colorError).Render(err.Error())
	}
	return line
}

func (m Model) View() string {
	if !m.ready {
		return "Starting..."
	}

	if m.width < minWindowWidth || m.height < minWindowHeight {
		return styleScreenTooSmall.
			Width(m.width).
			Height(m.height).
			Render("Terminal window is too small.\nPlease resize.")
	}

	title := styleAppTitle.Render("SPY")
	summary := fmt.Sprintf(" %d lines, %s captured", m.backlog.Len(), humanize.Bytes(m.backlog.Written()))
	if m.done {
		summary += ", all sessions ended"
	}

	rows := []string{title + styleSubtle.Render(summary)}
	for _, s := range m.engine.Sessions() {
		rows = append(rows, renderSession(s))
	}
	rows = append(rows, "")

	body := lipgloss.JoinHorizontal(lipgloss.Top,
		m.viewport.View(),
		renderScrollbar(m.viewport, m.viewport.Height),
	)
	rows = append(rows, stylePanel.Render(body))

	follow := "off"
	if m.follow {
		follow = styleFollow.Render("on")
	}
	rows = append(rows, styleHelp.Render("q quit • f follow: ")+follow+styleHelp.Render(" • ↑/↓ pgup/pgdn scroll • g/G top/bottom"))

	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}
