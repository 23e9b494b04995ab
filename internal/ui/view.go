package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/avrille/cadenza/internal/playback"
	"github.com/avrille/cadenza/internal/queue"
	"github.com/avrille/cadenza/internal/session"
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	selectedStyle = lipgloss.NewStyle().Reverse(true)
	playingStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	dimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	warnStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	barStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
)

func (m Model) View() string {
	if m.width == 0 {
		return "loading..."
	}

	var b strings.Builder
	b.WriteString(m.headerView())
	b.WriteString("\n")

	switch m.focus {
	case focusSearchInput:
		b.WriteString("\n  " + m.input.View() + "\n")
		b.WriteString(dimStyle.Render("  enter: search  esc: cancel"))
	case focusSearchResults:
		b.WriteString(m.resultsView())
	default:
		b.WriteString(m.queueView())
	}

	b.WriteString("\n")
	b.WriteString(m.playerBarView())
	b.WriteString("\n")
	b.WriteString(m.statusLineView())
	return b.String()
}

func (m Model) headerView() string {
	title := titleStyle.Render("cadenza")
	sess := ""
	switch m.snap.Session {
	case session.StatusRefreshing:
		sess = warnStyle.Render("refreshing session")
	case session.StatusReconnecting:
		sess = warnStyle.Render("reconnecting")
	case session.StatusUnauthenticated:
		sess = errorStyle.Render("auth required")
	}
	if sess == "" {
		return title
	}
	pad := m.width - lipgloss.Width(title) - lipgloss.Width(sess)
	if pad < 1 {
		pad = 1
	}
	return title + strings.Repeat(" ", pad) + sess
}

func (m Model) queueView() string {
	if len(m.snap.Queue) == 0 {
		return dimStyle.Render("\n  queue is empty - press / to search\n")
	}

	rows := m.listHeight()
	start := 0
	if m.cursor >= rows {
		start = m.cursor - rows + 1
	}
	end := min(start+rows, len(m.snap.Queue))

	var b strings.Builder
	for i := start; i < end; i++ {
		t := m.snap.Queue[i]
		marker := "  "
		if i == m.snap.QueueIndex && m.snap.State.IsActive() {
			marker = "> "
		}
		line := fmt.Sprintf("%s%s - %s", marker, t.Artist, t.Title)
		line = runewidth.Truncate(line, m.width-2, "…")
		switch {
		case i == m.cursor:
			line = selectedStyle.Render(line)
		case i == m.snap.QueueIndex && m.snap.State.IsActive():
			line = playingStyle.Render(line)
		}
		b.WriteString(line + "\n")
	}
	return b.String()
}

func (m Model) resultsView() string {
	var b strings.Builder
	b.WriteString(dimStyle.Render(fmt.Sprintf("  results for %q - enter: play  a: queue  esc: back\n", m.lastQuery)))
	rows := m.listHeight()
	start := 0
	if m.resultCursor >= rows {
		start = m.resultCursor - rows + 1
	}
	end := min(start+rows, len(m.results))
	for i := start; i < end; i++ {
		t := m.results[i]
		line := fmt.Sprintf("  %s - %s (%s)", t.Artist, t.Title, t.Album)
		line = runewidth.Truncate(line, m.width-2, "…")
		if i == m.resultCursor {
			line = selectedStyle.Render(line)
		}
		b.WriteString(line + "\n")
	}
	return b.String()
}

func (m Model) playerBarView() string {
	s := m.snap
	icon := stateIcon(s.State)

	track := "nothing playing"
	if s.Track != nil {
		track = fmt.Sprintf("%s - %s", s.Track.Artist, s.Track.Title)
	}

	timing := fmt.Sprintf("%s / %s", formatDuration(s.Position), formatDuration(s.Duration))
	if s.State == playback.StateLoading {
		timing = fmt.Sprintf("loading %d%%", int(s.Buffering*100))
	}

	modes := fmt.Sprintf("vol %d%%", s.Volume)
	if s.Shuffle {
		modes += "  shuffle"
	}
	if s.Repeat != queue.RepeatOff {
		modes += "  repeat " + strings.ToLower(s.Repeat.String())
	}

	head := fmt.Sprintf("%s %s", icon, track)
	head = runewidth.Truncate(head, max(m.width-lipgloss.Width(timing)-lipgloss.Width(modes)-4, 8), "…")
	pad := m.width - lipgloss.Width(head) - lipgloss.Width(timing) - lipgloss.Width(modes) - 2
	if pad < 2 {
		pad = 2
	}
	line := head + strings.Repeat(" ", pad/2+pad%2) + timing + strings.Repeat(" ", pad/2) + modes

	return barStyle.Render(m.progressView()) + "\n" + line
}

func (m Model) progressView() string {
	width := m.width
	if width < 4 {
		width = 4
	}
	filled := 0
	if m.snap.Duration > 0 {
		filled = int(float64(width) * float64(m.snap.Position) / float64(m.snap.Duration))
		if filled > width {
			filled = width
		}
	}
	return strings.Repeat("━", filled) + strings.Repeat("─", width-filled)
}

func (m Model) statusLineView() string {
	if m.snap.State == playback.StateError && m.snap.Err != "" {
		return errorStyle.Render(runewidth.Truncate("error: "+m.snap.Err, m.width, "…"))
	}
	if m.statusMessage != "" {
		return dimStyle.Render(runewidth.Truncate(m.statusMessage, m.width, "…"))
	}
	return dimStyle.Render("space: play/pause  n/p: skip  s: shuffle  r: repeat  /: search  q: quit")
}

func (m Model) listHeight() int {
	// Header, player bar (2 lines), progress and status take 5 rows.
	h := m.height - 5
	if h < 3 {
		h = 3
	}
	return h
}

func stateIcon(s playback.State) string {
	switch s {
	case playback.StatePlaying:
		return "▶"
	case playback.StatePaused:
		return "⏸"
	case playback.StateLoading:
		return "⋯"
	case playback.StateError:
		return "✗"
	default:
		return "■"
	}
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	m := int(d.Minutes())
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%d:%02d", m, s)
}
