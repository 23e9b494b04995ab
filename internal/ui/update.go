package ui

import (
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

const (
	seekStep   = 10 * time.Second
	volumeStep = 5
)

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case playerEventMsg:
		m.snap = m.svc.Snapshot()
		m.clampCursor()
		return m, waitEvent(m.sub)

	case playerErrorMsg:
		m.snap = m.svc.Snapshot()
		m.statusMessage = msg.message
		return m, waitEvent(m.sub)

	case subscriptionClosedMsg:
		return m, tea.Quit

	case searchResultsMsg:
		m.results = msg.tracks
		m.resultCursor = 0
		m.lastQuery = msg.query
		m.focus = focusSearchResults
		if len(msg.tracks) == 0 {
			m.statusMessage = "no results for " + msg.query
			m.focus = focusQueue
		}
		return m, nil

	case searchFailedMsg:
		m.statusMessage = msg.message
		m.focus = focusQueue
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.focus {
	case focusSearchInput:
		return m.handleSearchInputKey(msg)
	case focusSearchResults:
		return m.handleSearchResultsKey(msg)
	}
	return m.handleQueueKey(msg)
}

func (m Model) handleQueueKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.TogglePlay):
		m.svc.TogglePlay()
	case key.Matches(msg, m.keys.Stop):
		m.svc.Stop()
	case key.Matches(msg, m.keys.Next):
		m.svc.Next()
	case key.Matches(msg, m.keys.Prev):
		m.svc.Previous()
	case key.Matches(msg, m.keys.SeekFwd):
		m.svc.SeekBy(seekStep)
	case key.Matches(msg, m.keys.SeekBack):
		m.svc.SeekBy(-seekStep)
	case key.Matches(msg, m.keys.VolumeUp):
		m.svc.SetVolume(m.snap.Volume + volumeStep)
	case key.Matches(msg, m.keys.VolumeDown):
		m.svc.SetVolume(m.snap.Volume - volumeStep)
	case key.Matches(msg, m.keys.Shuffle):
		m.svc.ToggleShuffle()
	case key.Matches(msg, m.keys.Repeat):
		m.svc.CycleRepeat()
	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(m.snap.Queue)-1 {
			m.cursor++
		}
	case key.Matches(msg, m.keys.Play):
		if len(m.snap.Queue) > 0 {
			m.svc.JumpTo(m.cursor)
		}
	case key.Matches(msg, m.keys.Remove):
		if len(m.snap.Queue) > 0 {
			m.svc.Remove(m.cursor)
		}
	case key.Matches(msg, m.keys.Clear):
		m.svc.ClearQueue()
		m.cursor = 0
	case key.Matches(msg, m.keys.Reconnect):
		m.svc.Reconnect()
		m.statusMessage = "reconnecting..."
	case key.Matches(msg, m.keys.Search):
		if m.client == nil {
			m.statusMessage = "search unavailable: no server configured"
			return m, nil
		}
		m.focus = focusSearchInput
		m.input.SetValue("")
		m.input.Focus()
		return m, textinput.Blink
	}
	return m, nil
}

func (m Model) handleSearchInputKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.focus = focusQueue
		m.input.Blur()
		return m, nil
	case tea.KeyEnter:
		query := strings.TrimSpace(m.input.Value())
		m.input.Blur()
		if query == "" {
			m.focus = focusQueue
			return m, nil
		}
		m.statusMessage = "searching for " + query
		return m, searchCmd(m.client, query)
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleSearchResultsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case msg.Type == tea.KeyEsc:
		m.focus = focusQueue
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Up):
		if m.resultCursor > 0 {
			m.resultCursor--
		}
	case key.Matches(msg, m.keys.Down):
		if m.resultCursor < len(m.results)-1 {
			m.resultCursor++
		}
	case key.Matches(msg, m.keys.Play):
		if len(m.results) > 0 {
			m.svc.PlayNow(m.results[m.resultCursor].Ref())
			m.focus = focusQueue
		}
	case msg.String() == "a":
		if len(m.results) > 0 {
			m.svc.Add(m.results[m.resultCursor].Ref())
			m.statusMessage = "queued " + m.results[m.resultCursor].Title
		}
	}
	return m, nil
}

func (m *Model) clampCursor() {
	if m.cursor >= len(m.snap.Queue) {
		m.cursor = len(m.snap.Queue) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}
