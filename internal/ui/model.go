// Package ui renders the player: the queue, a transport bar and a catalog
// search overlay. It holds no playback state of its own; every view is
// drawn from the engine's latest snapshot.
package ui

import (
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/avrille/cadenza/internal/catalog"
	"github.com/avrille/cadenza/internal/playback"
)

type focus int

const (
	focusQueue focus = iota
	focusSearchInput
	focusSearchResults
)

type Model struct {
	svc    playback.Service
	client *catalog.Client
	sub    *playback.Subscription
	keys   keyMap

	snap *playback.Snapshot

	width  int
	height int

	focus  focus
	cursor int // selection in the queue panel

	input         textinput.Model
	results       []catalog.Track
	resultCursor  int
	lastQuery     string
	statusMessage string
}

// New creates the root model. The catalog client may be nil when the app
// runs offline; search is disabled in that case.
func New(svc playback.Service, client *catalog.Client) Model {
	input := textinput.New()
	input.Placeholder = "search tracks"
	input.CharLimit = 120

	return Model{
		svc:    svc,
		client: client,
		sub:    svc.Subscribe(),
		keys:   defaultKeyMap(),
		snap:   svc.Snapshot(),
		input:  input,
	}
}

func (m Model) Init() tea.Cmd {
	return waitEvent(m.sub)
}
