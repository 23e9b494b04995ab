package ui

import (
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"

	"github.com/avrille/cadenza/internal/backend"
	"github.com/avrille/cadenza/internal/playback"
	"github.com/avrille/cadenza/internal/queue"
)

func newTestModel(t *testing.T, tracks ...queue.Track) (Model, *backend.Mock, *playback.Engine) {
	t.Helper()
	m := backend.NewMock()
	q := queue.NewSeeded(1)
	q.Add(tracks...)
	e := playback.New(m, q, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
	e.Start()
	t.Cleanup(func() { e.Close() })
	model := New(e, nil)
	model.width = 80
	model.height = 24
	return model, m, e
}

func keyMsg(s string) tea.KeyMsg {
	if s == " " {
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestSpaceTogglesPlayback(t *testing.T) {
	model, mock, _ := newTestModel(t, queue.Track{ID: "a", Title: "A"})

	model.Update(keyMsg(" "))

	require.Eventually(t, func() bool {
		return len(mock.LoadCalls()) == 1
	}, 2*time.Second, 2*time.Millisecond, "space did not start playback")
}

func TestNextKeySkips(t *testing.T) {
	model, mock, _ := newTestModel(t, queue.Track{ID: "a"}, queue.Track{ID: "b"})

	model.Update(keyMsg(" "))
	require.Eventually(t, func() bool {
		return len(mock.LoadCalls()) == 1
	}, 2*time.Second, 2*time.Millisecond)

	model.Update(keyMsg("n"))
	require.Eventually(t, func() bool {
		calls := mock.LoadCalls()
		return len(calls) == 2 && calls[1] == "b"
	}, 2*time.Second, 2*time.Millisecond, "n did not skip to the next track")
}

func TestCursorMovesWithinQueue(t *testing.T) {
	model, _, e := newTestModel(t, queue.Track{ID: "a"}, queue.Track{ID: "b"})
	model.snap = e.Snapshot()

	next, _ := model.Update(keyMsg("j"))
	m := next.(Model)
	if m.cursor != 1 {
		t.Errorf("cursor = %d, want 1", m.cursor)
	}
	next, _ = m.Update(keyMsg("j"))
	m = next.(Model)
	if m.cursor != 1 {
		t.Errorf("cursor = %d, want clamp at 1", m.cursor)
	}
	next, _ = m.Update(keyMsg("k"))
	m = next.(Model)
	if m.cursor != 0 {
		t.Errorf("cursor = %d, want 0", m.cursor)
	}
}

func TestPlayerEventRefreshesSnapshot(t *testing.T) {
	model, _, e := newTestModel(t, queue.Track{ID: "a"})

	e.SetVolume(33)
	require.Eventually(t, func() bool {
		return e.Snapshot().Volume == 33
	}, 2*time.Second, 2*time.Millisecond)

	next, cmd := model.Update(playerEventMsg{})
	m := next.(Model)
	if m.snap.Volume != 33 {
		t.Errorf("snapshot volume = %d, want 33", m.snap.Volume)
	}
	if cmd == nil {
		t.Error("update must re-issue the event wait command")
	}
}

func TestErrorMessageShownInStatusLine(t *testing.T) {
	model, _, _ := newTestModel(t, queue.Track{ID: "a"})

	next, _ := model.Update(playerErrorMsg{message: "load track: boom"})
	m := next.(Model)

	view := m.View()
	if !strings.Contains(view, "load track: boom") {
		t.Errorf("view does not show the error message:\n%s", view)
	}
}

func TestViewShowsQueueAndTransport(t *testing.T) {
	model, _, e := newTestModel(t,
		queue.Track{ID: "a", Title: "Alpha", Artist: "Ann", Duration: 3 * time.Minute},
		queue.Track{ID: "b", Title: "Beta", Artist: "Bob"},
	)
	model.snap = e.Snapshot()

	view := model.View()
	if !strings.Contains(view, "Alpha") || !strings.Contains(view, "Beta") {
		t.Errorf("queue tracks missing from view:\n%s", view)
	}
	if !strings.Contains(view, "nothing playing") {
		t.Errorf("transport bar missing from view:\n%s", view)
	}
	if !strings.Contains(view, "vol 100%") {
		t.Errorf("volume missing from view:\n%s", view)
	}
}

func TestSearchUnavailableWithoutClient(t *testing.T) {
	model, _, _ := newTestModel(t, queue.Track{ID: "a"})

	next, _ := model.Update(keyMsg("/"))
	m := next.(Model)
	if m.focus != focusQueue {
		t.Errorf("focus = %v, want queue focus without a client", m.focus)
	}
	if !strings.Contains(m.statusMessage, "search unavailable") {
		t.Errorf("status = %q, want search unavailable notice", m.statusMessage)
	}
}

func TestQuitKey(t *testing.T) {
	model, _, _ := newTestModel(t)

	_, cmd := model.Update(keyMsg("q"))
	if cmd == nil {
		t.Fatal("q produced no command")
	}
	if msg := cmd(); msg == nil {
		t.Error("q command produced nil message, want tea.Quit")
	}
}
