package state

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/avrille/cadenza/internal/queue"
)

func openTestManager(t *testing.T) *Manager {
	t.Helper()
	m, err := OpenAt(filepath.Join(t.TempDir(), "cadenza.db"))
	if err != nil {
		t.Fatalf("OpenAt() error = %v", err)
	}
	t.Cleanup(func() { m.Close() })
	return m
}

func sampleTracks() []queue.Track {
	return []queue.Track{
		{ID: "t1", Title: "One", Artist: "A", Album: "X", Duration: 3 * time.Minute},
		{ID: "t2", Title: "Two", Artist: "B", Album: "Y", Duration: 4 * time.Minute},
		{ID: "t3", Title: "Three"},
	}
}

func TestGetQueueEmptyDatabase(t *testing.T) {
	m := openTestManager(t)

	got, err := m.GetQueue()
	if err != nil {
		t.Fatalf("GetQueue() error = %v", err)
	}
	if got.CurrentIndex != -1 {
		t.Errorf("CurrentIndex = %d, want -1", got.CurrentIndex)
	}
	if got.Volume != 100 {
		t.Errorf("Volume = %d, want 100", got.Volume)
	}
	if len(got.Tracks) != 0 {
		t.Errorf("Tracks = %v, want empty", got.Tracks)
	}
}

func TestSaveAndGetQueue(t *testing.T) {
	m := openTestManager(t)

	saved := QueueState{
		CurrentIndex: 1,
		RepeatMode:   int(queue.RepeatAll),
		Shuffle:      true,
		Volume:       40,
		Tracks:       sampleTracks(),
	}
	if err := saveQueue(m.db, saved); err != nil {
		t.Fatalf("saveQueue() error = %v", err)
	}

	got, err := m.GetQueue()
	if err != nil {
		t.Fatalf("GetQueue() error = %v", err)
	}
	if got.CurrentIndex != 1 {
		t.Errorf("CurrentIndex = %d, want 1", got.CurrentIndex)
	}
	if got.RepeatMode != int(queue.RepeatAll) {
		t.Errorf("RepeatMode = %d, want %d", got.RepeatMode, queue.RepeatAll)
	}
	if !got.Shuffle {
		t.Error("Shuffle = false, want true")
	}
	if got.Volume != 40 {
		t.Errorf("Volume = %d, want 40", got.Volume)
	}
	if len(got.Tracks) != 3 {
		t.Fatalf("len(Tracks) = %d, want 3", len(got.Tracks))
	}
	if got.Tracks[0] != sampleTracks()[0] {
		t.Errorf("Tracks[0] = %+v, want %+v", got.Tracks[0], sampleTracks()[0])
	}
	if got.Tracks[2].Duration != 0 {
		t.Errorf("Tracks[2].Duration = %v, want 0", got.Tracks[2].Duration)
	}
}

func TestSaveQueueReplacesPrevious(t *testing.T) {
	m := openTestManager(t)

	if err := saveQueue(m.db, QueueState{CurrentIndex: 0, Volume: 100, Tracks: sampleTracks()}); err != nil {
		t.Fatalf("first saveQueue() error = %v", err)
	}
	if err := saveQueue(m.db, QueueState{CurrentIndex: 0, Volume: 100, Tracks: sampleTracks()[:1]}); err != nil {
		t.Fatalf("second saveQueue() error = %v", err)
	}

	got, err := m.GetQueue()
	if err != nil {
		t.Fatalf("GetQueue() error = %v", err)
	}
	if len(got.Tracks) != 1 {
		t.Errorf("len(Tracks) = %d, want 1", len(got.Tracks))
	}
}

func TestDebouncedSaveFlushesOnClose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cadenza.db")
	m, err := OpenAt(path)
	if err != nil {
		t.Fatalf("OpenAt() error = %v", err)
	}

	m.SaveQueue(QueueState{CurrentIndex: 2, Volume: 70, Tracks: sampleTracks()})
	// Close before the debounce window elapses; the pending state must land.
	if err := m.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	reopened, err := OpenAt(path)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer reopened.Close()

	got, err := reopened.GetQueue()
	if err != nil {
		t.Fatalf("GetQueue() error = %v", err)
	}
	if got.CurrentIndex != 2 || got.Volume != 70 || len(got.Tracks) != 3 {
		t.Errorf("restored = %+v, want index 2, volume 70, 3 tracks", got)
	}
}

func TestFlushWritesPending(t *testing.T) {
	m := openTestManager(t)

	m.SaveQueue(QueueState{CurrentIndex: 0, Volume: 55, Tracks: sampleTracks()[:2]})
	if err := m.Flush(); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}

	got, err := m.GetQueue()
	if err != nil {
		t.Fatalf("GetQueue() error = %v", err)
	}
	if got.Volume != 55 || len(got.Tracks) != 2 {
		t.Errorf("restored = %+v, want volume 55 and 2 tracks", got)
	}
}

func TestDebounceCoalescesSaves(t *testing.T) {
	m := openTestManager(t)

	m.SaveQueue(QueueState{CurrentIndex: 0, Volume: 10, Tracks: sampleTracks()})
	m.SaveQueue(QueueState{CurrentIndex: 1, Volume: 20, Tracks: sampleTracks()})
	if err := m.Flush(); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}

	got, err := m.GetQueue()
	if err != nil {
		t.Fatalf("GetQueue() error = %v", err)
	}
	// Last write wins.
	if got.CurrentIndex != 1 || got.Volume != 20 {
		t.Errorf("restored index/volume = %d/%d, want 1/20", got.CurrentIndex, got.Volume)
	}
}

func TestRestoreRebuildsQueue(t *testing.T) {
	s := QueueState{
		CurrentIndex: 1,
		RepeatMode:   int(queue.RepeatOne),
		Shuffle:      true,
		Tracks:       sampleTracks(),
	}

	q := queue.NewSeeded(7)
	s.Restore(q)

	if q.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", q.Len())
	}
	if got := q.Current(); got == nil || got.ID != "t2" {
		t.Errorf("Current() = %+v, want t2", got)
	}
	if q.Repeat() != queue.RepeatOne {
		t.Errorf("Repeat() = %v, want One", q.Repeat())
	}
	if !q.Shuffle() {
		t.Error("Shuffle() = false, want true")
	}
	// Shuffle pins the restored current track first.
	if got := q.CurrentIndex(); got != 0 {
		t.Errorf("CurrentIndex() = %d, want 0", got)
	}
}
