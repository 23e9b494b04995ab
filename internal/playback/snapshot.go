package playback

import (
	"time"

	"github.com/avrille/cadenza/internal/queue"
	"github.com/avrille/cadenza/internal/session"
)

// Snapshot is an immutable point-in-time view of player and queue state.
// A new snapshot is published after every processed command; readers never
// observe a partially updated state and must not mutate one.
type Snapshot struct {
	State      State
	Track      *queue.Track // copy of the active track, nil if none
	Position   time.Duration
	Duration   time.Duration
	Buffering  float64 // load progress in [0, 1] while loading
	Volume     int     // percent in [0, 100]
	Queue      []queue.Track // active (possibly shuffled) ordering
	QueueIndex int           // cursor in the active ordering, -1 if unset
	// Canonical ordering, for persistence and display of the unshuffled list.
	CanonicalQueue []queue.Track
	CanonicalIndex int
	Repeat         queue.RepeatMode
	Shuffle        bool
	Session        session.Status
	Err            string // last surfaced error, cleared on the next track
}

// HasTrack returns true if a track is engaged.
func (s *Snapshot) HasTrack() bool {
	return s != nil && s.Track != nil
}

// ProgressPercent returns playback progress as a percentage in [0, 100].
func (s *Snapshot) ProgressPercent() float64 {
	if s == nil || s.Duration == 0 {
		return 0
	}
	p := float64(s.Position) / float64(s.Duration) * 100
	if p > 100 {
		p = 100
	}
	return p
}
