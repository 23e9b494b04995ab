package playback

import (
	"time"

	"github.com/avrille/cadenza/internal/queue"
	"github.com/avrille/cadenza/internal/session"
)

// StateChange is emitted when the player state changes.
type StateChange struct {
	Previous State
	Current  State
}

// TrackChange is emitted when loading starts on a different track.
//
// Emitted whenever a transition changes which track is active: toggle play
// from stopped, next/prev/jump, end-of-track advancement, skip after a
// failed load. Pause/resume and stop do not emit TrackChange.
type TrackChange struct {
	Previous      *queue.Track
	Current       *queue.Track
	PreviousIndex int
	Index         int
}

// QueueChange is emitted when the queue contents change. Tracks is in the
// active (possibly shuffled) ordering.
type QueueChange struct {
	Tracks []queue.Track
	Index  int
}

// ModeChange is emitted when repeat or shuffle mode changes.
type ModeChange struct {
	Repeat  queue.RepeatMode
	Shuffle bool
}

// PositionChange is emitted on seeks and on backend position updates.
type PositionChange struct {
	Position time.Duration
}

// SessionChange is emitted when the session status changes.
type SessionChange struct {
	Status session.Status
}

// ErrorEvent is emitted when an operation fails in a way the user should
// see (a skipped track, an exhausted reconnect, a fatal auth error).
type ErrorEvent struct {
	Operation string // e.g. "load track", "seek"
	TrackID   string // track id if applicable
	Err       error
}
