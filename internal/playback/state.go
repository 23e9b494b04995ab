package playback

// State represents the player state machine.
//
// Exactly one authoritative instance exists, owned by the engine loop.
// Valid transitions:
//   - Stopped → Loading (toggle play, implicit play on insert, next/prev)
//   - Loading → Playing (backend Loaded)
//   - Loading → Error   (backend error after the automatic retry)
//   - Playing ↔ Paused  (toggle play; repeated toggles are idempotent)
//   - Playing → Loading (end of track, next/prev, jump)
//   - any     → Stopped (stop, queue exhausted, queue emptied)
type State int

const (
	StateStopped State = iota
	StateLoading
	StatePlaying
	StatePaused
	StateError
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateStopped:
		return "Stopped"
	case StateLoading:
		return "Loading"
	case StatePlaying:
		return "Playing"
	case StatePaused:
		return "Paused"
	case StateError:
		return "Error"
	default:
		return "Unknown"
	}
}

// IsActive returns true if a track is engaged (loading, playing or paused).
func (s State) IsActive() bool {
	return s == StateLoading || s == StatePlaying || s == StatePaused
}
