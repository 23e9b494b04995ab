package queue

import "time"

// Track is an immutable reference to a playable catalog item.
// Entries are never mutated in place, only replaced.
type Track struct {
	ID       string
	Title    string
	Artist   string
	Album    string
	Duration time.Duration
}
