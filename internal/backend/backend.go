// Package backend is the capability boundary to the streaming/decoding
// layer. The orchestrator drives it through Interface and consumes its
// asynchronous Event stream; it never blocks on backend work.
package backend

import (
	"context"
	"errors"
	"time"
)

// ErrUnplayable marks a track-specific playback failure (bad stream,
// unsupported content, region lock). The orchestrator skips such tracks
// instead of retrying indefinitely.
var ErrUnplayable = errors.New("track is not playable")

// EventKind discriminates backend events.
type EventKind int

const (
	// EventLoaded signals that a Load completed and audio is ready.
	EventLoaded EventKind = iota
	// EventBuffering reports load progress in [0, 1].
	EventBuffering
	// EventPosition reports the current playback position.
	EventPosition
	// EventEndOfTrack signals that the loaded track played to completion.
	EventEndOfTrack
	// EventError reports a failed load or a decode error.
	EventError
)

// String returns the event kind name.
func (k EventKind) String() string {
	switch k {
	case EventLoaded:
		return "Loaded"
	case EventBuffering:
		return "Buffering"
	case EventPosition:
		return "Position"
	case EventEndOfTrack:
		return "EndOfTrack"
	case EventError:
		return "Error"
	default:
		return "Unknown"
	}
}

// Event is an asynchronous notification from the backend. Seq echoes the
// sequence number of the Load call the event belongs to, so a consumer can
// discard results from superseded loads.
type Event struct {
	Seq      uint64
	Kind     EventKind
	Position time.Duration
	Progress float64
	Err      error
}

// Interface is the playback capability consumed by the orchestrator.
//
// Load is asynchronous: it returns immediately and reports completion or
// failure through the event stream, tagged with seq. Issuing a new Load
// supersedes any in-flight one. The remaining calls act on the most
// recently loaded audio and are safe to call in any state.
type Interface interface {
	Load(ctx context.Context, trackID string, seq uint64)
	Play()
	Pause()
	Stop()
	Seek(pos time.Duration)
	SetVolume(percent int)
	Duration() time.Duration
	Events() <-chan Event
	Close() error
}
