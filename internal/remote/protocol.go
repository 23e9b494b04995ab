// Package remote exposes playback control over a unix domain socket so a
// companion CLI can drive a running player. The protocol is line-oriented:
// one JSON request per line, one JSON response per line, except for watch
// which streams a status line per player event until the client hangs up.
package remote

import (
	"time"

	"github.com/avrille/cadenza/internal/playback"
	"github.com/avrille/cadenza/internal/queue"
)

// Request operations.
const (
	OpPlay      = "play"
	OpPause     = "pause"
	OpToggle    = "toggle"
	OpStop      = "stop"
	OpNext      = "next"
	OpPrev      = "prev"
	OpJump      = "jump"
	OpSeek      = "seek"
	OpSeekBy    = "seek-by"
	OpVolume    = "volume"
	OpAdd       = "add"
	OpInsert    = "insert"
	OpRemove    = "remove"
	OpClear     = "clear"
	OpReplace   = "replace"
	OpShuffle   = "shuffle"
	OpRepeat    = "repeat"
	OpReconnect = "reconnect"
	OpStatus    = "status"
	OpWatch     = "watch"
)

// Request is one control command.
type Request struct {
	Op string `json:"op"`

	// Index selects a queue position for jump, insert and remove.
	Index *int `json:"index,omitempty"`
	// Ms is an absolute position for seek or a signed delta for seek-by.
	Ms *int64 `json:"ms,omitempty"`
	// Volume is a percentage in [0, 100].
	Volume *int `json:"volume,omitempty"`
	// On toggles shuffle explicitly; omitted means flip.
	On *bool `json:"on,omitempty"`
	// Mode is a repeat mode name (off, all, one); omitted means cycle.
	Mode string `json:"mode,omitempty"`
	// Tracks carries queue entries for add, insert and replace.
	Tracks []TrackSpec `json:"tracks,omitempty"`
}

// TrackSpec is a queue entry on the wire.
type TrackSpec struct {
	ID         string `json:"id"`
	Title      string `json:"title,omitempty"`
	Artist     string `json:"artist,omitempty"`
	Album      string `json:"album,omitempty"`
	DurationMS int64  `json:"duration_ms,omitempty"`
}

func (s TrackSpec) track() queue.Track {
	return queue.Track{
		ID:       s.ID,
		Title:    s.Title,
		Artist:   s.Artist,
		Album:    s.Album,
		Duration: time.Duration(s.DurationMS) * time.Millisecond,
	}
}

// Response is the reply to a request. Status is present on success.
type Response struct {
	OK     bool    `json:"ok"`
	Error  string  `json:"error,omitempty"`
	Status *Status `json:"status,omitempty"`
}

// Status is the wire form of a playback snapshot.
type Status struct {
	State      string     `json:"state"`
	Track      *TrackSpec `json:"track,omitempty"`
	PositionMS int64      `json:"position_ms"`
	DurationMS int64      `json:"duration_ms"`
	Volume     int        `json:"volume"`
	Shuffle    bool       `json:"shuffle"`
	Repeat     string     `json:"repeat"`
	QueueLen   int        `json:"queue_len"`
	QueueIndex int        `json:"queue_index"`
	Session    string     `json:"session"`
	Err        string     `json:"err,omitempty"`
}

func statusFromSnapshot(s *playback.Snapshot) *Status {
	st := &Status{
		State:      s.State.String(),
		PositionMS: s.Position.Milliseconds(),
		DurationMS: s.Duration.Milliseconds(),
		Volume:     s.Volume,
		Shuffle:    s.Shuffle,
		Repeat:     s.Repeat.String(),
		QueueLen:   len(s.Queue),
		QueueIndex: s.QueueIndex,
		Session:    s.Session.String(),
		Err:        s.Err,
	}
	if s.Track != nil {
		st.Track = &TrackSpec{
			ID:         s.Track.ID,
			Title:      s.Track.Title,
			Artist:     s.Track.Artist,
			Album:      s.Track.Album,
			DurationMS: s.Track.Duration.Milliseconds(),
		}
	}
	return st
}

// parseRepeat maps a wire mode name to a RepeatMode.
func parseRepeat(mode string) (queue.RepeatMode, bool) {
	switch mode {
	case "off":
		return queue.RepeatOff, true
	case "all":
		return queue.RepeatAll, true
	case "one":
		return queue.RepeatOne, true
	default:
		return queue.RepeatOff, false
	}
}
