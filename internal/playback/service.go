package playback

import (
	"time"

	"github.com/avrille/cadenza/internal/queue"
)

// Service is the playback contract consumed by the UI and the control
// surfaces (remote socket, MPRIS). All mutating calls enqueue a command on
// the bus and return immediately; reads are served from the last published
// snapshot and never round-trip through the bus.
type Service interface {
	// Playback control
	Play()
	Pause()
	TogglePlay()
	Stop()
	Next()
	Previous()
	JumpTo(index int)
	SeekTo(pos time.Duration)
	SeekBy(delta time.Duration)
	SetVolume(percent int)

	// Queue manipulation
	Add(tracks ...queue.Track)
	PlayNow(tracks ...queue.Track)
	ReplaceQueue(tracks ...queue.Track)
	Insert(pos int, tracks ...queue.Track)
	Remove(index int)
	ClearQueue()

	// Mode control
	SetShuffle(on bool)
	ToggleShuffle()
	SetRepeat(mode queue.RepeatMode)
	CycleRepeat()

	// Session control
	Reconnect()

	// Observation
	Snapshot() *Snapshot
	Subscribe() *Subscription
	Unsubscribe(sub *Subscription)

	// Lifecycle
	Close() error
}
