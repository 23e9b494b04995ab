package playback

import (
	"time"

	"github.com/avrille/cadenza/internal/backend"
	"github.com/avrille/cadenza/internal/queue"
	"github.com/avrille/cadenza/internal/session"
)

// command is one unit of work for the engine loop. User actions, remote
// requests and backend events all become commands on the same bus, giving
// them a single total order: strict arrival order is authoritative.
type command interface{ isCommand() }

type playCmd struct{}

type pauseCmd struct{}

type togglePlayCmd struct{}

type stopCmd struct{}

type nextCmd struct{}

type prevCmd struct{}

type jumpToCmd struct{ index int }

type seekToCmd struct{ pos time.Duration }

type seekByCmd struct{ delta time.Duration }

type setVolumeCmd struct{ percent int }

type addCmd struct {
	tracks  []queue.Track
	playNow bool
}

type insertCmd struct {
	pos    int
	tracks []queue.Track
}

type removeCmd struct{ index int }

type clearCmd struct{}

type replaceCmd struct{ tracks []queue.Track }

type setShuffleCmd struct{ on bool }

type toggleShuffleCmd struct{}

type setRepeatCmd struct{ mode queue.RepeatMode }

type cycleRepeatCmd struct{}

type reconnectCmd struct{}

// backendEventCmd wraps an asynchronous backend event entering the bus.
type backendEventCmd struct{ ev backend.Event }

// sessionStatusCmd reports a session status transition.
type sessionStatusCmd struct{ status session.Status }

func (playCmd) isCommand()          {}
func (pauseCmd) isCommand()         {}
func (togglePlayCmd) isCommand()    {}
func (stopCmd) isCommand()          {}
func (nextCmd) isCommand()          {}
func (prevCmd) isCommand()          {}
func (jumpToCmd) isCommand()        {}
func (seekToCmd) isCommand()        {}
func (seekByCmd) isCommand()        {}
func (setVolumeCmd) isCommand()     {}
func (addCmd) isCommand()           {}
func (insertCmd) isCommand()        {}
func (removeCmd) isCommand()        {}
func (clearCmd) isCommand()         {}
func (replaceCmd) isCommand()       {}
func (setShuffleCmd) isCommand()    {}
func (toggleShuffleCmd) isCommand() {}
func (setRepeatCmd) isCommand()     {}
func (cycleRepeatCmd) isCommand()   {}
func (reconnectCmd) isCommand()     {}
func (backendEventCmd) isCommand()  {}
func (sessionStatusCmd) isCommand() {}
