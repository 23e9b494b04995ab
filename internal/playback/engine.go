package playback

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/avrille/cadenza/internal/backend"
	"github.com/avrille/cadenza/internal/queue"
	"github.com/avrille/cadenza/internal/session"
)

const commandBufferSize = 256

// Gate guards track loads behind session validity. Authorize blocks until a
// usable access token exists or returns an error (session.ErrAuthRequired
// when re-authentication is needed).
type Gate interface {
	Authorize(ctx context.Context) error
}

// Engine owns the player state machine and the queue. All mutation happens
// on a single goroutine that drains the command bus; commands are applied
// strictly in arrival order. Every public method is safe for concurrent use:
// writers enqueue commands, readers get the last published snapshot.
type Engine struct {
	backend backend.Interface
	queue   *queue.Queue
	gate    Gate
	log     *slog.Logger

	cmds      chan command
	ctx       context.Context
	cancel    context.CancelFunc
	loopDone  chan struct{}
	closeOnce sync.Once

	snap atomic.Pointer[Snapshot]

	subsMu sync.RWMutex
	subs   []*Subscription

	// Loop-owned state. Only the run goroutine touches these.
	state     State
	position  time.Duration
	buffering float64
	volume    int
	seq       uint64 // load generation; backend events carry the seq of their load
	retried   bool   // the current load already consumed its automatic retry
	lastErr   string
	sessionSt session.Status
}

// New creates an engine over the given backend and queue. gate may be nil
// when no session management is wanted (tests, local files).
func New(b backend.Interface, q *queue.Queue, gate Gate, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Engine{
		backend:   b,
		queue:     q,
		gate:      gate,
		log:       log,
		cmds:      make(chan command, commandBufferSize),
		ctx:       ctx,
		cancel:    cancel,
		loopDone:  make(chan struct{}),
		volume:    100,
		sessionSt: session.StatusReady,
	}
}

// Start launches the command loop and the backend event pump.
func (e *Engine) Start() {
	e.publish()
	go e.run()
	go e.pumpBackend()
}

// Close stops the command loop and closes all subscriptions. The backend is
// owned by the caller and is not closed here.
func (e *Engine) Close() error {
	e.closeOnce.Do(func() {
		e.cancel()
		<-e.loopDone
		e.subsMu.Lock()
		for _, s := range e.subs {
			s.close()
		}
		e.subs = nil
		e.subsMu.Unlock()
	})
	return nil
}

// Snapshot returns the last published state. Never nil after Start.
func (e *Engine) Snapshot() *Snapshot {
	return e.snap.Load()
}

// Subscribe registers a new event subscriber. Callers that outlive the
// engine may rely on Close releasing them; transient subscribers (one per
// watch connection, say) must call Unsubscribe when done.
func (e *Engine) Subscribe() *Subscription {
	s := newSubscription()
	e.subsMu.Lock()
	e.subs = append(e.subs, s)
	e.subsMu.Unlock()
	return s
}

// Unsubscribe removes a subscriber and closes its Done channel. Safe to call
// more than once and after Close.
func (e *Engine) Unsubscribe(sub *Subscription) {
	e.subsMu.Lock()
	defer e.subsMu.Unlock()
	for i, s := range e.subs {
		if s == sub {
			e.subs = append(e.subs[:i], e.subs[i+1:]...)
			sub.close()
			return
		}
	}
}

// SetVolumeInitial seeds the volume before Start without touching the
// backend ramp, for restoring persisted state.
func (e *Engine) SetVolumeInitial(percent int) {
	e.volume = clampVolume(percent)
	e.backend.SetVolume(e.volume)
}

func (e *Engine) Play()                          { e.submit(playCmd{}) }
func (e *Engine) Pause()                         { e.submit(pauseCmd{}) }
func (e *Engine) TogglePlay()                    { e.submit(togglePlayCmd{}) }
func (e *Engine) Stop()                          { e.submit(stopCmd{}) }
func (e *Engine) Next()                          { e.submit(nextCmd{}) }
func (e *Engine) Previous()                      { e.submit(prevCmd{}) }
func (e *Engine) JumpTo(index int)               { e.submit(jumpToCmd{index: index}) }
func (e *Engine) SeekTo(pos time.Duration)       { e.submit(seekToCmd{pos: pos}) }
func (e *Engine) SeekBy(delta time.Duration)     { e.submit(seekByCmd{delta: delta}) }
func (e *Engine) SetVolume(percent int)          { e.submit(setVolumeCmd{percent: percent}) }
func (e *Engine) Add(tracks ...queue.Track)      { e.submit(addCmd{tracks: tracks}) }
func (e *Engine) PlayNow(tracks ...queue.Track)  { e.submit(addCmd{tracks: tracks, playNow: true}) }
func (e *Engine) Insert(pos int, tracks ...queue.Track) {
	e.submit(insertCmd{pos: pos, tracks: tracks})
}
func (e *Engine) ReplaceQueue(tracks ...queue.Track) { e.submit(replaceCmd{tracks: tracks}) }
func (e *Engine) Remove(index int)                   { e.submit(removeCmd{index: index}) }
func (e *Engine) ClearQueue()                        { e.submit(clearCmd{}) }
func (e *Engine) SetShuffle(on bool)                 { e.submit(setShuffleCmd{on: on}) }
func (e *Engine) ToggleShuffle()                     { e.submit(toggleShuffleCmd{}) }
func (e *Engine) SetRepeat(mode queue.RepeatMode)    { e.submit(setRepeatCmd{mode: mode}) }
func (e *Engine) CycleRepeat()                       { e.submit(cycleRepeatCmd{}) }
func (e *Engine) Reconnect()                         { e.submit(reconnectCmd{}) }

// SetSessionStatus forwards a session status transition onto the bus. Wired
// to the session manager's status callback.
func (e *Engine) SetSessionStatus(status session.Status) {
	e.submit(sessionStatusCmd{status: status})
}

var _ Service = (*Engine)(nil)

// submit enqueues a command. Position and buffering updates are advisory
// and may be dropped under pressure; everything else blocks until the loop
// accepts it (or the engine shuts down), so state changes are never lost.
func (e *Engine) submit(c command) {
	if be, ok := c.(backendEventCmd); ok && droppable(be.ev.Kind) {
		select {
		case e.cmds <- c:
		default:
		}
		return
	}
	select {
	case e.cmds <- c:
	case <-e.ctx.Done():
	}
}

func droppable(k backend.EventKind) bool {
	return k == backend.EventPosition || k == backend.EventBuffering
}

func (e *Engine) run() {
	defer close(e.loopDone)
	for {
		select {
		case <-e.ctx.Done():
			return
		case c := <-e.cmds:
			e.apply(c)
			e.publish()
		}
	}
}

func (e *Engine) pumpBackend() {
	for {
		select {
		case <-e.ctx.Done():
			return
		case ev, ok := <-e.backend.Events():
			if !ok {
				return
			}
			e.submit(backendEventCmd{ev: ev})
		}
	}
}

func (e *Engine) apply(c command) {
	switch c := c.(type) {
	case playCmd:
		e.applyPlay()
	case pauseCmd:
		if e.state == StatePlaying {
			e.backend.Pause()
			e.setState(StatePaused)
		}
	case togglePlayCmd:
		e.applyTogglePlay()
	case stopCmd:
		e.applyStop()
	case nextCmd:
		e.applySkip(e.queue.Next)
	case prevCmd:
		e.applySkip(e.queue.Prev)
	case jumpToCmd:
		e.applySkip(func() *queue.Track { return e.queue.JumpTo(c.index) })
	case seekToCmd:
		e.applySeek(c.pos)
	case seekByCmd:
		e.applySeek(e.position + c.delta)
	case setVolumeCmd:
		e.volume = clampVolume(c.percent)
		e.backend.SetVolume(e.volume)
	case addCmd:
		e.applyAdd(c)
	case insertCmd:
		e.applyInsert(c)
	case removeCmd:
		e.applyRemove(c.index)
	case clearCmd:
		e.queue.Clear()
		e.emitQueue()
		if e.state != StateStopped {
			e.applyStop()
		}
	case replaceCmd:
		e.applyReplace(c.tracks)
	case setShuffleCmd:
		e.queue.SetShuffle(c.on)
		e.emitMode()
		e.emitQueue()
	case toggleShuffleCmd:
		e.queue.ToggleShuffle()
		e.emitMode()
		e.emitQueue()
	case setRepeatCmd:
		e.queue.SetRepeat(c.mode)
		e.emitMode()
	case cycleRepeatCmd:
		e.queue.CycleRepeat()
		e.emitMode()
	case reconnectCmd:
		e.applyReconnect()
	case backendEventCmd:
		e.applyBackendEvent(c.ev)
	case sessionStatusCmd:
		if e.sessionSt != c.status {
			e.sessionSt = c.status
			e.forEachSub(func(s *Subscription) {
				s.sendSession(SessionChange{Status: c.status})
			})
		}
	}
}

func (e *Engine) applyPlay() {
	switch e.state {
	case StatePaused:
		e.backend.Play()
		e.setState(StatePlaying)
	case StateStopped, StateError:
		e.startFromCursor()
	}
	// Playing and Loading: already headed there.
}

func (e *Engine) applyTogglePlay() {
	switch e.state {
	case StatePlaying:
		e.backend.Pause()
		e.setState(StatePaused)
	case StatePaused:
		e.backend.Play()
		e.setState(StatePlaying)
	case StateStopped, StateError:
		e.startFromCursor()
	}
	// Loading: ignore until the pending load resolves.
}

// startFromCursor begins playback at the cursor, or at the first track when
// nothing is selected yet. No-op on an empty queue.
func (e *Engine) startFromCursor() {
	if e.queue.Current() == nil && e.queue.Next() == nil {
		return
	}
	e.startLoad(nil, -1)
}

func (e *Engine) applyStop() {
	e.seq++ // invalidate any in-flight load
	e.backend.Stop()
	e.position = 0
	e.buffering = 0
	e.setState(StateStopped)
}

// applySkip handles next/prev/jump: move the cursor and load whatever it
// lands on. When move reports nothing to advance to, the cursor and state
// stay as they are.
func (e *Engine) applySkip(move func() *queue.Track) {
	prev := cloneTrack(e.queue.Current())
	prevIdx := e.queue.CurrentIndex()
	if move() == nil {
		return
	}
	e.startLoad(prev, prevIdx)
}

func (e *Engine) applySeek(pos time.Duration) {
	if e.state != StatePlaying && e.state != StatePaused {
		return
	}
	if pos < 0 {
		pos = 0
	}
	if d := e.trackDuration(); d > 0 && pos > d {
		pos = d
	}
	e.backend.Seek(pos)
	e.position = pos
	e.forEachSub(func(s *Subscription) {
		s.sendPosition(PositionChange{Position: pos})
	})
}

func (e *Engine) applyAdd(c addCmd) {
	if len(c.tracks) == 0 {
		return
	}
	wasEmpty := e.queue.IsEmpty()
	e.queue.Add(c.tracks...)
	e.emitQueue()
	switch {
	case c.playNow:
		prev := cloneTrack(e.queue.Current())
		prevIdx := e.queue.CurrentIndex()
		e.queue.JumpTo(e.queue.Len() - len(c.tracks))
		e.startLoad(prev, prevIdx)
	case wasEmpty && e.state == StateStopped:
		// Implicit play: adding to an empty idle queue starts playback.
		e.queue.JumpTo(0)
		e.startLoad(nil, -1)
	}
}

func (e *Engine) applyInsert(c insertCmd) {
	if len(c.tracks) == 0 {
		return
	}
	wasEmpty := e.queue.IsEmpty()
	e.queue.Insert(c.pos, c.tracks...)
	e.emitQueue()
	if wasEmpty && e.state == StateStopped {
		e.queue.JumpTo(0)
		e.startLoad(nil, -1)
	}
}

func (e *Engine) applyReplace(tracks []queue.Track) {
	first := e.queue.Replace(tracks...)
	e.emitQueue()
	if first == nil {
		if e.state != StateStopped {
			e.applyStop()
		}
		return
	}
	e.startLoad(nil, -1)
}

func (e *Engine) applyRemove(index int) {
	cur := cloneTrack(e.queue.Current())
	curIdx := e.queue.CurrentIndex()
	removedCurrent, ok := e.queue.RemoveAt(index)
	if !ok {
		return
	}
	e.emitQueue()
	if !removedCurrent {
		return
	}
	if e.state == StateStopped || e.state == StateError {
		return
	}
	// The active track went away mid-playback: resolve it like an end of
	// track. RemoveAt left the cursor on the successor, except past the end
	// where repeat policy decides between wrapping and stopping.
	if e.queue.IsEmpty() {
		e.applyStop()
		return
	}
	if index == e.queue.Len() { // removed the last entry
		if e.queue.Repeat() != queue.RepeatAll {
			e.applyStop()
			return
		}
		e.queue.JumpTo(0)
	}
	e.startLoad(cur, curIdx)
}

func (e *Engine) applyReconnect() {
	if e.gate == nil {
		return
	}
	go func() {
		if err := e.gate.Authorize(e.ctx); err != nil {
			e.log.Warn("reconnect failed", "error", err)
			e.emitError("reconnect", "", err)
		}
	}()
}

// startLoad begins loading the track under the cursor. prev/prevIdx describe
// the track that was active before the cursor moved, for the TrackChange
// event; pass nil/-1 when playback starts from idle.
func (e *Engine) startLoad(prev *queue.Track, prevIdx int) {
	cur := e.queue.Current()
	if cur == nil {
		e.applyStop()
		return
	}
	e.seq++
	e.retried = false
	e.position = 0
	e.buffering = 0
	e.lastErr = ""
	e.setState(StateLoading)
	e.emitTrackChange(prev, prevIdx)
	go e.load(cur.ID, e.seq)
}

// load runs off the loop so a slow session refresh or network dial never
// stalls command processing. The result comes back as a backend event
// tagged with seq; the loop discards it if a newer load superseded it.
func (e *Engine) load(trackID string, seq uint64) {
	if e.gate != nil {
		if err := e.gate.Authorize(e.ctx); err != nil {
			e.submit(backendEventCmd{ev: backend.Event{
				Seq:  seq,
				Kind: backend.EventError,
				Err:  err,
			}})
			return
		}
	}
	e.backend.Load(e.ctx, trackID, seq)
}

func (e *Engine) applyBackendEvent(ev backend.Event) {
	if ev.Seq != e.seq {
		return // stale: belongs to a superseded load
	}
	switch ev.Kind {
	case backend.EventLoaded:
		if e.state == StateLoading {
			e.buffering = 0
			e.backend.Play()
			e.setState(StatePlaying)
		}
	case backend.EventBuffering:
		e.buffering = ev.Progress
	case backend.EventPosition:
		e.position = ev.Position
		e.forEachSub(func(s *Subscription) {
			s.sendPosition(PositionChange{Position: ev.Position})
		})
	case backend.EventEndOfTrack:
		if e.state == StatePlaying || e.state == StatePaused {
			e.advanceAfterEnd()
		}
	case backend.EventError:
		e.handleLoadError(ev.Err)
	}
}

func (e *Engine) advanceAfterEnd() {
	prev := cloneTrack(e.queue.Current())
	prevIdx := e.queue.CurrentIndex()
	next := e.queue.NextAfterEnd()
	if next == nil {
		e.applyStop()
		return
	}
	e.startLoad(prev, prevIdx)
}

// handleLoadError resolves a failed load: one automatic retry, then surface
// the error and skip to the next track. Auth failures and skips that would
// land back on the same track stop in Error instead of looping.
func (e *Engine) handleLoadError(err error) {
	cur := e.queue.Current()
	id := e.currentTrackID()
	if errors.Is(err, session.ErrAuthRequired) {
		e.log.Warn("track load rejected, authentication required", "track", id)
		e.lastErr = err.Error()
		e.backend.Stop()
		e.setState(StateError)
		e.emitError("load track", id, err)
		return
	}
	if !e.retried && cur != nil {
		e.retried = true
		e.seq++
		e.log.Warn("track load failed, retrying", "track", id, "error", err)
		go e.load(id, e.seq)
		return
	}
	e.log.Error("track load failed, skipping", "track", id, "error", err)
	e.lastErr = err.Error()
	e.emitError("load track", id, err)
	prevIdx := e.queue.CurrentIndex()
	next := e.queue.NextAfterEnd()
	if next == nil || next.ID == id {
		e.backend.Stop()
		e.setState(StateError)
		return
	}
	e.startLoad(cur, prevIdx)
}

func (e *Engine) setState(s State) {
	if s == e.state {
		return
	}
	prev := e.state
	e.state = s
	e.forEachSub(func(sub *Subscription) {
		sub.sendState(StateChange{Previous: prev, Current: s})
	})
}

func (e *Engine) emitTrackChange(prev *queue.Track, prevIdx int) {
	cur := cloneTrack(e.queue.Current())
	idx := e.queue.CurrentIndex()
	if prev != nil && cur != nil && prev.ID == cur.ID && prevIdx == idx {
		return // RepeatOne reload of the same entry
	}
	e.forEachSub(func(s *Subscription) {
		s.sendTrack(TrackChange{
			Previous:      prev,
			Current:       cur,
			PreviousIndex: prevIdx,
			Index:         idx,
		})
	})
}

func (e *Engine) emitQueue() {
	tracks := e.queue.ActiveTracks()
	idx := e.queue.CurrentIndex()
	e.forEachSub(func(s *Subscription) {
		s.sendQueue(QueueChange{Tracks: tracks, Index: idx})
	})
}

func (e *Engine) emitMode() {
	ev := ModeChange{Repeat: e.queue.Repeat(), Shuffle: e.queue.Shuffle()}
	e.forEachSub(func(s *Subscription) {
		s.sendMode(ev)
	})
}

func (e *Engine) emitError(op, trackID string, err error) {
	ev := ErrorEvent{Operation: op, TrackID: trackID, Err: err}
	e.forEachSub(func(s *Subscription) {
		s.sendError(ev)
	})
}

func (e *Engine) forEachSub(f func(*Subscription)) {
	e.subsMu.RLock()
	defer e.subsMu.RUnlock()
	for _, s := range e.subs {
		f(s)
	}
}

func (e *Engine) publish() {
	e.snap.Store(&Snapshot{
		State:          e.state,
		Track:          cloneTrack(e.queue.Current()),
		Position:       e.position,
		Duration:       e.trackDuration(),
		Buffering:      e.buffering,
		Volume:         e.volume,
		Queue:          e.queue.ActiveTracks(),
		QueueIndex:     e.queue.CurrentIndex(),
		CanonicalQueue: e.queue.Tracks(),
		CanonicalIndex: e.queue.CanonicalIndex(),
		Repeat:         e.queue.Repeat(),
		Shuffle:        e.queue.Shuffle(),
		Session:        e.sessionSt,
		Err:            e.lastErr,
	})
}

func (e *Engine) trackDuration() time.Duration {
	if d := e.backend.Duration(); d > 0 {
		return d
	}
	if t := e.queue.Current(); t != nil {
		return t.Duration
	}
	return 0
}

func (e *Engine) currentTrackID() string {
	if t := e.queue.Current(); t != nil {
		return t.ID
	}
	return ""
}

func cloneTrack(t *queue.Track) *queue.Track {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}

func clampVolume(percent int) int {
	if percent < 0 {
		return 0
	}
	if percent > 100 {
		return 100
	}
	return percent
}
