package backend

import (
	"context"
	"sync"
	"time"
)

// Mock is a test double for the playback backend. Loads do not complete on
// their own; tests drive the event stream with the Emit helpers.
type Mock struct {
	mu        sync.Mutex
	events    chan Event
	loadCalls []string
	loadSeqs  []uint64
	playCalls int
	pauseAll  int
	stopCalls int
	seekCalls []time.Duration
	volCalls  []int
	duration  time.Duration
}

// NewMock creates a new mock backend.
func NewMock() *Mock {
	return &Mock{
		events: make(chan Event, 64),
	}
}

func (m *Mock) Load(_ context.Context, trackID string, seq uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loadCalls = append(m.loadCalls, trackID)
	m.loadSeqs = append(m.loadSeqs, seq)
}

func (m *Mock) Play() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.playCalls++
}

func (m *Mock) Pause() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pauseAll++
}

func (m *Mock) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopCalls++
}

func (m *Mock) Seek(pos time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seekCalls = append(m.seekCalls, pos)
}

func (m *Mock) SetVolume(percent int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.volCalls = append(m.volCalls, percent)
}

func (m *Mock) Duration() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.duration
}

func (m *Mock) Events() <-chan Event {
	return m.events
}

func (m *Mock) Close() error {
	return nil
}

// Test helpers

func (m *Mock) SetDuration(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.duration = d
}

// LoadCalls returns the track ids passed to Load, in order.
func (m *Mock) LoadCalls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.loadCalls))
	copy(out, m.loadCalls)
	return out
}

// LastLoadSeq returns the seq of the most recent Load call (0 if none).
func (m *Mock) LastLoadSeq() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.loadSeqs) == 0 {
		return 0
	}
	return m.loadSeqs[len(m.loadSeqs)-1]
}

func (m *Mock) PlayCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.playCalls
}

func (m *Mock) PauseCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pauseAll
}

func (m *Mock) StopCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stopCalls
}

func (m *Mock) SeekCalls() []time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]time.Duration, len(m.seekCalls))
	copy(out, m.seekCalls)
	return out
}

func (m *Mock) VolumeCalls() []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]int, len(m.volCalls))
	copy(out, m.volCalls)
	return out
}

// EmitLoaded simulates a completed load for the given seq.
func (m *Mock) EmitLoaded(seq uint64) {
	m.events <- Event{Seq: seq, Kind: EventLoaded}
}

// EmitEndOfTrack simulates the loaded track finishing.
func (m *Mock) EmitEndOfTrack(seq uint64) {
	m.events <- Event{Seq: seq, Kind: EventEndOfTrack}
}

// EmitError simulates a failed load.
func (m *Mock) EmitError(seq uint64, err error) {
	m.events <- Event{Seq: seq, Kind: EventError, Err: err}
}

// EmitPosition simulates a position update.
func (m *Mock) EmitPosition(seq uint64, pos time.Duration) {
	m.events <- Event{Seq: seq, Kind: EventPosition, Position: pos}
}

// EmitBuffering simulates a buffering progress report.
func (m *Mock) EmitBuffering(seq uint64, progress float64) {
	m.events <- Event{Seq: seq, Kind: EventBuffering, Progress: progress}
}

// Verify Mock implements Interface at compile time.
var _ Interface = (*Mock)(nil)
