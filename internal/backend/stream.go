package backend

import (
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"sync"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/speaker"
)

// Source provides authenticated audio streams for catalog tracks.
type Source interface {
	// OpenStream returns the track's audio stream and its size in bytes
	// (-1 if unknown).
	OpenStream(ctx context.Context, trackID string) (io.ReadCloser, int64, error)
}

const (
	eventBufferSize  = 64
	positionInterval = 500 * time.Millisecond
	spoolChunkSize   = 64 << 10
)

var speakerInitialized bool

// StreamPlayer plays catalog tracks through beep. Audio is spooled to an
// unlinked temporary file before decoding so the mp3 decoder can seek.
type StreamPlayer struct {
	source Source

	mu        sync.Mutex
	seq       uint64
	cancel    context.CancelFunc
	streamer  beep.StreamSeekCloser
	format    beep.Format
	ctrl      *beep.Ctrl
	volume    *effects.Volume
	file      *os.File
	duration  time.Duration
	playing   bool
	volumePct int

	events chan Event
	done   chan struct{}
	closed bool
}

// NewStreamPlayer creates a player that fetches audio from source.
func NewStreamPlayer(source Source) *StreamPlayer {
	p := &StreamPlayer{
		source:    source,
		volumePct: 100,
		events:    make(chan Event, eventBufferSize),
		done:      make(chan struct{}),
	}
	go p.positionLoop()
	return p
}

// Load fetches and decodes the track asynchronously. A new Load supersedes
// any in-flight one; results arrive on Events tagged with seq.
func (p *StreamPlayer) Load(ctx context.Context, trackID string, seq uint64) {
	p.mu.Lock()
	if p.cancel != nil {
		p.cancel()
	}
	ctx, p.cancel = context.WithCancel(ctx)
	p.seq = seq
	p.mu.Unlock()

	go p.load(ctx, trackID, seq)
}

func (p *StreamPlayer) load(ctx context.Context, trackID string, seq uint64) {
	file, err := p.spool(ctx, trackID, seq)
	if err != nil {
		if ctx.Err() == nil {
			p.emit(Event{Seq: seq, Kind: EventError, Err: err})
		}
		return
	}

	streamer, format, err := mp3.Decode(file)
	if err != nil {
		file.Close()
		p.emit(Event{Seq: seq, Kind: EventError,
			Err: fmt.Errorf("decode %s: %w: %w", trackID, ErrUnplayable, err)})
		return
	}

	if err := initSpeaker(format); err != nil {
		streamer.Close()
		file.Close()
		p.emit(Event{Seq: seq, Kind: EventError, Err: err})
		return
	}

	p.mu.Lock()
	if seq != p.seq {
		// Superseded while decoding; discard silently.
		p.mu.Unlock()
		streamer.Close()
		file.Close()
		return
	}
	p.teardownLocked()
	p.streamer = streamer
	p.format = format
	p.file = file
	p.duration = format.SampleRate.D(streamer.Len())
	p.ctrl = &beep.Ctrl{Streamer: streamer, Paused: true}
	p.volume = &effects.Volume{
		Streamer: p.ctrl,
		Base:     2,
		Volume:   volumeGain(p.volumePct),
		Silent:   p.volumePct == 0,
	}
	p.playing = false
	vol := p.volume
	p.mu.Unlock()

	speaker.Clear()
	speaker.Play(beep.Seq(vol, beep.Callback(func() {
		p.emit(Event{Seq: seq, Kind: EventEndOfTrack})
	})))

	p.emit(Event{Seq: seq, Kind: EventLoaded})
}

// spool copies the remote stream into an unlinked temp file, reporting
// buffering progress when the size is known.
func (p *StreamPlayer) spool(ctx context.Context, trackID string, seq uint64) (*os.File, error) {
	rc, size, err := p.source.OpenStream(ctx, trackID)
	if err != nil {
		return nil, fmt.Errorf("open stream for %s: %w", trackID, err)
	}
	defer rc.Close()

	tmp, err := os.CreateTemp("", "cadenza-*.mp3")
	if err != nil {
		return nil, fmt.Errorf("create spool file: %w", err)
	}
	os.Remove(tmp.Name())

	buf := make([]byte, spoolChunkSize)
	var written int64
	for {
		if ctx.Err() != nil {
			tmp.Close()
			return nil, ctx.Err()
		}
		n, rerr := rc.Read(buf)
		if n > 0 {
			if _, werr := tmp.Write(buf[:n]); werr != nil {
				tmp.Close()
				return nil, fmt.Errorf("spool %s: %w", trackID, werr)
			}
			written += int64(n)
			if size > 0 {
				p.emit(Event{Seq: seq, Kind: EventBuffering,
					Progress: float64(written) / float64(size)})
			}
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			tmp.Close()
			return nil, fmt.Errorf("read stream for %s: %w", trackID, rerr)
		}
	}

	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		tmp.Close()
		return nil, err
	}
	return tmp, nil
}

func initSpeaker(format beep.Format) error {
	if speakerInitialized {
		return nil
	}
	if err := speaker.Init(format.SampleRate, format.SampleRate.N(time.Second/10)); err != nil {
		return fmt.Errorf("init speaker: %w", err)
	}
	speakerInitialized = true
	return nil
}

// Play resumes (or starts) playback of the loaded audio.
func (p *StreamPlayer) Play() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ctrl == nil {
		return
	}
	speaker.Lock()
	p.ctrl.Paused = false
	speaker.Unlock()
	p.playing = true
}

// Pause pauses playback.
func (p *StreamPlayer) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ctrl == nil {
		return
	}
	speaker.Lock()
	p.ctrl.Paused = true
	speaker.Unlock()
	p.playing = false
}

// Stop stops playback and releases the loaded audio.
func (p *StreamPlayer) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	speaker.Clear()
	p.teardownLocked()
	p.playing = false
}

// Seek moves the playback position, clamped to the track bounds.
func (p *StreamPlayer) Seek(pos time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.streamer == nil {
		return
	}
	if pos < 0 {
		pos = 0
	}
	if pos > p.duration {
		pos = p.duration
	}
	speaker.Lock()
	_ = p.streamer.Seek(p.format.SampleRate.N(pos))
	speaker.Unlock()
}

// SetVolume sets the volume as a percentage in [0, 100].
func (p *StreamPlayer) SetVolume(percent int) {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.volumePct = percent
	if p.volume == nil {
		return
	}
	speaker.Lock()
	p.volume.Volume = volumeGain(percent)
	p.volume.Silent = percent == 0
	speaker.Unlock()
}

// volumeGain converts a 0-100 percentage to beep's logarithmic volume.
// 100 -> 0 (unity), 50 -> -1 (half), 25 -> -2.
func volumeGain(percent int) float64 {
	if percent <= 0 {
		return -10
	}
	if percent >= 100 {
		return 0
	}
	return math.Log2(float64(percent) / 100)
}

// Duration returns the duration of the loaded audio.
func (p *StreamPlayer) Duration() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.duration
}

// Events returns the backend event stream.
func (p *StreamPlayer) Events() <-chan Event {
	return p.events
}

// Close stops playback and shuts down the event loop.
func (p *StreamPlayer) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	if p.cancel != nil {
		p.cancel()
	}
	speaker.Clear()
	p.teardownLocked()
	p.mu.Unlock()
	close(p.done)
	return nil
}

func (p *StreamPlayer) teardownLocked() {
	if p.streamer != nil {
		p.streamer.Close()
		p.streamer = nil
	}
	if p.file != nil {
		p.file.Close()
		p.file = nil
	}
	p.ctrl = nil
	p.volume = nil
	p.duration = 0
}

func (p *StreamPlayer) positionLoop() {
	ticker := time.NewTicker(positionInterval)
	defer ticker.Stop()
	for {
		select {
		case <-p.done:
			return
		case <-ticker.C:
		}
		p.mu.Lock()
		if !p.playing || p.streamer == nil {
			p.mu.Unlock()
			continue
		}
		// Read position without the speaker lock; a slightly stale value
		// beats contending with the audio callback.
		pos := p.format.SampleRate.D(p.streamer.Position())
		seq := p.seq
		p.mu.Unlock()
		p.emit(Event{Seq: seq, Kind: EventPosition, Position: pos})
	}
}

// emit sends an event. Position and buffering updates are droppable under
// pressure; state-changing events block until delivered or Close.
func (p *StreamPlayer) emit(e Event) {
	switch e.Kind {
	case EventPosition, EventBuffering:
		select {
		case p.events <- e:
		default:
		}
	default:
		select {
		case p.events <- e:
		case <-p.done:
		}
	}
}

// Verify StreamPlayer implements Interface at compile time.
var _ Interface = (*StreamPlayer)(nil)
