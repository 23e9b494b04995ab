package remote

import (
	"bufio"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/avrille/cadenza/internal/backend"
	"github.com/avrille/cadenza/internal/playback"
	"github.com/avrille/cadenza/internal/queue"
)

const waitTimeout = 2 * time.Second

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type testRig struct {
	engine  *playback.Engine
	backend *backend.Mock
	sock    string
	conn    net.Conn
	scanner *bufio.Scanner
	enc     *json.Encoder
}

func newRig(t *testing.T, tracks ...queue.Track) *testRig {
	t.Helper()
	m := backend.NewMock()
	q := queue.NewSeeded(1)
	q.Add(tracks...)
	e := playback.New(m, q, nil, discardLogger())
	e.Start()
	t.Cleanup(func() { e.Close() })

	sock := filepath.Join(t.TempDir(), "control.sock")
	srv := NewServer(e, sock, discardLogger())
	if err := srv.Listen(); err != nil {
		t.Fatalf("Listen() error = %v", err)
	}
	t.Cleanup(func() { srv.Close() })

	conn, err := net.Dial("unix", sock)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return &testRig{
		engine:  e,
		backend: m,
		sock:    sock,
		conn:    conn,
		scanner: bufio.NewScanner(conn),
		enc:     json.NewEncoder(conn),
	}
}

func (r *testRig) roundTrip(t *testing.T, req Request) Response {
	t.Helper()
	if err := r.enc.Encode(req); err != nil {
		t.Fatalf("send request: %v", err)
	}
	return r.readResponse(t)
}

func (r *testRig) readResponse(t *testing.T) Response {
	t.Helper()
	r.conn.SetReadDeadline(time.Now().Add(waitTimeout))
	if !r.scanner.Scan() {
		t.Fatalf("no response: %v", r.scanner.Err())
	}
	var resp Response
	if err := json.Unmarshal(r.scanner.Bytes(), &resp); err != nil {
		t.Fatalf("decode response %q: %v", r.scanner.Text(), err)
	}
	return resp
}

func intp(v int) *int       { return &v }
func int64p(v int64) *int64 { return &v }
func boolp(v bool) *bool    { return &v }

func spec(id string) TrackSpec {
	return TrackSpec{ID: id, Title: "Title " + id, DurationMS: 180_000}
}

func TestStatusReturnsSnapshot(t *testing.T) {
	r := newRig(t, queue.Track{ID: "a", Title: "A"}, queue.Track{ID: "b", Title: "B"})

	resp := r.roundTrip(t, Request{Op: OpStatus})
	if !resp.OK {
		t.Fatalf("response error: %s", resp.Error)
	}
	if resp.Status == nil {
		t.Fatal("status missing")
	}
	if resp.Status.State != "Stopped" {
		t.Errorf("state = %q, want Stopped", resp.Status.State)
	}
	if resp.Status.QueueLen != 2 {
		t.Errorf("queue_len = %d, want 2", resp.Status.QueueLen)
	}
	if resp.Status.Volume != 100 {
		t.Errorf("volume = %d, want 100", resp.Status.Volume)
	}
}

func TestToggleStartsPlayback(t *testing.T) {
	r := newRig(t, queue.Track{ID: "a"})

	resp := r.roundTrip(t, Request{Op: OpToggle})
	if !resp.OK {
		t.Fatalf("response error: %s", resp.Error)
	}
	require.Eventually(t, func() bool {
		return len(r.backend.LoadCalls()) == 1
	}, waitTimeout, 2*time.Millisecond, "backend never received the load")
}

func TestVolumeRoundTrip(t *testing.T) {
	r := newRig(t, queue.Track{ID: "a"})

	r.roundTrip(t, Request{Op: OpVolume, Volume: intp(30)})
	require.Eventually(t, func() bool {
		return r.engine.Snapshot().Volume == 30
	}, waitTimeout, 2*time.Millisecond, "volume never applied")

	resp := r.roundTrip(t, Request{Op: OpStatus})
	if resp.Status.Volume != 30 {
		t.Errorf("volume = %d, want 30", resp.Status.Volume)
	}
}

func TestAddAndRemoveTracks(t *testing.T) {
	r := newRig(t)

	resp := r.roundTrip(t, Request{Op: OpAdd, Tracks: []TrackSpec{spec("x"), spec("y")}})
	if !resp.OK {
		t.Fatalf("add error: %s", resp.Error)
	}
	require.Eventually(t, func() bool {
		return len(r.engine.Snapshot().Queue) == 2
	}, waitTimeout, 2*time.Millisecond, "tracks never added")

	resp = r.roundTrip(t, Request{Op: OpRemove, Index: intp(1)})
	if !resp.OK {
		t.Fatalf("remove error: %s", resp.Error)
	}
	require.Eventually(t, func() bool {
		return len(r.engine.Snapshot().Queue) == 1
	}, waitTimeout, 2*time.Millisecond, "track never removed")
}

func TestRepeatModeByName(t *testing.T) {
	r := newRig(t, queue.Track{ID: "a"})

	resp := r.roundTrip(t, Request{Op: OpRepeat, Mode: "one"})
	if !resp.OK {
		t.Fatalf("repeat error: %s", resp.Error)
	}
	require.Eventually(t, func() bool {
		return r.engine.Snapshot().Repeat == queue.RepeatOne
	}, waitTimeout, 2*time.Millisecond, "repeat mode never applied")

	resp = r.roundTrip(t, Request{Op: OpRepeat, Mode: "bogus"})
	if resp.OK {
		t.Error("bogus repeat mode accepted")
	}
}

func TestShuffleToggleAndExplicit(t *testing.T) {
	r := newRig(t, queue.Track{ID: "a"}, queue.Track{ID: "b"})

	r.roundTrip(t, Request{Op: OpShuffle})
	require.Eventually(t, func() bool {
		return r.engine.Snapshot().Shuffle
	}, waitTimeout, 2*time.Millisecond, "shuffle never enabled")

	r.roundTrip(t, Request{Op: OpShuffle, On: boolp(false)})
	require.Eventually(t, func() bool {
		return !r.engine.Snapshot().Shuffle
	}, waitTimeout, 2*time.Millisecond, "shuffle never disabled")
}

func TestSeekRequiresMs(t *testing.T) {
	r := newRig(t, queue.Track{ID: "a"})

	resp := r.roundTrip(t, Request{Op: OpSeek})
	if resp.OK {
		t.Error("seek without ms accepted")
	}
	resp = r.roundTrip(t, Request{Op: OpSeekBy, Ms: int64p(-5000)})
	if !resp.OK {
		t.Errorf("seek-by rejected: %s", resp.Error)
	}
}

func TestUnknownOpRejected(t *testing.T) {
	r := newRig(t)

	resp := r.roundTrip(t, Request{Op: "selfdestruct"})
	if resp.OK {
		t.Error("unknown op accepted")
	}
	if resp.Error == "" {
		t.Error("missing error message")
	}
}

func TestMalformedLineKeepsConnectionAlive(t *testing.T) {
	r := newRig(t)

	if _, err := r.conn.Write([]byte("{not json\n")); err != nil {
		t.Fatalf("write: %v", err)
	}
	resp := r.readResponse(t)
	if resp.OK {
		t.Error("malformed request accepted")
	}

	// The same connection still serves valid requests.
	resp = r.roundTrip(t, Request{Op: OpStatus})
	if !resp.OK {
		t.Errorf("status after malformed line failed: %s", resp.Error)
	}
}

func TestWatchStreamsStateChanges(t *testing.T) {
	r := newRig(t, queue.Track{ID: "a"})

	if err := r.enc.Encode(Request{Op: OpWatch}); err != nil {
		t.Fatalf("send watch: %v", err)
	}
	first := r.readResponse(t)
	if !first.OK || first.Status == nil || first.Status.State != "Stopped" {
		t.Fatalf("initial watch status = %+v", first)
	}

	r.engine.TogglePlay()

	// A Loading update must arrive without any further request.
	deadline := time.Now().Add(waitTimeout)
	for {
		if time.Now().After(deadline) {
			t.Fatal("no Loading update on watch stream")
		}
		resp := r.readResponse(t)
		if resp.Status != nil && resp.Status.State == "Loading" {
			break
		}
	}
}

func TestSecondClientWhileWatching(t *testing.T) {
	r := newRig(t, queue.Track{ID: "a"})

	if err := r.enc.Encode(Request{Op: OpWatch}); err != nil {
		t.Fatalf("send watch: %v", err)
	}
	r.readResponse(t)

	conn, err := net.Dial("unix", r.sock)
	if err != nil {
		t.Fatalf("dial second client: %v", err)
	}
	defer conn.Close()
	if err := json.NewEncoder(conn).Encode(Request{Op: OpStatus}); err != nil {
		t.Fatalf("send status: %v", err)
	}
	conn.SetReadDeadline(time.Now().Add(waitTimeout))
	sc := bufio.NewScanner(conn)
	if !sc.Scan() {
		t.Fatalf("no response on second connection: %v", sc.Err())
	}
	var resp Response
	if err := json.Unmarshal(sc.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.OK {
		t.Errorf("status on second connection failed: %s", resp.Error)
	}
}

func TestListenRemovesStaleSocket(t *testing.T) {
	m := backend.NewMock()
	e := playback.New(m, queue.NewSeeded(1), nil, discardLogger())
	e.Start()
	t.Cleanup(func() { e.Close() })

	sock := filepath.Join(t.TempDir(), "control.sock")

	// A crashed process leaves the socket file behind.
	stale, err := net.Listen("unix", sock)
	if err != nil {
		t.Fatalf("create stale socket: %v", err)
	}
	stale.(*net.UnixListener).SetUnlinkOnClose(false)
	stale.Close()

	srv := NewServer(e, sock, discardLogger())
	if err := srv.Listen(); err != nil {
		t.Fatalf("Listen() over stale socket error = %v", err)
	}
	t.Cleanup(func() { srv.Close() })

	conn, err := net.Dial("unix", sock)
	if err != nil {
		t.Fatalf("dial after rebind: %v", err)
	}
	conn.Close()
}

// countingService tracks how many subscriptions the server holds open.
type countingService struct {
	playback.Service
	mu   sync.Mutex
	open int
}

func (c *countingService) Subscribe() *playback.Subscription {
	c.mu.Lock()
	c.open++
	c.mu.Unlock()
	return c.Service.Subscribe()
}

func (c *countingService) Unsubscribe(sub *playback.Subscription) {
	c.mu.Lock()
	c.open--
	c.mu.Unlock()
	c.Service.Unsubscribe(sub)
}

func (c *countingService) openSubs() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.open
}

func TestWatchReleasesSubscriptionOnDisconnect(t *testing.T) {
	e := playback.New(backend.NewMock(), queue.NewSeeded(1), nil, discardLogger())
	e.Start()
	t.Cleanup(func() { e.Close() })
	svc := &countingService{Service: e}

	sock := filepath.Join(t.TempDir(), "control.sock")
	srv := NewServer(svc, sock, discardLogger())
	if err := srv.Listen(); err != nil {
		t.Fatalf("Listen() error = %v", err)
	}
	t.Cleanup(func() { srv.Close() })

	// Reconnecting watch clients must not pile up subscriptions.
	for i := 0; i < 3; i++ {
		conn, err := net.Dial("unix", sock)
		if err != nil {
			t.Fatalf("dial: %v", err)
		}
		if err := json.NewEncoder(conn).Encode(Request{Op: OpWatch}); err != nil {
			t.Fatalf("send watch: %v", err)
		}
		conn.SetReadDeadline(time.Now().Add(waitTimeout))
		if !bufio.NewScanner(conn).Scan() {
			t.Fatal("no initial watch status")
		}
		conn.Close()
	}

	require.Eventually(t, func() bool {
		return svc.openSubs() == 0
	}, waitTimeout, 2*time.Millisecond, "watch subscriptions leaked: %d open", svc.openSubs())
}
