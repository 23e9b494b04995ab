package remote

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/avrille/cadenza/internal/playback"
	"github.com/avrille/cadenza/internal/queue"
)

// Server accepts control connections on a unix domain socket and applies
// requests to the playback service. Commands are applied asynchronously;
// the snapshot in a response may not yet reflect the request. Use watch to
// follow the player as it settles.
type Server struct {
	svc  playback.Service
	path string
	log  *slog.Logger

	ln        net.Listener
	mu        sync.Mutex
	conns     map[net.Conn]struct{}
	closeOnce sync.Once
	closed    chan struct{}
}

// NewServer creates a control server bound to the given socket path.
func NewServer(svc playback.Service, path string, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{
		svc:    svc,
		path:   path,
		log:    log,
		conns:  make(map[net.Conn]struct{}),
		closed: make(chan struct{}),
	}
}

// Listen binds the socket and starts accepting connections. A stale socket
// file from a previous run is removed first; the socket is owner-only.
func (s *Server) Listen() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create socket directory: %w", err)
	}
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove stale socket: %w", err)
	}
	ln, err := net.Listen("unix", s.path)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.path, err)
	}
	if err := os.Chmod(s.path, 0o600); err != nil {
		ln.Close()
		return fmt.Errorf("restrict socket permissions: %w", err)
	}
	s.ln = ln
	go s.acceptLoop()
	s.log.Info("control socket listening", "path", s.path)
	return nil
}

// Close stops accepting, drops open connections and removes the socket file.
func (s *Server) Close() error {
	s.closeOnce.Do(func() {
		close(s.closed)
		if s.ln != nil {
			s.ln.Close()
		}
		s.mu.Lock()
		for c := range s.conns {
			c.Close()
		}
		s.mu.Unlock()
		os.Remove(s.path)
	})
	return nil
}

func (s *Server) acceptLoop() {
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			select {
			case <-s.closed:
				return
			default:
			}
			s.log.Warn("accept failed", "error", err)
			return
		}
		s.mu.Lock()
		s.conns[conn] = struct{}{}
		s.mu.Unlock()
		go s.handle(conn)
	}
}

func (s *Server) handle(conn net.Conn) {
	defer func() {
		s.mu.Lock()
		delete(s.conns, conn)
		s.mu.Unlock()
		conn.Close()
	}()
	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 4096), 1<<20)
	enc := json.NewEncoder(conn)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var req Request
		if err := json.Unmarshal(line, &req); err != nil {
			if encErr := enc.Encode(Response{OK: false, Error: "malformed request: " + err.Error()}); encErr != nil {
				return
			}
			continue
		}
		if req.Op == OpWatch {
			// Watch takes over the connection; no further requests are read.
			s.watch(scanner, enc)
			return
		}
		resp := s.dispatch(req)
		if err := enc.Encode(resp); err != nil {
			return
		}
	}
}

func (s *Server) dispatch(req Request) Response {
	switch req.Op {
	case OpPlay:
		s.svc.Play()
	case OpPause:
		s.svc.Pause()
	case OpToggle:
		s.svc.TogglePlay()
	case OpStop:
		s.svc.Stop()
	case OpNext:
		s.svc.Next()
	case OpPrev:
		s.svc.Previous()
	case OpJump:
		if req.Index == nil {
			return errResponse("jump requires index")
		}
		s.svc.JumpTo(*req.Index)
	case OpSeek:
		if req.Ms == nil {
			return errResponse("seek requires ms")
		}
		s.svc.SeekTo(time.Duration(*req.Ms) * time.Millisecond)
	case OpSeekBy:
		if req.Ms == nil {
			return errResponse("seek-by requires ms")
		}
		s.svc.SeekBy(time.Duration(*req.Ms) * time.Millisecond)
	case OpVolume:
		if req.Volume == nil {
			return errResponse("volume requires volume")
		}
		s.svc.SetVolume(*req.Volume)
	case OpAdd:
		if len(req.Tracks) == 0 {
			return errResponse("add requires tracks")
		}
		s.svc.Add(specsToTracks(req.Tracks)...)
	case OpInsert:
		if req.Index == nil || len(req.Tracks) == 0 {
			return errResponse("insert requires index and tracks")
		}
		s.svc.Insert(*req.Index, specsToTracks(req.Tracks)...)
	case OpRemove:
		if req.Index == nil {
			return errResponse("remove requires index")
		}
		s.svc.Remove(*req.Index)
	case OpClear:
		s.svc.ClearQueue()
	case OpReplace:
		s.svc.ReplaceQueue(specsToTracks(req.Tracks)...)
	case OpShuffle:
		if req.On == nil {
			s.svc.ToggleShuffle()
		} else {
			s.svc.SetShuffle(*req.On)
		}
	case OpRepeat:
		if req.Mode == "" {
			s.svc.CycleRepeat()
		} else {
			mode, ok := parseRepeat(req.Mode)
			if !ok {
				return errResponse("unknown repeat mode " + req.Mode)
			}
			s.svc.SetRepeat(mode)
		}
	case OpReconnect:
		s.svc.Reconnect()
	case OpStatus:
		// Fall through to the snapshot below.
	default:
		return errResponse("unknown op " + req.Op)
	}
	return Response{OK: true, Status: statusFromSnapshot(s.svc.Snapshot())}
}

// watch streams a status line whenever the player state, track, queue, mode
// or session changes. Position updates are rate-limited by the engine's own
// cadence. The stream ends when the client disconnects or the server closes;
// either way the subscription is released.
func (s *Server) watch(scanner *bufio.Scanner, enc *json.Encoder) {
	sub := s.svc.Subscribe()
	defer s.svc.Unsubscribe(sub)

	// A watching client sends nothing further, so the read side unblocking
	// means it hung up.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for scanner.Scan() {
		}
	}()

	if err := enc.Encode(Response{OK: true, Status: statusFromSnapshot(s.svc.Snapshot())}); err != nil {
		return
	}
	send := func() bool {
		return enc.Encode(Response{OK: true, Status: statusFromSnapshot(s.svc.Snapshot())}) == nil
	}
	for {
		select {
		case <-gone:
			return
		case <-sub.Done:
			return
		case <-s.closed:
			return
		case <-sub.StateChanged:
			if !send() {
				return
			}
		case <-sub.TrackChanged:
			if !send() {
				return
			}
		case <-sub.QueueChanged:
			if !send() {
				return
			}
		case <-sub.ModeChanged:
			if !send() {
				return
			}
		case <-sub.SessionChanged:
			if !send() {
				return
			}
		case <-sub.PositionChanged:
			if !send() {
				return
			}
		case ev := <-sub.Error:
			msg := ev.Operation
			if ev.Err != nil {
				msg = fmt.Sprintf("%s: %v", ev.Operation, ev.Err)
			}
			if enc.Encode(Response{OK: false, Error: msg, Status: statusFromSnapshot(s.svc.Snapshot())}) != nil {
				return
			}
		}
	}
}

func errResponse(msg string) Response {
	return Response{OK: false, Error: msg}
}

func specsToTracks(specs []TrackSpec) []queue.Track {
	out := make([]queue.Track, len(specs))
	for i, s := range specs {
		out[i] = s.track()
	}
	return out
}
