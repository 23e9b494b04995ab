package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/avrille/cadenza/internal/backend"
	"github.com/avrille/cadenza/internal/catalog"
	"github.com/avrille/cadenza/internal/config"
	"github.com/avrille/cadenza/internal/errmsg"
	"github.com/avrille/cadenza/internal/mpris"
	"github.com/avrille/cadenza/internal/playback"
	"github.com/avrille/cadenza/internal/queue"
	"github.com/avrille/cadenza/internal/remote"
	"github.com/avrille/cadenza/internal/session"
	"github.com/avrille/cadenza/internal/state"
	"github.com/avrille/cadenza/internal/ui"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", errmsg.Format(errmsg.OpInitialize, err))
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log, logFile, err := openLogger()
	if err != nil {
		return err
	}
	defer logFile.Close()

	stateMgr, err := state.Open()
	if err != nil {
		return err
	}
	defer stateMgr.Close()

	// Restore the queue from the previous run.
	q := queue.New()
	saved, err := stateMgr.GetQueue()
	if err != nil {
		log.Warn("queue restore failed, starting empty", "error", err)
		saved = &state.QueueState{CurrentIndex: -1, Volume: 100}
	}
	saved.Restore(q)

	if cfg.Server == "" {
		return fmt.Errorf("no server configured; set server in ~/.config/cadenza/config.toml")
	}
	client := catalog.New(cfg.Server)

	store, err := session.NewFileStore()
	if err != nil {
		return err
	}
	sess := session.NewManager(store, client, sessionConfig(cfg))
	client.SetTokenSource(sess)
	defer sess.Close()

	backing := backend.NewStreamPlayer(client)
	defer backing.Close()

	engine := playback.New(backing, q, sess, log)
	engine.SetVolumeInitial(saved.Volume)
	engine.Start()
	defer engine.Close()

	sess.OnStatusChange(engine.SetSessionStatus)
	if err := sess.Start(context.Background()); err != nil {
		// Not fatal: the UI shows the session state and offers reconnect.
		log.Warn("session start failed", "error", err)
		engine.SetSessionStatus(sess.Status())
	}

	// Persist queue and volume as they change.
	go persistLoop(engine, stateMgr)

	ctl := remote.NewServer(engine, cfg.SocketPath(), log)
	if err := ctl.Listen(); err != nil {
		log.Warn(errmsg.Format(errmsg.OpRemoteListen, err))
	} else {
		defer ctl.Close()
	}

	if cfg.MPRISEnabled() {
		if adapter, err := mpris.New(engine); err == nil {
			defer adapter.Close()
		} else {
			log.Warn("mpris unavailable", "error", err)
		}
	}

	p := tea.NewProgram(ui.New(engine, client), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return err
	}

	// Final save catches changes that emit no queue event, like volume.
	snap := engine.Snapshot()
	stateMgr.SaveQueue(state.QueueState{
		CurrentIndex: snap.CanonicalIndex,
		RepeatMode:   int(snap.Repeat),
		Shuffle:      snap.Shuffle,
		Volume:       snap.Volume,
		Tracks:       snap.CanonicalQueue,
	})
	return stateMgr.Flush()
}

// persistLoop saves the queue whenever its contents, cursor or modes change.
// The state manager debounces the actual writes.
func persistLoop(engine *playback.Engine, stateMgr *state.Manager) {
	sub := engine.Subscribe()
	save := func() {
		snap := engine.Snapshot()
		stateMgr.SaveQueue(state.QueueState{
			CurrentIndex: snap.CanonicalIndex,
			RepeatMode:   int(snap.Repeat),
			Shuffle:      snap.Shuffle,
			Volume:       snap.Volume,
			Tracks:       snap.CanonicalQueue,
		})
	}
	for {
		select {
		case <-sub.Done:
			return
		case <-sub.QueueChanged:
			save()
		case <-sub.TrackChanged:
			save()
		case <-sub.ModeChanged:
			save()
		}
	}
}

func sessionConfig(cfg *config.Config) session.Config {
	sc := session.Config{
		Margin:  session.DefaultMargin,
		Backoff: session.DefaultBackoff(),
	}
	if cfg.Session.MarginSeconds > 0 {
		sc.Margin = time.Duration(cfg.Session.MarginSeconds) * time.Second
	}
	if cfg.Session.RetryAttempts > 0 {
		sc.Backoff.Attempts = cfg.Session.RetryAttempts
	}
	if cfg.Session.RetryInitialMS > 0 {
		sc.Backoff.Initial = time.Duration(cfg.Session.RetryInitialMS) * time.Millisecond
	}
	if cfg.Session.RetryMaxMS > 0 {
		sc.Backoff.Max = time.Duration(cfg.Session.RetryMaxMS) * time.Millisecond
	}
	return sc
}

func openLogger() (*slog.Logger, *os.File, error) {
	path, err := xdg.StateFile(filepath.Join("cadenza", "cadenza.log"))
	if err != nil {
		return nil, nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, nil, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, err
	}
	return slog.New(slog.NewTextHandler(f, nil)), f, nil
}
