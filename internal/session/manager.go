package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// DefaultMargin is the safety margin before expiry at which a token is
// refreshed rather than used.
const DefaultMargin = 60 * time.Second

// Refresher exchanges a refresh token for a fresh token. Implementations
// wrap unrecoverable rejections with ErrAuthRequired; anything else is
// treated as transient.
type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (*Token, error)
}

// Status describes the session from an observer's point of view.
type Status int

const (
	StatusReady Status = iota
	StatusRefreshing
	StatusReconnecting
	StatusUnauthenticated
)

// String returns the status name.
func (s Status) String() string {
	switch s {
	case StatusReady:
		return "ready"
	case StatusRefreshing:
		return "refreshing"
	case StatusReconnecting:
		return "reconnecting"
	case StatusUnauthenticated:
		return "auth required"
	default:
		return "unknown"
	}
}

// Backoff bounds the retry schedule for transient refresh failures.
type Backoff struct {
	Initial  time.Duration
	Max      time.Duration
	Factor   float64
	Attempts int
}

// DefaultBackoff returns the default bounded-exponential schedule.
func DefaultBackoff() Backoff {
	return Backoff{
		Initial:  500 * time.Millisecond,
		Max:      30 * time.Second,
		Factor:   2,
		Attempts: 5,
	}
}

// Config tunes the manager. Zero values fall back to defaults.
type Config struct {
	Margin  time.Duration
	Backoff Backoff
}

// Manager maintains one valid token at all times during active use.
// Concurrent refresh triggers coalesce into a single network attempt whose
// result every caller observes.
type Manager struct {
	store     Store
	refresher Refresher
	margin    time.Duration
	backoff   Backoff
	now       func() time.Time

	group singleflight.Group

	mu       sync.RWMutex
	token    *Token
	status   Status
	onStatus func(Status)

	closeOnce sync.Once
	done      chan struct{}
}

// NewManager creates a session manager over the given store and refresher.
func NewManager(store Store, refresher Refresher, cfg Config) *Manager {
	if cfg.Margin <= 0 {
		cfg.Margin = DefaultMargin
	}
	if cfg.Backoff.Attempts <= 0 {
		cfg.Backoff = DefaultBackoff()
	}
	return &Manager{
		store:     store,
		refresher: refresher,
		margin:    cfg.Margin,
		backoff:   cfg.Backoff,
		now:       time.Now,
		status:    StatusUnauthenticated,
		done:      make(chan struct{}),
	}
}

// OnStatusChange registers a callback invoked on every status transition.
// Must be set before Start.
func (m *Manager) OnStatusChange(fn func(Status)) {
	m.mu.Lock()
	m.onStatus = fn
	m.mu.Unlock()
}

// Start loads the cached token, refreshing it first when its expiry is
// within the safety margin, then launches the proactive refresh timer.
// Returns ErrAuthRequired when no usable credentials exist.
func (m *Manager) Start(ctx context.Context) error {
	tok, err := m.store.Load()
	if err != nil {
		return fmt.Errorf("load cached token: %w", err)
	}
	if tok == nil {
		m.setStatus(StatusUnauthenticated)
		return ErrAuthRequired
	}

	m.mu.Lock()
	m.token = tok
	m.mu.Unlock()

	if tok.ValidFor(m.now(), m.margin) {
		m.setStatus(StatusReady)
	} else if err := m.Refresh(ctx); err != nil {
		return err
	}

	go m.refreshLoop(ctx)
	return nil
}

// refreshLoop refreshes the token shortly before it expires.
func (m *Manager) refreshLoop(ctx context.Context) {
	for {
		m.mu.RLock()
		tok, status := m.token, m.status
		m.mu.RUnlock()
		if status == StatusUnauthenticated || tok == nil {
			return
		}

		wait := tok.ExpiresAt.Sub(m.now()) - m.margin
		if wait < time.Second {
			wait = time.Second
		}
		select {
		case <-ctx.Done():
			return
		case <-m.done:
			return
		case <-time.After(wait):
		}
		// Outcome is reflected in status; the loop re-reads the token.
		_ = m.Refresh(ctx)
	}
}

// Status returns the current session status.
func (m *Manager) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

// Token returns a copy of the current token, or nil.
func (m *Manager) Token() *Token {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.token == nil {
		return nil
	}
	tok := *m.token
	return &tok
}

// AccessToken returns an access token valid for at least the safety
// margin, refreshing first when needed. Returns ErrAuthRequired once the
// session has been invalidated.
func (m *Manager) AccessToken(ctx context.Context) (string, error) {
	m.mu.RLock()
	tok, status := m.token, m.status
	m.mu.RUnlock()

	if status == StatusUnauthenticated || tok == nil {
		return "", ErrAuthRequired
	}
	if tok.ValidFor(m.now(), m.margin) {
		return tok.AccessToken, nil
	}
	if err := m.Refresh(ctx); err != nil {
		return "", err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.token == nil {
		return "", ErrAuthRequired
	}
	return m.token.AccessToken, nil
}

// Authorize reports whether backend calls may proceed, refreshing the
// token when necessary.
func (m *Manager) Authorize(ctx context.Context) error {
	_, err := m.AccessToken(ctx)
	return err
}

// Refresh performs a token refresh. Concurrent callers coalesce into the
// single in-flight attempt and all observe its result.
func (m *Manager) Refresh(ctx context.Context) error {
	_, err, _ := m.group.Do("refresh", func() (any, error) {
		return nil, m.refresh(ctx)
	})
	return err
}

func (m *Manager) refresh(ctx context.Context) error {
	m.mu.RLock()
	tok := m.token
	m.mu.RUnlock()
	if tok == nil || tok.RefreshToken == "" {
		m.invalidate()
		return ErrAuthRequired
	}

	m.setStatus(StatusRefreshing)

	delay := m.backoff.Initial
	var lastErr error
	for attempt := range m.backoff.Attempts {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			delay = time.Duration(float64(delay) * m.backoff.Factor)
			if delay > m.backoff.Max {
				delay = m.backoff.Max
			}
		}

		fresh, err := m.refresher.Refresh(ctx, tok.RefreshToken)
		if err == nil {
			m.mu.Lock()
			m.token = fresh
			m.mu.Unlock()
			if err := m.store.Save(fresh); err != nil {
				// Token is usable for this run even if caching failed.
				m.setStatus(StatusReady)
				return nil
			}
			m.setStatus(StatusReady)
			return nil
		}
		if errors.Is(err, ErrAuthRequired) {
			m.invalidate()
			return fmt.Errorf("refresh token rejected: %w", ErrAuthRequired)
		}
		lastErr = err
		m.setStatus(StatusReconnecting)
	}

	return fmt.Errorf("refresh failed after %d attempts: %w", m.backoff.Attempts, lastErr)
}

// SetToken installs externally supplied credentials (after the user
// re-authenticates out of band) and persists them.
func (m *Manager) SetToken(tok Token) error {
	if err := m.store.Save(&tok); err != nil {
		return err
	}
	m.mu.Lock()
	m.token = &tok
	m.mu.Unlock()
	m.setStatus(StatusReady)
	return nil
}

// Close stops the proactive refresh timer.
func (m *Manager) Close() error {
	m.closeOnce.Do(func() {
		close(m.done)
	})
	return nil
}

func (m *Manager) invalidate() {
	m.mu.Lock()
	m.token = nil
	m.mu.Unlock()
	m.setStatus(StatusUnauthenticated)
}

func (m *Manager) setStatus(s Status) {
	m.mu.Lock()
	if m.status == s {
		m.mu.Unlock()
		return
	}
	m.status = s
	fn := m.onStatus
	m.mu.Unlock()
	if fn != nil {
		fn(s)
	}
}
