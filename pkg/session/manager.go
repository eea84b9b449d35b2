package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/fable/internal/logging"
	"github.com/aretw0/fable/internal/runtime"
	"github.com/aretw0/fable/internal/scripting"
	"github.com/aretw0/fable/pkg/assets"
	"github.com/aretw0/fable/pkg/domain"
	"github.com/aretw0/fable/pkg/locale"
	"github.com/aretw0/fable/pkg/vars"
)

// Sweep defaults.
const (
	DefaultInterval = time.Minute
	DefaultExpiry   = 10 * time.Minute
)

// entry is a registered session and the time it was last referenced.
type entry struct {
	session    *Session
	lastAccess time.Time
}

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Manager owns the session registry and its expiry sweep.
type Manager struct {
	catalog *assets.Catalog
	host    *scripting.Host

	initialKey string
	finalKey   string
	locale     string
	unsafe     bool

	interval time.Duration
	expiry   time.Duration
	now      func() time.Time

	hooks  domain.LifecycleHooks
	logger *slog.Logger

	mu       sync.Mutex // guards sessions, timer and closed
	sessions map[string]*entry
	timer    *time.Timer
	closed   bool

	locksMu sync.Mutex
	locks   map[string]*lockEntry
}

// Option configures the Manager.
type Option func(*Manager)

// WithLogger configures a logger for the Manager and the sessions it creates.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithLifecycleHooks configures observability hooks for sessions and their state machines.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(m *Manager) {
		m.hooks = hooks
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

// WithInterval sets how often the expiry sweep runs.
func WithInterval(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.interval = d
		}
	}
}

// WithExpiry sets how long a session may stay unreferenced.
func WithExpiry(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.expiry = d
		}
	}
}

// WithStateKeys sets the initial and final state keys of new sessions.
func WithStateKeys(initial, final string) Option {
	return func(m *Manager) {
		m.initialKey = initial
		m.finalKey = final
	}
}

// WithLocale sets the starting locale of new sessions.
func WithLocale(tag string) Option {
	return func(m *Manager) {
		m.locale = tag
	}
}

// WithUnsafeScripts lets state scripts of new sessions reach every service.
func WithUnsafeScripts(unsafe bool) Option {
	return func(m *Manager) {
		m.unsafe = unsafe
	}
}

// NewManager creates a session manager. Call Start to enable the expiry sweep.
func NewManager(catalog *assets.Catalog, host *scripting.Host, opts ...Option) *Manager {
	m := &Manager{
		catalog:    catalog,
		host:       host,
		initialKey: domain.DefaultInitialStateKey,
		finalKey:   domain.DefaultFinalStateKey,
		locale:     domain.DefaultLocale,
		interval:   DefaultInterval,
		expiry:     DefaultExpiry,
		now:        time.Now,
		logger:     logging.NewNop(),
		sessions:   make(map[string]*entry),
		locks:      make(map[string]*lockEntry),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// GetSession returns the session for id, creating it on first reference.
// Every call stamps the session's last access time.
func (m *Manager) GetSession(ctx context.Context, id string) *Session {
	m.mu.Lock()
	e, ok := m.sessions[id]
	if !ok {
		e = &entry{session: m.newSession(id)}
		m.sessions[id] = e
	}
	e.lastAccess = m.now()
	m.mu.Unlock()

	if !ok {
		m.logger.Debug("session created", "session_id", id)
		if m.hooks.OnSessionCreated != nil {
			m.hooks.OnSessionCreated(ctx, &domain.SessionEvent{EventBase: m.event(domain.EventSessionCreated, id)})
		}
	}
	return e.session
}

// PingSession has the effect of GetSession without returning the session.
func (m *Manager) PingSession(ctx context.Context, id string) {
	m.GetSession(ctx, id)
}

// HasSession reports whether id is registered. It does not ping.
func (m *Manager) HasSession(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.sessions[id]
	return ok
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// WithSession runs fn with the session for id while holding that session's lock.
// Calls for different ids run concurrently; calls for the same id are serialized.
func (m *Manager) WithSession(ctx context.Context, id string, fn func(context.Context, *Session) error) error {
	lock := m.acquire(id)
	lock.mu.Lock()
	defer func() {
		lock.mu.Unlock()
		m.release(id)
	}()

	s := m.GetSession(ctx, id)
	if err := s.Acquire(); err != nil {
		return fmt.Errorf("session %s: %w", id, err)
	}
	defer s.Release()

	return fn(ctx, s)
}

// acquire gets or creates a lock entry and increments its reference count.
func (m *Manager) acquire(id string) *lockEntry {
	m.locksMu.Lock()
	defer m.locksMu.Unlock()

	l, ok := m.locks[id]
	if !ok {
		l = &lockEntry{}
		m.locks[id] = l
	}
	l.refs++
	return l
}

// release decrements the reference count and deletes the entry if it reaches zero.
func (m *Manager) release(id string) {
	m.locksMu.Lock()
	defer m.locksMu.Unlock()

	l, ok := m.locks[id]
	if !ok {
		return
	}
	l.refs--
	if l.refs <= 0 {
		delete(m.locks, id)
	}
}

// Sweep disposes every session unreferenced for at least the expiry and
// returns how many were removed.
func (m *Manager) Sweep(ctx context.Context) int {
	now := m.now()

	m.mu.Lock()
	var expired []*Session
	for id, e := range m.sessions {
		if now.Sub(e.lastAccess) >= m.expiry {
			expired = append(expired, e.session)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	for _, s := range expired {
		s.Dispose()
		m.logger.Info("session expired", "session_id", s.ID)
		if m.hooks.OnSessionExpired != nil {
			m.hooks.OnSessionExpired(ctx, &domain.SessionEvent{EventBase: m.event(domain.EventSessionExpired, s.ID)})
		}
	}
	return len(expired)
}

// Start schedules the expiry sweep. It is a no-op if already started or closed.
func (m *Manager) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.timer != nil || m.closed {
		return
	}
	m.timer = time.AfterFunc(m.interval, m.tick)
}

// tick runs one sweep. The timer is one-shot, so it is stopped while the sweep
// runs, and it is rescheduled afterwards even if the sweep panics.
func (m *Manager) tick() {
	defer m.reschedule()
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("session sweep failed", "err", fmt.Errorf("panic: %v", r))
		}
	}()
	m.Sweep(context.Background())
}

func (m *Manager) reschedule() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.timer = time.AfterFunc(m.interval, m.tick)
}

// Close stops the sweep and disposes every session.
func (m *Manager) Close() error {
	m.mu.Lock()
	m.closed = true
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	sessions := m.sessions
	m.sessions = make(map[string]*entry)
	m.mu.Unlock()

	for _, e := range sessions {
		e.session.Dispose()
	}
	m.logger.Debug("session manager closed", "sessions", len(sessions))
	return nil
}

func (m *Manager) newSession(id string) *Session {
	logger := m.logger.With("session_id", id)
	s := &Session{ID: id, logger: logger}

	s.Locale = locale.NewManager(m.locale)
	s.Vars = vars.NewManager(vars.WithLogger(logger))
	s.Assets = assets.NewManager(m.catalog, s.Locale, s.Vars, assets.WithLogger(logger))
	s.StateMachine = runtime.NewStateMachine(s.Assets, m.host, s,
		runtime.WithSessionID(id),
		runtime.WithStateKeys(m.initialKey, m.finalKey),
		runtime.WithUnsafeScripts(m.unsafe),
		runtime.WithLifecycleHooks(m.hooks),
		runtime.WithLogger(logger),
	)
	return s
}

func (m *Manager) event(t domain.EventType, id string) domain.EventBase {
	return domain.EventBase{
		Timestamp: m.now(),
		Type:      t,
		SessionID: id,
	}
}
