package fable

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/aretw0/fable/internal/scripting"
	"github.com/aretw0/fable/pkg/adapters/memory"
	"github.com/aretw0/fable/pkg/assets"
	"github.com/aretw0/fable/pkg/domain"
	"github.com/aretw0/fable/pkg/ports"
	"github.com/aretw0/fable/pkg/session"
	"github.com/aretw0/fable/pkg/vars"
)

var userNamePattern = regexp.MustCompile(`^[a-zA-Z0-9\.\-_]+$`)

// Engine is the high-level entry point for the Fable library.
// It owns the session manager and exposes game control by session id.
// Engine is safe for concurrent use; calls for the same session are serialized.
type Engine struct {
	source   ports.AssetSource
	catalog  *assets.Catalog
	host     *scripting.Host
	sessions *session.Manager
	store    ports.SaveStore

	hostOpts    []scripting.Option
	sessionOpts []session.Option
	hooks       domain.LifecycleHooks
	logger      *slog.Logger
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithSaveStore sets where Persist and Restore keep save games (default: in memory).
func WithSaveStore(store ports.SaveStore) Option {
	return func(e *Engine) {
		e.store = store
	}
}

// WithStateKeys configures the initial and final state keys.
func WithStateKeys(initial, final string) Option {
	return func(e *Engine) {
		e.sessionOpts = append(e.sessionOpts, session.WithStateKeys(initial, final))
	}
}

// WithLocale configures the starting locale of new sessions.
func WithLocale(tag string) Option {
	return func(e *Engine) {
		e.sessionOpts = append(e.sessionOpts, session.WithLocale(tag))
	}
}

// WithUnsafeScripts lets state scripts reach every registered service.
func WithUnsafeScripts(unsafe bool) Option {
	return func(e *Engine) {
		e.sessionOpts = append(e.sessionOpts, session.WithUnsafeScripts(unsafe))
	}
}

// WithSweep configures the session expiry sweep.
func WithSweep(interval, expiry time.Duration) Option {
	return func(e *Engine) {
		e.sessionOpts = append(e.sessionOpts, session.WithInterval(interval), session.WithExpiry(expiry))
	}
}

// WithClock replaces time.Now for session expiry.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.sessionOpts = append(e.sessionOpts, session.WithClock(now))
	}
}

// WithScriptCheckpoint sets how many instructions run between cancellation checks.
func WithScriptCheckpoint(n int) Option {
	return func(e *Engine) {
		e.hostOpts = append(e.hostOpts, scripting.WithCheckpoint(n))
	}
}

// New initializes an engine over an asset source and starts the session sweep.
func New(source ports.AssetSource, opts ...Option) (*Engine, error) {
	if source == nil {
		return nil, errors.New("asset source is required")
	}

	eng := &Engine{source: source}
	for _, opt := range opts {
		opt(eng)
	}
	if eng.logger == nil {
		eng.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if eng.store == nil {
		eng.store = memory.NewStore()
	}

	eng.catalog = assets.NewCatalog(source)

	hostOpts := append([]scripting.Option{
		scripting.WithLogger(eng.logger),
		scripting.WithLifecycleHooks(eng.hooks),
	}, eng.hostOpts...)
	eng.host = scripting.NewHost(hostOpts...)

	sessionOpts := append([]session.Option{
		session.WithLogger(eng.logger),
		session.WithLifecycleHooks(eng.hooks),
	}, eng.sessionOpts...)
	eng.sessions = session.NewManager(eng.catalog, eng.host, sessionOpts...)
	eng.sessions.Start()

	return eng, nil
}

// Sessions returns the underlying session manager.
func (e *Engine) Sessions() *session.Manager {
	return e.sessions
}

// Catalog returns the asset catalog shared by every session.
func (e *Engine) Catalog() *assets.Catalog {
	return e.catalog
}

// Store returns the save store used by Persist and Restore.
func (e *Engine) Store() ports.SaveStore {
	return e.store
}

// StartGame resets the vars of a session to the user name alone and enters the initial state.
func (e *Engine) StartGame(ctx context.Context, sessionID, userName string) error {
	if !userNamePattern.MatchString(userName) {
		return fmt.Errorf("%w: %q", domain.ErrBadUserName, userName)
	}
	return e.sessions.WithSession(ctx, sessionID, func(ctx context.Context, s *session.Session) error {
		if err := s.Vars.Init(userName); err != nil {
			return err
		}
		e.logger.Info("game started", "session_id", sessionID, "user", userName)
		return s.StateMachine.SetInitialState(ctx)
	})
}

// ExitGame leaves the current state and enters the final state.
func (e *Engine) ExitGame(ctx context.Context, sessionID string) error {
	return e.sessions.WithSession(ctx, sessionID, func(ctx context.Context, s *session.Session) error {
		return s.StateMachine.SetFinalState(ctx)
	})
}

// Transition applies the transition with the given key to the current state.
func (e *Engine) Transition(ctx context.Context, sessionID, key string) error {
	return e.sessions.WithSession(ctx, sessionID, func(ctx context.Context, s *session.Session) error {
		return s.StateMachine.ApplyTransition(ctx, key)
	})
}

// CurrentState returns the current state of a session, or nil before StartGame.
func (e *Engine) CurrentState(ctx context.Context, sessionID string) *domain.State {
	var state *domain.State
	_ = e.sessions.WithSession(ctx, sessionID, func(ctx context.Context, s *session.Session) error {
		state = s.StateMachine.CurrentState()
		return nil
	})
	return state
}

// RenderText returns a text asset in the session's locale with vars substituted.
func (e *Engine) RenderText(ctx context.Context, sessionID, key string) (string, error) {
	var text string
	err := e.sessions.WithSession(ctx, sessionID, func(ctx context.Context, s *session.Session) error {
		var err error
		text, err = s.Assets.TextAsset(ctx, key)
		return err
	})
	return text, err
}

// SetLocale changes the locale of a session.
func (e *Engine) SetLocale(ctx context.Context, sessionID, tag string) error {
	return e.sessions.WithSession(ctx, sessionID, func(ctx context.Context, s *session.Session) error {
		return s.Locale.SetLocale(tag)
	})
}

// SaveGame encodes the session as base64 of an indented JSON document.
func (e *Engine) SaveGame(ctx context.Context, sessionID string) (string, error) {
	var data []byte
	err := e.sessions.WithSession(ctx, sessionID, func(ctx context.Context, s *session.Session) error {
		save, err := snapshot(s)
		if err != nil {
			return err
		}
		data, err = json.MarshalIndent(save, "", "  ")
		return err
	})
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

// LoadGame restores a session from the output of SaveGame.
// The saved state is entered without leaving the current one.
func (e *Engine) LoadGame(ctx context.Context, sessionID, data string) error {
	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(data))
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrBadSaveGame, err)
	}

	dec := json.NewDecoder(strings.NewReader(string(raw)))
	dec.UseNumber()
	var save domain.SaveGame
	if err := dec.Decode(&save); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrBadSaveGame, err)
	}
	return e.apply(ctx, sessionID, &save)
}

// Persist stores a snapshot of the session in a save slot.
func (e *Engine) Persist(ctx context.Context, sessionID, slot string) error {
	return e.sessions.WithSession(ctx, sessionID, func(ctx context.Context, s *session.Session) error {
		save, err := snapshot(s)
		if err != nil {
			return err
		}
		if err := e.store.Save(ctx, slot, save); err != nil {
			return fmt.Errorf("failed to persist slot %s: %w", slot, err)
		}
		e.logger.Info("game persisted", "session_id", sessionID, "slot", slot)
		return nil
	})
}

// Restore loads a save slot into the session.
func (e *Engine) Restore(ctx context.Context, sessionID, slot string) error {
	save, err := e.store.Load(ctx, slot)
	if err != nil {
		return fmt.Errorf("failed to restore slot %s: %w", slot, err)
	}
	return e.apply(ctx, sessionID, save)
}

// Slots lists the save slots of the store.
func (e *Engine) Slots(ctx context.Context) ([]string, error) {
	return e.store.List(ctx)
}

// DeleteSlot removes a save slot.
func (e *Engine) DeleteSlot(ctx context.Context, slot string) error {
	return e.store.Delete(ctx, slot)
}

// Close stops the session sweep and disposes every session.
func (e *Engine) Close() error {
	return e.sessions.Close()
}

func (e *Engine) apply(ctx context.Context, sessionID string, save *domain.SaveGame) error {
	restored := make([]*vars.Var, 0, len(save.VarsInfo))
	for _, info := range save.VarsInfo {
		v, err := vars.FromInfo(info)
		if err != nil {
			return fmt.Errorf("%w: var %s: %w", domain.ErrBadSaveGame, info.Key, err)
		}
		restored = append(restored, v)
	}

	return e.sessions.WithSession(ctx, sessionID, func(ctx context.Context, s *session.Session) error {
		if _, err := s.StateMachine.LoadState(ctx, save.CurrentStateKey); err != nil {
			return err
		}
		if err := s.Vars.Init(save.UserName, restored...); err != nil {
			return fmt.Errorf("%w: %w", domain.ErrBadSaveGame, err)
		}
		return s.StateMachine.SetCurrentState(ctx, save.CurrentStateKey, false)
	})
}

func snapshot(s *session.Session) (*domain.SaveGame, error) {
	current := s.StateMachine.CurrentState()
	if current == nil {
		return nil, domain.ErrNoCurrentState
	}
	userName, err := s.Vars.UserName()
	if err != nil {
		return nil, err
	}

	all := s.Vars.AllVars(false)
	infos := make([]domain.VarInfo, 0, len(all))
	for _, v := range all {
		infos = append(infos, v.Info())
	}
	return &domain.SaveGame{
		UserName:        userName,
		CurrentStateKey: current.Key,
		VarsInfo:        infos,
	}, nil
}
