package session

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/aretw0/fable/internal/runtime"
	"github.com/aretw0/fable/internal/scripting"
	"github.com/aretw0/fable/pkg/assets"
	"github.com/aretw0/fable/pkg/locale"
	"github.com/aretw0/fable/pkg/vars"
)

// ErrSessionDisposed is returned when a disposed session is acquired again.
var ErrSessionDisposed = errors.New("session disposed")

// Session is the bundle of managers that belongs to one session id.
// Its managers are not synchronized; callers drive a session from one logical
// caller at a time, for example through Manager.WithSession.
type Session struct {
	ID           string
	Locale       *locale.Manager
	Vars         *vars.Manager
	Assets       *assets.Manager
	StateMachine *runtime.StateMachine

	logger *slog.Logger

	mu       sync.Mutex
	refs     int
	disposed bool
}

// Service exposes the session managers by capability name.
func (s *Session) Service(name string) (any, bool) {
	switch name {
	case scripting.ServiceVars:
		return s.Vars, true
	case scripting.ServiceLocale:
		return s.Locale, true
	case scripting.ServiceAssets:
		return s.Assets, true
	case scripting.ServiceStateMachine:
		return s.StateMachine, true
	default:
		return nil, false
	}
}

// Acquire pins the session for the duration of a run.
func (s *Session) Acquire() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disposed {
		return ErrSessionDisposed
	}
	s.refs++
	return nil
}

// Release unpins the session and finalizes it if it was disposed meanwhile.
func (s *Session) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.refs > 0 {
		s.refs--
	}
	if s.disposed && s.refs == 0 {
		s.finalize()
	}
}

// Dispose marks the session as gone. Finalization waits for outstanding runs.
func (s *Session) Dispose() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disposed {
		return
	}
	s.disposed = true
	if s.refs == 0 {
		s.finalize()
	}
}

// Disposed reports whether Dispose was called.
func (s *Session) Disposed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.disposed
}

func (s *Session) finalize() {
	s.Vars.ClearVars()
	s.logger.Debug("session finalized", "session_id", s.ID)
}
