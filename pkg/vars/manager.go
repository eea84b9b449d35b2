package vars

import (
	"fmt"
	"log/slog"

	"github.com/aretw0/fable/internal/logging"
	"github.com/aretw0/fable/pkg/domain"
)

// Manager holds the vars of one session.
// It is not safe for concurrent use; a session is driven by one caller at a time.
type Manager struct {
	vars  []*Var
	index map[string]int
	next  uint

	userNameKey          string
	userNameNameAssetKey string
	logger               *slog.Logger
}

// ManagerOption configures the Manager.
type ManagerOption func(*Manager)

// WithUserNameKeys overrides the key and name asset key of the user name var.
func WithUserNameKeys(key, nameAssetKey string) ManagerOption {
	return func(m *Manager) {
		m.userNameKey = key
		m.userNameNameAssetKey = nameAssetKey
	}
}

// WithLogger configures a logger for the Manager.
func WithLogger(logger *slog.Logger) ManagerOption {
	return func(m *Manager) {
		m.logger = logger
	}
}

// NewManager creates an empty vars manager.
func NewManager(opts ...ManagerOption) *Manager {
	m := &Manager{
		index:                make(map[string]int),
		userNameKey:          domain.UserNameVarKey,
		userNameNameAssetKey: domain.UserNameVarNameAssetKey,
		logger:               logging.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Init replaces the whole set with the user name var followed by vars.
// On error the current set is left untouched.
func (m *Manager) Init(userName string, vars ...*Var) error {
	staged := &Manager{
		index:                make(map[string]int),
		userNameKey:          m.userNameKey,
		userNameNameAssetKey: m.userNameNameAssetKey,
		logger:               m.logger,
	}

	userVar := String(m.userNameKey, m.userNameNameAssetKey, WithValue(userName))
	if err := staged.AddVar(userVar); err != nil {
		return err
	}
	for _, v := range vars {
		if err := staged.AddVar(v); err != nil {
			return fmt.Errorf("failed to init vars: %w", err)
		}
	}

	m.vars, m.index, m.next = staged.vars, staged.index, staged.next
	m.logger.Debug("vars initialized", "count", len(m.vars))
	return nil
}

// UserName returns the value of the user name var.
func (m *Manager) UserName() (string, error) {
	v, err := m.GetVar(m.userNameKey)
	if err != nil {
		return "", err
	}
	name, _ := v.Value().(string)
	return name, nil
}

// AddVar validates v and appends it with the next SetIndex.
func (m *Manager) AddVar(v *Var) error {
	if m.ContainsVar(v.Key) {
		return fmt.Errorf("%w: %s", domain.ErrVarAlreadyExists, v.Key)
	}
	if err := v.Validate(); err != nil {
		return err
	}

	v.SetIndex = m.next
	m.next++
	m.index[v.Key] = len(m.vars)
	m.vars = append(m.vars, v)
	return nil
}

// RemoveVar deletes the var with the given key.
func (m *Manager) RemoveVar(key string) error {
	pos, ok := m.index[key]
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrVarNotFound, key)
	}
	m.vars = append(m.vars[:pos], m.vars[pos+1:]...)
	m.rebuildIndex()
	return nil
}

// ClearVars removes every var, including the user name.
func (m *Manager) ClearVars() {
	m.vars = nil
	m.next = 0
	m.rebuildIndex()
}

// ContainsVar reports whether a var with the key exists.
func (m *Manager) ContainsVar(key string) bool {
	_, ok := m.index[key]
	return ok
}

// GetVar returns the var with the given key.
func (m *Manager) GetVar(key string) (*Var, error) {
	pos, ok := m.index[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrVarNotFound, key)
	}
	return m.vars[pos], nil
}

// SetValue validates and stores a new value for an existing var.
func (m *Manager) SetValue(key string, value any) error {
	v, err := m.GetVar(key)
	if err != nil {
		return err
	}
	return v.Set(value)
}

// AllVars returns the vars ordered by SetIndex.
func (m *Manager) AllVars(includeUserName bool) []*Var {
	out := make([]*Var, 0, len(m.vars))
	for _, v := range m.vars {
		if !includeUserName && v.Key == m.userNameKey {
			continue
		}
		out = append(out, v)
	}
	return out
}

// Len returns the number of vars, including the user name.
func (m *Manager) Len() int {
	return len(m.vars)
}

func (m *Manager) rebuildIndex() {
	m.index = make(map[string]int, len(m.vars))
	for i, v := range m.vars {
		m.index[v.Key] = i
	}
}
