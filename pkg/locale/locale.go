// Package locale keeps the active locale of a session.
package locale

import (
	"fmt"

	"github.com/aretw0/fable/pkg/domain"
	"golang.org/x/text/language"
)

// Manager holds the active locale of one session.
// It is not safe for concurrent use.
type Manager struct {
	locale string
}

// NewManager creates a manager starting at the given locale.
// An empty or invalid starting locale falls back to domain.DefaultLocale.
func NewManager(starting string) *Manager {
	m := &Manager{locale: domain.DefaultLocale}
	if starting != "" {
		_ = m.SetLocale(starting)
	}
	return m
}

// Locale returns the active locale.
func (m *Manager) Locale() string {
	return m.locale
}

// SetLocale switches the active locale.
// Tags other than "default" are canonicalized, e.g. "pt-br" becomes "pt-BR".
func (m *Manager) SetLocale(tag string) error {
	canonical, err := Canonicalize(tag)
	if err != nil {
		return err
	}
	m.locale = canonical
	return nil
}

// Canonicalize normalizes a BCP 47 tag. The "default" locale is kept verbatim.
func Canonicalize(tag string) (string, error) {
	if tag == domain.DefaultLocale {
		return tag, nil
	}
	parsed, err := language.Parse(tag)
	if err != nil {
		return "", fmt.Errorf("%w: %q: %v", domain.ErrInvalidLocale, tag, err)
	}
	return parsed.String(), nil
}
