package assets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"regexp"

	"github.com/aretw0/fable/internal/logging"
	"github.com/aretw0/fable/pkg/domain"
	"github.com/aretw0/fable/pkg/vars"
	"github.com/tidwall/gjson"
)

// DefaultVarValueClass is the CSS class of substituted var values.
const DefaultVarValueClass = "var-value"

var varPattern = regexp.MustCompile(`\{var=([a-zA-Z0-9\.\-_]+)\}`)

// LocaleProvider returns the active locale of a session.
type LocaleProvider interface {
	Locale() string
}

// VarLookup resolves vars for text substitution.
type VarLookup interface {
	GetVar(key string) (*vars.Var, error)
}

// Image is a binary asset together with its descriptor.
type Image struct {
	Descriptor domain.AssetDescriptor
	Data       []byte
}

// Manager reads assets for one session.
// It is not safe for concurrent use, like the locale and vars it reads.
type Manager struct {
	catalog    *Catalog
	locale     LocaleProvider
	vars       VarLookup
	valueClass string
	logger     *slog.Logger
}

// Option configures the Manager.
type Option func(*Manager)

// WithVarValueClass overrides the CSS class used by text substitution.
func WithVarValueClass(class string) Option {
	return func(m *Manager) {
		m.valueClass = class
	}
}

// WithLogger configures a logger for the Manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// NewManager binds a catalog to the locale and vars of a session.
func NewManager(catalog *Catalog, locale LocaleProvider, lookup VarLookup, opts ...Option) *Manager {
	m := &Manager{
		catalog:    catalog,
		locale:     locale,
		vars:       lookup,
		valueClass: DefaultVarValueClass,
		logger:     logging.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Descriptor returns the descriptor of key.
func (m *Manager) Descriptor(ctx context.Context, key string) (domain.AssetDescriptor, error) {
	return m.catalog.Descriptor(ctx, key)
}

// TextAsset returns a text asset with {var=key} placeholders substituted.
func (m *Manager) TextAsset(ctx context.Context, key string) (string, error) {
	data, _, err := m.read(ctx, key, domain.AssetText)
	if err != nil {
		return "", err
	}
	return m.Substitute(string(data)), nil
}

// ImageAsset returns the raw bytes of an image asset.
func (m *Manager) ImageAsset(ctx context.Context, key string) (*Image, error) {
	data, desc, err := m.read(ctx, key, domain.AssetImage)
	if err != nil {
		return nil, err
	}
	return &Image{Descriptor: desc, Data: data}, nil
}

// ScriptAsset returns the source of a script asset.
func (m *Manager) ScriptAsset(ctx context.Context, key string) (string, error) {
	data, _, err := m.read(ctx, key, domain.AssetScript)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// StateAsset decodes a state asset.
// Malformed documents are reported as domain.ErrBadState.
func (m *Manager) StateAsset(ctx context.Context, key string) (*domain.State, error) {
	data, _, err := m.read(ctx, key, domain.AssetState)
	if err != nil {
		return nil, err
	}
	return DecodeState(key, data)
}

// DecodeState validates the shape of a state document and decodes it.
func DecodeState(key string, data []byte) (*domain.State, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("%w: %s is not valid JSON", domain.ErrBadState, key)
	}
	doc := gjson.ParseBytes(data)
	if !doc.IsObject() {
		return nil, fmt.Errorf("%w: %s is not an object", domain.ErrBadState, key)
	}
	if k := doc.Get("key"); k.Type != gjson.String || k.Str == "" {
		return nil, fmt.Errorf("%w: %s has no key", domain.ErrBadState, key)
	}
	if tr := doc.Get("transitions"); tr.Exists() && !tr.IsArray() && tr.Type != gjson.Null {
		return nil, fmt.Errorf("%w: %s transitions must be a list", domain.ErrBadState, key)
	}

	var state domain.State
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrBadState, key, err)
	}
	return &state, nil
}

// Substitute replaces {var=key} placeholders with the display value of each var.
// Unknown vars render as "VAR NOT FOUND key".
func (m *Manager) Substitute(text string) string {
	return varPattern.ReplaceAllStringFunc(text, func(match string) string {
		key := varPattern.FindStringSubmatch(match)[1]
		v, err := m.vars.GetVar(key)
		if err != nil {
			return "VAR NOT FOUND " + key
		}
		return `<span class="` + m.valueClass + `">` + html.EscapeString(v.DisplayString()) + `</span>`
	})
}

// read loads the data of key in the active locale, falling back to the default locale.
func (m *Manager) read(ctx context.Context, key string, want domain.AssetType) ([]byte, domain.AssetDescriptor, error) {
	desc, err := m.catalog.Descriptor(ctx, key)
	if err != nil {
		return nil, desc, err
	}
	if desc.AssetType != want {
		return nil, desc, &domain.AssetTypeError{Key: key, Expected: want, Actual: desc.AssetType}
	}

	locale := m.locale.Locale()
	data, err := m.catalog.source.ReadData(ctx, locale, desc.AssetPath)
	if err == nil || !errors.Is(err, domain.ErrAssetNotFound) || locale == domain.DefaultLocale {
		return data, desc, err
	}

	m.logger.Debug("asset missing in locale, using default", "key", key, "locale", locale)
	data, err = m.catalog.source.ReadData(ctx, domain.DefaultLocale, desc.AssetPath)
	return data, desc, err
}
