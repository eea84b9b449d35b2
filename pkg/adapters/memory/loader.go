package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/aretw0/fable/pkg/domain"
)

// Loader implements ports.AssetSource using in-memory maps.
// Safe for concurrent use.
type Loader struct {
	mu          sync.RWMutex
	descriptors map[string]domain.AssetDescriptor
	data        map[string]map[string][]byte // locale -> path -> content
}

// NewLoader creates a Loader from descriptors and a locale -> path -> content map.
func NewLoader(descriptors []domain.AssetDescriptor, data map[string]map[string]string) *Loader {
	l := &Loader{
		descriptors: make(map[string]domain.AssetDescriptor),
		data:        make(map[string]map[string][]byte),
	}
	for _, d := range descriptors {
		l.descriptors[d.Key] = d
	}
	for locale, files := range data {
		for path, content := range files {
			l.put(locale, path, []byte(content))
		}
	}
	return l
}

// NewFromStates creates a Loader holding the given states in the default locale.
// Each state is stored under its own key, which improves DX for tests.
func NewFromStates(states ...domain.State) (*Loader, error) {
	l := NewLoader(nil, nil)
	for _, s := range states {
		if err := l.AddState(s); err != nil {
			return nil, err
		}
	}
	return l, nil
}

// AddState serializes a state and registers it in the default locale.
func (l *Loader) AddState(s domain.State) error {
	if s.Key == "" {
		return fmt.Errorf("state missing key")
	}
	bytes, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal state %s: %w", s.Key, err)
	}
	l.Add(domain.AssetDescriptor{
		Key:       s.Key,
		AssetType: domain.AssetState,
		AssetPath: "states/" + s.Key + ".json",
		MediaType: "application/json",
	}, domain.DefaultLocale, bytes)
	return nil
}

// AddScript registers a script source in the default locale.
func (l *Loader) AddScript(key, source string) {
	l.Add(domain.AssetDescriptor{
		Key:       key,
		AssetType: domain.AssetScript,
		AssetPath: "scripts/" + key + ".lua",
		MediaType: "text/x-lua",
	}, domain.DefaultLocale, []byte(source))
}

// AddText registers a text asset in the given locale.
func (l *Loader) AddText(key, locale, text string) {
	l.Add(domain.AssetDescriptor{
		Key:       key,
		AssetType: domain.AssetText,
		AssetPath: "texts/" + key + ".txt",
		MediaType: "text/plain",
	}, locale, []byte(text))
}

// Add registers a descriptor together with the data of one locale.
func (l *Loader) Add(d domain.AssetDescriptor, locale string, content []byte) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.descriptors[d.Key] = d
	l.putLocked(locale, d.AssetPath, content)
}

func (l *Loader) put(locale, path string, content []byte) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.putLocked(locale, path, content)
}

func (l *Loader) putLocked(locale, path string, content []byte) {
	files, ok := l.data[locale]
	if !ok {
		files = make(map[string][]byte)
		l.data[locale] = files
	}
	files[path] = content
}

// Descriptors returns all descriptors sorted by key.
func (l *Loader) Descriptors(ctx context.Context) ([]domain.AssetDescriptor, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]domain.AssetDescriptor, 0, len(l.descriptors))
	for _, d := range l.descriptors {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

// ReadData returns a copy of the content stored for locale and path.
func (l *Loader) ReadData(ctx context.Context, locale, path string) ([]byte, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	content, ok := l.data[locale][path]
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s", domain.ErrAssetNotFound, locale, path)
	}
	return append([]byte(nil), content...), nil
}
