package cli

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/aretw0/fable/internal/scripting"
	"github.com/aretw0/fable/pkg/assets"
	"github.com/aretw0/fable/pkg/domain"
)

// ValidationReport lists the problems found in a story.
type ValidationReport struct {
	States      int
	Scripts     int
	Problems    []string
	Unreachable []string
}

// OK reports whether the story has no problems.
// Unreachable states are warnings and do not fail validation.
func (r *ValidationReport) OK() bool {
	return len(r.Problems) == 0
}

func (r *ValidationReport) addf(format string, args ...any) {
	r.Problems = append(r.Problems, fmt.Sprintf(format, args...))
}

// Err summarizes the report as an error, or nil when it is OK.
func (r *ValidationReport) Err() error {
	if r.OK() {
		return nil
	}
	return fmt.Errorf("found %d errors:\n- %s", len(r.Problems), strings.Join(r.Problems, "\n- "))
}

// Validate checks every state of the catalog for broken links and bad scripts,
// then crawls from start to find unreachable states.
func Validate(ctx context.Context, catalog *assets.Catalog, host *scripting.Host, start string) (*ValidationReport, error) {
	keys, err := catalog.Keys(ctx, domain.AssetState)
	if err != nil {
		return nil, err
	}
	report := &ValidationReport{}
	states := make(map[string]*domain.State, len(keys))
	compiled := make(map[string]bool)

	for _, key := range keys {
		state, err := readState(ctx, catalog, key)
		if err != nil {
			report.addf("state '%s': %v", key, err)
			continue
		}
		states[key] = state
		report.States++
	}

	for _, key := range keys {
		state, ok := states[key]
		if !ok {
			continue
		}

		seen := make(map[string]bool, len(state.Transitions))
		for _, t := range state.Transitions {
			if seen[t.Key] {
				report.addf("state '%s': duplicate transition '%s'", key, t.Key)
			}
			seen[t.Key] = true
			if _, ok := states[t.NextStateKey]; !ok {
				report.addf("state '%s': transition '%s' targets missing state '%s'", key, t.Key, t.NextStateKey)
			}
		}

		hooks := []struct {
			name  string
			key   string
			shape scripting.Shape
		}{
			{"on_enter", state.OnEnterScriptKey, scripting.ShapeInput},
			{"on_leave", state.OnLeaveScriptKey, scripting.ShapeInput},
			{"on_transition", state.OnTransitionScriptKey, scripting.ShapeInputOutput},
		}
		for _, h := range hooks {
			if h.key == "" {
				continue
			}
			if err := checkScript(ctx, catalog, host, h.key, h.shape); err != nil {
				report.addf("state '%s': %s script '%s': %v", key, h.name, h.key, err)
				continue
			}
			compiled[h.key] = true
		}
	}
	report.Scripts = len(compiled)

	if _, ok := states[start]; !ok {
		report.addf("initial state '%s' not found", start)
		return report, nil
	}
	visited := crawl(states, start)
	for key := range states {
		if !visited[key] {
			report.Unreachable = append(report.Unreachable, key)
		}
	}
	sort.Strings(report.Unreachable)
	return report, nil
}

func readState(ctx context.Context, catalog *assets.Catalog, key string) (*domain.State, error) {
	desc, err := catalog.Descriptor(ctx, key)
	if err != nil {
		return nil, err
	}
	data, err := catalog.Source().ReadData(ctx, domain.DefaultLocale, desc.AssetPath)
	if err != nil {
		return nil, err
	}
	return assets.DecodeState(key, data)
}

func checkScript(ctx context.Context, catalog *assets.Catalog, host *scripting.Host, key string, shape scripting.Shape) error {
	desc, err := catalog.Descriptor(ctx, key)
	if err != nil {
		return err
	}
	if desc.AssetType != domain.AssetScript {
		return &domain.AssetTypeError{Key: key, Expected: domain.AssetScript, Actual: desc.AssetType}
	}
	src, err := catalog.Source().ReadData(ctx, domain.DefaultLocale, desc.AssetPath)
	if err != nil {
		return err
	}
	_, err = host.CreateScript(key, string(src), shape)
	return err
}

// crawl walks enabled and disabled transitions alike; a disabled one may be
// enabled by a script at runtime.
func crawl(states map[string]*domain.State, start string) map[string]bool {
	visited := make(map[string]bool)
	queue := []string{start}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		if visited[current] {
			continue
		}
		visited[current] = true

		state, ok := states[current]
		if !ok {
			continue
		}
		for _, t := range state.Transitions {
			if !visited[t.NextStateKey] {
				queue = append(queue, t.NextStateKey)
			}
		}
	}
	return visited
}
