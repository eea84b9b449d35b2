package cli

import (
	"context"
	"sort"

	"github.com/aretw0/fable/internal/presentation/graph"
	"github.com/aretw0/fable/pkg/assets"
	"github.com/aretw0/fable/pkg/domain"
)

// Graph renders every decodable state of the catalog as a Mermaid flowchart.
// current, when set, is highlighted.
func Graph(ctx context.Context, catalog *assets.Catalog, initial, final, current string) (string, error) {
	keys, err := catalog.Keys(ctx, domain.AssetState)
	if err != nil {
		return "", err
	}
	sort.Strings(keys)

	states := make([]domain.State, 0, len(keys))
	for _, key := range keys {
		state, err := readState(ctx, catalog, key)
		if err != nil {
			continue
		}
		states = append(states, *state)
	}

	opts := graph.Options{InitialState: initial, FinalState: final}
	if current != "" {
		opts.Overlay = &graph.Overlay{CurrentState: current}
	}
	return graph.GenerateMermaid(states, opts), nil
}
