package graph_test

import (
	"strings"
	"testing"

	"github.com/aretw0/fable/internal/presentation/graph"
	"github.com/aretw0/fable/pkg/domain"
)

func TestGenerateMermaid(t *testing.T) {
	opts := graph.Options{InitialState: "intro", FinalState: "outro"}

	tests := []struct {
		name     string
		states   []domain.State
		opts     graph.Options
		contains []string
		absent   []string
	}{
		{
			name: "Terminal Shapes",
			states: []domain.State{
				{Key: "intro"},
				{Key: "outro"},
			},
			opts: opts,
			contains: []string{
				`intro(("intro"))`,
				`outro((("outro")))`,
			},
		},
		{
			name: "Scripted State Shape",
			states: []domain.State{
				{Key: "shop", OnEnterScriptKey: "stock"},
				{Key: "plain"},
			},
			opts: opts,
			contains: []string{
				`shop[["shop"]]`,
				`plain["plain"]`,
			},
		},
		{
			name: "ID Sanitization",
			states: []domain.State{
				{Key: "common.state/cave-1"},
			},
			opts: opts,
			contains: []string{
				`common_state_cave_1["common.state/cave-1"]`,
			},
		},
		{
			name: "Transition Styles",
			states: []domain.State{
				{
					Key: "a",
					Transitions: []domain.Transition{
						{Key: "open", NextStateKey: "b", IsEnabled: true, IsVisible: true},
						{Key: "secret", NextStateKey: "c", IsEnabled: true},
						{Key: `say "hi"`, NextStateKey: "d", IsVisible: true},
					},
				},
			},
			opts: opts,
			contains: []string{
				`a -- "open" --> b`,
				`a -. "secret" .-> c`,
				`a -- "say 'hi' (disabled)" --> d`,
			},
		},
		{
			name:   "Overlay",
			states: []domain.State{{Key: "x.y"}},
			opts: graph.Options{
				Overlay: &graph.Overlay{CurrentState: "x.y"},
			},
			contains: []string{"class x_y current;"},
		},
		{
			name:   "No Overlay",
			states: []domain.State{{Key: "x"}},
			opts:   opts,
			absent: []string{"classDef"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := graph.GenerateMermaid(tt.states, tt.opts)
			for _, want := range tt.contains {
				if !strings.Contains(got, want) {
					t.Errorf("GenerateMermaid() = \n%v\nWant substring: %v", got, want)
				}
			}
			for _, bad := range tt.absent {
				if strings.Contains(got, bad) {
					t.Errorf("GenerateMermaid() = \n%v\nUnexpected substring: %v", got, bad)
				}
			}
		})
	}
}
