package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/fable/pkg/domain"
)

// Overlay contains game data to visualize on the graph.
type Overlay struct {
	CurrentState string
}

// Options names the states drawn with a terminal shape.
type Options struct {
	InitialState string
	FinalState   string
	Overlay      *Overlay
}

// GenerateMermaid produces a Mermaid flowchart syntax string from a list of states.
// It applies semantic styling:
// - Initial: ((Circle))
// - Final: (((Double circle)))
// - Scripted: [[Subroutine]]
// - Default: [Rectangle]
// Hidden transitions are dotted; disabled ones are labelled.
func GenerateMermaid(states []domain.State, opts Options) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	for _, state := range states {
		safeID := sanitizeMermaidID(state.Key)

		opener, closer := "[", "]"
		switch {
		case state.Key == opts.InitialState:
			opener, closer = "((", "))"
		case state.Key == opts.FinalState:
			opener, closer = "(((", ")))"
		case hasScripts(state):
			opener, closer = "[[", "]]"
		}
		fmt.Fprintf(&sb, "    %s%s\"%s\"%s\n", safeID, opener, state.Key, closer)

		for _, t := range state.Transitions {
			safeTo := sanitizeMermaidID(t.NextStateKey)
			label := strings.ReplaceAll(t.Key, "\"", "'")
			if !t.IsEnabled {
				label += " (disabled)"
			}

			arrow := fmt.Sprintf("-- \"%s\" -->", label)
			if !t.IsVisible {
				arrow = fmt.Sprintf("-. \"%s\" .->", label)
			}
			fmt.Fprintf(&sb, "    %s %s %s\n", safeID, arrow, safeTo)
		}
	}

	if opts.Overlay != nil && opts.Overlay.CurrentState != "" {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Force black text (color:#000) for high-contrast regardless of theme
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")
		fmt.Fprintf(&sb, "    class %s current;\n", sanitizeMermaidID(opts.Overlay.CurrentState))
	}

	return sb.String()
}

func hasScripts(s domain.State) bool {
	return s.OnEnterScriptKey != "" || s.OnLeaveScriptKey != "" || s.OnTransitionScriptKey != ""
}

var idReplacer = strings.NewReplacer(".", "_", "-", "_", "/", "_", "\\", "_", " ", "_")

func sanitizeMermaidID(id string) string {
	return idReplacer.Replace(id)
}
