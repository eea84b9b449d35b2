package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/aretw0/fable"
	"github.com/aretw0/fable/pkg/domain"
)

// PlayOptions configures an interactive game loop.
type PlayOptions struct {
	SessionID string
	UserName  string
	// Resume restores this slot instead of starting a new game.
	Resume   string
	FinalKey string
	// Interactive prints prompts and help; it is off when stdin is not a terminal.
	Interactive bool
	// Render formats state text for display; nil prints it as is.
	Render func(string) (string, error)
	In     io.Reader
	Out    io.Writer
}

const playHelp = `Commands:
  <key> or <number>   take a transition
  save [slot]         persist the game (default slot: session id)
  load [slot]         restore a persisted game
  slots               list save slots
  export              print the game as a save string
  import <data>       load a save string
  locale <tag>        switch language
  exit                leave the game`

// Play runs the game loop until the final state is reached, the user exits or
// the input ends.
func Play(ctx context.Context, eng *fable.Engine, opts PlayOptions) error {
	if opts.FinalKey == "" {
		opts.FinalKey = domain.DefaultFinalStateKey
	}
	out := opts.Out
	id := opts.SessionID

	if opts.Resume != "" {
		if err := eng.Restore(ctx, id, opts.Resume); err != nil {
			return err
		}
		if opts.Interactive {
			printSystemMessage(out, "Resumed slot '%s'.", opts.Resume)
		}
	} else if err := eng.StartGame(ctx, id, opts.UserName); err != nil {
		return err
	}
	if opts.Interactive {
		printSystemMessage(out, "Session '%s' active. Type 'help' for commands.", id)
	}

	scanner := bufio.NewScanner(opts.In)
	for {
		state := eng.CurrentState(ctx, id)
		if err := render(ctx, eng, opts, state); err != nil {
			return err
		}
		if state.Key == opts.FinalKey {
			printSystemMessage(out, "Finished at '%s'.", state.Key)
			return nil
		}

		if opts.Interactive {
			fmt.Fprint(out, "> ")
		}
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return err
			}
			return io.EOF
		}

		done, err := dispatch(ctx, eng, opts, state, strings.TrimSpace(scanner.Text()))
		if err != nil {
			if !isRecoverable(err) {
				return err
			}
			printSystemMessage(out, "%v", err)
		}
		if done {
			return nil
		}
	}
}

func dispatch(ctx context.Context, eng *fable.Engine, opts PlayOptions, state *domain.State, line string) (bool, error) {
	id, out := opts.SessionID, opts.Out
	cmd, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	switch cmd {
	case "":
		return false, nil
	case "help":
		fmt.Fprintln(out, playHelp)
	case "exit", "quit":
		if err := eng.ExitGame(ctx, id); err != nil {
			return false, err
		}
		final := eng.CurrentState(ctx, id)
		if err := render(ctx, eng, opts, final); err != nil {
			return false, err
		}
		printSystemMessage(out, "Exited at '%s'.", final.Key)
		return true, nil
	case "save":
		slot := orDefault(arg, id)
		if err := eng.Persist(ctx, id, slot); err != nil {
			return false, err
		}
		printSystemMessage(out, "Saved to slot '%s'.", slot)
	case "load":
		slot := orDefault(arg, id)
		if err := eng.Restore(ctx, id, slot); err != nil {
			return false, err
		}
		printSystemMessage(out, "Loaded slot '%s'.", slot)
	case "slots":
		slots, err := eng.Slots(ctx)
		if err != nil {
			return false, err
		}
		for _, s := range slots {
			fmt.Fprintln(out, s)
		}
	case "export":
		data, err := eng.SaveGame(ctx, id)
		if err != nil {
			return false, err
		}
		fmt.Fprintln(out, data)
	case "import":
		if err := eng.LoadGame(ctx, id, arg); err != nil {
			return false, err
		}
	case "locale":
		if err := eng.SetLocale(ctx, id, arg); err != nil {
			return false, err
		}
	default:
		key := line
		if n, err := strconv.Atoi(line); err == nil {
			visible := visibleTransitions(state)
			if n < 1 || n > len(visible) {
				return false, fmt.Errorf("%w: choice %d", domain.ErrTransitionNotFound, n)
			}
			key = visible[n-1].Key
		}
		return false, eng.Transition(ctx, id, key)
	}
	return false, nil
}

func render(ctx context.Context, eng *fable.Engine, opts PlayOptions, state *domain.State) error {
	if state == nil {
		return domain.ErrNoCurrentState
	}
	id, out := opts.SessionID, opts.Out
	if state.TextAssetKey != "" {
		text, err := eng.RenderText(ctx, id, state.TextAssetKey)
		if err != nil {
			return fmt.Errorf("failed to render state %s: %w", state.Key, err)
		}
		text = plainText(text)
		if opts.Render != nil {
			if text, err = opts.Render(text); err != nil {
				return fmt.Errorf("failed to render state %s: %w", state.Key, err)
			}
		}
		fmt.Fprintln(out, text)
	}

	for i, t := range visibleTransitions(state) {
		label := t.Key
		if t.TextAssetKey != "" {
			if text, err := eng.RenderText(ctx, id, t.TextAssetKey); err == nil {
				label = plainText(text)
			}
		}
		marker := ""
		if !t.IsEnabled {
			marker = " (disabled)"
		}
		fmt.Fprintf(out, "  %d. [%s] %s%s\n", i+1, t.Key, label, marker)
	}
	return nil
}

func visibleTransitions(state *domain.State) []domain.Transition {
	var out []domain.Transition
	for _, t := range state.Transitions {
		if t.IsVisible {
			out = append(out, t)
		}
	}
	return out
}

// isRecoverable reports errors the player can recover from by typing another command.
func isRecoverable(err error) bool {
	for _, target := range []error{
		domain.ErrTransitionNotFound,
		domain.ErrSaveNotFound,
		domain.ErrBadSaveGame,
		domain.ErrInvalidLocale,
		domain.ErrNoCurrentState,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
