/*
Package fable is the execution core of a stateful interactive-fiction engine.

A story is a graph of externally authored states. Each state may carry small Lua
scripts that run when it is entered, left, or when one of its transitions is taken.
Transition scripts can redirect a move by setting output.next_state_key_override.
Scripts only see the session services marked as script-accessible (vars and
locale); assets and the state machine stay reserved for trusted scripts.

Every player gets a session: an isolated bundle of locale, vars, assets and state
machine created on first reference and swept after a period of inactivity.

# Usage

	loader := file.NewLoader("./story")
	eng, err := fable.New(loader)
	if err != nil {
		log.Fatal(err)
	}
	defer eng.Close()

	ctx := context.Background()
	if err := eng.StartGame(ctx, "session-1", "alice"); err != nil {
		log.Fatal(err)
	}

	state := eng.CurrentState(ctx, "session-1")
	for _, t := range state.Transitions {
		fmt.Println(t.Key)
	}

	if err := eng.Transition(ctx, "session-1", "go"); err != nil {
		log.Fatal(err)
	}

	save, _ := eng.SaveGame(ctx, "session-1")
	_ = eng.LoadGame(ctx, "session-2", save)
*/
package fable
