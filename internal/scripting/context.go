package scripting

import (
	"github.com/Shopify/go-lua"
	"github.com/google/uuid"
)

// Context is the per-run view a script gets of its host.
// A fresh Context is built for every run and exposed to Lua as the global "context".
type Context struct {
	ScriptName string
	// RunID identifies one execution.
	RunID     string
	SessionID string
	Services  *Resolver

	// Input is nil for ShapeBare and non-nil otherwise.
	Input any
	// Output is only set for ShapeInputOutput.
	Output any
}

func newContext(script *Script, env Env, resolver *Resolver) *Context {
	return &Context{
		ScriptName: script.name,
		RunID:      uuid.NewString(),
		SessionID:  env.SessionID,
		Services:   resolver,
	}
}

// push installs the "context" global and, for ShapeInputOutput, the "output" global.
func (c *Context) push(L *lua.State, shape Shape) {
	L.NewTable()
	L.PushString(c.ScriptName)
	L.SetField(-2, "script_name")
	L.PushString(c.RunID)
	L.SetField(-2, "run_id")
	L.PushString(c.SessionID)
	L.SetField(-2, "session_id")
	if shape != ShapeBare {
		goToLua(L, c.Input)
		L.SetField(-2, "input")
	}
	L.SetGlobal("context")

	if shape == ShapeInputOutput {
		goToLua(L, c.Output)
		L.SetGlobal("output")
	}
}
