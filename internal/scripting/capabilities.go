package scripting

import (
	"context"
	"fmt"

	"github.com/Shopify/go-lua"
	"github.com/aretw0/fable/pkg/registry"
)

// Service names known to the default capability table.
const (
	ServiceVars         = "vars"
	ServiceLocale       = "locale"
	ServiceAssets       = "assets"
	ServiceStateMachine = "state_machine"
)

// Capability describes a host service that scripts may ask for.
type Capability struct {
	Name string
	// ScriptAccessible marks the service as safe for ordinary scripts.
	ScriptAccessible bool
	// Bind pushes exactly one Lua value that exposes svc to the script.
	Bind func(b *Binder, svc any) error
}

// Binder is handed to Capability.Bind. It records Go errors raised by
// bindings so they can be matched with errors.Is after the run.
type Binder struct {
	L    *lua.State
	ctx  context.Context
	errs []error
}

// Context returns the context of the current run.
func (b *Binder) Context() context.Context {
	return b.ctx
}

// Fail records err and raises it as a Lua error. It does not return.
func (b *Binder) Fail(err error) int {
	b.errs = append(b.errs, err)
	lua.Errorf(b.L, "%s", err.Error())
	return 0
}

// Library pushes a table of Go functions.
func (b *Binder) Library(fns []lua.RegistryFunction) {
	b.L.NewTable()
	lua.SetFunctions(b.L, fns, 0)
}

// DefaultCapabilities returns the capability table of a game session.
// vars and locale are script-accessible; assets and state_machine are not.
func DefaultCapabilities() *registry.Registry[Capability] {
	r := registry.New[Capability]()
	for _, c := range []Capability{
		{Name: ServiceVars, ScriptAccessible: true, Bind: bindVars},
		{Name: ServiceLocale, ScriptAccessible: true, Bind: bindLocale},
		{Name: ServiceAssets, ScriptAccessible: false, Bind: bindAssets},
		{Name: ServiceStateMachine, ScriptAccessible: false, Bind: bindStateMachine},
	} {
		r.Register(c.Name, c)
	}
	return r
}

func unexpectedService(name string, svc any) error {
	return fmt.Errorf("service %s has unexpected type %T", name, svc)
}
