package scripting

import (
	"context"
	"errors"

	"github.com/Shopify/go-lua"
	"github.com/aretw0/fable/pkg/domain"
	"github.com/aretw0/fable/pkg/locale"
	"github.com/aretw0/fable/pkg/vars"
)

// TextReader resolves localized text assets.
type TextReader interface {
	TextAsset(ctx context.Context, key string) (string, error)
}

// StateReader reports the current state key of a session, or "" when unset.
type StateReader interface {
	CurrentStateKey() string
}

func bindVars(b *Binder, svc any) error {
	m, ok := svc.(*vars.Manager)
	if !ok {
		return unexpectedService(ServiceVars, svc)
	}

	lookup := func(L *lua.State) *vars.Var {
		v, err := m.GetVar(lua.CheckString(L, 1))
		if err != nil {
			b.Fail(err)
		}
		return v
	}

	b.Library([]lua.RegistryFunction{
		{Name: "get", Function: func(L *lua.State) int {
			goToLua(L, lookup(L).Value())
			return 1
		}},
		{Name: "display", Function: func(L *lua.State) int {
			L.PushString(lookup(L).DisplayString())
			return 1
		}},
		{Name: "has", Function: func(L *lua.State) int {
			L.PushBoolean(m.ContainsVar(lua.CheckString(L, 1)))
			return 1
		}},
		{Name: "set", Function: func(L *lua.State) int {
			key := lua.CheckString(L, 1)
			if err := m.SetValue(key, luaToGo(L, 2)); err != nil {
				return b.Fail(err)
			}
			return 0
		}},
		{Name: "remove", Function: func(L *lua.State) int {
			if err := m.RemoveVar(lua.CheckString(L, 1)); err != nil {
				return b.Fail(err)
			}
			return 0
		}},
		{Name: "add", Function: func(L *lua.State) int {
			lua.CheckType(L, 1, lua.TypeTable)
			def, _ := luaToGo(L, 1).(map[string]any)
			v, err := varFromTable(def)
			if err != nil {
				return b.Fail(err)
			}
			if err := m.AddVar(v); err != nil {
				return b.Fail(err)
			}
			return 0
		}},
		{Name: "user_name", Function: func(L *lua.State) int {
			name, err := m.UserName()
			if err != nil {
				return b.Fail(err)
			}
			L.PushString(name)
			return 1
		}},
	})
	return nil
}

// varFromTable builds a var from {type, key, name_key, value, min, max, max_length}.
func varFromTable(def map[string]any) (*vars.Var, error) {
	key, _ := def["key"].(string)
	if key == "" {
		return nil, errors.New("var key is required")
	}
	nameKey, _ := def["name_key"].(string)
	typ, _ := def["type"].(string)

	info := domain.VarInfo{
		Type:         domain.VarType(typ),
		Key:          key,
		NameAssetKey: nameKey,
		Value:        def["value"],
	}
	switch info.Type {
	case domain.VarTypeInt, domain.VarTypeDouble:
		info.Parameters = []any{def["min"], def["max"]}
	case domain.VarTypeString:
		info.Parameters = []any{def["max_length"]}
	}
	return vars.FromInfo(info)
}

func bindLocale(b *Binder, svc any) error {
	m, ok := svc.(*locale.Manager)
	if !ok {
		return unexpectedService(ServiceLocale, svc)
	}
	b.Library([]lua.RegistryFunction{
		{Name: "get", Function: func(L *lua.State) int {
			L.PushString(m.Locale())
			return 1
		}},
		{Name: "set", Function: func(L *lua.State) int {
			if err := m.SetLocale(lua.CheckString(L, 1)); err != nil {
				return b.Fail(err)
			}
			return 0
		}},
	})
	return nil
}

func bindAssets(b *Binder, svc any) error {
	r, ok := svc.(TextReader)
	if !ok {
		return unexpectedService(ServiceAssets, svc)
	}
	b.Library([]lua.RegistryFunction{
		{Name: "text", Function: func(L *lua.State) int {
			text, err := r.TextAsset(b.Context(), lua.CheckString(L, 1))
			if err != nil {
				return b.Fail(err)
			}
			L.PushString(text)
			return 1
		}},
	})
	return nil
}

func bindStateMachine(b *Binder, svc any) error {
	r, ok := svc.(StateReader)
	if !ok {
		return unexpectedService(ServiceStateMachine, svc)
	}
	b.Library([]lua.RegistryFunction{
		{Name: "current", Function: func(L *lua.State) int {
			key := r.CurrentStateKey()
			if key == "" {
				L.PushNil()
			} else {
				L.PushString(key)
			}
			return 1
		}},
	})
	return nil
}
