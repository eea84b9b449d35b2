package scripting

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"

	"github.com/Shopify/go-lua"
)

const (
	luaGlobalTableName  = "_G"
	luaGlobalTableIndex = -2
	luaArrayTableIndex  = -3
	luaMapTableIndex    = -3

	// maxExactInt is the largest integer a float64 holds without loss.
	maxExactInt = 1 << 53
)

// luaExclude lists globals removed from every script state.
var luaExclude = [...]string{
	"io", "os", "debug", "package", "require", "dofile", "loadfile", "load", "loadstring", "print",
}

func compileLua(name, src string) ([]byte, error) {
	L := lua.NewState()
	if err := lua.LoadBuffer(L, src, name, "t"); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := L.Dump(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func setupSandbox(L *lua.State) {
	lua.OpenLibraries(L)
	L.Global(luaGlobalTableName)
	for _, name := range luaExclude {
		L.PushNil()
		L.SetField(luaGlobalTableIndex, name)
	}
	L.Pop(1)
}

// guardProtectedCalls wraps pcall and xpcall so a cancelled run cannot swallow
// the checkpoint error: once ctx is done the error is raised again past them.
func guardProtectedCalls(ctx context.Context, L *lua.State) {
	for _, name := range [...]string{"pcall", "xpcall"} {
		L.Global(name)
		L.PushGoClosure(func(L *lua.State) int {
			L.PushValue(lua.UpValueIndex(1))
			L.Insert(1)
			L.Call(L.Top()-1, lua.MultipleReturns)
			if err := ctx.Err(); err != nil {
				lua.Errorf(L, "script cancelled: %s", err.Error())
			}
			return L.Top()
		}, 1)
		L.SetGlobal(name)
	}
}

// toPlain converts structs into maps and slices through their JSON form.
func toPlain(value any) (any, error) {
	switch value.(type) {
	case nil, string, bool, int, int64, float64, map[string]any, []any:
		return value, nil
	}
	data, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("failed to encode script value: %w", err)
	}
	var plain any
	if err := json.Unmarshal(data, &plain); err != nil {
		return nil, fmt.Errorf("failed to decode script value: %w", err)
	}
	return plain, nil
}

func goToLua(L *lua.State, value any) {
	switch v := value.(type) {
	case string:
		L.PushString(v)
	case bool:
		L.PushBoolean(v)
	case int:
		L.PushInteger(v)
	case int64:
		L.PushInteger(int(v))
	case float64:
		L.PushNumber(v)
	case []any:
		pushLuaArray(L, v)
	case map[string]any:
		pushLuaMap(L, v)
	case nil:
		L.PushNil()
	default:
		L.PushString(fmt.Sprintf("%v", v))
	}
}

func pushLuaArray(L *lua.State, arr []any) {
	L.CreateTable(len(arr), 0)
	for i, item := range arr {
		L.PushInteger(i + 1)
		goToLua(L, item)
		L.SetTable(luaArrayTableIndex)
	}
}

func pushLuaMap(L *lua.State, m map[string]any) {
	L.CreateTable(0, len(m))
	for k, val := range m {
		L.PushString(k)
		goToLua(L, val)
		L.SetTable(luaMapTableIndex)
	}
}

func luaToGo(L *lua.State, index int) any {
	switch L.TypeOf(index) {
	case lua.TypeNil:
		return nil
	case lua.TypeBoolean:
		return L.ToBoolean(index)
	case lua.TypeNumber:
		num, _ := L.ToNumber(index)
		if num == math.Trunc(num) && math.Abs(num) < maxExactInt {
			return int(num)
		}
		return num
	case lua.TypeString:
		s, _ := L.ToString(index)
		return s
	case lua.TypeTable:
		return luaTableToAny(L, L.AbsIndex(index))
	default:
		return nil
	}
}

// luaTableToAny converts a table into []any when its keys are exactly 1..n,
// and into map[string]any otherwise. index must be absolute.
func luaTableToAny(L *lua.State, index int) any {
	named := map[string]any{}
	numbered := map[int]any{}

	L.PushNil()
	for L.Next(index) {
		switch L.TypeOf(-2) {
		case lua.TypeString:
			key, _ := L.ToString(-2)
			named[key] = luaToGo(L, -1)
		case lua.TypeNumber:
			num, _ := L.ToNumber(-2)
			if num == math.Trunc(num) {
				numbered[int(num)] = luaToGo(L, -1)
			} else {
				named[strconv.FormatFloat(num, 'f', -1, 64)] = luaToGo(L, -1)
			}
		}
		L.Pop(1)
	}

	if len(named) == 0 && len(numbered) > 0 && isSequence(numbered) {
		arr := make([]any, len(numbered))
		for i := range arr {
			arr[i] = numbered[i+1]
		}
		return arr
	}

	for k, v := range numbered {
		named[strconv.Itoa(k)] = v
	}
	return named
}

func isSequence(m map[int]any) bool {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	for i, k := range keys {
		if k != i+1 {
			return false
		}
	}
	return true
}
