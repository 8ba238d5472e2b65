package lua

import (
	"fmt"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/inkwell/internal/format"
)

// Bridge provides utilities for Go-Lua interoperability.
type Bridge struct {
	L *lua.LState
}

// NewBridge creates a new Bridge for the given Lua state.
func NewBridge(L *lua.LState) *Bridge {
	return &Bridge{L: L}
}

// ToGoValue converts a Lua value to a Go value.
func (b *Bridge) ToGoValue(lv lua.LValue) any {
	return b.toGoValueWithVisited(lv, make(map[*lua.LTable]bool))
}

func (b *Bridge) toGoValueWithVisited(lv lua.LValue, visited map[*lua.LTable]bool) any {
	switch v := lv.(type) {
	case lua.LBool:
		return bool(v)
	case lua.LNumber:
		f := float64(v)
		if f == float64(int64(f)) {
			return int64(f)
		}
		return f
	case lua.LString:
		return string(v)
	case *lua.LTable:
		// Break circular references
		if visited[v] {
			return nil
		}
		visited[v] = true
		m := make(map[string]any)
		v.ForEach(func(k, val lua.LValue) {
			m[tableKey(k)] = b.toGoValueWithVisited(val, visited)
		})
		return m
	case *lua.LUserData:
		return v.Value
	default:
		return nil
	}
}

func tableKey(k lua.LValue) string {
	switch kv := k.(type) {
	case lua.LString:
		return string(kv)
	case lua.LNumber:
		return fmt.Sprintf("%v", float64(kv))
	default:
		return k.String()
	}
}

// VarsTable converts format variables to a Lua table. Nil vars become an
// empty table.
func (b *Bridge) VarsTable(vars format.Vars) *lua.LTable {
	t := b.L.NewTable()
	for k, v := range format.Normalize(vars) {
		t.RawSetString(k, lua.LString(v))
	}
	return t
}

// GetTableFunc gets a function field from a Lua table.
func (b *Bridge) GetTableFunc(t *lua.LTable, key string) (*lua.LFunction, bool) {
	f, ok := t.RawGetString(key).(*lua.LFunction)
	return f, ok
}

// WrapGoFunc wraps a Go function that takes no arguments for use in Lua.
// A returned error is raised as a Lua error.
func (b *Bridge) WrapGoFunc(fn func() error) *lua.LFunction {
	return b.L.NewFunction(func(L *lua.LState) int {
		if err := fn(); err != nil {
			L.RaiseError("%s", err.Error())
		}
		return 0
	})
}

// ToString returns the string form of a Lua string or number. Nil yields "".
func ToString(lv lua.LValue) (string, error) {
	switch v := lv.(type) {
	case lua.LString:
		return string(v), nil
	case lua.LNumber:
		return v.String(), nil
	case *lua.LNilType:
		return "", nil
	default:
		return "", fmt.Errorf("%w: want string, got %s", ErrBadReturn, lv.Type())
	}
}
