package lua

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/inkwell/internal/format"
	"github.com/dshills/inkwell/internal/logging"
)

func newTestState(t *testing.T, opts ...StateOption) *State {
	t.Helper()
	s, err := NewState(opts...)
	if err != nil {
		t.Fatalf("NewState() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStateDoStringAndCall(t *testing.T) {
	s := newTestState(t)

	if err := s.DoString(`function add(a, b) return a + b end`); err != nil {
		t.Fatalf("DoString() error = %v", err)
	}
	results, err := s.Call(context.Background(), "add", lua.LNumber(2), lua.LNumber(3))
	if err != nil {
		t.Fatalf("Call() error = %v", err)
	}
	if len(results) != 1 || results[0] != lua.LNumber(5) {
		t.Errorf("Call() = %v", results)
	}

	if _, err := s.Call(context.Background(), "missing"); err == nil {
		t.Error("Call(missing) should fail")
	}
	s.SetGlobal("notfn", lua.LString("x"))
	if _, err := s.Call(context.Background(), "notfn"); err == nil {
		t.Error("Call(non-function) should fail")
	}
}

func TestStateSandbox(t *testing.T) {
	tests := []struct {
		name    string
		code    string
		wantErr bool
	}{
		{"string module", `local s = require("string"); assert(s.upper("a") == "A")`, false},
		{"os module", `require("os")`, true},
		{"io module", `require("io")`, true},
		{"unknown module", `require("socket")`, true},
		{"dofile removed", `dofile("x.lua")`, true},
		{"load removed", `load("return 1")`, true},
		{"os global absent", `os.exit(1)`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestState(t)
			err := s.DoString(tt.code)
			if (err != nil) != tt.wantErr {
				t.Errorf("DoString(%q) error = %v, wantErr %v", tt.code, err, tt.wantErr)
			}
		})
	}
}

func TestStatePrintGoesToLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.New(logging.Config{Level: logging.LevelInfo, Output: &buf, Prefix: "test"})
	s := newTestState(t, WithLogger(logger))

	if err := s.DoString(`print("hello", 42)`); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "hello\t42") {
		t.Errorf("log output = %q", buf.String())
	}
}

func TestStatePreloadModule(t *testing.T) {
	s := newTestState(t)
	s.PreloadModule("greet", map[string]lua.LGFunction{
		"hi": func(L *lua.LState) int {
			L.Push(lua.LString("hi " + L.CheckString(1)))
			return 1
		},
	})

	if err := s.DoString(`result = require("greet").hi("there")`); err != nil {
		t.Fatal(err)
	}
	if got := s.GetGlobal("result"); got.String() != "hi there" {
		t.Errorf("result = %v", got)
	}
}

func TestStateExecutionTimeout(t *testing.T) {
	s := newTestState(t, WithExecutionTimeout(50*time.Millisecond))

	err := s.DoString(`while true do end`)
	if !errors.Is(err, ErrExecutionTimeout) {
		t.Fatalf("DoString() error = %v, want ErrExecutionTimeout", err)
	}

	// The state stays usable after a timeout.
	if err := s.DoString(`x = 1`); err != nil {
		t.Errorf("DoString() after timeout error = %v", err)
	}
}

func TestStateContextCancel(t *testing.T) {
	s := newTestState(t, WithExecutionTimeout(0))
	if err := s.DoString(`function spin() while true do end end`); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := s.Call(ctx, "spin")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Call() error = %v, want context deadline", err)
	}
}

func TestStateClosed(t *testing.T) {
	s := newTestState(t)
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
	if err := s.DoString(`x = 1`); !errors.Is(err, ErrStateClosed) {
		t.Errorf("DoString() error = %v", err)
	}
	if _, err := s.Call(context.Background(), "f"); !errors.Is(err, ErrStateClosed) {
		t.Errorf("Call() error = %v", err)
	}
	if s.GetGlobal("x") != lua.LNil {
		t.Error("GetGlobal() on closed state should be nil")
	}
	if err := s.Close(); err != nil {
		t.Errorf("second Close() = %v", err)
	}
}

func TestStateYield(t *testing.T) {
	s := newTestState(t)
	s.PreloadModule("host", map[string]lua.LGFunction{
		// suspend runs a call on another goroutine while Lua waits.
		"suspend": func(L *lua.LState) int {
			err := s.Yield(func() error {
				done := make(chan error, 1)
				go func() { done <- s.DoString(`inner = (inner or 0) + 1`) }()
				return <-done
			})
			if err != nil {
				L.RaiseError("%s", err.Error())
			}
			return 0
		},
	})

	if err := s.DoString(`require("host").suspend(); outer = inner + 1`); err != nil {
		t.Fatalf("DoString() error = %v", err)
	}
	if got := s.GetGlobal("outer"); got != lua.LNumber(2) {
		t.Errorf("outer = %v", got)
	}

	// The enclosing call keeps its timeout after a nested call returns.
	s2 := newTestState(t, WithExecutionTimeout(100*time.Millisecond))
	s2.PreloadModule("host", map[string]lua.LGFunction{
		"suspend": func(L *lua.LState) int {
			s2.Yield(func() error { return s2.DoString(`x = 1`) })
			return 0
		},
	})
	err := s2.DoString(`require("host").suspend(); while true do end`)
	if !errors.Is(err, ErrExecutionTimeout) {
		t.Errorf("DoString() error = %v, want ErrExecutionTimeout", err)
	}
}

func TestBridge(t *testing.T) {
	s := newTestState(t)
	b := NewBridge(s.L)

	tbl := b.VarsTable(format.Vars{"value": "red"})
	if got := tbl.RawGetString("value"); got.String() != "red" {
		t.Errorf("VarsTable value = %v", got)
	}
	if empty := b.VarsTable(nil); empty.Len() != 0 {
		t.Error("VarsTable(nil) should be empty")
	}

	if err := s.DoString(`t = { n = 2, s = "x", f = function() end }`); err != nil {
		t.Fatal(err)
	}
	m, ok := b.ToGoValue(s.GetGlobal("t")).(map[string]any)
	if !ok {
		t.Fatalf("ToGoValue(table) = %T", b.ToGoValue(s.GetGlobal("t")))
	}
	if m["n"] != int64(2) || m["s"] != "x" || m["f"] != nil {
		t.Errorf("ToGoValue(table) = %v", m)
	}
	if _, ok := b.GetTableFunc(s.GetGlobal("t").(*lua.LTable), "f"); !ok {
		t.Error("GetTableFunc(f) not found")
	}

	tests := []struct {
		in      lua.LValue
		want    string
		wantErr bool
	}{
		{lua.LString("a"), "a", false},
		{lua.LNumber(3), "3", false},
		{lua.LNil, "", false},
		{lua.LTrue, "", true},
	}
	for _, tt := range tests {
		got, err := ToString(tt.in)
		if got != tt.want || (err != nil) != tt.wantErr {
			t.Errorf("ToString(%v) = %q, %v", tt.in, got, err)
		}
	}
}
