package lua

import (
	"strings"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/inkwell/internal/logging"
)

// Sandbox restricts Lua execution to safe operations.
type Sandbox struct {
	L *lua.LState

	logger *logging.Logger

	// Preloaded modules require may resolve besides the safe built-ins.
	allowed map[string]bool
}

// safeModules are built in to gopher-lua and always loadable.
var safeModules = map[string]bool{
	"string": true,
	"table":  true,
	"math":   true,
	"bit32":  true,
	"utf8":   true,
}

// NewSandbox creates a new sandbox for the Lua state.
func NewSandbox(L *lua.LState, logger *logging.Logger) *Sandbox {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Sandbox{
		L:       L,
		logger:  logger,
		allowed: make(map[string]bool),
	}
}

// Install sets up the sandbox restrictions.
func (s *Sandbox) Install() {
	// Remove functions that load code from disk or strings
	for _, name := range []string{"dofile", "loadfile", "load", "loadstring"} {
		s.L.SetGlobal(name, lua.LNil)
	}

	s.installSafePrint()
	s.installSafeRequire()
}

// Allow lets require resolve a preloaded module.
func (s *Sandbox) Allow(name string) {
	s.allowed[name] = true
}

// Allowed reports whether require may load name.
func (s *Sandbox) Allowed(name string) bool {
	return safeModules[name] || s.allowed[name]
}

// installSafePrint sends print output to the logger.
func (s *Sandbox) installSafePrint() {
	s.L.SetGlobal("print", s.L.NewFunction(func(L *lua.LState) int {
		parts := make([]string, 0, L.GetTop())
		for i := 1; i <= L.GetTop(); i++ {
			parts = append(parts, L.ToStringMeta(L.Get(i)).String())
		}
		s.logger.Info("%s", strings.Join(parts, "\t"))
		return 0
	}))
}

// installSafeRequire clears package.path/cpath so nothing loads from disk and
// replaces require with a whitelist-based version.
func (s *Sandbox) installSafeRequire() {
	if pkgTable, ok := s.L.GetGlobal("package").(*lua.LTable); ok {
		s.L.SetField(pkgTable, "path", lua.LString(""))
		s.L.SetField(pkgTable, "cpath", lua.LString(""))
	}

	originalRequire := s.L.GetGlobal("require")

	s.L.SetGlobal("require", s.L.NewFunction(func(L *lua.LState) int {
		modName := L.CheckString(1)
		if !s.Allowed(modName) {
			L.RaiseError("module %q is not available", modName)
			return 0
		}
		L.Push(originalRequire)
		L.Push(lua.LString(modName))
		L.Call(1, 1)
		return 1
	}))
}
