package lua

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/inkwell/internal/logging"
)

// DefaultExecutionTimeout bounds a single call into Lua.
const DefaultExecutionTimeout = 5 * time.Second

// State wraps gopher-lua with additional features for plugin execution.
//
// IMPORTANT: gopher-lua's LState is not goroutine-safe. The mutex in this
// struct serializes calls from Go code. Go functions invoked from Lua run
// while the mutex is held; to call back into the state they must do so
// through Yield.
type State struct {
	L *lua.LState

	mu      sync.Mutex
	resumed *sync.Cond // signalled when a yield is popped

	// yields holds the tokens of suspended calls, innermost last. A
	// suspended call resumes only once it is innermost again.
	yields    []uint64
	nextYield uint64

	executionTimeout time.Duration

	sandbox *Sandbox
	logger  *logging.Logger

	closed bool
}

// StateOption configures a State.
type StateOption func(*State)

// WithExecutionTimeout sets the execution timeout for Lua calls. Zero
// disables the timeout.
func WithExecutionTimeout(d time.Duration) StateOption {
	return func(s *State) {
		s.executionTimeout = d
	}
}

// WithLogger routes print and inkwell.log output to l.
func WithLogger(l *logging.Logger) StateOption {
	return func(s *State) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewState creates a new sandboxed Lua state.
func NewState(opts ...StateOption) (*State, error) {
	state := &State{
		executionTimeout: DefaultExecutionTimeout,
		logger:           logging.Nop(),
	}
	for _, opt := range opts {
		opt(state)
	}
	state.resumed = sync.NewCond(&state.mu)

	// Create Lua state with limited libraries
	L := lua.NewState(lua.Options{
		SkipOpenLibs: true, // We'll open selectively
	})
	state.L = L

	openSafeLibraries(L)

	state.sandbox = NewSandbox(L, state.logger)
	state.sandbox.Install()

	return state, nil
}

// openSafeLibraries opens only safe Lua standard libraries.
func openSafeLibraries(L *lua.LState) {
	lua.OpenBase(L)
	lua.OpenPackage(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)

	// Note: These are intentionally NOT opened:
	// - io (file system access)
	// - os (system calls, execute)
	// - debug (can bypass sandbox)
}

// DoFile executes a Lua file.
func (s *State) DoFile(path string) error {
	return s.DoFileContext(context.Background(), path)
}

// DoFileContext executes a Lua file, stopping when ctx is done.
func (s *State) DoFileContext(ctx context.Context, path string) error {
	return s.do(ctx, func() error {
		return s.L.DoFile(path)
	})
}

// DoString executes a Lua string.
func (s *State) DoString(code string) error {
	return s.DoStringContext(context.Background(), code)
}

// DoStringContext executes a Lua string, stopping when ctx is done.
func (s *State) DoStringContext(ctx context.Context, code string) error {
	return s.do(ctx, func() error {
		return s.L.DoString(code)
	})
}

func (s *State) do(ctx context.Context, fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStateClosed
	}

	cancel := s.bind(ctx)
	defer cancel()

	return s.translate(ctx, doWithRecovery(fn))
}

// doWithRecovery executes a function with panic recovery.
func doWithRecovery(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("lua panic: %v", r)
		}
	}()
	return fn()
}

// bind attaches ctx, bounded by the execution timeout, to the Lua state.
// The returned function restores the context of the enclosing call, if any.
func (s *State) bind(ctx context.Context) func() {
	var cancel context.CancelFunc
	if s.executionTimeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, s.executionTimeout)
	} else {
		ctx, cancel = context.WithCancel(ctx)
	}
	prev := s.L.Context()
	s.L.SetContext(ctx)
	return func() {
		if prev != nil {
			s.L.SetContext(prev)
		} else {
			s.L.RemoveContext()
		}
		cancel()
	}
}

func (s *State) translate(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if cerr := ctx.Err(); cerr != nil {
		return fmt.Errorf("%w: %v", cerr, err)
	}
	if bound := s.L.Context(); bound != nil && errors.Is(bound.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrExecutionTimeout, err)
	}
	return err
}

// Call calls a global Lua function with the given arguments.
// Returns an empty slice (not nil) if the function returns no values.
func (s *State) Call(ctx context.Context, name string, args ...lua.LValue) ([]lua.LValue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrStateClosed
	}

	fnVal := s.L.GetGlobal(name)
	if fnVal == lua.LNil {
		return nil, fmt.Errorf("function %q not found", name)
	}
	fn, ok := fnVal.(*lua.LFunction)
	if !ok {
		return nil, fmt.Errorf("%q is not a function (got %s)", name, fnVal.Type())
	}

	return s.callBound(ctx, fn, args...)
}

// Invoke calls fn with the arguments built by args. args runs while the
// state is locked.
func (s *State) Invoke(ctx context.Context, fn *lua.LFunction, args func(L *lua.LState) []lua.LValue) ([]lua.LValue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrStateClosed
	}
	var argv []lua.LValue
	if args != nil {
		argv = args(s.L)
	}
	return s.callBound(ctx, fn, argv...)
}

func (s *State) callBound(ctx context.Context, fn *lua.LFunction, args ...lua.LValue) ([]lua.LValue, error) {
	cancel := s.bind(ctx)
	defer cancel()

	results, err := s.pcall(fn, args...)
	return results, s.translate(ctx, err)
}

// Yield runs fn with the state unlocked. It must be called from a Go function
// that Lua is executing. While fn runs other calls, from any goroutine, may
// use the state; they nest on the suspended call's stack. When fn returns the
// suspended call waits until every call that yielded after it has resumed.
func (s *State) Yield(fn func() error) error {
	s.nextYield++
	tok := s.nextYield
	s.yields = append(s.yields, tok)
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		for s.yields[len(s.yields)-1] != tok {
			s.resumed.Wait()
		}
		s.yields = s.yields[:len(s.yields)-1]
		s.resumed.Broadcast()
	}()
	return fn()
}

// pcall calls fn on the state. The mutex must be held.
func (s *State) pcall(fn *lua.LFunction, args ...lua.LValue) ([]lua.LValue, error) {
	// Record stack top before pushing anything
	stackTop := s.L.GetTop()

	s.L.Push(fn)
	for _, arg := range args {
		s.L.Push(arg)
	}

	callErr := doWithRecovery(func() error {
		return s.L.PCall(len(args), lua.MultRet, nil)
	})
	if callErr != nil {
		s.L.SetTop(stackTop)
		return nil, callErr
	}

	// Collect return values (only the new values added after the call)
	nRet := s.L.GetTop() - stackTop
	if nRet <= 0 {
		return []lua.LValue{}, nil
	}
	results := make([]lua.LValue, nRet)
	for i := 0; i < nRet; i++ {
		results[i] = s.L.Get(stackTop + i + 1)
	}
	s.L.Pop(nRet)

	return results, nil
}

// GetGlobal returns a global variable value.
func (s *State) GetGlobal(name string) lua.LValue {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return lua.LNil
	}
	return s.L.GetGlobal(name)
}

// SetGlobal sets a global variable.
func (s *State) SetGlobal(name string, value lua.LValue) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.L.SetGlobal(name, value)
}

// PreloadModule makes a module of Go functions available to require.
func (s *State) PreloadModule(name string, funcs map[string]lua.LGFunction) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.sandbox.Allow(name)
	s.L.PreloadModule(name, func(L *lua.LState) int {
		L.Push(L.SetFuncs(L.NewTable(), funcs))
		return 1
	})
}

// Close releases all resources associated with the Lua state. It waits for
// suspended calls to finish. After Close is called, all other methods will
// return ErrStateClosed.
func (s *State) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	for len(s.yields) > 0 {
		s.resumed.Wait()
	}

	s.L.Close()
	s.closed = true
	return nil
}
