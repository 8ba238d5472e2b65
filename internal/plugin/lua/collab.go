package lua

import (
	"context"
	"fmt"
	"sync"
	"time"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/inkwell/internal/content"
	"github.com/dshills/inkwell/internal/format"
	"github.com/dshills/inkwell/internal/logging"
	"github.com/dshills/inkwell/internal/rtc"
)

// ModuleName is the module scripts require to reach the editor.
const ModuleName = "inkwell"

// SetupFunc is the global a collaboration script must define.
const SetupFunc = "setup"

// CollabPlugin is an rtc plugin whose runtime is written in Lua.
type CollabPlugin struct {
	path   string
	source string

	timeout time.Duration
	logger  *logging.Logger

	mu    sync.Mutex
	state *State
}

// CollabOption configures a CollabPlugin.
type CollabOption func(*CollabPlugin)

// WithCallTimeout bounds every call into the script.
func WithCallTimeout(d time.Duration) CollabOption {
	return func(p *CollabPlugin) {
		p.timeout = d
	}
}

// WithPluginLogger sets the logger used for script output.
func WithPluginLogger(l *logging.Logger) CollabOption {
	return func(p *CollabPlugin) {
		if l != nil {
			p.logger = l
		}
	}
}

// NewCollabPlugin creates a plugin that runs the script at path.
func NewCollabPlugin(path string, opts ...CollabOption) *CollabPlugin {
	p := &CollabPlugin{path: path}
	p.configure(opts)
	return p
}

// NewCollabPluginSource creates a plugin that runs the given script source.
func NewCollabPluginSource(source string, opts ...CollabOption) *CollabPlugin {
	p := &CollabPlugin{source: source}
	p.configure(opts)
	return p
}

func (p *CollabPlugin) configure(opts []CollabOption) {
	p.timeout = DefaultExecutionTimeout
	p.logger = logging.Nop()
	for _, opt := range opts {
		opt(p)
	}
}

// Name returns the name the editor looks collaboration plugins up by.
func (p *CollabPlugin) Name() string {
	return rtc.PluginName
}

// Setup loads the script, calls its setup function with the editor id and
// wraps the returned table as a runtime.
func (p *CollabPlugin) Setup(ctx context.Context, host rtc.Host) (rtc.Runtime, error) {
	if p.path == "" && p.source == "" {
		return nil, ErrNoScript
	}

	logger := p.logger.WithComponent("lua").WithField("editor", host.ID())
	state, err := NewState(WithExecutionTimeout(p.timeout), WithLogger(logger))
	if err != nil {
		return nil, err
	}
	state.PreloadModule(ModuleName, editorModule(host, logger))

	rt, err := p.load(ctx, state, host)
	if err != nil {
		state.Close()
		return nil, err
	}

	p.mu.Lock()
	if p.state != nil {
		p.state.Close()
	}
	p.state = state
	p.mu.Unlock()

	if rt == nil {
		// A nil *runtime must not become a non-nil interface.
		return nil, nil
	}
	return rt, nil
}

func (p *CollabPlugin) load(ctx context.Context, state *State, host rtc.Host) (*runtime, error) {
	var err error
	if p.source != "" {
		err = state.DoStringContext(ctx, p.source)
	} else {
		err = state.DoFileContext(ctx, p.path)
	}
	if err != nil {
		return nil, fmt.Errorf("load script: %w", err)
	}

	if _, ok := state.GetGlobal(SetupFunc).(*lua.LFunction); !ok {
		return nil, ErrNoSetup
	}
	results, err := state.Call(ctx, SetupFunc, lua.LString(host.ID()))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", SetupFunc, err)
	}
	if len(results) == 0 || results[0] == lua.LNil {
		return nil, nil
	}
	tbl, ok := results[0].(*lua.LTable)
	if !ok {
		return nil, fmt.Errorf("%s: %w: want table, got %s", SetupFunc, ErrBadReturn, results[0].Type())
	}
	return newRuntime(state, host, tbl)
}

// Close releases the script state.
func (p *CollabPlugin) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == nil {
		return nil
	}
	err := p.state.Close()
	p.state = nil
	return err
}

func editorModule(host rtc.Host, logger *logging.Logger) map[string]lua.LGFunction {
	return map[string]lua.LGFunction{
		"log": func(L *lua.LState) int {
			withFields(logger, L).Info("%s", L.CheckString(1))
			return 0
		},
		"warn": func(L *lua.LState) int {
			withFields(logger, L).Warn("%s", L.CheckString(1))
			return 0
		},
		"editor_id": func(L *lua.LState) int {
			L.Push(lua.LString(host.ID()))
			return 1
		},
	}
}

// withFields adds the optional fields table passed as the second argument of
// inkwell.log and inkwell.warn.
func withFields(logger *logging.Logger, L *lua.LState) *logging.Logger {
	tbl, ok := L.Get(2).(*lua.LTable)
	if !ok {
		return logger
	}
	if fields, ok := NewBridge(L).ToGoValue(tbl).(map[string]any); ok && len(fields) > 0 {
		return logger.WithFields(fields)
	}
	return logger
}

// runtime adapts a script's capability table to the rtc interfaces.
// Content crosses the boundary as HTML.
type runtime struct {
	state  *State
	bridge *Bridge
	host   rtc.Host

	fns  map[rtc.Capability]*lua.LFunction
	caps []rtc.Capability
}

func newRuntime(state *State, host rtc.Host, tbl *lua.LTable) (*runtime, error) {
	rt := &runtime{
		state:  state,
		bridge: NewBridge(state.L),
		host:   host,
		fns:    make(map[rtc.Capability]*lua.LFunction),
	}

	var missing []rtc.Capability
	for _, c := range rtc.AllCapabilities() {
		if tbl.RawGetString(string(c)) == lua.LNil {
			continue
		}
		fn, ok := rt.bridge.GetTableFunc(tbl, string(c))
		if !ok {
			missing = append(missing, c)
			continue
		}
		rt.fns[c] = fn
		rt.caps = append(rt.caps, c)
	}
	if len(missing) > 0 {
		return nil, &rtc.ShapeError{Plugin: rtc.PluginName, Missing: missing}
	}
	return rt, nil
}

func (r *runtime) Capabilities() []rtc.Capability {
	out := make([]rtc.Capability, len(r.caps))
	copy(out, r.caps)
	return out
}

func (r *runtime) call(c rtc.Capability, args func(L *lua.LState) []lua.LValue) ([]lua.LValue, error) {
	fn, ok := r.fns[c]
	if !ok {
		return nil, &rtc.UnsupportedError{Feature: string(c)}
	}

	results, err := r.state.Invoke(context.Background(), fn, args)
	if err != nil {
		return nil, fmt.Errorf("lua %s: %w", c, err)
	}
	return results, nil
}

func first(results []lua.LValue) lua.LValue {
	if len(results) == 0 {
		return lua.LNil
	}
	return results[0]
}

func stringArgs(values ...string) func(L *lua.LState) []lua.LValue {
	return func(*lua.LState) []lua.LValue {
		out := make([]lua.LValue, len(values))
		for i, v := range values {
			out[i] = lua.LString(v)
		}
		return out
	}
}

func (r *runtime) Undo() error {
	_, err := r.call(rtc.CapUndo, nil)
	return err
}

func (r *runtime) Redo() error {
	_, err := r.call(rtc.CapRedo, nil)
	return err
}

func (r *runtime) HasUndo() (bool, error) {
	return r.predicate(rtc.CapHasUndo)
}

func (r *runtime) HasRedo() (bool, error) {
	return r.predicate(rtc.CapHasRedo)
}

// predicate calls a capability that must return a boolean. Nil counts as
// false.
func (r *runtime) predicate(c rtc.Capability) (bool, error) {
	results, err := r.call(c, nil)
	if err != nil {
		return false, err
	}
	switch v := r.bridge.ToGoValue(first(results)).(type) {
	case nil:
		return false, nil
	case bool:
		return v, nil
	default:
		return false, fmt.Errorf("lua %s: %w: want boolean, got %T", c, ErrBadReturn, v)
	}
}

// Transact hands the script a function that runs fn. The script decides when
// to call it; an error from fn is returned even if the script swallows it.
// fn runs with the state yielded so it can call back into the runtime.
func (r *runtime) Transact(fn func() error) error {
	var fnErr error
	_, err := r.call(rtc.CapTransact, func(L *lua.LState) []lua.LValue {
		cb := r.bridge.WrapGoFunc(func() error {
			fnErr = r.state.Yield(fn)
			return fnErr
		})
		return []lua.LValue{cb}
	})
	if fnErr != nil {
		return fnErr
	}
	return err
}

func (r *runtime) formatCall(c rtc.Capability, name string, vars format.Vars) error {
	_, err := r.call(c, func(L *lua.LState) []lua.LValue {
		return []lua.LValue{lua.LString(name), r.bridge.VarsTable(vars)}
	})
	return err
}

func (r *runtime) ApplyFormat(name string, vars format.Vars) error {
	return r.formatCall(rtc.CapApplyFormat, name, vars)
}

func (r *runtime) ToggleFormat(name string, vars format.Vars) error {
	return r.formatCall(rtc.CapToggleFormat, name, vars)
}

func (r *runtime) RemoveFormat(name string, vars format.Vars) error {
	return r.formatCall(rtc.CapRemoveFormat, name, vars)
}

func (r *runtime) SetContent(tree *content.Node) error {
	if tree == nil {
		return content.ErrNilTree
	}
	html, err := r.host.Serializer().Serialize(tree)
	if err != nil {
		return err
	}
	_, err = r.call(rtc.CapSetContent, stringArgs(html))
	return err
}

func (r *runtime) InsertContent(tree *content.Node) error {
	if tree == nil {
		return content.ErrNilTree
	}
	html, err := r.host.Serializer().Serialize(tree)
	if err != nil {
		return err
	}
	_, err = r.call(rtc.CapInsertContent, stringArgs(html))
	return err
}

func (r *runtime) GetContent() (*content.Node, error) {
	return r.readTree(rtc.CapGetContent)
}

func (r *runtime) GetSelectedContent() (*content.Node, error) {
	return r.readTree(rtc.CapGetSelectedContent)
}

func (r *runtime) readTree(c rtc.Capability) (*content.Node, error) {
	results, err := r.call(c, nil)
	if err != nil {
		return nil, err
	}
	v := first(results)
	if v == lua.LNil {
		return nil, nil
	}
	html, err := ToString(v)
	if err != nil {
		return nil, fmt.Errorf("lua %s: %w", c, err)
	}
	return r.host.Parser().ParseHTML(html, content.ParseOptions{IsRootContent: true})
}

var (
	_ rtc.CollabPlugin    = (*CollabPlugin)(nil)
	_ rtc.Undoer          = (*runtime)(nil)
	_ rtc.Redoer          = (*runtime)(nil)
	_ rtc.HistoryReporter = (*runtime)(nil)
	_ rtc.Transactor      = (*runtime)(nil)
	_ rtc.FormatApplier   = (*runtime)(nil)
	_ rtc.FormatToggler   = (*runtime)(nil)
	_ rtc.FormatRemover   = (*runtime)(nil)
	_ rtc.ContentSetter   = (*runtime)(nil)
	_ rtc.ContentGetter   = (*runtime)(nil)
	_ rtc.ContentInserter = (*runtime)(nil)
	_ rtc.SelectionReader = (*runtime)(nil)
)
