package editor

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/dshills/inkwell/internal/content"
	"github.com/dshills/inkwell/internal/format"
	"github.com/dshills/inkwell/internal/keyboard"
	"github.com/dshills/inkwell/internal/logging"
	"github.com/dshills/inkwell/internal/notify"
	"github.com/dshills/inkwell/internal/plugin"
	"github.com/dshills/inkwell/internal/rtc"
	"github.com/dshills/inkwell/internal/undo"
)

// DefaultSetupTimeout bounds rtc setup when no timeout is configured.
const DefaultSetupTimeout = 10 * time.Second

// Initializer is implemented by plugins that attach to the editor during
// Init. Plugins are initialized before the rtc adaptor is resolved, so an
// Initializer may only check for the presence of a collaboration plugin.
type Initializer interface {
	Init(ctx context.Context, e *Editor) error
}

// Editor is a rich-text editor instance.
type Editor struct {
	id     string
	logger *logging.Logger

	notifier    *notify.Notifier
	ownNotifier bool

	plugins    *plugin.Registry
	parser     *content.Parser
	serializer *content.Serializer
	formats    *format.Registry
	history    *undo.Manager
	cell       *rtc.Cell
	keymaps    *keyboard.Registry
	commands   *Commands
	buttons    *Buttons
	local      *local

	setupTimeout time.Duration
	undoLevels   int
	rootBlock    string

	// Document state, protected by mu.
	mu   sync.RWMutex
	root *content.Node
	sel  content.Bookmark

	initialized  atomic.Bool
	collab       atomic.Bool
	closed       atomic.Bool
	overridesSet atomic.Bool
}

// Option configures an Editor.
type Option func(*Editor)

// WithID sets the editor ID. The default is a random UUID.
func WithID(id string) Option {
	return func(e *Editor) {
		if id != "" {
			e.id = id
		}
	}
}

// WithLogger sets the logger. The editor logs under the "editor" component.
func WithLogger(l *logging.Logger) Option {
	return func(e *Editor) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithNotifier shares a notifier with the caller. The editor does not close
// a notifier it did not create.
func WithNotifier(n *notify.Notifier) Option {
	return func(e *Editor) {
		if n != nil {
			e.notifier = n
		}
	}
}

// WithRootBlock sets the element that wraps top-level inline content.
func WithRootBlock(name string) Option {
	return func(e *Editor) {
		e.rootBlock = name
	}
}

// WithUndoLevels sets the number of local undo levels kept.
func WithUndoLevels(n int) Option {
	return func(e *Editor) {
		e.undoLevels = n
	}
}

// WithSetupTimeout bounds the time Init waits for the rtc adaptor.
func WithSetupTimeout(d time.Duration) Option {
	return func(e *Editor) {
		if d > 0 {
			e.setupTimeout = d
		}
	}
}

// New creates an editor with an empty document.
func New(opts ...Option) *Editor {
	e := &Editor{
		id:           uuid.NewString(),
		logger:       logging.Nop(),
		setupTimeout: DefaultSetupTimeout,
		formats:      format.NewRegistry(),
		keymaps:      keyboard.NewRegistry(),
		commands:     NewCommands(),
		buttons:      NewButtons(),
		root:         content.NewFragment(),
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.notifier == nil {
		e.notifier = notify.New()
		e.ownNotifier = true
	}
	e.logger = e.logger.WithComponent("editor").WithField("editor", e.id)

	var parserOpts []content.ParserOption
	if e.rootBlock != "" {
		parserOpts = append(parserOpts, content.WithRootBlock(e.rootBlock))
	}
	e.parser = content.NewParser(parserOpts...)
	e.serializer = content.NewSerializer(content.SerializerOptions{})

	e.plugins = plugin.NewRegistry(plugin.WithLogger(e.logger.WithComponent("plugin")))
	e.cell = rtc.NewCell(rtc.WithNotifier(e.notifier), rtc.WithLogger(e.logger.WithComponent("rtc")))
	e.local = &local{e: e}
	e.history = undo.NewManager(e.local, undo.WithLimit(e.undoLevels), undo.WithNotifier(e.notifier))

	e.registerDefaultCommands()
	return e
}

// ID returns the editor ID.
func (e *Editor) ID() string {
	return e.id
}

// RTC returns the rtc adaptor cell.
func (e *Editor) RTC() *rtc.Cell {
	return e.cell
}

// Plugin looks up a registered plugin.
func (e *Editor) Plugin(name string) (any, bool) {
	return e.plugins.Lookup(name)
}

// Parser returns the editor parser.
func (e *Editor) Parser() *content.Parser {
	return e.parser
}

// Serializer returns the editor serializer.
func (e *Editor) Serializer() *content.Serializer {
	return e.serializer
}

// Local returns the editor's single-user implementation.
func (e *Editor) Local() rtc.Local {
	return e.local
}

// Logger returns the editor logger.
func (e *Editor) Logger() *logging.Logger {
	return e.logger
}

// Notifier returns the notifier carrying the mode signal and change events.
func (e *Editor) Notifier() *notify.Notifier {
	return e.notifier
}

// Formats returns the format registry.
func (e *Editor) Formats() *format.Registry {
	return e.formats
}

// History returns the local undo manager. In collaborative mode it is idle.
func (e *Editor) History() *undo.Manager {
	return e.history
}

// Plugins returns the plugin registry.
func (e *Editor) Plugins() *plugin.Registry {
	return e.plugins
}

// Keymaps returns the keymap registry.
func (e *Editor) Keymaps() *keyboard.Registry {
	return e.keymaps
}

// RegisterPlugin adds a plugin. Plugins must be registered before Init.
func (e *Editor) RegisterPlugin(p plugin.Plugin) error {
	if e.initialized.Load() {
		return fmt.Errorf("register %q: %w", p.Name(), ErrAlreadyInitialized)
	}
	return e.plugins.Register(p)
}

// Collaborative reports whether a collaboration runtime owns the document.
func (e *Editor) Collaborative() bool {
	return e.collab.Load()
}

// OverridesAttached reports whether local keyboard overrides were attached.
func (e *Editor) OverridesAttached() bool {
	return e.overridesSet.Load()
}

// Init initializes plugins, resolves the rtc adaptor and attaches keyboard
// overrides. A failing collaboration plugin fails Init; the editor does not
// fall back to plain mode. Init may only run once.
func (e *Editor) Init(ctx context.Context) error {
	if e.closed.Load() {
		return ErrClosed
	}
	if !e.initialized.CompareAndSwap(false, true) {
		return ErrAlreadyInitialized
	}

	if err := e.plugins.Init(ctx, e.initPlugin); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("init plugins: %w", err)
		}
		for name, perr := range e.plugins.Errors() {
			e.logger.WithField("plugin", name).Warn("init failed: %v", perr)
		}
	}
	e.logger.Debug("plugins active: %d of %d", len(e.plugins.ListByState(plugin.StateActive)), e.plugins.Count())

	setupCtx, cancel := context.WithTimeout(ctx, e.setupTimeout)
	defer cancel()
	collab, err := rtc.Setup(setupCtx, e)
	if err != nil {
		e.logger.Error("rtc setup failed: %v", err)
		return fmt.Errorf("rtc setup: %w", err)
	}
	e.collab.Store(collab)

	attached, err := keyboard.SetupOverrides(e)
	if err != nil {
		return fmt.Errorf("keyboard overrides: %w", err)
	}
	e.overridesSet.Store(attached)

	if !collab {
		if _, err := rtc.AddUndoLevel(e, nil, "init").Unwrap(); err != nil {
			return fmt.Errorf("initial undo level: %w", err)
		}
	}

	e.logger.Info("initialized (collaborative=%t, overrides=%t)", collab, attached)
	return nil
}

func (e *Editor) initPlugin(ctx context.Context, p plugin.Plugin) error {
	in, ok := p.(Initializer)
	if !ok {
		return nil
	}
	return in.Init(ctx, e)
}

// Close closes the plugins and, when the editor created it, the notifier.
func (e *Editor) Close() error {
	if !e.closed.CompareAndSwap(false, true) {
		return nil
	}
	err := e.plugins.Close()
	if e.ownNotifier {
		e.notifier.Close()
	}
	if err != nil {
		return fmt.Errorf("close plugins: %w", err)
	}
	return nil
}

// Edit runs fn against a copy of the local document and installs the result
// as one undoable change. An empty event changes only the selection. Edit is
// refused in collaborative mode.
func (e *Editor) Edit(event string, fn keyboard.EditFunc) error {
	r := rtc.Block(e, "edit", func() error {
		return e.edit(event, fn)
	})
	if r.Status != rtc.StatusOK {
		return r.Err
	}
	return r.Value
}

func (e *Editor) edit(event string, fn keyboard.EditFunc) error {
	if event != "" {
		e.history.BeforeChange(nil)
	}

	e.mu.Lock()
	root := e.root.Clone(true)
	sel, err := fn(root, e.sel)
	if err != nil {
		e.mu.Unlock()
		return err
	}
	e.root = root
	e.sel = sel.Clamp(root.ChildCount())
	sel = e.sel
	e.mu.Unlock()

	e.notifier.Publish(notify.PathSelection, sel, e.id)
	if event == "" {
		return nil
	}
	if _, err := e.history.Add(nil, event); err != nil {
		return err
	}
	return nil
}

// Select sets the selection, clamped to the document.
func (e *Editor) Select(bm content.Bookmark) content.Bookmark {
	e.mu.Lock()
	e.sel = bm.Clamp(e.root.ChildCount())
	bm = e.sel
	e.mu.Unlock()

	e.notifier.Publish(notify.PathSelection, bm, e.id)
	return bm
}

// Selection returns the current selection.
func (e *Editor) Selection() content.Bookmark {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.sel
}

// View calls fn with the local document and selection under a read lock.
// fn must not modify root or call back into the editor.
func (e *Editor) View(fn func(root *content.Node, sel content.Bookmark)) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	fn(e.root, e.sel)
}
