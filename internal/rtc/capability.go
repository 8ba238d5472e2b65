package rtc

import (
	"context"

	"github.com/dshills/inkwell/internal/content"
	"github.com/dshills/inkwell/internal/format"
)

// PluginName is the registry name under which a collaboration plugin is
// looked up.
const PluginName = "rtc"

// Capability names one operation a collaboration runtime may implement.
type Capability string

// Known capabilities.
const (
	CapUndo               Capability = "undo"
	CapRedo               Capability = "redo"
	CapHasUndo            Capability = "hasUndo"
	CapHasRedo            Capability = "hasRedo"
	CapTransact           Capability = "transact"
	CapApplyFormat        Capability = "applyFormat"
	CapToggleFormat       Capability = "toggleFormat"
	CapRemoveFormat       Capability = "removeFormat"
	CapSetContent         Capability = "setContent"
	CapGetContent         Capability = "getContent"
	CapInsertContent      Capability = "insertContent"
	CapGetSelectedContent Capability = "getSelectedContent"
)

// AllCapabilities lists every known capability in declaration order.
func AllCapabilities() []Capability {
	return []Capability{
		CapUndo, CapRedo, CapHasUndo, CapHasRedo, CapTransact,
		CapApplyFormat, CapToggleFormat, CapRemoveFormat,
		CapSetContent, CapGetContent, CapInsertContent, CapGetSelectedContent,
	}
}

// Runtime is the handle a collaboration plugin yields from Setup. It declares
// the capabilities it implements; each declared capability must be backed by
// the matching interface below.
type Runtime interface {
	Capabilities() []Capability
}

// Undoer implements CapUndo.
type Undoer interface {
	Undo() error
}

// Redoer implements CapRedo.
type Redoer interface {
	Redo() error
}

// HistoryReporter implements CapHasUndo and CapHasRedo.
type HistoryReporter interface {
	HasUndo() (bool, error)
	HasRedo() (bool, error)
}

// Transactor implements CapTransact. The runtime records everything fn does
// as one shared history entry.
type Transactor interface {
	Transact(fn func() error) error
}

// FormatApplier implements CapApplyFormat.
type FormatApplier interface {
	ApplyFormat(name string, vars format.Vars) error
}

// FormatToggler implements CapToggleFormat.
type FormatToggler interface {
	ToggleFormat(name string, vars format.Vars) error
}

// FormatRemover implements CapRemoveFormat.
type FormatRemover interface {
	RemoveFormat(name string, vars format.Vars) error
}

// ContentSetter implements CapSetContent.
type ContentSetter interface {
	SetContent(tree *content.Node) error
}

// ContentGetter implements CapGetContent.
type ContentGetter interface {
	GetContent() (*content.Node, error)
}

// ContentInserter implements CapInsertContent.
type ContentInserter interface {
	InsertContent(tree *content.Node) error
}

// SelectionReader implements CapGetSelectedContent.
type SelectionReader interface {
	GetSelectedContent() (*content.Node, error)
}

// CollabPlugin is the contract a plugin registered as PluginName must meet.
// Setup may block until the runtime is ready and must honour ctx.
type CollabPlugin interface {
	Setup(ctx context.Context, host Host) (Runtime, error)
}

var capabilityChecks = map[Capability]func(Runtime) bool{
	CapUndo:               func(r Runtime) bool { _, ok := r.(Undoer); return ok },
	CapRedo:               func(r Runtime) bool { _, ok := r.(Redoer); return ok },
	CapHasUndo:            func(r Runtime) bool { _, ok := r.(HistoryReporter); return ok },
	CapHasRedo:            func(r Runtime) bool { _, ok := r.(HistoryReporter); return ok },
	CapTransact:           func(r Runtime) bool { _, ok := r.(Transactor); return ok },
	CapApplyFormat:        func(r Runtime) bool { _, ok := r.(FormatApplier); return ok },
	CapToggleFormat:       func(r Runtime) bool { _, ok := r.(FormatToggler); return ok },
	CapRemoveFormat:       func(r Runtime) bool { _, ok := r.(FormatRemover); return ok },
	CapSetContent:         func(r Runtime) bool { _, ok := r.(ContentSetter); return ok },
	CapGetContent:         func(r Runtime) bool { _, ok := r.(ContentGetter); return ok },
	CapInsertContent:      func(r Runtime) bool { _, ok := r.(ContentInserter); return ok },
	CapGetSelectedContent: func(r Runtime) bool { _, ok := r.(SelectionReader); return ok },
}

// Validate checks that every capability rt declares is known and backed by
// its interface. plugin names the source in the returned *ShapeError.
func Validate(plugin string, rt Runtime) error {
	if rt == nil {
		return &ShapeError{Plugin: plugin}
	}

	var missing, unknown []Capability
	seen := make(map[Capability]bool)
	for _, c := range rt.Capabilities() {
		if seen[c] {
			continue
		}
		seen[c] = true

		check, ok := capabilityChecks[c]
		if !ok {
			unknown = append(unknown, c)
			continue
		}
		if !check(rt) {
			missing = append(missing, c)
		}
	}

	if len(missing) > 0 || len(unknown) > 0 {
		return &ShapeError{Plugin: plugin, Missing: missing, Unknown: unknown}
	}
	return nil
}
