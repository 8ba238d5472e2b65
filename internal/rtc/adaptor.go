package rtc

import (
	"github.com/dshills/inkwell/internal/content"
	"github.com/dshills/inkwell/internal/format"
	"github.com/dshills/inkwell/internal/undo"
)

// Adaptor is the capability set an editor routes its history, content and
// formatting operations through. Exactly one adaptor is installed per editor.
type Adaptor interface {
	Undo() Result[*undo.Level]
	Redo() Result[*undo.Level]
	HasUndo() Result[bool]
	HasRedo() Result[bool]
	Transact(fn func() error) Result[*undo.Level]

	ApplyFormat(name string, vars format.Vars) Result[Empty]
	ToggleFormat(name string, vars format.Vars) Result[Empty]
	RemoveFormat(name string, vars format.Vars) Result[Empty]

	SetContent(tree *content.Node) Result[Empty]
	GetContent() Result[*content.Node]
	InsertContent(tree *content.Node) Result[Empty]
	GetSelectedContent() Result[*content.Node]

	UndoManager() UndoManager

	// Collaborative reports whether history is owned by a shared runtime.
	Collaborative() bool
}

// UndoManager is the nested undo capability. The lock count and level index
// are owned by the implementation.
type UndoManager interface {
	BeforeChange(bm *content.Bookmark) Result[Empty]
	AddUndoLevel(level *undo.Level, event string) Result[*undo.Level]
}

// Local is the editor's own single-user implementation of the capabilities.
type Local interface {
	History() *undo.Manager

	ApplyFormat(name string, vars format.Vars) error
	ToggleFormat(name string, vars format.Vars) error
	RemoveFormat(name string, vars format.Vars) error

	SetContent(tree *content.Node) error
	GetContent() *content.Node
	InsertContent(tree *content.Node) error
	GetSelectedContent() *content.Node
}

// Host is what the rtc layer needs from an editor.
type Host interface {
	// ID identifies the editor instance.
	ID() string

	// RTC returns the editor's adaptor cell.
	RTC() *Cell

	// Plugin looks up a registered plugin by name.
	Plugin(name string) (any, bool)

	Parser() *content.Parser
	Serializer() *content.Serializer

	Local() Local
}
