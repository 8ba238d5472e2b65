package rtc

import (
	"github.com/dshills/inkwell/internal/content"
	"github.com/dshills/inkwell/internal/format"
	"github.com/dshills/inkwell/internal/undo"
)

// Collab wraps a validated collaboration runtime. Capabilities the runtime
// does not declare report Unsupported; history is owned by the runtime, so
// undo operations return a placeholder level.
type Collab struct {
	rt   Runtime
	caps map[Capability]bool
}

// NewCollab wraps rt. rt must already have passed Validate.
func NewCollab(rt Runtime) *Collab {
	caps := make(map[Capability]bool)
	for _, c := range rt.Capabilities() {
		caps[c] = true
	}
	return &Collab{rt: rt, caps: caps}
}

// Runtime returns the wrapped runtime.
func (c *Collab) Runtime() Runtime {
	return c.rt
}

// Supports reports whether the runtime declares capability.
func (c *Collab) Supports(capability Capability) bool {
	return c.caps[capability]
}

func (c *Collab) Undo() Result[*undo.Level] {
	if !c.caps[CapUndo] {
		return Unsupported[*undo.Level](string(CapUndo))
	}
	if err := c.rt.(Undoer).Undo(); err != nil {
		return Failed[*undo.Level](err)
	}
	return OK(undo.CompleteLevel())
}

func (c *Collab) Redo() Result[*undo.Level] {
	if !c.caps[CapRedo] {
		return Unsupported[*undo.Level](string(CapRedo))
	}
	if err := c.rt.(Redoer).Redo(); err != nil {
		return Failed[*undo.Level](err)
	}
	return OK(undo.CompleteLevel())
}

func (c *Collab) HasUndo() Result[bool] {
	if !c.caps[CapHasUndo] {
		return Unsupported[bool](string(CapHasUndo))
	}
	has, err := c.rt.(HistoryReporter).HasUndo()
	return From(has, err)
}

func (c *Collab) HasRedo() Result[bool] {
	if !c.caps[CapHasRedo] {
		return Unsupported[bool](string(CapHasRedo))
	}
	has, err := c.rt.(HistoryReporter).HasRedo()
	return From(has, err)
}

func (c *Collab) Transact(fn func() error) Result[*undo.Level] {
	if !c.caps[CapTransact] {
		return Unsupported[*undo.Level](string(CapTransact))
	}
	if err := c.rt.(Transactor).Transact(fn); err != nil {
		return Failed[*undo.Level](err)
	}
	return OK(undo.CompleteLevel())
}

func (c *Collab) ApplyFormat(name string, vars format.Vars) Result[Empty] {
	if !c.caps[CapApplyFormat] {
		return Unsupported[Empty](string(CapApplyFormat))
	}
	return From(Empty{}, c.rt.(FormatApplier).ApplyFormat(name, format.Normalize(vars)))
}

func (c *Collab) ToggleFormat(name string, vars format.Vars) Result[Empty] {
	if !c.caps[CapToggleFormat] {
		return Unsupported[Empty](string(CapToggleFormat))
	}
	return From(Empty{}, c.rt.(FormatToggler).ToggleFormat(name, format.Normalize(vars)))
}

func (c *Collab) RemoveFormat(name string, vars format.Vars) Result[Empty] {
	if !c.caps[CapRemoveFormat] {
		return Unsupported[Empty](string(CapRemoveFormat))
	}
	return From(Empty{}, c.rt.(FormatRemover).RemoveFormat(name, format.Normalize(vars)))
}

func (c *Collab) SetContent(tree *content.Node) Result[Empty] {
	if !c.caps[CapSetContent] {
		return Unsupported[Empty](string(CapSetContent))
	}
	return From(Empty{}, c.rt.(ContentSetter).SetContent(tree))
}

func (c *Collab) GetContent() Result[*content.Node] {
	if !c.caps[CapGetContent] {
		return Unsupported[*content.Node](string(CapGetContent))
	}
	return From(c.rt.(ContentGetter).GetContent())
}

func (c *Collab) InsertContent(tree *content.Node) Result[Empty] {
	if !c.caps[CapInsertContent] {
		return Unsupported[Empty](string(CapInsertContent))
	}
	return From(Empty{}, c.rt.(ContentInserter).InsertContent(tree))
}

func (c *Collab) GetSelectedContent() Result[*content.Node] {
	if !c.caps[CapGetSelectedContent] {
		return Unsupported[*content.Node](string(CapGetSelectedContent))
	}
	return From(c.rt.(SelectionReader).GetSelectedContent())
}

// UndoManager returns the collaborative undo capability: BeforeChange is a
// no-op and AddUndoLevel is unsupported.
func (c *Collab) UndoManager() UndoManager {
	return collabUndo{}
}

// Collaborative returns true.
func (c *Collab) Collaborative() bool {
	return true
}

type collabUndo struct{}

func (collabUndo) BeforeChange(*content.Bookmark) Result[Empty] {
	return OK(Empty{})
}

func (collabUndo) AddUndoLevel(*undo.Level, string) Result[*undo.Level] {
	return Unsupported[*undo.Level]("addUndoLevel")
}
