package rtc

import (
	"github.com/dshills/inkwell/internal/content"
	"github.com/dshills/inkwell/internal/format"
	"github.com/dshills/inkwell/internal/undo"
)

// Plain forwards every capability to the editor's local implementation.
type Plain struct {
	local Local
}

// NewPlain creates the local adaptor.
func NewPlain(local Local) *Plain {
	return &Plain{local: local}
}

// Undo restores the previous local level.
func (p *Plain) Undo() Result[*undo.Level] {
	return From(p.local.History().Undo())
}

// Redo restores the next local level.
func (p *Plain) Redo() Result[*undo.Level] {
	return From(p.local.History().Redo())
}

// HasUndo reports whether local history can undo.
func (p *Plain) HasUndo() Result[bool] {
	return OK(p.local.History().HasUndo())
}

// HasRedo reports whether local history can redo.
func (p *Plain) HasRedo() Result[bool] {
	return OK(p.local.History().HasRedo())
}

// Transact runs fn as a single local undo level.
func (p *Plain) Transact(fn func() error) Result[*undo.Level] {
	return From(p.local.History().Transact(fn))
}

func (p *Plain) ApplyFormat(name string, vars format.Vars) Result[Empty] {
	return From(Empty{}, p.local.ApplyFormat(name, vars))
}

func (p *Plain) ToggleFormat(name string, vars format.Vars) Result[Empty] {
	return From(Empty{}, p.local.ToggleFormat(name, vars))
}

func (p *Plain) RemoveFormat(name string, vars format.Vars) Result[Empty] {
	return From(Empty{}, p.local.RemoveFormat(name, vars))
}

func (p *Plain) SetContent(tree *content.Node) Result[Empty] {
	return From(Empty{}, p.local.SetContent(tree))
}

func (p *Plain) GetContent() Result[*content.Node] {
	return OK(p.local.GetContent())
}

func (p *Plain) InsertContent(tree *content.Node) Result[Empty] {
	return From(Empty{}, p.local.InsertContent(tree))
}

func (p *Plain) GetSelectedContent() Result[*content.Node] {
	return OK(p.local.GetSelectedContent())
}

// UndoManager returns the local undo manager capability.
func (p *Plain) UndoManager() UndoManager {
	return plainUndo{history: p.local.History()}
}

// Collaborative returns false.
func (p *Plain) Collaborative() bool {
	return false
}

type plainUndo struct {
	history *undo.Manager
}

func (u plainUndo) BeforeChange(bm *content.Bookmark) Result[Empty] {
	u.history.BeforeChange(bm)
	return OK(Empty{})
}

func (u plainUndo) AddUndoLevel(level *undo.Level, event string) Result[*undo.Level] {
	return From(u.history.Add(level, event))
}
