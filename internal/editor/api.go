package editor

import (
	"fmt"

	"github.com/dshills/inkwell/internal/content"
	"github.com/dshills/inkwell/internal/format"
	"github.com/dshills/inkwell/internal/notify"
	"github.com/dshills/inkwell/internal/rtc"
	"github.com/dshills/inkwell/internal/undo"
)

// Undo undoes the last change.
func (e *Editor) Undo() (*undo.Level, error) {
	return rtc.Undo(e).Unwrap()
}

// Redo redoes the last undone change.
func (e *Editor) Redo() (*undo.Level, error) {
	return rtc.Redo(e).Unwrap()
}

// HasUndo reports whether there is something to undo.
func (e *Editor) HasUndo() (bool, error) {
	return rtc.HasUndo(e).Unwrap()
}

// HasRedo reports whether there is something to redo.
func (e *Editor) HasRedo() (bool, error) {
	return rtc.HasRedo(e).Unwrap()
}

// Transact runs fn as a single undoable change.
func (e *Editor) Transact(fn func() error) (*undo.Level, error) {
	return rtc.Transact(e, fn).Unwrap()
}

// BeforeChange records the selection ahead of a change. A nil bookmark uses
// the current selection. No-op in collaborative mode.
func (e *Editor) BeforeChange(bm *content.Bookmark) error {
	return rtc.BeforeChange(e, bm).Err
}

// AddUndoLevel records the current document as an undo level. Unsupported in
// collaborative mode.
func (e *Editor) AddUndoLevel(level *undo.Level, event string) (*undo.Level, error) {
	return rtc.AddUndoLevel(e, level, event).Unwrap()
}

// ApplyFormat applies a named format to the selection.
func (e *Editor) ApplyFormat(name string, vars format.Vars) error {
	return rtc.ApplyFormat(e, name, vars, func() error {
		return e.local.ApplyFormat(name, format.Normalize(vars))
	}).Err
}

// ToggleFormat toggles a named format on the selection.
func (e *Editor) ToggleFormat(name string, vars format.Vars) error {
	return rtc.ToggleFormat(e, name, vars, func() error {
		return e.local.ToggleFormat(name, format.Normalize(vars))
	}).Err
}

// RemoveFormat removes a named format from the selection.
func (e *Editor) RemoveFormat(name string, vars format.Vars) error {
	return rtc.RemoveFormat(e, name, vars, func() error {
		return e.local.RemoveFormat(name, format.Normalize(vars))
	}).Err
}

// SetContent replaces the document with markup or a tree.
func (e *Editor) SetContent(c content.Content) error {
	r := rtc.SetContent(e, c)
	if r.Err != nil {
		return r.Err
	}
	e.notifier.Publish(notify.PathContentSet, r.Value, e.id)
	return nil
}

// SetContentAs parses text in format f and replaces the document with it.
func (e *Editor) SetContentAs(text string, f content.Format) error {
	tree, err := e.parser.Parse(text, content.ParseOptions{Format: f, IsRootContent: true, Insert: true})
	if err != nil {
		return err
	}
	return e.SetContent(tree)
}

// GetContent returns the document serialized in format f. The text format
// always reads the local document.
func (e *Editor) GetContent(f content.Format) (string, error) {
	return rtc.GetContent(e, f, func() (string, error) {
		return e.serialize(e.local.GetContent(), f)
	}).Unwrap()
}

// InsertContent inserts markup or a tree at the selection.
func (e *Editor) InsertContent(c content.Content) error {
	err := rtc.InsertContent(e, c, func() error {
		tree, err := e.toTree(c)
		if err != nil {
			return err
		}
		return e.local.InsertContent(tree)
	}).Err
	if err != nil {
		return err
	}
	e.notifier.Publish(notify.PathContentIns, c, e.id)
	return nil
}

// GetSelectedContent returns the selected content serialized in format f.
func (e *Editor) GetSelectedContent(f content.Format) (string, error) {
	return rtc.GetSelectedContent(e, f, func() (string, error) {
		return e.serialize(e.local.GetSelectedContent(), f)
	}).Unwrap()
}

func (e *Editor) toTree(c content.Content) (*content.Node, error) {
	switch v := c.(type) {
	case *content.Node:
		if v == nil {
			return nil, content.ErrNilTree
		}
		return v, nil
	case content.HTML:
		return e.parser.ParseHTML(string(v), content.ParseOptions{Insert: true})
	default:
		return nil, content.ErrNilTree
	}
}

// serialize renders a local tree. The markdown format is input only.
func (e *Editor) serialize(tree *content.Node, f content.Format) (string, error) {
	switch f {
	case "", content.FormatHTML:
		return e.serializer.Serialize(tree)
	case content.FormatRaw, content.FormatTree:
		return e.serializer.SerializeNoFilter(tree)
	case content.FormatText:
		return content.Text(tree), nil
	default:
		return "", fmt.Errorf("serialize: %w: %q", content.ErrUnknownFormat, f)
	}
}
