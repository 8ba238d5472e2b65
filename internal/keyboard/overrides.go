package keyboard

import (
	"fmt"

	"github.com/dshills/inkwell/internal/content"
	"github.com/dshills/inkwell/internal/rtc"
)

// Keymap names registered by SetupOverrides.
const (
	DefaultKeymapName   = "default"
	OverridesKeymapName = "overrides"
)

// Structural editing commands attached in plain mode.
const (
	CmdSplitBlock    = "mceSplitBlock"
	CmdMergeBackward = "mceMergeBackward"
	CmdMergeForward  = "mceMergeForward"
	CmdMoveStart     = "mceMoveStart"
	CmdMoveEnd       = "mceMoveEnd"
)

// EditFunc mutates the document root and returns the new selection.
type EditFunc func(root *content.Node, sel content.Bookmark) (content.Bookmark, error)

// Target is the editor surface the overrides attach to.
type Target interface {
	rtc.Host

	// Keymaps returns the editor's keymap registry.
	Keymaps() *Registry

	// AddCommand registers an editor command.
	AddCommand(name string, fn func(args map[string]any) error)

	// Edit runs fn against the local document as one undoable change.
	Edit(event string, fn EditFunc) error
}

// DefaultKeymap returns the bindings that route through the rtc facade.
// They are valid in both modes.
func DefaultKeymap() *Keymap {
	return NewKeymap(DefaultKeymapName).
		WithSource("default").
		Add("Ctrl+Z", "Undo").
		Add("Meta+Z", "Undo").
		Add("Ctrl+Y", "Redo").
		Add("Ctrl+Shift+Z", "Redo").
		Add("Meta+Shift+Z", "Redo").
		Add("Ctrl+B", "Bold").
		Add("Ctrl+I", "Italic").
		Add("Ctrl+U", "Underline")
}

// OverridesKeymap returns the structural editing bindings.
func OverridesKeymap() *Keymap {
	return NewKeymap(OverridesKeymapName).
		WithSource("overrides").
		WithPriority(1).
		Add("Enter", CmdSplitBlock).
		Add("Backspace", CmdMergeBackward).
		Add("Delete", CmdMergeForward).
		Add("Home", CmdMoveStart).
		Add("End", CmdMoveEnd)
}

// SetupOverrides registers the default keymap and, in plain mode only, the
// structural editing commands and their keys. It reports whether the
// overrides were attached. The target's rtc setup must have resolved.
func SetupOverrides(t Target) (bool, error) {
	if err := t.Keymaps().Register(DefaultKeymap()); err != nil {
		return false, err
	}

	r := rtc.Ignore(t, func() error {
		block := t.Parser().RootBlock()
		t.AddCommand(CmdSplitBlock, editCommand(t, "split", func(root *content.Node, sel content.Bookmark) (content.Bookmark, error) {
			return splitBlock(root, sel, block), nil
		}))
		t.AddCommand(CmdMergeBackward, editCommand(t, "merge", func(root *content.Node, sel content.Bookmark) (content.Bookmark, error) {
			return mergeBackward(root, sel, block), nil
		}))
		t.AddCommand(CmdMergeForward, editCommand(t, "merge", func(root *content.Node, sel content.Bookmark) (content.Bookmark, error) {
			return mergeForward(root, sel, block), nil
		}))
		t.AddCommand(CmdMoveStart, editCommand(t, "", func(*content.Node, content.Bookmark) (content.Bookmark, error) {
			return content.Bookmark{}, nil
		}))
		t.AddCommand(CmdMoveEnd, editCommand(t, "", func(root *content.Node, _ content.Bookmark) (content.Bookmark, error) {
			n := root.ChildCount()
			return content.Bookmark{Start: n, End: n}, nil
		}))
		return t.Keymaps().Register(OverridesKeymap())
	})
	switch r.Status {
	case rtc.StatusOK:
		if r.Value != nil {
			return false, fmt.Errorf("register overrides: %w", r.Value)
		}
		return true, nil
	case rtc.StatusSkipped:
		return false, nil
	default:
		return false, r.Err
	}
}

func editCommand(t Target, event string, fn EditFunc) func(map[string]any) error {
	return func(map[string]any) error {
		return t.Edit(event, fn)
	}
}

// splitBlock inserts an empty root block after the selection and selects it.
func splitBlock(root *content.Node, sel content.Bookmark, block string) content.Bookmark {
	sel = sel.Clamp(root.ChildCount())
	pos := sel.End
	if sel.Collapsed() && pos < root.ChildCount() {
		pos++
	}
	root.Insert(pos, content.NewElement(block).Append(content.NewBogusBreak()))
	return content.Bookmark{Start: pos, End: pos + 1}
}

// mergeBackward deletes a ranged selection, or joins the block after the
// caret into the block before it.
func mergeBackward(root *content.Node, sel content.Bookmark, block string) content.Bookmark {
	sel = sel.Clamp(root.ChildCount())
	if !sel.Collapsed() {
		return deleteRange(root, sel, block)
	}
	i := sel.Start
	if i == 0 || i >= root.ChildCount() {
		return sel
	}
	join(root.Child(i-1), root.Child(i))
	return content.Bookmark{Start: i - 1, End: i - 1}
}

// mergeForward deletes a ranged selection, or joins the next block into the
// block after the caret.
func mergeForward(root *content.Node, sel content.Bookmark, block string) content.Bookmark {
	sel = sel.Clamp(root.ChildCount())
	if !sel.Collapsed() {
		return deleteRange(root, sel, block)
	}
	i := sel.Start
	if i+1 >= root.ChildCount() {
		return sel
	}
	join(root.Child(i), root.Child(i+1))
	return sel
}

func deleteRange(root *content.Node, sel content.Bookmark, block string) content.Bookmark {
	for _, n := range content.Selected(root, sel) {
		n.Remove()
	}
	if root.ChildCount() == 0 {
		root.Append(content.NewElement(block).Append(content.NewBogusBreak()))
	}
	return content.Bookmark{Start: sel.Start, End: sel.Start}.Clamp(root.ChildCount())
}

// join moves the children of src to the end of dst and removes src.
func join(dst, src *content.Node) {
	stripBogus(dst)
	stripBogus(src)
	for _, c := range src.Children() {
		dst.Append(c.Remove())
	}
	src.Remove()
	if dst.ChildCount() == 0 {
		dst.Append(content.NewBogusBreak())
	}
}

func stripBogus(n *content.Node) {
	for _, c := range n.Children() {
		if _, ok := c.Attr(content.BogusAttr); ok && c.Name == "br" {
			c.Remove()
		}
	}
}
