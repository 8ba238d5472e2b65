package editor

import (
	"github.com/dshills/inkwell/internal/content"
	"github.com/dshills/inkwell/internal/format"
	"github.com/dshills/inkwell/internal/undo"
)

// local is the editor's single-user implementation. It backs the plain
// adaptor and is the document the undo manager snapshots.
type local struct {
	e *Editor
}

func (l *local) History() *undo.Manager {
	return l.e.history
}

func (l *local) ApplyFormat(name string, vars format.Vars) error {
	return l.format("applyFormat", func(root *content.Node, sel content.Bookmark) error {
		return l.e.formats.Apply(root, sel, name, vars)
	})
}

func (l *local) ToggleFormat(name string, vars format.Vars) error {
	return l.format("toggleFormat", func(root *content.Node, sel content.Bookmark) error {
		return l.e.formats.Toggle(root, sel, name, vars)
	})
}

func (l *local) RemoveFormat(name string, vars format.Vars) error {
	return l.format("removeFormat", func(root *content.Node, sel content.Bookmark) error {
		return l.e.formats.Remove(root, sel, name, vars)
	})
}

func (l *local) format(event string, fn func(*content.Node, content.Bookmark) error) error {
	e := l.e
	e.history.BeforeChange(nil)

	e.mu.Lock()
	root := e.root.Clone(true)
	if err := fn(root, e.sel); err != nil {
		e.mu.Unlock()
		return err
	}
	e.root = root
	e.mu.Unlock()

	_, err := e.history.Add(nil, event)
	return err
}

// SetContent replaces the document and collapses the selection to the start.
func (l *local) SetContent(tree *content.Node) error {
	if tree == nil {
		return content.ErrNilTree
	}
	e := l.e
	e.history.BeforeChange(nil)

	root := content.NewFragment()
	root.Append(tree.Clone(true))
	padEmptyBlocks(root)

	e.mu.Lock()
	e.root = root
	e.sel = content.Bookmark{}
	e.mu.Unlock()

	_, err := e.history.Add(nil, "setContent")
	return err
}

func (l *local) GetContent() *content.Node {
	l.e.mu.RLock()
	defer l.e.mu.RUnlock()
	return l.e.root.Clone(true)
}

// InsertContent replaces the selected blocks with tree and leaves a caret
// after the inserted nodes.
func (l *local) InsertContent(tree *content.Node) error {
	if tree == nil {
		return content.ErrNilTree
	}
	e := l.e
	e.history.BeforeChange(nil)

	ins := tree.Clone(true)
	n := 1
	if ins.Type == content.FragmentNode {
		n = ins.ChildCount()
	}

	e.mu.Lock()
	root := e.root.Clone(true)
	sel := e.sel.Clamp(root.ChildCount())
	for _, sn := range content.Selected(root, sel) {
		sn.Remove()
	}
	root.Insert(sel.Start, ins)
	e.root = root
	e.sel = content.Bookmark{Start: sel.Start + n, End: sel.Start + n}
	e.mu.Unlock()

	_, err := e.history.Add(nil, "insertContent")
	return err
}

func (l *local) GetSelectedContent() *content.Node {
	l.e.mu.RLock()
	defer l.e.mu.RUnlock()

	frag := content.NewFragment()
	for _, n := range content.Selected(l.e.root, l.e.sel) {
		frag.Append(n.Clone(true))
	}
	return frag
}

// Snapshot implements undo.Document.
func (l *local) Snapshot() (string, content.Bookmark, error) {
	l.e.mu.RLock()
	defer l.e.mu.RUnlock()
	html, err := l.e.serializer.Serialize(l.e.root)
	return html, l.e.sel, err
}

// Restore implements undo.Document.
func (l *local) Restore(html string, bm *content.Bookmark) error {
	root, err := l.e.parser.ParseHTML(html, content.ParseOptions{IsRootContent: true})
	if err != nil {
		return err
	}

	l.e.mu.Lock()
	l.e.root = root
	if bm != nil {
		l.e.sel = *bm
	}
	l.e.sel = l.e.sel.Clamp(root.ChildCount())
	l.e.mu.Unlock()
	return nil
}

// padEmptyBlocks keeps empty top-level blocks editable.
func padEmptyBlocks(root *content.Node) {
	for _, n := range root.Children() {
		if n.IsBlock() && n.Name != "hr" && n.ChildCount() == 0 {
			n.Append(content.NewBogusBreak())
		}
	}
}
