package lists

import (
	"fmt"

	"github.com/dshills/inkwell/internal/content"
	"github.com/dshills/inkwell/internal/editor"
)

// toggleList turns the selected blocks into one list of the given type.
// When every selected node already is such a list the lists are removed;
// lists of the other type are renamed.
func toggleList(root *content.Node, sel content.Bookmark, name, block string) content.Bookmark {
	sel = sel.Clamp(root.ChildCount())
	if sel.Collapsed() {
		if sel.Start >= root.ChildCount() {
			return sel
		}
		sel.End = sel.Start + 1
	}

	nodes := content.Selected(root, sel)
	all := true
	for _, n := range nodes {
		if n.Name != name {
			all = false
			break
		}
	}
	if all {
		return removeLists(root, sel, block)
	}

	list := content.NewElement(name)
	for _, n := range nodes {
		n.Remove()
		if isList(n) {
			for _, li := range n.Children() {
				list.Append(li)
			}
			continue
		}
		li := content.NewElement("li")
		if n.IsBlock() {
			for _, c := range n.Children() {
				li.Append(c)
			}
		} else {
			li.Append(n)
		}
		list.Append(li)
	}
	root.Insert(sel.Start, list)
	return content.Bookmark{Start: sel.Start, End: sel.Start + 1}
}

// removeLists replaces the selected lists with one root block per item.
func removeLists(root *content.Node, sel content.Bookmark, block string) content.Bookmark {
	sel = sel.Clamp(root.ChildCount())
	if sel.Collapsed() && sel.Start < root.ChildCount() {
		sel.End = sel.Start + 1
	}

	end := sel.Start
	for _, n := range content.Selected(root, sel) {
		if !isList(n) {
			end++
			continue
		}
		blocks := unlist(n, block)
		i := n.Index()
		n.Remove()
		for j, b := range blocks {
			root.Insert(i+j, b)
		}
		end += len(blocks)
	}
	return content.Bookmark{Start: sel.Start, End: end}
}

// unlist flattens a list, nested lists included, into root blocks.
func unlist(list *content.Node, block string) []*content.Node {
	var out []*content.Node
	for _, li := range list.Children() {
		b := content.NewElement(block)
		var nested []*content.Node
		for _, c := range li.Children() {
			if isList(c) {
				nested = append(nested, unlist(c, block)...)
				continue
			}
			b.Append(c)
		}
		if b.ChildCount() == 0 {
			b.Append(content.NewBogusBreak())
		}
		out = append(out, b)
		out = append(out, nested...)
	}
	return out
}

// itemEdit applies fn to an item of the first selected list. The item index
// comes from the "item" argument and defaults to the last item.
func itemEdit(root *content.Node, sel content.Bookmark, args map[string]any, fn func(list *content.Node, i int)) (content.Bookmark, error) {
	sel = sel.Clamp(root.ChildCount())
	if sel.Collapsed() && sel.Start < root.ChildCount() {
		sel.End = sel.Start + 1
	}

	var list *content.Node
	for _, n := range content.Selected(root, sel) {
		if isList(n) {
			list = n
			break
		}
	}
	if list == nil {
		return sel, nil
	}

	i := list.ChildCount() - 1
	if v, ok := args["item"]; ok {
		n, ok := v.(int)
		if !ok {
			return sel, fmt.Errorf("%w: item is %T, want int", editor.ErrInvalidArgument, v)
		}
		i = n
	}
	if i < 0 || i >= list.ChildCount() {
		return sel, nil
	}

	fn(list, i)
	return sel.Clamp(root.ChildCount()), nil
}

// indent moves item i into a sub-list of the previous item.
func indent(list *content.Node, i int) {
	if i == 0 {
		return
	}
	prev := list.Child(i - 1)
	item := list.Child(i)

	sub := prev.LastChild()
	if sub == nil || sub.Name != list.Name {
		sub = content.NewElement(list.Name)
		prev.Append(sub)
	}
	sub.Append(item)
}

// outdent lifts the items of item i's sub-list to the level of item i. An
// item without a sub-list in a top-level list becomes a root block and
// splits the list.
func outdent(list *content.Node, i int, block string) {
	item := list.Child(i)
	if sub := item.LastChild(); sub != nil && isList(sub) {
		for j, li := range sub.Children() {
			list.Insert(i+1+j, li)
		}
		sub.Remove()
		return
	}

	parent := list.Parent()
	if parent == nil || parent.Type != content.FragmentNode {
		return
	}
	pos := list.Index()

	rest := content.NewElement(list.Name)
	for _, li := range list.Children()[i+1:] {
		rest.Append(li)
	}

	b := content.NewElement(block)
	for _, c := range item.Children() {
		b.Append(c)
	}
	if b.ChildCount() == 0 {
		b.Append(content.NewBogusBreak())
	}
	item.Remove()

	next := pos + 1
	if list.ChildCount() == 0 {
		list.Remove()
		next = pos
	}
	parent.Insert(next, b)
	if rest.ChildCount() > 0 {
		parent.Insert(next+1, rest)
	}
}
