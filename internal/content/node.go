package content

import "strings"

// NodeType identifies the kind of a Node.
type NodeType int

const (
	// FragmentNode is a container without markup of its own.
	FragmentNode NodeType = iota
	// ElementNode is a named element with attributes and children.
	ElementNode
	// TextNode holds character data in Value.
	TextNode
	// CommentNode holds comment text in Value.
	CommentNode
)

// String returns a string representation of the node type.
func (t NodeType) String() string {
	switch t {
	case FragmentNode:
		return "fragment"
	case ElementNode:
		return "element"
	case TextNode:
		return "text"
	case CommentNode:
		return "comment"
	default:
		return "unknown"
	}
}

// Attr is a single element attribute.
type Attr struct {
	Name  string
	Value string
}

// Node is a node of the editor document tree.
type Node struct {
	Type  NodeType
	Name  string
	Value string
	Attrs []Attr

	parent   *Node
	children []*Node
}

// NewFragment creates an empty fragment node.
func NewFragment() *Node {
	return &Node{Type: FragmentNode, Name: "#fragment"}
}

// NewElement creates an element node with the given attributes.
func NewElement(name string, attrs ...Attr) *Node {
	n := &Node{Type: ElementNode, Name: strings.ToLower(name)}
	if len(attrs) > 0 {
		n.Attrs = append([]Attr(nil), attrs...)
	}
	return n
}

// NewBogusBreak creates the <br> that keeps an empty block editable. It is
// removed on serialization.
func NewBogusBreak() *Node {
	return NewElement("br", Attr{Name: BogusAttr, Value: "1"})
}

// NewText creates a text node.
func NewText(value string) *Node {
	return &Node{Type: TextNode, Name: "#text", Value: value}
}

// NewComment creates a comment node.
func NewComment(value string) *Node {
	return &Node{Type: CommentNode, Name: "#comment", Value: value}
}

// Parent returns the parent node or nil.
func (n *Node) Parent() *Node {
	return n.parent
}

// Children returns a copy of the child list.
func (n *Node) Children() []*Node {
	out := make([]*Node, len(n.children))
	copy(out, n.children)
	return out
}

// ChildCount returns the number of children.
func (n *Node) ChildCount() int {
	return len(n.children)
}

// Child returns the child at index i or nil when out of range.
func (n *Node) Child(i int) *Node {
	if i < 0 || i >= len(n.children) {
		return nil
	}
	return n.children[i]
}

// FirstChild returns the first child or nil.
func (n *Node) FirstChild() *Node {
	return n.Child(0)
}

// LastChild returns the last child or nil.
func (n *Node) LastChild() *Node {
	return n.Child(len(n.children) - 1)
}

// Index returns the position of n in its parent, or -1.
func (n *Node) Index() int {
	if n.parent == nil {
		return -1
	}
	for i, c := range n.parent.children {
		if c == n {
			return i
		}
	}
	return -1
}

// Append appends children to n, detaching them from any previous parent.
// Fragment children are spliced in place of the fragment.
func (n *Node) Append(children ...*Node) *Node {
	for _, c := range children {
		n.Insert(len(n.children), c)
	}
	return n
}

// Insert inserts child at index i, clamped to the valid range.
func (n *Node) Insert(i int, child *Node) {
	if child == nil {
		return
	}
	if child.Type == FragmentNode {
		for _, c := range child.Children() {
			n.Insert(i, c)
			i = c.Index() + 1
		}
		return
	}

	child.Remove()
	if i < 0 {
		i = 0
	}
	if i > len(n.children) {
		i = len(n.children)
	}
	n.children = append(n.children, nil)
	copy(n.children[i+1:], n.children[i:])
	n.children[i] = child
	child.parent = n
}

// Remove detaches n from its parent.
func (n *Node) Remove() *Node {
	if n.parent == nil {
		return n
	}
	p := n.parent
	if i := n.Index(); i >= 0 {
		p.children = append(p.children[:i], p.children[i+1:]...)
	}
	n.parent = nil
	return n
}

// Empty removes all children.
func (n *Node) Empty() {
	for _, c := range n.children {
		c.parent = nil
	}
	n.children = nil
}

// Replace puts with in the position of n and detaches n.
func (n *Node) Replace(with *Node) {
	p := n.parent
	if p == nil {
		return
	}
	i := n.Index()
	n.Remove()
	p.Insert(i, with)
}

// Unwrap replaces n with its children.
func (n *Node) Unwrap() {
	p := n.parent
	if p == nil {
		return
	}
	i := n.Index()
	kids := n.Children()
	n.Remove()
	for j, c := range kids {
		p.Insert(i+j, c)
	}
}

// Wrap moves n inside wrapper and puts wrapper where n was.
func (n *Node) Wrap(wrapper *Node) *Node {
	if n.parent != nil {
		n.Replace(wrapper)
	}
	wrapper.Append(n)
	return wrapper
}

// Clone copies n. With deep set, descendants are copied too.
// The clone is detached.
func (n *Node) Clone(deep bool) *Node {
	c := &Node{Type: n.Type, Name: n.Name, Value: n.Value}
	if len(n.Attrs) > 0 {
		c.Attrs = append([]Attr(nil), n.Attrs...)
	}
	if deep {
		for _, child := range n.children {
			cc := child.Clone(true)
			cc.parent = c
			c.children = append(c.children, cc)
		}
	}
	return c
}

// Walk visits n and its descendants in document order. Returning false from
// fn skips the children of the visited node.
func (n *Node) Walk(fn func(*Node) bool) {
	if !fn(n) {
		return
	}
	for _, c := range n.Children() {
		c.Walk(fn)
	}
}

// FindAll returns the descendants of n (excluding n) with the given element name.
func (n *Node) FindAll(name string) []*Node {
	var out []*Node
	for _, c := range n.children {
		c.Walk(func(d *Node) bool {
			if d.Type == ElementNode && d.Name == name {
				out = append(out, d)
			}
			return true
		})
	}
	return out
}

// Attr returns the value of the named attribute.
func (n *Node) Attr(name string) (string, bool) {
	for _, a := range n.Attrs {
		if a.Name == name {
			return a.Value, true
		}
	}
	return "", false
}

// SetAttr sets or replaces the named attribute.
func (n *Node) SetAttr(name, value string) {
	for i := range n.Attrs {
		if n.Attrs[i].Name == name {
			n.Attrs[i].Value = value
			return
		}
	}
	n.Attrs = append(n.Attrs, Attr{Name: name, Value: value})
}

// RemoveAttr deletes the named attribute.
func (n *Node) RemoveAttr(name string) {
	for i := range n.Attrs {
		if n.Attrs[i].Name == name {
			n.Attrs = append(n.Attrs[:i], n.Attrs[i+1:]...)
			return
		}
	}
}

// TextContent returns the concatenated text of n and its descendants.
func (n *Node) TextContent() string {
	var sb strings.Builder
	n.Walk(func(d *Node) bool {
		if d.Type == TextNode {
			sb.WriteString(d.Value)
		}
		return true
	})
	return sb.String()
}

// IsEmpty reports whether n has no visible content: no non-whitespace text
// and no non-bogus void elements such as img or hr.
func (n *Node) IsEmpty() bool {
	empty := true
	n.Walk(func(d *Node) bool {
		switch d.Type {
		case TextNode:
			if strings.TrimSpace(d.Value) != "" {
				empty = false
			}
		case ElementNode:
			if _, bogus := d.Attr(BogusAttr); bogus {
				return false
			}
			if d != n && isVoid(d.Name) && d.Name != "br" {
				empty = false
			}
		}
		return empty
	})
	return empty
}

// IsBlock reports whether n is a block-level element.
func (n *Node) IsBlock() bool {
	return n.Type == ElementNode && blockElements[n.Name]
}

var blockElements = map[string]bool{
	"p": true, "div": true, "h1": true, "h2": true, "h3": true, "h4": true,
	"h5": true, "h6": true, "ul": true, "ol": true, "li": true, "pre": true,
	"blockquote": true, "table": true, "hr": true, "address": true,
	"section": true, "article": true, "figure": true, "dl": true,
}

var voidElements = map[string]bool{
	"br": true, "hr": true, "img": true, "input": true, "wbr": true,
	"area": true, "col": true, "embed": true, "source": true,
}

func isVoid(name string) bool {
	return voidElements[name]
}
