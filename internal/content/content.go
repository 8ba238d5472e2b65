// Package content provides the editor document tree together with the
// parser and serializer that move content between markup and tree form.
//
// The tree is deliberately small: fragments, elements, text and comments.
// HTML is parsed with golang.org/x/net/html; Markdown input is rendered to
// HTML with goldmark first. Serialization goes back through x/net/html so
// escaping rules match the parser.
//
// Selections are expressed as a Bookmark over the top-level children of the
// document root, which is the granularity formatting and list commands work
// at.
package content

import (
	"fmt"
	"strings"
)

// Internal attributes are never serialized.
const (
	// InternalAttrPrefix marks editor-internal attributes.
	InternalAttrPrefix = "data-ink-"

	// BogusAttr marks elements that only exist to keep blocks editable.
	BogusAttr = "data-ink-bogus"
)

// Content is either markup (HTML) or an already parsed tree (*Node).
type Content interface {
	isContent()
}

// HTML is markup content.
type HTML string

func (HTML) isContent() {}

func (*Node) isContent() {}

// AsTree returns the tree when c is a *Node.
func AsTree(c Content) (*Node, bool) {
	n, ok := c.(*Node)
	return n, ok && n != nil
}

// Format names a content representation.
type Format string

// Supported formats.
const (
	FormatHTML     Format = "html"
	FormatRaw      Format = "raw"
	FormatText     Format = "text"
	FormatTree     Format = "tree"
	FormatMarkdown Format = "markdown"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatHTML, FormatRaw, FormatText, FormatTree, FormatMarkdown:
		return f, nil
	case "":
		return FormatHTML, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
	}
}

// Bookmark is a serializable selection over the top-level children of the
// document root. End is exclusive; Start == End is a caret before Start.
type Bookmark struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Collapsed reports whether the bookmark selects nothing.
func (b Bookmark) Collapsed() bool {
	return b.End <= b.Start
}

// Clamp limits the bookmark to a root with n children.
func (b Bookmark) Clamp(n int) Bookmark {
	if b.Start < 0 {
		b.Start = 0
	}
	if b.Start > n {
		b.Start = n
	}
	if b.End > n {
		b.End = n
	}
	if b.End < b.Start {
		b.End = b.Start
	}
	return b
}

// Contains reports whether index i lies inside the bookmark.
func (b Bookmark) Contains(i int) bool {
	return i >= b.Start && i < b.End
}

// Len returns the number of selected top-level nodes.
func (b Bookmark) Len() int {
	if b.Collapsed() {
		return 0
	}
	return b.End - b.Start
}

// String returns a compact representation.
func (b Bookmark) String() string {
	return fmt.Sprintf("[%d,%d)", b.Start, b.End)
}

// Selected returns the top-level children of root covered by b.
func Selected(root *Node, b Bookmark) []*Node {
	b = b.Clamp(root.ChildCount())
	var out []*Node
	for i := b.Start; i < b.End; i++ {
		out = append(out, root.Child(i))
	}
	return out
}
