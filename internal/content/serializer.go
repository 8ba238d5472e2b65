package content

import (
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// NodeFilter is called with every element of a given name found in a tree.
type NodeFilter func(nodes []*Node, name string)

// AttributeFilter is called with every element carrying a given attribute.
type AttributeFilter func(nodes []*Node, name string)

// SerializerOptions configures a Serializer.
type SerializerOptions struct {
	// Inner serializes only the children of the node passed to Serialize.
	Inner bool
}

// Serializer converts document trees back into markup and owns the node and
// attribute filters that run before output.
type Serializer struct {
	opts SerializerOptions

	mu          sync.RWMutex
	nodeFilters map[string][]NodeFilter
	attrFilters map[string][]AttributeFilter
}

// NewSerializer creates a serializer with the default filters installed.
func NewSerializer(opts SerializerOptions) *Serializer {
	s := &Serializer{
		opts:        opts,
		nodeFilters: make(map[string][]NodeFilter),
		attrFilters: make(map[string][]AttributeFilter),
	}
	s.AddAttributeFilter(BogusAttr, removeBogus)
	s.AddNodeFilter("*", removeInternalAttrs)
	return s
}

// AddNodeFilter registers a filter for elements with the given name.
func (s *Serializer) AddNodeFilter(name string, fn NodeFilter) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nodeFilters[name] = append(s.nodeFilters[name], fn)
}

// AddAttributeFilter registers a filter for elements carrying the attribute.
func (s *Serializer) AddAttributeFilter(name string, fn AttributeFilter) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attrFilters[name] = append(s.attrFilters[name], fn)
}

// NodeFilters returns a copy of the registered node filters.
func (s *Serializer) NodeFilters() map[string][]NodeFilter {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string][]NodeFilter, len(s.nodeFilters))
	for k, v := range s.nodeFilters {
		out[k] = append([]NodeFilter(nil), v...)
	}
	return out
}

// AttributeFilters returns a copy of the registered attribute filters.
func (s *Serializer) AttributeFilters() map[string][]AttributeFilter {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string][]AttributeFilter, len(s.attrFilters))
	for k, v := range s.attrFilters {
		out[k] = append([]AttributeFilter(nil), v...)
	}
	return out
}

// Filter runs node and attribute filters over root. Matches are collected
// before any filter runs, so filters may freely mutate the tree. Node filters
// registered under "*" receive every element.
func Filter(nodeFilters map[string][]NodeFilter, attrFilters map[string][]AttributeFilter, root *Node) {
	if root == nil {
		return
	}

	byName := make(map[string][]*Node)
	byAttr := make(map[string][]*Node)
	root.Walk(func(n *Node) bool {
		if n.Type != ElementNode {
			return true
		}
		if _, ok := nodeFilters[n.Name]; ok {
			byName[n.Name] = append(byName[n.Name], n)
		}
		if _, ok := nodeFilters["*"]; ok && n.Name != "*" {
			byName["*"] = append(byName["*"], n)
		}
		for _, a := range n.Attrs {
			if _, ok := attrFilters[a.Name]; ok {
				byAttr[a.Name] = append(byAttr[a.Name], n)
			}
		}
		return true
	})

	for _, name := range sortedKeys(byName) {
		for _, fn := range nodeFilters[name] {
			fn(byName[name], name)
		}
	}
	for _, name := range sortedKeys(byAttr) {
		for _, fn := range attrFilters[name] {
			fn(byAttr[name], name)
		}
	}
}

// Serialize filters a copy of n and renders it as HTML.
func (s *Serializer) Serialize(n *Node) (string, error) {
	if n == nil {
		return "", nil
	}
	c := n.Clone(true)
	Filter(s.NodeFilters(), s.AttributeFilters(), c)
	return s.render(c)
}

// SerializeNoFilter renders n as HTML without running filters. Internal
// attributes and bogus nodes are kept.
func (s *Serializer) SerializeNoFilter(n *Node) (string, error) {
	if n == nil {
		return "", nil
	}
	return s.render(n)
}

func (s *Serializer) render(n *Node) (string, error) {
	var sb strings.Builder
	nodes := []*Node{n}
	if s.opts.Inner || n.Type == FragmentNode {
		nodes = n.children
	}
	for _, c := range nodes {
		hn := toHTML(c)
		if hn == nil {
			continue
		}
		if err := html.Render(&sb, hn); err != nil {
			return "", fmt.Errorf("render <%s>: %w", c.Name, err)
		}
	}
	return sb.String(), nil
}

// Text returns the plain text of n with block boundaries as newlines.
func Text(n *Node) string {
	if n == nil {
		return ""
	}
	var lines []string
	var cur strings.Builder
	flush := func() {
		lines = append(lines, cur.String())
		cur.Reset()
	}

	var walk func(*Node)
	walk = func(d *Node) {
		switch d.Type {
		case TextNode:
			cur.WriteString(d.Value)
			return
		case CommentNode:
			return
		case ElementNode:
			if _, bogus := d.Attr(BogusAttr); bogus {
				return
			}
			if d.Name == "br" {
				flush()
				return
			}
		}
		for _, c := range d.children {
			walk(c)
			if c.IsBlock() && cur.Len() > 0 {
				flush()
			}
		}
	}
	walk(n)
	if cur.Len() > 0 {
		flush()
	}
	return strings.Join(lines, "\n")
}

func toHTML(n *Node) *html.Node {
	var hn *html.Node
	switch n.Type {
	case TextNode:
		return &html.Node{Type: html.TextNode, Data: n.Value}
	case CommentNode:
		return &html.Node{Type: html.CommentNode, Data: n.Value}
	case FragmentNode:
		// Rendered by the caller through its children.
		return nil
	case ElementNode:
		hn = &html.Node{Type: html.ElementNode, Data: n.Name, DataAtom: atom.Lookup([]byte(n.Name))}
		for _, a := range n.Attrs {
			hn.Attr = append(hn.Attr, html.Attribute{Key: a.Name, Val: a.Value})
		}
	}

	for _, c := range n.children {
		if c.Type == FragmentNode {
			for _, gc := range c.children {
				if h := toHTML(gc); h != nil {
					hn.AppendChild(h)
				}
			}
			continue
		}
		if h := toHTML(c); h != nil {
			hn.AppendChild(h)
		}
	}
	return hn
}

func removeInternalAttrs(nodes []*Node, _ string) {
	for _, n := range nodes {
		for _, a := range slices.Clone(n.Attrs) {
			if strings.HasPrefix(a.Name, InternalAttrPrefix) && a.Name != BogusAttr {
				n.RemoveAttr(a.Name)
			}
		}
	}
}

func removeBogus(nodes []*Node, _ string) {
	for _, n := range nodes {
		n.Remove()
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
