// Package format applies named inline formats (bold, links, colours) to the
// selected blocks of a document tree.
package format

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/dshills/inkwell/internal/content"
)

// ErrUnknownFormat is returned for format names that are not registered.
var ErrUnknownFormat = errors.New("unknown format")

// Vars are substituted into format attribute and style values written as
// %name.
type Vars map[string]string

// Normalize returns v, or an empty map when v is nil.
func Normalize(v Vars) Vars {
	if v == nil {
		return Vars{}
	}
	return v
}

// Format describes how a named format is expressed in the tree.
type Format struct {
	Name       string
	Element    string
	Attributes map[string]string
	Styles     map[string]string
	Classes    []string
}

// Registry holds the known formats.
type Registry struct {
	mu      sync.RWMutex
	formats map[string]Format
}

// NewRegistry creates a registry with the default formats.
func NewRegistry() *Registry {
	r := &Registry{formats: make(map[string]Format)}
	for _, f := range defaults() {
		r.Register(f)
	}
	return r
}

func defaults() []Format {
	return []Format{
		{Name: "bold", Element: "strong"},
		{Name: "italic", Element: "em"},
		{Name: "underline", Element: "span", Styles: map[string]string{"text-decoration": "underline"}},
		{Name: "strikethrough", Element: "s"},
		{Name: "code", Element: "code"},
		{Name: "subscript", Element: "sub"},
		{Name: "superscript", Element: "sup"},
		{Name: "forecolor", Element: "span", Styles: map[string]string{"color": "%value"}},
		{Name: "hilitecolor", Element: "span", Styles: map[string]string{"background-color": "%value"}},
		{Name: "fontname", Element: "span", Styles: map[string]string{"font-family": "%value"}},
		{Name: "fontsize", Element: "span", Styles: map[string]string{"font-size": "%value"}},
		{Name: "link", Element: "a", Attributes: map[string]string{"href": "%href"}},
	}
}

// Register adds or replaces a format.
func (r *Registry) Register(f Format) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f.Element = strings.ToLower(f.Element)
	r.formats[f.Name] = f
}

// Get returns the named format.
func (r *Registry) Get(name string) (Format, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.formats[name]
	return f, ok
}

// Names returns the registered format names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.formats))
	for n := range r.formats {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func (r *Registry) lookup(name string) (Format, error) {
	f, ok := r.Get(name)
	if !ok {
		return Format{}, fmt.Errorf("%w: %q", ErrUnknownFormat, name)
	}
	return f, nil
}

// Apply wraps the inline content of every selected block in the format.
// Blocks already wrapped by an identical element are left alone.
func (r *Registry) Apply(root *content.Node, sel content.Bookmark, name string, vars Vars) error {
	f, err := r.lookup(name)
	if err != nil {
		return err
	}
	vars = Normalize(vars)

	for _, block := range targets(root, sel) {
		if block.ChildCount() == 0 || matchesBlock(block, f, vars) {
			continue
		}
		wrapper := f.build(vars)
		for _, c := range block.Children() {
			wrapper.Append(c)
		}
		block.Append(wrapper)
	}
	return nil
}

// Remove unwraps elements matching the format inside the selected blocks.
// Variables are ignored when matching, so removing "forecolor" strips any
// colour.
func (r *Registry) Remove(root *content.Node, sel content.Bookmark, name string, _ Vars) error {
	f, err := r.lookup(name)
	if err != nil {
		return err
	}

	for _, block := range targets(root, sel) {
		for _, n := range block.FindAll(f.Element) {
			if f.matches(n, nil) {
				if len(f.Styles) > 0 || len(f.Classes) > 0 || len(f.Attributes) > 0 {
					if stripFormat(n, f) {
						continue
					}
				}
				n.Unwrap()
			}
		}
	}
	return nil
}

// Match reports whether every non-empty selected block is wholly formatted.
func (r *Registry) Match(root *content.Node, sel content.Bookmark, name string, vars Vars) (bool, error) {
	f, err := r.lookup(name)
	if err != nil {
		return false, err
	}
	vars = Normalize(vars)

	matched := false
	for _, block := range targets(root, sel) {
		if block.ChildCount() == 0 {
			continue
		}
		if !matchesBlock(block, f, vars) {
			return false, nil
		}
		matched = true
	}
	return matched, nil
}

// Toggle removes the format when it matches and applies it otherwise.
func (r *Registry) Toggle(root *content.Node, sel content.Bookmark, name string, vars Vars) error {
	ok, err := r.Match(root, sel, name, vars)
	if err != nil {
		return err
	}
	if ok {
		return r.Remove(root, sel, name, vars)
	}
	return r.Apply(root, sel, name, vars)
}

// targets returns the text blocks covered by sel, descending into lists.
func targets(root *content.Node, sel content.Bookmark) []*content.Node {
	var out []*content.Node
	for _, top := range content.Selected(root, sel) {
		switch {
		case top.Type != content.ElementNode:
			continue
		case top.Name == "ul" || top.Name == "ol":
			out = append(out, top.FindAll("li")...)
		default:
			out = append(out, top)
		}
	}
	return out
}

// matchesBlock reports whether all meaningful content of block sits inside a
// single element matching f.
func matchesBlock(block *content.Node, f Format, vars Vars) bool {
	var meaningful []*content.Node
	for _, c := range block.Children() {
		if c.Type == content.TextNode && strings.TrimSpace(c.Value) == "" {
			continue
		}
		if _, bogus := c.Attr(content.BogusAttr); bogus {
			continue
		}
		meaningful = append(meaningful, c)
	}
	if len(meaningful) != 1 {
		return false
	}
	return f.matches(meaningful[0], vars)
}

func (f Format) build(vars Vars) *content.Node {
	n := content.NewElement(f.Element)
	for _, k := range sortedKeys(f.Attributes) {
		n.SetAttr(k, substitute(f.Attributes[k], vars))
	}
	if style := f.style(vars); style != "" {
		n.SetAttr("style", style)
	}
	if len(f.Classes) > 0 {
		n.SetAttr("class", strings.Join(f.Classes, " "))
	}
	return n
}

func (f Format) style(vars Vars) string {
	var parts []string
	for _, k := range sortedKeys(f.Styles) {
		parts = append(parts, k+": "+substitute(f.Styles[k], vars))
	}
	return strings.Join(parts, "; ")
}

// matches reports whether n is an element produced by f. A nil vars map
// matches any variable values.
func (f Format) matches(n *content.Node, vars Vars) bool {
	if n.Type != content.ElementNode || n.Name != f.Element {
		return false
	}
	for _, k := range sortedKeys(f.Attributes) {
		v, ok := n.Attr(k)
		if !ok {
			return false
		}
		if vars != nil && v != substitute(f.Attributes[k], vars) {
			return false
		}
	}
	styles := parseStyle(n)
	for _, k := range sortedKeys(f.Styles) {
		v, ok := styles[k]
		if !ok {
			return false
		}
		if vars != nil && v != substitute(f.Styles[k], vars) {
			return false
		}
	}
	if len(f.Classes) > 0 {
		have, _ := n.Attr("class")
		for _, c := range f.Classes {
			if !containsWord(have, c) {
				return false
			}
		}
	}
	return true
}

// stripFormat removes f's styles from a span that carries other styles too.
// It reports whether the element was kept.
func stripFormat(n *content.Node, f Format) bool {
	if len(f.Attributes) > 0 || len(f.Classes) > 0 {
		return false
	}
	styles := parseStyle(n)
	for k := range f.Styles {
		delete(styles, k)
	}
	if len(styles) == 0 {
		return false
	}
	var parts []string
	for _, k := range sortedKeys(styles) {
		parts = append(parts, k+": "+styles[k])
	}
	n.SetAttr("style", strings.Join(parts, "; "))
	return true
}

func parseStyle(n *content.Node) map[string]string {
	out := make(map[string]string)
	raw, _ := n.Attr("style")
	for _, decl := range strings.Split(raw, ";") {
		k, v, ok := strings.Cut(decl, ":")
		if !ok {
			continue
		}
		out[strings.TrimSpace(strings.ToLower(k))] = strings.TrimSpace(v)
	}
	return out
}

func substitute(value string, vars Vars) string {
	if !strings.Contains(value, "%") {
		return value
	}
	for _, k := range sortedKeys(vars) {
		value = strings.ReplaceAll(value, "%"+k, vars[k])
	}
	return value
}

func containsWord(list, word string) bool {
	for _, w := range strings.Fields(list) {
		if w == word {
			return true
		}
	}
	return false
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
