package content

import (
	"bytes"
	"fmt"
	"strings"
	"sync"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// ParseOptions controls how markup becomes a tree.
type ParseOptions struct {
	// Format is the input format. Empty means HTML.
	Format Format

	// IsRootContent wraps top-level inline runs in the root block element
	// and drops whitespace-only top-level text.
	IsRootContent bool

	// Insert marks the result as content for insertion: empty blocks are
	// left as-is instead of being padded with a bogus <br>.
	Insert bool
}

// Parser converts markup into document trees.
// A Parser is safe for concurrent use.
type Parser struct {
	rootBlock string
}

// ParserOption configures a Parser.
type ParserOption func(*Parser)

// WithRootBlock sets the element used to wrap top-level inline content.
func WithRootBlock(name string) ParserOption {
	return func(p *Parser) {
		if name != "" {
			p.rootBlock = strings.ToLower(name)
		}
	}
}

// NewParser creates a parser. The default root block is "p".
func NewParser(opts ...ParserOption) *Parser {
	p := &Parser{rootBlock: "p"}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// RootBlock returns the root block element name.
func (p *Parser) RootBlock() string {
	return p.rootBlock
}

var (
	markdownOnce sync.Once
	markdown     goldmark.Markdown
)

func markdownConverter() goldmark.Markdown {
	markdownOnce.Do(func() {
		markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))
	})
	return markdown
}

// Parse converts text in the given format into a fragment node.
func (p *Parser) Parse(text string, opts ParseOptions) (*Node, error) {
	var (
		frag *Node
		err  error
	)

	switch opts.Format {
	case "", FormatHTML, FormatRaw:
		frag, err = p.parseHTML(text)
	case FormatMarkdown:
		var buf bytes.Buffer
		if err := markdownConverter().Convert([]byte(text), &buf); err != nil {
			return nil, fmt.Errorf("convert markdown: %w", err)
		}
		frag, err = p.parseHTML(buf.String())
	case FormatText:
		frag = p.parseText(text, opts.IsRootContent)
	default:
		return nil, fmt.Errorf("parse: %w: %q", ErrUnknownFormat, opts.Format)
	}
	if err != nil {
		return nil, err
	}

	if opts.IsRootContent {
		p.wrapRootInlines(frag)
	}
	if !opts.Insert {
		padEmptyBlocks(frag)
	}
	return frag, nil
}

// ParseHTML is shorthand for Parse with FormatHTML.
func (p *Parser) ParseHTML(text string, opts ParseOptions) (*Node, error) {
	opts.Format = FormatHTML
	return p.Parse(text, opts)
}

func (p *Parser) parseHTML(text string) (*Node, error) {
	bodyCtx := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(strings.NewReader(text), bodyCtx)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	frag := NewFragment()
	for _, hn := range nodes {
		if n := fromHTML(hn); n != nil {
			frag.Append(n)
		}
	}
	return frag, nil
}

func (p *Parser) parseText(text string, root bool) *Node {
	frag := NewFragment()
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")

	if root {
		for _, line := range lines {
			block := NewElement(p.rootBlock)
			if line != "" {
				block.Append(NewText(line))
			}
			frag.Append(block)
		}
		return frag
	}

	for i, line := range lines {
		if i > 0 {
			frag.Append(NewElement("br"))
		}
		if line != "" {
			frag.Append(NewText(line))
		}
	}
	return frag
}

// wrapRootInlines groups consecutive top-level inline nodes into root blocks.
func (p *Parser) wrapRootInlines(frag *Node) {
	var (
		run     *Node
		wrapped []*Node
	)
	for _, c := range frag.Children() {
		if c.IsBlock() || c.Type == CommentNode {
			run = nil
			continue
		}
		if run == nil {
			if c.Type == TextNode && strings.TrimSpace(c.Value) == "" {
				c.Remove()
				continue
			}
			run = NewElement(p.rootBlock)
			c.Replace(run)
			run.Append(c)
			wrapped = append(wrapped, run)
			continue
		}
		run.Append(c)
	}

	// Whitespace between a wrapped run and the next block is noise.
	for _, w := range wrapped {
		if last := w.LastChild(); last != nil && last.Type == TextNode && strings.TrimSpace(last.Value) == "" {
			last.Remove()
		}
	}
}

// padEmptyBlocks gives empty text blocks a bogus <br> so they stay editable.
func padEmptyBlocks(root *Node) {
	root.Walk(func(n *Node) bool {
		if n.Type != ElementNode || !textBlocks[n.Name] {
			return true
		}
		if n.ChildCount() == 0 {
			n.Append(NewBogusBreak())
		}
		return true
	})
}

var textBlocks = map[string]bool{
	"p": true, "div": true, "h1": true, "h2": true, "h3": true,
	"h4": true, "h5": true, "h6": true, "li": true, "pre": true,
}

func fromHTML(hn *html.Node) *Node {
	var n *Node
	switch hn.Type {
	case html.ElementNode:
		n = NewElement(hn.Data)
		for _, a := range hn.Attr {
			name := a.Key
			if a.Namespace != "" {
				name = a.Namespace + ":" + a.Key
			}
			n.SetAttr(name, a.Val)
		}
	case html.TextNode:
		return NewText(hn.Data)
	case html.CommentNode:
		return NewComment(hn.Data)
	default:
		return nil
	}

	for c := hn.FirstChild; c != nil; c = c.NextSibling {
		if child := fromHTML(c); child != nil {
			n.Append(child)
		}
	}
	return n
}
