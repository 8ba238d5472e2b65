// Package lists provides the list editing plugin: bullet and numbered list
// commands, indent and outdent, and their toolbar buttons and keys.
//
// List editing rewrites the local document, so the commands and keys are
// only registered when no collaboration plugin is present. The toolbar
// buttons are always registered.
package lists

import (
	"context"
	"fmt"

	"github.com/dshills/inkwell/internal/content"
	"github.com/dshills/inkwell/internal/editor"
	"github.com/dshills/inkwell/internal/keyboard"
	"github.com/dshills/inkwell/internal/rtc"
)

// Name is the plugin name.
const Name = "lists"

// Commands registered by the plugin.
const (
	CmdUnorderedList = "InsertUnorderedList"
	CmdOrderedList   = "InsertOrderedList"
	CmdRemoveList    = "RemoveList"
	CmdIndent        = "mceListIndent"
	CmdOutdent       = "mceListOutdent"
)

// Plugin is the lists plugin.
type Plugin struct {
	ed       *editor.Editor
	commands bool
}

// New creates the lists plugin.
func New() *Plugin {
	return &Plugin{}
}

// Name returns the plugin name.
func (p *Plugin) Name() string {
	return Name
}

// Init registers buttons and, when no collaboration plugin is present, the
// list commands and keys.
func (p *Plugin) Init(_ context.Context, e *editor.Editor) error {
	p.ed = e

	buttons := []editor.Button{
		{Name: "bullist", Tooltip: "Bullet list", Icon: "unordered-list", Command: CmdUnorderedList},
		{Name: "numlist", Tooltip: "Numbered list", Icon: "ordered-list", Command: CmdOrderedList},
	}
	for _, b := range buttons {
		if err := e.AddButton(b); err != nil {
			return err
		}
	}

	if rtc.HasPlugin(e) {
		e.Logger().WithComponent(Name).Info("collaboration plugin present, list commands disabled")
		return nil
	}

	block := e.Parser().RootBlock()
	e.AddCommand(CmdUnorderedList, p.edit("list", func(root *content.Node, sel content.Bookmark, _ map[string]any) (content.Bookmark, error) {
		return toggleList(root, sel, "ul", block), nil
	}))
	e.AddCommand(CmdOrderedList, p.edit("list", func(root *content.Node, sel content.Bookmark, _ map[string]any) (content.Bookmark, error) {
		return toggleList(root, sel, "ol", block), nil
	}))
	e.AddCommand(CmdRemoveList, p.edit("list", func(root *content.Node, sel content.Bookmark, _ map[string]any) (content.Bookmark, error) {
		return removeLists(root, sel, block), nil
	}))
	e.AddCommand(CmdIndent, p.edit("indent", func(root *content.Node, sel content.Bookmark, args map[string]any) (content.Bookmark, error) {
		return itemEdit(root, sel, args, indent)
	}))
	e.AddCommand(CmdOutdent, p.edit("outdent", func(root *content.Node, sel content.Bookmark, args map[string]any) (content.Bookmark, error) {
		return itemEdit(root, sel, args, func(list *content.Node, i int) {
			outdent(list, i, block)
		})
	}))

	km := keyboard.NewKeymap(Name).
		WithSource("plugin:" + Name).
		WithPriority(2).
		Add("Tab", CmdIndent).
		Add("Shift+Tab", CmdOutdent)
	if err := e.Keymaps().Register(km); err != nil {
		return fmt.Errorf("register keymap: %w", err)
	}

	p.commands = true
	return nil
}

// CommandsRegistered reports whether the list commands were registered.
func (p *Plugin) CommandsRegistered() bool {
	return p.commands
}

// API returns the plugin API.
func (p *Plugin) API() API {
	return API{p: p}
}

// API is the public surface other plugins use.
type API struct {
	p *Plugin
}

// IsInList reports whether the selection starts in a list.
func (a API) IsInList() bool {
	if a.p.ed == nil {
		return false
	}
	var in bool
	a.p.ed.View(func(root *content.Node, sel content.Bookmark) {
		n := root.Child(min(sel.Start, root.ChildCount()-1))
		in = n != nil && isList(n)
	})
	return in
}

type listFunc func(root *content.Node, sel content.Bookmark, args map[string]any) (content.Bookmark, error)

func (p *Plugin) edit(event string, fn listFunc) func(map[string]any) error {
	return func(args map[string]any) error {
		return p.ed.Edit(event, func(root *content.Node, sel content.Bookmark) (content.Bookmark, error) {
			return fn(root, sel, args)
		})
	}
}

func isList(n *content.Node) bool {
	return n.Type == content.ElementNode && (n.Name == "ul" || n.Name == "ol")
}
