package lists

import (
	"context"
	"errors"
	"testing"

	"github.com/dshills/inkwell/internal/collab"
	"github.com/dshills/inkwell/internal/content"
	"github.com/dshills/inkwell/internal/editor"
)

func setup(t *testing.T, extra ...interface{ Name() string }) (*editor.Editor, *Plugin) {
	t.Helper()
	e := editor.New()
	t.Cleanup(func() { e.Close() })

	p := New()
	if err := e.RegisterPlugin(p); err != nil {
		t.Fatal(err)
	}
	for _, x := range extra {
		if err := e.RegisterPlugin(x); err != nil {
			t.Fatal(err)
		}
	}
	if err := e.Init(context.Background()); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	return e, p
}

func html(t *testing.T, e *editor.Editor) string {
	t.Helper()
	s, err := e.GetContent(content.FormatHTML)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func exec(t *testing.T, e *editor.Editor, cmd string, args map[string]any) {
	t.Helper()
	if err := e.ExecCommand(cmd, args); err != nil {
		t.Fatalf("ExecCommand(%s) error = %v", cmd, err)
	}
}

func TestListsButtonsAlwaysRegistered(t *testing.T) {
	e, _ := setup(t)
	var names []string
	for _, b := range e.Buttons() {
		names = append(names, b.Name)
	}
	if len(names) != 2 || names[0] != "bullist" || names[1] != "numlist" {
		t.Errorf("Buttons() = %v", names)
	}
}

func TestListsWorkflow(t *testing.T) {
	e, p := setup(t)
	api := p.API()
	if !p.CommandsRegistered() {
		t.Fatal("commands not registered in plain mode")
	}

	if err := e.SetContent(content.HTML("<p>a</p><p>b</p>")); err != nil {
		t.Fatal(err)
	}
	if api.IsInList() {
		t.Error("IsInList() = true before a list exists")
	}
	exec(t, e, "SelectAll", nil)

	steps := []struct {
		name string
		run  func()
		want string
	}{
		{"bullet list", func() { exec(t, e, CmdUnorderedList, nil) }, "<ul><li>a</li><li>b</li></ul>"},
		{"switch to numbered", func() { e.PressButton("numlist") }, "<ol><li>a</li><li>b</li></ol>"},
		{"indent", func() { e.HandleKey("Tab") }, "<ol><li>a<ol><li>b</li></ol></li></ol>"},
		{"outdent nested", func() { e.HandleKey("Shift+Tab") }, "<ol><li>a</li><li>b</li></ol>"},
		{"outdent to block", func() { e.HandleKey("Shift+Tab") }, "<ol><li>a</li></ol><p>b</p>"},
		{"remove list", func() { exec(t, e, CmdRemoveList, nil) }, "<p>a</p><p>b</p>"},
	}
	for _, step := range steps {
		step.run()
		if got := html(t, e); got != step.want {
			t.Fatalf("%s: content = %q, want %q", step.name, got, step.want)
		}
		if step.name == "bullet list" && !api.IsInList() {
			t.Error("IsInList() = false after creating a list")
		}
	}

	if _, err := e.Undo(); err != nil {
		t.Fatal(err)
	}
	if got := html(t, e); got != "<ol><li>a</li></ol><p>b</p>" {
		t.Errorf("after Undo = %q", got)
	}
}

func TestListsToggleOff(t *testing.T) {
	e, _ := setup(t)
	e.SetContent(content.HTML("<ul><li>x</li><li></li></ul>"))
	e.Select(content.Bookmark{Start: 0, End: 0})

	exec(t, e, CmdUnorderedList, nil)
	if got := html(t, e); got != "<p>x</p><p></p>" {
		t.Errorf("content = %q", got)
	}
	if sel := e.Selection(); sel != (content.Bookmark{Start: 0, End: 2}) {
		t.Errorf("Selection() = %v", sel)
	}
}

func TestListsIndentItemArgument(t *testing.T) {
	e, _ := setup(t)
	e.SetContent(content.HTML("<ul><li>a</li><li>b</li><li>c</li></ul>"))
	e.Select(content.Bookmark{Start: 0, End: 1})

	exec(t, e, CmdIndent, map[string]any{"item": 1})
	if got := html(t, e); got != "<ul><li>a<ul><li>b</li></ul></li><li>c</li></ul>" {
		t.Errorf("content = %q", got)
	}

	// The first item cannot be indented.
	exec(t, e, CmdIndent, map[string]any{"item": 0})
	if got := html(t, e); got != "<ul><li>a<ul><li>b</li></ul></li><li>c</li></ul>" {
		t.Errorf("content = %q", got)
	}

	err := e.ExecCommand(CmdIndent, map[string]any{"item": "1"})
	if !errors.Is(err, editor.ErrInvalidArgument) {
		t.Errorf("ExecCommand() error = %v", err)
	}
}

func TestListsOutdentSplitsList(t *testing.T) {
	e, _ := setup(t)
	e.SetContent(content.HTML("<ol><li>a</li><li>b</li><li>c</li></ol>"))
	e.Select(content.Bookmark{Start: 0, End: 1})

	exec(t, e, CmdOutdent, map[string]any{"item": 1})
	if got := html(t, e); got != "<ol><li>a</li></ol><p>b</p><ol><li>c</li></ol>" {
		t.Errorf("content = %q", got)
	}
}

func TestListsCollaborative(t *testing.T) {
	hub := collab.NewHub()
	hub.Open()
	defer hub.Close()

	e, p := setup(t, hub.Plugin())
	if p.CommandsRegistered() {
		t.Error("commands registered with a collaboration plugin present")
	}
	for _, cmd := range []string{CmdUnorderedList, CmdOrderedList, CmdRemoveList, CmdIndent, CmdOutdent} {
		if e.QueryCommandSupported(cmd) {
			t.Errorf("%s registered", cmd)
		}
	}
	if e.Keymaps().Has(Name) {
		t.Error("lists keymap registered")
	}
	if len(e.Buttons()) != 2 {
		t.Errorf("Buttons() = %+v", e.Buttons())
	}
	if err := e.PressButton("bullist"); !errors.Is(err, editor.ErrCommandNotFound) {
		t.Errorf("PressButton() error = %v", err)
	}
}
