package rtc

import (
	"errors"
	"slices"
	"testing"

	"github.com/dshills/inkwell/internal/content"
	"github.com/dshills/inkwell/internal/format"
	"github.com/dshills/inkwell/internal/undo"
)

func TestFacadeBeforeSetup(t *testing.T) {
	h := newTestHost(nil)
	noop := func() error { return nil }
	text := func() (string, error) { return "x", nil }

	results := map[string]error{
		"Undo":               Undo(h).Err,
		"Redo":               Redo(h).Err,
		"HasUndo":            HasUndo(h).Err,
		"HasRedo":            HasRedo(h).Err,
		"Transact":           Transact(h, noop).Err,
		"ApplyFormat":        ApplyFormat(h, "bold", nil, noop).Err,
		"ToggleFormat":       ToggleFormat(h, "bold", nil, noop).Err,
		"RemoveFormat":       RemoveFormat(h, "bold", nil, noop).Err,
		"SetContent":         SetContent(h, content.HTML("<p>a</p>")).Err,
		"GetContent":         GetContent(h, content.FormatHTML, text).Err,
		"GetContentText":     GetContent(h, content.FormatText, text).Err,
		"InsertContent":      InsertContent(h, content.HTML("a"), noop).Err,
		"GetSelectedContent": GetSelectedContent(h, content.FormatHTML, text).Err,
		"BeforeChange":       BeforeChange(h, nil).Err,
		"AddUndoLevel":       AddUndoLevel(h, nil, "x").Err,
		"Ignore":             Ignore(h, func() int { return 1 }).Err,
		"Block":              Block(h, "x", func() int { return 1 }).Err,
	}
	for name, err := range results {
		if !errors.Is(err, ErrNotReady) {
			t.Errorf("%s before setup error = %v, want ErrNotReady", name, err)
		}
	}
	if calls := h.local.Calls(); len(calls) != 0 {
		t.Errorf("local routines called before setup: %v", calls)
	}
}

func TestPlainMatchesLocal(t *testing.T) {
	h := setupPlain(t)
	local := h.local

	if r := HasUndo(h); !r.IsOK() || r.Value {
		t.Errorf("HasUndo() = %+v, want ok false", r)
	}

	r := Transact(h, func() error {
		local.doc.html = "<p>changed</p>"
		return nil
	})
	if !r.IsOK() || r.Value == nil || r.Value.Content != "<p>changed</p>" {
		t.Fatalf("Transact() = %+v", r)
	}
	if got := HasUndo(h); !got.Value {
		t.Error("HasUndo() = false after transact")
	}

	if r := Undo(h); !r.IsOK() || r.Value.Content != "<p>local</p>" {
		t.Errorf("Undo() = %+v", r)
	}
	if local.doc.html != "<p>local</p>" {
		t.Errorf("doc after undo = %q", local.doc.html)
	}
	if r := HasRedo(h); !r.Value {
		t.Error("HasRedo() = false after undo")
	}
	if r := Redo(h); !r.IsOK() || local.doc.html != "<p>changed</p>" {
		t.Errorf("Redo() = %+v, doc = %q", r, local.doc.html)
	}

	// Errors from local history surface as failures.
	if r := Redo(h); r.Status != StatusFailed || !errors.Is(r.Err, undo.ErrNothingToRedo) {
		t.Errorf("Redo() at tip = %+v", r)
	}
}

func TestPlainUndoManagerDelegates(t *testing.T) {
	h := setupPlain(t)

	bm := &content.Bookmark{Start: 0, End: 1}
	if r := BeforeChange(h, bm); !r.IsOK() {
		t.Fatalf("BeforeChange() = %+v", r)
	}
	h.local.doc.html = "<p>new</p>"

	r := AddUndoLevel(h, nil, "keypress")
	if !r.IsOK() || r.Value == nil {
		t.Fatalf("AddUndoLevel() = %+v", r)
	}
	if r.Value.Event != "keypress" || r.Value.BeforeBookmark == nil || *r.Value.BeforeBookmark != *bm {
		t.Errorf("level = %+v", r.Value)
	}
	levels := h.local.History().Levels()
	if levels[len(levels)-1] != r.Value {
		t.Error("AddUndoLevel should return the level recorded by local history")
	}
}

func TestPlainUsesFallbacks(t *testing.T) {
	h := setupPlain(t)

	var called []string
	fb := func(name string) func() error {
		return func() error {
			called = append(called, name)
			return nil
		}
	}

	ApplyFormat(h, "bold", nil, fb("apply"))
	ToggleFormat(h, "bold", nil, fb("toggle"))
	RemoveFormat(h, "bold", nil, fb("remove"))
	InsertContent(h, content.HTML("x"), fb("insert"))

	want := []string{"apply", "toggle", "remove", "insert"}
	if !slices.Equal(called, want) {
		t.Errorf("fallbacks called = %v, want %v", called, want)
	}
	if calls := h.local.Calls(); len(calls) != 0 {
		t.Errorf("adaptor consulted despite fallback: %v", calls)
	}

	// getContent returns the fallback's value unchanged.
	r := GetContent(h, content.FormatHTML, func() (string, error) { return "<p>fallback</p>", nil })
	if !r.IsOK() || r.Value != "<p>fallback</p>" {
		t.Errorf("GetContent() = %+v", r)
	}

	boom := errors.New("boom")
	if r := GetSelectedContent(h, content.FormatHTML, func() (string, error) { return "", boom }); !errors.Is(r.Err, boom) {
		t.Errorf("GetSelectedContent() error = %v", r.Err)
	}
}

func TestPlainWithoutFallbackUsesAdaptor(t *testing.T) {
	h := setupPlain(t)

	if r := ApplyFormat(h, "italic", nil, nil); !r.IsOK() {
		t.Fatalf("ApplyFormat() = %+v", r)
	}
	r := GetContent(h, content.FormatHTML, nil)
	if !r.IsOK() || r.Value != "<p>local</p>" {
		t.Errorf("GetContent() = %+v", r)
	}
	want := []string{"apply:italic", "get"}
	if calls := h.local.Calls(); !slices.Equal(calls, want) {
		t.Errorf("local calls = %v, want %v", calls, want)
	}
}

func TestPlainSetContent(t *testing.T) {
	h := setupPlain(t)

	in := content.HTML("hello")
	r := SetContent(h, in)
	if !r.IsOK() || r.Value != in {
		t.Fatalf("SetContent() = %+v", r)
	}
	if h.local.doc.html != "<p>hello</p>" {
		t.Errorf("doc = %q", h.local.doc.html)
	}
}

func TestCollabUnsupported(t *testing.T) {
	h, rt := setupCollab(t)
	noop := func() error { return nil }
	text := func() (string, error) { return "", nil }

	tests := []struct {
		feature string
		result  func() (Status, string)
	}{
		{"undo", func() (Status, string) { r := Undo(h); return r.Status, r.Feature }},
		{"redo", func() (Status, string) { r := Redo(h); return r.Status, r.Feature }},
		{"hasUndo", func() (Status, string) { r := HasUndo(h); return r.Status, r.Feature }},
		{"hasRedo", func() (Status, string) { r := HasRedo(h); return r.Status, r.Feature }},
		{"transact", func() (Status, string) { r := Transact(h, noop); return r.Status, r.Feature }},
		{"applyFormat", func() (Status, string) { r := ApplyFormat(h, "bold", nil, noop); return r.Status, r.Feature }},
		{"toggleFormat", func() (Status, string) { r := ToggleFormat(h, "bold", nil, noop); return r.Status, r.Feature }},
		{"removeFormat", func() (Status, string) { r := RemoveFormat(h, "bold", nil, noop); return r.Status, r.Feature }},
		{"setContent", func() (Status, string) { r := SetContent(h, content.HTML("a")); return r.Status, r.Feature }},
		{"getContent", func() (Status, string) { r := GetContent(h, content.FormatHTML, text); return r.Status, r.Feature }},
		{"insertContent", func() (Status, string) { r := InsertContent(h, content.HTML("a"), noop); return r.Status, r.Feature }},
		{"getSelectedContent", func() (Status, string) {
			r := GetSelectedContent(h, content.FormatHTML, text)
			return r.Status, r.Feature
		}},
		{"addUndoLevel", func() (Status, string) { r := AddUndoLevel(h, nil, "x"); return r.Status, r.Feature }},
	}

	for _, tt := range tests {
		t.Run(tt.feature, func(t *testing.T) {
			status, feature := tt.result()
			if status != StatusUnsupported {
				t.Errorf("status = %v, want unsupported", status)
			}
			if feature != tt.feature {
				t.Errorf("feature = %q, want %q", feature, tt.feature)
			}
		})
	}

	if calls := rt.Calls(); len(calls) != 0 {
		t.Errorf("runtime called for undeclared capabilities: %v", calls)
	}
	if calls := h.local.Calls(); len(calls) != 0 {
		t.Errorf("local routines called in collaborative mode: %v", calls)
	}
}

func TestCollabUnsupportedUnwrap(t *testing.T) {
	h, _ := setupCollab(t)

	_, err := Undo(h).Unwrap()
	var ue *UnsupportedError
	if !errors.As(err, &ue) || ue.Feature != "undo" {
		t.Fatalf("Unwrap() error = %v, want UnsupportedError{undo}", err)
	}
	if !errors.Is(err, ErrUnsupported) {
		t.Error("UnsupportedError should match ErrUnsupported")
	}
}

func TestCollabBeforeChangeIsNoop(t *testing.T) {
	h, rt := setupCollab(t, AllCapabilities()...)

	if r := BeforeChange(h, &content.Bookmark{Start: 1, End: 2}); !r.IsOK() {
		t.Errorf("BeforeChange() = %+v, want ok", r)
	}
	if len(rt.Calls()) != 0 || len(h.local.Calls()) != 0 {
		t.Error("BeforeChange should touch nothing in collaborative mode")
	}
	if r := AddUndoLevel(h, nil, "x"); !r.IsUnsupported() {
		t.Errorf("AddUndoLevel() = %+v, want unsupported even with every capability", r)
	}
}

func TestCollabHistory(t *testing.T) {
	h, rt := setupCollab(t, CapUndo, CapRedo, CapHasUndo, CapHasRedo, CapTransact)

	for name, r := range map[string]Result[*undo.Level]{
		"undo":     Undo(h),
		"redo":     Redo(h),
		"transact": Transact(h, func() error { return nil }),
	} {
		if !r.IsOK() {
			t.Errorf("%s = %+v", name, r)
			continue
		}
		if !r.Value.Equal(undo.CompleteLevel()) || r.Value.Bookmark != nil {
			t.Errorf("%s level = %+v, want placeholder", name, r.Value)
		}
	}
	if r := HasUndo(h); !r.IsOK() || !r.Value {
		t.Errorf("HasUndo() = %+v", r)
	}
	if r := HasRedo(h); !r.IsOK() || r.Value {
		t.Errorf("HasRedo() = %+v", r)
	}

	rt.err = errPlugin
	if r := Undo(h); r.Status != StatusFailed || !errors.Is(r.Err, errPlugin) {
		t.Errorf("Undo() with runtime error = %+v", r)
	}
	rt.hasRedoErr = errPlugin
	if r := HasRedo(h); r.Status != StatusFailed || !errors.Is(r.Err, errPlugin) {
		t.Errorf("HasRedo() with runtime error = %+v", r)
	}

	// Local history is untouched.
	if len(h.local.History().Levels()) != 1 {
		t.Error("collaborative history leaked into local history")
	}
}

func TestCollabApplyFormatEmptyVars(t *testing.T) {
	h, rt := setupCollab(t, CapApplyFormat, CapToggleFormat, CapRemoveFormat)

	fallbackCalled := false
	fb := func() error { fallbackCalled = true; return nil }

	if r := ApplyFormat(h, "bold", nil, fb); !r.IsOK() {
		t.Fatalf("ApplyFormat() = %+v", r)
	}
	if r := ApplyFormat(h, "forecolor", format.Vars{"value": "red"}, fb); !r.IsOK() {
		t.Fatalf("ApplyFormat() = %+v", r)
	}
	ToggleFormat(h, "italic", nil, fb)
	RemoveFormat(h, "italic", nil, fb)

	if fallbackCalled {
		t.Error("fallback ran in collaborative mode")
	}
	if len(rt.vars) != 2 {
		t.Fatalf("runtime received %d apply calls", len(rt.vars))
	}
	if rt.vars[0] == nil || len(rt.vars[0]) != 0 {
		t.Errorf("nil vars reached runtime as %#v, want empty map", rt.vars[0])
	}
	if rt.vars[1]["value"] != "red" {
		t.Errorf("vars = %v", rt.vars[1])
	}
	want := []string{"apply:bold", "apply:forecolor", "toggle:italic", "remove:italic"}
	if calls := rt.Calls(); !slices.Equal(calls, want) {
		t.Errorf("runtime calls = %v, want %v", calls, want)
	}
}

func TestCollabContent(t *testing.T) {
	h, rt := setupCollab(t, CapSetContent, CapGetContent, CapInsertContent, CapGetSelectedContent)

	in := content.HTML("hello <b>world</b>")
	if r := SetContent(h, in); !r.IsOK() || r.Value != in {
		t.Fatalf("SetContent() = %+v", r)
	}
	// Markup is parsed as root content before reaching the runtime.
	if rt.tree == nil || rt.tree.ChildCount() != 1 || rt.tree.Child(0).Name != "p" {
		t.Fatalf("runtime tree = %v", rt.tree)
	}

	// Trees pass through untouched.
	tree := content.NewFragment().Append(content.NewElement("h1").Append(content.NewText("t")))
	SetContent(h, tree)
	if rt.tree != tree {
		t.Error("tree content should reach the runtime as-is")
	}

	rt.tree, _ = h.parser.Parse(`<p>a</p><p><br data-ink-bogus="1"></p>`, content.ParseOptions{})
	r := GetContent(h, content.FormatHTML, func() (string, error) { return "fallback", nil })
	if !r.IsOK() || r.Value != "<p>a</p><p></p>" {
		t.Errorf("GetContent() = %+v", r)
	}
	if got := rt.tree.Child(1).ChildCount(); got != 1 {
		t.Error("GetContent should not filter the runtime's own tree")
	}

	// Text always comes from the fallback.
	r = GetContent(h, content.FormatText, func() (string, error) { return "plain", nil })
	if r.Value != "plain" {
		t.Errorf("GetContent(text) = %+v", r)
	}
	r = GetSelectedContent(h, content.FormatText, func() (string, error) { return "sel", nil })
	if r.Value != "sel" {
		t.Errorf("GetSelectedContent(text) = %+v", r)
	}

	r = GetSelectedContent(h, content.FormatHTML, nil)
	if !r.IsOK() || r.Value != "<p>a</p><p></p>" {
		t.Errorf("GetSelectedContent() = %+v", r)
	}

	if r := InsertContent(h, content.HTML("<em>x</em>"), nil); !r.IsOK() {
		t.Fatalf("InsertContent() = %+v", r)
	}
	last := rt.tree.LastChild()
	if last == nil || last.Name != "em" {
		t.Errorf("inserted node = %v, want em (no root block wrapping)", last)
	}

	if r := SetContent(h, nil); r.Status != StatusFailed || !errors.Is(r.Err, content.ErrNilTree) {
		t.Errorf("SetContent(nil) = %+v", r)
	}
}

func TestCollabGetContentNilTree(t *testing.T) {
	h, _ := setupCollab(t, CapGetContent)
	r := GetContent(h, content.FormatHTML, nil)
	if !r.IsOK() || r.Value != "" {
		t.Errorf("GetContent() = %+v", r)
	}
}

func TestIgnoreAndBlock(t *testing.T) {
	plain := setupPlain(t)
	collab, _ := setupCollab(t)

	tests := []struct {
		name       string
		host       Host
		wantIgnore Status
		wantBlock  Status
		wantValue  int
	}{
		{"plain", plain, StatusOK, StatusOK, 42},
		{"collaborative", collab, StatusSkipped, StatusUnsupported, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			fb := func() int { calls++; return 42 }

			ri := Ignore(tt.host, fb)
			if ri.Status != tt.wantIgnore || ri.Value != tt.wantValue {
				t.Errorf("Ignore() = %+v", ri)
			}
			if v, err := ri.Unwrap(); err != nil || v != tt.wantValue {
				t.Errorf("Ignore().Unwrap() = %v, %v", v, err)
			}

			rb := Block(tt.host, "lists", fb)
			if rb.Status != tt.wantBlock || rb.Value != tt.wantValue {
				t.Errorf("Block() = %+v", rb)
			}
			if tt.wantBlock == StatusUnsupported {
				if rb.Feature != "lists" {
					t.Errorf("Block() feature = %q", rb.Feature)
				}
				if _, err := rb.Unwrap(); !errors.Is(err, ErrUnsupported) {
					t.Errorf("Block().Unwrap() error = %v", err)
				}
			}

			wantCalls := 2
			if tt.name == "collaborative" {
				wantCalls = 0
			}
			if calls != wantCalls {
				t.Errorf("fallback calls = %d, want %d", calls, wantCalls)
			}
		})
	}
}

func TestHasPlugin(t *testing.T) {
	if HasPlugin(newTestHost(nil)) {
		t.Error("HasPlugin() = true without plugin")
	}
	h := newTestHost(map[string]any{PluginName: &testPlugin{}})
	if !HasPlugin(h) {
		t.Error("HasPlugin() = false with plugin")
	}
	// Presence is independent of setup.
	if h.cell.State() != StateUninitialized {
		t.Error("HasPlugin should not start setup")
	}
}
