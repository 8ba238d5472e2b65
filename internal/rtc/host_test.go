package rtc

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/dshills/inkwell/internal/content"
	"github.com/dshills/inkwell/internal/format"
	"github.com/dshills/inkwell/internal/notify"
	"github.com/dshills/inkwell/internal/undo"
)

// testDoc is an undo.Document holding serialized HTML.
type testDoc struct {
	html string
	sel  content.Bookmark
}

func (d *testDoc) Snapshot() (string, content.Bookmark, error) { return d.html, d.sel, nil }

func (d *testDoc) Restore(html string, bm *content.Bookmark) error {
	d.html = html
	if bm != nil {
		d.sel = *bm
	}
	return nil
}

// testLocal records calls to the local implementation.
type testLocal struct {
	mu      sync.Mutex
	doc     *testDoc
	history *undo.Manager
	calls   []string
	parser  *content.Parser
	ser     *content.Serializer
}

func newTestLocal() *testLocal {
	doc := &testDoc{html: "<p>local</p>"}
	l := &testLocal{
		doc:     doc,
		history: undo.NewManager(doc),
		parser:  content.NewParser(),
		ser:     content.NewSerializer(content.SerializerOptions{}),
	}
	l.history.Add(nil, "init")
	return l
}

func (l *testLocal) record(call string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, call)
}

func (l *testLocal) Calls() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.calls...)
}

func (l *testLocal) History() *undo.Manager { return l.history }

func (l *testLocal) ApplyFormat(name string, _ format.Vars) error {
	l.record("apply:" + name)
	return nil
}

func (l *testLocal) ToggleFormat(name string, _ format.Vars) error {
	l.record("toggle:" + name)
	return nil
}

func (l *testLocal) RemoveFormat(name string, _ format.Vars) error {
	l.record("remove:" + name)
	return nil
}

func (l *testLocal) SetContent(tree *content.Node) error {
	l.record("set")
	html, err := l.ser.Serialize(tree)
	l.doc.html = html
	return err
}

func (l *testLocal) GetContent() *content.Node {
	l.record("get")
	tree, _ := l.parser.Parse(l.doc.html, content.ParseOptions{})
	return tree
}

func (l *testLocal) InsertContent(tree *content.Node) error {
	l.record("insert")
	html, err := l.ser.Serialize(tree)
	l.doc.html += html
	return err
}

func (l *testLocal) GetSelectedContent() *content.Node {
	l.record("selected")
	return l.GetContent()
}

// testHost is a minimal Host.
type testHost struct {
	cell       *Cell
	plugins    map[string]any
	parser     *content.Parser
	serializer *content.Serializer
	local      *testLocal
	notifier   *notify.Notifier
}

func newTestHost(plugins map[string]any) *testHost {
	n := notify.New()
	return &testHost{
		cell:       NewCell(WithNotifier(n)),
		plugins:    plugins,
		parser:     content.NewParser(),
		serializer: content.NewSerializer(content.SerializerOptions{}),
		local:      newTestLocal(),
		notifier:   n,
	}
}

func (h *testHost) ID() string { return "test-editor" }
func (h *testHost) RTC() *Cell { return h.cell }
func (h *testHost) Parser() *content.Parser { return h.parser }
func (h *testHost) Serializer() *content.Serializer { return h.serializer }
func (h *testHost) Local() Local { return h.local }

func (h *testHost) Plugin(name string) (any, bool) {
	p, ok := h.plugins[name]
	return p, ok
}

// testRuntime implements every capability interface but only declares caps.
type testRuntime struct {
	mu    sync.Mutex
	caps  []Capability
	calls []string
	vars  []format.Vars
	tree  *content.Node
	err   error

	hasRedoErr error
}

func (r *testRuntime) record(call string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, call)
}

func (r *testRuntime) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

func (r *testRuntime) Capabilities() []Capability { return r.caps }

func (r *testRuntime) Undo() error { r.record("undo"); return r.err }
func (r *testRuntime) Redo() error { r.record("redo"); return r.err }
func (r *testRuntime) HasUndo() (bool, error) { r.record("hasUndo"); return true, nil }
func (r *testRuntime) HasRedo() (bool, error) { r.record("hasRedo"); return false, r.hasRedoErr }

func (r *testRuntime) Transact(fn func() error) error {
	r.record("transact")
	return fn()
}

func (r *testRuntime) ApplyFormat(name string, vars format.Vars) error {
	r.record("apply:" + name)
	r.mu.Lock()
	r.vars = append(r.vars, vars)
	r.mu.Unlock()
	return nil
}

func (r *testRuntime) ToggleFormat(name string, vars format.Vars) error {
	r.record("toggle:" + name)
	return nil
}

func (r *testRuntime) RemoveFormat(name string, vars format.Vars) error {
	r.record("remove:" + name)
	return nil
}

func (r *testRuntime) SetContent(tree *content.Node) error {
	r.record("set")
	r.tree = tree
	return nil
}

func (r *testRuntime) GetContent() (*content.Node, error) {
	r.record("get")
	return r.tree, nil
}

func (r *testRuntime) InsertContent(tree *content.Node) error {
	r.record("insert")
	if r.tree == nil {
		r.tree = content.NewFragment()
	}
	r.tree.Append(tree)
	return nil
}

func (r *testRuntime) GetSelectedContent() (*content.Node, error) {
	r.record("selected")
	return r.tree, nil
}

// undoOnly declares undo but has no Undo method.
type undoOnly struct{}

func (undoOnly) Capabilities() []Capability { return []Capability{CapUndo} }

// testPlugin is a CollabPlugin returning a fixed runtime.
type testPlugin struct {
	rt      Runtime
	err     error
	release chan struct{}
	panics  bool
}

func (p *testPlugin) Setup(ctx context.Context, _ Host) (Runtime, error) {
	if p.panics {
		panic("boom")
	}
	if p.release != nil {
		select {
		case <-p.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if p.err != nil {
		return nil, p.err
	}
	return p.rt, nil
}

var errPlugin = errors.New("plugin exploded")

func setupPlain(t *testing.T) *testHost {
	t.Helper()
	h := newTestHost(nil)
	if _, err := Setup(context.Background(), h); err != nil {
		t.Fatalf("Setup() error = %v", err)
	}
	return h
}

func setupCollab(t *testing.T, caps ...Capability) (*testHost, *testRuntime) {
	t.Helper()
	rt := &testRuntime{caps: caps}
	h := newTestHost(map[string]any{PluginName: &testPlugin{rt: rt}})
	if _, err := Setup(context.Background(), h); err != nil {
		t.Fatalf("Setup() error = %v", err)
	}
	return h, rt
}
