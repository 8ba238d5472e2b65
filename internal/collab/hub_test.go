package collab

import (
	"context"
	"errors"
	"fmt"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"golang.org/x/net/websocket"

	"github.com/dshills/inkwell/internal/content"
	"github.com/dshills/inkwell/internal/rtc"
	"github.com/dshills/inkwell/internal/undo"
)

type testHost struct {
	id     string
	cell   *rtc.Cell
	plugin *Plugin
	parser *content.Parser
	ser    *content.Serializer
}

func newTestHost(id string, p *Plugin) *testHost {
	return &testHost{
		id:     id,
		cell:   rtc.NewCell(),
		plugin: p,
		parser: content.NewParser(),
		ser:    content.NewSerializer(content.SerializerOptions{}),
	}
}

func (h *testHost) ID() string                      { return h.id }
func (h *testHost) RTC() *rtc.Cell                  { return h.cell }
func (h *testHost) Parser() *content.Parser         { return h.parser }
func (h *testHost) Serializer() *content.Serializer { return h.ser }
func (h *testHost) Local() rtc.Local                { return nil }

func (h *testHost) Plugin(name string) (any, bool) {
	if name != rtc.PluginName {
		return nil, false
	}
	return h.plugin, true
}

func (h *testHost) client(t *testing.T) *Client {
	t.Helper()
	a, err := h.cell.Adaptor()
	if err != nil {
		t.Fatal(err)
	}
	return a.(*rtc.Collab).Runtime().(*Client)
}

func openHub(t *testing.T, opts ...Option) *Hub {
	t.Helper()
	h := NewHub(opts...)
	h.Open()
	t.Cleanup(func() { h.Close() })
	return h
}

func join(t *testing.T, hub *Hub, id string) *testHost {
	t.Helper()
	host := newTestHost(id, hub.Plugin())
	collab, err := rtc.Setup(context.Background(), host)
	if err != nil || !collab {
		t.Fatalf("Setup() = %v, %v", collab, err)
	}
	return host
}

func html(t *testing.T, h rtc.Host) string {
	t.Helper()
	s, err := rtc.GetContent(h, content.FormatHTML, nil).Unwrap()
	if err != nil {
		t.Fatalf("GetContent() error = %v", err)
	}
	return s
}

func next(t *testing.T, updates <-chan Change) Change {
	t.Helper()
	select {
	case ch := <-updates:
		return ch
	case <-time.After(time.Second):
		t.Fatal("no change delivered")
		return Change{}
	}
}

func TestHubSetupWaitsForOpen(t *testing.T) {
	hub := NewHub()
	defer hub.Close()
	host := newTestHost("a", hub.Plugin())

	pending := rtc.Start(context.Background(), host)
	select {
	case <-pending.Done():
		t.Fatal("setup finished before the hub opened")
	case <-time.After(20 * time.Millisecond):
	}

	hub.Open()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	collab, err := pending.Wait(ctx)
	if err != nil || !collab {
		t.Fatalf("Wait() = %v, %v", collab, err)
	}
	if len(hub.Clients()) != 1 {
		t.Errorf("Clients() = %v", hub.Clients())
	}
}

func TestHubSetupFailures(t *testing.T) {
	t.Run("context", func(t *testing.T) {
		hub := NewHub()
		defer hub.Close()
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()

		_, err := rtc.Setup(ctx, newTestHost("a", hub.Plugin()))
		if !errors.Is(err, rtc.ErrSetupFailed) || !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("Setup() error = %v", err)
		}
	})

	t.Run("closed", func(t *testing.T) {
		hub := NewHub()
		hub.Close()
		_, err := rtc.Setup(context.Background(), newTestHost("a", hub.Plugin()))
		if !errors.Is(err, ErrHubClosed) {
			t.Errorf("Setup() error = %v", err)
		}
	})

	t.Run("join before open", func(t *testing.T) {
		hub := NewHub()
		defer hub.Close()
		if _, err := hub.Join("a"); !errors.Is(err, ErrHubNotOpen) {
			t.Errorf("Join() error = %v", err)
		}
	})
}

func TestHubSharedDocument(t *testing.T) {
	hub := openHub(t)
	a := join(t, hub, "a")
	b := join(t, hub, "b")
	bUpdates := b.client(t).Updates()

	if r := rtc.SetContent(a, content.HTML("<p>one</p>")); !r.IsOK() {
		t.Fatalf("SetContent() = %+v", r)
	}
	ch := next(t, bUpdates)
	if ch.ClientID != a.client(t).ID() || ch.Op != OpSet || ch.Version != 1 {
		t.Errorf("change = %+v", ch)
	}
	if got := html(t, b); got != "<p>one</p>" {
		t.Errorf("b sees %q", got)
	}

	rtc.InsertContent(b, content.HTML("<p>two</p>"), nil)
	next(t, bUpdates)
	if got := html(t, a); got != "<p>one</p><p>two</p>" {
		t.Errorf("a sees %q", got)
	}

	// History is shared: a can undo b's insert.
	if r := rtc.Undo(a); !r.IsOK() {
		t.Fatalf("Undo() = %+v", r)
	}
	if got := html(t, b); got != "<p>one</p>" {
		t.Errorf("after undo b sees %q", got)
	}
	if has, _ := rtc.HasRedo(b).Unwrap(); !has {
		t.Error("HasRedo() = false")
	}
	rtc.Redo(b)
	if doc, version := hub.Document(); doc != "<p>one</p><p>two</p>" || version != 4 {
		t.Errorf("Document() = %q, %d", doc, version)
	}

	sel, _ := rtc.GetSelectedContent(a, content.FormatHTML, nil).Unwrap()
	if sel != "<p>one</p><p>two</p>" {
		t.Errorf("GetSelectedContent() = %q", sel)
	}
}

func TestHubDeliversChangesInVersionOrder(t *testing.T) {
	const writers, edits = 8, 200
	hub := openHub(t, WithBufferSize(writers*edits+1))
	updates, cancel, err := hub.Subscribe()
	if err != nil {
		t.Fatal(err)
	}
	defer cancel()

	hosts := make([]*testHost, writers)
	for i := range hosts {
		hosts[i] = join(t, hub, fmt.Sprintf("w%d", i))
	}

	var wg sync.WaitGroup
	for i, host := range hosts {
		i, host := i, host
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < edits; j++ {
				rtc.SetContent(host, content.HTML(fmt.Sprintf("<p>%d-%d</p>", i, j)))
			}
		}()
	}
	wg.Wait()

	want, version := hub.Document()
	last := 0
	for last < version {
		ch := next(t, updates)
		if ch.Version <= last {
			t.Fatalf("change %d delivered after %d", ch.Version, last)
		}
		last = ch.Version
		if last == version && ch.HTML != want {
			t.Errorf("last change = %q, document = %q", ch.HTML, want)
		}
	}
}

func TestHubUnsupportedFormats(t *testing.T) {
	hub := openHub(t)
	a := join(t, hub, "a")

	for _, feature := range []rtc.Capability{rtc.CapApplyFormat, rtc.CapToggleFormat, rtc.CapRemoveFormat} {
		var r rtc.Result[rtc.Empty]
		switch feature {
		case rtc.CapApplyFormat:
			r = rtc.ApplyFormat(a, "bold", nil, nil)
		case rtc.CapToggleFormat:
			r = rtc.ToggleFormat(a, "bold", nil, nil)
		default:
			r = rtc.RemoveFormat(a, "bold", nil, nil)
		}
		if !r.IsUnsupported() || r.Feature != string(feature) {
			t.Errorf("%s = %+v", feature, r)
		}
	}
}

func TestHubTransact(t *testing.T) {
	hub := openHub(t)
	a := join(t, hub, "a")

	r := rtc.Transact(a, func() error {
		rtc.SetContent(a, content.HTML("<p>x</p>"))
		return rtc.InsertContent(a, content.HTML("<p>y</p>"), nil).Err
	})
	if !r.IsOK() {
		t.Fatalf("Transact() = %+v", r)
	}
	rtc.Undo(a)
	if got := html(t, a); got != "" {
		t.Errorf("after undo = %q", got)
	}
	if has, _ := rtc.HasUndo(a).Unwrap(); has {
		t.Error("transaction recorded more than one level")
	}

	boom := errors.New("boom")
	r = rtc.Transact(a, func() error {
		rtc.SetContent(a, content.HTML("<p>half</p>"))
		return boom
	})
	if !errors.Is(r.Err, boom) {
		t.Errorf("Transact() = %+v", r)
	}
	if got := html(t, a); got != "" {
		t.Errorf("failed transaction left %q", got)
	}
}

func TestHubUndoEmpty(t *testing.T) {
	hub := openHub(t)
	a := join(t, hub, "a")

	if r := rtc.Undo(a); !errors.Is(r.Err, undo.ErrNothingToUndo) {
		t.Errorf("Undo() = %+v", r)
	}
	if r := rtc.Redo(a); !errors.Is(r.Err, undo.ErrNothingToRedo) {
		t.Errorf("Redo() = %+v", r)
	}
}

func TestHubClientClose(t *testing.T) {
	hub := openHub(t)
	p := hub.Plugin()
	host := newTestHost("a", p)
	if _, err := rtc.Setup(context.Background(), host); err != nil {
		t.Fatal(err)
	}
	c := host.client(t)

	if err := p.Close(); err != nil {
		t.Fatal(err)
	}
	if _, ok := <-c.Updates(); ok {
		t.Error("Updates() still open after Close")
	}
	if err := c.SetContent(content.NewFragment()); !errors.Is(err, ErrClientClosed) {
		t.Errorf("SetContent() error = %v", err)
	}
	if _, err := c.HasUndo(); !errors.Is(err, ErrClientClosed) {
		t.Errorf("HasUndo() error = %v", err)
	}
	if len(hub.Clients()) != 0 {
		t.Errorf("Clients() = %v", hub.Clients())
	}
	if err := c.Close(); err != nil {
		t.Errorf("second Close() = %v", err)
	}
}

func TestHubHandler(t *testing.T) {
	hub := openHub(t, WithDocument("<p>start</p>"))
	a := join(t, hub, "a")

	srv := httptest.NewServer(hub.Handler())
	defer srv.Close()

	ws, err := websocket.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), "", srv.URL)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer ws.Close()
	ws.SetDeadline(time.Now().Add(2 * time.Second))

	var snap Snapshot
	if err := websocket.JSON.Receive(ws, &snap); err != nil {
		t.Fatal(err)
	}
	if snap.Type != "Snapshot" || snap.HTML != "<p>start</p>" {
		t.Errorf("snapshot = %+v", snap)
	}

	rtc.SetContent(a, content.HTML("<p>next</p>"))

	var ch Change
	if err := websocket.JSON.Receive(ws, &ch); err != nil {
		t.Fatal(err)
	}
	if ch.Op != OpSet || ch.HTML != "<p>next</p>" || ch.ClientID != a.client(t).ID() {
		t.Errorf("change = %+v", ch)
	}
}
