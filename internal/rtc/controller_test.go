package rtc

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/dshills/inkwell/internal/notify"
)

func TestSetupWithoutPlugin(t *testing.T) {
	h := newTestHost(nil)

	var modes []any
	h.notifier.SubscribePath(notify.PathMode, func(c notify.Change) {
		modes = append(modes, c.Value)
	})

	collab, err := Setup(context.Background(), h)
	if err != nil {
		t.Fatalf("Setup() error = %v", err)
	}
	if collab {
		t.Error("Setup() = true, want false without plugin")
	}
	if got := h.cell.State(); got != StatePlainActive {
		t.Errorf("State() = %v, want %v", got, StatePlainActive)
	}
	a, err := h.cell.Adaptor()
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := a.(*Plain); !ok {
		t.Errorf("adaptor = %T, want *Plain", a)
	}
	if len(modes) != 1 || modes[0] != false {
		t.Errorf("mode signals = %v, want [false]", modes)
	}
}

func TestSetupWithPlugin(t *testing.T) {
	rt := &testRuntime{caps: []Capability{CapUndo}}
	h := newTestHost(map[string]any{PluginName: &testPlugin{rt: rt}})

	var modes []any
	h.notifier.SubscribePath(notify.PathMode, func(c notify.Change) {
		modes = append(modes, c.Value)
	})

	collab, err := Setup(context.Background(), h)
	if err != nil {
		t.Fatalf("Setup() error = %v", err)
	}
	if !collab {
		t.Error("Setup() = false, want true with plugin")
	}
	if !h.cell.Collaborative() || h.cell.State() != StateCollabActive {
		t.Errorf("State() = %v", h.cell.State())
	}
	if len(modes) != 1 || modes[0] != true {
		t.Errorf("mode signals = %v, want [true]", modes)
	}
}

func TestSetupTwice(t *testing.T) {
	h := setupPlain(t)

	_, err := Setup(context.Background(), h)
	if !errors.Is(err, ErrAlreadySetup) {
		t.Fatalf("second Setup() error = %v, want ErrAlreadySetup", err)
	}
	var se *StateError
	if !errors.As(err, &se) {
		t.Fatalf("error %v should carry a StateError", err)
	}
	if se.From != StatePlainActive || se.To != StateResolving {
		t.Errorf("StateError = %v", se)
	}
	if h.cell.State() != StatePlainActive {
		t.Error("second setup changed the state")
	}
}

func TestSetupFailures(t *testing.T) {
	tests := []struct {
		name   string
		plugin any
		check  func(t *testing.T, err error)
	}{
		{
			name:   "plugin error",
			plugin: &testPlugin{err: errPlugin},
			check: func(t *testing.T, err error) {
				if !errors.Is(err, errPlugin) {
					t.Errorf("error %v should wrap the plugin error", err)
				}
			},
		},
		{
			name:   "shape mismatch",
			plugin: &testPlugin{rt: undoOnly{}},
			check: func(t *testing.T, err error) {
				var se *ShapeError
				if !errors.As(err, &se) {
					t.Fatalf("error %v should be a ShapeError", err)
				}
				if len(se.Missing) != 1 || se.Missing[0] != CapUndo {
					t.Errorf("Missing = %v", se.Missing)
				}
				if !errors.Is(err, ErrInvalidRuntime) {
					t.Error("ShapeError should match ErrInvalidRuntime")
				}
			},
		},
		{
			name:   "nil runtime",
			plugin: &testPlugin{},
			check: func(t *testing.T, err error) {
				if !errors.Is(err, ErrInvalidRuntime) {
					t.Errorf("error = %v", err)
				}
			},
		},
		{
			name:   "not a collaboration plugin",
			plugin: "just a string",
			check: func(t *testing.T, err error) {
				if !errors.Is(err, ErrInvalidRuntime) {
					t.Errorf("error = %v", err)
				}
			},
		},
		{
			name:   "panic",
			plugin: &testPlugin{panics: true},
			check: func(t *testing.T, err error) {
				if !strings.Contains(err.Error(), "panic") {
					t.Errorf("error = %v", err)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestHost(map[string]any{PluginName: tt.plugin})

			collab, err := Setup(context.Background(), h)
			if err == nil {
				t.Fatal("Setup() should fail")
			}
			if collab {
				t.Error("failed Setup() reported collaborative mode")
			}
			if !errors.Is(err, ErrSetupFailed) {
				t.Errorf("error %v should match ErrSetupFailed", err)
			}
			tt.check(t, err)

			if h.cell.State() != StateFailed {
				t.Errorf("State() = %v, want failed", h.cell.State())
			}
			if _, err := h.cell.Adaptor(); !errors.Is(err, ErrSetupFailed) {
				t.Errorf("Adaptor() error = %v", err)
			}
			// No silent fallback to the local adaptor.
			if r := Undo(h); r.Status != StatusFailed || !errors.Is(r.Err, ErrSetupFailed) {
				t.Errorf("Undo() after failed setup = %+v", r)
			}
		})
	}
}

func TestStartAndWait(t *testing.T) {
	release := make(chan struct{})
	rt := &testRuntime{caps: []Capability{CapUndo}}
	h := newTestHost(map[string]any{PluginName: &testPlugin{rt: rt, release: release}})

	pending := Start(context.Background(), h)

	deadline := time.After(time.Second)
	for h.cell.State() != StateResolving {
		select {
		case <-deadline:
			t.Fatal("cell never reached resolving")
		default:
			time.Sleep(time.Millisecond)
		}
	}

	if r := Undo(h); !errors.Is(r.Err, ErrNotReady) {
		t.Errorf("Undo() while resolving = %+v, want ErrNotReady", r)
	}

	close(release)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	collab, err := pending.Wait(ctx)
	if err != nil || !collab {
		t.Fatalf("Wait() = %v, %v", collab, err)
	}
	if collab, err := h.cell.Wait(ctx); err != nil || !collab {
		t.Errorf("cell.Wait() = %v, %v", collab, err)
	}
	if r := Undo(h); !r.IsOK() {
		t.Errorf("Undo() after setup = %+v", r)
	}
}

func TestSetupContextCancel(t *testing.T) {
	h := newTestHost(map[string]any{PluginName: &testPlugin{release: make(chan struct{})}})

	ctx, cancel := context.WithCancel(context.Background())
	pending := Start(ctx, h)
	cancel()

	collab, err := pending.Wait(context.Background())
	if collab || !errors.Is(err, context.Canceled) {
		t.Errorf("Wait() = %v, %v; want context.Canceled", collab, err)
	}
	if h.cell.State() != StateFailed {
		t.Errorf("State() = %v, want failed", h.cell.State())
	}
}

func TestCellWaitRespectsContext(t *testing.T) {
	c := NewCell()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := c.Wait(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Wait() error = %v", err)
	}
}

func TestCellTransitions(t *testing.T) {
	c := NewCell()

	if err := c.install(&Plain{}); err == nil {
		t.Error("install before begin should fail")
	}
	if err := c.fail(errPlugin); err == nil {
		t.Error("fail before begin should fail")
	}
	if err := c.begin(); err != nil {
		t.Fatal(err)
	}
	if err := c.install(&Plain{}); err != nil {
		t.Fatal(err)
	}

	select {
	case <-c.Done():
	default:
		t.Error("Done() should be closed after install")
	}

	// Terminal states never transition.
	if err := c.install(NewCollab(&testRuntime{})); err == nil {
		t.Error("second install should fail")
	}
	if err := c.fail(errPlugin); err == nil {
		t.Error("fail after install should fail")
	}
	if c.State() != StatePlainActive {
		t.Errorf("State() = %v", c.State())
	}
}

func TestStateString(t *testing.T) {
	tests := []struct {
		state    State
		want     string
		terminal bool
	}{
		{StateUninitialized, "uninitialized", false},
		{StateResolving, "resolving", false},
		{StatePlainActive, "plain", true},
		{StateCollabActive, "collaborative", true},
		{StateFailed, "failed", true},
		{State(99), "unknown", false},
	}
	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("State(%d).String() = %q, want %q", tt.state, got, tt.want)
		}
		if got := tt.state.Terminal(); got != tt.terminal {
			t.Errorf("State(%d).Terminal() = %v", tt.state, got)
		}
	}
}
