package rtc

import (
	"context"
	"fmt"
	"sync"

	"github.com/dshills/inkwell/internal/logging"
	"github.com/dshills/inkwell/internal/notify"
)

// State is the lifecycle state of a Cell.
type State int

// Cell states.
const (
	// StateUninitialized - Setup has not been called.
	StateUninitialized State = iota

	// StateResolving - Setup is looking for or waiting on a plugin.
	StateResolving

	// StatePlainActive - The local adaptor is installed.
	StatePlainActive

	// StateCollabActive - The collaborative adaptor is installed.
	StateCollabActive

	// StateFailed - The collaboration plugin failed to set up.
	StateFailed
)

// String returns a string representation of the state.
func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateResolving:
		return "resolving"
	case StatePlainActive:
		return "plain"
	case StateCollabActive:
		return "collaborative"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal returns true for states that never transition.
func (s State) Terminal() bool {
	return s == StatePlainActive || s == StateCollabActive || s == StateFailed
}

var transitions = map[State][]State{
	StateUninitialized: {StateResolving},
	StateResolving:     {StatePlainActive, StateCollabActive, StateFailed},
}

func canTransition(from, to State) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Cell holds the adaptor of one editor. It is written once by Setup and read
// by every facade operation afterwards.
type Cell struct {
	mu      sync.RWMutex
	state   State
	adaptor Adaptor
	err     error
	done    chan struct{}

	notifier *notify.Notifier
	logger   *logging.Logger
}

// CellOption configures a Cell.
type CellOption func(*Cell)

// WithNotifier publishes the mode signal on notify.PathMode.
func WithNotifier(n *notify.Notifier) CellOption {
	return func(c *Cell) {
		c.notifier = n
	}
}

// WithLogger sets the logger used for state changes.
func WithLogger(l *logging.Logger) CellOption {
	return func(c *Cell) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewCell creates an uninitialized cell.
func NewCell(opts ...CellOption) *Cell {
	c := &Cell{
		done:   make(chan struct{}),
		logger: logging.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State returns the current state.
func (c *Cell) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Adaptor returns the installed adaptor. Before setup resolves it returns
// ErrNotReady; after a failed setup it returns an error wrapping
// ErrSetupFailed and the cause.
func (c *Cell) Adaptor() (Adaptor, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	switch c.state {
	case StatePlainActive, StateCollabActive:
		return c.adaptor, nil
	case StateFailed:
		return nil, c.err
	default:
		return nil, ErrNotReady
	}
}

// Collaborative reports whether the collaborative adaptor is installed.
func (c *Cell) Collaborative() bool {
	return c.State() == StateCollabActive
}

// Err returns the setup error of a failed cell.
func (c *Cell) Err() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.err
}

// Done returns a channel closed when the cell reaches a terminal state.
func (c *Cell) Done() <-chan struct{} {
	return c.done
}

// Wait blocks until setup resolves or ctx is done. It returns the mode.
func (c *Cell) Wait(ctx context.Context) (bool, error) {
	select {
	case <-c.done:
	case <-ctx.Done():
		return false, ctx.Err()
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.state == StateFailed {
		return false, c.err
	}
	return c.state == StateCollabActive, nil
}

// begin moves the cell into StateResolving.
func (c *Cell) begin() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !canTransition(c.state, StateResolving) {
		return fmt.Errorf("%w: %w", ErrAlreadySetup, &StateError{From: c.state, To: StateResolving})
	}
	c.state = StateResolving
	return nil
}

// install stores the adaptor and publishes the mode signal.
func (c *Cell) install(a Adaptor) error {
	to := StatePlainActive
	if a.Collaborative() {
		to = StateCollabActive
	}

	c.mu.Lock()
	if !canTransition(c.state, to) {
		from := c.state
		c.mu.Unlock()
		return &StateError{From: from, To: to}
	}
	c.state = to
	c.adaptor = a
	close(c.done)
	c.mu.Unlock()

	c.logger.Info("adaptor installed: %s", to)
	if c.notifier != nil {
		c.notifier.Publish(notify.PathMode, a.Collaborative(), "rtc")
	}
	return nil
}

// fail records a setup error.
func (c *Cell) fail(cause error) error {
	c.mu.Lock()
	if !canTransition(c.state, StateFailed) {
		from := c.state
		c.mu.Unlock()
		return &StateError{From: from, To: StateFailed}
	}
	c.state = StateFailed
	c.err = fmt.Errorf("%w: %w", ErrSetupFailed, cause)
	close(c.done)
	c.mu.Unlock()

	c.logger.Error("setup failed: %v", cause)
	return nil
}
