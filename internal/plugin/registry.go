package plugin

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dshills/inkwell/internal/logging"
)

// Plugin is anything registered with the editor under a name.
type Plugin interface {
	Name() string
}

// Closer is implemented by plugins that hold resources.
type Closer interface {
	Close() error
}

// InitFunc initializes one plugin. It is supplied by the registry owner.
type InitFunc func(ctx context.Context, p Plugin) error

// EventHandler handles registry events.
// Handlers must be non-blocking and should not call back into the Registry
// to avoid deadlocks. Panics in handlers are recovered.
type EventHandler func(event Event)

// Event represents a registry event.
type Event struct {
	Type   EventType
	Plugin string
	Error  error
}

// EventType is the type of registry event.
type EventType int

const (
	// EventRegistered is emitted when a plugin is registered.
	EventRegistered EventType = iota
	// EventUnregistered is emitted when a plugin is removed.
	EventUnregistered
	// EventInitialized is emitted when a plugin initialized successfully.
	EventInitialized
	// EventClosed is emitted when a plugin is closed.
	EventClosed
	// EventError is emitted when a plugin fails to initialize or close.
	EventError
)

// String returns a string representation of the event type.
func (t EventType) String() string {
	switch t {
	case EventRegistered:
		return "registered"
	case EventUnregistered:
		return "unregistered"
	case EventInitialized:
		return "initialized"
	case EventClosed:
		return "closed"
	case EventError:
		return "error"
	default:
		return "unknown"
	}
}

type entry struct {
	plugin Plugin
	state  State
	err    error
}

// Registry holds the plugins of one editor.
type Registry struct {
	mu sync.RWMutex

	// Registered plugins by name
	entries map[string]*entry

	// Registration order (for deterministic iteration)
	order []string

	// Event handlers (protected by mu)
	eventHandlers []EventHandler

	initialized bool
	closed      bool

	logger *logging.Logger
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the registry logger.
func WithLogger(l *logging.Logger) Option {
	return func(r *Registry) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		entries: make(map[string]*entry),
		order:   make([]string, 0),
		logger:  logging.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds a plugin under its name.
func (r *Registry) Register(p Plugin) error {
	if p == nil || p.Name() == "" {
		return ErrInvalidPlugin
	}
	name := p.Name()

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return ErrClosed
	}
	if _, exists := r.entries[name]; exists {
		r.mu.Unlock()
		return fmt.Errorf("plugin %q: %w", name, ErrAlreadyRegistered)
	}
	r.entries[name] = &entry{plugin: p, state: StateRegistered}
	r.order = append(r.order, name)
	r.mu.Unlock()

	r.logger.Debug("registered plugin %s", name)
	r.emitEvent(Event{Type: EventRegistered, Plugin: name})
	return nil
}

// Unregister removes a plugin. It does not close it.
func (r *Registry) Unregister(name string) error {
	r.mu.Lock()
	if _, exists := r.entries[name]; !exists {
		r.mu.Unlock()
		return fmt.Errorf("plugin %q: %w", name, ErrPluginNotFound)
	}
	delete(r.entries, name)
	r.removeFromOrder(name)
	r.mu.Unlock()

	r.emitEvent(Event{Type: EventUnregistered, Plugin: name})
	return nil
}

// Get returns a plugin by name.
func (r *Registry) Get(name string) (Plugin, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, exists := r.entries[name]
	if !exists {
		return nil, false
	}
	return e.plugin, true
}

// Lookup returns a plugin by name as an untyped value.
func (r *Registry) Lookup(name string) (any, bool) {
	p, ok := r.Get(name)
	if !ok {
		return nil, false
	}
	return p, true
}

// Has reports whether a plugin is registered under name.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, exists := r.entries[name]
	return exists
}

// List returns all plugins in registration order.
func (r *Registry) List() []Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Plugin, 0, len(r.order))
	for _, name := range r.order {
		if e, exists := r.entries[name]; exists {
			result = append(result, e.plugin)
		}
	}
	return result
}

// Names returns plugin names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}

// ListByState returns plugins in a specific state.
func (r *Registry) ListByState(state State) []Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Plugin, 0)
	for _, name := range r.order {
		if e, exists := r.entries[name]; exists && e.state == state {
			result = append(result, e.plugin)
		}
	}
	return result
}

// State returns the lifecycle state of a plugin.
func (r *Registry) State(name string) (State, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, exists := r.entries[name]
	if !exists {
		return 0, false
	}
	return e.state, true
}

// Init initializes every registered plugin in registration order by calling
// fn. A failing plugin moves to StateError and the others continue. Init stops
// early when ctx is done. It may only run once.
func (r *Registry) Init(ctx context.Context, fn InitFunc) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return ErrClosed
	}
	if r.initialized {
		r.mu.Unlock()
		return ErrAlreadyInitialized
	}
	r.initialized = true
	names := make([]string, len(r.order))
	copy(names, r.order)
	r.mu.Unlock()

	var initErrors []error
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			initErrors = append(initErrors, err)
			break
		}
		if err := r.initOne(ctx, name, fn); err != nil {
			initErrors = append(initErrors, fmt.Errorf("%s: %w", name, err))
		}
	}

	if len(initErrors) > 0 {
		return fmt.Errorf("failed to initialize %d plugins: %w", len(initErrors), errors.Join(initErrors...))
	}
	return nil
}

func (r *Registry) initOne(ctx context.Context, name string, fn InitFunc) (err error) {
	r.mu.Lock()
	e, exists := r.entries[name]
	if !exists {
		r.mu.Unlock()
		return nil
	}
	e.state = StateInitializing
	p := e.plugin
	r.mu.Unlock()

	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("init panic: %v", rec)
		}

		r.mu.Lock()
		if err != nil {
			e.state = StateError
			e.err = err
		} else {
			e.state = StateActive
		}
		r.mu.Unlock()

		if err != nil {
			r.logger.WithField("plugin", name).Error("init failed: %v", err)
			r.emitEvent(Event{Type: EventError, Plugin: name, Error: err})
		} else {
			r.emitEvent(Event{Type: EventInitialized, Plugin: name})
		}
	}()

	if fn == nil {
		return nil
	}
	return fn(ctx, p)
}

// Close closes every plugin implementing Closer in reverse registration
// order. Further registrations fail with ErrClosed.
func (r *Registry) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	names := make([]string, len(r.order))
	for i, name := range r.order {
		names[len(r.order)-1-i] = name
	}
	r.mu.Unlock()

	var closeErrors []error
	for _, name := range names {
		r.mu.Lock()
		e, exists := r.entries[name]
		if !exists {
			r.mu.Unlock()
			continue
		}
		p := e.plugin
		e.state = StateClosed
		r.mu.Unlock()

		c, ok := p.(Closer)
		if !ok {
			continue
		}
		if err := c.Close(); err != nil {
			closeErrors = append(closeErrors, fmt.Errorf("%s: %w", name, err))
			r.emitEvent(Event{Type: EventError, Plugin: name, Error: err})
			continue
		}
		r.emitEvent(Event{Type: EventClosed, Plugin: name})
	}

	if len(closeErrors) > 0 {
		return fmt.Errorf("failed to close %d plugins: %w", len(closeErrors), errors.Join(closeErrors...))
	}
	return nil
}

// Subscribe adds an event handler.
// Returns an unsubscribe function to remove the handler.
func (r *Registry) Subscribe(handler EventHandler) func() {
	if handler == nil {
		return func() {}
	}

	r.mu.Lock()
	r.eventHandlers = append(r.eventHandlers, handler)
	index := len(r.eventHandlers) - 1
	r.mu.Unlock()

	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		// Set to nil instead of removing to avoid index shifting issues
		if index < len(r.eventHandlers) {
			r.eventHandlers[index] = nil
		}
	}
}

// Count returns the number of registered plugins.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Errors returns all plugins in error state with their errors.
func (r *Registry) Errors() map[string]error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	errs := make(map[string]error)
	for name, e := range r.entries {
		if e.state == StateError && e.err != nil {
			errs[name] = e.err
		}
	}
	return errs
}

// emitEvent sends an event to all handlers.
// Handlers are called outside any locks and panics are recovered.
func (r *Registry) emitEvent(event Event) {
	r.mu.RLock()
	handlers := make([]EventHandler, len(r.eventHandlers))
	copy(handlers, r.eventHandlers)
	r.mu.RUnlock()

	for _, handler := range handlers {
		if handler == nil {
			continue
		}
		func() {
			defer func() {
				recover() // Ignore panics from handlers
			}()
			handler(event)
		}()
	}
}

// removeFromOrder removes a name from the order slice.
// Must be called with mu held.
func (r *Registry) removeFromOrder(name string) {
	for i, n := range r.order {
		if n == name {
			r.order = append(r.order[:i], r.order[i+1:]...)
			return
		}
	}
}
