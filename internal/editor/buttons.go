package editor

import (
	"fmt"
	"sync"
)

// Button is a toolbar button definition.
type Button struct {
	Name    string
	Text    string
	Tooltip string
	Icon    string

	// Command runs when the button is pressed.
	Command string
	Args    map[string]any
}

// Buttons holds toolbar buttons in registration order.
type Buttons struct {
	mu      sync.RWMutex
	buttons map[string]Button
	order   []string
}

// NewButtons creates an empty button registry.
func NewButtons() *Buttons {
	return &Buttons{buttons: make(map[string]Button)}
}

// Add registers a button, replacing a button with the same name in place.
func (b *Buttons) Add(btn Button) error {
	if btn.Name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidButton)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if _, exists := b.buttons[btn.Name]; !exists {
		b.order = append(b.order, btn.Name)
	}
	b.buttons[btn.Name] = btn
	return nil
}

// Get returns a button by name.
func (b *Buttons) Get(name string) (Button, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	btn, ok := b.buttons[name]
	return btn, ok
}

// List returns the buttons in registration order.
func (b *Buttons) List() []Button {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]Button, 0, len(b.order))
	for _, name := range b.order {
		out = append(out, b.buttons[name])
	}
	return out
}

// AddButton registers a toolbar button.
func (e *Editor) AddButton(btn Button) error {
	return e.buttons.Add(btn)
}

// Buttons returns the registered toolbar buttons in registration order.
func (e *Editor) Buttons() []Button {
	return e.buttons.List()
}

// PressButton runs the command of a registered button.
func (e *Editor) PressButton(name string) error {
	btn, ok := e.buttons.Get(name)
	if !ok {
		return fmt.Errorf("%w: button %q", ErrCommandNotFound, name)
	}
	return e.ExecCommand(btn.Command, btn.Args)
}
