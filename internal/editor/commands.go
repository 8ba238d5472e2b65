package editor

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/dshills/inkwell/internal/content"
	"github.com/dshills/inkwell/internal/format"
	"github.com/dshills/inkwell/internal/keyboard"
	"github.com/dshills/inkwell/internal/notify"
)

// CommandFunc executes an editor command with its arguments.
type CommandFunc func(args map[string]any) error

type command struct {
	name string
	fn   CommandFunc
}

// Commands manages command registration by case-insensitive name.
type Commands struct {
	mu       sync.RWMutex
	commands map[string]command // lowercased name -> command
}

// NewCommands creates an empty command registry.
func NewCommands() *Commands {
	return &Commands{
		commands: make(map[string]command),
	}
}

// Register adds a command, replacing any command with the same name.
func (c *Commands) Register(name string, fn CommandFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.commands[strings.ToLower(name)] = command{name: name, fn: fn}
}

// Unregister removes a command.
func (c *Commands) Unregister(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.commands, strings.ToLower(name))
}

// Get returns the command registered under name.
func (c *Commands) Get(name string) (CommandFunc, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	cmd, ok := c.commands[strings.ToLower(name)]
	return cmd.fn, ok
}

// Has returns true if a command is registered under name.
func (c *Commands) Has(name string) bool {
	_, ok := c.Get(name)
	return ok
}

// List returns all registered command names as registered, sorted.
func (c *Commands) List() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	names := make([]string, 0, len(c.commands))
	for _, cmd := range c.commands {
		names = append(names, cmd.name)
	}
	sort.Strings(names)
	return names
}

// Count returns the number of registered commands.
func (c *Commands) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.commands)
}

// Commands returns the command registry.
func (e *Editor) Commands() *Commands {
	return e.commands
}

// AddCommand registers an editor command.
func (e *Editor) AddCommand(name string, fn func(map[string]any) error) {
	e.commands.Register(name, fn)
}

// QueryCommandSupported reports whether a command is registered.
func (e *Editor) QueryCommandSupported(name string) bool {
	return e.commands.Has(name)
}

// ExecCommand runs a registered command.
func (e *Editor) ExecCommand(name string, args map[string]any) error {
	fn, ok := e.commands.Get(name)
	if !ok {
		return fmt.Errorf("%w: %q", ErrCommandNotFound, name)
	}
	if err := fn(args); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	e.notifier.Publish(notify.PathCommand, name, e.id)
	return nil
}

// HandleKey runs the command bound to a key chord such as "Ctrl+B". It
// reports whether a binding matched.
func (e *Editor) HandleKey(keys string) (bool, error) {
	chord, err := keyboard.ParseChord(keys)
	if err != nil {
		return false, err
	}
	m, ok := e.keymaps.Lookup(chord)
	if !ok {
		return false, nil
	}
	e.logger.Debug("key %s -> %s (%s)", chord, m.Binding.Command, m.Keymap)
	return true, e.ExecCommand(m.Binding.Command, m.Binding.Args)
}

func (e *Editor) registerDefaultCommands() {
	e.AddCommand("Undo", func(map[string]any) error {
		_, err := e.Undo()
		return err
	})
	e.AddCommand("Redo", func(map[string]any) error {
		_, err := e.Redo()
		return err
	})

	for cmd, name := range map[string]string{
		"Bold":          "bold",
		"Italic":        "italic",
		"Underline":     "underline",
		"Strikethrough": "strikethrough",
	} {
		name := name
		e.AddCommand(cmd, func(map[string]any) error {
			return e.ToggleFormat(name, nil)
		})
	}

	e.AddCommand("mceToggleFormat", func(args map[string]any) error {
		name, vars, err := formatArgs(args)
		if err != nil {
			return err
		}
		return e.ToggleFormat(name, vars)
	})
	e.AddCommand("mceApplyFormat", func(args map[string]any) error {
		name, vars, err := formatArgs(args)
		if err != nil {
			return err
		}
		return e.ApplyFormat(name, vars)
	})
	e.AddCommand("mceRemoveFormat", func(args map[string]any) error {
		name, vars, err := formatArgs(args)
		if err != nil {
			return err
		}
		return e.RemoveFormat(name, vars)
	})

	e.AddCommand("mceInsertContent", func(args map[string]any) error {
		c, err := stringArg(args, "content")
		if err != nil {
			return err
		}
		return e.InsertContent(content.HTML(c))
	})
	e.AddCommand("mceSetContent", func(args map[string]any) error {
		c, err := stringArg(args, "content")
		if err != nil {
			return err
		}
		return e.SetContent(content.HTML(c))
	})

	e.AddCommand("SelectAll", func(map[string]any) error {
		e.mu.RLock()
		n := e.root.ChildCount()
		e.mu.RUnlock()
		e.Select(content.Bookmark{Start: 0, End: n})
		return nil
	})
}

// formatArgs reads "name" and either a "vars" map or a "value" string.
func formatArgs(args map[string]any) (string, format.Vars, error) {
	name, err := stringArg(args, "name")
	if err != nil {
		return "", nil, err
	}

	vars := format.Vars{}
	switch v := args["vars"].(type) {
	case nil:
	case format.Vars:
		vars = v
	case map[string]string:
		vars = v
	case map[string]any:
		for k, val := range v {
			vars[k] = fmt.Sprint(val)
		}
	default:
		return "", nil, fmt.Errorf("%w: vars is %T", ErrInvalidArgument, v)
	}
	if value, ok := args["value"].(string); ok {
		vars["value"] = value
	}
	return name, vars, nil
}

func stringArg(args map[string]any, key string) (string, error) {
	v, ok := args[key]
	if !ok {
		return "", fmt.Errorf("%w: missing %q", ErrInvalidArgument, key)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%w: %q is %T, want string", ErrInvalidArgument, key, v)
	}
	return s, nil
}
