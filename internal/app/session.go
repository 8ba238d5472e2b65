package app

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/dshills/inkwell/internal/content"
)

// keyPrefix marks a step that presses a key chord instead of naming a command.
const keyPrefix = "key:"

// Step is one scripted editor action: a command with arguments, or a key chord.
type Step struct {
	Command string
	Args    map[string]any
	Key     string
}

func (s Step) String() string {
	if s.Key != "" {
		return keyPrefix + s.Key
	}
	return s.Command
}

// ParseStep parses "key:Ctrl+B" or "Command name=value ...". Integer
// argument values become ints.
func ParseStep(s string) (Step, error) {
	s = strings.TrimSpace(s)
	if key, ok := strings.CutPrefix(s, keyPrefix); ok {
		if key == "" {
			return Step{}, fmt.Errorf("empty key step")
		}
		return Step{Key: key}, nil
	}

	fields := strings.Fields(s)
	if len(fields) == 0 {
		return Step{}, fmt.Errorf("empty step")
	}
	step := Step{Command: fields[0]}
	for _, f := range fields[1:] {
		k, v, ok := strings.Cut(f, "=")
		if !ok || k == "" {
			return Step{}, fmt.Errorf("step %q: argument %q is not name=value", s, f)
		}
		if step.Args == nil {
			step.Args = make(map[string]any)
		}
		if n, err := strconv.Atoi(v); err == nil {
			step.Args[k] = n
		} else {
			step.Args[k] = v
		}
	}
	return step, nil
}

// ParseSteps parses each entry with ParseStep.
func ParseSteps(entries []string) ([]Step, error) {
	steps := make([]Step, 0, len(entries))
	for _, e := range entries {
		step, err := ParseStep(e)
		if err != nil {
			return nil, err
		}
		steps = append(steps, step)
	}
	return steps, nil
}

// Run executes steps in order and stops at the first failure.
func (app *Application) Run(steps []Step) error {
	if !app.IsRunning() {
		return ErrNotRunning
	}
	for _, step := range steps {
		if err := app.runStep(step); err != nil {
			return NewOperationError("exec", step.String(), err)
		}
	}
	return nil
}

func (app *Application) runStep(step Step) error {
	if step.Key != "" {
		handled, err := app.editor.HandleKey(step.Key)
		if err != nil {
			return err
		}
		if !handled {
			return ErrUnhandledKey
		}
		return nil
	}
	return app.editor.ExecCommand(step.Command, step.Args)
}

// LoadDocument replaces the document with the contents of r.
func (app *Application) LoadDocument(r io.Reader, f content.Format) error {
	if !app.IsRunning() {
		return ErrNotRunning
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return NewOperationError("load", string(f), err)
	}
	if err := app.editor.SetContentAs(string(data), f); err != nil {
		return NewOperationError("load", string(f), err)
	}
	return nil
}

// WriteDocument writes the document to w in format f.
func (app *Application) WriteDocument(w io.Writer, f content.Format) error {
	if !app.IsRunning() {
		return ErrNotRunning
	}
	s, err := app.editor.GetContent(f)
	if err != nil {
		return NewOperationError("write", string(f), err)
	}
	if _, err := io.WriteString(w, s); err != nil {
		return NewOperationError("write", string(f), err)
	}
	return nil
}
