package rtc

import (
	"context"
	"fmt"
)

// Setup resolves the host's cell exactly once. It returns true when a
// collaboration runtime was installed and false when the local adaptor was.
// A failing plugin leaves the cell in StateFailed and its error is returned;
// there is no fallback to the local adaptor.
func Setup(ctx context.Context, h Host) (bool, error) {
	cell := h.RTC()
	if err := cell.begin(); err != nil {
		return false, err
	}

	p, ok := h.Plugin(PluginName)
	if !ok {
		if err := cell.install(NewPlain(h.Local())); err != nil {
			return false, err
		}
		return false, nil
	}

	rt, err := setupPlugin(ctx, h, p)
	if err != nil {
		cell.fail(err)
		return false, cell.Err()
	}

	if err := cell.install(NewCollab(rt)); err != nil {
		return false, err
	}
	return true, nil
}

func setupPlugin(ctx context.Context, h Host, p any) (rt Runtime, err error) {
	cp, ok := p.(CollabPlugin)
	if !ok {
		return nil, fmt.Errorf("%w: plugin %q (%T) has no Setup", ErrInvalidRuntime, PluginName, p)
	}

	defer func() {
		if r := recover(); r != nil {
			rt = nil
			err = fmt.Errorf("plugin %q setup panic: %v", PluginName, r)
		}
	}()

	rt, err = cp.Setup(ctx, h)
	if err != nil {
		return nil, fmt.Errorf("plugin %q: %w", PluginName, err)
	}
	if err := Validate(PluginName, rt); err != nil {
		return nil, err
	}
	return rt, nil
}

// Pending is an in-flight Setup started by Start.
type Pending struct {
	done chan struct{}
	mode bool
	err  error
}

// Start runs Setup in a goroutine.
func Start(ctx context.Context, h Host) *Pending {
	p := &Pending{done: make(chan struct{})}
	go func() {
		defer close(p.done)
		p.mode, p.err = Setup(ctx, h)
	}()
	return p
}

// Done returns a channel closed when setup resolves.
func (p *Pending) Done() <-chan struct{} {
	return p.done
}

// Wait blocks until setup resolves or ctx is done.
func (p *Pending) Wait(ctx context.Context) (bool, error) {
	select {
	case <-p.done:
		return p.mode, p.err
	case <-ctx.Done():
		return false, ctx.Err()
	}
}
