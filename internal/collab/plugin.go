package collab

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dshills/inkwell/internal/rtc"
)

// Plugin attaches editors to a hub. It is registered under the rtc plugin
// name.
type Plugin struct {
	hub *Hub

	mu      sync.Mutex
	clients []*Client
}

// Plugin returns an rtc plugin backed by h. Setup blocks until the hub is
// open.
func (h *Hub) Plugin() *Plugin {
	return &Plugin{hub: h}
}

// Name returns the rtc plugin name.
func (p *Plugin) Name() string {
	return rtc.PluginName
}

// Setup waits for the hub to open and joins it on behalf of the editor.
func (p *Plugin) Setup(ctx context.Context, host rtc.Host) (rtc.Runtime, error) {
	if err := p.hub.WaitOpen(ctx); err != nil {
		return nil, fmt.Errorf("wait for hub: %w", err)
	}
	c, err := p.hub.Join(host.ID())
	if err != nil {
		return nil, err
	}
	c.parser = host.Parser()
	c.serializer = host.Serializer()

	p.mu.Lock()
	p.clients = append(p.clients, c)
	p.mu.Unlock()
	return c, nil
}

// Close detaches every client this plugin created. The hub stays open.
func (p *Plugin) Close() error {
	p.mu.Lock()
	clients := p.clients
	p.clients = nil
	p.mu.Unlock()

	var errs []error
	for _, c := range clients {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

var _ rtc.CollabPlugin = (*Plugin)(nil)
