package collab

import (
	"sync/atomic"

	"github.com/dshills/inkwell/internal/content"
	"github.com/dshills/inkwell/internal/rtc"
)

// Client is one editor attached to a hub. It is the runtime the editor's
// collaborative adaptor forwards to.
type Client struct {
	id       string
	editorID string
	hub      *Hub
	updates  <-chan Change
	cancel   func()

	parser     *content.Parser
	serializer *content.Serializer

	closed atomic.Bool
}

// Capabilities lists what the hub implements. Formatting is absent.
var capabilities = []rtc.Capability{
	rtc.CapUndo,
	rtc.CapRedo,
	rtc.CapHasUndo,
	rtc.CapHasRedo,
	rtc.CapTransact,
	rtc.CapSetContent,
	rtc.CapGetContent,
	rtc.CapInsertContent,
	rtc.CapGetSelectedContent,
}

// ID returns the client id assigned by the hub.
func (c *Client) ID() string { return c.id }

// EditorID returns the id of the editor the client belongs to.
func (c *Client) EditorID() string { return c.editorID }

// Updates delivers every change committed to the hub, including this
// client's own. The channel is closed when the client leaves.
func (c *Client) Updates() <-chan Change { return c.updates }

// Close detaches the client from the hub.
func (c *Client) Close() error {
	if c.closed.Swap(true) {
		return nil
	}
	c.hub.leave(c)
	return nil
}

func (c *Client) check() error {
	if c.closed.Load() {
		return ErrClientClosed
	}
	return nil
}

func (c *Client) Capabilities() []rtc.Capability {
	out := make([]rtc.Capability, len(capabilities))
	copy(out, capabilities)
	return out
}

func (c *Client) Undo() error {
	if err := c.check(); err != nil {
		return err
	}
	return c.hub.step(c.id, OpUndo)
}

func (c *Client) Redo() error {
	if err := c.check(); err != nil {
		return err
	}
	return c.hub.step(c.id, OpRedo)
}

func (c *Client) HasUndo() (bool, error) {
	if err := c.check(); err != nil {
		return false, err
	}
	u, _ := c.hub.history()
	return u, nil
}

func (c *Client) HasRedo() (bool, error) {
	if err := c.check(); err != nil {
		return false, err
	}
	_, r := c.hub.history()
	return r, nil
}

func (c *Client) Transact(fn func() error) error {
	if err := c.check(); err != nil {
		return err
	}
	return c.hub.transact(c.id, fn)
}

func (c *Client) SetContent(tree *content.Node) error {
	if err := c.check(); err != nil {
		return err
	}
	if tree == nil {
		return content.ErrNilTree
	}
	html, err := c.serializer.Serialize(tree)
	if err != nil {
		return err
	}
	return c.hub.commit(c.id, OpSet, func(string) string { return html })
}

// InsertContent appends to the document. The selection of a hub client is
// always the whole document.
func (c *Client) InsertContent(tree *content.Node) error {
	if err := c.check(); err != nil {
		return err
	}
	if tree == nil {
		return content.ErrNilTree
	}
	html, err := c.serializer.Serialize(tree)
	if err != nil {
		return err
	}
	return c.hub.commit(c.id, OpInsert, func(doc string) string { return doc + html })
}

func (c *Client) GetContent() (*content.Node, error) {
	doc, _ := c.hub.Document()
	return c.parser.ParseHTML(doc, content.ParseOptions{IsRootContent: true})
}

func (c *Client) GetSelectedContent() (*content.Node, error) {
	return c.GetContent()
}

var (
	_ rtc.Undoer          = (*Client)(nil)
	_ rtc.Redoer          = (*Client)(nil)
	_ rtc.HistoryReporter = (*Client)(nil)
	_ rtc.Transactor      = (*Client)(nil)
	_ rtc.ContentSetter   = (*Client)(nil)
	_ rtc.ContentGetter   = (*Client)(nil)
	_ rtc.ContentInserter = (*Client)(nil)
	_ rtc.SelectionReader = (*Client)(nil)
)
