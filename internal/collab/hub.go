package collab

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/dshills/inkwell/internal/content"
	"github.com/dshills/inkwell/internal/logging"
	"github.com/dshills/inkwell/internal/undo"
)

// Op names the kind of change a client made.
type Op string

// Change operations.
const (
	OpSet      Op = "set"
	OpInsert   Op = "insert"
	OpUndo     Op = "undo"
	OpRedo     Op = "redo"
	OpRollback Op = "rollback"
)

// Change is broadcast after every committed edit.
type Change struct {
	Type     string `json:"type"`
	Version  int    `json:"version"`
	ClientID string `json:"clientId"`
	Op       Op     `json:"op"`
	HTML     string `json:"html"`
}

// DefaultBufferSize is the per-client change buffer.
const DefaultBufferSize = 64

// Hub is the shared document. All methods are safe for concurrent use.
type Hub struct {
	clients     map[chan<- Change]bool // set of active subscribers
	subscribe   chan chan<- Change
	unsubscribe chan chan<- Change
	broadcast   chan Change

	mu      sync.Mutex // protects the fields below
	doc     string
	version int
	undo    []string
	redo    []string
	batches map[string]*batch
	members map[string]*Client

	bufferSize int
	logger     *logging.Logger

	openOnce  sync.Once
	closeOnce sync.Once
	opened    chan struct{}
	done      chan struct{}
	stopped   chan struct{}
}

type batch struct {
	depth  int
	before string
}

// Option configures a Hub.
type Option func(*Hub)

// WithLogger sets the hub logger.
func WithLogger(l *logging.Logger) Option {
	return func(h *Hub) {
		if l != nil {
			h.logger = l
		}
	}
}

// WithBufferSize sets how many undelivered changes a subscriber may queue.
// Further changes are dropped for that subscriber.
func WithBufferSize(n int) Option {
	return func(h *Hub) {
		if n > 0 {
			h.bufferSize = n
		}
	}
}

// WithDocument sets the initial document.
func WithDocument(html string) Option {
	return func(h *Hub) {
		h.doc = html
	}
}

// NewHub creates a hub. It accepts clients once Open is called.
func NewHub(opts ...Option) *Hub {
	h := &Hub{
		clients:     make(map[chan<- Change]bool),
		subscribe:   make(chan chan<- Change),
		unsubscribe: make(chan chan<- Change),
		broadcast:   make(chan Change),
		batches:     make(map[string]*batch),
		members:     make(map[string]*Client),
		bufferSize:  DefaultBufferSize,
		logger:      logging.Nop(),
		opened:      make(chan struct{}),
		done:        make(chan struct{}),
		stopped:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Open starts delivering changes and releases editors waiting in setup.
func (h *Hub) Open() {
	h.openOnce.Do(func() {
		go h.run()
		close(h.opened)
		h.logger.Info("hub open")
	})
}

// Opened is closed once the hub is open.
func (h *Hub) Opened() <-chan struct{} {
	return h.opened
}

// WaitOpen blocks until the hub is open, closed, or ctx is done.
func (h *Hub) WaitOpen(ctx context.Context) error {
	select {
	case <-h.done:
		return ErrHubClosed
	default:
	}
	select {
	case <-h.opened:
		return nil
	case <-h.done:
		return ErrHubClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops the hub. Subscriber channels are closed.
func (h *Hub) Close() error {
	h.closeOnce.Do(func() {
		close(h.done)
		select {
		case <-h.opened:
			<-h.stopped
		default:
		}
		h.logger.Info("hub closed")
	})
	return nil
}

func (h *Hub) run() {
	defer close(h.stopped)
	for {
		select {
		case c := <-h.subscribe:
			h.clients[c] = true
		case c := <-h.unsubscribe:
			if h.clients[c] {
				delete(h.clients, c)
				close(c)
			}
		case msg := <-h.broadcast:
			for send := range h.clients {
				select {
				case send <- msg:
				default:
					h.logger.Warn("dropping change %d for slow subscriber", msg.Version)
				}
			}
		case <-h.done:
			for send := range h.clients {
				close(send)
			}
			h.clients = nil
			return
		}
	}
}

// Subscribe returns a channel receiving every change and a function that
// cancels the subscription. The hub must be open.
func (h *Hub) Subscribe() (<-chan Change, func(), error) {
	select {
	case <-h.opened:
	default:
		return nil, nil, ErrHubNotOpen
	}
	ch := make(chan Change, h.bufferSize)
	select {
	case h.subscribe <- ch:
	case <-h.done:
		return nil, nil, ErrHubClosed
	}
	var once sync.Once
	cancel := func() {
		once.Do(func() {
			select {
			case h.unsubscribe <- ch:
			case <-h.done:
			}
		})
	}
	return ch, cancel, nil
}

// Join attaches a client for the given editor. The hub must be open.
func (h *Hub) Join(editorID string) (*Client, error) {
	select {
	case <-h.done:
		return nil, ErrHubClosed
	case <-h.opened:
	default:
		return nil, ErrHubNotOpen
	}

	updates, cancel, err := h.Subscribe()
	if err != nil {
		return nil, err
	}
	c := &Client{
		id:       uuid.NewString(),
		editorID: editorID,
		hub:      h,
		updates:  updates,
		cancel:   cancel,

		parser:     content.NewParser(),
		serializer: content.NewSerializer(content.SerializerOptions{}),
	}

	h.mu.Lock()
	h.members[c.id] = c
	h.mu.Unlock()

	h.logger.WithField("client", c.id).Info("editor %s joined", editorID)
	return c, nil
}

func (h *Hub) leave(c *Client) {
	h.mu.Lock()
	delete(h.members, c.id)
	delete(h.batches, c.id)
	h.mu.Unlock()
	c.cancel()
}

// Document returns the current document and its version.
func (h *Hub) Document() (string, int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.doc, h.version
}

// Clients returns the ids of attached clients.
func (h *Hub) Clients() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	ids := make([]string, 0, len(h.members))
	for id := range h.members {
		ids = append(ids, id)
	}
	return ids
}

// commit replaces the document on behalf of clientID. History is recorded
// unless the client is inside a transaction.
func (h *Hub) commit(clientID string, op Op, fn func(doc string) string) error {
	h.mu.Lock()
	if h.closed() {
		h.mu.Unlock()
		return ErrHubClosed
	}
	next := fn(h.doc)
	if next == h.doc {
		h.mu.Unlock()
		return nil
	}
	if _, batching := h.batches[clientID]; !batching {
		h.undo = append(h.undo, h.doc)
		h.redo = nil
	}
	h.apply(clientID, op, next)
	h.mu.Unlock()
	return nil
}

// apply installs next as a new version and hands the change to run. It must
// be called with mu held so changes reach run in version order; run never
// takes mu.
func (h *Hub) apply(clientID string, op Op, next string) {
	h.doc = next
	h.version++
	ch := Change{Type: "Change", Version: h.version, ClientID: clientID, Op: op, HTML: next}
	select {
	case h.broadcast <- ch:
	case <-h.done:
	}
}

func (h *Hub) closed() bool {
	select {
	case <-h.done:
		return true
	default:
		return false
	}
}

func (h *Hub) step(clientID string, op Op) error {
	h.mu.Lock()
	from, to := &h.undo, &h.redo
	empty := undo.ErrNothingToUndo
	if op == OpRedo {
		from, to = &h.redo, &h.undo
		empty = undo.ErrNothingToRedo
	}
	if len(*from) == 0 {
		h.mu.Unlock()
		return empty
	}
	prev := (*from)[len(*from)-1]
	*from = (*from)[:len(*from)-1]
	*to = append(*to, h.doc)
	h.apply(clientID, op, prev)
	h.mu.Unlock()
	return nil
}

func (h *Hub) history() (hasUndo, hasRedo bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.undo) > 0, len(h.redo) > 0
}

// transact runs fn with history recording suspended for clientID. One undo
// level covering the whole transaction is recorded; if fn fails the document
// is restored.
func (h *Hub) transact(clientID string, fn func() error) error {
	h.mu.Lock()
	b, nested := h.batches[clientID]
	if !nested {
		b = &batch{before: h.doc}
		h.batches[clientID] = b
	}
	b.depth++
	h.mu.Unlock()

	err := fn()

	h.mu.Lock()
	b.depth--
	if b.depth > 0 {
		h.mu.Unlock()
		return err
	}
	delete(h.batches, clientID)

	switch {
	case err != nil && h.doc != b.before:
		h.apply(clientID, OpRollback, b.before)
	case err == nil && h.doc != b.before:
		h.undo = append(h.undo, b.before)
		h.redo = nil
	}
	h.mu.Unlock()
	return err
}
