package undo

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dshills/inkwell/internal/content"
	"github.com/dshills/inkwell/internal/notify"
)

// Common errors for history operations.
var (
	ErrNothingToUndo = errors.New("nothing to undo")
	ErrNothingToRedo = errors.New("nothing to redo")
)

// DefaultLimit is the level limit used when none is configured.
const DefaultLimit = 100

// Document is the state the manager snapshots and restores.
type Document interface {
	// Snapshot returns the serialized document and current selection.
	Snapshot() (string, content.Bookmark, error)

	// Restore replaces the document and selection. A nil bookmark leaves
	// the selection to the document.
	Restore(html string, bm *content.Bookmark) error
}

// Manager manages local undo/redo state for a document.
type Manager struct {
	mu sync.Mutex

	doc      Document
	notifier *notify.Notifier

	levels []*Level
	index  int
	locks  Locks

	beforeBookmark *content.Bookmark

	limit int
}

// Option configures a Manager.
type Option func(*Manager)

// WithLimit sets the maximum number of levels kept. Zero or less means
// DefaultLimit.
func WithLimit(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.limit = n
		}
	}
}

// WithNotifier publishes undo, redo and add events.
func WithNotifier(n *notify.Notifier) Option {
	return func(m *Manager) {
		m.notifier = n
	}
}

// NewManager creates a history manager for doc.
func NewManager(doc Document, opts ...Option) *Manager {
	m := &Manager{
		doc:   doc,
		limit: DefaultLimit,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Locks returns the manager's recording lock.
func (m *Manager) Locks() *Locks {
	return &m.locks
}

// BeforeChange records the selection before a change. When bm is nil the
// document's current selection is used. No-op while locked or when the
// document cannot be snapshotted.
func (m *Manager) BeforeChange(bm *content.Bookmark) {
	if m.locks.Locked() {
		return
	}
	if bm == nil {
		_, cur, err := m.doc.Snapshot()
		if err != nil {
			return
		}
		bm = &cur
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.beforeBookmark = bm
}

// Add records the current document as a new level. When level is non-nil
// its metadata is used as the template; content and bookmarks are always
// taken from the document. Returns nil without error when locked or when the
// document is unchanged since the current level.
func (m *Manager) Add(level *Level, event string) (*Level, error) {
	if m.locks.Locked() {
		return nil, nil
	}

	html, bm, err := m.doc.Snapshot()
	if err != nil {
		return nil, fmt.Errorf("snapshot: %w", err)
	}

	next := &Level{
		ID:        uuid.NewString(),
		Type:      TypeComplete,
		Content:   html,
		Bookmark:  &bm,
		Event:     event,
		Timestamp: time.Now(),
	}
	if level != nil {
		if level.ID != "" {
			next.ID = level.ID
		}
		if level.Type == TypeFragmented {
			next.Type = TypeFragmented
			next.Fragments = []string{html}
		}
	}

	m.mu.Lock()
	if n := len(m.levels); n > 0 && m.levels[m.index].Equal(next) {
		m.mu.Unlock()
		return nil, nil
	}

	next.BeforeBookmark = m.beforeBookmark
	m.beforeBookmark = nil

	// Adding after an undo discards the redo levels.
	if len(m.levels) > 0 && m.index < len(m.levels)-1 {
		m.levels = m.levels[:m.index+1]
	}
	m.levels = append(m.levels, next)

	if len(m.levels) > m.limit {
		excess := len(m.levels) - m.limit
		m.levels = m.levels[excess:]
	}
	m.index = len(m.levels) - 1
	m.mu.Unlock()

	m.publish(notify.PathUndoAdd, next)
	return next, nil
}

// Undo restores the previous level and returns it.
func (m *Manager) Undo() (*Level, error) {
	m.mu.Lock()
	if m.index <= 0 || len(m.levels) == 0 {
		m.mu.Unlock()
		return nil, ErrNothingToUndo
	}

	undone := m.levels[m.index]
	m.index--
	target := m.levels[m.index]
	m.mu.Unlock()

	bm := target.Bookmark
	if undone.BeforeBookmark != nil {
		bm = undone.BeforeBookmark
	}

	// Restore without holding the lock; the document may call back in.
	if err := m.restore(target, bm); err != nil {
		m.mu.Lock()
		m.index++
		m.mu.Unlock()
		return nil, err
	}

	m.publish(notify.PathUndo, target)
	return target, nil
}

// Redo restores the next level and returns it.
func (m *Manager) Redo() (*Level, error) {
	m.mu.Lock()
	if m.index >= len(m.levels)-1 {
		m.mu.Unlock()
		return nil, ErrNothingToRedo
	}

	m.index++
	target := m.levels[m.index]
	m.mu.Unlock()

	if err := m.restore(target, target.Bookmark); err != nil {
		m.mu.Lock()
		m.index--
		m.mu.Unlock()
		return nil, err
	}

	m.publish(notify.PathRedo, target)
	return target, nil
}

func (m *Manager) restore(level *Level, bm *content.Bookmark) error {
	m.locks.Lock()
	defer m.locks.Unlock()

	html := level.Content
	if level.Type == TypeFragmented {
		html = ""
		for _, f := range level.Fragments {
			html += f
		}
	}
	return m.doc.Restore(html, bm)
}

// HasUndo returns true if undo is available.
func (m *Manager) HasUndo() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.index > 0
}

// HasRedo returns true if redo is available.
func (m *Manager) HasRedo() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.levels) > 0 && m.index < len(m.levels)-1
}

// Transact runs fn with recording suspended and then records a single level.
// If fn fails nothing is recorded and the error is returned.
func (m *Manager) Transact(fn func() error) (*Level, error) {
	m.BeforeChange(nil)

	err := func() error {
		m.locks.Lock()
		defer m.locks.Unlock()
		return fn()
	}()
	if err != nil {
		return nil, err
	}

	return m.Add(nil, "transact")
}

// Clear removes all levels.
func (m *Manager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.levels = nil
	m.index = 0
	m.beforeBookmark = nil
}

// Levels returns a copy of the recorded levels, oldest first.
func (m *Manager) Levels() []*Level {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Level, len(m.levels))
	copy(out, m.levels)
	return out
}

// Index returns the position of the current level.
func (m *Manager) Index() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.index
}

// Limit returns the maximum number of levels kept.
func (m *Manager) Limit() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.limit
}

func (m *Manager) publish(path string, level *Level) {
	if m.notifier != nil {
		m.notifier.Publish(path, level, "undo")
	}
}
