package undo

import (
	"sync/atomic"
	"time"

	"github.com/dshills/inkwell/internal/content"
)

// Type tags an undo level.
type Type string

const (
	// TypeComplete levels carry the whole serialized document in Content.
	TypeComplete Type = "complete"
	// TypeFragmented levels carry the document split into Fragments.
	TypeFragmented Type = "fragmented"
)

// Level is one recorded, reversible document state. Levels are treated as
// immutable once created.
type Level struct {
	ID             string
	Type           Type
	Fragments      []string
	Content        string
	Bookmark       *content.Bookmark
	BeforeBookmark *content.Bookmark
	Event          string
	Timestamp      time.Time
}

// CompleteLevel returns the placeholder level reported when history is owned
// by something other than the local manager.
func CompleteLevel() *Level {
	return &Level{
		Type:      TypeComplete,
		Fragments: []string{},
		Content:   "",
	}
}

// Equal reports whether two levels describe the same document content.
func (l *Level) Equal(other *Level) bool {
	if l == nil || other == nil {
		return l == other
	}
	if l.Type != other.Type {
		return false
	}
	if l.Type == TypeFragmented {
		if len(l.Fragments) != len(other.Fragments) {
			return false
		}
		for i := range l.Fragments {
			if l.Fragments[i] != other.Fragments[i] {
				return false
			}
		}
		return true
	}
	return l.Content == other.Content
}

// Locks is a counting lock that suspends history recording.
type Locks struct {
	n atomic.Int32
}

// Lock increments the lock count.
func (l *Locks) Lock() {
	l.n.Add(1)
}

// Unlock decrements the lock count. Extra unlocks are ignored.
func (l *Locks) Unlock() {
	for {
		cur := l.n.Load()
		if cur <= 0 {
			return
		}
		if l.n.CompareAndSwap(cur, cur-1) {
			return
		}
	}
}

// Locked reports whether recording is suspended.
func (l *Locks) Locked() bool {
	return l.n.Load() > 0
}
