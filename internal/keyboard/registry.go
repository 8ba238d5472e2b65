package keyboard

import (
	"fmt"
	"sort"
	"sync"
)

// Match is a binding found for a chord.
type Match struct {
	Binding Binding
	Keymap  string
	Score   int
}

type parsedKeymap struct {
	keymap *Keymap
	chords []Chord // parallel to keymap.Bindings
	seq    int
}

// Registry manages keymaps and resolves chords to bindings.
type Registry struct {
	mu      sync.RWMutex
	keymaps map[string]*parsedKeymap
	seq     int
}

// NewRegistry creates an empty keymap registry.
func NewRegistry() *Registry {
	return &Registry{keymaps: make(map[string]*parsedKeymap)}
}

// Register adds a keymap to the registry.
// If a keymap with the same name already exists, it is replaced.
func (r *Registry) Register(km *Keymap) error {
	if km == nil {
		return fmt.Errorf("cannot register nil keymap")
	}
	if km.Name == "" {
		return fmt.Errorf("cannot register keymap without a name")
	}

	km = km.Clone()
	parsed := &parsedKeymap{keymap: km, chords: make([]Chord, len(km.Bindings))}
	for i, b := range km.Bindings {
		if b.Command == "" {
			return fmt.Errorf("keymap %q: binding %s: empty command", km.Name, b.Keys)
		}
		c, err := ParseChord(b.Keys)
		if err != nil {
			return fmt.Errorf("keymap %q: %w", km.Name, err)
		}
		parsed.chords[i] = c
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	parsed.seq = r.seq
	r.keymaps[km.Name] = parsed
	return nil
}

// Unregister removes a keymap by name.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.keymaps, name)
}

// Get returns a copy of a keymap by name.
func (r *Registry) Get(name string) (*Keymap, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.keymaps[name]
	if !ok {
		return nil, false
	}
	return p.keymap.Clone(), true
}

// Has reports whether a keymap is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.keymaps[name]
	return ok
}

// Names returns the registered keymap names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.keymaps))
	for name := range r.keymaps {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Lookup finds the best binding for c. Keymap priority outweighs binding
// priority; on a tie the most recently registered keymap wins.
func (r *Registry) Lookup(c Chord) (Match, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var (
		best    Match
		bestSeq int
		found   bool
	)
	for _, p := range r.keymaps {
		for i, bc := range p.chords {
			if bc != c {
				continue
			}
			score := p.keymap.Priority*100 + p.keymap.Bindings[i].Priority
			if found && (score < best.Score || (score == best.Score && p.seq < bestSeq)) {
				continue
			}
			best = Match{Binding: p.keymap.Bindings[i], Keymap: p.keymap.Name, Score: score}
			bestSeq = p.seq
			found = true
		}
	}
	return best, found
}

// Bindings returns every binding for c, best first.
func (r *Registry) Bindings(c Chord) []Match {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Match
	for _, p := range r.keymaps {
		for i, bc := range p.chords {
			if bc == c {
				out = append(out, Match{
					Binding: p.keymap.Bindings[i],
					Keymap:  p.keymap.Name,
					Score:   p.keymap.Priority*100 + p.keymap.Bindings[i].Priority,
				})
			}
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Keymap < out[j].Keymap
	})
	return out
}
