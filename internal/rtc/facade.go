package rtc

import (
	"github.com/dshills/inkwell/internal/content"
	"github.com/dshills/inkwell/internal/format"
	"github.com/dshills/inkwell/internal/undo"
)

// HasPlugin reports whether a collaboration plugin is registered, regardless
// of whether setup has run.
func HasPlugin(h Host) bool {
	_, ok := h.Plugin(PluginName)
	return ok
}

// Undo undoes the last change.
func Undo(h Host) Result[*undo.Level] {
	a, err := h.RTC().Adaptor()
	if err != nil {
		return Failed[*undo.Level](err)
	}
	return a.Undo()
}

// Redo redoes the last undone change.
func Redo(h Host) Result[*undo.Level] {
	a, err := h.RTC().Adaptor()
	if err != nil {
		return Failed[*undo.Level](err)
	}
	return a.Redo()
}

// HasUndo reports whether there is something to undo.
func HasUndo(h Host) Result[bool] {
	a, err := h.RTC().Adaptor()
	if err != nil {
		return Failed[bool](err)
	}
	return a.HasUndo()
}

// HasRedo reports whether there is something to redo.
func HasRedo(h Host) Result[bool] {
	a, err := h.RTC().Adaptor()
	if err != nil {
		return Failed[bool](err)
	}
	return a.HasRedo()
}

// Transact runs fn as a single history entry.
func Transact(h Host, fn func() error) Result[*undo.Level] {
	a, err := h.RTC().Adaptor()
	if err != nil {
		return Failed[*undo.Level](err)
	}
	return a.Transact(fn)
}

// ApplyFormat applies a named format to the selection. In plain mode fallback
// runs instead of the adaptor. Nil vars reach the adaptor as an empty map.
func ApplyFormat(h Host, name string, vars format.Vars, fallback func() error) Result[Empty] {
	return withFallback(h, errFallback(fallback), func(a Adaptor) Result[Empty] {
		return a.ApplyFormat(name, format.Normalize(vars))
	})
}

// ToggleFormat toggles a named format on the selection.
func ToggleFormat(h Host, name string, vars format.Vars, fallback func() error) Result[Empty] {
	return withFallback(h, errFallback(fallback), func(a Adaptor) Result[Empty] {
		return a.ToggleFormat(name, format.Normalize(vars))
	})
}

// RemoveFormat removes a named format from the selection.
func RemoveFormat(h Host, name string, vars format.Vars, fallback func() error) Result[Empty] {
	return withFallback(h, errFallback(fallback), func(a Adaptor) Result[Empty] {
		return a.RemoveFormat(name, format.Normalize(vars))
	})
}

// SetContent replaces the document. Markup is parsed as root content for
// insertion. The original content is returned on success.
func SetContent(h Host, c content.Content) Result[content.Content] {
	a, err := h.RTC().Adaptor()
	if err != nil {
		return Failed[content.Content](err)
	}

	tree, err := toTree(h, c, content.ParseOptions{IsRootContent: true, Insert: true})
	if err != nil {
		return Failed[content.Content](err)
	}
	return mapResult(a.SetContent(tree), func(Empty) (content.Content, error) { return c, nil })
}

// GetContent returns the document serialized in format f. The text format
// always uses fallback, since runtimes only hand back trees.
func GetContent(h Host, f content.Format, fallback func() (string, error)) Result[string] {
	if f == content.FormatText && fallback != nil {
		return fallbackOnly(h, fallback)
	}
	return withFallback(h, fallback, func(a Adaptor) Result[string] {
		return mapResult(a.GetContent(), func(tree *content.Node) (string, error) {
			if tree == nil {
				return "", nil
			}
			if f == content.FormatText {
				return content.Text(tree), nil
			}
			tree = tree.Clone(true)
			s := h.Serializer()
			content.Filter(s.NodeFilters(), s.AttributeFilters(), tree)
			return content.NewSerializer(content.SerializerOptions{Inner: true}).Serialize(tree)
		})
	})
}

// InsertContent inserts content at the selection. Markup is parsed for
// insertion.
func InsertContent(h Host, c content.Content, fallback func() error) Result[Empty] {
	return withFallback(h, errFallback(fallback), func(a Adaptor) Result[Empty] {
		tree, err := toTree(h, c, content.ParseOptions{Insert: true})
		if err != nil {
			return Failed[Empty](err)
		}
		return a.InsertContent(tree)
	})
}

// GetSelectedContent returns the selected content serialized in format f. The
// text format always uses fallback.
func GetSelectedContent(h Host, f content.Format, fallback func() (string, error)) Result[string] {
	if f == content.FormatText && fallback != nil {
		return fallbackOnly(h, fallback)
	}
	return withFallback(h, fallback, func(a Adaptor) Result[string] {
		return mapResult(a.GetSelectedContent(), func(tree *content.Node) (string, error) {
			return content.NewSerializer(content.SerializerOptions{}).Serialize(tree)
		})
	})
}

// BeforeChange records the selection ahead of a change.
func BeforeChange(h Host, bm *content.Bookmark) Result[Empty] {
	a, err := h.RTC().Adaptor()
	if err != nil {
		return Failed[Empty](err)
	}
	return a.UndoManager().BeforeChange(bm)
}

// AddUndoLevel records an undo level. Unsupported in collaborative mode.
func AddUndoLevel(h Host, level *undo.Level, event string) Result[*undo.Level] {
	a, err := h.RTC().Adaptor()
	if err != nil {
		return Failed[*undo.Level](err)
	}
	return a.UndoManager().AddUndoLevel(level, event)
}

// Ignore runs fallback in plain mode and skips it in collaborative mode.
func Ignore[T any](h Host, fallback func() T) Result[T] {
	a, err := h.RTC().Adaptor()
	if err != nil {
		return Failed[T](err)
	}
	if a.Collaborative() {
		return Skipped[T]()
	}
	return OK(fallback())
}

// Block runs fallback in plain mode. In collaborative mode it reports feature
// as unsupported.
func Block[T any](h Host, feature string, fallback func() T) Result[T] {
	a, err := h.RTC().Adaptor()
	if err != nil {
		return Failed[T](err)
	}
	if a.Collaborative() {
		if feature == "" {
			feature = "block"
		}
		return Unsupported[T](feature)
	}
	return OK(fallback())
}

// withFallback runs fallback in plain mode and op otherwise. A nil fallback
// routes plain mode through the adaptor as well.
func withFallback[T any](h Host, fallback func() (T, error), op func(Adaptor) Result[T]) Result[T] {
	a, err := h.RTC().Adaptor()
	if err != nil {
		return Failed[T](err)
	}
	if !a.Collaborative() && fallback != nil {
		return From(fallback())
	}
	return op(a)
}

func fallbackOnly[T any](h Host, fallback func() (T, error)) Result[T] {
	if _, err := h.RTC().Adaptor(); err != nil {
		return Failed[T](err)
	}
	return From(fallback())
}

func errFallback(fn func() error) func() (Empty, error) {
	if fn == nil {
		return nil
	}
	return func() (Empty, error) {
		return Empty{}, fn()
	}
}

func toTree(h Host, c content.Content, opts content.ParseOptions) (*content.Node, error) {
	if tree, ok := content.AsTree(c); ok {
		return tree, nil
	}
	markup, ok := c.(content.HTML)
	if !ok {
		return nil, content.ErrNilTree
	}
	return h.Parser().Parse(string(markup), opts)
}
