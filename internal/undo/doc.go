// Package undo provides the local undo/redo history of an editor.
//
// History is a list of snapshot levels with a cursor (the index). Every
// Level records the serialized document after a change together with the
// selection before and after it:
//
//	m := undo.NewManager(doc, undo.WithLimit(100))
//	m.Add(nil, "init")          // initial level
//
//	m.BeforeChange(nil)         // remember the selection
//	// ... mutate the document ...
//	m.Add(nil, "edit")          // record the change
//
//	m.Undo()                    // restore the previous level
//	m.Redo()                    // and back again
//
// # Locks
//
// While the manager's Locks are held, BeforeChange and Add are no-ops. This is
// how Transact folds several edits into one level:
//
//	m.Transact(func() error {
//	    // edits here do not add levels individually
//	    return nil
//	})
//
// The history here is strictly local. Editors running with a collaboration
// runtime never add levels through this package; their history belongs to the
// runtime.
package undo
