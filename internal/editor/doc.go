// Package editor provides the Editor, the object that owns a document and
// everything that edits it: the parser and serializer, the format registry,
// local undo history, the rtc adaptor cell, keymaps, commands and toolbar
// buttons.
//
// Every history, content and formatting operation goes through the rtc
// facade. In plain mode the facade falls back to the editor's own local
// implementation; in collaborative mode the installed runtime owns the
// document and history, and operations it does not implement fail with
// rtc.UnsupportedError.
//
// An Editor is unusable until Init has run. Init initializes the registered
// plugins, resolves the rtc adaptor, attaches keyboard overrides and, in plain
// mode, records the initial undo level.
package editor
