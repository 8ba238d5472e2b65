// Package rtc routes editor operations to either the local implementation or
// a real-time collaboration runtime.
//
// An editor owns one Cell. Setup resolves the cell exactly once: when no
// plugin is registered under PluginName the Plain adaptor is installed, which
// forwards to the editor's own history and content routines. When a plugin is
// present its runtime is validated and wrapped in the Collab adaptor. The
// choice is fixed for the lifetime of the editor.
//
// # State machine
//
//	Uninitialized --Setup--> Resolving --no plugin--------> PlainActive
//	                         Resolving --runtime ready----> CollabActive
//	                         Resolving --setup error------> Failed
//
// Terminal states never transition. Every facade function checks the state
// first, so operations issued before setup resolves report ErrNotReady and
// operations after a failed setup report ErrSetupFailed.
//
// # Results
//
// Facade functions return a Result instead of panicking or returning bare
// errors. A Result is OK, Unsupported (the collaborative runtime has no
// implementation of the feature), Failed (an error occurred) or Skipped
// (Ignore in collaborative mode). Callers that only care about Go errors use
// Result.Unwrap.
//
// # Fallbacks
//
// Formatting, content retrieval, insertion and selection extraction take a
// caller-supplied fallback. In plain mode the fallback is called directly and
// the adaptor is not consulted. Undo, redo, transactions, SetContent and the
// undo manager always go through the adaptor.
package rtc
