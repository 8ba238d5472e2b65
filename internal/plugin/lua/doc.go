// Package lua runs collaboration runtimes written in Lua.
//
// This package wraps the gopher-lua library to provide:
//   - Sandboxed Lua state management
//   - Go-Lua value conversion for capability arguments
//   - Execution timeouts through context cancellation
//   - A collaboration plugin backed by a script
//
// # State
//
// The State type manages a Lua runtime with sandboxing:
//
//	state, err := lua.NewState(lua.WithExecutionTimeout(5 * time.Second))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer state.Close()
//
//	if err := state.DoFile("collab.lua"); err != nil {
//	    log.Fatal(err)
//	}
//
// # Sandbox
//
// Only the base, table, string and math libraries are opened. dofile,
// loadfile, load and loadstring are removed, require only resolves the
// built-in safe modules and the preloaded "inkwell" module, and print writes
// to the plugin logger.
//
// # Collaboration scripts
//
// A script registered through CollabPlugin defines a global setup function.
// It receives the editor id and returns a table whose keys name capabilities:
//
//	function setup(editor_id)
//	  local doc = ""
//	  return {
//	    setContent = function(html) doc = html end,
//	    getContent = function() return doc end,
//	  }
//	end
//
// Every key naming a known capability must be a function; other keys are
// ignored. Content crosses the boundary as HTML strings. transact receives a
// function that runs the editor's changes; the state is unlocked while it
// runs. hasUndo and hasRedo must return a boolean or nil.
//
// The inkwell module exposes log and warn, which take an optional table of
// fields:
//
//	local inkwell = require("inkwell")
//	inkwell.log("joined", {peers = 3})
package lua
