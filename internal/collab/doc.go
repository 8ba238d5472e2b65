// Package collab provides an in-process collaboration hub.
//
// A Hub holds the authoritative document as HTML together with a shared
// undo history. Editors attach through the rtc plugin returned by
// Hub.Plugin; each attached editor becomes a Client whose runtime reads and
// writes the shared document. Every change is broadcast to all clients and to
// websocket observers served by Hub.Handler.
//
// The hub does not implement formatting. Editors attached to it report
// applyFormat, toggleFormat and removeFormat as unsupported.
package collab
