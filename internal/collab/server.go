package collab

import (
	"net/http"

	"golang.org/x/net/websocket"
)

// Snapshot is the first message a websocket observer receives.
type Snapshot struct {
	Type    string `json:"type"`
	Version int    `json:"version"`
	HTML    string `json:"html"`
}

// Handler serves the hub's change stream over websocket. Each connection
// receives a Snapshot followed by every Change as JSON. Observers are read
// only; anything they send is discarded.
func (h *Hub) Handler() http.Handler {
	return websocket.Handler(h.serveConn)
}

func (h *Hub) serveConn(ws *websocket.Conn) {
	defer ws.Close()
	logger := h.logger.WithField("remote", ws.Request().RemoteAddr)

	updates, cancel, err := h.Subscribe()
	if err != nil {
		logger.Warn("observer rejected: %v", err)
		return
	}
	defer cancel()

	doc, version := h.Document()
	if err := websocket.JSON.Send(ws, Snapshot{Type: "Snapshot", Version: version, HTML: doc}); err != nil {
		logger.Debug("send snapshot: %v", err)
		return
	}

	eof := make(chan struct{})
	go func() {
		defer close(eof)
		var discard []byte
		for {
			if err := websocket.Message.Receive(ws, &discard); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case ch, ok := <-updates:
			if !ok {
				return
			}
			if ch.Version <= version {
				continue
			}
			if err := websocket.JSON.Send(ws, ch); err != nil {
				logger.Debug("send change %d: %v", ch.Version, err)
				return
			}
		case <-eof:
			logger.Debug("observer disconnected")
			return
		}
	}
}
