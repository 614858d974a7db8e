package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/soundmesh/musiccast-hub-go/hub"
	"github.com/soundmesh/musiccast-hub-go/internal/registry"
)

const (
	writeWait  = 10 * time.Second
	pingPeriod = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// Local-network control plane; no cross-origin policy to enforce.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsEvent is the wire form of one delta stream message.
type wsEvent struct {
	Type     string         `json:"type"`
	DeviceID string         `json:"device_id"`
	State    map[string]any `json:"state,omitempty"`
	Diff     map[string]any `json:"diff,omitempty"`
}

// eventsHandler streams hub events over a websocket. The topics query
// parameter selects device ids and/or "network"; absent, the network
// topic is assumed.
func eventsHandler(h *hub.Hub) http.HandlerFunc {
	log := logrus.WithField("component", "events_ws")

	return func(w http.ResponseWriter, r *http.Request) {
		topics := []string{hub.TopicNetwork}
		if raw := r.URL.Query().Get("topics"); raw != "" {
			topics = strings.Split(raw, ",")
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.WithError(err).Debug("upgrade failed")
			return
		}

		sub := h.Subscribe(topics...)
		defer h.Unsubscribe(sub)
		defer conn.Close()

		// Reader only consumes control frames; a read error means the
		// peer went away.
		readerDone := make(chan struct{})
		go func() {
			defer close(readerDone)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		ticker := time.NewTicker(pingPeriod)
		defer ticker.Stop()

		for {
			select {
			case <-readerDone:
				return
			case msg, ok := <-sub.C:
				if !ok {
					return
				}
				conn.SetWriteDeadline(time.Now().Add(writeWait))
				if err := conn.WriteJSON(toWSEvent(msg)); err != nil {
					return
				}
			case <-ticker.C:
				conn.SetWriteDeadline(time.Now().Add(writeWait))
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			}
		}
	}
}

func toWSEvent(msg any) wsEvent {
	switch event := msg.(type) {
	case registry.OnlineEvent:
		return wsEvent{Type: "online", DeviceID: event.DeviceID, State: event.State}
	case registry.OfflineEvent:
		return wsEvent{Type: "offline", DeviceID: event.DeviceID}
	case registry.UpdateEvent:
		return wsEvent{Type: "update", DeviceID: event.DeviceID, Diff: event.Diff}
	default:
		return wsEvent{Type: "unknown"}
	}
}
