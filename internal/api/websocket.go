package api

import (
	"encoding/json"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/AaronLay10/Hellevator/internal/ctxlog"
	"github.com/AaronLay10/Hellevator/internal/events"
)

const (
	// Number of recent events to send on connection
	recentEventsCount = 50

	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = 54 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Renderers may be served from anywhere; access is gated by basic auth.
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// frameClients counts open /ws/frames connections.
var frameClients atomic.Int64

// FrameClientCount returns the number of connected frame streams.
func FrameClientCount() int {
	return int(frameClients.Load())
}

// readPump discards client messages and keeps the read deadline moving on
// pongs. The returned channel closes when the peer goes away.
func readPump(conn *websocket.Conn) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			conn.SetReadDeadline(time.Now().Add(pongWait))
			return nil
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
	return done
}

func writeJSONMessage(conn *websocket.Conn, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteMessage(websocket.TextMessage, data)
}

// wsEventsHandler streams the event log: the most recent events first, then
// every new event as it is emitted.
func wsEventsHandler(w http.ResponseWriter, r *http.Request) {
	logger := ctxlog.FromContext(r.Context())
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("ws upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	sub := events.Subscribe()
	defer events.Unsubscribe(sub)

	for _, e := range events.RecentEvents(recentEventsCount) {
		if err := writeJSONMessage(conn, e); err != nil {
			logger.Debug("ws write recent event failed", "error", err)
			return
		}
	}

	done := readPump(conn)
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return

		case e, ok := <-sub:
			if !ok {
				return
			}
			if err := writeJSONMessage(conn, e); err != nil {
				logger.Debug("ws write event failed", "error", err)
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

// wsFramesHandler streams render frames: the latest snapshot on connect,
// then one message per published tick. Slow clients skip frames.
func (s *Server) wsFramesHandler(w http.ResponseWriter, r *http.Request) {
	logger := ctxlog.FromContext(r.Context())
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("ws upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	frameClients.Add(1)
	defer frameClients.Add(-1)

	frames, cancel := s.sim.Subscribe()
	defer cancel()

	if snap, err := s.sim.Snapshot(); err == nil {
		if err := writeJSONMessage(conn, snap); err != nil {
			return
		}
	}

	done := readPump(conn)
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return

		case f, ok := <-frames:
			if !ok {
				return
			}
			if err := writeJSONMessage(conn, f); err != nil {
				logger.Debug("ws write frame failed", "error", err)
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
