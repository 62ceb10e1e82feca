package api

import (
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

const (
	maxWSConns   = 8
	wsWriteWait  = 5 * time.Second
	wsPingPeriod = 20 * time.Second
)

var upgrader = websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}

// wsClient serialises writes to one connection.
type wsClient struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *wsClient) send(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	return c.conn.WriteJSON(v)
}

func (c *wsClient) ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait))
}

// wsMessage is the envelope for everything sent on the stream.
type wsMessage struct {
	Type string `json:"type"` // "hello" or "stats"
	Data any    `json:"data"`
}

// handleWS streams one stats message per tick until the client goes away.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	if atomic.AddInt32(&s.wsConns, 1) > maxWSConns {
		atomic.AddInt32(&s.wsConns, -1)
		http.Error(w, "too many stream connections", http.StatusServiceUnavailable)
		return
	}
	defer atomic.AddInt32(&s.wsConns, -1)

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()
	client := &wsClient{conn: conn}

	subID, ch := s.Sim.Subscribe()
	defer s.Sim.Unsubscribe(subID)

	hello := map[string]any{
		"run_id": s.RunID,
		"params": paramsView(s.Sim.CurrentParams()),
		"stats":  s.Sim.Snapshot(),
	}
	if err := client.send(wsMessage{Type: "hello", Data: hello}); err != nil {
		return
	}
	slog.Info("stream client connected", "sub_id", subID)

	// Reads only detect the close; clients have nothing to say.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	heartbeat := time.NewTicker(wsPingPeriod)
	defer heartbeat.Stop()

	for {
		select {
		case st, ok := <-ch:
			if !ok {
				return
			}
			if err := client.send(wsMessage{Type: "stats", Data: st}); err != nil {
				slog.Info("stream client dropped", "sub_id", subID, "error", err)
				return
			}
		case <-heartbeat.C:
			if err := client.ping(); err != nil {
				return
			}
		case <-closed:
			slog.Info("stream client disconnected", "sub_id", subID)
			return
		case <-r.Context().Done():
			return
		}
	}
}
