package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// wsMaxPayloadBytes caps inbound frame size.
	wsMaxPayloadBytes = 1 << 20

	// wsPingInterval is how often the server pings the client.
	wsPingInterval = 15 * time.Second

	// wsPongWait is how long to wait for a pong before dropping the
	// connection. Must exceed wsPingInterval.
	wsPongWait = 45 * time.Second

	// wsWriteWait bounds each outbound write.
	wsWriteWait = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  8192,
	WriteBufferSize: 8192,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// sessionFrame is the first frame on every stream connection. The client
// uses the id to address chat requests.
type sessionFrame struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id"`
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	id, events := s.opts.Sessions.Open()
	defer s.opts.Sessions.Close(id)
	defer conn.Close()

	if err := writeFrame(conn, sessionFrame{Type: "session", SessionID: id}); err != nil {
		return
	}

	// The read loop only services control frames and detects the client
	// going away; inbound data frames are ignored.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		conn.SetReadLimit(wsMaxPayloadBytes)
		_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(wsPongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(wsPingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-closed:
			return
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case ev, ok := <-events:
			if !ok {
				_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
				_ = conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session closed"))
				return
			}
			if err := writeFrame(conn, ev); err != nil {
				if s.opts.Logger != nil {
					s.opts.Logger.Debug(context.Background(), "stream write failed, dropping connection",
						"session_id", id, "error", err)
				}
				return
			}
		}
	}
}

func writeFrame(conn *websocket.Conn, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	return conn.WriteMessage(websocket.TextMessage, data)
}
