package api

import (
	"log"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/exameye/proctor/hub"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// Browsers connect from the dashboard origin; CORS policy is handled
	// at the HTTP layer.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsConn adapts a websocket connection to the hub's Conn interface.
// The hub serializes WriteEvent calls per subscription.
type wsConn struct {
	conn *websocket.Conn
}

func (c *wsConn) WriteEvent(ev hub.Event) error {
	return c.conn.WriteJSON(ev)
}

func (c *wsConn) Close() error {
	return c.conn.Close()
}

// AdminWS subscribes the connection to every event system-wide.
func (s *Server) AdminWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("Admin websocket upgrade error: %v", err)
		return
	}

	sub := s.Hub.SubscribeGlobal(&wsConn{conn: conn})
	defer s.Hub.Unsubscribe(sub)

	// Drain inbound messages until the client goes away; admins only
	// listen for now.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// StudentWS subscribes the connection to one session's events only.
func (s *Server) StudentWS(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["session_id"]

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("Student websocket upgrade error: %v", err)
		return
	}

	sub := s.Hub.SubscribeSession(sessionID, &wsConn{conn: conn})
	defer s.Hub.Unsubscribe(sub)

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
