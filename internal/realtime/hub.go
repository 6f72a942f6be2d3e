package realtime

import (
	"log"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/funnelboard/funnelboard-golang/internal/engine"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The REST layer already enforces CORS; the token was validated
	// before the upgrade.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Hub fans board-mutation events out to the owner's connected clients,
// so a second browser tab sees changes made in the first.
type Hub struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]string // conn -> owner id
}

func NewHub() *Hub {
	return &Hub{clients: make(map[*websocket.Conn]string)}
}

// HandleWS upgrades the request and keeps the connection registered
// until the client goes away. Requires AuthMiddleware upstream.
func (h *Hub) HandleWS(c *gin.Context) {
	ownerID := c.GetString("userID")

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("[ws] upgrade failed: %v", err)
		return
	}

	h.mu.Lock()
	h.clients[conn] = ownerID
	h.mu.Unlock()

	// Drain the connection. Clients only listen; any read error means
	// they are gone.
	go func() {
		defer h.remove(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (h *Hub) remove(conn *websocket.Conn) {
	h.mu.Lock()
	delete(h.clients, conn)
	h.mu.Unlock()
	conn.Close()
}

// Broadcast sends the event to every connection of the event's owner.
// Plugged into Engine.Notify.
func (h *Hub) Broadcast(ev engine.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn, ownerID := range h.clients {
		if ownerID != ev.OwnerID {
			continue
		}
		if err := conn.WriteJSON(ev); err != nil {
			log.Printf("[ws] write failed, dropping client: %v", err)
			delete(h.clients, conn)
			conn.Close()
		}
	}
}
