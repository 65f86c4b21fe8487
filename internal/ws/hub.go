package ws

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/playpong/backend/internal/game"
	"github.com/playpong/backend/internal/metrics"
)

// Client represents a connected WebSocket client
type Client struct {
	conn     *websocket.Conn
	connID   string
	playerID string
	name     string
	gameID   string
	send     chan []byte
}

// Hub maintains the set of active clients and their game rooms. It is the
// game manager's Notifier: every outbound message crosses this type.
type Hub struct {
	clients    map[string]*Client            // connID -> Client
	byPlayer   map[string]*Client            // playerID -> current Client
	gameRooms  map[string]map[string]*Client // gameID -> connID -> Client
	register   chan *Client
	unregister chan *Client
	mu         sync.RWMutex
}

// NewHub creates a new Hub
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		byPlayer:   make(map[string]*Client),
		gameRooms:  make(map[string]map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

// Run processes register/unregister events. Must run on its own goroutine.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			// A second socket for the same player supersedes the old one.
			if old, exists := h.byPlayer[client.playerID]; exists && old.connID != client.connID {
				log.Printf("[WS] Player %s opened a new connection - closing old %s", client.playerID, old.connID)
				old.conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "replaced by new connection"),
					time.Now().Add(5*time.Second))
				old.conn.Close()
			}
			h.clients[client.connID] = client
			h.byPlayer[client.playerID] = client
			h.mu.Unlock()

			metrics.ActiveConnections.Inc()
			metrics.TotalConnections.Inc()
			log.Printf("[WS] Connection %s opened (player=%s)", client.connID, client.playerID)

		case client := <-h.unregister:
			h.mu.Lock()
			if cur, ok := h.clients[client.connID]; ok && cur == client {
				delete(h.clients, client.connID)
				if h.byPlayer[client.playerID] == client {
					delete(h.byPlayer, client.playerID)
				}
				h.removeFromRoomLocked(client)
				select {
				case <-client.send:
				default:
					close(client.send)
				}
				h.mu.Unlock()

				metrics.ActiveConnections.Dec()
				log.Printf("[WS] Connection %s closed (player=%s)", client.connID, client.playerID)

				game.Manager.HandleDisconnect(client.connID)
			} else {
				h.mu.Unlock()
			}
		}
	}
}

// JoinRoom binds a connection to a game room for broadcasts. A connection
// belongs to at most one room.
func (h *Hub) JoinRoom(client *Client, gameID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.removeFromRoomLocked(client)
	client.gameID = gameID
	if _, exists := h.gameRooms[gameID]; !exists {
		h.gameRooms[gameID] = make(map[string]*Client)
	}
	h.gameRooms[gameID][client.connID] = client
}

// removeFromRoomLocked drops the client from its current room. Caller holds mu.
func (h *Hub) removeFromRoomLocked(client *Client) {
	if client.gameID == "" {
		return
	}
	if room, exists := h.gameRooms[client.gameID]; exists {
		delete(room, client.connID)
		if len(room) == 0 {
			delete(h.gameRooms, client.gameID)
		}
	}
	client.gameID = ""
}

// SendToConn sends a message to one connection if it is still open.
func (h *Hub) SendToConn(connID string, message interface{}) {
	data, err := json.Marshal(message)
	if err != nil {
		log.Printf("Error marshaling message: %v", err)
		return
	}

	h.mu.RLock()
	client, exists := h.clients[connID]
	h.mu.RUnlock()
	if !exists {
		return
	}

	select {
	case client.send <- data:
	default:
		log.Printf("[WS] SendToConn dropped message for %s (buffer full)", connID)
	}
}

// BroadcastToGame sends a message to every connection in a game room
func (h *Hub) BroadcastToGame(gameID string, message interface{}) {
	data, err := json.Marshal(message)
	if err != nil {
		log.Printf("Error marshaling message: %v", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	if room, exists := h.gameRooms[gameID]; exists {
		for _, client := range room {
			select {
			case client.send <- data:
			default:
				log.Printf("[WS] Broadcast dropped for %s in game %s (buffer full)", client.connID, gameID)
			}
		}
	}
}

// BroadcastAll sends a message to every connected client
func (h *Hub) BroadcastAll(message interface{}) {
	data, err := json.Marshal(message)
	if err != nil {
		log.Printf("Error marshaling message: %v", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, client := range h.clients {
		select {
		case client.send <- data:
		default:
		}
	}
}

// writePump writes messages to the WebSocket connection
func (c *Client) writePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				// Channel closed, connection is being replaced or cleaned up.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Printf("WebSocket write error for %s: %v", c.connID, err)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Printf("WebSocket ping error for %s: %v", c.connID, err)
				return
			}
		}
	}
}

// sendError sends an error message to the client
func (c *Client) sendError(message string) {
	data, _ := json.Marshal(map[string]interface{}{
		"type":    "error",
		"message": message,
	})
	select {
	case c.send <- data:
	default:
	}
}
