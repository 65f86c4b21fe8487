package ws

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/playpong/backend/internal/auth"
	"github.com/playpong/backend/internal/config"
	"github.com/playpong/backend/internal/game"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins in development
	},
}

// GameHub is the single hub for all connections.
var GameHub *Hub

func init() {
	GameHub = NewHub()
	go GameHub.Run()
}

// WSMessage is the inbound client message envelope.
type WSMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Inbound message data types
type CreateGameData struct {
	Name string `json:"name"`
}

type JoinGameData struct {
	GameID string `json:"game_id"`
	Name   string `json:"name"`
}

type MovePaddleData struct {
	Y float64 `json:"y"`
}

type TokenData struct {
	Token string `json:"token"`
}

func newConnID() string {
	bytes := make([]byte, 8)
	rand.Read(bytes)
	return "conn_" + hex.EncodeToString(bytes)
}

// HandleWebSocket upgrades the connection and binds an identity to it. A
// bearer token (query param or Authorization header) is verified when
// present; without one the client plays as an anonymous guest.
func HandleWebSocket(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Query("token")
		if token == "" {
			if h := c.GetHeader("Authorization"); strings.HasPrefix(h, "Bearer ") {
				token = strings.TrimPrefix(h, "Bearer ")
			}
		}

		var ident auth.Identity
		if token != "" {
			parsed, err := auth.ParseToken(cfg.JWTSecret, token)
			if err != nil {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
				return
			}
			ident = parsed
		} else {
			idBytes := make([]byte, 8)
			rand.Read(idBytes)
			ident = auth.Identity{PlayerID: "guest_" + hex.EncodeToString(idBytes)}
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Printf("[WS] Upgrade error: %v", err)
			return
		}

		client := &Client{
			conn:     conn,
			connID:   newConnID(),
			playerID: ident.PlayerID,
			name:     ident.Name,
			send:     make(chan []byte, 256),
		}

		GameHub.register <- client

		go client.writePump()
		go client.readPump()
	}
}

// readPump reads client messages until the connection drops.
func (c *Client) readPump() {
	defer func() {
		GameHub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(4096)
	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error (unexpected) for %s: %v", c.connID, err)
			}
			break
		}

		var msg WSMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			continue
		}

		c.handleMessage(msg)
	}
}

// handleMessage dispatches one inbound client message.
func (c *Client) handleMessage(msg WSMessage) {
	switch msg.Type {
	case "create_game":
		var data CreateGameData
		json.Unmarshal(msg.Data, &data)
		c.handleCreateGame(data)

	case "join_game":
		var data JoinGameData
		if err := json.Unmarshal(msg.Data, &data); err != nil || data.GameID == "" {
			c.sendError("game_id required")
			return
		}
		c.handleJoinGame(data)

	case "move_paddle":
		var data MovePaddleData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			return
		}
		game.Manager.UpdatePaddle(c.connID, data.Y)

	case "get_lobby":
		c.sendJSON(map[string]interface{}{
			"type":  game.MsgLobbyUpdated,
			"games": game.Manager.GetOpenGames(),
		})

	case "check_pending":
		var data TokenData
		if err := json.Unmarshal(msg.Data, &data); err != nil || data.Token == "" {
			c.sendJSON(map[string]interface{}{"type": game.MsgNoPendingGame})
			return
		}
		c.handleCheckPending(data.Token)

	case "reconnect":
		var data TokenData
		if err := json.Unmarshal(msg.Data, &data); err != nil || data.Token == "" {
			c.sendJSON(map[string]interface{}{
				"type":    game.MsgReconnectFailed,
				"message": "invalid or expired token",
			})
			return
		}
		c.handleReconnect(data.Token)

	case "cancel_game":
		if !game.Manager.CancelGame(c.connID) {
			c.sendJSON(map[string]interface{}{
				"type":    game.MsgCancelFailed,
				"message": "game already started or not found",
			})
		}

	default:
		c.sendError("Unknown message type")
	}
}

func (c *Client) displayName(override string) string {
	if override != "" {
		c.name = override
	}
	if c.name == "" {
		c.name = "Player"
	}
	return c.name
}

func (c *Client) handleCreateGame(data CreateGameData) {
	name := c.displayName(data.Name)

	g, token := game.Manager.CreateGame(c.connID, c.playerID, name)
	GameHub.JoinRoom(c, g.ID)

	c.sendJSON(map[string]interface{}{
		"type":          "game_created",
		"game_id":       g.ID,
		"player_number": 1,
	})
	if token != "" {
		c.sendJSON(map[string]interface{}{
			"type":  game.MsgReconnectToken,
			"token": token,
		})
	}
	GameHub.BroadcastAll(map[string]interface{}{
		"type":  game.MsgLobbyUpdated,
		"games": game.Manager.GetOpenGames(),
	})
}

func (c *Client) handleJoinGame(data JoinGameData) {
	name := c.displayName(data.Name)

	g, token, err := game.Manager.JoinGame(data.GameID, c.connID, c.playerID, name)
	if err != nil {
		c.sendJSON(map[string]interface{}{
			"type":    game.MsgJoinFailed,
			"message": err.Error(),
		})
		return
	}
	GameHub.JoinRoom(c, g.ID)

	if token != "" {
		c.sendJSON(map[string]interface{}{
			"type":  game.MsgReconnectToken,
			"token": token,
		})
	}
	GameHub.BroadcastToGame(g.ID, map[string]interface{}{
		"type":    game.MsgMatchStarted,
		"game_id": g.ID,
		"state":   g.Snapshot(),
	})
	GameHub.BroadcastAll(map[string]interface{}{
		"type":  game.MsgLobbyUpdated,
		"games": game.Manager.GetOpenGames(),
	})
}

func (c *Client) handleCheckPending(token string) {
	sess := game.Manager.CheckPendingGame(token)
	if sess == nil {
		c.sendJSON(map[string]interface{}{"type": game.MsgNoPendingGame})
		return
	}
	c.sendJSON(map[string]interface{}{
		"type":          game.MsgPendingGameFound,
		"game_id":       sess.GameID,
		"player_number": sess.Slot,
		"name":          sess.PlayerName,
	})
}

func (c *Client) handleReconnect(token string) {
	res := game.Manager.Reconnect(token, c.connID)
	if !res.Success {
		c.sendJSON(map[string]interface{}{
			"type":    game.MsgReconnectFailed,
			"message": res.ErrorMessage,
		})
		return
	}

	c.name = res.PlayerName
	GameHub.JoinRoom(c, res.GameID)

	reply := map[string]interface{}{
		"type":          game.MsgReconnected,
		"game_id":       res.GameID,
		"player_number": res.Slot,
	}
	if g, err := game.Manager.GetGame(res.GameID); err == nil {
		reply["state"] = g.Snapshot()
	}
	c.sendJSON(reply)

	if res.Resumed {
		GameHub.BroadcastToGame(res.GameID, map[string]interface{}{
			"type": game.MsgGameResumed,
		})
	}
}

func (c *Client) sendJSON(message interface{}) {
	data, err := json.Marshal(message)
	if err != nil {
		log.Printf("Error marshaling message: %v", err)
		return
	}
	select {
	case c.send <- data:
	default:
		log.Printf("[WS] send buffer full for %s, dropping message", c.connID)
	}
}
