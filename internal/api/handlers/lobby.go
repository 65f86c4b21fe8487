package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/playpong/backend/internal/game"
)

// GetLobby lists games waiting for an opponent. The same list is pushed over
// the websocket on every lobby change; this endpoint serves the initial page
// load.
func GetLobby(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"games": game.Manager.GetOpenGames(),
	})
}
