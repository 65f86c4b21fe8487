package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/playpong/backend/internal/auth"
	"github.com/playpong/backend/internal/config"
)

// GuestLogin issues an identity token for a display name. No password, no
// registration; the token just keeps the same player_id across reconnects
// and stats rows.
func GuestLogin(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Name string `json:"name"`
		}
		if err := c.BindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "name required"})
			return
		}
		name := strings.TrimSpace(req.Name)
		if name == "" || len(name) > 32 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "name must be 1-32 characters"})
			return
		}

		token, ident, err := auth.IssueGuestToken(cfg.JWTSecret, name)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"token":     token,
			"player_id": ident.PlayerID,
			"name":      ident.Name,
		})
	}
}
