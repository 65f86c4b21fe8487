package handlers

import (
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/playpong/backend/internal/stats"
)

// GetLeaderboard returns the top players by wins.
func GetLeaderboard(recorder *stats.Recorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		if recorder == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "stats unavailable"})
			return
		}
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
		entries, err := recorder.Leaderboard(limit)
		if err != nil {
			log.Printf("[DB] leaderboard query failed: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"leaderboard": entries})
	}
}
