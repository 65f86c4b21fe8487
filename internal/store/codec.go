package store

import (
	"strconv"
	"time"

	"github.com/playpong/backend/internal/game"
)

// Game hashes are stored field-by-field rather than as a JSON blob so the
// periodic sync can overwrite just the mutable fields.

func serializeGame(g *game.Game) map[string]string {
	fields := map[string]string{
		"id":         g.ID,
		"status":     string(g.Status),
		"ball_x":     formatFloat(g.Ball.X),
		"ball_y":     formatFloat(g.Ball.Y),
		"ball_vx":    formatFloat(g.Ball.VX),
		"ball_vy":    formatFloat(g.Ball.VY),
		"paddle1_y":  formatFloat(g.Paddle1.Y),
		"paddle2_y":  formatFloat(g.Paddle2.Y),
		"created_at": g.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
	writePlayer(fields, 1, g.Player1)
	writePlayer(fields, 2, g.Player2)
	return fields
}

func serializeMutable(g *game.Game) map[string]string {
	fields := map[string]string{
		"status":    string(g.Status),
		"ball_x":    formatFloat(g.Ball.X),
		"ball_y":    formatFloat(g.Ball.Y),
		"ball_vx":   formatFloat(g.Ball.VX),
		"ball_vy":   formatFloat(g.Ball.VY),
		"paddle1_y": formatFloat(g.Paddle1.Y),
		"paddle2_y": formatFloat(g.Paddle2.Y),
	}
	if g.Player1 != nil {
		fields["player1_score"] = strconv.Itoa(g.Player1.Score)
	}
	if g.Player2 != nil {
		fields["player2_score"] = strconv.Itoa(g.Player2.Score)
	}
	return fields
}

func writePlayer(fields map[string]string, slot int, p *game.Player) {
	if p == nil {
		return
	}
	prefix := "player" + strconv.Itoa(slot) + "_"
	fields[prefix+"id"] = p.PlayerID
	fields[prefix+"conn"] = p.ConnID
	fields[prefix+"name"] = p.Name
	fields[prefix+"score"] = strconv.Itoa(p.Score)
	fields[prefix+"connected"] = strconv.FormatBool(p.Connected)
}

// deserializeGame rebuilds a game from its hash fields. Returns nil when the
// hash is empty or lacks an id (partially deleted key).
func deserializeGame(fields map[string]string) *game.Game {
	id, ok := fields["id"]
	if !ok || id == "" {
		return nil
	}

	g := &game.Game{ID: id, Status: game.StatusWaiting}

	if s, ok := fields["status"]; ok {
		g.Status = game.GameStatus(s)
	}
	g.Ball.X = parseFloat(fields["ball_x"])
	g.Ball.Y = parseFloat(fields["ball_y"])
	g.Ball.VX = parseFloat(fields["ball_vx"])
	g.Ball.VY = parseFloat(fields["ball_vy"])
	g.Paddle1.Y = parseFloat(fields["paddle1_y"])
	g.Paddle2.Y = parseFloat(fields["paddle2_y"])
	if s, ok := fields["created_at"]; ok {
		if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
			g.CreatedAt = t
		}
	}

	g.Player1 = readPlayer(fields, 1)
	g.Player2 = readPlayer(fields, 2)
	return g
}

func readPlayer(fields map[string]string, slot int) *game.Player {
	prefix := "player" + strconv.Itoa(slot) + "_"
	playerID, okID := fields[prefix+"id"]
	name, okName := fields[prefix+"name"]
	if !okID && !okName {
		return nil
	}
	p := &game.Player{
		PlayerID: playerID,
		ConnID:   fields[prefix+"conn"],
		Name:     name,
	}
	if s, ok := fields[prefix+"score"]; ok {
		p.Score, _ = strconv.Atoi(s)
	}
	if s, ok := fields[prefix+"connected"]; ok {
		p.Connected, _ = strconv.ParseBool(s)
	}
	return p
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func parseFloat(s string) float64 {
	v, _ := strconv.ParseFloat(s, 64)
	return v
}
