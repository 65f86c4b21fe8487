// Package stats records match outcomes in PostgreSQL. Writes happen on
// background goroutines so the game loop never blocks on the database;
// failures are logged and the match result on the wire is unaffected.
package stats

import (
	"log"

	"github.com/jmoiron/sqlx"

	"github.com/playpong/backend/internal/game"
)

// Recorder persists per-player win/loss counters and match history rows.
type Recorder struct {
	db *sqlx.DB
}

func NewRecorder(db *sqlx.DB) *Recorder {
	return &Recorder{db: db}
}

// RecordMatchResult bumps the winner's and loser's counters. Fire-and-forget.
func (r *Recorder) RecordMatchResult(winner, loser game.MatchParticipant) {
	if r == nil || r.db == nil {
		return
	}
	go func() {
		if err := r.upsertResult(winner.PlayerID, winner.Name, true); err != nil {
			log.Printf("[DB] failed to record win for %s: %v", winner.PlayerID, err)
		}
		if err := r.upsertResult(loser.PlayerID, loser.Name, false); err != nil {
			log.Printf("[DB] failed to record loss for %s: %v", loser.PlayerID, err)
		}
	}()
}

func (r *Recorder) upsertResult(playerID, name string, won bool) error {
	wins, losses := 0, 1
	if won {
		wins, losses = 1, 0
	}
	_, err := r.db.Exec(`
		INSERT INTO player_stats (player_id, display_name, wins, losses, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		ON CONFLICT (player_id) DO UPDATE SET
			display_name = EXCLUDED.display_name,
			wins = player_stats.wins + EXCLUDED.wins,
			losses = player_stats.losses + EXCLUDED.losses,
			updated_at = NOW()`,
		playerID, name, wins, losses)
	return err
}

// RecordMatchHistory appends one row per finished match. Fire-and-forget.
func (r *Recorder) RecordMatchHistory(winnerName string, p1, p2 game.MatchParticipant) {
	if r == nil || r.db == nil {
		return
	}
	go func() {
		_, err := r.db.Exec(`
			INSERT INTO match_history (player1_id, player1_name, player1_score, player2_id, player2_name, player2_score, winner_name, played_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())`,
			p1.PlayerID, p1.Name, p1.Score, p2.PlayerID, p2.Name, p2.Score, winnerName)
		if err != nil {
			log.Printf("[DB] failed to record match history (%s vs %s): %v", p1.PlayerID, p2.PlayerID, err)
		}
	}()
}

// LeaderboardEntry is one row of the public leaderboard.
type LeaderboardEntry struct {
	PlayerID    string `db:"player_id" json:"player_id"`
	DisplayName string `db:"display_name" json:"display_name"`
	Wins        int    `db:"wins" json:"wins"`
	Losses      int    `db:"losses" json:"losses"`
}

// Leaderboard returns the top players ordered by wins.
func (r *Recorder) Leaderboard(limit int) ([]LeaderboardEntry, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	var entries []LeaderboardEntry
	err := r.db.Select(&entries, `
		SELECT player_id, display_name, wins, losses
		FROM player_stats
		ORDER BY wins DESC, losses ASC
		LIMIT $1`, limit)
	return entries, err
}
