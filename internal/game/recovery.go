package game

import (
	"context"
	"log"
	"time"

	"github.com/playpong/backend/internal/metrics"
)

// RecoverFromStore rehydrates the registry on startup, before the tick
// driver runs. Every connection handle in the store is stale after a
// restart, so recovered PLAYING games are demoted to PAUSED with a fresh
// grace deadline and both slots are marked disconnected; clients come back
// through the ordinary token reconnection path. A store failure here means
// starting empty, nothing worse.
func (gm *GameManager) RecoverFromStore() {
	if gm.store == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	games, err := gm.store.LoadAllGames(ctx)
	if err != nil {
		log.Printf("[RECOVER] Failed to load state from store, starting fresh: %v", err)
		return
	}

	grace := gm.recoveryGrace()
	deadline := time.Now().Add(grace)
	recovered := 0

	for _, g := range games {
		if g.Status == StatusFinished {
			gm.persistRemoveRecovered(g.ID)
			continue
		}

		for _, p := range []*Player{g.Player1, g.Player2} {
			if p != nil {
				p.Connected = false
				p.ConnID = ""
			}
		}

		if g.Status == StatusPlaying {
			g.Status = StatusPaused
			gameID := g.ID
			gm.persist.enqueue("demote recovered game", func(ctx context.Context) error {
				if err := gm.store.SetGamePhase(ctx, gameID, StatusPaused); err != nil {
					return err
				}
				if err := gm.store.SetPlayerConnected(ctx, gameID, 1, false, ""); err != nil {
					return err
				}
				return gm.store.SetPlayerConnected(ctx, gameID, 2, false, "")
			})
		}

		gm.mu.Lock()
		gm.games[g.ID] = g
		if g.Status == StatusPaused {
			gm.pausedDeadlines[g.ID] = deadline
		}
		metrics.ActiveGames.Set(float64(len(gm.games)))
		gm.mu.Unlock()

		recovered++
		metrics.GamesRecovered.Inc()
	}

	// Connection mappings are deliberately not restored.
	log.Printf("[RECOVER] Recovered %d games from store (grace %s, playing games demoted to paused)", recovered, grace)
}

func (gm *GameManager) recoveryGrace() time.Duration {
	if gm.cfg != nil && gm.cfg.RecoveryGraceMinutes > 0 {
		return time.Duration(gm.cfg.RecoveryGraceMinutes) * time.Minute
	}
	return gm.pauseTimeout()
}

func (gm *GameManager) persistRemoveRecovered(gameID string) {
	gm.persist.enqueue("drop finished game", func(ctx context.Context) error {
		if err := gm.store.RemoveGame(ctx, gameID); err != nil {
			return err
		}
		return gm.store.RemoveGameTokens(ctx, gameID)
	})
}
