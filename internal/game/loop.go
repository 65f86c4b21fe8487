package game

import (
	"context"
	mrand "math/rand"
	"time"

	"github.com/playpong/backend/internal/metrics"
)

// StartTickDriver runs the fixed-rate simulation loop. It is the single
// writer of physics state: one Advance per playing game per tick, a state
// broadcast to both participants every tick, and a best-effort store sync
// every SyncIntervalFrames frames. Paused games are skipped entirely.
func (gm *GameManager) StartTickDriver() {
	ticker := time.NewTicker(gm.tickInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			gm.tick()
		case <-gm.stopCh:
			return
		}
	}
}

func (gm *GameManager) tick() {
	gm.frameCount++
	shouldSync := gm.frameCount%gm.syncIntervalFrames() == 0
	metrics.TicksTotal.Inc()

	gm.mu.RLock()
	playing := make([]*Game, 0, len(gm.games))
	for _, g := range gm.games {
		if g.Status == StatusPlaying {
			playing = append(playing, g)
		}
	}
	gm.mu.RUnlock()

	for _, g := range playing {
		var outcome TickOutcome
		gm.withRNG(func(rng *mrand.Rand) { outcome = Advance(g, rng) })

		if outcome.ScoringSlot > 0 {
			if scorer := g.PlayerBySlot(outcome.ScoringSlot); scorer != nil && scorer.Score >= gm.winScore() {
				gm.finishMatch(g, outcome.ScoringSlot)
				continue
			}
		}

		gm.broadcastState(g)

		if shouldSync && gm.store != nil {
			snapshot := g.Clone() // the sync must not chase live state
			gm.persist.enqueue("sync game state", func(ctx context.Context) error {
				return gm.store.SyncGameState(ctx, snapshot)
			})
		}
	}
}

// broadcastState pushes the tick snapshot to both participants. This is the
// session's sole state propagation path.
func (gm *GameManager) broadcastState(g *Game) {
	msg := map[string]interface{}{
		"type":  MsgGameState,
		"state": g.Snapshot(),
	}
	for _, p := range []*Player{g.Player1, g.Player2} {
		if p != nil && p.Connected {
			gm.notifier.SendToConn(p.ConnID, msg)
		}
	}
}
