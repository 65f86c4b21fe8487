package game

import (
	"context"
	"log"
	"time"

	"github.com/playpong/backend/internal/metrics"
)

// ReconnectResult is the outcome of a token redemption.
type ReconnectResult struct {
	Success      bool
	GameID       string
	Slot         int
	PlayerName   string
	Resumed      bool // the redemption promoted the game back to PLAYING
	ErrorMessage string
}

// HandleDisconnect reacts to a dropped connection: a waiting game is
// destroyed outright, a playing game is demoted to PAUSED with an eviction
// deadline, and the remaining participant is told to hold on.
func (gm *GameManager) HandleDisconnect(connID string) {
	gm.mu.Lock()
	gameID, exists := gm.connToGame[connID]
	if !exists {
		gm.mu.Unlock()
		return
	}
	g, exists := gm.games[gameID]
	if !exists {
		delete(gm.connToGame, connID)
		gm.mu.Unlock()
		return
	}

	slot := g.SlotByConn(connID)
	delete(gm.connToGame, connID)

	// A connection that no longer owns a slot was superseded by a
	// reconnect; its late drop must not pause a live match.
	if slot == 0 {
		gm.mu.Unlock()
		return
	}

	// Nothing to resume while waiting for an opponent.
	if g.Status == StatusWaiting {
		gm.removeGameLocked(g)
		gm.mu.Unlock()

		log.Printf("[GAME] Host left waiting game %s - removed", gameID)
		gm.notifier.BroadcastAll(map[string]interface{}{
			"type":  MsgLobbyUpdated,
			"games": gm.GetOpenGames(),
		})
		return
	}

	if p := g.PlayerBySlot(slot); p != nil {
		p.Connected = false
	}

	paused := false
	if next, ok := NextStatus(g.Status, EventDisconnect); ok {
		g.Status = next
		gm.pausedDeadlines[gameID] = time.Now().Add(gm.pauseTimeout())
		paused = true
	}
	var otherConn string
	if other := g.PlayerBySlot(3 - slot); other != nil && other.Connected {
		otherConn = other.ConnID
	}
	gm.mu.Unlock()

	if gm.store != nil {
		gm.persist.enqueue("persist disconnect", func(ctx context.Context) error {
			if err := gm.store.SetPlayerConnected(ctx, gameID, slot, false, ""); err != nil {
				return err
			}
			if err := gm.store.RemoveConnMapping(ctx, connID); err != nil {
				return err
			}
			if paused {
				return gm.store.SetGamePhase(ctx, gameID, StatusPaused)
			}
			return nil
		})
	}

	if paused {
		log.Printf("[GAME] Game %s paused - player %d disconnected", gameID, slot)
	}
	if otherConn != "" {
		gm.notifier.SendToConn(otherConn, map[string]interface{}{"type": MsgOpponentDisconnected})
		if paused {
			gm.notifier.SendToConn(otherConn, map[string]interface{}{"type": MsgGamePaused})
		}
	}
}

// Reconnect redeems a token and rebinds the slot to a new connection. The
// token stays valid until expiry or session destruction; the session phase
// alone decides the effect of a redemption.
func (gm *GameManager) Reconnect(token, newConnID string) ReconnectResult {
	if gm.store == nil {
		return ReconnectResult{ErrorMessage: "invalid or expired token"}
	}

	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	sess, err := gm.store.GetReconnectToken(ctx, token)
	if err != nil {
		log.Printf("[RECONNECT] Token lookup failed: %v", err)
		return ReconnectResult{ErrorMessage: "reconnection failed"}
	}
	if sess == nil {
		return ReconnectResult{ErrorMessage: "invalid or expired token"}
	}

	gm.mu.Lock()
	g, resident := gm.games[sess.GameID]
	gm.mu.Unlock()

	if !resident {
		g = gm.loadGameFromStore(ctx, sess.GameID)
		if g == nil {
			gm.persist.enqueue("remove dead token", func(ctx context.Context) error {
				return gm.store.RemoveReconnectToken(ctx, token)
			})
			return ReconnectResult{ErrorMessage: "game no longer exists"}
		}
	}

	gm.mu.Lock()
	p := g.PlayerBySlot(sess.Slot)
	if p == nil {
		gm.mu.Unlock()
		return ReconnectResult{ErrorMessage: "player not found in game"}
	}
	// The new connection supersedes the old one; drop the old mapping so a
	// late disconnect of the dead socket cannot touch this game.
	if p.ConnID != "" && gm.connToGame[p.ConnID] == sess.GameID {
		delete(gm.connToGame, p.ConnID)
	}
	p.ConnID = newConnID
	p.Connected = true
	gm.connToGame[newConnID] = sess.GameID

	resumed := false
	if g.Status == StatusPaused && g.BothConnected() {
		if next, ok := NextStatus(g.Status, EventReconnected); ok {
			g.Status = next
			delete(gm.pausedDeadlines, sess.GameID)
			resumed = true
		}
	}
	gm.mu.Unlock()

	slot := sess.Slot
	gameID := sess.GameID
	gm.persist.enqueue("persist reconnect", func(ctx context.Context) error {
		if err := gm.store.SetPlayerConnected(ctx, gameID, slot, true, newConnID); err != nil {
			return err
		}
		if err := gm.store.SetConnMapping(ctx, newConnID, gameID); err != nil {
			return err
		}
		if resumed {
			return gm.store.SetGamePhase(ctx, gameID, StatusPlaying)
		}
		return nil
	})

	if resumed {
		log.Printf("[RECONNECT] Game %s resumed - both players reconnected", gameID)
	} else {
		log.Printf("[RECONNECT] Player %d reconnected to game %s", slot, gameID)
	}

	return ReconnectResult{
		Success:    true,
		GameID:     gameID,
		Slot:       slot,
		PlayerName: sess.PlayerName,
		Resumed:    resumed,
	}
}

// loadGameFromStore pulls a persisted game back into the registry. Connection
// handles in the store are stale by definition, so both slots come back
// disconnected and a persisted PLAYING phase is demoted to PAUSED.
func (gm *GameManager) loadGameFromStore(ctx context.Context, gameID string) *Game {
	g, err := gm.store.LoadGame(ctx, gameID)
	if err != nil {
		log.Printf("[RECONNECT] Store load for game %s failed: %v", gameID, err)
		return nil
	}
	if g == nil {
		return nil
	}
	// a finished game is as gone as a missing one
	if g.Status == StatusFinished {
		return nil
	}

	for _, p := range []*Player{g.Player1, g.Player2} {
		if p != nil {
			p.Connected = false
			p.ConnID = ""
		}
	}

	gm.mu.Lock()
	if existing, ok := gm.games[g.ID]; ok { // lost the race, keep the resident one
		gm.mu.Unlock()
		return existing
	}
	if g.Status == StatusPlaying {
		g.Status = StatusPaused
	}
	if g.Status == StatusPaused {
		gm.pausedDeadlines[g.ID] = time.Now().Add(gm.pauseTimeout())
	}
	gm.games[g.ID] = g
	metrics.ActiveGames.Set(float64(len(gm.games)))
	gm.mu.Unlock()

	// push the demoted phase and cleared connection state back out; the
	// copy is deep so the caller's slot rebind can't race the write
	snapshot := g.Clone()
	gm.persist.enqueue("save rehydrated game", func(ctx context.Context) error {
		return gm.store.SaveGame(ctx, snapshot)
	})

	log.Printf("[RECONNECT] Loaded game %s from store", g.ID)
	return g
}

// CheckPendingGame resolves a token without redeeming it, so a returning
// client can ask "do I still have a match?". Tokens whose game is gone are
// invalidated on the spot.
func (gm *GameManager) CheckPendingGame(token string) *TokenSession {
	if gm.store == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	sess, err := gm.store.GetReconnectToken(ctx, token)
	if err != nil {
		log.Printf("[RECONNECT] Pending check failed: %v", err)
		return nil
	}
	if sess == nil {
		return nil
	}

	gm.mu.RLock()
	_, resident := gm.games[sess.GameID]
	gm.mu.RUnlock()
	if resident {
		return sess
	}

	g, err := gm.store.LoadGame(ctx, sess.GameID)
	if err == nil && g != nil && g.Status != StatusFinished {
		return sess
	}
	gm.persist.enqueue("remove dead token", func(ctx context.Context) error {
		return gm.store.RemoveReconnectToken(ctx, token)
	})
	return nil
}

// StartTimeoutSweeper evicts paused games whose reconnection deadline has
// elapsed. Runs until Stop.
func (gm *GameManager) StartTimeoutSweeper() {
	ticker := time.NewTicker(TimeoutSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			gm.sweepPauseTimeouts(time.Now())
		case <-gm.stopCh:
			return
		}
	}
}

// sweepPauseTimeouts evicts every paused game past its deadline.
func (gm *GameManager) sweepPauseTimeouts(now time.Time) {
	gm.mu.RLock()
	var expired []string
	for gameID, deadline := range gm.pausedDeadlines {
		if !deadline.After(now) {
			expired = append(expired, gameID)
		}
	}
	gm.mu.RUnlock()

	for _, gameID := range expired {
		gm.mu.Lock()
		g, exists := gm.games[gameID]
		deadline, pending := gm.pausedDeadlines[gameID]
		if !exists || !pending || deadline.After(now) || g.Status != StatusPaused {
			gm.mu.Unlock()
			continue
		}
		var connected []string
		for _, p := range []*Player{g.Player1, g.Player2} {
			if p != nil && p.Connected {
				connected = append(connected, p.ConnID)
			}
		}
		gm.removeGameLocked(g)
		gm.mu.Unlock()

		log.Printf("[SWEEP] Game %s timed out waiting for reconnection - evicted", gameID)
		metrics.MatchesFinished.WithLabelValues("timeout").Inc()

		for _, connID := range connected {
			gm.notifier.SendToConn(connID, map[string]interface{}{
				"type":   MsgGameEnded,
				"reason": "timeout",
				"detail": "Game timed out - opponent did not reconnect",
			})
		}
	}
}
