package game

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"log"
	mrand "math/rand"
	"sync"
	"time"

	"github.com/playpong/backend/internal/config"
	"github.com/playpong/backend/internal/metrics"
)

// Caller errors returned by join. Persistence errors never reach callers.
var (
	ErrGameNotFound = errors.New("game not found")
	ErrNotJoinable  = errors.New("game not found or already started")
)

// MatchParticipant carries the identity and final score handed to the stats
// collaborator when a match ends.
type MatchParticipant struct {
	PlayerID string
	Name     string
	Score    int
}

// StatsRecorder is the external stats/leaderboard and match-history
// collaborator. Both calls are fire-and-forget: implementations must not
// block the caller and must swallow their own failures.
type StatsRecorder interface {
	RecordMatchResult(winner, loser MatchParticipant)
	RecordMatchHistory(winnerName string, p1, p2 MatchParticipant)
}

// GameManager owns every live game session. All registry mutation happens
// under mu; physics mutation happens only on the tick driver goroutine.
type GameManager struct {
	games           map[string]*Game     // game ID -> game
	connToGame      map[string]string    // connection ID -> game ID
	pausedDeadlines map[string]time.Time // game ID -> eviction deadline
	store           Store         // may be nil (runs memory-only)
	stats           StatsRecorder // may be nil
	notifier        Notifier
	cfg             *config.Config
	persist         *persistQueue
	rng             *mrand.Rand
	rngMu           sync.Mutex
	frameCount      int
	stopCh          chan struct{}
	mu              sync.RWMutex
}

// Global game manager instance
var Manager *GameManager

// InitializeManager builds the global manager, recovers persisted state and
// starts the tick driver and timeout sweeper.
func InitializeManager(st Store, stats StatsRecorder, cfg *config.Config) {
	Manager = NewGameManager(st, stats, cfg)
	Manager.RecoverFromStore()
	go Manager.StartTickDriver()
	go Manager.StartTimeoutSweeper()
}

// NewGameManager creates a manager without starting its background drivers.
func NewGameManager(st Store, stats StatsRecorder, cfg *config.Config) *GameManager {
	return &GameManager{
		games:           make(map[string]*Game),
		connToGame:      make(map[string]string),
		pausedDeadlines: make(map[string]time.Time),
		store:           st,
		stats:           stats,
		notifier:        nopNotifier{},
		cfg:             cfg,
		persist:         newPersistQueue(),
		rng:             mrand.New(mrand.NewSource(time.Now().UnixNano())),
		stopCh:          make(chan struct{}),
	}
}

// SetNotifier wires the websocket layer in. Must be called before any client
// traffic; defaults to a no-op sink so tests can run headless.
func (gm *GameManager) SetNotifier(n Notifier) {
	if n != nil {
		gm.notifier = n
	}
}

// Stop halts the background drivers.
func (gm *GameManager) Stop() {
	close(gm.stopCh)
}

// generateToken generates a secure random token
func generateToken(length int) string {
	bytes := make([]byte, length)
	rand.Read(bytes)
	return hex.EncodeToString(bytes)
}

// generateGameID generates a unique game ID
func generateGameID() string {
	return "game_" + generateToken(4)
}

// CreateGame opens a new session hosted by the caller and returns it together
// with the host's reconnect token. The token is empty when no store is
// configured (rejoin after a crash is not possible then).
func (gm *GameManager) CreateGame(connID, playerID, name string) (*Game, string) {
	g := &Game{
		ID:        generateGameID(),
		Player1:   &Player{ConnID: connID, PlayerID: playerID, Name: name, Connected: true},
		Status:    StatusWaiting,
		CreatedAt: time.Now().UTC(),
	}
	gm.withRNG(func(rng *mrand.Rand) { ResetBall(g, rng) })
	CenterPaddles(g)

	gm.mu.Lock()
	gm.games[g.ID] = g
	gm.connToGame[connID] = g.ID
	metrics.ActiveGames.Set(float64(len(gm.games)))
	gm.mu.Unlock()

	log.Printf("[GAME] Created game %s (host=%s)", g.ID, name)

	gm.persistCreate(g, connID)
	token := gm.mintReconnectToken(g.ID, 1, name)
	return g, token
}

// JoinGame fills slot 2 and starts the match.
func (gm *GameManager) JoinGame(gameID, connID, playerID, name string) (*Game, string, error) {
	gm.mu.Lock()
	g, exists := gm.games[gameID]
	if !exists {
		gm.mu.Unlock()
		return nil, "", ErrGameNotFound
	}
	next, ok := NextStatus(g.Status, EventOpponentJoined)
	if !ok {
		gm.mu.Unlock()
		return nil, "", ErrNotJoinable
	}
	g.Player2 = &Player{ConnID: connID, PlayerID: playerID, Name: name, Connected: true}
	g.Status = next
	gm.connToGame[connID] = gameID
	// snapshot before unlocking: the tick driver may start advancing the
	// game the moment the lock is released
	snapshot := g.Clone()
	gm.mu.Unlock()

	log.Printf("[GAME] Player %s joined game %s - match starting", name, gameID)

	if gm.store != nil {
		gm.persist.enqueue("join game", func(ctx context.Context) error {
			if err := gm.store.SetPlayerJoined(ctx, snapshot); err != nil {
				return err
			}
			if err := gm.store.SetConnMapping(ctx, connID, gameID); err != nil {
				return err
			}
			return gm.store.SetPlayerConnected(ctx, gameID, 2, true, connID)
		})
	}
	token := gm.mintReconnectToken(gameID, 2, name)
	return g, token, nil
}

// GetGame retrieves a game by ID.
func (gm *GameManager) GetGame(gameID string) (*Game, error) {
	gm.mu.RLock()
	defer gm.mu.RUnlock()
	g, exists := gm.games[gameID]
	if !exists {
		return nil, ErrGameNotFound
	}
	return g, nil
}

// GetGameForConn retrieves the game owning a connection, or nil.
func (gm *GameManager) GetGameForConn(connID string) *Game {
	gm.mu.RLock()
	defer gm.mu.RUnlock()
	gameID, exists := gm.connToGame[connID]
	if !exists {
		return nil
	}
	return gm.games[gameID]
}

// GetOpenGames lists joinable games for the lobby.
func (gm *GameManager) GetOpenGames() []LobbyEntry {
	gm.mu.RLock()
	defer gm.mu.RUnlock()

	open := make([]LobbyEntry, 0)
	for _, g := range gm.games {
		if g.Status == StatusWaiting && g.Player1 != nil {
			open = append(open, LobbyEntry{GameID: g.ID, HostName: g.Player1.Name})
		}
	}
	return open
}

// UpdatePaddle applies a clamped paddle move for the caller's connection.
// Unknown connections are ignored silently: paddle input racing a disconnect
// is expected traffic, not an error.
func (gm *GameManager) UpdatePaddle(connID string, y float64) {
	gm.mu.RLock()
	gameID, exists := gm.connToGame[connID]
	if !exists {
		gm.mu.RUnlock()
		return
	}
	g, exists := gm.games[gameID]
	gm.mu.RUnlock()
	if !exists {
		return
	}

	y = ClampPaddleY(y)
	switch g.SlotByConn(connID) {
	case 1:
		g.Paddle1.Y = y
	case 2:
		g.Paddle2.Y = y
	}
}

// CancelGame cancels the caller's game while it is still waiting for an
// opponent. Returns false once a match has started (or for unknown conns).
func (gm *GameManager) CancelGame(connID string) bool {
	gm.mu.Lock()
	gameID, exists := gm.connToGame[connID]
	if !exists {
		gm.mu.Unlock()
		return false
	}
	g, exists := gm.games[gameID]
	if !exists || g.Status != StatusWaiting {
		gm.mu.Unlock()
		return false
	}
	gm.removeGameLocked(g)
	gm.mu.Unlock()

	log.Printf("[GAME] Game %s cancelled by host", gameID)
	gm.notifier.BroadcastAll(map[string]interface{}{
		"type":  MsgLobbyUpdated,
		"games": gm.GetOpenGames(),
	})
	return true
}

// removeGameLocked drops a game and all its registry entries, and schedules
// store cleanup. Caller holds mu.
func (gm *GameManager) removeGameLocked(g *Game) {
	delete(gm.games, g.ID)
	delete(gm.pausedDeadlines, g.ID)
	for _, p := range []*Player{g.Player1, g.Player2} {
		if p != nil && gm.connToGame[p.ConnID] == g.ID {
			delete(gm.connToGame, p.ConnID)
		}
	}
	metrics.ActiveGames.Set(float64(len(gm.games)))

	if gm.store == nil {
		return
	}
	gameID := g.ID
	conns := make([]string, 0, 2)
	for _, p := range []*Player{g.Player1, g.Player2} {
		if p != nil && p.ConnID != "" {
			conns = append(conns, p.ConnID)
		}
	}
	gm.persist.enqueue("remove game", func(ctx context.Context) error {
		if err := gm.store.RemoveGame(ctx, gameID); err != nil {
			return err
		}
		if err := gm.store.RemoveGameTokens(ctx, gameID); err != nil {
			return err
		}
		for _, connID := range conns {
			if err := gm.store.RemoveConnMapping(ctx, connID); err != nil {
				return err
			}
		}
		return nil
	})
}

// finishMatch ends a playing game with a winner, notifies both participants
// and dispatches stats. The in-memory transition is unconditional; every
// downstream write is best-effort.
func (gm *GameManager) finishMatch(g *Game, winnerSlot int) {
	gm.mu.Lock()
	next, ok := NextStatus(g.Status, EventWin)
	if !ok {
		gm.mu.Unlock()
		return
	}
	g.Status = next
	winner := g.PlayerBySlot(winnerSlot)
	loser := g.PlayerBySlot(3 - winnerSlot)
	gm.removeGameLocked(g)
	gm.mu.Unlock()

	log.Printf("[GAME] Game %s finished - %s wins %d:%d", g.ID, winner.Name, winner.Score, loser.Score)
	metrics.MatchesFinished.WithLabelValues("win").Inc()

	ended := map[string]interface{}{
		"type":   MsgGameEnded,
		"winner": winner.Name,
		"reason": "win",
	}
	gm.notifier.SendToConn(winner.ConnID, ended)
	gm.notifier.SendToConn(loser.ConnID, ended)

	if gm.stats != nil {
		w := MatchParticipant{PlayerID: winner.PlayerID, Name: winner.Name, Score: winner.Score}
		l := MatchParticipant{PlayerID: loser.PlayerID, Name: loser.Name, Score: loser.Score}
		gm.stats.RecordMatchResult(w, l)
		gm.stats.RecordMatchHistory(winner.Name, w, l)
	}
}

// persistCreate pushes a freshly created game to the store.
func (gm *GameManager) persistCreate(g *Game, connID string) {
	if gm.store == nil {
		return
	}
	snapshot := g.Clone()
	gm.persist.enqueue("create game", func(ctx context.Context) error {
		if err := gm.store.CreateGame(ctx, snapshot); err != nil {
			return err
		}
		if err := gm.store.SetConnMapping(ctx, connID, snapshot.ID); err != nil {
			return err
		}
		return gm.store.SetPlayerConnected(ctx, snapshot.ID, 1, true, connID)
	})
}

// mintReconnectToken issues a bearer token binding a future connection to a
// slot. Empty without a store: the token would not survive a crash anyway.
func (gm *GameManager) mintReconnectToken(gameID string, slot int, name string) string {
	if gm.store == nil {
		return ""
	}
	token := generateToken(16)
	sess := TokenSession{GameID: gameID, Slot: slot, PlayerName: name}
	ttl := gm.tokenExpiry()
	gm.persist.enqueue("save reconnect token", func(ctx context.Context) error {
		return gm.store.SaveReconnectToken(ctx, token, sess, ttl)
	})
	return token
}

func (gm *GameManager) tokenExpiry() time.Duration {
	if gm.cfg != nil && gm.cfg.ReconnectTokenExpiryMinutes > 0 {
		return time.Duration(gm.cfg.ReconnectTokenExpiryMinutes) * time.Minute
	}
	return 10 * time.Minute
}

func (gm *GameManager) pauseTimeout() time.Duration {
	if gm.cfg != nil && gm.cfg.PauseTimeoutMinutes > 0 {
		return time.Duration(gm.cfg.PauseTimeoutMinutes) * time.Minute
	}
	return 10 * time.Minute
}

func (gm *GameManager) tickInterval() time.Duration {
	if gm.cfg != nil && gm.cfg.TickRateHz > 0 {
		return time.Second / time.Duration(gm.cfg.TickRateHz)
	}
	return TickInterval
}

func (gm *GameManager) syncIntervalFrames() int {
	if gm.cfg != nil && gm.cfg.SyncIntervalFrames > 0 {
		return gm.cfg.SyncIntervalFrames
	}
	return SyncIntervalFrames
}

func (gm *GameManager) winScore() int {
	if gm.cfg != nil && gm.cfg.WinScore > 0 {
		return gm.cfg.WinScore
	}
	return WinScore
}

// withRNG runs fn with the shared rand source. The tick driver and callers
// both serve, so access is serialized.
func (gm *GameManager) withRNG(fn func(rng *mrand.Rand)) {
	gm.rngMu.Lock()
	fn(gm.rng)
	gm.rngMu.Unlock()
}

// GetActiveGameCount returns the number of games resident in the registry.
func (gm *GameManager) GetActiveGameCount() int {
	gm.mu.RLock()
	defer gm.mu.RUnlock()
	return len(gm.games)
}
