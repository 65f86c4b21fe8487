package game

import (
	"context"
	"time"
)

// TokenSession is what a reconnect token resolves to.
type TokenSession struct {
	GameID     string `json:"game_id"`
	Slot       int    `json:"slot"`
	PlayerName string `json:"player_name"`
}

// Store is the durable state gateway used for crash recovery and best-effort
// live-state sync. The in-memory registry is always authoritative while the
// process is live; every Store failure is logged and swallowed by the caller,
// never surfaced to a player-facing operation.
type Store interface {
	// CreateGame persists a full new game hash and indexes it as open.
	CreateGame(ctx context.Context, g *Game) error
	// SaveGame persists a full game hash without touching phase indexes
	// (used when pulling a recovered game back into memory).
	SaveGame(ctx context.Context, g *Game) error
	// SetPlayerJoined persists slot 2 and the WAITING→PLAYING transition.
	SetPlayerJoined(ctx context.Context, g *Game) error
	// SyncGameState pushes the mutable fields (ball, paddles, scores, status).
	SyncGameState(ctx context.Context, g *Game) error
	// SetGamePhase updates the status field and the open/playing/paused indexes.
	SetGamePhase(ctx context.Context, gameID string, status GameStatus) error
	// RemoveGame deletes the game hash and all its index entries.
	RemoveGame(ctx context.Context, gameID string) error

	SetConnMapping(ctx context.Context, connID, gameID string) error
	RemoveConnMapping(ctx context.Context, connID string) error
	SetPlayerConnected(ctx context.Context, gameID string, slot int, connected bool, connID string) error

	SaveReconnectToken(ctx context.Context, token string, sess TokenSession, ttl time.Duration) error
	// GetReconnectToken returns (nil, nil) for an absent or expired token.
	GetReconnectToken(ctx context.Context, token string) (*TokenSession, error)
	RemoveReconnectToken(ctx context.Context, token string) error
	// RemoveGameTokens invalidates every outstanding token for a game.
	RemoveGameTokens(ctx context.Context, gameID string) error

	// LoadGame returns (nil, nil) when the game is not persisted.
	LoadGame(ctx context.Context, gameID string) (*Game, error)
	LoadAllGames(ctx context.Context) ([]*Game, error)
}
