package game

import "time"

// GameStatus represents the lifecycle phase of a game session
type GameStatus string

const (
	StatusWaiting  GameStatus = "WAITING" // host connected, no opponent yet
	StatusPlaying  GameStatus = "PLAYING"
	StatusPaused   GameStatus = "PAUSED" // a player dropped, waiting for reconnect
	StatusFinished GameStatus = "FINISHED"
)

// Event is a lifecycle event applied to a game's phase.
type Event string

const (
	EventOpponentJoined Event = "opponent_joined"
	EventDisconnect     Event = "disconnect"
	EventReconnected    Event = "reconnected" // both slots connected again
	EventWin            Event = "win"
	EventPauseTimeout   Event = "pause_timeout"
)

// transitions is the phase transition table. A missing entry means the
// event is illegal in that phase and must be ignored or rejected; evictions
// (WAITING disconnect, PAUSED timeout) destroy the game rather than move it
// to another phase, so they carry no target here.
var transitions = map[GameStatus]map[Event]GameStatus{
	StatusWaiting: {
		EventOpponentJoined: StatusPlaying,
	},
	StatusPlaying: {
		EventDisconnect: StatusPaused,
		EventWin:        StatusFinished,
	},
	StatusPaused: {
		EventReconnected: StatusPlaying,
	},
}

// NextStatus looks up the transition table. ok is false for illegal events.
func NextStatus(from GameStatus, ev Event) (GameStatus, bool) {
	next, ok := transitions[from][ev]
	return next, ok
}

// Player represents one participant slot in a game.
type Player struct {
	ConnID    string `json:"-"` // transient websocket connection id
	PlayerID  string `json:"player_id"`
	Name      string `json:"name"`
	Score     int    `json:"score"`
	Connected bool   `json:"connected"`
}

// Ball is the ball's position and velocity in canvas units per tick.
type Ball struct {
	X  float64 `json:"x"`
	Y  float64 `json:"y"`
	VX float64 `json:"vx"`
	VY float64 `json:"vy"`
}

// Paddle is a vertical paddle offset (top edge, canvas units).
type Paddle struct {
	Y float64 `json:"y"`
}

// Game is the unit of a match. Slot 1 is always populated before slot 2.
//
// Physics fields (Ball, scores) are written only by the tick driver; paddle
// offsets are written by caller goroutines without coordination. Only clamped
// values are ever stored, so the worst case is one tick of staleness.
// Lifecycle fields (Status, Player connection state) are mutated under the
// manager's lock.
type Game struct {
	ID        string     `json:"id"`
	Player1   *Player    `json:"player1"`
	Player2   *Player    `json:"player2,omitempty"`
	Ball      Ball       `json:"ball"`
	Paddle1   Paddle     `json:"paddle1"`
	Paddle2   Paddle     `json:"paddle2"`
	Status    GameStatus `json:"status"`
	CreatedAt time.Time  `json:"created_at"`
}

// PlayerState is the per-player view sent in state snapshots.
type PlayerState struct {
	Name  string `json:"name"`
	Score int    `json:"score"`
}

// StateSnapshot is the wire form of a game's mutable state, broadcast every
// tick and on join/reconnect.
type StateSnapshot struct {
	GameID  string       `json:"game_id"`
	Ball    Ball         `json:"ball"`
	Paddle1 Paddle       `json:"paddle1"`
	Paddle2 Paddle       `json:"paddle2"`
	Player1 *PlayerState `json:"player1"`
	Player2 *PlayerState `json:"player2"`
	Status  GameStatus   `json:"status"`
}

// Snapshot captures the game's broadcastable state.
func (g *Game) Snapshot() StateSnapshot {
	s := StateSnapshot{
		GameID:  g.ID,
		Ball:    g.Ball,
		Paddle1: g.Paddle1,
		Paddle2: g.Paddle2,
		Status:  g.Status,
	}
	if g.Player1 != nil {
		s.Player1 = &PlayerState{Name: g.Player1.Name, Score: g.Player1.Score}
	}
	if g.Player2 != nil {
		s.Player2 = &PlayerState{Name: g.Player2.Name, Score: g.Player2.Score}
	}
	return s
}

// Clone returns a deep copy safe to hand to the persistence worker while
// the original keeps mutating.
func (g *Game) Clone() *Game {
	cp := *g
	if g.Player1 != nil {
		p := *g.Player1
		cp.Player1 = &p
	}
	if g.Player2 != nil {
		p := *g.Player2
		cp.Player2 = &p
	}
	return &cp
}

// PlayerBySlot returns the player in slot 1 or 2, or nil.
func (g *Game) PlayerBySlot(slot int) *Player {
	switch slot {
	case 1:
		return g.Player1
	case 2:
		return g.Player2
	}
	return nil
}

// SlotByConn returns the slot number owning the connection, or 0.
func (g *Game) SlotByConn(connID string) int {
	if g.Player1 != nil && g.Player1.ConnID == connID {
		return 1
	}
	if g.Player2 != nil && g.Player2.ConnID == connID {
		return 2
	}
	return 0
}

// BothConnected reports whether both slots are populated and connected.
func (g *Game) BothConnected() bool {
	return g.Player1 != nil && g.Player1.Connected &&
		g.Player2 != nil && g.Player2.Connected
}

// LobbyEntry is one open game as shown in the lobby.
type LobbyEntry struct {
	GameID   string `json:"game_id"`
	HostName string `json:"host_name"`
}
