package game

// Outbound notification types. The websocket layer delivers these verbatim
// as the "type" field of each message.
const (
	MsgLobbyUpdated         = "lobby_updated"
	MsgMatchStarted         = "match_started"
	MsgGameState            = "game_state"
	MsgGameEnded            = "game_ended"
	MsgJoinFailed           = "join_failed"
	MsgReconnectToken       = "reconnect_token"
	MsgPendingGameFound     = "pending_game_found"
	MsgNoPendingGame        = "no_pending_game"
	MsgReconnected          = "reconnected"
	MsgReconnectFailed      = "reconnect_failed"
	MsgOpponentDisconnected = "opponent_disconnected"
	MsgGamePaused           = "game_paused"
	MsgGameResumed          = "game_resumed"
	MsgCancelFailed         = "cancel_failed"
)

// Notifier is the outbound port to connected clients. Implementations must
// never block: a slow client gets its message dropped, not the tick driver
// stalled.
type Notifier interface {
	// SendToConn delivers a message to one connection if it is still open.
	SendToConn(connID string, message interface{})
	// BroadcastAll delivers a message to every connected client.
	BroadcastAll(message interface{})
}

// nopNotifier lets the manager run without a websocket layer (tests).
type nopNotifier struct{}

func (nopNotifier) SendToConn(string, interface{}) {}
func (nopNotifier) BroadcastAll(interface{})       {}
