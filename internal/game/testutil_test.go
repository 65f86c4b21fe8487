package game

import (
	"context"
	"sync"
	"time"
)

// fakeStore is an in-memory Store for tests. Writes land synchronously so
// tests can seed and inspect it directly.
type fakeStore struct {
	mu     sync.Mutex
	games  map[string]*Game
	conns  map[string]string
	tokens map[string]TokenSession
	fail   bool // when set, every call errors
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		games:  make(map[string]*Game),
		conns:  make(map[string]string),
		tokens: make(map[string]TokenSession),
	}
}

// copyGame mimics a serialization round trip: the stored game shares nothing
// with the live one.
func copyGame(g *Game) *Game {
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

var errStoreDown = context.DeadlineExceeded

func (s *fakeStore) CreateGame(_ context.Context, g *Game) error {
	return s.save(g)
}

func (s *fakeStore) SaveGame(_ context.Context, g *Game) error {
	return s.save(g)
}

func (s *fakeStore) SetPlayerJoined(_ context.Context, g *Game) error {
	return s.save(g)
}

func (s *fakeStore) SyncGameState(_ context.Context, g *Game) error {
	return s.save(g)
}

func (s *fakeStore) save(g *Game) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return errStoreDown
	}
	s.games[g.ID] = copyGame(g)
	return nil
}

func (s *fakeStore) SetGamePhase(_ context.Context, gameID string, status GameStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return errStoreDown
	}
	if g, ok := s.games[gameID]; ok {
		g.Status = status
	}
	return nil
}

func (s *fakeStore) RemoveGame(_ context.Context, gameID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.games, gameID)
	return nil
}

func (s *fakeStore) SetConnMapping(_ context.Context, connID, gameID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conns[connID] = gameID
	return nil
}

func (s *fakeStore) RemoveConnMapping(_ context.Context, connID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.conns, connID)
	return nil
}

func (s *fakeStore) SetPlayerConnected(_ context.Context, gameID string, slot int, connected bool, connID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if g, ok := s.games[gameID]; ok {
		if p := g.PlayerBySlot(slot); p != nil {
			p.Connected = connected
			p.ConnID = connID
		}
	}
	return nil
}

func (s *fakeStore) SaveReconnectToken(_ context.Context, token string, sess TokenSession, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return errStoreDown
	}
	s.tokens[token] = sess
	return nil
}

func (s *fakeStore) GetReconnectToken(_ context.Context, token string) (*TokenSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return nil, errStoreDown
	}
	sess, ok := s.tokens[token]
	if !ok {
		return nil, nil
	}
	return &sess, nil
}

func (s *fakeStore) RemoveReconnectToken(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tokens, token)
	return nil
}

func (s *fakeStore) RemoveGameTokens(_ context.Context, gameID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for token, sess := range s.tokens {
		if sess.GameID == gameID {
			delete(s.tokens, token)
		}
	}
	return nil
}

func (s *fakeStore) LoadGame(_ context.Context, gameID string) (*Game, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return nil, errStoreDown
	}
	g, ok := s.games[gameID]
	if !ok {
		return nil, nil
	}
	return copyGame(g), nil
}

func (s *fakeStore) LoadAllGames(_ context.Context) ([]*Game, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return nil, errStoreDown
	}
	out := make([]*Game, 0, len(s.games))
	for _, g := range s.games {
		out = append(out, copyGame(g))
	}
	return out, nil
}

// seedGame puts a game straight into the store, bypassing the manager.
func (s *fakeStore) seedGame(g *Game) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.games[g.ID] = copyGame(g)
}

// seedToken puts a token straight into the store.
func (s *fakeStore) seedToken(token string, sess TokenSession) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[token] = sess
}

// recordingNotifier captures every outbound message.
type recordingNotifier struct {
	mu   sync.Mutex
	sent []sentMessage
}

type sentMessage struct {
	connID  string // empty for broadcasts
	msgType string
}

func msgType(message interface{}) string {
	if m, ok := message.(map[string]interface{}); ok {
		if t, ok := m["type"].(string); ok {
			return t
		}
	}
	return ""
}

func (n *recordingNotifier) SendToConn(connID string, message interface{}) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sentMessage{connID: connID, msgType: msgType(message)})
}

func (n *recordingNotifier) BroadcastAll(message interface{}) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sentMessage{msgType: msgType(message)})
}

// received reports how many messages of a type went to a connection.
func (n *recordingNotifier) received(connID, wantType string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	count := 0
	for _, m := range n.sent {
		if m.connID == connID && m.msgType == wantType {
			count++
		}
	}
	return count
}

// fakeStats counts recorder calls.
type fakeStats struct {
	mu      sync.Mutex
	results int
	history int
	winner  string
}

func (f *fakeStats) RecordMatchResult(winner, loser MatchParticipant) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.results++
	f.winner = winner.PlayerID
}

func (f *fakeStats) RecordMatchHistory(string, MatchParticipant, MatchParticipant) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.history++
}

// newTestManager builds a manager with fakes and no background drivers.
func newTestManager(st Store) (*GameManager, *recordingNotifier, *fakeStats) {
	notifier := &recordingNotifier{}
	stats := &fakeStats{}
	gm := NewGameManager(st, stats, nil)
	gm.SetNotifier(notifier)
	return gm, notifier, stats
}
