package game

import (
	"testing"
	"time"
)

func TestDisconnectWhileWaitingDestroysGame(t *testing.T) {
	gm, _, _ := newTestManager(newFakeStore())

	g, _ := gm.CreateGame("conn1", "p1", "Alice")
	gm.HandleDisconnect("conn1")

	if _, err := gm.GetGame(g.ID); err != ErrGameNotFound {
		t.Errorf("Waiting game survived its host's disconnect")
	}
}

func TestDisconnectWhilePlayingPausesGame(t *testing.T) {
	gm, notifier, _ := newTestManager(nil)
	g, _, _ := createPlayingGame(gm)

	gm.HandleDisconnect("conn2")

	if g.Status != StatusPaused {
		t.Errorf("Status: got %s, want %s", g.Status, StatusPaused)
	}
	if g.Player2.Connected {
		t.Errorf("Slot 2 still marked connected")
	}
	if _, ok := gm.pausedDeadlines[g.ID]; !ok {
		t.Errorf("No eviction deadline recorded for the paused game")
	}
	if notifier.received("conn1", MsgOpponentDisconnected) != 1 {
		t.Errorf("Remaining player not told about the disconnect")
	}
	if notifier.received("conn1", MsgGamePaused) != 1 {
		t.Errorf("Remaining player not told about the pause")
	}
}

func TestReconnectResumesPausedGame(t *testing.T) {
	st := newFakeStore()
	gm, _, _ := newTestManager(st)
	g, _, _ := createPlayingGame(gm)
	st.seedToken("tok-bob", TokenSession{GameID: g.ID, Slot: 2, PlayerName: "Bob"})

	gm.HandleDisconnect("conn2")

	res := gm.Reconnect("tok-bob", "conn2b")
	if !res.Success {
		t.Fatalf("Reconnect failed: %s", res.ErrorMessage)
	}
	if !res.Resumed {
		t.Errorf("Reconnect with both slots connected did not resume")
	}
	if res.Slot != 2 || res.PlayerName != "Bob" {
		t.Errorf("Reconnect result wrong: %+v", res)
	}
	if g.Status != StatusPlaying {
		t.Errorf("Status after resume: got %s, want %s", g.Status, StatusPlaying)
	}
	if g.Player2.ConnID != "conn2b" || !g.Player2.Connected {
		t.Errorf("Slot 2 not rebound: %+v", g.Player2)
	}
	if _, ok := gm.pausedDeadlines[g.ID]; ok {
		t.Errorf("Eviction deadline survived the resume")
	}
	if gm.GetGameForConn("conn2b") != g {
		t.Errorf("Connection map not rebound to the new connection")
	}
}

func TestReconnectTokenStaysValidUntilExpiry(t *testing.T) {
	// The same token redeems again after a second drop within its TTL.
	st := newFakeStore()
	gm, _, _ := newTestManager(st)
	g, _, _ := createPlayingGame(gm)
	st.seedToken("tok-bob", TokenSession{GameID: g.ID, Slot: 2, PlayerName: "Bob"})

	gm.HandleDisconnect("conn2")
	if res := gm.Reconnect("tok-bob", "conn2b"); !res.Success {
		t.Fatalf("First redemption failed: %s", res.ErrorMessage)
	}
	gm.HandleDisconnect("conn2b")
	if res := gm.Reconnect("tok-bob", "conn2c"); !res.Success {
		t.Fatalf("Second redemption failed: %s", res.ErrorMessage)
	}
}

func TestSupersededConnectionDisconnectLeavesMatchAlone(t *testing.T) {
	// Network flap: the client redeems its token over a fresh socket before
	// the server notices the old socket died. The old socket's late drop
	// must not pause, deadline or evict the live match.
	st := newFakeStore()
	gm, _, _ := newTestManager(st)
	g, _, _ := createPlayingGame(gm)
	st.seedToken("tok-bob", TokenSession{GameID: g.ID, Slot: 2, PlayerName: "Bob"})

	res := gm.Reconnect("tok-bob", "conn2b")
	if !res.Success {
		t.Fatalf("Reconnect failed: %s", res.ErrorMessage)
	}
	if gm.GetGameForConn("conn2") != nil {
		t.Errorf("Superseded connection still mapped to the game")
	}

	gm.HandleDisconnect("conn2")

	if g.Status != StatusPlaying {
		t.Errorf("Live match paused by a superseded connection's disconnect: status=%s", g.Status)
	}
	if !g.Player2.Connected || g.Player2.ConnID != "conn2b" {
		t.Errorf("Slot 2 disturbed by the stale disconnect: %+v", g.Player2)
	}
	if _, ok := gm.pausedDeadlines[g.ID]; ok {
		t.Errorf("Eviction deadline set for a match with both players connected")
	}
	if gm.GetGameForConn("conn2b") != g {
		t.Errorf("Live connection mapping disturbed")
	}
}

func TestDisconnectOfSlotlessMappingOnlyDropsMapping(t *testing.T) {
	gm, _, _ := newTestManager(nil)
	g, _, _ := createPlayingGame(gm)

	// a mapping whose connection owns no slot must be cleaned up quietly
	gm.mu.Lock()
	gm.connToGame["conn_stale"] = g.ID
	gm.mu.Unlock()

	gm.HandleDisconnect("conn_stale")

	if g.Status != StatusPlaying {
		t.Errorf("Slotless disconnect changed the match phase: %s", g.Status)
	}
	if gm.GetGameForConn("conn_stale") != nil {
		t.Errorf("Stale mapping survived its disconnect")
	}
}

func TestReconnectUnknownToken(t *testing.T) {
	gm, _, _ := newTestManager(newFakeStore())

	res := gm.Reconnect("tok-nope", "conn9")
	if res.Success {
		t.Fatalf("Unknown token redeemed")
	}
	if res.ErrorMessage != "invalid or expired token" {
		t.Errorf("Error message: got %q", res.ErrorMessage)
	}
}

func TestReconnectWithoutStore(t *testing.T) {
	gm, _, _ := newTestManager(nil)

	res := gm.Reconnect("tok-any", "conn9")
	if res.Success {
		t.Fatalf("Reconnect succeeded without a store")
	}
}

func TestReconnectDeadGameInvalidatesToken(t *testing.T) {
	st := newFakeStore()
	gm, _, _ := newTestManager(st)
	st.seedToken("tok-ghost", TokenSession{GameID: "game_gone", Slot: 1, PlayerName: "Alice"})

	res := gm.Reconnect("tok-ghost", "conn9")
	if res.Success {
		t.Fatalf("Reconnect into a missing game succeeded")
	}
	if res.ErrorMessage != "game no longer exists" {
		t.Errorf("Error message: got %q", res.ErrorMessage)
	}
}

func TestReconnectFinishedGameInStoreInvalidatesToken(t *testing.T) {
	st := newFakeStore()
	gm, _, _ := newTestManager(st)
	st.seedGame(&Game{
		ID:      "game_over",
		Player1: &Player{PlayerID: "p1", Name: "Alice", Score: 5},
		Player2: &Player{PlayerID: "p2", Name: "Bob", Score: 2},
		Status:  StatusFinished,
	})
	st.seedToken("tok-late", TokenSession{GameID: "game_over", Slot: 2, PlayerName: "Bob"})

	res := gm.Reconnect("tok-late", "conn9")
	if res.Success {
		t.Fatalf("Reconnect into a finished game succeeded")
	}
	if res.ErrorMessage != "game no longer exists" {
		t.Errorf("Error message: got %q", res.ErrorMessage)
	}
	if gm.GetActiveGameCount() != 0 {
		t.Errorf("Finished game resurrected into the registry")
	}
}

func TestReconnectLoadsEvictedGameFromStore(t *testing.T) {
	st := newFakeStore()
	gm, _, _ := newTestManager(st)
	st.seedGame(&Game{
		ID:      "game_cold",
		Player1: &Player{PlayerID: "p1", Name: "Alice", Connected: true, ConnID: "old1"},
		Player2: &Player{PlayerID: "p2", Name: "Bob", Connected: true, ConnID: "old2"},
		Status:  StatusPlaying,
	})
	st.seedToken("tok-alice", TokenSession{GameID: "game_cold", Slot: 1, PlayerName: "Alice"})

	res := gm.Reconnect("tok-alice", "conn1b")
	if !res.Success {
		t.Fatalf("Reconnect failed: %s", res.ErrorMessage)
	}
	if res.Resumed {
		t.Errorf("Resumed with only one slot connected")
	}

	g, err := gm.GetGame("game_cold")
	if err != nil {
		t.Fatalf("Loaded game not resident")
	}
	// a persisted PLAYING game comes back PAUSED with only the redeeming
	// slot connected
	if g.Status != StatusPaused {
		t.Errorf("Status: got %s, want %s", g.Status, StatusPaused)
	}
	if g.Player2.Connected || g.Player2.ConnID != "" {
		t.Errorf("Stale connection handle survived the load: %+v", g.Player2)
	}
	if g.Player1.ConnID != "conn1b" {
		t.Errorf("Redeeming slot not rebound: %+v", g.Player1)
	}
}

func TestCheckPendingGame(t *testing.T) {
	st := newFakeStore()
	gm, _, _ := newTestManager(st)
	g, _, _ := createPlayingGame(gm)
	st.seedToken("tok-bob", TokenSession{GameID: g.ID, Slot: 2, PlayerName: "Bob"})

	sess := gm.CheckPendingGame("tok-bob")
	if sess == nil || sess.GameID != g.ID || sess.Slot != 2 {
		t.Errorf("Pending check missed a live game: %+v", sess)
	}

	if gm.CheckPendingGame("tok-nope") != nil {
		t.Errorf("Pending check resolved an unknown token")
	}
}

func TestSweepEvictsExpiredPausedGame(t *testing.T) {
	gm, notifier, _ := newTestManager(nil)
	g, _, _ := createPlayingGame(gm)

	gm.HandleDisconnect("conn2")
	gm.mu.Lock()
	gm.pausedDeadlines[g.ID] = time.Now().Add(-time.Second)
	gm.mu.Unlock()

	gm.sweepPauseTimeouts(time.Now())

	if _, err := gm.GetGame(g.ID); err != ErrGameNotFound {
		t.Errorf("Expired paused game survived the sweep")
	}
	if notifier.received("conn1", MsgGameEnded) != 1 {
		t.Errorf("Remaining player not told the game timed out")
	}
}

func TestSweepKeepsUnexpiredPausedGame(t *testing.T) {
	gm, _, _ := newTestManager(nil)
	g, _, _ := createPlayingGame(gm)

	gm.HandleDisconnect("conn2")
	gm.sweepPauseTimeouts(time.Now())

	if _, err := gm.GetGame(g.ID); err != nil {
		t.Errorf("Paused game inside its deadline was evicted")
	}
}
