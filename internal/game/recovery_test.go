package game

import (
	"testing"
	"time"
)

func seedStoreGame(st *fakeStore, id string, status GameStatus) {
	st.seedGame(&Game{
		ID:        id,
		Player1:   &Player{PlayerID: "p1", Name: "Alice", Connected: true, ConnID: "old1"},
		Player2:   &Player{PlayerID: "p2", Name: "Bob", Connected: true, ConnID: "old2"},
		Status:    status,
		CreatedAt: time.Now().UTC(),
	})
}

func TestRecoveryDemotesPlayingToPaused(t *testing.T) {
	st := newFakeStore()
	seedStoreGame(st, "game_live", StatusPlaying)
	gm, _, _ := newTestManager(st)

	gm.RecoverFromStore()

	g, err := gm.GetGame("game_live")
	if err != nil {
		t.Fatalf("Recovered game not resident")
	}
	if g.Status != StatusPaused {
		t.Errorf("Status: got %s, want %s", g.Status, StatusPaused)
	}
	if g.Player1.Connected || g.Player2.Connected {
		t.Errorf("Recovered slots still marked connected")
	}
	if g.Player1.ConnID != "" || g.Player2.ConnID != "" {
		t.Errorf("Stale connection handles survived recovery")
	}
	if _, ok := gm.pausedDeadlines["game_live"]; !ok {
		t.Errorf("No grace deadline for the recovered game")
	}
	if gm.GetGameForConn("old1") != nil {
		t.Errorf("Connection mapping restored across a restart")
	}
}

func TestRecoveryKeepsWaitingGames(t *testing.T) {
	st := newFakeStore()
	st.seedGame(&Game{
		ID:      "game_open",
		Player1: &Player{PlayerID: "p1", Name: "Alice", Connected: true, ConnID: "old1"},
		Status:  StatusWaiting,
	})
	gm, _, _ := newTestManager(st)

	gm.RecoverFromStore()

	g, err := gm.GetGame("game_open")
	if err != nil {
		t.Fatalf("Waiting game not recovered")
	}
	if g.Status != StatusWaiting {
		t.Errorf("Status: got %s, want %s", g.Status, StatusWaiting)
	}
	if _, ok := gm.pausedDeadlines["game_open"]; ok {
		t.Errorf("Waiting game got an eviction deadline")
	}
}

func TestRecoveryDropsFinishedGames(t *testing.T) {
	st := newFakeStore()
	seedStoreGame(st, "game_done", StatusFinished)
	gm, _, _ := newTestManager(st)

	gm.RecoverFromStore()

	if gm.GetActiveGameCount() != 0 {
		t.Errorf("Finished game recovered into the registry")
	}
}

func TestRecoveryStoreFailureStartsEmpty(t *testing.T) {
	st := newFakeStore()
	seedStoreGame(st, "game_live", StatusPlaying)
	st.fail = true
	gm, _, _ := newTestManager(st)

	gm.RecoverFromStore()

	if gm.GetActiveGameCount() != 0 {
		t.Errorf("Registry not empty after a failed load")
	}
}

func TestRecoveredGameTimesOutWithoutReconnect(t *testing.T) {
	st := newFakeStore()
	seedStoreGame(st, "game_live", StatusPlaying)
	gm, _, _ := newTestManager(st)
	gm.RecoverFromStore()

	// Nobody redeemed a token within the grace period.
	gm.sweepPauseTimeouts(time.Now().Add(gm.recoveryGrace() + time.Minute))

	if gm.GetActiveGameCount() != 0 {
		t.Errorf("Recovered game survived its grace deadline")
	}
}
