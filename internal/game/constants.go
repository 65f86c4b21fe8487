package game

import "time"

// Playfield and physics constants.
// These MUST match the canvas constants in the web client exactly.

const (
	CanvasWidth  = 800.0
	CanvasHeight = 600.0

	PaddleWidth  = 10.0
	PaddleHeight = 100.0
	PaddleOffset = 20.0 // distance of each paddle's inner face from its wall
	BallSize     = 10.0

	InitialBallSpeed     = 5.0
	BallSpeedMultiplier  = 1.05 // horizontal amplification per paddle hit
	MaxBallVerticalSpeed = 8.0

	WinScore = 5

	// The tick driver runs at ~60 Hz and pushes one Redis sync every
	// SyncIntervalFrames frames per playing game.
	TickInterval       = time.Second / 60
	SyncIntervalFrames = 5

	TimeoutSweepInterval = 30 * time.Second
)
