package game

import (
	"math"
	"math/rand"
)

// TickOutcome reports what happened during one simulation step.
type TickOutcome struct {
	ScoringSlot int // 1 or 2 if that slot scored this tick, 0 otherwise
}

// ResetBall re-centers the ball and serves it in a fresh random direction:
// random horizontal sign, vertical angle within a ±45° cone, fixed speed.
func ResetBall(g *Game, rng *rand.Rand) {
	g.Ball.X = CanvasWidth / 2
	g.Ball.Y = CanvasHeight / 2

	angle := (rng.Float64() - 0.5) * math.Pi / 2
	direction := 1.0
	if rng.Intn(2) == 0 {
		direction = -1.0
	}
	g.Ball.VX = math.Cos(angle) * InitialBallSpeed * direction
	g.Ball.VY = math.Sin(angle) * InitialBallSpeed
}

// CenterPaddles places both paddles at the vertical center.
func CenterPaddles(g *Game) {
	g.Paddle1.Y = (CanvasHeight - PaddleHeight) / 2
	g.Paddle2.Y = (CanvasHeight - PaddleHeight) / 2
}

// Advance runs one fixed-step simulation tick over a single game, in order:
// integration, wall reflection, paddle collisions, scoring. It mutates the
// game in place and always runs to completion. Only the tick driver may call
// it for a given game.
func Advance(g *Game, rng *rand.Rand) TickOutcome {
	g.Ball.X += g.Ball.VX
	g.Ball.Y += g.Ball.VY

	// Top/bottom wall bounce
	if g.Ball.Y <= 0 || g.Ball.Y >= CanvasHeight-BallSize {
		g.Ball.VY = -g.Ball.VY
		g.Ball.Y = clamp(g.Ball.Y, 0, CanvasHeight-BallSize)
	}

	// Left paddle collision
	if g.Ball.X <= PaddleOffset+PaddleWidth &&
		g.Ball.Y+BallSize >= g.Paddle1.Y &&
		g.Ball.Y <= g.Paddle1.Y+PaddleHeight &&
		g.Ball.VX < 0 {
		g.Ball.VX = -g.Ball.VX * BallSpeedMultiplier
		hitPos := (g.Ball.Y - g.Paddle1.Y) / PaddleHeight
		g.Ball.VY = (hitPos - 0.5) * MaxBallVerticalSpeed
		// keep the ball outside the paddle so it can't tunnel next tick
		g.Ball.X = PaddleOffset + PaddleWidth
	}

	// Right paddle collision (mirror)
	if g.Ball.X >= CanvasWidth-PaddleOffset-PaddleWidth-BallSize &&
		g.Ball.Y+BallSize >= g.Paddle2.Y &&
		g.Ball.Y <= g.Paddle2.Y+PaddleHeight &&
		g.Ball.VX > 0 {
		g.Ball.VX = -g.Ball.VX * BallSpeedMultiplier
		hitPos := (g.Ball.Y - g.Paddle2.Y) / PaddleHeight
		g.Ball.VY = (hitPos - 0.5) * MaxBallVerticalSpeed
		g.Ball.X = CanvasWidth - PaddleOffset - PaddleWidth - BallSize
	}

	// Scoring: crossing the left boundary credits slot 2, right credits slot 1.
	// The ball is re-served immediately either way; the caller decides whether
	// the point ended the match.
	if g.Ball.X < 0 {
		if g.Player2 != nil {
			g.Player2.Score++
		}
		ResetBall(g, rng)
		return TickOutcome{ScoringSlot: 2}
	}
	if g.Ball.X > CanvasWidth {
		if g.Player1 != nil {
			g.Player1.Score++
		}
		ResetBall(g, rng)
		return TickOutcome{ScoringSlot: 1}
	}

	return TickOutcome{}
}

// ClampPaddleY bounds a requested paddle offset to the playfield.
func ClampPaddleY(y float64) float64 {
	return clamp(y, 0, CanvasHeight-PaddleHeight)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
