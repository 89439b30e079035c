package game

import (
	"math"
	"math/rand"

	"pong-arena/internal/config"
)

// Ball is the authoritative ball state. Position is the center point.
type Ball struct {
	X, Y   float64
	DX, DY float64
	Radius float64
}

// Paddle is the authoritative per-seat paddle state. X is fixed per side.
type Paddle struct {
	X, Y         float64
	DY           float64
	Speed        float64
	LifePoints   int
	Connected    bool
	Disconnected bool
}

func newBall(cfg config.GameConfig) Ball {
	return Ball{
		X:      cfg.CanvasWidth / 2,
		Y:      cfg.CanvasHeight / 2,
		DX:     cfg.BallSpeedX,
		DY:     cfg.BallSpeedY,
		Radius: cfg.BallRadius,
	}
}

func newPaddle(cfg config.GameConfig, x float64) Paddle {
	return Paddle{
		X:          x,
		Y:          cfg.CanvasHeight / 2,
		Speed:      cfg.PaddleSpeed,
		LifePoints: cfg.LifePoints,
	}
}

// bandScale maps the contact band (eighths of the paddle, top to bottom)
// to a fraction of the post-bounce horizontal speed. Center bands kill
// the vertical speed, extreme bands redirect the full speed up or down.
var bandScale = [8]float64{-1, -2.0 / 3, -1.0 / 3, 0, 0, 1.0 / 3, 2.0 / 3, 1}

// stepPaddle advances a connected paddle by its velocity and clamps it
// into [0, canvasHeight-paddleSize].
func stepPaddle(p *Paddle, cfg config.GameConfig) {
	if !p.Connected {
		return
	}
	p.Y += p.DY
	if p.Y < 0 {
		p.Y = 0
	}
	if p.Y+cfg.PaddleSize > cfg.CanvasHeight {
		p.Y = cfg.CanvasHeight - cfg.PaddleSize
	}
}

// stepBall advances the ball by its velocity.
func stepBall(b *Ball) {
	b.X += b.DX
	b.Y += b.DY
}

// reflectWalls bounces the ball off the top and bottom bounds, folding
// the overshoot back so the center stays within [radius, height-radius].
func reflectWalls(b *Ball, cfg config.GameConfig) {
	if b.Y+b.Radius > cfg.CanvasHeight {
		b.Y -= (b.Y + b.Radius) - cfg.CanvasHeight
		b.DY = -b.DY
	} else if b.Y-b.Radius < 0 {
		b.Y += b.Radius - b.Y
		b.DY = -b.DY
	}
}

// contactBand returns which eighth of the paddle the ball hit.
func contactBand(ballY float64, p *Paddle, cfg config.GameConfig) int {
	band := int((ballY - p.Y) / (cfg.PaddleSize / 8))
	if band < 0 {
		band = 0
	}
	if band > 7 {
		band = 7
	}
	return band
}

func verticalOverlap(b *Ball, p *Paddle, cfg config.GameConfig) bool {
	return b.Y+b.Radius >= p.Y && b.Y-b.Radius <= p.Y+cfg.PaddleSize
}

// collidePaddles resolves ball/paddle contact on both sides. On a hit
// the ball is repositioned flush against the paddle face, the horizontal
// speed magnitude grows by one, the horizontal direction inverts, and
// the vertical speed comes from the 8-band lookup.
func collidePaddles(b *Ball, p1, p2 *Paddle, cfg config.GameConfig) {
	// Left paddle front face.
	face1 := p1.X + cfg.PaddleWidth
	if b.DX < 0 && b.X-b.Radius <= face1 && b.X+b.Radius >= p1.X && verticalOverlap(b, p1, cfg) {
		speed := math.Abs(b.DX) + 1
		b.X = face1 + b.Radius
		b.DX = speed
		b.DY = bandScale[contactBand(b.Y, p1, cfg)] * speed
		return
	}

	// Right paddle front face.
	face2 := p2.X
	if b.DX > 0 && b.X+b.Radius >= face2 && b.X-b.Radius <= p2.X+cfg.PaddleWidth && verticalOverlap(b, p2, cfg) {
		speed := math.Abs(b.DX) + 1
		b.X = face2 - b.Radius
		b.DX = -speed
		b.DY = bandScale[contactBand(b.Y, p2, cfg)] * speed
	}
}

// crossedGoal reports which seat's goal line the ball's edge crossed,
// if any. The returned role is the seat that conceded.
func crossedGoal(b *Ball, cfg config.GameConfig) (Role, bool) {
	if b.X-b.Radius <= 0 {
		return RolePlayer1, true
	}
	if b.X+b.Radius >= cfg.CanvasWidth {
		return RolePlayer2, true
	}
	return "", false
}

// resetPositions recenters the ball with a randomized direction (each
// axis sign flipped independently with probability 0.5) and returns both
// paddles to their default y.
func resetPositions(b *Ball, p1, p2 *Paddle, cfg config.GameConfig, rng *rand.Rand) {
	b.X = cfg.CanvasWidth / 2
	b.Y = cfg.CanvasHeight / 2
	b.DX = cfg.BallSpeedX
	b.DY = cfg.BallSpeedY
	if rng.Float64() < 0.5 {
		b.DX = -b.DX
	}
	if rng.Float64() < 0.5 {
		b.DY = -b.DY
	}

	p1.Y = cfg.CanvasHeight / 2
	p2.Y = cfg.CanvasHeight / 2
	p1.DY = 0
	p2.DY = 0
}
