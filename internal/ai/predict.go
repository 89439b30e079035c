package ai

import (
	"pong-arena/internal/config"
	"pong-arena/internal/game"
)

// horizon is how many frames ahead the controller extrapolates. State
// snapshots arrive continuously, so looking further than one second
// ahead only compounds error.
const horizon = 60

// impact is where and when the controller expects the ball to reach its
// own paddle plane. A bail-out aims at the canvas center instead.
type impact struct {
	x      float64
	y      float64
	frames int
}

// stepLocal advances a ball copy by one frame using a simplified mirror
// of the engine physics. An opponent-plane hit is treated as a flat
// return because the opponent's paddle position a second from now is
// unknowable.
func stepLocal(cfg config.GameConfig, b *game.BallPosition) {
	opponentPlane := cfg.Player1X() + cfg.PaddleWidth

	b.X += b.DX
	if b.X-cfg.BallRadius <= opponentPlane {
		b.X += opponentPlane - (b.X - cfg.BallRadius)
		b.DY = 0
		b.DX = absAdd(b.DX, 1)
		b.DX *= -1
	}
	b.Y += b.DY
	if b.Y+cfg.BallRadius > cfg.CanvasHeight {
		b.Y -= (b.Y + cfg.BallRadius) - cfg.CanvasHeight
		b.DY *= -1
	} else if b.Y-cfg.BallRadius < 0 {
		b.Y += 0 - (b.Y - cfg.BallRadius)
		b.DY *= -1
	}
}

// predictImpact extrapolates the ball until it reaches the controller's
// paddle plane. If the ball heads back to the opponent first, or no
// impact falls within the horizon, the controller returns to center and
// waits for fresher data.
func predictImpact(cfg config.GameConfig, ball game.BallPosition) impact {
	pos := ball
	var est impact
	for frame := 0; frame < horizon; frame++ {
		stepLocal(cfg, &pos)
		if pos.X+cfg.BallRadius >= cfg.Player2X() {
			est.frames = frame
			est.x = pos.X
			est.y = pos.Y
			return est
		}
		if frame >= horizon-1 || pos.X-cfg.BallRadius <= cfg.Player1X()+cfg.PaddleWidth {
			est.frames = frame
			est.x = pos.X
			est.y = cfg.CanvasHeight / 2
			return est
		}
	}
	return est
}

// absAdd grows a velocity's magnitude while keeping its sign.
func absAdd(v, inc float64) float64 {
	if v < 0 {
		return v - inc
	}
	return v + inc
}
