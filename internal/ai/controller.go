package ai

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"pong-arena/internal/config"
	"pong-arena/internal/game"
)

// Controller plays the second seat of a solo match. A listener keeps
// only the most recent state snapshot; the actor wakes roughly once per
// simulated second, predicts the next impact, and issues the same
// move / stop commands a human client would send.
type Controller struct {
	cfg       config.GameConfig
	transport Transport

	mu     sync.Mutex
	latest *game.PositionUpdate

	done     chan struct{}
	doneOnce sync.Once
}

// New creates a controller over the given transport.
func New(cfg config.GameConfig, t Transport) *Controller {
	return &Controller{
		cfg:       cfg,
		transport: t,
		done:      make(chan struct{}),
	}
}

// Run drives the controller until the match ends, the transport closes,
// or ctx is canceled.
func (c *Controller) Run(ctx context.Context) {
	defer c.transport.Close()

	go c.listen()

	for {
		update := c.takeLatest()
		pad := 0
		if update != nil {
			pad = c.act(ctx, update)
		}
		if !c.sleepFrames(ctx, pad+1) {
			return
		}
	}
}

// listen consumes inbound frames, keeping only the newest snapshot.
// A game_over frame or a transport error ends the controller.
func (c *Controller) listen() {
	defer c.stop()

	for {
		data, err := c.transport.ReadMessage()
		if err != nil {
			return
		}

		var probe struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(data, &probe); err != nil {
			continue
		}

		switch probe.Type {
		case "game_over":
			return
		case "position_update":
			var update game.PositionUpdate
			if err := json.Unmarshal(data, &update); err != nil {
				continue
			}
			c.mu.Lock()
			c.latest = &update
			c.mu.Unlock()
		}
	}
}

func (c *Controller) takeLatest() *game.PositionUpdate {
	c.mu.Lock()
	defer c.mu.Unlock()
	update := c.latest
	c.latest = nil
	return update
}

// act predicts the impact point and walks the paddle toward it, holding
// the move key for the computed number of frames. It returns how many
// frames of the one-second cadence remain unspent.
func (c *Controller) act(ctx context.Context, update *game.PositionUpdate) int {
	est := predictImpact(c.cfg, update.BallPosition)
	action, frames, ok := plan(c.cfg, update.Player2State.Y, est.y)
	if !ok {
		return horizon
	}

	c.send(action)
	if !c.sleepFrames(ctx, frames) {
		return 0
	}
	c.send(stopFor(action))

	if frames < horizon {
		return horizon - frames
	}
	return 0
}

// plan decides the move direction and hold duration that centers the
// paddle on targetY. ok is false when the target already falls within
// the paddle span. Holds are capped just under the snapshot cadence so
// a stale prediction cannot pin the paddle to a wall.
func plan(cfg config.GameConfig, paddleY, targetY float64) (game.Action, int, bool) {
	center := paddleY + cfg.PaddleSize/2

	var action game.Action
	var diff float64
	switch {
	case targetY < paddleY:
		action = game.ActionMoveUp
		diff = center - targetY
	case targetY > paddleY+cfg.PaddleSize:
		action = game.ActionMoveDown
		diff = targetY - center
	default:
		return 0, 0, false
	}

	frames := int(diff/cfg.PaddleSpeed) + 1
	if frames > horizon-1 {
		frames = horizon - 1
	}
	return action, frames, true
}

func stopFor(move game.Action) game.Action {
	if move == game.ActionMoveUp {
		return game.ActionStopMoveUp
	}
	return game.ActionStopMoveDown
}

func (c *Controller) send(action game.Action) {
	data, err := json.Marshal(game.ActionMessage{Action: action.String()})
	if err != nil {
		return
	}
	if err := c.transport.WriteMessage(data); err != nil {
		log.Printf("ai: send %s: %v", action, err)
		c.stop()
	}
}

// sleepFrames pauses for n simulation frames. It reports false when the
// controller should exit instead of continuing.
func (c *Controller) sleepFrames(ctx context.Context, n int) bool {
	if n <= 0 {
		return true
	}
	timer := time.NewTimer(time.Duration(n) * c.cfg.TickInterval())
	defer timer.Stop()

	select {
	case <-timer.C:
		return true
	case <-c.done:
		return false
	case <-ctx.Done():
		return false
	}
}

func (c *Controller) stop() {
	c.doneOnce.Do(func() { close(c.done) })
}
