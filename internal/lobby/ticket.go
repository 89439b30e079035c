package lobby

import "time"

// Notifier delivers lobby events back to the player who requested
// matchmaking. Websocket clients implement it; tests use a recorder.
type Notifier interface {
	Notify(event any) error
}

// DefaultRatio is the skill ratio assumed for a player with no match
// history, placing them next to the average opponent.
const DefaultRatio = 0.5

// Ticket is one queued matchmaking request. A player identity holds at
// most one active ticket at a time.
type Ticket struct {
	Identity   string
	Ratio      float64 // wins / matches played, 0.5 with no history
	EnqueuedAt time.Time

	notifier     Notifier
	lastNotified time.Time
}

// Elapsed returns how long the ticket has been waiting.
func (t *Ticket) Elapsed(now time.Time) time.Duration {
	return now.Sub(t.EnqueuedAt)
}
