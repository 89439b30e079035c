package lobby

import (
	"fmt"
	"math"
	"time"

	"github.com/go-co-op/gocron/v2"

	"pong-arena/internal/game"
)

// scheduler runs the matchmaking pass at a fixed cadence.
type scheduler struct {
	sched gocron.Scheduler
}

func newScheduler(l *Lobby) (*scheduler, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("creating scheduler: %w", err)
	}

	_, err = sched.NewJob(
		gocron.DurationJob(l.cfg.PassInterval),
		gocron.NewTask(func() { l.pass(time.Now()) }),
	)
	if err != nil {
		return nil, fmt.Errorf("registering matchmaking job: %w", err)
	}

	sched.Start()
	return &scheduler{sched: sched}, nil
}

func (s *scheduler) stop() {
	_ = s.sched.Shutdown()
}

// band returns the maximum skill-ratio gap a ticket will accept after
// waiting for the given time. Tickets age through the bands instead of
// timing out.
func (l *Lobby) band(elapsed time.Duration) float64 {
	switch {
	case elapsed < l.cfg.NarrowBandUntil:
		return l.cfg.NarrowBand
	case elapsed < l.cfg.WideBandUntil:
		return l.cfg.WideBand
	default:
		return math.Inf(1)
	}
}

// pass walks the queue in enqueue order. Each ticket searches the
// tickets behind it for a partner within its current similarity band;
// the longest-waiting satisfying candidate wins. Matched pairs are
// promoted into a new online match, unmatched tickets periodically hear
// that they are still waiting.
func (l *Lobby) pass(now time.Time) {
	type pairing struct {
		first, second *Ticket
	}

	l.mu.Lock()
	var pairs []pairing
	used := make([]bool, len(l.queue))
	for i, first := range l.queue {
		if used[i] {
			continue
		}
		limit := l.band(first.Elapsed(now))
		for j := i + 1; j < len(l.queue); j++ {
			if used[j] {
				continue
			}
			// The queue is in enqueue order, so the first candidate
			// within the band is also the longest-waiting one.
			if math.Abs(l.queue[j].Ratio-first.Ratio) <= limit {
				used[i], used[j] = true, true
				pairs = append(pairs, pairing{first: first, second: l.queue[j]})
				break
			}
		}
	}

	remaining := l.queue[:0]
	for i, t := range l.queue {
		if !used[i] {
			remaining = append(remaining, t)
		}
	}
	l.queue = remaining

	var waiting []*Ticket
	for _, t := range l.queue {
		if now.Sub(t.lastNotified) >= l.cfg.WaitingNotify {
			t.lastNotified = now
			waiting = append(waiting, t)
		}
	}
	l.mu.Unlock()

	for _, p := range pairs {
		m := l.CreateOnlineMatch(p.first.Identity, p.second.Identity, nil)
		notify(p.first.notifier, GameFound{Type: "game_found", GameID: m.ID(), Role: string(game.RolePlayer1)})
		notify(p.second.notifier, GameFound{Type: "game_found", GameID: m.ID(), Role: string(game.RolePlayer2)})
	}
	for _, t := range waiting {
		notify(t.notifier, QueueStatus{Type: "waiting", Message: "still searching for an opponent"})
	}
}
