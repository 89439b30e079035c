// Package lobby is the matchmaking registry: it owns the ticket queue,
// the map of active matches, and the scheduler that pairs queued players
// by skill proximity and elapsed wait time.
package lobby

import (
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"pong-arena/internal/config"
	"pong-arena/internal/game"
)

var (
	// ErrAlreadyQueued rejects a second ticket for the same identity.
	ErrAlreadyQueued = errors.New("identity already queued")
	// ErrInviteNotFound is returned for unknown or expired invitations.
	ErrInviteNotFound = errors.New("invite not found")
	// ErrNotInvitee is returned when someone else accepts an invitation.
	ErrNotInvitee = errors.New("not the invited player")
)

// GameFound tells a queued player which match it was promoted into.
type GameFound struct {
	Type   string `json:"type"`
	GameID string `json:"game_id"`
	Role   string `json:"role"`
}

// QueueStatus carries waiting / queue_left / invite notifications.
type QueueStatus struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// Lobby holds the waiting queue and all active matches. One Lobby is
// constructed at process start and injected into connection handlers;
// its match map is the single source of truth for "does this match
// exist".
type Lobby struct {
	cfg     config.MatchmakingConfig
	gameCfg config.GameConfig

	mu      sync.Mutex
	queue   []*Ticket
	matches map[string]*game.Match
	invites map[string]*invite

	sink         game.OutcomeSink
	spawnAI      func(*game.Match)
	tickObserver func(time.Duration)

	scheduler *scheduler
}

// Option configures the Lobby.
type Option func(*Lobby)

// WithOutcomeSink routes final match outcomes to an external store.
func WithOutcomeSink(s game.OutcomeSink) Option {
	return func(l *Lobby) { l.sink = s }
}

// WithAISpawner sets the hook that binds an AI controller to the second
// seat of solo matches.
func WithAISpawner(fn func(*game.Match)) Option {
	return func(l *Lobby) { l.spawnAI = fn }
}

// WithTickObserver forwards per-tick durations of every match, for metrics.
func WithTickObserver(fn func(time.Duration)) Option {
	return func(l *Lobby) { l.tickObserver = fn }
}

// New creates a Lobby. Call Start to run the matchmaking scheduler.
func New(cfg config.MatchmakingConfig, gameCfg config.GameConfig, opts ...Option) *Lobby {
	l := &Lobby{
		cfg:     cfg,
		gameCfg: gameCfg,
		matches: make(map[string]*game.Match),
		invites: make(map[string]*invite),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Start launches the periodic matchmaking pass.
func (l *Lobby) Start() error {
	s, err := newScheduler(l)
	if err != nil {
		return err
	}
	l.scheduler = s
	return nil
}

// Shutdown stops the scheduler, cancels pending invitations, and stops
// every active match.
func (l *Lobby) Shutdown() {
	if l.scheduler != nil {
		l.scheduler.stop()
	}

	l.mu.Lock()
	matches := make([]*game.Match, 0, len(l.matches))
	for _, m := range l.matches {
		matches = append(matches, m)
	}
	invites := make([]*invite, 0, len(l.invites))
	for _, inv := range l.invites {
		invites = append(invites, inv)
	}
	l.invites = make(map[string]*invite)
	l.mu.Unlock()

	for _, inv := range invites {
		inv.timer.Stop()
	}
	for _, m := range matches {
		m.Stop()
	}
}

// Enqueue adds a matchmaking ticket. An identity may hold only one.
func (l *Lobby) Enqueue(identity string, ratio float64, n Notifier) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, t := range l.queue {
		if t.Identity == identity {
			return ErrAlreadyQueued
		}
	}

	now := time.Now()
	l.queue = append(l.queue, &Ticket{
		Identity:     identity,
		Ratio:        ratio,
		EnqueuedAt:   now,
		notifier:     n,
		lastNotified: now,
	})
	log.Printf("lobby: %s queued (ratio %.2f, %d waiting)", identity, ratio, len(l.queue))
	return nil
}

// Dequeue removes an identity's ticket. Reports whether one existed.
func (l *Lobby) Dequeue(identity string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i, t := range l.queue {
		if t.Identity == identity {
			l.queue = append(l.queue[:i], l.queue[i+1:]...)
			return true
		}
	}
	return false
}

// QueueLen returns the number of waiting tickets.
func (l *Lobby) QueueLen() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.queue)
}

// Match looks up an active match by id.
func (l *Lobby) Match(id string) (*game.Match, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	m, ok := l.matches[id]
	return m, ok
}

// ActiveMatches returns the number of running matches.
func (l *Lobby) ActiveMatches() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.matches)
}

// Remove drops a finished or abandoned match from the registry and
// stops its loop. Safe to call more than once per match.
func (l *Lobby) Remove(id string) {
	l.mu.Lock()
	m, ok := l.matches[id]
	delete(l.matches, id)
	l.mu.Unlock()

	if ok {
		m.Stop()
		log.Printf("lobby: match %s removed (%d active)", id, l.ActiveMatches())
	}
}

// CreateSoloMatch starts a human-vs-AI match. The requester takes
// player1; the AI controller is bound to player2.
func (l *Lobby) CreateSoloMatch(identity string) *game.Match {
	m := l.newMatch(game.ModeSolo, identity, "ai", nil)
	if l.spawnAI != nil {
		l.spawnAI(m)
	}
	return m
}

// CreateLocalMatch starts a match driven entirely by one connection.
func (l *Lobby) CreateLocalMatch(identity string) *game.Match {
	return l.newMatch(game.ModeLocal, identity, identity, nil)
}

// CreateOnlineMatch starts a networked 1v1 with the identities bound to
// player1 and player2 respectively. onFinish, if non-nil, observes the
// final outcome (tournaments use it to report results).
func (l *Lobby) CreateOnlineMatch(p1, p2 string, onFinish func(game.Outcome)) *game.Match {
	return l.newMatch(game.ModeOnline, p1, p2, onFinish)
}

func (l *Lobby) newMatch(mode game.Mode, p1, p2 string, extra func(game.Outcome)) *game.Match {
	id := uuid.NewString()

	opts := []game.Option{
		game.WithIdentities(p1, p2),
		game.WithOnFinish(func(o game.Outcome) {
			l.Remove(o.MatchID)
			if extra != nil {
				extra(o)
			}
		}),
	}
	if l.sink != nil {
		opts = append(opts, game.WithSink(l.sink))
	}
	if l.tickObserver != nil {
		opts = append(opts, game.WithTickObserver(l.tickObserver))
	}

	m := game.NewMatch(id, mode, l.gameCfg, opts...)

	l.mu.Lock()
	l.matches[id] = m
	l.mu.Unlock()

	m.Start()
	return m
}

// notify swallows per-player delivery failures; a dead connection must
// not interfere with matchmaking.
func notify(n Notifier, event any) {
	if n == nil {
		return
	}
	if err := n.Notify(event); err != nil {
		log.Printf("lobby: notification failed: %v", err)
	}
}
