// Package store persists final match outcomes and tournament results.
// The simulation core only sees the narrow sink interfaces; everything
// here is an external side effect.
package store

import (
	"context"
	"sync"
	"time"

	"pong-arena/internal/game"
)

// MatchOutcome is the durable record of one finished match.
type MatchOutcome struct {
	ID             uint   `gorm:"primaryKey"`
	MatchID        string `gorm:"uniqueIndex;size:64"`
	WinnerRole     string `gorm:"size:16"`
	WinnerIdentity string `gorm:"size:64"`
	LoserIdentity  string `gorm:"size:64"`
	Reason         string `gorm:"size:16"`
	CreatedAt      time.Time
}

// TournamentResult is the durable record of a completed tournament.
type TournamentResult struct {
	ID         uint   `gorm:"primaryKey"`
	Name       string `gorm:"size:255"`
	WinnerName string `gorm:"size:64"`
	AnchorRef  string `gorm:"size:128"`
	CreatedAt  time.Time
}

// Store is the persistence contract consumed by the lobby and the
// tournament manager.
type Store interface {
	game.OutcomeSink
	SaveTournamentResult(ctx context.Context, r *TournamentResult) error
}

// Memory is the in-process store used for tests and DSN-less runs.
type Memory struct {
	mu          sync.Mutex
	outcomes    []MatchOutcome
	tournaments []TournamentResult
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{}
}

// PersistMatchOutcome records a final match outcome. A match id is
// recorded at most once.
func (m *Memory) PersistMatchOutcome(_ context.Context, o game.Outcome) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.outcomes {
		if existing.MatchID == o.MatchID {
			return nil
		}
	}
	m.outcomes = append(m.outcomes, MatchOutcome{
		MatchID:        o.MatchID,
		WinnerRole:     string(o.Winner),
		WinnerIdentity: o.WinnerIdentity,
		LoserIdentity:  o.LoserIdentity,
		Reason:         string(o.Reason),
		CreatedAt:      time.Now(),
	})
	return nil
}

// SaveTournamentResult records a completed tournament.
func (m *Memory) SaveTournamentResult(_ context.Context, r *TournamentResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tournaments = append(m.tournaments, *r)
	return nil
}

// Outcomes returns a copy of the recorded match outcomes.
func (m *Memory) Outcomes() []MatchOutcome {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]MatchOutcome, len(m.outcomes))
	copy(out, m.outcomes)
	return out
}

// TournamentResults returns a copy of the recorded tournament results.
func (m *Memory) TournamentResults() []TournamentResult {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]TournamentResult, len(m.tournaments))
	copy(out, m.tournaments)
	return out
}
