// Package tournament builds and advances single-elimination brackets.
// Actual gameplay is delegated to the lobby; the bracket only tracks
// rounds, winners and byes, and triggers external persistence and
// notifications when rounds and the tournament complete.
package tournament

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gosimple/slug"

	"pong-arena/internal/lobby"
	"pong-arena/internal/notify"
	"pong-arena/internal/store"
)

var (
	// ErrTournamentNotFound is returned for unknown tournament ids.
	ErrTournamentNotFound = errors.New("tournament not found")
	// ErrRecordNotFound is returned for unknown match record ids.
	ErrRecordNotFound = errors.New("match record not found")
	// ErrNotEnoughPlayers rejects tournaments with fewer than two
	// reachable participants.
	ErrNotEnoughPlayers = errors.New("need at least two reachable participants")
	// ErrNotParticipant rejects operations by outsiders.
	ErrNotParticipant = errors.New("not a participant of this match")
	// ErrRecordResolved rejects starting an already-decided match.
	ErrRecordResolved = errors.New("match record already resolved")
	// ErrInvalidWinner rejects winners that never played the match.
	ErrInvalidWinner = errors.New("winner is not a player of this match")
	// ErrAliasRequired gates bracket views behind a display alias.
	ErrAliasRequired = errors.New("display alias required before viewing the bracket")
)

// FeedChannel is the global tournament event feed.
const FeedChannel = "tournaments"

// Participant is one entrant, with its per-tournament display alias.
type Participant struct {
	Identity string `json:"identity"`
	Alias    string `json:"alias,omitempty"`
}

// MatchRecord tracks one bracket slot. An empty Player2 marks a bye;
// MatchID is created lazily on the first start request.
type MatchRecord struct {
	ID      string
	Round   int
	Player1 string
	Player2 string
	Winner  string
	MatchID string
	Active  bool
}

// Tournament is a named single-elimination bracket over a fixed
// participant set.
type Tournament struct {
	ID           string
	Name         string
	Slug         string
	Active       bool
	Participants []*Participant
	Rounds       map[int][]*MatchRecord
}

// Channel names the per-tournament notification channel.
func (t *Tournament) Channel() string {
	return "tournament:" + t.Slug
}

func (t *Tournament) participant(identity string) *Participant {
	for _, p := range t.Participants {
		if p.Identity == identity {
			return p
		}
	}
	return nil
}

// Event is the outbound tournament feed message.
type Event struct {
	Action       string `json:"action"`
	TournamentID string `json:"tournament_id"`
	Tournament   string `json:"tournament"`
	Round        int    `json:"round,omitempty"`
	Winner       string `json:"winner,omitempty"`
	Message      string `json:"message,omitempty"`
}

// ResultSink persists completed tournaments.
type ResultSink interface {
	SaveTournamentResult(ctx context.Context, r *store.TournamentResult) error
}

type recordRef struct {
	tournament *Tournament
	record     *MatchRecord
}

// Manager owns all active tournaments.
type Manager struct {
	mu          sync.Mutex
	tournaments map[string]*Tournament
	records     map[string]recordRef

	lobby    *lobby.Lobby
	feed     notify.Publisher
	presence Presence
	resolver PlayerResolver
	anchor   Anchorer
	results  ResultSink
	rng      *rand.Rand
}

// ManagerOption configures the Manager.
type ManagerOption func(*Manager)

// WithPresence sets the reachability oracle used at creation time.
func WithPresence(p Presence) ManagerOption {
	return func(m *Manager) { m.presence = p }
}

// WithResolver sets the identity-to-display-name resolver.
func WithResolver(r PlayerResolver) ManagerOption {
	return func(m *Manager) { m.resolver = r }
}

// WithAnchorer sets the external result ledger.
func WithAnchorer(a Anchorer) ManagerOption {
	return func(m *Manager) { m.anchor = a }
}

// WithResultSink sets the tournament result store.
func WithResultSink(s ResultSink) ManagerOption {
	return func(m *Manager) { m.results = s }
}

// WithRandSeed fixes the bye-selection seed, for deterministic tests.
func WithRandSeed(seed int64) ManagerOption {
	return func(m *Manager) { m.rng = rand.New(rand.NewSource(seed)) }
}

// NewManager creates a tournament manager delegating gameplay to the
// given lobby and publishing events through feed.
func NewManager(l *lobby.Lobby, feed notify.Publisher, opts ...ManagerOption) *Manager {
	m := &Manager{
		tournaments: make(map[string]*Tournament),
		records:     make(map[string]recordRef),
		lobby:       l,
		feed:        feed,
		presence:    alwaysOnline{},
		resolver:    identityResolver{},
		anchor:      LogAnchorer{},
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Create builds a tournament and its first round from adjacent pairs of
// the participant list. A trailing unpaired participant wins a bye.
func (m *Manager) Create(name string, identities []string) (*Tournament, error) {
	reachable := 0
	for _, id := range identities {
		if m.presence.IsOnline(id) {
			reachable++
		}
	}
	if reachable < 2 {
		return nil, ErrNotEnoughPlayers
	}

	t := &Tournament{
		ID:     uuid.NewString(),
		Name:   name,
		Slug:   slug.Make(name),
		Active: true,
		Rounds: make(map[int][]*MatchRecord),
	}
	for _, id := range identities {
		t.Participants = append(t.Participants, &Participant{Identity: id})
	}

	m.mu.Lock()
	m.buildRoundLocked(t, 1, identities)
	m.tournaments[t.ID] = t
	m.mu.Unlock()

	m.publish(t, Event{
		Action:       "new_tournament",
		TournamentID: t.ID,
		Tournament:   t.Name,
		Round:        1,
		Message:      "you have been added to a tournament",
	})
	return t, nil
}

// buildRoundLocked pairs players in list order. A trailing unpaired
// player gets a bye record that is immediately resolved.
func (m *Manager) buildRoundLocked(t *Tournament, round int, players []string) {
	for i := 0; i < len(players); i += 2 {
		rec := &MatchRecord{
			ID:      uuid.NewString(),
			Round:   round,
			Player1: players[i],
		}
		if i+1 < len(players) {
			rec.Player2 = players[i+1]
		} else {
			rec.Winner = rec.Player1 // automatic bye
		}
		t.Rounds[round] = append(t.Rounds[round], rec)
		m.records[rec.ID] = recordRef{tournament: t, record: rec}
	}
}

// SetAlias registers a participant's per-tournament display alias,
// required before that participant can view the bracket.
func (m *Manager) SetAlias(tournamentID, identity, alias string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.tournaments[tournamentID]
	if !ok {
		return ErrTournamentNotFound
	}
	p := t.participant(identity)
	if p == nil {
		return ErrNotParticipant
	}
	p.Alias = alias
	return nil
}

// RecordView is the read-only view of one bracket slot.
type RecordView struct {
	ID      string `json:"id"`
	Round   int    `json:"round"`
	Player1 string `json:"player1"`
	Player2 string `json:"player2,omitempty"`
	Winner  string `json:"winner,omitempty"`
	MatchID string `json:"match_id,omitempty"`
	Bye     bool   `json:"bye"`
}

// BracketView is the read-only view of a tournament.
type BracketView struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	Active       bool          `json:"active"`
	Participants []Participant `json:"participants"`
	Rounds       [][]RecordView `json:"rounds"`
}

// View returns the bracket state. Participants must have set an alias
// before viewing.
func (m *Manager) View(tournamentID, requesterID string) (*BracketView, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.tournaments[tournamentID]
	if !ok {
		return nil, ErrTournamentNotFound
	}
	if p := t.participant(requesterID); p != nil && p.Alias == "" {
		return nil, ErrAliasRequired
	}

	view := &BracketView{
		ID:     t.ID,
		Name:   t.Name,
		Active: t.Active,
	}
	for _, p := range t.Participants {
		view.Participants = append(view.Participants, *p)
	}
	for round := 1; ; round++ {
		records, ok := t.Rounds[round]
		if !ok {
			break
		}
		views := make([]RecordView, 0, len(records))
		for _, rec := range records {
			views = append(views, RecordView{
				ID:      rec.ID,
				Round:   rec.Round,
				Player1: rec.Player1,
				Player2: rec.Player2,
				Winner:  rec.Winner,
				MatchID: rec.MatchID,
				Bye:     rec.Player2 == "",
			})
		}
		view.Rounds = append(view.Rounds, views)
	}
	return view, nil
}

// publish pushes an event to the global feed, the per-tournament
// channel, and every participant's user channel.
func (m *Manager) publish(t *Tournament, ev Event) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if m.feed == nil {
		return
	}
	_ = m.feed.Publish(ctx, FeedChannel, ev)
	_ = m.feed.Publish(ctx, t.Channel(), ev)
	for _, p := range t.Participants {
		_ = m.feed.Publish(ctx, notify.UserChannel(p.Identity), ev)
	}
}
