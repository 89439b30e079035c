package tournament

import (
	"context"
	"log"
	"time"

	"pong-arena/internal/game"
	"pong-arena/internal/store"
)

// StartMatch creates the live match for a bracket slot, lazily and
// idempotently. Only a player of the slot may start it; a second start
// request returns the match id already created by the first.
func (m *Manager) StartMatch(recordID, requesterID string) (string, error) {
	m.mu.Lock()

	ref, ok := m.records[recordID]
	if !ok {
		m.mu.Unlock()
		return "", ErrRecordNotFound
	}
	rec := ref.record
	if requesterID != rec.Player1 && requesterID != rec.Player2 {
		m.mu.Unlock()
		return "", ErrNotParticipant
	}
	if rec.Winner != "" {
		m.mu.Unlock()
		return "", ErrRecordResolved
	}
	if rec.MatchID != "" {
		id := rec.MatchID
		m.mu.Unlock()
		return id, nil
	}
	p1, p2 := rec.Player1, rec.Player2
	m.mu.Unlock()

	match := m.lobby.CreateOnlineMatch(p1, p2, func(o game.Outcome) {
		if err := m.ReportResult(recordID, o.WinnerIdentity); err != nil {
			log.Printf("tournament: report result for record %s: %v", recordID, err)
		}
	})

	m.mu.Lock()
	if rec.MatchID == "" {
		rec.MatchID = match.ID()
		rec.Active = true
	}
	id := rec.MatchID
	m.mu.Unlock()

	// A concurrent start may have won the race; discard the extra match.
	if id != match.ID() {
		m.lobby.Remove(match.ID())
	}
	return id, nil
}

// ReportResult records a winner for a bracket slot. Reporting an
// already-resolved slot is a no-op. When the last slot of a round
// resolves, the next round is built from the winners; a single
// remaining winner ends the tournament.
func (m *Manager) ReportResult(recordID, winnerID string) error {
	m.mu.Lock()

	ref, ok := m.records[recordID]
	if !ok {
		m.mu.Unlock()
		return ErrRecordNotFound
	}
	t, rec := ref.tournament, ref.record
	if rec.Winner != "" {
		m.mu.Unlock()
		return nil
	}
	if winnerID != rec.Player1 && winnerID != rec.Player2 {
		m.mu.Unlock()
		return ErrInvalidWinner
	}
	rec.Winner = winnerID
	rec.Active = false

	winners, complete := roundWinnersLocked(t, rec.Round)
	if !complete {
		m.mu.Unlock()
		return nil
	}

	if len(winners) < 2 {
		t.Active = false
		m.mu.Unlock()
		m.finish(t, winners[0])
		return nil
	}

	// Odd winner sets grant one uniformly random player a bye into
	// the next round by moving them to the tail of the pairing list.
	if len(winners)%2 == 1 {
		i := m.rng.Intn(len(winners))
		winners[i], winners[len(winners)-1] = winners[len(winners)-1], winners[i]
	}
	next := rec.Round + 1
	m.buildRoundLocked(t, next, winners)
	m.mu.Unlock()

	m.publish(t, Event{
		Action:       "round_start",
		TournamentID: t.ID,
		Tournament:   t.Name,
		Round:        next,
		Message:      "a new tournament round is ready",
	})
	return nil
}

// roundWinnersLocked returns the winners of a round in slot order and
// whether every slot of the round has resolved.
func roundWinnersLocked(t *Tournament, round int) ([]string, bool) {
	records := t.Rounds[round]
	winners := make([]string, 0, len(records))
	for _, rec := range records {
		if rec.Winner == "" {
			return nil, false
		}
		winners = append(winners, rec.Winner)
	}
	return winners, true
}

// finish publishes the final event and persists the result. Anchoring
// and storage run in the background so a slow ledger cannot stall the
// reporting match loop.
func (m *Manager) finish(t *Tournament, winnerID string) {
	winnerName, err := m.resolver.ResolvePlayer(winnerID)
	if err != nil {
		log.Printf("tournament: resolve winner %s: %v", winnerID, err)
		winnerName = winnerID
	}

	m.publish(t, Event{
		Action:       "tournament_finished",
		TournamentID: t.ID,
		Tournament:   t.Name,
		Winner:       winnerName,
		Message:      winnerName + " won the tournament",
	})

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		ref, err := m.anchor.AnchorTournamentResult(ctx, t.Name, winnerName)
		if err != nil {
			log.Printf("tournament: anchor result for %s: %v", t.Name, err)
		}
		if m.results == nil {
			return
		}
		result := &store.TournamentResult{
			Name:       t.Name,
			WinnerName: winnerName,
			AnchorRef:  ref,
		}
		if err := m.results.SaveTournamentResult(ctx, result); err != nil {
			log.Printf("tournament: save result for %s: %v", t.Name, err)
		}
	}()
}
