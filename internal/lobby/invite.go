package lobby

import (
	"log"
	"time"

	"github.com/google/uuid"

	"pong-arena/internal/game"
)

// invite is a pending direct match invitation. Unlike queue tickets,
// invitations expire after a fixed interval and both parties are told.
type invite struct {
	id       string
	from, to string
	fromN    Notifier
	toN      Notifier
	timer    *time.Timer
}

// Invite creates a direct invitation from one player to another,
// bypassing the queue. It expires after the configured TTL.
func (l *Lobby) Invite(from, to string, fromN, toN Notifier) string {
	inv := &invite{
		id:    uuid.NewString(),
		from:  from,
		to:    to,
		fromN: fromN,
		toN:   toN,
	}
	inv.timer = time.AfterFunc(l.cfg.InviteTTL, func() { l.expireInvite(inv.id) })

	l.mu.Lock()
	l.invites[inv.id] = inv
	l.mu.Unlock()

	notify(toN, QueueStatus{Type: "invite", Message: from + " invited you to a match"})
	log.Printf("lobby: %s invited %s (invite %s)", from, to, inv.id)
	return inv.id
}

// AcceptInvite promotes an invitation into an online match. Only the
// invited player may accept; expired invitations are gone.
func (l *Lobby) AcceptInvite(id, identity string) (*game.Match, error) {
	l.mu.Lock()
	inv, ok := l.invites[id]
	if !ok {
		l.mu.Unlock()
		return nil, ErrInviteNotFound
	}
	if inv.to != identity {
		l.mu.Unlock()
		return nil, ErrNotInvitee
	}
	delete(l.invites, id)
	l.mu.Unlock()

	inv.timer.Stop()

	m := l.CreateOnlineMatch(inv.from, inv.to, nil)
	notify(inv.fromN, GameFound{Type: "game_found", GameID: m.ID(), Role: string(game.RolePlayer1)})
	notify(inv.toN, GameFound{Type: "game_found", GameID: m.ID(), Role: string(game.RolePlayer2)})
	return m, nil
}

// expireInvite drops a timed-out invitation and tells both parties.
func (l *Lobby) expireInvite(id string) {
	l.mu.Lock()
	inv, ok := l.invites[id]
	delete(l.invites, id)
	l.mu.Unlock()

	if !ok {
		return
	}
	notify(inv.fromN, QueueStatus{Type: "invite_expired", Message: inv.to + " did not answer in time"})
	notify(inv.toN, QueueStatus{Type: "invite_expired", Message: "invitation from " + inv.from + " expired"})
	log.Printf("lobby: invite %s expired", id)
}
