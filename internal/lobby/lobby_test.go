package lobby

import (
	"sync"
	"testing"
	"time"

	"pong-arena/internal/config"
	"pong-arena/internal/game"
)

type recorder struct {
	mu     sync.Mutex
	events []any
}

func (r *recorder) Notify(e any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *recorder) gameFound() (GameFound, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.events {
		if gf, ok := e.(GameFound); ok {
			return gf, true
		}
	}
	return GameFound{}, false
}

func (r *recorder) hasStatus(typ string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.events {
		if qs, ok := e.(QueueStatus); ok && qs.Type == typ {
			return true
		}
	}
	return false
}

func newTestLobby(t *testing.T, opts ...Option) *Lobby {
	t.Helper()
	l := New(config.DefaultMatchmaking(), config.DefaultGame(), opts...)
	t.Cleanup(l.Shutdown)
	return l
}

func TestDuplicateEnqueueRejected(t *testing.T) {
	l := newTestLobby(t)

	if err := l.Enqueue("alice", 0.5, &recorder{}); err != nil {
		t.Fatalf("first enqueue: %v", err)
	}
	if err := l.Enqueue("alice", 0.5, &recorder{}); err != ErrAlreadyQueued {
		t.Errorf("expected ErrAlreadyQueued, got %v", err)
	}
}

func TestDequeue(t *testing.T) {
	l := newTestLobby(t)

	_ = l.Enqueue("alice", 0.5, &recorder{})
	if !l.Dequeue("alice") {
		t.Error("expected dequeue to find the ticket")
	}
	if l.Dequeue("alice") {
		t.Error("second dequeue should find nothing")
	}
	if l.QueueLen() != 0 {
		t.Errorf("queue not empty: %d", l.QueueLen())
	}
}

func TestIdenticalRatiosPairOnNextPass(t *testing.T) {
	l := newTestLobby(t)
	a, b := &recorder{}, &recorder{}

	_ = l.Enqueue("alice", 0.5, a)
	_ = l.Enqueue("bob", 0.5, b)

	l.pass(time.Now())

	if l.QueueLen() != 0 {
		t.Fatalf("tickets still queued after pass: %d", l.QueueLen())
	}
	if l.ActiveMatches() != 1 {
		t.Fatalf("expected 1 active match, got %d", l.ActiveMatches())
	}

	gfA, okA := a.gameFound()
	gfB, okB := b.gameFound()
	if !okA || !okB {
		t.Fatal("both players should receive game_found")
	}
	if gfA.Role != "player1" || gfB.Role != "player2" {
		t.Errorf("roles follow enqueue order: got %s / %s", gfA.Role, gfB.Role)
	}
	if gfA.GameID != gfB.GameID {
		t.Errorf("players notified about different matches")
	}

	m, ok := l.Match(gfA.GameID)
	if !ok {
		t.Fatal("match not registered in lobby")
	}
	if m.Identity(game.RolePlayer1) != "alice" || m.Identity(game.RolePlayer2) != "bob" {
		t.Errorf("identities not bound to seats")
	}
}

func TestDistantRatiosAgeThroughBands(t *testing.T) {
	l := newTestLobby(t)
	now := time.Now()

	_ = l.Enqueue("novice", 0.2, &recorder{})
	_ = l.Enqueue("shark", 0.7, &recorder{})

	// Elapsed < 10s: gap 0.5 is far outside the 0.1 band.
	l.pass(now)
	if l.QueueLen() != 2 {
		t.Fatalf("tickets paired before aging: %d queued", l.QueueLen())
	}

	// Elapsed 15s: still outside the 0.2 band.
	l.mu.Lock()
	l.queue[0].EnqueuedAt = now.Add(-15 * time.Second)
	l.mu.Unlock()
	l.pass(now)
	if l.QueueLen() != 2 {
		t.Fatalf("tickets paired inside the wide band with gap 0.5")
	}

	// Elapsed >= 20s: any gap is acceptable.
	l.mu.Lock()
	l.queue[0].EnqueuedAt = now.Add(-21 * time.Second)
	l.mu.Unlock()
	l.pass(now)
	if l.QueueLen() != 0 {
		t.Fatalf("aged ticket not paired: %d queued", l.QueueLen())
	}
}

func TestLongestWaitingCandidateWins(t *testing.T) {
	l := newTestLobby(t)
	second := &recorder{}

	_ = l.Enqueue("first", 0.5, &recorder{})
	_ = l.Enqueue("second", 0.5, second)
	_ = l.Enqueue("third", 0.5, &recorder{})

	l.pass(time.Now())

	gf, ok := second.gameFound()
	if !ok {
		t.Fatal("longest-waiting candidate was not chosen")
	}
	if gf.Role != "player2" {
		t.Errorf("candidate should take player2, got %s", gf.Role)
	}
	if l.QueueLen() != 1 {
		t.Errorf("expected one leftover ticket, got %d", l.QueueLen())
	}
}

func TestStillWaitingNotification(t *testing.T) {
	l := newTestLobby(t)
	r := &recorder{}

	_ = l.Enqueue("alice", 0.5, r)

	l.mu.Lock()
	l.queue[0].lastNotified = time.Now().Add(-6 * time.Second)
	l.mu.Unlock()

	l.pass(time.Now())

	if !r.hasStatus("waiting") {
		t.Error("expected a still-waiting notification after the notify interval")
	}
}

func TestSoloMatchSpawnsAI(t *testing.T) {
	var spawned *game.Match
	l := newTestLobby(t, WithAISpawner(func(m *game.Match) { spawned = m }))

	m := l.CreateSoloMatch("alice")

	if spawned != m {
		t.Error("AI spawner not invoked with the new match")
	}
	if m.Mode() != game.ModeSolo {
		t.Errorf("expected solo mode, got %s", m.Mode())
	}
	if _, ok := l.Match(m.ID()); !ok {
		t.Error("solo match not registered")
	}
}

func TestRemoveStopsAndUnregisters(t *testing.T) {
	l := newTestLobby(t)

	m := l.CreateLocalMatch("alice")
	l.Remove(m.ID())

	if _, ok := l.Match(m.ID()); ok {
		t.Error("match still registered after removal")
	}
	// Removing twice must be harmless.
	l.Remove(m.ID())
}

func TestInviteExpiryNotifiesBothParties(t *testing.T) {
	cfg := config.DefaultMatchmaking()
	cfg.InviteTTL = 20 * time.Millisecond
	l := New(cfg, config.DefaultGame())
	t.Cleanup(l.Shutdown)

	from, to := &recorder{}, &recorder{}
	l.Invite("alice", "bob", from, to)

	time.Sleep(100 * time.Millisecond)

	if !from.hasStatus("invite_expired") || !to.hasStatus("invite_expired") {
		t.Error("both parties must hear about an expired invite")
	}
}

func TestShutdownCancelsPendingInvites(t *testing.T) {
	cfg := config.DefaultMatchmaking()
	cfg.InviteTTL = 20 * time.Millisecond
	l := New(cfg, config.DefaultGame())

	from, to := &recorder{}, &recorder{}
	l.Invite("alice", "bob", from, to)
	l.Shutdown()

	time.Sleep(100 * time.Millisecond)

	if from.hasStatus("invite_expired") || to.hasStatus("invite_expired") {
		t.Error("invite timer fired after shutdown")
	}
}

func TestScheduledPassPairsTickets(t *testing.T) {
	cfg := config.DefaultMatchmaking()
	cfg.PassInterval = 20 * time.Millisecond
	l := New(cfg, config.DefaultGame())
	if err := l.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	t.Cleanup(l.Shutdown)

	a, b := &recorder{}, &recorder{}
	_ = l.Enqueue("alice", 0.5, a)
	_ = l.Enqueue("bob", 0.5, b)

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if _, ok := a.gameFound(); ok {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	gfA, okA := a.gameFound()
	gfB, okB := b.gameFound()
	if !okA || !okB {
		t.Fatal("scheduler never paired the queued tickets")
	}
	if gfA.GameID != gfB.GameID {
		t.Errorf("players notified about different matches")
	}
	if l.QueueLen() != 0 {
		t.Errorf("tickets left queued: %d", l.QueueLen())
	}
}

func TestAcceptInvite(t *testing.T) {
	l := newTestLobby(t)
	from, to := &recorder{}, &recorder{}

	id := l.Invite("alice", "bob", from, to)

	if _, err := l.AcceptInvite(id, "mallory"); err != ErrNotInvitee {
		t.Errorf("expected ErrNotInvitee, got %v", err)
	}

	m, err := l.AcceptInvite(id, "bob")
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	if m.Identity(game.RolePlayer1) != "alice" || m.Identity(game.RolePlayer2) != "bob" {
		t.Errorf("invite identities not bound to seats")
	}

	if _, err := l.AcceptInvite(id, "bob"); err != ErrInviteNotFound {
		t.Errorf("accepting twice should fail, got %v", err)
	}
}
