package tournament

import (
	"context"
	"log"

	"github.com/google/uuid"
)

// Anchorer records a finished tournament on an external ledger. The call
// is fire-and-forget: failures are logged, never retried synchronously,
// and never reach the bracket state.
type Anchorer interface {
	AnchorTournamentResult(ctx context.Context, name, winnerName string) (string, error)
}

// LogAnchorer is the default Anchorer used when no ledger is wired. It
// fabricates a local reference so downstream persistence still works.
type LogAnchorer struct{}

// AnchorTournamentResult logs the result and returns a local reference.
func (LogAnchorer) AnchorTournamentResult(_ context.Context, name, winnerName string) (string, error) {
	ref := "local-" + uuid.NewString()
	log.Printf("tournament %q: result anchored locally as %s (winner %s)", name, ref, winnerName)
	return ref, nil
}

// PlayerResolver turns an opaque identity into a display name.
type PlayerResolver interface {
	ResolvePlayer(identity string) (string, error)
}

// identityResolver echoes the identity, for wiring without an account
// service.
type identityResolver struct{}

func (identityResolver) ResolvePlayer(identity string) (string, error) {
	return identity, nil
}

// Presence answers whether a participant is currently reachable. The
// notify hub satisfies it.
type Presence interface {
	IsOnline(identity string) bool
}

// alwaysOnline is used when no presence oracle is wired.
type alwaysOnline struct{}

func (alwaysOnline) IsOnline(string) bool { return true }
