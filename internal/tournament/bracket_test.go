package tournament

import (
	"context"
	"sync"
	"testing"
	"time"

	"pong-arena/internal/config"
	"pong-arena/internal/lobby"
	"pong-arena/internal/store"
)

type feedRecorder struct {
	mu     sync.Mutex
	events map[string][]Event
}

func newFeedRecorder() *feedRecorder {
	return &feedRecorder{events: make(map[string][]Event)}
}

func (f *feedRecorder) Publish(_ context.Context, channel string, event any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if ev, ok := event.(Event); ok {
		f.events[channel] = append(f.events[channel], ev)
	}
	return nil
}

func (f *feedRecorder) actions(channel string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, ev := range f.events[channel] {
		out = append(out, ev.Action)
	}
	return out
}

func newTestManager(t *testing.T, opts ...ManagerOption) (*Manager, *feedRecorder, *store.Memory) {
	t.Helper()
	l := lobby.New(config.DefaultMatchmaking(), config.DefaultGame())
	t.Cleanup(l.Shutdown)

	feed := newFeedRecorder()
	mem := store.NewMemory()
	opts = append(opts, WithResultSink(mem), WithRandSeed(1))
	return NewManager(l, feed, opts...), feed, mem
}

func TestCreatePairsAdjacentWithTrailingBye(t *testing.T) {
	m, feed, _ := newTestManager(t)

	tr, err := m.Create("summer cup", []string{"a", "b", "c", "d", "e"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	round := tr.Rounds[1]
	if len(round) != 3 {
		t.Fatalf("expected 3 first-round records, got %d", len(round))
	}
	if round[0].Player1 != "a" || round[0].Player2 != "b" {
		t.Errorf("first pair = %s vs %s", round[0].Player1, round[0].Player2)
	}
	if round[1].Player1 != "c" || round[1].Player2 != "d" {
		t.Errorf("second pair = %s vs %s", round[1].Player1, round[1].Player2)
	}
	bye := round[2]
	if bye.Player2 != "" {
		t.Errorf("trailing record should be a bye, got opponent %q", bye.Player2)
	}
	if bye.Winner != "e" {
		t.Errorf("bye should resolve immediately for e, got winner %q", bye.Winner)
	}

	actions := feed.actions(FeedChannel)
	if len(actions) != 1 || actions[0] != "new_tournament" {
		t.Errorf("feed actions = %v, expected [new_tournament]", actions)
	}
}

func TestCreateRequiresTwoReachablePlayers(t *testing.T) {
	m, _, _ := newTestManager(t, WithPresence(presenceFunc(func(id string) bool {
		return id == "a"
	})))

	if _, err := m.Create("ghost town", []string{"a", "b", "c"}); err != ErrNotEnoughPlayers {
		t.Errorf("expected ErrNotEnoughPlayers, got %v", err)
	}
}

type presenceFunc func(string) bool

func (f presenceFunc) IsOnline(id string) bool { return f(id) }

func TestRoundAdvancesWhenAllSlotsResolve(t *testing.T) {
	m, feed, _ := newTestManager(t)

	tr, err := m.Create("cup", []string{"a", "b", "c", "d", "e"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	round := tr.Rounds[1]
	if err := m.ReportResult(round[0].ID, "a"); err != nil {
		t.Fatalf("first result: %v", err)
	}
	if _, ok := tr.Rounds[2]; ok {
		t.Fatal("round 2 built before round 1 completed")
	}
	if err := m.ReportResult(round[1].ID, "d"); err != nil {
		t.Fatalf("second result: %v", err)
	}

	next, ok := tr.Rounds[2]
	if !ok {
		t.Fatal("round 2 not built after round 1 completed")
	}
	if len(next) != 2 {
		t.Fatalf("expected 2 second-round records for 3 winners, got %d", len(next))
	}
	if next[1].Player2 != "" || next[1].Winner == "" {
		t.Errorf("odd winner set should grant one player a resolved bye")
	}

	seen := map[string]bool{}
	for _, rec := range next {
		seen[rec.Player1] = true
		if rec.Player2 != "" {
			seen[rec.Player2] = true
		}
	}
	for _, w := range []string{"a", "d", "e"} {
		if !seen[w] {
			t.Errorf("winner %s missing from round 2", w)
		}
	}

	found := false
	for _, a := range feed.actions(FeedChannel) {
		if a == "round_start" {
			found = true
		}
	}
	if !found {
		t.Error("round_start event not published")
	}
}

func TestDuplicateReportIsNoOp(t *testing.T) {
	m, _, _ := newTestManager(t)

	tr, err := m.Create("cup", []string{"a", "b"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	rec := tr.Rounds[1][0]

	if err := m.ReportResult(rec.ID, "a"); err != nil {
		t.Fatalf("first report: %v", err)
	}
	if err := m.ReportResult(rec.ID, "b"); err != nil {
		t.Fatalf("second report should be a no-op, got %v", err)
	}
	if rec.Winner != "a" {
		t.Errorf("winner changed by duplicate report: %s", rec.Winner)
	}
}

func TestInvalidWinnerRejected(t *testing.T) {
	m, _, _ := newTestManager(t)

	tr, err := m.Create("cup", []string{"a", "b"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := m.ReportResult(tr.Rounds[1][0].ID, "mallory"); err != ErrInvalidWinner {
		t.Errorf("expected ErrInvalidWinner, got %v", err)
	}
}

func TestFinalWinnerFinishesTournament(t *testing.T) {
	m, feed, mem := newTestManager(t)

	tr, err := m.Create("cup", []string{"a", "b"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := m.ReportResult(tr.Rounds[1][0].ID, "b"); err != nil {
		t.Fatalf("report: %v", err)
	}

	if tr.Active {
		t.Error("tournament still active after final result")
	}

	finished := false
	for _, ev := range feed.events[tr.Channel()] {
		if ev.Action == "tournament_finished" && ev.Winner == "b" {
			finished = true
		}
	}
	if !finished {
		t.Error("tournament_finished event with winner b not published")
	}

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if len(mem.TournamentResults()) > 0 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	results := mem.TournamentResults()
	if len(results) != 1 {
		t.Fatalf("expected 1 stored result, got %d", len(results))
	}
	if results[0].WinnerName != "b" || results[0].Name != "cup" {
		t.Errorf("stored result = %+v", results[0])
	}
	if results[0].AnchorRef == "" {
		t.Error("anchor reference missing from stored result")
	}
}

func TestStartMatchIsLazyAndIdempotent(t *testing.T) {
	m, _, _ := newTestManager(t)

	tr, err := m.Create("cup", []string{"a", "b"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	rec := tr.Rounds[1][0]

	if _, err := m.StartMatch(rec.ID, "outsider"); err != ErrNotParticipant {
		t.Errorf("expected ErrNotParticipant, got %v", err)
	}

	first, err := m.StartMatch(rec.ID, "a")
	if err != nil {
		t.Fatalf("StartMatch: %v", err)
	}
	if first == "" {
		t.Fatal("StartMatch returned empty match id")
	}
	second, err := m.StartMatch(rec.ID, "b")
	if err != nil {
		t.Fatalf("second StartMatch: %v", err)
	}
	if second != first {
		t.Errorf("second start created a new match: %s vs %s", second, first)
	}

	if err := m.ReportResult(rec.ID, "a"); err != nil {
		t.Fatalf("report: %v", err)
	}
	if _, err := m.StartMatch(rec.ID, "a"); err != ErrRecordResolved {
		t.Errorf("expected ErrRecordResolved after resolution, got %v", err)
	}
}

func TestViewRequiresAliasForParticipants(t *testing.T) {
	m, _, _ := newTestManager(t)

	tr, err := m.Create("cup", []string{"a", "b"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if _, err := m.View(tr.ID, "a"); err != ErrAliasRequired {
		t.Errorf("expected ErrAliasRequired, got %v", err)
	}
	if _, err := m.View(tr.ID, "spectator"); err != nil {
		t.Errorf("spectator view should not require an alias: %v", err)
	}

	if err := m.SetAlias(tr.ID, "a", "ace"); err != nil {
		t.Fatalf("SetAlias: %v", err)
	}
	view, err := m.View(tr.ID, "a")
	if err != nil {
		t.Fatalf("View after alias: %v", err)
	}
	if len(view.Rounds) != 1 || len(view.Rounds[0]) != 1 {
		t.Fatalf("unexpected bracket shape: %+v", view.Rounds)
	}
	if view.Participants[0].Alias != "ace" {
		t.Errorf("alias not reflected in view: %+v", view.Participants[0])
	}
}
