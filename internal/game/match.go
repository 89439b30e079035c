package game

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"pong-arena/internal/config"
)

// Phase is the match lifecycle state machine.
type Phase int

const (
	PhaseWaiting Phase = iota
	PhaseCountdown
	PhasePlaying
	PhaseGameOver
)

// String returns a readable phase name.
func (p Phase) String() string {
	switch p {
	case PhaseWaiting:
		return "waiting"
	case PhaseCountdown:
		return "countdown"
	case PhasePlaying:
		return "playing"
	default:
		return "game_over"
	}
}

// OverReason explains why a match ended.
type OverReason string

const (
	ReasonLifePoints OverReason = "lifepoints"
	ReasonDisconnect OverReason = "disconnect"
)

// Outcome is the final match result handed to the external sink and the
// finish callback exactly once per match.
type Outcome struct {
	MatchID        string
	Winner         Role
	Loser          Role
	WinnerIdentity string
	LoserIdentity  string
	Reason         OverReason
}

// OutcomeSink persists final match results. Implementations live outside
// the simulation; failures are logged, never propagated into it.
type OutcomeSink interface {
	PersistMatchOutcome(ctx context.Context, o Outcome) error
}

var (
	// ErrSeatTaken is returned when attaching to an occupied seat.
	ErrSeatTaken = errors.New("seat already taken")
	// ErrMatchOver is returned when attaching to a finished match.
	ErrMatchOver = errors.New("match is over")
)

type queuedAction struct {
	role   Role
	action Action
}

// Match owns one game's authoritative state. All state is mutated by the
// match's own tick loop; inbound actions are queued on a channel and
// drained at the top of each tick so intake and advancement never
// interleave.
type Match struct {
	id   string
	mode Mode
	cfg  config.GameConfig

	mu             sync.Mutex
	phase          Phase
	ball           Ball
	p1, p2         Paddle
	identities     map[Role]string
	paused         bool
	countdownTicks int
	tickCount      int64
	overReason     OverReason
	loser          Role
	seats          map[Role]*Seat

	actions  chan queuedAction
	stopChan chan struct{}
	stopOnce sync.Once
	finished sync.Once
	running  bool

	rng          *rand.Rand
	sink         OutcomeSink
	onFinish     func(Outcome)
	tickObserver func(time.Duration)
}

// Option configures a Match at creation time.
type Option func(*Match)

// WithIdentities binds the player identities behind the two seats.
func WithIdentities(p1, p2 string) Option {
	return func(m *Match) {
		m.identities[RolePlayer1] = p1
		m.identities[RolePlayer2] = p2
	}
}

// WithSink sets the external outcome sink.
func WithSink(s OutcomeSink) Option {
	return func(m *Match) { m.sink = s }
}

// WithOnFinish registers a callback invoked once with the final outcome.
func WithOnFinish(fn func(Outcome)) Option {
	return func(m *Match) { m.onFinish = fn }
}

// WithTickObserver registers a hook observing each tick's body duration.
func WithTickObserver(fn func(time.Duration)) Option {
	return func(m *Match) { m.tickObserver = fn }
}

// WithSeed fixes the direction-randomization seed, for deterministic tests.
func WithSeed(seed int64) Option {
	return func(m *Match) { m.rng = rand.New(rand.NewSource(seed)) }
}

// NewMatch creates a match in the Waiting phase.
func NewMatch(id string, mode Mode, cfg config.GameConfig, opts ...Option) *Match {
	m := &Match{
		id:         id,
		mode:       mode,
		cfg:        cfg,
		ball:       newBall(cfg),
		identities: make(map[Role]string),
		seats:      make(map[Role]*Seat),
		actions:    make(chan queuedAction, 64),
		stopChan:   make(chan struct{}),
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	m.p1 = newPaddle(cfg, cfg.Player1X())
	m.p2 = newPaddle(cfg, cfg.Player2X())
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// ID returns the match id.
func (m *Match) ID() string { return m.id }

// Mode returns the match mode.
func (m *Match) Mode() Mode { return m.mode }

// Phase returns the current lifecycle phase.
func (m *Match) Phase() Phase {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.phase
}

// Identity returns the player identity bound to a seat.
func (m *Match) Identity(role Role) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.identities[role]
}

// LifePoints returns the remaining life points of a seat.
func (m *Match) LifePoints(role Role) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.paddle(role).LifePoints
}

// Start begins the tick loop.
func (m *Match) Start() {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return
	}
	m.running = true
	m.mu.Unlock()

	go m.loop()
	log.Printf("match %s started (%s)", m.id, m.mode)
}

// Stop cancels the tick loop. Safe to call more than once.
func (m *Match) Stop() {
	m.stopOnce.Do(func() { close(m.stopChan) })
}

// Submit queues a player action for the next tick. Actions for unknown
// roles or on a full queue are dropped; neither is fatal to the match.
func (m *Match) Submit(role Role, a Action) {
	select {
	case m.actions <- queuedAction{role: role, action: a}:
	default:
	}
}

func (m *Match) loop() {
	interval := m.cfg.TickInterval()
	for {
		start := time.Now()

		m.mu.Lock()
		m.drainActionsLocked()
		m.stepLocked()
		over := m.phase == PhaseGameOver
		m.mu.Unlock()

		if m.tickObserver != nil {
			m.tickObserver(time.Since(start))
		}
		if over {
			m.finish()
			return
		}

		// Self-pacing: sleep only the remainder of the tick period so
		// ticks do not drift when the body runs long.
		rest := interval - time.Since(start)
		if rest > 0 {
			select {
			case <-time.After(rest):
			case <-m.stopChan:
				return
			}
		} else {
			select {
			case <-m.stopChan:
				return
			default:
			}
		}
	}
}

func (m *Match) drainActionsLocked() {
	for {
		select {
		case qa := <-m.actions:
			m.applyLocked(qa.role, qa.action)
		default:
			return
		}
	}
}

// applyLocked handles one inbound action. Stop actions clear the
// velocity only when its sign matches, so a stale stop never cancels a
// newer opposite move.
func (m *Match) applyLocked(role Role, a Action) {
	p := m.paddle(role)

	switch a {
	case ActionMoveUp:
		p.DY = -p.Speed
	case ActionMoveDown:
		p.DY = p.Speed
	case ActionStopMoveUp:
		if p.DY < 0 {
			p.DY = 0
		}
	case ActionStopMoveDown:
		if p.DY > 0 {
			p.DY = 0
		}
	case ActionPauseGame:
		m.paused = !m.paused
	case ActionStartGame:
		if m.phase == PhaseWaiting && m.connectedSeats() >= m.mode.RequiredSeats() {
			m.enterCountdownLocked()
		}
	case ActionResetGame:
		resetPositions(&m.ball, &m.p1, &m.p2, m.cfg, m.rng)
	case ActionQuitGame:
		p.Disconnected = true
	}
}

func (m *Match) stepLocked() {
	if m.phase == PhaseGameOver {
		return
	}
	m.tickCount++

	// A set disconnect flag ends the match regardless of phase.
	if m.p1.Disconnected {
		m.gameOverLocked(ReasonDisconnect, RolePlayer1)
		return
	}
	if m.p2.Disconnected {
		m.gameOverLocked(ReasonDisconnect, RolePlayer2)
		return
	}

	switch m.phase {
	case PhaseWaiting:
		if m.connectedSeats() >= m.mode.RequiredSeats() {
			m.enterCountdownLocked()
			return
		}
		if m.tickCount%int64(m.cfg.TickRate) == 0 {
			m.broadcastLocked(encode(TextMessage{Type: "waiting", Message: "waiting for players"}))
		}

	case PhaseCountdown:
		m.countdownTicks--
		if m.countdownTicks <= 0 {
			m.phase = PhasePlaying
			return
		}
		if m.countdownTicks%m.cfg.TickRate == 0 {
			remaining := m.countdownTicks / m.cfg.TickRate
			m.broadcastLocked(encode(TextMessage{Type: "countdown", Message: strconv.Itoa(remaining)}))
		}

	case PhasePlaying:
		if !m.paused {
			m.advanceLocked()
		}
		if m.phase == PhasePlaying || m.phase == PhaseCountdown {
			m.broadcastLocked(encode(m.snapshotLocked()))
		}
	}
}

// advanceLocked runs one physics tick: ball, paddles, paddle collision,
// wall reflection, then scoring.
func (m *Match) advanceLocked() {
	stepBall(&m.ball)
	stepPaddle(&m.p1, m.cfg)
	stepPaddle(&m.p2, m.cfg)
	collidePaddles(&m.ball, &m.p1, &m.p2, m.cfg)
	reflectWalls(&m.ball, m.cfg)

	conceded, ok := crossedGoal(&m.ball, m.cfg)
	if !ok {
		return
	}

	p := m.paddle(conceded)
	p.LifePoints--
	if p.LifePoints <= 0 {
		m.gameOverLocked(ReasonLifePoints, conceded)
		return
	}
	resetPositions(&m.ball, &m.p1, &m.p2, m.cfg, m.rng)
	m.enterCountdownLocked()
}

func (m *Match) enterCountdownLocked() {
	m.phase = PhaseCountdown
	m.countdownTicks = m.cfg.CountdownSec * m.cfg.TickRate
	m.broadcastLocked(encode(TextMessage{Type: "countdown", Message: strconv.Itoa(m.cfg.CountdownSec)}))
}

func (m *Match) gameOverLocked(reason OverReason, loser Role) {
	m.phase = PhaseGameOver
	m.overReason = reason
	m.loser = loser
	m.broadcastLocked(encode(TextMessage{
		Type:    "game_over",
		Message: fmt.Sprintf("%s %s", loser, reason),
	}))
}

// finish reports the outcome exactly once, then releases the seats.
func (m *Match) finish() {
	m.finished.Do(func() {
		m.mu.Lock()
		out := Outcome{
			MatchID:        m.id,
			Winner:         m.loser.Opponent(),
			Loser:          m.loser,
			WinnerIdentity: m.identities[m.loser.Opponent()],
			LoserIdentity:  m.identities[m.loser],
			Reason:         m.overReason,
		}
		seats := make([]*Seat, 0, len(m.seats))
		for _, s := range m.seats {
			seats = append(seats, s)
		}
		m.mu.Unlock()

		if m.sink != nil {
			go func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := m.sink.PersistMatchOutcome(ctx, out); err != nil {
					log.Printf("match %s: persisting outcome failed: %v", m.id, err)
				}
			}()
		}
		if m.onFinish != nil {
			go m.onFinish(out)
		}

		m.Stop()
		for _, s := range seats {
			s.shutdown()
		}
		log.Printf("match %s over: %s wins (%s %s)", m.id, out.Winner, out.Loser, out.Reason)
	})
}

func (m *Match) paddle(role Role) *Paddle {
	if role == RolePlayer2 {
		return &m.p2
	}
	return &m.p1
}

func (m *Match) connectedSeats() int {
	switch m.mode {
	case ModeLocal:
		// One connection drives both paddles.
		if m.p1.Connected {
			return m.mode.RequiredSeats()
		}
		return 0
	case ModeSolo:
		// The AI attaches to player2 immediately; only the human seat
		// gates the start, or the countdown runs against a dead paddle.
		if m.p1.Connected {
			return m.mode.RequiredSeats()
		}
		return 0
	default:
		n := 0
		if m.p1.Connected {
			n++
		}
		if m.p2.Connected {
			n++
		}
		return n
	}
}

func (m *Match) snapshotLocked() PositionUpdate {
	return PositionUpdate{
		Type: "position_update",
		BallPosition: BallPosition{
			X: m.ball.X, Y: m.ball.Y, DX: m.ball.DX, DY: m.ball.DY,
		},
		Player1State: PaddleSnapshot{X: m.p1.X, Y: m.p1.Y, LifePoints: m.p1.LifePoints},
		Player2State: PaddleSnapshot{X: m.p2.X, Y: m.p2.Y, LifePoints: m.p2.LifePoints},
	}
}

// Snapshot returns the current outbound view of the match state.
func (m *Match) Snapshot() PositionUpdate {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

func (m *Match) broadcastLocked(data []byte) {
	if data == nil {
		return
	}
	for _, s := range m.seats {
		s.push(data)
	}
}
