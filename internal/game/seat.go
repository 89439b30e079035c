package game

import (
	"encoding/json"
	"fmt"
	"sync"
)

// Seat is one wire endpoint of a match. Human players reach it through a
// websocket handler, the AI controller holds one directly; both speak
// the identical JSON protocol through it.
type Seat struct {
	role  Role
	match *Match

	out       chan []byte
	closeOnce sync.Once
}

// Attach binds a connection to a seat and marks its paddle connected.
func (m *Match) Attach(role Role) (*Seat, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.phase == PhaseGameOver {
		return nil, ErrMatchOver
	}
	if _, taken := m.seats[role]; taken {
		return nil, ErrSeatTaken
	}

	s := &Seat{
		role:  role,
		match: m,
		out:   make(chan []byte, 64),
	}
	m.seats[role] = s
	m.paddle(role).Connected = true
	if m.mode == ModeLocal {
		// A local match drives both paddles from one connection.
		m.p1.Connected = true
		m.p2.Connected = true
	}
	return s, nil
}

// Role returns the seat's role.
func (s *Seat) Role() Role { return s.role }

// Recv returns the outbound frame channel. It is closed when the seat
// shuts down; slow consumers lose frames rather than stalling the loop.
func (s *Seat) Recv() <-chan []byte { return s.out }

// Send delivers one raw inbound frame. Malformed frames and unknown
// actions are rejected with an error; the seat stays usable.
func (s *Seat) Send(data []byte) error {
	var msg ActionMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return fmt.Errorf("malformed action message: %w", err)
	}

	action, err := ParseAction(msg.Action)
	if err != nil {
		return err
	}

	role := s.role
	if msg.Player != "" && s.match.mode == ModeLocal {
		override, err := ParseRole(msg.Player)
		if err != nil {
			return err
		}
		role = override
	}

	s.match.Submit(role, action)
	return nil
}

// Close detaches the seat. A detach during an active match is a forfeit:
// the paddle's disconnect flag is set and the next tick ends the game.
func (s *Seat) Close() {
	m := s.match
	m.mu.Lock()
	if m.seats[s.role] == s {
		delete(m.seats, s.role)
		p := m.paddle(s.role)
		p.Connected = false
		if m.phase != PhaseGameOver {
			p.Disconnected = true
		}
	}
	m.mu.Unlock()
	s.shutdown()
}

// push enqueues an outbound frame, dropping it if the buffer is full.
func (s *Seat) push(data []byte) {
	select {
	case s.out <- data:
	default:
	}
}

func (s *Seat) shutdown() {
	s.closeOnce.Do(func() { close(s.out) })
}
