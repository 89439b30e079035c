package game

import "fmt"

// Role identifies one of the two paddle seats of a match.
type Role string

const (
	RolePlayer1 Role = "player1"
	RolePlayer2 Role = "player2"
)

// Opponent returns the other seat.
func (r Role) Opponent() Role {
	if r == RolePlayer1 {
		return RolePlayer2
	}
	return RolePlayer1
}

// ParseRole validates a wire-level role string.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RolePlayer1, RolePlayer2:
		return Role(s), nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

// Action is the closed set of inbound player commands. Anything outside
// this set is rejected at the transport boundary instead of silently
// falling through.
type Action int

const (
	ActionMoveUp Action = iota
	ActionMoveDown
	ActionStopMoveUp
	ActionStopMoveDown
	ActionPauseGame
	ActionStartGame
	ActionResetGame
	ActionQuitGame
)

var actionNames = map[string]Action{
	"move_up":        ActionMoveUp,
	"move_down":      ActionMoveDown,
	"stop_move_up":   ActionStopMoveUp,
	"stop_move_down": ActionStopMoveDown,
	"pause_game":     ActionPauseGame,
	"start_game":     ActionStartGame,
	"reset_game":     ActionResetGame,
	"quit_game":      ActionQuitGame,
}

// ParseAction validates a wire-level action string.
func ParseAction(s string) (Action, error) {
	a, ok := actionNames[s]
	if !ok {
		return 0, fmt.Errorf("unknown action %q", s)
	}
	return a, nil
}

// String returns the wire name of the action.
func (a Action) String() string {
	for name, v := range actionNames {
		if v == a {
			return name
		}
	}
	return "unknown"
}

// Mode selects how many network seats a match requires.
type Mode int

const (
	// ModeOnline is a networked 1v1: both seats must connect.
	ModeOnline Mode = iota
	// ModeSolo pits one human against the AI controller on the second seat.
	ModeSolo
	// ModeLocal drives both paddles from a single connection using the
	// per-message role override.
	ModeLocal
)

// RequiredSeats returns how many network seats must be connected before
// the match can leave the Waiting phase.
func (m Mode) RequiredSeats() int {
	if m == ModeOnline {
		return 2
	}
	return 1
}

// String returns the wire name of the mode.
func (m Mode) String() string {
	switch m {
	case ModeSolo:
		return "solo"
	case ModeLocal:
		return "local"
	default:
		return "online"
	}
}

// ParseMode validates a wire-level mode string.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "online", "":
		return ModeOnline, nil
	case "solo":
		return ModeSolo, nil
	case "local":
		return ModeLocal, nil
	}
	return 0, fmt.Errorf("unknown mode %q", s)
}
