package game

import "encoding/json"

// ActionMessage is the inbound wire format for player commands.
// Player is an optional role override used by local matches where one
// connection drives both paddles.
type ActionMessage struct {
	Action string `json:"action"`
	Player string `json:"player,omitempty"`
}

// BallPosition is the outbound ball state.
type BallPosition struct {
	X  float64 `json:"x"`
	Y  float64 `json:"y"`
	DX float64 `json:"dx"`
	DY float64 `json:"dy"`
}

// PaddleSnapshot is the outbound per-paddle state.
type PaddleSnapshot struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	LifePoints int     `json:"lifepoints"`
}

// PositionUpdate is broadcast to every seat once per tick while playing.
type PositionUpdate struct {
	Type         string         `json:"type"`
	BallPosition BallPosition   `json:"ball_position"`
	Player1State PaddleSnapshot `json:"player1_state"`
	Player2State PaddleSnapshot `json:"player2_state"`
}

// TextMessage covers waiting, countdown, game_over and error frames.
type TextMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func encode(v any) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return data
}
