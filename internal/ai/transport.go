// Package ai is the predictive opponent bound to the second seat of
// solo matches. It speaks the same JSON frame protocol as a human
// client and never reads engine state directly.
package ai

import (
	"errors"
	"io"

	"github.com/gorilla/websocket"

	"pong-arena/internal/game"
)

// Transport is one duplex frame pipe to a match. The controller only
// ever sees frames, so it can sit on an in-process seat or on a real
// websocket without changing behavior.
type Transport interface {
	ReadMessage() ([]byte, error)
	WriteMessage(data []byte) error
	Close() error
}

// seatTransport adapts an in-process match seat.
type seatTransport struct {
	seat *game.Seat
}

// NewSeatTransport wraps a match seat as a Transport.
func NewSeatTransport(s *game.Seat) Transport {
	return &seatTransport{seat: s}
}

func (t *seatTransport) ReadMessage() ([]byte, error) {
	data, ok := <-t.seat.Recv()
	if !ok {
		return nil, io.EOF
	}
	return data, nil
}

func (t *seatTransport) WriteMessage(data []byte) error {
	return t.seat.Send(data)
}

func (t *seatTransport) Close() error {
	t.seat.Close()
	return nil
}

// wsTransport runs the controller over a real websocket, which is how
// an out-of-process controller would join a match.
type wsTransport struct {
	conn *websocket.Conn
}

// Dial connects a websocket Transport to a game endpoint, e.g.
// ws://host:8000/ws/game/<id>?player_id=player2&mode=solo.
func Dial(url string) (Transport, error) {
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		return nil, err
	}
	return &wsTransport{conn: conn}, nil
}

func (t *wsTransport) ReadMessage() ([]byte, error) {
	kind, data, err := t.conn.ReadMessage()
	if err != nil {
		return nil, err
	}
	if kind != websocket.TextMessage {
		return nil, errors.New("unexpected binary frame")
	}
	return data, nil
}

func (t *wsTransport) WriteMessage(data []byte) error {
	return t.conn.WriteMessage(websocket.TextMessage, data)
}

func (t *wsTransport) Close() error {
	return t.conn.Close()
}
