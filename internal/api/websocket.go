package api

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"pong-arena/internal/game"
	"pong-arena/internal/lobby"
	"pong-arena/internal/notify"
)

func (s *Server) upgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if s.originAllowed(origin) {
				return true
			}
			log.Printf("api: websocket rejected from origin %s", origin)
			RecordConnectionRejected("origin")
			return false
		},
	}
}

// wsConn serializes writes to one websocket. Gorilla connections allow
// only a single concurrent writer; frames here come from the read loop,
// the match seat pump and the notification hub.
type wsConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *wsConn) sendJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(v)
}

func (c *wsConn) sendRaw(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// Notify implements lobby.Notifier, so a lobby connection doubles as the
// ticket's delivery address.
func (c *wsConn) Notify(event any) error {
	return c.sendJSON(event)
}

// hubNotifier is a lobby.Notifier delivering through the notification
// hub instead of a live socket, used for the absent party of an invite.
type hubNotifier struct {
	pub     notify.Publisher
	channel string
}

func (n hubNotifier) Notify(event any) error {
	return n.pub.Publish(context.Background(), n.channel, event)
}

// lobbyCommand is the inbound lobby socket message. Ratio is a pointer
// so an absent field is distinguishable from a genuine 0.0 ratio.
type lobbyCommand struct {
	Action   string   `json:"action"`
	Mode     string   `json:"mode,omitempty"`
	Ratio    *float64 `json:"ratio,omitempty"`
	To       string   `json:"to,omitempty"`
	InviteID string   `json:"invite_id,omitempty"`
}

// handleLobbyWS serves /ws/lobby?identity=<id>&ratio=<winratio>. The
// connection carries matchmaking commands inbound and queue / invite /
// game-found notifications outbound, including events published to the
// identity's user channel while this socket is open.
func (s *Server) handleLobbyWS(w http.ResponseWriter, r *http.Request) {
	identity := r.URL.Query().Get("identity")
	if identity == "" {
		writeError(w, "identity required", http.StatusBadRequest)
		return
	}

	// Players with no history queue at the default ratio.
	defaultRatio := lobby.DefaultRatio
	if raw := r.URL.Query().Get("ratio"); raw != "" {
		if v, err := strconv.ParseFloat(raw, 64); err == nil {
			defaultRatio = v
		}
	}

	up := s.upgrader()
	conn, err := up.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	c := &wsConn{conn: conn}
	wsConnectionsActive.Inc()
	defer wsConnectionsActive.Dec()

	sub := s.hub.Subscribe(notify.UserChannel(identity))
	defer sub.Unsubscribe()
	go func() {
		for frame := range sub.Frames() {
			if err := c.sendRaw(frame); err != nil {
				return
			}
		}
	}()

	defer func() {
		s.lobby.Dequeue(identity)
		conn.Close()
	}()

	for {
		var cmd lobbyCommand
		if err := conn.ReadJSON(&cmd); err != nil {
			return
		}
		s.dispatchLobbyCommand(c, identity, defaultRatio, cmd)
	}
}

func (s *Server) dispatchLobbyCommand(c *wsConn, identity string, defaultRatio float64, cmd lobbyCommand) {
	switch cmd.Action {
	case "find_game":
		s.handleFindGame(c, identity, defaultRatio, cmd)

	case "quit_queue":
		if s.lobby.Dequeue(identity) {
			c.sendJSON(lobby.QueueStatus{Type: "queue_left", Message: "you left the queue"})
		} else {
			c.sendJSON(lobby.QueueStatus{Type: "error", Message: "not in queue"})
		}

	case "invite":
		if cmd.To == "" || cmd.To == identity {
			c.sendJSON(lobby.QueueStatus{Type: "error", Message: "invalid invitee"})
			return
		}
		inviteID := s.lobby.Invite(identity, cmd.To, c, hubNotifier{
			pub:     s.hub,
			channel: notify.UserChannel(cmd.To),
		})
		c.sendJSON(map[string]string{"type": "invite_sent", "invite_id": inviteID})

	case "accept_invite":
		if _, err := s.lobby.AcceptInvite(cmd.InviteID, identity); err != nil {
			c.sendJSON(lobby.QueueStatus{Type: "error", Message: err.Error()})
		}

	default:
		c.sendJSON(lobby.QueueStatus{Type: "error", Message: "unknown action"})
	}
}

func (s *Server) handleFindGame(c *wsConn, identity string, defaultRatio float64, cmd lobbyCommand) {
	mode, err := game.ParseMode(cmd.Mode)
	if err != nil {
		c.sendJSON(lobby.QueueStatus{Type: "error", Message: err.Error()})
		return
	}

	switch mode {
	case game.ModeSolo:
		m := s.lobby.CreateSoloMatch(identity)
		c.sendJSON(lobby.GameFound{Type: "game_found", GameID: m.ID(), Role: string(game.RolePlayer1)})

	case game.ModeLocal:
		m := s.lobby.CreateLocalMatch(identity)
		c.sendJSON(lobby.GameFound{Type: "game_found", GameID: m.ID(), Role: "local"})

	default:
		ratio := defaultRatio
		if cmd.Ratio != nil {
			ratio = *cmd.Ratio
		}
		if err := s.lobby.Enqueue(identity, ratio, c); err != nil {
			c.sendJSON(lobby.QueueStatus{Type: "error", Message: err.Error()})
		}
	}
}

// handleGameWS serves /ws/game/{gameID}?player_id=<role>&mode=<mode>.
// The socket is bound to a match seat: outbound state frames stream from
// the seat, inbound frames go through the seat's protocol validation.
// Closing the socket mid-game forfeits.
func (s *Server) handleGameWS(w http.ResponseWriter, r *http.Request) {
	gameID := chi.URLParam(r, "gameID")
	match, ok := s.lobby.Match(gameID)
	if !ok {
		writeError(w, "match not found", http.StatusNotFound)
		return
	}

	role, err := game.ParseRole(r.URL.Query().Get("player_id"))
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	seat, err := match.Attach(role)
	if err != nil {
		switch {
		case errors.Is(err, game.ErrSeatTaken):
			writeError(w, err.Error(), http.StatusConflict)
		case errors.Is(err, game.ErrMatchOver):
			writeError(w, err.Error(), http.StatusGone)
		default:
			writeError(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}

	up := s.upgrader()
	conn, err := up.Upgrade(w, r, nil)
	if err != nil {
		seat.Close()
		return
	}
	c := &wsConn{conn: conn}
	wsConnectionsActive.Inc()
	defer wsConnectionsActive.Dec()

	// Seat pump: state frames out. The seat channel closes when the
	// match finishes, which also ends this socket.
	go func() {
		for frame := range seat.Recv() {
			if err := c.sendRaw(frame); err != nil {
				return
			}
		}
		c.mu.Lock()
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "game over"))
		c.mu.Unlock()
		conn.Close()
	}()

	defer func() {
		seat.Close()
		conn.Close()
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		// Protocol violations are reported on the socket; the
		// connection stays open.
		if err := seat.Send(data); err != nil {
			c.sendJSON(game.TextMessage{Type: "error", Message: err.Error()})
		}
	}
}

// handleTournamentFeedWS serves /ws/tournaments?channel=<name>. Without
// a channel it streams the global feed.
func (s *Server) handleTournamentFeedWS(w http.ResponseWriter, r *http.Request) {
	channel := r.URL.Query().Get("channel")
	if channel == "" {
		channel = "tournaments"
	}

	up := s.upgrader()
	conn, err := up.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	c := &wsConn{conn: conn}
	wsConnectionsActive.Inc()
	defer wsConnectionsActive.Dec()

	sub := s.hub.Subscribe(channel)
	go func() {
		for frame := range sub.Frames() {
			if err := c.sendRaw(frame); err != nil {
				return
			}
		}
	}()

	defer func() {
		sub.Unsubscribe()
		conn.Close()
	}()

	// Inbound frames are ignored; the read loop only detects closure.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
