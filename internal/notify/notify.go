// Package notify fans events out to interested connections. Channels are
// plain strings: "user:<identity>" for direct notifications, "tournaments"
// for the global feed, "tournament:<slug>" per bracket.
package notify

import (
	"context"
	"encoding/json"
	"log"
	"sync"
)

// Publisher is the narrow contract the core uses to emit events.
type Publisher interface {
	Publish(ctx context.Context, channel string, event any) error
}

// Subscriber receives the frames published to one channel.
type Subscriber struct {
	hub     *Hub
	channel string
	frames  chan []byte
	once    sync.Once
}

// Frames returns the subscriber's delivery channel. It is closed on
// Unsubscribe; slow subscribers lose frames rather than blocking the hub.
func (s *Subscriber) Frames() <-chan []byte { return s.frames }

// Unsubscribe detaches the subscriber from its channel.
func (s *Subscriber) Unsubscribe() {
	s.hub.remove(s)
}

// Hub is the in-process publisher. It doubles as the presence oracle:
// an identity is reachable while it holds at least one subscription on
// its user channel.
type Hub struct {
	mu   sync.Mutex
	subs map[string]map[*Subscriber]struct{}
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[*Subscriber]struct{})}
}

// Subscribe attaches a new subscriber to a channel.
func (h *Hub) Subscribe(channel string) *Subscriber {
	s := &Subscriber{
		hub:     h,
		channel: channel,
		frames:  make(chan []byte, 32),
	}

	h.mu.Lock()
	if h.subs[channel] == nil {
		h.subs[channel] = make(map[*Subscriber]struct{})
	}
	h.subs[channel][s] = struct{}{}
	h.mu.Unlock()
	return s
}

func (h *Hub) remove(s *Subscriber) {
	h.mu.Lock()
	if set, ok := h.subs[s.channel]; ok {
		delete(set, s)
		if len(set) == 0 {
			delete(h.subs, s.channel)
		}
	}
	h.mu.Unlock()
	s.once.Do(func() { close(s.frames) })
}

// Publish marshals the event once and delivers it to every subscriber
// of the channel, dropping frames for full buffers.
func (h *Hub) Publish(_ context.Context, channel string, event any) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	h.mu.Lock()
	for s := range h.subs[channel] {
		select {
		case s.frames <- data:
		default:
		}
	}
	h.mu.Unlock()
	return nil
}

// IsOnline reports whether an identity currently holds a subscription
// on its user channel.
func (h *Hub) IsOnline(identity string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[UserChannel(identity)]) > 0
}

// UserChannel names the direct-notification channel of an identity.
func UserChannel(identity string) string {
	return "user:" + identity
}

// Multi publishes to several backends, typically the in-process hub plus
// a Redis fan-out. Failures are logged per backend, never propagated.
type Multi []Publisher

// Publish delivers the event to every backend.
func (m Multi) Publish(ctx context.Context, channel string, event any) error {
	for _, p := range m {
		if err := p.Publish(ctx, channel, event); err != nil {
			log.Printf("notify: publish to %T failed: %v", p, err)
		}
	}
	return nil
}
