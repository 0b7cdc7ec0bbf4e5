// pattern: Imperative Shell

package web

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"crafthub/internal/editor"
	"crafthub/internal/project"
)

// Event types sent on /api/events.
const (
	EventConnected      = "connected"
	EventProgress       = "progress"
	EventEditorsChanged = "editors_changed"
)

// Event is one JSON message on the event stream.
type Event struct {
	Type    string                `json:"type"`
	Project string                `json:"project,omitempty"`
	Step    *project.ProgressStep `json:"step,omitempty"`
	Editors []editor.Info         `json:"editors,omitempty"`
}

const subscriberBuffer = 64

const writeTimeout = 5 * time.Second

// eventBroker fans out events to websocket subscribers. A subscriber that
// falls behind loses events rather than blocking publishers.
type eventBroker struct {
	mu          sync.Mutex
	subscribers map[chan Event]struct{}
	closed      bool
}

func newEventBroker() *eventBroker {
	return &eventBroker{
		subscribers: make(map[chan Event]struct{}),
	}
}

// Subscribe returns a channel receiving every published event. It is closed
// by Unsubscribe or Close.
func (b *eventBroker) Subscribe() chan Event {
	ch := make(chan Event, subscriberBuffer)
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(ch)
		return ch
	}
	b.subscribers[ch] = struct{}{}
	return ch
}

func (b *eventBroker) Unsubscribe(ch chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.subscribers[ch]; ok {
		delete(b.subscribers, ch)
		close(ch)
	}
}

// Publish delivers ev to every subscriber with room in its buffer.
func (b *eventBroker) Publish(ev Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subscribers {
		select {
		case ch <- ev:
		default:
		}
	}
}

// Close ends every subscription; later subscribers get a closed channel.
func (b *eventBroker) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	for ch := range b.subscribers {
		delete(b.subscribers, ch)
		close(ch)
	}
}

// PublishEditors sends an editors_changed event with the current list.
// The editor directory watcher calls it.
func (s *Server) PublishEditors() {
	editors, err := s.commands.DetectEditors()
	if err != nil {
		s.logger.Warn("editor detection failed", "error", err)
		return
	}
	s.events.Publish(Event{Type: EventEditorsChanged, Editors: editors})
}

// handleEvents upgrades to a websocket and streams JSON events until the
// client goes away or the server shuts down. Client messages are ignored.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	// Restrict to localhost origins to prevent cross-origin WebSocket attacks.
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"127.0.0.1:*", "localhost:*"},
	})
	if err != nil {
		s.logger.Error("websocket accept failed", "error", err)
		return
	}
	defer func() { _ = conn.CloseNow() }()

	// Do not use r.Context() after the upgrade.
	ctx := conn.CloseRead(context.Background())

	ch := s.events.Subscribe()
	defer s.events.Unsubscribe(ch)

	if err := s.writeEvent(ctx, conn, Event{Type: EventConnected}); err != nil {
		return
	}
	s.logger.Debug("event stream connected")

	for {
		select {
		case <-ctx.Done():
			s.logger.Debug("event stream disconnected")
			return
		case ev, ok := <-ch:
			if !ok {
				_ = conn.Close(websocket.StatusGoingAway, "server shutting down")
				return
			}
			if err := s.writeEvent(ctx, conn, ev); err != nil {
				s.logger.Debug("event stream write failed", "error", err)
				return
			}
		}
	}
}

func (s *Server) writeEvent(ctx context.Context, conn *websocket.Conn, ev Event) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return wsjson.Write(ctx, conn, ev)
}
