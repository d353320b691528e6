package playback

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

const eventBufferSize = 64

// Subscription is one subscriber's view of the event stream. Events on the
// channel arrive in publish order. Done closes when the subscriber is
// removed, either by Unsubscribe or because it stopped draining.
type Subscription struct {
	Events <-chan Event
	Done   <-chan struct{}

	id     string
	events chan Event
	done   chan struct{}
}

// ID returns the subscriber's identifier.
func (s *Subscription) ID() string { return s.id }

// Hub fans events out to subscribers. Publish never blocks: each
// subscriber has a bounded buffer, and a subscriber that falls behind is
// disconnected rather than slowing the others down. Position ticks are the
// exception; a full buffer just drops the tick, since the next one
// replaces it.
type Hub struct {
	mu     sync.Mutex
	subs   map[string]*Subscription
	closed bool
}

func NewHub() *Hub {
	return &Hub{subs: make(map[string]*Subscription)}
}

// Subscribe registers a new subscriber. There is no replay: the caller
// should read a State snapshot first, then follow events.
func (h *Hub) Subscribe() *Subscription {
	sub := &Subscription{
		id:     uuid.NewString(),
		events: make(chan Event, eventBufferSize),
		done:   make(chan struct{}),
	}
	sub.Events = sub.events
	sub.Done = sub.done

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		close(sub.done)
		close(sub.events)
		return sub
	}
	h.subs[sub.id] = sub
	return sub
}

// Unsubscribe removes a subscriber. Safe to call more than once.
func (h *Hub) Unsubscribe(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.dropLocked(sub)
}

func (h *Hub) dropLocked(sub *Subscription) {
	if _, ok := h.subs[sub.id]; !ok {
		return
	}
	delete(h.subs, sub.id)
	close(sub.done)
	close(sub.events)
}

// Publish stamps e with the current time and delivers it to every
// subscriber without blocking.
func (h *Hub) Publish(e Event) {
	_, coalescable := e.(PositionChange)
	e = stamped(e, time.Now())

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	for _, sub := range h.subs {
		select {
		case sub.events <- e:
		default:
			if coalescable {
				continue // drop the tick, keep the subscriber
			}
			// The subscriber stopped draining; losing a non-position
			// event would leave it with a stale view, so cut it off.
			h.dropLocked(sub)
		}
	}
}

// Len returns the number of active subscribers.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Close disconnects all subscribers.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for _, sub := range h.subs {
		h.dropLocked(sub)
	}
}
