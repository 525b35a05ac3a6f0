// Package hub is the per-workspace event bus. Managers publish typed
// events synchronously; agents consume them through a bounded long-poll
// (Wait) that blocks only the calling task, never other operations.
package hub

import (
	"sync"
	"time"

	"github.com/hivemind-sh/hivemind/internal/domain"
	"github.com/hivemind-sh/hivemind/internal/logging"
)

const (
	// MaxWaitSeconds caps a single long-poll. Longer requests are clamped.
	MaxWaitSeconds = 55

	// subscriberQueueSize bounds each subscriber's event queue. Events
	// beyond the bound are dropped for that subscriber, never blocking
	// the publisher.
	subscriberQueueSize = 64

	// DefaultMaxIterations applies when a wait request does not bound
	// its own polling loop.
	DefaultMaxIterations = 10
)

// Hub fans workspace events out to subscribers.
type Hub struct {
	log *logging.Logger

	mu   sync.Mutex
	subs map[string]map[*Subscription]struct{}
}

// Subscription is one subscriber's bounded event queue.
type Subscription struct {
	hub         *Hub
	workspaceID string
	types       map[domain.EventType]struct{}
	ch          chan domain.Event
}

// New creates an event hub.
func New(log *logging.Logger) *Hub {
	return &Hub{
		log:  log.Sub("hub"),
		subs: make(map[string]map[*Subscription]struct{}),
	}
}

// Publish delivers an event to every matching subscriber of the
// event's workspace. Delivery is non-blocking: a subscriber whose
// queue is full misses the event.
func (h *Hub) Publish(e domain.Event) {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for sub := range h.subs[e.WorkspaceID] {
		if !sub.matches(e.Type) {
			continue
		}
		select {
		case sub.ch <- e:
		default:
			h.log.Warn().
				Str("workspace", e.WorkspaceID).
				Str("event", string(e.Type)).
				Msg("subscriber queue full, event dropped")
		}
	}
}

// Subscribe registers a bounded queue for a workspace's events,
// optionally filtered to specific event types. Callers must Cancel.
func (h *Hub) Subscribe(workspaceID string, types []domain.EventType) *Subscription {
	sub := &Subscription{
		hub:         h,
		workspaceID: workspaceID,
		ch:          make(chan domain.Event, subscriberQueueSize),
	}
	if len(types) > 0 {
		sub.types = make(map[domain.EventType]struct{}, len(types))
		for _, t := range types {
			sub.types[t] = struct{}{}
		}
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.subs[workspaceID] == nil {
		h.subs[workspaceID] = make(map[*Subscription]struct{})
	}
	h.subs[workspaceID][sub] = struct{}{}
	return sub
}

// Cancel removes the subscription from the hub.
func (s *Subscription) Cancel() {
	s.hub.mu.Lock()
	defer s.hub.mu.Unlock()
	set := s.hub.subs[s.workspaceID]
	delete(set, s)
	if len(set) == 0 {
		delete(s.hub.subs, s.workspaceID)
	}
}

// Events exposes the subscription's receive channel.
func (s *Subscription) Events() <-chan domain.Event { return s.ch }

func (s *Subscription) matches(t domain.EventType) bool {
	if s.types == nil {
		return true
	}
	_, ok := s.types[t]
	return ok
}
