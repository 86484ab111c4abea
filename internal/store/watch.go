package store

import (
	"sync"
)

// Event is one observed change. Record is nil when the document was deleted.
type Event struct {
	TenantID   string
	Collection string
	ID         string
	Record     *Record
}

// CancelFunc deregisters a subscription. Safe to call any number of times,
// including after the hub has shut down.
type CancelFunc func()

// Hub fans mutation events out to live subscriptions. One hub exists per
// backend; scoped clients publish into it after every successful write and
// subscribe with tenant-bound filters, so events never cross tenants.
type Hub struct {
	mu     sync.Mutex
	subs   map[uint64]*subscription
	nextID uint64
	closed bool
}

type subscription struct {
	filter  func(Event) bool
	onEvent func(Event)
	ch      chan Event

	// mu serializes callback invocation with cancellation: cancel takes it
	// before flipping cancelled, so a callback already running finishes
	// before cancel returns and none starts afterwards.
	mu        sync.Mutex
	cancelled bool
}

func (s *subscription) cancel() {
	s.mu.Lock()
	s.cancelled = true
	s.mu.Unlock()
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[uint64]*subscription)}
}

// Publish delivers an event to every matching subscription. Delivery is
// asynchronous; a subscriber that cannot keep up drops intermediate events
// rather than blocking the mutation path.
func (h *Hub) Publish(e Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	for _, sub := range h.subs {
		if !sub.filter(e) {
			continue
		}
		select {
		case sub.ch <- e:
		default:
		}
	}
}

// Subscribe registers a callback for events matching the filter. The
// returned CancelFunc is idempotent and guarantees no further callback
// invocations once it returns.
func (h *Hub) Subscribe(filter func(Event) bool, onEvent func(Event)) CancelFunc {
	sub := &subscription{
		filter:  filter,
		onEvent: onEvent,
		ch:      make(chan Event, 16),
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return func() {}
	}
	id := h.nextID
	h.nextID++
	h.subs[id] = sub
	h.mu.Unlock()

	go sub.run()

	var once sync.Once
	return func() {
		once.Do(func() {
			sub.cancel()
			h.mu.Lock()
			if _, ok := h.subs[id]; ok {
				delete(h.subs, id)
				close(sub.ch)
			}
			h.mu.Unlock()
		})
	}
}

// Close cancels every subscription. Used at shutdown.
func (h *Hub) Close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	subs := make([]*subscription, 0, len(h.subs))
	for id, sub := range h.subs {
		subs = append(subs, sub)
		close(sub.ch)
		delete(h.subs, id)
	}
	h.mu.Unlock()

	// Cancel outside the hub lock: a callback mid-flight may publish, and
	// cancel waits for it to finish.
	for _, sub := range subs {
		sub.cancel()
	}
}

func (s *subscription) run() {
	for e := range s.ch {
		s.mu.Lock()
		if s.cancelled {
			s.mu.Unlock()
			return
		}
		s.onEvent(e)
		s.mu.Unlock()
	}
}
