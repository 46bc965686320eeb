// Package feed distributes state-change events to subscribers with
// per-entity ordering. Publishing never blocks: each subscriber owns
// a bounded buffer, and a subscriber that falls behind loses its
// oldest events and is told to resync from the authoritative store.
package feed

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// EventType tags what happened to a record.
type EventType string

const (
	Inserted EventType = "INSERT"
	Updated  EventType = "UPDATE"
	Deleted  EventType = "DELETE"
)

// Tables the feed carries events for.
const (
	TableRuns      = "runs"
	TableMetrics   = "metrics"
	TableModels    = "models"
	TableEpisodes  = "episodes"
	TableScenarios = "scenarios"
)

// Event is one state delta. Record carries the full snapshot of the
// entity after the change (or its last state, for deletes). EntityID
// identifies the owning run for dependent records, so run-scoped
// filters see a run's whole event stream.
type Event struct {
	Type     EventType `json:"type"`
	Table    string    `json:"table"`
	EntityID uuid.UUID `json:"entity_id"`
	Record   any       `json:"record"`
}

// Filter selects which events a subscriber receives. Zero values
// match everything.
type Filter struct {
	Table    string
	EntityID uuid.UUID
}

func (f Filter) matches(ev Event) bool {
	if f.Table != "" && f.Table != ev.Table {
		return false
	}
	if f.EntityID != uuid.Nil && f.EntityID != ev.EntityID {
		return false
	}
	return true
}

// Subscription is a handle on a filtered event stream. Events arrive
// on C in publish order per entity. After Cancel, no further events
// are delivered and anything still buffered is discarded.
type Subscription struct {
	id     uint64
	filter Filter
	ch     chan Event
	feed   *Feed

	cancelOnce sync.Once
	resync     atomic.Bool
}

// C returns the subscriber's event channel. It is closed on Cancel
// and when the feed shuts down.
func (s *Subscription) C() <-chan Event {
	return s.ch
}

// ResyncRequired reports whether this subscriber has lost events to
// buffer overflow. The only recovery is to re-fetch the authoritative
// snapshot; there is no partial catch-up. Reading the flag clears it.
func (s *Subscription) ResyncRequired() bool {
	return s.resync.Swap(false)
}

// Cancel detaches the subscription. Safe to call more than once.
func (s *Subscription) Cancel() {
	s.cancelOnce.Do(func() {
		s.feed.remove(s.id)
	})
}

// Feed is the change-event fan-out hub.
type Feed struct {
	mu     sync.Mutex
	subs   map[uint64]*Subscription
	nextID uint64
	buffer int
	closed bool
}

// New creates a feed whose subscribers each buffer up to bufferSize
// undelivered events.
func New(bufferSize int) *Feed {
	if bufferSize <= 0 {
		bufferSize = 64
	}
	return &Feed{
		subs:   make(map[uint64]*Subscription),
		buffer: bufferSize,
	}
}

// Subscribe registers a new subscriber for events matching filter.
func (f *Feed) Subscribe(filter Filter) *Subscription {
	f.mu.Lock()
	defer f.mu.Unlock()

	sub := &Subscription{
		id:     f.nextID,
		filter: filter,
		ch:     make(chan Event, f.buffer),
		feed:   f,
	}
	f.nextID++
	if f.closed {
		close(sub.ch)
		return sub
	}
	f.subs[sub.id] = sub
	return sub
}

// Publish fans an event out to every matching subscriber. It never
// blocks: when a subscriber's buffer is full, the oldest buffered
// event is dropped to make room and the subscription is flagged
// resync-required. Delivery order for events of one entity follows
// publish order; nothing is guaranteed across entities.
func (f *Feed) Publish(ev Event) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return
	}
	for _, sub := range f.subs {
		if !sub.filter.matches(ev) {
			continue
		}
		for {
			select {
			case sub.ch <- ev:
			default:
				// Buffer full: shed the oldest event and retry.
				select {
				case <-sub.ch:
					sub.resync.Store(true)
				default:
				}
				continue
			}
			break
		}
	}
}

// Close shuts the feed down, cancelling all subscriptions.
func (f *Feed) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return
	}
	f.closed = true
	for id, sub := range f.subs {
		close(sub.ch)
		delete(f.subs, id)
	}
}

func (f *Feed) remove(id uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()

	sub, ok := f.subs[id]
	if !ok {
		return
	}
	delete(f.subs, id)
	close(sub.ch)
	// Discard anything buffered but undelivered.
	for range sub.ch {
	}
}
