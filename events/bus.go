package events

import (
	"sync"
	"time"
)

// DefaultQueueSize is the per-subscriber bounded queue depth used when a
// Bus is constructed without an explicit override (spec.md §6's
// event_buffer_size default).
const DefaultQueueSize = 1024

// Bus is a per-session ordered, append-only event log with multi-subscriber
// fan-out. It generalizes the single-channel EventEmitter pattern from the
// teacher's agentloop package into a subscriber-list design: every event is
// retained in a backlog so that a subscriber attaching after the session
// started (or even after it finished) still replays the full ordered
// history before any live events, per spec.md §4.5.
//
// All publish and subscribe operations are serialized behind one mutex.
// Because channel sends are always non-blocking (select/default), holding
// the mutex across a send never risks a deadlock, and it guarantees that
// backlog replay for a newly attached subscriber can never interleave with
// a concurrently emitted live event.
type Bus struct {
	mu        sync.Mutex
	sessionID string
	queueSize int
	backlog   []Event
	subs      map[uint64]*subscriber
	nextSubID uint64
	closed    bool // true once a terminal event has been emitted
}

type subscriber struct {
	ch     chan Event
	lagged bool
}

// NewBus creates a Bus for one session. queueSize <= 0 uses DefaultQueueSize.
func NewBus(sessionID string, queueSize int) *Bus {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	return &Bus{
		sessionID: sessionID,
		queueSize: queueSize,
		subs:      make(map[uint64]*subscriber),
	}
}

// Emit appends ev to the backlog and fans it out to every live subscriber.
// Events emitted after a terminal event has already been published are
// dropped (invariant: "exactly one" terminal event per stream).
func (b *Bus) Emit(kind Kind, payload Payload) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	ev := Event{
		Kind:      kind,
		Timestamp: time.Now(),
		SessionID: b.sessionID,
		Payload:   payload,
	}
	b.backlog = append(b.backlog, ev)
	for id, sub := range b.subs {
		b.deliverLocked(id, sub, ev)
	}
	if kind.Terminal() {
		b.closed = true
	}
}

// deliverLocked attempts a non-blocking send to sub. On overflow (queueSize
// events already waiting) the subscriber is marked lagged, sent a terminal
// subscriber_lagged signal into the channel's reserved extra slot, and its
// channel is closed; the bus keeps emitting to everyone else. Must be
// called with b.mu held.
func (b *Bus) deliverLocked(id uint64, sub *subscriber, ev Event) {
	if sub.lagged {
		return
	}
	if len(sub.ch) < b.queueSize {
		select {
		case sub.ch <- ev:
			return
		default:
		}
	}
	sub.lagged = true
	laggedEvent := Event{
		Kind:      KindSubscriberLagged,
		Timestamp: time.Now(),
		SessionID: b.sessionID,
		Payload:   Payload{Reason: "subscriber queue overflowed"},
	}
	select {
	case sub.ch <- laggedEvent:
	default:
	}
	close(sub.ch)
	delete(b.subs, id)
}

// Subscription is a handle returned by Subscribe.
type Subscription struct {
	id     uint64
	bus    *Bus
	Events <-chan Event
}

// Close detaches the subscription. Safe to call multiple times.
func (s *Subscription) Close() {
	s.bus.mu.Lock()
	defer s.bus.mu.Unlock()
	if sub, ok := s.bus.subs[s.id]; ok {
		delete(s.bus.subs, s.id)
		close(sub.ch)
	}
}

// Subscribe attaches a new subscriber. The backlog accumulated so far is
// replayed into the returned channel in order, ahead of any events emitted
// after Subscribe returns — satisfying "a subscriber attaching at time T
// observes every event emitted at time <= T exactly once, with no loss."
//
// If the backlog alone exceeds the subscriber's queue capacity, the
// subscriber is immediately marked lagged: it still receives as much of the
// backlog as fits, followed by a subscriber_lagged terminal signal.
func (b *Bus) Subscribe() *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	// One slot beyond queueSize is reserved for the subscriber_lagged signal.
	sub := &subscriber{ch: make(chan Event, b.queueSize+1)}
	for _, ev := range b.backlog {
		b.deliverToSingleLocked(sub, ev)
		if sub.lagged {
			break
		}
	}

	id := b.nextSubID
	b.nextSubID++
	if !sub.lagged {
		b.subs[id] = sub
	}
	return &Subscription{id: id, bus: b, Events: sub.ch}
}

// deliverToSingleLocked is Subscribe's backlog-replay variant of
// deliverLocked: it does not remove the subscriber from b.subs (it isn't
// registered there yet). On overflow it sends the subscriber_lagged signal
// and closes the channel itself; Subscribe stops replaying once the
// subscriber is lagged, so the caller observes a single terminal signal.
func (b *Bus) deliverToSingleLocked(sub *subscriber, ev Event) {
	if len(sub.ch) < b.queueSize {
		select {
		case sub.ch <- ev:
			return
		default:
		}
	}
	sub.lagged = true
	laggedEvent := Event{
		Kind:      KindSubscriberLagged,
		Timestamp: time.Now(),
		SessionID: b.sessionID,
		Payload:   Payload{Reason: "subscriber queue overflowed during backlog replay"},
	}
	select {
	case sub.ch <- laggedEvent:
	default:
	}
	close(sub.ch)
}

// BacklogLen returns the number of events retained so far (for tests and
// diagnostics).
func (b *Bus) BacklogLen() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.backlog)
}
