package engine

import (
	"sync"

	"github.com/google/uuid"

	"github.com/alanyoungcy/arbdeck/internal/domain"
)

// subBufferSize is the per-subscription channel buffer. A subscriber that
// falls this far behind starts losing events rather than blocking the
// publisher.
const subBufferSize = 64

// Bus is the core's explicit typed publish/subscribe channel. Subscriptions
// are handles tied to the subscriber's lifetime; there is no ambient global
// dispatch.
type Bus struct {
	mu   sync.RWMutex
	subs map[uuid.UUID]*Subscription
}

// Subscription delivers the event kinds it was created for until
// Unsubscribe is called.
type Subscription struct {
	id    uuid.UUID
	kinds map[domain.EventKind]struct{}
	ch    chan domain.Event
	bus   *Bus
	once  sync.Once
}

// NewBus creates an empty Bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[uuid.UUID]*Subscription)}
}

// Subscribe registers interest in the given event kinds. With no kinds the
// subscription receives every event.
func (b *Bus) Subscribe(kinds ...domain.EventKind) *Subscription {
	sub := &Subscription{
		id:  uuid.New(),
		ch:  make(chan domain.Event, subBufferSize),
		bus: b,
	}
	if len(kinds) > 0 {
		sub.kinds = make(map[domain.EventKind]struct{}, len(kinds))
		for _, k := range kinds {
			sub.kinds[k] = struct{}{}
		}
	}

	b.mu.Lock()
	b.subs[sub.id] = sub
	b.mu.Unlock()
	return sub
}

// Publish delivers ev to every matching subscription. Delivery is
// non-blocking: a full subscriber buffer drops the event for that
// subscriber only.
func (b *Bus) Publish(ev domain.Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, sub := range b.subs {
		if sub.kinds != nil {
			if _, ok := sub.kinds[ev.Kind()]; !ok {
				continue
			}
		}
		select {
		case sub.ch <- ev:
		default:
		}
	}
}

// Events returns the subscription's delivery channel. It is closed after
// Unsubscribe.
func (s *Subscription) Events() <-chan domain.Event {
	return s.ch
}

// Unsubscribe detaches the subscription and closes its channel. Safe to
// call multiple times.
func (s *Subscription) Unsubscribe() {
	s.once.Do(func() {
		s.bus.mu.Lock()
		delete(s.bus.subs, s.id)
		s.bus.mu.Unlock()
		close(s.ch)
	})
}
