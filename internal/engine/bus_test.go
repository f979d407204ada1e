package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/arbdeck/internal/domain"
)

func TestBusDeliversToMatchingKinds(t *testing.T) {
	bus := NewBus()
	priceSub := bus.Subscribe(domain.EventPriceUpdate)
	defer priceSub.Unsubscribe()
	allSub := bus.Subscribe()
	defer allSub.Unsubscribe()

	bus.Publish(domain.PairRemovedEvent{PairID: "p1"})
	bus.Publish(domain.PriceUpdateEvent{PairID: "p2"})

	// The filtered subscription only sees the price update.
	ev := <-priceSub.Events()
	assert.Equal(t, domain.EventPriceUpdate, ev.Kind())
	select {
	case ev := <-priceSub.Events():
		t.Fatalf("unexpected extra event %v", ev.Kind())
	default:
	}

	// The unfiltered subscription sees both, in publish order.
	first := <-allSub.Events()
	second := <-allSub.Events()
	assert.Equal(t, domain.EventPairRemoved, first.Kind())
	assert.Equal(t, domain.EventPriceUpdate, second.Kind())
}

func TestBusUnsubscribeStopsDelivery(t *testing.T) {
	bus := NewBus()
	sub := bus.Subscribe(domain.EventSummariesChanged)
	sub.Unsubscribe()
	sub.Unsubscribe() // idempotent

	bus.Publish(domain.SummariesChangedEvent{})

	select {
	case _, open := <-sub.Events():
		assert.False(t, open, "channel should be closed after unsubscribe")
	case <-time.After(100 * time.Millisecond):
		t.Fatal("closed subscription channel should not block")
	}
}

func TestBusFullSubscriberDropsInsteadOfBlocking(t *testing.T) {
	bus := NewBus()
	sub := bus.Subscribe(domain.EventOpportunityChanged)
	defer sub.Unsubscribe()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < subBufferSize*2; i++ {
			bus.Publish(domain.OpportunityChangedEvent{PairID: "p"})
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publisher blocked on a slow subscriber")
	}

	require.NotEmpty(t, sub.Events())
}
