package stream

import (
	"context"
	"testing"
	"time"

	"bazara.org/internal/order"
)

func TestSubscribeFiltersByStore(t *testing.T) {
	s := New()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := s.Subscribe(ctx, "store-1")

	s.Publish(order.Event{StoreID: "store-2", OrderID: "o-2"})
	s.Publish(order.Event{StoreID: "store-1", OrderID: "o-1"})

	select {
	case evt := <-ch:
		if evt.OrderID != "o-1" {
			t.Fatalf("got event for %s, want o-1", evt.OrderID)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
	select {
	case evt := <-ch:
		t.Fatalf("unexpected second event %+v", evt)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSubscribeClosesOnCancel(t *testing.T) {
	s := New()
	ctx, cancel := context.WithCancel(context.Background())
	ch := s.Subscribe(ctx, "")
	cancel()

	select {
	case _, open := <-ch:
		if open {
			t.Fatal("expected closed channel")
		}
	case <-time.After(time.Second):
		t.Fatal("channel not closed after cancel")
	}
	if n := s.Subscribers(); n != 0 {
		t.Fatalf("subscribers = %d, want 0", n)
	}
}

func TestPublishNeverBlocks(t *testing.T) {
	s := New()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	_ = s.Subscribe(ctx, "store-1")

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 100; i++ {
			s.Publish(order.Event{StoreID: "store-1"})
		}
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}
}
