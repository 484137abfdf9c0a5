// Package stream fans order transition events out to in-process subscribers
// (the SSE endpoint). Slow subscribers are dropped-from, never blocked-on.
package stream

import (
	"context"
	"sync"

	"bazara.org/internal/order"
)

// Stream fan-outs order events to all active subscribers.
type Stream struct {
	mu   sync.RWMutex
	subs map[int]chan order.Event
	next int
}

// New initialises an empty stream.
func New() *Stream {
	return &Stream{subs: make(map[int]chan order.Event)}
}

// Subscribe registers a subscriber and returns a channel which will receive
// events for one store. The channel is closed when the context ends.
func (s *Stream) Subscribe(ctx context.Context, storeID string) <-chan order.Event {
	raw := make(chan order.Event, 16)
	out := make(chan order.Event, 16)

	s.mu.Lock()
	id := s.next
	s.next++
	s.subs[id] = raw
	s.mu.Unlock()

	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				s.mu.Lock()
				delete(s.subs, id)
				close(raw)
				s.mu.Unlock()
				return
			case evt := <-raw:
				if storeID != "" && evt.StoreID != storeID {
					continue
				}
				select {
				case out <- evt:
				default:
				}
			}
		}
	}()

	return out
}

// Publish fan-outs the event to all subscribers.
func (s *Stream) Publish(evt order.Event) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, ch := range s.subs {
		select {
		case ch <- evt:
		default:
			// Drop when subscriber is slow to avoid blocking.
		}
	}
}

// OrderTransitioned lets the stream serve as a transition event sink.
func (s *Stream) OrderTransitioned(_ context.Context, e order.Event) {
	s.Publish(e)
}

// Subscribers reports the current subscriber count.
func (s *Stream) Subscribers() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.subs)
}
