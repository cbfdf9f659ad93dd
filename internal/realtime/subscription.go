package realtime

import "sync/atomic"

// Subscription is a buffered channel Subscriber.
type Subscription struct {
	events  chan Event
	dropped atomic.Uint64
}

// NewSubscription creates a subscription holding up to buffer pending events.
func NewSubscription(buffer int) *Subscription {
	return &Subscription{events: make(chan Event, buffer)}
}

// Send queues e, dropping it when the buffer is full.
func (s *Subscription) Send(e Event) bool {
	select {
	case s.events <- e:
		return true
	default:
		s.dropped.Add(1)
		return false
	}
}

// Events returns the channel events are delivered on.
func (s *Subscription) Events() <-chan Event {
	return s.events
}

// Dropped returns the number of events lost to a full buffer.
func (s *Subscription) Dropped() uint64 {
	return s.dropped.Load()
}
