// Package observable provides a latest-value subject that fans a stream of
// values out to any number of subscribers.
//
// Each subscriber owns a channel with a buffer of one. When a subscriber
// falls behind, the pending value is replaced by the newer one, so a slow
// reader always observes the most recent value and never blocks Publish.
// This is only appropriate for streams of full snapshots.
package observable

import "sync"

type Subject[T any] struct {
	mu     sync.Mutex
	subs   map[uint64]chan T
	next   uint64
	value  T
	has    bool
	closed bool
}

func NewSubject[T any]() *Subject[T] {
	return &Subject[T]{subs: make(map[uint64]chan T)}
}

// NewBehaviorSubject returns a subject that replays initial to the first
// subscribers until something is published.
func NewBehaviorSubject[T any](initial T) *Subject[T] {
	s := NewSubject[T]()
	s.value = initial
	s.has = true
	return s
}

// Publish records v as the latest value and offers it to every subscriber.
func (s *Subject[T]) Publish(v T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.value = v
	s.has = true
	for _, ch := range s.subs {
		offer(ch, v)
	}
}

// Subscribe returns a channel of values and a cancel func. The latest value,
// if any, is delivered first. The channel is closed by cancel or Close;
// cancel may be called more than once.
func (s *Subject[T]) Subscribe() (<-chan T, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan T, 1)
	if s.closed {
		close(ch)
		return ch, func() {}
	}
	if s.has {
		ch <- s.value
	}

	id := s.next
	s.next++
	s.subs[id] = ch

	return ch, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if c, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(c)
		}
	}
}

// Value returns the latest published value.
func (s *Subject[T]) Value() (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value, s.has
}

// Subscribers returns the number of live subscriptions.
func (s *Subject[T]) Subscribers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

// Close closes every subscriber channel. Later Publish calls are ignored.
func (s *Subject[T]) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	for id, ch := range s.subs {
		delete(s.subs, id)
		close(ch)
	}
}

// offer must be called with the subject lock held; only the lock holder
// sends, so after draining there is always room.
func offer[T any](ch chan T, v T) {
	select {
	case ch <- v:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	ch <- v
}
