// Package events provides synchronous, re-entrant signals with owned
// subscription tokens.
//
// Signals are not safe for concurrent use. All emission happens on the
// caller's goroutine, and handlers may emit further signals or subscribe and
// unsubscribe while a dispatch is in flight.
package events

import (
	"sync"

	"github.com/google/uuid"
)

// Handler receives a signal payload.
type Handler[T any] func(T)

// Signal is a single event stream with one owner that emits and any number of
// subscribers.
type Signal[T any] struct {
	name     string
	handlers []*entry[T]
}

type entry[T any] struct {
	id      uuid.UUID
	name    string
	handler Handler[T]
	removed bool
}

// NewSignal creates a named signal. The name is only used for diagnostics.
func NewSignal[T any](name string) *Signal[T] {
	return &Signal[T]{name: name}
}

// Name returns the diagnostic name of the signal.
func (s *Signal[T]) Name() string {
	return s.name
}

// Subscribe registers handler and returns the token that owns the
// registration. Dropping the token without calling Unsubscribe leaks the
// handler.
func (s *Signal[T]) Subscribe(name string, handler Handler[T]) *Subscription {
	e := &entry[T]{id: uuid.New(), name: name, handler: handler}
	s.handlers = append(s.handlers, e)
	return &Subscription{
		id:     e.id,
		signal: s.name,
		name:   name,
		cancel: func() { s.remove(e) },
	}
}

// Emit delivers v to every subscriber registered at the time of the call.
// A subscriber removed during the dispatch is not invoked afterwards.
func (s *Signal[T]) Emit(v T) {
	if len(s.handlers) == 0 {
		return
	}
	snapshot := make([]*entry[T], len(s.handlers))
	copy(snapshot, s.handlers)
	for _, e := range snapshot {
		if e.removed {
			continue
		}
		e.handler(v)
	}
}

// HandlerCount returns the number of live subscribers.
func (s *Signal[T]) HandlerCount() int {
	return len(s.handlers)
}

func (s *Signal[T]) remove(target *entry[T]) {
	target.removed = true
	for i, e := range s.handlers {
		if e == target {
			s.handlers = append(s.handlers[:i:i], s.handlers[i+1:]...)
			return
		}
	}
}

// Subscription owns one handler registration.
type Subscription struct {
	id     uuid.UUID
	signal string
	name   string
	cancel func()
	once   sync.Once
}

// ID returns the unique id of the registration.
func (s *Subscription) ID() uuid.UUID {
	return s.id
}

// String describes the subscription as "signal/handler".
func (s *Subscription) String() string {
	return s.signal + "/" + s.name
}

// Unsubscribe releases the registration. Calling it more than once is a no-op.
func (s *Subscription) Unsubscribe() {
	if s == nil {
		return
	}
	s.once.Do(func() {
		if s.cancel != nil {
			s.cancel()
		}
	})
}

// Group owns a set of subscriptions that are released together.
type Group struct {
	subs []*Subscription
}

// Add takes ownership of subs.
func (g *Group) Add(subs ...*Subscription) {
	g.subs = append(g.subs, subs...)
}

// Len returns the number of owned subscriptions.
func (g *Group) Len() int {
	if g == nil {
		return 0
	}
	return len(g.subs)
}

// Close unsubscribes everything the group owns. The group can be reused
// afterwards.
func (g *Group) Close() {
	if g == nil {
		return
	}
	for _, s := range g.subs {
		s.Unsubscribe()
	}
	g.subs = nil
}
