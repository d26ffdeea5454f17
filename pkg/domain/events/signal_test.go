package events_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/questlog/pkg/domain/events"
)

func TestSignalEmitOrder(t *testing.T) {
	s := events.NewSignal[int]("numbers")
	var got []string

	s.Subscribe("first", func(v int) { got = append(got, "first") })
	s.Subscribe("second", func(v int) { got = append(got, "second") })
	s.Emit(1)

	assert.Equal(t, []string{"first", "second"}, got)
	assert.Equal(t, "numbers", s.Name())
	assert.Equal(t, 2, s.HandlerCount())
}

func TestSubscriptionUnsubscribeIsIdempotent(t *testing.T) {
	s := events.NewSignal[string]("names")
	calls := 0
	sub := s.Subscribe("counter", func(string) { calls++ })
	other := s.Subscribe("other", func(string) {})

	sub.Unsubscribe()
	sub.Unsubscribe()
	s.Emit("x")

	assert.Zero(t, calls)
	assert.Equal(t, 1, s.HandlerCount())
	assert.Equal(t, "names/counter", sub.String())
	assert.NotEqual(t, sub.ID(), other.ID())

	var nilSub *events.Subscription
	assert.NotPanics(t, nilSub.Unsubscribe)
}

func TestSignalReentrantEmit(t *testing.T) {
	outer := events.NewSignal[int]("outer")
	inner := events.NewSignal[int]("inner")
	var trace []int

	inner.Subscribe("trace", func(v int) { trace = append(trace, v) })
	outer.Subscribe("forward", func(v int) {
		trace = append(trace, v)
		if v < 3 {
			inner.Emit(v * 10)
			outer.Emit(v + 1)
		}
	})
	outer.Emit(1)

	assert.Equal(t, []int{1, 10, 2, 20, 3}, trace)
}

func TestSignalUnsubscribeDuringEmit(t *testing.T) {
	s := events.NewSignal[int]("numbers")
	var second *events.Subscription
	secondCalls := 0

	s.Subscribe("remover", func(int) { second.Unsubscribe() })
	second = s.Subscribe("removed", func(int) { secondCalls++ })

	s.Emit(1)
	s.Emit(2)

	assert.Zero(t, secondCalls, "a handler removed mid-dispatch is skipped")
	assert.Equal(t, 1, s.HandlerCount())
}

func TestSignalSubscribeDuringEmit(t *testing.T) {
	s := events.NewSignal[int]("numbers")
	late := 0
	s.Subscribe("adder", func(v int) {
		if v == 1 {
			s.Subscribe("late", func(int) { late++ })
		}
	})

	s.Emit(1)
	assert.Zero(t, late, "subscribers added mid-dispatch wait for the next emit")

	s.Emit(2)
	assert.Equal(t, 1, late)
}

func TestGroupClose(t *testing.T) {
	a := events.NewSignal[int]("a")
	b := events.NewSignal[string]("b")
	var g events.Group

	g.Add(a.Subscribe("g", func(int) {}), b.Subscribe("g", func(string) {}))
	require.Equal(t, 2, g.Len())

	g.Close()
	assert.Zero(t, g.Len())
	assert.Zero(t, a.HandlerCount())
	assert.Zero(t, b.HandlerCount())

	g.Add(a.Subscribe("again", func(int) {}))
	assert.Equal(t, 1, g.Len(), "groups are reusable after Close")

	var nilGroup *events.Group
	assert.NotPanics(t, nilGroup.Close)
	assert.Zero(t, nilGroup.Len())
}
