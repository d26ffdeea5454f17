package watch

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestDebouncer_CoalescesRapidTriggers(t *testing.T) {
	var count atomic.Int32
	var last atomic.Int32
	d := NewDebouncer(50*time.Millisecond, func(v int32) {
		count.Add(1)
		last.Store(v)
	})
	defer d.Stop()

	for i := int32(1); i <= 10; i++ {
		d.Trigger(i)
		time.Sleep(10 * time.Millisecond)
	}

	time.Sleep(100 * time.Millisecond)

	if got := count.Load(); got != 1 {
		t.Errorf("expected 1 callback invocation, got %d", got)
	}
	if got := last.Load(); got != 10 {
		t.Errorf("expected last value 10, got %d", got)
	}
}

func TestDebouncer_Stop(t *testing.T) {
	var count atomic.Int32
	d := NewDebouncer(50*time.Millisecond, func(string) {
		count.Add(1)
	})

	d.Trigger("save.main.json")
	d.Stop()

	time.Sleep(100 * time.Millisecond)

	if got := count.Load(); got != 0 {
		t.Errorf("expected 0 callback invocations after stop, got %d", got)
	}
}
