package sim

import (
	"testing"
)

// stubEvent records execution order for scheduler tests.
type stubEvent struct {
	BaseEvent
	fired *[]int
	id    int
}

func (e *stubEvent) Execute(*Simulator) {
	if e.fired != nil {
		*e.fired = append(*e.fired, e.id)
	}
}

func TestEventHeap_TimestampOrdering(t *testing.T) {
	h := NewEventHeap()

	e1 := &stubEvent{id: 1}
	e1.schedule(100, 0)
	e2 := &stubEvent{id: 2}
	e2.schedule(50, 1)
	e3 := &stubEvent{id: 3}
	e3.schedule(150, 2)

	h.Schedule(e1)
	h.Schedule(e2)
	h.Schedule(e3)

	for i, want := range []int64{50, 100, 150} {
		got := h.PopNext()
		if got.Timestamp() != want {
			t.Errorf("pop %d: timestamp = %d, want %d", i, got.Timestamp(), want)
		}
	}
	if h.Len() != 0 {
		t.Errorf("heap should be empty, len = %d", h.Len())
	}
}

func TestEventHeap_EqualTimestamps_FIFOBySeqNo(t *testing.T) {
	h := NewEventHeap()

	// Same trigger time, scheduled in id order. Pushed out of order to make
	// sure the heap does not rely on insertion order.
	events := make([]*stubEvent, 5)
	for i := range events {
		events[i] = &stubEvent{id: i}
		events[i].schedule(100, uint64(i))
	}
	for _, i := range []int{3, 0, 4, 2, 1} {
		h.Schedule(events[i])
	}

	for want := 0; want < 5; want++ {
		got := h.PopNext().(*stubEvent)
		if got.id != want {
			t.Fatalf("pop order: got event %d, want %d", got.id, want)
		}
	}
}

func TestEventHeap_PopEmpty_ReturnsNil(t *testing.T) {
	h := NewEventHeap()
	if h.PopNext() != nil {
		t.Error("PopNext on empty heap should return nil")
	}
	if h.Peek() != nil {
		t.Error("Peek on empty heap should return nil")
	}
}

func TestEventHeap_Peek_DoesNotRemove(t *testing.T) {
	h := NewEventHeap()
	e := &stubEvent{id: 1}
	e.schedule(10, 0)
	h.Schedule(e)

	if h.Peek().Timestamp() != 10 {
		t.Errorf("Peek timestamp = %d, want 10", h.Peek().Timestamp())
	}
	if h.Len() != 1 {
		t.Errorf("Peek must not remove, len = %d", h.Len())
	}
}
