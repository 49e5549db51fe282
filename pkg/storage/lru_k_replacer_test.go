package storage

import "testing"

func TestLRUKReplacerOrdering(t *testing.T) {
	// S4: K=2. Access sequence [1,2,3,4,5,6], unpin 1..5, pin 6. Then
	// access 1 again (now has two accesses). evict returns 2, then 3,
	// then 4, in that order.
	r := NewLRUKReplacer(2)

	for _, frameID := range []FrameID{1, 2, 3, 4, 5, 6} {
		r.RecordAccess(frameID)
	}
	for _, frameID := range []FrameID{1, 2, 3, 4, 5} {
		r.Unpin(frameID)
	}
	r.Pin(6)

	r.RecordAccess(1)

	want := []FrameID{2, 3, 4}
	for _, expect := range want {
		got, ok := r.Evict()
		if !ok {
			t.Fatalf("expected a victim, got none")
		}
		if got != expect {
			t.Errorf("Evict() = %d, want %d", got, expect)
		}
	}
}

func TestLRUKReplacerNoEvictableFrames(t *testing.T) {
	r := NewLRUKReplacer(2)
	r.RecordAccess(1)
	if _, ok := r.Evict(); ok {
		t.Error("expected no evictable frame before Unpin")
	}
	r.Unpin(1)
	if _, ok := r.Evict(); !ok {
		t.Error("expected frame 1 to be evictable after Unpin")
	}
}

func TestLRUKReplacerPinMakesNonEvictable(t *testing.T) {
	r := NewLRUKReplacer(2)
	r.RecordAccess(1)
	r.Unpin(1)
	r.Pin(1)
	if _, ok := r.Evict(); ok {
		t.Error("expected frame 1 to be non-evictable after re-Pin")
	}
}

func TestLRUKReplacerFewerThanKAccessesBreakTieByEarliest(t *testing.T) {
	// Frames with fewer than k accesses all have infinite backward
	// k-distance; the tie is broken by the earliest (oldest) timestamp.
	r := NewLRUKReplacer(2)
	r.RecordAccess(1)
	r.RecordAccess(2)
	r.Unpin(1)
	r.Unpin(2)

	got, ok := r.Evict()
	if !ok || got != 1 {
		t.Errorf("Evict() = (%d, %v), want (1, true)", got, ok)
	}
}

func TestLRUKReplacerRemove(t *testing.T) {
	r := NewLRUKReplacer(2)
	r.RecordAccess(1)
	r.Unpin(1)
	if got := r.EvictableCount(); got != 1 {
		t.Fatalf("EvictableCount() = %d, want 1", got)
	}
	r.Remove(1)
	if got := r.EvictableCount(); got != 0 {
		t.Errorf("EvictableCount() = %d, want 0 after Remove", got)
	}
	if _, ok := r.Evict(); ok {
		t.Error("expected no evictable frame after Remove")
	}
}

func TestLRUKReplacerRemoveNonEvictableIsNoOp(t *testing.T) {
	r := NewLRUKReplacer(2)
	r.RecordAccess(1) // non-evictable by default
	r.Remove(1)        // should be a no-op, not a panic
	r.Unpin(1)
	if got := r.EvictableCount(); got != 1 {
		t.Errorf("EvictableCount() = %d, want 1", got)
	}
}
