package conduit

import (
	"context"
	"testing"
	"time"
)

func TestSpinThenWaitReturnsAsSoonAsConditionHolds(t *testing.T) {
	ctx := context.Background()
	calls := 0
	err := spinThenWait(ctx, func() bool {
		calls++
		return calls >= 3
	})
	if err != nil {
		t.Fatalf("spinThenWait: %v", err)
	}
	if calls != 3 {
		t.Fatalf("condition observed %d times, want 3", calls)
	}
}

func TestSpinThenWaitHonorsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()

	err := spinThenWait(ctx, func() bool { return false })
	if err == nil {
		t.Fatal("expected an error once the context's deadline passed")
	}
}

func TestExpWaitDoublesUpToCeiling(t *testing.T) {
	w := &expWait{curr: time.Nanosecond, ceiling: 4 * time.Nanosecond}
	ctx := context.Background()

	if err := w.wait(ctx); err != nil {
		t.Fatalf("wait: %v", err)
	}
	if w.curr != 2*time.Nanosecond {
		t.Fatalf("curr = %v, want 2ns", w.curr)
	}

	if err := w.wait(ctx); err != nil {
		t.Fatalf("wait: %v", err)
	}
	if w.curr != 4*time.Nanosecond {
		t.Fatalf("curr = %v, want 4ns", w.curr)
	}

	if err := w.wait(ctx); err != nil {
		t.Fatalf("wait: %v", err)
	}
	if w.curr != 4*time.Nanosecond {
		t.Fatalf("curr = %v, want to stay capped at the 4ns ceiling", w.curr)
	}
}
