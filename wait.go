// wait.go: adaptive spin-then-sleep wait primitive
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package conduit

import (
	"context"
	"time"
)

// defaultWaitCeiling caps the exponential backoff used by expWait.
const defaultWaitCeiling = time.Millisecond

// spinIterations is how many times a caller busy-polls before falling
// back to expWait; it is small because the expected hold time for a ring
// slot to free up is itself small under normal operation.
const spinIterations = 64

// expWait holds a current sleep interval, starting at 10ns and
// saturating-doubling on every call to wait, capped at ceiling.
type expWait struct {
	curr    time.Duration
	ceiling time.Duration
}

func newExpWait() *expWait {
	return &expWait{curr: 10 * time.Nanosecond, ceiling: defaultWaitCeiling}
}

// wait sleeps for the current interval, or returns early with the
// context's error if it is done first. On return, the interval is
// saturating-doubled up to the configured ceiling.
func (w *expWait) wait(ctx context.Context) error {
	t := time.NewTimer(w.curr)
	defer t.Stop()

	select {
	case <-t.C:
	case <-ctx.Done():
		return ctx.Err()
	}

	next := w.curr * 2
	if next < w.curr || next > w.ceiling {
		next = w.ceiling
	}
	w.curr = next
	metricWaitSpins.Inc()
	return nil
}

// spinThenWait polls cond until it returns true, spinning for a bounded
// number of iterations before handing off to an expWait. It returns
// ctx.Err() if the context is done before cond becomes true.
func spinThenWait(ctx context.Context, cond func() bool) error {
	for i := 0; i < spinIterations; i++ {
		if cond() {
			return nil
		}
	}

	w := newExpWait()
	for !cond() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := w.wait(ctx); err != nil {
			return err
		}
	}
	return nil
}
