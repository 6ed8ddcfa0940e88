// Package pool recycles timers used for bounded waits such as reply
// deadlines.
package pool

import (
	"sync"
	"time"
)

var timers sync.Pool

// GetTimer returns a timer that fires after d. Return it with PutTimer once
// the wait is over.
func GetTimer(d time.Duration) *time.Timer {
	t, ok := timers.Get().(*time.Timer)
	if !ok {
		return time.NewTimer(d)
	}

	// Since Go 1.23 a stopped or reset timer never delivers a stale value,
	// so no drain is needed here.
	t.Reset(d)

	return t
}

// PutTimer stops t and returns it to the pool. t must not be used
// afterwards.
func PutTimer(t *time.Timer) {
	t.Stop()
	timers.Put(t)
}
