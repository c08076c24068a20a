package app

import (
	"time"

	"github.com/jonboulle/clockwork"
)

const defaultRotationInterval = 5 * time.Second

// Rotation selects one item from a list based on wall-clock time, so every
// request within the same interval sees the same item.
type Rotation struct {
	clock    clockwork.Clock
	interval time.Duration
}

func NewRotation(clock clockwork.Clock, interval time.Duration) Rotation {
	if interval <= 0 {
		interval = defaultRotationInterval
	}
	return Rotation{clock: clock, interval: interval}
}

func (r Rotation) Interval() time.Duration { return r.interval }

// Index returns floor(now / interval) mod n, or -1 when n is zero.
func (r Rotation) Index(n int) int {
	if n <= 0 {
		return -1
	}
	slot := r.clock.Now().UnixMilli() / r.interval.Milliseconds()
	return int(slot % int64(n))
}

// Pick returns the current item and its index.
func Pick[T any](r Rotation, items []T) (T, int, bool) {
	var zero T
	i := r.Index(len(items))
	if i < 0 {
		return zero, -1, false
	}
	return items[i], i, true
}
