package app

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
)

func TestRotation_IndexFollowsWallClock(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.UnixMilli(0))
	r := NewRotation(clock, 5*time.Second)

	var got []int
	for i := 0; i < 4; i++ {
		got = append(got, r.Index(3))
		clock.Advance(5 * time.Second)
	}
	assert.Equal(t, []int{0, 1, 2, 0}, got)
}

func TestRotation_StableWithinInterval(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.UnixMilli(10_000))
	r := NewRotation(clock, 5*time.Second)

	first := r.Index(4)
	clock.Advance(4999 * time.Millisecond)
	assert.Equal(t, first, r.Index(4))
}

func TestRotation_Empty(t *testing.T) {
	r := NewRotation(clockwork.NewFakeClock(), time.Second)

	assert.Equal(t, -1, r.Index(0))
	_, i, ok := Pick(r, []string{})
	assert.False(t, ok)
	assert.Equal(t, -1, i)
}

func TestRotation_SingleItemAlwaysZero(t *testing.T) {
	clock := clockwork.NewFakeClock()
	r := NewRotation(clock, time.Second)

	for n := 0; n < 3; n++ {
		item, i, ok := Pick(r, []string{"only"})
		assert.True(t, ok)
		assert.Equal(t, 0, i)
		assert.Equal(t, "only", item)
		clock.Advance(time.Second)
	}
}

func TestRotation_DefaultInterval(t *testing.T) {
	r := NewRotation(clockwork.NewFakeClock(), 0)
	assert.Equal(t, defaultRotationInterval, r.Interval())
}
