package common

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTimer_Stop(t *testing.T) {
	timer := NewNamedTimer("mask-ring")
	assert.Equal(t, "mask-ring", timer.Name())

	time.Sleep(10 * time.Millisecond)

	duration := timer.Stop()
	assert.GreaterOrEqual(t, duration, 10*time.Millisecond)
	assert.Equal(t, duration, timer.Duration())
	assert.Equal(t, 1, timer.Laps())

	str := timer.String()
	assert.Contains(t, str, "mask-ring: ")
	assert.Contains(t, str, "ms")
	assert.NotContains(t, str, "laps")
}

func TestTimer_Laps(t *testing.T) {
	timer := NewTimer()
	assert.Empty(t, timer.Name())
	assert.Zero(t, timer.Mean())

	time.Sleep(5 * time.Millisecond)
	first := timer.Lap()
	time.Sleep(5 * time.Millisecond)
	second := timer.Lap()

	assert.GreaterOrEqual(t, first, 5*time.Millisecond)
	assert.GreaterOrEqual(t, second, 5*time.Millisecond)
	assert.Equal(t, first+second, timer.Duration())
	assert.Equal(t, (first+second)/2, timer.Mean())
	assert.Contains(t, timer.String(), "over 2 laps")
}

func TestTimer_RestartDiscards(t *testing.T) {
	timer := NewTimer()
	time.Sleep(20 * time.Millisecond)
	timer.Restart()

	lap := timer.Lap()
	assert.Less(t, lap, 20*time.Millisecond)
	assert.Equal(t, lap, timer.Duration())
}
