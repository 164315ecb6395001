package common

import (
	"fmt"
	"time"
)

// Timer measures wall time as a series of laps. Time between Restart and the
// next Lap is recorded; time spent before a Restart is discarded.
type Timer struct {
	name  string
	start time.Time
	total time.Duration
	laps  int
}

// NewTimer starts an unnamed timer.
func NewTimer() *Timer {
	return NewNamedTimer("")
}

// NewNamedTimer starts a timer labelled name.
func NewNamedTimer(name string) *Timer {
	return &Timer{name: name, start: time.Now()}
}

// Lap records the time since the last Lap or Restart and starts the next lap.
func (t *Timer) Lap() time.Duration {
	now := time.Now()
	d := now.Sub(t.start)
	t.start = now
	t.total += d
	t.laps++
	return d
}

// Stop records a final lap and returns the total recorded time.
func (t *Timer) Stop() time.Duration {
	t.Lap()
	return t.total
}

// Restart begins a new lap without recording the time since the last one.
func (t *Timer) Restart() {
	t.start = time.Now()
}

// Duration is the sum of all recorded laps.
func (t *Timer) Duration() time.Duration { return t.total }

// Laps is the number of recorded laps.
func (t *Timer) Laps() int { return t.laps }

// Mean is the average lap, zero before the first one.
func (t *Timer) Mean() time.Duration {
	if t.laps == 0 {
		return 0
	}
	return t.total / time.Duration(t.laps)
}

// Name returns the label given to NewNamedTimer.
func (t *Timer) Name() string { return t.name }

func (t *Timer) String() string {
	s := fmt.Sprintf("%v", t.total)
	if t.laps > 1 {
		s = fmt.Sprintf("%v over %d laps (mean %v)", t.total, t.laps, t.Mean())
	}
	if t.name != "" {
		return t.name + ": " + s
	}
	return s
}
