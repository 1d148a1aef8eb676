package console

import "time"

// Clock supplies wall time and timers to the session and to timed animations.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

// SystemClock is the real-time Clock.
type SystemClock struct{}

// Now returns time.Now.
func (SystemClock) Now() time.Time {
	return time.Now()
}

// After returns time.After.
func (SystemClock) After(d time.Duration) <-chan time.Time {
	return time.After(d)
}
