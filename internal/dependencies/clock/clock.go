package clock

import "time"

// Clock is the time source for turn timers, seat grace periods and idle
// expiry. Lobbies only ever read it, so tests swap in a manual clock.
type Clock interface {
	Now() time.Time
}

// RealClock reads the system clock
type RealClock struct{}

func New() *RealClock {
	return &RealClock{}
}

func (RealClock) Now() time.Time {
	return time.Now()
}
