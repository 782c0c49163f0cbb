package utils

import "time"

// Clock is injected wherever a decision depends on the current time, so tests
// can pin "now" (token expiry, no-show notice).
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// SystemClock returns the wall clock in UTC.
func SystemClock() Clock { return systemClock{} }
