// Package system provides the wall clock used to stamp snapshot runs.
package system

import "time"

// Clock reports the current time in UTC.
type Clock struct{}

// New returns a Clock.
func New() Clock {
	return Clock{}
}

// Now returns the current UTC time truncated to the microsecond, the
// precision Postgres keeps for timestamptz.
func (Clock) Now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}
