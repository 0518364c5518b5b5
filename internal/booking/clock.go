package booking

import "time"

// Clock abstracts the current time so that lifecycle windows (check-in
// grace, no-show cutoff, extension deadlines) can be unit tested without
// sleeping.  All times are naive local timestamps in the deployment's
// single operating timezone.
type Clock interface {
	Now() time.Time
}

// RealClock is the production Clock.
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }
