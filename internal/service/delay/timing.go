// Package delay flags in-flight jobs that run past their estimate.
package delay

import (
	"fmt"
	"time"
)

// Timing is a read-only projection of a job's progress against its estimate.
type Timing struct {
	PickedUpAt     time.Time     `json:"picked_up_at"`
	Estimate       time.Duration `json:"-"`
	Elapsed        time.Duration `json:"-"`
	Remaining      time.Duration `json:"-"`
	Delayed        bool          `json:"delayed"`
	EstimateClock  string        `json:"estimate"`
	ElapsedClock   string        `json:"elapsed"`
	RemainingClock string        `json:"remaining"`
}

// Project computes the timing of a job picked up at pickedUpAt. Remaining is
// negative once the estimate is exceeded. It never touches storage.
func Project(pickedUpAt time.Time, estimate time.Duration, now time.Time) Timing {
	elapsed := now.Sub(pickedUpAt)
	if elapsed < 0 {
		elapsed = 0
	}
	remaining := estimate - elapsed
	return Timing{
		PickedUpAt:     pickedUpAt,
		Estimate:       estimate,
		Elapsed:        elapsed,
		Remaining:      remaining,
		Delayed:        elapsed > estimate,
		EstimateClock:  Clock(estimate),
		ElapsedClock:   Clock(elapsed),
		RemainingClock: Clock(remaining),
	}
}

// Clock formats d as HH:MM:SS, prefixed with "-" when negative.
func Clock(d time.Duration) string {
	sign := ""
	if d < 0 {
		sign = "-"
		d = -d
	}
	d = d.Truncate(time.Second)
	h := d / time.Hour
	m := (d % time.Hour) / time.Minute
	s := (d % time.Minute) / time.Second
	return fmt.Sprintf("%s%02d:%02d:%02d", sign, h, m, s)
}

// Estimate converts a job's estimated minutes into a duration.
func Estimate(minutes int) time.Duration {
	return time.Duration(minutes) * time.Minute
}
