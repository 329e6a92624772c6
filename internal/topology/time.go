package topology

import (
	"time"

	"github.com/amsen20/leovnf/internal/config"
)

// SecondOfDay is the wall-clock second of t in its own location, in
// [0, 86400).
func SecondOfDay(t time.Time) int {
	return (t.Hour()*3600 + t.Minute()*60 + t.Second()) % config.SecondsPerDay
}

// RoundInstant is the simulated instant of round r.
func RoundInstant(base time.Time, r int, interval time.Duration) time.Time {
	return base.Add(time.Duration(r) * interval)
}
