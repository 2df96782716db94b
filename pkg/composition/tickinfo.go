// Package composition implements the two workload-tree grouping
// primitives every non-leaf workload is built from: a Sequenced group,
// which ticks its children in declared order on a single goroutine, and
// a Synced group, which gives each child its own worker goroutine and
// wakes them together from its own tick.
package composition

import "time"

// TickInfo describes one tick's timing; a ticked workload receives only
// its DeltaTime. TimeNowNs is the authoritative clock; TimeNow is derived
// from it every tick rather than accumulated, so it cannot drift from
// floating-point error the way repeatedly summing DeltaTime would.
type TickInfo struct {
	DeltaTime float64 // seconds since this workload's previous tick
	TimeNow   float64 // seconds since this workload's worker started
	TimeNowNs uint64  // nanoseconds since this workload's worker started
	TickCount uint64  // ticks since this workload's worker started
}

// NewTickInfo derives a TickInfo from the elapsed durations since the
// workload's own start and since its own previous tick.
func NewTickInfo(sinceStart, sinceLastTick time.Duration, tickCount uint64) TickInfo {
	return TickInfo{
		DeltaTime: sinceLastTick.Seconds(),
		TimeNow:   sinceStart.Seconds(),
		TimeNowNs: uint64(sinceStart.Nanoseconds()),
		TickCount: tickCount,
	}
}
