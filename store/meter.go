package store

import (
	"time"

	"github.com/puzpuzpuz/xsync/v3"
)

// Meter tracks a running (total time, call count) pair for adapter round
// trips. Safe for concurrent use.
type Meter struct {
	calls      *xsync.Counter
	totalNanos *xsync.Counter
}

func NewMeter() *Meter {
	return &Meter{
		calls:      xsync.NewCounter(),
		totalNanos: xsync.NewCounter(),
	}
}

// Observe records one completed round trip.
func (m *Meter) Observe(d time.Duration) {
	m.calls.Inc()
	m.totalNanos.Add(int64(d))
}

// Calls reports how many round trips have been observed.
func (m *Meter) Calls() int64 {
	return m.calls.Value()
}

// AverageLatency reports the mean round-trip duration, zero before any call.
func (m *Meter) AverageLatency() time.Duration {
	calls := m.calls.Value()
	if calls == 0 {
		return 0
	}
	return time.Duration(m.totalNanos.Value() / calls)
}
