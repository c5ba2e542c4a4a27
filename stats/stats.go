// Package stats composes point-in-time snapshots from the other components:
// per-entity totals, low-stock inventory, and a direct-versus-cached fetch
// latency pair that makes cache effectiveness observable. It is purely a
// read composition; the only side effect is the cache population its reads
// cause in the entity cache layer.
package stats

import (
	"context"
	"time"

	"github.com/hospitalworks/go-clinic-core/entitycache"
	"github.com/hospitalworks/go-clinic-core/model"
	"github.com/hospitalworks/go-clinic-core/store"
)

// DefaultLowStockThreshold flags inventory rows with quantity at or below it.
const DefaultLowStockThreshold = 10

// Sources are the components a snapshot reads from.
type Sources struct {
	Patients      *store.PatientStore
	Doctors       *store.DoctorStore
	Departments   *store.SQLStore[model.Department]
	Appointments  *store.AppointmentStore
	Prescriptions *store.SQLStore[model.Prescription]
	Inventory     *store.InventoryStore
	Feedback      *store.SQLStore[model.PatientFeedback]

	// CachedPatients supplies the cached half of the latency comparison and
	// the cache-layer stats.
	CachedPatients *entitycache.CachedStore[model.Patient]
}

// Snapshot is one point-in-time view of the system.
type Snapshot struct {
	TakenAt time.Time

	// Counts holds total rows per entity type, keyed by entity name.
	Counts map[string]int

	LowStockItems     int
	LowStockThreshold int

	// DirectFetchLatency and CachedFetchLatency time the same full-collection
	// fetch, first against the relational adapter, then through the cache.
	DirectFetchLatency time.Duration
	CachedFetchLatency time.Duration

	PatientCache entitycache.Stats

	// AverageLatency is each adapter's running mean round-trip time.
	AverageLatency map[string]time.Duration
}

type Aggregator struct {
	src       Sources
	threshold int
}

func NewAggregator(src Sources, lowStockThreshold int) *Aggregator {
	if lowStockThreshold <= 0 {
		lowStockThreshold = DefaultLowStockThreshold
	}
	return &Aggregator{src: src, threshold: lowStockThreshold}
}

type counter interface {
	CountAll(ctx context.Context) (int, error)
}

// Snapshot gathers the current totals and latency samples. The first failing
// read aborts the snapshot.
func (a *Aggregator) Snapshot(ctx context.Context) (*Snapshot, error) {
	snap := &Snapshot{
		TakenAt:           time.Now().UTC(),
		Counts:            make(map[string]int, 7),
		LowStockThreshold: a.threshold,
		AverageLatency:    make(map[string]time.Duration, 7),
	}

	counters := map[string]counter{
		"patients":          a.src.Patients,
		"doctors":           a.src.Doctors,
		"departments":       a.src.Departments,
		"appointments":      a.src.Appointments,
		"prescriptions":     a.src.Prescriptions,
		"medical_inventory": a.src.Inventory,
		"patient_feedback":  a.src.Feedback,
	}
	for entity, c := range counters {
		n, err := c.CountAll(ctx)
		if err != nil {
			return nil, err
		}
		snap.Counts[entity] = n
	}

	low, err := a.src.Inventory.CountLowStock(ctx, a.threshold)
	if err != nil {
		return nil, err
	}
	snap.LowStockItems = low

	start := time.Now()
	if _, err := a.src.Patients.GetAll(ctx); err != nil {
		return nil, err
	}
	snap.DirectFetchLatency = time.Since(start)

	start = time.Now()
	if _, err := a.src.CachedPatients.GetAll(ctx); err != nil {
		return nil, err
	}
	snap.CachedFetchLatency = time.Since(start)

	snap.PatientCache = a.src.CachedPatients.Stats()

	snap.AverageLatency["patients"] = a.src.Patients.AverageLatency()
	snap.AverageLatency["doctors"] = a.src.Doctors.AverageLatency()
	snap.AverageLatency["departments"] = a.src.Departments.AverageLatency()
	snap.AverageLatency["appointments"] = a.src.Appointments.AverageLatency()
	snap.AverageLatency["prescriptions"] = a.src.Prescriptions.AverageLatency()
	snap.AverageLatency["medical_inventory"] = a.src.Inventory.AverageLatency()
	snap.AverageLatency["patient_feedback"] = a.src.Feedback.AverageLatency()

	return snap, nil
}
