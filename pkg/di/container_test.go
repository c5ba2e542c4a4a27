package di

import (
	"context"
	"testing"
	"time"

	"github.com/uptrace/bun"

	"github.com/hospitalworks/go-clinic-core/cache"
	"github.com/hospitalworks/go-clinic-core/listops"
	"github.com/hospitalworks/go-clinic-core/model"
	"github.com/hospitalworks/go-clinic-core/pkg/testsupport"
)

func newTestContainer(t *testing.T) (*Container, *bun.DB) {
	t.Helper()
	db := testsupport.OpenTestDB(t)
	c, err := NewContainer(db, cache.Config{
		Capacity:             1000,
		NumShards:            4,
		TTL:                  time.Minute,
		EvictionPercentage:   10,
		MissingRecordStorage: true,
	})
	if err != nil {
		t.Fatalf("NewContainer: %v", err)
	}
	return c, db
}

func TestContainerWiresAllStores(t *testing.T) {
	c, _ := newTestContainer(t)

	if c.Patients == nil || c.Doctors == nil || c.Departments == nil ||
		c.Appointments == nil || c.Prescriptions == nil ||
		c.PrescriptionItems == nil || c.Inventory == nil || c.Feedback == nil {
		t.Fatal("a base store is missing")
	}
	if c.CachedPatients == nil || c.CachedDoctors == nil || c.CachedDepartments == nil ||
		c.CachedAppointments == nil || c.CachedPrescriptions == nil ||
		c.CachedInventory == nil || c.CachedFeedback == nil {
		t.Fatal("a cached store is missing")
	}
	if c.Coordinator == nil || c.Stats == nil {
		t.Fatal("coordinator or stats missing")
	}
	if c.Logs != nil {
		t.Error("document store wired without a database")
	}
}

func TestCachedReadObservesWrite(t *testing.T) {
	c, db := newTestContainer(t)
	testsupport.SeedClinic(t, db)
	ctx := context.Background()

	all, err := c.CachedPatients.GetAll(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 {
		t.Fatalf("got %d patients, want 3", len(all))
	}

	if _, err := c.CachedPatients.Add(ctx, &model.Patient{FirstName: "Dee", LastName: "Vault", Email: "dee@example.test"}); err != nil {
		t.Fatalf("Add: %v", err)
	}

	all, err = c.CachedPatients.GetAll(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 4 {
		t.Errorf("read after write returned %d patients, want 4", len(all))
	}
}

func TestCascadeInvalidatesCaches(t *testing.T) {
	c, db := newTestContainer(t)
	ids := testsupport.SeedClinic(t, db)
	ctx := context.Background()

	testsupport.Seed(t, db,
		&model.Appointment{PatientID: ids[0], DoctorID: 1, Date: testsupport.Date(2026, time.September, 1), Time: "09:00", Status: model.StatusScheduled},
	)

	// Warm the caches the cascade must drop.
	if _, err := c.CachedPatients.GetAll(ctx); err != nil {
		t.Fatal(err)
	}
	if p, err := c.CachedPatients.GetByID(ctx, ids[0]); err != nil || p == nil {
		t.Fatalf("warm point read: %v %v", p, err)
	}
	if _, err := c.CachedAppointments.GetAll(ctx); err != nil {
		t.Fatal(err)
	}

	if _, err := c.Coordinator.DeletePatientCascade(ctx, ids[0]); err != nil {
		t.Fatalf("DeletePatientCascade: %v", err)
	}

	all, err := c.CachedPatients.GetAll(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 {
		t.Errorf("patient collection stale after cascade: %d rows", len(all))
	}
	p, err := c.CachedPatients.GetByID(ctx, ids[0])
	if err != nil {
		t.Fatal(err)
	}
	if p != nil {
		t.Errorf("deleted patient served from cache: %+v", p)
	}
	appts, err := c.CachedAppointments.GetAll(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(appts) != 0 {
		t.Errorf("appointment cache stale after cascade: %d rows", len(appts))
	}
}

func TestPrescriptionSaveInvalidatesItemCacheViaPrescriptions(t *testing.T) {
	c, db := newTestContainer(t)
	testsupport.SeedClinic(t, db)
	ctx := context.Background()

	if _, err := c.CachedPrescriptions.GetAll(ctx); err != nil {
		t.Fatal(err)
	}

	if _, err := c.Coordinator.SavePrescriptionWithItems(ctx,
		&model.Prescription{PatientID: 1, DoctorID: 1, Date: time.Now(), Diagnosis: "flu"},
		[]model.PrescriptionItem{{Medication: "Oseltamivir"}}); err != nil {
		t.Fatalf("SavePrescriptionWithItems: %v", err)
	}

	all, err := c.CachedPrescriptions.GetAll(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 1 {
		t.Errorf("prescription cache stale after save: %d rows", len(all))
	}
}

func TestPatientDirectoryDispatch(t *testing.T) {
	c, db := newTestContainer(t)
	testsupport.SeedClinic(t, db)
	ctx := context.Background()
	dir := c.PatientDirectory()

	byID, err := listops.Find(ctx, dir, "2")
	if err != nil {
		t.Fatalf("by id: %v", err)
	}
	if len(byID) != 1 || byID[0].ID != 2 {
		t.Errorf("id query: %+v", byID)
	}

	byEmail, err := listops.Find(ctx, dir, "amy.adams@example.test")
	if err != nil {
		t.Fatalf("by email: %v", err)
	}
	if len(byEmail) != 1 || byEmail[0].FirstName != "Amy" {
		t.Errorf("email query: %+v", byEmail)
	}

	byName, err := listops.Find(ctx, dir, "an")
	if err != nil {
		t.Fatalf("by name: %v", err)
	}
	if len(byName) != 1 || byName[0].FirstName != "Carl" {
		t.Errorf("name query: %+v", byName)
	}
}

func TestEmailLookupInvalidatedByWrite(t *testing.T) {
	c, db := newTestContainer(t)
	ids := testsupport.SeedClinic(t, db)
	ctx := context.Background()
	dir := c.PatientDirectory()

	found, err := dir.FindByEmail(ctx, "amy.adams@example.test")
	if err != nil {
		t.Fatal(err)
	}
	if found == nil {
		t.Fatal("seeded email not found")
	}

	amy, err := c.Patients.GetByID(ctx, ids[1])
	if err != nil {
		t.Fatal(err)
	}
	amy.Email = "amy.baker@example.test"
	if err := c.CachedPatients.Update(ctx, amy); err != nil {
		t.Fatalf("Update: %v", err)
	}

	stale, err := dir.FindByEmail(ctx, "amy.adams@example.test")
	if err != nil {
		t.Fatal(err)
	}
	if stale != nil {
		t.Errorf("old email still resolves after update: %+v", stale)
	}
}

func TestAppointmentsOnServesDateBuckets(t *testing.T) {
	c, db := newTestContainer(t)
	testsupport.SeedClinic(t, db)
	ctx := context.Background()

	day := testsupport.Date(2026, time.September, 1)
	testsupport.Seed(t, db,
		&model.Appointment{PatientID: 1, DoctorID: 1, Date: day, Time: "09:00", Status: model.StatusScheduled},
		&model.Appointment{PatientID: 2, DoctorID: 1, Date: day, Time: "10:00", Status: model.StatusScheduled},
		&model.Appointment{PatientID: 3, DoctorID: 1, Date: day.AddDate(0, 0, 1), Time: "09:00", Status: model.StatusScheduled},
	)

	onDay, err := c.AppointmentsOn(ctx, day)
	if err != nil {
		t.Fatalf("AppointmentsOn: %v", err)
	}
	if len(onDay) != 2 {
		t.Errorf("got %d appointments, want 2", len(onDay))
	}

	nextDay, err := c.AppointmentsOn(ctx, day.AddDate(0, 0, 1))
	if err != nil {
		t.Fatalf("AppointmentsOn: %v", err)
	}
	if len(nextDay) != 1 {
		t.Errorf("got %d appointments, want 1", len(nextDay))
	}

	// A write through the cached store drops the date buckets too.
	if _, err := c.CachedAppointments.Add(ctx, &model.Appointment{
		PatientID: 1, DoctorID: 1, Date: day, Time: "11:00", Status: model.StatusScheduled,
	}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	onDay, err = c.AppointmentsOn(ctx, day)
	if err != nil {
		t.Fatal(err)
	}
	if len(onDay) != 3 {
		t.Errorf("date bucket stale after write: %d rows", len(onDay))
	}
}

func TestStatsSnapshotThroughContainer(t *testing.T) {
	c, db := newTestContainer(t)
	testsupport.SeedClinic(t, db)

	snap, err := c.Stats.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if snap.Counts["patients"] != 3 || snap.Counts["medical_inventory"] != 4 {
		t.Errorf("counts = %v", snap.Counts)
	}
	if snap.LowStockItems != 3 {
		t.Errorf("LowStockItems = %d, want 3", snap.LowStockItems)
	}
}
