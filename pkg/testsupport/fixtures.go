package testsupport

import (
	"context"
	"testing"
	"time"

	"github.com/uptrace/bun"

	"github.com/hospitalworks/go-clinic-core/model"
	"github.com/hospitalworks/go-clinic-core/store"
)

// OpenTestDB opens a fresh in-memory SQLite store with the schema applied.
// The database is private to the test and closed on cleanup.
func OpenTestDB(t *testing.T) *bun.DB {
	t.Helper()

	db, err := store.OpenSQLite("file::memory:?cache=private")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := CreateSchema(context.Background(), db); err != nil {
		db.Close()
		t.Fatalf("create schema: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// Seed inserts the given records, failing the test on any error. Records
// must be pointers to bun models.
func Seed(t *testing.T, db *bun.DB, recs ...any) {
	t.Helper()
	ctx := context.Background()
	for _, rec := range recs {
		if _, err := db.NewInsert().Model(rec).Exec(ctx); err != nil {
			t.Fatalf("seed %T: %v", rec, err)
		}
	}
}

// Date builds a UTC midnight timestamp, the shape appointment and feedback
// dates take in fixtures.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// SeedClinic inserts a small coherent data set: one department, one doctor,
// three patients (Bob Young, Amy Adams, Carl Zane), and a few inventory rows.
// It returns the patient ids in insertion order.
func SeedClinic(t *testing.T, db *bun.DB) []int64 {
	t.Helper()

	dept := &model.Department{Name: "General Medicine"}
	doc := &model.Doctor{FirstName: "Dana", LastName: "Reyes", Specialty: "GP", DepartmentID: 1, Email: "dana.reyes@clinic.test"}
	patients := []*model.Patient{
		{FirstName: "Bob", LastName: "Young", Email: "bob.young@example.test", DateOfBirth: Date(1984, time.March, 2)},
		{FirstName: "Amy", LastName: "Adams", Email: "amy.adams@example.test", DateOfBirth: Date(1991, time.July, 14)},
		{FirstName: "Carl", LastName: "Zane", Email: "carl.zane@example.test", DateOfBirth: Date(1978, time.November, 30)},
	}
	inventory := []*model.MedicalInventory{
		{ItemName: "Gauze", Quantity: 5, Unit: "box"},
		{ItemName: "Saline", Quantity: 12, Unit: "bag"},
		{ItemName: "Gloves", Quantity: 10, Unit: "box"},
		{ItemName: "Syringes", Quantity: 3, Unit: "box"},
	}

	Seed(t, db, dept, doc)
	ids := make([]int64, 0, len(patients))
	for _, p := range patients {
		Seed(t, db, p)
		ids = append(ids, p.ID)
	}
	for _, item := range inventory {
		Seed(t, db, item)
	}
	return ids
}
