package store

import (
	"context"
	"time"

	"github.com/uptrace/bun"

	"github.com/hospitalworks/go-clinic-core/model"
)

// Per-entity constructors. The entity name doubles as the cache namespace,
// so it must stay stable once caches are built on top.

// PatientStore adds the exact-email lookup the search dispatcher routes to.
type PatientStore struct {
	*SQLStore[model.Patient]
}

func NewPatientStore(db *bun.DB) *PatientStore {
	return &PatientStore{
		SQLStore: NewSQLStore(db, "patients", "first_name || ' ' || last_name",
			func(p *model.Patient) int64 { return p.ID }),
	}
}

// GetByEmail fetches a patient by exact email; a missing row is (nil, nil).
func (s *PatientStore) GetByEmail(ctx context.Context, email string) (*model.Patient, error) {
	return s.getByColumn(ctx, "get_by_email", "email", email)
}

// DoctorStore adds the exact-email lookup the search dispatcher routes to.
type DoctorStore struct {
	*SQLStore[model.Doctor]
}

func NewDoctorStore(db *bun.DB) *DoctorStore {
	return &DoctorStore{
		SQLStore: NewSQLStore(db, "doctors", "first_name || ' ' || last_name",
			func(d *model.Doctor) int64 { return d.ID }),
	}
}

func (s *DoctorStore) GetByEmail(ctx context.Context, email string) (*model.Doctor, error) {
	return s.getByColumn(ctx, "get_by_email", "email", email)
}

func NewDepartmentStore(db *bun.DB) *SQLStore[model.Department] {
	return NewSQLStore(db, "departments", "name",
		func(d *model.Department) int64 { return d.ID })
}

// AppointmentStore adds the by-date listing backing the derived-index cache.
type AppointmentStore struct {
	*SQLStore[model.Appointment]
}

func NewAppointmentStore(db *bun.DB) *AppointmentStore {
	return &AppointmentStore{
		SQLStore: NewSQLStore(db, "appointments", "status",
			func(a *model.Appointment) int64 { return a.ID }),
	}
}

// ListByDate returns the appointments falling on the given calendar day.
func (s *AppointmentStore) ListByDate(ctx context.Context, day time.Time) ([]model.Appointment, error) {
	dayStart := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	var recs []model.Appointment
	err := s.round(ctx, "list_by_date", func(ctx context.Context) error {
		return s.db.NewSelect().Model(&recs).
			Where("appointment_date >= ? AND appointment_date < ?", dayStart, dayStart.AddDate(0, 0, 1)).
			OrderExpr("id ASC").
			Scan(ctx)
	})
	if err != nil {
		return nil, err
	}
	return recs, nil
}

func NewPrescriptionStore(db *bun.DB) *SQLStore[model.Prescription] {
	return NewSQLStore(db, "prescriptions", "diagnosis",
		func(p *model.Prescription) int64 { return p.ID })
}

// PrescriptionItemStore is read-only outside the coordinator: items are
// written exclusively through SavePrescriptionWithItems.
type PrescriptionItemStore struct {
	*SQLStore[model.PrescriptionItem]
}

func NewPrescriptionItemStore(db *bun.DB) *PrescriptionItemStore {
	return &PrescriptionItemStore{
		SQLStore: NewSQLStore(db, "prescription_items", "medication",
			func(i *model.PrescriptionItem) int64 { return i.ID }),
	}
}

// ListByPrescription returns the items owned by one prescription header.
func (s *PrescriptionItemStore) ListByPrescription(ctx context.Context, prescriptionID int64) ([]model.PrescriptionItem, error) {
	var recs []model.PrescriptionItem
	err := s.round(ctx, "list_by_prescription", func(ctx context.Context) error {
		return s.db.NewSelect().Model(&recs).
			Where("prescription_id = ?", prescriptionID).
			OrderExpr("id ASC").
			Scan(ctx)
	})
	if err != nil {
		return nil, err
	}
	return recs, nil
}

// InventoryStore adds the low-stock scan used by the statistics aggregator.
type InventoryStore struct {
	*SQLStore[model.MedicalInventory]
}

func NewInventoryStore(db *bun.DB) *InventoryStore {
	return &InventoryStore{
		SQLStore: NewSQLStore(db, "medical_inventory", "item_name",
			func(m *model.MedicalInventory) int64 { return m.ID }),
	}
}

// CountLowStock counts items at or below the given quantity threshold.
func (s *InventoryStore) CountLowStock(ctx context.Context, threshold int) (int, error) {
	var count int
	err := s.round(ctx, "count_low_stock", func(ctx context.Context) error {
		var err error
		count, err = s.db.NewSelect().Model((*model.MedicalInventory)(nil)).
			Where("quantity <= ?", threshold).
			Count(ctx)
		return err
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}

func NewFeedbackStore(db *bun.DB) *SQLStore[model.PatientFeedback] {
	return NewSQLStore(db, "patient_feedback", "comments",
		func(f *model.PatientFeedback) int64 { return f.ID })
}
