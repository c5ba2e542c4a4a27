// Package model defines the clinic record types shared by the relational
// adapter, the cache layer, and the document adapter, together with the
// field-level invariants each record must satisfy before it is persisted.
package model

import (
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/uptrace/bun"
)

// Appointment status values accepted by the scheduler.
const (
	StatusScheduled = "scheduled"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

type Patient struct {
	bun.BaseModel `bun:"table:patients"`

	ID          int64     `bun:"id,pk,autoincrement"`
	FirstName   string    `bun:"first_name,notnull"`
	LastName    string    `bun:"last_name,notnull"`
	DateOfBirth time.Time `bun:"date_of_birth"`
	Address     string    `bun:"address"`
	Phone       string    `bun:"phone"`
	Email       string    `bun:"email,nullzero"`
}

// FullName is the composite display name used for sorting and substring search.
func (p *Patient) FullName() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

func (p *Patient) Validate() error {
	return validation.ValidateStruct(p,
		validation.Field(&p.FirstName, validation.Required),
		validation.Field(&p.LastName, validation.Required),
		validation.Field(&p.Email, is.Email),
	)
}

type Doctor struct {
	bun.BaseModel `bun:"table:doctors"`

	ID           int64  `bun:"id,pk,autoincrement"`
	FirstName    string `bun:"first_name,notnull"`
	LastName     string `bun:"last_name,notnull"`
	Specialty    string `bun:"specialty"`
	DepartmentID int64  `bun:"department_id"`
	Phone        string `bun:"phone"`
	Email        string `bun:"email,notnull"`
}

func (d *Doctor) FullName() string {
	return strings.TrimSpace(d.FirstName + " " + d.LastName)
}

func (d *Doctor) Validate() error {
	return validation.ValidateStruct(d,
		validation.Field(&d.FirstName, validation.Required),
		validation.Field(&d.LastName, validation.Required),
		validation.Field(&d.Email, validation.Required, is.Email),
		validation.Field(&d.DepartmentID, validation.Required),
	)
}

type Department struct {
	bun.BaseModel `bun:"table:departments"`

	ID   int64  `bun:"id,pk,autoincrement"`
	Name string `bun:"name,notnull"`
}

func (d *Department) Validate() error {
	return validation.ValidateStruct(d,
		validation.Field(&d.Name, validation.Required),
	)
}

type Appointment struct {
	bun.BaseModel `bun:"table:appointments"`

	ID        int64     `bun:"id,pk,autoincrement"`
	PatientID int64     `bun:"patient_id,notnull"`
	DoctorID  int64     `bun:"doctor_id,notnull"`
	Date      time.Time `bun:"appointment_date"`
	Time      string    `bun:"appointment_time"`
	Status    string    `bun:"status,notnull"`
}

func (a *Appointment) Validate() error {
	return validation.ValidateStruct(a,
		validation.Field(&a.PatientID, validation.Required),
		validation.Field(&a.DoctorID, validation.Required),
		validation.Field(&a.Status, validation.Required,
			validation.In(StatusScheduled, StatusCompleted, StatusCancelled)),
	)
}

type Prescription struct {
	bun.BaseModel `bun:"table:prescriptions"`

	ID        int64     `bun:"id,pk,autoincrement"`
	PatientID int64     `bun:"patient_id,notnull"`
	DoctorID  int64     `bun:"doctor_id,notnull"`
	Date      time.Time `bun:"prescription_date"`
	Diagnosis string    `bun:"diagnosis"`
	Notes     string    `bun:"notes"`
}

func (p *Prescription) Validate() error {
	return validation.ValidateStruct(p,
		validation.Field(&p.PatientID, validation.Required),
		validation.Field(&p.DoctorID, validation.Required),
	)
}

// PrescriptionItem belongs to exactly one prescription and is only ever
// written as part of SavePrescriptionWithItems; it has no standalone lifecycle.
type PrescriptionItem struct {
	bun.BaseModel `bun:"table:prescription_items"`

	ID             int64  `bun:"id,pk,autoincrement"`
	PrescriptionID int64  `bun:"prescription_id,notnull"`
	Medication     string `bun:"medication,notnull"`
	Dosage         string `bun:"dosage"`
	Frequency      string `bun:"frequency"`
	DurationDays   int    `bun:"duration_days"`
}

func (i *PrescriptionItem) Validate() error {
	return validation.ValidateStruct(i,
		validation.Field(&i.Medication, validation.Required),
		validation.Field(&i.DurationDays, validation.Min(0)),
	)
}

type MedicalInventory struct {
	bun.BaseModel `bun:"table:medical_inventory"`

	ID       int64  `bun:"id,pk,autoincrement"`
	ItemName string `bun:"item_name,notnull"`
	Quantity int    `bun:"quantity,notnull"`
	Unit     string `bun:"unit"`
}

func (m *MedicalInventory) Validate() error {
	return validation.ValidateStruct(m,
		validation.Field(&m.ItemName, validation.Required),
		validation.Field(&m.Quantity, validation.Min(0)),
	)
}

type PatientFeedback struct {
	bun.BaseModel `bun:"table:patient_feedback"`

	ID            int64     `bun:"id,pk,autoincrement"`
	PatientID     int64     `bun:"patient_id,notnull"`
	AppointmentID *int64    `bun:"appointment_id"`
	Rating        int       `bun:"rating,notnull"`
	Comments      string    `bun:"comments"`
	Date          time.Time `bun:"feedback_date"`
}

func (f *PatientFeedback) Validate() error {
	return validation.ValidateStruct(f,
		validation.Field(&f.PatientID, validation.Required),
		validation.Field(&f.Rating, validation.Required, validation.Min(1), validation.Max(5)),
	)
}
