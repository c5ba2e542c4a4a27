package model

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Medical log severities.
const (
	SeverityRoutine     = "Routine"
	SeverityObservation = "Observation"
	SeverityCritical    = "Critical"
)

// MedicalLog is a free-form clinical note stored in the document store.
// Logs are append-only; there is no update or delete path.
type MedicalLog struct {
	ID        primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	PatientID int64              `json:"patient_id" bson:"patient_id"`
	Content   string             `json:"log_content" bson:"log_content"`
	Severity  string             `json:"severity" bson:"severity"`
	Timestamp time.Time          `json:"timestamp" bson:"timestamp"`
}

func (l *MedicalLog) Validate() error {
	return validation.ValidateStruct(l,
		validation.Field(&l.PatientID, validation.Required),
		validation.Field(&l.Content, validation.Required),
		validation.Field(&l.Severity, validation.Required,
			validation.In(SeverityRoutine, SeverityObservation, SeverityCritical)),
	)
}
