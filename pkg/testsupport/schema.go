// Package testsupport provides the SQLite schema and seed helpers shared by
// the package tests and the demo program. The production schema is owned by
// the surrounding application; this one mirrors it closely enough for the
// adapter to behave identically.
package testsupport

import (
	"context"

	"github.com/uptrace/bun"
)

// Schema mirrors the relational layout from the surrounding application.
// Emails are unique, quantities and ratings carry their invariants as
// checks, and medication length is capped the way the production column is.
const Schema = `
CREATE TABLE IF NOT EXISTS patients (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	first_name TEXT NOT NULL,
	last_name TEXT NOT NULL,
	date_of_birth TIMESTAMP,
	address TEXT,
	phone TEXT,
	email TEXT UNIQUE
);
CREATE TABLE IF NOT EXISTS departments (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS doctors (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	first_name TEXT NOT NULL,
	last_name TEXT NOT NULL,
	specialty TEXT,
	department_id INTEGER,
	phone TEXT,
	email TEXT NOT NULL UNIQUE
);
CREATE TABLE IF NOT EXISTS appointments (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	patient_id INTEGER NOT NULL,
	doctor_id INTEGER NOT NULL,
	appointment_date TIMESTAMP,
	appointment_time TEXT,
	status TEXT NOT NULL CHECK (status IN ('scheduled', 'completed', 'cancelled'))
);
CREATE TABLE IF NOT EXISTS prescriptions (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	patient_id INTEGER NOT NULL,
	doctor_id INTEGER NOT NULL,
	prescription_date TIMESTAMP,
	diagnosis TEXT,
	notes TEXT
);
CREATE TABLE IF NOT EXISTS prescription_items (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	prescription_id INTEGER NOT NULL,
	medication TEXT NOT NULL CHECK (length(medication) <= 64),
	dosage TEXT,
	frequency TEXT,
	duration_days INTEGER CHECK (duration_days >= 0)
);
CREATE TABLE IF NOT EXISTS medical_inventory (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	item_name TEXT NOT NULL,
	quantity INTEGER NOT NULL CHECK (quantity >= 0),
	unit TEXT
);
CREATE TABLE IF NOT EXISTS patient_feedback (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	patient_id INTEGER NOT NULL,
	appointment_id INTEGER,
	rating INTEGER NOT NULL CHECK (rating BETWEEN 1 AND 5),
	comments TEXT,
	feedback_date TIMESTAMP
);
`

// CreateSchema applies the schema to db.
func CreateSchema(ctx context.Context, db *bun.DB) error {
	_, err := db.ExecContext(ctx, Schema)
	return err
}
