package store

import (
	"context"
	"database/sql"
	"sync"

	"github.com/rs/zerolog"
	"github.com/uptrace/bun"

	"github.com/hospitalworks/go-clinic-core/fault"
	"github.com/hospitalworks/go-clinic-core/model"
)

// CascadeStep deletes one dependent table's rows for a patient and reports
// how many rows it removed. Steps run strictly in slice order,
// child-before-parent, because the backing store does not enforce cascading
// foreign-key deletes.
type CascadeStep struct {
	Entity string
	Run    func(ctx context.Context, tx bun.Tx, patientID int64) (int64, error)
}

func deleteWhere(model any, where string) func(ctx context.Context, tx bun.Tx, patientID int64) (int64, error) {
	return func(ctx context.Context, tx bun.Tx, patientID int64) (int64, error) {
		res, err := tx.NewDelete().Model(model).Where(where, patientID).Exec(ctx)
		if err != nil {
			return 0, err
		}
		return res.RowsAffected()
	}
}

// PatientCascade is the ordered dependency list for removing a patient.
// Adding a new dependent table means inserting a step before the patients
// step, nothing else.
func PatientCascade() []CascadeStep {
	return []CascadeStep{
		{
			Entity: "prescription_items",
			Run: deleteWhere((*model.PrescriptionItem)(nil),
				"prescription_id IN (SELECT id FROM prescriptions WHERE patient_id = ?)"),
		},
		{
			Entity: "prescriptions",
			Run:    deleteWhere((*model.Prescription)(nil), "patient_id = ?"),
		},
		{
			Entity: "appointments",
			Run:    deleteWhere((*model.Appointment)(nil), "patient_id = ?"),
		},
		{
			Entity: "patient_feedback",
			Run:    deleteWhere((*model.PatientFeedback)(nil), "patient_id = ?"),
		},
		{
			Entity: "patients",
			Run:    deleteWhere((*model.Patient)(nil), "id = ?"),
		},
	}
}

// SavedPrescription is the result of SavePrescriptionWithItems: the persisted
// header and its items in insertion order.
type SavedPrescription struct {
	Header model.Prescription
	Items  []model.PrescriptionItem
}

// CascadeResult reports how many rows each cascade step removed.
type CascadeResult struct {
	Deleted map[string]int64
}

// Total sums the removed rows across all steps.
func (r *CascadeResult) Total() int64 {
	var n int64
	for _, v := range r.Deleted {
		n += v
	}
	return n
}

// Coordinator executes composite multi-statement operations atomically. Each
// operation checks out one transactional scope for its whole duration; the
// mutex keeps two composite operations from interleaving on it. The
// coordinator talks to the store directly, bypassing caches, and reports the
// entity types it touched through the invalidate hook so the cache layer can
// drop every view of them.
type Coordinator struct {
	db         *bun.DB
	mu         sync.Mutex
	cascade    []CascadeStep
	invalidate func(entity string)
	log        zerolog.Logger
}

type CoordinatorOption func(*Coordinator)

// WithCascadeSteps overrides the patient delete cascade. Tests use this to
// inject a failing step; production wiring never should.
func WithCascadeSteps(steps []CascadeStep) CoordinatorOption {
	return func(c *Coordinator) { c.cascade = steps }
}

// WithInvalidator registers the hook called once per affected entity type
// after a composite operation commits.
func WithInvalidator(fn func(entity string)) CoordinatorOption {
	return func(c *Coordinator) { c.invalidate = fn }
}

func WithCoordinatorLogger(log zerolog.Logger) CoordinatorOption {
	return func(c *Coordinator) { c.log = log }
}

func NewCoordinator(db *bun.DB, opts ...CoordinatorOption) *Coordinator {
	c := &Coordinator{
		db:      db,
		cascade: PatientCascade(),
		log:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Coordinator) invalidateAll(entities ...string) {
	if c.invalidate == nil {
		return
	}
	for _, entity := range entities {
		c.invalidate(entity)
	}
}

// DeletePatientCascade removes a patient and every dependent row in one
// transaction, child tables first. Any step failure rolls the whole
// transaction back and zero rows are removed.
func (c *Coordinator) DeletePatientCascade(ctx context.Context, patientID int64) (*CascadeResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	result := &CascadeResult{Deleted: make(map[string]int64, len(c.cascade))}
	err := c.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		for _, step := range c.cascade {
			n, err := step.Run(ctx, tx, patientID)
			if err != nil {
				return fault.New(fault.KindTransaction, "delete_patient_cascade", step.Entity, err)
			}
			result.Deleted[step.Entity] = n
		}
		if result.Deleted["patients"] == 0 {
			return fault.New(fault.KindNotFound, "delete_patient_cascade", "patients", nil)
		}
		return nil
	})
	if err != nil {
		c.log.Debug().Int64("patient_id", patientID).Err(err).Msg("patient cascade rolled back")
		return nil, fault.Wrap("delete_patient_cascade", "patients", err)
	}

	c.log.Debug().Int64("patient_id", patientID).Int64("rows", result.Total()).Msg("patient cascade committed")
	c.invalidateAll("patients", "appointments", "prescriptions", "prescription_items", "patient_feedback")
	return result, nil
}

// SavePrescriptionWithItems persists a prescription header and its items as a
// unit. Create inserts the header, captures the generated id, then inserts
// the items; update rewrites the header, deletes the existing items, and
// re-inserts the supplied ones. Either the header and all items persist or
// none do.
func (c *Coordinator) SavePrescriptionWithItems(ctx context.Context, p *model.Prescription, items []model.PrescriptionItem) (*SavedPrescription, error) {
	const op = "save_prescription_with_items"

	if err := p.Validate(); err != nil {
		return nil, fault.New(fault.KindValidation, op, "prescriptions", err)
	}
	for i := range items {
		if err := items[i].Validate(); err != nil {
			return nil, fault.New(fault.KindValidation, op, "prescription_items", err)
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	creating := p.ID == 0
	err := c.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		if creating {
			if _, err := tx.NewInsert().Model(p).Exec(ctx); err != nil {
				return fault.New(fault.KindTransaction, op, "prescriptions", err)
			}
		} else {
			res, err := tx.NewUpdate().Model(p).WherePK().Exec(ctx)
			if err != nil {
				return fault.New(fault.KindTransaction, op, "prescriptions", err)
			}
			affected, err := res.RowsAffected()
			if err != nil {
				return fault.New(fault.KindTransaction, op, "prescriptions", err)
			}
			if affected == 0 {
				return fault.New(fault.KindNotFound, op, "prescriptions", nil)
			}
			if _, err := tx.NewDelete().Model((*model.PrescriptionItem)(nil)).
				Where("prescription_id = ?", p.ID).Exec(ctx); err != nil {
				return fault.New(fault.KindTransaction, op, "prescription_items", err)
			}
		}

		for i := range items {
			items[i].ID = 0
			items[i].PrescriptionID = p.ID
		}
		if len(items) > 0 {
			if _, err := tx.NewInsert().Model(&items).Exec(ctx); err != nil {
				return fault.New(fault.KindTransaction, op, "prescription_items", err)
			}
		}
		return nil
	})
	if err != nil {
		c.log.Debug().Int64("prescription_id", p.ID).Bool("create", creating).Err(err).Msg("prescription save rolled back")
		return nil, fault.Wrap(op, "prescriptions", err)
	}

	c.log.Debug().Int64("prescription_id", p.ID).Bool("create", creating).Int("items", len(items)).Msg("prescription save committed")
	c.invalidateAll("prescriptions", "prescription_items")
	return &SavedPrescription{Header: *p, Items: items}, nil
}
