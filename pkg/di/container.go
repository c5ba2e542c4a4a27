// Package di wires the clinic core: entity stores over one relational
// connection pool, the cache layer on a shared cache service, the
// consistency coordinator with its invalidation hooks, the optional document
// adapter, and the statistics aggregator.
package di

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/uptrace/bun"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/hospitalworks/go-clinic-core/cache"
	"github.com/hospitalworks/go-clinic-core/doclog"
	"github.com/hospitalworks/go-clinic-core/entitycache"
	"github.com/hospitalworks/go-clinic-core/listops"
	"github.com/hospitalworks/go-clinic-core/model"
	"github.com/hospitalworks/go-clinic-core/stats"
	"github.com/hospitalworks/go-clinic-core/store"
)

// AppointmentDateIndex is the derived-index cache bucketing appointments by
// calendar day.
const AppointmentDateIndex = "date"

// Container holds the constructed component graph. Stores and caches are
// singletons; callers read through the Cached* fields and write through them
// too, so invalidation stays uniform.
type Container struct {
	log          zerolog.Logger
	cacheService cache.CacheService
	keys         cache.KeySerializer

	Patients          *store.PatientStore
	Doctors           *store.DoctorStore
	Departments       *store.SQLStore[model.Department]
	Appointments      *store.AppointmentStore
	Prescriptions     *store.SQLStore[model.Prescription]
	PrescriptionItems *store.PrescriptionItemStore
	Inventory         *store.InventoryStore
	Feedback          *store.SQLStore[model.PatientFeedback]

	CachedPatients      *entitycache.CachedStore[model.Patient]
	CachedDoctors       *entitycache.CachedStore[model.Doctor]
	CachedDepartments   *entitycache.CachedStore[model.Department]
	CachedAppointments  *entitycache.CachedStore[model.Appointment]
	CachedPrescriptions *entitycache.CachedStore[model.Prescription]
	CachedInventory     *entitycache.CachedStore[model.MedicalInventory]
	CachedFeedback      *entitycache.CachedStore[model.PatientFeedback]

	Coordinator *store.Coordinator
	Stats       *stats.Aggregator

	// Logs is nil when no document store was attached.
	Logs *doclog.Store
}

type Option func(*settings)

type settings struct {
	log               zerolog.Logger
	mongo             *mongo.Database
	lowStockThreshold int
	timeout           time.Duration
}

func WithLogger(log zerolog.Logger) Option {
	return func(s *settings) { s.log = log }
}

// WithMedicalLogs attaches the document store for clinical logs.
func WithMedicalLogs(db *mongo.Database) Option {
	return func(s *settings) { s.mongo = db }
}

func WithLowStockThreshold(threshold int) Option {
	return func(s *settings) { s.lowStockThreshold = threshold }
}

// WithRoundTripTimeout overrides the adapter round-trip bound on every store.
func WithRoundTripTimeout(d time.Duration) Option {
	return func(s *settings) { s.timeout = d }
}

// NewContainer builds the full component graph over an already-open
// relational store.
func NewContainer(db *bun.DB, cacheCfg cache.Config, opts ...Option) (*Container, error) {
	set := &settings{
		log:               zerolog.Nop(),
		lowStockThreshold: stats.DefaultLowStockThreshold,
		timeout:           store.DefaultTimeout,
	}
	for _, opt := range opts {
		opt(set)
	}

	cacheService, err := cache.NewCacheService(cacheCfg)
	if err != nil {
		return nil, err
	}

	c := &Container{
		log:          set.log,
		cacheService: cacheService,
		keys:         cache.NewDefaultKeySerializer(),
	}

	c.Patients = store.NewPatientStore(db)
	c.Doctors = store.NewDoctorStore(db)
	c.Departments = store.NewDepartmentStore(db)
	c.Appointments = store.NewAppointmentStore(db)
	c.Prescriptions = store.NewPrescriptionStore(db)
	c.PrescriptionItems = store.NewPrescriptionItemStore(db)
	c.Inventory = store.NewInventoryStore(db)
	c.Feedback = store.NewFeedbackStore(db)

	c.Patients.WithTimeout(set.timeout)
	c.Doctors.WithTimeout(set.timeout)
	c.Departments.WithTimeout(set.timeout)
	c.Appointments.WithTimeout(set.timeout)
	c.Prescriptions.WithTimeout(set.timeout)
	c.PrescriptionItems.WithTimeout(set.timeout)
	c.Inventory.WithTimeout(set.timeout)
	c.Feedback.WithTimeout(set.timeout)

	c.CachedPatients = entitycache.New("patients", c.Patients, cacheService, c.keys)
	c.CachedDoctors = entitycache.New("doctors", c.Doctors, cacheService, c.keys)
	c.CachedDepartments = entitycache.New("departments", c.Departments, cacheService, c.keys)
	c.CachedAppointments = entitycache.New("appointments", c.Appointments, cacheService, c.keys)
	c.CachedPrescriptions = entitycache.New("prescriptions", c.Prescriptions, cacheService, c.keys)
	c.CachedInventory = entitycache.New("medical_inventory", c.Inventory, cacheService, c.keys)
	c.CachedFeedback = entitycache.New("patient_feedback", c.Feedback, cacheService, c.keys)

	c.CachedAppointments.RegisterIndex(AppointmentDateIndex, func(a *model.Appointment) string {
		return a.Date.Format("2006-01-02")
	})

	invalidators := map[string]func(context.Context){
		"patients":           c.CachedPatients.Invalidate,
		"doctors":            c.CachedDoctors.Invalidate,
		"departments":        c.CachedDepartments.Invalidate,
		"appointments":       c.CachedAppointments.Invalidate,
		"prescriptions":      c.CachedPrescriptions.Invalidate,
		"prescription_items": c.CachedPrescriptions.Invalidate,
		"medical_inventory":  c.CachedInventory.Invalidate,
		"patient_feedback":   c.CachedFeedback.Invalidate,
	}
	c.Coordinator = store.NewCoordinator(db,
		store.WithCoordinatorLogger(set.log),
		store.WithInvalidator(func(entity string) {
			if fn, ok := invalidators[entity]; ok {
				fn(context.Background())
			}
		}),
	)

	c.Stats = stats.NewAggregator(stats.Sources{
		Patients:       c.Patients,
		Doctors:        c.Doctors,
		Departments:    c.Departments,
		Appointments:   c.Appointments,
		Prescriptions:  c.Prescriptions,
		Inventory:      c.Inventory,
		Feedback:       c.Feedback,
		CachedPatients: c.CachedPatients,
	}, set.lowStockThreshold)

	if set.mongo != nil {
		c.Logs = doclog.NewStore(set.mongo).WithTimeout(set.timeout)
	}

	return c, nil
}

// CacheService exposes the shared cache backend.
func (c *Container) CacheService() cache.CacheService { return c.cacheService }

// KeySerializer exposes the shared key serializer.
func (c *Container) KeySerializer() cache.KeySerializer { return c.keys }

// AppointmentsOn serves the date-bucketed derived-index cache.
func (c *Container) AppointmentsOn(ctx context.Context, day time.Time) ([]model.Appointment, error) {
	return c.CachedAppointments.ByIndex(ctx, AppointmentDateIndex, day.Format("2006-01-02"))
}

// patientDirectory adapts the cached patient store to the search
// dispatcher's lookup surface; email lookups are cached under the same
// namespace as every other patient read.
type patientDirectory struct {
	cached *entitycache.CachedStore[model.Patient]
	base   *store.PatientStore
}

func (d *patientDirectory) FindByID(ctx context.Context, id int64) (*model.Patient, error) {
	return d.cached.GetByID(ctx, id)
}

func (d *patientDirectory) FindByEmail(ctx context.Context, email string) (*model.Patient, error) {
	return entitycache.Read(ctx, d.cached, "GetByEmail", email, func(ctx context.Context) (*model.Patient, error) {
		return d.base.GetByEmail(ctx, email)
	})
}

func (d *patientDirectory) SearchByName(ctx context.Context, substring string) ([]model.Patient, error) {
	return d.cached.Search(ctx, substring)
}

// PatientDirectory returns the lookup surface listops.Find dispatches over.
func (c *Container) PatientDirectory() listops.Directory[model.Patient] {
	return &patientDirectory{cached: c.CachedPatients, base: c.Patients}
}

type doctorDirectory struct {
	cached *entitycache.CachedStore[model.Doctor]
	base   *store.DoctorStore
}

func (d *doctorDirectory) FindByID(ctx context.Context, id int64) (*model.Doctor, error) {
	return d.cached.GetByID(ctx, id)
}

func (d *doctorDirectory) FindByEmail(ctx context.Context, email string) (*model.Doctor, error) {
	return entitycache.Read(ctx, d.cached, "GetByEmail", email, func(ctx context.Context) (*model.Doctor, error) {
		return d.base.GetByEmail(ctx, email)
	})
}

func (d *doctorDirectory) SearchByName(ctx context.Context, substring string) ([]model.Doctor, error) {
	return d.cached.Search(ctx, substring)
}

func (c *Container) DoctorDirectory() listops.Directory[model.Doctor] {
	return &doctorDirectory{cached: c.CachedDoctors, base: c.Doctors}
}
