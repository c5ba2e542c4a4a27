// Package doclog is the document adapter for free-form clinical logs. It
// writes to a single schema-less collection with no transactions and no
// joins; the log lifecycle is append-only, independent of the relational
// records.
package doclog

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/hospitalworks/go-clinic-core/fault"
	"github.com/hospitalworks/go-clinic-core/model"
	"github.com/hospitalworks/go-clinic-core/store"
)

// Collection is the single document collection the adapter owns.
const Collection = "medical_logs"

// Connect dials the document store and returns the handle for the clinical
// log database.
func Connect(ctx context.Context, uri, database string, log zerolog.Logger) (*mongo.Database, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fault.New(fault.KindConnection, "connect", Collection, err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fault.New(fault.KindConnection, "ping", Collection, err)
	}
	log.Debug().Str("database", database).Msg("document store connected")
	return client.Database(database), nil
}

// Store appends and queries medical log documents. Round trips are bounded
// and metered like the relational adapter's.
type Store struct {
	coll    *mongo.Collection
	timeout time.Duration
	meter   *store.Meter
}

func NewStore(db *mongo.Database) *Store {
	return &Store{
		coll:    db.Collection(Collection),
		timeout: store.DefaultTimeout,
		meter:   store.NewMeter(),
	}
}

// WithTimeout overrides the per-round-trip bound.
func (s *Store) WithTimeout(d time.Duration) *Store {
	s.timeout = d
	return s
}

// Meter exposes the latency meter for the statistics aggregator.
func (s *Store) Meter() *store.Meter { return s.meter }

func (s *Store) round(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	err := fn(ctx)
	s.meter.Observe(time.Since(start))

	if err != nil && ctx.Err() != nil {
		return fault.New(fault.KindTimeout, op, Collection, err)
	}
	return fault.Wrap(op, Collection, err)
}

// Append validates and inserts one log entry, stamping the write time when
// the caller left it zero. Returns the generated document id.
func (s *Store) Append(ctx context.Context, entry *model.MedicalLog) (primitive.ObjectID, error) {
	if err := entry.Validate(); err != nil {
		return primitive.NilObjectID, fault.New(fault.KindValidation, "append", Collection, err)
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}

	var id primitive.ObjectID
	err := s.round(ctx, "append", func(ctx context.Context) error {
		res, err := s.coll.InsertOne(ctx, entry)
		if err != nil {
			return err
		}
		id, _ = res.InsertedID.(primitive.ObjectID)
		return nil
	})
	if err != nil {
		return primitive.NilObjectID, err
	}
	entry.ID = id
	return id, nil
}

// ListByPatient returns a patient's logs, newest first. No logs is an empty
// slice, not a failure.
func (s *Store) ListByPatient(ctx context.Context, patientID int64) ([]model.MedicalLog, error) {
	return s.find(ctx, "list_by_patient", bson.M{"patient_id": patientID})
}

// ListBySeverity returns all logs at one severity, newest first.
func (s *Store) ListBySeverity(ctx context.Context, severity string) ([]model.MedicalLog, error) {
	return s.find(ctx, "list_by_severity", bson.M{"severity": severity})
}

func (s *Store) find(ctx context.Context, op string, filter bson.M) ([]model.MedicalLog, error) {
	var logs []model.MedicalLog
	err := s.round(ctx, op, func(ctx context.Context) error {
		cur, err := s.coll.Find(ctx, filter,
			options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}}))
		if err != nil {
			return err
		}
		return cur.All(ctx, &logs)
	})
	if err != nil {
		return nil, err
	}
	return logs, nil
}
