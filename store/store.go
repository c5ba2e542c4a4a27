package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/uptrace/bun"

	"github.com/hospitalworks/go-clinic-core/fault"
)

// DefaultTimeout bounds every adapter round trip. The backing store has no
// statement timeout of its own, so the adapter enforces one and reports the
// overrun as a distinct failure kind.
const DefaultTimeout = 5 * time.Second

// EntityStore is the per-entity contract of the relational adapter. Every
// call is a single round trip; GetByID reports absence as (nil, nil), never
// as a failure. The adapter never retries.
type EntityStore[T any] interface {
	Add(ctx context.Context, rec *T) (int64, error)
	GetByID(ctx context.Context, id int64) (*T, error)
	GetAll(ctx context.Context) ([]T, error)
	Update(ctx context.Context, rec *T) error
	Delete(ctx context.Context, id int64) error
	Search(ctx context.Context, query string) ([]T, error)
	CountAll(ctx context.Context) (int, error)
}

type validator interface {
	Validate() error
}

// SQLStore is the bun-backed EntityStore implementation shared by all entity
// types. The zero id column is the generated key; searchExpr is the SQL
// expression substring search matches against.
type SQLStore[T any] struct {
	db         *bun.DB
	entity     string
	searchExpr string
	timeout    time.Duration
	meter      *Meter
	keyOf      func(*T) int64
}

// NewSQLStore builds a store for one entity type. entity doubles as the
// failure context and the cache key namespace; keyOf extracts the generated
// primary key after an insert.
func NewSQLStore[T any](db *bun.DB, entity, searchExpr string, keyOf func(*T) int64) *SQLStore[T] {
	return &SQLStore[T]{
		db:         db,
		entity:     entity,
		searchExpr: searchExpr,
		timeout:    DefaultTimeout,
		meter:      NewMeter(),
		keyOf:      keyOf,
	}
}

// WithTimeout overrides the per-round-trip bound.
func (s *SQLStore[T]) WithTimeout(d time.Duration) *SQLStore[T] {
	s.timeout = d
	return s
}

// Entity returns the entity name this store serves.
func (s *SQLStore[T]) Entity() string { return s.entity }

// Meter exposes the latency meter for the statistics aggregator.
func (s *SQLStore[T]) Meter() *Meter { return s.meter }

// AverageLatency reports the mean round-trip time of all calls so far.
func (s *SQLStore[T]) AverageLatency() time.Duration { return s.meter.AverageLatency() }

// round runs one timed, bounded round trip and classifies any failure.
func (s *SQLStore[T]) round(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	err := fn(ctx)
	s.meter.Observe(time.Since(start))

	if err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fault.New(fault.KindTimeout, op, s.entity, err)
	}
	return fault.Wrap(op, s.entity, err)
}

// Add inserts rec and returns the generated key.
func (s *SQLStore[T]) Add(ctx context.Context, rec *T) (int64, error) {
	if v, ok := any(rec).(validator); ok {
		if err := v.Validate(); err != nil {
			return 0, fault.New(fault.KindValidation, "add", s.entity, err)
		}
	}
	err := s.round(ctx, "add", func(ctx context.Context) error {
		_, err := s.db.NewInsert().Model(rec).Exec(ctx)
		return err
	})
	if err != nil {
		return 0, err
	}
	return s.keyOf(rec), nil
}

// GetByID fetches one record by primary key; a missing row is (nil, nil).
func (s *SQLStore[T]) GetByID(ctx context.Context, id int64) (*T, error) {
	return s.getByColumn(ctx, "get_by_id", "id", id)
}

func (s *SQLStore[T]) getByColumn(ctx context.Context, op, column string, value any) (*T, error) {
	rec := new(T)
	err := s.round(ctx, op, func(ctx context.Context) error {
		return s.db.NewSelect().Model(rec).Where("? = ?", bun.Ident(column), value).Limit(1).Scan(ctx)
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return rec, nil
}

// GetAll returns the full collection ordered by key.
func (s *SQLStore[T]) GetAll(ctx context.Context) ([]T, error) {
	var recs []T
	err := s.round(ctx, "get_all", func(ctx context.Context) error {
		return s.db.NewSelect().Model(&recs).OrderExpr("id ASC").Scan(ctx)
	})
	if err != nil {
		return nil, err
	}
	return recs, nil
}

// Update rewrites the row matching rec's primary key. Updating a row that no
// longer exists is a NotFound failure, not a silent no-op.
func (s *SQLStore[T]) Update(ctx context.Context, rec *T) error {
	if v, ok := any(rec).(validator); ok {
		if err := v.Validate(); err != nil {
			return fault.New(fault.KindValidation, "update", s.entity, err)
		}
	}
	var affected int64
	err := s.round(ctx, "update", func(ctx context.Context) error {
		res, err := s.db.NewUpdate().Model(rec).WherePK().Exec(ctx)
		if err != nil {
			return err
		}
		affected, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return err
	}
	if affected == 0 {
		return fault.New(fault.KindNotFound, "update", s.entity, nil)
	}
	return nil
}

// Delete removes the row with the given key. Deleting an absent row is a
// no-op so deletes stay idempotent.
func (s *SQLStore[T]) Delete(ctx context.Context, id int64) error {
	return s.round(ctx, "delete", func(ctx context.Context) error {
		_, err := s.db.NewDelete().Model((*T)(nil)).Where("id = ?", id).Exec(ctx)
		return err
	})
}

// Search performs a case-insensitive substring match against the store's
// name-like expression. No match is an empty slice, not a failure.
func (s *SQLStore[T]) Search(ctx context.Context, query string) ([]T, error) {
	pattern := "%" + strings.ToLower(query) + "%"
	var recs []T
	err := s.round(ctx, "search", func(ctx context.Context) error {
		return s.db.NewSelect().Model(&recs).
			Where("LOWER("+s.searchExpr+") LIKE ?", pattern).
			OrderExpr("id ASC").
			Scan(ctx)
	})
	if err != nil {
		return nil, err
	}
	return recs, nil
}

// CountAll reports the number of rows in the collection.
func (s *SQLStore[T]) CountAll(ctx context.Context) (int, error) {
	var count int
	err := s.round(ctx, "count_all", func(ctx context.Context) error {
		var err error
		count, err = s.db.NewSelect().Model((*T)(nil)).Count(ctx)
		return err
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}
