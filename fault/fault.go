// Package fault defines the failure taxonomy shared by the relational
// adapter, the document adapter, and the consistency coordinator. Every
// failure crossing a package boundary is a *Failure carrying the operation
// name, the entity it touched, and the originating cause, so callers never
// see raw driver errors.
package fault

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"

	"github.com/lib/pq"
	sqlite3 "github.com/mattn/go-sqlite3"
)

// Kind classifies a failure for dispatch by the presentation layer.
type Kind int

const (
	// KindUnknown covers failures the classifier could not attribute.
	KindUnknown Kind = iota
	// KindConnection means the backing store was unreachable.
	KindConnection
	// KindConstraint means the store rejected the statement (duplicate
	// email, invalid foreign key, violated check).
	KindConstraint
	// KindNotFound is used by composite operations that require an existing
	// row. Single-key lookups report absence as a nil result, not a failure.
	KindNotFound
	// KindTransaction means a step of a composite operation failed and the
	// whole transaction was rolled back.
	KindTransaction
	// KindTimeout means a round trip exceeded its bound.
	KindTimeout
	// KindValidation means the record violated a field-level invariant
	// before any statement was issued.
	KindValidation
)

func (k Kind) String() string {
	switch k {
	case KindConnection:
		return "connection"
	case KindConstraint:
		return "constraint"
	case KindNotFound:
		return "not_found"
	case KindTransaction:
		return "transaction"
	case KindTimeout:
		return "timeout"
	case KindValidation:
		return "validation"
	default:
		return "unknown"
	}
}

// Failure is the structured error type surfaced by every adapter operation.
type Failure struct {
	Kind   Kind
	Op     string
	Entity string
	Err    error
}

func (f *Failure) Error() string {
	if f.Err == nil {
		return fmt.Sprintf("%s %s: %s", f.Op, f.Entity, f.Kind)
	}
	return fmt.Sprintf("%s %s: %s: %v", f.Op, f.Entity, f.Kind, f.Err)
}

func (f *Failure) Unwrap() error { return f.Err }

// New builds a Failure with an explicit kind.
func New(kind Kind, op, entity string, err error) *Failure {
	return &Failure{Kind: kind, Op: op, Entity: entity, Err: err}
}

// Wrap classifies err and attaches operation context. A nil err returns nil,
// and an err that is already a *Failure is passed through unchanged so the
// originating failure survives composite operations.
func Wrap(op, entity string, err error) error {
	if err == nil {
		return nil
	}
	var f *Failure
	if errors.As(err, &f) {
		return f
	}
	return &Failure{Kind: Classify(err), Op: op, Entity: entity, Err: err}
}

// KindOf reports the kind of err, or KindUnknown when err is not a *Failure.
func KindOf(err error) Kind {
	var f *Failure
	if errors.As(err, &f) {
		return f.Kind
	}
	return KindUnknown
}

// Classify maps a driver-level error onto the taxonomy. Constraint detection
// understands both production Postgres (lib/pq, SQLSTATE class 23) and the
// SQLite driver used by tests.
func Classify(err error) Kind {
	if err == nil {
		return KindUnknown
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		if len(pqErr.Code) >= 2 && pqErr.Code[:2] == "23" {
			return KindConstraint
		}
		if pqErr.Code.Class() == "08" {
			return KindConnection
		}
		return KindUnknown
	}

	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		if sqliteErr.Code == sqlite3.ErrConstraint {
			return KindConstraint
		}
		if sqliteErr.Code == sqlite3.ErrCantOpen || sqliteErr.Code == sqlite3.ErrBusy {
			return KindConnection
		}
		return KindUnknown
	}

	if errors.Is(err, driver.ErrBadConn) {
		return KindConnection
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return KindTimeout
		}
		return KindConnection
	}

	return KindUnknown
}
