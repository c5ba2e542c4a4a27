package listops

import (
	"context"
	"strconv"
	"strings"
)

// QueryKind is what a raw query token was classified as.
type QueryKind int

const (
	// QueryID: the token is all digits and resolves by exact key lookup.
	QueryID QueryKind = iota
	// QueryEmail: the token contains an @ and resolves by exact email lookup.
	QueryEmail
	// QueryName: fallback, case-insensitive substring match on the
	// composite name.
	QueryName
)

// ClassifyQuery decides how a raw token should be looked up. Order matters:
// the digit check precedes the @ check, which precedes the name fallback.
func ClassifyQuery(query string) QueryKind {
	if query != "" && isDigits(query) {
		return QueryID
	}
	if strings.ContainsRune(query, '@') {
		return QueryEmail
	}
	return QueryName
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Directory is the lookup surface the dispatcher drives. Point lookups
// report absence as (nil, nil).
type Directory[T any] interface {
	FindByID(ctx context.Context, id int64) (*T, error)
	FindByEmail(ctx context.Context, email string) (*T, error)
	SearchByName(ctx context.Context, substring string) ([]T, error)
}

// Find classifies query and routes it to the matching Directory lookup. An
// empty result set is a valid, non-error outcome for every route.
func Find[T any](ctx context.Context, dir Directory[T], query string) ([]T, error) {
	switch ClassifyQuery(query) {
	case QueryID:
		id, err := strconv.ParseInt(query, 10, 64)
		if err != nil {
			// Digit runs longer than an int64 cannot match any key.
			return nil, nil
		}
		return one(dir.FindByID(ctx, id))
	case QueryEmail:
		return one(dir.FindByEmail(ctx, query))
	default:
		return dir.SearchByName(ctx, query)
	}
}

func one[T any](rec *T, err error) ([]T, error) {
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, nil
	}
	return []T{*rec}, nil
}
