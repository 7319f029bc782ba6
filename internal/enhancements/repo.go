package enhancements

import (
	"context"
	"time"
)

// Repo defines persistence operations for enhancement records. Records are never deleted.
type Repo interface {
	Create(ctx context.Context, rec Record) error
	// Transition moves a record from one status to the next. It fails with
	// ErrInvalidTransition when the step is illegal or the stored status is not from.
	// A non-nil result replaces the output fields.
	Transition(ctx context.Context, id string, from, to Status, result *Result, processedAt *time.Time) (Record, error)
	GetByID(ctx context.Context, id string) (Record, error)
	ListByOwner(ctx context.Context, ownerID string, limit, offset int) ([]Record, error)
	ListBySource(ctx context.Context, sourceDocumentID string) ([]Record, error)
}

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

func normalizePage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
