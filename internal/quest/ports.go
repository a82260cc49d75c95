package quest

import (
	"context"
	"time"
)

// Catalog is the read-only source of tours, scenes and POIs.
type Catalog interface {
	ListTours(ctx context.Context) ([]Tour, error)
	// Tour returns ErrNotFound for unknown ids.
	Tour(ctx context.Context, tourID string) (Tour, error)
	ListScenes(ctx context.Context, tourID string) ([]Scene, error)
	// ListPOIs returns the tour's POIs scheduled for day, ordered for
	// display. A zero day disables date scoping.
	ListPOIs(ctx context.Context, tourID string, day time.Time) ([]POI, error)
}

// ProgressStore is the durable, append-only record of progress.
type ProgressStore interface {
	// Append stores r. It returns ErrAlreadyResolved when r is terminal and
	// a terminal record already exists for (r.UserID, r.POIID), and wraps
	// ErrStoreUnavailable when the backend cannot be reached.
	Append(ctx context.Context, r Record) error
	// ListForUser returns a user's records, oldest first. An empty tourID
	// lists records across all tours.
	ListForUser(ctx context.Context, userID, tourID string) ([]Record, error)
	// ListRecords returns every record ordered by (CompletedAt, ID). An
	// empty tourID lists all tours.
	ListRecords(ctx context.Context, tourID string) ([]Record, error)
}
