package catalog

import (
	"context"
	"fmt"
	"time"

	"github.com/playperu/vrquest/internal/quest"
)

// Writer persists catalog entries, replacing any existing entry with the
// same id.
type Writer interface {
	PutTour(ctx context.Context, t quest.Tour) error
	PutPOI(ctx context.Context, p quest.POI) error
}

// ImportStats counts what Import wrote.
type ImportStats struct {
	Tours  int
	Scenes int
	POIs   int
}

// Import copies every tour of src, with scenes and all POIs regardless of
// day, into w.
func Import(ctx context.Context, src quest.Catalog, w Writer) (ImportStats, error) {
	var stats ImportStats

	tours, err := src.ListTours(ctx)
	if err != nil {
		return stats, fmt.Errorf("listing tours: %w", err)
	}
	for _, t := range tours {
		if len(t.Scenes) == 0 {
			if t.Scenes, err = src.ListScenes(ctx, t.ID); err != nil {
				return stats, fmt.Errorf("listing scenes of %s: %w", t.ID, err)
			}
		}
		if err := w.PutTour(ctx, t); err != nil {
			return stats, fmt.Errorf("writing tour %s: %w", t.ID, err)
		}
		stats.Tours++
		stats.Scenes += len(t.Scenes)

		pois, err := src.ListPOIs(ctx, t.ID, time.Time{})
		if err != nil {
			return stats, fmt.Errorf("listing pois of %s: %w", t.ID, err)
		}
		for _, p := range pois {
			if err := w.PutPOI(ctx, p); err != nil {
				return stats, fmt.Errorf("writing poi %s: %w", p.ID, err)
			}
			stats.POIs++
		}
	}
	return stats, nil
}
