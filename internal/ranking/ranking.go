// Package ranking serves leaderboards folded from the progress store. Boards
// are cached for a short TTL; GeneratedAt always reports when the fold ran,
// so callers can show how stale a cached board is.
package ranking

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/playperu/vrquest/internal/quest"
)

type Entry struct {
	Rank        int       `json:"rank"`
	UserID      string    `json:"userId"`
	TotalPoints int       `json:"totalPoints"`
	ReachedAt   time.Time `json:"reachedAt"`
}

// Board is one computed leaderboard. An empty TourID is the global board.
type Board struct {
	TourID      string    `json:"tourId,omitempty"`
	GeneratedAt time.Time `json:"generatedAt"`
	Entries     []Entry   `json:"entries"`
}

// Cache stores computed boards. Get reports false on a miss.
type Cache interface {
	Get(ctx context.Context, key string) (Board, bool, error)
	Set(ctx context.Context, key string, b Board, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

type Service struct {
	records quest.ProgressStore
	cache   Cache
	ttl     time.Duration
	now     func() time.Time
	logger  *slog.Logger
}

type Option func(*Service)

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService builds a leaderboard service. A zero ttl or nil cache disables
// caching and every call folds the store.
func NewService(store quest.ProgressStore, cache Cache, ttl time.Duration, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		records: store,
		cache:   cache,
		ttl:     ttl,
		now:     time.Now,
		logger:  logger.With("component", "ranking"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func cacheKey(tourID string) string {
	if tourID == "" {
		return "vrquest:leaderboard:all"
	}
	return "vrquest:leaderboard:tour:" + tourID
}

func (s *Service) caching() bool { return s.cache != nil && s.ttl > 0 }

// Board returns the leaderboard for tourID, or the global one when empty.
// Cache failures are logged and fall through to a fresh fold.
func (s *Service) Board(ctx context.Context, tourID string) (Board, error) {
	key := cacheKey(tourID)
	if s.caching() {
		b, ok, err := s.cache.Get(ctx, key)
		if err != nil {
			s.logger.Warn("leaderboard cache read failed", "key", key, "error", err)
		} else if ok {
			return b, nil
		}
	}

	b, err := s.compute(ctx, tourID)
	if err != nil {
		return Board{}, err
	}

	if s.caching() {
		if err := s.cache.Set(ctx, key, b, s.ttl); err != nil {
			s.logger.Warn("leaderboard cache write failed", "key", key, "error", err)
		}
	}
	return b, nil
}

// Invalidate drops the cached boards a new record for tourID affects.
func (s *Service) Invalidate(ctx context.Context, tourID string) {
	if !s.caching() {
		return
	}
	keys := []string{cacheKey("")}
	if tourID != "" {
		keys = append(keys, cacheKey(tourID))
	}
	if err := s.cache.Delete(ctx, keys...); err != nil {
		s.logger.Warn("leaderboard cache invalidation failed", "tour_id", tourID, "error", err)
	}
}

func (s *Service) compute(ctx context.Context, tourID string) (Board, error) {
	records, err := s.records.ListRecords(ctx, tourID)
	if err != nil {
		return Board{}, fmt.Errorf("listing records: %w", err)
	}

	standings := quest.Rank(records)
	b := Board{
		TourID:      tourID,
		GeneratedAt: s.now().UTC(),
		Entries:     make([]Entry, 0, len(standings)),
	}
	for _, st := range standings {
		b.Entries = append(b.Entries, Entry{
			Rank:        st.Rank,
			UserID:      st.UserID,
			TotalPoints: st.Total,
			ReachedAt:   st.ReachedAt.UTC(),
		})
	}
	return b, nil
}
