package engine

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/playperu/vrquest/internal/quest"
)

// session is the in-memory state of one user browsing one tour. Every field
// except lastUsed is guarded by mu; engine operations on a session run one at
// a time.
type session struct {
	mu sync.Mutex

	userID  string
	tour    quest.Tour
	pois    map[string]quest.POI
	history []quest.Record
	prog    quest.Progression
	opened  quest.Set
	// day is the UTC day the POI set was loaded for; zero without daily
	// content.
	day time.Time
	// pending holds validated terminal records whose append failed.
	pending map[string]pendingRecord

	lastUsed atomic.Int64
}

type pendingRecord struct {
	rec  quest.Record
	kind quest.Kind
}

func indexPOIs(pois []quest.POI) map[string]quest.POI {
	byID := make(map[string]quest.POI, len(pois))
	for _, p := range pois {
		byID[p.ID] = p
	}
	return byID
}

func (s *session) apply(r quest.Record) {
	s.history = append(s.history, r)
	if r.Outcome.Terminal() {
		s.prog = s.prog.Resolve(r.POIID)
	}
}

// rebase swaps in a new tour and POI set, keeping the visited scenes and
// the current scene.
func (s *session) rebase(tour quest.Tour, pois []quest.POI) {
	current := s.prog.CurrentScene()
	visited := s.prog.Visited().Sorted()

	s.tour = tour
	s.pois = indexPOIs(pois)
	s.prog = quest.Replay(tour, pois, s.history)
	for _, id := range visited {
		s.prog = s.prog.EnterScene(id)
	}
	if current != "" {
		s.prog = s.prog.EnterScene(current)
	}
}

// replaceHistory reloads records from the store, e.g. after another replica
// resolved a POI concurrently.
func (s *session) replaceHistory(records []quest.Record) {
	s.history = records
	pois := make([]quest.POI, 0, len(s.pois))
	for _, p := range s.pois {
		pois = append(pois, p)
	}
	s.rebase(s.tour, pois)
}

type sessionKey struct {
	userID string
	tourID string
}

type loader func(ctx context.Context, userID, tourID string) (*session, error)

// registry owns live sessions keyed by (user, tour). Sessions unused for
// longer than idle are handed back by Sweep; idle <= 0 keeps them forever.
type registry struct {
	mu       sync.RWMutex
	sessions map[sessionKey]*session
	load     loader
	now      func() time.Time
	idle     time.Duration

	lastSweep atomic.Int64
}

func newRegistry(load loader, now func() time.Time, idle time.Duration) *registry {
	r := &registry{
		sessions: make(map[sessionKey]*session),
		load:     load,
		now:      now,
		idle:     idle,
	}
	r.lastSweep.Store(now().UnixNano())
	return r
}

// Get returns the live session, loading it from the catalog and store on
// first use.
func (r *registry) Get(ctx context.Context, userID, tourID string) (*session, error) {
	key := sessionKey{userID: userID, tourID: tourID}

	r.mu.RLock()
	s, ok := r.sessions[key]
	r.mu.RUnlock()
	if ok {
		s.lastUsed.Store(r.now().UnixNano())
		return s, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Double-check after acquiring write lock.
	if s, ok := r.sessions[key]; ok {
		s.lastUsed.Store(r.now().UnixNano())
		return s, nil
	}

	s, err := r.load(ctx, userID, tourID)
	if err != nil {
		return nil, fmt.Errorf("loading session for tour %q: %w", tourID, err)
	}
	s.lastUsed.Store(r.now().UnixNano())
	r.sessions[key] = s
	return s, nil
}

// Peek returns the live session without loading one.
func (r *registry) Peek(userID, tourID string) (*session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[sessionKey{userID: userID, tourID: tourID}]
	return s, ok
}

// Drop discards a session and reports whether one existed.
func (r *registry) Drop(userID, tourID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := sessionKey{userID: userID, tourID: tourID}
	_, ok := r.sessions[key]
	delete(r.sessions, key)
	return ok
}

// Sweep removes and returns the sessions idle for longer than r.idle. It
// scans at most once per idle period.
func (r *registry) Sweep(now time.Time) []*session {
	if r.idle <= 0 {
		return nil
	}
	last := r.lastSweep.Load()
	if now.Sub(time.Unix(0, last)) < r.idle || !r.lastSweep.CompareAndSwap(last, now.UnixNano()) {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	var expired []*session
	for key, s := range r.sessions {
		if now.Sub(time.Unix(0, s.lastUsed.Load())) > r.idle {
			delete(r.sessions, key)
			expired = append(expired, s)
		}
	}
	return expired
}

func (r *registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
