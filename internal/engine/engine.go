// Package engine runs tour sessions: it tracks scene visits, resolves POI
// interactions, persists progress exactly once per (user, POI) and serves
// summaries and leaderboards.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/playperu/vrquest/internal/events"
	"github.com/playperu/vrquest/internal/quest"
	"github.com/playperu/vrquest/internal/ranking"
)

// Publisher receives every stored progress record.
type Publisher interface {
	Publish(ctx context.Context, ev events.ProgressEvent) error
}

// Leaderboards computes boards and is told when new points land.
type Leaderboards interface {
	Board(ctx context.Context, tourID string) (ranking.Board, error)
	Invalidate(ctx context.Context, tourID string)
}

type Engine struct {
	catalog   quest.Catalog
	store     quest.ProgressStore
	boards    Leaderboards
	publisher Publisher
	logger    *slog.Logger
	tracer    trace.Tracer
	now       func() time.Time
	newID     func() string
	daily     bool
	idle      time.Duration
	sessions  *registry
}

type Option func(*Engine)

func WithPublisher(p Publisher) Option {
	return func(e *Engine) { e.publisher = p }
}

func WithLeaderboards(b Leaderboards) Option {
	return func(e *Engine) { e.boards = b }
}

func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func WithIDs(newID func() string) Option {
	return func(e *Engine) { e.newID = newID }
}

// WithDailyContent scopes sessions to the POIs scheduled for the current
// UTC day. A session used on a later day switches to that day's POIs.
func WithDailyContent(on bool) Option {
	return func(e *Engine) { e.daily = on }
}

// WithSessionIdle expires sessions unused for longer than d. Their pending
// resolutions get one last append attempt. Zero keeps sessions until closed.
func WithSessionIdle(d time.Duration) Option {
	return func(e *Engine) { e.idle = d }
}

func New(catalog quest.Catalog, store quest.ProgressStore, logger *slog.Logger, opts ...Option) *Engine {
	e := &Engine{
		catalog:   catalog,
		store:     store,
		publisher: nopPublisher{},
		logger:    logger.With("component", "engine"),
		tracer:    otel.Tracer("github.com/playperu/vrquest/internal/engine"),
		now:       time.Now,
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.boards == nil {
		e.boards = ranking.NewService(store, nil, 0, logger)
	}
	e.sessions = newRegistry(e.loadSession, e.now, e.idle)
	return e
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, events.ProgressEvent) error { return nil }

// Status is how a submission ended from the caller's point of view.
type Status string

const (
	StatusResolved  Status = "resolved"
	StatusFailed    Status = "failed"
	StatusDuplicate Status = "duplicate"
	// StatusPendingPersist means the interaction was valid but the record
	// could not be stored. RetryPending stores it without re-validating.
	StatusPendingPersist Status = "pending_persist"
)

type Result struct {
	Status      Status
	Outcome     quest.Outcome
	Points      int
	Explanation string
	Record      quest.Record
	Persisted   bool
	Completion  float64
}

type POIView struct {
	POI      quest.POI
	State    quest.State
	Prior    *quest.Record
	Attempts int
	Pending  bool
}

type Summary struct {
	UserID        string
	TourID        string
	CurrentScene  string
	VisitedScenes []string
	ResolvedPOIs  []string
	Completion    float64
	TourPoints    int
	TotalPoints   int
	ByKind        map[quest.Kind]quest.KindProgress
	PendingPOIs   []string
}

func authorize(actor quest.Actor) error {
	if !actor.Authenticated() {
		return quest.ErrUnauthorized
	}
	return nil
}

func (e *Engine) startSpan(ctx context.Context, op string, actor quest.Actor, tourID string) (context.Context, trace.Span) {
	return e.tracer.Start(ctx, "engine."+op, trace.WithAttributes(
		attribute.String("vrquest.user_id", actor.UserID),
		attribute.String("vrquest.tour_id", tourID),
	))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func (e *Engine) loadSession(ctx context.Context, userID, tourID string) (*session, error) {
	day := e.today()
	tour, pois, err := e.tourOn(ctx, tourID, day)
	if err != nil {
		return nil, err
	}

	history, err := e.store.ListForUser(ctx, userID, tourID)
	if err != nil {
		return nil, fmt.Errorf("listing progress: %w", err)
	}

	return &session{
		userID:  userID,
		tour:    tour,
		pois:    indexPOIs(pois),
		history: history,
		prog:    quest.Replay(tour, pois, history),
		day:     day,
		pending: make(map[string]pendingRecord),
	}, nil
}

// acquire returns the actor's session locked, loading it on first use. The
// caller unlocks s.mu.
func (e *Engine) acquire(ctx context.Context, userID, tourID string) (*session, error) {
	for _, old := range e.sessions.Sweep(e.now()) {
		e.flush(ctx, old)
	}
	s, err := e.sessions.Get(ctx, userID, tourID)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	if err := e.refresh(ctx, s); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	return s, nil
}

// refresh moves a daily session onto today's POIs. Must be called with s.mu
// held.
func (e *Engine) refresh(ctx context.Context, s *session) error {
	day := e.today()
	if !e.daily || s.day.Equal(day) {
		return nil
	}
	tour, pois, err := e.tourOn(ctx, s.tour.ID, day)
	if err != nil {
		return err
	}
	s.rebase(tour, pois)
	s.day = day
	e.logger.Info("session moved to new day",
		"user_id", s.userID, "tour_id", tour.ID, "day", day.Format(time.DateOnly), "pois", len(pois))
	return nil
}

// flush makes one append attempt for each pending resolution of s. Records
// that still fail are logged in full and dropped.
func (e *Engine) flush(ctx context.Context, s *session) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for poiID, pr := range s.pending {
		log := e.logger.With("user_id", pr.rec.UserID, "tour_id", pr.rec.TourID, "poi_id", poiID, "record_id", pr.rec.ID)
		err := e.store.Append(ctx, pr.rec)
		switch {
		case err == nil:
			s.apply(pr.rec)
			e.stored(ctx, log, pr.rec, pr.kind)
		case errors.Is(err, quest.ErrAlreadyResolved):
		default:
			log.Error("dropping unpersisted resolution", "points", pr.rec.Points, "error", err)
		}
		delete(s.pending, poiID)
	}
}

// stored runs the follow-ups of a successful append.
func (e *Engine) stored(ctx context.Context, log *slog.Logger, rec quest.Record, kind quest.Kind) {
	if rec.Outcome.Terminal() {
		e.boards.Invalidate(ctx, rec.TourID)
	}
	if err := e.publisher.Publish(ctx, events.FromRecord(rec, kind)); err != nil {
		log.Warn("publishing progress event failed", "error", err)
	}
}

// OpenSession starts or resumes the actor's session on a tour.
func (e *Engine) OpenSession(ctx context.Context, actor quest.Actor, tourID string) (sum Summary, err error) {
	ctx, span := e.startSpan(ctx, "OpenSession", actor, tourID)
	defer func() { endSpan(span, err) }()

	if err := authorize(actor); err != nil {
		return Summary{}, err
	}
	s, err := e.acquire(ctx, actor.UserID, tourID)
	if err != nil {
		return Summary{}, err
	}
	defer s.mu.Unlock()
	return e.summarize(ctx, s)
}

// CloseSession discards the actor's session. Pending resolutions get one
// last append attempt; any that still fail are logged with the full record.
func (e *Engine) CloseSession(ctx context.Context, actor quest.Actor, tourID string) (err error) {
	ctx, span := e.startSpan(ctx, "CloseSession", actor, tourID)
	defer func() { endSpan(span, err) }()

	if err := authorize(actor); err != nil {
		return err
	}
	s, ok := e.sessions.Peek(actor.UserID, tourID)
	if !ok {
		return nil
	}

	e.flush(ctx, s)
	e.sessions.Drop(actor.UserID, tourID)
	return nil
}

// EnterScene marks a scene visited and makes it current.
func (e *Engine) EnterScene(ctx context.Context, actor quest.Actor, tourID, sceneID string) (sum Summary, err error) {
	ctx, span := e.startSpan(ctx, "EnterScene", actor, tourID)
	defer func() { endSpan(span, err) }()

	if err := authorize(actor); err != nil {
		return Summary{}, err
	}
	s, err := e.acquire(ctx, actor.UserID, tourID)
	if err != nil {
		return Summary{}, err
	}
	defer s.mu.Unlock()

	if _, ok := s.tour.Scene(sceneID); !ok {
		return Summary{}, fmt.Errorf("%w: %q is not a scene of tour %q", quest.ErrInvalidScene, sceneID, tourID)
	}
	s.prog = s.prog.EnterScene(sceneID)
	return e.summarize(ctx, s)
}

// OpenPOI returns a POI's content with the actor's state for it. Opening an
// unresolved POI moves it to in progress.
func (e *Engine) OpenPOI(ctx context.Context, actor quest.Actor, tourID, poiID string) (view POIView, err error) {
	ctx, span := e.startSpan(ctx, "OpenPOI", actor, tourID)
	defer func() { endSpan(span, err) }()

	if err := authorize(actor); err != nil {
		return POIView{}, err
	}
	s, err := e.acquire(ctx, actor.UserID, tourID)
	if err != nil {
		return POIView{}, err
	}
	defer s.mu.Unlock()

	p, ok := s.pois[poiID]
	if !ok {
		return POIView{}, fmt.Errorf("%w: %q is not an active poi of tour %q", quest.ErrInvalidPOI, poiID, tourID)
	}
	s.opened = s.opened.With(poiID)

	view = POIView{
		POI:      p,
		State:    quest.StateOf(s.history, poiID, true),
		Attempts: quest.Attempts(s.history, poiID),
	}
	if prior, ok := quest.TerminalRecord(s.history, poiID); ok {
		view.Prior = &prior
	}
	_, view.Pending = s.pending[poiID]
	return view, nil
}

// SubmitInteraction resolves one interaction with a POI and persists the
// outcome. Submitting to an already resolved POI returns the stored outcome.
// Submitting to a POI with a pending resolution retries its append.
func (e *Engine) SubmitInteraction(ctx context.Context, actor quest.Actor, tourID, poiID string, in quest.Interaction) (res Result, err error) {
	ctx, span := e.startSpan(ctx, "SubmitInteraction", actor, tourID)
	span.SetAttributes(attribute.String("vrquest.poi_id", poiID))
	defer func() {
		span.SetAttributes(attribute.String("vrquest.status", string(res.Status)))
		endSpan(span, err)
	}()

	if err := authorize(actor); err != nil {
		return Result{}, err
	}
	s, err := e.acquire(ctx, actor.UserID, tourID)
	if err != nil {
		return Result{}, err
	}
	defer s.mu.Unlock()

	if pr, ok := s.pending[poiID]; ok {
		return e.persist(ctx, s, pr.kind, pr.rec, "")
	}
	p, ok := s.pois[poiID]
	if !ok {
		return Result{}, fmt.Errorf("%w: %q is not an active poi of tour %q", quest.ErrInvalidPOI, poiID, tourID)
	}
	if prior, ok := quest.TerminalRecord(s.history, poiID); ok {
		return duplicateResult(s, prior), nil
	}
	if !s.tour.OpenAt(e.now()) {
		return Result{}, fmt.Errorf("%w: tour %q", quest.ErrTourClosed, tourID)
	}

	d, err := quest.Resolve(p, s.history, in)
	if err != nil {
		return Result{}, err
	}
	s.opened = s.opened.With(poiID)

	rec := quest.Record{
		ID:          e.newID(),
		UserID:      s.userID,
		TourID:      s.tour.ID,
		POIID:       poiID,
		Points:      d.Points,
		Outcome:     d.Outcome,
		Metadata:    d.Metadata,
		CompletedAt: e.now().UTC(),
	}
	return e.persist(ctx, s, p.Kind(), rec, d.Explanation)
}

// RetryPending re-attempts the append of a resolution that was validated but
// not stored.
func (e *Engine) RetryPending(ctx context.Context, actor quest.Actor, tourID, poiID string) (res Result, err error) {
	ctx, span := e.startSpan(ctx, "RetryPending", actor, tourID)
	defer func() { endSpan(span, err) }()

	if err := authorize(actor); err != nil {
		return Result{}, err
	}
	s, err := e.acquire(ctx, actor.UserID, tourID)
	if err != nil {
		return Result{}, err
	}
	defer s.mu.Unlock()

	pr, ok := s.pending[poiID]
	if !ok {
		if _, ok := s.pois[poiID]; !ok {
			return Result{}, fmt.Errorf("%w: %q is not an active poi of tour %q", quest.ErrInvalidPOI, poiID, tourID)
		}
		return Result{}, fmt.Errorf("%w: no pending resolution for poi %q", quest.ErrNotFound, poiID)
	}
	return e.persist(ctx, s, pr.kind, pr.rec, "")
}

// persist appends rec and folds it into the session. Must be called with
// s.mu held.
func (e *Engine) persist(ctx context.Context, s *session, kind quest.Kind, rec quest.Record, explanation string) (Result, error) {
	log := e.logger.With("user_id", rec.UserID, "tour_id", rec.TourID, "poi_id", rec.POIID, "record_id", rec.ID)

	err := e.store.Append(ctx, rec)
	switch {
	case err == nil:
		delete(s.pending, rec.POIID)
		s.apply(rec)
		e.stored(ctx, log, rec, kind)

		status := StatusFailed
		if rec.Outcome.Terminal() {
			status = StatusResolved
			log.Info("poi resolved", "kind", kind, "points", rec.Points)
		} else {
			log.Debug("attempt failed", "kind", kind)
		}
		return Result{
			Status:      status,
			Outcome:     rec.Outcome,
			Points:      rec.Points,
			Explanation: explanation,
			Record:      rec,
			Persisted:   true,
			Completion:  s.prog.Completion(),
		}, nil

	case errors.Is(err, quest.ErrAlreadyResolved):
		delete(s.pending, rec.POIID)
		records, lerr := e.store.ListForUser(ctx, s.userID, s.tour.ID)
		if lerr != nil {
			return Result{}, fmt.Errorf("reloading progress after conflict: %w", lerr)
		}
		s.replaceHistory(records)
		prior, ok := quest.TerminalRecord(records, rec.POIID)
		if !ok {
			return Result{}, fmt.Errorf("%w: store reported poi %q resolved but has no terminal record", quest.ErrStoreUnavailable, rec.POIID)
		}
		log.Info("concurrent resolution detected", "prior_record_id", prior.ID)
		return duplicateResult(s, prior), nil

	default:
		res := Result{
			Outcome:     rec.Outcome,
			Points:      rec.Points,
			Explanation: explanation,
			Record:      rec,
			Completion:  s.prog.Completion(),
		}
		if rec.Outcome.Terminal() {
			s.pending[rec.POIID] = pendingRecord{rec: rec, kind: kind}
			res.Status = StatusPendingPersist
			log.Warn("resolution pending persist", "points", rec.Points, "error", err)
		} else {
			res.Status = StatusFailed
			log.Warn("failed attempt not persisted", "error", err)
		}
		return res, nil
	}
}

func duplicateResult(s *session, prior quest.Record) Result {
	return Result{
		Status:     StatusDuplicate,
		Outcome:    prior.Outcome,
		Points:     prior.Points,
		Record:     prior,
		Persisted:  true,
		Completion: s.prog.Completion(),
	}
}

// ProgressSummary reports the actor's progress on a tour. A live session is
// used when one exists; otherwise the progression is replayed from the
// store without opening a session.
func (e *Engine) ProgressSummary(ctx context.Context, actor quest.Actor, tourID string) (sum Summary, err error) {
	ctx, span := e.startSpan(ctx, "ProgressSummary", actor, tourID)
	defer func() { endSpan(span, err) }()

	if err := authorize(actor); err != nil {
		return Summary{}, err
	}
	s, ok := e.sessions.Peek(actor.UserID, tourID)
	if !ok {
		s, err = e.loadSession(ctx, actor.UserID, tourID)
		if err != nil {
			return Summary{}, err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := e.refresh(ctx, s); err != nil {
		return Summary{}, err
	}
	return e.summarize(ctx, s)
}

// Leaderboard returns the board for tourID, or the global board when empty.
func (e *Engine) Leaderboard(ctx context.Context, tourID string) (b ranking.Board, err error) {
	ctx, span := e.startSpan(ctx, "Leaderboard", quest.Actor{}, tourID)
	defer func() { endSpan(span, err) }()

	if tourID != "" {
		if _, err := e.catalog.Tour(ctx, tourID); err != nil {
			return ranking.Board{}, err
		}
	}
	return e.boards.Board(ctx, tourID)
}

// ListTours returns the tours open for browsing.
func (e *Engine) ListTours(ctx context.Context) ([]quest.Tour, error) {
	tours, err := e.catalog.ListTours(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing tours: %w", err)
	}
	var out []quest.Tour
	for _, t := range tours {
		if t.Active {
			out = append(out, t)
		}
	}
	return out, nil
}

// Tour returns a tour with its scenes and the POIs scheduled today.
func (e *Engine) Tour(ctx context.Context, tourID string) (quest.Tour, []quest.POI, error) {
	return e.tourOn(ctx, tourID, e.today())
}

// today is the current UTC day, or zero when content is not scheduled by day.
func (e *Engine) today() time.Time {
	if !e.daily {
		return time.Time{}
	}
	return e.now().UTC().Truncate(24 * time.Hour)
}

func (e *Engine) tourOn(ctx context.Context, tourID string, day time.Time) (quest.Tour, []quest.POI, error) {
	t, err := e.catalog.Tour(ctx, tourID)
	if err != nil {
		return quest.Tour{}, nil, err
	}
	scenes, err := e.catalog.ListScenes(ctx, tourID)
	if err != nil {
		return quest.Tour{}, nil, fmt.Errorf("listing scenes: %w", err)
	}
	t.Scenes = scenes

	all, err := e.catalog.ListPOIs(ctx, tourID, day)
	if err != nil {
		return quest.Tour{}, nil, fmt.Errorf("listing pois: %w", err)
	}
	pois := make([]quest.POI, 0, len(all))
	for _, p := range all {
		if p.Active && p.OnDay(day) {
			pois = append(pois, p)
		}
	}
	return t, pois, nil
}

func (e *Engine) summarize(ctx context.Context, s *session) (Summary, error) {
	all, err := e.store.ListForUser(ctx, s.userID, "")
	if err != nil {
		return Summary{}, fmt.Errorf("listing progress: %w", err)
	}

	sum := Summary{
		UserID:        s.userID,
		TourID:        s.tour.ID,
		CurrentScene:  s.prog.CurrentScene(),
		VisitedScenes: s.prog.Visited().Sorted(),
		ResolvedPOIs:  s.prog.Resolved().Sorted(),
		Completion:    s.prog.Completion(),
		TourPoints:    quest.TotalPoints(s.history),
		TotalPoints:   quest.TotalPoints(all),
		ByKind:        s.prog.ByKind(),
	}
	for id := range s.pending {
		sum.PendingPOIs = append(sum.PendingPOIs, id)
	}
	slices.Sort(sum.PendingPOIs)
	return sum, nil
}
