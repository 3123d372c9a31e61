package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/example/vocabmaster/internal/catalog"
	"github.com/example/vocabmaster/internal/database"
	"github.com/example/vocabmaster/internal/logger"
	"github.com/example/vocabmaster/internal/spaced_repetition"
	"github.com/example/vocabmaster/pkg/models"
)

// PerfectPoints is awarded for every Perfect answer
const PerfectPoints = 10

// Bounds of a daily study target
const (
	MinDailyTarget = 1
	MaxDailyTarget = 500
)

// Session is one playable queue of items for one user
type Session struct {
	ID         string
	UserID     string
	Kind       Kind
	Difficulty Difficulty
	Items      []models.Word
	StartedAt  time.Time

	mu       sync.Mutex
	pos      int
	answered int
	weak     int
}

// Current returns the item awaiting an answer
func (s *Session) Current() (models.Word, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pos >= len(s.Items) {
		return models.Word{}, false
	}
	return s.Items[s.pos], true
}

// Position returns the zero-based index of the current item
func (s *Session) Position() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pos
}

// StartResult holds either a playable session or an empty outcome, never both
type StartResult struct {
	Session *Session
	Empty   *EmptyOutcome
}

func (r StartResult) IsEmpty() bool { return r.Empty != nil }

type Status int

const (
	Advanced Status = iota
	Complete
)

func (s Status) String() string {
	if s == Complete {
		return "sessionComplete"
	}
	return "advanced"
}

// AnswerResult describes what one recorded answer did
type AnswerResult struct {
	Status        Status
	Word          models.Word
	Progress      models.UserProgress
	PointsAwarded int
	Next          *models.Word // set when Status is Advanced
	Summary       *Summary     // set when Status is Complete
}

// Summary closes a finished session
type Summary struct {
	SessionID string
	Kind      Kind
	Answered  int
	Weak      int
	Dashboard Dashboard
}

type Options struct {
	Clock          Clock
	Random         Shuffler
	Engine         *spaced_repetition.SM2
	DefaultDataset string // library for users without an active dataset
	Logger         *logger.Logger
}

// Workflow owns the active session of every user and applies answers to the store
type Workflow struct {
	store          Store
	selector       *Selector
	engine         *spaced_repetition.SM2
	clock          Clock
	defaultDataset string
	log            *logger.Logger

	mu     sync.Mutex
	active map[string]*Session
}

func NewWorkflow(store Store, opts Options) *Workflow {
	if opts.Clock == nil {
		opts.Clock = SystemClock{}
	}
	if opts.Engine == nil {
		opts.Engine = spaced_repetition.NewSM2()
	}
	if opts.Logger == nil {
		opts.Logger = logger.Nop()
	}
	return &Workflow{
		store:          store,
		selector:       NewSelector(store, opts.Clock, opts.Random),
		engine:         opts.Engine,
		clock:          opts.Clock,
		defaultDataset: opts.DefaultDataset,
		log:            opts.Logger.With("component", "session"),
		active:         make(map[string]*Session),
	}
}

// DefaultDataset is the library of users who never picked one
func (w *Workflow) DefaultDataset() string { return w.defaultDataset }

// Library resolves the active library of userID
func (w *Workflow) Library(ctx context.Context, userID string) (catalog.Library, error) {
	user, err := w.store.GetUser(ctx, userID)
	if err != nil {
		return catalog.Library{}, err
	}
	if user != nil && user.ActiveDataset != "" {
		return catalog.Library{DatasetID: user.ActiveDataset}, nil
	}
	return catalog.Library{DatasetID: w.defaultDataset}, nil
}

// StartSession builds a queue for kind and makes it the user's active session,
// replacing any unfinished one. Nothing is written to the store.
func (w *Workflow) StartSession(ctx context.Context, userID string, kind Kind, difficulty Difficulty) (StartResult, error) {
	if _, err := ParseKind(string(kind)); err != nil {
		return StartResult{}, err
	}
	if difficulty == "" {
		difficulty = Medium
	}
	if _, err := ParseDifficulty(string(difficulty)); err != nil {
		return StartResult{}, err
	}

	lib, err := w.Library(ctx, userID)
	if err != nil {
		return StartResult{}, err
	}
	items, err := w.selector.Select(ctx, userID, kind, difficulty, lib)
	if err != nil {
		return StartResult{}, err
	}
	if len(items) == 0 {
		w.log.Debug("empty session", "user", userID, "kind", kind)
		return StartResult{Empty: &EmptyOutcome{Kind: kind}}, nil
	}

	sess := &Session{
		ID:         uuid.NewString(),
		UserID:     userID,
		Kind:       kind,
		Difficulty: difficulty,
		Items:      items,
		StartedAt:  w.clock.Now(),
	}
	w.mu.Lock()
	w.active[userID] = sess
	w.mu.Unlock()

	w.log.Info("session started", "user", userID, "session", sess.ID, "kind", kind, "items", len(items))
	return StartResult{Session: sess}, nil
}

// Active returns the user's unfinished session, or nil
func (w *Workflow) Active(userID string) *Session {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.active[userID]
}

// Abandon drops the user's active session. Answers already recorded stay recorded.
func (w *Workflow) Abandon(userID string) {
	w.mu.Lock()
	delete(w.active, userID)
	w.mu.Unlock()
}

// RecordAnswer applies quality to wordID, which must be the current item of the
// user's session, otherwise ErrStaleAnswer is returned and nothing is written.
// The new schedule is persisted, today's activity is incremented, the mistake
// flag is added on a weak recall (removed on a strong one, in a mistake drill
// only) and Perfect earns points and counts toward the daily plan. Then the
// session moves on or completes.
//
// If the schedule cannot be persisted the session does not move. Once it is
// persisted the answer counts, and later failures are returned alongside the result.
func (w *Workflow) RecordAnswer(ctx context.Context, userID string, wordID int64, quality spaced_repetition.Quality) (AnswerResult, error) {
	if !quality.IsValid() {
		return AnswerResult{}, fmt.Errorf("%w: %d", spaced_repetition.ErrInvalidQuality, int(quality))
	}
	sess := w.Active(userID)
	if sess == nil {
		return AnswerResult{}, ErrNoActiveSession
	}

	sess.mu.Lock()
	if sess.pos >= len(sess.Items) {
		sess.mu.Unlock()
		return AnswerResult{}, ErrNoActiveSession
	}
	word := sess.Items[sess.pos]
	if word.ID != wordID {
		sess.mu.Unlock()
		return AnswerResult{}, fmt.Errorf("%w: got %d, current is %d", ErrStaleAnswer, wordID, word.ID)
	}
	now := w.clock.Now()

	current, err := w.store.GetProgress(ctx, userID, word.ID)
	if err != nil {
		sess.mu.Unlock()
		return AnswerResult{}, err
	}
	next, err := w.engine.Advance(current, userID, word.ID, quality, now)
	if err != nil {
		sess.mu.Unlock()
		return AnswerResult{}, err
	}
	if err := w.store.PutProgress(ctx, userID, next); err != nil {
		sess.mu.Unlock()
		return AnswerResult{}, err
	}

	sess.pos++
	sess.answered++
	if quality.IsWeak() {
		sess.weak++
	}
	done := sess.pos >= len(sess.Items)
	result := AnswerResult{Word: word, Progress: next}
	if !done {
		n := sess.Items[sess.pos]
		result.Next = &n
	}
	summary := Summary{SessionID: sess.ID, Kind: sess.Kind, Answered: sess.answered, Weak: sess.weak}
	sess.mu.Unlock()

	var errs []error
	if _, err := w.store.IncrementActivity(ctx, userID, models.DayOf(now)); err != nil {
		errs = append(errs, fmt.Errorf("activity: %w", err))
	}

	switch {
	case quality.IsWeak():
		if err := w.store.AddMistake(ctx, userID, word.ID); err != nil {
			errs = append(errs, fmt.Errorf("add mistake: %w", err))
		}
	case quality.IsStrong() && sess.Kind == KindMistakes:
		if err := w.store.RemoveMistake(ctx, userID, word.ID); err != nil {
			errs = append(errs, fmt.Errorf("remove mistake: %w", err))
		}
	}

	if quality == spaced_repetition.Perfect {
		_, err := w.store.AddPoints(ctx, userID, PerfectPoints)
		switch {
		case err == nil:
			result.PointsAwarded = PerfectPoints
		case errors.Is(err, database.ErrNotFound):
			w.log.Debug("points skipped for unregistered user", "user", userID)
		default:
			errs = append(errs, fmt.Errorf("points: %w", err))
		}
		if _, err := w.store.IncrementLearned(ctx, userID, models.DayOf(now)); err != nil {
			errs = append(errs, fmt.Errorf("daily plan: %w", err))
		}
	}

	if !done {
		result.Status = Advanced
		return result, errors.Join(errs...)
	}

	w.mu.Lock()
	if w.active[userID] == sess {
		delete(w.active, userID)
	}
	w.mu.Unlock()

	result.Status = Complete
	dash, err := w.Dashboard(ctx, userID)
	if err != nil {
		errs = append(errs, fmt.Errorf("refresh: %w", err))
	}
	summary.Dashboard = dash
	result.Summary = &summary

	w.log.Info("session complete", "user", userID, "session", summary.SessionID, "answered", summary.Answered, "weak", summary.Weak)
	return result, errors.Join(errs...)
}

// Dashboard computes the user's aggregates against their active library
func (w *Workflow) Dashboard(ctx context.Context, userID string) (Dashboard, error) {
	lib, err := w.Library(ctx, userID)
	if err != nil {
		return Dashboard{}, err
	}
	return BuildDashboard(ctx, w.store, userID, lib, w.clock.Now())
}

// SetDailyTarget changes the number of words userID plans to learn per day
func (w *Workflow) SetDailyTarget(ctx context.Context, userID string, target int) error {
	if target < MinDailyTarget || target > MaxDailyTarget {
		return fmt.Errorf("%w: %d", ErrInvalidTarget, target)
	}
	if err := w.store.SetDailyTarget(ctx, userID, target); err != nil {
		return err
	}
	w.log.Info("daily target changed", "user", userID, "target", target)
	return nil
}
