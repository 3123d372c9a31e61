package session

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/vocabmaster/internal/catalog"
	"github.com/example/vocabmaster/internal/database"
	"github.com/example/vocabmaster/internal/spaced_repetition"
	"github.com/example/vocabmaster/pkg/models"
)

const dataset = "CET4_CORE"

var start = time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)

func createTestStore(t *testing.T) *database.Store {
	t.Helper()
	s, err := database.Open(database.Options{DSN: filepath.Join(t.TempDir(), "session.db")})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Init(context.Background()))
	return s
}

// seedWords stores n library words with ids 1..n plus one word outside the library
func seedWords(t *testing.T, s *database.Store, n int) {
	t.Helper()
	words := make([]models.Word, 0, n+1)
	for i := 1; i <= n; i++ {
		words = append(words, models.Word{ID: int64(i), Headword: "word" + string(rune('a'+i%26)), Tags: models.Tags{dataset}})
	}
	words = append(words, models.Word{ID: int64(n + 1), Headword: "outsider", Tags: models.Tags{"IELTS"}})
	_, err := s.UpsertCatalogItems(context.Background(), words)
	require.NoError(t, err)
}

func newWorkflow(store Store, clock *FixedClock) *Workflow {
	return NewWorkflow(store, Options{
		Clock:          clock,
		Random:         NewSeededRandom(42),
		DefaultDataset: dataset,
	})
}

func ids(words []models.Word) []int64 {
	out := make([]int64, len(words))
	for i, w := range words {
		out[i] = w.ID
	}
	return out
}

// currentID returns the id of the item the user is looking at
func currentID(t *testing.T, wf *Workflow, user string) int64 {
	t.Helper()
	sess := wf.Active(user)
	require.NotNil(t, sess)
	w, ok := sess.Current()
	require.True(t, ok)
	return w.ID
}

// answerAll answers every remaining item with q and returns the last result
func answerAll(t *testing.T, wf *Workflow, user string, q spaced_repetition.Quality) AnswerResult {
	t.Helper()
	var res AnswerResult
	for {
		var err error
		res, err = wf.RecordAnswer(context.Background(), user, currentID(t, wf, user), q)
		require.NoError(t, err)
		if res.Status == Complete {
			return res
		}
	}
}

func TestStudy_PoolSmallerThanSize(t *testing.T) {
	s := createTestStore(t)
	seedWords(t, s, 3)
	wf := newWorkflow(s, &FixedClock{T: start})

	res, err := wf.StartSession(context.Background(), "alice", KindStudy, Easy)
	require.NoError(t, err)
	require.False(t, res.IsEmpty())
	assert.ElementsMatch(t, []int64{1, 2, 3}, ids(res.Session.Items))
}

func TestStudy_CappedAndFallsBackToLibrary(t *testing.T) {
	s := createTestStore(t)
	seedWords(t, s, 25)
	wf := newWorkflow(s, &FixedClock{T: start})
	ctx := context.Background()

	res, err := wf.StartSession(ctx, "alice", KindStudy, Hard)
	require.NoError(t, err)
	assert.Len(t, res.Session.Items, 20)
	assert.NotContains(t, ids(res.Session.Items), int64(26))
	answerAll(t, wf, "alice", spaced_repetition.Fluent)

	res, err = wf.StartSession(ctx, "alice", KindStudy, Hard)
	require.NoError(t, err)
	assert.Len(t, res.Session.Items, 5, "only the unlearned remainder")
	answerAll(t, wf, "alice", spaced_repetition.Fluent)

	res, err = wf.StartSession(ctx, "alice", KindStudy, Easy)
	require.NoError(t, err)
	assert.Len(t, res.Session.Items, 5, "whole library once everything was seen")
}

func TestSelector_DeterministicWithSeed(t *testing.T) {
	s := createTestStore(t)
	seedWords(t, s, 12)
	clock := &FixedClock{T: start}
	lib := catalog.Library{DatasetID: dataset}

	a, err := NewSelector(s, clock, NewSeededRandom(7)).Select(context.Background(), "alice", KindStudy, Medium, lib)
	require.NoError(t, err)
	b, err := NewSelector(s, clock, NewSeededRandom(7)).Select(context.Background(), "alice", KindStudy, Medium, lib)
	require.NoError(t, err)
	assert.Equal(t, ids(a), ids(b))
	assert.Len(t, a, 10)
}

func TestReview_EmptyThenDue(t *testing.T) {
	s := createTestStore(t)
	seedWords(t, s, 2)
	clock := &FixedClock{T: start}
	wf := newWorkflow(s, clock)
	ctx := context.Background()

	res, err := wf.StartSession(ctx, "alice", KindReview, "")
	require.NoError(t, err)
	require.True(t, res.IsEmpty())
	assert.Equal(t, KindReview, res.Empty.Kind)
	assert.Nil(t, wf.Active("alice"))

	_, err = wf.StartSession(ctx, "alice", KindStudy, Easy)
	require.NoError(t, err)
	answerAll(t, wf, "alice", spaced_repetition.Perfect)

	res, err = wf.StartSession(ctx, "alice", KindReview, "")
	require.NoError(t, err)
	assert.True(t, res.IsEmpty(), "nothing due before the one-day interval passes")

	clock.Advance(24 * time.Hour)
	res, err = wf.StartSession(ctx, "alice", KindReview, "")
	require.NoError(t, err)
	require.False(t, res.IsEmpty())
	assert.ElementsMatch(t, []int64{1, 2}, ids(res.Session.Items))
}

func TestRecordAnswer_ForgotThenPerfectKeepsMistake(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	_, err := s.UpsertCatalogItems(ctx, []models.Word{{ID: 7, Headword: "ephemeral", Tags: models.Tags{dataset}}})
	require.NoError(t, err)
	clock := &FixedClock{T: start}
	wf := newWorkflow(s, clock)

	_, err = wf.StartSession(ctx, "alice", KindStudy, Easy)
	require.NoError(t, err)
	res, err := wf.RecordAnswer(ctx, "alice", currentID(t, wf, "alice"), spaced_repetition.Forgot)
	require.NoError(t, err)
	assert.Equal(t, Complete, res.Status)

	clock.Advance(24 * time.Hour)
	_, err = wf.StartSession(ctx, "alice", KindStudy, Easy)
	require.NoError(t, err)
	res, err = wf.RecordAnswer(ctx, "alice", currentID(t, wf, "alice"), spaced_repetition.Perfect)
	require.NoError(t, err)
	require.Equal(t, Complete, res.Status)

	p, err := s.GetProgress(ctx, "alice", 7)
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, 1, p.Repetitions)
	assert.Equal(t, 1, p.Interval)

	mistakes, err := s.GetMistakeIDs(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, []int64{7}, mistakes)

	require.NotNil(t, res.Summary)
	assert.Equal(t, 2, res.Summary.Dashboard.Streak)
	assert.Equal(t, 1, res.Summary.Dashboard.MistakeCount)
	assert.Equal(t, 1, res.Summary.Dashboard.Learning)
}

func TestRecordAnswer_MistakeDrillRemovesOnStrong(t *testing.T) {
	s := createTestStore(t)
	seedWords(t, s, 3)
	wf := newWorkflow(s, &FixedClock{T: start})
	ctx := context.Background()

	res, err := wf.StartSession(ctx, "alice", KindMistakes, "")
	require.NoError(t, err)
	assert.True(t, res.IsEmpty())

	_, err = wf.StartSession(ctx, "alice", KindStudy, Easy)
	require.NoError(t, err)
	answerAll(t, wf, "alice", spaced_repetition.Vague)

	mistakes, err := s.GetMistakeIDs(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3}, mistakes)

	res, err = wf.StartSession(ctx, "alice", KindMistakes, "")
	require.NoError(t, err)
	require.Len(t, res.Session.Items, 3)

	first, err := wf.RecordAnswer(ctx, "alice", currentID(t, wf, "alice"), spaced_repetition.Fluent)
	require.NoError(t, err)
	_, err = wf.RecordAnswer(ctx, "alice", currentID(t, wf, "alice"), spaced_repetition.Vague)
	require.NoError(t, err)
	_, err = wf.RecordAnswer(ctx, "alice", currentID(t, wf, "alice"), spaced_repetition.Perfect)
	require.NoError(t, err)

	mistakes, err = s.GetMistakeIDs(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, mistakes, 1)
	assert.NotContains(t, mistakes, first.Word.ID)
}

func TestStarred_NotLibraryScoped(t *testing.T) {
	s := createTestStore(t)
	seedWords(t, s, 2)
	wf := newWorkflow(s, &FixedClock{T: start})
	ctx := context.Background()

	res, err := wf.StartSession(ctx, "alice", KindStarred, "")
	require.NoError(t, err)
	assert.True(t, res.IsEmpty())

	_, err = s.ToggleStar(ctx, 3) // the outsider
	require.NoError(t, err)
	res, err = wf.StartSession(ctx, "alice", KindStarred, "")
	require.NoError(t, err)
	assert.Equal(t, []int64{3}, ids(res.Session.Items))
}

func TestRecordAnswer_PointsAndAdvance(t *testing.T) {
	s := createTestStore(t)
	seedWords(t, s, 2)
	wf := newWorkflow(s, &FixedClock{T: start})
	ctx := context.Background()

	_, err := s.RegisterUser(ctx, "alice", "", start)
	require.NoError(t, err)

	started, err := wf.StartSession(ctx, "alice", KindStudy, Easy)
	require.NoError(t, err)
	second := started.Session.Items[1]

	res, err := wf.RecordAnswer(ctx, "alice", currentID(t, wf, "alice"), spaced_repetition.Perfect)
	require.NoError(t, err)
	assert.Equal(t, Advanced, res.Status)
	assert.Equal(t, PerfectPoints, res.PointsAwarded)
	require.NotNil(t, res.Next)
	assert.Equal(t, second.ID, res.Next.ID)
	assert.Equal(t, 1, wf.Active("alice").Position())

	res, err = wf.RecordAnswer(ctx, "alice", currentID(t, wf, "alice"), spaced_repetition.Fluent)
	require.NoError(t, err)
	assert.Equal(t, Complete, res.Status)
	assert.Zero(t, res.PointsAwarded)
	assert.Equal(t, PerfectPoints, res.Summary.Dashboard.Points)
	assert.Equal(t, 2, res.Summary.Answered)
	assert.Nil(t, wf.Active("alice"))

	activity, err := s.GetActivityLog(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 2, activity["2024-03-10"])

	_, err = wf.RecordAnswer(ctx, "alice", second.ID, spaced_repetition.Fluent)
	assert.ErrorIs(t, err, ErrNoActiveSession)
}

func TestStartSession_InvalidInput(t *testing.T) {
	s := createTestStore(t)
	wf := newWorkflow(s, &FixedClock{T: start})
	ctx := context.Background()

	_, err := wf.StartSession(ctx, "alice", Kind("quiz"), "")
	assert.ErrorIs(t, err, ErrUnknownKind)
	_, err = wf.StartSession(ctx, "alice", KindStudy, Difficulty("insane"))
	assert.ErrorIs(t, err, ErrInvalidDifficulty)

	res, err := wf.StartSession(ctx, "alice", KindStudy, Easy)
	require.NoError(t, err)
	assert.True(t, res.IsEmpty(), "empty library")
}

func TestRecordAnswer_InvalidQualityTouchesNothing(t *testing.T) {
	s := createTestStore(t)
	seedWords(t, s, 1)
	wf := newWorkflow(s, &FixedClock{T: start})
	ctx := context.Background()

	_, err := wf.StartSession(ctx, "alice", KindStudy, Easy)
	require.NoError(t, err)
	_, err = wf.RecordAnswer(ctx, "alice", currentID(t, wf, "alice"), spaced_repetition.Quality(2))
	assert.ErrorIs(t, err, spaced_repetition.ErrInvalidQuality)
	assert.Equal(t, 0, wf.Active("alice").Position())

	all, err := s.GetAllProgress(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, all)
}

type failingStore struct {
	Store
	failPut bool
}

func (f *failingStore) PutProgress(ctx context.Context, userID string, p models.UserProgress) error {
	if f.failPut {
		return &database.StoreError{Op: "put progress", Err: errors.New("disk full")}
	}
	return f.Store.PutProgress(ctx, userID, p)
}

func TestRecordAnswer_StoreFailureKeepsPosition(t *testing.T) {
	s := createTestStore(t)
	seedWords(t, s, 2)
	fs := &failingStore{Store: s}
	wf := newWorkflow(fs, &FixedClock{T: start})
	ctx := context.Background()

	_, err := wf.StartSession(ctx, "alice", KindStudy, Easy)
	require.NoError(t, err)
	_, err = wf.RecordAnswer(ctx, "alice", currentID(t, wf, "alice"), spaced_repetition.Fluent)
	require.NoError(t, err)

	fs.failPut = true
	_, err = wf.RecordAnswer(ctx, "alice", currentID(t, wf, "alice"), spaced_repetition.Fluent)
	assert.ErrorIs(t, err, database.ErrStoreUnavailable)
	assert.Equal(t, 1, wf.Active("alice").Position())

	all, err := s.GetAllProgress(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, all, 1, "the first answer stays committed")

	fs.failPut = false
	res, err := wf.RecordAnswer(ctx, "alice", currentID(t, wf, "alice"), spaced_repetition.Fluent)
	require.NoError(t, err)
	assert.Equal(t, Complete, res.Status)
}

func TestParseHelpers(t *testing.T) {
	k, err := ParseKind(" Review ")
	require.NoError(t, err)
	assert.Equal(t, KindReview, k)

	d, err := ParseDifficulty("easy")
	require.NoError(t, err)
	assert.Equal(t, 5, d.Size())
	assert.Equal(t, 10, Medium.Size())
	assert.Equal(t, 20, Hard.Size())
}

func TestRecordAnswer_StaleItemTouchesNothing(t *testing.T) {
	s := createTestStore(t)
	seedWords(t, s, 2)
	wf := newWorkflow(s, &FixedClock{T: start})
	ctx := context.Background()

	started, err := wf.StartSession(ctx, "alice", KindStudy, Easy)
	require.NoError(t, err)
	first, second := started.Session.Items[0], started.Session.Items[1]

	_, err = wf.RecordAnswer(ctx, "alice", first.ID, spaced_repetition.Forgot)
	require.NoError(t, err)

	// the same button pressed again must not score the next card
	_, err = wf.RecordAnswer(ctx, "alice", first.ID, spaced_repetition.Forgot)
	assert.ErrorIs(t, err, ErrStaleAnswer)
	assert.Equal(t, 1, wf.Active("alice").Position())

	p, err := s.GetProgress(ctx, "alice", second.ID)
	require.NoError(t, err)
	assert.Nil(t, p)
	mistakes, err := s.GetMistakeIDs(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, []int64{first.ID}, mistakes)
	activity, err := s.GetActivityLog(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 1, activity["2024-03-10"])

	res, err := wf.RecordAnswer(ctx, "alice", second.ID, spaced_repetition.Fluent)
	require.NoError(t, err)
	assert.Equal(t, Complete, res.Status)
}

func TestDailyPlan(t *testing.T) {
	s := createTestStore(t)
	seedWords(t, s, 3)
	clock := &FixedClock{T: start}
	wf := newWorkflow(s, clock)
	ctx := context.Background()

	_, err := s.RegisterUser(ctx, "alice", "", start)
	require.NoError(t, err)

	dash, err := wf.Dashboard(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, models.DefaultDailyTarget, dash.DailyTarget)
	assert.Zero(t, dash.LearnedToday)

	assert.ErrorIs(t, wf.SetDailyTarget(ctx, "alice", 0), ErrInvalidTarget)
	assert.ErrorIs(t, wf.SetDailyTarget(ctx, "alice", MaxDailyTarget+1), ErrInvalidTarget)
	assert.ErrorIs(t, wf.SetDailyTarget(ctx, "bob", 10), database.ErrNotFound)
	require.NoError(t, wf.SetDailyTarget(ctx, "alice", 10))

	_, err = wf.StartSession(ctx, "alice", KindStudy, Easy)
	require.NoError(t, err)
	_, err = wf.RecordAnswer(ctx, "alice", currentID(t, wf, "alice"), spaced_repetition.Perfect)
	require.NoError(t, err)
	_, err = wf.RecordAnswer(ctx, "alice", currentID(t, wf, "alice"), spaced_repetition.Fluent)
	require.NoError(t, err)
	res, err := wf.RecordAnswer(ctx, "alice", currentID(t, wf, "alice"), spaced_repetition.Perfect)
	require.NoError(t, err)
	require.NotNil(t, res.Summary)
	assert.Equal(t, 10, res.Summary.Dashboard.DailyTarget)
	assert.Equal(t, 2, res.Summary.Dashboard.LearnedToday, "only Perfect recalls count")

	// the plan starts over the next day
	clock.Advance(24 * time.Hour)
	dash, err = wf.Dashboard(ctx, "alice")
	require.NoError(t, err)
	assert.Zero(t, dash.LearnedToday)
	assert.Equal(t, 10, dash.DailyTarget)
}
