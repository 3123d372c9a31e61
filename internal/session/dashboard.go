package session

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/example/vocabmaster/internal/catalog"
	"github.com/example/vocabmaster/internal/spaced_repetition"
	"github.com/example/vocabmaster/pkg/models"
)

// Dashboard is the aggregate view shown after a session and on /stats
type Dashboard struct {
	Streak       int
	LibrarySize  int
	DueCount     int
	MistakeCount int
	StarredCount int
	Mastered     int
	Learning     int
	New          int
	Points       int
	DailyTarget  int // words the user plans to learn per day
	LearnedToday int // Perfect recalls since the day started
}

// BuildDashboard issues its reads concurrently. The reads are not a snapshot:
// rows may change between them.
func BuildDashboard(ctx context.Context, store Store, userID string, lib catalog.Library, now time.Time) (Dashboard, error) {
	var (
		words    []models.Word
		progress map[int64]models.UserProgress
		activity map[string]int
		mistakes []int64
		user     *models.User
		learned  int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		words, err = store.GetFullCatalog(gctx)
		return err
	})
	g.Go(func() (err error) {
		progress, err = store.GetAllProgress(gctx, userID)
		return err
	})
	g.Go(func() (err error) {
		activity, err = store.GetActivityLog(gctx, userID)
		return err
	})
	g.Go(func() (err error) {
		mistakes, err = store.GetMistakeIDs(gctx, userID)
		return err
	})
	g.Go(func() (err error) {
		user, err = store.GetUser(gctx, userID)
		return err
	})
	g.Go(func() (err error) {
		learned, err = store.GetLearnedOn(gctx, userID, models.DayOf(now))
		return err
	})
	if err := g.Wait(); err != nil {
		return Dashboard{}, err
	}

	d := Dashboard{
		Streak:       spaced_repetition.DeriveStreak(activity, now),
		DailyTarget:  models.DefaultDailyTarget,
		LearnedToday: learned,
	}
	if user != nil {
		d.Points = user.Points
		if user.DailyTarget > 0 {
			d.DailyTarget = user.DailyTarget
		}
	}

	flagged := make(map[int64]struct{}, len(mistakes))
	for _, id := range mistakes {
		flagged[id] = struct{}{}
	}

	for _, w := range words {
		if w.Starred {
			d.StarredCount++
		}
		if !lib.Contains(w) {
			continue
		}
		d.LibrarySize++
		if _, ok := flagged[w.ID]; ok {
			d.MistakeCount++
		}
		p, reviewed := progress[w.ID]
		if !reviewed {
			continue
		}
		if p.IsDue(now) {
			d.DueCount++
		}
		switch spaced_repetition.Classify(&p) {
		case spaced_repetition.MasteryMastered:
			d.Mastered++
		case spaced_repetition.MasteryLearning:
			d.Learning++
		}
	}

	d.New = d.LibrarySize - d.Mastered - d.Learning
	if d.New < 0 {
		d.New = 0
	}
	return d, nil
}
