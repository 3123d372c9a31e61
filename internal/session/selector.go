package session

import (
	"context"

	"github.com/example/vocabmaster/internal/catalog"
	"github.com/example/vocabmaster/pkg/models"
)

// EmptyOutcome reports that a session kind had nothing to offer. It is a
// result, not a failure.
type EmptyOutcome struct {
	Kind Kind
}

// Selector turns store state into ordered item queues
type Selector struct {
	store Store
	clock Clock
	rnd   Shuffler
}

func NewSelector(store Store, clock Clock, rnd Shuffler) *Selector {
	if clock == nil {
		clock = SystemClock{}
	}
	if rnd == nil {
		rnd = NewRandom()
	}
	return &Selector{store: store, clock: clock, rnd: rnd}
}

// Select builds the queue for kind. difficulty only matters for KindStudy.
// An empty queue is returned as a nil slice; the caller turns it into an EmptyOutcome.
func (s *Selector) Select(ctx context.Context, userID string, kind Kind, difficulty Difficulty, lib catalog.Library) ([]models.Word, error) {
	words, err := s.store.GetFullCatalog(ctx)
	if err != nil {
		return nil, err
	}

	var queue []models.Word
	switch kind {
	case KindReview:
		queue, err = s.review(ctx, userID, lib.Filter(words))
	case KindStudy:
		queue, err = s.study(ctx, userID, lib.Filter(words), difficulty.Size())
	case KindMistakes:
		queue, err = s.mistakes(ctx, userID, lib.Filter(words))
	case KindStarred:
		queue = starred(words)
	default:
		return nil, ErrUnknownKind
	}
	if err != nil {
		return nil, err
	}
	if len(queue) == 0 {
		return nil, nil
	}

	s.shuffle(queue)
	return queue, nil
}

// review picks library items whose next review is due
func (s *Selector) review(ctx context.Context, userID string, library []models.Word) ([]models.Word, error) {
	progress, err := s.store.GetAllProgress(ctx, userID)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()

	var due []models.Word
	for _, w := range library {
		if p, ok := progress[w.ID]; ok && p.IsDue(now) {
			due = append(due, w)
		}
	}
	return due, nil
}

// study picks up to size unlearned library items, falling back to the whole
// library once everything has been seen
func (s *Selector) study(ctx context.Context, userID string, library []models.Word, size int) ([]models.Word, error) {
	progress, err := s.store.GetAllProgress(ctx, userID)
	if err != nil {
		return nil, err
	}

	var pool []models.Word
	for _, w := range library {
		if _, seen := progress[w.ID]; !seen {
			pool = append(pool, w)
		}
	}
	if len(pool) == 0 {
		pool = append(pool, library...)
	}

	s.shuffle(pool)
	if len(pool) > size {
		pool = pool[:size]
	}
	return pool, nil
}

func (s *Selector) mistakes(ctx context.Context, userID string, library []models.Word) ([]models.Word, error) {
	ids, err := s.store.GetMistakeIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	flagged := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		flagged[id] = struct{}{}
	}

	var out []models.Word
	for _, w := range library {
		if _, ok := flagged[w.ID]; ok {
			out = append(out, w)
		}
	}
	return out, nil
}

// starred is not library scoped
func starred(words []models.Word) []models.Word {
	var out []models.Word
	for _, w := range words {
		if w.Starred {
			out = append(out, w)
		}
	}
	return out
}

func (s *Selector) shuffle(words []models.Word) {
	s.rnd.Shuffle(len(words), func(i, j int) {
		words[i], words[j] = words[j], words[i]
	})
}
