package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/example/vocabmaster/pkg/models"
)

const progressColumns = "user_id, word_id, repetitions, interval_days, easiness_factor, next_review_at, last_reviewed_at"

// PutProgress upserts the scheduling record at (userID, p.WordID)
func (s *Store) PutProgress(ctx context.Context, userID string, p models.UserProgress) error {
	if p.UserID != "" {
		s.checkPartition(CollectionProgress, userID, p.UserID)
	}
	p.UserID = userID

	ctx, cancel, err := s.begin(ctx)
	if err != nil {
		return err
	}
	defer cancel()

	p.NextReviewDate = p.NextReviewDate.UTC()
	if p.LastReviewDate != nil {
		last := p.LastReviewDate.UTC()
		p.LastReviewDate = &last
	}

	_, err = s.db.NamedExecContext(ctx, `
		INSERT INTO progress (`+progressColumns+`)
		VALUES (:user_id, :word_id, :repetitions, :interval_days, :easiness_factor, :next_review_at, :last_reviewed_at)
		ON CONFLICT (user_id, word_id) DO UPDATE SET
			repetitions = excluded.repetitions,
			interval_days = excluded.interval_days,
			easiness_factor = excluded.easiness_factor,
			next_review_at = excluded.next_review_at,
			last_reviewed_at = excluded.last_reviewed_at`, p)
	if err != nil {
		return unavailable("put progress", err)
	}
	s.log.Debug("progress saved", "key", ItemKey(userID, p.WordID), "interval", p.Interval)
	return nil
}

// GetProgress returns the record at (userID, wordID), or nil if the word was never reviewed
func (s *Store) GetProgress(ctx context.Context, userID string, wordID int64) (*models.UserProgress, error) {
	ctx, cancel, err := s.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()

	var p models.UserProgress
	err = s.db.GetContext(ctx, &p,
		s.db.Rebind("SELECT "+progressColumns+" FROM progress WHERE user_id = ? AND word_id = ?"),
		userID, wordID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, unavailable("get progress", fmt.Errorf("%s: %w", ItemKey(userID, wordID), err))
	}
	s.checkPartition(CollectionProgress, userID, p.UserID)
	return &p, nil
}

// GetAllProgress returns every record owned by userID, keyed by word id
func (s *Store) GetAllProgress(ctx context.Context, userID string) (map[int64]models.UserProgress, error) {
	ctx, cancel, err := s.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()

	var rows []models.UserProgress
	err = s.db.SelectContext(ctx, &rows,
		s.db.Rebind("SELECT "+progressColumns+" FROM progress WHERE user_id = ?"), userID)
	if err != nil {
		return nil, unavailable("get all progress", err)
	}

	out := make(map[int64]models.UserProgress, len(rows))
	for _, p := range rows {
		s.checkPartition(CollectionProgress, userID, p.UserID)
		out[p.WordID] = p
	}
	return out, nil
}
