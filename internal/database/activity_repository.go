package database

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/example/vocabmaster/pkg/models"
)

// PutActivity overwrites the review count of (userID, day)
func (s *Store) PutActivity(ctx context.Context, userID, day string, count int) error {
	ctx, cancel, err := s.begin(ctx)
	if err != nil {
		return err
	}
	defer cancel()

	_, err = s.db.ExecContext(ctx, s.db.Rebind(`
		INSERT INTO activity (user_id, day, review_count) VALUES (?, ?, ?)
		ON CONFLICT (user_id, day) DO UPDATE SET review_count = excluded.review_count`),
		userID, day, count)
	if err != nil {
		return unavailable("put activity", err)
	}
	return nil
}

// IncrementActivity adds one review to (userID, day) as a single atomic step and
// returns the new count. Concurrent increments are never lost.
func (s *Store) IncrementActivity(ctx context.Context, userID, day string) (int, error) {
	ctx, cancel, err := s.begin(ctx)
	if err != nil {
		return 0, err
	}
	defer cancel()

	var count int
	err = s.inTx(ctx, "increment activity", func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, tx.Rebind(`
			INSERT INTO activity (user_id, day, review_count) VALUES (?, ?, 1)
			ON CONFLICT (user_id, day) DO UPDATE SET review_count = activity.review_count + 1`),
			userID, day)
		if err != nil {
			return unavailable("increment activity", err)
		}
		err = tx.GetContext(ctx, &count,
			tx.Rebind("SELECT review_count FROM activity WHERE user_id = ? AND day = ?"), userID, day)
		if err != nil {
			return unavailable("increment activity", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	s.log.Debug("activity recorded", "key", DayKey(userID, day), "count", count)
	return count, nil
}

// IncrementLearned adds one learned word to (userID, day) and returns the day's
// new total. The review count is left alone; IncrementActivity records the recall.
func (s *Store) IncrementLearned(ctx context.Context, userID, day string) (int, error) {
	ctx, cancel, err := s.begin(ctx)
	if err != nil {
		return 0, err
	}
	defer cancel()

	var count int
	err = s.inTx(ctx, "increment learned", func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, tx.Rebind(`
			INSERT INTO activity (user_id, day, review_count, learned_count) VALUES (?, ?, 0, 1)
			ON CONFLICT (user_id, day) DO UPDATE SET learned_count = activity.learned_count + 1`),
			userID, day)
		if err != nil {
			return unavailable("increment learned", err)
		}
		err = tx.GetContext(ctx, &count,
			tx.Rebind("SELECT learned_count FROM activity WHERE user_id = ? AND day = ?"), userID, day)
		if err != nil {
			return unavailable("increment learned", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}

// GetLearnedOn returns how many words userID learned on day. A day without
// activity counts zero, so the plan starts over at every day rollover.
func (s *Store) GetLearnedOn(ctx context.Context, userID, day string) (int, error) {
	ctx, cancel, err := s.begin(ctx)
	if err != nil {
		return 0, err
	}
	defer cancel()

	var rows []models.Activity
	err = s.db.SelectContext(ctx, &rows, s.db.Rebind(
		"SELECT user_id, day, review_count, learned_count FROM activity WHERE user_id = ? AND day = ?"), userID, day)
	if err != nil {
		return 0, unavailable("get learned", err)
	}
	if len(rows) == 0 {
		return 0, nil
	}
	s.checkPartition(CollectionActivity, userID, rows[0].UserID)
	return rows[0].LearnedCount, nil
}

// GetActivityLog returns userID's review counts keyed by day (YYYY-MM-DD)
func (s *Store) GetActivityLog(ctx context.Context, userID string) (map[string]int, error) {
	ctx, cancel, err := s.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()

	var rows []models.Activity
	err = s.db.SelectContext(ctx, &rows,
		s.db.Rebind("SELECT user_id, day, review_count, learned_count FROM activity WHERE user_id = ?"), userID)
	if err != nil {
		return nil, unavailable("get activity", err)
	}

	out := make(map[string]int, len(rows))
	for _, a := range rows {
		s.checkPartition(CollectionActivity, userID, a.UserID)
		out[a.Day] = a.ReviewCount
	}
	return out, nil
}
