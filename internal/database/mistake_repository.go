package database

import (
	"context"

	"github.com/example/vocabmaster/pkg/models"
)

// AddMistake flags wordID for userID. Adding an existing flag is a no-op.
func (s *Store) AddMistake(ctx context.Context, userID string, wordID int64) error {
	ctx, cancel, err := s.begin(ctx)
	if err != nil {
		return err
	}
	defer cancel()

	_, err = s.db.ExecContext(ctx, s.db.Rebind(`
		INSERT INTO mistakes (user_id, word_id, added_at) VALUES (?, ?, ?)
		ON CONFLICT (user_id, word_id) DO NOTHING`),
		userID, wordID, s.clock.Now().UTC())
	if err != nil {
		return unavailable("add mistake", err)
	}
	return nil
}

// RemoveMistake clears the flag. Removing an absent flag is a no-op.
func (s *Store) RemoveMistake(ctx context.Context, userID string, wordID int64) error {
	ctx, cancel, err := s.begin(ctx)
	if err != nil {
		return err
	}
	defer cancel()

	_, err = s.db.ExecContext(ctx,
		s.db.Rebind("DELETE FROM mistakes WHERE user_id = ? AND word_id = ?"), userID, wordID)
	if err != nil {
		return unavailable("remove mistake", err)
	}
	return nil
}

// GetMistakeIDs returns the flagged word ids of userID in ascending order
func (s *Store) GetMistakeIDs(ctx context.Context, userID string) ([]int64, error) {
	ctx, cancel, err := s.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()

	var rows []models.Mistake
	err = s.db.SelectContext(ctx, &rows,
		s.db.Rebind("SELECT user_id, word_id, added_at FROM mistakes WHERE user_id = ? ORDER BY word_id"), userID)
	if err != nil {
		return nil, unavailable("get mistakes", err)
	}

	ids := make([]int64, 0, len(rows))
	for _, m := range rows {
		s.checkPartition(CollectionMistakes, userID, m.UserID)
		ids = append(ids, m.WordID)
	}
	return ids, nil
}
