package database

import (
	"context"

	"github.com/example/vocabmaster/pkg/models"
)

// SaveQuizResult stores one finished quiz under (userID, r.ID)
func (s *Store) SaveQuizResult(ctx context.Context, userID string, r models.QuizResult) error {
	if r.UserID != "" {
		s.checkPartition(CollectionQuizResults, userID, r.UserID)
	}
	r.UserID = userID
	r.TakenAt = r.TakenAt.UTC()

	ctx, cancel, err := s.begin(ctx)
	if err != nil {
		return err
	}
	defer cancel()

	_, err = s.db.NamedExecContext(ctx, `
		INSERT INTO quiz_results (user_id, id, mode, total, correct, taken_at)
		VALUES (:user_id, :id, :mode, :total, :correct, :taken_at)`, r)
	if err != nil {
		return unavailable("save quiz result", err)
	}
	return nil
}

// ListQuizResults returns userID's quiz history, newest first
func (s *Store) ListQuizResults(ctx context.Context, userID string) ([]models.QuizResult, error) {
	ctx, cancel, err := s.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()

	results := []models.QuizResult{}
	err = s.db.SelectContext(ctx, &results, s.db.Rebind(`
		SELECT id, user_id, mode, total, correct, taken_at
		FROM quiz_results WHERE user_id = ? ORDER BY taken_at DESC, id`), userID)
	if err != nil {
		return nil, unavailable("list quiz results", err)
	}
	for _, r := range results {
		s.checkPartition(CollectionQuizResults, userID, r.UserID)
	}
	return results, nil
}
