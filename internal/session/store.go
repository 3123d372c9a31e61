package session

import (
	"context"

	"github.com/example/vocabmaster/pkg/models"
)

// Store is the slice of the progress store sessions need. *database.Store implements it.
type Store interface {
	GetFullCatalog(ctx context.Context) ([]models.Word, error)
	GetProgress(ctx context.Context, userID string, wordID int64) (*models.UserProgress, error)
	GetAllProgress(ctx context.Context, userID string) (map[int64]models.UserProgress, error)
	PutProgress(ctx context.Context, userID string, p models.UserProgress) error
	IncrementActivity(ctx context.Context, userID, day string) (int, error)
	IncrementLearned(ctx context.Context, userID, day string) (int, error)
	GetActivityLog(ctx context.Context, userID string) (map[string]int, error)
	GetLearnedOn(ctx context.Context, userID, day string) (int, error)
	AddMistake(ctx context.Context, userID string, wordID int64) error
	RemoveMistake(ctx context.Context, userID string, wordID int64) error
	GetMistakeIDs(ctx context.Context, userID string) ([]int64, error)
	GetUser(ctx context.Context, username string) (*models.User, error)
	AddPoints(ctx context.Context, username string, delta int) (int, error)
	SetDailyTarget(ctx context.Context, username string, target int) error
}
