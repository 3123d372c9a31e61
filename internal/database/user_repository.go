package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"

	"github.com/example/vocabmaster/pkg/models"
)

const userColumns = "username, password_hash, created_at, points, chat_id, active_dataset, daily_target"

// RegisterUser creates a user. An empty secret creates an account that can only be
// reached through a linked chat.
func (s *Store) RegisterUser(ctx context.Context, username, secret string, now time.Time) (*models.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, errors.New("username is required")
	}

	var hash string
	if secret != "" {
		b, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("failed to hash secret: %w", err)
		}
		hash = string(b)
	}

	ctx, cancel, err := s.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()

	user := models.User{Username: username, PasswordHash: hash, CreatedAt: now.UTC(), DailyTarget: models.DefaultDailyTarget}
	err = s.inTx(ctx, "register user", func(tx *sqlx.Tx) error {
		var n int
		if err := tx.GetContext(ctx, &n, tx.Rebind("SELECT COUNT(*) FROM users WHERE username = ?"), username); err != nil {
			return unavailable("register user", err)
		}
		if n > 0 {
			return fmt.Errorf("%q: %w", username, ErrDuplicateUser)
		}
		_, err := tx.NamedExecContext(ctx, `
			INSERT INTO users (`+userColumns+`)
			VALUES (:username, :password_hash, :created_at, :points, :chat_id, :active_dataset, :daily_target)`, user)
		if err != nil {
			return unavailable("register user", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("user registered", "username", username)
	return &user, nil
}

// Authenticate returns the user when secret matches, nil otherwise
func (s *Store) Authenticate(ctx context.Context, username, secret string) (*models.User, error) {
	user, err := s.GetUser(ctx, username)
	if err != nil || user == nil {
		return nil, err
	}
	if user.PasswordHash == "" {
		return nil, nil
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(secret)) != nil {
		return nil, nil
	}
	return user, nil
}

// GetUser returns the user or nil if absent
func (s *Store) GetUser(ctx context.Context, username string) (*models.User, error) {
	ctx, cancel, err := s.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()

	var user models.User
	err = s.db.GetContext(ctx, &user, s.db.Rebind("SELECT "+userColumns+" FROM users WHERE username = ?"), username)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, unavailable("get user", err)
	}
	return &user, nil
}

// GetUserByChatID returns the user linked to a Telegram chat, or nil
func (s *Store) GetUserByChatID(ctx context.Context, chatID int64) (*models.User, error) {
	ctx, cancel, err := s.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()

	var user models.User
	err = s.db.GetContext(ctx, &user, s.db.Rebind("SELECT "+userColumns+" FROM users WHERE chat_id = ?"), chatID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, unavailable("get user by chat", err)
	}
	return &user, nil
}

// ListLinkedUsers returns every user with a linked chat
func (s *Store) ListLinkedUsers(ctx context.Context) ([]models.User, error) {
	ctx, cancel, err := s.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()

	users := []models.User{}
	err = s.db.SelectContext(ctx, &users, "SELECT "+userColumns+" FROM users WHERE chat_id IS NOT NULL ORDER BY username")
	if err != nil {
		return nil, unavailable("list linked users", err)
	}
	return users, nil
}

// LinkChat attaches a Telegram chat to an existing user. A chat belongs to at
// most one user, so any previous owner is unlinked.
func (s *Store) LinkChat(ctx context.Context, username string, chatID int64) error {
	ctx, cancel, err := s.begin(ctx)
	if err != nil {
		return err
	}
	defer cancel()

	return s.inTx(ctx, "link chat", func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, tx.Rebind("UPDATE users SET chat_id = NULL WHERE chat_id = ? AND username <> ?"), chatID, username)
		if err != nil {
			return unavailable("link chat", err)
		}
		res, err := tx.ExecContext(ctx, tx.Rebind("UPDATE users SET chat_id = ? WHERE username = ?"), chatID, username)
		if err != nil {
			return unavailable("link chat", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("link chat: %w", ErrNotFound)
		}
		return nil
	})
}

// SetActiveDataset records which seed dataset the user studies
func (s *Store) SetActiveDataset(ctx context.Context, username, datasetID string) error {
	return s.updateUser(ctx, "set dataset", "UPDATE users SET active_dataset = ? WHERE username = ?", datasetID, username)
}

// SetDailyTarget changes how many words the user plans to learn per day
func (s *Store) SetDailyTarget(ctx context.Context, username string, target int) error {
	return s.updateUser(ctx, "set daily target", "UPDATE users SET daily_target = ? WHERE username = ?", target, username)
}

// AddPoints adds delta to the user's points and returns the new total
func (s *Store) AddPoints(ctx context.Context, username string, delta int) (int, error) {
	ctx, cancel, err := s.begin(ctx)
	if err != nil {
		return 0, err
	}
	defer cancel()

	var total int
	err = s.inTx(ctx, "add points", func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, tx.Rebind("UPDATE users SET points = points + ? WHERE username = ?"), delta, username)
		if err != nil {
			return unavailable("add points", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("user %q: %w", username, ErrNotFound)
		}
		if err := tx.GetContext(ctx, &total, tx.Rebind("SELECT points FROM users WHERE username = ?"), username); err != nil {
			return unavailable("add points", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return total, nil
}

// Leaderboard returns the top users by points, ties broken by username
func (s *Store) Leaderboard(ctx context.Context, limit int) ([]models.LeaderboardEntry, error) {
	ctx, cancel, err := s.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()

	entries := []models.LeaderboardEntry{}
	err = s.db.SelectContext(ctx, &entries,
		s.db.Rebind("SELECT username, points FROM users ORDER BY points DESC, username ASC LIMIT ?"), limit)
	if err != nil {
		return nil, unavailable("leaderboard", err)
	}
	return entries, nil
}

func (s *Store) updateUser(ctx context.Context, op, query string, args ...interface{}) error {
	ctx, cancel, err := s.begin(ctx)
	if err != nil {
		return err
	}
	defer cancel()

	res, err := s.db.ExecContext(ctx, s.db.Rebind(query), args...)
	if err != nil {
		return unavailable(op, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return nil
}
