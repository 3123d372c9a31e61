package models

import "time"

// User is a learner; the username partitions every per-user collection
type User struct {
	Username      string    `json:"username" db:"username"`
	PasswordHash  string    `json:"-" db:"password_hash"`
	CreatedAt     time.Time `json:"createdAt" db:"created_at"`
	Points        int       `json:"points" db:"points"`
	ChatID        *int64    `json:"chatId,omitempty" db:"chat_id"` // linked Telegram chat, if any
	ActiveDataset string    `json:"activeDataset" db:"active_dataset"`
	DailyTarget   int       `json:"dailyTarget" db:"daily_target"` // words to learn per day
}

// DefaultDailyTarget is the study plan of a new user
const DefaultDailyTarget = 20

// LeaderboardEntry is one ranked row of the points table
type LeaderboardEntry struct {
	Username string `json:"username" db:"username"`
	Points   int    `json:"points" db:"points"`
}
