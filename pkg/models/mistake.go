package models

import "time"

// Mistake marks a word as part of a user's active mistake queue
type Mistake struct {
	UserID  string    `json:"userId" db:"user_id"`
	WordID  int64     `json:"wordId" db:"word_id"`
	AddedAt time.Time `json:"addedAt" db:"added_at"`
}
