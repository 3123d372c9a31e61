package models

import "time"

// UserProgress tracks a user's progress with a specific word using the SM-2 algorithm
type UserProgress struct {
	UserID         string     `json:"userId" db:"user_id"`
	WordID         int64      `json:"wordId" db:"word_id"`
	Repetitions    int        `json:"repetition" db:"repetitions"`        // consecutive successful recalls
	Interval       int        `json:"interval" db:"interval_days"`        // current interval in days
	EasinessFactor float64    `json:"efactor" db:"easiness_factor"`       // SM-2 EF parameter, never below 1.3
	NextReviewDate time.Time  `json:"nextReviewDate" db:"next_review_at"` // due instant
	LastReviewDate *time.Time `json:"lastReviewDate,omitempty" db:"last_reviewed_at"`
}

// IsDue reports whether the word should be reviewed at now
func (p UserProgress) IsDue(now time.Time) bool {
	return !p.NextReviewDate.After(now)
}
