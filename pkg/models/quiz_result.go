package models

import "time"

// QuizResult records the outcome of a post-study quiz
type QuizResult struct {
	ID      string    `json:"id" db:"id"`
	UserID  string    `json:"userId" db:"user_id"`
	Mode    string    `json:"mode" db:"mode"` // "meaning" or "cloze"
	Total   int       `json:"total" db:"total"`
	Correct int       `json:"correct" db:"correct"`
	TakenAt time.Time `json:"takenAt" db:"taken_at"`
}
