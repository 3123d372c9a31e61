package models

import "time"

// DayLayout is the calendar-day key format used by the activity log
const DayLayout = "2006-01-02"

// Activity counts completed recall events for one user on one calendar day.
// LearnedCount only counts Perfect recalls and feeds the daily study plan.
type Activity struct {
	UserID       string `json:"userId" db:"user_id"`
	Day          string `json:"date" db:"day"`
	ReviewCount  int    `json:"count" db:"review_count"`
	LearnedCount int    `json:"learned" db:"learned_count"`
}

// DayOf formats t as an activity day key in t's location
func DayOf(t time.Time) string {
	return t.Format(DayLayout)
}
