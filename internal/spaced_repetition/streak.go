package spaced_repetition

import (
	"sort"
	"time"

	"github.com/example/vocabmaster/pkg/models"
)

// DeriveStreak counts consecutive active calendar days ending at asOf or the
// day before it. Days with a zero count are ignored; malformed day keys are skipped.
func DeriveStreak(activity map[string]int, asOf time.Time) int {
	days := make([]time.Time, 0, len(activity))
	for key, count := range activity {
		if count <= 0 {
			continue
		}
		d, err := time.Parse(models.DayLayout, key)
		if err != nil {
			continue
		}
		days = append(days, d)
	}
	if len(days) == 0 {
		return 0
	}

	sort.Slice(days, func(i, j int) bool {
		return days[i].After(days[j])
	})

	today, _ := time.Parse(models.DayLayout, models.DayOf(asOf))
	yesterday := today.AddDate(0, 0, -1)
	if !days[0].Equal(today) && !days[0].Equal(yesterday) {
		return 0
	}

	streak := 0
	current := days[0]
	for _, d := range days {
		if dayGap(current, d) > 1 {
			break
		}
		streak++
		current = d
	}
	return streak
}

// dayGap returns the number of whole calendar days between two UTC-midnight dates
func dayGap(a, b time.Time) int {
	diff := a.Sub(b)
	if diff < 0 {
		diff = -diff
	}
	return int((diff + 12*time.Hour) / (24 * time.Hour))
}
