package spaced_repetition

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/example/vocabmaster/pkg/models"
)

// ErrInvalidQuality is returned for a recall signal outside the four checkpoints
var ErrInvalidQuality = errors.New("spaced_repetition: invalid recall quality")

// Quality is the learner's self-reported recall. Only the four named levels are valid;
// the numeric gaps are intentional.
type Quality int

const (
	// Forgot: could not recall the word at all
	Forgot Quality = 0
	// Vague: recalled with significant effort
	Vague Quality = 3
	// Fluent: recalled after some hesitation
	Fluent Quality = 4
	// Perfect: recalled with no hesitation
	Perfect Quality = 5
)

// ParseQuality converts a raw integer into a Quality, rejecting anything unrecognized
func ParseQuality(v int) (Quality, error) {
	q := Quality(v)
	if !q.IsValid() {
		return 0, fmt.Errorf("%w: %d", ErrInvalidQuality, v)
	}
	return q, nil
}

// IsValid reports whether q is one of the four checkpoints
func (q Quality) IsValid() bool {
	switch q {
	case Forgot, Vague, Fluent, Perfect:
		return true
	}
	return false
}

// IsWeak reports whether q puts the word into the mistake queue
func (q Quality) IsWeak() bool {
	return q <= Vague
}

// IsStrong reports whether q may take the word out of the mistake queue
func (q Quality) IsStrong() bool {
	return q >= Fluent
}

func (q Quality) String() string {
	switch q {
	case Forgot:
		return "Forgot"
	case Vague:
		return "Vague"
	case Fluent:
		return "Fluent"
	case Perfect:
		return "Perfect"
	}
	return fmt.Sprintf("Quality(%d)", int(q))
}

// SM2 implements the SuperMemo-2 algorithm for spaced repetition
type SM2 struct {
	// Answers at or above this level count as a successful repetition
	PassThreshold Quality
	// Easiness factor assigned to a word on its first review
	InitialEasiness float64
	// Floor for the easiness factor
	MinEasiness float64
}

// NewSM2 creates a new SM2 instance with the default settings
func NewSM2() *SM2 {
	return &SM2{
		PassThreshold:   Vague,
		InitialEasiness: 2.5,
		MinEasiness:     1.3,
	}
}

// NewProgress returns the state of a word that has never been reviewed
func (sm *SM2) NewProgress(userID string, wordID int64, now time.Time) models.UserProgress {
	return models.UserProgress{
		UserID:         userID,
		WordID:         wordID,
		Repetitions:    0,
		Interval:       0,
		EasinessFactor: sm.InitialEasiness,
		NextReviewDate: now,
	}
}

// Advance applies one review to current (nil for a word never reviewed) and
// returns the next state. It performs no I/O.
func (sm *SM2) Advance(current *models.UserProgress, userID string, wordID int64, quality Quality, now time.Time) (models.UserProgress, error) {
	if !quality.IsValid() {
		return models.UserProgress{}, fmt.Errorf("%w: %d", ErrInvalidQuality, int(quality))
	}
	progress := sm.NewProgress(userID, wordID, now)
	if current != nil {
		progress = *current
	}
	sm.process(&progress, quality, now)
	return progress, nil
}

// process implements the SM-2 transition in place
func (sm *SM2) process(progress *models.UserProgress, quality Quality, now time.Time) {
	if quality >= sm.PassThreshold {
		switch progress.Repetitions {
		case 0:
			progress.Interval = 1
		case 1:
			progress.Interval = 6
		default:
			// uses the factor from before this review
			progress.Interval = int(math.Round(float64(progress.Interval) * progress.EasinessFactor))
		}
		progress.Repetitions++
	} else {
		progress.Repetitions = 0
		progress.Interval = 1
	}

	q := float64(quality)
	newEF := progress.EasinessFactor + (0.1 - (5.0-q)*(0.08+(5.0-q)*0.02))
	if newEF < sm.MinEasiness {
		newEF = sm.MinEasiness
	}
	progress.EasinessFactor = newEF

	reviewed := now
	progress.LastReviewDate = &reviewed
	progress.NextReviewDate = now.AddDate(0, 0, progress.Interval)
}

// Mastery buckets a word by how far along it is
type Mastery int

const (
	MasteryNew Mastery = iota
	MasteryLearning
	MasteryMastered
)

// MasteredRepetitions is the repetition count at which a word counts as mastered
const MasteredRepetitions = 5

// Classify determines the mastery bucket of a progress record
func Classify(progress *models.UserProgress) Mastery {
	switch {
	case progress == nil || progress.Repetitions <= 0:
		return MasteryNew
	case progress.Repetitions >= MasteredRepetitions:
		return MasteryMastered
	default:
		return MasteryLearning
	}
}
