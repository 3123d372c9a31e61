package session

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnknownKind       = errors.New("session: unknown kind")
	ErrInvalidDifficulty = errors.New("session: invalid difficulty")
	ErrNoActiveSession   = errors.New("session: no active session")
	ErrStaleAnswer       = errors.New("session: answer is not for the current item")
	ErrInvalidTarget     = errors.New("session: daily target out of range")
)

// Kind selects which items a session draws from
type Kind string

const (
	KindReview   Kind = "review"
	KindStudy    Kind = "study"
	KindMistakes Kind = "mistakes"
	KindStarred  Kind = "starred"
)

func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindReview, KindStudy, KindMistakes, KindStarred:
		return k, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// Difficulty sets the size of a fresh-study session
type Difficulty string

const (
	Easy   Difficulty = "EASY"
	Medium Difficulty = "MEDIUM"
	Hard   Difficulty = "HARD"
)

// ParseDifficulty accepts any case; an empty string means Medium
func ParseDifficulty(s string) (Difficulty, error) {
	switch d := Difficulty(strings.ToUpper(strings.TrimSpace(s))); d {
	case "":
		return Medium, nil
	case Easy, Medium, Hard:
		return d, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidDifficulty, s)
}

// Size is the number of items a study session of this difficulty takes
func (d Difficulty) Size() int {
	switch d {
	case Easy:
		return 5
	case Hard:
		return 20
	default:
		return 10
	}
}
