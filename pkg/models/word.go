package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
)

// Tags that mark catalog items a learner brought in themselves.
const (
	TagImported = "imported"
	TagScanned  = "scanned"
)

// FrequencyBand is how common a word is in the source corpus
type FrequencyBand string

const (
	FrequencyHigh   FrequencyBand = "high"
	FrequencyMedium FrequencyBand = "medium"
	FrequencyLow    FrequencyBand = "low"
)

// Word represents a learnable vocabulary item in the shared catalog
type Word struct {
	ID            int64         `json:"id" db:"id"`
	Headword      string        `json:"word" db:"headword"`
	Phonetic      string        `json:"phonetic" db:"phonetic"`
	Translation   string        `json:"translation" db:"translation"`
	Example       string        `json:"example" db:"example"`
	Tags          Tags          `json:"tags" db:"tags"`
	FrequencyBand FrequencyBand `json:"frequency,omitempty" db:"frequency_band"` // empty when unknown
	Starred       bool          `json:"isStarred" db:"starred"`
}

// NormalizedHeadword is the key used for case-insensitive catalog matching
func (w Word) NormalizedHeadword() string {
	return NormalizeHeadword(w.Headword)
}

// NormalizeHeadword trims and lower-cases a headword
func NormalizeHeadword(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Tags is a set of labels stored as a JSON array
type Tags []string

// Has reports whether tag is present
func (t Tags) Has(tag string) bool {
	for _, v := range t {
		if v == tag {
			return true
		}
	}
	return false
}

// With returns a copy of t that includes tag exactly once
func (t Tags) With(tag string) Tags {
	if t.Has(tag) {
		return append(Tags(nil), t...)
	}
	return append(append(Tags(nil), t...), tag)
}

// Value implements driver.Valuer
func (t Tags) Value() (driver.Value, error) {
	if t == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]string(t))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner
func (t *Tags) Scan(src interface{}) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*t = Tags{}
		return nil
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("unsupported tags type %T", src)
	}
	if len(raw) == 0 {
		*t = Tags{}
		return nil
	}
	var out []string
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("failed to decode tags: %w", err)
	}
	*t = out
	return nil
}
