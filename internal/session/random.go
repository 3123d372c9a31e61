package session

import (
	"math/rand"
	"time"
)

// Shuffler permutes n elements through swap. *rand.Rand satisfies it.
type Shuffler interface {
	Shuffle(n int, swap func(i, j int))
}

// NewSeededRandom returns a reproducible Shuffler for tests
func NewSeededRandom(seed int64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}

// NewRandom returns the production Shuffler. It is safe for concurrent use.
func NewRandom() Shuffler {
	return globalRandom{}
}

type globalRandom struct{}

func (globalRandom) Shuffle(n int, swap func(i, j int)) {
	rand.Shuffle(n, swap)
}

// Clock supplies the current instant
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock in UTC
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }

// FixedClock always returns T. Advance moves it forward.
type FixedClock struct {
	T time.Time
}

func (c *FixedClock) Now() time.Time { return c.T }

func (c *FixedClock) Advance(d time.Duration) { c.T = c.T.Add(d) }
