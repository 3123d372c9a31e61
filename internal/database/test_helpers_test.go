package database

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// createTestStore opens and initializes a SQLite store in a temp directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	s := openTestStore(t)
	require.NoError(t, s.Init(context.Background()))
	return s
}

// openTestStore opens a store without initializing it.
func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(Options{
		Driver: DriverSQLite,
		DSN:    filepath.Join(t.TempDir(), "test.db"),
		Clock:  fixedClock(testNow),
	})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

var testNow = time.Date(2024, 3, 10, 9, 30, 0, 0, time.UTC)

type fixedClock time.Time

func (c fixedClock) Now() time.Time { return time.Time(c) }
