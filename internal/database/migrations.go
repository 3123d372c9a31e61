package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// Collections, one versioned schema each
const (
	CollectionCatalog     = "catalog"
	CollectionProgress    = "progress"
	CollectionMistakes    = "mistakes"
	CollectionActivity    = "activity"
	CollectionUsers       = "users"
	CollectionLookupCache = "lookup_cache"
	CollectionQuizResults = "quiz_results"
)

// collectionTables lists the tables WipeAll clears, children before parents
var collectionTables = []string{
	"quiz_results",
	"lookup_cache",
	"activity",
	"mistakes",
	"progress",
	"users",
	"words",
}

// Migration moves one collection from Version-1 to Version. A Reset migration
// discards the collection's rows instead of transforming them.
type Migration struct {
	Collection  string
	Version     int
	Description string
	Reset       bool
	Statements  []string
}

var migrations = []Migration{
	{
		Collection:  CollectionCatalog,
		Version:     1,
		Description: "create words",
		Statements: []string{`
			CREATE TABLE IF NOT EXISTS words (
				id BIGINT PRIMARY KEY,
				headword TEXT NOT NULL,
				phonetic TEXT NOT NULL DEFAULT '',
				translation TEXT NOT NULL DEFAULT '',
				example TEXT NOT NULL DEFAULT '',
				tags TEXT NOT NULL DEFAULT '[]',
				starred BOOLEAN NOT NULL DEFAULT FALSE
			)`,
		},
	},
	{
		Collection:  CollectionCatalog,
		Version:     2,
		Description: "add frequency band and headword index",
		Statements: []string{
			`ALTER TABLE words ADD COLUMN frequency_band TEXT NOT NULL DEFAULT ''`,
			`CREATE INDEX IF NOT EXISTS idx_words_headword ON words (headword)`,
		},
	},
	{
		Collection:  CollectionProgress,
		Version:     1,
		Description: "create progress",
		Statements: []string{`
			CREATE TABLE IF NOT EXISTS progress (
				user_id TEXT NOT NULL,
				word_id BIGINT NOT NULL,
				repetitions INTEGER NOT NULL DEFAULT 0,
				interval_days INTEGER NOT NULL DEFAULT 0,
				easiness_factor DOUBLE PRECISION NOT NULL DEFAULT 2.5,
				next_review_at TIMESTAMP NOT NULL,
				last_reviewed_at TIMESTAMP,
				PRIMARY KEY (user_id, word_id)
			)`,
		},
	},
	{
		Collection:  CollectionMistakes,
		Version:     1,
		Description: "create mistakes",
		Statements: []string{`
			CREATE TABLE IF NOT EXISTS mistakes (
				user_id TEXT NOT NULL,
				word_id BIGINT NOT NULL,
				added_at TIMESTAMP NOT NULL,
				PRIMARY KEY (user_id, word_id)
			)`,
		},
	},
	{
		Collection:  CollectionActivity,
		Version:     1,
		Description: "create activity",
		Statements: []string{`
			CREATE TABLE IF NOT EXISTS activity (
				user_id TEXT NOT NULL,
				day TEXT NOT NULL,
				review_count INTEGER NOT NULL DEFAULT 0,
				PRIMARY KEY (user_id, day)
			)`,
		},
	},
	{
		Collection:  CollectionActivity,
		Version:     2,
		Description: "count words learned per day",
		Statements: []string{
			`ALTER TABLE activity ADD COLUMN learned_count INTEGER NOT NULL DEFAULT 0`,
		},
	},
	{
		Collection:  CollectionUsers,
		Version:     1,
		Description: "create users",
		Statements: []string{`
			CREATE TABLE IF NOT EXISTS users (
				username TEXT PRIMARY KEY,
				created_at TIMESTAMP NOT NULL,
				points INTEGER NOT NULL DEFAULT 0
			)`,
		},
	},
	{
		Collection:  CollectionUsers,
		Version:     2,
		Description: "add credentials, chat link and active dataset",
		Statements: []string{
			`ALTER TABLE users ADD COLUMN password_hash TEXT NOT NULL DEFAULT ''`,
			`ALTER TABLE users ADD COLUMN chat_id BIGINT`,
			`ALTER TABLE users ADD COLUMN active_dataset TEXT NOT NULL DEFAULT ''`,
		},
	},
	{
		Collection:  CollectionUsers,
		Version:     3,
		Description: "add daily study target",
		Statements: []string{
			`ALTER TABLE users ADD COLUMN daily_target INTEGER NOT NULL DEFAULT 20`,
		},
	},
	{
		Collection:  CollectionLookupCache,
		Version:     1,
		Description: "create lookup cache",
		Statements: []string{`
			CREATE TABLE IF NOT EXISTS lookup_cache (
				headword TEXT PRIMARY KEY,
				translation TEXT NOT NULL DEFAULT '',
				created_at TIMESTAMP NOT NULL
			)`,
		},
	},
	{
		Collection:  CollectionLookupCache,
		Version:     2,
		Description: "store whole entries as JSON",
		Reset:       true,
		Statements: []string{
			`DROP TABLE IF EXISTS lookup_cache`,
			`CREATE TABLE lookup_cache (
				headword TEXT PRIMARY KEY,
				payload TEXT NOT NULL,
				created_at TIMESTAMP NOT NULL
			)`,
		},
	},
	{
		Collection:  CollectionQuizResults,
		Version:     1,
		Description: "create quiz results",
		Statements: []string{`
			CREATE TABLE IF NOT EXISTS quiz_results (
				user_id TEXT NOT NULL,
				id TEXT NOT NULL,
				mode TEXT NOT NULL,
				total INTEGER NOT NULL,
				correct INTEGER NOT NULL,
				taken_at TIMESTAMP NOT NULL,
				PRIMARY KEY (user_id, id)
			)`,
		},
	},
}

// migrate applies every pending migration, each in its own transaction, so a
// failure in one collection never touches another.
func (s *Store) migrate(ctx context.Context, list []Migration) error {
	if _, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_versions (
			collection TEXT PRIMARY KEY,
			version INTEGER NOT NULL
		)`); err != nil {
		return unavailable("migrate", err)
	}

	for _, m := range list {
		err := s.inTx(ctx, "migrate", func(tx *sqlx.Tx) error {
			var current int
			err := tx.GetContext(ctx, &current,
				tx.Rebind("SELECT COALESCE(MAX(version), 0) FROM schema_versions WHERE collection = ?"),
				m.Collection)
			if err != nil {
				return unavailable("migrate", err)
			}
			if current >= m.Version {
				return nil
			}

			for _, stmt := range m.Statements {
				if _, err := tx.ExecContext(ctx, stmt); err != nil {
					return unavailable("migrate", fmt.Errorf("%s v%d: %w", m.Collection, m.Version, err))
				}
			}

			_, err = tx.ExecContext(ctx, tx.Rebind(`
				INSERT INTO schema_versions (collection, version) VALUES (?, ?)
				ON CONFLICT (collection) DO UPDATE SET version = excluded.version`),
				m.Collection, m.Version)
			if err != nil {
				return unavailable("migrate", err)
			}

			if m.Reset {
				s.log.Warn("collection reset by migration",
					"collection", m.Collection, "from", current, "to", m.Version, "description", m.Description)
			} else {
				s.log.Info("collection migrated",
					"collection", m.Collection, "from", current, "to", m.Version, "description", m.Description)
			}
			return nil
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// SchemaVersions reports the applied version of every collection
func (s *Store) SchemaVersions(ctx context.Context) (map[string]int, error) {
	ctx, cancel, err := s.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()

	var rows []struct {
		Collection string `db:"collection"`
		Version    int    `db:"version"`
	}
	if err := s.db.SelectContext(ctx, &rows, "SELECT collection, version FROM schema_versions"); err != nil {
		return nil, unavailable("schema versions", err)
	}
	out := make(map[string]int, len(rows))
	for _, r := range rows {
		out[r.Collection] = r.Version
	}
	return out, nil
}
