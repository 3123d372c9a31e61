package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/example/vocabmaster/pkg/models"
)

const wordColumns = "id, headword, phonetic, translation, example, tags, frequency_band, starred"

// GetFullCatalog returns every catalog item ordered by id
func (s *Store) GetFullCatalog(ctx context.Context) ([]models.Word, error) {
	ctx, cancel, err := s.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()

	words := []models.Word{}
	if err := s.db.SelectContext(ctx, &words, "SELECT "+wordColumns+" FROM words ORDER BY id"); err != nil {
		return nil, unavailable("get catalog", err)
	}
	return words, nil
}

// GetWord returns one catalog item, or ErrNotFound
func (s *Store) GetWord(ctx context.Context, id int64) (*models.Word, error) {
	ctx, cancel, err := s.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()

	var word models.Word
	err = s.db.GetContext(ctx, &word, s.db.Rebind("SELECT "+wordColumns+" FROM words WHERE id = ?"), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("word %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, unavailable("get word", err)
	}
	return &word, nil
}

// FindByHeadword returns the catalog item whose trimmed, lower-cased headword
// equals the normalized query, or nil if there is none.
func (s *Store) FindByHeadword(ctx context.Context, headword string) (*models.Word, error) {
	ctx, cancel, err := s.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()

	var word models.Word
	err = s.db.GetContext(ctx, &word,
		s.db.Rebind("SELECT "+wordColumns+" FROM words WHERE LOWER(TRIM(headword)) = ? ORDER BY id LIMIT 1"),
		models.NormalizeHeadword(headword))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, unavailable("find by headword", err)
	}
	return &word, nil
}

// UpsertCatalogItems inserts or replaces items atomically: after a failure none of
// them are visible. Items without an id get the next free ids in input order.
// The returned slice carries the assigned ids.
func (s *Store) UpsertCatalogItems(ctx context.Context, items []models.Word) ([]models.Word, error) {
	ctx, cancel, err := s.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()

	out := make([]models.Word, len(items))
	copy(out, items)
	if len(out) == 0 {
		return out, nil
	}

	err = s.inTx(ctx, "upsert catalog", func(tx *sqlx.Tx) error {
		var next int64
		if err := tx.GetContext(ctx, &next, "SELECT COALESCE(MAX(id), 0) FROM words"); err != nil {
			return unavailable("upsert catalog", err)
		}
		for _, w := range out {
			if w.ID > next {
				next = w.ID
			}
		}

		stmt, err := tx.PrepareNamedContext(ctx, `
			INSERT INTO words (id, headword, phonetic, translation, example, tags, frequency_band, starred)
			VALUES (:id, :headword, :phonetic, :translation, :example, :tags, :frequency_band, :starred)
			ON CONFLICT (id) DO UPDATE SET
				headword = excluded.headword,
				phonetic = excluded.phonetic,
				translation = excluded.translation,
				example = excluded.example,
				tags = excluded.tags,
				frequency_band = excluded.frequency_band,
				starred = excluded.starred`)
		if err != nil {
			return unavailable("upsert catalog", err)
		}
		defer stmt.Close()

		for i := range out {
			if out[i].ID <= 0 {
				next++
				out[i].ID = next
			}
			if out[i].Tags == nil {
				out[i].Tags = models.Tags{}
			}
			if _, err := stmt.ExecContext(ctx, out[i]); err != nil {
				return unavailable("upsert catalog", fmt.Errorf("word %d: %w", out[i].ID, err))
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Debug("catalog upserted", "count", len(out))
	return out, nil
}

// AddItem appends a new catalog item with id = max(existing ids) + 1 and returns
// that id. The id read and the insert share one transaction.
func (s *Store) AddItem(ctx context.Context, item models.Word) (int64, error) {
	ctx, cancel, err := s.begin(ctx)
	if err != nil {
		return 0, err
	}
	defer cancel()

	var id int64
	err = s.inTx(ctx, "add item", func(tx *sqlx.Tx) error {
		if err := tx.GetContext(ctx, &id, "SELECT COALESCE(MAX(id), 0) + 1 FROM words"); err != nil {
			return unavailable("add item", err)
		}
		item.ID = id
		item.Starred = false
		if item.Tags == nil {
			item.Tags = models.Tags{}
		}
		_, err := tx.NamedExecContext(ctx, `
			INSERT INTO words (id, headword, phonetic, translation, example, tags, frequency_band, starred)
			VALUES (:id, :headword, :phonetic, :translation, :example, :tags, :frequency_band, :starred)`, item)
		if err != nil {
			return unavailable("add item", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// ToggleStar flips the starred flag of a catalog item and returns the new value.
// Stars are global to the catalog, not per user.
func (s *Store) ToggleStar(ctx context.Context, id int64) (bool, error) {
	ctx, cancel, err := s.begin(ctx)
	if err != nil {
		return false, err
	}
	defer cancel()

	var starred bool
	err = s.inTx(ctx, "toggle star", func(tx *sqlx.Tx) error {
		err := tx.GetContext(ctx, &starred, tx.Rebind("SELECT starred FROM words WHERE id = ?"), id)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("word %d: %w", id, ErrNotFound)
		}
		if err != nil {
			return unavailable("toggle star", err)
		}
		starred = !starred
		if _, err := tx.ExecContext(ctx, tx.Rebind("UPDATE words SET starred = ? WHERE id = ?"), starred, id); err != nil {
			return unavailable("toggle star", err)
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return starred, nil
}
