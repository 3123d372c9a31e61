package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/example/vocabmaster/pkg/models"
)

// GetLookup returns a cached dictionary entry for headword, or nil
func (s *Store) GetLookup(ctx context.Context, headword string) (*models.LookupEntry, error) {
	ctx, cancel, err := s.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()

	var payload string
	err = s.db.GetContext(ctx, &payload,
		s.db.Rebind("SELECT payload FROM lookup_cache WHERE headword = ?"), models.NormalizeHeadword(headword))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, unavailable("get lookup", err)
	}

	var entry models.LookupEntry
	if err := json.Unmarshal([]byte(payload), &entry); err != nil {
		return nil, fmt.Errorf("failed to decode cached entry for %q: %w", headword, err)
	}
	return &entry, nil
}

// PutLookup caches entry under its normalized headword
func (s *Store) PutLookup(ctx context.Context, entry models.LookupEntry) error {
	payload, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to encode entry: %w", err)
	}

	ctx, cancel, err := s.begin(ctx)
	if err != nil {
		return err
	}
	defer cancel()

	_, err = s.db.ExecContext(ctx, s.db.Rebind(`
		INSERT INTO lookup_cache (headword, payload, created_at) VALUES (?, ?, ?)
		ON CONFLICT (headword) DO UPDATE SET payload = excluded.payload, created_at = excluded.created_at`),
		models.NormalizeHeadword(entry.Headword), string(payload), s.clock.Now().UTC())
	if err != nil {
		return unavailable("put lookup", err)
	}
	return nil
}
