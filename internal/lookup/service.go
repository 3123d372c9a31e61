package lookup

import (
	"context"
	"errors"

	"github.com/example/vocabmaster/internal/logger"
	"github.com/example/vocabmaster/pkg/models"
)

var ErrEmptyHeadword = errors.New("lookup: empty headword")

// Provider is the remote dictionary/mnemonic collaborator. A nil entry with a nil
// error means the word is unknown.
type Provider interface {
	Lookup(ctx context.Context, headword string) (*models.LookupEntry, error)
	QuickDefine(ctx context.Context, headword string) (*models.LookupEntry, error)
}

// Service answers lookups from its cache tiers, in order, and only calls the
// provider on a miss.
type Service struct {
	provider Provider
	tiers    []Cache
	log      *logger.Logger
}

func NewService(provider Provider, log *logger.Logger, tiers ...Cache) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{provider: provider, tiers: tiers, log: log.With("component", "lookup")}
}

// Lookup returns the full entry for headword, or nil if nobody knows it.
// Cache failures are logged and treated as misses.
func (s *Service) Lookup(ctx context.Context, headword string) (*models.LookupEntry, error) {
	key := models.NormalizeHeadword(headword)
	if key == "" {
		return nil, ErrEmptyHeadword
	}

	if entry, tier := s.cached(ctx, key); entry != nil {
		s.fill(ctx, *entry, tier)
		return entry, nil
	}

	if s.provider == nil {
		return nil, nil
	}
	entry, err := s.provider.Lookup(ctx, key)
	if err != nil || entry == nil {
		return nil, err
	}
	entry.Headword = key
	s.fill(ctx, *entry, len(s.tiers))
	return entry, nil
}

// QuickDefine returns a short definition. A cached full entry is reused;
// provider answers are not cached because they lack the full entry's fields.
func (s *Service) QuickDefine(ctx context.Context, headword string) (*models.LookupEntry, error) {
	key := models.NormalizeHeadword(headword)
	if key == "" {
		return nil, ErrEmptyHeadword
	}
	if entry, _ := s.cached(ctx, key); entry != nil {
		return entry, nil
	}
	if s.provider == nil {
		return nil, nil
	}
	return s.provider.QuickDefine(ctx, key)
}

// cached returns the first hit and the index of the tier that had it
func (s *Service) cached(ctx context.Context, key string) (*models.LookupEntry, int) {
	for i, c := range s.tiers {
		entry, err := c.Get(ctx, key)
		if err != nil {
			s.log.Warn("lookup cache read failed", "tier", i, "word", key, "error", err)
			continue
		}
		if entry != nil {
			return entry, i
		}
	}
	return nil, -1
}

// fill writes entry into every tier before upTo
func (s *Service) fill(ctx context.Context, entry models.LookupEntry, upTo int) {
	for i := 0; i < upTo && i < len(s.tiers); i++ {
		if err := s.tiers[i].Set(ctx, entry); err != nil {
			s.log.Warn("lookup cache write failed", "tier", i, "word", entry.Headword, "error", err)
		}
	}
}
