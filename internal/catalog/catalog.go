package catalog

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/example/vocabmaster/internal/logger"
	"github.com/example/vocabmaster/pkg/models"
)

// Store is the catalog half of the progress store
type Store interface {
	GetFullCatalog(ctx context.Context) ([]models.Word, error)
	UpsertCatalogItems(ctx context.Context, items []models.Word) ([]models.Word, error)
	AddItem(ctx context.Context, item models.Word) (int64, error)
	FindByHeadword(ctx context.Context, headword string) (*models.Word, error)
}

// Definer produces a short dictionary entry for an unknown headword. A nil entry
// with a nil error means the word could not be defined.
type Definer interface {
	QuickDefine(ctx context.Context, headword string) (*models.LookupEntry, error)
}

// Catalog glues seeding, import and scanning onto the shared word catalog
type Catalog struct {
	store   Store
	definer Definer
	log     *logger.Logger
}

// New creates a catalog. definer may be nil, in which case scanned words are
// added without a definition.
func New(store Store, definer Definer, log *logger.Logger) *Catalog {
	if log == nil {
		log = logger.Nop()
	}
	return &Catalog{store: store, definer: definer, log: log.With("component", "catalog")}
}

// EnsureDataset seeds the built-in dataset id unless the catalog already holds
// items tagged with it. Words already in the catalog under the same headword
// gain the dataset tag instead of being duplicated. Returns the number of
// items written.
func (c *Catalog) EnsureDataset(ctx context.Context, id string) (int, error) {
	ds, ok, err := FindDataset(id)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, fmt.Errorf("unknown dataset %q", id)
	}

	existing, err := c.store.GetFullCatalog(ctx)
	if err != nil {
		return 0, err
	}
	byHeadword := make(map[string]models.Word, len(existing))
	for _, w := range existing {
		if w.Tags.Has(id) {
			return 0, nil
		}
		key := w.NormalizedHeadword()
		if _, seen := byHeadword[key]; !seen {
			byHeadword[key] = w
		}
	}

	items := make([]models.Word, 0, len(ds.Words))
	for _, w := range ds.Words {
		if prev, found := byHeadword[w.NormalizedHeadword()]; found {
			prev.Tags = prev.Tags.With(id)
			items = append(items, prev)
			continue
		}
		items = append(items, w)
	}

	if _, err := c.store.UpsertCatalogItems(ctx, items); err != nil {
		return 0, err
	}
	c.log.Info("dataset seeded", "dataset", id, "items", len(items))
	return len(items), nil
}

// MergeNew returns the incoming words whose trimmed, lower-cased headword is not
// already in existing, keeping the first of any duplicates within incoming.
func MergeNew(existing, incoming []models.Word) []models.Word {
	seen := make(map[string]struct{}, len(existing)+len(incoming))
	for _, w := range existing {
		seen[w.NormalizedHeadword()] = struct{}{}
	}
	out := make([]models.Word, 0, len(incoming))
	for _, w := range incoming {
		key := w.NormalizedHeadword()
		if key == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, w)
	}
	return out
}

// Import adds the words not already in the catalog, tagged imported, with fresh ids
func (c *Catalog) Import(ctx context.Context, words []models.Word) ([]models.Word, error) {
	existing, err := c.store.GetFullCatalog(ctx)
	if err != nil {
		return nil, err
	}

	fresh := MergeNew(existing, words)
	for i := range fresh {
		fresh[i].ID = 0
		fresh[i].Headword = strings.TrimSpace(fresh[i].Headword)
		fresh[i].Tags = fresh[i].Tags.With(models.TagImported)
		fresh[i].Starred = false
	}
	if len(fresh) == 0 {
		return fresh, nil
	}

	added, err := c.store.UpsertCatalogItems(ctx, fresh)
	if err != nil {
		return nil, err
	}
	c.log.Info("words imported", "received", len(words), "added", len(added))
	return added, nil
}

var stopWords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "are": {}, "was": {}, "were": {},
	"you": {}, "this": {}, "that": {}, "with": {}, "from": {}, "have": {},
}

// Candidates cleans raw OCR tokens: punctuation is stripped, only purely
// alphabetic tokens longer than two letters survive, lower-cased, deduplicated,
// in first-seen order.
func Candidates(tokens []string) []string {
	seen := make(map[string]struct{}, len(tokens))
	out := make([]string, 0, len(tokens))
	for _, raw := range tokens {
		for _, field := range strings.Fields(raw) {
			tok := strings.ToLower(strings.TrimFunc(field, func(r rune) bool {
				return !unicode.IsLetter(r)
			}))
			if len([]rune(tok)) <= 2 || !isAlpha(tok) {
				continue
			}
			if _, stop := stopWords[tok]; stop {
				continue
			}
			if _, dup := seen[tok]; dup {
				continue
			}
			seen[tok] = struct{}{}
			out = append(out, tok)
		}
	}
	return out
}

func isAlpha(s string) bool {
	for _, r := range s {
		if r > unicode.MaxASCII || !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}

// Resolve returns the catalog item for token, or a not-yet-stored item built
// from a quick definition. found reports whether the item is already in the catalog.
func (c *Catalog) Resolve(ctx context.Context, token string) (word *models.Word, found bool, err error) {
	existing, err := c.store.FindByHeadword(ctx, token)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		return existing, true, nil
	}

	w := &models.Word{Headword: models.NormalizeHeadword(token), Tags: models.Tags{}}
	if c.definer == nil {
		return w, false, nil
	}
	entry, err := c.definer.QuickDefine(ctx, w.Headword)
	if err != nil {
		// a failed definition still lets the word be added
		c.log.Warn("quick define failed", "word", w.Headword, "error", err)
		return w, false, nil
	}
	if entry != nil {
		w.Translation = entry.Translation
		w.Phonetic = entry.Phonetic
		w.Example = entry.Example
	}
	return w, false, nil
}

// AddScanned makes token part of the scanned library. An existing item gains
// the scanned tag; an unknown one is defined and appended. added reports
// whether a new catalog item was created.
func (c *Catalog) AddScanned(ctx context.Context, token string) (word models.Word, added bool, err error) {
	w, found, err := c.Resolve(ctx, token)
	if err != nil {
		return models.Word{}, false, err
	}

	if found {
		if w.Tags.Has(models.TagScanned) {
			return *w, false, nil
		}
		w.Tags = w.Tags.With(models.TagScanned)
		if _, err := c.store.UpsertCatalogItems(ctx, []models.Word{*w}); err != nil {
			return models.Word{}, false, err
		}
		return *w, false, nil
	}

	w.Tags = w.Tags.With(models.TagScanned)
	id, err := c.store.AddItem(ctx, *w)
	if err != nil {
		return models.Word{}, false, err
	}
	w.ID = id
	c.log.Debug("scanned word added", "word", w.Headword, "id", id)
	return *w, true, nil
}
