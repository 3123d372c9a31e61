package catalog

import "github.com/example/vocabmaster/pkg/models"

// Library is the slice of the shared catalog a user is currently working on:
// the items of their selected dataset plus anything they imported or scanned.
type Library struct {
	DatasetID string
}

// Contains reports whether w belongs to the library
func (l Library) Contains(w models.Word) bool {
	if l.DatasetID != "" && w.Tags.Has(l.DatasetID) {
		return true
	}
	return w.Tags.Has(models.TagImported) || w.Tags.Has(models.TagScanned)
}

// Filter returns the library members of words, preserving order
func (l Library) Filter(words []models.Word) []models.Word {
	out := make([]models.Word, 0, len(words))
	for _, w := range words {
		if l.Contains(w) {
			out = append(out, w)
		}
	}
	return out
}
