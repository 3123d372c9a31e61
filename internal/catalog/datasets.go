package catalog

import (
	"embed"
	"encoding/json"
	"fmt"
	"path"
	"sort"

	"github.com/example/vocabmaster/pkg/models"
)

//go:embed datasets/*.json
var datasetFS embed.FS

// Datasets returns every built-in seed dataset ordered by id
func Datasets() ([]models.Dataset, error) {
	entries, err := datasetFS.ReadDir("datasets")
	if err != nil {
		return nil, err
	}
	out := make([]models.Dataset, 0, len(entries))
	for _, e := range entries {
		ds, err := readDataset(path.Join("datasets", e.Name()))
		if err != nil {
			return nil, err
		}
		out = append(out, ds)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// FindDataset returns the built-in dataset with the given id
func FindDataset(id string) (models.Dataset, bool, error) {
	all, err := Datasets()
	if err != nil {
		return models.Dataset{}, false, err
	}
	for _, ds := range all {
		if ds.ID == id {
			return ds, true, nil
		}
	}
	return models.Dataset{}, false, nil
}

func readDataset(name string) (models.Dataset, error) {
	raw, err := datasetFS.ReadFile(name)
	if err != nil {
		return models.Dataset{}, err
	}
	var ds models.Dataset
	if err := json.Unmarshal(raw, &ds); err != nil {
		return models.Dataset{}, fmt.Errorf("failed to parse dataset %s: %w", name, err)
	}
	for i := range ds.Words {
		ds.Words[i].ID = 0
		ds.Words[i].Tags = ds.Words[i].Tags.With(ds.ID)
	}
	return ds, nil
}
