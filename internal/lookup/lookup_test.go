package lookup

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/vocabmaster/internal/database"
	"github.com/example/vocabmaster/pkg/models"
)

type fakeProvider struct {
	entries map[string]models.LookupEntry
	lookups int
	quick   int
}

func (f *fakeProvider) Lookup(_ context.Context, headword string) (*models.LookupEntry, error) {
	f.lookups++
	e, ok := f.entries[headword]
	if !ok {
		return nil, nil
	}
	return &e, nil
}

func (f *fakeProvider) QuickDefine(_ context.Context, headword string) (*models.LookupEntry, error) {
	f.quick++
	e, ok := f.entries[headword]
	if !ok {
		return nil, nil
	}
	return &models.LookupEntry{Headword: e.Headword, Translation: e.Translation}, nil
}

type memCache struct {
	entries map[string]models.LookupEntry
	failGet bool
}

func (m *memCache) Get(_ context.Context, headword string) (*models.LookupEntry, error) {
	if m.failGet {
		return nil, errors.New("connection refused")
	}
	e, ok := m.entries[models.NormalizeHeadword(headword)]
	if !ok {
		return nil, nil
	}
	return &e, nil
}

func (m *memCache) Set(_ context.Context, entry models.LookupEntry) error {
	m.entries[models.NormalizeHeadword(entry.Headword)] = entry
	return nil
}

func createTestStore(t *testing.T) *database.Store {
	t.Helper()
	s, err := database.Open(database.Options{DSN: filepath.Join(t.TempDir(), "lookup.db")})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Init(context.Background()))
	return s
}

func TestService_CachesProviderAnswers(t *testing.T) {
	store := createTestStore(t)
	provider := &fakeProvider{entries: map[string]models.LookupEntry{
		"lucid": {Headword: "lucid", Translation: "clear", Mnemonic: "lucid = light"},
	}}
	front := &memCache{entries: map[string]models.LookupEntry{}}
	svc := NewService(provider, nil, front, NewStoreCache(store))
	ctx := context.Background()

	entry, err := svc.Lookup(ctx, "  Lucid ")
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, "lucid = light", entry.Mnemonic)
	assert.Equal(t, 1, provider.lookups)

	_, err = svc.Lookup(ctx, "LUCID")
	require.NoError(t, err)
	assert.Equal(t, 1, provider.lookups, "second lookup served from cache")

	persisted, err := store.GetLookup(ctx, "lucid")
	require.NoError(t, err)
	require.NotNil(t, persisted)

	// a cold front tier is refilled from the store tier
	front.entries = map[string]models.LookupEntry{}
	_, err = svc.Lookup(ctx, "lucid")
	require.NoError(t, err)
	assert.Equal(t, 1, provider.lookups)
	assert.Contains(t, front.entries, "lucid")
}

func TestService_AbsentNotCached(t *testing.T) {
	provider := &fakeProvider{entries: map[string]models.LookupEntry{}}
	cache := &memCache{entries: map[string]models.LookupEntry{}}
	svc := NewService(provider, nil, cache)
	ctx := context.Background()

	entry, err := svc.Lookup(ctx, "qwzx")
	require.NoError(t, err)
	assert.Nil(t, entry)
	_, err = svc.Lookup(ctx, "qwzx")
	require.NoError(t, err)
	assert.Equal(t, 2, provider.lookups)
	assert.Empty(t, cache.entries)

	_, err = svc.Lookup(ctx, "   ")
	assert.ErrorIs(t, err, ErrEmptyHeadword)
}

func TestService_CacheFailureFallsThrough(t *testing.T) {
	provider := &fakeProvider{entries: map[string]models.LookupEntry{"vivid": {Headword: "vivid", Translation: "bright"}}}
	svc := NewService(provider, nil, &memCache{entries: map[string]models.LookupEntry{}, failGet: true})

	entry, err := svc.Lookup(context.Background(), "vivid")
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, "bright", entry.Translation)
}

func TestService_QuickDefine(t *testing.T) {
	provider := &fakeProvider{entries: map[string]models.LookupEntry{"vivid": {Headword: "vivid", Translation: "bright"}}}
	cache := &memCache{entries: map[string]models.LookupEntry{}}
	svc := NewService(provider, nil, cache)
	ctx := context.Background()

	entry, err := svc.QuickDefine(ctx, "vivid")
	require.NoError(t, err)
	assert.Equal(t, "bright", entry.Translation)
	assert.Empty(t, cache.entries)

	_, err = svc.Lookup(ctx, "vivid")
	require.NoError(t, err)
	_, err = svc.QuickDefine(ctx, "vivid")
	require.NoError(t, err)
	assert.Equal(t, 1, provider.quick, "full cached entry reused")
}

func TestOpenAIProvider(t *testing.T) {
	var got ChatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		content := "```json\n" + `{"word":"lucid","translation":"clear","phonetic":"/ˈluːsɪd/","example":"A lucid explanation.","cognates":["lucent"]}` + "\n```"
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{{"message": map[string]string{"content": content}}},
		})
	}))
	defer srv.Close()

	p, err := NewOpenAIProvider("key", srv.URL, "test-model")
	require.NoError(t, err)

	entry, err := p.Lookup(context.Background(), "lucid")
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, "clear", entry.Translation)
	assert.Equal(t, []string{"lucent"}, entry.Cognates)
	assert.Equal(t, "test-model", got.Model)
	assert.Equal(t, "json_object", got.ResponseFormat.Type)

	_, err = NewOpenAIProvider("", "", "")
	assert.Error(t, err)
}

func TestOpenAIProvider_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"rate limited"}}`))
	}))
	defer srv.Close()

	p, err := NewOpenAIProvider("key", srv.URL, "")
	require.NoError(t, err)
	_, err = p.QuickDefine(context.Background(), "lucid")
	assert.ErrorContains(t, err, "rate limited")
}
