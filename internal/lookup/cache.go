package lookup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/example/vocabmaster/pkg/models"
)

// Cache is one tier of the lookup cache. Get returns nil on a miss.
type Cache interface {
	Get(ctx context.Context, headword string) (*models.LookupEntry, error)
	Set(ctx context.Context, entry models.LookupEntry) error
}

// EntryStore is the persistent lookup_cache collection
type EntryStore interface {
	GetLookup(ctx context.Context, headword string) (*models.LookupEntry, error)
	PutLookup(ctx context.Context, entry models.LookupEntry) error
}

// StoreCache keeps entries in the progress store
type StoreCache struct {
	store EntryStore
}

func NewStoreCache(store EntryStore) *StoreCache {
	return &StoreCache{store: store}
}

func (c *StoreCache) Get(ctx context.Context, headword string) (*models.LookupEntry, error) {
	return c.store.GetLookup(ctx, headword)
}

func (c *StoreCache) Set(ctx context.Context, entry models.LookupEntry) error {
	return c.store.PutLookup(ctx, entry)
}

// RedisCache shares entries between processes with a TTL
type RedisCache struct {
	rdb *redis.Client
	ttl time.Duration
}

const redisKeyPrefix = "vocab:lookup:"

// NewRedisCache connects to addr and verifies the connection
func NewRedisCache(ctx context.Context, addr string, ttl time.Duration) (*RedisCache, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &RedisCache{rdb: rdb, ttl: ttl}, nil
}

func (c *RedisCache) Get(ctx context.Context, headword string) (*models.LookupEntry, error) {
	raw, err := c.rdb.Get(ctx, redisKeyPrefix+models.NormalizeHeadword(headword)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var entry models.LookupEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

func (c *RedisCache) Set(ctx context.Context, entry models.LookupEntry) error {
	raw, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, redisKeyPrefix+models.NormalizeHeadword(entry.Headword), raw, c.ttl).Err()
}

func (c *RedisCache) Close() error {
	return c.rdb.Close()
}
