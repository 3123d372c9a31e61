package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/example/vocabmaster/internal/catalog"
	"github.com/example/vocabmaster/internal/config"
	"github.com/example/vocabmaster/internal/database"
	"github.com/example/vocabmaster/internal/logger"
	"github.com/example/vocabmaster/internal/lookup"
	"github.com/example/vocabmaster/internal/quiz"
	"github.com/example/vocabmaster/internal/session"
)

// app is the wired set of components one command runs against
type app struct {
	cfg   *config.Config
	log   *logger.Logger
	store *database.Store
	redis *lookup.RedisCache
	clock session.Clock
}

// openApp loads configuration, opens the store and brings its schema up to date
func openApp(ctx context.Context, cmd *cobra.Command) (*app, error) {
	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return nil, err
	}
	log, err := logger.New(cfg.Log.Mode)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	clock := session.SystemClock{}
	store, err := database.Open(database.Options{
		Driver:  cfg.Database.Driver,
		DSN:     cfg.Database.DSN,
		Timeout: cfg.Database.Timeout,
		Clock:   clock,
		Logger:  log,
	})
	if err != nil {
		return nil, err
	}
	if err := store.Init(ctx); err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to initialize store: %w", err)
	}
	return &app{cfg: cfg, log: log, store: store, clock: clock}, nil
}

func (a *app) Close() {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.log.Warn("failed to close redis", "error", err)
		}
	}
	if err := a.store.Close(); err != nil {
		a.log.Warn("failed to close store", "error", err)
	}
	a.log.Sync()
}

// lookupService builds the lookup chain: Redis when configured, then the
// store's own cache, then OpenAI when a key is set
func (a *app) lookupService(ctx context.Context) (*lookup.Service, error) {
	var tiers []lookup.Cache
	if a.cfg.Redis.Addr != "" {
		rc, err := lookup.NewRedisCache(ctx, a.cfg.Redis.Addr, a.cfg.Redis.TTL)
		if err != nil {
			a.log.Warn("redis unavailable, continuing without it", "addr", a.cfg.Redis.Addr, "error", err)
		} else {
			a.redis = rc
			tiers = append(tiers, rc)
		}
	}
	tiers = append(tiers, lookup.NewStoreCache(a.store))

	var provider lookup.Provider
	if a.cfg.OpenAI.Key != "" {
		p, err := lookup.NewOpenAIProvider(a.cfg.OpenAI.Key, a.cfg.OpenAI.URL, a.cfg.OpenAI.Model)
		if err != nil {
			return nil, err
		}
		provider = p
	} else {
		a.log.Info("no OpenAI key configured, lookups are served from cache only")
	}
	return lookup.NewService(provider, a.log, tiers...), nil
}

func (a *app) catalog(definer catalog.Definer) *catalog.Catalog {
	return catalog.New(a.store, definer, a.log)
}

func (a *app) workflow() *session.Workflow {
	return session.NewWorkflow(a.store, session.Options{
		Clock:          a.clock,
		Random:         session.NewRandom(),
		DefaultDataset: a.cfg.Library.Dataset,
		Logger:         a.log,
	})
}

func (a *app) quiz() *quiz.Module {
	return quiz.NewModule(a.store, a.log)
}
