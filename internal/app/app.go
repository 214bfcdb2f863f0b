// Package app assembles the engine and its collaborators from configuration.
package app

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/prompt-general/cscx/internal/cache"
	"github.com/prompt-general/cscx/internal/config"
	"github.com/prompt-general/cscx/internal/expansion"
	"github.com/prompt-general/cscx/internal/graph"
	"github.com/prompt-general/cscx/internal/health"
	"github.com/prompt-general/cscx/internal/kafka"
	"github.com/prompt-general/cscx/internal/llm"
	"github.com/prompt-general/cscx/internal/store"
	"github.com/prompt-general/cscx/internal/telemetry"
)

const (
	cachePrefix   = "cscx:"
	slowPingLimit = 250 * time.Millisecond
)

// App owns every long-lived connection of one process
type App struct {
	Config *config.Config
	Store  *store.Cached
	Graph  *graph.StakeholderGraph
	Redis  *cache.RedisCache
	Cache  *cache.Layered
	Engine *expansion.Engine

	closers []func(context.Context) error
}

// New opens the store, the optional cache and graph tiers, the text generator and
// tracing, then builds the engine over them. Close releases everything opened.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{Config: cfg}
	if err := a.init(ctx); err != nil {
		a.Close(context.Background())
		return nil, err
	}
	return a, nil
}

func (a *App) init(ctx context.Context) error {
	cfg := a.Config
	logger := zap.L().Named("app")

	shutdownTracing, err := telemetry.InitTracing(ctx, cfg.Tracing)
	if err != nil {
		return err
	}
	a.closers = append(a.closers, shutdownTracing)

	sqlStore, err := store.Open(ctx, cfg.Database)
	if err != nil {
		return err
	}
	a.closers = append(a.closers, func(context.Context) error { return sqlStore.Close() })

	var remote cache.Remote
	if cfg.Redis.Enabled {
		a.Redis = cache.NewRedisCache(cfg.Redis, cachePrefix)
		a.closers = append(a.closers, func(context.Context) error { return a.Redis.Close() })
		if err := a.Redis.Ping(ctx); err != nil {
			logger.Warn("redis unreachable, continuing with local cache", zap.Error(err))
		}
		remote = a.Redis
	}
	a.Cache = cache.NewLayered(cfg.Redis.LocalTTL, remote, cfg.Redis.TTL)
	a.Store = store.NewCached(sqlStore, a.Cache)

	var stakeholders expansion.StakeholderSource = a.Store
	if cfg.Graph.Enabled {
		a.Graph, err = graph.NewStakeholderGraph(ctx, cfg.Graph)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, a.Graph.Close)
		stakeholders = a.Graph
	}

	generator, err := llm.New(cfg.LLM)
	if err != nil {
		return err
	}
	if generator == nil {
		logger.Info("no text generator configured, approaches use templates")
	}

	a.Engine = expansion.NewEngine(cfg.Expansion, expansion.Sources{
		Customers:    a.Store,
		Usage:        a.Store,
		Contracts:    a.Store,
		Stakeholders: stakeholders,
		Meetings:     a.Store,
		History:      a.Store,
	}, generator)
	return nil
}

// Import loads a dataset into the store and mirrors stakeholders into the graph
func (a *App) Import(ctx context.Context, ds store.Dataset) error {
	if err := a.Store.Import(ctx, ds); err != nil {
		return err
	}
	if a.Graph == nil {
		return nil
	}
	for customerID, records := range ds.Stakeholders {
		if err := a.Graph.SyncStakeholders(ctx, customerID, records); err != nil {
			return eris.Wrapf(err, "sync stakeholders for %s", customerID)
		}
	}
	return nil
}

// HealthChecker registers a check for every configured dependency. The database
// is critical; the cache, graph and broker only degrade the service.
func (a *App) HealthChecker() *health.HealthChecker {
	hc := health.NewHealthChecker()
	hc.Register(health.NewPingCheck("database", a.Store.Ping, slowPingLimit, true))
	if a.Redis != nil {
		hc.Register(health.NewPingCheck("redis", a.Redis.Ping, slowPingLimit, false))
	}
	if a.Graph != nil {
		hc.Register(health.NewPingCheck("neo4j", a.Graph.Ping, slowPingLimit, false))
	}
	if len(a.Config.Kafka.Brokers) > 0 {
		tm := kafka.NewTopicManager(a.Config.Kafka.Brokers)
		hc.Register(health.NewPingCheck("kafka", func(ctx context.Context) error {
			_, err := tm.ListTopics(ctx)
			return err
		}, time.Second, false))
	}
	return hc
}

// Close releases resources in reverse order of acquisition
func (a *App) Close(ctx context.Context) error {
	var first error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			zap.L().Warn("close failed", zap.Error(err))
			if first == nil {
				first = err
			}
		}
	}
	a.closers = nil
	return first
}
