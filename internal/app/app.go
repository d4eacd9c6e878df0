// Package app initializes and holds the long-lived frontier services,
// acting as the composition root for the configured backends.
package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/crawlkit/frontier/internal/config"
	"github.com/crawlkit/frontier/internal/frontier"
	"github.com/crawlkit/frontier/internal/metrics"
	"github.com/crawlkit/frontier/internal/storage/hubstore"
	"github.com/crawlkit/frontier/internal/storage/memory"
	"github.com/crawlkit/frontier/internal/storage/postgres"
	"github.com/crawlkit/frontier/internal/storage/redis"
)

// App holds the composed backend facade and its collaborators.
type App struct {
	logger  *zap.Logger
	backend *frontier.Backend
}

// Logger returns the shared zap logger.
func (a *App) Logger() *zap.Logger { return a.logger }

// Backend returns the frontier facade.
func (a *App) Backend() *frontier.Backend { return a.backend }

// New builds every service from configuration. Bad credentials or an
// unreachable backend surface here, not later: construction is the
// fail-fast boundary.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	metrics.Init()

	partitioner, err := frontier.NewPartitioner(cfg.Backend.Partitioner, cfg.Producer.NumberOfSlots)
	if err != nil {
		return nil, err
	}

	queueBackend, err := newQueueBackend(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("initialize queue backend: %w", err)
	}
	stateBackend, err := newStateBackend(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("initialize states backend: %w", err)
	}

	client := frontier.NewQueueClient(queueBackend, frontier.QueueClientConfig{
		FrontierName:  cfg.Frontier.Name,
		BatchSize:     cfg.Producer.BatchSize,
		FlushInterval: time.Duration(cfg.Producer.FlushIntervalSeconds) * time.Second,
	}, nil, logger.Named("queue_client"))

	queue, err := frontier.NewQueue(ctx, client, partitioner, frontier.QueueConfig{
		SlotsCount:     cfg.Producer.NumberOfSlots,
		SlotPrefix:     cfg.Producer.SlotPrefix,
		CleanupOnStart: cfg.Frontier.CleanupOnStart,
	}, nil, logger.Named("queue"))
	if err != nil {
		return nil, err
	}

	states := frontier.NewStates(stateBackend, cfg.States.CacheSizeLimit, logger.Named("states"))
	if cfg.Frontier.CleanupOnStart {
		stats, err := states.Cleanup(ctx)
		if err != nil {
			return nil, fmt.Errorf("cleanup states: %w", err)
		}
		logger.Info("state collection wiped",
			zap.Int("pages", stats.Pages),
			zap.Int("deleted", stats.Deleted),
		)
	}

	backend := frontier.NewBackend(queue, states, memory.NewMetadata(), frontier.OrchestratorConfig{
		ConsumerSlot:  cfg.Producer.SlotPrefix + fmt.Sprintf("%d", cfg.Consumer.Slot),
		MaxIterations: cfg.Consumer.MaxBatches,
	}, logger.Named("backend"))

	return &App{logger: logger, backend: backend}, nil
}

func newQueueBackend(ctx context.Context, cfg config.Config, logger *zap.Logger) (frontier.QueueBackend, error) {
	switch cfg.Backend.Queue {
	case "hubstore":
		client, err := hubstore.NewClient(hubstoreConfig(cfg), logger.Named("hubstore"))
		if err != nil {
			return nil, err
		}
		return hubstore.NewQueueBackend(client), nil
	case "memory":
		return memory.NewQueueBackend(), nil
	case "redis":
		client, err := redis.NewClient(ctx, redisConfig(cfg))
		if err != nil {
			return nil, err
		}
		return redis.NewQueueBackend(client), nil
	case "postgres":
		pool, err := postgres.NewPool(ctx, cfg.Backend.Postgres.DSN)
		if err != nil {
			return nil, err
		}
		return postgres.NewQueueBackend(pool), nil
	default:
		return nil, fmt.Errorf("unknown queue backend %q", cfg.Backend.Queue)
	}
}

func newStateBackend(ctx context.Context, cfg config.Config, logger *zap.Logger) (frontier.StateBackend, error) {
	switch cfg.Backend.States {
	case "hubstore":
		client, err := hubstore.NewClient(hubstoreConfig(cfg), logger.Named("hubstore"))
		if err != nil {
			return nil, err
		}
		return hubstore.NewStateBackend(client, cfg.Frontier.Name), nil
	case "memory":
		return memory.NewStateBackend(0), nil
	case "redis":
		client, err := redis.NewClient(ctx, redisConfig(cfg))
		if err != nil {
			return nil, err
		}
		return redis.NewStateBackend(client, cfg.Frontier.Name), nil
	case "postgres":
		pool, err := postgres.NewPool(ctx, cfg.Backend.Postgres.DSN)
		if err != nil {
			return nil, err
		}
		return postgres.NewStateBackend(pool, cfg.Frontier.Name), nil
	default:
		return nil, fmt.Errorf("unknown states backend %q", cfg.Backend.States)
	}
}

func hubstoreConfig(cfg config.Config) hubstore.Config {
	return hubstore.Config{
		Endpoint:  cfg.Backend.Hubstore.Endpoint,
		APIKey:    cfg.Auth.APIKey,
		ProjectID: cfg.Frontier.ProjectID,
		Timeout:   time.Duration(cfg.Backend.Hubstore.TimeoutSeconds) * time.Second,
	}
}

func redisConfig(cfg config.Config) redis.Config {
	return redis.Config{
		Addr:     cfg.Backend.Redis.Addr,
		Password: cfg.Backend.Redis.Password,
		DB:       cfg.Backend.Redis.DB,
	}
}
