package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/aretw0/hashfsm"
	"github.com/aretw0/hashfsm/internal/config"
	"github.com/aretw0/hashfsm/pkg/adapters/memory"
	"github.com/aretw0/hashfsm/pkg/adapters/redis"
	"github.com/aretw0/hashfsm/pkg/engine"
	"github.com/aretw0/hashfsm/pkg/keylock"
	"github.com/aretw0/hashfsm/pkg/observability"
	"github.com/aretw0/hashfsm/pkg/ports"
	"github.com/aretw0/hashfsm/pkg/registry"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	backend "github.com/redis/go-redis/v9"
)

// LockNamespace prefixes the Redis keys of distributed entity locks.
const LockNamespace = "hashfsm:"

// App is a Module wired over the configured backend.
type App struct {
	Config   config.Config
	Module   *hashfsm.Module
	Host     ports.Host
	Notifier ports.Notifier
	Health   func(context.Context) error
	Gatherer prometheus.Gatherer
	Logger   *slog.Logger

	memory  *memory.Store
	closers []func() error
}

// NewApp connects the configured backend and builds the Module over it.
func NewApp(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	app := &App{
		Config: cfg,
		Logger: logger,
		Health: func(context.Context) error { return nil },
	}

	var locks []keylock.Option
	switch cfg.Backend {
	case config.BackendMemory:
		store := memory.NewStore()
		store.RegisterType(registry.DefinitionType{})
		if err := restoreSnapshot(ctx, store, cfg.Snapshot); err != nil {
			return nil, err
		}
		app.memory = store
		app.Host, app.Notifier = store, store
	default:
		client, err := redis.Connect(ctx, cfg.Redis)
		if err != nil {
			return nil, fmt.Errorf("connect %s: %w", cfg.Redis.ConnectionURL, err)
		}
		app.closers = append(app.closers, client.Close)
		app.Host = redis.NewFromClient(client)
		app.Notifier = redis.NewNotifier(client,
			redis.WithKeyspaceConfig(cfg.Redis.ConfigureKeyspace),
			redis.WithNotifierLogger(logger.With("component", "notifier")),
		)
		app.Health = redis.Healthcheck(client)
		locks = append(locks, keylock.WithLocker(redis.NewLocker(client, LockNamespace)))
	}

	locks = append(locks,
		keylock.WithTTL(cfg.LockTTL),
		keylock.WithLogger(logger.With("component", "keylock")),
	)
	strategy, err := engine.NewStrategy(cfg.Strategy, app.Host, keylock.NewManager(locks...))
	if err != nil {
		_ = app.Close()
		return nil, err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := observability.NewMetrics()
	if err := metrics.Register(reg); err != nil {
		_ = app.Close()
		return nil, err
	}
	app.Gatherer = reg

	app.Module = hashfsm.New(app.Host,
		hashfsm.WithLogger(logger),
		hashfsm.WithMetrics(metrics),
		hashfsm.WithStrategy(strategy),
		hashfsm.WithPrefixPolicy(cfg.Policy()),
	)
	return app, nil
}

// Client returns the Redis client when the backend is Redis.
func (a *App) Client() (*backend.Client, bool) {
	h, ok := a.Host.(*redis.Host)
	if !ok {
		return nil, false
	}
	return h.Client(), true
}

// Close writes the memory snapshot, if configured, and releases the backend.
func (a *App) Close() error {
	var errs []error
	if a.memory != nil && a.Config.Snapshot != "" {
		errs = append(errs, writeSnapshot(a.memory, a.Config.Snapshot))
	}
	for _, c := range a.closers {
		errs = append(errs, c())
	}
	a.closers = nil
	return errors.Join(errs...)
}

func restoreSnapshot(ctx context.Context, store *memory.Store, path string) error {
	if path == "" {
		return nil
	}
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("open snapshot: %w", err)
	}
	defer f.Close()
	return store.Restore(ctx, f)
}

func writeSnapshot(store *memory.Store, path string) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create snapshot: %w", err)
	}
	if err := store.Snapshot(f); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	return os.Rename(tmp, path)
}
