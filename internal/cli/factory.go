// Package cli holds the plumbing shared by the cafe commands: building the
// transpiler and the store from configuration, reading inputs and rendering
// reports.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/aretw0/cafe"
	"github.com/aretw0/cafe/internal/config"
	"github.com/aretw0/cafe/pkg/adapters/file"
	"github.com/aretw0/cafe/pkg/adapters/memory"
	"github.com/aretw0/cafe/pkg/adapters/redis"
	"github.com/aretw0/cafe/pkg/adapters/sqlite"
	"github.com/aretw0/cafe/pkg/automation"
	"github.com/aretw0/cafe/pkg/observability"
	"github.com/aretw0/cafe/pkg/persistence/middleware"
	"github.com/aretw0/cafe/pkg/ports"
)

// Backend is an opened automation store with its locker.
type Backend struct {
	Store  ports.AutomationStore
	Locker ports.DistributedLocker
	close  func() error
}

// Close releases the backend's connections.
func (b *Backend) Close() error {
	if b.close == nil {
		return nil
	}
	return b.close()
}

// OpenBackend builds the store selected by cfg.Store.Driver, encrypted at
// rest when a key is configured.
func OpenBackend(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Backend, error) {
	b, err := openDriver(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	enc := cfg.Store.Encryption
	if enc.Key == "" {
		return b, nil
	}

	mcfg := middleware.EncryptionConfig{AllowPlaintext: enc.AllowPlaintext}
	if mcfg.ActiveKey, err = middleware.ParseKey(enc.Key); err != nil {
		_ = b.Close()
		return nil, fmt.Errorf("store.encryption.key: %w", err)
	}
	for i, k := range enc.FallbackKeys {
		key, err := middleware.ParseKey(k)
		if err != nil {
			_ = b.Close()
			return nil, fmt.Errorf("store.encryption.fallback_keys[%d]: %w", i, err)
		}
		mcfg.FallbackKeys = append(mcfg.FallbackKeys, key)
	}
	mw, err := middleware.NewEncryptionMiddleware(mcfg)
	if err != nil {
		_ = b.Close()
		return nil, err
	}
	b.Store = middleware.Chain(b.Store, mw)
	logger.Debug("store encryption enabled", "fallback_keys", len(mcfg.FallbackKeys))
	return b, nil
}

func openDriver(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Backend, error) {
	sc := cfg.Store
	switch sc.Driver {
	case config.DriverMemory, "":
		return &Backend{Store: memory.NewStore(), Locker: memory.NewLocker()}, nil

	case config.DriverFile:
		return &Backend{Store: file.New(sc.Path), Locker: memory.NewLocker()}, nil

	case config.DriverSQLite:
		path := sc.Path
		if filepath.Ext(path) == "" {
			path = filepath.Join(path, "cafe.db")
		}
		store, err := sqlite.Open(path)
		if err != nil {
			return nil, err
		}
		logger.Debug("sqlite store opened", "path", path)
		return &Backend{Store: store, Locker: memory.NewLocker(), close: store.Close}, nil

	case config.DriverRedis:
		prefix := strings.TrimSuffix(sc.Redis.Prefix, ":") + ":"
		store := redis.New(sc.Redis.Addr, sc.Redis.Password, sc.Redis.DB,
			redis.WithPrefix(prefix+"automation:"),
			redis.WithTTL(cfg.RedisTTL()),
		)
		if err := store.Client().Ping(ctx).Err(); err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("connecting to redis at %s: %w", sc.Redis.Addr, err)
		}
		logger.Debug("redis store connected", "addr", sc.Redis.Addr, "prefix", prefix)
		return &Backend{
			Store:  store,
			Locker: redis.NewLocker(store.Client(), prefix),
			close:  store.Close,
		}, nil
	}
	return nil, fmt.Errorf("unknown store driver %q", sc.Driver)
}

// NewTranspilerOptions maps the transpiler section of cfg to options.
// In debug mode every transpile and import is logged.
func NewTranspilerOptions(cfg *config.Config, logger *slog.Logger, debug bool) []cafe.Option {
	opts := []cafe.Option{
		cafe.WithLogger(logger),
		cafe.WithDialect(automation.Dialect(cfg.Transpiler.Dialect)),
		cafe.WithMaxSteps(cfg.Transpiler.MaxSteps),
		cafe.WithCanonical(cfg.Transpiler.Canonical),
	}
	if debug {
		opts = append(opts, cafe.WithLifecycleHooks(observability.LogHooks(logger)))
	}
	return opts
}

// NewTranspiler builds a transpiler from cfg.
func NewTranspiler(cfg *config.Config, logger *slog.Logger, debug bool, extra ...cafe.Option) *cafe.Transpiler {
	return cafe.New(append(NewTranspilerOptions(cfg, logger, debug), extra...)...)
}
