package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/aretw0/fable"
	"github.com/aretw0/fable/internal/config"
	"github.com/aretw0/fable/pkg/adapters/blob"
	"github.com/aretw0/fable/pkg/adapters/file"
	"github.com/aretw0/fable/pkg/adapters/memory"
	"github.com/aretw0/fable/pkg/adapters/redis"
	"github.com/aretw0/fable/pkg/domain"
	"github.com/aretw0/fable/pkg/persistence/middleware"
	"github.com/aretw0/fable/pkg/ports"
)

// closers releases resources in reverse order of acquisition.
type closers []io.Closer

func (c closers) Close() error {
	var errs []error
	for i := len(c) - 1; i >= 0; i-- {
		errs = append(errs, c[i].Close())
	}
	return errors.Join(errs...)
}

// OpenSource opens the asset source named by cfg.Assets.
// The returned closer is nil when the source holds no resources.
func OpenSource(ctx context.Context, cfg *config.Config) (ports.AssetSource, io.Closer, error) {
	if cfg.IsBucketURL() {
		loader, err := blob.OpenLoader(ctx, cfg.Assets)
		if err != nil {
			return nil, nil, err
		}
		return loader, loader, nil
	}
	return file.NewLoader(cfg.Assets), nil, nil
}

// OpenStore opens the save store selected by cfg.Store, wrapped with
// encryption when a key is configured.
func OpenStore(ctx context.Context, cfg *config.Config) (ports.SaveStore, io.Closer, error) {
	var (
		store  ports.SaveStore
		closer io.Closer
	)
	switch cfg.Store.Kind {
	case config.StoreMemory:
		store = memory.NewStore()
	case config.StoreFile:
		store = file.NewStore(cfg.Store.Path)
	case config.StoreRedis:
		r := redis.New(cfg.Store.Redis.Addr, cfg.Store.Redis.Password, cfg.Store.Redis.DB,
			redis.WithTTL(cfg.Store.Redis.TTL),
			redis.WithPrefix(cfg.Store.Redis.Prefix),
		)
		store, closer = r, r
	case config.StoreBlob:
		b, err := blob.OpenStore(ctx, cfg.Store.Path)
		if err != nil {
			return nil, nil, err
		}
		store, closer = b, b
	default:
		return nil, nil, fmt.Errorf("unknown store kind %q", cfg.Store.Kind)
	}

	key, err := cfg.Key()
	if err != nil {
		return nil, nil, err
	}
	if key != nil {
		store = middleware.Chain(store, middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: key}))
	}
	return store, closer, nil
}

// NewEngine builds an engine with standard CLI conventions.
// The returned closer stops the engine and releases the source and store.
func NewEngine(ctx context.Context, cfg *config.Config, logger *slog.Logger, hooks domain.LifecycleHooks) (*fable.Engine, io.Closer, error) {
	var res closers

	source, sourceCloser, err := OpenSource(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("error opening assets: %w", err)
	}
	if sourceCloser != nil {
		res = append(res, sourceCloser)
	}

	store, storeCloser, err := OpenStore(ctx, cfg)
	if err != nil {
		_ = res.Close()
		return nil, nil, fmt.Errorf("error opening save store: %w", err)
	}
	if storeCloser != nil {
		res = append(res, storeCloser)
	}

	engine, err := fable.New(source,
		fable.WithLogger(logger),
		fable.WithLifecycleHooks(hooks),
		fable.WithSaveStore(store),
		fable.WithStateKeys(cfg.InitialState, cfg.FinalState),
		fable.WithLocale(cfg.Locale),
		fable.WithUnsafeScripts(cfg.UnsafeScripts),
		fable.WithSweep(cfg.Session.Interval, cfg.Session.Expiry),
	)
	if err != nil {
		_ = res.Close()
		return nil, nil, fmt.Errorf("error initializing engine: %w", err)
	}
	res = append(res, engine)
	return engine, res, nil
}
