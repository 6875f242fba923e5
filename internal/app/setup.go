package app

import (
	"context"
	"fmt"
	"log/slog"

	"btc-data/internal/sink"
	"btc-data/internal/store"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

// CreateStore creates the object store from config (fs, s3 or memory).
func CreateStore(ctx context.Context, cfg *Config) (store.Store, error) {
	switch cfg.Store {
	case "fs":
		return store.NewFS(cfg.DataDir)
	case "s3":
		return store.NewS3(ctx, store.S3Options{
			Bucket:    cfg.Bucket,
			Region:    cfg.Region,
			Endpoint:  cfg.Endpoint,
			PathStyle: cfg.PathStyle,
		})
	case "memory":
		slog.Warn("memory store selected, output is discarded at exit")
		return store.NewMemory(), nil
	default:
		return nil, fmt.Errorf("unsupported STORE %q (use: fs, s3, memory)", cfg.Store)
	}
}

// CreatePublisher connects the configured summary sinks. It returns a nil
// publisher when none is configured. cleanup closes every opened client and
// is safe to call on error.
func CreatePublisher(ctx context.Context, cfg *Config) (pub sink.Publisher, cleanup func(), err error) {
	var pubs sink.Multi
	var closers []func()
	cleanup = func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	defer func() {
		if err != nil {
			cleanup()
		}
	}()

	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, DB: cfg.RedisDB})
		closers = append(closers, func() { _ = rdb.Close() })
		if err := rdb.Ping(ctx).Err(); err != nil {
			return nil, cleanup, fmt.Errorf("redis ping %s: %w", cfg.RedisAddr, err)
		}
		pubs = append(pubs, sink.NewRedis(rdb, "", cfg.RedisTTL))
		slog.Info("wire", "sink", "redis", "addr", cfg.RedisAddr, "db", cfg.RedisDB)
	}
	if cfg.PostgresDSN != "" {
		pool, err := pgxpool.New(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, cleanup, fmt.Errorf("postgres connect: %w", err)
		}
		closers = append(closers, pool.Close)
		cat := sink.NewCatalog(pool)
		if err := cat.EnsureSchema(ctx); err != nil {
			return nil, cleanup, fmt.Errorf("postgres schema: %w", err)
		}
		pubs = append(pubs, cat)
		slog.Info("wire", "sink", "postgres")
	}

	switch len(pubs) {
	case 0:
		return nil, cleanup, nil
	case 1:
		return pubs[0], cleanup, nil
	default:
		return pubs, cleanup, nil
	}
}
