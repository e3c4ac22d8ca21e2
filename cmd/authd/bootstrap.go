package main

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/baxter-io/sessionauth/internal/config"
	"github.com/baxter-io/sessionauth/internal/obs"
	"github.com/baxter-io/sessionauth/store"
	"github.com/baxter-io/sessionauth/store/memory"
	"github.com/baxter-io/sessionauth/store/mysql"
	"github.com/baxter-io/sessionauth/store/postgres"
)

func initLogger(cfg *config.Config) (*zap.Logger, error) {
	return obs.NewLogger(cfg.LoggerConfig())
}

func initRedis(ctx context.Context, cfg *config.Config) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Username: cfg.Redis.Username,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, err
	}
	return rdb, nil
}

type storeHandle struct {
	accounts store.Accounts
	roles    store.Roles
	close    func()
}

func initStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*storeHandle, error) {
	switch cfg.DB.Driver {
	case "postgres":
		db, err := postgres.New(ctx, cfg.DB.Postgres)
		if err != nil {
			return nil, err
		}
		if cfg.DB.Migrate {
			if err := db.Migrate(ctx); err != nil {
				db.Close()
				return nil, fmt.Errorf("migrate postgres: %w", err)
			}
			logger.Info("postgres migrated")
		}
		return &storeHandle{accounts: db, roles: db, close: db.Close}, nil

	case "mysql":
		db, err := mysql.New(ctx, cfg.DB.MySQL)
		if err != nil {
			return nil, err
		}
		if cfg.DB.Migrate {
			if err := db.Migrate(ctx); err != nil {
				_ = db.Close()
				return nil, fmt.Errorf("migrate mysql: %w", err)
			}
			logger.Info("mysql migrated")
		}
		return &storeHandle{accounts: db, roles: db, close: func() { _ = db.Close() }}, nil

	case "memory":
		logger.Warn("using in-memory store; accounts are lost on restart")
		mem := memory.New("ROLE_USER", "ROLE_ADMIN")
		return &storeHandle{accounts: mem, roles: mem, close: func() {}}, nil
	}
	return nil, config.ErrUnknownDriver
}
