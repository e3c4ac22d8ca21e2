package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	sessionauth "github.com/baxter-io/sessionauth"
	"github.com/baxter-io/sessionauth/internal/config"
	"github.com/baxter-io/sessionauth/internal/httpapi"
	promexport "github.com/baxter-io/sessionauth/metrics/export/prometheus"
)

func main() {
	cfgPath := flag.String("config", "config/authd.yaml", "path to YAML config")
	flag.Parse()

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		panic(err)
	}

	logger, err := initLogger(cfg)
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()
	logger.Info("starting authd", zap.String("env", cfg.App.Env), zap.String("ver", cfg.App.Version))

	rdb, err := initRedis(rootCtx, cfg)
	if err != nil {
		logger.Fatal("redis connect", zap.Error(err))
	}
	defer func() { _ = rdb.Close() }()

	st, err := initStore(rootCtx, cfg, logger)
	if err != nil {
		logger.Fatal("store init", zap.Error(err))
	}
	defer st.close()

	engine, err := sessionauth.New().
		WithConfig(engineConfig(cfg)).
		WithRedis(rdb).
		WithAccountStore(st.accounts).
		WithRoleStore(st.roles).
		WithLogger(logger.Named("engine")).
		Build()
	if err != nil {
		logger.Fatal("engine build", zap.Error(err))
	}

	deps := httpapi.Deps{
		Engine:      engine,
		Logger:      logger.Named("http"),
		ProfileRole: cfg.Auth.ProfileRole,
	}
	if cfg.Metrics.Enabled {
		deps.Metrics = promexport.Handler(engine)
	}
	e := httpapi.New(deps)
	e.Server.ReadTimeout = cfg.Server.ReadTimeout
	e.Server.WriteTimeout = cfg.Server.WriteTimeout
	e.Server.IdleTimeout = cfg.Server.IdleTimeout

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http listening", zap.String("addr", cfg.Server.HTTPAddr))
		errCh <- e.Start(cfg.Server.HTTPAddr)
	}()

	select {
	case <-rootCtx.Done():
		logger.Info("shutdown signal")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http serve", zap.Error(err))
		}
	}

	shCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulTimeout)
	defer cancel()
	if err := e.Shutdown(shCtx); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	logger.Info("bye")
}

func engineConfig(cfg *config.Config) sessionauth.Config {
	c := sessionauth.DefaultConfig()
	c.JWT.Secret = cfg.Auth.JWTSecretBytes
	c.JWT.AccessTTL = cfg.Auth.AccessTTL
	c.JWT.Issuer = cfg.Auth.Issuer
	c.JWT.Audience = cfg.Auth.Audience
	c.JWT.Leeway = cfg.Auth.Leeway
	c.Refresh.TTL = cfg.Auth.RefreshTTL
	c.Refresh.KeyPrefix = cfg.Auth.RefreshPrefix
	c.Password.Cost = cfg.Auth.BcryptCost
	c.Metrics.Enabled = cfg.Metrics.Enabled
	c.Metrics.EnableLatencyHistograms = cfg.Metrics.LatencyHistograms
	return c
}
