package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/recorre/trae-indie-comments/internal/api"
	"github.com/recorre/trae-indie-comments/internal/core/ports"
	"github.com/recorre/trae-indie-comments/internal/core/service"
	"github.com/recorre/trae-indie-comments/internal/infrastructure/config"
	redisdb "github.com/recorre/trae-indie-comments/internal/infrastructure/db/redis"
	"github.com/recorre/trae-indie-comments/internal/infrastructure/upstream"
	"github.com/recorre/trae-indie-comments/pkg/logger"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load(ctx)
	if err != nil {
		// logger is not up yet; fail fast with a bare line
		os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}

	log := logger.Init(logger.Options{
		Level:  cfg.LogLevel,
		Pretty: cfg.Env != "production",
	})

	store := upstream.New(upstream.Config{
		BaseURL:    cfg.Upstream.BaseURL,
		ServiceKey: cfg.Upstream.APIKey,
		Instance:   cfg.Upstream.Instance,
		Timeout:    cfg.Upstream.Timeout,
	}, log)

	// the site cache is advisory: run without it if Redis is absent
	var rdb *goredis.Client
	var cache ports.SiteCache
	if cfg.Redis.Addr != "" {
		rdb, err = redisdb.Connect(ctx, redisdb.Config{Addr: cfg.Redis.Addr, DB: cfg.Redis.DB})
		if err != nil {
			log.Warn().Err(err).Msg("redis unavailable, site cache disabled")
			rdb = nil
		} else {
			cache = redisdb.NewSiteCache(rdb, log)
		}
	}

	sessions := service.NewSessionService(cfg.JWTSecret, 0)
	authService := service.NewAuthService(store, sessions, log)
	authorizer := service.NewDomainAuthorizer(store, cache, log)

	e := api.NewRouter(api.Deps{
		Store:       store,
		Sessions:    sessions,
		AuthService: authService,
		Authorizer:  authorizer,
		Redis:       rdb,
		Log:         log,
	})

	go func() {
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server stopped")
		}
	}()
	log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("server started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown failed")
	}
	if rdb != nil {
		_ = rdb.Close()
	}
}
