package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mossy-p/docsync/config"
	"github.com/mossy-p/docsync/internal/handlers"
	"github.com/mossy-p/docsync/internal/logging"
	"github.com/mossy-p/docsync/internal/redis"
	"github.com/mossy-p/docsync/internal/rooms"
)

func main() {
	// Load configuration
	cfg := config.Load()
	logger := logging.New(cfg.LogLevel, cfg.Environment)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	broadcaster := rooms.New(logger)

	// Redis is optional: without it the relay runs standalone and the room
	// directory endpoints answer 503.
	var store handlers.RoomStore
	if cfg.Redis.Enabled {
		connectCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		s, err := redis.Connect(connectCtx, cfg.Redis)
		cancel()
		if err != nil {
			logger.Warn().Err(err).Str("addr", cfg.Redis.Addr()).Msg("redis unavailable, running standalone")
		} else {
			defer s.Close()
			store = s
			logger.Info().Str("addr", cfg.Redis.Addr()).Msg("redis connection established")

			bridge := redis.NewBridge(s, broadcaster, logger)
			if err := bridge.Start(); err != nil {
				logger.Warn().Err(err).Msg("redis bridge not started, relaying locally only")
			} else {
				defer bridge.Stop()
				broadcaster.SetBridge(bridge)
			}
		}
	}

	// Setup Gin router
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := handlers.New(cfg, broadcaster, store, logger).Router()

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		logger.Info().Str("port", cfg.Port).Str("path", cfg.RelayPath).Msg("starting relay server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("shutdown failed")
	}
}
