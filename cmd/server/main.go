package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	wsadapter "github.com/safequest/lobby/internal/adapters/signal"
	"github.com/safequest/lobby/internal/app"
	"github.com/safequest/lobby/internal/catalog"
	"github.com/safequest/lobby/internal/config"

	router "github.com/safequest/lobby/internal/adapters/http"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize zerolog global logger early so config.Load can use it.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	// Human-friendly output for terminal; in production you may want JSON only.
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	coord := &app.Coordinator{
		Registry: app.NewRegistry(),
		Rooms:    app.NewDirectory(cfg.Lobby.ChatHistory),
		Policy:   app.KickSlowPolicy{},
	}

	var stages catalog.Catalog = catalog.NewStaticCatalog()
	if cfg.Mongo.Enabled {
		client, err := catalog.Connect(ctx, cfg.Mongo.URI)
		if err != nil {
			log.Error().Err(err).Msg("mongo unavailable, using builtin stage catalog")
		} else {
			defer func() {
				_ = client.Disconnect(context.Background())
			}()
			mc := catalog.NewMongoCatalog(client, cfg.Mongo.Database)
			if err := mc.Seed(ctx); err != nil {
				log.Error().Err(err).Msg("stage catalog seed failed")
			}
			stages = mc
		}
	}

	chatLimit := wsadapter.NewRoomRateLimiter(cfg.Lobby.ChatLimit, cfg.Lobby.ChatWindow)
	ctl := wsadapter.NewController(coord, chatLimit, cfg.ReadLimit)

	r := router.SetupRouter(ctx, cfg, coord, stages, ctl)
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("SafeQuest lobby server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Server exited gracefully")
}
