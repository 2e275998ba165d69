package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	router "github.com/dkeye/QuickRoom/internal/adapters/http"
	wsignal "github.com/dkeye/QuickRoom/internal/adapters/signal"
	"github.com/dkeye/QuickRoom/internal/app"
	"github.com/dkeye/QuickRoom/internal/config"
	"github.com/dkeye/QuickRoom/internal/core"
	"github.com/dkeye/QuickRoom/internal/store"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize zerolog global logger early so config.Load can use it.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn().Err(err).Msg("failed to load .env")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil && lvl != zerolog.NoLevel {
		zerolog.SetGlobalLevel(lvl)
	}

	rooms, err := store.OpenBadger(cfg.Rooms.StorePath, cfg.Rooms.Capacity)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open room store")
	}
	defer func() {
		if err := rooms.Close(); err != nil {
			log.Error().Err(err).Msg("room store close")
		}
	}()

	policy, err := app.PolicyFromName(cfg.WS.BackpressurePolicy)
	if err != nil {
		log.Fatal().Err(err).Msg("bad backpressure policy")
	}
	orch := app.NewOrchestrator(core.NewRegistry(), policy)
	ctl := wsignal.NewController(ctx, orch, rooms, cfg.WS)

	r := router.SetupRouter(cfg, orch, rooms, ctl)
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:              addr,
		Handler:           router.NewHandler(cfg, r),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", addr).Msg("QuickRoom server started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("Shutting down")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		// Hijacked websockets are not tracked by the server.
		err := srv.Shutdown(shutdownCtx)
		ctl.Shutdown()
		return err
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
		return
	}
	log.Info().Msg("Server exited gracefully")
}
