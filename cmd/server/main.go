package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"marketmovers/internal/app"
	"marketmovers/internal/config"
	"marketmovers/internal/logging"
)

func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		logging.New("info").Fatal().Err(err).Msg("config")
		os.Exit(1)
	}
	logger := logging.New(cfg.Log.Level)

	a, err := app.New(cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("wiring")
		os.Exit(1)
	}

	s := &server{
		orch:     a.Orchestrator,
		universe: a.Universe,
		topN:     cfg.Movers.TopN,
		timeout:  time.Duration(cfg.Server.RequestTimeoutSec) * time.Second,
		logger:   logger,
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           s.routes(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		// movers fan out across the universe; leave room past the request timeout
		WriteTimeout: s.timeout + 10*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", srv.Addr).Str("provider", a.Provider.Name()).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server")
			os.Exit(1)
		}
	}()

	// graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	logger.Info().Msg("server stopped")
}
