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
	"github.com/suPer8Hu/fin-advisor/internal/app"
	"github.com/suPer8Hu/fin-advisor/internal/config"
	"github.com/suPer8Hu/fin-advisor/internal/httpapi"
	"github.com/suPer8Hu/fin-advisor/internal/httpapi/handlers"
	"github.com/suPer8Hu/fin-advisor/internal/logging"
	"github.com/suPer8Hu/fin-advisor/internal/store/rabbitmq"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		l := logging.New("info", "json")
		l.Fatal().Err(err).Msg("load config")
	}
	log := logging.New(cfg.LogLevel, cfg.LogFormat).With().Str("component", "server").Logger()
	if cfg.JWTSecret == "" {
		log.Fatal().Msg("JWT_SECRET is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("wire app")
	}
	defer a.Close()
	if err := a.Migrate(); err != nil {
		log.Fatal().Err(err).Msg("migrate")
	}

	var jobs handlers.JobPublisher
	pub, err := rabbitmq.NewPublisher(cfg.RabbitURL, cfg.RabbitQueue)
	if err != nil {
		log.Warn().Err(err).Msg("rabbitmq unavailable, async advice disabled")
	} else {
		defer pub.Close()
		jobs = pub
	}

	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	// WriteTimeout covers a full fallback chain of provider timeouts.
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           httpapi.NewRouter(a.Handler(jobs), cfg.JWTSecret),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      5 * time.Minute,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("http server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("listen")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown")
	}
}
