// Package app wires configuration into the stores, provider chain and
// advisory pipeline shared by the API server and the worker.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/suPer8Hu/fin-advisor/internal/advisor"
	"github.com/suPer8Hu/fin-advisor/internal/ai"
	"github.com/suPer8Hu/fin-advisor/internal/chat"
	"github.com/suPer8Hu/fin-advisor/internal/config"
	"github.com/suPer8Hu/fin-advisor/internal/db"
	"github.com/suPer8Hu/fin-advisor/internal/finance"
	"github.com/suPer8Hu/fin-advisor/internal/httpapi/handlers"
	"github.com/suPer8Hu/fin-advisor/internal/store/redisstore"
	"gorm.io/gorm"
)

type App struct {
	Cfg config.Config
	Log zerolog.Logger

	DB    *gorm.DB
	Redis *redisstore.Store // nil when redis is unreachable

	ChatRepo   *chat.Repo
	ChatSvc    *chat.Service
	Finance    *finance.Repo
	Memory     *finance.Store
	Dispatcher *ai.Dispatcher
	Advisor    *advisor.Advisor
}

func New(ctx context.Context, cfg config.Config, log zerolog.Logger) (*App, error) {
	gdb, err := db.Connect(cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		return nil, err
	}
	a := &App{Cfg: cfg, Log: log, DB: gdb}

	var storeOpts []finance.StoreOption
	rds := redisstore.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := rds.Ping(pingCtx); err != nil {
		// aggregates are recomputed per request without a cache
		log.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("redis unavailable, aggregate cache disabled")
		_ = rds.Close()
	} else {
		a.Redis = rds
		storeOpts = append(storeOpts, finance.WithCache(rds, cfg.AggregateCacheTTL))
	}

	primary, fallbacks, err := cfg.ProviderChain()
	if err != nil {
		a.Close()
		return nil, err
	}
	registry := ai.NewDefaultRegistry(cfg.OpenRouterSiteURL, cfg.OpenRouterAppName)
	a.Dispatcher = ai.NewDispatcher(registry, primary, fallbacks, ai.DispatchOptions{
		MaxTokens:   cfg.AIMaxTokens,
		Temperature: cfg.AITemperature,
	}, log)

	a.ChatRepo = chat.NewRepo(gdb)
	a.ChatSvc = chat.NewService(a.ChatRepo)
	a.Finance = finance.NewRepo(gdb)
	a.Memory = finance.NewStore(a.Finance, log, storeOpts...)
	a.Advisor = advisor.New(
		chat.NewSessionStore(a.ChatRepo),
		advisor.NewAssembler(a.Memory, cfg.ContextMaxChars, log),
		a.Dispatcher,
		advisor.NewGuard(log),
		cfg.ChatContextWindowSize,
		log,
	)

	candidates := make([]string, 0, len(fallbacks)+1)
	for _, s := range a.Dispatcher.Candidates() {
		candidates = append(candidates, s.String())
	}
	log.Info().Strs("providers", candidates).Str("db_driver", cfg.DBDriver).Bool("cache", a.Redis != nil).Msg("app wired")
	return a, nil
}

// Handler returns the HTTP handlers; jobs may be nil.
func (a *App) Handler(jobs handlers.JobPublisher) *handlers.Handler {
	return &handlers.Handler{
		ChatSvc: a.ChatSvc,
		Advisor: a.Advisor,
		Finance: a.Finance,
		Memory:  a.Memory,
		Jobs:    jobs,
		Log:     a.Log,
	}
}

func (a *App) Close() {
	if a.Redis != nil {
		_ = a.Redis.Close()
	}
	if sqlDB, err := a.DB.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

// Migrate creates the schema.
func (a *App) Migrate() error {
	if err := db.Migrate(a.DB); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}
