package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Azora-OS/azora-sub011/internal/config"
	"github.com/Azora-OS/azora-sub011/internal/db"
	"github.com/Azora-OS/azora-sub011/internal/handler"
	"github.com/Azora-OS/azora-sub011/internal/middleware"
	"github.com/Azora-OS/azora-sub011/internal/model"
	"github.com/Azora-OS/azora-sub011/internal/repository"
	"github.com/Azora-OS/azora-sub011/internal/router"
	"github.com/Azora-OS/azora-sub011/internal/service"
	"github.com/Azora-OS/azora-sub011/internal/settlement"
)

const pruneInterval = time.Minute

func main() {
	cfg, err := config.Load()
	if err != nil {
		middleware.InitLogger("info", "azora-mint")
		middleware.Logger.Fatal().Err(err).Msg("load configuration")
	}

	middleware.InitLogger(cfg.LogLevel, "azora-mint")
	log := middleware.Logger

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Postgres is optional: without it the ledger is memory-only.
	var pool *pgxpool.Pool
	var store service.ProofStore
	if cfg.DatabaseURL != "" {
		pool, err = db.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatal().Err(err).Msg("connect to postgres")
		}
		defer pool.Close()
		store = repository.NewProofRepo(pool)
		log.Info().Msg("postgres connected, proofs are durable")
	} else {
		log.Warn().Msg("no DATABASE_URL, proofs are memory-only")
	}

	cache := service.NewCacheService(cfg.RedisURL).
		WithCounters(handler.CacheHits, handler.CacheMisses)
	defer cache.Close()

	ledger := service.NewProofLedger(store)
	if store != nil {
		if err := ledger.Hydrate(ctx); err != nil {
			log.Fatal().Err(err).Msg("hydrate proof ledger")
		}
	}

	rates := service.NewRateTracker(
		cfg.Guard.UserHourlyLimit,
		cfg.Guard.OriginHourlyLimit,
		cfg.Guard.GlobalHourlyLimit,
	)
	submissions := service.NewSubmissionLog()
	guard := service.NewGuardService(cfg.Guard, rates, submissions, ledger)

	settler, err := settlement.Select(cfg, nil)
	if err != nil {
		if !errors.Is(err, model.ErrSettlementUnavailable) {
			log.Fatal().Err(err).Msg("configure settlement")
		}
		log.Warn().Msg("no settlement backend configured, proofs will stay unverified")
		settler = nil
	} else {
		log.Info().Str("settler", settler.Name()).Msg("settlement backend ready")
	}

	mint := service.NewMintService(
		service.NewScoreService(),
		service.NewRewardCalculator(cfg.BaseRewardRate),
		guard,
		ledger,
		settler,
		cache,
		cfg.LiquiditySharePercent,
		cfg.LiquidityAccount,
	)

	pruner := service.NewPruneWorker(rates, submissions, pruneInterval)
	go pruner.Start(ctx)

	app := fiber.New(fiber.Config{
		AppName:      "azora-mint",
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	})

	router.Setup(app, cfg, mint, cache, pool)

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Fatal().Err(err).Msg("http server")
		}
	}()
	log.Info().Str("port", cfg.Port).Str("env", cfg.Environment).Msg("server started")

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown")
	}
	log.Info().Msg("server stopped")
}
