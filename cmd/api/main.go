package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	_ "github.com/biblioteca/lending-platform/docs"
	"github.com/biblioteca/lending-platform/internal/api"
	"github.com/biblioteca/lending-platform/internal/core/domain"
	"github.com/biblioteca/lending-platform/internal/core/ports"
	"github.com/biblioteca/lending-platform/internal/core/service"
	"github.com/biblioteca/lending-platform/internal/infrastructure/config"
	mongodb "github.com/biblioteca/lending-platform/internal/infrastructure/db/mongo"
	redisdb "github.com/biblioteca/lending-platform/internal/infrastructure/db/redis"
	"github.com/biblioteca/lending-platform/internal/infrastructure/queue"
	"github.com/biblioteca/lending-platform/pkg/logger"
)

// retentionInterval is how often the audit retention job runs.
const retentionInterval = 24 * time.Hour

// @title        Library Lending Platform API
// @version      1.0
// @description  Authentication, authorization, and audit core of the library lending platform.
// @BasePath     /
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		panic(err)
	}

	log := logger.Init(logger.Options{
		Level:  cfg.LogLevel,
		Pretty: cfg.IsDevelopment(),
	})

	// --- Stores ---
	mongoClient, db, err := mongodb.Connect(ctx, mongodb.Config{
		URI:      cfg.Mongo.URI,
		Database: cfg.Mongo.Database,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("mongo connect failed")
	}
	defer func() { _ = mongoClient.Disconnect(context.Background()) }()

	if err := mongodb.EnsureIndexes(ctx, db); err != nil {
		log.Fatal().Err(err).Msg("mongo index setup failed")
	}

	rdb, err := redisdb.Connect(ctx, redisdb.Config{
		Addr: cfg.Redis.Addr,
		DB:   cfg.Redis.DB,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("redis connect failed")
	}
	defer func() { _ = rdb.Close() }()

	// --- Core services ---
	users := mongodb.NewUserRepository(db)
	revocations := redisdb.NewRevocationStore(rdb)

	tokens, err := service.NewTokenService(service.TokenConfig{
		AccessSecret:  cfg.Auth.AccessSecret,
		RefreshSecret: cfg.Auth.RefreshSecret,
		AccessTTL:     cfg.Auth.AccessTTL,
		RefreshTTL:    cfg.Auth.RefreshTTL,
		CookieSecure:  cfg.CookieSecure(),
	}, revocations, users)
	if err != nil {
		log.Fatal().Err(err).Msg("token service setup failed")
	}

	rbac := service.NewRBACEngine(domain.DefaultRoles())
	audit := service.NewAuditService(mongodb.NewAuditRepository(db), log)
	accounts := service.NewAccountService(users, tokens, rbac)

	dispatcher := queue.NewAuditDispatcher(cfg.Audit.Workers, audit, log)
	dispatcher.Start(ctx)

	go runRetention(ctx, audit, cfg.Audit.RetentionDays, log)

	// --- HTTP ---
	e := api.NewRouter(api.Deps{
		Log:      log,
		Tokens:   tokens,
		Users:    users,
		Accounts: accounts,
		RBAC:     rbac,
		Audit:    audit,
		Recorder: dispatcher,
		Mongo:    db,
		Redis:    rdb,
	})

	go func() {
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server stopped")
		}
	}()
	log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("lending platform up")

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown incomplete")
	}
}

// runRetention prunes the audit trail once per day. The first pass runs at
// startup so a long-stopped instance catches up immediately.
func runRetention(ctx context.Context, audit ports.AuditService, retentionDays int, log zerolog.Logger) {
	ticker := time.NewTicker(retentionInterval)
	defer ticker.Stop()

	for {
		if _, err := audit.CleanupOld(ctx, retentionDays); err != nil {
			log.Error().Err(err).Msg("audit retention pass failed")
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
