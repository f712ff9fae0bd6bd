package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/oggyb/vivahvows/internal/app"
	"github.com/oggyb/vivahvows/internal/auth"
	"github.com/oggyb/vivahvows/internal/cache"
	"github.com/oggyb/vivahvows/internal/config"
	"github.com/oggyb/vivahvows/internal/db"
	"github.com/oggyb/vivahvows/internal/logger"
	"github.com/oggyb/vivahvows/internal/server"
	"github.com/oggyb/vivahvows/internal/service/chat"
	"github.com/oggyb/vivahvows/internal/service/match"
	"github.com/oggyb/vivahvows/internal/service/notify"
	"github.com/oggyb/vivahvows/internal/service/profile"
	"github.com/oggyb/vivahvows/internal/ws"
)

func main() {
	_ = godotenv.Load()

	cfg := config.New()

	// Init logger (global singleton)
	logger.InitFromConfig(cfg)
	log := logger.L()

	// Init DB
	database, err := db.NewDB(cfg)
	if err != nil {
		log.Error("failed to init db", "err", err)
		return
	}

	// Init Redis
	redisCache := cache.NewRedisCache(cfg)
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := redisCache.Ping(ctx); err != nil {
		log.Error("failed to connect to redis", "err", err)
		return
	}

	// Inject shared deps into app context
	hub := ws.NewHub()
	appCtx := app.New(cfg, database, redisCache, log, hub)

	if cfg.App.ENV == "development" {
		if err := db.SeedTestData(database); err != nil {
			log.Error("failed to seed", "err", err)
		}
	}

	notifier := notify.NewNotifier(appCtx)

	public := []server.Registrar{
		auth.NewService(appCtx),
	}
	protected := []server.Registrar{
		profile.NewService(appCtx),
		match.NewService(appCtx, notifier),
		chat.NewService(appCtx, notifier),
		notifier,
	}

	engine := server.NewEngine(cfg, public, protected)

	addr := cfg.HTTP.Host + ":" + cfg.HTTP.Port
	log.Info("starting HTTP server", "addr", addr, "env", cfg.App.ENV)

	if err := server.Start(ctx, cfg, engine); err != nil {
		log.Error("server stopped with error", "err", err)
	}
}
