package main

import (
	"context"

	"github.com/joho/godotenv"

	"github.com/studysync/tutormatch/internal/app"
	"github.com/studysync/tutormatch/internal/cache"
	"github.com/studysync/tutormatch/internal/config"
	"github.com/studysync/tutormatch/internal/db"
	"github.com/studysync/tutormatch/internal/logger"
	"github.com/studysync/tutormatch/internal/server"
	authsvc "github.com/studysync/tutormatch/internal/service/auth"
	matchsvc "github.com/studysync/tutormatch/internal/service/match"
	usersvc "github.com/studysync/tutormatch/internal/service/user"
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
	if err := redisCache.Ping(context.Background()); err != nil {
		log.Error("failed to connect to redis", "err", err)
		return
	}

	appCtx := app.New(database, redisCache, cfg, log)

	// The auth service owns the identity verifier the protected route
	// groups share.
	authRegistrar := authsvc.NewRegistrar(appCtx)
	verifier := authsvc.NewService(appCtx).Verifier()

	registrars := []server.Registrar{
		authRegistrar,
		usersvc.NewRegistrar(appCtx, verifier),
		matchsvc.NewRegistrar(appCtx, verifier),
	}

	if cfg.App.ENV == "development" {
		if err := db.SeedTestData(database); err != nil {
			log.Error("failed to seed", "err", err)
		}
	}

	addr := cfg.HTTP.Host + ":" + cfg.HTTP.Port
	log.Info("starting HTTP server", "addr", addr)

	if err := server.StartHTTPServer(cfg, registrars...); err != nil {
		log.Error("failed to start HTTP server", "err", err)
	}
}
