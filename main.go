package main

import (
	"context"
	"fmt"
	"os"

	"zeptical/pkg/app"
	"zeptical/pkg/config"
	"zeptical/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	cfg := config.MustLoad()
	log, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	ctx := context.Background()
	a, err := app.Open(ctx, cfg, log)
	if err != nil {
		log.Fatal("startup failed", zap.Error(err))
	}
	defer a.Close(ctx)

	// `zeptical migrate` creates the tables and indexes, then exits.
	if len(os.Args) > 1 && os.Args[1] == "migrate" {
		if err := a.Migrate(ctx); err != nil {
			log.Fatal("migration failed", zap.Error(err))
		}
		log.Info("migration completed")
		return
	}

	if cfg.DBAutoMigrate {
		// failures are already logged per step; serve anyway
		_ = a.Migrate(ctx)
	}

	if cfg.AppEnv == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := newServer(a).engine()

	log.Info("listening", zap.String("addr", cfg.HTTPAddr), zap.String("env", cfg.AppEnv))
	if err := r.Run(cfg.HTTPAddr); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}
