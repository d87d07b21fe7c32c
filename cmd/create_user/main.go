package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"zeptical/pkg/app"
	"zeptical/pkg/apperr"
	"zeptical/pkg/config"
	"zeptical/pkg/logger"

	"go.uber.org/zap"
)

func main() {
	if len(os.Args) < 4 {
		fmt.Println("usage: go run ./cmd/create_user <email> <username> <password> [full name]")
		os.Exit(2)
	}
	email, username, password := os.Args[1], os.Args[2], os.Args[3]
	fullName := strings.Join(os.Args[4:], " ")

	cfg := config.MustLoad()
	log, err := logger.New(cfg.LogLevel, "console")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	ctx := context.Background()
	a, err := app.Open(ctx, cfg, log)
	if err != nil {
		log.Fatal("failed to open backends", zap.Error(err))
	}
	defer a.Close(ctx)
	if err := a.Migrate(ctx); err != nil {
		log.Fatal("migration failed", zap.Error(err))
	}

	u, err := a.Accounts.CreateUser(ctx, email, username, fullName, password)
	if err != nil {
		if apperr.Is(err, apperr.KindConflict) {
			fmt.Printf("user %s already exists\n", email)
			return
		}
		log.Fatal("failed to create user", zap.Error(err))
	}
	// create the empty profile
	if err := a.ProfileStore.Ensure(ctx, u.ID); err != nil {
		log.Warn("failed to create profile", zap.Uint("user_id", u.ID), zap.Error(err))
	}
	fmt.Printf("created user %s id=%d\n", u.Username, u.ID)
}
