package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"zeptical/pkg/account"
	"zeptical/pkg/app"
	"zeptical/pkg/config"
	"zeptical/pkg/logger"

	"go.uber.org/zap"
)

func main() {
	email := flag.String("email", "", "email of the account to reset")
	password := flag.String("password", "", "new plaintext password (min 6 chars)")
	flag.Parse()
	if *email == "" || *password == "" {
		fmt.Println("--email and --password are required")
		os.Exit(2)
	}

	cfg := config.MustLoad()
	log, err := logger.New(cfg.LogLevel, "console")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	db, err := app.OpenDB(cfg.DBDSN, log)
	if err != nil {
		log.Fatal("open db", zap.Error(err))
	}
	accounts := account.NewService(db, nil, 0, log)
	if err := accounts.SetPassword(context.Background(), *email, *password); err != nil {
		log.Fatal("reset failed", zap.Error(err))
	}
	fmt.Printf("Password reset for %s\n", *email)
}
