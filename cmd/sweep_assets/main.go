package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"zeptical/pkg/app"
	"zeptical/pkg/config"
	"zeptical/pkg/logger"
	"zeptical/pkg/sweep"

	"go.uber.org/zap"
)

func main() {
	dry := flag.Bool("dry-run", true, "List orphaned assets without deleting them")
	yes := flag.Bool("yes", false, "Confirm deletion when dry-run=false")
	verbose := flag.Bool("v", false, "Print every orphaned filename")
	flag.Parse()

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

	if !*dry && !*yes {
		fmt.Println("Destructive! Pass --yes to proceed.")
		return
	}

	s := sweep.New(a.Assets, a.ProfileStore, a.Accounts, log, a.Metrics)
	reports, err := s.Run(ctx, *dry)
	if err != nil {
		log.Fatal("sweep failed", zap.Error(err))
	}
	for _, r := range reports {
		fmt.Printf("%-26s stored=%d orphaned=%d deleted=%d\n", r.Category, r.Stored, len(r.Orphans), r.Deleted)
		if *verbose {
			for _, n := range r.Orphans {
				fmt.Printf("  %s\n", n)
			}
		}
	}
	if *dry {
		fmt.Println("dry-run: no files removed. Use --dry-run=false --yes to delete.")
	}
}
