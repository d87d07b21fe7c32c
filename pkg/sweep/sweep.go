// Package sweep finds stored assets that no profile or user references any more
// and removes them.
package sweep

import (
	"context"

	"zeptical/models"
	"zeptical/pkg/asset"
	"zeptical/pkg/logger"
	"zeptical/pkg/metrics"
	"zeptical/pkg/profile"

	"go.uber.org/zap"
)

// Store is an asset store that can enumerate its files.
type Store interface {
	asset.Store
	asset.Lister
}

// PhotoSource lists the profile photo URLs held by user accounts.
type PhotoSource interface {
	PhotoURLs(ctx context.Context) ([]string, error)
}

// Report is the outcome for one category.
type Report struct {
	Category asset.Category
	Stored   int
	Orphans  []string
	Deleted  int
}

type Sweeper struct {
	store    Store
	profiles profile.Walker
	users    PhotoSource
	log      *zap.Logger
	metrics  *metrics.Metrics
}

func New(store Store, profiles profile.Walker, users PhotoSource, log *zap.Logger, m *metrics.Metrics) *Sweeper {
	return &Sweeper{store: store, profiles: profiles, users: users, log: logger.OrNop(log).Named("sweep"), metrics: m}
}

// referenced collects the filenames in use, per category.
func (s *Sweeper) referenced(ctx context.Context) (map[asset.Category]map[string]bool, error) {
	refs := map[asset.Category]map[string]bool{}
	add := func(cat asset.Category, url string) {
		name, err := asset.NameFromURL(url)
		if err != nil {
			return
		}
		if refs[cat] == nil {
			refs[cat] = map[string]bool{}
		}
		refs[cat][name] = true
	}
	err := s.profiles.Walk(ctx, func(p *models.Profile) error {
		for cat, urls := range profile.AssetURLs(p) {
			for _, u := range urls {
				add(cat, u)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if s.users != nil {
		urls, err := s.users.PhotoURLs(ctx)
		if err != nil {
			return nil, err
		}
		for _, u := range urls {
			add(asset.ProfilePhoto, u)
		}
	}
	return refs, nil
}

// Run reports orphaned files for every category and deletes them unless dryRun.
// Files written by requests still in flight look orphaned too, so run it while
// the service is quiet.
func (s *Sweeper) Run(ctx context.Context, dryRun bool) ([]Report, error) {
	refs, err := s.referenced(ctx)
	if err != nil {
		return nil, err
	}
	reports := make([]Report, 0, len(asset.Categories))
	for _, cat := range asset.Categories {
		names, err := s.store.List(ctx, cat)
		if err != nil {
			return reports, err
		}
		rep := Report{Category: cat, Stored: len(names)}
		for _, n := range names {
			if !refs[cat][n] {
				rep.Orphans = append(rep.Orphans, n)
			}
		}
		if !dryRun {
			for _, n := range rep.Orphans {
				err := s.store.Delete(ctx, cat, n)
				s.metrics.AssetDeleted(string(cat), err)
				if err != nil {
					s.log.Warn("delete orphan", zap.String("category", string(cat)), zap.String("name", n), zap.Error(err))
					continue
				}
				rep.Deleted++
			}
		}
		s.log.Info("category swept",
			zap.String("category", string(cat)),
			zap.Int("stored", rep.Stored),
			zap.Int("orphans", len(rep.Orphans)),
			zap.Int("deleted", rep.Deleted),
			zap.Bool("dry_run", dryRun),
		)
		reports = append(reports, rep)
	}
	return reports, nil
}
