// Package app opens the databases, asset store and services described by a
// config.Config. The HTTP server and the command line tools share it.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"zeptical/pkg/account"
	"zeptical/pkg/asset"
	"zeptical/pkg/config"
	"zeptical/pkg/logger"
	"zeptical/pkg/lookup"
	"zeptical/pkg/metrics"
	"zeptical/pkg/photo"
	"zeptical/pkg/profile"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// AssetStore is an asset driver that can also enumerate its files.
type AssetStore interface {
	asset.Store
	asset.Lister
}

// ProfileStore is a profile repository backend.
type ProfileStore interface {
	profile.Repository
	profile.Walker
	Migrate(ctx context.Context) error
}

type App struct {
	Config  *config.Config
	Log     *zap.Logger
	Metrics *metrics.Metrics

	DB    *gorm.DB
	Mongo *mongo.Database // nil unless PROFILE_STORE=mongo

	Assets AssetStore
	// ImagesDir is the directory served under /images; empty when assets live in S3.
	ImagesDir string

	Pipeline     *photo.Pipeline
	ProfileStore ProfileStore
	Accounts     *account.Service
	Profiles     *profile.Service
	Lookups      *lookup.Service
}

// OpenDB connects to postgres with gorm logging routed through log.
func OpenDB(dsn string, log *zap.Logger) (*gorm.DB, error) {
	gl := gormlogger.New(zap.NewStdLog(logger.OrNop(log).Named("gorm")), gormlogger.Config{
		SlowThreshold:             500 * time.Millisecond,
		LogLevel:                  gormlogger.Warn,
		IgnoreRecordNotFoundError: true,
	})
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: gl})
	if err != nil {
		return nil, fmt.Errorf("failed to connect postgres database: %w", err)
	}
	return db, nil
}

// OpenAssets builds the asset driver selected by ASSET_DRIVER.
func OpenAssets(ctx context.Context, cfg *config.Config) (AssetStore, string, error) {
	switch cfg.AssetDriver {
	case "s3":
		s, err := asset.NewS3(ctx, asset.S3Config{
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			Endpoint:  cfg.S3Endpoint,
			PathStyle: cfg.S3PathStyle,
		}, cfg.PublicBaseURL)
		if err != nil {
			return nil, "", err
		}
		return s, "", nil
	default:
		l, err := asset.NewLocal(cfg.UploadBase, cfg.PublicBaseURL)
		if err != nil {
			return nil, "", err
		}
		return l, l.PublicDir(), nil
	}
}

// Open connects every backend named by cfg and builds the services on top.
func Open(ctx context.Context, cfg *config.Config, log *zap.Logger) (*App, error) {
	log = logger.OrNop(log)
	a := &App{Config: cfg, Log: log, Metrics: metrics.New()}

	db, err := OpenDB(cfg.DBDSN, log)
	if err != nil {
		return nil, err
	}
	a.DB = db

	if a.Assets, a.ImagesDir, err = OpenAssets(ctx, cfg); err != nil {
		a.Close(ctx)
		return nil, err
	}

	switch cfg.ProfileStore {
	case "mongo":
		mdb, err := profile.ConnectMongo(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			a.Close(ctx)
			return nil, fmt.Errorf("failed to connect mongo: %w", err)
		}
		a.Mongo = mdb
		a.ProfileStore = profile.NewMongoRepository(mdb)
	default:
		a.ProfileStore = profile.NewGormRepository(db)
	}

	a.Pipeline = photo.New(a.Assets, cfg.PhotoQuality, log, a.Metrics)
	a.Accounts = account.NewService(db, a.Pipeline, cfg.AvatarMaxBytes, log)
	a.Profiles = profile.NewService(a.ProfileStore, a.Pipeline, a.Accounts, cfg.PhotoMaxBytes, log, a.Metrics)
	a.Lookups = lookup.NewService(db, log)

	log.Info("backends ready",
		zap.String("asset_driver", cfg.AssetDriver),
		zap.String("profile_store", cfg.ProfileStore),
	)
	return a, nil
}

// Migrate creates or updates every table and index. Each step runs even when an
// earlier one fails; failures are logged and returned together.
func (a *App) Migrate(ctx context.Context) error {
	steps := []struct {
		name string
		run  func(context.Context) error
	}{
		{"accounts", a.Accounts.Migrate},
		{"profiles", a.ProfileStore.Migrate},
		{"lookup_values", a.Lookups.Migrate},
	}
	var errs []error
	for _, s := range steps {
		if err := s.run(ctx); err != nil {
			a.Log.Warn("migration warning", zap.String("step", s.name), zap.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", s.name, err))
		}
	}
	return errors.Join(errs...)
}

// Close releases database connections.
func (a *App) Close(ctx context.Context) {
	if a.Mongo != nil {
		if err := a.Mongo.Client().Disconnect(ctx); err != nil {
			a.Log.Warn("mongo disconnect", zap.Error(err))
		}
	}
	if a.DB != nil {
		if sqlDB, err := a.DB.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
}
