package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"appforge/internal/gateway/config"
	"appforge/internal/gateway/repository/apps"
	"appforge/internal/gateway/repository/artifact"
)

type gatewayStores struct {
	apps   apps.Store
	cache  *apps.CachedStore
	mirror *artifact.Mirror
	db     *sql.DB
}

func initStores(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*gatewayStores, error) {
	cacheCfg := apps.CacheConfig{MaxEntries: cfg.Cache.Size, TTL: cfg.Cache.TTL}
	stores := &gatewayStores{}

	if dsn := cfg.Database.URL; dsn != "" {
		if cfg.Database.AutoMigrate {
			if err := apps.Migrate(dsn, logger); err != nil {
				return nil, err
			}
		}
		db, err := apps.Open(ctx, dsn)
		if err != nil {
			return nil, err
		}
		stores.db = db
		stores.cache = apps.NewCachedStore(apps.NewPostgresStore(db), cacheCfg)
		logger.Info().Msg("record store: postgres")
	} else {
		stores.cache = apps.NewCachedStore(apps.NewMemoryStore(), cacheCfg)
		logger.Warn().Msg("record store: in-memory, records are lost on restart")
	}
	stores.apps = stores.cache

	mirror, err := chooseMirror(cfg.Artifact, logger)
	if err != nil {
		_ = stores.close()
		return nil, err
	}
	stores.mirror = mirror
	return stores, nil
}

func chooseMirror(cfg config.ArtifactConfig, logger zerolog.Logger) (*artifact.Mirror, error) {
	if !cfg.Enabled() {
		logger.Debug().Msg("artifact mirror: disabled")
		return nil, nil
	}
	s3Store, err := artifact.NewS3Store(artifact.S3Config{
		Endpoint:  cfg.Endpoint,
		Region:    cfg.Region,
		AccessKey: cfg.AccessKey,
		SecretKey: cfg.SecretKey,
		Bucket:    cfg.Bucket,
		UseSSL:    cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize artifact s3 store: %w", err)
	}
	logger.Info().Str("bucket", cfg.Bucket).Str("endpoint", cfg.Endpoint).Msg("artifact mirror: s3")
	return artifact.NewMirror(s3Store, logger), nil
}

func (s *gatewayStores) close() error {
	var errs []error
	if s.db != nil {
		errs = append(errs, s.db.Close())
	}
	return errors.Join(errs...)
}
