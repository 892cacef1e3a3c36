package migrate

import (
	"context"
	"fmt"

	"github.com/pressly/goose/v3"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

// MaybeRunDev brings the schema up to date on boot for local setups: dev
// with STOREFRONT_AUTO_MIGRATE, or any sqlite store, which has no separate
// migrate step. Production schemas only move through cmd/migrate.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if !shouldAutoRun(cfg, client.Driver()) {
		return nil
	}

	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}

	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "driver": client.Driver()})
	if err := Run(ctx, sqlDB, client.Driver(), "", "up"); err != nil {
		return fmt.Errorf("running goose up: %w", err)
	}

	if version, err := goose.GetDBVersionContext(ctx, sqlDB); err == nil {
		ctx = logg.WithField(ctx, "schema_version", version)
	}
	logg.Info(ctx, "schema migrated on boot")
	return nil
}

func shouldAutoRun(cfg *config.Config, driver string) bool {
	if cfg.App.IsProd() {
		return false
	}
	if driver == config.DriverSQLite {
		return true
	}
	return cfg.App.IsDev() && cfg.FeatureFlags.AutoMigrate
}
