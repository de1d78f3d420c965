package migrate

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"

	"github.com/pressly/goose/v3"

	"github.com/angelmondragon/vendorledger-backend/pkg/config"
	"github.com/angelmondragon/vendorledger-backend/pkg/db"
	"github.com/angelmondragon/vendorledger-backend/pkg/logger"
)

// DefaultDir is relative to the repository root, where every binary is started.
const DefaultDir = "pkg/migrate/migrations"

func prepare(conn *sql.DB, dir string) error {
	if conn == nil || dir == "" {
		return fmt.Errorf("migrate: connection and dir are required")
	}
	return goose.SetDialect("postgres")
}

// Run executes a goose command (up, down, status, redo...) against conn.
func Run(ctx context.Context, conn *sql.DB, dir, command string, args ...string) error {
	if err := prepare(conn, dir); err != nil {
		return err
	}
	if err := goose.RunContext(ctx, command, conn, dir, args...); err != nil {
		return fmt.Errorf("goose %s: %w", command, err)
	}
	return nil
}

// MigrateToVersion moves the schema up or down until it sits at version.
func MigrateToVersion(ctx context.Context, conn *sql.DB, dir, version string) error {
	if err := prepare(conn, dir); err != nil {
		return err
	}
	target, err := strconv.ParseInt(version, 10, 64)
	if err != nil {
		return fmt.Errorf("migrate: version %q is not a goose timestamp: %w", version, err)
	}
	current, err := goose.GetDBVersionContext(ctx, conn)
	if err != nil {
		return fmt.Errorf("migrate: read db version: %w", err)
	}

	switch {
	case target > current:
		err = goose.UpToContext(ctx, conn, dir, target)
	case target < current:
		err = goose.DownToContext(ctx, conn, dir, target)
	}
	if err != nil {
		return fmt.Errorf("migrate: %d -> %d: %w", current, target, err)
	}
	return nil
}

// MaybeRunDev applies pending migrations on boot, but only in dev with the
// auto-migrate flag switched on. Other environments run cmd/migrate.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if !cfg.App.IsDev() || !cfg.FeatureFlags.AutoMigrate {
		return nil
	}
	conn, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("migrate: unwrap sql.DB: %w", err)
	}

	ctx = logg.WithField(ctx, "dir", DefaultDir)
	logg.Info(ctx, "auto-applying migrations")
	if err := Run(ctx, conn, DefaultDir, "up"); err != nil {
		return err
	}
	logg.Info(ctx, "migrations applied")
	return nil
}
