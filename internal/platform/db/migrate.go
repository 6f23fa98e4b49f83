package db

import (
	"database/sql"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	pgxmigrate "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/jackc/pgx/v5/stdlib"
)

// Migrate applies pending schema migrations from the embedded filesystem.
// It is idempotent; an up-to-date database is not an error.
func Migrate(dsn string, migrations fs.FS, logger *slog.Logger) error {
	source, err := iofs.New(migrations, ".")
	if err != nil {
		return fmt.Errorf("platform/db: migration source: %w", err)
	}

	conn, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("platform/db: open migration conn: %w", err)
	}

	driver, err := pgxmigrate.WithInstance(conn, &pgxmigrate.Config{})
	if err != nil {
		return fmt.Errorf("platform/db: migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "pgx", driver)
	if err != nil {
		return fmt.Errorf("platform/db: migration instance: %w", err)
	}
	defer func() {
		srcErr, dbErr := m.Close()
		if srcErr != nil && logger != nil {
			logger.Warn("close migration source", slog.Any("error", srcErr))
		}
		if dbErr != nil && logger != nil {
			logger.Warn("close migration conn", slog.Any("error", dbErr))
		}
	}()

	if err := m.Up(); err != nil {
		if err == migrate.ErrNoChange {
			return nil
		}
		return fmt.Errorf("platform/db: migrate up: %w", err)
	}

	if logger != nil {
		if version, dirty, verr := m.Version(); verr == nil {
			logger.Info("applied migrations", slog.Uint64("version", uint64(version)), slog.Bool("dirty", dirty))
		}
	}
	return nil
}
