// Package persistence wires the configured database into a db.Pool.
package persistence

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/halolight/halolight/internal/common/config"
	"github.com/halolight/halolight/internal/common/logger"
	"github.com/halolight/halolight/internal/db"
)

// Provide creates the database pool used by repositories.
func Provide(cfg *config.Config, log *logger.Logger) (*db.Pool, func() error, error) {
	switch cfg.Database.Driver {
	case "sqlite":
		writer, err := db.OpenSQLite(cfg.Database.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open sqlite database: %w", err)
		}
		reader, err := db.OpenSQLiteReader(cfg.Database.Path)
		if err != nil {
			_ = writer.Close()
			return nil, nil, fmt.Errorf("failed to open sqlite reader: %w", err)
		}
		pool := db.NewPool(writer, reader)
		if log != nil {
			log.Info("Database initialized",
				zap.String("db_driver", "sqlite"),
				zap.String("db_path", cfg.Database.Path))
		}
		cleanup := func() error {
			// Run PRAGMA optimize before closing to update query planner
			// statistics for tables that need it.
			_, _ = writer.Exec("PRAGMA optimize")
			return pool.Close()
		}
		return pool, cleanup, nil

	case "postgres":
		conn, err := db.OpenPostgres(cfg.Database.DSN(), cfg.Database.MaxConns, cfg.Database.MinConns)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open postgres database: %w", err)
		}
		pool := db.NewPool(conn, conn)
		if log != nil {
			log.Info("Database initialized",
				zap.String("db_driver", "postgres"),
				zap.String("db_host", cfg.Database.Host))
		}
		return pool, pool.Close, nil

	default:
		return nil, nil, fmt.Errorf("unsupported database driver: %s", cfg.Database.Driver)
	}
}
