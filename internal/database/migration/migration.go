// Package migration applies the embedded schema migrations with goose.
package migration

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"time"

	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
)

//go:embed sql/*.sql
var files embed.FS

// FS is the migrations directory rooted at the .sql files.
func FS() fs.FS {
	sub, err := fs.Sub(files, "sql")
	if err != nil {
		panic(err)
	}
	return sub
}

// NewProvider returns a goose provider for the documents schema.
func NewProvider(db *sql.DB) (*goose.Provider, error) {
	return goose.NewProvider(goose.DialectPostgres, db, FS())
}

// EnsureMigrated applies every pending migration and logs each applied step.
func EnsureMigrated(ctx context.Context, db *sql.DB, log *zap.Logger, dbHost string) error {
	start := time.Now()
	log = log.With(zap.String("component", "database"), zap.String("db_host", dbHost))
	log.Info("db_migration_check", zap.String("status", "starting"))

	p, err := NewProvider(db)
	if err != nil {
		log.Error("db_migration_failed", zap.String("status", "error"), zap.Error(err))
		return fmt.Errorf("init migrations: %w", err)
	}

	results, err := p.Up(ctx)
	for _, res := range results {
		fields := []zap.Field{
			zap.String("migration_step", res.Source.Path),
			zap.Int64("version", res.Source.Version),
			zap.Int64("step_duration_ms", res.Duration.Milliseconds()),
		}
		if res.Error != nil {
			log.Error("db_migration_step", append(fields, zap.String("status", "error"), zap.Error(res.Error))...)
			continue
		}
		log.Info("db_migration_step", append(fields, zap.String("status", "success"))...)
	}
	if err != nil {
		log.Error("db_migration_failed",
			zap.String("status", "error"),
			zap.Error(err),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
		)
		return fmt.Errorf("apply migrations: %w", err)
	}

	if len(results) == 0 {
		log.Info("db_migration_skip",
			zap.String("status", "success"),
			zap.String("detail", "schema already up to date"),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
		)
		return nil
	}
	log.Info("db_migration_success",
		zap.String("status", "success"),
		zap.Int("applied", len(results)),
		zap.Int64("duration_ms", time.Since(start).Milliseconds()),
	)
	return nil
}
