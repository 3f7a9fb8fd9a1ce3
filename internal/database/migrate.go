package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pressly/goose/v3"
	"github.com/sirupsen/logrus"

	"github.com/DoSvEinTe/proyecto-flota/migrations"
)

// NewMigrationProvider builds a goose provider over the embedded schema
func NewMigrationProvider(db *sql.DB) (*goose.Provider, error) {
	provider, err := goose.NewProvider(goose.DialectPostgres, db, migrations.FS)
	if err != nil {
		return nil, fmt.Errorf("failed to create migration provider: %w", err)
	}
	return provider, nil
}

// Migrate applies all pending migrations
func Migrate(ctx context.Context, db *sql.DB, logger *logrus.Logger) error {
	provider, err := NewMigrationProvider(db)
	if err != nil {
		return err
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	for _, r := range results {
		logger.WithFields(logrus.Fields{
			"version":  r.Source.Version,
			"path":     r.Source.Path,
			"duration": r.Duration.String(),
		}).Info("Applied migration")
	}
	if len(results) == 0 {
		logger.Info("Database schema is up to date")
	}
	return nil
}
