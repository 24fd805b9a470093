package app

import (
	"context"

	"go.uber.org/zap"

	"outbreaksim/adapters/export"
	"outbreaksim/adapters/postgres"
	"outbreaksim/adapters/postgres/migrations"
	"outbreaksim/internal/config"
	"outbreaksim/ports"
)

// DefaultStoreFile is the CSV file backing the result store when no database
// is configured.
const DefaultStoreFile = "detection.csv"

// ResultStore is an opened result repository plus its cleanup.
type ResultStore struct {
	ports.ResultRepository
	Backend string
	close   func() error
}

// Close releases the underlying connection, if any.
func (s *ResultStore) Close() error {
	if s.close == nil {
		return nil
	}
	return s.close()
}

// OpenResultStore returns the Postgres repository when DATABASE_URL is set,
// applying pending migrations first. Otherwise records live in
// <OutputDir>/detection.csv.
func OpenResultStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*ResultStore, error) {
	if !cfg.Database.Enabled() {
		path := ResolvePath(cfg.Run.OutputDir, DefaultStoreFile)
		logger.Info("no database configured, using CSV result store", zap.String("path", path))
		return &ResultStore{ResultRepository: export.NewCSVStore(path), Backend: "csv"}, nil
	}

	db, err := postgres.Open(ctx, cfg.Database.URL, postgres.Options{
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	})
	if err != nil {
		return nil, err
	}
	if err := migrations.NewMigrator(db, logger.Named("migrations")).Up(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return &ResultStore{
		ResultRepository: postgres.NewResultRepository(db),
		Backend:          "postgres",
		close:            db.Close,
	}, nil
}
