package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"outbreaksim/adapters/postgres"
	"outbreaksim/adapters/postgres/migrations"
	"outbreaksim/internal/config"
	"outbreaksim/internal/logging"
)

func main() {
	if len(os.Args) < 2 {
		log.Fatal("Usage: migrate <up|status|down>")
	}

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if !cfg.Database.Enabled() {
		log.Fatal("DATABASE_URL is required")
	}
	logger := logging.Must(cfg.Env, cfg.Log.Level)
	defer logger.Sync()

	ctx := context.Background()
	db, err := postgres.Open(ctx, cfg.Database.URL, postgres.Options{})
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	migrator := migrations.NewMigrator(db, logger)

	switch os.Args[1] {
	case "up":
		if err := migrator.Up(ctx); err != nil {
			logger.Fatal("migration failed", zap.Error(err))
		}
		logger.Info("migrations applied")
	case "status":
		statuses, err := migrator.Status(ctx)
		if err != nil {
			logger.Fatal("failed to read migration status", zap.Error(err))
		}
		for _, s := range statuses {
			state := "pending"
			if s.Applied {
				state = "applied"
			}
			fmt.Printf("%-8s %s\n", state, s.Name)
		}
	case "down":
		version, err := migrator.Down(ctx)
		if err != nil {
			logger.Fatal("rollback failed", zap.Error(err))
		}
		logger.Info("rolled back migration record", zap.String("version", version))
	default:
		log.Fatalf("Unknown command %q (want up, status or down)", os.Args[1])
	}
}
