package main

// Run database migrations for the configured store:
//   go run ./cmd/migrate

import (
	"context"
	"log"
	"os"

	"resume-enhancer/internal/shared/config"
	"resume-enhancer/internal/shared/storage/db"
	"resume-enhancer/internal/shared/storage/sqlite"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	ctx := context.Background()

	switch cfg.StoreDriver {
	case config.StoreSQLite:
		sqlDB, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			log.Printf("failed to migrate sqlite: %v", err)
			os.Exit(1)
		}
		_ = sqlDB.Close()
	case config.StorePostgres:
		opts := db.OptionsFromEnv(db.DefaultMigrateOptions())
		sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, opts)
		if err != nil {
			log.Printf("failed to connect database: %v", err)
			os.Exit(1)
		}
		defer sqlDB.Close()

		if err := db.RunMigrations(ctx, sqlDB); err != nil {
			log.Printf("failed to run migrations: %v", err)
			os.Exit(1)
		}
	default:
		log.Printf("store %q has no migrations", cfg.StoreDriver)
	}
}
