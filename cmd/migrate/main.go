package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"

	"github.com/joho/godotenv"

	"storefront-checkout/internal/config"
	"storefront-checkout/internal/db"
	"storefront-checkout/internal/migrate"
)

func main() {
	statusOnly := flag.Bool("status", false, "Print the applied schema version and exit")
	flag.Parse()

	logger := log.New(os.Stdout, "[migrate] ", log.LstdFlags|log.LUTC|log.Lshortfile)
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Printf("load .env: %v", err)
	}
	cfg := config.FromEnv()
	if cfg.DBConnString == "" {
		logger.Fatalf("DB_DSN is required")
	}

	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg.DBConnString)
	if err != nil {
		logger.Fatalf("connect db: %v", err)
	}
	defer pool.Close()

	if *statusOnly {
		version, dirty, err := migrate.Status(ctx, pool)
		if err != nil {
			logger.Fatalf("read status: %v", err)
		}
		logger.Printf("schema version %d dirty=%v", version, dirty)
		return
	}

	if err := migrate.Apply(ctx, pool); err != nil {
		logger.Fatalf("apply migrations: %v", err)
	}

	version, _, err := migrate.Status(ctx, pool)
	if err != nil {
		logger.Fatalf("read status: %v", err)
	}
	logger.Printf("migrations applied, %s at schema version %d", migrate.LedgerTable, version)
}
