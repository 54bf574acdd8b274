package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"storefront-checkout/internal/config"
	"storefront-checkout/internal/db"
	"storefront-checkout/internal/importer"
	orderrepo "storefront-checkout/internal/repository/order"
)

func main() {
	var filePath string
	flag.StringVar(&filePath, "file", "", "Path to an order ledger CSV export (GET /admin/orders/export.csv)")
	flag.Parse()

	if filePath == "" {
		flag.Usage()
		os.Exit(2)
	}

	_ = godotenv.Load()
	cfg := config.FromEnv()
	if cfg.DBConnString == "" {
		log.Fatal("DB_DSN is required")
	}
	ctx := context.Background()

	pool, err := db.Connect(ctx, cfg.DBConnString)
	if err != nil {
		log.Fatalf("connect db: %v", err)
	}
	defer pool.Close()

	f, err := os.Open(filePath)
	if err != nil {
		log.Fatalf("open file: %v", err)
	}
	defer f.Close()

	logger := log.New(os.Stdout, "[importer] ", log.LstdFlags)
	imp := importer.NewCSVImporter(f, orderrepo.NewPostgres(pool, logger))

	start := time.Now()
	stats, err := imp.Run(ctx)
	if err != nil {
		log.Fatalf("import failed after %d orders: %v", stats.Imported, err)
	}

	fmt.Printf("Imported %d orders (%d already present) in %s\n", stats.Imported, stats.Skipped, time.Since(start).Truncate(time.Millisecond))
}
