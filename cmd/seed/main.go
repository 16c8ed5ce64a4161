// Command seed loads categories, sizes, colors, users and products from a
// YAML file into the configured store. Existing entries are skipped.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"storefront/internal/app"
	"storefront/internal/config"
	"storefront/internal/seed"
)

func main() {
	path := flag.String("file", "cmd/seed/sample.yaml", "seed file to load")
	timeout := flag.Duration("timeout", 2*time.Minute, "give up after this long")
	flag.Parse()

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("[CONFIG] [ERROR] %v", err)
	}
	if cfg.StoreDriver == config.DriverMemory {
		log.Println("[SEED] [WARN] STORE_DRIVER=memory, the seeded data disappears when this command exits")
	}

	f, err := seed.LoadFile(*path)
	if err != nil {
		log.Fatalf("[SEED] [ERROR] %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	application, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatalf("[SEED] [ERROR] startup failed: %v", err)
	}

	report, err := seed.Apply(ctx, application.SeedServices(), f)
	application.Close(context.Background())
	if err != nil {
		log.Fatalf("[SEED] [ERROR] stopped after created=%d skipped=%d: %v", report.Created, report.Skipped, err)
	}
	log.Printf("[SEED] [INFO] %s applied", *path)
}
