package main

import (
	"context"
	"fmt"

	"github.com/joho/godotenv"

	"github.com/heydayle/next-gen-ai/internal/config"
	"github.com/heydayle/next-gen-ai/internal/store/sqlite"
)

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	if cfg.Storage.Backend != "" && cfg.Storage.Backend != "sqlite" {
		fmt.Printf("Backend %q has no schema to migrate\n", cfg.Storage.Backend)
		return
	}

	fmt.Printf("Migrating %s to schema version %d...\n", cfg.Storage.Path, cfg.Storage.SchemaVersion)

	// Open applies the embedded migrations
	s := sqlite.NewStore(cfg.Storage)
	if err := s.Open(context.Background()); err != nil {
		panic(fmt.Sprintf("Migration failed: %v", err))
	}
	defer s.Close()

	fmt.Println("Migration complete")
}
