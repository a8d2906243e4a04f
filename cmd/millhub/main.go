package main

import (
	"context"
	"log"

	"github.com/joho/godotenv"

	"github.com/millhub-dev/millhub/db"
	"github.com/millhub-dev/millhub/internal/config"
	"github.com/millhub-dev/millhub/internal/quotes"
	"github.com/millhub-dev/millhub/internal/router"
	"github.com/millhub-dev/millhub/internal/storage"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using process environment")
	}

	cfg, err := config.Load()

	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	database, err := db.Connect(cfg.DatabaseDSN)

	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	if err := db.Migrate(database); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	var blobs storage.BlobStore

	if cfg.S3Endpoint != "" {
		blobs, err = storage.NewS3Store(context.Background(), cfg)

		if err != nil {
			log.Fatalf("Failed to initialize blob storage: %v", err)
		}
	} else {
		log.Println("S3_ENDPOINT not set, storing uploads in memory")
		blobs = storage.NewMemoryStore()
	}

	synth := quotes.NewSynthesizer(database)

	r := router.NewRouter(database, cfg, blobs, synth)

	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
