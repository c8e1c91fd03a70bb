// Command seed fills the local database with demo posts for dashboard work.
package main

import (
	"context"
	"flag"
	"log"

	"mindposter/internal/config"
	"mindposter/internal/database"
	"mindposter/internal/repository"
	"mindposter/internal/seed"
)

func main() {
	count := flag.Int("n", 12, "number of demo posts to create")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	repo := repository.NewPostRepository(db)
	if err := seed.Posts(context.Background(), repo, *count); err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}

	log.Printf("Seeded %d demo posts", *count)
}
