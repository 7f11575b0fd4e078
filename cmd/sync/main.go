package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/elastic/go-elasticsearch/v8"

	"github.com/kopf/radiostats/internal/config"
	database "github.com/kopf/radiostats/internal/db"
	"github.com/kopf/radiostats/internal/search"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("Starting Search Index Sync...")

	cfg := config.Load()
	db := database.New(cfg)
	db.AutoMigrate()

	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{cfg.Elasticsearch.URL},
	})
	if err != nil {
		log.Fatalf("❌ Failed to create Elasticsearch client: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	syncer := search.NewSyncer(db.DB, es, cfg.Elasticsearch.Index)
	if err := syncer.Run(ctx); err != nil {
		log.Fatalf("❌ Sync failed: %v", err)
	}
	log.Println("✅ Sync complete")
}
