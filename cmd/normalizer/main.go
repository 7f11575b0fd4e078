package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/kopf/radiostats/internal/config"
	database "github.com/kopf/radiostats/internal/db"
	"github.com/kopf/radiostats/internal/fetch"
	"github.com/kopf/radiostats/internal/metadata"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("Starting Song Normalizer...")

	// 1. Setup Configuration
	cfg := config.Load()
	cfg.RequireLastFM()

	// 2. Initialize Infrastructure
	db := database.New(cfg)
	db.AutoMigrate()

	fc := fetch.New(cfg.Scraper.FetchRetries)
	if cfg.Services.ContactEmail != "" {
		// MusicBrainz asks API consumers to identify themselves.
		fc.SetUserAgent("radiostats/1.0 ( " + cfg.Services.ContactEmail + " )")
	}

	lastfm := metadata.NewLastFM(fc, cfg.Services.LastFMAPIKey)
	mb := metadata.NewMusicBrainz(fc)
	delay := time.Duration(cfg.Normalizer.DelaySeconds * float64(time.Second))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 3. Run one normalization pass
	normalizer := metadata.NewNormalizer(db.DB, lastfm, mb, delay)
	if err := normalizer.Run(ctx); err != nil {
		log.Fatalf("❌ Normalization failed: %v", err)
	}
	log.Println("✅ Normalization complete")
}
