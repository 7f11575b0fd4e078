package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kopf/radiostats/internal/config"
	"github.com/kopf/radiostats/internal/crawl"
	database "github.com/kopf/radiostats/internal/db"
	"github.com/kopf/radiostats/internal/fetch"
	"github.com/kopf/radiostats/internal/sources"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	station := flag.String("station", "", "Restrict the crawl to one station by name")
	sequential := flag.Bool("sequential", false, "Crawl stations one after another instead of in parallel")
	dryRun := flag.Bool("dry-run", false, "Report would-be-ingested tracks without writing")
	flag.Parse()

	log.Println("Starting Radio Stats Scraper...")

	// 1. Setup Configuration
	cfg := config.Load()

	// 2. Initialize Infrastructure
	db := database.New(cfg)

	// 3. Run Database Migrations & Seed
	db.AutoMigrate()
	if err := database.SeedStations(db.DB, cfg.Scraper.StationsFile); err != nil {
		log.Printf("⚠️ Station seeding skipped: %v", err)
	}

	// 4. Setup Metrics
	crawl.RegisterMetrics()
	go func() {
		http.Handle("/metrics", promhttp.Handler())
		log.Printf("📊 Metrics exposed at http://localhost%s/metrics", cfg.Scraper.MetricsPort)
		if err := http.ListenAndServe(cfg.Scraper.MetricsPort, nil); err != nil {
			log.Printf("⚠️ Metrics server error: %v", err)
		}
	}()

	// 5. Crawl. Interrupts stop cleanly between dates.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	deps := sources.Deps{
		Fetch:        fetch.New(cfg.Scraper.FetchRetries),
		LastFMAPIKey: cfg.Services.LastFMAPIKey,
	}
	runner := crawl.NewRunner(db.DB, deps, crawl.RealClock{})
	runner.Sequential = *sequential
	runner.SetDryRun(*dryRun)

	if err := runner.Run(ctx, *station); err != nil {
		log.Fatalf("❌ Crawl failed: %v", err)
	}
	log.Println("✅ Crawl complete")
}
