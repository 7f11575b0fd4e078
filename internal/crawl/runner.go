package crawl

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"

	"github.com/kopf/radiostats/internal/models"
	"github.com/kopf/radiostats/internal/sources"
)

// Runner crawls every enabled station: one worker per station, fully
// independent, joined at the end. A crashed adapter takes down its own
// station's crawl and nothing else.
type Runner struct {
	db       *gorm.DB
	cursor   *Cursor
	ingester *Ingester
	deps     sources.Deps
	clock    Clock

	Sequential bool
}

func NewRunner(db *gorm.DB, deps sources.Deps, clock Clock) *Runner {
	return &Runner{
		db:       db,
		cursor:   NewCursor(db, clock),
		ingester: NewIngester(db),
		deps:     deps,
		clock:    clock,
	}
}

// SetDryRun makes the crawl report would-be inserts without writing.
func (r *Runner) SetDryRun(v bool) {
	r.ingester.DryRun = v
}

// Run crawls all enabled stations, or just the named one when only is
// non-empty.
func (r *Runner) Run(ctx context.Context, only string) error {
	query := r.db.Where("enabled = ?", true)
	if only != "" {
		query = query.Where("name = ?", only)
	}

	var stations []models.Station
	if err := query.Find(&stations).Error; err != nil {
		return fmt.Errorf("loading stations: %w", err)
	}
	if len(stations) == 0 {
		return fmt.Errorf("no enabled stations matched")
	}

	if r.Sequential {
		for i := range stations {
			r.crawlStation(ctx, &stations[i])
		}
		return nil
	}

	var wg sync.WaitGroup
	for i := range stations {
		station := &stations[i]
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.crawlStation(ctx, station)
		}()
	}
	wg.Wait()
	return nil
}

func (r *Runner) crawlStation(ctx context.Context, station *models.Station) {
	// Isolate failure domains: a panicking adapter must not take down
	// sibling stations.
	defer func() {
		if rec := recover(); rec != nil {
			log.Printf("❌ Station %s crawl crashed: %v", station.Name, rec)
		}
	}()

	adapter, err := sources.New(station.Adapter, station.AdapterParam, r.deps)
	if err != nil {
		log.Printf("❌ Station %s: %v", station.Name, err)
		return
	}

	var total Result
	for _, date := range r.cursor.DatesToProcess(station) {
		select {
		case <-ctx.Done():
			log.Printf("Station %s: interrupted, stopping between dates", station.Name)
			return
		default:
		}

		log.Printf("Scraping %s for date %s...", station.Name, date.Format("2006-01-02"))
		timer := prometheus.NewTimer(dateDuration)
		res, err := r.ingester.IngestDate(ctx, station, adapter, date)
		timer.ObserveDuration()

		switch {
		case errors.Is(err, sources.ErrNoData):
			// A true off-air day. Earlier dates may still have data.
			log.Printf("No data found for date %s on %s.", date.Format("20060102"), station.Name)
			continue
		case err != nil:
			log.Printf("❌ Scraping %s on %s failed: %v", station.Name, date.Format("20060102"), err)
			errorsTotal.WithLabelValues(station.Name).Inc()
			continue
		}

		total.Found += res.Found
		total.Inserted += res.Inserted
		total.AlreadyPresent += res.AlreadyPresent
		total.Skipped += res.Skipped

		if r.shouldStop(adapter, res) {
			log.Printf("End reached for %s at %s. Stopping...", station.Name, date.Format("2006-01-02"))
			r.markScraped(station)
			break
		}
	}

	log.Printf("✅ %s done: %d new, %d already present, %d skipped",
		station.Name, total.Inserted, total.AlreadyPresent, total.Skipped)
}

// shouldStop decides whether to keep walking backwards through history.
// Terminate-early adapters deliver everything in one fetch. Otherwise a
// date where every fetched track was already present means the crawl has
// caught up with previously ingested history, and everything older is
// assumed ingested too. Tuples that were skipped or cleaned to nothing
// say nothing about coverage, so they keep the crawl going.
func (r *Runner) shouldStop(adapter sources.Adapter, res Result) bool {
	if adapter.TerminateEarly() {
		return true
	}
	return res.Found > 0 && res.AlreadyPresent == res.Found
}

// markScraped stamps last_scraped = now (UTC). The stamp only ever moves
// forward.
func (r *Runner) markScraped(station *models.Station) {
	if r.ingester.DryRun {
		return
	}
	now := r.clock.Now().UTC()
	if station.LastScraped != nil && !now.After(*station.LastScraped) {
		return
	}
	station.LastScraped = &now
	if err := r.db.Model(station).Update("last_scraped", &now).Error; err != nil {
		log.Printf("❌ Station %s: persisting last_scraped: %v", station.Name, err)
	}
}
