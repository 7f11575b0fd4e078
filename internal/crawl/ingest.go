package crawl

import (
	"context"
	"fmt"
	"html"
	"log"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/kopf/radiostats/internal/models"
	"github.com/kopf/radiostats/internal/sources"
)

// Field limit for artist and title, matching the Song columns.
const fieldLimit = 256

// Result counts what one date's ingestion did.
type Result struct {
	Found          int // raw tuples after exact dedup
	Inserted       int
	AlreadyPresent int
	Skipped        int // per-tuple failures, logged and moved past
}

// Ingester turns one date's raw tracklist into Song and Play rows.
// Inserts are idempotent: the (time, station) unique key absorbs
// duplicate runs and concurrent workers, conflicts are counted rather
// than raised.
type Ingester struct {
	db     *gorm.DB
	DryRun bool
}

func NewIngester(db *gorm.DB) *Ingester {
	return &Ingester{db: db}
}

// IngestDate fetches and stores the tracklist of a single date.
// Tuple-level failures never abort the date; date-level failures never
// abort the crawl (the runner logs and continues).
func (ing *Ingester) IngestDate(ctx context.Context, station *models.Station, adapter sources.Adapter, date time.Time) (Result, error) {
	var res Result

	raw, err := adapter.FetchTracks(ctx, date)
	if err != nil {
		return res, err
	}

	// Sources sometimes double-render the same row; collapse exact
	// (artist, title, timestamp) duplicates before ingesting.
	raw = dedupe(raw)
	res.Found = len(raw)

	for _, track := range raw {
		artist := cleanField(track.Artist)
		title := cleanField(track.Title)
		if artist == "" || title == "" {
			continue
		}

		localTime := track.PlayedAt
		utcTime, err := toUTC(localTime, station, adapter.UTCTimestamps())
		if err != nil {
			log.Printf("❌ %s: cannot convert %v to UTC: %v", station.Name, localTime, err)
			res.Skipped++
			errorsTotal.WithLabelValues(station.Name).Inc()
			continue
		}

		if ing.DryRun {
			ing.reportDryRun(station, artist, title, utcTime, &res)
			continue
		}

		song := models.Song{Artist: artist, Title: title}
		if err := ing.db.Where(models.Song{Artist: artist, Title: title}).FirstOrCreate(&song).Error; err != nil {
			// One malformed tuple must not block its siblings.
			log.Printf("❌ %s: song %q - %q: %v", station.Name, artist, title, err)
			res.Skipped++
			errorsTotal.WithLabelValues(station.Name).Inc()
			continue
		}

		play := models.Play{
			LocalTime: localTime,
			Time:      utcTime,
			SongID:    song.ID,
			StationID: station.ID,
		}
		create := ing.db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "time"}, {Name: "station_id"}},
			DoNothing: true,
		}).Create(&play)
		switch {
		case create.Error != nil:
			log.Printf("❌ %s: play at %v: %v", station.Name, utcTime, create.Error)
			res.Skipped++
			errorsTotal.WithLabelValues(station.Name).Inc()
		case create.RowsAffected == 0:
			// Already ingested on a previous run (or by a concurrent
			// insert that won the race). Expected, not an error.
			res.AlreadyPresent++
			alreadyPresentTotal.WithLabelValues(station.Name).Inc()
		default:
			res.Inserted++
			insertedTotal.WithLabelValues(station.Name).Inc()
		}
	}

	return res, nil
}

func (ing *Ingester) reportDryRun(station *models.Station, artist, title string, utcTime time.Time, res *Result) {
	var count int64
	ing.db.Model(&models.Play{}).
		Where("station_id = ? AND time = ?", station.ID, utcTime).
		Count(&count)
	if count > 0 {
		res.AlreadyPresent++
		return
	}
	log.Printf("[dry-run] %s: would ingest %q - %q at %v", station.Name, artist, title, utcTime)
	res.Inserted++
}

// dedupe never touches the input: adapters may hand out a slice they
// keep reusing.
func dedupe(tracks []sources.RawTrack) []sources.RawTrack {
	seen := make(map[sources.RawTrack]struct{}, len(tracks))
	out := make([]sources.RawTrack, 0, len(tracks))
	for _, t := range tracks {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

// cleanField decodes HTML entities, trims whitespace and caps the length.
// Nothing else: no case folding, so "Artist A" and "artist a" stay two
// distinct songs.
func cleanField(s string) string {
	s = html.UnescapeString(s)
	s = strings.TrimSpace(s)
	if runes := []rune(s); len(runes) > fieldLimit {
		s = strings.TrimSpace(string(runes[:fieldLimit]))
	}
	return s
}

// toUTC converts a scraped wall-clock time to the canonical UTC instant.
// Adapter-declared UTC timestamps pass through; everything else is
// interpreted in the station's timezone, which makes DST shifts fall out
// of the standard conversion rather than needing special handling.
func toUTC(localTime time.Time, station *models.Station, alreadyUTC bool) (time.Time, error) {
	if alreadyUTC {
		return localTime.UTC(), nil
	}
	loc, err := time.LoadLocation(station.Timezone)
	if err != nil {
		return time.Time{}, fmt.Errorf("station %s timezone %q: %w", station.Name, station.Timezone, err)
	}
	local := time.Date(localTime.Year(), localTime.Month(), localTime.Day(),
		localTime.Hour(), localTime.Minute(), localTime.Second(), 0, loc)
	return local.UTC(), nil
}
