package crawl

import (
	"time"

	"gorm.io/gorm"

	"github.com/kopf/radiostats/internal/models"
)

// Cursor computes which dates still need to be crawled for a station.
type Cursor struct {
	db    *gorm.DB
	clock Clock
}

func NewCursor(db *gorm.DB, clock Clock) *Cursor {
	return &Cursor{db: db, clock: clock}
}

// DatesToProcess returns every calendar date from the most recent
// ingested play (or the station's start date when nothing was ingested
// yet) up to yesterday, most recent first. Sources list recent days most
// reliably, and walking backwards lets the termination rule cut off
// history that is already fully ingested.
//
// The most recent play is found by local_time: sources publish their
// schedules in station-local time, so the local calendar decides which
// day was covered last, not the UTC one.
func (c *Cursor) DatesToProcess(station *models.Station) []time.Time {
	from := station.StartDate

	var latest models.Play
	err := c.db.Where("station_id = ?", station.ID).
		Order("local_time DESC").
		First(&latest).Error
	if err == nil {
		from = latest.LocalTime
	}

	return dateRange(from, c.clock.Now())
}

// dateRange enumerates [from, today) as midnight dates, newest first.
// Today is excluded: its tracklist is still being written.
func dateRange(from, now time.Time) []time.Time {
	fromDay := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	var dates []time.Time
	for d := today.AddDate(0, 0, -1); !d.Before(fromDay); d = d.AddDate(0, 0, -1) {
		dates = append(dates, d)
	}
	return dates
}
