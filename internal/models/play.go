package models

import (
	"time"

	"gorm.io/gorm"
)

// Play is one observed broadcast of a song at a specific UTC instant on
// a specific station. (Time, StationID) is the idempotency key for
// ingestion: conflicting inserts are counted as "already present", never
// treated as errors.
//
// LocalTime keeps the station-local wall clock exactly as scraped. It is
// redundant with Time but both are persisted since some sources report
// ambiguous or UTC-like local times and we want the raw value for audit.
type Play struct {
	gorm.Model

	LocalTime time.Time `gorm:"index;not null"`
	Time      time.Time `gorm:"not null;uniqueIndex:idx_plays_station_time"`

	SongID uint `gorm:"index;not null"`
	Song   Song

	StationID uint `gorm:"not null;uniqueIndex:idx_plays_station_time"`
	Station   Station

	Synced bool `gorm:"default:false;index"`
}
