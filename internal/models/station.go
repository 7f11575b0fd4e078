package models

import (
	"time"

	"gorm.io/gorm"
)

// Station is a radio source being tracked. Each station carries its own
// IANA timezone and the name of the source adapter that knows how to
// fetch its tracklists.
type Station struct {
	gorm.Model

	Name     string `gorm:"uniqueIndex;not null"`
	Country  string `gorm:"size:100"`
	Timezone string `gorm:"size:64"` // IANA name, e.g. "Europe/Berlin"

	// Adapter selects the source adapter from the registry; AdapterParam
	// carries the adapter-specific argument (tracklist URL template,
	// Last.fm username, ...).
	Adapter      string `gorm:"size:64;not null"`
	AdapterParam string `gorm:"size:256"`

	// StartDate is the earliest date we will ever crawl for this station.
	StartDate   time.Time
	LastScraped *time.Time
	Enabled     bool `gorm:"default:true"`
}
