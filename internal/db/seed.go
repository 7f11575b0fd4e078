package database

import (
	"fmt"
	"log"
	"os"
	"time"

	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/kopf/radiostats/internal/models"
)

type stationSeed struct {
	Name         string `yaml:"name"`
	Country      string `yaml:"country"`
	Timezone     string `yaml:"timezone"`
	Adapter      string `yaml:"adapter"`
	AdapterParam string `yaml:"adapter_param"`
	StartDate    string `yaml:"start_date"` // YYYY-MM-DD
	Enabled      *bool  `yaml:"enabled"`
}

type seedFile struct {
	Stations []stationSeed `yaml:"stations"`
}

// SeedStations populates the stations table from a YAML seed file.
// Existing rows are left alone so operator edits (enabled flag,
// last_scraped) survive restarts.
func SeedStations(db *gorm.DB, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading stations file: %w", err)
	}

	var file seedFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return fmt.Errorf("parsing stations file: %w", err)
	}

	log.Printf("🌱 Seeding %d Stations...", len(file.Stations))
	for _, s := range file.Stations {
		startDate, err := time.Parse("2006-01-02", s.StartDate)
		if err != nil {
			return fmt.Errorf("station %s: bad start_date %q: %w", s.Name, s.StartDate, err)
		}
		enabled := true
		if s.Enabled != nil {
			enabled = *s.Enabled
		}
		station := models.Station{
			Name:         s.Name,
			Country:      s.Country,
			Timezone:     s.Timezone,
			Adapter:      s.Adapter,
			AdapterParam: s.AdapterParam,
			StartDate:    startDate,
			Enabled:      enabled,
		}
		// UPSERT based on 'name' to prevent duplicates on restart
		db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name"}},
			DoNothing: true,
		}).Create(&station)
	}
	return nil
}
