package janitor

import (
	"fmt"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/kopf/radiostats/internal/models"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	err = db.AutoMigrate(
		&models.Station{},
		&models.Song{},
		&models.NormalizedSong{},
		&models.Tag{},
		&models.Play{},
	)
	if err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}
	return db
}

func createStation(t *testing.T, db *gorm.DB, name string) *models.Station {
	t.Helper()
	station := &models.Station{Name: name, Country: "DE", Timezone: "Europe/Berlin", Adapter: "tracklist", Enabled: true}
	if err := db.Create(station).Error; err != nil {
		t.Fatalf("Failed to create station: %v", err)
	}
	return station
}

func createSong(t *testing.T, db *gorm.DB, artist, title string) *models.Song {
	t.Helper()
	song := &models.Song{Artist: artist, Title: title}
	if err := db.Create(song).Error; err != nil {
		t.Fatalf("Failed to create song: %v", err)
	}
	return song
}

func createPlay(t *testing.T, db *gorm.DB, station *models.Station, song *models.Song, at time.Time) *models.Play {
	t.Helper()
	play := &models.Play{LocalTime: at, Time: at, SongID: song.ID, StationID: station.ID}
	if err := db.Create(play).Error; err != nil {
		t.Fatalf("Failed to create play: %v", err)
	}
	return play
}
