package crawl

import (
	"fmt"
	"testing"

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

func testStation(t *testing.T, db *gorm.DB, name, timezone, adapter string) *models.Station {
	t.Helper()
	station := &models.Station{
		Name:     name,
		Country:  "DE",
		Timezone: timezone,
		Adapter:  adapter,
		Enabled:  true,
	}
	if err := db.Create(station).Error; err != nil {
		t.Fatalf("Failed to create test station: %v", err)
	}
	return station
}
