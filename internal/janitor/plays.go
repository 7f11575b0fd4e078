package janitor

import (
	"log"
	"time"

	"gorm.io/gorm"

	"github.com/kopf/radiostats/internal/models"
)

// Sometimes, especially when one show ends and another begins, a track
// is displayed twice on the station's website even though it was played
// once. Everything within this window of an earlier play of the same
// song counts as the same on-air event.
const duplicateWindow = 10 * time.Minute

// CollapseDuplicatePlays scans every station for near-duplicate plays
// and deletes all but the earliest of each cluster. Running it twice
// deletes nothing the second time.
func CollapseDuplicatePlays(db *gorm.DB) (map[string]int, error) {
	var stations []models.Station
	if err := db.Find(&stations).Error; err != nil {
		return nil, err
	}

	deleted := make(map[string]int)
	toDelete := make(map[uint]struct{})

	for _, station := range stations {
		log.Printf("Scanning %s", station.Name)
		deleted[station.Name] = 0

		var plays []models.Play
		err := db.Preload("Song").
			Where("station_id = ?", station.ID).
			Order("time ASC").
			Find(&plays).Error
		if err != nil {
			return nil, err
		}

		for i := range plays {
			play := &plays[i]

			var duplicates []models.Play
			err := db.Where(
				"song_id = ? AND station_id = ? AND time > ? AND time <= ? AND id <> ?",
				play.SongID, station.ID,
				play.Time, play.Time.Add(duplicateWindow),
				play.ID,
			).Find(&duplicates).Error
			if err != nil {
				return nil, err
			}
			if len(duplicates) == 0 {
				continue
			}

			log.Printf("Duplicate found on %s for %s %s", station.Name,
				play.Song.Title, play.Time.Format("2006-01-02 15:04:05"))
			for _, duplicate := range duplicates {
				if _, marked := toDelete[duplicate.ID]; marked {
					continue
				}
				log.Printf("Duplicate: %s", duplicate.Time.Format("2006-01-02 15:04:05"))
				toDelete[duplicate.ID] = struct{}{}
				deleted[station.Name]++
			}
		}
	}

	if len(toDelete) > 0 {
		log.Println("Deleting...")
		ids := make([]uint, 0, len(toDelete))
		for id := range toDelete {
			ids = append(ids, id)
		}
		if err := db.Delete(&models.Play{}, ids).Error; err != nil {
			return nil, err
		}
	}

	log.Println("==============")
	log.Println("Report:")
	for name, count := range deleted {
		log.Printf("%s: %d deleted", name, count)
	}
	log.Println("==============")
	return deleted, nil
}
