package janitor

import (
	"log"

	"gorm.io/gorm"

	"github.com/kopf/radiostats/internal/models"
)

// Historical imports predate the (artist, title) unique index, so the
// songs table can hold duplicate rows. Plays are repointed to the oldest
// row and the newer duplicates removed.
const duplicateSongsSQL = `
SELECT
    MIN(id) AS id,
    MAX(id) AS max_id,
    COUNT(id) AS count_id
FROM songs
WHERE deleted_at IS NULL
GROUP BY artist, title
HAVING COUNT(id) > 1`

type duplicateSong struct {
	ID      uint
	MaxID   uint
	CountID int
}

// MergeDuplicateSongs folds duplicate (artist, title) rows into the
// oldest one until none remain. Returns how many rows were merged away.
func MergeDuplicateSongs(db *gorm.DB) (int, error) {
	merged := 0
	for {
		var duplicates []duplicateSong
		if err := db.Raw(duplicateSongsSQL).Scan(&duplicates).Error; err != nil {
			return merged, err
		}
		if len(duplicates) == 0 {
			break
		}
		log.Printf("%d duplicates found, removing...", len(duplicates))

		for _, dup := range duplicates {
			err := db.Model(&models.Play{}).
				Where("song_id = ?", dup.MaxID).
				Update("song_id", dup.ID).Error
			if err != nil {
				return merged, err
			}
			if err := db.Delete(&models.Song{}, dup.MaxID).Error; err != nil {
				return merged, err
			}
			merged++
		}
	}
	return merged, nil
}
