package search

import (
	"time"

	"github.com/kopf/radiostats/internal/models"
)

// PlayDocument is the search-index shape of one play, denormalized so
// the index can answer station/song/tag queries without joins.
type PlayDocument struct {
	LocalTime time.Time       `json:"local_time"`
	UTCTime   time.Time       `json:"utc_time"`
	Station   StationDocument `json:"station"`
	Song      SongDocument    `json:"song"`
}

type StationDocument struct {
	Name    string `json:"name"`
	Country string `json:"country"`
}

type SongDocument struct {
	Title      string   `json:"title"`
	Artist     string   `json:"artist"`
	Normalized bool     `json:"normalized"`
	Tags       []string `json:"tags"`
}

// BuildDocument serializes a play. The play must have Station, Song and
// Song.Normalized.Tags preloaded.
func BuildDocument(play *models.Play) PlayDocument {
	doc := PlayDocument{
		LocalTime: play.LocalTime,
		UTCTime:   play.Time,
		Station: StationDocument{
			Name:    play.Station.Name,
			Country: play.Station.Country,
		},
		Song: SongDocument{
			Title:  play.Song.Title,
			Artist: play.Song.Artist,
			Tags:   []string{},
		},
	}
	if play.Song.Normalized != nil {
		doc.Song.Normalized = true
		for _, tag := range play.Song.Normalized.Tags {
			doc.Song.Tags = append(doc.Song.Tags, tag.Name)
		}
	}
	return doc
}
