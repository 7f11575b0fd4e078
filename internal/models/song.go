package models

import (
	"time"

	"gorm.io/gorm"
)

// TagMaxLength is the storage limit for tag names. Anything longer is
// almost certainly junk from the metadata service and gets skipped.
const TagMaxLength = 32

// Song is a raw (artist, title) pair exactly as scraped: trimmed,
// entity-decoded and length-capped, but never case-folded. Two plays of
// "Artist A" and "artist a" remain two distinct songs.
type Song struct {
	gorm.Model

	Artist string `gorm:"size:256;not null;uniqueIndex:idx_songs_artist_title"`
	Title  string `gorm:"size:256;not null;uniqueIndex:idx_songs_artist_title"`

	NormalizedID   *uint
	Normalized     *NormalizedSong
	LastNormalized *time.Time
}

// NormalizedSong is the canonical metadata record for a song, keyed by
// its MusicBrainz identifier. Many Songs may point at one NormalizedSong.
type NormalizedSong struct {
	gorm.Model

	MBID   string `gorm:"size:36;not null;uniqueIndex:idx_normalized_key"`
	Artist string `gorm:"size:256;uniqueIndex:idx_normalized_key"`
	Title  string `gorm:"size:256;uniqueIndex:idx_normalized_key"`

	Tags []Tag `gorm:"many2many:normalized_song_tags"`
}

// Tag is a descriptive label from the metadata service ("rock", "90s").
type Tag struct {
	gorm.Model

	Name string `gorm:"size:32;not null;uniqueIndex"`
}
