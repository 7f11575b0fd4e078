package metadata

// TrackInfo is the canonical metadata for one track as resolved against
// the external services: corrected credits, a stable MusicBrainz
// identifier and descriptive tags.
type TrackInfo struct {
	Artist string
	Title  string
	MBID   string
	Tags   []string
}

func truncate(s string, limit int) string {
	if runes := []rune(s); len(runes) > limit {
		return string(runes[:limit])
	}
	return s
}
