package metadata

import (
	"strings"

	"github.com/hbollon/go-edlib"
	"gorm.io/gorm"

	"github.com/kopf/radiostats/internal/models"
)

// A candidate is accepted when its distance score stays below this
// threshold, i.e. roughly 65%+ confidence. Anything weaker falls through
// to the remote lookup chain.
const matchDistanceThreshold = 0.35

const matchCandidateLimit = 200

// Matcher is the high-precision local pre-match: before asking the
// remote services, look for a near-identical entry among the songs we
// already normalized and reuse its canonical record.
type Matcher struct {
	db *gorm.DB
}

func NewMatcher(db *gorm.DB) *Matcher {
	return &Matcher{db: db}
}

// Match returns the closest already-normalized record when it clears the
// distance threshold, nil otherwise.
func (m *Matcher) Match(artist, title string) *TrackInfo {
	prefix := artistPrefix(artist)
	if prefix == "" {
		return nil
	}

	var candidates []models.NormalizedSong
	err := m.db.Preload("Tags").
		Where("artist LIKE ?", prefix+"%").
		Limit(matchCandidateLimit).
		Find(&candidates).Error
	if err != nil || len(candidates) == 0 {
		return nil
	}

	var best *models.NormalizedSong
	bestDistance := 1.0
	for i := range candidates {
		c := &candidates[i]
		d := distance(artist, title, c.Artist, c.Title)
		if d < bestDistance {
			bestDistance = d
			best = c
		}
	}
	if best == nil || bestDistance >= matchDistanceThreshold {
		return nil
	}

	info := &TrackInfo{Artist: best.Artist, Title: best.Title, MBID: best.MBID}
	for _, tag := range best.Tags {
		info.Tags = append(info.Tags, tag.Name)
	}
	return info
}

// distance scores a candidate pair: mean Jaro-Winkler dissimilarity of
// artist and title, case-insensitive. 0 is identical, 1 is unrelated.
func distance(artist, title, candArtist, candTitle string) float64 {
	artistSim, err := edlib.StringsSimilarity(
		strings.ToLower(artist), strings.ToLower(candArtist), edlib.JaroWinkler)
	if err != nil {
		return 1
	}
	titleSim, err := edlib.StringsSimilarity(
		strings.ToLower(title), strings.ToLower(candTitle), edlib.JaroWinkler)
	if err != nil {
		return 1
	}
	return 1 - float64(artistSim+titleSim)/2
}

func artistPrefix(artist string) string {
	artist = strings.TrimSpace(artist)
	runes := []rune(artist)
	if len(runes) == 0 {
		return ""
	}
	if len(runes) > 3 {
		runes = runes[:3]
	}
	return string(runes)
}
