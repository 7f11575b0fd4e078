package metadata

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/time/rate"
	"gorm.io/gorm"

	"github.com/kopf/radiostats/internal/models"
)

type cacheKey struct {
	artist string
	title  string
}

// Normalizer reconciles raw scraped songs with canonical metadata:
// local pre-match first, then the Last.fm chain, then MusicBrainz work
// resolution. Remote calls are throttled since both services are
// rate-sensitive.
//
// The lookup cache is scoped to one Normalizer, i.e. one run; radio
// playlists repeat heavily and the same (artist, title) should not hit
// the network twice within a pass.
type Normalizer struct {
	db      *gorm.DB
	lastfm  *LastFM
	mb      *MusicBrainz
	matcher *Matcher
	limiter *rate.Limiter
	cache   map[cacheKey]*TrackInfo
}

func NewNormalizer(db *gorm.DB, lastfm *LastFM, mb *MusicBrainz, delay time.Duration) *Normalizer {
	return &Normalizer{
		db:      db,
		lastfm:  lastfm,
		mb:      mb,
		matcher: NewMatcher(db),
		limiter: rate.NewLimiter(rate.Every(delay), 1),
		cache:   make(map[cacheKey]*TrackInfo),
	}
}

// Run normalizes every song that has no canonical record yet. Songs
// that still cannot be resolved keep normalized = NULL and are picked up
// again on the next run.
func (n *Normalizer) Run(ctx context.Context) error {
	var songs []models.Song
	if err := n.db.Where("normalized_id IS NULL").Find(&songs).Error; err != nil {
		return fmt.Errorf("loading songs: %w", err)
	}
	log.Printf("Found %d songs to normalize...", len(songs))

	for i := range songs {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		song := &songs[i]
		if err := n.Normalize(ctx, song); err != nil {
			log.Printf("❌ Normalizing %q - %q: %v", song.Artist, song.Title, err)
		}
		now := time.Now().UTC()
		n.db.Model(song).Update("last_normalized", &now)

		if (i+1)%10 == 0 {
			log.Printf("Done %d of %d...", i+1, len(songs))
		}
	}
	return nil
}

// Normalize resolves one song against the metadata services. Safe to
// repeat: the canonical record is looked up or created by key, never
// duplicated. A song without a resolvable MBID is left untouched.
func (n *Normalizer) Normalize(ctx context.Context, song *models.Song) error {
	var info *TrackInfo
	if n.matcher != nil {
		info = n.matcher.Match(song.Artist, song.Title)
	}
	if info == nil {
		var err error
		info, err = n.lookup(ctx, song.Artist, song.Title, true)
		if err != nil {
			return err
		}
	}
	if info == nil {
		// Cannot continue without an MBID.
		return nil
	}
	return n.attach(song, info)
}

// lookup runs the remote chain: track.getInfo, then track.search, then
// one retry with only the first credited artist when the credit list
// uses a separator. Results (including misses) are cached for the run.
func (n *Normalizer) lookup(ctx context.Context, artist, title string, allowSplit bool) (*TrackInfo, error) {
	key := cacheKey{artist, title}
	if info, ok := n.cache[key]; ok {
		return info, nil
	}

	if err := n.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	info, err := n.lastfm.GetInfo(ctx, artist, title)
	if err != nil {
		return nil, err
	}

	fromSearch := false
	if info == nil {
		if err := n.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		info, err = n.lastfm.Search(ctx, artist, title)
		if err != nil {
			return nil, err
		}
		if info == nil {
			n.cache[key] = nil
			return nil, nil
		}
		fromSearch = true
	}

	if info.MBID == "" {
		if allowSplit && strings.Contains(artist, ";") {
			// Multiple credited artists; retry with the first one. Cache
			// the outcome under the original pair too, so repeats of the
			// full credit list do not redo the chain.
			first := strings.TrimSpace(strings.Split(artist, ";")[0])
			split, err := n.lookup(ctx, first, title, false)
			if err != nil {
				return nil, err
			}
			n.cache[key] = split
			return split, nil
		}
		n.cache[key] = nil
		return nil, nil
	}

	if fromSearch {
		if err := n.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		tags, err := n.lastfm.TopTags(ctx, info.MBID)
		if err != nil {
			log.Printf("⚠️ Tag lookup failed for %s: %v", info.MBID, err)
		} else {
			info.Tags = tags
		}
	}

	// MusicBrainz is as rate-sensitive as Last.fm.
	if err := n.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	info.MBID, info.Artist, info.Title = n.mb.ResolveWork(ctx, info.MBID, info.Artist, info.Title)
	n.cache[key] = info
	return info, nil
}

// attach upserts the canonical record plus its tags and points the song
// at it.
func (n *Normalizer) attach(song *models.Song, info *TrackInfo) error {
	normalized := models.NormalizedSong{
		MBID:   info.MBID,
		Artist: truncate(info.Artist, 256),
		Title:  truncate(info.Title, 256),
	}
	err := n.db.Where(models.NormalizedSong{
		MBID: normalized.MBID, Artist: normalized.Artist, Title: normalized.Title,
	}).FirstOrCreate(&normalized).Error
	if err != nil {
		return fmt.Errorf("upserting normalized song: %w", err)
	}

	for _, name := range info.Tags {
		if utf8.RuneCountInString(name) > models.TagMaxLength {
			// Tag longer than the column, probably junk.
			log.Printf("Failed creating tag: %s", name)
			continue
		}
		tag := models.Tag{Name: name}
		if err := n.db.Where(models.Tag{Name: name}).FirstOrCreate(&tag).Error; err != nil {
			log.Printf("Failed creating tag: %s (%v)", name, err)
			continue
		}
		if err := n.db.Model(&normalized).Association("Tags").Append(&tag); err != nil {
			log.Printf("Failed attaching tag %s: %v", name, err)
		}
	}

	song.NormalizedID = &normalized.ID
	return n.db.Model(song).Update("normalized_id", normalized.ID).Error
}
