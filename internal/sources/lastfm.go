package sources

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"strconv"
	"time"

	"github.com/kopf/radiostats/internal/fetch"
)

const lastFMMaxPages = 10000

func init() {
	Register("lastfm", func(param string, deps Deps) Adapter {
		return &lastFMAdapter{
			username: param,
			apiKey:   deps.LastFMAPIKey,
			fetch:    deps.Fetch,
			baseURL:  "https://ws.audioscrobbler.com/2.0/",
		}
	})
}

// lastFMAdapter pulls a station's play history from a Last.fm account
// (some stations scrobble everything they broadcast). One fetch walks the
// whole paginated history, so the crawl terminates after the first date.
type lastFMAdapter struct {
	username string
	apiKey   string
	fetch    *fetch.Client
	baseURL  string
}

func (a *lastFMAdapter) TerminateEarly() bool { return true }
func (a *lastFMAdapter) UTCTimestamps() bool  { return true }

type recentTracksResponse struct {
	RecentTracks struct {
		Track []struct {
			Artist struct {
				Text string `json:"#text"`
			} `json:"artist"`
			Name string `json:"name"`
			Date struct {
				UTS string `json:"uts"`
			} `json:"date"`
		} `json:"track"`
	} `json:"recenttracks"`
}

func (a *lastFMAdapter) FetchTracks(ctx context.Context, date time.Time) ([]RawTrack, error) {
	var tracks []RawTrack

	// Last.fm serves the first page again for out-of-bounds page numbers.
	// Remember the first track of the previous page and stop when the
	// current page starts with the same one.
	var previousFirst string
	for page := 1; page < lastFMMaxPages; page++ {
		u := fmt.Sprintf("%s?method=user.getrecenttracks&user=%s&api_key=%s&format=json&limit=200&page=%d",
			a.baseURL, url.QueryEscape(a.username), a.apiKey, page)

		var resp recentTracksResponse
		if err := a.fetch.GetJSON(ctx, u, &resp); err != nil {
			return nil, fmt.Errorf("last.fm page %d for %s: %w", page, a.username, err)
		}
		pageTracks := resp.RecentTracks.Track
		if len(pageTracks) == 0 {
			break
		}
		first := pageTracks[0].Artist.Text + "\x00" + pageTracks[0].Name + "\x00" + pageTracks[0].Date.UTS
		if first == previousFirst {
			break
		}
		previousFirst = first

		log.Printf("Scraping Last.fm username %s (page %d)", a.username, page)
		for _, t := range pageTracks {
			if t.Date.UTS == "" {
				// currently playing
				continue
			}
			uts, err := strconv.ParseInt(t.Date.UTS, 10, 64)
			if err != nil {
				continue
			}
			tracks = append(tracks, RawTrack{
				Artist:   t.Artist.Text,
				Title:    t.Name,
				PlayedAt: time.Unix(uts, 0).UTC(),
			})
		}
	}

	if len(tracks) == 0 {
		return nil, ErrNoData
	}
	return tracks, nil
}
