package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/kopf/radiostats/internal/fetch"
)

// LastFM queries the Last.fm web service for canonical track metadata.
// track.getInfo gives the precise answer when Last.fm knows the exact
// track; track.search is the fuzzy fallback.
type LastFM struct {
	fetch  *fetch.Client
	apiKey string

	// BaseURL is swapped for a test server in unit tests.
	BaseURL string
}

func NewLastFM(fc *fetch.Client, apiKey string) *LastFM {
	return &LastFM{fetch: fc, apiKey: apiKey, BaseURL: "https://ws.audioscrobbler.com/2.0/"}
}

func (l *LastFM) methodURL(method string, params url.Values) string {
	params.Set("method", method)
	params.Set("api_key", l.apiKey)
	params.Set("format", "json")
	params.Set("autocorrect", "1")
	return l.BaseURL + "?" + params.Encode()
}

// topTags absorbs a Last.fm quirk: "tag" is a list normally but a plain
// object when there is exactly one tag.
type topTags struct {
	Tag json.RawMessage `json:"tag"`
}

func (t topTags) names() []string {
	if len(t.Tag) == 0 {
		return nil
	}
	var many []struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(t.Tag, &many); err == nil {
		var names []string
		for _, tag := range many {
			if tag.Name != "" {
				names = append(names, tag.Name)
			}
		}
		return names
	}
	var one struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(t.Tag, &one); err == nil && one.Name != "" {
		return []string{one.Name}
	}
	return nil
}

type getInfoResponse struct {
	Error int `json:"error"`
	Track *struct {
		Name   string `json:"name"`
		MBID   string `json:"mbid"`
		Artist struct {
			Name string `json:"name"`
		} `json:"artist"`
		TopTags topTags `json:"toptags"`
	} `json:"track"`
}

// GetInfo looks up the exact track. It returns nil when Last.fm has no
// listing or only an incomplete one without an MBID; the caller should
// fall back to Search.
func (l *LastFM) GetInfo(ctx context.Context, artist, title string) (*TrackInfo, error) {
	params := url.Values{}
	params.Set("artist", artist)
	params.Set("track", title)

	var resp getInfoResponse
	if err := l.fetch.GetJSON(ctx, l.methodURL("track.getInfo", params), &resp); err != nil {
		return nil, err
	}
	if resp.Error != 0 || resp.Track == nil || resp.Track.MBID == "" {
		return nil, nil
	}
	return &TrackInfo{
		Artist: truncate(resp.Track.Artist.Name, 256),
		Title:  truncate(resp.Track.Name, 256),
		MBID:   resp.Track.MBID,
		Tags:   resp.Track.TopTags.names(),
	}, nil
}

type searchResponse struct {
	Results struct {
		TrackMatches json.RawMessage `json:"trackmatches"`
	} `json:"results"`
}

type searchMatch struct {
	Name   string `json:"name"`
	Artist string `json:"artist"`
	MBID   string `json:"mbid"`
}

// Search runs the fuzzy track search and returns the top match, or nil
// when Last.fm finds nothing. The match may lack an MBID; tags are not
// part of search results and need a separate TopTags call.
func (l *LastFM) Search(ctx context.Context, artist, title string) (*TrackInfo, error) {
	params := url.Values{}
	params.Set("artist", artist)
	params.Set("track", title)

	var resp searchResponse
	if err := l.fetch.GetJSON(ctx, l.methodURL("track.search", params), &resp); err != nil {
		return nil, err
	}
	// trackmatches is an empty string when nothing matched.
	var matches struct {
		Track json.RawMessage `json:"track"`
	}
	if err := json.Unmarshal(resp.Results.TrackMatches, &matches); err != nil {
		return nil, nil
	}

	var match searchMatch
	var list []searchMatch
	if err := json.Unmarshal(matches.Track, &list); err == nil {
		if len(list) == 0 {
			return nil, nil
		}
		match = list[0]
	} else if err := json.Unmarshal(matches.Track, &match); err != nil {
		return nil, nil
	}
	if match.Name == "" && match.Artist == "" {
		return nil, nil
	}
	return &TrackInfo{
		Artist: truncate(match.Artist, 256),
		Title:  truncate(match.Name, 256),
		MBID:   match.MBID,
	}, nil
}

// TopTags fetches the descriptive tags for a track by MBID.
func (l *LastFM) TopTags(ctx context.Context, mbid string) ([]string, error) {
	u := fmt.Sprintf("%s?method=track.getInfo&mbid=%s&api_key=%s&format=json",
		l.BaseURL, url.QueryEscape(mbid), l.apiKey)

	var resp getInfoResponse
	if err := l.fetch.GetJSON(ctx, u, &resp); err != nil {
		return nil, err
	}
	if resp.Track == nil {
		return nil, nil
	}
	return resp.Track.TopTags.names(), nil
}
