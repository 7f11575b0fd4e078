package metadata

import (
	"context"
	"fmt"
	"log"
	"net/url"

	"github.com/kopf/radiostats/internal/fetch"
)

// MusicBrainz resolves recording identifiers to the canonical "work"
// they perform, so different recordings of the same piece collapse onto
// one identifier. Cover versions keep their own identity.
type MusicBrainz struct {
	fetch *fetch.Client

	// BaseURL is swapped for a test server in unit tests.
	BaseURL string
}

func NewMusicBrainz(fc *fetch.Client) *MusicBrainz {
	return &MusicBrainz{fetch: fc, BaseURL: "https://musicbrainz.org/ws/2"}
}

type recordingResponse struct {
	ArtistCredit []struct {
		Name string `json:"name"`
	} `json:"artist-credit"`
	Relations []struct {
		Attributes []string `json:"attributes"`
		Work       struct {
			ID    string `json:"id"`
			Title string `json:"title"`
		} `json:"work"`
	} `json:"relations"`
}

// ResolveWork maps a recording MBID to its work MBID when the relation
// is not a cover. Best-effort: any failure falls back to the inputs
// unchanged.
func (m *MusicBrainz) ResolveWork(ctx context.Context, mbid, artist, title string) (string, string, string) {
	u := fmt.Sprintf("%s/recording/%s?inc=artist-credits+work-rels&fmt=json",
		m.BaseURL, url.PathEscape(mbid))

	var resp recordingResponse
	if err := m.fetch.GetJSON(ctx, u, &resp); err != nil {
		log.Printf("⚠️ [MusicBrainz] Work lookup failed for %s: %v", mbid, err)
		return mbid, artist, title
	}
	if len(resp.Relations) == 0 {
		return mbid, artist, title
	}

	relation := resp.Relations[0]
	for _, attr := range relation.Attributes {
		if attr == "cover" {
			return mbid, artist, title
		}
	}
	if relation.Work.ID == "" {
		return mbid, artist, title
	}
	if len(resp.ArtistCredit) > 0 {
		artist = resp.ArtistCredit[0].Name
	}
	return relation.Work.ID, artist, relation.Work.Title
}
