package metadata

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/kopf/radiostats/internal/fetch"
	"github.com/kopf/radiostats/internal/models"
)

// emptyMusicBrainz answers every recording lookup with no relations, so
// ResolveWork falls back to its inputs.
func emptyMusicBrainz(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"artist-credit":[],"relations":[]}`)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestNormalizer(t *testing.T, db *gorm.DB, lastfmSrv, mbSrv *httptest.Server) *Normalizer {
	t.Helper()
	fc := fetch.New(1)
	lastfm := NewLastFM(fc, "test-key")
	lastfm.BaseURL = lastfmSrv.URL + "/"
	mb := NewMusicBrainz(fc)
	mb.BaseURL = mbSrv.URL
	return NewNormalizer(db, lastfm, mb, 0)
}

func TestRun_SearchFallbackResolvesAndTags(t *testing.T) {
	db := testDB(t)
	lastfmSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		switch {
		case q.Get("mbid") != "":
			fmt.Fprint(w, `{"track":{"name":"Let It Be","mbid":"mbid-123",
				"artist":{"name":"The Beatles"},
				"toptags":{"tag":[{"name":"rock"},{"name":"classic"}]}}}`)
		case q.Get("method") == "track.getInfo":
			fmt.Fprint(w, `{"error":6,"message":"Track not found"}`)
		case q.Get("method") == "track.search":
			fmt.Fprint(w, `{"results":{"trackmatches":{"track":[
				{"name":"Let It Be","artist":"The Beatles","mbid":"mbid-123"}]}}}`)
		}
	}))
	defer lastfmSrv.Close()
	mbSrv := emptyMusicBrainz(t)

	song := models.Song{Artist: "Beatles", Title: "Let it be"}
	db.Create(&song)

	n := newTestNormalizer(t, db, lastfmSrv, mbSrv)
	if err := n.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	var normalized models.NormalizedSong
	if err := db.Preload("Tags").First(&normalized).Error; err != nil {
		t.Fatalf("No normalized song created: %v", err)
	}
	if normalized.MBID != "mbid-123" {
		t.Errorf("MBID: got %q, want %q", normalized.MBID, "mbid-123")
	}
	if normalized.Artist != "The Beatles" || normalized.Title != "Let It Be" {
		t.Errorf("Canonical names: got %q - %q", normalized.Artist, normalized.Title)
	}
	if len(normalized.Tags) != 2 {
		t.Errorf("Got %d tags, want 2: %+v", len(normalized.Tags), normalized.Tags)
	}

	var reloaded models.Song
	db.First(&reloaded, song.ID)
	if reloaded.NormalizedID == nil || *reloaded.NormalizedID != normalized.ID {
		t.Error("Song not pointed at its normalized record")
	}
	if reloaded.LastNormalized == nil {
		t.Error("last_normalized not stamped")
	}
}

func TestNormalize_OversizedTagSkipped(t *testing.T) {
	db := testDB(t)
	longTag := strings.Repeat("x", models.TagMaxLength+1)
	lastfmSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"track":{"name":"Creep","mbid":"mbid-42",
			"artist":{"name":"Radiohead"},
			"toptags":{"tag":[{"name":"rock"},{"name":"%s"}]}}}`, longTag)
	}))
	defer lastfmSrv.Close()
	mbSrv := emptyMusicBrainz(t)

	song := models.Song{Artist: "Radiohead", Title: "Creep"}
	db.Create(&song)

	n := newTestNormalizer(t, db, lastfmSrv, mbSrv)
	if err := n.Normalize(context.Background(), &song); err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}

	var tags []models.Tag
	db.Find(&tags)
	if len(tags) != 1 || tags[0].Name != "rock" {
		t.Errorf("Got tags %+v, want only %q", tags, "rock")
	}
}

func TestNormalize_MultiArtistRetriesWithFirstCredit(t *testing.T) {
	db := testDB(t)
	lastfmSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		switch {
		case q.Get("method") == "track.getInfo" && q.Get("artist") == "Daft Punk":
			fmt.Fprint(w, `{"track":{"name":"Get Lucky","mbid":"mbid-456",
				"artist":{"name":"Daft Punk"},
				"toptags":{"tag":{"name":"electronic"}}}}`)
		case q.Get("method") == "track.getInfo":
			fmt.Fprint(w, `{"error":6,"message":"Track not found"}`)
		case q.Get("method") == "track.search":
			// Single-object trackmatches quirk, and no MBID: this is what
			// triggers the credit split retry.
			fmt.Fprint(w, `{"results":{"trackmatches":{"track":
				{"name":"Get Lucky","artist":"Daft Punk","mbid":""}}}}`)
		}
	}))
	defer lastfmSrv.Close()
	mbSrv := emptyMusicBrainz(t)

	song := models.Song{Artist: "Daft Punk; Pharrell Williams", Title: "Get Lucky"}
	db.Create(&song)

	n := newTestNormalizer(t, db, lastfmSrv, mbSrv)
	if err := n.Normalize(context.Background(), &song); err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}

	var normalized models.NormalizedSong
	if err := db.First(&normalized).Error; err != nil {
		t.Fatalf("No normalized song created: %v", err)
	}
	if normalized.MBID != "mbid-456" {
		t.Errorf("MBID: got %q, want %q", normalized.MBID, "mbid-456")
	}
}

func TestRun_UnresolvableSongStaysUnnormalized(t *testing.T) {
	db := testDB(t)
	lastfmSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("method") == "track.search" {
			// Empty results come back as a bare string, not an object.
			fmt.Fprint(w, `{"results":{"trackmatches":""}}`)
			return
		}
		fmt.Fprint(w, `{"error":6,"message":"Track not found"}`)
	}))
	defer lastfmSrv.Close()
	mbSrv := emptyMusicBrainz(t)

	song := models.Song{Artist: "Unknown Garage Band", Title: "Demo 3"}
	db.Create(&song)

	n := newTestNormalizer(t, db, lastfmSrv, mbSrv)
	if err := n.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	var count int64
	db.Model(&models.NormalizedSong{}).Count(&count)
	if count != 0 {
		t.Errorf("Got %d normalized songs, want 0", count)
	}

	var reloaded models.Song
	db.First(&reloaded, song.ID)
	if reloaded.NormalizedID != nil {
		t.Error("Unresolvable song got a normalized_id")
	}
	if reloaded.LastNormalized == nil {
		t.Error("last_normalized not stamped on a miss")
	}
}

func TestLookup_MultiArtistResultCachedUnderOriginalKey(t *testing.T) {
	db := testDB(t)
	var remoteCalls int
	lastfmSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		remoteCalls++
		q := r.URL.Query()
		switch {
		case q.Get("method") == "track.getInfo" && q.Get("artist") == "Daft Punk":
			fmt.Fprint(w, `{"track":{"name":"Get Lucky","mbid":"mbid-456",
				"artist":{"name":"Daft Punk"},
				"toptags":{"tag":{"name":"electronic"}}}}`)
		case q.Get("method") == "track.getInfo":
			fmt.Fprint(w, `{"error":6,"message":"Track not found"}`)
		case q.Get("method") == "track.search":
			fmt.Fprint(w, `{"results":{"trackmatches":{"track":
				{"name":"Get Lucky","artist":"Daft Punk","mbid":""}}}}`)
		}
	}))
	defer lastfmSrv.Close()
	mbSrv := emptyMusicBrainz(t)

	n := newTestNormalizer(t, db, lastfmSrv, mbSrv)

	info, err := n.lookup(context.Background(), "Daft Punk; Pharrell Williams", "Get Lucky", true)
	if err != nil {
		t.Fatalf("First lookup failed: %v", err)
	}
	if info == nil || info.MBID != "mbid-456" {
		t.Fatalf("First lookup: got %+v", info)
	}
	afterFirst := remoteCalls

	// Radio playlists repeat; the full credit list must hit the cache,
	// not redo the getInfo/search/split chain.
	info, err = n.lookup(context.Background(), "Daft Punk; Pharrell Williams", "Get Lucky", true)
	if err != nil {
		t.Fatalf("Second lookup failed: %v", err)
	}
	if info == nil || info.MBID != "mbid-456" {
		t.Fatalf("Second lookup: got %+v", info)
	}
	if remoteCalls != afterFirst {
		t.Errorf("Second lookup made %d extra requests, want 0", remoteCalls-afterFirst)
	}
}

func TestLookup_ThrottlesWorkResolution(t *testing.T) {
	db := testDB(t)
	lastfmSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"track":{"name":"Creep","mbid":"mbid-42",
			"artist":{"name":"Radiohead"},"toptags":{"tag":[]}}}`)
	}))
	defer lastfmSrv.Close()
	mbSrv := emptyMusicBrainz(t)

	fc := fetch.New(1)
	lastfm := NewLastFM(fc, "test-key")
	lastfm.BaseURL = lastfmSrv.URL + "/"
	mb := NewMusicBrainz(fc)
	mb.BaseURL = mbSrv.URL

	// getInfo plus the MusicBrainz work resolution is two remote calls,
	// so the limiter must hold the chain for at least one delay.
	delay := 50 * time.Millisecond
	start := time.Now()
	n := NewNormalizer(db, lastfm, mb, delay)
	if _, err := n.lookup(context.Background(), "Radiohead", "Creep", true); err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if elapsed := time.Since(start); elapsed < delay {
		t.Errorf("Chain finished in %v, want at least %v between remote calls", elapsed, delay)
	}
}

func TestNormalize_LocalMatchSkipsRemoteLookup(t *testing.T) {
	db := testDB(t)
	remoteCalls := 0
	lastfmSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		remoteCalls++
		http.Error(w, "should not be called", http.StatusInternalServerError)
	}))
	defer lastfmSrv.Close()
	mbSrv := emptyMusicBrainz(t)

	existing := models.NormalizedSong{
		MBID: "mbid-789", Artist: "Radiohead", Title: "Creep",
		Tags: []models.Tag{{Name: "rock"}},
	}
	db.Create(&existing)

	song := models.Song{Artist: "radiohead", Title: "creep"}
	db.Create(&song)

	n := newTestNormalizer(t, db, lastfmSrv, mbSrv)
	if err := n.Normalize(context.Background(), &song); err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}

	if remoteCalls != 0 {
		t.Errorf("Remote service called %d times despite local match", remoteCalls)
	}
	var reloaded models.Song
	db.First(&reloaded, song.ID)
	if reloaded.NormalizedID == nil || *reloaded.NormalizedID != existing.ID {
		t.Error("Song not attached to the locally matched record")
	}
}
