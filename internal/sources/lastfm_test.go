package sources

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kopf/radiostats/internal/fetch"
)

func TestLastFMFetchTracks(t *testing.T) {
	// Out-of-bounds pages serve page 1 again, like the real service does.
	pageOne := `{"recenttracks":{"track":[
		{"artist":{"#text":"Boards of Canada"},"name":"Roygbiv","date":{"uts":"1392372000"}},
		{"artist":{"#text":"Aphex Twin"},"name":"Xtal","date":{"uts":"1392371700"}},
		{"artist":{"#text":"Autechre"},"name":"Nil","date":{}}]}}`

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, pageOne)
	}))
	defer srv.Close()

	adapter := &lastFMAdapter{
		username: "ByteFM",
		apiKey:   "test-key",
		fetch:    fetch.New(0),
		baseURL:  srv.URL + "/",
	}

	tracks, err := adapter.FetchTracks(context.Background(), time.Date(2014, 2, 14, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("FetchTracks failed: %v", err)
	}

	// The currently-playing entry (no uts) is dropped, and the repeated
	// page stops the pagination instead of doubling every track.
	if len(tracks) != 2 {
		t.Fatalf("Got %d tracks, want 2: %+v", len(tracks), tracks)
	}
	if tracks[0].Artist != "Boards of Canada" || tracks[0].Title != "Roygbiv" {
		t.Errorf("First track: got %q - %q", tracks[0].Artist, tracks[0].Title)
	}
	want := time.Unix(1392372000, 0).UTC()
	if !tracks[0].PlayedAt.Equal(want) {
		t.Errorf("First track time: got %v, want %v", tracks[0].PlayedAt, want)
	}
}

func TestLastFMFetchTracks_EmptyHistory(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"recenttracks":{"track":[]}}`)
	}))
	defer srv.Close()

	adapter := &lastFMAdapter{
		username: "ByteFM",
		apiKey:   "test-key",
		fetch:    fetch.New(0),
		baseURL:  srv.URL + "/",
	}

	_, err := adapter.FetchTracks(context.Background(), time.Date(2014, 2, 14, 0, 0, 0, 0, time.UTC))
	if !errors.Is(err, ErrNoData) {
		t.Errorf("Got %v, want ErrNoData", err)
	}
}

func TestAdapterRegistry(t *testing.T) {
	if _, err := New("tracklist", "https://example.com/{date}", Deps{Fetch: fetch.New(0)}); err != nil {
		t.Errorf("tracklist adapter not registered: %v", err)
	}
	if _, err := New("lastfm", "SomeUser", Deps{Fetch: fetch.New(0)}); err != nil {
		t.Errorf("lastfm adapter not registered: %v", err)
	}
	if _, err := New("bogus", "", Deps{}); err == nil {
		t.Error("Expected error for unknown adapter, got nil")
	}
}
