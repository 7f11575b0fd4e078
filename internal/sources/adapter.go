package sources

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kopf/radiostats/internal/fetch"
)

// RawTrack is one scraped tracklist row. PlayedAt carries the source's
// wall-clock time: station-local unless the adapter reports UTC
// timestamps, in which case it is already the UTC instant.
type RawTrack struct {
	Artist   string
	Title    string
	PlayedAt time.Time
}

// ErrNoData signals that the source has nothing for the requested date.
// The crawl skips the date and moves on.
var ErrNoData = errors.New("no data for date")

// Adapter is the source-specific capability: given a date, produce the
// raw tracklist. Each station's quirks live in its own adapter; nothing
// is shared beyond this contract.
type Adapter interface {
	FetchTracks(ctx context.Context, date time.Time) ([]RawTrack, error)

	// TerminateEarly reports that a single fetch covers the whole
	// available history, so the crawl stops after the first date
	// instead of walking backwards day by day.
	TerminateEarly() bool

	// UTCTimestamps reports whether PlayedAt values are already UTC
	// rather than station-local.
	UTCTimestamps() bool
}

// Deps carries the shared collaborators adapters are built from.
type Deps struct {
	Fetch        *fetch.Client
	LastFMAPIKey string
}

type Factory func(param string, deps Deps) Adapter

var registry = map[string]Factory{}

func Register(name string, f Factory) {
	registry[name] = f
}

// New builds the adapter registered under name. param is the
// station-specific argument from configuration (URL template, username).
func New(name, param string, deps Deps) (Adapter, error) {
	f, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("unknown adapter %q", name)
	}
	return f(param, deps), nil
}
