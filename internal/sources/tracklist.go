package sources

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/kopf/radiostats/internal/fetch"
)

func init() {
	Register("tracklist", func(param string, deps Deps) Adapter {
		return &tracklistAdapter{urlTemplate: param, fetch: deps.Fetch}
	})
}

// tracklistAdapter scrapes "what played today" HTML pages. The
// station-specific argument is a URL template with a {date} placeholder
// (replaced with YYYYMMDD). The markup contract is minimal: any element
// whose class contains "track", holding children classed "artist",
// "title" and "time" (HH:MM or HH.MM, optional seconds).
type tracklistAdapter struct {
	urlTemplate string
	fetch       *fetch.Client
}

func (a *tracklistAdapter) TerminateEarly() bool { return false }
func (a *tracklistAdapter) UTCTimestamps() bool  { return false }

func (a *tracklistAdapter) FetchTracks(ctx context.Context, date time.Time) ([]RawTrack, error) {
	u := strings.ReplaceAll(a.urlTemplate, "{date}", date.Format("20060102"))
	resp, err := a.fetch.Get(ctx, u)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode() == http.StatusNotFound {
		return nil, ErrNoData
	}

	tracks, err := parseTracklist(resp.Body(), date)
	if err != nil {
		return nil, fmt.Errorf("parsing tracklist %s: %w", u, err)
	}
	if len(tracks) == 0 {
		return nil, ErrNoData
	}
	return tracks, nil
}

func parseTracklist(body []byte, date time.Time) ([]RawTrack, error) {
	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	var tracks []RawTrack
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && hasClass(n, "track") {
			artist := classText(n, "artist")
			title := classText(n, "title")
			playedAt, ok := timeToDatetime(classText(n, "time"), date)
			if artist != "" && title != "" && ok {
				tracks = append(tracks, RawTrack{Artist: artist, Title: title, PlayedAt: playedAt})
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return tracks, nil
}

func hasClass(n *html.Node, name string) bool {
	for _, attr := range n.Attr {
		if attr.Key != "class" {
			continue
		}
		for _, c := range strings.Fields(attr.Val) {
			if c == name {
				return true
			}
		}
	}
	return false
}

// classText returns the text content of the first descendant with the
// given class.
func classText(n *html.Node, name string) string {
	var found *html.Node
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if found != nil {
			return
		}
		if n.Type == html.ElementNode && hasClass(n, name) {
			found = n
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c)
	}
	if found == nil {
		return ""
	}
	return strings.TrimSpace(textContent(found))
}

func textContent(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	var sb strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		sb.WriteString(textContent(c))
	}
	return sb.String()
}

// timeToDatetime combines a text time ("14:32", "14.32.05") with the
// crawl date into a wall-clock timestamp.
func timeToDatetime(text string, date time.Time) (time.Time, bool) {
	text = strings.TrimSpace(text)
	sep := ":"
	if !strings.Contains(text, ":") {
		sep = "."
	}
	parts := strings.Split(text, sep)
	if len(parts) < 2 {
		return time.Time{}, false
	}
	hour, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return time.Time{}, false
	}
	minute, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return time.Time{}, false
	}
	second := 0
	if len(parts) > 2 {
		second, _ = strconv.Atoi(strings.TrimSpace(parts[2]))
	}
	return time.Date(date.Year(), date.Month(), date.Day(), hour, minute, second, 0, time.UTC), true
}
