package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/go-resty/resty/v2"
)

// Some tracklist pages refuse requests without a browser User-Agent.
const userAgent = "Mozilla/5.0 (Windows NT 6.2; Win64; x64) AppleWebKit/537.36 " +
	"(KHTML, like Gecko) Chrome/32.0.1667.0 Safari/537.36"

// Client wraps resty with bounded retries and a fixed backoff. Transient
// source failures are common during overnight crawls; a single bad
// request must not take a whole date down.
type Client struct {
	http    *resty.Client
	retries int
	backoff time.Duration
}

func New(retries int) *Client {
	c := resty.New().
		SetHeader("User-Agent", userAgent).
		SetTimeout(15 * time.Second)
	return &Client{http: c, retries: retries, backoff: time.Second}
}

// SetUserAgent overrides the default User-Agent. API clients are expected
// to identify themselves (MusicBrainz requires a contact address).
func (c *Client) SetUserAgent(ua string) {
	c.http.SetHeader("User-Agent", ua)
}

// Get fetches a URL, retrying failures up to the configured count with a
// fixed sleep in between. After retries are exhausted it tries one last
// time and returns whatever happens.
func (c *Client) Get(ctx context.Context, url string) (*resty.Response, error) {
	for i := 0; i < c.retries; i++ {
		resp, err := c.http.R().SetContext(ctx).Get(url)
		if err == nil && resp.IsSuccess() {
			return resp, nil
		}
		if err == nil {
			err = fmt.Errorf("status %d", resp.StatusCode())
		}
		log.Printf("Fetch failed (%d/%d) for %s: %v", i+1, c.retries, url, err)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.backoff):
		}
	}
	// Try one last time, if it fails, it fails
	resp, err := c.http.R().SetContext(ctx).Get(url)
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// GetJSON fetches a URL and decodes the body. A decode failure gets one
// immediate re-fetch; rate-limited upstreams occasionally hand back
// truncated bodies that clear on the second read.
func (c *Client) GetJSON(ctx context.Context, url string, out any) error {
	if err := c.getJSONOnce(ctx, url, out); err != nil {
		log.Printf("Decode failed for %s, retrying once: %v", url, err)
		if err := c.getJSONOnce(ctx, url, out); err != nil {
			return fmt.Errorf("decode failed twice for %s: %w", url, err)
		}
	}
	return nil
}

func (c *Client) getJSONOnce(ctx context.Context, url string, out any) error {
	resp, err := c.Get(ctx, url)
	if err != nil {
		return err
	}
	return json.Unmarshal(resp.Body(), out)
}
