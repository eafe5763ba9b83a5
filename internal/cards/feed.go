package cards

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
	"gopkg.in/yaml.v3"
)

// Item is one bulletin entry.
type Item struct {
	Tag      string `yaml:"tag" json:"tag"`
	TagColor string `yaml:"tag-color" json:"tagColor"`
	Time     string `yaml:"time" json:"time"`
	Title    string `yaml:"title" json:"title"`
	Source   string `yaml:"source" json:"source"`
}

// Feed supplies bulletin items. Fetch may be called concurrently.
type Feed interface {
	Fetch(ctx context.Context) ([]Item, error)
}

// StaticFeed always returns the same items.
type StaticFeed []Item

func (f StaticFeed) Fetch(context.Context) ([]Item, error) {
	return append([]Item(nil), f...), nil
}

// SampleItems is the built-in bulletin used when a card has no feed configured.
var SampleItems = StaticFeed{
	{
		Tag:      "AI datacenter",
		TagColor: "#8b5cf6",
		Time:     "just now",
		Title:    "Blackwell GPU capacity tight, datacenter orders booked into 2026",
		Source:   "Industry news",
	},
	{
		Tag:      "GaN demand",
		TagColor: "#ec4899",
		Time:     "1h ago",
		Title:    "$80B AI datacenter build-out lifts demand for GaN power devices",
		Source:   "Wall Street CN",
	},
}

// FileFeed reads items from a YAML file on every fetch, so edits show up on
// the next refresh. The file holds a top-level "items" list.
type FileFeed struct {
	Path string
}

type fileFeedDoc struct {
	Items []Item `yaml:"items"`
}

func (f FileFeed) Fetch(ctx context.Context) ([]Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, fmt.Errorf("read feed file: %w", err)
	}
	var doc fileFeedDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse feed file %s: %w", f.Path, err)
	}
	return doc.Items, nil
}

// HTTPFeed fetches a JSON array of items from URL. At most maxInFlight
// requests run at once; overlapping refreshes of the same card wait their turn.
type HTTPFeed struct {
	url    string
	client *http.Client
	sem    *semaphore.Weighted
}

// NewHTTPFeed creates an HTTP feed. A nil client uses one with a 10s timeout.
func NewHTTPFeed(url string, client *http.Client, maxInFlight int64) *HTTPFeed {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	if maxInFlight <= 0 {
		maxInFlight = 1
	}
	return &HTTPFeed{url: url, client: client, sem: semaphore.NewWeighted(maxInFlight)}
}

func (f *HTTPFeed) Fetch(ctx context.Context) ([]Item, error) {
	if err := f.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer f.sem.Release(1)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("fetch feed: %s: unexpected status %d", f.url, resp.StatusCode)
	}

	var items []Item
	if err := json.NewDecoder(resp.Body).Decode(&items); err != nil {
		return nil, fmt.Errorf("decode feed: %w", err)
	}
	return items, nil
}

// CachedFeed serves the last successful fetch of its inner feed for TTL.
// Failed fetches are not cached.
type CachedFeed struct {
	inner Feed
	ttl   time.Duration
	now   func() time.Time

	mu      sync.Mutex
	items   []Item
	fetched time.Time
	valid   bool
}

// NewCachedFeed wraps inner with a TTL cache.
func NewCachedFeed(inner Feed, ttl time.Duration) *CachedFeed {
	return &CachedFeed{inner: inner, ttl: ttl, now: time.Now}
}

func (c *CachedFeed) Fetch(ctx context.Context) ([]Item, error) {
	c.mu.Lock()
	if c.valid && c.now().Sub(c.fetched) < c.ttl {
		items := append([]Item(nil), c.items...)
		c.mu.Unlock()
		return items, nil
	}
	c.mu.Unlock()

	items, err := c.inner.Fetch(ctx)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.items = append([]Item(nil), items...)
	c.fetched = c.now()
	c.valid = true
	c.mu.Unlock()
	return items, nil
}

// Invalidate drops the cached items.
func (c *CachedFeed) Invalidate() {
	c.mu.Lock()
	c.valid = false
	c.items = nil
	c.mu.Unlock()
}
