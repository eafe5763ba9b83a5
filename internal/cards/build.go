package cards

import (
	"fmt"
	"strings"
	"time"

	"github.com/tinytelemetry/cardwall/internal/model"
	"github.com/tinytelemetry/cardwall/internal/surface"
)

// Card kinds accepted by Build.
const (
	KindBulletin = "bulletin"
	KindClock    = "clock"
	KindHistory  = "history"
)

// Spec is the declarative form of a card, as read from configuration.
type Spec struct {
	ID       string        `mapstructure:"id"`
	Kind     string        `mapstructure:"kind"`
	Title    string        `mapstructure:"title"`
	Subtitle string        `mapstructure:"subtitle"`
	Interval time.Duration `mapstructure:"interval"`
	FeedFile string        `mapstructure:"feed-file"`
	FeedURL  string        `mapstructure:"feed-url"`
	CacheTTL time.Duration `mapstructure:"cache-ttl"`
}

// Build turns a spec into a card definition. reader backs history cards and
// may be nil when none are configured.
func Build(board *surface.Board, reader model.OutcomeReader, s Spec) (Definition, error) {
	title := s.Title
	if title == "" {
		title = s.ID
	}
	f := Frame{Title: title, Subtitle: s.Subtitle}

	switch strings.ToLower(strings.TrimSpace(s.Kind)) {
	case KindBulletin, "":
		return NewBulletin(board, s.ID, f, feedFor(s), s.Interval), nil
	case KindClock:
		return NewClock(board, s.ID, f, s.Interval), nil
	case KindHistory:
		if reader == nil {
			return Definition{}, fmt.Errorf("card %q: history needs an outcome store", s.ID)
		}
		return NewHistory(board, s.ID, f, reader, s.Interval), nil
	default:
		return Definition{}, fmt.Errorf("%w: %q (card %q)", ErrUnknownKind, s.Kind, s.ID)
	}
}

func feedFor(s Spec) Feed {
	var feed Feed
	switch {
	case s.FeedURL != "":
		feed = NewHTTPFeed(s.FeedURL, nil, 1)
	case s.FeedFile != "":
		feed = FileFeed{Path: s.FeedFile}
	default:
		return SampleItems
	}
	if s.CacheTTL > 0 {
		feed = NewCachedFeed(feed, s.CacheTTL)
	}
	return feed
}

// DefaultSpecs is the card set used when configuration declares none.
func DefaultSpecs() []Spec {
	return []Spec{
		{ID: "finance-bulletin", Kind: KindBulletin, Title: "Finance Bulletin", Subtitle: "AI · datacenter · GaN", Interval: model.DefaultBulletinEvery},
		{ID: "clock", Kind: KindClock, Title: "Clock", Interval: time.Second},
		{ID: "refresh-history", Kind: KindHistory, Title: "Refresh History", Subtitle: "outcomes per card", Interval: 30 * time.Second},
	}
}
