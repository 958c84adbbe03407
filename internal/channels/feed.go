package channels

import (
	"context"
	"encoding/xml"
	"fmt"
	"log/slog"
	"time"

	"github.com/hoistdl/hoist/internal/httpclient"
)

const feedURLFormat = "https://www.youtube.com/feeds/videos.xml?channel_id=%s"

// FeedURL returns the Atom feed address for a channel
func FeedURL(channelID string) string {
	return fmt.Sprintf(feedURLFormat, channelID)
}

// FeedVideo is one entry of a channel feed
type FeedVideo struct {
	VideoID     string
	Title       string
	URL         string
	PublishedAt time.Time
}

// Feed is the parsed channel feed
type Feed struct {
	ChannelTitle string
	Videos       []FeedVideo
}

// Fetcher retrieves and parses channel feeds. The feed endpoint needs no
// credentials, so polling works even when downloads require cookies.
type Fetcher struct {
	client *httpclient.Client
	logger *slog.Logger
}

// NewFetcher creates a feed fetcher over the shared HTTP client
func NewFetcher(client *httpclient.Client, logger *slog.Logger) (*Fetcher, error) {
	if client == nil {
		return nil, fmt.Errorf("http client cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Fetcher{client: client, logger: logger}, nil
}

// Fetch downloads and parses the feed of one channel
func (f *Fetcher) Fetch(ctx context.Context, channelID string) (*Feed, error) {
	url := FeedURL(channelID)
	f.logger.Debug("fetching channel feed", "channel_id", channelID, "url", url)

	resp, err := f.client.Get(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed for %s: %w", channelID, err)
	}

	feed, err := parseFeed(resp.Body())
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed for %s: %w", channelID, err)
	}
	return feed, nil
}

type atomFeed struct {
	Title   string      `xml:"title"`
	Entries []atomEntry `xml:"entry"`
}

type atomEntry struct {
	VideoID   string   `xml:"http://www.youtube.com/xml/schemas/2015 videoId"`
	Title     string   `xml:"title"`
	Link      atomLink `xml:"link"`
	Published string   `xml:"published"`
}

type atomLink struct {
	Href string `xml:"href,attr"`
}

// parseFeed decodes a YouTube channel Atom feed
func parseFeed(data []byte) (*Feed, error) {
	var raw atomFeed
	if err := xml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("invalid feed XML: %w", err)
	}

	feed := &Feed{ChannelTitle: raw.Title}
	for _, entry := range raw.Entries {
		if entry.VideoID == "" {
			continue
		}

		url := entry.Link.Href
		if url == "" {
			url = fmt.Sprintf("https://www.youtube.com/watch?v=%s", entry.VideoID)
		}

		published, _ := time.Parse(time.RFC3339, entry.Published)
		feed.Videos = append(feed.Videos, FeedVideo{
			VideoID:     entry.VideoID,
			Title:       entry.Title,
			URL:         url,
			PublishedAt: published,
		})
	}
	return feed, nil
}
