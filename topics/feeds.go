package topics

import (
	"context"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/mmcdole/gofeed"
	"golang.org/x/sync/errgroup"

	"article_canvas/generator"
)

// Feed is one RSS source.
type Feed struct {
	Name string `json:"name" toml:"name"`
	URL  string `json:"url" toml:"url"`
}

// DefaultFeeds are business news feeds with a steady supply of headlines.
var DefaultFeeds = []Feed{
	{Name: "Yahoo Finance", URL: "https://feeds.finance.yahoo.com/rss/2.0/headline?s=^GSPC&region=US&lang=en-US"},
	{Name: "NY Times Business", URL: "https://rss.nytimes.com/services/xml/rss/nyt/Business.xml"},
	{Name: "BBC Business", URL: "https://feeds.bbci.co.uk/news/business/rss.xml"},
	{Name: "CNBC", URL: "https://www.cnbc.com/id/100003114/device/rss/rss.html"},
	{Name: "MarketWatch", URL: "https://feeds.marketwatch.com/marketwatch/topstories/"},
}

const (
	perFeedLimit   = 5
	minTitleLen    = 15
	maxSummaryLen  = 150
	dedupeKeyLen   = 30
	defaultTimeout = 15 * time.Second
)

// FetchNews reads every feed concurrently and returns the usable headlines,
// deduplicated, in feed order. A feed that fails contributes nothing.
func (s *Service) FetchNews(ctx context.Context) []Topic {
	results := make([][]Topic, len(s.feeds))

	var g errgroup.Group
	for i, f := range s.feeds {
		g.Go(func() error {
			items, err := s.fetchFeed(ctx, f)
			if err != nil {
				s.infof("feed %s failed: %v", f.Name, err)
				return nil
			}
			results[i] = items
			return nil
		})
	}
	_ = g.Wait()

	var all []Topic
	for _, r := range results {
		all = append(all, r...)
	}
	return Dedupe(all)
}

func (s *Service) fetchFeed(ctx context.Context, f Feed) ([]Topic, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	fp := gofeed.NewParser()
	fp.Client = s.client
	feed, err := fp.ParseURLWithContext(f.URL, ctx)
	if err != nil {
		return nil, err
	}
	return headlines(feed, f.Name), nil
}

// headlines keeps up to perFeedLimit items, skipping short titles and ads.
func headlines(feed *gofeed.Feed, source string) []Topic {
	var out []Topic
	for _, item := range feed.Items {
		if len(out) >= perFeedLimit {
			break
		}
		title := CleanHeadline(generator.HTMLToText(item.Title))
		if utf8.RuneCountInString(title) < minTitleLen || strings.Contains(strings.ToLower(title), "sponsored") {
			continue
		}
		link := item.Link
		if link == "" {
			link = "#"
		}
		out = append(out, Topic{
			Title:   title,
			Link:    link,
			Summary: summarize(item.Description),
			Source:  source,
		})
	}
	return out
}

func summarize(desc string) string {
	text := generator.HTMLToText(desc)
	if utf8.RuneCountInString(text) > maxSummaryLen {
		text = string([]rune(text)[:maxSummaryLen])
	}
	return text
}

// Dedupe drops topics whose titles share the same leading 30 lowercase
// letters and digits, keeping the first.
func Dedupe(in []Topic) []Topic {
	seen := make(map[string]bool, len(in))
	out := make([]Topic, 0, len(in))
	for _, t := range in {
		k := dedupeKey(t.Title)
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, t)
	}
	return out
}

func dedupeKey(title string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(title) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			if b.Len() == dedupeKeyLen {
				break
			}
		}
	}
	return b.String()
}

func defaultHTTPClient() *http.Client {
	return &http.Client{Timeout: defaultTimeout}
}
