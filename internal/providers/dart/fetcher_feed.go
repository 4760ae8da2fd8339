package dart

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/mmcdole/gofeed"

	"github.com/seenimoa/krfin/internal/provider"
	"github.com/seenimoa/krfin/pkg/models"
)

// --- DisclosureFeed fetcher ---

type feedFetcher struct {
	provider.BaseFetcher
	p *Provider
}

// Fetch reads the public today-disclosure RSS feed. No API key is needed.
// An optional query keeps items whose title or company contains it.
func (f *feedFetcher) Fetch(ctx context.Context, params provider.QueryParams) (*provider.FetchResult, error) {
	var items []models.FeedItem
	if cached, ok := f.CacheGet("dart:feed"); ok {
		items = cached.([]models.FeedItem)
	} else {
		if err := f.RateLimit(ctx); err != nil {
			return nil, err
		}
		body, err := f.p.client.Get(ctx, f.p.rssURL, map[string]string{"Accept": "application/rss+xml, application/xml"})
		if err != nil {
			return nil, &provider.UpstreamError{Provider: providerName, Detail: "rss feed", Err: err}
		}
		items, err = parseFeed(body)
		if err != nil {
			return nil, fmt.Errorf("dart rss: %w", err)
		}
		f.CacheSet("dart:feed", items)
	}

	q := strings.TrimSpace(params[provider.ParamQuery])
	if q == "" {
		return newResult(items, ""), nil
	}
	filtered := make([]models.FeedItem, 0)
	for _, it := range items {
		if strings.Contains(it.Title, q) || strings.Contains(it.CorpName, q) {
			filtered = append(filtered, it)
		}
	}
	return newResult(filtered, ""), nil
}

func parseFeed(body []byte) ([]models.FeedItem, error) {
	feed, err := gofeed.NewParser().Parse(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	items := make([]models.FeedItem, 0, len(feed.Items))
	for _, it := range feed.Items {
		item := models.FeedItem{
			Title:    strings.TrimSpace(it.Title),
			Link:     it.Link,
			CorpName: feedCorpName(it),
		}
		if it.PublishedParsed != nil {
			item.Published = *it.PublishedParsed
		}
		items = append(items, item)
	}
	return items, nil
}

// feedCorpName prefers the item author, then a "[회사명]" or "(회사명)" title prefix.
func feedCorpName(it *gofeed.Item) string {
	if len(it.Authors) > 0 && it.Authors[0] != nil && it.Authors[0].Name != "" {
		return strings.TrimSpace(it.Authors[0].Name)
	}
	title := strings.TrimSpace(it.Title)
	for _, pair := range [][2]string{{"[", "]"}, {"(", ")"}} {
		if strings.HasPrefix(title, pair[0]) {
			if end := strings.Index(title, pair[1]); end > 1 {
				return strings.TrimSpace(title[len(pair[0]):end])
			}
		}
	}
	return ""
}
