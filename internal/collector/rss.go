package collector

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"

	"github.com/LJTian/TrendRadar/internal/config"
	"github.com/LJTian/TrendRadar/internal/news"
)

const feedSummaryRunes = 300

// FeedFetcher 用 gofeed 拉取并解析 RSS / Atom / JSON Feed
type FeedFetcher struct {
	parser *gofeed.Parser
}

func NewFeedFetcher(timeout time.Duration) *FeedFetcher {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	p := gofeed.NewParser()
	p.Client = &http.Client{Timeout: timeout}
	return &FeedFetcher{parser: p}
}

// Fetch 拉取一个订阅源，文章顺序与源中一致
func (f *FeedFetcher) Fetch(ctx context.Context, feed config.Feed) ([]news.RSSItem, error) {
	if feed.URL == "" {
		return nil, fmt.Errorf("feed %s: url is empty", feed.ID)
	}
	parsed, err := f.parser.ParseURLWithContext(feed.URL, ctx)
	if err != nil {
		return nil, fmt.Errorf("feed %s: %w", feed.ID, err)
	}
	return feedItems(feed.ID, parsed), nil
}

// feedItems 转成 RSSItem；没有标题的条目丢弃
func feedItems(feedID string, feed *gofeed.Feed) []news.RSSItem {
	if feed == nil {
		return nil
	}
	out := make([]news.RSSItem, 0, len(feed.Items))
	for _, it := range feed.Items {
		if it == nil {
			continue
		}
		title := strings.TrimSpace(it.Title)
		if title == "" {
			continue
		}
		summary := it.Description
		if summary == "" {
			summary = it.Content
		}
		out = append(out, news.RSSItem{
			Title:       title,
			FeedID:      feedID,
			URL:         strings.TrimSpace(it.Link),
			PublishedAt: publishedAt(it),
			Author:      author(it),
			Summary:     plainText(summary, feedSummaryRunes),
		})
	}
	return out
}

// publishedAt 能解析时统一成 RFC3339 UTC，否则保留源站原文交给下游宽松解析
func publishedAt(it *gofeed.Item) string {
	switch {
	case it.PublishedParsed != nil:
		return it.PublishedParsed.UTC().Format(time.RFC3339)
	case it.UpdatedParsed != nil:
		return it.UpdatedParsed.UTC().Format(time.RFC3339)
	case it.Published != "":
		return strings.TrimSpace(it.Published)
	default:
		return strings.TrimSpace(it.Updated)
	}
}

func author(it *gofeed.Item) string {
	if it.Author != nil && it.Author.Name != "" {
		return it.Author.Name
	}
	for _, a := range it.Authors {
		if a != nil && a.Name != "" {
			return a.Name
		}
	}
	return ""
}

// plainText 去掉 HTML 标签并压缩空白
func plainText(s string, limit int) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if strings.Contains(s, "<") {
		if doc, err := goquery.NewDocumentFromReader(strings.NewReader(s)); err == nil {
			s = doc.Text()
		}
	}
	s = strings.Join(strings.Fields(s), " ")
	if rs := []rune(s); len(rs) > limit {
		s = string(rs[:limit]) + "…"
	}
	return s
}
