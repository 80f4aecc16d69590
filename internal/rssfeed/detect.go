package rssfeed

import (
	"context"
	"fmt"

	"github.com/LJTian/TrendRadar/internal/news"
)

// Detector 存储层自带的“自上次检查以来新增”计算
type Detector interface {
	DetectNewFeedItems(ctx context.Context, data *news.RSSData) (map[string][]news.RSSItem, error)
}

// URLSet 新增文章的 URL 集合
type URLSet map[string]struct{}

// Has 判断 url 是否为新增
func (s URLSet) Has(url string) bool {
	if url == "" {
		return false
	}
	_, ok := s[url]
	return ok
}

// DetectNewURLs 委托存储层计算新增文章，再拍平出 URL 集合；空 URL 无法匹配，直接跳过
func DetectNewURLs(ctx context.Context, d Detector, data *news.RSSData) (map[string][]news.RSSItem, URLSet, error) {
	if data == nil {
		return map[string][]news.RSSItem{}, URLSet{}, nil
	}
	items, err := d.DetectNewFeedItems(ctx, data)
	if err != nil {
		return map[string][]news.RSSItem{}, URLSet{}, fmt.Errorf("detect new feed items: %w", err)
	}
	if items == nil {
		items = map[string][]news.RSSItem{}
	}
	urls := URLSet{}
	for _, list := range items {
		for _, it := range list {
			if it.URL != "" {
				urls[it.URL] = struct{}{}
			}
		}
	}
	return items, urls, nil
}
