package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/LJTian/TrendRadar/internal/config"
	"github.com/LJTian/TrendRadar/internal/logging"
)

const (
	hnBaseURL           = "https://hacker-news.firebaseio.com/v0"
	hnMaxItems          = 30
	hnMaxResponseBytes  = 1 << 20 // 1MB
	hnConcurrency       = 10
	hnItemClientTimeout = 5 * time.Second
)

// HackerNewsFetcher 通过官方 Firebase API 抓取 Hacker News 热门故事
type HackerNewsFetcher struct {
	platform config.Platform
	// APIBase 默认为官方地址，测试时指向本地服务
	APIBase string
	Client  *http.Client
}

func NewHackerNewsFetcher(p config.Platform) *HackerNewsFetcher {
	return &HackerNewsFetcher{
		platform: p,
		APIBase:  hnBaseURL,
		Client:   &http.Client{Timeout: hnItemClientTimeout},
	}
}

func (h *HackerNewsFetcher) ID() string   { return "hackernews" }
func (h *HackerNewsFetcher) Name() string { return platformName(h.platform, "Hacker News") }

type hnItem struct {
	ID          int    `json:"id"`
	Title       string `json:"title"`
	URL         string `json:"url"`
	Score       int    `json:"score"`
	Descendants int    `json:"descendants"`
	By          string `json:"by"`
	Time        int64  `json:"time"`
	Type        string `json:"type"`
}

func (h *HackerNewsFetcher) Fetch(ctx context.Context) ([]Entry, error) {
	log := logging.Named("collector").With().Str("platform", h.ID()).Logger()
	log.Debug().Msg("fetch hacker news top stories")

	var ids []int
	if err := h.getJSON(ctx, h.APIBase+"/topstories.json", &ids); err != nil {
		return nil, fmt.Errorf("hackernews: top stories: %w", err)
	}
	if len(ids) > hnMaxItems {
		ids = ids[:hnMaxItems]
	}

	type indexedItem struct {
		idx  int
		item hnItem
	}

	var (
		mu    sync.Mutex
		wg    sync.WaitGroup
		sem   = make(chan struct{}, hnConcurrency)
		items = make([]indexedItem, 0, len(ids))
	)

	for i, id := range ids {
		wg.Add(1)
		sem <- struct{}{}
		go func(idx, id int) {
			defer wg.Done()
			defer func() { <-sem }()

			var it hnItem
			if err := h.getJSON(ctx, fmt.Sprintf("%s/item/%d.json", h.APIBase, id), &it); err != nil {
				log.Debug().Err(err).Int("id", id).Msg("fetch item failed")
				return
			}
			if it.Title == "" || it.Type != "story" {
				return
			}

			mu.Lock()
			items = append(items, indexedItem{idx: idx, item: it})
			mu.Unlock()
		}(i, id)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// 按榜单原始位置排序，跳过失败条目后重新连续编号
	sort.Slice(items, func(i, j int) bool { return items[i].idx < items[j].idx })

	results := make([]Entry, 0, len(items))
	for _, ii := range items {
		it := ii.item
		discuss := fmt.Sprintf("https://news.ycombinator.com/item?id=%d", it.ID)
		itemURL := it.URL
		if itemURL == "" {
			itemURL = discuss
		}
		results = append(results, Entry{
			Title: it.Title,
			Rank:  len(results) + 1,
			URL:   itemURL,
			Extra: map[string]any{
				"hn_id":    it.ID,
				"author":   it.By,
				"comments": it.Descendants,
				"score":    it.Score,
				"discuss":  discuss,
			},
		})
	}

	if len(results) == 0 {
		log.Warn().Msg("hacker news got 0 items")
	}
	return results, nil
}

func (h *HackerNewsFetcher) getJSON(ctx context.Context, url string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", userAgent)

	client := h.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return json.NewDecoder(io.LimitReader(resp.Body, hnMaxResponseBytes)).Decode(v)
}
