package collector

import (
	"context"
	"sort"

	"github.com/gocolly/colly/v2"

	"github.com/LJTian/TrendRadar/internal/config"
)

const userAgent = "TrendRadarBot/1.0"

// Entry 一次抓取中榜单上的一条，Rank 从 1 开始
type Entry struct {
	Title     string
	Rank      int
	URL       string
	MobileURL string
	// Extra 热度、星标数等源站附带信息
	Extra map[string]any
}

// HotListFetcher 抽象每一个热榜数据源
type HotListFetcher interface {
	ID() string
	Name() string
	Fetch(ctx context.Context) ([]Entry, error)
}

type builder func(p config.Platform) HotListFetcher

var builtin = map[string]builder{
	"baidu":      func(p config.Platform) HotListFetcher { return &BaiduHotFetcher{platform: p} },
	"github":     func(p config.Platform) HotListFetcher { return &GitHubTrendingFetcher{platform: p} },
	"hackernews": func(p config.Platform) HotListFetcher { return NewHackerNewsFetcher(p) },
	"x":          func(p config.Platform) HotListFetcher { return &XTrendsFetcher{platform: p} },
}

// Known 内置支持的平台 id
func Known() []string {
	ids := make([]string, 0, len(builtin))
	for id := range builtin {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// NewHotListFetchers 按配置顺序构建采集器，返回无法识别的平台 id
func NewHotListFetchers(platforms []config.Platform) ([]HotListFetcher, []string) {
	var (
		out     []HotListFetcher
		unknown []string
	)
	for _, p := range platforms {
		b, ok := builtin[p.ID]
		if !ok {
			unknown = append(unknown, p.ID)
			continue
		}
		out = append(out, b(p))
	}
	return out, unknown
}

func platformName(p config.Platform, def string) string {
	if p.Name != "" {
		return p.Name
	}
	return def
}

func platformURL(p config.Platform, def string) string {
	if p.BaseURL != "" {
		return p.BaseURL
	}
	return def
}

// abortOnDone 让 colly 在 ctx 取消后不再发出请求
func abortOnDone(ctx context.Context, c *colly.Collector) {
	c.OnRequest(func(r *colly.Request) {
		if ctx.Err() != nil {
			r.Abort()
		}
	})
}
