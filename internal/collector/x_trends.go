package collector

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"
	"github.com/rs/zerolog"

	"github.com/LJTian/TrendRadar/internal/config"
	"github.com/LJTian/TrendRadar/internal/logging"
)

const (
	xTrendsURL          = "https://trends24.in/"
	xTrendsMaxItems     = 50
	xTrendsMaxBodyBytes = 2 << 20 // 2MB，防止超大 HTML
	browserUA           = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

var (
	trendLinkRe   = regexp.MustCompile(`<a\s+[^>]*href="(https://twitter\.com/search\?q=[^"]+)"[^>]*>([^<]+)</a>`)
	trendHrefRe   = regexp.MustCompile(`href="(https://twitter\.com/search\?q=([^"]+))"`)
	daytrendsLink = regexp.MustCompile(`<a\s+href="https://getdaytrends\.com/trend/([^"]+?)/?"[^>]*>([^<]+)</a>`)
)

// XTrendsFetcher 抓取 X (Twitter) 热搜，数据来自 trends24.in（全球榜），失败时依次尝试备用来源
type XTrendsFetcher struct {
	platform config.Platform
}

func (x *XTrendsFetcher) ID() string   { return "x" }
func (x *XTrendsFetcher) Name() string { return platformName(x.platform, "X 热搜") }

func (x *XTrendsFetcher) Fetch(ctx context.Context) ([]Entry, error) {
	log := logging.Named("collector").With().Str("platform", x.ID()).Logger()
	log.Debug().Msg("fetch x trends")

	list := x.fetchWithColly(ctx, log)
	if len(list) == 0 && ctx.Err() == nil {
		list = x.fetchWithHTTP(ctx, log)
	}
	if len(list) == 0 && ctx.Err() == nil {
		if body, err := httpGet(ctx, "https://getdaytrends.com/"); err == nil {
			list = parseDaytrends(body)
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, fmt.Errorf("x trends: no source returned data")
	}

	if len(list) > xTrendsMaxItems {
		list = list[:xTrendsMaxItems]
	}
	for i := range list {
		list[i].Rank = i + 1
	}
	return list, nil
}

func (x *XTrendsFetcher) fetchWithColly(ctx context.Context, log zerolog.Logger) []Entry {
	c := colly.NewCollector(
		colly.AllowedDomains("trends24.in", "www.trends24.in"),
		colly.UserAgent(browserUA),
	)
	c.SetRequestTimeout(15 * time.Second)
	abortOnDone(ctx, c)

	var list []Entry
	seen := make(map[string]bool)

	c.OnHTML("a.trend-link[href*='twitter.com/search'], a[href*='twitter.com/search']", func(e *colly.HTMLElement) {
		href := strings.TrimSpace(e.Attr("href"))
		title := strings.TrimSpace(e.Text)
		if href == "" || title == "" || seen[href] {
			return
		}
		seen[href] = true
		list = append(list, Entry{Title: title, URL: toXSearchURL(href)})
	})

	if err := c.Visit(platformURL(x.platform, xTrendsURL)); err != nil {
		log.Debug().Err(err).Msg("x trends via colly failed")
		return nil
	}
	return list
}

// fetchWithHTTP 直接 GET 后用正则从 HTML 中提取 trend 链接，全球榜为空时尝试美国区
func (x *XTrendsFetcher) fetchWithHTTP(ctx context.Context, log zerolog.Logger) []Entry {
	for _, u := range []string{xTrendsURL, "https://trends24.in/united-states/"} {
		body, err := httpGet(ctx, u)
		if err != nil {
			log.Debug().Err(err).Str("url", u).Msg("x trends via http failed")
			continue
		}
		if list := parseTrendLinks(body); len(list) > 0 {
			return list
		}
	}
	return nil
}

func httpGet(ctx context.Context, u string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", browserUA)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, xTrendsMaxBodyBytes))
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// parseTrendLinks 从 HTML 中解析 twitter.com/search 链接及标题；没有链接文本时用 q 参数解码作标题
func parseTrendLinks(html string) []Entry {
	seen := make(map[string]bool)
	var list []Entry

	for _, m := range trendLinkRe.FindAllStringSubmatch(html, -1) {
		href, title := m[1], strings.TrimSpace(m[2])
		if title == "" || len(title) > 200 || seen[href] {
			continue
		}
		seen[href] = true
		list = append(list, Entry{Title: title, URL: toXSearchURL(href)})
	}
	if len(list) > 0 {
		return list
	}

	for _, m := range trendHrefRe.FindAllStringSubmatch(html, -1) {
		href := m[1]
		if seen[href] {
			continue
		}
		seen[href] = true
		title := m[2]
		if dec, err := url.QueryUnescape(title); err == nil && dec != "" {
			title = dec
		}
		if len(title) > 200 {
			continue
		}
		list = append(list, Entry{Title: title, URL: toXSearchURL(href)})
	}
	return list
}

// parseDaytrends 解析 getdaytrends.com 的 /trend/话题名/ 链接
func parseDaytrends(html string) []Entry {
	seen := make(map[string]bool)
	var list []Entry
	for _, m := range daytrendsLink.FindAllStringSubmatch(html, -1) {
		linkText := strings.TrimSpace(m[2])
		if linkText == "" || len(linkText) > 200 {
			continue
		}
		title := linkText
		if dec, err := url.PathUnescape(m[1]); err == nil && dec != "" {
			title = dec
		}
		if seen[title] {
			continue
		}
		seen[title] = true
		list = append(list, Entry{Title: title, URL: "https://x.com/search?q=" + url.QueryEscape(title)})
	}
	return list
}

func toXSearchURL(twitterSearchURL string) string {
	if strings.HasPrefix(twitterSearchURL, "https://twitter.com/search?") {
		return "https://x.com/search?" + strings.TrimPrefix(twitterSearchURL, "https://twitter.com/search?")
	}
	return twitterSearchURL
}
