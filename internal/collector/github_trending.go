package collector

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"

	"github.com/LJTian/TrendRadar/internal/config"
	"github.com/LJTian/TrendRadar/internal/logging"
)

const githubTrendingURL = "https://github.com/trending"

// GitHubTrendingFetcher 抓取 GitHub Trending，标题为 owner/repo
type GitHubTrendingFetcher struct {
	platform config.Platform
}

func (g *GitHubTrendingFetcher) ID() string   { return "github" }
func (g *GitHubTrendingFetcher) Name() string { return platformName(g.platform, "GitHub Trending") }

func (g *GitHubTrendingFetcher) Fetch(ctx context.Context) ([]Entry, error) {
	log := logging.Named("collector").With().Str("platform", g.ID()).Logger()
	log.Debug().Msg("fetch github trending")

	c := colly.NewCollector(
		colly.AllowedDomains("github.com"),
		colly.UserAgent(userAgent),
	)
	c.SetRequestTimeout(10 * time.Second)
	abortOnDone(ctx, c)

	results := make([]Entry, 0, 25)
	c.OnHTML("article.Box-row", func(e *colly.HTMLElement) {
		en, ok := githubEntry(e.DOM)
		if !ok {
			return
		}
		en.Rank = len(results) + 1
		results = append(results, en)
	})

	if err := c.Visit(platformURL(g.platform, githubTrendingURL)); err != nil {
		return nil, fmt.Errorf("github: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(results) == 0 {
		log.Warn().Msg("github trending got 0 items")
	}
	return results, nil
}

func githubEntry(sel *goquery.Selection) (Entry, bool) {
	link := sel.Find("h2 a").First()
	href, ok := link.Attr("href")
	if !ok || strings.TrimSpace(href) == "" {
		return Entry{}, false
	}
	// “owner /\n  repo” 去掉所有空白
	repo := strings.Join(strings.Fields(link.Text()), "")
	if repo == "" {
		return Entry{}, false
	}

	extra := map[string]any{}
	if stars := parseStars(sel.Find(`a[href$="/stargazers"]`).First().Text()); stars > 0 {
		extra["stars"] = stars
	}
	if desc := strings.TrimSpace(sel.Find("p").First().Text()); desc != "" {
		extra["desc"] = desc
	}
	if lang := strings.TrimSpace(sel.Find(`[itemprop="programmingLanguage"]`).First().Text()); lang != "" {
		extra["language"] = lang
	}
	return Entry{Title: repo, URL: "https://github.com" + strings.TrimSpace(href), Extra: extra}, true
}

// parseStars 将 GitHub Trending 中“12.3k”之类的文本解析为整数
func parseStars(text string) int {
	text = strings.TrimSpace(strings.ReplaceAll(text, ",", ""))
	if text == "" {
		return 0
	}

	multiplier := 1.0
	if strings.HasSuffix(text, "k") || strings.HasSuffix(text, "K") {
		multiplier = 1000
		text = strings.TrimSuffix(strings.TrimSuffix(text, "k"), "K")
	}

	f, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
	if err != nil {
		return 0
	}
	return int(f * multiplier)
}
