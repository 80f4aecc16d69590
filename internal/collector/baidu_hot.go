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

const baiduBoardURL = "https://top.baidu.com/board?tab=realtime"

// BaiduHotFetcher 抓取百度实时热搜榜
type BaiduHotFetcher struct {
	platform config.Platform
}

func (b *BaiduHotFetcher) ID() string   { return "baidu" }
func (b *BaiduHotFetcher) Name() string { return platformName(b.platform, "百度热搜") }

func (b *BaiduHotFetcher) Fetch(ctx context.Context) ([]Entry, error) {
	log := logging.Named("collector").With().Str("platform", b.ID()).Logger()
	log.Debug().Msg("fetch baidu hot search")

	c := colly.NewCollector(
		colly.AllowedDomains("top.baidu.com"),
		colly.UserAgent(userAgent),
	)
	c.SetRequestTimeout(5 * time.Second)
	abortOnDone(ctx, c)

	results := make([]Entry, 0, 50)

	// 页面结构可能调整，此处基于当前的 DOM 结构做“尽力而为”的解析
	c.OnHTML("div.category-wrap_iQLoo", func(e *colly.HTMLElement) {
		en, ok := baiduEntry(e.DOM)
		if !ok {
			return
		}
		en.Rank = len(results) + 1
		results = append(results, en)
	})

	if err := c.Visit(platformURL(b.platform, baiduBoardURL)); err != nil {
		return nil, fmt.Errorf("baidu: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(results) == 0 {
		log.Warn().Msg("baidu hot search got 0 items")
	}
	return results, nil
}

var baiduDescSelectors = []string{
	"div[class*='content']",
	"div[class*='Content']",
	"div[class*='desc']",
	"div[class*='abstract']",
	"div[class*='intro']",
	"div[class*='summary']",
	"p",
}

// baiduEntry 解析榜单中的一行，Rank 由调用方按出现顺序填写
func baiduEntry(sel *goquery.Selection) (Entry, bool) {
	title := strings.TrimSpace(sel.Find("div.c-single-text-ellipsis").First().Text())
	if title == "" {
		return Entry{}, false
	}

	link := "https://top.baidu.com/board?tab=realtime"
	if href, ok := sel.Find("a").First().Attr("href"); ok && href != "" {
		if strings.HasPrefix(href, "http") {
			link = href
		} else {
			link = "https://top.baidu.com" + href
		}
	}

	heatText := strings.TrimSpace(sel.Find("div.hot-index_1Bl1a").First().Text())

	var desc string
	for _, s := range baiduDescSelectors {
		sel.Find(s).EachWithBreak(func(_ int, d *goquery.Selection) bool {
			t := strings.TrimSpace(d.Text())
			if t == "" || strings.Contains(t, title) {
				return true
			}
			desc = t
			return false
		})
		if desc != "" {
			break
		}
	}
	if desc == "" {
		desc = fallbackBaiduDesc(sel, title, heatText)
	}
	desc = cleanBaiduDesc(desc)

	extra := map[string]any{"heat": parseInt(heatText)}
	if desc != "" && desc != title {
		extra["desc"] = desc
	}
	return Entry{Title: title, URL: link, MobileURL: mobileBaiduURL(link), Extra: extra}, true
}

// mobileBaiduURL 百度搜索链接换成移动端域名
func mobileBaiduURL(link string) string {
	if strings.HasPrefix(link, "https://www.baidu.com/s?") {
		return "https://m.baidu.com/s?" + strings.TrimPrefix(link, "https://www.baidu.com/s?")
	}
	return ""
}

// cleanBaiduDesc 去掉简介中的“查看更多”等链接文案，只保留正文
func cleanBaiduDesc(s string) string {
	s = strings.TrimSpace(s)
	for _, cut := range []string{"[查看更多>]", "[查看更多&gt;]", "查看更多"} {
		if idx := strings.Index(s, cut); idx != -1 {
			s = strings.TrimSpace(s[:idx])
		}
	}
	return strings.TrimSuffix(s, "…")
}

// fallbackBaiduDesc 条目内非标题、非热度的最长段落
func fallbackBaiduDesc(sel *goquery.Selection, title, heatText string) string {
	var best string
	sel.Find("div, p, span").Each(func(_ int, s *goquery.Selection) {
		t := strings.TrimSpace(s.Text())
		if t == "" || strings.Contains(t, title) || t == heatText || len(t) < 20 {
			return
		}
		if _, err := strconv.Atoi(strings.ReplaceAll(t, ",", "")); err == nil {
			return
		}
		if len(t) > len(best) {
			best = t
		}
	})
	return best
}

// parseInt 解析“123,456”“12万”之类的热度文本，只取开头的数字
func parseInt(s string) int {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", ""))
	end := 0
	for ; end < len(s); end++ {
		if s[end] < '0' || s[end] > '9' {
			break
		}
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0
	}
	return n
}
