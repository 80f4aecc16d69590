package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/LJTian/TrendRadar/internal/news"
	"github.com/LJTian/TrendRadar/internal/scheduler"
	"github.com/LJTian/TrendRadar/internal/service"
)

// ErrCrawlerDisabled 未配置采集器（ENABLE_CRAWLER=false）时请求刷新
var ErrCrawlerDisabled = errors.New("api: crawler disabled")

// Refresher 按需采集并落库，由 scheduler.Scheduler 实现
type Refresher interface {
	RefreshHotList(ctx context.Context, platforms []string) (*news.NewsData, error)
	RunFeedsOnce(ctx context.Context) (*news.RSSData, error)
}

type RefreshRequest struct {
	Platforms  []string `json:"platforms"`
	IncludeRSS *bool    `json:"include_rss"`
}

type RefreshResult struct {
	Date            string   `json:"date"`
	CrawlTime       string   `json:"crawl_time"`
	Platforms       []string `json:"platforms"`
	FailedPlatforms []string `json:"failed_platforms"`
	RSSFeeds        []string `json:"rss_feeds"`
	FailedFeeds     []string `json:"failed_feeds"`
}

// WithRefresher 启用 POST /api/v1/refresh 与查询时的 refresh 参数
func (s *Server) WithRefresher(r Refresher) *Server {
	s.refresher = r
	return s
}

func (s *Server) refresh(c *gin.Context) {
	var req RefreshRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
	}
	withRSS := req.IncludeRSS == nil || *req.IncludeRSS
	res, err := s.runRefresh(c.Request.Context(), service.SplitList(req.Platforms), withRSS)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, s.news.Envelope(res))
}

// runRefresh 采集热榜（platforms 为 nil 时全部平台），可选再采集 RSS。
// RSS 没有可用订阅时不算失败；热榜一条都没拿到时返回 scheduler.ErrNothingFetched。
func (s *Server) runRefresh(ctx context.Context, platforms []string, withRSS bool) (*RefreshResult, error) {
	if s.refresher == nil {
		return nil, ErrCrawlerDisabled
	}
	hot, err := s.refresher.RefreshHotList(ctx, platforms)
	if err != nil {
		return nil, err
	}
	out := &RefreshResult{
		Date:            hot.Date,
		CrawlTime:       hot.CrawlTime,
		Platforms:       hot.SourceIDs(),
		FailedPlatforms: nonNil(hot.FailedIDs),
		RSSFeeds:        []string{},
		FailedFeeds:     []string{},
	}
	if !withRSS {
		return out, nil
	}
	feeds, err := s.refresher.RunFeedsOnce(ctx)
	switch {
	case errors.Is(err, scheduler.ErrNothingFetched):
		s.log.Debug().Msg("refresh: no rss data")
	case err != nil:
		return nil, err
	default:
		out.RSSFeeds = feeds.FeedIDs()
		out.FailedFeeds = nonNil(feeds.FailedIDs)
	}
	return out, nil
}

func nonNil(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}
