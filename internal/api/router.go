package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/LJTian/TrendRadar/internal/scheduler"
	"github.com/LJTian/TrendRadar/internal/service"
	"github.com/LJTian/TrendRadar/internal/storage"
)

type Server struct {
	news      *service.NewsService
	refresher Refresher
	log       zerolog.Logger
}

func NewServer(news *service.NewsService, logger zerolog.Logger) *Server {
	return &Server{news: news, log: logger}
}

func (s *Server) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", s.health)

	v1 := r.Group("/api/v1")
	{
		v1.GET("/news", s.listNews)
		v1.POST("/news", s.queryNews)
		v1.GET("/news/new", s.newTitles)
		v1.POST("/news/lookup", s.lookup)
		v1.GET("/dates", s.listDates)
		v1.POST("/refresh", s.refresh)
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) listNews(c *gin.Context) {
	var req service.NewsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		badRequest(c, err)
		return
	}
	s.respondNews(c, req)
}

func (s *Server) queryNews(c *gin.Context) {
	var req service.NewsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	s.respondNews(c, req)
}

func (s *Server) respondNews(c *gin.Context, req service.NewsRequest) {
	if err := req.Validate(); err != nil {
		s.fail(c, err)
		return
	}
	if req.Refresh {
		_, err := s.runRefresh(c.Request.Context(), req.Platforms, req.WantRSS())
		switch {
		case errors.Is(err, scheduler.ErrNothingFetched):
			s.log.Warn().Strs("platforms", req.Platforms).Msg("refresh fetched nothing, serving stored data")
		case err != nil:
			s.fail(c, err)
			return
		}
	}
	res, err := s.news.GetNews(c.Request.Context(), req)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, s.news.Envelope(res))
}

func (s *Server) newTitles(c *gin.Context) {
	var platforms []string
	if v, ok := c.GetQueryArray("platforms"); ok {
		platforms = v
	}
	res, err := s.news.NewTitles(c.Request.Context(), c.Query("date"), platforms)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, s.news.Envelope(res))
}

func (s *Server) lookup(c *gin.Context) {
	var req service.LookupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	res, err := s.news.Lookup(c.Request.Context(), req)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, s.news.Envelope(res))
}

func (s *Server) listDates(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "31"))
	if err != nil || limit <= 0 {
		limit = 31
	}
	dates, err := s.news.ListDates(c.Request.Context(), limit)
	if err != nil {
		s.fail(c, err)
		return
	}
	if dates == nil {
		dates = []string{}
	}
	c.JSON(http.StatusOK, s.news.Envelope(gin.H{"dates": dates}))
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{
		"code":    "bad_request",
		"message": err.Error(),
	})
}

// fail 把服务层错误映射成 HTTP 状态与 {code,message}
func (s *Server) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrNoCriteria):
		c.JSON(http.StatusBadRequest, gin.H{"code": "no_criteria", "message": "news_ids is required"})
	case errors.Is(err, service.ErrInvalidRequest):
		badRequest(c, err)
	case errors.Is(err, ErrCrawlerDisabled):
		c.JSON(http.StatusServiceUnavailable, gin.H{"code": "crawler_disabled", "message": "crawler is disabled"})
	case errors.Is(err, scheduler.ErrNothingFetched):
		c.JSON(http.StatusBadGateway, gin.H{"code": "nothing_fetched", "message": "no source returned data"})
	case errors.Is(err, storage.ErrNotConfigured):
		c.JSON(http.StatusServiceUnavailable, gin.H{"code": "store_unavailable", "message": "storage is not configured"})
	default:
		s.log.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    "internal_error",
			"message": "internal server error",
		})
	}
}
