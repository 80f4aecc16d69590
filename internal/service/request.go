package service

import (
	"fmt"
	"strings"

	"github.com/LJTian/TrendRadar/internal/timeutil"
)

// Mode 查询模式
type Mode string

const (
	// ModeCurrent 当天数据中仍在最近一次抓取里出现的标题；RSS 读最近一次抓取
	ModeCurrent Mode = "current"
	// ModeDaily 当天出现过的全部标题
	ModeDaily Mode = "daily"
	// ModeIncremental 只返回最近一次抓取中新出现的标题（当天没有新增时退化为 daily）
	ModeIncremental Mode = "incremental"
)

const (
	DefaultLimit = 50
	MaxLimit     = 500
)

// NewsRequest GET /api/v1/news 的查询参数
type NewsRequest struct {
	Date       string   `json:"date" form:"date"`
	Platforms  []string `json:"platforms" form:"platforms"`
	Keywords   []string `json:"keywords" form:"keywords"`
	Limit      int      `json:"limit" form:"limit"`
	Mode       Mode     `json:"mode" form:"mode"`
	IncludeRSS *bool    `json:"include_rss" form:"include_rss"`
	// Refresh 查询前先采集一轮并落库
	Refresh bool `json:"refresh" form:"refresh"`
}

// Validate 校验并补齐默认值：limit 默认 50，mode 默认 current，默认包含 RSS
func (r *NewsRequest) Validate() error {
	if r.Date != "" {
		d, ok := timeutil.ParseDate(r.Date)
		if !ok {
			return fmt.Errorf("%w: date %q, want YYYY-MM-DD", ErrInvalidRequest, r.Date)
		}
		r.Date = d
	}
	switch {
	case r.Limit == 0:
		r.Limit = DefaultLimit
	case r.Limit < 1 || r.Limit > MaxLimit:
		return fmt.Errorf("%w: limit must be between 1 and %d", ErrInvalidRequest, MaxLimit)
	}
	switch r.Mode {
	case "":
		r.Mode = ModeCurrent
	case ModeCurrent, ModeDaily, ModeIncremental:
	default:
		return fmt.Errorf("%w: unknown mode %q", ErrInvalidRequest, r.Mode)
	}
	if r.IncludeRSS == nil {
		t := true
		r.IncludeRSS = &t
	}
	r.Platforms = SplitList(r.Platforms)
	r.Keywords = SplitList(r.Keywords)
	return nil
}

// WantRSS 是否需要返回 RSS
func (r *NewsRequest) WantRSS() bool {
	return r.IncludeRSS == nil || *r.IncludeRSS
}

// LookupRequest 按 id 反查热榜条目
type LookupRequest struct {
	IDs       []string `json:"news_ids"`
	Date      string   `json:"date"`
	Platforms []string `json:"platforms"`
}

// SplitList 支持 ?platforms=a,b 与 ?platforms=a&platforms=b 两种写法；
// nil 保持 nil（不过滤），显式传入但全为空时返回空切片
func SplitList(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, 0, len(in))
	for _, v := range in {
		for _, p := range strings.Split(v, ",") {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}
