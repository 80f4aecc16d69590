// Package service 实现面向 HTTP 的查询：按天读取热榜与 RSS，排序、关键词过滤、
// 标记新增并生成稳定 id。
package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/text/cases"

	"github.com/LJTian/TrendRadar/internal/news"
	"github.com/LJTian/TrendRadar/internal/rssfeed"
	"github.com/LJTian/TrendRadar/internal/snapshot"
	"github.com/LJTian/TrendRadar/internal/timeutil"
)

var (
	// ErrNoCriteria 反查时没有给出任何 id
	ErrNoCriteria = errors.New("service: no news ids given")
	// ErrInvalidRequest 请求参数不合法
	ErrInvalidRequest = errors.New("service: invalid request")
)

// FeedReader RSS 的读取接口；返回 nil 且无错误表示没有数据
type FeedReader interface {
	GetLatestFeedSnapshot(ctx context.Context, date string) (*news.RSSData, error)
	GetDayFeedAggregate(ctx context.Context, date string) (*news.RSSData, error)
	rssfeed.Detector
}

// Store 查询层依赖的全部存储能力
type Store interface {
	snapshot.DayReader
	FeedReader
	ListDates(ctx context.Context, limit int) ([]string, error)
}

type NewsService struct {
	store    Store
	agg      *snapshot.Aggregator
	norm     *rssfeed.Normalizer
	codec    *timeutil.Codec
	feedURLs map[string]string
	log      zerolog.Logger
}

// NewNewsService feedURLs 为 feed id -> 订阅地址，仅用于展示
func NewNewsService(store Store, codec *timeutil.Codec, norm *rssfeed.Normalizer, feedURLs map[string]string, logger zerolog.Logger) *NewsService {
	if norm == nil {
		norm = rssfeed.NewNormalizer(rssfeed.Freshness{}, nil, codec)
	}
	return &NewsService{
		store:    store,
		agg:      snapshot.NewAggregator(store),
		norm:     norm,
		codec:    codec,
		feedURLs: feedURLs,
		log:      logger,
	}
}

// Envelope 包装返回数据，附带时间戳与请求 id
func (s *NewsService) Envelope(data any) Envelope {
	now := s.codec.Now()
	return Envelope{
		Success:   true,
		Timestamp: now.Format(time.RFC3339),
		RequestID: "req_" + now.Format("20060102_150405") + "_" + uuid.NewString()[:8],
		Data:      data,
	}
}

// ListDates 有热榜数据的日期，最新在前
func (s *NewsService) ListDates(ctx context.Context, limit int) ([]string, error) {
	return s.store.ListDates(ctx, limit)
}

// iso 把 date + HH-MM 转成带时区的 RFC3339，无法解析时为 nil
func (s *NewsService) iso(date, clock string) *string {
	t, ok := s.codec.ToInstant(date, clock)
	if !ok {
		return nil
	}
	v := t.Format(time.RFC3339)
	return &v
}

// sortedTitles 按最小排名升序，再按出现次数降序；都相同时按标题保证顺序稳定
func sortedTitles(info map[string]news.TitleRecord) []string {
	titles := make([]string, 0, len(info))
	for t := range info {
		titles = append(titles, t)
	}
	key := func(t string) int {
		r := info[t].MinRank()
		if r <= 0 {
			return 999999
		}
		return r
	}
	sort.Slice(titles, func(i, j int) bool {
		a, b := titles[i], titles[j]
		if ka, kb := key(a), key(b); ka != kb {
			return ka < kb
		}
		if ca, cb := info[a].Count, info[b].Count; ca != cb {
			return ca > cb
		}
		return a < b
	})
	return titles
}

// keywordMatcher 大小写无关的子串匹配；cases.Caser 有状态，每个请求单独创建
type keywordMatcher struct {
	fold     cases.Caser
	keywords []string
	folded   []string
}

func newKeywordMatcher(keywords []string) *keywordMatcher {
	m := &keywordMatcher{fold: cases.Fold()}
	for _, k := range keywords {
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}
		m.keywords = append(m.keywords, k)
		m.folded = append(m.folded, m.fold.String(k))
	}
	return m
}

// active 是否设置了关键词
func (m *keywordMatcher) active() bool {
	return len(m.keywords) > 0
}

// match 返回命中的关键词（原始写法）
func (m *keywordMatcher) match(title string) []string {
	if !m.active() {
		return []string{}
	}
	t := m.fold.String(title)
	matched := []string{}
	for i, k := range m.folded {
		if strings.Contains(t, k) {
			matched = append(matched, m.keywords[i])
		}
	}
	return matched
}
