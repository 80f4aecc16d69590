package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/LJTian/TrendRadar/internal/collector"
	"github.com/LJTian/TrendRadar/internal/config"
	"github.com/LJTian/TrendRadar/internal/news"
	"github.com/LJTian/TrendRadar/internal/processor"
	"github.com/LJTian/TrendRadar/internal/timeutil"
)

// Writer 抓取结果的落库接口
type Writer interface {
	SaveSnapshot(ctx context.Context, data *news.NewsData) error
	SaveFeedSnapshot(ctx context.Context, data *news.RSSData) error
}

// FeedSource 拉取单个订阅源
type FeedSource interface {
	Fetch(ctx context.Context, feed config.Feed) ([]news.RSSItem, error)
}

// ErrNothingFetched 本轮所有数据源都没有拿到数据，不落库
var ErrNothingFetched = errors.New("scheduler: nothing fetched")

type Options struct {
	HotListSpec string
	FeedSpec    string
	// FetchTimeout 单个数据源的超时
	FetchTimeout time.Duration
	// StartupDelay 启动后首轮采集的延迟，<0 表示不做首轮采集
	StartupDelay time.Duration
}

type Scheduler struct {
	cron      *cron.Cron
	opt       Options
	fetchers  []collector.HotListFetcher
	feeds     []config.Feed
	feedSrc   FeedSource
	processor *processor.SimpleProcessor
	store     Writer
	codec     *timeutil.Codec
	log       zerolog.Logger

	// 同一类任务不重叠执行
	hotMu  sync.Mutex
	feedMu sync.Mutex

	// startup 首轮采集的定时器，startupDone 在首轮结束或被取消后关闭
	mu          sync.Mutex
	startup     *time.Timer
	startupDone chan struct{}
}

func New(opt Options, fetchers []collector.HotListFetcher, feeds []config.Feed, feedSrc FeedSource,
	p *processor.SimpleProcessor, store Writer, codec *timeutil.Codec, logger zerolog.Logger) (*Scheduler, error) {
	if opt.FetchTimeout <= 0 {
		opt.FetchTimeout = 30 * time.Second
	}
	if p == nil {
		p = processor.NewSimpleProcessor()
	}

	s := &Scheduler{
		cron:      cron.New(cron.WithLocation(codec.Location())),
		opt:       opt,
		fetchers:  fetchers,
		feeds:     feeds,
		feedSrc:   feedSrc,
		processor: p,
		store:     store,
		codec:     codec,
		log:       logger,
	}

	if opt.HotListSpec != "" && len(fetchers) > 0 {
		if _, err := s.cron.AddFunc(opt.HotListSpec, s.hotListJob); err != nil {
			return nil, fmt.Errorf("hot list cron %q: %w", opt.HotListSpec, err)
		}
	}
	if opt.FeedSpec != "" && len(feeds) > 0 && feedSrc != nil {
		if _, err := s.cron.AddFunc(opt.FeedSpec, s.feedJob); err != nil {
			return nil, fmt.Errorf("feed cron %q: %w", opt.FeedSpec, err)
		}
	}
	return s, nil
}

// Cron 暴露底层 cron，便于追加其它定时任务
func (s *Scheduler) Cron() *cron.Cron {
	return s.cron
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info().
		Str("hotlist_spec", s.opt.HotListSpec).
		Str("feed_spec", s.opt.FeedSpec).
		Int("fetchers", len(s.fetchers)).
		Int("feeds", len(s.feeds)).
		Msg("scheduler started")

	// 延迟执行首轮采集，避免与服务启动争抢资源
	if s.opt.StartupDelay >= 0 {
		s.mu.Lock()
		if s.startup == nil {
			done := make(chan struct{})
			s.startupDone = done
			s.startup = time.AfterFunc(s.opt.StartupDelay, func() {
				defer close(done)
				s.hotListJob()
				s.feedJob()
			})
		}
		s.mu.Unlock()
	}
}

// Stop 停止调度并取消尚未触发的首轮采集；
// 返回的 ctx 在正在执行的任务（包括已开始的首轮采集）结束后关闭
func (s *Scheduler) Stop() context.Context {
	s.mu.Lock()
	done := s.startupDone
	if s.startup != nil && s.startup.Stop() {
		close(done)
	}
	s.mu.Unlock()

	cronCtx := s.cron.Stop()
	if done == nil {
		return cronCtx
	}
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-cronCtx.Done()
		<-done
		cancel()
	}()
	return ctx
}

func (s *Scheduler) hotListJob() {
	if len(s.fetchers) == 0 {
		return
	}
	if _, err := s.RunOnce(context.Background()); err != nil {
		s.log.Error().Err(err).Msg("hot list job failed")
	}
}

func (s *Scheduler) feedJob() {
	if len(s.feeds) == 0 || s.feedSrc == nil {
		return
	}
	if _, err := s.RunFeedsOnce(context.Background()); err != nil {
		s.log.Error().Err(err).Msg("feed job failed")
	}
}

func (s *Scheduler) selectFetchers(platforms []string) []collector.HotListFetcher {
	if platforms == nil {
		return s.fetchers
	}
	want := make(map[string]bool, len(platforms))
	for _, id := range platforms {
		want[id] = true
	}
	var out []collector.HotListFetcher
	for _, f := range s.fetchers {
		if want[f.ID()] {
			out = append(out, f)
		}
	}
	return out
}

type fetchResult struct {
	items []news.NewsItem
	err   error
}

// RunOnce 执行一轮热榜采集并保存，返回保存的快照
func (s *Scheduler) RunOnce(ctx context.Context) (*news.NewsData, error) {
	return s.RefreshHotList(ctx, nil)
}

// RefreshHotList 只采集指定平台（nil 表示全部）并保存；没有匹配的平台时返回 ErrNothingFetched
func (s *Scheduler) RefreshHotList(ctx context.Context, platforms []string) (*news.NewsData, error) {
	fetchers := s.selectFetchers(platforms)
	if len(fetchers) == 0 {
		return nil, ErrNothingFetched
	}

	s.hotMu.Lock()
	defer s.hotMu.Unlock()

	now := s.codec.Now()
	crawl := s.codec.CrawlTime(now)
	s.log.Info().Str("crawl_time", crawl).Int("platforms", len(fetchers)).Msg("start hot list crawl")

	results := make([]fetchResult, len(fetchers))
	var wg sync.WaitGroup
	for i, f := range fetchers {
		wg.Add(1)
		go func(i int, f collector.HotListFetcher) {
			defer wg.Done()
			fctx, cancel := context.WithTimeout(ctx, s.opt.FetchTimeout)
			defer cancel()

			entries, err := f.Fetch(fctx)
			if err != nil {
				results[i] = fetchResult{err: err}
				return
			}
			results[i] = fetchResult{items: s.processor.Process(entries, crawl)}
		}(i, f)
	}
	wg.Wait()

	data := &news.NewsData{
		Date:      now.Format(timeutil.DateLayout),
		CrawlTime: crawl,
		IDToName:  map[string]string{},
		Items:     map[string][]news.NewsItem{},
	}
	for i, f := range fetchers {
		id := f.ID()
		data.IDToName[id] = f.Name()
		r := results[i]
		switch {
		case r.err != nil:
			s.log.Warn().Err(r.err).Str("platform", id).Msg("fetch failed")
			data.FailedIDs = append(data.FailedIDs, id)
		case len(r.items) == 0:
			s.log.Warn().Str("platform", id).Msg("fetch got 0 items")
		default:
			data.Items[id] = r.items
			data.Order = append(data.Order, id)
			s.log.Debug().Str("platform", id).Int("items", len(r.items)).Msg("fetched")
		}
	}

	if data.Empty() {
		return nil, ErrNothingFetched
	}
	if err := s.store.SaveSnapshot(ctx, data); err != nil {
		return nil, err
	}
	s.log.Info().
		Str("date", data.Date).
		Str("crawl_time", crawl).
		Int("platforms", len(data.Order)).
		Strs("failed", data.FailedIDs).
		Msg("hot list crawl done")
	return data, nil
}

type feedResult struct {
	items []news.RSSItem
	err   error
}

// RunFeedsOnce 拉取全部订阅源并保存，返回保存的快照
func (s *Scheduler) RunFeedsOnce(ctx context.Context) (*news.RSSData, error) {
	s.feedMu.Lock()
	defer s.feedMu.Unlock()

	if s.feedSrc == nil || len(s.feeds) == 0 {
		return nil, ErrNothingFetched
	}

	now := s.codec.Now()
	crawl := s.codec.CrawlTime(now)
	s.log.Info().Str("crawl_time", crawl).Int("feeds", len(s.feeds)).Msg("start feed crawl")

	results := make([]feedResult, len(s.feeds))
	var (
		wg  sync.WaitGroup
		sem = make(chan struct{}, 5)
	)
	for i, feed := range s.feeds {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, feed config.Feed) {
			defer wg.Done()
			defer func() { <-sem }()
			fctx, cancel := context.WithTimeout(ctx, s.opt.FetchTimeout)
			defer cancel()

			items, err := s.feedSrc.Fetch(fctx, feed)
			results[i] = feedResult{items: items, err: err}
		}(i, feed)
	}
	wg.Wait()

	data := &news.RSSData{
		Date:      now.Format(timeutil.DateLayout),
		CrawlTime: crawl,
		IDToName:  map[string]string{},
		Items:     map[string][]news.RSSItem{},
	}
	for i, feed := range s.feeds {
		name := feed.Name
		if name == "" {
			name = feed.ID
		}
		data.IDToName[feed.ID] = name
		r := results[i]
		switch {
		case r.err != nil:
			s.log.Warn().Err(r.err).Str("feed", feed.ID).Msg("feed fetch failed")
			data.FailedIDs = append(data.FailedIDs, feed.ID)
		case len(r.items) == 0:
			s.log.Warn().Str("feed", feed.ID).Msg("feed got 0 items")
		default:
			data.Items[feed.ID] = r.items
			data.Order = append(data.Order, feed.ID)
		}
	}

	if data.Empty() {
		return nil, ErrNothingFetched
	}
	if err := s.store.SaveFeedSnapshot(ctx, data); err != nil {
		return nil, err
	}
	s.log.Info().
		Str("date", data.Date).
		Str("crawl_time", crawl).
		Int("feeds", len(data.Order)).
		Strs("failed", data.FailedIDs).
		Msg("feed crawl done")
	return data, nil
}
