// Package app 在进程启动时一次性组装时区、存储、采集与查询服务，
// 由 cmd 下的入口持有并在退出时关闭。
package app

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/LJTian/TrendRadar/internal/collector"
	"github.com/LJTian/TrendRadar/internal/config"
	"github.com/LJTian/TrendRadar/internal/logging"
	"github.com/LJTian/TrendRadar/internal/processor"
	"github.com/LJTian/TrendRadar/internal/rssfeed"
	"github.com/LJTian/TrendRadar/internal/scheduler"
	"github.com/LJTian/TrendRadar/internal/service"
	"github.com/LJTian/TrendRadar/internal/storage"
	"github.com/LJTian/TrendRadar/internal/timeutil"
)

// Store 存储层需要同时满足读写接口
type Store interface {
	service.Store
	scheduler.Writer
	Close() error
}

type Context struct {
	Config    *config.Config
	Codec     *timeutil.Codec
	Store     Store
	News      *service.NewsService
	Scheduler *scheduler.Scheduler
	Log       zerolog.Logger
}

// New 按配置连接 PostgreSQL / Redis 并组装全部组件
func New(cfg *config.Config) (*Context, error) {
	log := logging.Named("app")

	codec, err := timeutil.NewCodec(cfg.Timezone)
	if err != nil {
		log.Warn().Err(err).Str("timezone", cfg.Timezone).Msg("unknown timezone, falling back to UTC")
	}

	store, err := storage.NewStore(cfg.PostgresDSN, cfg.RedisAddr, cfg.CacheTTL, logging.Named("store"))
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}

	ctx, err := NewWithDeps(cfg, codec, store)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	return ctx, nil
}

// NewWithDeps 使用给定的时区与存储组装，测试时可注入内存实现
func NewWithDeps(cfg *config.Config, codec *timeutil.Codec, store Store) (*Context, error) {
	log := logging.Named("app")

	norm := rssfeed.NewNormalizer(cfg.Sources.RSS.FreshnessSettings(), cfg.Sources.RSS.Overrides(), codec)
	news := service.NewNewsService(store, codec, norm, cfg.Sources.RSS.FeedURLs(), logging.Named("service"))

	fetchers, unknown := collector.NewHotListFetchers(cfg.Sources.Platforms)
	if len(unknown) > 0 {
		log.Warn().Strs("platforms", unknown).Strs("known", collector.Known()).Msg("skip unsupported platforms")
	}

	sched, err := scheduler.New(scheduler.Options{
		HotListSpec:  cfg.CronSpec,
		FeedSpec:     cfg.RSSCronSpec,
		FetchTimeout: 30 * time.Second,
		StartupDelay: 15 * time.Second,
	}, fetchers, cfg.Sources.RSS.Feeds, collector.NewFeedFetcher(15*time.Second),
		processor.NewSimpleProcessor(), store, codec, logging.Named("scheduler"))
	if err != nil {
		return nil, fmt.Errorf("init scheduler: %w", err)
	}

	return &Context{
		Config:    cfg,
		Codec:     codec,
		Store:     store,
		News:      news,
		Scheduler: sched,
		Log:       log,
	}, nil
}

// Close 停止调度并释放存储连接
func (c *Context) Close() error {
	if c.Scheduler != nil {
		<-c.Scheduler.Stop().Done()
	}
	if c.Store != nil {
		return c.Store.Close()
	}
	return nil
}
