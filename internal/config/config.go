package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/LJTian/TrendRadar/internal/logging"
)

type Config struct {
	AppPort string

	PostgresDSN string
	RedisAddr   string
	CacheTTL    time.Duration

	// CronSpec 热榜采集周期，RSSCronSpec RSS 采集周期
	CronSpec    string
	RSSCronSpec string

	// Timezone 所有“今天”与 crawl_time 的计算时区
	Timezone string

	FeedsFile string
	Sources   Sources

	BasicAuthUser string
	BasicAuthPass string

	// EnableCrawler 关闭后不启动定时采集，也不允许通过 API 触发刷新
	EnableCrawler bool
}

// Load 先加载 .env（若存在），再读取环境变量与 feeds 配置文件
func Load() *Config {
	logger := logging.Named("config")

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logger.Warn().Err(err).Msg("load .env failed")
	}

	cfg := &Config{
		AppPort:       getEnv("APP_PORT", "9000"),
		PostgresDSN:   getEnv("POSTGRES_DSN", "host=localhost user=trendradar password=trendradar dbname=trendradar port=5432 sslmode=disable TimeZone=UTC"),
		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6380"),
		CacheTTL:      getDuration("CACHE_TTL", 5*time.Minute),
		CronSpec:      getEnv("CRON_SPEC", "*/30 * * * *"),
		RSSCronSpec:   getEnv("RSS_CRON_SPEC", "0 * * * *"),
		Timezone:      getEnv("TIMEZONE", "Asia/Shanghai"),
		FeedsFile:     getEnv("FEEDS_FILE", "config/feeds.yaml"),
		BasicAuthUser: os.Getenv("APP_BASIC_USER"),
		BasicAuthPass: os.Getenv("APP_BASIC_PASS"),
		EnableCrawler: getBool("ENABLE_CRAWLER", true),
	}

	src, err := LoadSources(cfg.FeedsFile)
	if err != nil {
		logger.Warn().Err(err).Str("file", cfg.FeedsFile).Msg("load sources failed, using defaults")
		src = DefaultSources()
	}
	cfg.Sources = src

	logEvent(logger.Info(), cfg).Msg("config loaded")
	return cfg
}

func logEvent(e *zerolog.Event, cfg *Config) *zerolog.Event {
	return e.Str("port", cfg.AppPort).
		Str("cron", cfg.CronSpec).
		Str("rss_cron", cfg.RSSCronSpec).
		Str("timezone", cfg.Timezone).
		Bool("crawler", cfg.EnableCrawler).
		Int("platforms", len(cfg.Sources.Platforms)).
		Int("feeds", len(cfg.Sources.RSS.Feeds))
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// getDuration 支持 "5m" 形式，也支持纯数字（秒）
func getDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second
	}
	return def
}

// getBool 接受 strconv.ParseBool 能识别的写法，无法识别时用默认值
func getBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}
