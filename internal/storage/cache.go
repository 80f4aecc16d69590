package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/LJTian/TrendRadar/internal/news"
)

const cachePrefix = "trendradar:"

// 缓存键带上最新抓取记录的 id：新的抓取落库后旧键不再被读取，
// 并发读者回写的旧数据只会留在旧键上直到过期
func dayKey(date string, crawlID uint) string {
	return fmt.Sprintf("%sday:%s:%d", cachePrefix, date, crawlID)
}

func latestKey(date string, crawlID uint) string {
	return fmt.Sprintf("%slatest:%s:%d", cachePrefix, date, crawlID)
}

// cachedNews 读 Redis 缓存；未命中、Redis 未配置或反序列化失败都视为未命中
func (s *Store) cachedNews(ctx context.Context, key string) (*news.NewsData, bool) {
	if s.Redis == nil {
		return nil, false
	}
	bs, err := s.Redis.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.log.Debug().Err(err).Str("key", key).Msg("cache get failed")
		}
		return nil, false
	}
	var data news.NewsData
	if err := json.Unmarshal(bs, &data); err != nil {
		return nil, false
	}
	return &data, true
}

// cacheNews 回写缓存（默认 5 分钟）
func (s *Store) cacheNews(ctx context.Context, key string, data *news.NewsData) {
	if s.Redis == nil || data == nil {
		return
	}
	bs, err := json.Marshal(data)
	if err != nil {
		return
	}
	if err := s.Redis.Set(ctx, key, bs, s.cacheTTL).Err(); err != nil {
		s.log.Debug().Err(err).Str("key", key).Msg("cache set failed")
	}
}
