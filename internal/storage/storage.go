package storage

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrNotConfigured 未初始化数据库时调用读写接口
var ErrNotConfigured = errors.New("storage: database not configured")

const (
	KindHotList = "hotlist"
	KindRSS     = "rss"
)

// Channel 描述一个数据源：热榜平台（weibo / zhihu / baidu）或 RSS 订阅
type Channel struct {
	ID      uint   `gorm:"primaryKey" json:"id"`
	Code    string `gorm:"size:64;uniqueIndex" json:"code"`
	Name    string `gorm:"size:128" json:"name"`
	BaseURL string `gorm:"size:256" json:"baseUrl"`
	Kind    string `gorm:"size:16;index" json:"kind"`   // hotlist / rss
	Status  string `gorm:"size:32;index" json:"status"` // active / disabled

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// HotListEntry 一次抓取中某平台的一条标题，一次观察一行
type HotListEntry struct {
	ID         uint              `gorm:"primaryKey" json:"id"`
	Date       string            `gorm:"size:10;uniqueIndex:idx_hot_obs,priority:1;index" json:"date"`
	CrawlTime  string            `gorm:"size:8;uniqueIndex:idx_hot_obs,priority:2" json:"crawlTime"`
	PlatformID string            `gorm:"size:64;uniqueIndex:idx_hot_obs,priority:3" json:"platformId"`
	Title      string            `gorm:"size:512;uniqueIndex:idx_hot_obs,priority:4" json:"title"`
	Rank       int               `json:"rank"`
	URL        string            `gorm:"size:1024" json:"url"`
	MobileURL  string            `gorm:"size:1024" json:"mobileUrl"`
	Extra      datatypes.JSONMap `gorm:"type:jsonb" json:"extra"`

	CreatedAt time.Time `json:"createdAt"`
}

// FeedArticle 某天某 feed 的一篇文章；同一天内按 Key 去重
type FeedArticle struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	Date        string `gorm:"size:10;uniqueIndex:idx_feed_article,priority:1;index" json:"date"`
	FeedID      string `gorm:"size:64;uniqueIndex:idx_feed_article,priority:2" json:"feedId"`
	Key         string `gorm:"size:1024;uniqueIndex:idx_feed_article,priority:3" json:"key"`
	URL         string `gorm:"size:1024" json:"url"`
	Title       string `gorm:"size:512" json:"title"`
	PublishedAt string `gorm:"size:64" json:"publishedAt"`
	Author      string `gorm:"size:256" json:"author"`
	Summary     string `gorm:"size:600" json:"summary"`
	FirstCrawl  string `gorm:"size:8;index" json:"firstCrawl"`
	LastCrawl   string `gorm:"size:8;index" json:"lastCrawl"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// CrawlRecord 一轮抓取的记录，保存失败的数据源
type CrawlRecord struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	Date      string         `gorm:"size:10;index:idx_crawl,priority:1" json:"date"`
	Kind      string         `gorm:"size:16;index:idx_crawl,priority:2" json:"kind"`
	CrawlTime string         `gorm:"size:8;index:idx_crawl,priority:3" json:"crawlTime"`
	FailedIDs datatypes.JSON `gorm:"type:jsonb" json:"failedIds"`

	CreatedAt time.Time `json:"createdAt"`
}

type Store struct {
	DB    *gorm.DB
	Redis *redis.Client

	cacheTTL time.Duration
	log      zerolog.Logger
}

// NewStore 连接 PostgreSQL 并迁移表结构；Redis 不可用时只告警，读接口直接走数据库
func NewStore(dsn, redisAddr string, cacheTTL time.Duration, logger zerolog.Logger) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(&Channel{}, &HotListEntry{}, &FeedArticle{}, &CrawlRecord{}); err != nil {
		return nil, err
	}

	var rdb *redis.Client
	if redisAddr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr: redisAddr,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Warn().Err(err).Str("addr", redisAddr).Msg("redis ping failed")
		}
	}

	return New(db, rdb, cacheTTL, logger), nil
}

// New 使用已有连接构建 Store
func New(db *gorm.DB, rdb *redis.Client, cacheTTL time.Duration, logger zerolog.Logger) *Store {
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	return &Store{DB: db, Redis: rdb, cacheTTL: cacheTTL, log: logger}
}

// Close 释放数据库与 Redis 连接
func (s *Store) Close() error {
	var errs []error
	if s.Redis != nil {
		errs = append(errs, s.Redis.Close())
	}
	if s.DB != nil {
		if sqlDB, err := s.DB.DB(); err == nil {
			errs = append(errs, sqlDB.Close())
		}
	}
	return errors.Join(errs...)
}

func (s *Store) db(ctx context.Context) (*gorm.DB, error) {
	if s == nil || s.DB == nil {
		return nil, ErrNotConfigured
	}
	return s.DB.WithContext(ctx), nil
}

// EnsureChannel 确保某个渠道存在，已存在时更新展示名
func (s *Store) EnsureChannel(ctx context.Context, code, name, baseURL, kind string) error {
	db, err := s.db(ctx)
	if err != nil {
		return err
	}
	if name == "" {
		name = code
	}
	ch := &Channel{
		Code:    code,
		Name:    name,
		BaseURL: baseURL,
		Kind:    kind,
		Status:  "active",
	}
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "code"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "updated_at"}),
	}).Create(ch).Error
}

// channelNames 渠道 code -> 展示名
func (s *Store) channelNames(db *gorm.DB, kind string) map[string]string {
	var list []Channel
	if err := db.Where("kind = ?", kind).Find(&list).Error; err != nil {
		s.log.Warn().Err(err).Str("kind", kind).Msg("list channels failed")
		return map[string]string{}
	}
	m := make(map[string]string, len(list))
	for _, c := range list {
		m[c.Code] = c.Name
	}
	return m
}

// ListDates 返回有热榜数据的日期（倒序）
func (s *Store) ListDates(ctx context.Context, limit int) ([]string, error) {
	if limit <= 0 || limit > 365 {
		limit = 31
	}
	db, err := s.db(ctx)
	if err != nil {
		return nil, err
	}
	var dates []string
	err = db.Model(&CrawlRecord{}).
		Where("kind = ?", KindHotList).
		Distinct("date").
		Order("date DESC").
		Limit(limit).
		Pluck("date", &dates).Error
	return dates, err
}

func (s *Store) recordCrawl(db *gorm.DB, date, kind, crawlTime string, failed []string) error {
	if failed == nil {
		failed = []string{}
	}
	bs, err := json.Marshal(failed)
	if err != nil {
		return err
	}
	return db.Create(&CrawlRecord{Date: date, Kind: kind, CrawlTime: crawlTime, FailedIDs: datatypes.JSON(bs)}).Error
}

// latestCrawl 某天某类抓取的最新 crawl_time 与失败列表；没有抓取记录时返回空字符串
func (s *Store) latestCrawl(db *gorm.DB, date, kind string) (string, []string, error) {
	rec, err := s.latestCrawlRecord(db, date, kind)
	if err != nil || rec.ID == 0 {
		return "", nil, err
	}
	return rec.CrawlTime, rec.failed(), nil
}

// latestCrawlRecord 某天某类抓取的最新一条记录；没有记录时 ID 为 0。
// 每次保存都会新增一条记录，ID 可作为当天数据的版本号。
func (s *Store) latestCrawlRecord(db *gorm.DB, date, kind string) (CrawlRecord, error) {
	var rec CrawlRecord
	err := db.Where("date = ? AND kind = ?", date, kind).
		Order("crawl_time DESC").Order("id DESC").
		Limit(1).Find(&rec).Error
	return rec, err
}

func (r CrawlRecord) failed() []string {
	var failed []string
	if len(r.FailedIDs) > 0 {
		_ = json.Unmarshal(r.FailedIDs, &failed)
	}
	return failed
}

// toValidUTF8 将字符串规范为合法 UTF-8，避免 PostgreSQL invalid byte sequence 错误（如百度等源可能含 GBK/混编）
func toValidUTF8(s string) string {
	return strings.ToValidUTF8(s, "\uFFFD")
}

// truncateRunesDB 按 rune 数截断字符串，确保不会超过数据库字段长度（例如 varchar(600)）。
func truncateRunesDB(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	rs := []rune(s)
	if len(rs) <= limit {
		return s
	}
	return string(rs[:limit])
}

// cleanText 入库前的统一清洗
func cleanText(s string, limit int) string {
	return truncateRunesDB(toValidUTF8(s), limit)
}
