package storage

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/LJTian/TrendRadar/internal/news"
)

// articleKey 同一天同一 feed 内的去重键：优先 URL，没有 URL 时用标题
func articleKey(it news.RSSItem) string {
	if it.URL != "" {
		return it.URL
	}
	return "title:" + it.Title
}

// SaveFeedSnapshot 保存一次 RSS 抓取；已存在的文章只推进 last_crawl 并刷新字段，first_crawl 保持不变
func (s *Store) SaveFeedSnapshot(ctx context.Context, data *news.RSSData) error {
	if data == nil {
		return nil
	}
	if data.Date == "" || data.CrawlTime == "" {
		return errors.New("save feed snapshot: date and crawl time are required")
	}
	db, err := s.db(ctx)
	if err != nil {
		return err
	}

	for _, id := range data.FeedIDs() {
		if err := s.EnsureChannel(ctx, id, data.Name(id), "", KindRSS); err != nil {
			return fmt.Errorf("ensure feed %s: %w", id, err)
		}
	}

	rows := feedRows(data)
	err = db.Transaction(func(tx *gorm.DB) error {
		if len(rows) > 0 {
			err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "date"}, {Name: "feed_id"}, {Name: "key"}},
				DoUpdates: clause.AssignmentColumns([]string{"title", "url", "published_at", "author", "summary", "last_crawl", "updated_at"}),
			}).CreateInBatches(rows, 200).Error
			if err != nil {
				return err
			}
		}
		return s.recordCrawl(tx, data.Date, KindRSS, data.CrawlTime, data.FailedIDs)
	})
	if err != nil {
		return fmt.Errorf("save feed snapshot %s %s: %w", data.Date, data.CrawlTime, err)
	}

	s.log.Info().
		Str("date", data.Date).
		Str("crawl_time", data.CrawlTime).
		Int("articles", len(rows)).
		Msg("feed snapshot saved")
	return nil
}

func feedRows(data *news.RSSData) []FeedArticle {
	var rows []FeedArticle
	for _, id := range data.FeedIDs() {
		seen := make(map[string]struct{})
		for _, it := range data.Items[id] {
			it.Title = cleanText(it.Title, 512)
			key := truncateRunesDB(articleKey(it), 1024)
			if key == "" || key == "title:" {
				continue
			}
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			rows = append(rows, FeedArticle{
				Date:        data.Date,
				FeedID:      id,
				Key:         key,
				URL:         truncateRunesDB(it.URL, 1024),
				Title:       it.Title,
				PublishedAt: truncateRunesDB(it.PublishedAt, 64),
				Author:      cleanText(it.Author, 256),
				Summary:     cleanText(it.Summary, 600),
				FirstCrawl:  data.CrawlTime,
				LastCrawl:   data.CrawlTime,
			})
		}
	}
	return rows
}

// GetDayFeedAggregate 某天出现过的所有文章
func (s *Store) GetDayFeedAggregate(ctx context.Context, date string) (*news.RSSData, error) {
	db, err := s.db(ctx)
	if err != nil {
		return nil, err
	}
	latest, failed, err := s.latestCrawl(db, date, KindRSS)
	if err != nil {
		return nil, fmt.Errorf("load latest feed crawl: %w", err)
	}
	var rows []FeedArticle
	if err := db.Where("date = ?", date).Order("id ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load feed articles: %w", err)
	}
	return s.feedData(db, date, latest, failed, rows), nil
}

// GetLatestFeedSnapshot 某天最近一次 RSS 抓取中出现的文章
func (s *Store) GetLatestFeedSnapshot(ctx context.Context, date string) (*news.RSSData, error) {
	db, err := s.db(ctx)
	if err != nil {
		return nil, err
	}
	latest, failed, err := s.latestCrawl(db, date, KindRSS)
	if err != nil {
		return nil, fmt.Errorf("load latest feed crawl: %w", err)
	}
	if latest == "" {
		return nil, nil
	}
	var rows []FeedArticle
	if err := db.Where("date = ? AND last_crawl = ?", date, latest).Order("id ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load latest feed articles: %w", err)
	}
	return s.feedData(db, date, latest, failed, rows), nil
}

func (s *Store) feedData(db *gorm.DB, date, crawlTime string, failed []string, rows []FeedArticle) *news.RSSData {
	if len(rows) == 0 {
		return nil
	}
	data := &news.RSSData{
		Date:      date,
		CrawlTime: crawlTime,
		IDToName:  s.channelNames(db, KindRSS),
		Items:     map[string][]news.RSSItem{},
		FailedIDs: failed,
	}
	for _, r := range rows {
		if _, ok := data.Items[r.FeedID]; !ok {
			data.Order = append(data.Order, r.FeedID)
		}
		data.Items[r.FeedID] = append(data.Items[r.FeedID], articleItem(r))
	}
	return data
}

func articleItem(r FeedArticle) news.RSSItem {
	return news.RSSItem{
		Title:       r.Title,
		FeedID:      r.FeedID,
		URL:         r.URL,
		PublishedAt: r.PublishedAt,
		Author:      r.Author,
		Summary:     r.Summary,
	}
}

// DetectNewFeedItems 返回 data 中在当天最近一次抓取里才首次出现的文章。
// 当天只有一次抓取时不算新增。
func (s *Store) DetectNewFeedItems(ctx context.Context, data *news.RSSData) (map[string][]news.RSSItem, error) {
	out := map[string][]news.RSSItem{}
	if data.Empty() {
		return out, nil
	}
	db, err := s.db(ctx)
	if err != nil {
		return nil, err
	}

	latest, _, err := s.latestCrawl(db, data.Date, KindRSS)
	if err != nil {
		return nil, fmt.Errorf("load latest feed crawl: %w", err)
	}
	if latest == "" {
		return out, nil
	}
	var earlier int64
	if err := db.Model(&CrawlRecord{}).
		Where("date = ? AND kind = ? AND crawl_time < ?", data.Date, KindRSS, latest).
		Count(&earlier).Error; err != nil {
		return nil, fmt.Errorf("count earlier feed crawls: %w", err)
	}
	if earlier == 0 {
		return out, nil
	}

	var fresh []FeedArticle
	if err := db.Where("date = ? AND first_crawl = ?", data.Date, latest).Find(&fresh).Error; err != nil {
		return nil, fmt.Errorf("load fresh feed articles: %w", err)
	}
	return matchFresh(data, fresh), nil
}

// matchFresh 从 data 中挑出在 fresh 中出现的文章，保持 data 的顺序
func matchFresh(data *news.RSSData, fresh []FeedArticle) map[string][]news.RSSItem {
	out := map[string][]news.RSSItem{}
	if len(fresh) == 0 {
		return out
	}
	keys := make(map[string]struct{}, len(fresh))
	for _, r := range fresh {
		keys[r.FeedID+"\x00"+r.Key] = struct{}{}
	}
	for _, id := range data.FeedIDs() {
		for _, it := range data.Items[id] {
			if _, ok := keys[id+"\x00"+articleKey(it)]; ok {
				out[id] = append(out[id], it)
			}
		}
	}
	return out
}
