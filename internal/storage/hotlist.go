package storage

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/LJTian/TrendRadar/internal/news"
	"github.com/LJTian/TrendRadar/internal/timeutil"
)

// SaveSnapshot 保存一次热榜抓取；同一 (日期, crawl_time, 平台, 标题) 重复写入时覆盖排名与链接
func (s *Store) SaveSnapshot(ctx context.Context, data *news.NewsData) error {
	if data == nil {
		return nil
	}
	if data.Date == "" || data.CrawlTime == "" {
		return errors.New("save snapshot: date and crawl time are required")
	}
	db, err := s.db(ctx)
	if err != nil {
		return err
	}

	for _, id := range data.SourceIDs() {
		if err := s.EnsureChannel(ctx, id, data.Name(id), "", KindHotList); err != nil {
			return fmt.Errorf("ensure channel %s: %w", id, err)
		}
	}

	rows := snapshotRows(data)
	err = db.Transaction(func(tx *gorm.DB) error {
		if len(rows) > 0 {
			err := tx.Clauses(clause.OnConflict{
				Columns: []clause.Column{{Name: "date"}, {Name: "crawl_time"}, {Name: "platform_id"}, {Name: "title"}},
				DoUpdates: clause.AssignmentColumns([]string{"rank", "url", "mobile_url", "extra"}),
			}).CreateInBatches(rows, 200).Error
			if err != nil {
				return err
			}
		}
		return s.recordCrawl(tx, data.Date, KindHotList, data.CrawlTime, data.FailedIDs)
	})
	if err != nil {
		return fmt.Errorf("save snapshot %s %s: %w", data.Date, data.CrawlTime, err)
	}

	s.log.Info().
		Str("date", data.Date).
		Str("crawl_time", data.CrawlTime).
		Int("rows", len(rows)).
		Strs("failed", data.FailedIDs).
		Msg("hot list snapshot saved")
	return nil
}

func snapshotRows(data *news.NewsData) []HotListEntry {
	var rows []HotListEntry
	for _, id := range data.SourceIDs() {
		seen := make(map[string]struct{})
		for _, it := range data.Items[id] {
			title := cleanText(it.Title, 512)
			if title == "" {
				continue
			}
			if _, dup := seen[title]; dup {
				continue
			}
			seen[title] = struct{}{}
			rows = append(rows, HotListEntry{
				Date:       data.Date,
				CrawlTime:  data.CrawlTime,
				PlatformID: id,
				Title:      title,
				Rank:       it.Rank,
				URL:        truncateRunesDB(it.URL, 1024),
				MobileURL:  truncateRunesDB(it.MobileURL, 1024),
				Extra:      datatypes.JSONMap(it.Extra),
			})
		}
	}
	return rows
}

// GetDayAggregate 某天全部抓取合并后的数据；当天没有数据时返回 nil
func (s *Store) GetDayAggregate(ctx context.Context, date string) (*news.NewsData, error) {
	db, err := s.db(ctx)
	if err != nil {
		return nil, err
	}
	rec, err := s.latestCrawlRecord(db, date, KindHotList)
	if err != nil {
		return nil, fmt.Errorf("load latest crawl: %w", err)
	}
	if rec.ID == 0 {
		return nil, nil
	}
	key := dayKey(date, rec.ID)
	if cached, ok := s.cachedNews(ctx, key); ok {
		return cached, nil
	}

	var rows []HotListEntry
	if err := db.Where("date = ? AND crawl_time <= ?", date, rec.CrawlTime).Order("id ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load hot list rows: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	items, order := consolidate(rows)
	data := &news.NewsData{
		Date:      date,
		CrawlTime: rec.CrawlTime,
		IDToName:  s.channelNames(db, KindHotList),
		Items:     items,
		Order:     order,
		FailedIDs: rec.failed(),
	}
	s.cacheNews(ctx, key, data)
	return data, nil
}

// GetLatestSnapshot 某天最近一次抓取的数据（原始形态）
func (s *Store) GetLatestSnapshot(ctx context.Context, date string) (*news.NewsData, error) {
	db, err := s.db(ctx)
	if err != nil {
		return nil, err
	}
	rec, err := s.latestCrawlRecord(db, date, KindHotList)
	if err != nil {
		return nil, fmt.Errorf("load latest crawl: %w", err)
	}
	if rec.ID == 0 {
		return nil, nil
	}
	key := latestKey(date, rec.ID)
	if cached, ok := s.cachedNews(ctx, key); ok {
		return cached, nil
	}

	var rows []HotListEntry
	if err := db.Where("date = ? AND crawl_time = ?", date, rec.CrawlTime).Order("id ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load latest rows: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	data := &news.NewsData{
		Date:      date,
		CrawlTime: rec.CrawlTime,
		IDToName:  s.channelNames(db, KindHotList),
		Items:     map[string][]news.NewsItem{},
		FailedIDs: rec.failed(),
	}
	for _, r := range rows {
		if _, ok := data.Items[r.PlatformID]; !ok {
			data.Order = append(data.Order, r.PlatformID)
		}
		data.Items[r.PlatformID] = append(data.Items[r.PlatformID], rowItem(r))
	}
	s.cacheNews(ctx, key, data)
	return data, nil
}

func rowItem(r HotListEntry) news.NewsItem {
	it := news.Raw(r.Title, r.Rank, r.URL, r.MobileURL, r.CrawlTime)
	if len(r.Extra) > 0 {
		it.Extra = map[string]any(r.Extra)
	}
	return it
}

// consolidate 把一天内多次抓取的观察行合并成每个 (平台, 标题) 一条。
// 只出现过一次的标题保持原始形态，出现多次的带上聚合字段；
// 平台与标题都按首次出现的顺序排列。
func consolidate(rows []HotListEntry) (map[string][]news.NewsItem, []string) {
	sorted := make([]HotListEntry, len(rows))
	copy(sorted, rows)
	sort.SliceStable(sorted, func(i, j int) bool {
		return timeutil.CompareClock(sorted[i].CrawlTime, sorted[j].CrawlTime) < 0
	})

	type acc struct {
		item   news.NewsItem
		agg    news.Aggregate
		crawls map[string]struct{}
	}
	byPlatform := map[string][]*acc{}
	index := map[string]map[string]*acc{}
	var order []string

	for _, r := range sorted {
		titles, ok := index[r.PlatformID]
		if !ok {
			titles = map[string]*acc{}
			index[r.PlatformID] = titles
			order = append(order, r.PlatformID)
		}
		a, ok := titles[r.Title]
		if !ok {
			a = &acc{
				item:   rowItem(r),
				agg:    news.Aggregate{FirstTime: r.CrawlTime},
				crawls: map[string]struct{}{},
			}
			titles[r.Title] = a
			byPlatform[r.PlatformID] = append(byPlatform[r.PlatformID], a)
		}
		if _, dup := a.crawls[r.CrawlTime]; dup {
			continue
		}
		a.crawls[r.CrawlTime] = struct{}{}
		a.agg.Ranks = append(a.agg.Ranks, r.Rank)
		a.agg.LastTime = r.CrawlTime
		a.agg.Count++

		a.item.Rank = r.Rank
		a.item.CrawlTime = r.CrawlTime
		if r.URL != "" {
			a.item.URL = r.URL
		}
		if r.MobileURL != "" {
			a.item.MobileURL = r.MobileURL
		}
	}

	items := make(map[string][]news.NewsItem, len(byPlatform))
	for _, id := range order {
		list := make([]news.NewsItem, 0, len(byPlatform[id]))
		for _, a := range byPlatform[id] {
			it := a.item
			if a.agg.Count > 1 {
				agg := a.agg
				it.Agg = &agg
			}
			list = append(list, it)
		}
		items[id] = list
	}
	return items, order
}
