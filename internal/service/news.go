package service

import (
	"context"
	"fmt"

	"github.com/LJTian/TrendRadar/internal/ids"
	"github.com/LJTian/TrendRadar/internal/news"
	"github.com/LJTian/TrendRadar/internal/rssfeed"
	"github.com/LJTian/TrendRadar/internal/snapshot"
	"github.com/LJTian/TrendRadar/internal/timeutil"
)

// GetNews 按请求整理某天的热榜与 RSS
func (s *NewsService) GetNews(ctx context.Context, req NewsRequest) (*NewsResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	date := s.codec.ResolveDate(req.Date)
	filter := snapshot.NewFilter(req.Platforms)
	kw := newKeywordMatcher(req.Keywords)

	res, day, err := s.agg.ReadTitles(ctx, date, filter)
	if err != nil {
		return nil, err
	}
	newSet, err := s.agg.DetectNewTitles(ctx, date, filter)
	if err != nil {
		return nil, err
	}

	out := &NewsResult{
		Date:      date,
		Mode:      req.Mode,
		Platforms: []PlatformNews{},
		RSSFeeds:  []RSSFeedOut{},
	}
	if day != nil {
		out.CrawlTime = day.CrawlTime
		for _, id := range day.FailedIDs {
			if filter.Allows(id) {
				out.Summary.FailedPlatforms = append(out.Summary.FailedPlatforms, id)
			}
		}
	}

	incremental := req.Mode == ModeIncremental && newSet.Count() > 0
	for _, pid := range res.Order {
		info := res.Info[pid]
		pn := PlatformNews{
			PlatformID:   pid,
			PlatformName: res.Names[pid],
			NewsList:     []NewsItemOut{},
		}
		for _, title := range sortedTitles(info) {
			rec := info[title]
			isNew := newSet.Has(pid, title)
			if incremental && !isNew {
				continue
			}
			if req.Mode == ModeCurrent && out.CrawlTime != "" && timeutil.CompareClock(rec.LastTime, out.CrawlTime) != 0 {
				continue
			}
			pn.TotalCount++

			matched := kw.match(title)
			if kw.active() && len(matched) == 0 {
				continue
			}
			pn.MatchedCount++
			if isNew {
				out.Summary.NewNews++
			}
			if len(pn.NewsList) < req.Limit {
				pn.NewsList = append(pn.NewsList, s.newsItem(pid, title, date, rec, matched, isNew))
			}
		}
		if incremental && pn.TotalCount == 0 {
			continue
		}
		out.Platforms = append(out.Platforms, pn)
		out.Summary.TotalNews += pn.TotalCount
		out.Summary.MatchedNews += pn.MatchedCount
		if pn.TotalCount > 0 {
			out.Summary.ActivePlatforms++
		}
	}
	out.Summary.TotalPlatforms = len(out.Platforms)

	if req.WantRSS() {
		feeds, total, err := s.rssFeeds(ctx, date, req, kw)
		if err != nil {
			return nil, err
		}
		out.RSSFeeds = feeds
		out.Summary.RSSArticles = total
	}

	out.Summary.KeywordsFound = append([]string{}, kw.keywords...)
	out.Summary.DateRange = DateRange{Start: date + "T00:00:00", End: date + "T23:59:59"}

	s.log.Debug().
		Str("date", date).
		Str("mode", string(req.Mode)).
		Int("platforms", len(out.Platforms)).
		Int("news", out.Summary.MatchedNews).
		Int("new", out.Summary.NewNews).
		Msg("news query")
	return out, nil
}

func (s *NewsService) newsItem(pid, title, date string, rec news.TitleRecord, matched []string, isNew bool) NewsItemOut {
	return NewsItemOut{
		ID:             ids.HotListItemID(pid, title, date, rec.LastTime),
		Title:          title,
		URL:            rec.URL,
		MobileURL:      rec.MobileURL,
		Rank:           rec.MinRank(),
		FirstSeen:      s.iso(date, rec.FirstTime),
		LastSeen:       s.iso(date, rec.LastTime),
		KeywordMatched: matched,
		IsNew:          isNew,
		AppearCount:    rec.Count,
		RankHistory:    append([]int{}, rec.Ranks...),
	}
}

// rssFeeds current 模式读最近一次抓取，其余读全天；文章先过新鲜度过滤
func (s *NewsService) rssFeeds(ctx context.Context, date string, req NewsRequest, kw *keywordMatcher) ([]RSSFeedOut, int, error) {
	var (
		data *news.RSSData
		err  error
	)
	if req.Mode == ModeCurrent {
		data, err = s.store.GetLatestFeedSnapshot(ctx, date)
	} else {
		data, err = s.store.GetDayFeedAggregate(ctx, date)
	}
	if err != nil {
		return nil, 0, fmt.Errorf("read feeds %s: %w", date, err)
	}
	if data.Empty() {
		return []RSSFeedOut{}, 0, nil
	}

	_, fresh, err := rssfeed.DetectNewURLs(ctx, s.store, data)
	if err != nil {
		return nil, 0, err
	}
	onlyFresh := req.Mode == ModeIncremental && len(fresh) > 0

	feeds := []RSSFeedOut{}
	index := map[string]int{}
	total := 0
	for _, a := range s.norm.FlattenData(data) {
		isFresh := fresh.Has(a.URL)
		if onlyFresh && !isFresh {
			continue
		}
		at, ok := index[a.FeedID]
		if !ok {
			at = len(feeds)
			index[a.FeedID] = at
			feeds = append(feeds, RSSFeedOut{
				FeedID:   a.FeedID,
				FeedName: a.FeedName,
				FeedURL:  s.feedURLs[a.FeedID],
				Articles: []RSSArticleOut{},
			})
		}
		f := &feeds[at]
		f.TotalCount++
		total++

		matched := kw.match(a.Title)
		if kw.active() && len(matched) == 0 {
			continue
		}
		f.MatchedCount++
		if len(f.Articles) >= req.Limit {
			continue
		}
		var published *string
		if a.PublishedAt != "" {
			p := a.PublishedAt
			published = &p
		}
		f.Articles = append(f.Articles, RSSArticleOut{
			ID:             ids.RSSArticleID(a.FeedID, a.Title, a.PublishedAt),
			Title:          a.Title,
			URL:            a.URL,
			PublishedAt:    published,
			Author:         a.Author,
			Summary:        a.Summary,
			KeywordMatched: matched,
			IsFresh:        isFresh,
		})
	}
	return feeds, total, nil
}
