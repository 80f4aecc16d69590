package service

import (
	"context"
	"fmt"

	"github.com/LJTian/TrendRadar/internal/ids"
	"github.com/LJTian/TrendRadar/internal/snapshot"
	"github.com/LJTian/TrendRadar/internal/timeutil"
)

// Lookup 按 id 反查热榜条目：对当天全部标题重新计算 id 后匹配。
// 结果按请求中 id 的顺序排列，未命中的 id 放在 Missing 中。
func (s *NewsService) Lookup(ctx context.Context, req LookupRequest) (*LookupResult, error) {
	wanted := SplitList(req.IDs)
	if len(wanted) == 0 {
		return nil, ErrNoCriteria
	}
	if req.Date != "" {
		if _, ok := timeutil.ParseDate(req.Date); !ok {
			return nil, fmt.Errorf("%w: date %q, want YYYY-MM-DD", ErrInvalidRequest, req.Date)
		}
	}
	date := s.codec.ResolveDate(req.Date)

	filter := snapshot.NewFilter(SplitList(req.Platforms))
	res, _, err := s.agg.ReadTitles(ctx, date, filter)
	if err != nil {
		return nil, err
	}
	newSet, err := s.agg.DetectNewTitles(ctx, date, filter)
	if err != nil {
		return nil, err
	}

	type hit struct{ pid, title string }
	byID := map[string]hit{}
	for _, pid := range res.Order {
		for title, rec := range res.Info[pid] {
			byID[ids.HotListItemID(pid, title, date, rec.LastTime)] = hit{pid, title}
		}
	}

	out := &LookupResult{Date: date, Items: []LookupItem{}, Missing: []string{}}
	seen := map[string]struct{}{}
	for _, id := range wanted {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		h, ok := byID[id]
		if !ok {
			out.Missing = append(out.Missing, id)
			continue
		}
		rec := res.Info[h.pid][h.title]
		out.Items = append(out.Items, LookupItem{
			PlatformID:   h.pid,
			PlatformName: res.Names[h.pid],
			NewsItemOut:  s.newsItem(h.pid, h.title, date, rec, []string{}, newSet.Has(h.pid, h.title)),
		})
	}
	return out, nil
}

// NewTitles 最近一次抓取中新出现的标题，每个平台内按排名排序
func (s *NewsService) NewTitles(ctx context.Context, date string, platforms []string) (*NewTitlesResult, error) {
	if date != "" {
		if _, ok := timeutil.ParseDate(date); !ok {
			return nil, fmt.Errorf("%w: date %q, want YYYY-MM-DD", ErrInvalidRequest, date)
		}
	}
	date = s.codec.ResolveDate(date)
	filter := snapshot.NewFilter(SplitList(platforms))

	newSet, err := s.agg.DetectNewTitles(ctx, date, filter)
	if err != nil {
		return nil, err
	}
	out := &NewTitlesResult{Date: date, Platforms: []PlatformNewTitles{}}
	if newSet.Count() == 0 {
		return out, nil
	}

	res, _, err := s.agg.ReadTitles(ctx, date, filter)
	if err != nil {
		return nil, err
	}
	for _, pid := range res.Order {
		titles, ok := newSet[pid]
		if !ok || len(titles) == 0 {
			continue
		}
		p := PlatformNewTitles{PlatformID: pid, PlatformName: res.Names[pid]}
		for _, title := range sortedTitles(res.Info[pid]) {
			e, ok := titles[title]
			if !ok {
				continue
			}
			rank := 0
			if len(e.Ranks) > 0 {
				rank = e.Ranks[0]
			}
			p.Titles = append(p.Titles, NewTitleOut{
				ID:        ids.HotListItemID(pid, title, date, res.Info[pid][title].LastTime),
				Title:     title,
				Rank:      rank,
				URL:       e.URL,
				MobileURL: e.MobileURL,
			})
		}
		out.Total += len(p.Titles)
		out.Platforms = append(out.Platforms, p)
	}
	return out, nil
}
