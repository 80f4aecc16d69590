package snapshot

import (
	"github.com/LJTian/TrendRadar/internal/news"
	"github.com/LJTian/TrendRadar/internal/timeutil"
)

// DetectNew 找出最新快照中相对当天历史新出现的标题。
//
// 历史集合为全天数据中 first_time 早于最新抓取时刻的标题。所有平台的历史集合都为空时
// （当天第一次抓取）直接返回空集：单次快照不能和自己比。
// 这个冷启动判断是全局的而不是按平台的，因此某个平台即使此前从未抓取过，
// 只要其它平台有历史，它在最新快照里的全部标题都会被视为新增。
func DetectNew(latest, all *news.NewsData, platforms Filter) news.NewTitleSet {
	out := news.NewTitleSet{}
	if latest.Empty() || all.Empty() || latest.CrawlTime == "" {
		return out
	}
	latestTime := latest.CrawlTime

	historical := make(map[string]map[string]struct{}, len(all.Items))
	hasHistory := false
	for _, sourceID := range all.SourceIDs() {
		if !platforms.Allows(sourceID) {
			continue
		}
		set := make(map[string]struct{})
		for _, it := range all.Items[sourceID] {
			if timeutil.CompareClock(it.FirstSeen(), latestTime) < 0 {
				set[it.Title] = struct{}{}
			}
		}
		if len(set) > 0 {
			hasHistory = true
		}
		historical[sourceID] = set
	}
	if !hasHistory {
		return out
	}

	for _, sourceID := range latest.SourceIDs() {
		if !platforms.Allows(sourceID) {
			continue
		}
		seen := historical[sourceID]
		var fresh map[string]news.TitleEntry
		for _, it := range latest.Items[sourceID] {
			if _, ok := seen[it.Title]; ok {
				continue
			}
			if fresh == nil {
				fresh = make(map[string]news.TitleEntry)
			}
			fresh[it.Title] = news.TitleEntry{
				Ranks:     []int{it.Rank},
				URL:       it.URL,
				MobileURL: it.MobileURL,
			}
		}
		if len(fresh) > 0 {
			out[sourceID] = fresh
		}
	}
	return out
}
