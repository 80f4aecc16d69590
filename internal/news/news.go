package news

import "sort"

// NewsItem 某个平台在某次（或某天多次）抓取中观察到的一条标题。
// 存储层可能返回两种形态：单次抓取的原始记录（只有 Rank/CrawlTime），
// 或者已按天聚合过的记录（带 Ranks/FirstTime/LastTime/Count）。
// 调用方统一通过 Normalize 得到完整形态，不要在各处判断字段是否存在。
type NewsItem struct {
	Title     string `json:"title"`
	Rank      int    `json:"rank"`
	URL       string `json:"url"`
	MobileURL string `json:"mobileUrl"`
	CrawlTime string `json:"crawlTime"`
	// Extra 采集器附带的原始字段（热度、评论数等），只做透传
	Extra map[string]any `json:"extra,omitempty"`

	// Agg 为 nil 表示原始形态
	Agg *Aggregate `json:"agg,omitempty"`
}

// Aggregate 按天聚合后的附加字段
type Aggregate struct {
	Ranks     []int  `json:"ranks"`
	FirstTime string `json:"firstTime"`
	LastTime  string `json:"lastTime"`
	Count     int    `json:"count"`
}

// Raw 构造一条原始形态的记录
func Raw(title string, rank int, url, mobileURL, crawlTime string) NewsItem {
	return NewsItem{Title: title, Rank: rank, URL: url, MobileURL: mobileURL, CrawlTime: crawlTime}
}

// IsAggregated 是否为聚合形态
func (it NewsItem) IsAggregated() bool {
	return it.Agg != nil
}

// Normalize 返回完整形态的 TitleRecord。
// 缺失的聚合字段按单次观察补齐：ranks=[rank]、first=last=crawl_time、count=1。
func (it NewsItem) Normalize() TitleRecord {
	rec := TitleRecord{
		Ranks:     []int{it.Rank},
		FirstTime: it.CrawlTime,
		LastTime:  it.CrawlTime,
		Count:     1,
		URL:       it.URL,
		MobileURL: it.MobileURL,
	}
	if it.Agg == nil {
		return rec
	}
	if len(it.Agg.Ranks) > 0 {
		rec.Ranks = append([]int(nil), it.Agg.Ranks...)
	}
	if it.Agg.FirstTime != "" {
		rec.FirstTime = it.Agg.FirstTime
	}
	if it.Agg.LastTime != "" {
		rec.LastTime = it.Agg.LastTime
	}
	if it.Agg.Count > 0 {
		rec.Count = it.Agg.Count
	}
	return rec
}

// FirstSeen 首次出现的抓取时间，原始形态下即 CrawlTime
func (it NewsItem) FirstSeen() string {
	if it.Agg != nil && it.Agg.FirstTime != "" {
		return it.Agg.FirstTime
	}
	return it.CrawlTime
}

// TitleEntry 单平台单标题的排名与链接（results 形态）
type TitleEntry struct {
	Ranks     []int  `json:"ranks"`
	URL       string `json:"url"`
	MobileURL string `json:"mobileUrl"`
}

// TitleRecord 单平台单标题当天的合并视图
type TitleRecord struct {
	Ranks     []int  `json:"ranks"`
	FirstTime string `json:"firstTime"`
	LastTime  string `json:"lastTime"`
	Count     int    `json:"count"`
	URL       string `json:"url"`
	MobileURL string `json:"mobileUrl"`
}

// Entry 取出 results 形态
func (r TitleRecord) Entry() TitleEntry {
	return TitleEntry{Ranks: r.Ranks, URL: r.URL, MobileURL: r.MobileURL}
}

// MinRank 最好（最小）的排名，没有排名时返回 0
func (r TitleRecord) MinRank() int {
	if len(r.Ranks) == 0 {
		return 0
	}
	m := r.Ranks[0]
	for _, v := range r.Ranks[1:] {
		if v < m {
			m = v
		}
	}
	return m
}

// NewsData 某天的热榜数据：可以是全天聚合，也可以是单次抓取快照
type NewsData struct {
	Date      string                `json:"date"`
	CrawlTime string                `json:"crawlTime"`
	IDToName  map[string]string     `json:"idToName"`
	Items     map[string][]NewsItem `json:"items"`
	// Order 平台遍历顺序；未列出的平台按 id 排序追加在后面
	Order     []string `json:"order,omitempty"`
	FailedIDs []string `json:"failedIds,omitempty"`
}

// Empty 没有任何条目
func (d *NewsData) Empty() bool {
	return d == nil || len(d.Items) == 0
}

// SourceIDs 按 Order 返回平台 id
func (d *NewsData) SourceIDs() []string {
	if d == nil {
		return nil
	}
	return orderedKeys(d.Order, d.Items)
}

// Name 平台展示名，缺省为 id 本身
func (d *NewsData) Name(id string) string {
	if d != nil {
		if n, ok := d.IDToName[id]; ok && n != "" {
			return n
		}
	}
	return id
}

// RSSItem 一篇 RSS 文章
type RSSItem struct {
	Title       string `json:"title"`
	FeedID      string `json:"feedId"`
	URL         string `json:"url"`
	PublishedAt string `json:"publishedAt,omitempty"`
	Author      string `json:"author,omitempty"`
	Summary     string `json:"summary,omitempty"`
}

// RSSData feed id -> 文章列表
type RSSData struct {
	Date      string               `json:"date"`
	CrawlTime string               `json:"crawlTime"`
	IDToName  map[string]string    `json:"idToName"`
	Items     map[string][]RSSItem `json:"items"`
	Order     []string             `json:"order,omitempty"`
	FailedIDs []string             `json:"failedIds,omitempty"`
}

// Empty 没有任何文章
func (d *RSSData) Empty() bool {
	return d == nil || len(d.Items) == 0
}

// FeedIDs 按 Order 返回 feed id
func (d *RSSData) FeedIDs() []string {
	if d == nil {
		return nil
	}
	return orderedKeys(d.Order, d.Items)
}

// Name feed 展示名，缺省为 id 本身
func (d *RSSData) Name(id string) string {
	if d != nil {
		if n, ok := d.IDToName[id]; ok && n != "" {
			return n
		}
	}
	return id
}

// FlatArticle 拍平后的 RSS 文章，附带 feed id 与展示名
type FlatArticle struct {
	RSSItem
	FeedName string `json:"feedName"`
}

// NewTitleSet 平台 -> 最新一次抓取中新出现的标题
type NewTitleSet map[string]map[string]TitleEntry

// Has 判断某平台的某标题是否为新增
func (s NewTitleSet) Has(sourceID, title string) bool {
	_, ok := s[sourceID][title]
	return ok
}

// Count 新增标题总数
func (s NewTitleSet) Count() int {
	n := 0
	for _, m := range s {
		n += len(m)
	}
	return n
}

func orderedKeys[V any](order []string, m map[string]V) []string {
	out := make([]string, 0, len(m))
	seen := make(map[string]struct{}, len(m))
	for _, id := range order {
		if _, ok := m[id]; !ok {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	if len(out) == len(m) {
		return out
	}
	rest := make([]string, 0, len(m)-len(out))
	for id := range m {
		if _, ok := seen[id]; !ok {
			rest = append(rest, id)
		}
	}
	sort.Strings(rest)
	return append(out, rest...)
}
