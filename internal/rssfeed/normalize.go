// Package rssfeed 把按 feed 分组的 RSS 文章拍平成统一列表，并按新鲜度过滤；
// 同时从存储层的“自上次检查以来新增”结果中提取新增 URL 集合。
package rssfeed

import (
	"github.com/LJTian/TrendRadar/internal/news"
	"github.com/LJTian/TrendRadar/internal/timeutil"
)

// Freshness 新鲜度过滤配置
type Freshness struct {
	Enabled           bool
	DefaultMaxAgeDays int
}

// Override 单个 feed 的最大天数；MaxAgeDays <= 0 视为未设置，使用默认值
type Override struct {
	FeedID     string
	MaxAgeDays int
}

// Normalizer 拍平 + 新鲜度过滤
type Normalizer struct {
	freshness Freshness
	maxAge    map[string]int
	codec     *timeutil.Codec
}

func NewNormalizer(f Freshness, overrides []Override, codec *timeutil.Codec) *Normalizer {
	m := make(map[string]int, len(overrides))
	for _, o := range overrides {
		if o.FeedID != "" && o.MaxAgeDays > 0 {
			m[o.FeedID] = o.MaxAgeDays
		}
	}
	return &Normalizer{freshness: f, maxAge: m, codec: codec}
}

// MaxAgeDays 某个 feed 生效的最大天数
func (n *Normalizer) MaxAgeDays(feedID string) int {
	if d, ok := n.maxAge[feedID]; ok {
		return d
	}
	return n.freshness.DefaultMaxAgeDays
}

// Keep 文章是否保留：只有发布时间可解析且超出窗口时才丢弃
func (n *Normalizer) Keep(feedID string, it news.RSSItem) bool {
	days := n.MaxAgeDays(feedID)
	if !n.freshness.Enabled || days <= 0 {
		return true
	}
	pub, ok := n.codec.ParsePublished(it.PublishedAt)
	if !ok {
		return true
	}
	return n.codec.WithinDays(pub, days)
}

// Flatten 按 feed 顺序、feed 内文章顺序输出，不重新排序
func (n *Normalizer) Flatten(items map[string][]news.RSSItem, order []string, names map[string]string) []news.FlatArticle {
	data := &news.RSSData{Items: items, Order: order, IDToName: names}
	return n.FlattenData(data)
}

// FlattenData 同 Flatten，直接接收 RSSData
func (n *Normalizer) FlattenData(data *news.RSSData) []news.FlatArticle {
	if data.Empty() {
		return nil
	}
	var out []news.FlatArticle
	for _, feedID := range data.FeedIDs() {
		name := data.Name(feedID)
		for _, it := range data.Items[feedID] {
			if !n.Keep(feedID, it) {
				continue
			}
			it.FeedID = feedID
			out = append(out, news.FlatArticle{RSSItem: it, FeedName: name})
		}
	}
	return out
}
