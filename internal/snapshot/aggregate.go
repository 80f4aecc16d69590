// Package snapshot 把存储层返回的某天热榜数据整理成按平台、按标题的视图，
// 并对比最新一次抓取与当天历史，找出新出现的标题。
package snapshot

import (
	"context"
	"fmt"

	"github.com/LJTian/TrendRadar/internal/news"
)

// DayReader 存储层读取接口；返回 nil 且无错误表示当天没有数据
type DayReader interface {
	GetDayAggregate(ctx context.Context, date string) (*news.NewsData, error)
	GetLatestSnapshot(ctx context.Context, date string) (*news.NewsData, error)
}

// Filter 平台过滤；nil 表示不过滤，非 nil 的空集合不匹配任何平台
type Filter map[string]struct{}

// NewFilter 由平台 id 列表构建过滤器；ids 为 nil 时返回 nil（不过滤）
func NewFilter(ids []string) Filter {
	if ids == nil {
		return nil
	}
	f := make(Filter, len(ids))
	for _, id := range ids {
		f[id] = struct{}{}
	}
	return f
}

// Allows 平台是否通过过滤
func (f Filter) Allows(id string) bool {
	if f == nil {
		return true
	}
	_, ok := f[id]
	return ok
}

// Result 三个对齐的视图
type Result struct {
	// Titles 平台 -> 标题 -> 排名与链接
	Titles map[string]map[string]news.TitleEntry
	// Names 平台 -> 展示名
	Names map[string]string
	// Info 平台 -> 标题 -> 当天合并记录
	Info map[string]map[string]news.TitleRecord
	// Order 平台顺序，与 Titles 的 key 一致
	Order []string
}

func newResult() Result {
	return Result{
		Titles: map[string]map[string]news.TitleEntry{},
		Names:  map[string]string{},
		Info:   map[string]map[string]news.TitleRecord{},
	}
}

// Len 所有平台的标题总数
func (r Result) Len() int {
	n := 0
	for _, m := range r.Titles {
		n += len(m)
	}
	return n
}

// Aggregate 把当天数据整理为三个对齐视图，每条记录单独做形态归一
func Aggregate(data *news.NewsData, platforms Filter) Result {
	res := newResult()
	if data.Empty() {
		return res
	}

	for _, sourceID := range data.SourceIDs() {
		if !platforms.Allows(sourceID) {
			continue
		}
		res.Order = append(res.Order, sourceID)
		res.Names[sourceID] = data.Name(sourceID)

		items := data.Items[sourceID]
		titles := make(map[string]news.TitleEntry, len(items))
		info := make(map[string]news.TitleRecord, len(items))
		for _, it := range items {
			rec := it.Normalize()
			titles[it.Title] = rec.Entry()
			info[it.Title] = rec
		}
		res.Titles[sourceID] = titles
		res.Info[sourceID] = info
	}
	return res
}

// Aggregator 基于 DayReader 的读取入口
type Aggregator struct {
	reader DayReader
}

func NewAggregator(r DayReader) *Aggregator {
	return &Aggregator{reader: r}
}

// ReadTitles 读取某天的全天数据并整理；同时返回原始数据（可能为 nil）
func (a *Aggregator) ReadTitles(ctx context.Context, date string, platforms Filter) (Result, *news.NewsData, error) {
	data, err := a.reader.GetDayAggregate(ctx, date)
	if err != nil {
		return newResult(), nil, fmt.Errorf("read day aggregate %s: %w", date, err)
	}
	return Aggregate(data, platforms), data, nil
}

// DetectNewTitles 读取最新快照与全天数据并对比
func (a *Aggregator) DetectNewTitles(ctx context.Context, date string, platforms Filter) (news.NewTitleSet, error) {
	latest, err := a.reader.GetLatestSnapshot(ctx, date)
	if err != nil {
		return news.NewTitleSet{}, fmt.Errorf("read latest snapshot %s: %w", date, err)
	}
	if latest.Empty() {
		return news.NewTitleSet{}, nil
	}
	all, err := a.reader.GetDayAggregate(ctx, date)
	if err != nil {
		return news.NewTitleSet{}, fmt.Errorf("read day aggregate %s: %w", date, err)
	}
	return DetectNew(latest, all, platforms), nil
}
