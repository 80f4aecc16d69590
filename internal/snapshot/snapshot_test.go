package snapshot

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/LJTian/TrendRadar/internal/news"
)

func aggregated(title string, ranks []int, first, last string, count int) news.NewsItem {
	it := news.Raw(title, ranks[len(ranks)-1], "https://example.com/"+title, "", last)
	it.Agg = &news.Aggregate{Ranks: ranks, FirstTime: first, LastTime: last, Count: count}
	return it
}

func TestAggregateMixedShapes(t *testing.T) {
	data := &news.NewsData{
		Date:     "2024-01-01",
		IDToName: map[string]string{"zhihu": "知乎"},
		Items: map[string][]news.NewsItem{
			"zhihu": {
				aggregated("x", []int{3, 1}, "08-00", "09-00", 2),
				news.Raw("y", 5, "https://y", "https://m.y", "09-00"),
			},
			"weibo": {
				news.Raw("w", 1, "", "", "09-00"),
			},
		},
		Order: []string{"zhihu", "weibo"},
	}

	res := Aggregate(data, nil)

	if !reflect.DeepEqual(res.Order, []string{"zhihu", "weibo"}) {
		t.Fatalf("Order = %v", res.Order)
	}
	if res.Names["zhihu"] != "知乎" || res.Names["weibo"] != "weibo" {
		t.Fatalf("Names = %v", res.Names)
	}
	if res.Len() != 3 {
		t.Fatalf("Len = %d, want 3", res.Len())
	}

	x := res.Info["zhihu"]["x"]
	if x.FirstTime != "08-00" || x.LastTime != "09-00" || x.Count != 2 || !reflect.DeepEqual(x.Ranks, []int{3, 1}) {
		t.Fatalf("aggregated record not preserved: %+v", x)
	}

	y := res.Info["zhihu"]["y"]
	if y.FirstTime != "09-00" || y.LastTime != "09-00" || y.Count != 1 || !reflect.DeepEqual(y.Ranks, []int{5}) {
		t.Fatalf("raw record not synthesized: %+v", y)
	}
	if e := res.Titles["zhihu"]["y"]; e.URL != "https://y" || e.MobileURL != "https://m.y" || !reflect.DeepEqual(e.Ranks, []int{5}) {
		t.Fatalf("Titles entry = %+v", e)
	}
}

func TestAggregateFilterAndAbsence(t *testing.T) {
	data := &news.NewsData{
		Items: map[string][]news.NewsItem{
			"zhihu": {news.Raw("a", 1, "", "", "08-00")},
			"empty": {},
		},
	}

	res := Aggregate(data, NewFilter([]string{"zhihu", "missing"}))
	if len(res.Titles) != 1 || len(res.Titles["zhihu"]) != 1 {
		t.Fatalf("filter not applied: %+v", res.Titles)
	}
	if _, ok := res.Names["missing"]; ok {
		t.Fatalf("platform absent from data should not appear")
	}

	all := Aggregate(data, nil)
	if m, ok := all.Titles["empty"]; !ok || len(m) != 0 {
		t.Fatalf("platform with no items should yield an empty map, got %v (present=%v)", m, ok)
	}

	none := Aggregate(data, NewFilter([]string{}))
	if none.Len() != 0 || len(none.Names) != 0 {
		t.Fatalf("empty filter should match nothing: %+v", none)
	}

	if res := Aggregate(nil, nil); res.Len() != 0 || res.Titles == nil {
		t.Fatalf("nil data should give empty, non-nil maps")
	}
}

func TestDetectNewColdStartReturnsEmpty(t *testing.T) {
	snap := &news.NewsData{
		CrawlTime: "08-00",
		Items: map[string][]news.NewsItem{
			"p": {news.Raw("a", 1, "", "", "08-00"), news.Raw("b", 2, "", "", "08-00")},
			"q": {news.Raw("c", 1, "", "", "08-00")},
		},
	}
	// 全天数据与唯一一次快照相同
	if got := DetectNew(snap, snap, nil); len(got) != 0 {
		t.Fatalf("cold start should yield no new titles, got %v", got)
	}
}

func TestDetectNewWarmDiff(t *testing.T) {
	all := &news.NewsData{
		Items: map[string][]news.NewsItem{
			"P": {
				aggregated("x", []int{1}, "08-00", "08-00", 1),
				aggregated("y", []int{2, 1}, "08-00", "09-00", 2),
				news.Raw("z", 3, "https://z", "", "09-00"),
			},
		},
	}
	latest := &news.NewsData{
		CrawlTime: "09-00",
		Items: map[string][]news.NewsItem{
			"P": {
				news.Raw("y", 1, "", "", "09-00"),
				news.Raw("z", 3, "https://z", "https://m.z", "09-00"),
			},
		},
	}

	got := DetectNew(latest, all, nil)
	want := news.NewTitleSet{
		"P": {"z": {Ranks: []int{3}, URL: "https://z", MobileURL: "https://m.z"}},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("DetectNew = %+v, want %+v", got, want)
	}
}

func TestDetectNewSeparatorInsensitive(t *testing.T) {
	all := &news.NewsData{
		Items: map[string][]news.NewsItem{
			"P": {news.Raw("old", 1, "", "", "08:00"), news.Raw("new", 2, "", "", "09-00")},
		},
	}
	latest := &news.NewsData{
		CrawlTime: "09-00",
		Items:     map[string][]news.NewsItem{"P": {news.Raw("old", 1, "", "", "09-00"), news.Raw("new", 2, "", "", "09-00")}},
	}
	got := DetectNew(latest, all, nil)
	if !got.Has("P", "new") || got.Has("P", "old") {
		t.Fatalf("DetectNew = %+v", got)
	}
}

// 冷启动判断是全局的：平台 Q 没有任何历史，但 P 有，Q 的全部标题都算新增
func TestDetectNewColdStartGuardIsGlobal(t *testing.T) {
	all := &news.NewsData{
		Items: map[string][]news.NewsItem{
			"P": {news.Raw("p1", 1, "", "", "08-00")},
			"Q": {news.Raw("q1", 1, "", "", "09-00")},
		},
	}
	latest := &news.NewsData{
		CrawlTime: "09-00",
		Items: map[string][]news.NewsItem{
			"P": {news.Raw("p1", 1, "", "", "09-00")},
			"Q": {news.Raw("q1", 1, "", "", "09-00")},
		},
	}

	got := DetectNew(latest, all, nil)
	if !got.Has("Q", "q1") || got.Has("P", "p1") {
		t.Fatalf("DetectNew = %+v, want only Q/q1", got)
	}

	// 过滤掉有历史的 P 之后，Q 单独就是冷启动
	onlyQ := DetectNew(latest, all, NewFilter([]string{"Q"}))
	if len(onlyQ) != 0 {
		t.Fatalf("filtered cold start should be empty, got %+v", onlyQ)
	}
}

func TestDetectNewAbsentInputs(t *testing.T) {
	some := &news.NewsData{CrawlTime: "09-00", Items: map[string][]news.NewsItem{"P": {news.Raw("a", 1, "", "", "09-00")}}}
	if got := DetectNew(nil, some, nil); len(got) != 0 {
		t.Fatalf("nil latest should be empty")
	}
	if got := DetectNew(some, nil, nil); len(got) != 0 {
		t.Fatalf("nil aggregate should be empty")
	}
	if got := DetectNew(&news.NewsData{Items: some.Items}, some, nil); len(got) != 0 {
		t.Fatalf("latest without crawl time should be empty")
	}
}

type fakeReader struct {
	day, latest *news.NewsData
	err         error
	dayCalls    int
}

func (f *fakeReader) GetDayAggregate(_ context.Context, _ string) (*news.NewsData, error) {
	f.dayCalls++
	return f.day, f.err
}

func (f *fakeReader) GetLatestSnapshot(_ context.Context, _ string) (*news.NewsData, error) {
	return f.latest, f.err
}

func TestAggregatorReadsThroughReader(t *testing.T) {
	r := &fakeReader{
		day: &news.NewsData{Items: map[string][]news.NewsItem{
			"P": {news.Raw("old", 1, "", "", "08-00"), news.Raw("new", 2, "", "", "09-00")},
		}},
		latest: &news.NewsData{CrawlTime: "09-00", Items: map[string][]news.NewsItem{
			"P": {news.Raw("new", 2, "", "", "09-00")},
		}},
	}
	a := NewAggregator(r)

	res, raw, err := a.ReadTitles(context.Background(), "2024-01-01", nil)
	if err != nil || raw == nil || res.Len() != 2 {
		t.Fatalf("ReadTitles = %+v, %v, %v", res, raw, err)
	}

	set, err := a.DetectNewTitles(context.Background(), "2024-01-01", nil)
	if err != nil || !set.Has("P", "new") {
		t.Fatalf("DetectNewTitles = %+v, %v", set, err)
	}
}

func TestAggregatorSkipsDayReadWithoutLatest(t *testing.T) {
	r := &fakeReader{}
	set, err := NewAggregator(r).DetectNewTitles(context.Background(), "2024-01-01", nil)
	if err != nil || len(set) != 0 {
		t.Fatalf("DetectNewTitles = %+v, %v", set, err)
	}
	if r.dayCalls != 0 {
		t.Fatalf("day aggregate should not be read when there is no latest snapshot")
	}
}

func TestAggregatorPropagatesReaderErrors(t *testing.T) {
	boom := errors.New("boom")
	a := NewAggregator(&fakeReader{err: boom})
	if _, _, err := a.ReadTitles(context.Background(), "2024-01-01", nil); !errors.Is(err, boom) {
		t.Fatalf("ReadTitles err = %v, want wrapped boom", err)
	}
	if _, err := a.DetectNewTitles(context.Background(), "2024-01-01", nil); !errors.Is(err, boom) {
		t.Fatalf("DetectNewTitles err = %v, want wrapped boom", err)
	}
}
