package rssfeed

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/LJTian/TrendRadar/internal/news"
	"github.com/LJTian/TrendRadar/internal/timeutil"
)

var testNow = time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC)

func testCodec() *timeutil.Codec {
	return timeutil.MustCodec("UTC").WithClock(func() time.Time { return testNow })
}

func published(d time.Duration) string {
	return testNow.Add(-d).Format(time.RFC3339)
}

func titles(list []news.FlatArticle) []string {
	out := make([]string, 0, len(list))
	for _, a := range list {
		out = append(out, a.Title)
	}
	return out
}

func TestFlattenKeepsFeedThenArticleOrder(t *testing.T) {
	n := NewNormalizer(Freshness{Enabled: false}, nil, testCodec())
	items := map[string][]news.RSSItem{
		"b": {{Title: "b1"}, {Title: "b2"}},
		"a": {{Title: "a1"}},
	}
	got := n.Flatten(items, []string{"b", "a"}, map[string]string{"b": "Feed B"})

	if want := []string{"b1", "b2", "a1"}; !reflect.DeepEqual(titles(got), want) {
		t.Fatalf("order = %v, want %v", titles(got), want)
	}
	if got[0].FeedID != "b" || got[0].FeedName != "Feed B" {
		t.Fatalf("feed id/name not attached: %+v", got[0])
	}
	if got[2].FeedName != "a" {
		t.Fatalf("missing display name should fall back to id, got %q", got[2].FeedName)
	}
}

// 边界规则：恰好 max_age 天视为窗口内（保留），多 1 秒即排除
func TestFreshnessBoundary(t *testing.T) {
	n := NewNormalizer(Freshness{Enabled: true, DefaultMaxAgeDays: 3}, nil, testCodec())
	items := map[string][]news.RSSItem{
		"f": {
			{Title: "edge", PublishedAt: published(72 * time.Hour)},
			{Title: "past", PublishedAt: published(72*time.Hour + time.Second)},
			{Title: "fresh", PublishedAt: published(time.Hour)},
		},
	}
	got := titles(n.Flatten(items, nil, nil))
	if want := []string{"edge", "fresh"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("kept = %v, want %v", got, want)
	}
}

func TestMissingOrUnparseablePublishTimeIsKept(t *testing.T) {
	n := NewNormalizer(Freshness{Enabled: true, DefaultMaxAgeDays: 1}, nil, testCodec())
	items := map[string][]news.RSSItem{
		"f": {
			{Title: "none"},
			{Title: "garbage", PublishedAt: "sometime last week"},
			{Title: "old", PublishedAt: published(48 * time.Hour)},
		},
	}
	got := titles(n.Flatten(items, nil, nil))
	if want := []string{"none", "garbage"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("kept = %v, want %v", got, want)
	}
}

func TestPerFeedOverride(t *testing.T) {
	n := NewNormalizer(
		Freshness{Enabled: true, DefaultMaxAgeDays: 1},
		[]Override{
			{FeedID: "weekly", MaxAgeDays: 7},
			{FeedID: "broken", MaxAgeDays: 0},
			{FeedID: "negative", MaxAgeDays: -2},
		},
		testCodec(),
	)

	if n.MaxAgeDays("weekly") != 7 || n.MaxAgeDays("broken") != 1 || n.MaxAgeDays("negative") != 1 || n.MaxAgeDays("other") != 1 {
		t.Fatalf("unexpected max ages")
	}

	old := news.RSSItem{Title: "old", PublishedAt: published(5 * 24 * time.Hour)}
	if !n.Keep("weekly", old) {
		t.Fatalf("weekly override should keep a 5-day-old article")
	}
	if n.Keep("broken", old) || n.Keep("other", old) {
		t.Fatalf("non-positive override should fall back to the 1-day default")
	}
}

func TestFreshnessDisabledOrZeroDefault(t *testing.T) {
	old := news.RSSItem{Title: "old", PublishedAt: published(365 * 24 * time.Hour)}

	disabled := NewNormalizer(Freshness{Enabled: false, DefaultMaxAgeDays: 1}, nil, testCodec())
	if !disabled.Keep("f", old) {
		t.Fatalf("disabled filter should keep everything")
	}
	zero := NewNormalizer(Freshness{Enabled: true, DefaultMaxAgeDays: 0}, nil, testCodec())
	if !zero.Keep("f", old) {
		t.Fatalf("zero max age should disable filtering")
	}
	if zero.FlattenData(nil) != nil {
		t.Fatalf("nil data should flatten to nil")
	}
}

type fakeDetector struct {
	items map[string][]news.RSSItem
	err   error
	calls int
}

func (f *fakeDetector) DetectNewFeedItems(_ context.Context, _ *news.RSSData) (map[string][]news.RSSItem, error) {
	f.calls++
	return f.items, f.err
}

func TestDetectNewURLs(t *testing.T) {
	d := &fakeDetector{items: map[string][]news.RSSItem{
		"a": {{Title: "1", URL: "https://a/1"}, {Title: "2", URL: ""}},
		"b": {{Title: "3", URL: "https://b/3"}},
	}}
	items, urls, err := DetectNewURLs(context.Background(), d, &news.RSSData{})
	if err != nil {
		t.Fatalf("DetectNewURLs error: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("items = %v", items)
	}
	if len(urls) != 2 || !urls.Has("https://a/1") || !urls.Has("https://b/3") || urls.Has("") {
		t.Fatalf("urls = %v", urls)
	}
}

func TestDetectNewURLsAbsentSnapshot(t *testing.T) {
	d := &fakeDetector{}
	items, urls, err := DetectNewURLs(context.Background(), d, nil)
	if err != nil || len(items) != 0 || len(urls) != 0 {
		t.Fatalf("nil snapshot should mean no new items: %v %v %v", items, urls, err)
	}
	if d.calls != 0 {
		t.Fatalf("store should not be asked without a snapshot")
	}
}

func TestDetectNewURLsWrapsError(t *testing.T) {
	boom := errors.New("boom")
	_, urls, err := DetectNewURLs(context.Background(), &fakeDetector{err: boom}, &news.RSSData{})
	if !errors.Is(err, boom) || len(urls) != 0 {
		t.Fatalf("err = %v, urls = %v", err, urls)
	}
}
