package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/LJTian/TrendRadar/internal/ids"
	"github.com/LJTian/TrendRadar/internal/logging"
	"github.com/LJTian/TrendRadar/internal/news"
	"github.com/LJTian/TrendRadar/internal/service"
	"github.com/LJTian/TrendRadar/internal/storage"
	"github.com/LJTian/TrendRadar/internal/timeutil"
)

type stubStore struct {
	all    *news.NewsData
	latest *news.NewsData
	err    error
}

func (s *stubStore) GetDayAggregate(ctx context.Context, date string) (*news.NewsData, error) {
	return s.all, s.err
}

func (s *stubStore) GetLatestSnapshot(ctx context.Context, date string) (*news.NewsData, error) {
	return s.latest, s.err
}

func (s *stubStore) GetLatestFeedSnapshot(ctx context.Context, date string) (*news.RSSData, error) {
	return nil, s.err
}

func (s *stubStore) GetDayFeedAggregate(ctx context.Context, date string) (*news.RSSData, error) {
	return nil, s.err
}

func (s *stubStore) DetectNewFeedItems(ctx context.Context, data *news.RSSData) (map[string][]news.RSSItem, error) {
	return nil, s.err
}

func (s *stubStore) ListDates(ctx context.Context, limit int) ([]string, error) {
	if s.err != nil {
		return nil, s.err
	}
	return []string{"2024-01-01"}, nil
}

func newTestEngine(store service.Store, user, pass string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	at := time.Date(2024, 1, 1, 1, 30, 0, 0, time.UTC)
	codec := timeutil.MustCodec("Asia/Shanghai").WithClock(func() time.Time { return at })
	svc := service.NewNewsService(store, codec, nil, nil, logging.Nop())
	return NewEngine(NewServer(svc, logging.Nop()), logging.Nop(), user, pass)
}

func fixture() *stubStore {
	first := news.Raw("first", 1, "https://a/1", "", "08-00")
	second := news.Raw("second", 2, "https://a/2", "", "09-00")
	return &stubStore{
		all: &news.NewsData{
			Date:      "2024-01-01",
			CrawlTime: "09-00",
			IDToName:  map[string]string{"zhihu": "知乎"},
			Items:     map[string][]news.NewsItem{"zhihu": {first, second}},
		},
		latest: &news.NewsData{
			Date:      "2024-01-01",
			CrawlTime: "09-00",
			Items:     map[string][]news.NewsItem{"zhihu": {second}},
		},
	}
}

func do(r http.Handler, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

type envelope struct {
	Success   bool            `json:"success"`
	RequestID string          `json:"request_id"`
	Data      json.RawMessage `json:"data"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder, data any) envelope {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode envelope: %v (%s)", err, w.Body.String())
	}
	if data != nil {
		if err := json.Unmarshal(env.Data, data); err != nil {
			t.Fatalf("decode data: %v", err)
		}
	}
	return env
}

func TestHealth(t *testing.T) {
	r := newTestEngine(fixture(), "u", "p")
	w := do(r, http.MethodGet, "/health", "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"ok"`) {
		t.Fatalf("health = %d %s", w.Code, w.Body.String())
	}
}

func TestListNews(t *testing.T) {
	r := newTestEngine(fixture(), "", "")
	w := do(r, http.MethodGet, "/api/v1/news?mode=daily&platforms=zhihu&include_rss=false&limit=10", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", w.Code, w.Body.String())
	}
	var res service.NewsResult
	env := decode(t, w, &res)
	if !env.Success || !strings.HasPrefix(env.RequestID, "req_") {
		t.Fatalf("envelope = %+v", env)
	}
	if len(res.Platforms) != 1 || len(res.Platforms[0].NewsList) != 2 {
		t.Fatalf("platforms = %+v", res.Platforms)
	}
	if res.Platforms[0].NewsList[1].Title != "second" || !res.Platforms[0].NewsList[1].IsNew {
		t.Fatalf("second should be new: %+v", res.Platforms[0].NewsList[1])
	}
}

func TestQueryNewsJSON(t *testing.T) {
	r := newTestEngine(fixture(), "", "")
	w := do(r, http.MethodPost, "/api/v1/news", `{"mode":"incremental","include_rss":false}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", w.Code, w.Body.String())
	}
	var res service.NewsResult
	decode(t, w, &res)
	if res.Summary.TotalNews != 1 || res.Platforms[0].NewsList[0].Title != "second" {
		t.Fatalf("res = %+v", res)
	}
}

func TestListNewsBadRequest(t *testing.T) {
	r := newTestEngine(fixture(), "", "")
	for _, target := range []string{
		"/api/v1/news?limit=1000",
		"/api/v1/news?mode=weekly",
		"/api/v1/news?date=not-a-date",
		"/api/v1/news?limit=abc",
	} {
		w := do(r, http.MethodGet, target, "")
		if w.Code != http.StatusBadRequest || !strings.Contains(w.Body.String(), "bad_request") {
			t.Errorf("%s: status = %d body = %s", target, w.Code, w.Body.String())
		}
	}
}

func TestLookup(t *testing.T) {
	r := newTestEngine(fixture(), "", "")
	id := ids.HotListItemID("zhihu", "first", "2024-01-01", "08-00")

	w := do(r, http.MethodPost, "/api/v1/news/lookup", `{"news_ids":["`+id+`","missing"]}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", w.Code, w.Body.String())
	}
	var res service.LookupResult
	decode(t, w, &res)
	if len(res.Items) != 1 || res.Items[0].Title != "first" || len(res.Missing) != 1 {
		t.Fatalf("res = %+v", res)
	}

	w = do(r, http.MethodPost, "/api/v1/news/lookup", `{"news_ids":[]}`)
	if w.Code != http.StatusBadRequest || !strings.Contains(w.Body.String(), "no_criteria") {
		t.Fatalf("empty ids: status = %d body = %s", w.Code, w.Body.String())
	}
}

func TestNewTitlesAndDates(t *testing.T) {
	r := newTestEngine(fixture(), "", "")

	w := do(r, http.MethodGet, "/api/v1/news/new?date=2024-01-01", "")
	var nt service.NewTitlesResult
	decode(t, w, &nt)
	if w.Code != http.StatusOK || nt.Total != 1 || nt.Platforms[0].Titles[0].Title != "second" {
		t.Fatalf("new titles = %d %+v", w.Code, nt)
	}

	w = do(r, http.MethodGet, "/api/v1/dates", "")
	var dates struct {
		Dates []string `json:"dates"`
	}
	decode(t, w, &dates)
	if w.Code != http.StatusOK || len(dates.Dates) != 1 {
		t.Fatalf("dates = %d %+v", w.Code, dates)
	}
}

func TestStoreErrors(t *testing.T) {
	st := fixture()
	st.err = storage.ErrNotConfigured
	r := newTestEngine(st, "", "")
	if w := do(r, http.MethodGet, "/api/v1/dates", ""); w.Code != http.StatusServiceUnavailable {
		t.Fatalf("not configured status = %d", w.Code)
	}

	st.err = context.DeadlineExceeded
	if w := do(r, http.MethodGet, "/api/v1/news", ""); w.Code != http.StatusInternalServerError || !strings.Contains(w.Body.String(), "internal_error") {
		t.Fatalf("internal error status = %d body = %s", w.Code, w.Body.String())
	}
}

func TestBasicAuth(t *testing.T) {
	r := newTestEngine(fixture(), "admin", "secret")

	w := do(r, http.MethodGet, "/api/v1/dates", "")
	if w.Code != http.StatusUnauthorized || w.Header().Get("WWW-Authenticate") == "" {
		t.Fatalf("unauthenticated status = %d", w.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/dates", nil)
	req.SetBasicAuth("admin", "secret")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("authenticated status = %d", w.Code)
	}
}
