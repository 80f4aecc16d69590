package service

// Envelope 所有接口的统一返回结构
type Envelope struct {
	Success   bool   `json:"success"`
	Timestamp string `json:"timestamp"`
	RequestID string `json:"request_id"`
	Data      any    `json:"data"`
}

type NewsItemOut struct {
	ID             string   `json:"id"`
	Title          string   `json:"title"`
	URL            string   `json:"url"`
	MobileURL      string   `json:"mobile_url"`
	Rank           int      `json:"rank"`
	FirstSeen      *string  `json:"first_seen"`
	LastSeen       *string  `json:"last_seen"`
	KeywordMatched []string `json:"keyword_matched"`
	IsNew          bool     `json:"is_new"`
	AppearCount    int      `json:"appear_count"`
	RankHistory    []int    `json:"rank_history"`
}

type PlatformNews struct {
	PlatformID   string        `json:"platform_id"`
	PlatformName string        `json:"platform_name"`
	TotalCount   int           `json:"total_count"`
	MatchedCount int           `json:"matched_count"`
	NewsList     []NewsItemOut `json:"news_list"`
}

type RSSArticleOut struct {
	ID             string   `json:"id"`
	Title          string   `json:"title"`
	URL            string   `json:"url"`
	PublishedAt    *string  `json:"published_at"`
	Author         string   `json:"author"`
	Summary        string   `json:"summary"`
	KeywordMatched []string `json:"keyword_matched"`
	IsFresh        bool     `json:"is_fresh"`
}

type RSSFeedOut struct {
	FeedID       string          `json:"feed_id"`
	FeedName     string          `json:"feed_name"`
	FeedURL      string          `json:"feed_url"`
	TotalCount   int             `json:"total_count"`
	MatchedCount int             `json:"matched_count"`
	Articles     []RSSArticleOut `json:"articles"`
}

type DateRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

type Summary struct {
	TotalPlatforms  int       `json:"total_platforms"`
	ActivePlatforms int       `json:"active_platforms"`
	TotalNews       int       `json:"total_news"`
	MatchedNews     int       `json:"matched_news"`
	NewNews         int       `json:"new_news"`
	RSSArticles     int       `json:"rss_articles"`
	KeywordsFound   []string  `json:"keywords_found"`
	FailedPlatforms []string  `json:"failed_platforms"`
	DateRange       DateRange `json:"date_range"`
}

// NewsResult GetNews 的 data 部分；平台与 feed 按数据源顺序排列
type NewsResult struct {
	Date      string         `json:"date"`
	Mode      Mode           `json:"mode"`
	CrawlTime string         `json:"crawl_time"`
	Platforms []PlatformNews `json:"platforms"`
	RSSFeeds  []RSSFeedOut   `json:"rss_feeds"`
	Summary   Summary        `json:"summary"`
}

// LookupItem 反查命中的条目
type LookupItem struct {
	PlatformID   string `json:"platform_id"`
	PlatformName string `json:"platform_name"`
	NewsItemOut
}

type LookupResult struct {
	Date    string       `json:"date"`
	Items   []LookupItem `json:"items"`
	Missing []string     `json:"missing"`
}

type NewTitleOut struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Rank      int    `json:"rank"`
	URL       string `json:"url"`
	MobileURL string `json:"mobile_url"`
}

type PlatformNewTitles struct {
	PlatformID   string        `json:"platform_id"`
	PlatformName string        `json:"platform_name"`
	Titles       []NewTitleOut `json:"titles"`
}

type NewTitlesResult struct {
	Date      string              `json:"date"`
	Total     int                 `json:"total"`
	Platforms []PlatformNewTitles `json:"platforms"`
}
