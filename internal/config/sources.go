package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/LJTian/TrendRadar/internal/rssfeed"
)

const defaultMaxAgeDays = 3

// Sources feeds.yaml 的内容：热榜平台与 RSS 订阅
type Sources struct {
	Platforms []Platform `yaml:"platforms"`
	RSS       RSSConfig  `yaml:"rss"`
}

type Platform struct {
	ID      string `yaml:"id"`
	Name    string `yaml:"name"`
	BaseURL string `yaml:"base_url"`
}

type RSSConfig struct {
	Freshness FreshnessConfig `yaml:"freshness_filter"`
	Feeds     []Feed          `yaml:"feeds"`
}

type FreshnessConfig struct {
	// Enabled 未配置时默认开启
	Enabled    *bool `yaml:"enabled"`
	MaxAgeDays *int  `yaml:"max_age_days"`
}

type Feed struct {
	ID         string  `yaml:"id"`
	Name       string  `yaml:"name"`
	URL        string  `yaml:"url"`
	MaxAgeDays AgeDays `yaml:"max_age_days"`
}

// AgeDays 接受整数或数字字符串；格式不对时视为未设置，不让整个文件加载失败
type AgeDays struct {
	Days int
	Set  bool
}

func (a *AgeDays) UnmarshalYAML(value *yaml.Node) error {
	*a = AgeDays{}
	if value.Kind != yaml.ScalarNode {
		return nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(value.Value))
	if err != nil {
		return nil
	}
	*a = AgeDays{Days: n, Set: true}
	return nil
}

// DefaultSources 没有配置文件时使用内置的热榜平台
func DefaultSources() Sources {
	return Sources{
		Platforms: []Platform{
			{ID: "baidu", Name: "百度热搜", BaseURL: "https://top.baidu.com/board?tab=realtime"},
			{ID: "github", Name: "GitHub Trending", BaseURL: "https://github.com/trending"},
			{ID: "hackernews", Name: "Hacker News", BaseURL: "https://news.ycombinator.com"},
			{ID: "x", Name: "X 热搜", BaseURL: "https://trends24.in/"},
		},
	}
}

// LoadSources 读取 YAML 配置，支持 ${ENV} 展开
func LoadSources(path string) (Sources, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Sources{}, fmt.Errorf("read sources file: %w", err)
	}
	return ParseSources([]byte(os.ExpandEnv(string(raw))))
}

// ParseSources 解析 YAML 内容；未列出平台时使用内置平台
func ParseSources(raw []byte) (Sources, error) {
	var src Sources
	if err := yaml.Unmarshal(raw, &src); err != nil {
		return Sources{}, fmt.Errorf("parse sources yaml: %w", err)
	}
	if len(src.Platforms) == 0 {
		src.Platforms = DefaultSources().Platforms
	}
	return src, nil
}

// FreshnessSettings 转成 rssfeed 使用的新鲜度配置
func (c RSSConfig) FreshnessSettings() rssfeed.Freshness {
	f := rssfeed.Freshness{Enabled: true, DefaultMaxAgeDays: defaultMaxAgeDays}
	if c.Freshness.Enabled != nil {
		f.Enabled = *c.Freshness.Enabled
	}
	if c.Freshness.MaxAgeDays != nil {
		f.DefaultMaxAgeDays = *c.Freshness.MaxAgeDays
	}
	return f
}

// Overrides 每个 feed 的最大天数覆盖，只包含有效配置
func (c RSSConfig) Overrides() []rssfeed.Override {
	var out []rssfeed.Override
	for _, f := range c.Feeds {
		if f.ID == "" || !f.MaxAgeDays.Set {
			continue
		}
		out = append(out, rssfeed.Override{FeedID: f.ID, MaxAgeDays: f.MaxAgeDays.Days})
	}
	return out
}

// PlatformIDs 配置中的平台 id
func (s Sources) PlatformIDs() []string {
	ids := make([]string, 0, len(s.Platforms))
	for _, p := range s.Platforms {
		ids = append(ids, p.ID)
	}
	return ids
}

// FeedNames feed id -> 展示名
func (c RSSConfig) FeedNames() map[string]string {
	m := make(map[string]string, len(c.Feeds))
	for _, f := range c.Feeds {
		name := f.Name
		if name == "" {
			name = f.ID
		}
		m[f.ID] = name
	}
	return m
}

// FeedURLs feed id -> 订阅地址
func (c RSSConfig) FeedURLs() map[string]string {
	m := make(map[string]string, len(c.Feeds))
	for _, f := range c.Feeds {
		m[f.ID] = f.URL
	}
	return m
}
