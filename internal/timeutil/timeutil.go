// Package timeutil 负责日期/时刻字符串的解析与时区换算。
// 所有“今天”“现在”都在配置的时区下计算，不依赖进程本地时区。
package timeutil

import (
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/araddon/dateparse"
)

const (
	DateLayout  = "2006-01-02"
	crawlLayout = "15-04"
)

// Codec 绑定一个时区，提供日期解析、时刻换算与当前时间
type Codec struct {
	loc   *time.Location
	clock func() time.Time
}

// NewCodec 按时区标识创建 Codec；无法识别的时区返回 UTC 与非 nil 的 error，调用方决定是否告警
func NewCodec(tz string) (*Codec, error) {
	loc, err := LoadLocation(tz)
	return &Codec{loc: loc, clock: time.Now}, err
}

// MustCodec 测试与已校验过的时区使用
func MustCodec(tz string) *Codec {
	c, err := NewCodec(tz)
	if err != nil {
		panic(err)
	}
	return c
}

// LoadLocation 加载时区；Asia/Shanghai 加载失败时退回固定东八区，其余退回 UTC
func LoadLocation(tz string) (*time.Location, error) {
	tz = strings.TrimSpace(tz)
	if tz == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(tz)
	if err == nil {
		return loc, nil
	}
	if tz == "Asia/Shanghai" {
		return time.FixedZone("CST", 8*3600), nil
	}
	return time.UTC, err
}

// WithClock 替换时钟来源，返回新的 Codec
func (c *Codec) WithClock(clock func() time.Time) *Codec {
	cp := *c
	cp.clock = clock
	return &cp
}

// Location 当前时区
func (c *Codec) Location() *time.Location {
	return c.loc
}

// Now 当前时区下的现在时刻
func (c *Codec) Now() time.Time {
	return c.clock().In(c.loc)
}

// Today 当前时区下的日期 YYYY-MM-DD
func (c *Codec) Today() string {
	return c.Now().Format(DateLayout)
}

// ParseDate 校验并规范化日期，支持 2006-01-02 / 2006/01/02 / 20060102
func ParseDate(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	for _, layout := range []string{DateLayout, "2006/01/02", "20060102"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(DateLayout), true
		}
	}
	return "", false
}

// ResolveDate 给定日期合法时原样（规范化后）返回，否则返回时区内的今天
func (c *Codec) ResolveDate(date string) string {
	if d, ok := ParseDate(date); ok {
		return d
	}
	return c.Today()
}

// ToInstant 将 日期 + HH-MM/HH:MM 转成带时区的时刻，无法解析时返回 false
func (c *Codec) ToInstant(date, clock string) (time.Time, bool) {
	t := strings.TrimSpace(clock)
	if t == "" {
		return time.Time{}, false
	}

	var layout string
	switch {
	case strings.Contains(t, "-"):
		layout = DateLayout + " 15-04"
	case strings.Contains(t, ":"):
		layout = DateLayout + " 15:04"
	default:
		return time.Time{}, false
	}

	v, err := time.ParseInLocation(layout, strings.TrimSpace(date)+" "+t, c.loc)
	if err != nil {
		return time.Time{}, false
	}
	return v, true
}

// CrawlTime 以 HH-MM 形式返回 t 在当前时区的时刻，用作快照的 crawl_time
func (c *Codec) CrawlTime(t time.Time) string {
	return t.In(c.loc).Format(crawlLayout)
}

// CompareClock 比较两个抓取时刻（HH-MM / HH:MM / HHMM）；
// 任一无法按数字解析时退回字符串比较
func CompareClock(a, b string) int {
	x, okA := clockMinutes(a)
	y, okB := clockMinutes(b)
	if !okA || !okB {
		return strings.Compare(a, b)
	}
	switch {
	case x < y:
		return -1
	case x > y:
		return 1
	}
	return 0
}

func clockMinutes(s string) (int, bool) {
	s = strings.TrimSpace(s)
	var h, m string
	if i := strings.IndexAny(s, "-:"); i >= 0 {
		h, m = s[:i], s[i+1:]
		// 只取到分钟，忽略可能的秒
		if j := strings.IndexAny(m, "-:"); j >= 0 {
			m = m[:j]
		}
	} else {
		if len(s) != 3 && len(s) != 4 {
			return 0, false
		}
		h, m = s[:len(s)-2], s[len(s)-2:]
	}
	hh, err := strconv.Atoi(h)
	if err != nil || hh < 0 || hh > 23 {
		return 0, false
	}
	mm, err := strconv.Atoi(m)
	if err != nil || mm < 0 || mm > 59 {
		return 0, false
	}
	return hh*60 + mm, true
}

// ParsePublished 解析 RSS 发布时间；不带时区的时间按当前时区理解
func (c *Codec) ParsePublished(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, true
	}
	t, err := dateparse.ParseIn(s, c.loc)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// WithinDays 发布时间距现在是否不超过 days 天（含边界：恰好 days*24h 视为在窗口内）。
// 未来时间视为在窗口内。
func (c *Codec) WithinDays(published time.Time, days int) bool {
	return c.Now().Sub(published) <= time.Duration(days)*24*time.Hour
}
