package timeutil

import (
	"testing"
	"time"
)

func fixedCodec(t *testing.T, tz string, now time.Time) *Codec {
	t.Helper()
	c, err := NewCodec(tz)
	if err != nil {
		t.Fatalf("NewCodec(%q) error: %v", tz, err)
	}
	return c.WithClock(func() time.Time { return now })
}

func TestResolveDateUsesConfiguredZone(t *testing.T) {
	// UTC 2024-01-01 20:00 在东八区已经是 1 月 2 日
	now := time.Date(2024, 1, 1, 20, 0, 0, 0, time.UTC)
	c := fixedCodec(t, "Asia/Shanghai", now)

	if got := c.ResolveDate(""); got != "2024-01-02" {
		t.Fatalf("ResolveDate(\"\") = %q, want 2024-01-02", got)
	}
	if got := c.ResolveDate("2023-12-31"); got != "2023-12-31" {
		t.Fatalf("ResolveDate should pass through valid date, got %q", got)
	}
	if got := c.ResolveDate("20231231"); got != "2023-12-31" {
		t.Fatalf("ResolveDate should normalize compact date, got %q", got)
	}
	if got := c.ResolveDate("not-a-date"); got != "2024-01-02" {
		t.Fatalf("ResolveDate(invalid) = %q, want today", got)
	}

	utc := fixedCodec(t, "UTC", now)
	if got := utc.ResolveDate(""); got != "2024-01-01" {
		t.Fatalf("UTC ResolveDate(\"\") = %q, want 2024-01-01", got)
	}
}

func TestToInstantAcceptsDashAndColon(t *testing.T) {
	c := MustCodec("Asia/Shanghai")

	for _, clock := range []string{"08-30", "08:30", " 08-30 "} {
		got, ok := c.ToInstant("2024-01-01", clock)
		if !ok {
			t.Fatalf("ToInstant(%q) failed", clock)
		}
		if got.Hour() != 8 || got.Minute() != 30 {
			t.Fatalf("ToInstant(%q) = %v", clock, got)
		}
		if _, off := got.Zone(); off != 8*3600 {
			t.Fatalf("ToInstant(%q) offset = %d, want +8h", clock, off)
		}
		if want := "2024-01-01T08:30:00+08:00"; got.Format(time.RFC3339) != want {
			t.Fatalf("ToInstant(%q) = %s, want %s", clock, got.Format(time.RFC3339), want)
		}
	}
}

func TestToInstantSoftFails(t *testing.T) {
	c := MustCodec("UTC")
	cases := []struct{ date, clock string }{
		{"2024-01-01", ""},
		{"2024-01-01", "   "},
		{"2024-01-01", "0830"},
		{"2024-01-01", "25-00"},
		{"2024-01-01", "ab:cd"},
		{"bad-date", "08-30"},
	}
	for _, tc := range cases {
		if v, ok := c.ToInstant(tc.date, tc.clock); ok {
			t.Fatalf("ToInstant(%q, %q) = %v, want no instant", tc.date, tc.clock, v)
		}
	}
}

func TestCrawlTimeFormatsInZone(t *testing.T) {
	c := MustCodec("Asia/Shanghai")
	at := time.Date(2024, 1, 1, 0, 5, 0, 0, time.UTC)
	if got := c.CrawlTime(at); got != "08-05" {
		t.Fatalf("CrawlTime = %q, want 08-05", got)
	}
}

func TestCompareClock(t *testing.T) {
	cases := []struct {
		a, b string
		want int
	}{
		{"08-00", "09-00", -1},
		{"08:05", "08-05", 0},
		{"8-05", "08-04", 1},
		{"0930", "09-31", -1},
		{"23-59", "00-00", 1},
		{"xx", "yy", -1},
	}
	for _, tc := range cases {
		if got := CompareClock(tc.a, tc.b); got != tc.want {
			t.Fatalf("CompareClock(%q, %q) = %d, want %d", tc.a, tc.b, got, tc.want)
		}
	}
}

func TestNewCodecInvalidZoneFallsBackToUTC(t *testing.T) {
	c, err := NewCodec("Mars/Olympus")
	if err == nil {
		t.Fatalf("expected error for unknown zone")
	}
	if c.Location() != time.UTC {
		t.Fatalf("Location = %v, want UTC", c.Location())
	}
}

func TestParsePublished(t *testing.T) {
	c := MustCodec("Asia/Shanghai")

	got, ok := c.ParsePublished("2024-01-01T08:00:00Z")
	if !ok || !got.Equal(time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)) {
		t.Fatalf("ParsePublished RFC3339 = %v, %v", got, ok)
	}

	got, ok = c.ParsePublished("Mon, 01 Jan 2024 08:00:00 GMT")
	if !ok || !got.Equal(time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)) {
		t.Fatalf("ParsePublished RFC1123 = %v, %v", got, ok)
	}

	got, ok = c.ParsePublished("2024-01-01 08:00:00")
	if !ok || !got.Equal(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("naive time should be read in configured zone, got %v, %v", got, ok)
	}

	for _, bad := range []string{"", "   ", "yesterday-ish"} {
		if _, ok := c.ParsePublished(bad); ok {
			t.Fatalf("ParsePublished(%q) should fail", bad)
		}
	}
}

func TestWithinDaysBoundaryIsInclusive(t *testing.T) {
	now := time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC)
	c := fixedCodec(t, "UTC", now)

	edge := now.Add(-3 * 24 * time.Hour)
	if !c.WithinDays(edge, 3) {
		t.Fatalf("article exactly 3 days old should be within window")
	}
	if c.WithinDays(edge.Add(-time.Second), 3) {
		t.Fatalf("article 3 days + 1s old should be outside window")
	}
	if !c.WithinDays(now.Add(time.Hour), 3) {
		t.Fatalf("future article should be within window")
	}
}
