// Package ids 为热榜条目与 RSS 文章生成短小、稳定、可读的 id。
//
// id 由来源 id、时间戳和 md5 的前 6 位十六进制组成。6 位十六进制只有 24 bit，
// 同一来源同一天的条目数到几百上千量级时碰撞概率已不可忽略；
// 这里追求的是便于人工排查，不保证唯一。
package ids

import (
	"crypto/md5"
	"encoding/hex"
	"strings"
	"unicode/utf8"
)

const hashPrefixLen = 6

// NormalizeTimestamp 生成 YYYYMMDDHHMMSS。
// 没有时刻时为 000000；HHMM 补 00 秒；HHMMSS 原样使用；
// 其余长度尽力填充/截断到 4 位再补秒，不做合法性校验。
func NormalizeTimestamp(date, clock string) string {
	d := strings.ReplaceAll(date, "-", "")
	if clock == "" {
		return d + "000000"
	}
	t := strings.TrimSpace(clock)
	t = strings.ReplaceAll(t, ":", "")
	t = strings.ReplaceAll(t, "-", "")
	switch utf8.RuneCountInString(t) {
	case 4:
		return d + t + "00"
	case 6:
		return d + t
	}
	return d + prefixRunes(t+"0000", 4) + "00"
}

// HotListItemID 热榜条目 id：{sourceID}_{timestamp}_{hash}
func HotListItemID(sourceID, title, date, lastSeen string) string {
	ts := NormalizeTimestamp(date, lastSeen)
	return sourceID + "_" + ts + "_" + shortHash(sourceID+"_"+title)
}

// RSSArticleID RSS 文章 id：{feedID}_{safePublished}_{hash}
func RSSArticleID(feedID, title, publishedAt string) string {
	h := shortHash(feedID + "_" + title + "_" + publishedAt)
	return feedID + "_" + safePublished(publishedAt) + "_" + h
}

func safePublished(publishedAt string) string {
	s := strings.NewReplacer(":", "", "-", "", "T", "", "Z", "").Replace(publishedAt)
	if s == "" {
		return "unknown"
	}
	return prefixRunes(s, 14)
}

// prefixRunes 按字符而不是字节截取前 n 个，保证结果仍是合法 UTF-8
func prefixRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func shortHash(s string) string {
	sum := md5.Sum([]byte(s))
	return hex.EncodeToString(sum[:])[:hashPrefixLen]
}
