package processor

import (
	"strings"

	"github.com/LJTian/TrendRadar/internal/collector"
	"github.com/LJTian/TrendRadar/internal/news"
)

const maxTitleRunes = 512

// SimpleProcessor 把采集器的原始结果清洗成某次抓取的 NewsItem 列表
type SimpleProcessor struct{}

func NewSimpleProcessor() *SimpleProcessor {
	return &SimpleProcessor{}
}

// Process 清洗一次抓取：标题去空白并规范为合法 UTF-8，丢弃空标题，
// 同一标题只保留一条（取最好的排名），顺序为首次出现的顺序。
// 缺少排名的条目按其在列表中的位置补上。
func (p *SimpleProcessor) Process(entries []collector.Entry, crawlTime string) []news.NewsItem {
	out := make([]news.NewsItem, 0, len(entries))
	index := make(map[string]int, len(entries))

	for i, en := range entries {
		title := cleanTitle(en.Title)
		if title == "" {
			continue
		}
		rank := en.Rank
		if rank <= 0 {
			rank = i + 1
		}

		if at, ok := index[title]; ok {
			if rank < out[at].Rank {
				out[at].Rank = rank
			}
			if out[at].URL == "" {
				out[at].URL = strings.TrimSpace(en.URL)
			}
			if out[at].MobileURL == "" {
				out[at].MobileURL = strings.TrimSpace(en.MobileURL)
			}
			continue
		}

		it := news.Raw(title, rank, strings.TrimSpace(en.URL), strings.TrimSpace(en.MobileURL), crawlTime)
		if len(en.Extra) > 0 {
			it.Extra = en.Extra
		}
		index[title] = len(out)
		out = append(out, it)
	}
	return out
}

// cleanTitle 合并空白、替换非法字节并按 rune 截断
func cleanTitle(s string) string {
	s = strings.ToValidUTF8(s, "")
	s = strings.Join(strings.Fields(s), " ")
	return truncateRunes(s, maxTitleRunes)
}

// truncateRunes 按 rune 数截断，超出时以省略号结尾
func truncateRunes(s string, limit int) string {
	rs := []rune(s)
	if limit <= 0 || len(rs) <= limit {
		return s
	}
	return string(rs[:limit]) + "…"
}
