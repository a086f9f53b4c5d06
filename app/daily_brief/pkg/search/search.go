package search

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-shiori/go-readability"
)

// Searcher 定义通用的搜索接口
type Searcher interface {
	Search(ctx context.Context, req *Request) (*Response, error)
}

// Request 通用搜索请求
type Request struct {
	Query             string
	Topic             string // "news" or "general"
	MaxResults        int
	IncludeRawContent bool
	StartDate         string // Format: YYYY-MM-DD
	EndDate           string // Format: YYYY-MM-DD
	Language          string
}

// Response 通用搜索响应
type Response struct {
	Results []Result
}

// Result 单条搜索结果
type Result struct {
	Title         string
	URL           string
	Content       string
	RawContent    string
	Score         float64
	PublishedDate string
}

// Fetcher 抓取网页正文
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// ReadabilityFetcher 用 go-readability 提取正文
type ReadabilityFetcher struct {
	Timeout time.Duration
}

// Fetch 实现 Fetcher
func (f ReadabilityFetcher) Fetch(ctx context.Context, url string) (string, error) {
	timeout := f.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if dl, ok := ctx.Deadline(); ok {
		if left := time.Until(dl); left < timeout {
			timeout = left
		}
	}
	if timeout <= 0 {
		return "", ctx.Err()
	}
	article, err := readability.FromURL(url, timeout)
	if err != nil {
		return "", fmt.Errorf("readability %s: %w", url, err)
	}
	return article.TextContent, nil
}

const (
	shortContent  = 500
	maxContent    = 5000
	minContent    = 100
	maxReferences = 6
)

// Collect 搜索并整理出可用的参考资料
// 摘要过短时尝试抓全文，过长时截断，太短的结果直接丢弃。
func Collect(ctx context.Context, s Searcher, f Fetcher, req *Request) ([]Result, error) {
	resp, err := s.Search(ctx, req)
	if err != nil {
		return nil, err
	}

	var refs []Result
	for _, item := range resp.Results {
		content := item.Content
		if item.RawContent != "" && len(item.RawContent) > len(content) {
			content = item.RawContent
		}
		if f != nil && len(content) < shortContent {
			fetched, err := f.Fetch(ctx, item.URL)
			if err == nil && len(fetched) > len(content) {
				content = fetched
			}
		}
		content = truncate(content, maxContent)
		if len(content) <= minContent {
			continue
		}
		item.Content = content
		refs = append(refs, item)
		if len(refs) >= maxReferences {
			break
		}
	}
	return refs, nil
}

// Render 把参考资料拼成可以放进提示词的文本
func Render(refs []Result) string {
	var sb strings.Builder
	for i, r := range refs {
		fmt.Fprintf(&sb, "[%d] %s\nURL: %s\n", i+1, r.Title, r.URL)
		if r.PublishedDate != "" {
			fmt.Fprintf(&sb, "Published: %s\n", r.PublishedDate)
		}
		fmt.Fprintf(&sb, "%s\n\n", r.Content)
	}
	return strings.TrimRight(sb.String(), "\n")
}

// truncate 按字节截断，但不切断 UTF-8 字符
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8Start(s[n]) {
		n--
	}
	return s[:n]
}

func utf8Start(b byte) bool {
	return b&0xC0 != 0x80
}
