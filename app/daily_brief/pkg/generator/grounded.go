package generator

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iWorld-y/daily_brief/app/daily_brief/pkg/model"
	"github.com/iWorld-y/daily_brief/app/daily_brief/pkg/search"
)

// DefaultSearchQuery 未配置查询词时使用
const DefaultSearchQuery = "日本 経済 ビジネス ニュース"

const referenceHeader = "\n\n【検索結果】\n以下は検索で得た参考資料です。これに含まれない出来事は書かないでください。\n\n"

// Grounded 给没有原生搜索工具的生成器补充检索结果
// 检索失败不影响生成，只记录日志。
type Grounded struct {
	Next       Generator
	Searcher   search.Searcher
	Fetcher    search.Fetcher
	Query      string
	MaxResults int
	Log        logrus.FieldLogger
}

// Generate 实现 Generator
func (g *Grounded) Generate(ctx context.Context, prompt string, opts Options) (string, error) {
	if !opts.EnableSearch || g.Searcher == nil {
		return g.Next.Generate(ctx, prompt, opts)
	}

	query := g.Query
	if query == "" {
		query = DefaultSearchQuery
	}
	req := &search.Request{
		Query:      query,
		Topic:      "news",
		MaxResults: g.MaxResults,
		Language:   "ja",
	}
	if d, err := time.Parse(model.DateLayout, opts.Date); err == nil {
		// 当天新闻少时允许回溯 48 小时
		req.StartDate = d.AddDate(0, 0, -2).Format(model.DateLayout)
		req.EndDate = opts.Date
	}

	refs, err := search.Collect(ctx, g.Searcher, g.Fetcher, req)
	switch {
	case err != nil:
		g.logger().Warnf("检索失败，不带参考资料继续生成: %v", err)
	case len(refs) == 0:
		g.logger().Warn("检索没有得到有效参考资料")
	default:
		g.logger().WithField("references", len(refs)).Info("已附加检索结果")
		prompt += referenceHeader + search.Render(refs)
	}

	opts.EnableSearch = false
	return g.Next.Generate(ctx, prompt, opts)
}

func (g *Grounded) logger() logrus.FieldLogger {
	if g.Log != nil {
		return g.Log
	}
	return logrus.StandardLogger()
}
