package generator

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iWorld-y/daily_brief/app/daily_brief/pkg/config"
	"github.com/iWorld-y/daily_brief/app/daily_brief/pkg/search"
	"github.com/iWorld-y/daily_brief/app/daily_brief/pkg/search/factory"
)

// 各 provider 默认读取的 API key 环境变量
var defaultKeyEnv = map[string]string{
	"gemini":            "GEMINI_API_KEY",
	"openai":            "OPENAI_API_KEY",
	"openai_compatible": "OPENAI_API_KEY",
	"anthropic":         "ANTHROPIC_API_KEY",
}

// New 根据配置组装生成器：后端 → 检索增强 → 限流 → 429 重试
func New(ctx context.Context, cfg *config.Config, log logrus.FieldLogger) (Generator, error) {
	backend, err := newBackend(ctx, cfg.LLM)
	if err != nil {
		return nil, err
	}

	var g Generator = backend
	if cfg.LLM.Provider != "gemini" && cfg.LLM.Provider != "static" {
		searcher, err := factory.NewSearcher(cfg.Search)
		if err != nil {
			return nil, fmt.Errorf("搜索客户端初始化失败: %w", err)
		}
		if searcher != nil {
			grounded := &Grounded{
				Next:       g,
				Searcher:   searcher,
				Query:      cfg.Search.Query,
				MaxResults: cfg.Search.MaxResults,
				Log:        log,
			}
			if cfg.Search.FetchFullText {
				grounded.Fetcher = search.ReadabilityFetcher{Timeout: 30 * time.Second}
			}
			g = grounded
		}
	}

	g = &Limited{Next: g, Limiter: NewLimiter(cfg.Concurrency.QPS, cfg.Concurrency.RPM)}
	if cfg.LLM.MaxRetries > 0 {
		g = &Retry{Next: g, MaxRetries: cfg.LLM.MaxRetries, Log: log}
	}
	return g, nil
}

func newBackend(ctx context.Context, c config.LLMConfig) (Generator, error) {
	apiKey := c.ResolveAPIKey()
	if apiKey == "" {
		if env, ok := defaultKeyEnv[c.Provider]; ok {
			apiKey = os.Getenv(env)
		}
	}

	switch c.Provider {
	case "gemini":
		return NewGemini(ctx, apiKey, c.Model, c.BaseURL)
	case "openai":
		return NewOpenAI(apiKey, c.Model, c.BaseURL)
	case "openai_compatible":
		return NewEino(ctx, c.BaseURL, apiKey, c.Model, c.Timeout())
	case "anthropic":
		return NewAnthropic(apiKey, c.Model, c.BaseURL)
	case "static":
		if c.StaticFile == "" {
			return nil, fmt.Errorf("provider=static 需要 llm.static_file")
		}
		return Static{File: c.StaticFile}, nil
	default:
		return nil, fmt.Errorf("unknown llm provider: %s", c.Provider)
	}
}
