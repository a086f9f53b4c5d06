package factory

import (
	"fmt"
	"os"

	"github.com/iWorld-y/daily_brief/app/daily_brief/pkg/config"
	"github.com/iWorld-y/daily_brief/app/daily_brief/pkg/search"
	"github.com/iWorld-y/daily_brief/app/daily_brief/pkg/search/searxng"
	"github.com/iWorld-y/daily_brief/app/daily_brief/pkg/search/tavily"
)

// NewSearcher 根据配置创建搜索实例，未配置 provider 时返回 nil
func NewSearcher(cfg config.SearchConfig) (search.Searcher, error) {
	switch cfg.Provider {
	case "":
		return nil, nil

	case "tavily":
		apiKey := cfg.Tavily.APIKey
		if apiKey == "" && cfg.Tavily.APIKeyEnv != "" {
			apiKey = os.Getenv(cfg.Tavily.APIKeyEnv)
		}
		if apiKey == "" {
			apiKey = os.Getenv("TAVILY_API_KEY")
		}
		if apiKey == "" {
			return nil, fmt.Errorf("tavily api key is missing")
		}
		return tavily.NewClient(apiKey), nil

	case "searxng":
		if cfg.SearXNG.BaseURL == "" {
			return nil, fmt.Errorf("searxng base url is missing")
		}
		return searxng.NewClient(cfg.SearXNG.BaseURL, cfg.SearXNG.Timeout, cfg.SearXNG.Language), nil

	default:
		return nil, fmt.Errorf("unknown search provider: %s", cfg.Provider)
	}
}
