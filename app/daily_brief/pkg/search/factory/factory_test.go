package factory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iWorld-y/daily_brief/app/daily_brief/pkg/config"
	"github.com/iWorld-y/daily_brief/app/daily_brief/pkg/search/searxng"
	"github.com/iWorld-y/daily_brief/app/daily_brief/pkg/search/tavily"
)

func TestNewSearcher(t *testing.T) {
	s, err := NewSearcher(config.SearchConfig{})
	require.NoError(t, err)
	assert.Nil(t, s)

	t.Setenv("DB_TAVILY", "tvly-env")
	s, err = NewSearcher(config.SearchConfig{Provider: "tavily", Tavily: config.TavilyConfig{APIKeyEnv: "DB_TAVILY"}})
	require.NoError(t, err)
	assert.IsType(t, &tavily.Client{}, s)

	s, err = NewSearcher(config.SearchConfig{Provider: "searxng", SearXNG: config.SearXNGConfig{BaseURL: "http://localhost:8888"}})
	require.NoError(t, err)
	assert.IsType(t, &searxng.Client{}, s)
}

func TestNewSearcher_Errors(t *testing.T) {
	t.Setenv("TAVILY_API_KEY", "")

	_, err := NewSearcher(config.SearchConfig{Provider: "tavily"})
	assert.Error(t, err)

	_, err = NewSearcher(config.SearchConfig{Provider: "searxng"})
	assert.Error(t, err)

	_, err = NewSearcher(config.SearchConfig{Provider: "bing"})
	assert.Error(t, err)
}
