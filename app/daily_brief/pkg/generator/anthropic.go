package generator

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const (
	// DefaultAnthropicModel anthropic 默认模型
	DefaultAnthropicModel = "claude-sonnet-4-5"

	anthropicMaxTokens = 8192
)

// Anthropic 基于 anthropic-sdk-go 的 messages 接口
type Anthropic struct {
	client anthropic.Client
	model  string
}

// NewAnthropic 创建 Anthropic 生成器
func NewAnthropic(apiKey, model, baseURL string) (*Anthropic, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("missing provider api key")
	}
	if model == "" {
		model = DefaultAnthropicModel
	}
	opts := []option.RequestOption{option.WithAPIKey(strings.TrimSpace(apiKey)), option.WithMaxRetries(0)}
	if strings.TrimSpace(baseURL) != "" {
		opts = append(opts, option.WithBaseURL(strings.TrimSpace(baseURL)))
	}
	return &Anthropic{client: anthropic.NewClient(opts...), model: model}, nil
}

// Generate 实现 Generator
func (a *Anthropic) Generate(ctx context.Context, prompt string, opts Options) (string, error) {
	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(a.model),
		MaxTokens:   anthropicMaxTokens,
		Messages:    []anthropic.MessageParam{anthropic.NewUserMessage(anthropic.NewTextBlock(prompt))},
		Temperature: anthropic.Float(float64(opts.Temperature)),
	}
	if opts.ResponseFormat == FormatJSON {
		params.System = []anthropic.TextBlockParam{{Text: jsonOnlyInstruction}}
	}

	msg, err := a.client.Messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("anthropic generate: %w", err)
	}

	var sb strings.Builder
	for _, block := range msg.Content {
		if tb, ok := block.AsAny().(anthropic.TextBlock); ok {
			sb.WriteString(tb.Text)
		}
	}
	if strings.TrimSpace(sb.String()) == "" {
		return "", ErrEmptyResponse
	}
	return sb.String(), nil
}
