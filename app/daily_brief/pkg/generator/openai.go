package generator

import (
	"context"
	"errors"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
)

// DefaultOpenAIModel openai 默认模型
const DefaultOpenAIModel = "gpt-4o-mini"

// OpenAI 基于官方 openai-go SDK 的 chat completions
type OpenAI struct {
	client openai.Client
	model  string
}

// NewOpenAI 创建 OpenAI 生成器
func NewOpenAI(apiKey, model, baseURL string) (*OpenAI, error) {
	if apiKey == "" {
		return nil, errors.New("openai api key missing; provide llm.api_key")
	}
	if model == "" {
		model = DefaultOpenAIModel
	}
	opts := []option.RequestOption{option.WithAPIKey(apiKey), option.WithMaxRetries(0)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &OpenAI{client: openai.NewClient(opts...), model: model}, nil
}

// Generate 实现 Generator
func (o *OpenAI) Generate(ctx context.Context, prompt string, opts Options) (string, error) {
	var msgs []openai.ChatCompletionMessageParamUnion
	if opts.ResponseFormat == FormatJSON {
		msgs = append(msgs, openai.SystemMessage(jsonOnlyInstruction))
	}
	msgs = append(msgs, openai.UserMessage(prompt))

	params := openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(o.model),
		Messages:    msgs,
		Temperature: openai.Float(float64(opts.Temperature)),
	}
	if opts.ResponseFormat == FormatJSON {
		obj := shared.NewResponseFormatJSONObjectParam()
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{OfJSONObject: &obj}
	}

	resp, err := o.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("openai generate: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openai: empty choices")
	}
	if resp.Choices[0].Message.Content == "" {
		return "", ErrEmptyResponse
	}
	return resp.Choices[0].Message.Content, nil
}
