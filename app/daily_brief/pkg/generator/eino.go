package generator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// Eino 通过 eino ChatModel 调用 OpenAI 兼容接口
type Eino struct {
	chatModel model.BaseChatModel
}

// NewEino 创建 OpenAI 兼容生成器
func NewEino(ctx context.Context, baseURL, apiKey, modelName string, timeout time.Duration) (*Eino, error) {
	if baseURL == "" || modelName == "" {
		return nil, fmt.Errorf("openai_compatible 需要 base_url 和 model")
	}
	chatModel, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
		BaseURL: baseURL,
		APIKey:  apiKey,
		Model:   modelName,
		Timeout: timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("LLM 初始化失败: %w", err)
	}
	return &Eino{chatModel: chatModel}, nil
}

// NewEinoWithModel 直接包装一个已有的 ChatModel
func NewEinoWithModel(cm model.BaseChatModel) *Eino {
	return &Eino{chatModel: cm}
}

// Generate 实现 Generator
func (e *Eino) Generate(ctx context.Context, prompt string, opts Options) (string, error) {
	var messages []*schema.Message
	if opts.ResponseFormat == FormatJSON {
		messages = append(messages, &schema.Message{Role: schema.System, Content: jsonOnlyInstruction})
	}
	messages = append(messages, &schema.Message{Role: schema.User, Content: prompt})

	resp, err := e.chatModel.Generate(ctx, messages, model.WithTemperature(opts.Temperature))
	if err != nil {
		return "", err
	}
	if resp == nil || strings.TrimSpace(resp.Content) == "" {
		return "", ErrEmptyResponse
	}
	return resp.Content, nil
}
