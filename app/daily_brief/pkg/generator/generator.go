package generator

import (
	"context"
	"errors"
	"strings"
	"time"
)

// 生成器输出格式
const (
	FormatJSON     = "json"
	FormatFreeText = "free-text"
)

// ErrEmptyResponse 生成器返回了空内容
var ErrEmptyResponse = errors.New("generator returned empty response")

// Options 单次生成的参数
type Options struct {
	EnableSearch   bool
	ResponseFormat string
	Temperature    float32
	Timeout        time.Duration
	// Date 检索参考资料的基准日期 (YYYY-MM-DD)
	Date string
}

// Generator 外部内容生成器
type Generator interface {
	Generate(ctx context.Context, prompt string, opts Options) (string, error)
}

// Func 让普通函数实现 Generator
type Func func(ctx context.Context, prompt string, opts Options) (string, error)

// Generate 实现 Generator
func (f Func) Generate(ctx context.Context, prompt string, opts Options) (string, error) {
	return f(ctx, prompt, opts)
}

// IsRateLimited 判断错误是否为 429 限流
func IsRateLimited(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "429") ||
		strings.Contains(msg, "too many requests") ||
		strings.Contains(msg, "resource_exhausted") ||
		strings.Contains(msg, "rate limit")
}

const jsonOnlyInstruction = "你是一个 JSON 生成器。请只输出 JSON 字符串，不要包含任何 markdown 标记。"
