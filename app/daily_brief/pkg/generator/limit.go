package generator

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// NewLimiter 按 rpm 补充令牌，qps 作为突发容量
func NewLimiter(qps, rpm int) *rate.Limiter {
	if rpm <= 0 {
		rpm = 10
	}
	if qps <= 0 {
		qps = 1
	}
	return rate.NewLimiter(rate.Limit(float64(rpm)/60.0), qps)
}

// Limited 每次请求前先取令牌
type Limited struct {
	Next    Generator
	Limiter *rate.Limiter
}

// Generate 实现 Generator
func (l *Limited) Generate(ctx context.Context, prompt string, opts Options) (string, error) {
	if err := l.Limiter.Wait(ctx); err != nil {
		return "", err
	}
	return l.Next.Generate(ctx, prompt, opts)
}

// Retry 遇到 429 时指数退避重试
type Retry struct {
	Next       Generator
	MaxRetries int
	BaseDelay  time.Duration
	Log        logrus.FieldLogger
}

// Generate 实现 Generator
func (r *Retry) Generate(ctx context.Context, prompt string, opts Options) (string, error) {
	baseDelay := r.BaseDelay
	if baseDelay <= 0 {
		baseDelay = 2 * time.Second
	}
	for i := 0; ; i++ {
		out, err := r.Next.Generate(ctx, prompt, opts)
		if err == nil || !IsRateLimited(err) || i >= r.MaxRetries {
			return out, err
		}

		delay := baseDelay * time.Duration(1<<i)
		if r.Log != nil {
			r.Log.WithFields(logrus.Fields{"attempt": i + 1, "delay": delay}).Warnf("生成器限流，稍后重试: %v", err)
		}
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return "", ctx.Err()
		case <-timer.C:
		}
	}
}
