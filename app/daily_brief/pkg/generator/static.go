package generator

import (
	"context"
	"fmt"
	"os"
)

// Static 返回固定文本，用于离线运行和测试
type Static struct {
	Text string
	// File 非空时每次从文件读取
	File string
}

// Generate 实现 Generator
func (s Static) Generate(ctx context.Context, _ string, _ Options) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if s.File == "" {
		return s.Text, nil
	}
	data, err := os.ReadFile(s.File)
	if err != nil {
		return "", fmt.Errorf("read static output: %w", err)
	}
	return string(data), nil
}
