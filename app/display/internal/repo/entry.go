package repo

import (
	"context"

	"github.com/iWorld-y/daily_brief/app/display/internal/domain"
)

// EntryRepo 条目仓库接口
type EntryRepo interface {
	// ListEntries 分页获取摘要列表，新的在前
	ListEntries(ctx context.Context, page, pageSize int) ([]*domain.EntrySummary, int, error)
	// GetEntry 根据 ID 获取完整条目
	GetEntry(ctx context.Context, id string) (*domain.Entry, error)
}
