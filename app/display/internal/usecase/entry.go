package usecase

import (
	"context"

	"github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"

	"github.com/iWorld-y/daily_brief/app/display/internal/domain"
	"github.com/iWorld-y/daily_brief/app/display/internal/repo"
)

const (
	defaultPageSize = 10
	maxPageSize     = 50
)

// EntryUseCase 条目业务逻辑
type EntryUseCase struct {
	repo repo.EntryRepo
	log  *log.Helper
}

// NewEntryUseCase 创建条目业务逻辑实例
func NewEntryUseCase(repo repo.EntryRepo, logger log.Logger) *EntryUseCase {
	return &EntryUseCase{repo: repo, log: log.NewHelper(logger)}
}

// PageParams 修正非法的分页参数
func PageParams(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	return page, min(pageSize, maxPageSize)
}

// List 分页列出摘要
func (uc *EntryUseCase) List(ctx context.Context, page, pageSize int) ([]*domain.EntrySummary, int, error) {
	page, pageSize = PageParams(page, pageSize)
	return uc.repo.ListEntries(ctx, page, pageSize)
}

// GetByID 根据 ID 获取完整条目
func (uc *EntryUseCase) GetByID(ctx context.Context, id string) (*domain.Entry, error) {
	if id == "" {
		return nil, errors.BadRequest("INVALID_ID", "id is required")
	}
	return uc.repo.GetEntry(ctx, id)
}

// Latest 最新的一条
func (uc *EntryUseCase) Latest(ctx context.Context) (*domain.Entry, error) {
	list, _, err := uc.repo.ListEntries(ctx, 1, 1)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, errors.NotFound("ARCHIVE_EMPTY", "archive is empty")
	}
	return uc.repo.GetEntry(ctx, list[0].ID)
}
