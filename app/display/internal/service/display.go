package service

import (
	"strconv"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-kratos/kratos/v2/transport/http"

	"github.com/iWorld-y/daily_brief/app/display/internal/domain"
	"github.com/iWorld-y/daily_brief/app/display/internal/usecase"
)

// ListEntriesReply 列表响应
type ListEntriesReply struct {
	Entries  []*domain.EntrySummary `json:"entries"`
	Total    int                    `json:"total"`
	Page     int                    `json:"page"`
	PageSize int                    `json:"page_size"`
}

type DisplayService struct {
	uc  *usecase.EntryUseCase
	log *log.Helper
}

func NewDisplayService(uc *usecase.EntryUseCase, logger log.Logger) *DisplayService {
	return &DisplayService{
		uc:  uc,
		log: log.NewHelper(logger),
	}
}

// ListEntries GET /api/entries?page=&page_size=
func (s *DisplayService) ListEntries(ctx http.Context) error {
	page, _ := strconv.Atoi(ctx.Query().Get("page"))
	pageSize, _ := strconv.Atoi(ctx.Query().Get("page_size"))
	page, pageSize = usecase.PageParams(page, pageSize)

	list, total, err := s.uc.List(ctx, page, pageSize)
	if err != nil {
		return err
	}
	if list == nil {
		list = []*domain.EntrySummary{}
	}
	return ctx.JSON(200, &ListEntriesReply{
		Entries:  list,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	})
}

// GetEntry GET /api/entries/{id}
func (s *DisplayService) GetEntry(ctx http.Context) error {
	e, err := s.uc.GetByID(ctx, ctx.Vars().Get("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(200, e)
}

// Latest GET /api/latest
func (s *DisplayService) Latest(ctx http.Context) error {
	e, err := s.uc.Latest(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(200, e)
}
