package data

import (
	"context"
	"errors"

	kerrors "github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"

	"github.com/iWorld-y/daily_brief/app/daily_brief/pkg/archive"
	"github.com/iWorld-y/daily_brief/app/daily_brief/pkg/storage"
	"github.com/iWorld-y/daily_brief/app/display/internal/domain"
	"github.com/iWorld-y/daily_brief/app/display/internal/repo"
)

func notFound(id string) error {
	return kerrors.NotFound("ENTRY_NOT_FOUND", "entry not found: "+id)
}

// NewEntryRepo 配置了镜像库时读数据库，否则读归档文件
func NewEntryRepo(data *Data, logger log.Logger) repo.EntryRepo {
	if data.store != nil {
		return &sqlEntryRepo{store: data.store, log: log.NewHelper(logger)}
	}
	return &archiveEntryRepo{path: data.archivePath, log: log.NewHelper(logger)}
}

// archiveEntryRepo 每次请求重新读取归档文件，文件最多 50 条
type archiveEntryRepo struct {
	path string
	log  *log.Helper
}

func (r *archiveEntryRepo) load() []domain.Entry {
	res := archive.Load(r.path)
	if res.Recovered {
		r.log.Warnf("archive %s unreadable: %s", r.path, res.Reason)
	}
	return res.History
}

func (r *archiveEntryRepo) ListEntries(_ context.Context, page, pageSize int) ([]*domain.EntrySummary, int, error) {
	h := r.load()
	start := min((page-1)*pageSize, len(h))
	end := min(start+pageSize, len(h))

	list := make([]*domain.EntrySummary, 0, end-start)
	for i := start; i < end; i++ {
		list = append(list, domain.Summarize(&h[i]))
	}
	return list, len(h), nil
}

func (r *archiveEntryRepo) GetEntry(_ context.Context, id string) (*domain.Entry, error) {
	for _, e := range r.load() {
		if e.ID == id {
			return &e, nil
		}
	}
	return nil, notFound(id)
}

type sqlEntryRepo struct {
	store *storage.Storage
	log   *log.Helper
}

func (r *sqlEntryRepo) ListEntries(ctx context.Context, page, pageSize int) ([]*domain.EntrySummary, int, error) {
	entries, err := r.store.ListEntries(ctx, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, 0, err
	}
	total, err := r.store.CountEntries(ctx)
	if err != nil {
		return nil, 0, err
	}
	list := make([]*domain.EntrySummary, 0, len(entries))
	for i := range entries {
		sum := domain.Summarize(&entries[i])
		if sum.Fallback, err = r.store.IsFallback(ctx, sum.ID); err != nil {
			return nil, 0, err
		}
		list = append(list, sum)
	}
	return list, total, nil
}

func (r *sqlEntryRepo) GetEntry(ctx context.Context, id string) (*domain.Entry, error) {
	e, err := r.store.GetEntry(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, notFound(id)
	}
	return e, err
}
