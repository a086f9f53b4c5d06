package server

import (
	"context"
	"encoding/json"
	nethttp "net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iWorld-y/daily_brief/app/daily_brief/pkg/archive"
	"github.com/iWorld-y/daily_brief/app/daily_brief/pkg/config"
	"github.com/iWorld-y/daily_brief/app/daily_brief/pkg/model"
	"github.com/iWorld-y/daily_brief/app/daily_brief/pkg/storage"
	"github.com/iWorld-y/daily_brief/app/display/internal/conf"
	"github.com/iWorld-y/daily_brief/app/display/internal/data"
	"github.com/iWorld-y/daily_brief/app/display/internal/service"
	"github.com/iWorld-y/daily_brief/app/display/internal/usecase"
)

func entry(id, title string) model.Entry {
	return model.Entry{
		ID:       id,
		Date:     "2025-01-01",
		Titles:   model.LocalizedText{JA: title, EN: title},
		Contents: model.LocalizedText{JA: "本文", EN: "Body"},
		Mermaid:  model.LocalizedText{JA: "graph TD\nA-->B", EN: "graph TD\nA-->B"},
		Glossary: []model.GlossaryTerm{},
	}
}

func newTestServer(t *testing.T, cd *conf.Data) nethttp.Handler {
	t.Helper()
	d, cleanup, err := data.NewData(cd, log.DefaultLogger)
	require.NoError(t, err)
	t.Cleanup(cleanup)

	uc := usecase.NewEntryUseCase(data.NewEntryRepo(d, log.DefaultLogger), log.DefaultLogger)
	return NewHTTPServer(&conf.Server{Http: &conf.HTTP{Addr: "127.0.0.1:0"}}, service.NewDisplayService(uc, log.DefaultLogger), log.DefaultLogger)
}

func get(t *testing.T, h nethttp.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(nethttp.MethodGet, path, nil))
	return rec
}

func TestHTTP_ArchiveBacked(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.json")
	require.NoError(t, archive.Persist(path, model.History{
		entry("20250103_000000", "三日目"),
		entry("20250102_000000", "二日目"),
		entry("20250101_000000", "一日目"),
	}))
	h := newTestServer(t, &conf.Data{Archive: &conf.Archive{Path: path}})

	rec := get(t, h, "/api/entries?page=2&page_size=2")
	require.Equal(t, nethttp.StatusOK, rec.Code)
	var list service.ListEntriesReply
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Equal(t, 3, list.Total)
	assert.Equal(t, 2, list.Page)
	require.Len(t, list.Entries, 1)
	assert.Equal(t, "20250101_000000", list.Entries[0].ID)

	rec = get(t, h, "/api/entries/20250102_000000")
	require.Equal(t, nethttp.StatusOK, rec.Code)
	var e model.Entry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &e))
	assert.Equal(t, "二日目", e.Titles.JA)

	rec = get(t, h, "/api/latest")
	require.Equal(t, nethttp.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &e))
	assert.Equal(t, "20250103_000000", e.ID)

	rec = get(t, h, "/api/entries/nope")
	assert.Equal(t, nethttp.StatusNotFound, rec.Code)

	rec = get(t, h, "/healthz")
	assert.Equal(t, nethttp.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestHTTP_EmptyArchive(t *testing.T) {
	h := newTestServer(t, &conf.Data{Archive: &conf.Archive{Path: filepath.Join(t.TempDir(), "missing.json")}})

	rec := get(t, h, "/api/entries")
	require.Equal(t, nethttp.StatusOK, rec.Code)
	var list service.ListEntriesReply
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Equal(t, 0, list.Total)
	assert.Empty(t, list.Entries)
	assert.Equal(t, 10, list.PageSize)

	rec = get(t, h, "/api/latest")
	assert.Equal(t, nethttp.StatusNotFound, rec.Code)
}

func TestHTTP_DatabaseBacked(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "brief.db")
	store, err := storage.NewStorage(config.DBConfig{Driver: "sqlite", DSN: dbPath})
	require.NoError(t, err)
	require.NoError(t, store.SaveEntry(context.Background(), entry("20250101_000000", "一日目"), false))
	require.NoError(t, store.SaveEntry(context.Background(), entry("20250102_000000", "分析エラー"), true))
	require.NoError(t, store.Close())

	h := newTestServer(t, &conf.Data{Database: &conf.Database{Driver: "sqlite", Source: dbPath}})

	rec := get(t, h, "/api/entries")
	require.Equal(t, nethttp.StatusOK, rec.Code)
	var list service.ListEntriesReply
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Equal(t, 2, list.Total)
	require.Len(t, list.Entries, 2)
	assert.Equal(t, "20250102_000000", list.Entries[0].ID)
	assert.True(t, list.Entries[0].Fallback)
	assert.False(t, list.Entries[1].Fallback)

	rec = get(t, h, "/api/entries/none")
	assert.Equal(t, nethttp.StatusNotFound, rec.Code)
}
