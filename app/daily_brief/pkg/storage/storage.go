package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/iWorld-y/daily_brief/app/daily_brief/pkg/config"
	"github.com/iWorld-y/daily_brief/app/daily_brief/pkg/model"
)

// ErrNotFound 条目不存在
var ErrNotFound = errors.New("entry not found")

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Storage 归档条目的 SQL 镜像
type Storage struct {
	db     *sql.DB
	driver string
}

// NewStorage 打开数据库并建表
func NewStorage(cfg config.DBConfig) (*Storage, error) {
	var dsn string
	switch cfg.Driver {
	case DriverPostgres:
		dsn = cfg.DSN
		if dsn == "" {
			dsn = fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
				cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Name)
		}
	case DriverSQLite:
		dsn = strings.TrimSpace(cfg.DSN)
		if dsn == "" {
			return nil, errors.New("sqlite 需要 db.dsn")
		}
		if dsn != ":memory:" && !strings.HasPrefix(dsn, "file:") {
			if err := os.MkdirAll(filepath.Dir(dsn), 0o755); err != nil {
				return nil, err
			}
		}
	default:
		return nil, fmt.Errorf("unsupported db driver: %q", cfg.Driver)
	}

	db, err := sql.Open(cfg.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}
	if cfg.Driver == DriverSQLite {
		// 单连接，:memory: 库在连接之间不共享
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	s := &Storage{db: db, driver: cfg.Driver}
	if err := s.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

// Close 关闭连接
func (s *Storage) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Storage) initSchema(ctx context.Context) error {
	const ddl = `CREATE TABLE IF NOT EXISTS entries (
	id TEXT PRIMARY KEY,
	date TEXT NOT NULL,
	title_ja TEXT NOT NULL,
	title_en TEXT NOT NULL,
	payload TEXT NOT NULL,
	fallback BOOLEAN NOT NULL DEFAULT FALSE,
	updated_at BIGINT NOT NULL
)`
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS idx_entries_date ON entries (date)`)
	return err
}

// SaveEntry 写入或覆盖一条记录
func (s *Storage) SaveEntry(ctx context.Context, e model.Entry, fallback bool) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal entry: %w", err)
	}
	_, err = s.db.ExecContext(ctx, s.rebind(`INSERT INTO entries (id, date, title_ja, title_en, payload, fallback, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (id) DO UPDATE SET
	date = excluded.date,
	title_ja = excluded.title_ja,
	title_en = excluded.title_en,
	payload = excluded.payload,
	fallback = excluded.fallback,
	updated_at = excluded.updated_at`),
		e.ID, e.Date, sanitize(e.Titles.JA), sanitize(e.Titles.EN), sanitize(string(payload)), fallback, time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("save entry %s: %w", e.ID, err)
	}
	return nil
}

// GetEntry 按 ID 读取
func (s *Storage) GetEntry(ctx context.Context, id string) (*model.Entry, error) {
	var payload string
	err := s.db.QueryRowContext(ctx, s.rebind(`SELECT payload FROM entries WHERE id = ?`), id).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return decode(payload)
}

// ListEntries 按 ID 倒序分页，ID 是时间戳所以即新到旧
func (s *Storage) ListEntries(ctx context.Context, limit, offset int) ([]model.Entry, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(`SELECT payload FROM entries ORDER BY id DESC LIMIT ? OFFSET ?`), limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Entry
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		e, err := decode(payload)
		if err != nil {
			return nil, err
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

// CountEntries 记录总数
func (s *Storage) CountEntries(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM entries`).Scan(&n)
	return n, err
}

// IsFallback 查询某条记录是否为兜底条目
func (s *Storage) IsFallback(ctx context.Context, id string) (bool, error) {
	var fb bool
	err := s.db.QueryRowContext(ctx, s.rebind(`SELECT fallback FROM entries WHERE id = ?`), id).Scan(&fb)
	if errors.Is(err, sql.ErrNoRows) {
		return false, ErrNotFound
	}
	return fb, err
}

func decode(payload string) (*model.Entry, error) {
	var e model.Entry
	if err := json.Unmarshal([]byte(payload), &e); err != nil {
		return nil, fmt.Errorf("decode entry payload: %w", err)
	}
	if e.Glossary == nil {
		e.Glossary = []model.GlossaryTerm{}
	}
	return &e, nil
}

// rebind 把 ? 占位符换成 postgres 的 $N
func (s *Storage) rebind(query string) string {
	if s.driver != DriverPostgres {
		return query
	}
	var sb strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			sb.WriteByte('$')
			sb.WriteString(strconv.Itoa(n))
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

// sanitize 移除无效 UTF-8 与 NULL 字符，PostgreSQL 文本字段不接受 NULL 字节
func sanitize(s string) string {
	if !utf8.ValidString(s) {
		s = strings.ToValidUTF8(s, "")
	}
	return strings.ReplaceAll(s, "\x00", "")
}
