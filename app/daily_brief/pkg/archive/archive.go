package archive

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/iWorld-y/daily_brief/app/daily_brief/pkg/model"
)

// DefaultCap 归档默认容量
const DefaultCap = 50

// ErrPersist 落盘失败，调用方据此判断为致命错误
var ErrPersist = errors.New("persist archive")

// LoadResult 读取归档的结果
// Recovered 为 true 表示原文件损坏，History 已按空归档处理。
type LoadResult struct {
	History   model.History
	Missing   bool
	Recovered bool
	Reason    string
	// Dropped 数组里无法解析成条目而被丢弃的元素个数
	Dropped int
}

// Store 基于单个 JSON 文件的归档
type Store struct {
	path string
	log  logrus.FieldLogger
}

// NewStore 创建归档存储，log 为空时不输出日志
func NewStore(path string, log logrus.FieldLogger) *Store {
	if log == nil {
		l := logrus.New()
		l.SetOutput(nopWriter{})
		log = l
	}
	return &Store{path: path, log: log}
}

// Path 归档文件路径
func (s *Store) Path() string { return s.path }

// Load 读取归档，缺失或损坏都降级为空归档，不返回错误
func (s *Store) Load() LoadResult {
	res := Load(s.path)
	switch {
	case res.Recovered:
		s.log.WithFields(logrus.Fields{"path": s.path, "reason": res.Reason}).Warn("归档文件损坏，按空归档处理")
	case res.Missing:
		s.log.WithField("path", s.path).Info("归档文件不存在，从空归档开始")
	}
	if res.Dropped > 0 {
		s.log.WithFields(logrus.Fields{"path": s.path, "dropped": res.Dropped}).Warn("丢弃无法解析的归档条目")
	}
	return res
}

// Persist 写回归档
func (s *Store) Persist(h model.History) error {
	if err := Persist(s.path, h); err != nil {
		return err
	}
	s.log.WithFields(logrus.Fields{"path": s.path, "entries": len(h)}).Info("归档已写入")
	return nil
}

// Load 读取 path 处的归档
func Load(path string) LoadResult {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return LoadResult{History: model.History{}, Missing: true}
		}
		return corrupted(fmt.Sprintf("read: %v", err))
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		// 对象、标量和无法解析的内容都视为损坏
		return corrupted(fmt.Sprintf("not a json array: %v", err))
	}
	if raw == nil {
		return corrupted("not a json array: null")
	}

	res := LoadResult{History: make(model.History, 0, len(raw))}
	for _, item := range raw {
		item = bytes.TrimSpace(item)
		if len(item) == 0 || item[0] != '{' {
			res.Dropped++
			continue
		}
		var e model.Entry
		if err := json.Unmarshal(item, &e); err != nil {
			res.Dropped++
			continue
		}
		if e.Glossary == nil {
			e.Glossary = []model.GlossaryTerm{}
		}
		res.History = append(res.History, e)
	}
	return res
}

func corrupted(reason string) LoadResult {
	return LoadResult{History: model.History{}, Recovered: true, Reason: reason}
}

// Merge 把新条目插到最前并截断到 limit，不修改入参
func Merge(h model.History, e model.Entry, limit int) model.History {
	if limit <= 0 {
		limit = DefaultCap
	}
	n := min(len(h)+1, limit)
	out := make(model.History, 0, n)
	out = append(out, e)
	for _, old := range h {
		if len(out) == n {
			break
		}
		out = append(out, old)
	}
	return out
}

// Encode 按归档格式序列化：两空格缩进、不转义 HTML、末尾换行
func Encode(h model.History) ([]byte, error) {
	if h == nil {
		h = model.History{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(h); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Persist 先写临时文件再 rename，避免留下写了一半的归档
func Persist(path string, h model.History) error {
	data, err := Encode(h)
	if err != nil {
		return fmt.Errorf("%w: encode: %v", ErrPersist, err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("%w: mkdir %s: %v", ErrPersist, dir, err)
		}
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("%w: write %s: %v", ErrPersist, tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("%w: rename %s: %v", ErrPersist, path, err)
	}
	return nil
}

type nopWriter struct{}

func (nopWriter) Write(p []byte) (int, error) { return len(p), nil }
