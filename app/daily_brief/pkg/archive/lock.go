package archive

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// errBusy 锁被其他进程持有
var errBusy = errors.New("archive lock busy")

const lockPollInterval = 100 * time.Millisecond

// Lock <path>.lock 上的排他锁，覆盖 load 到 persist 的整个窗口
type Lock struct {
	path string
	f    *os.File
}

// Acquire 获取归档锁，锁被占用时轮询直到 ctx 结束
func Acquire(ctx context.Context, archivePath string) (*Lock, error) {
	path := archivePath + ".lock"
	if err := ensureDir(path); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open lock %s: %w", path, err)
	}

	ticker := time.NewTicker(lockPollInterval)
	defer ticker.Stop()
	for {
		err := tryLock(f)
		if err == nil {
			return &Lock{path: path, f: f}, nil
		}
		if !errors.Is(err, errBusy) {
			_ = f.Close()
			return nil, fmt.Errorf("lock %s: %w", path, err)
		}
		select {
		case <-ctx.Done():
			_ = f.Close()
			return nil, fmt.Errorf("lock %s: %w", path, ctx.Err())
		case <-ticker.C:
		}
	}
}

// Path 锁文件路径
func (l *Lock) Path() string {
	if l == nil {
		return ""
	}
	return l.path
}

// Release 释放锁，可重复调用
func (l *Lock) Release() error {
	if l == nil || l.f == nil {
		return nil
	}
	unlockErr := unlock(l.f)
	closeErr := l.f.Close()
	l.f = nil
	if unlockErr != nil {
		return unlockErr
	}
	return closeErr
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
