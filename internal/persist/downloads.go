package persist

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

const maxUniquify = 1000

// DownloadsSaver auto-saves into a downloads directory. Existing names get a
// " (n)" suffix instead of being overwritten.
type DownloadsSaver struct {
	dir string
	mu  sync.Mutex
}

func NewDownloadsSaver(dir string) *DownloadsSaver {
	return &DownloadsSaver{dir: dir}
}

func (s *DownloadsSaver) Save(ctx context.Context, req Request) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	content, err := Render(req.Payload)
	if err != nil {
		return Result{}, err
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return Result{}, fmt.Errorf("create downloads dir: %w", err)
	}

	name := GenerateFilename(req.Ticker, req.CapturedAt)

	s.mu.Lock()
	defer s.mu.Unlock()

	path, err := createUnique(s.dir, name, content)
	if err != nil {
		return Result{}, err
	}
	slog.Info("trade plan downloaded", "file", path, "size", len(content))
	return Result{Name: filepath.Base(path), Location: path}, nil
}

func createUnique(dir, name string, content []byte) (string, error) {
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)

	for i := 0; i < maxUniquify; i++ {
		candidate := name
		if i > 0 {
			candidate = fmt.Sprintf("%s (%d)%s", stem, i, ext)
		}
		path := filepath.Join(dir, candidate)
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err != nil {
			if errors.Is(err, os.ErrExist) {
				continue
			}
			return "", fmt.Errorf("create %s: %w", candidate, err)
		}
		if _, err := f.Write(content); err != nil {
			_ = f.Close()
			_ = os.Remove(path)
			return "", fmt.Errorf("write %s: %w", candidate, err)
		}
		if err := f.Close(); err != nil {
			return "", fmt.Errorf("close %s: %w", candidate, err)
		}
		return path, nil
	}
	return "", fmt.Errorf("too many files named %s", name)
}
