package persist

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// ErrNoDirectory is returned when neither settings nor config name a directory.
var ErrNoDirectory = errors.New("no save directory selected")

// DirectorySaver writes into a user-chosen directory, overwriting any file
// with the same name.
type DirectorySaver struct {
	fallbackDir string
}

// NewDirectorySaver uses fallbackDir when the request carries no directory.
func NewDirectorySaver(fallbackDir string) *DirectorySaver {
	return &DirectorySaver{fallbackDir: fallbackDir}
}

func (s *DirectorySaver) Save(ctx context.Context, req Request) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	dir := req.Directory
	if dir == "" {
		dir = s.fallbackDir
	}
	if dir == "" {
		return Result{}, ErrNoDirectory
	}

	info, err := os.Stat(dir)
	if err != nil {
		return Result{}, fmt.Errorf("save directory unavailable: %w", err)
	}
	if !info.IsDir() {
		return Result{}, fmt.Errorf("save directory unavailable: %s is not a directory", dir)
	}

	content, err := Render(req.Payload)
	if err != nil {
		return Result{}, err
	}

	name := GenerateFilename(req.Ticker, req.CapturedAt)
	path := filepath.Join(dir, name)
	if err := writeFileAtomic(path, content); err != nil {
		return Result{}, err
	}
	slog.Info("trade plan written", "file", path, "size", len(content))
	return Result{Name: name, Location: path}, nil
}

func writeFileAtomic(path string, content []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".trade-plan-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(content); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		slog.Debug("temp file chmod failed", "file", tmpName, "error", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("rename into place: %w", err)
	}
	return nil
}
