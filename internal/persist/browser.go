package persist

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/chromedp/cdproto/browser"
	"github.com/chromedp/chromedp"
)

// TabRunner runs chromedp actions against an attached tab.
type TabRunner interface {
	RunInTab(ctx context.Context, actions ...chromedp.Action) error
}

// TabRunnerFunc adapts a function to TabRunner.
type TabRunnerFunc func(ctx context.Context, actions ...chromedp.Action) error

func (f TabRunnerFunc) RunInTab(ctx context.Context, actions ...chromedp.Action) error {
	return f(ctx, actions...)
}

// BrowserSaver hands the file to the browser's own download manager: it points
// downloads at dir and clicks a data: URL anchor inside the tab.
type BrowserSaver struct {
	tabs TabRunner
	dir  string
}

func NewBrowserSaver(tabs TabRunner, dir string) *BrowserSaver {
	return &BrowserSaver{tabs: tabs, dir: dir}
}

func (s *BrowserSaver) Save(ctx context.Context, req Request) (Result, error) {
	content, err := Render(req.Payload)
	if err != nil {
		return Result{}, err
	}
	dir, err := filepath.Abs(s.dir)
	if err != nil {
		return Result{}, fmt.Errorf("resolve download dir: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Result{}, fmt.Errorf("create download dir: %w", err)
	}

	name := GenerateFilename(req.Ticker, req.CapturedAt)
	script, err := downloadScript(name, content)
	if err != nil {
		return Result{}, err
	}

	var clicked bool
	err = s.tabs.RunInTab(ctx,
		browser.SetDownloadBehavior(browser.SetDownloadBehaviorBehaviorAllow).WithDownloadPath(dir),
		chromedp.Evaluate(script, &clicked),
	)
	if err != nil {
		return Result{}, fmt.Errorf("browser download: %w", err)
	}
	if !clicked {
		return Result{}, fmt.Errorf("browser download: page refused download of %s", name)
	}

	path := filepath.Join(dir, name)
	slog.Info("trade plan download requested", "file", path, "size", len(content))
	return Result{Name: name, Location: path}, nil
}

func downloadScript(name string, content []byte) (string, error) {
	href, err := json.Marshal("data:application/json;base64," + base64.StdEncoding.EncodeToString(content))
	if err != nil {
		return "", err
	}
	filename, err := json.Marshal(name)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(`(() => {
  if (!document.body) return false;
  const a = document.createElement('a');
  a.href = %s;
  a.download = %s;
  a.style.display = 'none';
  document.body.appendChild(a);
  a.click();
  a.remove();
  return true;
})()`, href, filename), nil
}
