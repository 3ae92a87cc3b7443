package cdp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"
	"github.com/dgnsrekt/tradeplan_saver/internal/capture"
	"github.com/dgnsrekt/tradeplan_saver/internal/config"
	"github.com/dgnsrekt/tradeplan_saver/internal/types"
)

const (
	bodyFetchTimeout = 10 * time.Second
	tabActionTimeout = 15 * time.Second
	rescanInterval   = 5 * time.Second
)

// ErrNoTab is returned by RunInTab when no tab is attached.
var ErrNoTab = errors.New("no attached browser tab")

// Client manages CDP connections to browser tabs and feeds their network
// events to the trade plan observer.
type Client struct {
	cfg         *config.Config
	observer    *capture.Observer
	tabRegistry *TabRegistry
	allocCtx    context.Context
	allocCancel context.CancelFunc
	browserCtx  context.Context
	browserStop context.CancelFunc
	controlID   target.ID
	tabs        map[target.ID]*TabContext
	tabsMu      sync.RWMutex
	done        chan struct{}
	closeOnce   sync.Once
}

type TabContext struct {
	ID     target.ID
	URL    string
	ctx    context.Context
	cancel context.CancelFunc
}

func NewClient(cfg *config.Config, observer *capture.Observer, tabRegistry *TabRegistry) *Client {
	return &Client{
		cfg:         cfg,
		observer:    observer,
		tabRegistry: tabRegistry,
		tabs:        make(map[target.ID]*TabContext),
		done:        make(chan struct{}),
	}
}

// Connect attaches to the browser and every page whose URL passes the tab
// filter. Tabs opened later are picked up by Watch. Cancelling ctx drops the
// browser connection.
func (c *Client) Connect(ctx context.Context) error {
	cdpURL := c.cfg.GetCDPURL()
	slog.Info("Connecting to Chromium", "url", cdpURL)

	c.allocCtx, c.allocCancel = chromedp.NewRemoteAllocator(ctx, cdpURL)
	c.browserCtx, c.browserStop = chromedp.NewContext(c.allocCtx)

	if err := chromedp.Run(c.browserCtx); err != nil {
		return types.NewError(types.CodeCDPUnavailable, "failed to connect to browser", err)
	}
	// The connection itself opens a blank control tab; never observe it.
	if cc := chromedp.FromContext(c.browserCtx); cc != nil && cc.Target != nil {
		c.controlID = cc.Target.TargetID
	}

	attached, err := c.scan()
	if err != nil {
		return err
	}
	slog.Info("Attached to tabs", "count", attached, "tab_url_filter", c.cfg.TabURLFilter)
	if attached == 0 {
		slog.Warn("No tabs match the filter yet; waiting for one to open", "tab_url_filter", c.cfg.TabURLFilter)
	}
	return nil
}

// Watch periodically attaches to new matching tabs and forgets closed ones
// until ctx is cancelled or the client is closed.
func (c *Client) Watch(ctx context.Context) {
	ticker := time.NewTicker(rescanInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.done:
			return
		case <-ticker.C:
			if _, err := c.scan(); err != nil {
				slog.Warn("Tab rescan failed", "error", err)
			}
		}
	}
}

func (c *Client) scan() (int, error) {
	targets, err := chromedp.Targets(c.browserCtx)
	if err != nil {
		return 0, types.NewError(types.CodeCDPUnavailable, "failed to enumerate targets", err)
	}

	live := make(map[target.ID]bool, len(targets))
	attached := 0
	for _, t := range targets {
		if t.Type != "page" || t.TargetID == c.controlID {
			continue
		}
		live[t.TargetID] = true
		if c.isAttached(t.TargetID) {
			continue
		}
		if !c.matchesTabURL(t.URL) {
			slog.Debug("Skipping tab (url filter)", "url", truncateURL(t.URL))
			continue
		}
		if err := c.attachToTab(t.TargetID, t.URL); err != nil {
			slog.Error("Failed to attach to tab", "target_id", t.TargetID, "url", truncateURL(t.URL), "error", err)
			continue
		}
		attached++
	}

	c.tabsMu.Lock()
	for id, tab := range c.tabs {
		if !live[id] {
			tab.cancel()
			delete(c.tabs, id)
			c.tabRegistry.Remove(id)
			slog.Info("Detached from closed tab", "target_id", id)
		}
	}
	c.tabsMu.Unlock()

	return attached, nil
}

func (c *Client) isAttached(id target.ID) bool {
	c.tabsMu.RLock()
	defer c.tabsMu.RUnlock()
	_, ok := c.tabs[id]
	return ok
}

func (c *Client) attachToTab(targetID target.ID, url string) error {
	tabInfo := c.tabRegistry.Register(targetID, url)

	tabCtx, tabCancel := chromedp.NewContext(c.allocCtx, chromedp.WithTargetID(targetID))

	// Only the Network domain is enabled. Request interception would put the
	// observer on the page's network path.
	if err := chromedp.Run(tabCtx, network.Enable()); err != nil {
		tabCancel()
		c.tabRegistry.Remove(targetID)
		return fmt.Errorf("failed to enable network domain: %w", err)
	}

	tab := &TabContext{ID: targetID, URL: url, ctx: tabCtx, cancel: tabCancel}
	c.tabsMu.Lock()
	c.tabs[targetID] = tab
	c.tabsMu.Unlock()

	slog.Info("Attached to tab", "target_id", targetID, "browser_id", tabInfo.BrowserID, "url", truncateURL(url))
	chromedp.ListenTarget(tabCtx, c.createEventHandler(string(targetID)))

	if c.cfg.ReloadOnAttach {
		reloadCtx, reloadCancel := context.WithTimeout(tabCtx, 30*time.Second)
		defer reloadCancel()
		if err := chromedp.Run(reloadCtx, chromedp.Reload()); err != nil {
			slog.Warn("Failed to reload tab (continuing)", "target_id", targetID, "error", err)
		} else {
			slog.Info("Reloaded tab after attach", "target_id", targetID, "url", truncateURL(url))
		}
	}

	return nil
}

func (c *Client) createEventHandler(tabID string) func(ev interface{}) {
	return func(ev interface{}) {
		switch e := ev.(type) {
		case *network.EventRequestWillBeSent:
			if e.Type == network.ResourceTypeDocument && e.Request != nil && e.DocumentURL == e.Request.URL {
				c.tabRegistry.Register(target.ID(tabID), e.Request.URL)
			}
			c.observer.OnRequestWillBeSent(tabID, e)
		case *network.EventResponseReceived:
			c.observer.OnResponseReceived(tabID, e)
		case *network.EventLoadingFinished:
			c.observer.OnLoadingFinished(tabID, e, c.bodyFetcher(tabID, e.RequestID))
		case *network.EventLoadingFailed:
			c.observer.OnLoadingFailed(tabID, e)
		}
	}
}

// bodyFetcher returns a closure reading the browser's buffered copy of a
// response body, or nil when the tab is gone.
func (c *Client) bodyFetcher(tabID string, requestID network.RequestID) capture.BodyFunc {
	c.tabsMu.RLock()
	tab, ok := c.tabs[target.ID(tabID)]
	c.tabsMu.RUnlock()
	if !ok {
		return nil
	}

	tabCtx := tab.ctx
	return func() ([]byte, error) {
		bodyCtx, bodyCancel := context.WithTimeout(tabCtx, bodyFetchTimeout)
		defer bodyCancel()

		var body []byte
		err := chromedp.Run(bodyCtx, chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			body, err = network.GetResponseBody(requestID).Do(ctx)
			return err
		}))
		return body, err
	}
}

// RunInTab runs actions in the first attached tab, bounded by ctx.
func (c *Client) RunInTab(ctx context.Context, actions ...chromedp.Action) error {
	tab, ok := c.firstTab()
	if !ok {
		return types.NewError(types.CodeCDPUnavailable, ErrNoTab.Error(), ErrNoTab)
	}

	runCtx, cancel := context.WithTimeout(tab.ctx, tabActionTimeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	return chromedp.Run(runCtx, actions...)
}

func (c *Client) firstTab() (*TabContext, bool) {
	c.tabsMu.RLock()
	defer c.tabsMu.RUnlock()

	var first *TabContext
	for id, tab := range c.tabs {
		if first == nil || id < first.ID {
			first = tab
		}
	}
	return first, first != nil
}

func (c *Client) Close() error {
	c.closeOnce.Do(func() { close(c.done) })

	c.tabsMu.Lock()
	for _, tab := range c.tabs {
		tab.cancel()
	}
	c.tabs = make(map[target.ID]*TabContext)
	c.tabsMu.Unlock()

	if c.browserStop != nil {
		c.browserStop()
	}
	if c.allocCancel != nil {
		c.allocCancel()
	}

	slog.Info("CDP client closed")
	return nil
}

// Tabs lists the attached tabs.
func (c *Client) Tabs() []types.TabInfo {
	return c.tabRegistry.List()
}

func (c *Client) matchesTabURL(url string) bool {
	if c.cfg.TabURLFilter == "" {
		return true
	}
	return strings.Contains(strings.ToLower(url), strings.ToLower(c.cfg.TabURLFilter))
}

func truncateURL(url string) string {
	if len(url) > 120 {
		return url[:120] + "..."
	}
	return url
}
