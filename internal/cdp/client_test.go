package cdp

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/dgnsrekt/tradeplan_saver/internal/capture"
	"github.com/dgnsrekt/tradeplan_saver/internal/config"
	"github.com/dgnsrekt/tradeplan_saver/internal/types"
)

type nopSink struct{}

func (nopSink) Deliver(context.Context, types.CaptureEvent) {}

func newTestClient(filter string) (*Client, *capture.Observer) {
	obs := capture.NewObserver(config.DefaultURLPattern, nopSink{}, 0)
	cfg := &config.Config{TabURLFilter: filter}
	return NewClient(cfg, obs, NewTabRegistry()), obs
}

func TestMatchesTabURL(t *testing.T) {
	c, obs := newTestClient("TTGHG.onrender.com")
	defer obs.Close()

	if !c.matchesTabURL("https://ttghg.onrender.com/plans") {
		t.Error("tab filter should be case-insensitive")
	}
	if c.matchesTabURL("https://example.com/") {
		t.Error("unexpected match")
	}

	all, obs2 := newTestClient("")
	defer obs2.Close()
	if !all.matchesTabURL("about:blank") {
		t.Error("empty filter should match every tab")
	}
}

func TestEventHandlerRoutesNetworkEvents(t *testing.T) {
	c, obs := newTestClient("")
	defer obs.Close()
	handle := c.createEventHandler("TAB1")

	handle(&network.EventRequestWillBeSent{
		RequestID: "r1",
		Request:   &network.Request{URL: "https://ttghg.onrender.com/api/v1/trade-plan"},
		Type:      network.ResourceTypeFetch,
	})
	if obs.PendingCount() != 1 {
		t.Fatalf("PendingCount() = %d; want 1", obs.PendingCount())
	}

	handle(&network.EventLoadingFailed{RequestID: "r1"})
	if obs.PendingCount() != 0 {
		t.Fatalf("PendingCount() = %d; want 0", obs.PendingCount())
	}
}

func TestEventHandlerTracksNavigation(t *testing.T) {
	c, obs := newTestClient("")
	defer obs.Close()
	c.tabRegistry.Register("TAB1-LONGID", "https://ttghg.onrender.com/")

	url := "https://ttghg.onrender.com/plans/MSFT"
	c.createEventHandler("TAB1-LONGID")(&network.EventRequestWillBeSent{
		RequestID:   "nav",
		DocumentURL: url,
		Request:     &network.Request{URL: url},
		Type:        network.ResourceTypeDocument,
	})

	tabs := c.Tabs()
	if len(tabs) != 1 || tabs[0].URL != url || tabs[0].BrowserID != "TAB1-LON" {
		t.Fatalf("Tabs() = %+v", tabs)
	}
}

func TestBodyFetcherNilWithoutTab(t *testing.T) {
	c, obs := newTestClient("")
	defer obs.Close()
	if f := c.bodyFetcher("missing", "r1"); f != nil {
		t.Fatal("expected nil body fetcher for unknown tab")
	}
}

func TestRunInTabWithoutTabs(t *testing.T) {
	c, obs := newTestClient("")
	defer obs.Close()

	err := c.RunInTab(context.Background())
	var coded *types.CodedError
	if !errors.As(err, &coded) || coded.Code != types.CodeCDPUnavailable {
		t.Fatalf("RunInTab() error = %v; want CDP_UNAVAILABLE", err)
	}
	if !errors.Is(err, ErrNoTab) {
		t.Fatalf("RunInTab() error = %v; want ErrNoTab", err)
	}
}

func TestTabRegistryList(t *testing.T) {
	r := NewTabRegistry()
	r.Register("BBBBBBBBBB", "https://b")
	r.Register("AAAA", "https://a")

	tabs := r.List()
	if len(tabs) != 2 || tabs[0].TargetID != "AAAA" || tabs[0].BrowserID != "AAAA" {
		t.Fatalf("List() = %+v", tabs)
	}
	if !strings.HasPrefix(tabs[1].BrowserID, "BBBBBBBB") || len(tabs[1].BrowserID) != 8 {
		t.Fatalf("BrowserID = %q", tabs[1].BrowserID)
	}
	r.Remove("AAAA")
	if got := r.List(); len(got) != 1 || got[0].TargetID != "BBBBBBBBBB" {
		t.Fatalf("List() after Remove = %+v", got)
	}
}

func TestConnectHonoursContext(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	host, port, err := net.SplitHostPort(srv.Listener.Addr().String())
	if err != nil {
		t.Fatalf("split addr: %v", err)
	}
	portNum, _ := strconv.Atoi(port)

	obs := capture.NewObserver(config.DefaultURLPattern, nopSink{}, 0)
	defer obs.Close()
	c := NewClient(&config.Config{CDPAddress: host, CDPPort: portNum}, obs, NewTabRegistry())
	defer func() { _ = c.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	start := time.Now()
	err = c.Connect(ctx)
	var coded *types.CodedError
	if !errors.As(err, &coded) || coded.Code != types.CodeCDPUnavailable {
		t.Fatalf("Connect() error = %v; want CDP_UNAVAILABLE", err)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Fatalf("Connect() took %v; want it to stop when ctx expires", elapsed)
	}
}
