package capture

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/dgnsrekt/tradeplan_saver/internal/types"
)

const testPattern = "ttghg.onrender.com/api/v1/trade-plan"

type recordingSink struct {
	mu     sync.Mutex
	events []types.CaptureEvent
}

func (s *recordingSink) Deliver(_ context.Context, ev types.CaptureEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
}

func (s *recordingSink) all() []types.CaptureEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]types.CaptureEvent(nil), s.events...)
}

type panicSink struct{}

func (panicSink) Deliver(context.Context, types.CaptureEvent) { panic("sink exploded") }

func request(id, url string, rt network.ResourceType) *network.EventRequestWillBeSent {
	return &network.EventRequestWillBeSent{
		RequestID: network.RequestID(id),
		Request:   &network.Request{URL: url, Method: "GET"},
		Type:      rt,
	}
}

func response(id string, status int64) *network.EventResponseReceived {
	return &network.EventResponseReceived{
		RequestID: network.RequestID(id),
		Type:      network.ResourceTypeFetch,
		Response:  &network.Response{Status: status},
	}
}

func finished(id string) *network.EventLoadingFinished {
	return &network.EventLoadingFinished{RequestID: network.RequestID(id)}
}

func bodyOf(s string) BodyFunc {
	return func() ([]byte, error) { return []byte(s), nil }
}

func run(o *Observer, id, url string, rt network.ResourceType, status int64, body BodyFunc) {
	o.OnRequestWillBeSent("tab1", request(id, url, rt))
	o.OnResponseReceived("tab1", response(id, status))
	o.OnLoadingFinished("tab1", finished(id), body)
}

func TestMatchesIsSubstringOnly(t *testing.T) {
	o := NewObserver(testPattern, &recordingSink{}, 0)
	defer o.Close()

	cases := []struct {
		url  string
		want bool
	}{
		{"https://ttghg.onrender.com/api/v1/trade-plan", true},
		{"https://ttghg.onrender.com/api/v1/trade-plan?ticker=MSFT", true},
		{"http://proxy.local/?u=ttghg.onrender.com/api/v1/trade-plan/x", true},
		{"https://ttghg.onrender.com/api/v1/trade-plans", true},
		{"https://ttghg.onrender.com/api/v1/trade", false},
		{"https://TTGHG.onrender.com/api/v1/trade-plan", false},
		{"https://example.com/", false},
		{"", false},
	}
	for _, tc := range cases {
		if got := o.Matches(tc.url); got != tc.want {
			t.Errorf("Matches(%q) = %v; want %v", tc.url, got, tc.want)
		}
	}

	empty := NewObserver("", &recordingSink{}, 0)
	defer empty.Close()
	if empty.Matches("https://ttghg.onrender.com/api/v1/trade-plan") {
		t.Error("empty pattern must never match")
	}
}

func TestObserverEmitsMatchingJSON(t *testing.T) {
	sink := &recordingSink{}
	o := NewObserver(testPattern, sink, 0)
	fixed := time.Date(2025, time.March, 4, 9, 30, 0, 0, time.UTC)
	o.now = func() time.Time { return fixed }

	url := "https://ttghg.onrender.com/api/v1/trade-plan?ticker=MSFT"
	run(o, "1", url, network.ResourceTypeFetch, 200, bodyOf(" {\"ticker\":\"MSFT\"}\n"))
	run(o, "2", url, network.ResourceTypeXHR, 201, bodyOf(`{"ticker":"AAPL"}`))
	o.Close()

	events := sink.all()
	if len(events) != 2 {
		t.Fatalf("events = %d; want 2", len(events))
	}
	for _, ev := range events {
		if ev.SourceURL != url {
			t.Errorf("SourceURL = %q; want %q", ev.SourceURL, url)
		}
		if !ev.CapturedAt.Equal(fixed) {
			t.Errorf("CapturedAt = %v; want %v", ev.CapturedAt, fixed)
		}
	}
	if string(events[0].Payload) != `{"ticker":"MSFT"}` && string(events[1].Payload) != `{"ticker":"MSFT"}` {
		t.Errorf("payloads = %s, %s", events[0].Payload, events[1].Payload)
	}
	if o.PendingCount() != 0 {
		t.Errorf("PendingCount() = %d; want 0", o.PendingCount())
	}
}

func TestObserverIgnoresNonMatching(t *testing.T) {
	sink := &recordingSink{}
	o := NewObserver(testPattern, sink, 0)

	called := false
	body := func() ([]byte, error) {
		called = true
		return []byte(`{"ticker":"MSFT"}`), nil
	}
	run(o, "1", "https://example.com/api/v1/quotes", network.ResourceTypeFetch, 200, body)
	run(o, "2", "https://ttghg.onrender.com/api/v1/trade-plan", network.ResourceTypeDocument, 200, body)
	run(o, "3", "https://ttghg.onrender.com/api/v1/trade-plan.js", network.ResourceTypeScript, 200, body)
	o.Close()

	if called {
		t.Error("body fetched for a request that should pass through")
	}
	if n := len(sink.all()); n != 0 {
		t.Errorf("events = %d; want 0", n)
	}
}

func TestObserverDropsFailures(t *testing.T) {
	sink := &recordingSink{}
	o := NewObserver(testPattern, sink, 16)
	url := "https://ttghg.onrender.com/api/v1/trade-plan"

	run(o, "status", url, network.ResourceTypeFetch, 500, bodyOf(`{"error":"boom"}`))
	run(o, "parse", url, network.ResourceTypeFetch, 200, bodyOf(`<p>no</p>`))
	run(o, "fetch", url, network.ResourceTypeFetch, 200, func() ([]byte, error) { return nil, errors.New("No resource with given identifier") })
	run(o, "large", url, network.ResourceTypeFetch, 200, bodyOf(`{"ticker":"MSFT","notes":"way past the limit"}`))
	run(o, "nobody", url, network.ResourceTypeFetch, 200, nil)

	o.OnRequestWillBeSent("tab1", request("failed", url, network.ResourceTypeFetch))
	o.OnLoadingFailed("tab1", &network.EventLoadingFailed{RequestID: "failed"})
	o.OnLoadingFinished("tab1", finished("failed"), bodyOf(`{"ticker":"MSFT"}`))
	o.Close()

	if n := len(sink.all()); n != 0 {
		t.Errorf("events = %d; want 0", n)
	}
	if o.PendingCount() != 0 {
		t.Errorf("PendingCount() = %d; want 0", o.PendingCount())
	}
}

func TestObserverRecoversFromSinkPanic(t *testing.T) {
	o := NewObserver(testPattern, panicSink{}, 0)
	run(o, "1", "https://ttghg.onrender.com/api/v1/trade-plan", network.ResourceTypeFetch, 200, bodyOf(`{"ticker":"MSFT"}`))
	o.Close()
}

func TestObserverToleratesMalformedEvents(t *testing.T) {
	o := NewObserver(testPattern, &recordingSink{}, 0)
	defer o.Close()

	o.OnRequestWillBeSent("tab1", nil)
	o.OnRequestWillBeSent("tab1", &network.EventRequestWillBeSent{RequestID: "x"})
	o.OnResponseReceived("tab1", &network.EventResponseReceived{RequestID: "x"})
	o.OnLoadingFinished("tab1", nil, nil)
	o.OnLoadingFailed("tab1", nil)
}

func TestCleanupStaleRemovesOldEntries(t *testing.T) {
	o := NewObserver(testPattern, &recordingSink{}, 0)
	defer o.Close()

	start := time.Date(2025, time.March, 4, 9, 0, 0, 0, time.UTC)
	o.now = func() time.Time { return start }
	o.OnRequestWillBeSent("tab1", request("old", "https://ttghg.onrender.com/api/v1/trade-plan", network.ResourceTypeFetch))

	o.now = func() time.Time { return start.Add(4 * time.Minute) }
	o.OnRequestWillBeSent("tab1", request("new", "https://ttghg.onrender.com/api/v1/trade-plan", network.ResourceTypeXHR))

	o.now = func() time.Time { return start.Add(6 * time.Minute) }
	o.cleanupStale()

	if o.PendingCount() != 1 {
		t.Fatalf("PendingCount() = %d; want 1", o.PendingCount())
	}
	o.pendingMu.Lock()
	_, ok := o.pending["new"]
	o.pendingMu.Unlock()
	if !ok {
		t.Error("fresh entry was swept")
	}
}
