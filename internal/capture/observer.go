package capture

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/dgnsrekt/tradeplan_saver/internal/types"
)

const (
	staleAfter    = 5 * time.Minute
	sweepInterval = 1 * time.Minute
)

// Sink receives capture events from the observer. Deliver must not block for
// long; the bridge implementations hand the event off and return.
type Sink interface {
	Deliver(ctx context.Context, ev types.CaptureEvent)
}

// BodyFunc fetches the browser's copy of a finished response body.
type BodyFunc func() ([]byte, error)

type pendingRequest struct {
	url       string
	status    int64
	seen      bool
	timestamp time.Time
}

// Observer correlates CDP network events for requests whose URL contains the
// configured pattern and emits one CaptureEvent per successful JSON response.
type Observer struct {
	pattern      string
	sink         Sink
	maxBodyBytes int

	pending   map[network.RequestID]*pendingRequest
	pendingMu sync.Mutex

	now       func() time.Time
	inflight  sync.WaitGroup
	done      chan struct{}
	closeOnce sync.Once
}

func NewObserver(pattern string, sink Sink, maxBodyBytes int) *Observer {
	o := &Observer{
		pattern:      pattern,
		sink:         sink,
		maxBodyBytes: maxBodyBytes,
		pending:      make(map[network.RequestID]*pendingRequest),
		now:          time.Now,
		done:         make(chan struct{}),
	}
	go o.cleanupLoop()
	return o
}

// Close stops the sweeper and waits for body fetches already in flight.
func (o *Observer) Close() {
	o.closeOnce.Do(func() { close(o.done) })
	o.inflight.Wait()
}

// Matches reports whether url contains the observer's pattern.
func (o *Observer) Matches(url string) bool {
	if o.pattern == "" || url == "" {
		return false
	}
	return strings.Contains(url, o.pattern)
}

func (o *Observer) PendingCount() int {
	o.pendingMu.Lock()
	defer o.pendingMu.Unlock()
	return len(o.pending)
}

func (o *Observer) OnRequestWillBeSent(tabID string, ev *network.EventRequestWillBeSent) {
	defer o.guard("request_will_be_sent")
	if ev == nil || ev.Request == nil {
		return
	}
	if !observedType(ev.Type) || !o.Matches(ev.Request.URL) {
		return
	}

	o.pendingMu.Lock()
	o.pending[ev.RequestID] = &pendingRequest{url: ev.Request.URL, timestamp: o.now()}
	o.pendingMu.Unlock()

	slog.Debug("Trade plan request observed", "tab_id", tabID, "request_id", ev.RequestID, "url", ev.Request.URL)
}

func (o *Observer) OnResponseReceived(tabID string, ev *network.EventResponseReceived) {
	defer o.guard("response_received")
	if ev == nil || ev.Response == nil {
		return
	}

	o.pendingMu.Lock()
	if pending, ok := o.pending[ev.RequestID]; ok {
		pending.status = ev.Response.Status
		pending.seen = true
	}
	o.pendingMu.Unlock()
}

// OnLoadingFinished removes the pending entry and fetches the body in its own
// goroutine. The body comes from the browser's buffer, so the page's own
// response stays untouched.
func (o *Observer) OnLoadingFinished(tabID string, ev *network.EventLoadingFinished, getBody BodyFunc) {
	defer o.guard("loading_finished")
	if ev == nil {
		return
	}

	o.pendingMu.Lock()
	pending, ok := o.pending[ev.RequestID]
	if ok {
		delete(o.pending, ev.RequestID)
	}
	o.pendingMu.Unlock()

	if !ok {
		return
	}
	if !pending.seen || pending.status < 200 || pending.status > 299 {
		slog.Debug("Dropping trade plan response (status)", "tab_id", tabID, "request_id", ev.RequestID, "status", pending.status)
		return
	}
	if getBody == nil {
		slog.Debug("Dropping trade plan response (no body source)", "tab_id", tabID, "request_id", ev.RequestID)
		return
	}
	if o.maxBodyBytes > 0 && ev.EncodedDataLength > float64(o.maxBodyBytes) {
		slog.Warn("Dropping trade plan response (too large)", "tab_id", tabID, "request_id", ev.RequestID, "encoded_length", int64(ev.EncodedDataLength), "max_body_bytes", o.maxBodyBytes)
		return
	}

	capturedAt := o.now()
	o.inflight.Add(1)
	go func() {
		defer o.inflight.Done()
		defer o.guard("body_fetch")

		body, err := getBody()
		if err != nil {
			slog.Debug("Failed to get response body", "tab_id", tabID, "request_id", ev.RequestID, "error", err)
			return
		}
		o.emit(tabID, string(ev.RequestID), pending.url, body, capturedAt)
	}()
}

func (o *Observer) OnLoadingFailed(tabID string, ev *network.EventLoadingFailed) {
	defer o.guard("loading_failed")
	if ev == nil {
		return
	}
	o.pendingMu.Lock()
	delete(o.pending, ev.RequestID)
	o.pendingMu.Unlock()
}

func (o *Observer) emit(tabID, requestID, url string, body []byte, capturedAt time.Time) {
	if o.maxBodyBytes > 0 && len(body) > o.maxBodyBytes {
		slog.Warn("Dropping trade plan response (too large)", "tab_id", tabID, "request_id", requestID, "size", len(body), "max_body_bytes", o.maxBodyBytes)
		return
	}
	body = bytes.TrimSpace(body)
	if !json.Valid(body) {
		slog.Debug("Dropping trade plan response", "reason", types.ReasonParseError, "tab_id", tabID, "request_id", requestID, "size", len(body))
		return
	}

	payload := make(json.RawMessage, len(body))
	copy(payload, body)

	slog.Info("Trade plan captured", "tab_id", tabID, "request_id", requestID, "url", url, "size", len(payload))
	o.sink.Deliver(context.Background(), types.CaptureEvent{
		Payload:    payload,
		SourceURL:  url,
		CapturedAt: capturedAt,
	})
}

func (o *Observer) guard(stage string) {
	if r := recover(); r != nil {
		slog.Error("Recovered panic in network observer", "stage", stage, "panic", r)
	}
}

func (o *Observer) cleanupLoop() {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			o.cleanupStale()
		case <-o.done:
			return
		}
	}
}

func (o *Observer) cleanupStale() {
	threshold := o.now().Add(-staleAfter)

	o.pendingMu.Lock()
	defer o.pendingMu.Unlock()

	for id, pending := range o.pending {
		if pending.timestamp.Before(threshold) {
			delete(o.pending, id)
		}
	}
}

// observedType accepts the two page call styles. Navigations, scripts and
// other resources are never trade plan API calls.
func observedType(t network.ResourceType) bool {
	return t == network.ResourceTypeFetch || t == network.ResourceTypeXHR
}
