package api

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/dgnsrekt/tradeplan_saver/internal/types"
)

type outcomeKey struct{}

// captureOutcome carries a capture result from the handler back to the
// request logger.
type captureOutcome struct {
	mu  sync.Mutex
	res *types.CaptureResult
}

func (o *captureOutcome) set(res types.CaptureResult) {
	o.mu.Lock()
	o.res = &res
	o.mu.Unlock()
}

func (o *captureOutcome) get() (types.CaptureResult, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.res == nil {
		return types.CaptureResult{}, false
	}
	return *o.res, true
}

// recordOutcome tags the current request with res. It is a no-op outside the
// request logger.
func recordOutcome(ctx context.Context, res types.CaptureResult) {
	if o, ok := ctx.Value(outcomeKey{}).(*captureOutcome); ok {
		o.set(res)
	}
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Long-lived streams log their own lifecycle.
		if r.URL.Path == "/api/v1/events" || r.URL.Path == "/api/v1/bridge" {
			next.ServeHTTP(w, r)
			return
		}

		start := time.Now()
		outcome := &captureOutcome{}
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r.WithContext(context.WithValue(r.Context(), outcomeKey{}, outcome)))

		attrs := []any{
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()),
		}
		res, ok := outcome.get()
		if !ok {
			slog.Info("http request", attrs...)
			return
		}
		attrs = append(attrs, "succeeded", res.Succeeded)
		if res.Succeeded {
			attrs = append(attrs, "ticker", res.Ticker, "saved_name", res.SavedName)
			slog.Info("capture request", attrs...)
			return
		}
		attrs = append(attrs, "reason", res.Reason)
		if res.ErrorMessage != "" {
			attrs = append(attrs, "error", res.ErrorMessage)
		}
		if res.Reason == types.ReasonPersistenceError {
			slog.Warn("capture request", attrs...)
			return
		}
		slog.Info("capture request", attrs...)
	})
}
