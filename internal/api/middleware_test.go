package api

import (
	"bufio"
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"testing"
)

type logBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *logBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

// records returns every JSON log line whose msg equals msg.
func (b *logBuffer) records(t *testing.T, msg string) []map[string]any {
	t.Helper()
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []map[string]any
	sc := bufio.NewScanner(bytes.NewReader(b.buf.Bytes()))
	for sc.Scan() {
		var rec map[string]any
		if err := json.Unmarshal(sc.Bytes(), &rec); err != nil {
			t.Fatalf("decode log line %q: %v", sc.Text(), err)
		}
		if rec["msg"] == msg {
			out = append(out, rec)
		}
	}
	return out
}

func captureLogs(t *testing.T) *logBuffer {
	t.Helper()
	buf := &logBuffer{}
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	t.Cleanup(func() { slog.SetDefault(prev) })
	return buf
}

func TestRequestLoggerTagsCaptureOutcome(t *testing.T) {
	logs := captureLogs(t)
	env := newTestEnv(t)
	msg := `{"kind":"trade-plan-captured","payload":{"ticker":"nvda"},"sourceUrl":"https://ttghg.onrender.com/api/v1/trade-plan","capturedAt":1741080600000}`

	env.do(t, http.MethodPost, "/api/v1/capture", msg)
	env.do(t, http.MethodPost, "/api/v1/toggle", `{"enabled":true}`)
	env.do(t, http.MethodPost, "/api/v1/messages", msg)

	recs := logs.records(t, "capture request")
	if len(recs) != 2 {
		t.Fatalf("got %d capture request lines; want 2", len(recs))
	}
	if recs[0]["succeeded"] != false || recs[0]["reason"] != "disabled" || recs[0]["path"] != "/api/v1/capture" {
		t.Errorf("disabled capture line = %v", recs[0])
	}
	if recs[1]["succeeded"] != true || recs[1]["ticker"] != "nvda" || recs[1]["path"] != "/api/v1/messages" {
		t.Errorf("saved capture line = %v", recs[1])
	}
	if name, _ := recs[1]["saved_name"].(string); name == "" {
		t.Errorf("saved capture line has no saved_name: %v", recs[1])
	}

	plain := logs.records(t, "http request")
	if len(plain) != 1 || plain[0]["path"] != "/api/v1/toggle" {
		t.Fatalf("http request lines = %v; want only the toggle", plain)
	}
	if _, ok := plain[0]["reason"]; ok {
		t.Errorf("toggle line carries a capture reason: %v", plain[0])
	}
}

func TestRequestLoggerSkipsStreams(t *testing.T) {
	logs := captureLogs(t)
	env := newTestEnv(t)

	req, _ := http.NewRequest(http.MethodGet, "/api/v1/bridge", nil)
	req.Header.Set("Origin", "http://evil.example")
	env.handler.ServeHTTP(&discardWriter{header: http.Header{}}, req)

	if recs := logs.records(t, "http request"); len(recs) != 0 {
		t.Fatalf("bridge request was logged as a plain request: %v", recs)
	}
}

type discardWriter struct {
	header http.Header
	status int
}

func (d *discardWriter) Header() http.Header         { return d.header }
func (d *discardWriter) Write(p []byte) (int, error) { return len(p), nil }
func (d *discardWriter) WriteHeader(status int)      { d.status = status }
