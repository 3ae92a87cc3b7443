package browser

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"
)

func TestLauncherArgs(t *testing.T) {
	l := NewLauncher(Config{CDPAddress: "127.0.0.1", CDPPort: 9220, ProfileDir: "/tmp/p", StartURL: "https://ttghg.onrender.com/"})
	args := l.args()
	joined := strings.Join(args, " ")
	for _, want := range []string{"--remote-debugging-port=9220", "--remote-debugging-address=127.0.0.1", "--user-data-dir=/tmp/p"} {
		if !strings.Contains(joined, want) {
			t.Errorf("args missing %q: %v", want, args)
		}
	}
	if args[len(args)-1] != "https://ttghg.onrender.com/" {
		t.Errorf("start url must be last: %v", args)
	}
}

func TestDetectBrowserConfiguredMissing(t *testing.T) {
	if _, err := detectBrowser(filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Fatal("expected error for missing configured binary")
	}
}

func TestLaunchSkipsWhenPortInUse(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()
	port := ln.Addr().(*net.TCPAddr).Port

	l := NewLauncher(Config{CDPAddress: "127.0.0.1", CDPPort: port, BinaryPath: "/definitely/missing"})
	if err := l.Launch(context.Background()); err != nil {
		t.Fatalf("Launch() error = %v", err)
	}
	if l.Running() {
		t.Error("Running() = true; want false when reusing an existing browser")
	}
}

func TestWaitForCDP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/json/version" {
			_, _ = w.Write([]byte(`{"Browser":"Chrome"}`))
			return
		}
		http.NotFound(w, r)
	}))
	defer srv.Close()

	host, portStr, _ := net.SplitHostPort(strings.TrimPrefix(srv.URL, "http://"))
	port, _ := strconv.Atoi(portStr)
	if err := waitForCDP(context.Background(), host, port, 2*time.Second); err != nil {
		t.Fatalf("waitForCDP() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := waitForCDP(ctx, "127.0.0.1", 1, time.Second); err == nil {
		t.Error("expected error for cancelled context")
	}
}
