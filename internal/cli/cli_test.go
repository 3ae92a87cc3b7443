package cli

import (
	"bytes"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dgnsrekt/tradeplan_saver/internal/api"
	"github.com/dgnsrekt/tradeplan_saver/internal/audio"
	"github.com/dgnsrekt/tradeplan_saver/internal/coordinator"
	"github.com/dgnsrekt/tradeplan_saver/internal/notify"
	"github.com/dgnsrekt/tradeplan_saver/internal/persist"
	"github.com/dgnsrekt/tradeplan_saver/internal/settings"
)

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	dir := t.TempDir()
	store, err := settings.NewFileStore(filepath.Join(dir, "settings.json"))
	if err != nil {
		t.Fatalf("NewFileStore() failed: %v", err)
	}
	svc := coordinator.NewService(store, persist.NewDownloadsSaver(dir), notify.Log{}, audio.Nop{}, nil)
	srv := httptest.NewServer(api.NewServer(svc, api.Options{}))
	t.Cleanup(srv.Close)
	return srv
}

func run(t *testing.T, srv *httptest.Server, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--server", srv.URL}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestEnableDisableStatus(t *testing.T) {
	srv := newServer(t)

	out, err := run(t, srv, "status")
	if err != nil || !strings.Contains(out, "capture:   off") {
		t.Fatalf("status = %q, %v", out, err)
	}

	out, err = run(t, srv, "enable")
	if err != nil || !strings.Contains(out, "capture on") {
		t.Fatalf("enable = %q, %v", out, err)
	}
	out, err = run(t, srv, "status")
	if err != nil || !strings.Contains(out, "capture:   on") {
		t.Fatalf("status after enable = %q, %v", out, err)
	}

	out, err = run(t, srv, "disable")
	if err != nil || !strings.Contains(out, "capture off") {
		t.Fatalf("disable = %q, %v", out, err)
	}
}

func TestSettingsCommand(t *testing.T) {
	srv := newServer(t)

	if _, err := run(t, srv, "settings"); err == nil {
		t.Fatal("expected error without flags")
	}
	if _, err := run(t, srv, "settings", "--volume", "1.5"); err == nil {
		t.Fatal("expected validation error for volume")
	}

	out, err := run(t, srv, "settings", "--audio=false", "--dir", "/srv/plans")
	if err != nil {
		t.Fatalf("settings error = %v", err)
	}
	if !strings.Contains(out, "audio off") || !strings.Contains(out, `"/srv/plans"`) || !strings.Contains(out, "volume 0.70") {
		t.Fatalf("settings output = %q", out)
	}
}

func TestStatusUnreachableServer(t *testing.T) {
	srv := newServer(t)
	srv.Close()
	if _, err := run(t, srv, "status"); err == nil {
		t.Fatal("expected error for unreachable server")
	}
}
