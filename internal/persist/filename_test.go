package persist

import (
	"strings"
	"testing"
	"time"
)

func TestGenerateFilenameFormat(t *testing.T) {
	ts := time.Date(2025, time.January, 2, 3, 4, 59, 0, time.Local)
	got := GenerateFilename("msft", ts)
	if want := "trade-plan-MSFT-250102-0304.json"; got != want {
		t.Fatalf("GenerateFilename() = %q; want %q", got, want)
	}
}

func TestGenerateFilenameSanitizesTicker(t *testing.T) {
	for _, ts := range []time.Time{
		time.Unix(0, 0),
		time.Date(2024, time.December, 31, 23, 59, 0, 0, time.UTC),
		time.Now(),
	} {
		got := GenerateFilename("aapl 1", ts)
		if !strings.HasPrefix(got, "trade-plan-AAPL1-") {
			t.Fatalf("GenerateFilename(%v) = %q; want prefix %q", ts, got, "trade-plan-AAPL1-")
		}
	}
}

func TestGenerateFilenameDeterministic(t *testing.T) {
	ts := time.UnixMilli(1718000000123)
	first := GenerateFilename("BRK.B", ts)
	for i := 0; i < 5; i++ {
		if got := GenerateFilename("BRK.B", ts); got != first {
			t.Fatalf("GenerateFilename() = %q; want %q", got, first)
		}
	}
	if !strings.HasPrefix(first, "trade-plan-BRKB-") {
		t.Fatalf("GenerateFilename() = %q; want BRKB ticker", first)
	}
}

func TestGenerateFilenameUsesLocalClock(t *testing.T) {
	ts := time.Date(2025, time.June, 30, 22, 15, 0, 0, time.FixedZone("east", 5*3600))
	local := ts.Local()
	want := "trade-plan-X-" + local.Format("060102") + "-" + local.Format("1504") + ".json"
	if got := GenerateFilename("x", ts); got != want {
		t.Fatalf("GenerateFilename() = %q; want %q", got, want)
	}
}

func TestSanitizeTicker(t *testing.T) {
	cases := map[string]string{
		"aapl 1":   "AAPL1",
		"BTC-USD":  "BTCUSD",
		"  spy  ":  "SPY",
		"ünïcode9": "NCODE9",
		"":         "",
	}
	for in, want := range cases {
		if got := SanitizeTicker(in); got != want {
			t.Errorf("SanitizeTicker(%q) = %q; want %q", in, got, want)
		}
	}
}
