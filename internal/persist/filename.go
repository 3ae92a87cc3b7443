package persist

import (
	"fmt"
	"strings"
	"time"
)

// GenerateFilename builds trade-plan-<TICKER>-<YYMMDD>-<HHMM>.json using the
// local clock. The ticker is upper-cased and stripped to [A-Z0-9].
func GenerateFilename(ticker string, ts time.Time) string {
	local := ts.Local()
	return fmt.Sprintf("trade-plan-%s-%s-%s.json",
		SanitizeTicker(ticker),
		local.Format("060102"),
		local.Format("1504"),
	)
}

// SanitizeTicker upper-cases the ticker and drops anything outside [A-Z0-9].
func SanitizeTicker(ticker string) string {
	upper := strings.ToUpper(ticker)
	var b strings.Builder
	b.Grow(len(upper))
	for _, r := range upper {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}
