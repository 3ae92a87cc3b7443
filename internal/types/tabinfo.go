package types

// TabInfo holds metadata about an attached browser tab.
type TabInfo struct {
	TargetID  string `json:"target_id"`
	URL       string `json:"url"`
	BrowserID string `json:"browser_id"` // Short ID from target ID, e.g., "B0D5A8E8"
}
