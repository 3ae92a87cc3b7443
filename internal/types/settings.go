package types

// Settings is the flat durable settings record. Only IsEnabled is consulted by
// the capture path; the rest tune the optional collaborators.
type Settings struct {
	IsEnabled     bool    `json:"isEnabled"`
	AudioEnabled  bool    `json:"audioEnabled"`
	Volume        float64 `json:"volume"`
	DirectoryPath string  `json:"directoryPath,omitempty"`
}

// DefaultSettings mirrors a fresh install: capture off, beep on at 70%.
func DefaultSettings() Settings {
	return Settings{
		IsEnabled:    false,
		AudioEnabled: true,
		Volume:       0.7,
	}
}
