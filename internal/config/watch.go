package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// WatchConfig overrides which tabs and which endpoint the observer watches.
type WatchConfig struct {
	URLPattern   string `yaml:"url_pattern"`
	TabURLFilter string `yaml:"tab_url_filter"`
	MaxBodyBytes int    `yaml:"max_body_bytes"`
}

// LoadWatch reads a watch YAML file. Absent fields leave the env values alone.
func LoadWatch(path string) (*WatchConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("watch config: %w", err)
	}
	var w WatchConfig
	if err := yaml.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("watch config: %w", err)
	}
	if w.MaxBodyBytes < 0 {
		return nil, fmt.Errorf("watch config: max_body_bytes must not be negative")
	}
	return &w, nil
}

// Apply copies the non-empty fields onto cfg.
func (w *WatchConfig) Apply(cfg *Config) {
	if w.URLPattern != "" {
		cfg.URLPattern = w.URLPattern
	}
	if w.TabURLFilter != "" {
		cfg.TabURLFilter = w.TabURLFilter
	}
	if w.MaxBodyBytes > 0 {
		cfg.MaxBodyBytes = w.MaxBodyBytes
	}
}
