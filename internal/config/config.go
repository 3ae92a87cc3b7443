package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	DefaultURLPattern = "ttghg.onrender.com/api/v1/trade-plan"
	DefaultBindAddr   = "127.0.0.1:8190"
	BridgeModeDirect  = "direct"
	BridgeModeWS      = "ws"
)

// DefaultPortCandidates are tried when DefaultBindAddr is taken.
func DefaultPortCandidates() []string {
	return []string{"127.0.0.1:8191", "127.0.0.1:8192"}
}

// Config holds all configuration for the trade plan saver binaries.
type Config struct {
	// CDP connection settings
	CDPAddress string
	CDPPort    int

	// Tab matching and observation
	TabURLFilter   string
	URLPattern     string
	MaxBodyBytes   int
	ReloadOnAttach bool
	WatchFile      string

	// Persistence
	SaveStrategy  string
	DownloadsDir  string
	SaveDirectory string

	// Settings storage
	SettingsBackend string
	SettingsPath    string

	// Confirmation
	NTFYEndpoint string
	AudioEnabled bool
	AudioPlayer  string

	// Control API
	BindAddr         string
	PortCandidates   []string
	PortAutoFallback bool
	LogLevel         string
	LogFile          string

	// Bridge between observer and coordinator
	BridgeMode    string
	BridgeURL     string
	BridgeOrigin  string
	BridgeOrigins []string
	BridgeQueue   int

	// Browser auto-launch
	BrowserAutoLaunch bool
	BrowserPath       string
	BrowserProfileDir string
	BrowserStartURL   string
}

// Load reads configuration from environment variables and optional .env file.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	}

	bindAddr := getEnvOrDefault("SAVER_BIND_ADDR", DefaultBindAddr)
	cfg := &Config{
		CDPAddress:        getEnvOrDefault("CHROMIUM_CDP_ADDRESS", "127.0.0.1"),
		CDPPort:           getEnvIntOrDefault("CHROMIUM_CDP_PORT", 9220),
		TabURLFilter:      getEnvOrDefault("SAVER_TAB_URL_FILTER", "ttghg.onrender.com"),
		URLPattern:        getEnvOrDefault("SAVER_URL_PATTERN", DefaultURLPattern),
		MaxBodyBytes:      getEnvIntOrDefault("SAVER_MAX_BODY_BYTES", 10*1024*1024),
		ReloadOnAttach:    getEnvBoolOrDefault("SAVER_RELOAD_ON_ATTACH", false),
		WatchFile:         getEnvOrDefault("SAVER_WATCH_FILE", ""),
		SaveStrategy:      strings.ToLower(getEnvOrDefault("SAVE_STRATEGY", "downloads")),
		DownloadsDir:      getEnvOrDefault("SAVER_DOWNLOADS_DIR", defaultDownloadsDir()),
		SaveDirectory:     getEnvOrDefault("SAVER_SAVE_DIRECTORY", ""),
		SettingsBackend:   strings.ToLower(getEnvOrDefault("SAVER_SETTINGS_BACKEND", "file")),
		SettingsPath:      getEnvOrDefault("SAVER_SETTINGS_PATH", ""),
		NTFYEndpoint:      getEnvOrDefault("NTFY_ENDPOINT", ""),
		AudioEnabled:      getEnvBoolOrDefault("SAVER_AUDIO_ENABLED", true),
		AudioPlayer:       getEnvOrDefault("SAVER_AUDIO_PLAYER", ""),
		BindAddr:          bindAddr,
		PortCandidates:    getEnvListOrDefault("SAVER_PORT_CANDIDATES", DefaultPortCandidates()),
		PortAutoFallback:  getEnvBoolOrDefault("SAVER_PORT_AUTO_FALLBACK", true),
		LogLevel:          strings.ToLower(getEnvOrDefault("SAVER_LOG_LEVEL", "info")),
		LogFile:           getEnvOrDefault("SAVER_LOG_FILE", "logs/tradeplan_saver.log"),
		BridgeMode:        strings.ToLower(getEnvOrDefault("BRIDGE_MODE", BridgeModeDirect)),
		BridgeURL:         getEnvOrDefault("BRIDGE_URL", BridgeURLFor(bindAddr)),
		BridgeOrigin:      getEnvOrDefault("BRIDGE_ORIGIN", "http://localhost"),
		BridgeOrigins:     getEnvListOrDefault("BRIDGE_ALLOWED_ORIGINS", []string{"http://localhost", "http://127.0.0.1"}),
		BridgeQueue:       getEnvIntOrDefault("BRIDGE_QUEUE_SIZE", 32),
		BrowserAutoLaunch: getEnvBoolOrDefault("BROWSER_AUTO_LAUNCH", false),
		BrowserPath:       getEnvOrDefault("BROWSER_PATH", ""),
		BrowserProfileDir: getEnvOrDefault("BROWSER_PROFILE_DIR", ""),
		BrowserStartURL:   getEnvOrDefault("BROWSER_START_URL", "https://ttghg.onrender.com/"),
	}
	if cfg.SettingsPath == "" {
		cfg.SettingsPath = defaultSettingsPath(cfg.SettingsBackend)
	}

	if cfg.WatchFile != "" {
		watch, err := LoadWatch(cfg.WatchFile)
		if err != nil {
			return nil, err
		}
		watch.Apply(cfg)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects combinations the binaries cannot run with.
func (c *Config) Validate() error {
	switch c.SaveStrategy {
	case "downloads", "directory", "browser":
	default:
		return fmt.Errorf("config: unknown SAVE_STRATEGY %q", c.SaveStrategy)
	}
	switch c.SettingsBackend {
	case "file", "sqlite":
	default:
		return fmt.Errorf("config: unknown SAVER_SETTINGS_BACKEND %q", c.SettingsBackend)
	}
	switch c.BridgeMode {
	case BridgeModeDirect, BridgeModeWS:
	default:
		return fmt.Errorf("config: unknown BRIDGE_MODE %q", c.BridgeMode)
	}
	if c.URLPattern == "" {
		return fmt.Errorf("config: SAVER_URL_PATTERN must not be empty")
	}
	if c.BridgeQueue < 1 {
		c.BridgeQueue = 1
	}
	return nil
}

// BridgeURLFor returns the bridge websocket URL served at a bind address.
func BridgeURLFor(bindAddr string) string {
	return "ws://" + bindAddr + "/api/v1/bridge"
}

// GetCDPURL returns the full CDP HTTP endpoint used by chromedp remote allocator.
func (c *Config) GetCDPURL() string {
	return fmt.Sprintf("http://%s:%d", c.CDPAddress, c.CDPPort)
}

func defaultDownloadsDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./downloads"
	}
	return filepath.Join(home, "Downloads")
}

func defaultSettingsPath(backend string) string {
	name := "settings.json"
	if backend == "sqlite" {
		name = "settings.db"
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return filepath.Join(".", name)
	}
	return filepath.Join(dir, "tradeplan_saver", name)
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvIntOrDefault(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvBoolOrDefault(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}

func getEnvListOrDefault(key string, defaultVal []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultVal
	}
	return out
}
