package main

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/dgnsrekt/tradeplan_saver/internal/api"
	"github.com/dgnsrekt/tradeplan_saver/internal/audio"
	"github.com/dgnsrekt/tradeplan_saver/internal/bridge"
	"github.com/dgnsrekt/tradeplan_saver/internal/browser"
	"github.com/dgnsrekt/tradeplan_saver/internal/capture"
	"github.com/dgnsrekt/tradeplan_saver/internal/cdp"
	"github.com/dgnsrekt/tradeplan_saver/internal/config"
	"github.com/dgnsrekt/tradeplan_saver/internal/coordinator"
	"github.com/dgnsrekt/tradeplan_saver/internal/events"
	"github.com/dgnsrekt/tradeplan_saver/internal/logging"
	"github.com/dgnsrekt/tradeplan_saver/internal/netutil"
	"github.com/dgnsrekt/tradeplan_saver/internal/notify"
	"github.com/dgnsrekt/tradeplan_saver/internal/persist"
	"github.com/dgnsrekt/tradeplan_saver/internal/settings"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	if err := logging.Setup(cfg.LogLevel, cfg.LogFile); err != nil {
		if _, writeErr := io.WriteString(os.Stderr, "logger setup failed: "+err.Error()+"\n"); writeErr != nil {
			slog.Debug("logger setup stderr write failed", "error", writeErr)
		}
		os.Exit(1)
	}

	slog.Info("tradeplan_saver config loaded",
		"bind_addr", cfg.BindAddr,
		"url_pattern", cfg.URLPattern,
		"tab_url_filter", cfg.TabURLFilter,
		"save_strategy", cfg.SaveStrategy,
		"settings_backend", cfg.SettingsBackend,
		"settings_path", cfg.SettingsPath,
		"bridge_mode", cfg.BridgeMode,
		"log_level", cfg.LogLevel,
		"log_file", cfg.LogFile,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bindAddr, err := netutil.SelectBindAddr(cfg.BindAddr, cfg.PortCandidates, cfg.PortAutoFallback)
	if err != nil {
		slog.Error("failed to select bind address", "preferred", cfg.BindAddr, "error", err)
		os.Exit(1)
	}

	var launcher *browser.Launcher
	if cfg.BrowserAutoLaunch {
		launcher = browser.NewLauncher(browser.Config{
			CDPAddress: cfg.CDPAddress,
			CDPPort:    cfg.CDPPort,
			StartURL:   cfg.BrowserStartURL,
			ProfileDir: cfg.BrowserProfileDir,
			BinaryPath: cfg.BrowserPath,
		})
		if err := launcher.Launch(ctx); err != nil {
			slog.Error("failed to launch browser", "error", err)
			os.Exit(1)
		}
		defer launcher.Stop()
	}

	store, err := settings.Open(cfg.SettingsBackend, cfg.SettingsPath)
	if err != nil {
		slog.Error("failed to open settings store", "backend", cfg.SettingsBackend, "path", cfg.SettingsPath, "error", err)
		os.Exit(1)
	}
	if closer, ok := store.(io.Closer); ok {
		defer func() {
			if err := closer.Close(); err != nil {
				slog.Debug("settings store close failed", "error", err)
			}
		}()
	}

	// The browser strategy runs in an attached tab. The client is assigned
	// below, before any capture can reach the saver.
	var cdpClient *cdp.Client
	tabs := persist.TabRunnerFunc(func(ctx context.Context, actions ...chromedp.Action) error {
		return cdpClient.RunInTab(ctx, actions...)
	})
	saver, err := persist.New(cfg.SaveStrategy, cfg.DownloadsDir, cfg.SaveDirectory, tabs)
	if err != nil {
		slog.Error("failed to build saver", "strategy", cfg.SaveStrategy, "error", err)
		os.Exit(1)
	}

	broker := events.NewBroker()
	svc := coordinator.NewService(store, saver, newNotifier(cfg), newBeeper(cfg), broker)
	if err := svc.Init(ctx); err != nil {
		slog.Warn("failed to read settings at startup", "error", err)
	}

	var (
		sink   capture.Sink
		direct *bridge.Direct
		sender *bridge.Sender
	)
	switch cfg.BridgeMode {
	case config.BridgeModeWS:
		bridgeURL := cfg.BridgeURL
		if bindAddr != cfg.BindAddr && bridgeURL == config.BridgeURLFor(cfg.BindAddr) {
			bridgeURL = config.BridgeURLFor(bindAddr)
		}
		sender = bridge.NewSender(bridgeURL, cfg.BridgeOrigin, cfg.BridgeQueue)
		sender.Start(ctx)
		sink = sender
		slog.Info("relaying captures over websocket bridge", "url", bridgeURL)
	default:
		direct = bridge.NewDirect(svc)
		sink = direct
	}

	observer := capture.NewObserver(cfg.URLPattern, sink, cfg.MaxBodyBytes)
	cdpClient = cdp.NewClient(cfg, observer, cdp.NewTabRegistry())
	h := api.NewServer(svc, api.Options{
		Broker: broker,
		Bridge: bridge.NewHandler(svc, cfg.BridgeOrigins),
		Tabs:   cdpClient.Tabs,
	})
	srv := &http.Server{Addr: bindAddr, Handler: h}

	go func() {
		slog.Info("tradeplan_saver listening", "addr", bindAddr, "docs", "http://"+bindAddr+"/docs")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("tradeplan_saver server failed", "error", err)
			os.Exit(1)
		}
	}()

	if err := cdpClient.Connect(ctx); err != nil {
		slog.Error("Failed to connect to browser", "cdp_url", cfg.GetCDPURL(), "error", err)
		slog.Info("Make sure Chromium is running with remote debugging enabled, or set BROWSER_AUTO_LAUNCH=true")
		os.Exit(1)
	}
	go cdpClient.Watch(ctx)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	slog.Info("Shutting down")

	cancel()
	if err := cdpClient.Close(); err != nil {
		slog.Debug("CDP client close failed", "error", err)
	}
	observer.Close()
	if sender != nil {
		sender.Close()
	}
	if direct != nil {
		direct.Wait()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("tradeplan_saver shutdown failed", "error", err)
	}
}

func newNotifier(cfg *config.Config) coordinator.Notifier {
	if cfg.NTFYEndpoint == "" {
		return notify.Log{}
	}
	return notify.NewNTFY(cfg.NTFYEndpoint, &http.Client{Timeout: 10 * time.Second})
}

func newBeeper(cfg *config.Config) coordinator.Beeper {
	if !cfg.AudioEnabled {
		return audio.Nop{}
	}
	synth, err := audio.NewSynth(cfg.AudioPlayer)
	if err != nil {
		slog.Warn("audio disabled", "error", err)
		return audio.Nop{}
	}
	return synth
}
