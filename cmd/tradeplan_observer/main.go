package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/dgnsrekt/tradeplan_saver/internal/bridge"
	"github.com/dgnsrekt/tradeplan_saver/internal/capture"
	"github.com/dgnsrekt/tradeplan_saver/internal/cdp"
	"github.com/dgnsrekt/tradeplan_saver/internal/config"
	"github.com/dgnsrekt/tradeplan_saver/internal/logging"
)

const defaultLogFile = "logs/tradeplan_saver.log"

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logFile := cfg.LogFile
	if logFile == defaultLogFile {
		logFile = "logs/tradeplan_observer.log"
	}
	if err := logging.Setup(cfg.LogLevel, logFile); err != nil {
		if _, writeErr := io.WriteString(os.Stderr, "logger setup failed: "+err.Error()+"\n"); writeErr != nil {
			slog.Debug("logger setup stderr write failed", "error", writeErr)
		}
		os.Exit(1)
	}

	slog.Info("tradeplan_observer config loaded",
		"cdp_address", cfg.CDPAddress,
		"cdp_port", cfg.CDPPort,
		"url_pattern", cfg.URLPattern,
		"tab_url_filter", cfg.TabURLFilter,
		"bridge_url", cfg.BridgeURL,
		"bridge_origin", cfg.BridgeOrigin,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sender := bridge.NewSender(cfg.BridgeURL, cfg.BridgeOrigin, cfg.BridgeQueue)
	sender.Start(ctx)

	observer := capture.NewObserver(cfg.URLPattern, sender, cfg.MaxBodyBytes)
	cdpClient := cdp.NewClient(cfg, observer, cdp.NewTabRegistry())
	if err := cdpClient.Connect(ctx); err != nil {
		slog.Error("Failed to connect to browser", "cdp_url", cfg.GetCDPURL(), "error", err)
		slog.Info("Make sure Chromium is running with remote debugging enabled")
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
	sender.Close()

	sent, dropped := sender.Stats()
	slog.Info("tradeplan_observer stopped", "sent", sent, "dropped", dropped)
}
