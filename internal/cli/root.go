// Package cli implements tradeplanctl, the settings surface for a running
// saver.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/dgnsrekt/tradeplan_saver/internal/apiclient"
	"github.com/dgnsrekt/tradeplan_saver/internal/config"
)

type rootFlags struct {
	Server  string
	Timeout time.Duration
}

func Execute() error {
	return newRootCmd(os.Stdout).Execute()
}

func newRootCmd(out io.Writer) *cobra.Command {
	rf := &rootFlags{}
	rootCmd := &cobra.Command{
		Use:           "tradeplanctl",
		Short:         "Control a running trade plan saver (enable, disable, status, watch)",
		SilenceUsage: true,
	}
	rootCmd.SetOut(out)

	defaultServer := os.Getenv("SAVER_BIND_ADDR")
	if defaultServer == "" {
		defaultServer = config.DefaultBindAddr
	}
	rootCmd.PersistentFlags().StringVar(&rf.Server, "server", defaultServer, "Saver API address (defaults to SAVER_BIND_ADDR)")
	rootCmd.PersistentFlags().DurationVar(&rf.Timeout, "timeout", 10*time.Second, "Request timeout")

	rootCmd.AddCommand(statusCmd(rf))
	rootCmd.AddCommand(toggleCmd(rf, "enable", true))
	rootCmd.AddCommand(toggleCmd(rf, "disable", false))
	rootCmd.AddCommand(settingsCmd(rf))
	rootCmd.AddCommand(watchCmd(rf))

	return rootCmd
}

func (rf *rootFlags) client() *apiclient.Client {
	return apiclient.New(rf.Server, nil)
}

func (rf *rootFlags) context() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), rf.Timeout)
}

func onOff(v bool) string {
	if v {
		return "on"
	}
	return "off"
}

func printf(cmd *cobra.Command, format string, args ...any) {
	fmt.Fprintf(cmd.OutOrStdout(), format, args...)
}
