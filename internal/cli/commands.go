package cli

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dgnsrekt/tradeplan_saver/internal/apiclient"
)

func statusCmd(rf *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show whether capture is enabled and the current settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := rf.context()
			defer cancel()

			st, err := rf.client().Status(ctx)
			if err != nil {
				return err
			}
			dir := st.Settings.DirectoryPath
			if dir == "" {
				dir = "(not set)"
			}
			printf(cmd, "capture:   %s\n", onOff(st.Enabled))
			printf(cmd, "state:     %s\n", st.State)
			printf(cmd, "audio:     %s (volume %.2f)\n", onOff(st.Settings.AudioEnabled), st.Settings.Volume)
			printf(cmd, "directory: %s\n", dir)
			return nil
		},
	}
}

func toggleCmd(rf *rootFlags, use string, enabled bool) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: strings.ToUpper(use[:1]) + use[1:] + " trade plan capture",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := rf.context()
			defer cancel()

			res, err := rf.client().Toggle(ctx, enabled)
			if err != nil {
				return err
			}
			if !res.Succeeded {
				return errors.New("saver did not accept the toggle")
			}
			printf(cmd, "capture %s\n", onOff(res.Enabled))
			return nil
		},
	}
}

func settingsCmd(rf *rootFlags) *cobra.Command {
	var (
		audio  bool
		volume float64
		dir    string
	)
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Change audio and save directory settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var patch apiclient.SettingsUpdate
			if cmd.Flags().Changed("audio") {
				patch.AudioEnabled = &audio
			}
			if cmd.Flags().Changed("volume") {
				patch.Volume = &volume
			}
			if cmd.Flags().Changed("dir") {
				patch.DirectoryPath = &dir
			}
			if patch == (apiclient.SettingsUpdate{}) {
				return errors.New("nothing to change: pass --audio, --volume or --dir")
			}

			ctx, cancel := rf.context()
			defer cancel()
			got, err := rf.client().UpdateSettings(ctx, patch)
			if err != nil {
				return err
			}
			printf(cmd, "audio %s, volume %.2f, directory %q\n", onOff(got.AudioEnabled), got.Volume, got.DirectoryPath)
			return nil
		},
	}
	cmd.Flags().BoolVar(&audio, "audio", true, "Play a beep after each save")
	cmd.Flags().Float64Var(&volume, "volume", 0.7, "Beep volume between 0 and 1")
	cmd.Flags().StringVar(&dir, "dir", "", "Directory used by the directory save strategy")
	return cmd
}

func watchCmd(rf *rootFlags) *cobra.Command {
	var typesFlag []string
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Stream save outcomes as they happen",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			err := rf.client().Watch(ctx, typesFlag, func(ev apiclient.Event) error {
				printf(cmd, "%s %s\n", ev.Type, ev.Data)
				return nil
			})
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
	cmd.Flags().StringSliceVar(&typesFlag, "types", nil, "Event types to show (saved, failed)")
	return cmd
}
