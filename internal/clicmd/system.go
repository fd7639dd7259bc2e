package clicmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"chronicle/internal/coordinator"

	"github.com/spf13/cobra"
)

var systemCmd = &cobra.Command{
	Use:     "system",
	GroupID: GroupSystem,
	Short:   "Run or inspect the Coordinator",
	Long: `system runs the same Coordinator chronicled runs. There is no
RPC/IPC transport between this CLI and a separately-running chronicled
process (that transport is treated as an external collaborator concern),
so "start" here runs the Coordinator in the foreground of this process
rather than reaching into another one. There is no separate "stop"
command: interrupting that foreground run (ctrl-c) stops it.`,
}

var systemStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Run the Coordinator in the foreground until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := configPath(cmd)
		if err != nil {
			return err
		}
		cfg, store, images, err := openStores(path)
		if err != nil {
			return err
		}
		defer store.Close()

		coord := coordinator.New(cfg, store, images)
		ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		if err := coord.Start(ctx); err != nil {
			return fmt.Errorf("start coordinator: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "coordinator state: %s (ctrl-c to stop)\n", coord.State())

		<-ctx.Done()
		coord.Stop()
		return nil
	},
}

var systemStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Report a snapshot Status as if the Coordinator had just started",
	Long: `Without a live daemon to query, this builds a fresh Coordinator
against the same database and reports its Status immediately: the active
model, capture resource stats, and (necessarily empty, since nothing is
running) window/buffer/pipeline counters.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := configPath(cmd)
		if err != nil {
			return err
		}
		cfg, store, images, err := openStores(path)
		if err != nil {
			return err
		}
		defer store.Close()

		coord := coordinator.New(cfg, store, images)
		return printJSON(coord.Status(cmd.Context()))
	},
}

var systemGetDatabasePathCmd = &cobra.Command{
	Use:   "get-database-path",
	Short: "Print the configured SQLite database path",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := configPath(cmd)
		if err != nil {
			return err
		}
		cfg, store, _, err := openStores(path)
		if err != nil {
			return err
		}
		defer store.Close()
		fmt.Fprintln(cmd.OutOrStdout(), cfg.Database.Path)
		return nil
	},
}

var systemGetSettingsCmd = &cobra.Command{
	Use:   "get-settings",
	Short: "Print the full resolved configuration as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := configPath(cmd)
		if err != nil {
			return err
		}
		cfg, store, _, err := openStores(path)
		if err != nil {
			return err
		}
		defer store.Close()
		return printJSON(cfg)
	},
}

var (
	settingsCaptureInterval float64
	settingsProcessingSecs  int
	settingsWindowSize      int
	settingsDebug           bool
)

var systemUpdateSettingsCmd = &cobra.Command{
	Use:   "update-settings",
	Short: "Update monitoring/server settings and rewrite config.toml",
	Long: `update-settings loads the current config.toml, applies any
explicitly-set flags, and writes the result back. Unlike the bootstrap
loader, the rewritten file no longer carries ${VAR} interpolation syntax
for the fields touched here — acceptable for an explicit operator edit,
unlike the automatic first-run template.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := configPath(cmd)
		if err != nil {
			return err
		}
		cfg, store, _, err := openStores(path)
		if err != nil {
			return err
		}
		defer store.Close()

		if cmd.Flags().Changed("capture-interval") {
			cfg.Monitoring.CaptureInterval = settingsCaptureInterval
		}
		if cmd.Flags().Changed("processing-interval") {
			cfg.Monitoring.ProcessingInterval = settingsProcessingSecs
		}
		if cmd.Flags().Changed("window-size") {
			cfg.Monitoring.WindowSize = settingsWindowSize
		}
		if cmd.Flags().Changed("debug") {
			cfg.Server.Debug = settingsDebug
		}

		if err := saveConfig(path, cfg); err != nil {
			return fmt.Errorf("save settings: %w", err)
		}
		return printJSON(cfg)
	},
}

func init() {
	systemUpdateSettingsCmd.Flags().Float64Var(&settingsCaptureInterval, "capture-interval", 0, "seconds between screenshot captures")
	systemUpdateSettingsCmd.Flags().IntVar(&settingsProcessingSecs, "processing-interval", 0, "seconds between pipeline drain ticks")
	systemUpdateSettingsCmd.Flags().IntVar(&settingsWindowSize, "window-size", 0, "seconds of raw records kept in the sliding window")
	systemUpdateSettingsCmd.Flags().BoolVar(&settingsDebug, "debug", false, "enable debug-level logging")

	systemCmd.AddCommand(
		systemStartCmd,
		systemStatsCmd,
		systemGetDatabasePathCmd,
		systemGetSettingsCmd,
		systemUpdateSettingsCmd,
	)
	rootCmd.AddCommand(systemCmd)
}
