// Package clicmd provides the chroniclectl command tree: a direct,
// in-process client over the same persistence/imagestore/coordinator
// packages chronicled runs, standing in for the "transport-agnostic handler
// layer" that would otherwise wrap each public operation behind an RPC/HTTP
// surface. Grounded on steveyegge-gastown's internal/cmd/root.go
// (rootCmd + Execute() + command groups), since the teacher itself is
// daemon-only and has no CLI command tree to imitate directly.
package clicmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "chroniclectl",
	Short: "Inspect and control a chronicle activity-rewind installation",
	Long: `chroniclectl reads and mutates a chronicle installation's
configuration, database, and image store directly. It does not require
chronicled to be running: the "system" commands build their own in-process
Coordinator rather than querying a running daemon.`,
}

// Command group IDs, used by subcommands to organize help output.
const (
	GroupPerception = "perception"
	GroupProcessing = "processing"
	GroupImages     = "images"
	GroupModels     = "models"
	GroupSystem     = "system"
)

func init() {
	rootCmd.AddGroup(
		&cobra.Group{ID: GroupPerception, Title: "Perception:"},
		&cobra.Group{ID: GroupProcessing, Title: "Processing:"},
		&cobra.Group{ID: GroupImages, Title: "Images:"},
		&cobra.Group{ID: GroupModels, Title: "Models:"},
		&cobra.Group{ID: GroupSystem, Title: "System:"},
	)
	rootCmd.PersistentFlags().String("config", "", "path to config.toml (defaults to ~/.config/chronicle/config.toml)")
}

// Execute runs the root command and returns a process exit code, per
// spec §6's "0 normal, non-zero on unrecoverable startup failure".
func Execute() int {
	if err := rootCmd.Execute(); err != nil {
		return 1
	}
	return 0
}

func configPath(cmd *cobra.Command) (string, error) {
	if p, _ := cmd.Flags().GetString("config"); p != "" {
		return p, nil
	}
	return defaultConfigPath()
}

