package main

import (
	"github.com/spf13/cobra"
)

var cfgFile string

// newRootCmd creates and configures the root command.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "declutter",
		Short: "A Discord bot that replaces noisy link unfurls with minimal previews.",
		Long: `declutter watches channels for posted links, resolves each one into a
normalized content record through a tiered escalation pipeline (platform
APIs, a generic metadata fetch, then a headless browser), and re-publishes a
minimal preview through a per-channel webhook that keeps the original
poster's name and avatar.`,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is env-only)")
	cmd.AddCommand(newRunCmd())
	return cmd
}
