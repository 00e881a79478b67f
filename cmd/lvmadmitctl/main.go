// Package main implements the lvmadmitctl tool for inspecting the device
// admission daemon's configuration and decisions.
//
// Usage:
//
//	lvmadmitctl check /dev/sdb /dev/disk/by-id/wwn-0x5000  # evaluate names against the filter
//	lvmadmitctl classify --class array --action change      # dry-run an event decision
//	lvmadmitctl patterns                                    # show the compiled pattern table
//	lvmadmitctl status                                      # summarize the daemon's metrics
package main

import (
	"os"

	"github.com/spf13/cobra"
)

// Build information (set via ldflags).
var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "lvmadmitctl",
		Short: "Inspect device-admission decisions",
		Long: `lvmadmitctl inspects the device-admission daemon: which devices the
configured filter admits, how device events are classified, and what the
running daemon has decided so far.

The same configuration file the daemon uses is read via --config; without it
the built-in defaults apply.`,
		Version: version + " (" + commit + ")",
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to the daemon configuration file")

	rootCmd.AddCommand(newCheckCmd(&configPath))
	rootCmd.AddCommand(newClassifyCmd(&configPath))
	rootCmd.AddCommand(newPatternsCmd(&configPath))
	rootCmd.AddCommand(newStatusCmd())

	return rootCmd
}
