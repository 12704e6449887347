package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "patchbay",
	Short: "Plugin host with hot reload, signature checks, and signal routing",
	Long: `Patchbay hosts native plugin modules and routes typed signals
between them over a patch bay.

It loads shared libraries from plugin directories, verifies their
signatures, runs each one as an isolated module, and exposes a control
API for wiring module ports together.

Quick start:
  patchbay serve     # Start the host and control API

Management:
  patchbay plugins   # Inspect and manage loaded plugins
  patchbay keys      # Manage plugin signing keys
  patchbay validate  # Validate configuration`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "patchbay.yaml", "config file path")
}
