package main

import (
	"fmt"
	"os"

	"github.com/artpar/patchbay/bootstrap"
	"github.com/artpar/patchbay/config"
	"github.com/spf13/cobra"
)

var (
	hotReload bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the plugin host",
	Long: `Start the patchbay plugin host.

The host will:
  - Load configuration from patchbay.yaml (or --config)
  - Or load configuration from PATCHBAY_* environment variables
  - Scan the plugin directories and load every shared library
  - Watch plugin files and hot reload them on change
  - Serve the control API for modules, plugins, and patches

Environment variables (for container deployments):
  PATCHBAY_PLUGIN_DIRS       - Plugin directories (path list)
  PATCHBAY_REGISTRY_DSN      - Registry database path (default: patchbay.db)
  PATCHBAY_SERVER_PORT       - Control API port (default: 7400)
  PATCHBAY_PLUGIN_REQUIRE_SIGNATURE - Reject unsigned plugins
  PATCHBAY_LOG_LEVEL         - Log level: debug, info, warn, error

Examples:
  patchbay serve
  patchbay serve --config /etc/patchbay/config.yaml
  patchbay serve --hot-reload=false

  # Container (env vars only):
  PATCHBAY_PLUGIN_DIRS=/opt/plugins patchbay serve`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().BoolVar(&hotReload, "hot-reload", true, "enable hot reload of configuration")
}

func runServe(cmd *cobra.Command, args []string) error {
	hasConfigFile := false
	if _, err := os.Stat(cfgFile); err == nil {
		hasConfigFile = true
	}

	hasEnvConfig := config.HasEnvConfig()

	// No configuration at all; the defaults still make a working host.
	if !hasConfigFile && !hasEnvConfig {
		fmt.Printf("No %s found, starting with defaults.\n", cfgFile)
		fmt.Println("Plugins are scanned from ./plugins and ~/.patchbay/plugins.")
		fmt.Println()
	}

	var app *bootstrap.App
	var err error

	if hasConfigFile && hotReload {
		// Hot reload only works with a config file
		app, err = bootstrap.NewWithHotReload(cfgFile)
	} else {
		cfg, loadErr := config.LoadWithFallback(cfgFile)
		if loadErr != nil {
			return fmt.Errorf("error loading config: %w", loadErr)
		}

		app, err = bootstrap.New(cfg)
	}

	if err != nil {
		return fmt.Errorf("error initializing: %w", err)
	}

	// Run (blocks until shutdown)
	return app.Run()
}
