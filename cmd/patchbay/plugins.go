package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/artpar/patchbay/adapters/sqlite"
	"github.com/artpar/patchbay/config"
	"github.com/artpar/patchbay/core/plugin"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var pluginsCmd = &cobra.Command{
	Use:   "plugins",
	Short: "Manage loaded plugins",
	Long: `Inspect and manage the plugin registry.

The registry is the persistent record of every plugin file the host has
seen: its content hash, signature status, and enable flag. Enable and
disable here change the persisted flag; a running host applies it on the
next reload of the file.

Examples:
  patchbay plugins list
  patchbay plugins verify ./plugins/echo.so
  patchbay plugins disable /opt/plugins/echo.so`,
}

var pluginsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered plugins",
	RunE:  runPluginsList,
}

var pluginsVerifyCmd = &cobra.Command{
	Use:   "verify <plugin-file>",
	Short: "Check a plugin file against the trusted keys",
	Args:  cobra.ExactArgs(1),
	RunE:  runPluginsVerify,
}

var pluginsEnableCmd = &cobra.Command{
	Use:   "enable <path>",
	Short: "Enable a plugin",
	Args:  cobra.ExactArgs(1),
	RunE:  func(cmd *cobra.Command, args []string) error { return setPluginEnabled(args[0], true) },
}

var pluginsDisableCmd = &cobra.Command{
	Use:   "disable <path>",
	Short: "Disable a plugin",
	Args:  cobra.ExactArgs(1),
	RunE:  func(cmd *cobra.Command, args []string) error { return setPluginEnabled(args[0], false) },
}

var pluginsRemoveCmd = &cobra.Command{
	Use:   "remove <path>",
	Short: "Remove a plugin from the registry",
	Args:  cobra.ExactArgs(1),
	RunE:  runPluginsRemove,
}

func init() {
	rootCmd.AddCommand(pluginsCmd)

	pluginsCmd.AddCommand(pluginsListCmd)
	pluginsCmd.AddCommand(pluginsVerifyCmd)
	pluginsCmd.AddCommand(pluginsEnableCmd)
	pluginsCmd.AddCommand(pluginsDisableCmd)
	pluginsCmd.AddCommand(pluginsRemoveCmd)
}

// openRegistry opens the persistent registry named in configuration.
// The memory driver has no state outside a running host, so only the
// sqlite driver works here.
func openRegistry() (*sqlite.RegistryStore, func(), error) {
	cfg, err := config.LoadWithFallback(cfgFile)
	if err != nil {
		return nil, nil, err
	}
	if cfg.Registry.Driver != "sqlite" {
		return nil, nil, fmt.Errorf("registry driver is %q; use the control API of a running host instead", cfg.Registry.Driver)
	}

	db, err := sqlite.Open(cfg.Registry.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("open registry: %w", err)
	}
	if err := db.Migrate(); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("migrate registry: %w", err)
	}
	return sqlite.NewRegistryStore(db), func() { db.Close() }, nil
}

func runPluginsList(cmd *cobra.Command, args []string) error {
	store, closeDB, err := openRegistry()
	if err != nil {
		return err
	}
	defer closeDB()

	records, err := store.List(context.Background())
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Println("No plugins registered.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tVERSION\tVERIFIED\tENABLED\tLOADED\tPATH")
	for _, rec := range records {
		loaded := "never"
		if rec.LoadedAt != nil {
			loaded = rec.LoadedAt.Format(time.RFC3339)
		}
		fmt.Fprintf(w, "%s\t%s\t%v\t%v\t%s\t%s\n",
			rec.Name, rec.Version, rec.Verified, rec.Enabled, loaded, rec.Path)
	}
	return w.Flush()
}

func runPluginsVerify(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadWithFallback(cfgFile)
	if err != nil {
		return err
	}

	verifier := plugin.NewVerifier(cfg.Plugins.TrustedKeysFile, zerolog.Nop())
	if verifier.KeyCount() == 0 {
		return fmt.Errorf("no trusted keys in %s", cfg.Plugins.TrustedKeysFile)
	}

	path := args[0]
	if verifier.Verify(path) {
		fmt.Printf("%s %s: signature valid\n", checkMark, path)
		return nil
	}
	fmt.Printf("%s %s: signature missing or untrusted\n", crossMark, path)
	os.Exit(1)
	return nil
}

func setPluginEnabled(path string, enabled bool) error {
	store, closeDB, err := openRegistry()
	if err != nil {
		return err
	}
	defer closeDB()

	if err := store.SetEnabled(context.Background(), path, enabled); err != nil {
		return err
	}
	state := "disabled"
	if enabled {
		state = "enabled"
	}
	fmt.Printf("Plugin %s %s\n", path, state)
	return nil
}

func runPluginsRemove(cmd *cobra.Command, args []string) error {
	store, closeDB, err := openRegistry()
	if err != nil {
		return err
	}
	defer closeDB()

	if err := store.Delete(context.Background(), args[0]); err != nil {
		return err
	}
	fmt.Printf("Plugin %s removed from registry\n", args[0])
	return nil
}
