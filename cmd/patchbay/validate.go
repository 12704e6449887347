package main

import (
	"fmt"
	"os"

	"github.com/artpar/patchbay/adapters/sqlite"
	"github.com/artpar/patchbay/config"
	"github.com/artpar/patchbay/core/plugin"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration before deployment",
	Long: `Validate the patchbay configuration file.

Checks:
  - YAML syntax is valid
  - Required fields are present
  - Registry database is writable (optional)
  - Trusted keys file parses (optional)

Examples:
  patchbay validate
  patchbay validate --config /etc/patchbay/config.yaml`,
	RunE: runValidate,
}

var (
	validateCheckDatabase bool
	validateCheckKeys     bool
)

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().BoolVar(&validateCheckDatabase, "check-database", false, "check if registry database is writable")
	validateCmd.Flags().BoolVar(&validateCheckKeys, "check-keys", false, "check the trusted keys file")
}

func runValidate(cmd *cobra.Command, args []string) error {
	fmt.Printf("Validating %s...\n\n", cfgFile)

	// Check file exists
	if _, err := os.Stat(cfgFile); os.IsNotExist(err) {
		fmt.Printf("  %s Config file exists\n", crossMark)
		return fmt.Errorf("config file not found: %s", cfgFile)
	}
	fmt.Printf("  %s Config file exists\n", checkMark)

	// Load and validate config
	cfg, err := config.Load(cfgFile)
	if err != nil {
		fmt.Printf("  %s Config syntax valid\n", crossMark)
		return fmt.Errorf("config error: %w", err)
	}
	fmt.Printf("  %s Config syntax valid\n", checkMark)

	// Show config summary
	fmt.Printf("  %s Control API: %s:%d\n", checkMark, cfg.Server.Host, cfg.Server.Port)
	fmt.Printf("  %s Registry: %s (%s)\n", checkMark, cfg.Registry.DSN, cfg.Registry.Driver)
	fmt.Printf("  %s Plugin directories: %d\n", checkMark, len(cfg.Plugins.Dirs))
	fmt.Printf("  %s Require signature: %v\n", checkMark, cfg.Plugins.RequireSignature)
	fmt.Printf("  %s Sandbox: %v\n", checkMark, cfg.Plugins.Sandbox)

	// Optional: check registry database
	if validateCheckDatabase && cfg.Registry.Driver == "sqlite" {
		if err := checkDatabaseWritable(cfg.Registry.DSN); err != nil {
			fmt.Printf("  %s Registry writable\n", crossMark)
			fmt.Printf("      Error: %v\n", err)
		} else {
			fmt.Printf("  %s Registry writable\n", checkMark)
		}
	}

	// Optional: check trusted keys
	if validateCheckKeys {
		verifier := plugin.NewVerifier(cfg.Plugins.TrustedKeysFile, zerolog.Nop())
		if verifier.KeyCount() == 0 {
			fmt.Printf("  %s Trusted keys: none\n", crossMark)
			if cfg.Plugins.RequireSignature {
				fmt.Printf("      Error: require_signature is on but no keys are trusted\n")
			}
		} else {
			fmt.Printf("  %s Trusted keys: %d\n", checkMark, verifier.KeyCount())
		}
	}

	fmt.Println()
	fmt.Println("Configuration is valid.")
	return nil
}

func checkDatabaseWritable(dsn string) error {
	db, err := sqlite.Open(dsn)
	if err != nil {
		return err
	}
	defer db.Close()
	return nil
}

const (
	checkMark = "\033[32m✓\033[0m"
	crossMark = "\033[31m✗\033[0m"
)
