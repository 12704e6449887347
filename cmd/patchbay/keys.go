package main

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/artpar/patchbay/config"
	"github.com/artpar/patchbay/core/plugin"
	"github.com/spf13/cobra"
)

var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Manage plugin signing keys",
	Long: `Manage the ed25519 keys used to sign and verify plugins.

A plugin is trusted when a detached signature next to its file
(plugin.so.sig) checks out against any key in the trusted keys file.

Examples:
  patchbay keys generate --out signing.key
  patchbay keys sign ./plugins/echo.so --key signing.key
  patchbay keys trust 4f2a...9c
  patchbay keys list`,
}

var keysGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a new signing key pair",
	RunE:  runKeysGenerate,
}

var keysSignCmd = &cobra.Command{
	Use:   "sign <plugin-file>",
	Short: "Sign a plugin file",
	Args:  cobra.ExactArgs(1),
	RunE:  runKeysSign,
}

var keysTrustCmd = &cobra.Command{
	Use:   "trust <public-key-hex>",
	Short: "Add a public key to the trusted keys file",
	Args:  cobra.ExactArgs(1),
	RunE:  runKeysTrust,
}

var keysListCmd = &cobra.Command{
	Use:   "list",
	Short: "List trusted public keys",
	RunE:  runKeysList,
}

var (
	keyOutFile  string
	keyFile     string
	keyTrustNow bool
)

func init() {
	rootCmd.AddCommand(keysCmd)

	keysCmd.AddCommand(keysGenerateCmd)
	keysCmd.AddCommand(keysSignCmd)
	keysCmd.AddCommand(keysTrustCmd)
	keysCmd.AddCommand(keysListCmd)

	keysGenerateCmd.Flags().StringVar(&keyOutFile, "out", "patchbay-signing.key", "private key output file")
	keysGenerateCmd.Flags().BoolVar(&keyTrustNow, "trust", false, "also add the public key to the trusted keys file")
	keysSignCmd.Flags().StringVar(&keyFile, "key", "", "private key file (required)")
	keysSignCmd.MarkFlagRequired("key")
}

func runKeysGenerate(cmd *cobra.Command, args []string) error {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return fmt.Errorf("generate key: %w", err)
	}

	if err := os.WriteFile(keyOutFile, []byte(hex.EncodeToString(priv)+"\n"), 0o600); err != nil {
		return fmt.Errorf("write private key: %w", err)
	}

	fmt.Printf("Private key written to %s (keep this secret)\n", keyOutFile)
	fmt.Printf("Public key: %s\n", hex.EncodeToString(pub))

	if keyTrustNow {
		if err := appendTrustedKey(hex.EncodeToString(pub)); err != nil {
			return err
		}
	} else {
		fmt.Println()
		fmt.Println("Trust it on the host with:")
		fmt.Printf("  patchbay keys trust %s\n", hex.EncodeToString(pub))
	}
	return nil
}

func runKeysSign(cmd *cobra.Command, args []string) error {
	priv, err := loadPrivateKey(keyFile)
	if err != nil {
		return err
	}

	path := args[0]
	if err := plugin.Sign(path, priv); err != nil {
		return fmt.Errorf("sign plugin: %w", err)
	}
	fmt.Printf("Signature written to %s%s\n", path, plugin.SignatureExt)
	return nil
}

func runKeysTrust(cmd *cobra.Command, args []string) error {
	raw := strings.TrimSpace(args[0])
	key, err := hex.DecodeString(raw)
	if err != nil || len(key) != ed25519.PublicKeySize {
		return fmt.Errorf("not a hex-encoded ed25519 public key: %q", args[0])
	}
	return appendTrustedKey(raw)
}

func runKeysList(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadWithFallback(cfgFile)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(cfg.Plugins.TrustedKeysFile)
	if os.IsNotExist(err) {
		fmt.Printf("No trusted keys file at %s\n", cfg.Plugins.TrustedKeysFile)
		return nil
	}
	if err != nil {
		return err
	}

	n := 0
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fmt.Println(line)
		n++
	}
	fmt.Printf("\n%d trusted key(s) in %s\n", n, cfg.Plugins.TrustedKeysFile)
	return nil
}

func appendTrustedKey(pubHex string) error {
	cfg, err := config.LoadWithFallback(cfgFile)
	if err != nil {
		return err
	}

	path := cfg.Plugins.TrustedKeysFile
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create keys directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open trusted keys file: %w", err)
	}
	defer f.Close()

	if _, err := fmt.Fprintln(f, pubHex); err != nil {
		return fmt.Errorf("write trusted key: %w", err)
	}
	fmt.Printf("Added to %s\n", path)
	return nil
}

func loadPrivateKey(path string) (ed25519.PrivateKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read private key: %w", err)
	}
	key, err := hex.DecodeString(strings.TrimSpace(string(data)))
	if err != nil || len(key) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("%s is not a hex-encoded ed25519 private key", path)
	}
	return ed25519.PrivateKey(key), nil
}
