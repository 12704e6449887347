package plugin

import (
	"bufio"
	"crypto/ed25519"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// SignatureExt is appended to a plugin path to locate its detached
// signature, e.g. waveform.so -> waveform.so.sig.
const SignatureExt = ".sig"

// Verifier checks plugin files against detached ed25519 signatures.
// It only ever reports a boolean; whether an unverified plugin may
// still load is policy decided by the caller.
type Verifier struct {
	keys   []ed25519.PublicKey
	logger zerolog.Logger
}

// NewVerifier loads trusted public keys from a key file. A missing
// file yields a verifier with no trusted keys, which rejects
// everything.
func NewVerifier(keyFile string, logger zerolog.Logger) *Verifier {
	f, err := os.Open(keyFile)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warn().Err(err).Str("file", keyFile).Msg("cannot read trusted key file")
		}
		return &Verifier{logger: logger}
	}
	defer f.Close()
	v := NewVerifierFromReader(f, logger)
	return v
}

// NewVerifierFromReader parses trusted keys, one hex-encoded 32-byte
// public key per line. Lines starting with # and blank lines are
// ignored; malformed lines are logged and skipped.
func NewVerifierFromReader(r io.Reader, logger zerolog.Logger) *Verifier {
	v := &Verifier{logger: logger}
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		raw, err := hex.DecodeString(line)
		if err != nil || len(raw) != ed25519.PublicKeySize {
			logger.Warn().Int("line", lineNo).Msg("skipping malformed trusted key")
			continue
		}
		v.keys = append(v.keys, ed25519.PublicKey(raw))
	}
	if err := scanner.Err(); err != nil {
		logger.Warn().Err(err).Msg("error reading trusted keys")
	}
	return v
}

// KeyCount returns the number of trusted keys loaded.
func (v *Verifier) KeyCount() int { return len(v.keys) }

// Verify reports whether the plugin file at path carries a valid
// detached signature from any trusted key. Missing signature files,
// wrong-length signatures, and an empty trust set all report false.
func (v *Verifier) Verify(path string) bool {
	if len(v.keys) == 0 {
		v.logger.Debug().Str("path", path).Msg("no trusted keys configured")
		return false
	}
	sig, err := os.ReadFile(path + SignatureExt)
	if err != nil {
		v.logger.Debug().Err(err).Str("path", path).Msg("no plugin signature")
		return false
	}
	if len(sig) != ed25519.SignatureSize {
		v.logger.Warn().Str("path", path).Int("size", len(sig)).Msg("signature file has wrong length")
		return false
	}
	content, err := os.ReadFile(path)
	if err != nil {
		v.logger.Warn().Err(err).Str("path", path).Msg("cannot read plugin for verification")
		return false
	}
	for _, key := range v.keys {
		if ed25519.Verify(key, content, sig) {
			return true
		}
	}
	v.logger.Warn().Str("path", path).Msg("plugin signature does not match any trusted key")
	return false
}

// Sign produces a detached signature file alongside the plugin file.
// Used by the CLI tooling, not by the load path.
func Sign(path string, key ed25519.PrivateKey) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read plugin: %w", err)
	}
	sig := ed25519.Sign(key, content)
	if err := os.WriteFile(path+SignatureExt, sig, 0o644); err != nil {
		return fmt.Errorf("write signature: %w", err)
	}
	return nil
}
