package bootstrap

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"

	"github.com/artpar/patchbay/core/plugin"
	"github.com/artpar/patchbay/domain/module"
)

// LoadPlugins scans all plugin directories and runs each discovered
// library through the load pipeline. A failure for one plugin is
// recorded and skipped; it never aborts the scan.
func (a *App) LoadPlugins(ctx context.Context) error {
	paths := a.Loader.Discover()
	a.Logger.Info().Int("found", len(paths)).Msg("scanning plugin directories")

	for _, path := range paths {
		if err := a.loadOne(ctx, path); err != nil {
			a.Logger.Warn().Err(err).Str("path", path).Msg("skipping plugin")
		}
	}
	return nil
}

// loadOne runs the full pipeline for a single plugin file: hash,
// verify, registry policy check, load, spawn (replacing any running
// instance from the same path), and registry update.
func (a *App) loadOne(ctx context.Context, path string) error {
	sum, err := fileSHA256(path)
	if err != nil {
		return fmt.Errorf("hash plugin: %w", err)
	}

	verified := a.Verifier.Verify(path)
	rec := module.PluginRecord{
		Path:     path,
		SHA256:   sum,
		Verified: verified,
		Enabled:  true,
	}

	// An operator-disabled plugin stays disabled across reloads.
	if prev, err := a.Registry.Get(ctx, path); err == nil {
		rec.Enabled = prev.Enabled
	}

	if !verified && a.Config.Plugins.RequireSignature {
		a.Metrics.PluginLoad("unverified")
		if err := a.Registry.Upsert(ctx, rec); err != nil {
			a.Logger.Error().Err(err).Str("path", path).Msg("registry update failed")
		}
		return fmt.Errorf("unverified plugin rejected by policy")
	}

	lib, err := a.Loader.Load(path)
	if err != nil {
		if errors.Is(err, plugin.ErrABIVersionMismatch) {
			a.Metrics.PluginLoad("abi_mismatch")
		} else {
			a.Metrics.PluginLoad("error")
		}
		if uerr := a.Registry.Upsert(ctx, rec); uerr != nil {
			a.Logger.Error().Err(uerr).Str("path", path).Msg("registry update failed")
		}
		return err
	}

	manifest := lib.Manifest()
	rec.Name = manifest.Name
	rec.Version = manifest.Version
	rec.ABIVersion = manifest.ABIVersion

	mod := plugin.NewModule(lib, a.Logger)
	if !rec.Enabled {
		mod.SetEnabled(false)
	}

	// Replace spawns the new instance before the old one is stopped,
	// so a running plugin survives a failed rebuild of its file.
	if err := a.Host.Replace(mod, a.Config.Bus.InboxBuffer); err != nil {
		lib.Close()
		a.Metrics.PluginLoad("error")
		return fmt.Errorf("spawn plugin module: %w", err)
	}

	now := a.clock.Now()
	rec.LoadedAt = &now
	if err := a.Registry.Upsert(ctx, rec); err != nil {
		a.Logger.Error().Err(err).Str("path", path).Msg("registry update failed")
	}

	a.Metrics.PluginLoad("ok")
	a.Logger.Info().
		Str("path", path).
		Str("name", manifest.Name).
		Bool("verified", verified).
		Msg("plugin running")
	return nil
}

func fileSHA256(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
