package bootstrap

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/artpar/patchbay/config"
)

// NewWithHotReload creates the application from a config file and keeps
// watching it. Reloadable settings (log level, plugin directories) take
// effect on the running process; everything else needs a restart.
func NewWithHotReload(configPath string) (*App, error) {
	holder, err := config.NewHolder(configPath, zerolog.Nop())
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	a, err := New(holder.Get())
	if err != nil {
		holder.Stop()
		return nil, err
	}
	a.holder = holder

	holder.OnChange(a.applyConfigChange)
	if err := holder.WatchFile(); err != nil {
		a.Logger.Warn().Err(err).Msg("config file watch unavailable, SIGHUP reload only")
	}
	holder.WatchSignals()

	return a, nil
}

// applyConfigChange applies the reloadable subset of a new configuration.
func (a *App) applyConfigChange(cfg *config.Config) {
	if level, err := zerolog.ParseLevel(cfg.Logging.Level); err == nil {
		zerolog.SetGlobalLevel(level)
	}

	// New plugin directories join the scan set. Removed directories keep
	// their already-running modules; only a restart forgets them.
	known := make(map[string]bool)
	for _, dir := range a.Loader.Dirs() {
		known[dir] = true
	}
	var added []string
	for _, dir := range cfg.Plugins.Dirs {
		if !known[dir] {
			a.Loader.AddDir(dir)
			added = append(added, dir)
		}
	}
	if len(added) > 0 {
		if a.Manager != nil {
			a.Manager.Watch(added...)
		}
		if err := a.LoadPlugins(context.Background()); err != nil {
			a.Logger.Error().Err(err).Msg("plugin rescan after config reload failed")
		}
	}

	a.Config = cfg
	a.Metrics.ConfigReload("ok")
	a.Logger.Info().Msg("configuration reloaded")
}
