// Package bootstrap wires all dependencies and starts the patch bay
// host: registry storage, the module host and router, the plugin
// pipeline, and the control API server.
package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/artpar/patchbay/adapters/clock"
	"github.com/artpar/patchbay/adapters/memory"
	"github.com/artpar/patchbay/adapters/metrics"
	"github.com/artpar/patchbay/adapters/sqlite"
	"github.com/artpar/patchbay/config"
	"github.com/artpar/patchbay/core/bus"
	"github.com/artpar/patchbay/core/plugin"
	"github.com/artpar/patchbay/core/runtime"
	"github.com/artpar/patchbay/core/sandbox"
	"github.com/artpar/patchbay/modules/logwriter"
	"github.com/artpar/patchbay/modules/pulse"
	"github.com/artpar/patchbay/ports"
	"github.com/artpar/patchbay/web"
)

// App represents the running application.
type App struct {
	Logger   zerolog.Logger
	Config   *config.Config
	Registry ports.RegistryStore
	Metrics  ports.Metrics
	Host     *runtime.Host
	Patches  *bus.PatchBay
	Loader   *plugin.Loader
	Verifier *plugin.Verifier
	Manager  *plugin.Manager
	Sandbox  sandbox.Strategy

	HTTPServer *http.Server

	db     *sqlite.DB
	clock  ports.Clock
	holder *config.Holder
}

// New creates and initializes the application from configuration.
func New(cfg *config.Config) (*App, error) {
	logger := setupLogger(cfg.Logging)
	logger.Info().Msg("initializing patchbay")

	a := &App{
		Logger: logger,
		Config: cfg,
		clock:  clock.Real{},
	}

	if cfg.Metrics.Enabled {
		a.Metrics = metrics.New()
		logger.Info().Msg("prometheus metrics enabled")
	} else {
		a.Metrics = metrics.Nop{}
	}

	if err := a.initRegistry(); err != nil {
		return nil, fmt.Errorf("init registry: %w", err)
	}

	a.Host = runtime.NewHost(cfg.Bus.RouterBuffer, a.Metrics, logger)
	a.Patches = bus.New(a.Host, logger)

	a.Loader = plugin.NewLoader(logger)
	for _, dir := range cfg.Plugins.Dirs {
		a.Loader.AddDir(dir)
	}
	a.Verifier = plugin.NewVerifier(cfg.Plugins.TrustedKeysFile, logger)
	a.Sandbox = sandbox.New(logger)

	if cfg.Plugins.Watch {
		mgr, err := plugin.NewManager(logger)
		if err != nil {
			return nil, fmt.Errorf("init plugin watcher: %w", err)
		}
		a.Manager = mgr
	}

	a.initHTTPServer()
	return a, nil
}

func (a *App) initRegistry() error {
	switch a.Config.Registry.Driver {
	case "memory":
		a.Registry = memory.NewRegistryStore()
	default:
		db, err := sqlite.Open(a.Config.Registry.DSN)
		if err != nil {
			return err
		}
		if err := db.Migrate(); err != nil {
			db.Close()
			return err
		}
		a.db = db
		a.Registry = sqlite.NewRegistryStore(db)
	}
	return nil
}

func (a *App) initHTTPServer() {
	handler := web.NewHandler(web.Deps{
		Host:     a.Host,
		Patches:  a.Patches,
		Registry: a.Registry,
		Reload:   a.LoadPlugins,
		Logger:   a.Logger,
	})
	router := handler.Router(web.RouterOptions{
		MetricsEnabled: a.Config.Metrics.Enabled,
		MetricsPath:    a.Config.Metrics.Path,
	})
	a.HTTPServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", a.Config.Server.Host, a.Config.Server.Port),
		Handler:      router,
		ReadTimeout:  a.Config.Server.ReadTimeout,
		WriteTimeout: a.Config.Server.WriteTimeout,
	}
}

// StartBuiltins spawns the built-in modules enabled in configuration.
func (a *App) StartBuiltins() error {
	if a.Config.Modules.Pulse.Enabled {
		src := pulse.New("pulse", a.Config.Modules.Pulse.Interval, 0)
		if err := a.Host.Spawn(runtime.NewSource(src, a.Logger), a.Config.Bus.InboxBuffer); err != nil {
			return fmt.Errorf("spawn pulse: %w", err)
		}
		sink := logwriter.New("logwriter", a.Logger)
		if err := a.Host.Spawn(runtime.NewSink(sink, a.Logger), a.Config.Bus.InboxBuffer); err != nil {
			return fmt.Errorf("spawn logwriter: %w", err)
		}
	}
	return nil
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// The filter must be in place before any plugin code executes.
	if a.Config.Plugins.Sandbox {
		if err := a.Sandbox.Apply(); err != nil {
			return fmt.Errorf("apply sandbox: %w", err)
		}
	}

	if err := a.StartBuiltins(); err != nil {
		return err
	}
	if err := a.LoadPlugins(ctx); err != nil {
		a.Logger.Error().Err(err).Msg("initial plugin scan failed")
	}

	go a.Patches.Run(ctx)

	if a.Manager != nil {
		a.Manager.Watch(a.Loader.Dirs()...)
		go a.Manager.Run(ctx)
		go a.watchReloads(ctx)
	}

	errCh := make(chan error, 1)
	go func() {
		a.Logger.Info().
			Str("addr", a.HTTPServer.Addr).
			Msg("starting control api server")
		if err := a.HTTPServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case sig := <-quit:
		a.Logger.Info().Str("signal", sig.String()).Msg("shutting down")
	}

	return a.Shutdown()
}

// watchReloads applies hot reload events from the plugin manager.
func (a *App) watchReloads(ctx context.Context) {
	for {
		select {
		case path := <-a.Manager.Reloads():
			if err := a.loadOne(ctx, path); err != nil {
				a.Logger.Error().Err(err).Str("path", path).Msg("plugin hot reload failed")
			}
		case <-ctx.Done():
			return
		}
	}
}

// Shutdown gracefully stops the application.
func (a *App) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if a.holder != nil {
		a.holder.Stop()
	}

	a.Host.ShutdownAll()

	if a.HTTPServer != nil {
		if err := a.HTTPServer.Shutdown(ctx); err != nil {
			a.Logger.Error().Err(err).Msg("http server shutdown error")
		}
	}

	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.Logger.Error().Err(err).Msg("database close error")
		}
	}

	a.Logger.Info().Msg("shutdown complete")
	return nil
}

func setupLogger(cfg config.LoggingConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	var logger zerolog.Logger
	if cfg.Format == "console" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	} else {
		logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}
	return logger
}
