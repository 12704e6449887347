// Package web provides the JSON control API: module listing and
// enable toggles, plugin registry inspection and reload, and patch
// management. It is a local operator surface, not a public API.
package web

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/artpar/patchbay/core/bus"
	"github.com/artpar/patchbay/core/runtime"
	"github.com/artpar/patchbay/ports"
)

// Handler provides the control API endpoints.
type Handler struct {
	host     *runtime.Host
	patches  *bus.PatchBay
	registry ports.RegistryStore
	reload   func(ctx context.Context) error
	logger   zerolog.Logger
}

// Deps contains dependencies for the control API handler.
type Deps struct {
	Host     *runtime.Host
	Patches  *bus.PatchBay
	Registry ports.RegistryStore
	// Reload rescans the plugin directories and reloads changed
	// plugins. Nil disables the reload endpoint.
	Reload func(ctx context.Context) error
	Logger zerolog.Logger
}

// NewHandler creates a control API handler.
func NewHandler(deps Deps) *Handler {
	return &Handler{
		host:     deps.Host,
		patches:  deps.Patches,
		registry: deps.Registry,
		reload:   deps.Reload,
		logger:   deps.Logger,
	}
}

// RouterOptions tune the assembled router.
type RouterOptions struct {
	MetricsEnabled bool
	MetricsPath    string
}

// Router assembles the chi router for the control API.
func (h *Handler) Router(opts RouterOptions) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/healthz", h.Health)

	if opts.MetricsEnabled {
		path := opts.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		r.Handle(path, promhttp.Handler())
	}

	r.Route("/v1", func(r chi.Router) {
		r.Get("/modules", h.ListModules)
		r.Put("/modules/{id}/enabled", h.SetModuleEnabled)

		r.Get("/plugins", h.ListPlugins)
		r.Post("/plugins/reload", h.ReloadPlugins)

		r.Get("/patches", h.ListPatches)
		r.Post("/patches", h.CreatePatch)
		r.Delete("/patches/{id}", h.DeletePatch)
	})

	return r
}
