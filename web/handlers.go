package web

import (
	"encoding/json"
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"

	"github.com/artpar/patchbay/domain/module"
)

// moduleView is the wire shape for a running module.
type moduleView struct {
	ID      string        `json:"id"`
	Name    string        `json:"name"`
	Enabled bool          `json:"enabled"`
	Schema  module.Schema `json:"schema"`
}

// Health reports liveness.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ListModules returns all running modules.
func (h *Handler) ListModules(w http.ResponseWriter, r *http.Request) {
	infos := h.host.List()
	sort.Slice(infos, func(i, j int) bool { return infos[i].ID < infos[j].ID })

	views := make([]moduleView, 0, len(infos))
	for _, info := range infos {
		views = append(views, moduleView{
			ID:      info.ID,
			Name:    info.Name,
			Enabled: info.Enabled,
			Schema:  info.Schema,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"modules": views})
}

// SetModuleEnabled toggles a running module.
func (h *Handler) SetModuleEnabled(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var body struct {
		Enabled *bool `json:"enabled"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Enabled == nil {
		writeError(w, http.StatusBadRequest, "body must be {\"enabled\": true|false}")
		return
	}
	if err := h.host.SetEnabled(id, *body.Enabled); err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	h.logger.Info().Str("module", id).Bool("enabled", *body.Enabled).Msg("module toggled")
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "enabled": *body.Enabled})
}

// ListPlugins returns the plugin registry contents.
func (h *Handler) ListPlugins(w http.ResponseWriter, r *http.Request) {
	records, err := h.registry.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if records == nil {
		records = []module.PluginRecord{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"plugins": records})
}

// ReloadPlugins rescans the plugin directories.
func (h *Handler) ReloadPlugins(w http.ResponseWriter, r *http.Request) {
	if h.reload == nil {
		writeError(w, http.StatusNotImplemented, "plugin reload not configured")
		return
	}
	if err := h.reload(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "reloaded"})
}

// ListPatches returns all connected patches.
func (h *Handler) ListPatches(w http.ResponseWriter, r *http.Request) {
	patches := h.patches.List()
	sort.Slice(patches, func(i, j int) bool { return patches[i].ID < patches[j].ID })
	writeJSON(w, http.StatusOK, map[string]any{"patches": patches})
}

// CreatePatch connects a source port to a sink port.
func (h *Handler) CreatePatch(w http.ResponseWriter, r *http.Request) {
	var body struct {
		SourceModule string `json:"source_module"`
		SourcePort   string `json:"source_port"`
		SinkModule   string `json:"sink_module"`
		SinkPort     string `json:"sink_port"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if body.SourceModule == "" || body.SinkModule == "" {
		writeError(w, http.StatusBadRequest, "source_module and sink_module are required")
		return
	}

	p, err := h.patches.AddPatch(body.SourceModule, body.SourcePort, body.SinkModule, body.SinkPort)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

// DeletePatch disconnects a patch.
func (h *Handler) DeletePatch(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.patches.RemovePatch(id); err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"id": id, "status": "removed"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
