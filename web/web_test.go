package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"

	"github.com/artpar/patchbay/adapters/memory"
	"github.com/artpar/patchbay/core/bus"
	"github.com/artpar/patchbay/core/runtime"
	"github.com/artpar/patchbay/domain/module"
	"github.com/artpar/patchbay/domain/signal"
)

type nopMetrics struct{}

func (nopMetrics) SignalRouted(sourceID, kind string)    {}
func (nopMetrics) SignalDropped(sourceID, reason string) {}
func (nopMetrics) PluginLoad(result string)              {}
func (nopMetrics) ModulesRunning(n int)                  {}
func (nopMetrics) ConfigReload(result string)            {}

// idleModule sits in its loop doing nothing until stopped.
type idleModule struct {
	id      string
	ports   []module.Port
	enabled atomic.Bool
}

func newIdleModule(id string, ports ...module.Port) *idleModule {
	m := &idleModule{id: id, ports: ports}
	m.enabled.Store(true)
	return m
}

func (m *idleModule) ID() string   { return m.id }
func (m *idleModule) Name() string { return m.id }
func (m *idleModule) Schema() module.Schema {
	return module.Schema{ID: m.id, Name: m.id, Ports: m.ports}
}
func (m *idleModule) ExecutionModel() runtime.ExecutionModel { return runtime.ExecutionAsync }
func (m *idleModule) Priority() runtime.Priority             { return runtime.PriorityNormal }
func (m *idleModule) IsEnabled() bool                        { return m.enabled.Load() }
func (m *idleModule) SetEnabled(enabled bool)                { m.enabled.Store(enabled) }

func (m *idleModule) Run(ctx context.Context, inbox <-chan signal.Signal, outbox chan<- runtime.RoutedSignal) {
	for {
		select {
		case _, ok := <-inbox:
			if !ok {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

func testHandler(t *testing.T, reload func(ctx context.Context) error) (*Handler, *runtime.Host) {
	t.Helper()
	h := runtime.NewHost(16, nopMetrics{}, zerolog.Nop())
	t.Cleanup(h.ShutdownAll)

	handler := NewHandler(Deps{
		Host:     h,
		Patches:  bus.New(h, zerolog.Nop()),
		Registry: memory.NewRegistryStore(),
		Reload:   reload,
		Logger:   zerolog.Nop(),
	})
	return handler, h
}

func doRequest(t *testing.T, handler http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	handler, _ := testHandler(t, nil)
	router := handler.Router(RouterOptions{})

	rec := doRequest(t, router, http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusOK {
		t.Errorf("GET /healthz status = %d, want 200", rec.Code)
	}
}

func TestListModules(t *testing.T) {
	handler, host := testHandler(t, nil)
	if err := host.Spawn(newIdleModule("beta"), 4); err != nil {
		t.Fatalf("Spawn() error = %v", err)
	}
	if err := host.Spawn(newIdleModule("alpha"), 4); err != nil {
		t.Fatalf("Spawn() error = %v", err)
	}
	router := handler.Router(RouterOptions{})

	rec := doRequest(t, router, http.MethodGet, "/v1/modules", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /v1/modules status = %d, want 200", rec.Code)
	}

	var body struct {
		Modules []moduleView `json:"modules"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(body.Modules) != 2 {
		t.Fatalf("modules = %d, want 2", len(body.Modules))
	}
	if body.Modules[0].ID != "alpha" || body.Modules[1].ID != "beta" {
		t.Errorf("modules not sorted by id: %v", body.Modules)
	}
	if !body.Modules[0].Enabled {
		t.Error("module enabled = false, want true")
	}
}

func TestSetModuleEnabled(t *testing.T) {
	handler, host := testHandler(t, nil)
	m := newIdleModule("mod")
	if err := host.Spawn(m, 4); err != nil {
		t.Fatalf("Spawn() error = %v", err)
	}
	router := handler.Router(RouterOptions{})

	rec := doRequest(t, router, http.MethodPut, "/v1/modules/mod/enabled", `{"enabled": false}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("PUT status = %d, body %s", rec.Code, rec.Body.String())
	}
	if m.IsEnabled() {
		t.Error("module still enabled after PUT {\"enabled\": false}")
	}

	rec = doRequest(t, router, http.MethodPut, "/v1/modules/ghost/enabled", `{"enabled": true}`)
	if rec.Code != http.StatusNotFound {
		t.Errorf("PUT on unknown module status = %d, want 404", rec.Code)
	}

	rec = doRequest(t, router, http.MethodPut, "/v1/modules/mod/enabled", `{}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("PUT without enabled field status = %d, want 400", rec.Code)
	}
}

func TestReloadPlugins(t *testing.T) {
	var calls atomic.Int32
	handler, _ := testHandler(t, func(ctx context.Context) error {
		calls.Add(1)
		return nil
	})
	router := handler.Router(RouterOptions{})

	rec := doRequest(t, router, http.MethodPost, "/v1/plugins/reload", "")
	if rec.Code != http.StatusOK {
		t.Errorf("POST /v1/plugins/reload status = %d, want 200", rec.Code)
	}
	if calls.Load() != 1 {
		t.Errorf("reload calls = %d, want 1", calls.Load())
	}
}

func TestReloadPluginsFailure(t *testing.T) {
	handler, _ := testHandler(t, func(ctx context.Context) error {
		return errors.New("scan failed")
	})
	router := handler.Router(RouterOptions{})

	rec := doRequest(t, router, http.MethodPost, "/v1/plugins/reload", "")
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("failing reload status = %d, want 500", rec.Code)
	}
}

func TestReloadPluginsNotConfigured(t *testing.T) {
	handler, _ := testHandler(t, nil)
	router := handler.Router(RouterOptions{})

	rec := doRequest(t, router, http.MethodPost, "/v1/plugins/reload", "")
	if rec.Code != http.StatusNotImplemented {
		t.Errorf("unconfigured reload status = %d, want 501", rec.Code)
	}
}

func TestPatchLifecycle(t *testing.T) {
	handler, host := testHandler(t, nil)
	src := newIdleModule("src", module.Port{
		ID: "out", Label: "out", DataType: signal.TypeText, Direction: signal.DirectionOutput,
	})
	sink := newIdleModule("sink", module.Port{
		ID: "in", Label: "in", DataType: signal.TypeText, Direction: signal.DirectionInput,
	})
	if err := host.Spawn(src, 4); err != nil {
		t.Fatalf("Spawn(src) error = %v", err)
	}
	if err := host.Spawn(sink, 4); err != nil {
		t.Fatalf("Spawn(sink) error = %v", err)
	}
	router := handler.Router(RouterOptions{})

	rec := doRequest(t, router, http.MethodPost, "/v1/patches",
		`{"source_module":"src","source_port":"out","sink_module":"sink","sink_port":"in"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("POST /v1/patches status = %d, body %s", rec.Code, rec.Body.String())
	}
	var created module.Patch
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode patch: %v", err)
	}
	if created.ID == "" {
		t.Fatal("created patch has no id")
	}

	rec = doRequest(t, router, http.MethodGet, "/v1/patches", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /v1/patches status = %d", rec.Code)
	}
	var list struct {
		Patches []module.Patch `json:"patches"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode patches: %v", err)
	}
	if len(list.Patches) != 1 || list.Patches[0].ID != created.ID {
		t.Errorf("patches = %v, want the created patch", list.Patches)
	}

	rec = doRequest(t, router, http.MethodPost, "/v1/patches",
		`{"source_module":"src","source_port":"out","sink_module":"ghost","sink_port":"in"}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("invalid patch status = %d, want 422", rec.Code)
	}

	rec = doRequest(t, router, http.MethodDelete, "/v1/patches/"+created.ID, "")
	if rec.Code != http.StatusOK {
		t.Errorf("DELETE status = %d, want 200", rec.Code)
	}
	rec = doRequest(t, router, http.MethodDelete, "/v1/patches/"+created.ID, "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("second DELETE status = %d, want 404", rec.Code)
	}
}

func TestListPluginsEmpty(t *testing.T) {
	handler, _ := testHandler(t, nil)
	router := handler.Router(RouterOptions{})

	rec := doRequest(t, router, http.MethodGet, "/v1/plugins", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /v1/plugins status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"plugins":[]`) {
		t.Errorf("empty registry body = %s, want plugins:[]", rec.Body.String())
	}
}
