package runtime

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"github.com/rs/zerolog"

	"github.com/artpar/patchbay/core/pool"
	"github.com/artpar/patchbay/domain/module"
	"github.com/artpar/patchbay/domain/signal"
	"github.com/artpar/patchbay/ports"
)

// handle tracks one spawned module loop.
type handle struct {
	id      string
	runtime ModuleRuntime
	inbox   chan signal.Signal
	cancel  context.CancelFunc
	done    chan struct{}
}

// Info is a snapshot of a running module for listing.
type Info struct {
	ID       string
	Name     string
	Enabled  bool
	Priority Priority
	Schema   module.Schema
}

// Host owns the lifecycle of all module runtimes: one goroutine per
// module loop, a per-module inbox, and a shared router channel fed by
// every outbox. It also owns the shared resource pools modules
// reference through handle signals.
type Host struct {
	mu      sync.Mutex
	modules map[string]*handle
	router  chan RoutedSignal
	logger  zerolog.Logger
	metrics ports.Metrics

	Audio    *pool.AudioPool
	Blobs    *pool.BlobPool
	Textures *pool.TextureMap
}

// NewHost creates a host with the given router buffer size.
func NewHost(routerBuffer int, metrics ports.Metrics, logger zerolog.Logger) *Host {
	return &Host{
		modules:  make(map[string]*handle),
		router:   make(chan RoutedSignal, routerBuffer),
		logger:   logger,
		metrics:  metrics,
		Audio:    pool.New[[]float32](),
		Blobs:    pool.New[[]byte](),
		Textures: pool.New[uintptr](),
	}
}

// Router returns the shared channel every module outbox feeds.
// Per-producer FIFO order is preserved; cross-producer interleaving is
// unspecified.
func (h *Host) Router() <-chan RoutedSignal { return h.router }

// Spawn starts a module loop with an inbox of the given buffer size.
func (h *Host) Spawn(m ModuleRuntime, buffer int) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, exists := h.modules[m.ID()]; exists {
		return fmt.Errorf("module %s already spawned", m.ID())
	}
	h.spawnLocked(m, buffer)
	return nil
}

func (h *Host) spawnLocked(m ModuleRuntime, buffer int) *handle {
	ctx, cancel := context.WithCancel(context.Background())
	hd := &handle{
		id:      m.ID(),
		runtime: m,
		inbox:   make(chan signal.Signal, buffer),
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	h.modules[hd.id] = hd
	h.metrics.ModulesRunning(len(h.modules))

	dedicated := m.ExecutionModel() == ExecutionDedicated
	go func() {
		defer close(hd.done)
		defer func() {
			if r := recover(); r != nil {
				h.logger.Error().Str("module", hd.id).Interface("panic", r).Msg("module panicked")
			}
		}()
		if dedicated {
			runtime.LockOSThread()
			defer runtime.UnlockOSThread()
		}
		h.logger.Info().Str("module", hd.id).Str("name", m.Name()).Msg("module started")
		m.Run(ctx, hd.inbox, h.router)
		h.logger.Info().Str("module", hd.id).Msg("module exited")
	}()
	return hd
}

// Send delivers a signal to a module's inbox without blocking. A full
// inbox drops the signal; that is the only backpressure response the
// router is allowed.
func (h *Host) Send(id string, s signal.Signal) error {
	// The lock is held across the send. Shutdown and Replace delete the
	// handle under the same lock before closing its inbox, so a send can
	// never hit a closed channel. The select never blocks, keeping the
	// critical section short.
	h.mu.Lock()
	defer h.mu.Unlock()
	hd, ok := h.modules[id]
	if !ok {
		return fmt.Errorf("module %s not found", id)
	}
	select {
	case hd.inbox <- s:
		h.metrics.SignalRouted(id, signal.Kind(s))
		return nil
	default:
		h.metrics.SignalDropped(id, "inbox_full")
		return fmt.Errorf("module %s inbox full", id)
	}
}

// SetEnabled toggles a module without stopping its loop.
func (h *Host) SetEnabled(id string, enabled bool) error {
	h.mu.Lock()
	hd, ok := h.modules[id]
	h.mu.Unlock()
	if !ok {
		return fmt.Errorf("module %s not found", id)
	}
	hd.runtime.SetEnabled(enabled)
	return nil
}

// List returns a snapshot of all running modules.
func (h *Host) List() []Info {
	h.mu.Lock()
	defer h.mu.Unlock()
	infos := make([]Info, 0, len(h.modules))
	for _, hd := range h.modules {
		infos = append(infos, Info{
			ID:       hd.id,
			Name:     hd.runtime.Name(),
			Enabled:  hd.runtime.IsEnabled(),
			Priority: hd.runtime.Priority(),
			Schema:   hd.runtime.Schema(),
		})
	}
	return infos
}

// Schema returns the schema of a running module.
func (h *Host) Schema(id string) (module.Schema, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	hd, ok := h.modules[id]
	if !ok {
		return module.Schema{}, false
	}
	return hd.runtime.Schema(), true
}

// Shutdown stops one module and waits for its loop to exit.
func (h *Host) Shutdown(id string) error {
	h.mu.Lock()
	hd, ok := h.modules[id]
	if ok {
		delete(h.modules, id)
		h.metrics.ModulesRunning(len(h.modules))
	}
	h.mu.Unlock()
	if !ok {
		return fmt.Errorf("module %s not found", id)
	}
	h.stop(hd)
	return nil
}

// Replace swaps a running module for a freshly built one: the new
// runtime is spawned first, then the old loop is stopped and dropped.
// Used for plugin hot reload so a failed build never leaves the old
// module half-destroyed. The caller must have fully constructed m
// before calling.
func (h *Host) Replace(m ModuleRuntime, buffer int) error {
	h.mu.Lock()
	old, existed := h.modules[m.ID()]
	if existed {
		delete(h.modules, m.ID())
	}
	h.spawnLocked(m, buffer)
	h.mu.Unlock()

	if existed {
		h.stop(old)
	}
	return nil
}

// ShutdownAll stops every module and waits for all loops to exit.
func (h *Host) ShutdownAll() {
	h.mu.Lock()
	handles := make([]*handle, 0, len(h.modules))
	for _, hd := range h.modules {
		handles = append(handles, hd)
	}
	h.modules = make(map[string]*handle)
	h.metrics.ModulesRunning(0)
	h.mu.Unlock()

	h.logger.Info().Int("modules", len(handles)).Msg("shutting down modules")
	for _, hd := range handles {
		h.stop(hd)
	}
}

func (h *Host) stop(hd *handle) {
	hd.cancel()
	close(hd.inbox)
	<-hd.done
}
