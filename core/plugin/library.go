// Package plugin loads native shared libraries that implement the
// module ABI, wraps their vtables behind a safe owning type, discovers
// plugin files on disk, watches plugin directories for changes, and
// verifies detached plugin signatures.
package plugin

import (
	"errors"
	"fmt"
	"runtime"
	"sync"
	"unsafe"

	"github.com/ebitengine/purego"

	"github.com/artpar/patchbay/core/abi"
	"github.com/artpar/patchbay/domain/module"
	"github.com/artpar/patchbay/domain/signal"
)

var (
	// ErrABIVersionMismatch means the library was built against a
	// different ABI revision than this host.
	ErrABIVersionMismatch = errors.New("plugin ABI version mismatch")
	// ErrNilInstance means the plugin's create function returned null.
	ErrNilInstance = errors.New("plugin create returned null instance")
	// ErrClosed means the library has already been destroyed.
	ErrClosed = errors.New("plugin library closed")
	// ErrNotEncodable means the signal variant cannot cross the C
	// boundary (it references in-process state such as live channels
	// or GPU handles).
	ErrNotEncodable = errors.New("signal not encodable for plugin boundary")
)

func checkABIVersion(got uint32) error {
	if got != abi.Version {
		return fmt.Errorf("%w: library declares %d, host requires %d",
			ErrABIVersionMismatch, got, abi.Version)
	}
	return nil
}

// Library owns one loaded plugin: the OS library handle, the instance
// pointer, and the vtable, held together so the instance can never
// outlive the code its function pointers reside in. All vtable calls
// are serialized behind an internal mutex; the plugin only needs to be
// safe for serialized reentry.
type Library struct {
	path      string
	handle    uintptr
	manifest  module.Manifest
	schema    module.Schema
	hasSchema bool

	mu       sync.Mutex
	instance uintptr
	vtable   abi.VTable
	alloc    abi.Allocator
	closed   bool
}

// Load runs the load sequence against one shared library file: open,
// manifest, ABI check, vtable, optional schema, instance. Failure at
// any step unloads the library and returns an error; no instance is
// leaked because ownership only transfers at the final step.
func Load(path string) (*Library, error) {
	alloc, err := processAllocator()
	if err != nil {
		return nil, err
	}

	handle, err := dlOpen(path)
	if err != nil {
		return nil, err
	}
	fail := func(err error) (*Library, error) {
		dlClose(handle)
		return nil, fmt.Errorf("load %s: %w", path, err)
	}

	manifestFn, err := dlSym(handle, abi.SymbolManifest)
	if err != nil {
		return fail(err)
	}
	manifestPtr, _, _ := purego.SyscallN(manifestFn)
	if manifestPtr == 0 {
		return fail(errors.New("manifest function returned null"))
	}
	cm := (*abi.Manifest)(unsafe.Pointer(manifestPtr))
	if err := checkABIVersion(cm.ABIVersion); err != nil {
		return fail(err)
	}
	manifest := module.Manifest{
		Name:        abi.GoString(cm.Name),
		Version:     abi.GoString(cm.Version),
		Description: abi.GoString(cm.Description),
		Author:      abi.GoString(cm.Author),
		ABIVersion:  cm.ABIVersion,
	}

	vtableFn, err := dlSym(handle, abi.SymbolVTable)
	if err != nil {
		return fail(err)
	}
	vtablePtr, _, _ := purego.SyscallN(vtableFn)
	if vtablePtr == 0 {
		return fail(errors.New("vtable function returned null"))
	}
	// The returned table has static storage by contract; copy it
	// anyway so later calls never chase a pointer into the library.
	vtable := *(*abi.VTable)(unsafe.Pointer(vtablePtr))

	var schema module.Schema
	hasSchema := false
	if schemaFn, err := dlSym(handle, abi.SymbolSchema); err == nil {
		if schemaPtr, _, _ := purego.SyscallN(schemaFn); schemaPtr != 0 {
			schema = abi.SchemaFromABI((*abi.ModuleSchemaABI)(unsafe.Pointer(schemaPtr)))
			hasSchema = true
		}
	}

	createFn, err := dlSym(handle, abi.SymbolCreate)
	if err != nil {
		return fail(err)
	}
	instance, _, _ := purego.SyscallN(createFn)
	if instance == 0 {
		return fail(ErrNilInstance)
	}

	return &Library{
		path:      path,
		handle:    handle,
		manifest:  manifest,
		schema:    schema,
		hasSchema: hasSchema,
		instance:  instance,
		vtable:    vtable,
		alloc:     alloc,
	}, nil
}

// Path returns the library file the plugin was loaded from.
func (l *Library) Path() string { return l.path }

// Manifest returns the metadata the plugin declared at load time.
func (l *Library) Manifest() module.Manifest { return l.manifest }

// Schema returns the plugin-exported schema, if the plugin provides
// one.
func (l *Library) Schema() (module.Schema, bool) { return l.schema, l.hasSchema }

// ID returns the plugin instance's stable identifier.
func (l *Library) ID() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return ""
	}
	p, _, _ := purego.SyscallN(l.vtable.GetID, l.instance)
	return abi.GoString(p)
}

// Name returns the plugin instance's display name.
func (l *Library) Name() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return ""
	}
	p, _, _ := purego.SyscallN(l.vtable.GetName, l.instance)
	return abi.GoString(p)
}

// IsEnabled reports the plugin's enabled flag.
func (l *Library) IsEnabled() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return false
	}
	r, _, _ := purego.SyscallN(l.vtable.IsEnabled, l.instance)
	return int32(r) != 0
}

// SetEnabled sets the plugin's enabled flag.
func (l *Library) SetEnabled(enabled bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}
	var flag uintptr
	if enabled {
		flag = 1
	}
	purego.SyscallN(l.vtable.SetEnabled, l.instance, flag)
}

// Poll asks the plugin for its next pending signal. The plugin
// allocates the payload; the host frees it after decoding.
func (l *Library) Poll() (signal.Signal, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil, false
	}
	var buf abi.SignalBuffer
	var pin runtime.Pinner
	pin.Pin(&buf)
	r, _, _ := purego.SyscallN(l.vtable.PollSignal, l.instance, uintptr(unsafe.Pointer(&buf)))
	pin.Unpin()
	if int32(r) == 0 {
		return nil, false
	}
	s, ok := abi.DecodeSignal(&buf)
	abi.FreeBuffer(l.alloc, &buf)
	return s, ok
}

// Consume hands one signal to the plugin and returns its output, if
// any. The host allocates the input payload and the plugin frees it;
// an output buffer flows the other way and is freed here.
func (l *Library) Consume(s signal.Signal) (signal.Signal, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil, false, ErrClosed
	}
	in, ok := abi.EncodeSignal(l.alloc, s)
	if !ok {
		return nil, false, fmt.Errorf("%w: %s", ErrNotEncodable, signal.Kind(s))
	}
	var pin runtime.Pinner
	pin.Pin(&in)
	outPtr, _, _ := purego.SyscallN(l.vtable.ConsumeSignal, l.instance, uintptr(unsafe.Pointer(&in)))
	pin.Unpin()
	if outPtr == 0 {
		return nil, false, nil
	}
	out := (*abi.SignalBuffer)(unsafe.Pointer(outPtr))
	result, decoded := abi.DecodeSignal(out)
	abi.FreeBuffer(l.alloc, out)
	l.alloc.Free(outPtr)
	if !decoded {
		return nil, false, fmt.Errorf("plugin %s returned undecodable signal buffer", l.manifest.Name)
	}
	return result, true, nil
}

// ApplySettings passes a settings document to the plugin. The bytes
// are borrowed for the duration of the call only.
func (l *Library) ApplySettings(doc []byte) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed || len(doc) == 0 {
		return
	}
	var pin runtime.Pinner
	pin.Pin(&doc[0])
	purego.SyscallN(l.vtable.ApplySettings, l.instance,
		uintptr(unsafe.Pointer(&doc[0])), uintptr(len(doc)))
	pin.Unpin()
}

// Close destroys the plugin instance and then unloads the library, in
// that order, so destroy never runs through a dangling function
// pointer. Close is idempotent.
func (l *Library) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true
	purego.SyscallN(l.vtable.Destroy, l.instance)
	l.instance = 0
	return dlClose(l.handle)
}
