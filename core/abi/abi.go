// Package abi defines the C-compatible contract between the host and
// dynamically loaded plugin libraries: the manifest, the module runtime
// vtable, the signal buffer that moves payloads across the boundary,
// and the optional schema descriptors.
//
// Struct layouts here mirror fixed C layouts field for field; every
// field is a fixed-width integer or a pointer-sized word, with explicit
// padding where C would insert it. The pads assume 8-byte pointers, so
// the package only compiles on 64-bit targets; a 32-bit host would need
// its own mirrors. Strings cross the boundary as nul-terminated C
// strings.
//
// Ownership contract for SignalBuffer payloads: the producer of a
// buffer transfers ownership of the heap allocation referenced by
// Value to the receiver, which must release it through the C allocator
// family (malloc/free). The host allocates consume payloads with the
// process allocator and the plugin frees them; the plugin allocates
// poll and output payloads and the host frees them the same way.
package abi

import "unsafe"

// Fails to compile on targets without 8-byte pointers, where the
// explicit pads below would not match the C layout.
const _ = unsafe.Sizeof(uintptr(0)) - 8

// Version is the current ABI version. The loader refuses to load a
// library whose manifest declares a different value.
const Version uint32 = 1

// Exported symbol names every plugin shared library must provide.
// SymbolSchema is optional.
const (
	SymbolManifest = "patchbay_plugin_manifest"
	SymbolCreate   = "patchbay_plugin_create"
	SymbolVTable   = "patchbay_plugin_get_vtable"
	SymbolSchema   = "patchbay_plugin_get_schema"
)

// SignalType tags the active variant of a SignalBuffer.
type SignalType uint32

const (
	SignalText SignalType = iota
	SignalIntent
	SignalAstrology
	SignalBlob
	SignalAudio
	SignalControl
	SignalComputed
	SignalPulse
)

// Manifest is the C plugin manifest. The string fields are pointers to
// nul-terminated C strings with static storage inside the plugin.
//
//	struct manifest {
//	    uint32_t    abi_version;
//	    const char *name, *version, *description, *author;
//	};
type Manifest struct {
	ABIVersion  uint32
	_           uint32 // C padding before the first pointer
	Name        uintptr
	Version     uintptr
	Description uintptr
	Author      uintptr
}

// VTable is the fixed table of function pointers forming the plugin's
// polymorphic interface. Field order is part of the ABI.
//
//	const char *(*get_id)(const void *);
//	const char *(*get_name)(const void *);
//	int32_t     (*is_enabled)(const void *);
//	void        (*set_enabled)(void *, int32_t);
//	int32_t     (*poll_signal)(void *, signal_buffer *);
//	signal_buffer *(*consume_signal)(void *, const signal_buffer *);
//	void        (*apply_settings)(void *, const char *, uint64_t);
//	void        (*destroy)(void *);
type VTable struct {
	GetID         uintptr
	GetName       uintptr
	IsEnabled     uintptr
	SetEnabled    uintptr
	PollSignal    uintptr
	ConsumeSignal uintptr
	ApplySettings uintptr
	Destroy       uintptr
}

// SignalBuffer moves one signal across the FFI boundary without
// depending on the host's internal type layout. Value is an 8-byte
// union slot holding a payload pointer, a shared-memory fd, a GPU id,
// or an immediate integer/float, depending on SignalType. Size is the
// payload byte length; Param carries per-variant metadata.
type SignalBuffer struct {
	SignalType uint32
	_          uint32
	Value      uint64
	Size       uint64
	Param      uint64
}

// PortABI describes one port in a plugin-exported schema.
type PortABI struct {
	ID        uintptr
	Label     uintptr
	DataType  uint32
	Direction uint32
}

// ModuleSchemaABI is the optional schema descriptor a plugin may
// export. Ports points to a contiguous array of PortsLen PortABI
// entries with static storage.
type ModuleSchemaABI struct {
	ID             uintptr
	Name           uintptr
	Description    uintptr
	Ports          uintptr
	PortsLen       uint64
	SettingsSchema uintptr
}

// Allocator abstracts the C allocator family used for payloads that
// cross the boundary.
type Allocator interface {
	// Alloc returns n bytes of C memory, or 0 when allocation fails.
	Alloc(n int) uintptr
	// Free releases memory obtained from Alloc, or from the plugin's
	// matching allocator. Free(0) is a no-op.
	Free(p uintptr)
}

// GoString copies a nul-terminated C string into a Go string. A zero
// pointer yields "".
func GoString(p uintptr) string {
	if p == 0 {
		return ""
	}
	n := 0
	for *(*byte)(unsafe.Pointer(p + uintptr(n))) != 0 {
		n++
	}
	if n == 0 {
		return ""
	}
	return string(unsafe.Slice((*byte)(unsafe.Pointer(p)), n))
}

// bytesAt views n bytes of foreign memory.
func bytesAt(p uintptr, n int) []byte {
	if p == 0 || n == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(p)), n)
}
