// Package signal provides the event value types exchanged between modules.
// This package has NO dependencies on I/O or external packages.
package signal

import "encoding/json"

// DataType classifies the data flowing through a port.
type DataType string

// Data types for typed port connections.
const (
	TypeText      DataType = "text"
	TypeBlob      DataType = "blob"
	TypeAudio     DataType = "audio"
	TypeVideo     DataType = "video"
	TypeNetwork   DataType = "network"
	TypeAstrology DataType = "astrology"
	TypeNumeric   DataType = "numeric"
	TypeControl   DataType = "control"
	// TypeAny accepts every data type (universal transforms).
	TypeAny DataType = "any"
)

// PortDirection states whether a port receives or emits data.
type PortDirection string

const (
	DirectionInput  PortDirection = "input"
	DirectionOutput PortDirection = "output"
)

// ControlAction identifies a host-level control request.
type ControlAction string

const (
	ControlShutdown     ControlAction = "shutdown"
	ControlReloadConfig ControlAction = "reload_config"
	ControlSettings     ControlAction = "settings"
)

// ControlSignal is a control request carried inside a Control variant.
type ControlSignal struct {
	Action ControlAction
	// Settings carries the settings payload when Action is ControlSettings.
	Settings json.RawMessage
}

// AstrologyData is the astrological payload produced by the ephemeris
// collaborators. The host routes it; it never interprets it.
type AstrologyData struct {
	SunSign            string
	MoonSign           string
	RisingSign         string
	PlanetaryPositions []PlanetPosition
}

// PlanetPosition is a planet name with its ecliptic degree.
type PlanetPosition struct {
	Planet string
	Degree float64
}

// BufferRef identifies a host-managed buffer by pool slot and generation.
// A ref is valid only while its generation matches the slot's current
// generation.
type BufferRef struct {
	ID         uint32
	Generation uint32
}

// SampleReceiver is the consumer end of a real-time sample stream.
// Exactly one module may hold it (SPSC discipline).
type SampleReceiver interface {
	// TryRecv returns the next sample without blocking.
	TryRecv() (float32, bool)
	// Len reports the approximate number of buffered samples.
	Len() int
}

// Signal is the closed tagged union carried on the bus. Exactly one
// variant is active at a time; consumers type-switch exhaustively or
// ignore variants they do not understand. Ownership transfers on send.
type Signal interface {
	isSignal()
}

// Text is pure text content (clipboard, keyboard, LLM output).
type Text struct {
	Value string
}

// Intent is a structured command.
type Intent struct {
	Action     string
	Parameters []string
}

// Astrology carries an astrological payload.
type Astrology struct {
	Data AstrologyData
}

// Blob is raw bytes with a MIME type.
type Blob struct {
	MimeType string
	Bytes    []byte
}

// BlobRef is a zero-copy reference to a host-managed blob.
type BlobRef struct {
	Ref      BufferRef
	MimeType string
}

// Audio is a buffered PCM signal, copied to each consumer.
type Audio struct {
	SampleRate  uint32
	Channels    uint16
	TimestampUS uint64
	Data        []float32
}

// AudioRef is a zero-copy reference to a host-managed audio buffer.
type AudioRef struct {
	Ref        BufferRef
	SampleRate uint32
	Channels   uint16
}

// AudioStream hands over the consumer end of a real-time ring buffer.
// SPSC: only one module may consume it, and the variant cannot cross
// the plugin ABI boundary.
type AudioStream struct {
	SampleRate uint32
	Channels   uint16
	Receiver   SampleReceiver
}

// Control is a control signal for the system.
type Control struct {
	Signal ControlSignal
}

// Computed is processed data with its originating source.
type Computed struct {
	Source  string
	Content string
}

// GpuContext passes opaque GPU context identifiers to the compositor.
// In-process only; never crosses the plugin ABI boundary.
type GpuContext struct {
	Device uintptr
	Queue  uintptr
}

// Texture references a host-managed GPU texture.
type Texture struct {
	Ref       BufferRef
	StartTime float64
}

// Pulse is an empty signal used for heartbeats and triggers.
type Pulse struct{}

// Clone returns a copy of s safe to hand to an additional consumer:
// variants carrying heap payloads get fresh backing arrays, so no two
// consumers alias the same memory. Handle variants (BlobRef, AudioRef,
// Texture) stay as-is; the pools they point into are shared by design.
// AudioStream cannot be duplicated (single consumer); Clone reports
// false for it and the caller must not fan it out.
func Clone(s Signal) (Signal, bool) {
	switch v := s.(type) {
	case Blob:
		v.Bytes = append([]byte(nil), v.Bytes...)
		return v, true
	case Audio:
		v.Data = append([]float32(nil), v.Data...)
		return v, true
	case Intent:
		v.Parameters = append([]string(nil), v.Parameters...)
		return v, true
	case Astrology:
		v.Data.PlanetaryPositions = append([]PlanetPosition(nil), v.Data.PlanetaryPositions...)
		return v, true
	case AudioStream:
		return v, false
	default:
		return s, true
	}
}

func (Text) isSignal()        {}
func (Intent) isSignal()      {}
func (Astrology) isSignal()   {}
func (Blob) isSignal()        {}
func (BlobRef) isSignal()     {}
func (Audio) isSignal()       {}
func (AudioRef) isSignal()    {}
func (AudioStream) isSignal() {}
func (Control) isSignal()     {}
func (Computed) isSignal()    {}
func (GpuContext) isSignal()  {}
func (Texture) isSignal()     {}
func (Pulse) isSignal()       {}

// Kind returns a stable name for the active variant, used for logging
// and metrics labels.
func Kind(s Signal) string {
	switch s.(type) {
	case Text:
		return "text"
	case Intent:
		return "intent"
	case Astrology:
		return "astrology"
	case Blob:
		return "blob"
	case BlobRef:
		return "blob_ref"
	case Audio:
		return "audio"
	case AudioRef:
		return "audio_ref"
	case AudioStream:
		return "audio_stream"
	case Control:
		return "control"
	case Computed:
		return "computed"
	case GpuContext:
		return "gpu_context"
	case Texture:
		return "texture"
	case Pulse:
		return "pulse"
	default:
		return "unknown"
	}
}
