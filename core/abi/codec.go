package abi

import (
	"encoding/json"
	"unsafe"

	"github.com/artpar/patchbay/domain/module"
	"github.com/artpar/patchbay/domain/signal"
)

// Wire forms of the structured variants. JSON keeps the boundary free
// of layout drift for payloads that are not performance sensitive.
type intentWire struct {
	Action     string   `json:"action"`
	Parameters []string `json:"parameters"`
}

type astrologyWire struct {
	SunSign            string   `json:"sun_sign"`
	MoonSign           string   `json:"moon_sign"`
	RisingSign         string   `json:"rising_sign"`
	PlanetaryPositions [][2]any `json:"planetary_positions"`
}

type controlWire struct {
	Action   string          `json:"action"`
	Settings json.RawMessage `json:"settings,omitempty"`
}

type computedWire struct {
	Source  string `json:"source"`
	Content string `json:"content"`
}

// audioWire is the fixed 16-byte header preceding the raw f32 samples
// of an audio payload.
type audioWire struct {
	SampleRate  uint32
	Channels    uint16
	_           uint16
	TimestampUS uint64
}

const audioWireSize = int(unsafe.Sizeof(audioWire{}))

// EncodeSignal converts an in-process signal into a SignalBuffer whose
// payload lives in C memory obtained from a. Ownership of the payload
// transfers to whoever receives the buffer. The second return is false
// for variants that do not cross the boundary (streams, refs, GPU
// context) and when allocation fails.
func EncodeSignal(a Allocator, s signal.Signal) (SignalBuffer, bool) {
	switch v := s.(type) {
	case signal.Pulse:
		return SignalBuffer{SignalType: uint32(SignalPulse)}, true

	case signal.Text:
		p, ok := allocBytes(a, []byte(v.Value))
		if !ok {
			return SignalBuffer{}, false
		}
		return SignalBuffer{SignalType: uint32(SignalText), Value: uint64(p), Size: uint64(len(v.Value))}, true

	case signal.Intent:
		return encodeJSON(a, SignalIntent, intentWire{Action: v.Action, Parameters: v.Parameters})

	case signal.Astrology:
		w := astrologyWire{
			SunSign:    v.Data.SunSign,
			MoonSign:   v.Data.MoonSign,
			RisingSign: v.Data.RisingSign,
		}
		for _, pp := range v.Data.PlanetaryPositions {
			w.PlanetaryPositions = append(w.PlanetaryPositions, [2]any{pp.Planet, pp.Degree})
		}
		return encodeJSON(a, SignalAstrology, w)

	case signal.Control:
		return encodeJSON(a, SignalControl, controlWire{Action: string(v.Signal.Action), Settings: v.Signal.Settings})

	case signal.Computed:
		return encodeJSON(a, SignalComputed, computedWire{Source: v.Source, Content: v.Content})

	case signal.Blob:
		// Payload: mime bytes, NUL, data bytes. Param is the data
		// offset inside the payload.
		total := len(v.MimeType) + 1 + len(v.Bytes)
		p := a.Alloc(total)
		if p == 0 {
			return SignalBuffer{}, false
		}
		out := bytesAt(p, total)
		n := copy(out, v.MimeType)
		out[n] = 0
		copy(out[n+1:], v.Bytes)
		return SignalBuffer{
			SignalType: uint32(SignalBlob),
			Value:      uint64(p),
			Size:       uint64(total),
			Param:      uint64(n + 1),
		}, true

	case signal.Audio:
		total := audioWireSize + 4*len(v.Data)
		p := a.Alloc(total)
		if p == 0 {
			return SignalBuffer{}, false
		}
		hdr := (*audioWire)(unsafe.Pointer(p))
		hdr.SampleRate = v.SampleRate
		hdr.Channels = v.Channels
		hdr.TimestampUS = v.TimestampUS
		if len(v.Data) > 0 {
			samples := unsafe.Slice((*float32)(unsafe.Pointer(p+uintptr(audioWireSize))), len(v.Data))
			copy(samples, v.Data)
		}
		return SignalBuffer{
			SignalType: uint32(SignalAudio),
			Value:      uint64(p),
			Size:       uint64(total),
			Param:      uint64(len(v.Data)),
		}, true

	default:
		// AudioStream, refs and GPU variants stay in-process.
		return SignalBuffer{}, false
	}
}

// DecodeSignal converts a SignalBuffer back into an in-process signal,
// copying the payload out of foreign memory. It does not free the
// payload; the caller owns it per the transfer contract. The second
// return is false for unknown tags and malformed payloads, which the
// caller should ignore rather than treat as fatal.
func DecodeSignal(buf *SignalBuffer) (signal.Signal, bool) {
	switch SignalType(buf.SignalType) {
	case SignalPulse:
		return signal.Pulse{}, true

	case SignalText:
		return signal.Text{Value: string(bytesAt(uintptr(buf.Value), int(buf.Size)))}, true

	case SignalIntent:
		var w intentWire
		if !decodeJSON(buf, &w) {
			return nil, false
		}
		return signal.Intent{Action: w.Action, Parameters: w.Parameters}, true

	case SignalAstrology:
		var w astrologyWire
		if !decodeJSON(buf, &w) {
			return nil, false
		}
		data := signal.AstrologyData{
			SunSign:    w.SunSign,
			MoonSign:   w.MoonSign,
			RisingSign: w.RisingSign,
		}
		for _, pp := range w.PlanetaryPositions {
			name, _ := pp[0].(string)
			deg, _ := pp[1].(float64)
			data.PlanetaryPositions = append(data.PlanetaryPositions, signal.PlanetPosition{Planet: name, Degree: deg})
		}
		return signal.Astrology{Data: data}, true

	case SignalControl:
		var w controlWire
		if !decodeJSON(buf, &w) {
			return nil, false
		}
		return signal.Control{Signal: signal.ControlSignal{
			Action:   signal.ControlAction(w.Action),
			Settings: w.Settings,
		}}, true

	case SignalComputed:
		var w computedWire
		if !decodeJSON(buf, &w) {
			return nil, false
		}
		return signal.Computed{Source: w.Source, Content: w.Content}, true

	case SignalBlob:
		payload := bytesAt(uintptr(buf.Value), int(buf.Size))
		off := int(buf.Param)
		if off < 1 || off > len(payload) {
			return nil, false
		}
		data := make([]byte, len(payload)-off)
		copy(data, payload[off:])
		return signal.Blob{MimeType: string(payload[:off-1]), Bytes: data}, true

	case SignalAudio:
		if buf.Value == 0 || int(buf.Size) < audioWireSize {
			return nil, false
		}
		hdr := (*audioWire)(unsafe.Pointer(uintptr(buf.Value)))
		n := int(buf.Param)
		if audioWireSize+4*n > int(buf.Size) {
			return nil, false
		}
		data := make([]float32, n)
		if n > 0 {
			src := unsafe.Slice((*float32)(unsafe.Pointer(uintptr(buf.Value)+uintptr(audioWireSize))), n)
			copy(data, src)
		}
		return signal.Audio{
			SampleRate:  hdr.SampleRate,
			Channels:    hdr.Channels,
			TimestampUS: hdr.TimestampUS,
			Data:        data,
		}, true

	default:
		return nil, false
	}
}

// FreeBuffer releases a buffer payload through the C allocator family.
func FreeBuffer(a Allocator, buf *SignalBuffer) {
	if buf.Value != 0 {
		a.Free(uintptr(buf.Value))
		buf.Value = 0
	}
	buf.Size = 0
	buf.Param = 0
}

// SchemaFromABI copies a plugin-exported schema descriptor into the
// host's schema type.
func SchemaFromABI(p *ModuleSchemaABI) module.Schema {
	s := module.Schema{
		ID:          GoString(p.ID),
		Name:        GoString(p.Name),
		Description: GoString(p.Description),
	}
	if p.SettingsSchema != 0 {
		s.SettingsSchema = json.RawMessage(GoString(p.SettingsSchema))
	}
	if p.Ports != 0 && p.PortsLen > 0 {
		ports := unsafe.Slice((*PortABI)(unsafe.Pointer(p.Ports)), int(p.PortsLen))
		for _, pa := range ports {
			s.Ports = append(s.Ports, module.Port{
				ID:        GoString(pa.ID),
				Label:     GoString(pa.Label),
				DataType:  DataTypeFromABI(pa.DataType),
				Direction: DirectionFromABI(pa.Direction),
			})
		}
	}
	return s
}

// Port data type tags used by PortABI.
const (
	portTypeText uint32 = iota
	portTypeBlob
	portTypeAudio
	portTypeVideo
	portTypeNetwork
	portTypeAstrology
	portTypeNumeric
	portTypeControl
	portTypeAny
)

// DataTypeFromABI maps a PortABI data type tag to the host data type.
// Unknown tags map to TypeAny so a newer plugin's ports stay routable.
func DataTypeFromABI(t uint32) signal.DataType {
	switch t {
	case portTypeText:
		return signal.TypeText
	case portTypeBlob:
		return signal.TypeBlob
	case portTypeAudio:
		return signal.TypeAudio
	case portTypeVideo:
		return signal.TypeVideo
	case portTypeNetwork:
		return signal.TypeNetwork
	case portTypeAstrology:
		return signal.TypeAstrology
	case portTypeNumeric:
		return signal.TypeNumeric
	case portTypeControl:
		return signal.TypeControl
	default:
		return signal.TypeAny
	}
}

// DirectionFromABI maps a PortABI direction tag: 0 input, 1 output.
func DirectionFromABI(d uint32) signal.PortDirection {
	if d == 0 {
		return signal.DirectionInput
	}
	return signal.DirectionOutput
}

func allocBytes(a Allocator, b []byte) (uintptr, bool) {
	if len(b) == 0 {
		return 0, true
	}
	p := a.Alloc(len(b))
	if p == 0 {
		return 0, false
	}
	copy(bytesAt(p, len(b)), b)
	return p, true
}

func encodeJSON(a Allocator, t SignalType, v any) (SignalBuffer, bool) {
	raw, err := json.Marshal(v)
	if err != nil {
		return SignalBuffer{}, false
	}
	p, ok := allocBytes(a, raw)
	if !ok {
		return SignalBuffer{}, false
	}
	return SignalBuffer{SignalType: uint32(t), Value: uint64(p), Size: uint64(len(raw))}, true
}

func decodeJSON(buf *SignalBuffer, v any) bool {
	raw := bytesAt(uintptr(buf.Value), int(buf.Size))
	return json.Unmarshal(raw, v) == nil
}
