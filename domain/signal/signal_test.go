package signal

import "testing"

func TestKind(t *testing.T) {
	tests := []struct {
		sig  Signal
		want string
	}{
		{Text{Value: "hello"}, "text"},
		{Intent{Action: "open"}, "intent"},
		{Astrology{}, "astrology"},
		{Blob{MimeType: "image/png"}, "blob"},
		{BlobRef{}, "blob_ref"},
		{Audio{SampleRate: 48000}, "audio"},
		{AudioRef{}, "audio_ref"},
		{AudioStream{}, "audio_stream"},
		{Control{Signal: ControlSignal{Action: ControlShutdown}}, "control"},
		{Computed{Source: "stt"}, "computed"},
		{GpuContext{}, "gpu_context"},
		{Texture{}, "texture"},
		{Pulse{}, "pulse"},
	}

	for _, tt := range tests {
		if got := Kind(tt.sig); got != tt.want {
			t.Errorf("Kind(%T) = %q, want %q", tt.sig, got, tt.want)
		}
	}
}

func TestKindUnknown(t *testing.T) {
	if got := Kind(nil); got != "unknown" {
		t.Errorf("Kind(nil) = %q, want %q", got, "unknown")
	}
}

func TestCloneDetachesPayloads(t *testing.T) {
	blob := Blob{MimeType: "image/png", Bytes: []byte{1, 2, 3}}
	cloned, ok := Clone(blob)
	if !ok {
		t.Fatal("Clone(Blob) reported not cloneable")
	}
	blob.Bytes[0] = 9
	if got := cloned.(Blob).Bytes[0]; got != 1 {
		t.Errorf("clone aliased Blob bytes: got %d, want 1", got)
	}

	audio := Audio{SampleRate: 48000, Data: []float32{0.5, 0.25}}
	cloned, _ = Clone(audio)
	audio.Data[0] = -1
	if got := cloned.(Audio).Data[0]; got != 0.5 {
		t.Errorf("clone aliased Audio samples: got %v, want 0.5", got)
	}

	intent := Intent{Action: "open", Parameters: []string{"a"}}
	cloned, _ = Clone(intent)
	intent.Parameters[0] = "b"
	if got := cloned.(Intent).Parameters[0]; got != "a" {
		t.Errorf("clone aliased Intent parameters: got %q, want %q", got, "a")
	}

	astro := Astrology{Data: AstrologyData{PlanetaryPositions: []PlanetPosition{{Planet: "mars", Degree: 10}}}}
	cloned, _ = Clone(astro)
	astro.Data.PlanetaryPositions[0].Degree = 99
	if got := cloned.(Astrology).Data.PlanetaryPositions[0].Degree; got != 10 {
		t.Errorf("clone aliased planetary positions: got %v, want 10", got)
	}
}

func TestCloneRefusesAudioStream(t *testing.T) {
	if _, ok := Clone(AudioStream{SampleRate: 48000}); ok {
		t.Error("Clone(AudioStream) should report not cloneable")
	}
}

func TestClonePassesValueVariants(t *testing.T) {
	for _, s := range []Signal{Pulse{}, Text{Value: "x"}, BlobRef{}, AudioRef{}, Texture{}} {
		cloned, ok := Clone(s)
		if !ok {
			t.Errorf("Clone(%T) reported not cloneable", s)
		}
		if cloned != s {
			t.Errorf("Clone(%T) = %#v, want unchanged value", s, cloned)
		}
	}
}
