package memory

import (
	"context"
	"testing"

	"github.com/artpar/patchbay/domain/module"
)

func TestRegistryStoreCRUD(t *testing.T) {
	ctx := context.Background()
	s := NewRegistryStore()

	rec := module.PluginRecord{
		Path:       "plugins/waveform.so",
		SHA256:     "abc123",
		Name:       "waveform",
		Version:    "1.2.0",
		ABIVersion: 1,
		Verified:   true,
		Enabled:    true,
	}
	if err := s.Upsert(ctx, rec); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	got, err := s.Get(ctx, rec.Path)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Name != "waveform" || got.SHA256 != "abc123" {
		t.Errorf("Get() = %+v, want stored record", got)
	}

	if _, err := s.Get(ctx, "plugins/absent.so"); err == nil {
		t.Error("Get() of an unknown path should fail")
	}

	rec.Version = "1.3.0"
	if err := s.Upsert(ctx, rec); err != nil {
		t.Fatalf("Upsert() replace error = %v", err)
	}
	got, _ = s.Get(ctx, rec.Path)
	if got.Version != "1.3.0" {
		t.Errorf("Version after upsert = %q, want 1.3.0", got.Version)
	}

	if err := s.SetEnabled(ctx, rec.Path, false); err != nil {
		t.Fatalf("SetEnabled() error = %v", err)
	}
	got, _ = s.Get(ctx, rec.Path)
	if got.Enabled {
		t.Error("Enabled = true after SetEnabled(false)")
	}
	if err := s.SetEnabled(ctx, "plugins/absent.so", true); err == nil {
		t.Error("SetEnabled() of an unknown path should fail")
	}

	if err := s.Delete(ctx, rec.Path); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := s.Get(ctx, rec.Path); err == nil {
		t.Error("Get() after Delete() should fail")
	}
}

func TestRegistryStoreOwnsTimestamps(t *testing.T) {
	ctx := context.Background()
	s := NewRegistryStore()

	rec := module.PluginRecord{Path: "plugins/echo.so", SHA256: "v1"}
	if err := s.Upsert(ctx, rec); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	first, _ := s.Get(ctx, rec.Path)
	if first.CreatedAt.IsZero() || first.UpdatedAt.IsZero() {
		t.Fatalf("timestamps not stamped: %+v", first)
	}

	rec.SHA256 = "v2"
	if err := s.Upsert(ctx, rec); err != nil {
		t.Fatalf("Upsert() replace error = %v", err)
	}
	second, _ := s.Get(ctx, rec.Path)
	if !second.CreatedAt.Equal(first.CreatedAt) {
		t.Errorf("CreatedAt changed on upsert: %v -> %v", first.CreatedAt, second.CreatedAt)
	}
	if second.UpdatedAt.Before(first.UpdatedAt) {
		t.Errorf("UpdatedAt went backwards: %v -> %v", first.UpdatedAt, second.UpdatedAt)
	}
}

func TestRegistryStoreListOrdered(t *testing.T) {
	ctx := context.Background()
	s := NewRegistryStore()
	for _, path := range []string{"plugins/c.so", "plugins/a.so", "plugins/b.so"} {
		if err := s.Upsert(ctx, module.PluginRecord{Path: path}); err != nil {
			t.Fatalf("Upsert(%s) error = %v", path, err)
		}
	}

	got, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	want := []string{"plugins/a.so", "plugins/b.so", "plugins/c.so"}
	if len(got) != len(want) {
		t.Fatalf("List() returned %d records, want %d", len(got), len(want))
	}
	for i, rec := range got {
		if rec.Path != want[i] {
			t.Errorf("List()[%d].Path = %q, want %q", i, rec.Path, want[i])
		}
	}
}
