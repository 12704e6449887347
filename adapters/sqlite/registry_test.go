package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/artpar/patchbay/domain/module"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open(:memory:) error = %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.Migrate(); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	return db
}

func TestMigrateIsIdempotent(t *testing.T) {
	db := testDB(t)
	if err := db.Migrate(); err != nil {
		t.Errorf("second Migrate() error = %v", err)
	}
}

func TestRegistryStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewRegistryStore(testDB(t))

	loaded := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	rec := module.PluginRecord{
		Path:       "plugins/waveform.so",
		SHA256:     "deadbeef",
		Name:       "waveform",
		Version:    "0.4.1",
		ABIVersion: 1,
		Verified:   true,
		Enabled:    true,
		LoadedAt:   &loaded,
	}
	if err := s.Upsert(ctx, rec); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	got, err := s.Get(ctx, rec.Path)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Name != rec.Name || got.SHA256 != rec.SHA256 || got.ABIVersion != rec.ABIVersion {
		t.Errorf("Get() = %+v, want stored fields", got)
	}
	if got.LoadedAt == nil || !got.LoadedAt.Equal(loaded) {
		t.Errorf("LoadedAt = %v, want %v", got.LoadedAt, loaded)
	}
	if !got.Verified || !got.Enabled {
		t.Errorf("flags = verified %v enabled %v, want both true", got.Verified, got.Enabled)
	}
}

func TestRegistryStoreUpsertReplaces(t *testing.T) {
	ctx := context.Background()
	s := NewRegistryStore(testDB(t))

	rec := module.PluginRecord{Path: "plugins/mod.so", Version: "1.0.0"}
	if err := s.Upsert(ctx, rec); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	rec.Version = "1.1.0"
	rec.Verified = true
	if err := s.Upsert(ctx, rec); err != nil {
		t.Fatalf("Upsert() replace error = %v", err)
	}

	got, err := s.Get(ctx, rec.Path)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Version != "1.1.0" || !got.Verified {
		t.Errorf("Get() after replace = %+v", got)
	}
	if got.CreatedAt.IsZero() {
		t.Error("CreatedAt not stamped on insert")
	}
	if got.UpdatedAt.Before(got.CreatedAt) {
		t.Errorf("UpdatedAt %v before CreatedAt %v", got.UpdatedAt, got.CreatedAt)
	}

	all, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(all) != 1 {
		t.Errorf("List() returned %d rows, want 1", len(all))
	}
}

func TestRegistryStoreSetEnabled(t *testing.T) {
	ctx := context.Background()
	s := NewRegistryStore(testDB(t))

	if err := s.Upsert(ctx, module.PluginRecord{Path: "plugins/mod.so", Enabled: true}); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	if err := s.SetEnabled(ctx, "plugins/mod.so", false); err != nil {
		t.Fatalf("SetEnabled() error = %v", err)
	}
	got, _ := s.Get(ctx, "plugins/mod.so")
	if got.Enabled {
		t.Error("Enabled = true after SetEnabled(false)")
	}
	if err := s.SetEnabled(ctx, "plugins/absent.so", true); err == nil {
		t.Error("SetEnabled() of an unknown path should fail")
	}
}

func TestRegistryStoreListOrderedAndDelete(t *testing.T) {
	ctx := context.Background()
	s := NewRegistryStore(testDB(t))

	for _, path := range []string{"plugins/c.so", "plugins/a.so", "plugins/b.so"} {
		if err := s.Upsert(ctx, module.PluginRecord{Path: path}); err != nil {
			t.Fatalf("Upsert(%s) error = %v", path, err)
		}
	}
	all, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	want := []string{"plugins/a.so", "plugins/b.so", "plugins/c.so"}
	for i, rec := range all {
		if rec.Path != want[i] {
			t.Errorf("List()[%d].Path = %q, want %q", i, rec.Path, want[i])
		}
	}

	if err := s.Delete(ctx, "plugins/b.so"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	all, _ = s.List(ctx)
	if len(all) != 2 {
		t.Errorf("List() after delete returned %d rows, want 2", len(all))
	}
}
