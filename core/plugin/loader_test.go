package plugin

import (
	"errors"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/rs/zerolog"

	"github.com/artpar/patchbay/core/abi"
)

func TestCheckABIVersion(t *testing.T) {
	if err := checkABIVersion(abi.Version); err != nil {
		t.Errorf("checkABIVersion(current) error = %v, want nil", err)
	}
	err := checkABIVersion(abi.Version + 1)
	if !errors.Is(err, ErrABIVersionMismatch) {
		t.Errorf("checkABIVersion(mismatch) error = %v, want ErrABIVersionMismatch", err)
	}
}

func TestDiscoverFiltersByExtension(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{
		"alpha" + libExt(),
		"beta" + libExt(),
		"readme.txt",
		"gamma" + libExt() + SignatureExt,
	} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "sub"+libExt()), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	l := &Loader{logger: zerolog.Nop()}
	l.AddDir(dir)

	got := l.Discover()
	sort.Strings(got)
	want := []string{
		filepath.Join(dir, "alpha"+libExt()),
		filepath.Join(dir, "beta"+libExt()),
	}
	if len(got) != len(want) {
		t.Fatalf("Discover() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Discover()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestDiscoverSkipsMissingDirs(t *testing.T) {
	existing := t.TempDir()
	if err := os.WriteFile(filepath.Join(existing, "mod"+libExt()), []byte("x"), 0o644); err != nil {
		t.Fatalf("write plugin: %v", err)
	}

	l := &Loader{logger: zerolog.Nop()}
	l.AddDir(filepath.Join(existing, "does-not-exist"))
	l.AddDir(existing)

	got := l.Discover()
	if len(got) != 1 || got[0] != filepath.Join(existing, "mod"+libExt()) {
		t.Errorf("Discover() = %v, want the single plugin in the existing dir", got)
	}
}

func TestLoadMissingFile(t *testing.T) {
	l := NewLoader(zerolog.Nop())
	if _, err := l.Load(filepath.Join(t.TempDir(), "absent"+libExt())); err == nil {
		t.Error("Load() of a missing file should fail")
	}
}

func TestIsLibrary(t *testing.T) {
	if !IsLibrary("mod" + libExt()) {
		t.Errorf("IsLibrary(mod%s) = false", libExt())
	}
	if IsLibrary("mod" + libExt() + SignatureExt) {
		t.Error("IsLibrary() = true for a signature file")
	}
	if IsLibrary("notes.txt") {
		t.Error("IsLibrary(notes.txt) = true")
	}
}
