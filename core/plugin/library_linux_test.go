//go:build linux

package plugin

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
)

// Minimal plugin declaring an ABI version this host does not speak.
// create records its invocation through the sentinel file baked into
// the source; the load sequence must never reach it.
const mismatchPluginSrc = `
#include <stdint.h>
#include <stdio.h>

struct manifest {
	uint32_t abi_version;
	const char *name, *version, *description, *author;
};

static struct manifest m = {9999, "mismatch", "0.0.1", "built for a future host", "fixture"};

const struct manifest *patchbay_plugin_manifest(void) { return &m; }

void *patchbay_plugin_create(void) {
	FILE *f = fopen("%s", "w");
	if (f) fclose(f);
	return (void *)1;
}

const void *patchbay_plugin_get_vtable(void) { return (const void *)0; }
`

func buildSharedObject(t *testing.T, src, out string) {
	t.Helper()
	cc, err := exec.LookPath("cc")
	if err != nil {
		t.Skip("no C compiler in PATH")
	}
	if msg, err := exec.Command(cc, "-shared", "-fPIC", "-o", out, src).CombinedOutput(); err != nil {
		t.Skipf("cc failed: %v\n%s", err, msg)
	}
}

func TestLoadUnloadsMismatchedLibraryWithoutCreating(t *testing.T) {
	dir := t.TempDir()
	sentinel := filepath.Join(dir, "created.flag")
	src := filepath.Join(dir, "mismatch.c")
	if err := os.WriteFile(src, []byte(fmt.Sprintf(mismatchPluginSrc, sentinel)), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	libPath := filepath.Join(dir, "mismatch.so")
	buildSharedObject(t, src, libPath)

	if _, err := Load(libPath); !errors.Is(err, ErrABIVersionMismatch) {
		t.Fatalf("Load() error = %v, want ErrABIVersionMismatch", err)
	}
	if _, err := os.Stat(sentinel); !os.IsNotExist(err) {
		t.Error("plugin create ran although the version check failed")
	}
}
