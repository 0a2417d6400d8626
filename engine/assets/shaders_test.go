package assets

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/spaghettifunk/penumbra/engine/core"
)

func writeShader(t *testing.T, dir, name string, data []byte) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name+".spv"), data, 0o644); err != nil {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestShaderCatalogLoad(t *testing.T) {
	dir := t.TempDir()
	writeShader(t, dir, "gbuffer.vert", []byte{0x03, 0x02, 0x23, 0x07})

	sc := NewShaderCatalog(dir)
	data, err := sc.Load("gbuffer.vert")
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if len(data) != 4 {
		t.Fatalf("expected 4 bytes; got %d", len(data))
	}
}

func TestShaderCatalogCaches(t *testing.T) {
	dir := t.TempDir()
	writeShader(t, dir, "lighting.frag", []byte{1, 2, 3, 4, 5, 6, 7, 8})

	sc := NewShaderCatalog(dir)
	if _, err := sc.Load("lighting.frag"); err != nil {
		t.Fatalf("unexpected error %v", err)
	}

	// Further loads are served from the cache even if the file is gone.
	if err := os.Remove(filepath.Join(dir, "lighting.frag.spv")); err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if _, err := sc.Load("lighting.frag"); err != nil {
		t.Fatalf("expected cached load; got %v", err)
	}

	// After eviction the miss is surfaced again.
	sc.evict("lighting.frag")
	if _, err := sc.Load("lighting.frag"); !errors.Is(err, core.ErrShaderNotFound) {
		t.Fatalf("expected ErrShaderNotFound; got %v", err)
	}
}

func TestShaderCatalogMissing(t *testing.T) {
	sc := NewShaderCatalog(t.TempDir())
	if _, err := sc.Load("nope.vert"); !errors.Is(err, core.ErrShaderNotFound) {
		t.Fatalf("expected ErrShaderNotFound; got %v", err)
	}
}

func TestShaderCatalogMalformed(t *testing.T) {
	type spec struct {
		name string
		data []byte
	}
	specs := []spec{
		{"empty.vert", []byte{}},
		{"truncated.frag", []byte{1, 2, 3}},
		{"ragged.frag", []byte{1, 2, 3, 4, 5}},
	}

	dir := t.TempDir()
	sc := NewShaderCatalog(dir)
	for index, s := range specs {
		writeShader(t, dir, s.name, s.data)
		if _, err := sc.Load(s.name); !errors.Is(err, core.ErrShaderMalformed) {
			t.Fatalf("[spec %d] expected ErrShaderMalformed; got %v", index, err)
		}
	}
}

func TestShaderCatalogWatchClose(t *testing.T) {
	sc := NewShaderCatalog(t.TempDir())
	if err := sc.Watch(); err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	// Second watch is a no-op.
	if err := sc.Watch(); err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if err := sc.Close(); err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	// Second close is a no-op, not a double close of the watcher.
	if err := sc.Close(); err != nil {
		t.Fatalf("unexpected error %v", err)
	}

	if err := sc.Watch(); err == nil {
		t.Fatalf("expected error watching a closed catalog")
	}
}
