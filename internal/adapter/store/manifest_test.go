package store

import (
	"path/filepath"
	"testing"
	"time"
)

func tempManifest(t *testing.T) *Manifest {
	t.Helper()
	m, err := OpenManifest(filepath.Join(t.TempDir(), "ingest", "manifest.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { m.Close() })
	return m
}

func TestManifestPutGet(t *testing.T) {
	m := tempManifest(t)

	entry := ManifestEntry{
		Path:       "/kb/handbook.pdf",
		DocHash:    "deadbeef",
		ModTime:    1700000000,
		ChunkCount: 12,
		BatchID:    "batch-1",
		IndexedAt:  time.Now(),
	}
	if err := m.Put(entry); err != nil {
		t.Fatal(err)
	}

	got, found, err := m.Get("/kb/handbook.pdf")
	if err != nil {
		t.Fatal(err)
	}
	if !found {
		t.Fatal("entry not found")
	}
	if got.DocHash != "deadbeef" || got.ChunkCount != 12 || got.ModTime != 1700000000 {
		t.Errorf("got %+v", got)
	}
}

func TestManifestGetMissing(t *testing.T) {
	m := tempManifest(t)

	_, found, err := m.Get("/kb/nonexistent.txt")
	if err != nil {
		t.Fatal(err)
	}
	if found {
		t.Error("unexpected entry for unknown path")
	}
}

func TestManifestOverwrite(t *testing.T) {
	m := tempManifest(t)

	if err := m.Put(ManifestEntry{Path: "/kb/a.txt", ModTime: 1}); err != nil {
		t.Fatal(err)
	}
	if err := m.Put(ManifestEntry{Path: "/kb/a.txt", ModTime: 2}); err != nil {
		t.Fatal(err)
	}

	got, found, err := m.Get("/kb/a.txt")
	if err != nil {
		t.Fatal(err)
	}
	if !found || got.ModTime != 2 {
		t.Errorf("overwrite lost: found=%v %+v", found, got)
	}
}

func TestManifestAllAndClear(t *testing.T) {
	m := tempManifest(t)

	if err := m.Put(
		ManifestEntry{Path: "/kb/a.txt"},
		ManifestEntry{Path: "/kb/b.txt"},
	); err != nil {
		t.Fatal(err)
	}

	entries, err := m.All()
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}

	if err := m.Clear(); err != nil {
		t.Fatal(err)
	}
	entries, err = m.All()
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("clear left %d entries", len(entries))
	}
}

func TestManifestDelete(t *testing.T) {
	m := tempManifest(t)

	if err := m.Put(ManifestEntry{Path: "/kb/a.txt"}); err != nil {
		t.Fatal(err)
	}
	if err := m.Delete("/kb/a.txt"); err != nil {
		t.Fatal(err)
	}

	_, found, err := m.Get("/kb/a.txt")
	if err != nil {
		t.Fatal(err)
	}
	if found {
		t.Error("entry survived delete")
	}
}
