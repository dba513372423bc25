package storage

import (
	"os"
	"path/filepath"
	"testing"
)

func tempArchive(t *testing.T) (string, *FS) {
	t.Helper()
	dir := t.TempDir()
	fs, err := NewFS(dir)
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	return dir, fs
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestRead(t *testing.T) {
	dir, s := tempArchive(t)
	writeFile(t, dir, "export.stf", "{STF}data")

	got, err := s.Read("export.stf")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != "{STF}data" {
		t.Errorf("content = %q", got)
	}
}

func TestRead_Missing(t *testing.T) {
	_, s := tempArchive(t)
	if _, err := s.Read("missing.stf"); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestList_FiltersByExtension(t *testing.T) {
	dir, s := tempArchive(t)
	writeFile(t, dir, "a.stf", "a")
	writeFile(t, dir, "sub/b.stf", "b")
	writeFile(t, dir, "readme.txt", "not stf")

	items, err := s.List("")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("len = %d, want 2", len(items))
	}
	for _, m := range items {
		if m.Checksum == "" {
			t.Errorf("missing checksum for %s", m.Path)
		}
		if m.UpdatedAt.IsZero() {
			t.Errorf("missing mtime for %s", m.Path)
		}
	}
}

func TestList_Subdir(t *testing.T) {
	dir, s := tempArchive(t)
	writeFile(t, dir, "top.stf", "t")
	writeFile(t, dir, "sub/inner.stf", "i")

	items, err := s.List("sub")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("len = %d, want 1", len(items))
	}
	if items[0].Path != filepath.Join("sub", "inner.stf") {
		t.Errorf("path = %q", items[0].Path)
	}
}

func TestTraversalBlocked(t *testing.T) {
	_, s := tempArchive(t)

	cases := []string{
		"../../etc/passwd",
		"../outside.stf",
		"/etc/shadow",
	}
	for _, p := range cases {
		if _, err := s.Read(p); err == nil {
			t.Errorf("expected error for path %q", p)
		}
	}
}

func TestNewFS_MissingRoot(t *testing.T) {
	if _, err := NewFS(filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Error("expected error for nonexistent root")
	}
}
