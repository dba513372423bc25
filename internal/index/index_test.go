package index

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/taviso/stfjson/internal/apperr"
	"github.com/taviso/stfjson/internal/storage"
)

func testArchive(t *testing.T) (string, *storage.FS) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewFS(dir)
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	return dir, store
}

func testDB(t *testing.T) *DB {
	t.Helper()
	f, err := os.CreateTemp("", "stfjson-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	f.Close()
	t.Cleanup(func() { os.Remove(f.Name()) })

	db, err := Open(f.Name())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSchemaCreation(t *testing.T) {
	db := testDB(t)
	var count int
	if err := db.conn.QueryRow(`SELECT count(*) FROM documents`).Scan(&count); err != nil {
		t.Fatalf("documents table missing: %v", err)
	}
	if err := db.conn.QueryRow(`SELECT count(*) FROM entries`).Scan(&count); err != nil {
		t.Fatalf("entries table missing: %v", err)
	}
}

func TestUpsertAndGetDocument(t *testing.T) {
	db := testDB(t)
	row := DocumentRow{
		Path:      "exports/1990.stf",
		Checksum:  "abc123",
		Blocks:    1,
		Items:     2,
		IndexedAt: time.Now().UTC(),
	}
	entries := []Entry{
		{Block: 0, Ord: 0, Text: "first item", Categories: "Work"},
		{Block: 0, Ord: 1, Text: "second item", Note: "with a note"},
	}
	if err := db.UpsertDocument(row, `[{"items":[]}]`, entries); err != nil {
		t.Fatalf("UpsertDocument: %v", err)
	}

	got, converted, err := db.GetDocument("exports/1990.stf")
	if err != nil {
		t.Fatalf("GetDocument: %v", err)
	}
	if got.Checksum != "abc123" {
		t.Errorf("checksum = %q, want %q", got.Checksum, "abc123")
	}
	if got.Blocks != 1 || got.Items != 2 {
		t.Errorf("blocks/items = %d/%d, want 1/2", got.Blocks, got.Items)
	}
	if converted != `[{"items":[]}]` {
		t.Errorf("converted = %q", converted)
	}
}

func TestGetDocument_NotFound(t *testing.T) {
	db := testDB(t)
	_, _, err := db.GetDocument("missing.stf")
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestUpsertReplacesEntries(t *testing.T) {
	db := testDB(t)
	row := DocumentRow{Path: "up.stf", Checksum: "1", IndexedAt: time.Now()}
	_ = db.UpsertDocument(row, "[]", []Entry{{Text: "old text"}})

	row.Checksum = "2"
	if err := db.UpsertDocument(row, "[]", []Entry{{Text: "new text"}}); err != nil {
		t.Fatalf("UpsertDocument: %v", err)
	}

	if hits, _ := db.Search("old text", 10); len(hits) != 0 {
		t.Error("old entries should be removed on upsert")
	}
	hits, err := db.Search("new text", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 1 {
		t.Fatalf("expected 1 hit, got %d", len(hits))
	}
}

func TestDeleteDocument(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertDocument(DocumentRow{Path: "del.stf", Checksum: "x", IndexedAt: time.Now()}, "[]", []Entry{{Text: "body"}})

	if err := db.DeleteDocument("del.stf"); err != nil {
		t.Fatalf("DeleteDocument: %v", err)
	}
	if _, _, err := db.GetDocument("del.stf"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
	if hits, _ := db.Search("body", 10); len(hits) != 0 {
		t.Error("entries should be gone after delete")
	}
}

func TestListDocuments(t *testing.T) {
	db := testDB(t)
	for _, p := range []string{"a.stf", "b.stf", "c.stf"} {
		_ = db.UpsertDocument(DocumentRow{Path: p, Checksum: p, IndexedAt: time.Now()}, "[]", nil)
	}

	rows, total, err := db.ListDocuments(2, 0)
	if err != nil {
		t.Fatalf("ListDocuments: %v", err)
	}
	if total != 3 {
		t.Errorf("total = %d, want 3", total)
	}
	if len(rows) != 2 {
		t.Fatalf("len = %d, want 2", len(rows))
	}
	if rows[0].Path != "a.stf" || rows[1].Path != "b.stf" {
		t.Errorf("unexpected page: %q, %q", rows[0].Path, rows[1].Path)
	}
}

func TestSearch_MatchesNoteAndCategories(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertDocument(DocumentRow{Path: "s.stf", Checksum: "1", IndexedAt: time.Now()}, "[]", []Entry{
		{Block: 0, Ord: 0, Text: "plain", Note: "uniquenote here"},
		{Block: 1, Ord: 0, Text: "plain", Categories: "Errands"},
	})

	hits, err := db.Search("uniquenote", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 1 || hits[0].Path != "s.stf" || hits[0].Block != 0 {
		t.Errorf("hits = %+v, want 1 hit in block 0", hits)
	}

	hits, err = db.Search("Errands", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 1 || hits[0].Block != 1 {
		t.Errorf("hits = %+v, want 1 hit in block 1", hits)
	}
}

const sampleSTF = "{STF}8/29/26;12:00:00;002" +
	"{C}Work\\{.}" +
	"{I}{T}uniqueword appears here{N}remember the milk{C}Work\\{!}"

func TestSync_IndexesAndRemoves(t *testing.T) {
	dir, store := testArchive(t)
	db := testDB(t)
	logger := testLogger()

	writeExport(t, dir, "one.stf", sampleSTF)
	writeExport(t, dir, "bad.stf", "{STF}8/29/26;12:00:00;002{X}boom{!}")

	if err := Sync(db, store, logger); err != nil {
		t.Fatalf("Sync: %v", err)
	}

	// The good export is indexed, the bad one is skipped.
	row, _, err := db.GetDocument("one.stf")
	if err != nil {
		t.Fatalf("GetDocument: %v", err)
	}
	if row.Blocks != 1 || row.Items != 1 {
		t.Errorf("blocks/items = %d/%d, want 1/1", row.Blocks, row.Items)
	}
	if _, _, err := db.GetDocument("bad.stf"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("bad export should not be indexed, err = %v", err)
	}

	hits, err := db.Search("uniqueword", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 1 {
		t.Fatalf("expected 1 hit, got %d", len(hits))
	}

	// Deleting the file removes it from the index on the next sync.
	if err := os.Remove(filepath.Join(dir, "one.stf")); err != nil {
		t.Fatal(err)
	}
	if err := Sync(db, store, logger); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if _, _, err := db.GetDocument("one.stf"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("stale document should be removed, err = %v", err)
	}
}

func TestSync_SkipsUnchanged(t *testing.T) {
	dir, store := testArchive(t)
	db := testDB(t)
	logger := testLogger()

	writeExport(t, dir, "same.stf", sampleSTF)
	if err := Sync(db, store, logger); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	row1, _, _ := db.GetDocument("same.stf")

	if err := Sync(db, store, logger); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	row2, _, _ := db.GetDocument("same.stf")

	if !row1.IndexedAt.Equal(row2.IndexedAt) {
		t.Error("unchanged export should not be re-indexed")
	}
}

func TestExtractEntries(t *testing.T) {
	dir, store := testArchive(t)
	db := testDB(t)

	writeExport(t, dir, "flat.stf", sampleSTF)
	if err := Sync(db, store, testLogger()); err != nil {
		t.Fatalf("Sync: %v", err)
	}

	var text, note, cats string
	err := db.conn.QueryRow(`SELECT text, note, categories FROM entries WHERE path = ?`, "flat.stf").
		Scan(&text, &note, &cats)
	if err != nil {
		t.Fatalf("query entries: %v", err)
	}
	if text != "uniqueword appears here" {
		t.Errorf("text = %q", text)
	}
	if note != "remember the milk" {
		t.Errorf("note = %q", note)
	}
	if cats != "Work" {
		t.Errorf("categories = %q", cats)
	}
}

func writeExport(t *testing.T, dir, name, content string) {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

// testLogger discards output but keeps the slog plumbing exercised.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
