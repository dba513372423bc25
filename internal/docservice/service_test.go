package docservice

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/taviso/stfjson/internal/apperr"
	"github.com/taviso/stfjson/internal/index"
	"github.com/taviso/stfjson/internal/storage"
)

const sampleSTF = "{STF}8/29/26;12:00:00;002" +
	"{C}Work\\{.}" +
	"{I}{T}uniqueword appears here{N}remember the milk{C}Work\\{!}"

func testService(t *testing.T) (*Service, string) {
	t.Helper()

	dir := t.TempDir()
	store, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}

	dbFile, err := os.CreateTemp("", "stfjson-svc-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := index.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(store, db, logger), dir
}

func writeExport(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestGetDocument_ConvertsFromDisk(t *testing.T) {
	svc, dir := testService(t)
	writeExport(t, dir, "diary.stf", sampleSTF)

	doc, err := svc.GetDocument(context.Background(), "diary.stf")
	if err != nil {
		t.Fatalf("GetDocument: %v", err)
	}
	if doc.Blocks != 1 {
		t.Errorf("blocks = %d, want 1", doc.Blocks)
	}
	if !strings.Contains(string(doc.Document), "uniqueword appears here") {
		t.Errorf("document missing item text: %s", doc.Document)
	}
	if doc.Checksum == "" {
		t.Error("checksum is empty")
	}
}

func TestGetDocument_NotFound(t *testing.T) {
	svc, _ := testService(t)
	_, err := svc.GetDocument(context.Background(), "missing.stf")
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestGetDocument_InvalidExport(t *testing.T) {
	svc, dir := testService(t)
	writeExport(t, dir, "broken.stf", "{STF}8/29/26;12:00:00;002{X}boom{!}")

	_, err := svc.GetDocument(context.Background(), "broken.stf")
	if !errors.Is(err, apperr.ErrInvalid) {
		t.Fatalf("err = %v, want ErrInvalid", err)
	}
}

func TestGetRaw(t *testing.T) {
	svc, dir := testService(t)
	writeExport(t, dir, "raw.stf", sampleSTF)

	data, err := svc.GetRaw(context.Background(), "raw.stf")
	if err != nil {
		t.Fatalf("GetRaw: %v", err)
	}
	if string(data) != sampleSTF {
		t.Errorf("raw = %q", data)
	}
}
