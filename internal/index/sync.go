package index

import (
	"bytes"
	"log/slog"
	"strings"
	"time"

	"github.com/taviso/stfjson/internal/checksum"
	"github.com/taviso/stfjson/internal/stf"
	"github.com/taviso/stfjson/internal/storage"
	"github.com/taviso/stfjson/internal/tree"
)

// Sync walks the archive and brings the index up to date:
//   - new/changed exports are converted and upserted
//   - files removed from disk are deleted from the index
//
// A file that fails to convert is logged and skipped; the rest of the
// archive still gets indexed.
func Sync(db *DB, store storage.Provider, logger *slog.Logger) error {
	metas, err := store.List("")
	if err != nil {
		return err
	}

	checksums, err := db.AllChecksums()
	if err != nil {
		return err
	}

	disk := make(map[string]struct{}, len(metas))
	for _, m := range metas {
		disk[m.Path] = struct{}{}

		if checksums[m.Path] == m.Checksum {
			continue
		}

		data, err := store.Read(m.Path)
		if err != nil {
			logger.Warn("sync: read failed", slog.String("path", m.Path), slog.String("error", err.Error()))
			continue
		}
		if err := indexDocument(db, m.Path, data, logger); err != nil {
			logger.Warn("sync: convert failed", slog.String("path", m.Path), slog.String("error", err.Error()))
		} else {
			logger.Debug("sync: indexed", slog.String("path", m.Path))
		}
	}

	// Remove stale entries.
	for p := range checksums {
		if _, ok := disk[p]; !ok {
			if err := db.DeleteDocument(p); err != nil {
				logger.Warn("sync: delete failed", slog.String("path", p), slog.String("error", err.Error()))
			} else {
				logger.Debug("sync: removed stale", slog.String("path", p))
			}
		}
	}

	return nil
}

// indexDocument converts one export and upserts it into the DB.
func indexDocument(db *DB, path string, data []byte, logger *slog.Logger) error {
	doc, err := stf.Convert(bytes.NewReader(data), logger)
	if err != nil {
		return err
	}

	var converted bytes.Buffer
	if err := tree.Encode(&converted, doc, true); err != nil {
		return err
	}

	entries := extractEntries(doc)

	row := DocumentRow{
		Path:      path,
		Checksum:  checksum.Sum(data),
		Blocks:    doc.Len(),
		Items:     len(entries),
		IndexedAt: time.Now().UTC(),
	}
	return db.UpsertDocument(row, strings.TrimRight(converted.String(), "\n"), entries)
}

// extractEntries flattens a converted document into searchable rows, one per
// item, carrying the item text, note, and linked category names.
func extractEntries(doc *tree.Array) []Entry {
	var out []Entry
	for bi := 0; bi < doc.Len(); bi++ {
		block, ok := doc.At(bi).(*tree.Object)
		if !ok {
			continue
		}
		items := block.GetArray("items")
		for i := 0; i < items.Len(); i++ {
			item, ok := items.At(i).(*tree.Object)
			if !ok {
				continue
			}

			var names []string
			links := item.GetArray("categories")
			for li := 0; li < links.Len(); li++ {
				if link, ok := links.At(li).(*tree.Object); ok {
					if name := link.GetString("name"); name != "" {
						names = append(names, name)
					}
				}
			}

			out = append(out, Entry{
				Block:      bi,
				Ord:        i,
				Text:       item.GetString("text"),
				Note:       item.GetString("note"),
				Categories: strings.Join(names, " "),
			})
		}
	}
	return out
}
