package index

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/taviso/stfjson/internal/apperr"
)

// DocumentRow represents a row in the documents table.
type DocumentRow struct {
	Path      string
	Checksum  string
	Blocks    int
	Items     int
	IndexedAt time.Time
}

// Entry is one searchable item extracted from a converted document.
type Entry struct {
	Block      int
	Ord        int
	Text       string
	Note       string
	Categories string
}

// SearchResult represents one search hit.
type SearchResult struct {
	Path    string
	Block   int
	Snippet string
}

// UpsertDocument replaces a document, its entries, and its FTS rows within a
// transaction. converted is the serialized JSON document.
func (db *DB) UpsertDocument(d DocumentRow, converted string, entries []Entry) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	_, err = tx.Exec(`
		INSERT INTO documents (path, checksum, blocks, items, converted, indexed_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			checksum   = excluded.checksum,
			blocks     = excluded.blocks,
			items      = excluded.items,
			converted  = excluded.converted,
			indexed_at = excluded.indexed_at
	`, d.Path, d.Checksum, d.Blocks, d.Items, converted, d.IndexedAt)
	if err != nil {
		return fmt.Errorf("index: upsert document: %w", err)
	}

	// Replace entries: delete old then bulk insert.
	_, _ = tx.Exec(`DELETE FROM entries WHERE path = ?`, d.Path)
	ftsDelete(tx, d.Path)

	if len(entries) > 0 {
		stmt, err := tx.Prepare(`INSERT INTO entries (path, block, ord, text, note, categories) VALUES (?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("index: prepare entry insert: %w", err)
		}
		defer stmt.Close()
		for _, e := range entries {
			if _, err := stmt.Exec(d.Path, e.Block, e.Ord, e.Text, e.Note, e.Categories); err != nil {
				return fmt.Errorf("index: insert entry: %w", err)
			}
			if err := ftsUpsert(tx, d.Path, e.Block, e.Text, e.Note, e.Categories); err != nil {
				return err
			}
		}
	}

	return tx.Commit()
}

// DeleteDocument removes a document, its entries, and its FTS rows.
func (db *DB) DeleteDocument(path string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	ftsDelete(tx, path)
	_, _ = tx.Exec(`DELETE FROM entries WHERE path = ?`, path)
	_, _ = tx.Exec(`DELETE FROM documents WHERE path = ?`, path)

	return tx.Commit()
}

// GetDocument returns one document row and its converted JSON payload.
func (db *DB) GetDocument(path string) (*DocumentRow, string, error) {
	var d DocumentRow
	var converted string
	err := db.conn.QueryRow(`
		SELECT path, checksum, blocks, items, converted, indexed_at
		FROM documents WHERE path = ?
	`, path).Scan(&d.Path, &d.Checksum, &d.Blocks, &d.Items, &converted, &d.IndexedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, "", apperr.ErrNotFound
	}
	if err != nil {
		return nil, "", fmt.Errorf("index: get document: %w", err)
	}
	return &d, converted, nil
}

// ListDocuments returns a page of document rows plus the total count.
func (db *DB) ListDocuments(limit, offset int) ([]DocumentRow, int, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	var total int
	if err := db.conn.QueryRow(`SELECT COUNT(*) FROM documents`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("index: count documents: %w", err)
	}

	rows, err := db.conn.Query(`
		SELECT path, checksum, blocks, items, indexed_at
		FROM documents ORDER BY path LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("index: list documents: %w", err)
	}
	defer rows.Close()

	var out []DocumentRow
	for rows.Next() {
		var d DocumentRow
		if err := rows.Scan(&d.Path, &d.Checksum, &d.Blocks, &d.Items, &d.IndexedAt); err != nil {
			return nil, 0, err
		}
		out = append(out, d)
	}
	return out, total, rows.Err()
}

// AllChecksums returns every indexed path with its checksum.
func (db *DB) AllChecksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT path, checksum FROM documents`)
	if err != nil {
		return nil, fmt.Errorf("index: all checksums: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var p, cs string
		if err := rows.Scan(&p, &cs); err != nil {
			return nil, err
		}
		out[p] = cs
	}
	return out, rows.Err()
}
