// Package docservice coordinates storage, conversion, and index operations
// for the archive surfaces.
package docservice

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/taviso/stfjson/internal/apperr"
	"github.com/taviso/stfjson/internal/checksum"
	"github.com/taviso/stfjson/internal/index"
	"github.com/taviso/stfjson/internal/stf"
	"github.com/taviso/stfjson/internal/storage"
	"github.com/taviso/stfjson/internal/tree"
)

// DocumentDetail is the full representation of one converted export.
type DocumentDetail struct {
	Path      string          `json:"path"`
	Checksum  string          `json:"checksum"`
	Blocks    int             `json:"blocks"`
	Document  json.RawMessage `json:"document"`
	FetchedAt time.Time       `json:"fetched_at"`
}

// DocumentListItem is a lightweight item in a list response.
type DocumentListItem struct {
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum"`
	Blocks    int       `json:"blocks"`
	Items     int       `json:"items"`
	IndexedAt time.Time `json:"indexed_at"`
}

// Service coordinates storage and index operations.
type Service struct {
	store  storage.Provider
	db     *index.DB
	logger *slog.Logger
}

// NewService creates a new document service.
func NewService(store storage.Provider, db *index.DB, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, db: db, logger: logger}
}

// GetDocument reads an export from storage and converts it on the fly, so the
// response always reflects what is on disk. A file that fails to convert is
// reported as invalid, never partially returned.
func (s *Service) GetDocument(_ context.Context, path string) (*DocumentDetail, error) {
	data, err := s.store.Read(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}

	doc, err := stf.Convert(bytes.NewReader(data), s.logger)
	if err != nil {
		return nil, errors.Join(apperr.ErrInvalid, err)
	}

	var converted bytes.Buffer
	if err := tree.Encode(&converted, doc, true); err != nil {
		return nil, err
	}

	return &DocumentDetail{
		Path:      path,
		Checksum:  checksum.Sum(data),
		Blocks:    doc.Len(),
		Document:  json.RawMessage(strings.TrimRight(converted.String(), "\n")),
		FetchedAt: time.Now().UTC(),
	}, nil
}

// GetRaw returns the unconverted bytes of an export.
func (s *Service) GetRaw(_ context.Context, path string) ([]byte, error) {
	data, err := s.store.Read(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	return data, nil
}

// ListDocuments returns a page of indexed documents.
func (s *Service) ListDocuments(_ context.Context, limit, offset int) ([]DocumentListItem, int, error) {
	rows, total, err := s.db.ListDocuments(limit, offset)
	if err != nil {
		return nil, 0, err
	}
	items := make([]DocumentListItem, len(rows))
	for i, r := range rows {
		items[i] = DocumentListItem{
			Path:      r.Path,
			Checksum:  r.Checksum,
			Blocks:    r.Blocks,
			Items:     r.Items,
			IndexedAt: r.IndexedAt,
		}
	}
	return items, total, nil
}

// Search delegates full-text search to the index.
func (s *Service) Search(_ context.Context, query string, limit int) ([]index.SearchResult, error) {
	return s.db.Search(query, limit)
}
